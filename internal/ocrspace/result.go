// Package ocrspace models the OCR.space parse response and rebuilds
// table structure from its word-coordinate overlay.
package ocrspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUndefinedBounds is returned when a geometry predicate is invoked on a
// line that has no words and therefore no bounds.
var ErrUndefinedBounds = errors.New("line has no words, bounds are undefined")

// Word is a single recognized word with its bounding box in pixel units.
type Word struct {
	Text   string
	Left   int
	Top    int
	Width  int
	Height int
}

// Right returns the right edge of the word's bounding box.
func (w Word) Right() int {
	return w.Left + w.Width
}

// Bottom returns the bottom edge of the word's bounding box.
func (w Word) Bottom() int {
	return w.Top + w.Height
}

// Line is a recognized text line and the words it is composed of. Bounds are
// always computed from the current words, never cached.
type Line struct {
	Text      string
	Words     []Word
	MaxHeight int
	MinTop    int
}

func (l Line) String() string {
	return l.Text
}

// LeftBound returns the smallest left edge across all words, or -1 when the
// line has no words.
func (l Line) LeftBound() int {
	if len(l.Words) == 0 {
		return -1
	}
	bound := l.Words[0].Left
	for _, w := range l.Words[1:] {
		if w.Left < bound {
			bound = w.Left
		}
	}
	return bound
}

// RightBound returns the largest right edge across all words, or -1 when the
// line has no words.
func (l Line) RightBound() int {
	if len(l.Words) == 0 {
		return -1
	}
	bound := l.Words[0].Right()
	for _, w := range l.Words[1:] {
		if r := w.Right(); r > bound {
			bound = r
		}
	}
	return bound
}

// UpperBound returns the smallest top edge across all words. The second
// return value is false when the line has no words.
func (l Line) UpperBound() (int, bool) {
	if len(l.Words) == 0 {
		return 0, false
	}
	bound := l.Words[0].Top
	for _, w := range l.Words[1:] {
		if w.Top < bound {
			bound = w.Top
		}
	}
	return bound, true
}

// LowerBound returns the largest bottom edge across all words. The second
// return value is false when the line has no words.
func (l Line) LowerBound() (int, bool) {
	if len(l.Words) == 0 {
		return 0, false
	}
	bound := l.Words[0].Bottom()
	for _, w := range l.Words[1:] {
		if b := w.Bottom(); b > bound {
			bound = b
		}
	}
	return bound, true
}

// SameRow reports whether the vertical spans of the two lines overlap, i.e.
// they occupy the same visual row. It is symmetric. Calling it when either
// line has no words returns ErrUndefinedBounds.
func (l Line) SameRow(other Line) (bool, error) {
	upper, ok := l.UpperBound()
	if !ok {
		return false, ErrUndefinedBounds
	}
	lower, _ := l.LowerBound()
	otherUpper, ok := other.UpperBound()
	if !ok {
		return false, ErrUndefinedBounds
	}
	otherLower, _ := other.LowerBound()
	return upper <= otherLower && otherUpper <= lower, nil
}

// Overlay is the per-page line/word geometry, in the provider's emission
// order (not necessarily visual order).
type Overlay struct {
	Lines []Line
}

// LinesByUpperBound returns a copy of the overlay's lines sorted by upper
// bound ascending. The sort is stable, so ties keep the provider's order.
// Lines without words have no bounds and are excluded.
func (o Overlay) LinesByUpperBound() []Line {
	sorted := make([]Line, 0, len(o.Lines))
	for _, line := range o.Lines {
		if len(line.Words) > 0 {
			sorted = append(sorted, line)
		}
	}
	sortLinesStable(sorted, func(a, b Line) bool {
		ua, _ := a.UpperBound()
		ub, _ := b.UpperBound()
		return ua < ub
	})
	return sorted
}

// ParsedResult is the recognition outcome for one page.
type ParsedResult struct {
	Overlay      Overlay
	ExitCode     int // 1 means success in the provider convention
	Orientation  string
	Text         string // newline-separated recognized lines
	ErrorMessage string
	ErrorDetails string
}

// Result is the full provider response: all pages plus overall status.
type Result struct {
	Pages               []ParsedResult
	ExitCode            int
	ErroredOnProcessing bool
	ProcessingTime      float64 // milliseconds
	SearchablePDFURL    string
}

// The provider emits numeric fields both as JSON numbers and as quoted
// numeric strings. flexInt and flexFloat accept either and reject anything
// else so malformed responses fail at decode time.

type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	s, err := unquoteNumeric(data)
	if err != nil {
		return err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not an integer: %q", s)
	}
	*n = flexInt(v)
	return nil
}

type flexFloat float64

func (n *flexFloat) UnmarshalJSON(data []byte) error {
	s, err := unquoteNumeric(data)
	if err != nil {
		return err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	*n = flexFloat(v)
	return nil
}

func unquoteNumeric(data []byte) (string, error) {
	s := strings.TrimSpace(string(data))
	if strings.HasPrefix(s, `"`) {
		var unquoted string
		if err := json.Unmarshal(data, &unquoted); err != nil {
			return "", err
		}
		s = strings.TrimSpace(unquoted)
	}
	return s, nil
}

type wordDTO struct {
	WordText string   `json:"WordText"`
	Left     *flexInt `json:"Left"`
	Top      *flexInt `json:"Top"`
	Width    *flexInt `json:"Width"`
	Height   *flexInt `json:"Height"`
}

type lineDTO struct {
	LineText  string    `json:"LineText"`
	Words     []wordDTO `json:"Words"`
	MaxHeight *flexInt  `json:"MaxHeight"`
	MinTop    *flexInt  `json:"MinTop"`
}

type overlayDTO struct {
	Lines []lineDTO `json:"Lines"`
}

type parsedResultDTO struct {
	Overlay           *overlayDTO `json:"Overlay"`
	TextOverlay       *overlayDTO `json:"TextOverlay"`
	FileParseExitCode *flexInt    `json:"FileParseExitCode"`
	TextOrientation   string      `json:"TextOrientation"`
	ParsedText        string      `json:"ParsedText"`
	ErrorMessage      string      `json:"ErrorMessage"`
	ErrorDetails      string      `json:"ErrorDetails"`
}

type resultDTO struct {
	ParsedResults                []parsedResultDTO `json:"ParsedResults"`
	OCRExitCode                  *flexInt          `json:"OCRExitCode"`
	IsErroredOnProcessing        bool              `json:"IsErroredOnProcessing"`
	ProcessingTimeInMilliseconds *flexFloat        `json:"ProcessingTimeInMilliseconds"`
	SearchablePDFURL             string            `json:"SearchablePDFURL"`
}

// ParseResponse decodes a raw OCR.space response body into a Result.
// Missing or malformed numeric fields are decode errors; provider-reported
// processing errors are surfaced as data, not errors.
func ParseResponse(data []byte) (*Result, error) {
	var dto resultDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if dto.OCRExitCode == nil {
		return nil, fmt.Errorf("missing required field OCRExitCode")
	}
	if dto.ProcessingTimeInMilliseconds == nil {
		return nil, fmt.Errorf("missing required field ProcessingTimeInMilliseconds")
	}
	if len(dto.ParsedResults) == 0 && !dto.IsErroredOnProcessing {
		return nil, fmt.Errorf("response has no parsed results")
	}

	result := &Result{
		Pages:               make([]ParsedResult, 0, len(dto.ParsedResults)),
		ExitCode:            int(*dto.OCRExitCode),
		ErroredOnProcessing: dto.IsErroredOnProcessing,
		ProcessingTime:      float64(*dto.ProcessingTimeInMilliseconds),
		SearchablePDFURL:    dto.SearchablePDFURL,
	}
	for i, page := range dto.ParsedResults {
		decoded, err := page.decode()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		result.Pages = append(result.Pages, decoded)
	}
	return result, nil
}

func (d parsedResultDTO) decode() (ParsedResult, error) {
	if d.FileParseExitCode == nil {
		return ParsedResult{}, fmt.Errorf("missing required field FileParseExitCode")
	}
	// The provider uses either key depending on API version. Absence of both
	// means the overlay was not requested; that is an empty overlay, not an
	// error.
	src := d.Overlay
	if src == nil {
		src = d.TextOverlay
	}
	var overlay Overlay
	if src != nil {
		overlay.Lines = make([]Line, 0, len(src.Lines))
		for i, line := range src.Lines {
			decoded, err := line.decode()
			if err != nil {
				return ParsedResult{}, fmt.Errorf("overlay line %d: %w", i, err)
			}
			overlay.Lines = append(overlay.Lines, decoded)
		}
	}
	return ParsedResult{
		Overlay:      overlay,
		ExitCode:     int(*d.FileParseExitCode),
		Orientation:  d.TextOrientation,
		Text:         d.ParsedText,
		ErrorMessage: d.ErrorMessage,
		ErrorDetails: d.ErrorDetails,
	}, nil
}

func (d lineDTO) decode() (Line, error) {
	if d.MaxHeight == nil || d.MinTop == nil {
		return Line{}, fmt.Errorf("line %q: missing MaxHeight or MinTop", d.LineText)
	}
	words := make([]Word, 0, len(d.Words))
	for _, word := range d.Words {
		if word.Left == nil || word.Top == nil || word.Width == nil || word.Height == nil {
			return Line{}, fmt.Errorf("word %q: missing bounding box field", word.WordText)
		}
		words = append(words, Word{
			Text:   word.WordText,
			Left:   int(*word.Left),
			Top:    int(*word.Top),
			Width:  int(*word.Width),
			Height: int(*word.Height),
		})
	}
	return Line{
		Text:      d.LineText,
		Words:     words,
		MaxHeight: int(*d.MaxHeight),
		MinTop:    int(*d.MinTop),
	}, nil
}
