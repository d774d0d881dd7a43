// Package summary extracts vendor, date and total from recognized receipt
// text. All extraction is best-effort pattern matching over noisy OCR
// output; misses are data, never errors.
package summary

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/paolomarr/receipt-scanner/internal/ocrspace"
)

// NotAvailable is the sentinel rendered when a field could not be extracted.
const NotAvailable = "n.a."

// Total label patterns, most specific first. The first pattern that yields a
// parsable amount wins.
var totalGuessPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)TOTALE COMPLESSIVO`),
	regexp.MustCompile(`(?i)^TOTALE`),
	regexp.MustCompile(`(?i)IMPORTO PAGATO`),
	regexp.MustCompile(`(?i)SUBTOTALE`),
}

var (
	datePattern     = regexp.MustCompile(`(\d+)[-/](\d+)[-/](\d+)\s+(\d+)[:.](\d+)(?:[:.](\d+))?`)
	amountPattern   = regexp.MustCompile(`\d+[.,]\d{2}`)
	nonWordPattern  = regexp.MustCompile(`[^\w\s]`)
	quickTotalLabel = regexp.MustCompile(`(?i)^.*totale complessivo`)
)

// ReceiptSummary derives vendor, date and total from the first page of an
// OCR result. A found total is memoized until the backing result is
// replaced. Not safe for concurrent use.
type ReceiptSummary struct {
	result      *ocrspace.Result
	cachedTotal *float64
}

// New creates a summary over the given result.
func New(result *ocrspace.Result) *ReceiptSummary {
	return &ReceiptSummary{result: result}
}

// Result returns the backing OCR result.
func (s *ReceiptSummary) Result() *ocrspace.Result {
	return s.result
}

// SetResult replaces the backing result and invalidates the memoized total.
func (s *ReceiptSummary) SetResult(result *ocrspace.Result) {
	s.cachedTotal = nil
	s.result = result
}

// Vendor guesses the vendor name: the first non-empty recognized line with
// everything but word characters and whitespace stripped. NotAvailable when
// nothing usable is found.
func (s *ReceiptSummary) Vendor() string {
	for _, line := range s.textLines() {
		if strings.TrimSpace(line) == "" {
			continue
		}
		vendor := strings.TrimSpace(nonWordPattern.ReplaceAllString(line, ""))
		if vendor == "" {
			return NotAvailable
		}
		return vendor
	}
	return NotAvailable
}

// Date scans for the first DD-MM-YYYY HH:MM[:SS] shaped substring (with -
// or / as date separators and : or . as time separators). When no line
// matches, it falls back to the current wall-clock time: callers must treat
// that as "unknown", not a real transaction time.
func (s *ReceiptSummary) Date() time.Time {
	for _, line := range s.textLines() {
		m := datePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		hour, _ := strconv.Atoi(m[4])
		minute, _ := strconv.Atoi(m[5])
		second := 0
		if m[6] != "" {
			second, _ = strconv.Atoi(m[6])
		}
		return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local)
	}
	return time.Now()
}

// TotalGuess extracts the receipt total. For each label pattern in order it
// scans the lines top to bottom; a matching line is split on tabs and the
// last column searched for an amount shaped like \d+[.,]\d{2}. The first
// parsed amount stops all scanning and is memoized. ok is false when no
// pattern yields a value.
func (s *ReceiptSummary) TotalGuess() (total float64, ok bool) {
	if s.cachedTotal != nil {
		return *s.cachedTotal, true
	}
	lines := s.textLines()
	for _, pattern := range totalGuessPatterns {
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if !pattern.MatchString(trimmed) {
				continue
			}
			slog.Debug("total label matched", "line", trimmed, "pattern", pattern.String())
			columns := strings.Split(trimmed, "\t")
			if len(columns) < 2 {
				slog.Debug("no value column on matched line", "line", trimmed)
				continue
			}
			raw := amountPattern.FindString(columns[len(columns)-1])
			if raw == "" {
				continue
			}
			value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
			if err != nil {
				slog.Debug("amount does not parse", "value", raw, "line", trimmed)
				continue
			}
			s.cachedTotal = &value
			return value, true
		}
	}
	return 0, false
}

// String renders the one-line human-readable summary.
func (s *ReceiptSummary) String() string {
	total := NotAvailable
	if v, ok := s.TotalGuess(); ok {
		total = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprintf("%s, on %s - Total: %s", s.Vendor(), s.Date().Format("01/02/06 15:04:05"), total)
}

func (s *ReceiptSummary) textLines() []string {
	if s.result == nil || len(s.result.Pages) == 0 {
		return nil
	}
	return splitTextLines(s.result.Pages[0].Text)
}

// QuickTotal is the fast path over plain text only: the first line matching
// "totale complessivo" is split on tabs, empty columns dropped, and the last
// column returned verbatim (no numeric parsing).
func QuickTotal(result *ocrspace.Result) (string, bool) {
	if result == nil || len(result.Pages) == 0 {
		return "", false
	}
	for _, line := range splitTextLines(result.Pages[0].Text) {
		if !quickTotalLabel.MatchString(line) {
			continue
		}
		var columns []string
		for _, col := range strings.Split(line, "\t") {
			if strings.TrimSpace(col) != "" {
				columns = append(columns, col)
			}
		}
		if len(columns) == 0 {
			return "", false
		}
		return columns[len(columns)-1], true
	}
	return "", false
}

func splitTextLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}
