// Package imageprep normalizes receipt captures into JPEG bytes that fit
// the OCR provider's upload size budget.
package imageprep

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// DefaultMaxBytes is the provider's free-tier upload limit.
const DefaultMaxBytes = 1 << 20

const (
	initialQuality = 95
	minQuality     = 10
	qualityStep    = 5
)

// Prepare normalizes the input (PDF first page rendered, HEIC decoded) and
// re-encodes it as a grayscale JPEG within maxBytes.
func Prepare(data []byte, maxBytes int) ([]byte, error) {
	normalized, err := Normalize(data)
	if err != nil {
		return nil, err
	}
	return FitToSizeBudget(normalized, maxBytes)
}

// Normalize converts formats the image decoders cannot read directly. PDFs
// have their first page rendered (receipts are single page), HEIC photos
// (common on iPhones) are decoded and re-encoded. Everything else passes
// through untouched.
func Normalize(data []byte) ([]byte, error) {
	switch {
	case isPDF(data):
		doc, err := fitz.NewFromMemory(data)
		if err != nil {
			return nil, fmt.Errorf("opening PDF: %w", err)
		}
		defer doc.Close()
		img, err := doc.Image(0)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page: %w", err)
		}
		return encodeJPEG(img, initialQuality)
	case isHEIC(data):
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC image: %w", err)
		}
		return encodeJPEG(img, initialQuality)
	default:
		return data, nil
	}
}

// FitToSizeBudget converts the image to grayscale and re-encodes it as JPEG,
// stepping the quality down from 95 until the output fits maxBytes. An image
// that still exceeds the budget at the minimum quality is an error.
func FitToSizeBudget(data []byte, maxBytes int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	gray := imaging.Grayscale(img)
	for quality := initialQuality; quality >= minQuality; quality -= qualityStep {
		encoded, err := encodeJPEG(gray, quality)
		if err != nil {
			return nil, err
		}
		if len(encoded) <= maxBytes {
			return encoded, nil
		}
	}
	return nil, fmt.Errorf("image does not fit %d bytes at minimum quality", maxBytes)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

func isPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// isHEIC sniffs the ftyp box brands HEIC containers start with.
func isHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}
