package engine

import (
	"context"
	"errors"
)

// ErrOCRNotEnabled is returned when the binary was built without the ocr tag.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// PageText is the recognized text of one rendered page.
type PageText struct {
	Index  int // 0-based page index
	Width  float64
	Height float64
	Text   string
}

// PageRecognizer renders PDF pages and runs OCR on them.
// Used for pages that carry no extractable text layer.
type PageRecognizer interface {
	RecognizePage(ctx context.Context, path string, index int, lang string) (PageText, error)
	Close() error
}
