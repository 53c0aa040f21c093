//go:build ocr

package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
)

// tesseractRecognizer renders pages with MuPDF and reads them with Tesseract.
type tesseractRecognizer struct {
	dpi float64
}

// NewPageRecognizer returns a recognizer rendering at dpi.
func NewPageRecognizer(dpi float64) (PageRecognizer, error) {
	if dpi <= 0 {
		dpi = 300
	}
	return &tesseractRecognizer{dpi: dpi}, nil
}

func (r *tesseractRecognizer) RecognizePage(ctx context.Context, path string, index int, lang string) (PageText, error) {
	select {
	case <-ctx.Done():
		return PageText{}, ctx.Err()
	default:
	}

	doc, err := fitz.New(path)
	if err != nil {
		return PageText{}, fmt.Errorf("open pdf for ocr: %w", err)
	}
	defer doc.Close()

	if index < 0 || index >= doc.NumPage() {
		return PageText{}, fmt.Errorf("page %d out of range", index+1)
	}

	bounds, err := doc.Bound(index)
	if err != nil {
		return PageText{}, fmt.Errorf("page %d bounds: %w", index+1, err)
	}

	png, err := doc.ImagePNG(index, r.dpi)
	if err != nil {
		return PageText{}, fmt.Errorf("render page %d: %w", index+1, err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(TesseractLanguage(lang)); err != nil {
		return PageText{}, fmt.Errorf("set languages: %w", err)
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return PageText{}, fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return PageText{}, fmt.Errorf("recognize text: %w", err)
	}

	return PageText{
		Index:  index,
		Width:  float64(bounds.Dx()),
		Height: float64(bounds.Dy()),
		Text:   strings.TrimSpace(text),
	}, nil
}

func (r *tesseractRecognizer) Close() error {
	return nil
}
