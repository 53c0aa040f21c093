//go:build !ocr

package engine

// NewPageRecognizer reports that OCR was not compiled in.
// Rebuild with -tags ocr (needs MuPDF and Tesseract) to enable scanned-page text.
func NewPageRecognizer(dpi float64) (PageRecognizer, error) {
	return nil, ErrOCRNotEnabled
}
