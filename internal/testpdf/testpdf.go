// Package testpdf builds small single-page PDF documents for tests.
package testpdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Text is a run of Helvetica text with its baseline origin at X, Y.
type Text struct {
	X, Y  float64
	Size  float64
	Value string
}

// GridWithHeading places a heading well above a whitespace-aligned grid whose
// cells read R<row>C<col>, both counted from 1.
func GridWithHeading(heading string, rows, cols int) []Text {
	texts := []Text{{X: 100, Y: 700, Size: 18, Value: heading}}
	for r := 1; r <= rows; r++ {
		for c := 1; c <= cols; c++ {
			texts = append(texts, Text{
				X:     100 + 42*float64(c-1),
				Y:     620 - 20*float64(r),
				Size:  10,
				Value: fmt.Sprintf("R%dC%d", r, c),
			})
		}
	}
	return texts
}

// Page renders the text runs followed by raw graphics operators into a
// one-page US Letter PDF.
func Page(texts []Text, graphics string) []byte {
	var content strings.Builder
	for _, t := range texts {
		fmt.Fprintf(&content, "BT /F1 %s Tf %s %s Td (%s) Tj ET\n", num(t.Size), num(t.X), num(t.Y), escape(t.Value))
	}
	content.WriteString(graphics)
	stream := content.String()

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`).Replace(s)
}
