package engine

import (
	"fmt"
	"html"
	"strings"

	"github.com/tsawler/tabula/model"
)

// tableRes is the res payload emitted for detected tables.
type tableRes struct {
	HTML      string      `json:"html"`
	Cells     []tableCell `json:"cells"`
	Structure string      `json:"structure"`
}

// tableCell describes one logical cell in page coordinates (top-left origin).
type tableCell struct {
	Row      int       `json:"row"`
	Col      int       `json:"col"`
	RowSpan  int       `json:"row_span"`
	ColSpan  int       `json:"col_span"`
	Text     string    `json:"text"`
	IsHeader bool      `json:"is_header"`
	BBox     []float64 `json:"bbox"`
}

// renderTable converts a detected table into PP-Structure style html,
// a flat cell list and the tag-only structure of the html.
func renderTable(t *model.Table, pageHeight float64) tableRes {
	var body, skeleton strings.Builder
	cells := make([]tableCell, 0)

	covered := make(map[[2]int]bool)

	for i, row := range t.Rows {
		body.WriteString("<tr>")
		skeleton.WriteString("<tr>")

		for j, cell := range row {
			if covered[[2]int{i, j}] {
				continue
			}

			rowSpan := max(cell.RowSpan, 1)
			colSpan := max(cell.ColSpan, 1)
			for di := 0; di < rowSpan; di++ {
				for dj := 0; dj < colSpan; dj++ {
					if di != 0 || dj != 0 {
						covered[[2]int{i + di, j + dj}] = true
					}
				}
			}

			tag := "td"
			if cell.IsHeader {
				tag = "th"
			}
			attrs := spanAttrs(rowSpan, colSpan)

			fmt.Fprintf(&body, "<%s%s>%s</%s>", tag, attrs, html.EscapeString(strings.TrimSpace(cell.Text)), tag)
			fmt.Fprintf(&skeleton, "<%s%s></%s>", tag, attrs, tag)

			cells = append(cells, tableCell{
				Row:      i,
				Col:      j,
				RowSpan:  rowSpan,
				ColSpan:  colSpan,
				Text:     strings.TrimSpace(cell.Text),
				IsHeader: cell.IsHeader,
				BBox:     topLeftBBox(cell.BBox, pageHeight),
			})
		}

		body.WriteString("</tr>")
		skeleton.WriteString("</tr>")
	}

	return tableRes{
		HTML:      "<html><body><table>" + body.String() + "</table></body></html>",
		Cells:     cells,
		Structure: "<table>" + skeleton.String() + "</table>",
	}
}

func spanAttrs(rowSpan, colSpan int) string {
	var attrs string
	if rowSpan > 1 {
		attrs += fmt.Sprintf(` rowspan="%d"`, rowSpan)
	}
	if colSpan > 1 {
		attrs += fmt.Sprintf(` colspan="%d"`, colSpan)
	}
	return attrs
}

// topLeftBBox converts a PDF box (bottom-left origin) to [x0, y0, x1, y1]
// measured from the top-left corner of the page.
func topLeftBBox(b model.BBox, pageHeight float64) []float64 {
	if b.Width == 0 && b.Height == 0 && b.X == 0 && b.Y == 0 {
		return []float64{}
	}
	return []float64{
		b.X,
		pageHeight - (b.Y + b.Height),
		b.X + b.Width,
		pageHeight - b.Y,
	}
}
