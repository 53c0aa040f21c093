package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tsawler/tabula"
	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/graphicsstate"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/pages"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/tables"

	"github.com/Salamony4all/Estem8-V1/internal/observability"
)

// TabulaSettings tunes the native backend.
type TabulaSettings struct {
	Detector    tables.Config
	OCRFallback bool
	OCRDPI      float64
}

// TabulaEngine extracts text regions and tables with the pure-Go tabula library.
type TabulaEngine struct {
	opts       Options
	useLines   bool
	detector   *tables.GeometricDetector
	recognizer PageRecognizer
	logger     *observability.Logger
}

// NewTabulaEngine configures the geometric table detector and, if requested,
// an OCR recognizer for pages without a text layer.
func NewTabulaEngine(opts Options, settings TabulaSettings, logger *observability.Logger) (*TabulaEngine, error) {
	if logger == nil {
		logger = observability.Nop()
	}
	logger = logger.WithComponent("tabula_engine")

	detector := tables.NewGeometricDetector()
	if err := detector.Configure(settings.Detector); err != nil {
		return nil, fmt.Errorf("configure table detector: %w", err)
	}

	e := &TabulaEngine{
		opts:     opts,
		useLines: settings.Detector.UseLines,
		detector: detector,
		logger:   logger,
	}

	if opts.OCR && settings.OCRFallback {
		rec, err := NewPageRecognizer(settings.OCRDPI)
		switch {
		case errors.Is(err, ErrOCRNotEnabled):
			logger.Warn().Msg("OCR fallback requested but binary built without -tags ocr; scanned pages will yield no text")
		case err != nil:
			return nil, err
		default:
			e.recognizer = rec
		}
	}

	return e, nil
}

// Name returns the backend name.
func (e *TabulaEngine) Name() string {
	return "tabula"
}

// positioned pairs an element with its vertical position for ordering.
type positioned struct {
	top  float64
	elem RawElement
}

// Process extracts tables and text for every page, in page order and
// top-to-bottom within a page.
func (e *TabulaEngine) Process(ctx context.Context, path, lang string) ([]RawElement, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer r.Close()

	pageCount, err := r.PageCount()
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}

	// Text layout comes from tabula's document model, built on the same reader.
	var doc *model.Document
	if e.opts.OCR {
		doc, _, err = tabula.FromReader(r).Document()
		if err != nil {
			return nil, fmt.Errorf("analyze layout: %w", err)
		}
	}

	var out []RawElement
	for i := 0; i < pageCount; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page, err := r.GetPage(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		width, _ := page.Width()
		height, _ := page.Height()

		fragments, err := r.ExtractTextFragments(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}

		mp := model.NewPage(width, height)
		mp.Number = i + 1
		for _, f := range fragments {
			mp.RawText = append(mp.RawText, model.TextFragment{
				Text:     f.Text,
				BBox:     model.BBox{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height},
				FontSize: f.FontSize,
				FontName: f.FontName,
			})
		}

		var pageTables []*model.Table
		if e.opts.Table {
			if e.useLines {
				lines, err := pageLines(page)
				if err != nil {
					e.logger.Warn().Err(err).Int("page", i+1).Msg("Ruling lines unavailable, using text alignment only")
				}
				mp.RawLines = append(mp.RawLines, lines...)
			}
			pageTables, err = e.detector.Detect(mp)
			if err != nil {
				return nil, fmt.Errorf("page %d: detect tables: %w", i+1, err)
			}
		}

		var items []positioned
		for _, t := range pageTables {
			bbox := topLeftBBox(t.BBox, height)
			items = append(items, positioned{
				top: topOf(bbox),
				elem: RawElement{
					Type: "table",
					BBox: marshalRes(bbox),
					Res:  marshalRes(renderTable(t, height)),
				},
			})
		}

		if e.opts.OCR {
			if doc != nil && i < len(doc.Pages) {
				items = append(items, e.textElements(doc.Pages[i], pageTables, height)...)
			}
			if len(fragments) == 0 && e.recognizer != nil {
				pt, err := e.recognizer.RecognizePage(ctx, path, i, lang)
				if err != nil {
					return nil, fmt.Errorf("page %d: ocr: %w", i+1, err)
				}
				if pt.Text != "" {
					items = append(items, positioned{
						top: 0,
						elem: RawElement{
							Type: "text",
							BBox: bboxJSON(0, 0, pt.Width, pt.Height),
							Res:  marshalRes(pt.Text),
						},
					})
				}
			}
		}

		sort.SliceStable(items, func(a, b int) bool { return items[a].top < items[b].top })
		for _, it := range items {
			out = append(out, it.elem)
		}
	}

	e.logger.Debug().Str("path", path).Int("pages", pageCount).Int("elements", len(out)).Msg("tabula extraction finished")

	return out, nil
}

// textElements converts headings, paragraphs and lists of one page, skipping
// regions already covered by a detected table.
func (e *TabulaEngine) textElements(page *model.Page, pageTables []*model.Table, height float64) []positioned {
	var items []positioned

	add := func(kind, text string, box model.BBox) {
		text = strings.TrimSpace(text)
		if text == "" || insideAnyTable(box, pageTables) {
			return
		}
		bbox := topLeftBBox(box, height)
		items = append(items, positioned{
			top:  topOf(bbox),
			elem: RawElement{Type: kind, BBox: marshalRes(bbox), Res: marshalRes(text)},
		})
	}

	for _, el := range page.Elements {
		switch v := el.(type) {
		case *model.Heading:
			add(e.regionType("title"), v.Text, v.BBox)
		case *model.Paragraph:
			add("text", v.Text, v.BBox)
		case *model.List:
			lines := make([]string, 0, len(v.Items))
			for _, item := range v.Items {
				lines = append(lines, strings.TrimSpace(item.Bullet+" "+item.Text))
			}
			add(e.regionType("list"), strings.Join(lines, "\n"), v.BBox)
		}
	}

	return items
}

// regionType collapses layout-specific kinds to "text" when layout analysis is off.
func (e *TabulaEngine) regionType(kind string) string {
	if e.opts.Layout {
		return kind
	}
	return "text"
}

// pageLines returns the stroked lines and rectangles drawn on a page.
func pageLines(page *pages.Page) ([]model.Line, error) {
	contents, err := page.Contents()
	if err != nil {
		return nil, fmt.Errorf("page contents: %w", err)
	}

	var data []byte
	for _, obj := range contents {
		stream, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		decoded, err := stream.Decode()
		if err != nil {
			return nil, fmt.Errorf("decode content stream: %w", err)
		}
		data = append(data, decoded...)
		data = append(data, '\n')
	}
	if len(data) == 0 {
		return nil, nil
	}

	ge := graphicsstate.NewGraphicsExtractor()
	if err := ge.ExtractFromBytes(data); err != nil {
		return nil, fmt.Errorf("extract graphics: %w", err)
	}
	return append(ge.ToModelLines(), ge.ToModelRectangles()...), nil
}

func insideAnyTable(box model.BBox, pageTables []*model.Table) bool {
	cx := box.X + box.Width/2
	cy := box.Y + box.Height/2
	for _, t := range pageTables {
		b := t.BBox
		if cx >= b.X && cx <= b.X+b.Width && cy >= b.Y && cy <= b.Y+b.Height {
			return true
		}
	}
	return false
}

func topOf(bbox []float64) float64 {
	if len(bbox) < 2 {
		return 0
	}
	return bbox[1]
}
