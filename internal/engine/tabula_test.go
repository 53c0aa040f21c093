package engine

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/tables"

	"github.com/Salamony4all/Estem8-V1/internal/observability"
	"github.com/Salamony4all/Estem8-V1/internal/testpdf"
)

func writePDF(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func newTestTabulaEngine(t *testing.T) *TabulaEngine {
	t.Helper()
	eng, err := NewTabulaEngine(DefaultOptions(), TabulaSettings{Detector: tables.DefaultConfig()}, observability.Nop())
	require.NoError(t, err)
	return eng
}

func TestTabulaEngine_Process(t *testing.T) {
	tests := []struct {
		name     string
		graphics string
	}{
		{"whitespace grid", ""},
		{"ruled grid", "0.5 w 98 556 112 58 re S 98 575 m 210 575 l S 98 595 m 210 595 l S\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writePDF(t, testpdf.Page(testpdf.GridWithHeading("Quarterly Report", 3, 3), tc.graphics))

			elements, err := newTestTabulaEngine(t).Process(context.Background(), path, "en")
			require.NoError(t, err)

			tableAt, headingAt := -1, -1
			var res tableRes
			for i, el := range elements {
				if el.Type == "table" {
					require.Equal(t, -1, tableAt, "only one table expected")
					tableAt = i
					require.NoError(t, json.Unmarshal(el.Res, &res))
					continue
				}

				var text string
				require.NoError(t, json.Unmarshal(el.Res, &text))
				assert.NotContains(t, text, "R2C2", "table text repeated as %s", el.Type)
				if strings.Contains(text, "Quarterly Report") && headingAt == -1 {
					headingAt = i
				}
			}

			require.NotEqual(t, -1, tableAt)
			assert.NotEmpty(t, res.HTML)
			assert.Contains(t, res.HTML, "R1C1")
			assert.Contains(t, res.HTML, "R3C3")

			require.NotEqual(t, -1, headingAt)
			assert.Less(t, headingAt, tableAt)
		})
	}
}

func TestTabulaEngine_ProcessWithoutTableRecognition(t *testing.T) {
	path := writePDF(t, testpdf.Page(testpdf.GridWithHeading("Quarterly Report", 3, 3), ""))

	opts := DefaultOptions()
	opts.Table = false
	eng, err := NewTabulaEngine(opts, TabulaSettings{Detector: tables.DefaultConfig()}, observability.Nop())
	require.NoError(t, err)

	elements, err := eng.Process(context.Background(), path, "en")
	require.NoError(t, err)
	require.NotEmpty(t, elements)
	for _, el := range elements {
		assert.NotEqual(t, "table", el.Type)
	}
}

func TestTabulaEngine_ProcessInvalidFile(t *testing.T) {
	path := writePDF(t, []byte("not a pdf"))

	_, err := newTestTabulaEngine(t).Process(context.Background(), path, "en")
	assert.ErrorContains(t, err, "open pdf")
}

func TestPageLines(t *testing.T) {
	tests := []struct {
		name     string
		graphics string
		wantAny  bool
	}{
		{"no graphics", "", false},
		{"stroked line and rectangle", "1 w 100 500 m 300 500 l S 100 400 200 50 re S\n", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writePDF(t, testpdf.Page([]testpdf.Text{{X: 72, Y: 720, Size: 12, Value: "Hello"}}, tc.graphics))

			r, err := reader.Open(path)
			require.NoError(t, err)
			defer r.Close()

			page, err := r.GetPage(0)
			require.NoError(t, err)

			lines, err := pageLines(page)
			require.NoError(t, err)

			if !tc.wantAny {
				assert.Empty(t, lines)
				return
			}

			require.NotEmpty(t, lines)
			var horizontal bool
			for _, l := range lines {
				if math.Abs(l.Start.Y-500) < 0.5 && math.Abs(l.End.Y-500) < 0.5 {
					horizontal = true
				}
			}
			assert.True(t, horizontal, "expected the stroked line at y=500")
		})
	}
}
