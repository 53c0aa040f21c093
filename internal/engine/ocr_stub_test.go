//go:build !ocr

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsawler/tabula/tables"
)

func TestNewPageRecognizer_Disabled(t *testing.T) {
	rec, err := NewPageRecognizer(300)
	assert.ErrorIs(t, err, ErrOCRNotEnabled)
	assert.Nil(t, rec)
}

func TestNewTabulaEngine_OCRFallbackWithoutTag(t *testing.T) {
	eng, err := NewTabulaEngine(DefaultOptions(), TabulaSettings{
		Detector:    tables.DefaultConfig(),
		OCRFallback: true,
	}, nil)
	require.NoError(t, err)
	assert.Nil(t, eng.recognizer)
	assert.Equal(t, "tabula", eng.Name())
}
