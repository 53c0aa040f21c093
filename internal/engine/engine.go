// Package engine wraps the table-extraction engine behind a small interface.
//
// The service never looks inside the engine. It hands over a staged PDF path
// and a language code and receives an ordered list of loosely typed layout
// elements. Three backends are available: a native Go detector (tabula), an
// external PP-Structure helper process (command) and a remote PP-Structure
// endpoint (remote).
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Engine processes a staged PDF into raw layout elements.
type Engine interface {
	// Name identifies the backend in logs and cache keys.
	Name() string
	// Process runs layout, OCR and table recognition over the file at path.
	// Element order is significant and is preserved by callers.
	Process(ctx context.Context, path, lang string) ([]RawElement, error)
}

// RawElement is one region reported by the engine. Every field is optional.
type RawElement struct {
	Type string          `json:"type,omitempty"`
	BBox json.RawMessage `json:"bbox,omitempty"`
	Res  json.RawMessage `json:"res,omitempty"`
}

// Options is the fixed configuration an engine is constructed with.
type Options struct {
	Lang    string
	UseGPU  bool
	Table   bool
	OCR     bool
	Layout  bool
	ShowLog bool
}

// DefaultOptions mirrors the PP-Structure setup the service was built around:
// CPU only, English, table and text recognition on, layout regions off.
func DefaultOptions() Options {
	return Options{
		Lang:    "en",
		UseGPU:  false,
		Table:   true,
		OCR:     true,
		Layout:  false,
		ShowLog: true,
	}
}

// ErrUnavailable marks every failure to construct an engine.
var ErrUnavailable = errors.New("engine unavailable")

// MissingDependencyError reports that a backend's runtime dependency is absent.
type MissingDependencyError struct {
	Dependency  string
	Remediation string
	Err         error
}

func (e *MissingDependencyError) Error() string {
	if e.Remediation != "" {
		return fmt.Sprintf("%s not installed. Please run: %s", e.Dependency, e.Remediation)
	}
	return fmt.Sprintf("%s not available: %v", e.Dependency, e.Err)
}

func (e *MissingDependencyError) Unwrap() error {
	return e.Err
}

// UnavailableError is returned by Provider.Get when construction fails.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	var missing *MissingDependencyError
	if errors.As(e.Err, &missing) {
		return missing.Error()
	}
	return fmt.Sprintf("Failed to initialize engine: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// marshalRes encodes a backend payload into a RawElement res field.
func marshalRes(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// bboxJSON encodes corner coordinates as a JSON number array.
func bboxJSON(x0, y0, x1, y1 float64) json.RawMessage {
	return marshalRes([]float64{x0, y0, x1, y1})
}
