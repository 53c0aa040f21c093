package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Salamony4all/Estem8-V1/internal/observability"
)

// CommandSettings configures the helper-process backend.
type CommandSettings struct {
	Path    string
	Args    []string
	Timeout time.Duration
}

// CommandEngine drives a PP-Structure helper process that prints a JSON
// array of layout elements on stdout.
type CommandEngine struct {
	opts     Options
	settings CommandSettings
	runner   Runner
	logger   *observability.Logger
}

// NewCommandEngine resolves the helper binary and checks that PaddleOCR can be
// imported by it. Either failure is reported as a missing dependency.
func NewCommandEngine(ctx context.Context, opts Options, settings CommandSettings, runner Runner, logger *observability.Logger) (*CommandEngine, error) {
	if logger == nil {
		logger = observability.Nop()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}

	resolved, err := runner.LookPath(settings.Path)
	if err != nil {
		return nil, &MissingDependencyError{
			Dependency:  "PaddleOCR",
			Remediation: "pip install paddleocr",
			Err:         fmt.Errorf("helper %q not found: %w", settings.Path, err),
		}
	}
	settings.Path = resolved

	e := &CommandEngine{
		opts:     opts,
		settings: settings,
		runner:   runner,
		logger:   logger.WithComponent("command_engine"),
	}

	checkArgs := append(append([]string{}, settings.Args...), "--check")
	if _, stderr, err := runner.Run(ctx, settings.Path, checkArgs...); err != nil {
		return nil, &MissingDependencyError{
			Dependency:  "PaddleOCR",
			Remediation: "pip install paddleocr",
			Err:         fmt.Errorf("%w: %s", err, lastLine(stderr)),
		}
	}

	return e, nil
}

// Name returns the backend name.
func (e *CommandEngine) Name() string {
	return "command"
}

// Process runs the helper on path and decodes its stdout.
func (e *CommandEngine) Process(ctx context.Context, path, lang string) ([]RawElement, error) {
	if e.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.settings.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, e.settings.Args...), e.flags(lang)...)
	args = append(args, path)

	stdout, stderr, err := e.runner.Run(ctx, e.settings.Path, args...)
	if err != nil {
		if msg := lastLine(stderr); msg != "" {
			return nil, fmt.Errorf("pp-structure helper: %s", msg)
		}
		return nil, fmt.Errorf("pp-structure helper: %w", err)
	}

	return decodeElements(stdout)
}

func (e *CommandEngine) flags(lang string) []string {
	if lang == "" {
		lang = e.opts.Lang
	}
	return []string{
		"--lang", lang,
		"--use-gpu", strconv.FormatBool(e.opts.UseGPU),
		"--table", strconv.FormatBool(e.opts.Table),
		"--ocr", strconv.FormatBool(e.opts.OCR),
		"--layout", strconv.FormatBool(e.opts.Layout),
		"--show-log", strconv.FormatBool(e.opts.ShowLog),
	}
}

// decodeElements accepts a bare JSON array or an object wrapping it in
// "result" or "data".
func decodeElements(data []byte) ([]RawElement, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []RawElement{}, nil
	}

	if data[0] == '[' {
		var elems []RawElement
		if err := json.Unmarshal(data, &elems); err != nil {
			return nil, fmt.Errorf("decode engine output: %w", err)
		}
		return elems, nil
	}

	var wrapped struct {
		Result []RawElement `json:"result"`
		Data   []RawElement `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode engine output: %w", err)
	}
	if wrapped.Result != nil {
		return wrapped.Result, nil
	}
	if wrapped.Data != nil {
		return wrapped.Data, nil
	}
	return []RawElement{}, nil
}

func lastLine(b []byte) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
