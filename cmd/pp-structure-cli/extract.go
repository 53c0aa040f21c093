package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Salamony4all/Estem8-V1/internal/app"
	"github.com/Salamony4all/Estem8-V1/internal/extraction"
)

type extractOptions struct {
	lang    string
	out     string
	backend string
	timeout time.Duration
	compact bool
}

type extractor interface {
	Extract(ctx context.Context, req extraction.Request) (*extraction.Response, error)
}

func newExtractCmd() *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract <pdf>...",
		Short: "Extract tables from PDF files",
		Long: `Run the extraction pipeline locally on one or more PDF files.

With a single file and no --out the JSON result is written to stdout.
With --out pointing at a directory, one <name>.json is written per input.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.lang, "lang", "l", "", "document language (default: engine.language)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file, or directory for several inputs")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "engine backend override (tabula, command, remote)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "overall timeout")
	cmd.Flags().BoolVar(&opts.compact, "compact", false, "write compact JSON")

	return cmd
}

func runExtract(cmd *cobra.Command, opts *extractOptions, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	if opts.backend != "" {
		cfg.Engine.Backend = opts.backend
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	lang := opts.lang
	if lang == "" {
		lang = cfg.Engine.Language
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	multi := len(args) > 1
	if multi && opts.out == "" {
		return fmt.Errorf("--out directory is required for several inputs")
	}
	if multi {
		if err := os.MkdirAll(opts.out, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	var bar *ProgressBar
	var spin *Spinner
	if multi {
		bar = ui.NewProgressBar(len(args), "Extracting")
	} else {
		spin = ui.NewSpinner(fmt.Sprintf("Extracting tables from %s...", filepath.Base(args[0])))
		spin.Start()
	}

	dests := outputPaths(args, opts.out, multi)

	var failed int
	for i, path := range args {
		start := time.Now()
		resp, err := extractFile(ctx, a.Service, path, lang)
		spin.Stop()
		bar.Add()
		if err != nil {
			failed++
			ui.Error("%s: %s", path, extraction.DetailFor(err))
			logger.Debug().Err(err).Str("file", path).Msg("Extraction failed")
			continue
		}

		dest := dests[i]
		if err := writeResult(cmd.OutOrStdout(), dest, resp, opts.compact); err != nil {
			failed++
			ui.Error("%s: %v", path, err)
			continue
		}

		ui.Success("%s: %d elements, %d tables in %s", path, resp.TotalElements, resp.TotalTables, FormatDuration(time.Since(start)))
	}
	bar.Finish()

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

// extractFile feeds a file through the same decode and stage path the API uses.
func extractFile(ctx context.Context, svc extractor, path, lang string) (*extraction.Response, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, extraction.Internal(fmt.Sprintf("read %s: %v", path, err), err)
	}
	return svc.Extract(ctx, extraction.Request{
		PDFData: base64.StdEncoding.EncodeToString(data),
		Lang:    lang,
	})
}

// outputPaths returns where each result goes. Empty means stdout. In batch
// mode inputs sharing a base name get -2, -3, ... suffixes in argument order.
func outputPaths(inputs []string, out string, multi bool) []string {
	dests := make([]string, len(inputs))
	if !multi {
		for i := range dests {
			dests[i] = out
		}
		return dests
	}

	taken := make(map[string]bool, len(inputs))
	for i, input := range inputs {
		base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		name := base + ".json"
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s-%d.json", base, n)
		}
		taken[name] = true
		dests[i] = filepath.Join(out, name)
	}
	return dests
}

func writeResult(stdout io.Writer, dest string, resp *extraction.Response, compact bool) error {
	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(resp)
	} else {
		data, err = json.MarshalIndent(resp, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	data = append(data, '\n')

	if dest == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}
