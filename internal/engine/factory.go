package engine

import (
	"context"
	"fmt"

	"github.com/tsawler/tabula/tables"

	"github.com/Salamony4all/Estem8-V1/internal/config"
	"github.com/Salamony4all/Estem8-V1/internal/observability"
)

// OptionsFromConfig builds the fixed construction options.
func OptionsFromConfig(cfg config.EngineConfig) Options {
	return Options{
		Lang:    cfg.Language,
		UseGPU:  cfg.UseGPU,
		Table:   cfg.Table,
		OCR:     cfg.OCR,
		Layout:  cfg.Layout,
		ShowLog: cfg.ShowLog,
	}
}

// NewFactory returns a Factory for the configured backend.
func NewFactory(cfg config.EngineConfig, logger *observability.Logger) Factory {
	opts := OptionsFromConfig(cfg)

	return func(ctx context.Context) (Engine, error) {
		switch cfg.Backend {
		case "tabula":
			eng, err := NewTabulaEngine(opts, TabulaSettings{
				Detector: tables.Config{
					MinRows:            cfg.Tabula.MinRows,
					MinCols:            cfg.Tabula.MinCols,
					MinConfidence:      cfg.Tabula.MinConfidence,
					UseLines:           cfg.Tabula.UseLines,
					UseWhitespace:      cfg.Tabula.UseWhitespace,
					MaxCellGap:         cfg.Tabula.MaxCellGap,
					AlignmentTolerance: cfg.Tabula.AlignmentTolerance,
					DetectMergedCells:  cfg.Tabula.DetectMergedCells,
				},
				OCRFallback: cfg.Tabula.OCRFallback,
				OCRDPI:      cfg.Tabula.OCRDPI,
			}, logger)
			if err != nil {
				return nil, err
			}
			return eng, nil

		case "command":
			eng, err := NewCommandEngine(ctx, opts, CommandSettings{
				Path:    cfg.Command.Path,
				Args:    cfg.Command.Args,
				Timeout: cfg.Command.Timeout,
			}, ExecRunner{Logger: logger}, logger)
			if err != nil {
				return nil, err
			}
			return eng, nil

		case "remote":
			eng, err := NewRemoteEngine(ctx, opts, RemoteSettings{
				URL:        cfg.Remote.URL,
				HealthPath: cfg.Remote.HealthPath,
				APIKey:     cfg.Remote.APIKey,
				Timeout:    cfg.Remote.Timeout,
				Retry: RetryConfig{
					MaxRetries:     cfg.Remote.MaxRetries,
					InitialBackoff: cfg.Remote.RetryBackoff,
					MaxBackoff:     DefaultRetryConfig().MaxBackoff,
				},
			}, nil, logger)
			if err != nil {
				return nil, err
			}
			return eng, nil

		default:
			return nil, fmt.Errorf("unknown engine backend %q", cfg.Backend)
		}
	}
}
