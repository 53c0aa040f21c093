// Package main provides the PP-Structure CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Salamony4all/Estem8-V1/internal/config"
	"github.com/Salamony4all/Estem8-V1/internal/observability"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	noColor bool
	quiet   bool

	// Configuration and logger
	cfg    *config.Config
	logger *observability.Logger
	ui     *UI
)

var rootCmd = &cobra.Command{
	Use:   "pp-structure-cli",
	Short: "Extract tables from PDF documents",
	Long: `pp-structure-cli runs the PP-Structure table extraction pipeline locally
and talks to a running pp-structure-api server.

Use this tool to:
- Extract tables from one or more PDFs into JSON
- Check the health of a running server
- Inspect the extraction job audit log`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := "warn"
		if verbose {
			level = "debug"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      "console",
			Output:      os.Stderr,
			ServiceName: "pp-structure-cli",
		})
		ui = NewUI(noColor, quiet)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("CONFIG_PATH"), "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress status output")

	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newJobsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the service version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cfg.Observability.ServiceName, cfg.Observability.ServiceVersion)
		},
	}
}
