package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type healthDoc struct {
	Status             string `json:"status"`
	Service            string `json:"service"`
	Version            string `json:"version"`
	Backend            string `json:"backend"`
	EngineAvailable    bool   `json:"engineAvailable"`
	PaddleOCRAvailable bool   `json:"paddleocr_available"`
}

func newHealthCmd() *cobra.Command {
	var (
		url     string
		timeout time.Duration
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check a running pp-structure-api server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			spin := ui.NewSpinner("Contacting " + url + "...")
			spin.Start()
			doc, err := fetchHealth(ctx, http.DefaultClient, url)
			spin.Stop()
			if err != nil {
				ui.Error("%v", err)
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			}

			ui.Table([]string{"Field", "Value"}, [][]string{
				{"Status", doc.Status},
				{"Service", doc.Service},
				{"Version", doc.Version},
				{"Backend", doc.Backend},
				{"Engine available", fmt.Sprintf("%t", doc.EngineAvailable)},
			})
			if !doc.EngineAvailable {
				ui.Warning("engine not constructed yet; the first extraction request will initialize it")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "server base URL (default: http://127.0.0.1:<server.port>)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw health document")

	return cmd
}

func fetchHealth(ctx context.Context, client *http.Client, baseURL string) (*healthDoc, error) {
	endpoint := strings.TrimRight(baseURL, "/") + "/health"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned HTTP %d", endpoint, resp.StatusCode)
	}

	var doc healthDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode health document: %w", err)
	}
	return &doc, nil
}
