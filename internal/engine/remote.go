package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Salamony4all/Estem8-V1/internal/observability"
)

// RemoteSettings configures the remote backend.
type RemoteSettings struct {
	URL        string
	HealthPath string
	APIKey     string
	Timeout    time.Duration
	Retry      RetryConfig
}

// RemoteEngine forwards staged PDFs to a remote PP-Structure endpoint.
type RemoteEngine struct {
	opts       Options
	predictURL string
	healthURL  string
	apiKey     string
	client     *http.Client
	retry      RetryConfig
	logger     *observability.Logger
}

type remoteRequest struct {
	PDFData string `json:"pdf_data"`
	Lang    string `json:"lang"`
	UseGPU  bool   `json:"use_gpu"`
}

// NewRemoteEngine builds the client and checks the endpoint's health route.
func NewRemoteEngine(ctx context.Context, opts Options, settings RemoteSettings, client *http.Client, logger *observability.Logger) (*RemoteEngine, error) {
	if logger == nil {
		logger = observability.Nop()
	}
	if client == nil {
		client = &http.Client{Timeout: settings.Timeout}
	}

	u, err := url.Parse(settings.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid remote url %q", settings.URL)
	}
	health := *u
	health.Path = settings.HealthPath
	health.RawQuery = ""

	e := &RemoteEngine{
		opts:       opts,
		predictURL: u.String(),
		healthURL:  health.String(),
		apiKey:     settings.APIKey,
		client:     client,
		retry:      settings.Retry,
		logger:     logger.WithComponent("remote_engine"),
	}

	if settings.HealthPath != "" {
		if err := e.checkHealth(ctx); err != nil {
			return nil, &MissingDependencyError{Dependency: "remote PP-Structure endpoint", Err: err}
		}
	}

	return e, nil
}

// Name returns the backend name.
func (e *RemoteEngine) Name() string {
	return "remote"
}

func (e *RemoteEngine) checkHealth(ctx context.Context) error {
	resp, err := e.retryWithBackoff(ctx, shouldRetryHealthCheck, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.healthURL, nil)
		if err != nil {
			return nil, err
		}
		e.authorize(req)
		return e.client.Do(req)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Process uploads the staged file and decodes the remote result.
func (e *RemoteEngine) Process(ctx context.Context, path, lang string) ([]RawElement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read staged pdf: %w", err)
	}
	if lang == "" {
		lang = e.opts.Lang
	}

	body, err := json.Marshal(remoteRequest{
		PDFData: base64.StdEncoding.EncodeToString(data),
		Lang:    lang,
		UseGPU:  e.opts.UseGPU,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	reqID := uuid.New().String()
	start := time.Now()
	e.logger.Info().
		Str("req_id", reqID).
		Str("url", e.predictURL).
		Int("content_length", len(body)).
		Msg("remote.request")

	resp, err := e.retryWithBackoff(ctx, shouldRetryPredict, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.predictURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-ID", reqID)
		e.authorize(req)
		return e.client.Do(req)
	})
	if err != nil {
		e.logger.Error().Str("req_id", reqID).Err(err).Dur("elapsed", time.Since(start)).Msg("remote.send_error")
		return nil, fmt.Errorf("remote engine: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read remote response: %w", err)
	}

	e.logger.Info().
		Str("req_id", reqID).
		Int("status", resp.StatusCode).
		Int("bytes", len(raw)).
		Dur("elapsed", time.Since(start)).
		Msg("remote.response")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote engine returned HTTP %d: %s", resp.StatusCode, remoteDetail(raw))
	}

	return decodeElements(raw)
}

func (e *RemoteEngine) authorize(req *http.Request) {
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
}

// remoteDetail pulls a human readable message out of an error body.
func remoteDetail(raw []byte) string {
	var body struct {
		Detail  interface{} `json:"detail"`
		Message string      `json:"message"`
		Error   string      `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.Detail != nil:
			if s, ok := body.Detail.(string); ok {
				return s
			}
		case body.Message != "":
			return body.Message
		case body.Error != "":
			return body.Error
		}
	}
	return truncate(string(bytes.TrimSpace(raw)), 512)
}
