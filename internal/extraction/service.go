package extraction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/Salamony4all/Estem8-V1/internal/cache"
	"github.com/Salamony4all/Estem8-V1/internal/engine"
	"github.com/Salamony4all/Estem8-V1/internal/observability"
	"github.com/Salamony4all/Estem8-V1/internal/storage"
)

// DefaultLang is used when a request names no language.
const DefaultLang = "en"

// EngineSource hands out the process-wide engine. *engine.Provider implements it.
type EngineSource interface {
	Get(ctx context.Context) (engine.Engine, error)
	Ready() bool
}

// JobRecorder stores one audit record per call. *storage.JobRepository implements it.
type JobRecorder interface {
	Create(ctx context.Context, job *storage.Job) error
}

// Request is one extraction call.
type Request struct {
	PDFData string
	Lang    string
}

// Service runs the decode, stage, process and normalize pipeline.
type Service struct {
	engines  EngineSource
	stager   *Stager
	cache    cache.Client
	cacheTTL time.Duration
	jobs     JobRecorder
	logger   *observability.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache memoizes engine output for identical documents.
func WithCache(c cache.Client, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithJobRecorder persists an audit record for every call.
func WithJobRecorder(r JobRecorder) Option {
	return func(s *Service) {
		s.jobs = r
	}
}

// NewService creates a Service.
func NewService(engines EngineSource, stager *Stager, logger *observability.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = observability.Nop()
	}
	s := &Service{
		engines: engines,
		stager:  stager,
		logger:  logger.WithComponent("extraction"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EngineReady reports whether the engine has been constructed.
func (s *Service) EngineReady() bool {
	return s.engines.Ready()
}

// Extract runs one request through the engine. Returned errors are *Error.
// A job record is written for every call, including one that panics.
func (s *Service) Extract(ctx context.Context, req Request) (resp *Response, err error) {
	start := time.Now()
	logger := s.logger.WithContext(ctx)

	lang := req.Lang
	if lang == "" {
		lang = DefaultLang
	}
	logger.Info().Str("lang", lang).Msg("Received extraction request")

	job := &storage.Job{
		RequestID: observability.RequestIDFromContext(ctx),
		Lang:      lang,
		Status:    storage.JobStatusFailed,
	}

	completed := false
	defer func() {
		job.DurationMS = time.Since(start).Milliseconds()
		switch {
		case !completed:
			job.Error = panicDetail
		case err != nil:
			job.Error = DetailFor(err)
		default:
			job.Status = storage.JobStatusSuccess
			job.TotalElements = resp.TotalElements
			job.TotalTables = resp.TotalTables
		}
		s.record(ctx, logger, job)
	}()

	resp, err = s.extract(ctx, logger, req.PDFData, lang, job)
	completed = true
	return resp, err
}

func (s *Service) extract(ctx context.Context, logger *observability.Logger, payload, lang string, job *storage.Job) (*Response, error) {
	eng, err := s.engines.Get(ctx)
	if err != nil {
		return nil, EngineUnavailable(err)
	}
	job.Backend = eng.Name()

	pdf, err := DecodePayload(payload)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to decode PDF data")
		return nil, err
	}
	logger.Info().Int("bytes", len(pdf)).Msg("Decoded PDF data")

	sum := sha256.Sum256(pdf)
	job.InputBytes = int64(len(pdf))
	job.InputSHA256 = hex.EncodeToString(sum[:])

	key := cache.ResultKey(eng.Name(), lang, pdf)
	if raw, ok := s.cached(ctx, logger, key); ok {
		job.CacheHit = true
		resp := Normalize(raw)
		logger.Info().Int("elements", resp.TotalElements).Msg("Served extraction from cache")
		return &resp, nil
	}

	artifact, err := s.stager.Stage(pdf)
	if err != nil {
		return nil, Internal("Failed to stage PDF", err)
	}
	defer artifact.Release()

	logger.Info().Str("backend", eng.Name()).Msg("Processing PDF with PP-Structure V3")
	raw, err := eng.Process(ctx, artifact.Path(), lang)
	if err != nil {
		logger.Error().Err(err).Msg("Extraction failed")
		return nil, ExtractionFailed(err)
	}
	logger.Info().Int("elements", len(raw)).Msg("Processing complete")

	resp := Normalize(raw)
	for idx, el := range resp.Result {
		if el.Type == TypeTable {
			logger.Debug().Int("index", idx+1).Msg("Extracted table")
		}
	}

	s.store(ctx, logger, key, raw)

	return &resp, nil
}

func (s *Service) cached(ctx context.Context, logger *observability.Logger, key string) ([]engine.RawElement, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn().Err(err).Msg("Result cache lookup failed")
		}
		return nil, false
	}
	var raw []engine.RawElement
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn().Err(err).Msg("Discarding unreadable cache entry")
		return nil, false
	}
	return raw, true
}

func (s *Service) store(ctx context.Context, logger *observability.Logger, key string, raw []engine.RawElement) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		logger.Warn().Err(err).Msg("Result cache write failed")
	}
}

func (s *Service) record(ctx context.Context, logger *observability.Logger, job *storage.Job) {
	if s.jobs == nil {
		return
	}
	// Written even when the request was cancelled.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.jobs.Create(recCtx, job); err != nil {
		logger.Warn().Err(err).Msg("Failed to record extraction job")
		return
	}
	logger.Debug().Str("job_id", job.ID.String()).Str("status", job.Status).Msg("Recorded extraction job")
}
