package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Salamony4all/Estem8-V1/internal/observability"
)

// Factory constructs an engine. It is called until it succeeds once.
type Factory func(ctx context.Context) (Engine, error)

// Provider lazily constructs an engine and keeps it for the life of the process.
//
// Construction is serialized by a mutex held only while the factory runs.
// Once an engine is stored, Get reads it without locking. A failed
// construction is not remembered, so the next call tries again.
type Provider struct {
	factory Factory
	logger  *observability.Logger

	mu      sync.Mutex
	current atomic.Pointer[holder]
}

type holder struct {
	engine Engine
}

// NewProvider creates a provider around factory.
func NewProvider(factory Factory, logger *observability.Logger) *Provider {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Provider{
		factory: factory,
		logger:  logger.WithComponent("engine_provider"),
	}
}

// Get returns the engine, constructing it on first use.
func (p *Provider) Get(ctx context.Context) (Engine, error) {
	if h := p.current.Load(); h != nil {
		return h.engine, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if h := p.current.Load(); h != nil {
		return h.engine, nil
	}

	p.logger.Info().Msg("Initializing PP-Structure engine")
	start := time.Now()

	eng, err := p.factory(ctx)
	if err != nil {
		uerr := &UnavailableError{Err: err}
		p.logger.Error().Err(err).Dur("duration", time.Since(start)).Msg(uerr.Error())
		return nil, uerr
	}

	p.current.Store(&holder{engine: eng})
	p.logger.Info().
		Str("backend", eng.Name()).
		Dur("duration", time.Since(start)).
		Msg("PP-Structure engine initialized successfully")

	return eng, nil
}

// Ready reports whether an engine has been constructed.
func (p *Provider) Ready() bool {
	return p.current.Load() != nil
}

// Warm makes one best-effort construction attempt. Failures are logged and dropped.
func (p *Provider) Warm(ctx context.Context) {
	if _, err := p.Get(ctx); err != nil {
		p.logger.Warn().Err(err).Msg("Could not pre-initialize engine; it will be initialized on first request")
		return
	}
	p.logger.Info().Msg("Service ready to accept requests")
}
