package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	name     string
	elements []RawElement
	err      error
	calls    atomic.Int32
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Process(ctx context.Context, path, lang string) ([]RawElement, error) {
	f.calls.Add(1)
	return f.elements, f.err
}

func TestProvider_ConstructsOnce(t *testing.T) {
	var builds atomic.Int32
	eng := &fakeEngine{name: "fake"}
	p := NewProvider(func(ctx context.Context) (Engine, error) {
		builds.Add(1)
		return eng, nil
	}, nil)

	assert.False(t, p.Ready())

	first, err := p.Get(context.Background())
	require.NoError(t, err)
	second, err := p.Get(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), builds.Load())
	assert.True(t, p.Ready())
}

func TestProvider_FailureNotCached(t *testing.T) {
	var builds atomic.Int32
	eng := &fakeEngine{name: "fake"}
	p := NewProvider(func(ctx context.Context) (Engine, error) {
		if builds.Add(1) == 1 {
			return nil, errors.New("model download failed")
		}
		return eng, nil
	}, nil)

	_, err := p.Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "Failed to initialize engine: model download failed")
	assert.False(t, p.Ready())

	got, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, eng, got)
	assert.Equal(t, int32(2), builds.Load())
}

func TestProvider_MissingDependencyMessage(t *testing.T) {
	p := NewProvider(func(ctx context.Context) (Engine, error) {
		return nil, &MissingDependencyError{Dependency: "PaddleOCR", Remediation: "pip install paddleocr"}
	}, nil)

	_, err := p.Get(context.Background())
	require.Error(t, err)
	assert.Equal(t, "PaddleOCR not installed. Please run: pip install paddleocr", err.Error())

	var missing *MissingDependencyError
	assert.True(t, errors.As(err, &missing))
}

func TestProvider_ConcurrentFirstUse(t *testing.T) {
	var builds atomic.Int32
	p := NewProvider(func(ctx context.Context) (Engine, error) {
		builds.Add(1)
		return &fakeEngine{name: "fake"}, nil
	}, nil)

	const workers = 32
	results := make([]Engine, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			eng, err := p.Get(context.Background())
			assert.NoError(t, err)
			results[i] = eng
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	for _, eng := range results {
		assert.Same(t, results[0], eng)
	}
}

func TestProvider_WarmSwallowsFailure(t *testing.T) {
	p := NewProvider(func(ctx context.Context) (Engine, error) {
		return nil, errors.New("no runtime")
	}, nil)

	assert.NotPanics(t, func() { p.Warm(context.Background()) })
	assert.False(t, p.Ready())
}

func TestProvider_WarmSucceeds(t *testing.T) {
	p := NewProvider(func(ctx context.Context) (Engine, error) {
		return &fakeEngine{name: "fake"}, nil
	}, nil)

	p.Warm(context.Background())
	assert.True(t, p.Ready())
}
