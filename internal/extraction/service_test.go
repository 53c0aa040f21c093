package extraction

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Salamony4all/Estem8-V1/internal/cache"
	"github.com/Salamony4all/Estem8-V1/internal/engine"
	"github.com/Salamony4all/Estem8-V1/internal/observability"
	"github.com/Salamony4all/Estem8-V1/internal/storage"
)

type fakeEngine struct {
	elements []engine.RawElement
	err      error
	panicMsg string

	mu        sync.Mutex
	calls     int
	seenPaths []string
	seenLangs []string
	existed   []bool
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Process(ctx context.Context, path, lang string) ([]engine.RawElement, error) {
	f.mu.Lock()
	f.calls++
	f.seenPaths = append(f.seenPaths, path)
	f.seenLangs = append(f.seenLangs, lang)
	_, statErr := os.Stat(path)
	f.existed = append(f.existed, statErr == nil)
	f.mu.Unlock()

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.elements, f.err
}

type fakeSource struct {
	eng engine.Engine
	err error
}

func (s *fakeSource) Get(ctx context.Context) (engine.Engine, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.eng, nil
}

func (s *fakeSource) Ready() bool { return s.err == nil }

type recorder struct {
	jobs []*storage.Job
}

func (r *recorder) Create(ctx context.Context, job *storage.Job) error {
	r.jobs = append(r.jobs, job)
	return nil
}

func newTestService(t *testing.T, src EngineSource, opts ...Option) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	return NewService(src, NewStager(dir, ".pdf", nil), observability.Nop(), opts...), dir
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged artifacts left behind")
}

func encoded(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestService_Success(t *testing.T) {
	eng := &fakeEngine{elements: []engine.RawElement{
		{Type: "text", Res: json.RawMessage(`"Header"`)},
		{Type: "table", BBox: json.RawMessage(`[1,2,3,4]`), Res: json.RawMessage(`{"html":"<table/>"}`)},
	}}
	rec := &recorder{}
	svc, dir := newTestService(t, &fakeSource{eng: eng}, WithJobRecorder(rec))

	ctx := observability.ContextWithRequestID(context.Background(), "req-7")
	resp, err := svc.Extract(ctx, Request{PDFData: encoded("%PDF-1.4"), Lang: "ch"})
	require.NoError(t, err)

	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 2, resp.TotalElements)
	assert.Equal(t, 1, resp.TotalTables)
	assert.Equal(t, "text", resp.Result[0].Type)
	assert.Equal(t, "table", resp.Result[1].Type)

	require.Len(t, eng.existed, 1)
	assert.True(t, eng.existed[0], "artifact must exist while the engine runs")
	assert.Equal(t, []string{"ch"}, eng.seenLangs)
	assertDirEmpty(t, dir)

	require.Len(t, rec.jobs, 1)
	job := rec.jobs[0]
	assert.Equal(t, storage.JobStatusSuccess, job.Status)
	assert.Equal(t, "req-7", job.RequestID)
	assert.Equal(t, "fake", job.Backend)
	assert.Equal(t, "ch", job.Lang)
	assert.Equal(t, int64(8), job.InputBytes)
	assert.Equal(t, 2, job.TotalElements)
	assert.Equal(t, 1, job.TotalTables)
	assert.False(t, job.CacheHit)
}

func TestService_DefaultLang(t *testing.T) {
	eng := &fakeEngine{}
	svc, _ := newTestService(t, &fakeSource{eng: eng})

	_, err := svc.Extract(context.Background(), Request{PDFData: encoded("x")})
	require.NoError(t, err)
	assert.Equal(t, []string{"en"}, eng.seenLangs)
}

func TestService_InvalidBase64(t *testing.T) {
	eng := &fakeEngine{}
	rec := &recorder{}
	svc, dir := newTestService(t, &fakeSource{eng: eng}, WithJobRecorder(rec))

	_, err := svc.Extract(context.Background(), Request{PDFData: "%%% not base64 %%%"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, StatusFor(err))
	assert.Equal(t, "Invalid base64 PDF data", DetailFor(err))

	assert.Equal(t, 0, eng.calls)
	assertDirEmpty(t, dir)

	require.Len(t, rec.jobs, 1)
	assert.Equal(t, storage.JobStatusFailed, rec.jobs[0].Status)
	assert.Equal(t, "Invalid base64 PDF data", rec.jobs[0].Error)
}

func TestService_EngineUnavailable(t *testing.T) {
	src := &fakeSource{err: &engine.UnavailableError{Err: &engine.MissingDependencyError{
		Dependency:  "PaddleOCR",
		Remediation: "pip install paddleocr",
	}}}
	svc, dir := newTestService(t, src)

	// engine is resolved before the payload is decoded
	_, err := svc.Extract(context.Background(), Request{PDFData: "garbage!"})
	require.Error(t, err)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, KindEngineUnavailable, e.Kind)
	assert.Equal(t, http.StatusInternalServerError, StatusFor(err))
	assert.Equal(t, "PaddleOCR not installed. Please run: pip install paddleocr", DetailFor(err))
	assert.ErrorIs(t, err, engine.ErrUnavailable)
	assertDirEmpty(t, dir)
	assert.False(t, svc.EngineReady())
}

func TestService_ExtractionFailureCleansUp(t *testing.T) {
	eng := &fakeEngine{err: errors.New("unsupported page size")}
	svc, dir := newTestService(t, &fakeSource{eng: eng})

	_, err := svc.Extract(context.Background(), Request{PDFData: encoded("%PDF")})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, StatusFor(err))
	assert.Equal(t, "Extraction failed: unsupported page size", DetailFor(err))

	require.Len(t, eng.existed, 1)
	assert.True(t, eng.existed[0])
	assertDirEmpty(t, dir)
}

func TestService_PanicStillCleansUpAndRecords(t *testing.T) {
	eng := &fakeEngine{panicMsg: "engine crashed"}
	rec := &recorder{}
	svc, dir := newTestService(t, &fakeSource{eng: eng}, WithJobRecorder(rec))

	assert.PanicsWithValue(t, "engine crashed", func() {
		_, _ = svc.Extract(context.Background(), Request{PDFData: encoded("%PDF")})
	})
	assertDirEmpty(t, dir)

	require.Len(t, rec.jobs, 1)
	assert.Equal(t, storage.JobStatusFailed, rec.jobs[0].Status)
	assert.Equal(t, "Internal server error", rec.jobs[0].Error)
	assert.Equal(t, "fake", rec.jobs[0].Backend)
}

func TestService_CacheHitSkipsEngine(t *testing.T) {
	eng := &fakeEngine{elements: []engine.RawElement{{Type: "table"}}}
	mem := cache.NewMemoryClient(1 << 20)
	defer mem.Close()
	rec := &recorder{}
	svc, dir := newTestService(t, &fakeSource{eng: eng}, WithCache(mem, time.Minute), WithJobRecorder(rec))

	req := Request{PDFData: encoded("%PDF same"), Lang: "en"}

	first, err := svc.Extract(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Extract(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, eng.calls)
	assert.Equal(t, first, second)
	assertDirEmpty(t, dir)

	require.Len(t, rec.jobs, 2)
	assert.False(t, rec.jobs[0].CacheHit)
	assert.True(t, rec.jobs[1].CacheHit)

	// different language is a different key
	_, err = svc.Extract(context.Background(), Request{PDFData: req.PDFData, Lang: "fr"})
	require.NoError(t, err)
	assert.Equal(t, 2, eng.calls)
}

func TestService_ConcurrentRequestsUseDistinctArtifacts(t *testing.T) {
	eng := &fakeEngine{}
	svc, dir := newTestService(t, &fakeSource{eng: eng})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Extract(context.Background(), Request{PDFData: encoded("%PDF")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, p := range eng.seenPaths {
		assert.False(t, seen[p])
		seen[p] = true
	}
	assertDirEmpty(t, dir)
}
