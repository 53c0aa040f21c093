package extraction

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/Salamony4all/Estem8-V1/internal/observability"
)

// Stager writes request payloads to uniquely named temporary files.
type Stager struct {
	dir    string
	suffix string
	logger *observability.Logger
}

// NewStager creates a stager writing into dir (os.TempDir when empty) with
// the given file suffix.
func NewStager(dir, suffix string, logger *observability.Logger) *Stager {
	if suffix == "" {
		suffix = ".pdf"
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &Stager{dir: dir, suffix: suffix, logger: logger.WithComponent("stager")}
}

// Artifact is a staged file owned by exactly one request.
type Artifact struct {
	path   string
	logger *observability.Logger
	once   sync.Once
}

// Path returns the staged file location.
func (a *Artifact) Path() string {
	return a.path
}

// Stage writes data to a new file. On error nothing is left behind.
func (s *Stager) Stage(data []byte) (*Artifact, error) {
	f, err := os.CreateTemp(s.dir, "ppstructure-*"+s.suffix)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	s.logger.Info().Str("path", path).Int("bytes", len(data)).Msg("Saved PDF to temporary file")

	return &Artifact{path: path, logger: s.logger}, nil
}

// Release deletes the staged file. It is safe to call more than once.
// A file that is already gone is not an error; other failures are logged.
func (a *Artifact) Release() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		err := os.Remove(a.path)
		switch {
		case err == nil:
			a.logger.Info().Str("path", a.path).Msg("Cleaned up temporary file")
		case errors.Is(err, fs.ErrNotExist):
		default:
			a.logger.Warn().Err(err).Str("path", a.path).Msg("Failed to remove temporary file")
		}
	})
}
