// Package storage persists an audit record for every extraction call.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Salamony4all/Estem8-V1/internal/config"
)

// ErrNotFound is returned when a job does not exist.
var ErrNotFound = errors.New("record not found")

// Job statuses.
const (
	JobStatusSuccess = "success"
	JobStatusFailed  = "failed"
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Job is one extraction call.
type Job struct {
	ID            uuid.UUID `json:"id"`
	RequestID     string    `json:"request_id"`
	Backend       string    `json:"backend"`
	Lang          string    `json:"lang"`
	InputBytes    int64     `json:"input_bytes"`
	InputSHA256   string    `json:"input_sha256"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	TotalElements int       `json:"total_elements"`
	TotalTables   int       `json:"total_tables"`
	CacheHit      bool      `json:"cache_hit"`
	DurationMS    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS extraction_jobs (
	id             TEXT PRIMARY KEY,
	request_id     TEXT NOT NULL DEFAULT '',
	backend        TEXT NOT NULL,
	lang           TEXT NOT NULL,
	input_bytes    BIGINT NOT NULL,
	input_sha256   TEXT NOT NULL,
	status         TEXT NOT NULL,
	error          TEXT NOT NULL DEFAULT '',
	total_elements INTEGER NOT NULL DEFAULT 0,
	total_tables   INTEGER NOT NULL DEFAULT 0,
	cache_hit      BOOLEAN NOT NULL DEFAULT FALSE,
	duration_ms    BIGINT NOT NULL DEFAULT 0,
	created_at     TIMESTAMP NOT NULL
)`

// Open connects to the configured store. It returns nil, nil when storage is off.
func Open(cfg config.StorageConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil

	case "sqlite":
		if cfg.SQLite.Path != ":memory:" {
			if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("create sqlite dir: %w", err)
				}
			}
		}
		db, err := sql.Open("sqlite3", cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if cfg.SQLite.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.SQLite.MaxOpenConns)
		}
		return db, nil

	case "postgres":
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		return db, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Migrate creates the jobs table if needed.
func Migrate(ctx context.Context, db DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate extraction_jobs: %w", err)
	}
	return nil
}

// JobRepository handles extraction job records.
type JobRepository struct {
	db DB
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a job, assigning an id and timestamp when missing.
func (r *JobRepository) Create(ctx context.Context, job *Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO extraction_jobs (id, request_id, backend, lang, input_bytes, input_sha256,
			status, error, total_elements, total_tables, cache_hit, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID.String(), job.RequestID, job.Backend, job.Lang, job.InputBytes, job.InputSHA256,
		job.Status, job.Error, job.TotalElements, job.TotalTables, job.CacheHit, job.DurationMS, job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by ID.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*Job, error) {
	query := `
		SELECT id, request_id, backend, lang, input_bytes, input_sha256,
			status, error, total_elements, total_tables, cache_hit, duration_ms, created_at
		FROM extraction_jobs WHERE id = $1
	`
	job, err := scanJob(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return job, err
}

// Recent lists the newest jobs first.
func (r *JobRepository) Recent(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, request_id, backend, lang, input_bytes, input_sha256,
			status, error, total_elements, total_tables, cache_hit, duration_ms, created_at
		FROM extraction_jobs ORDER BY created_at DESC LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job Job
		id  string
	)
	err := row.Scan(
		&id, &job.RequestID, &job.Backend, &job.Lang, &job.InputBytes, &job.InputSHA256,
		&job.Status, &job.Error, &job.TotalElements, &job.TotalTables, &job.CacheHit, &job.DurationMS, &job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse job id: %w", err)
	}
	job.ID = parsed
	return &job, nil
}
