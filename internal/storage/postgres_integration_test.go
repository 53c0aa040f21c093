//go:build integration

package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Salamony4all/Estem8-V1/internal/config"
)

func TestJobRepository_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("ppstructure_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate postgres container: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := Open(config.StorageConfig{
		Driver: "postgres",
		Postgres: config.PostgresConfig{
			DSN:          fmt.Sprintf("postgres://test:test@%s:%s/ppstructure_test?sslmode=disable", host, port.Port()),
			MaxOpenConns: 4,
			MaxIdleConns: 2,
		},
	})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.PingContext(ctx))
	require.NoError(t, Migrate(ctx, db))

	repo := NewJobRepository(db)
	job := &Job{Backend: "remote", Lang: "ch", InputSHA256: "deadbeef", Status: JobStatusSuccess, TotalElements: 2}
	require.NoError(t, repo.Create(ctx, job))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "remote", got.Backend)
	assert.Equal(t, 2, got.TotalElements)

	jobs, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}
