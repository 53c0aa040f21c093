package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Salamony4all/Estem8-V1/internal/storage"
)

type jobLister interface {
	Recent(ctx context.Context, limit int) ([]*storage.Job, error)
}

func newJobsCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recent extraction jobs from the audit store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Storage.Driver == "" || cfg.Storage.Driver == "none" {
				return fmt.Errorf("job audit store is disabled (set storage.driver or DATABASE_URL)")
			}

			db, err := storage.Open(cfg.Storage)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := storage.Migrate(cmd.Context(), db); err != nil {
				return err
			}

			return listJobs(cmd.Context(), storage.NewJobRepository(db), cmd.OutOrStdout(), limit, asJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of jobs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")

	return cmd
}

func listJobs(ctx context.Context, repo jobLister, w io.Writer, limit int, asJSON bool) error {
	jobs, err := repo.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(jobs)
	}

	if len(jobs) == 0 {
		ui.Info("no jobs recorded")
		return nil
	}

	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, jobRow(j))
	}
	ui.Table([]string{"Created", "Status", "Backend", "Lang", "Elements", "Tables", "Cached", "Duration", "Error"}, rows)
	return nil
}

func jobRow(j *storage.Job) []string {
	return []string{
		j.CreatedAt.Local().Format(time.DateTime),
		j.Status,
		j.Backend,
		j.Lang,
		fmt.Sprintf("%d", j.TotalElements),
		fmt.Sprintf("%d", j.TotalTables),
		fmt.Sprintf("%t", j.CacheHit),
		FormatDuration(time.Duration(j.DurationMS) * time.Millisecond),
		j.Error,
	}
}
