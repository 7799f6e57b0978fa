// Command jobscheduler inserts index jobs directly into the database. It
// covers the operational cases the API is awkward for: scheduling a nightly
// reindex over a span of days, or replaying a target from a YAML batch
// file.
//
// Each scheduled day becomes one job row whose not_before is the requested
// wall-clock time (UTC) on that day; the first job lands on the current
// day.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/techresidents/indexsvc/internal/adapter/repo/postgres"
	"github.com/techresidents/indexsvc/internal/config"
	"github.com/techresidents/indexsvc/internal/domain"
	"github.com/techresidents/indexsvc/internal/observability"
)

const (
	maxDays        = 90
	defaultContext = "index_job_scheduler"
)

type jobSpec struct {
	Index   string   `yaml:"index"`
	Type    string   `yaml:"type"`
	Keys    []string `yaml:"keys"`
	Days    int      `yaml:"days"`
	Time    string   `yaml:"time"`
	Context string   `yaml:"context"`
}

type batchFile struct {
	Jobs []jobSpec `yaml:"jobs"`
}

func main() {
	var (
		indexName = flag.String("index", "", "index name (required unless -batch)")
		docType   = flag.String("type", "", "document type (required unless -batch)")
		keys      = flag.String("keys", "", "comma separated document keys; empty means all keys")
		days      = flag.Int("days", 1, "number of days to schedule, max 90; first job runs today")
		timeStr   = flag.String("time", "00:00", "UTC time of day (HH:MM) each job becomes ready")
		jobCtx    = flag.String("context", defaultContext, "job context string")
		batch     = flag.String("batch", "", "YAML batch file of job specs")
		preview   = flag.Bool("preview", false, "print the schedule without inserting rows")
	)
	flag.Parse()

	specs, err := collectSpecs(*batch, jobSpec{
		Index:   *indexName,
		Type:    *docType,
		Keys:    splitKeys(*keys),
		Days:    *days,
		Time:    *timeStr,
		Context: *jobCtx,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, specs, *preview); err != nil {
		slog.Error("scheduling failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// collectSpecs merges the flag-driven spec with a batch file, validating
// and defaulting each entry.
func collectSpecs(batchPath string, flagSpec jobSpec) ([]jobSpec, error) {
	var specs []jobSpec
	if batchPath != "" {
		raw, err := os.ReadFile(batchPath)
		if err != nil {
			return nil, fmt.Errorf("read batch file: %w", err)
		}
		var bf batchFile
		if err := yaml.Unmarshal(raw, &bf); err != nil {
			return nil, fmt.Errorf("parse batch file: %w", err)
		}
		specs = bf.Jobs
	} else {
		specs = []jobSpec{flagSpec}
	}

	for i := range specs {
		if err := normalizeSpec(&specs[i]); err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
	}
	return specs, nil
}

func normalizeSpec(s *jobSpec) error {
	if s.Index == "" {
		return fmt.Errorf("index name is required")
	}
	if s.Type == "" {
		return fmt.Errorf("document type is required")
	}
	if s.Days == 0 {
		s.Days = 1
	}
	if s.Days < 1 || s.Days > maxDays {
		return fmt.Errorf("days must be between 1 and %d", maxDays)
	}
	if s.Time == "" {
		s.Time = "00:00"
	}
	if _, err := parseTimeOfDay(s.Time); err != nil {
		return err
	}
	if s.Context == "" {
		s.Context = defaultContext
	}
	return nil
}

func run(cfg config.Config, specs []jobSpec, preview bool) error {
	ctx := context.Background()

	var repo *postgres.JobRepo
	if !preview {
		pool, err := postgres.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()
		repo = postgres.NewJobRepo(pool)
	}

	for _, s := range specs {
		tod, err := parseTimeOfDay(s.Time)
		if err != nil {
			return err
		}
		data, err := domain.EncodeIndexOp(domain.IndexOp{
			Action: domain.ActionUpdate,
			Name:   s.Index,
			Type:   s.Type,
			Keys:   s.Keys,
		})
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		first := time.Date(now.Year(), now.Month(), now.Day(), tod.hour, tod.minute, 0, 0, time.UTC)
		for day := 0; day < s.Days; day++ {
			notBefore := first.AddDate(0, 0, day)
			if preview {
				fmt.Printf("index=%s type=%s keys=%v context=%s not_before=%s\n",
					s.Index, s.Type, s.Keys, s.Context, notBefore.Format(time.RFC3339))
				continue
			}
			job := domain.IndexJob{
				Context:          s.Context,
				Data:             data,
				NotBefore:        notBefore,
				RetriesRemaining: cfg.IndexerJobMaxRetryAttempts,
			}
			id, err := repo.Insert(ctx, job)
			if err != nil {
				return fmt.Errorf("insert job: %w", err)
			}
			observability.JobsEnqueuedTotal.WithLabelValues("scheduler").Inc()
			slog.Info("job scheduled",
				slog.String("job_id", id),
				slog.String("index", s.Index),
				slog.String("type", s.Type),
				slog.Time("not_before", notBefore))
		}
	}
	return nil
}

type timeOfDay struct{ hour, minute int }

func parseTimeOfDay(s string) (timeOfDay, error) {
	var tod timeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &tod.hour, &tod.minute); err != nil {
		return tod, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	if tod.hour < 0 || tod.hour > 23 || tod.minute < 0 || tod.minute > 59 {
		return tod, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return tod, nil
}

func splitKeys(s string) []string {
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
