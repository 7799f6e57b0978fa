package observability

import (
	"io"
	"log/slog"
	"os"

	"github.com/techresidents/indexsvc/internal/config"
)

// SetupLogger builds the process-wide JSON logger. Every record carries
// the service name and environment so log lines from the API, the worker
// pool and the scheduler can be separated downstream. Development runs at
// debug level, everything else at info.
func SetupLogger(cfg config.Config) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With(
		slog.String("service", cfg.OTELServiceName),
		slog.String("env", cfg.AppEnv),
	)
}
