// Logging helpers shared by all commands. Every command supports --verbose
// (-v) for debug output; the logger travels through the command context so
// helpers that only receive a context.Context can still log.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowkeeper/pkg/errors"
)

// newLogger creates a logger writing to w with short "15:04:05.00"
// timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// resolveLevel picks the log level: --verbose wins, then the configured
// level, then info. An unknown configured level is a config error.
func resolveLevel(verbose bool, configured string) (log.Level, error) {
	if verbose {
		return log.DebugLevel, nil
	}
	if configured == "" {
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(configured)
	if err != nil {
		return log.InfoLevel, errors.Wrap(errors.ErrCodeConfig, err, "log level %q", configured)
	}
	return level, nil
}

// projectLogger tags every line with the project being edited.
func projectLogger(l *log.Logger, project string) *log.Logger {
	return l.With("project", project)
}

// progress logs the completion of a step with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time and optional key/value pairs, e.g.
// "Migrated legacy.json took=12ms graphs=1".
func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append([]any{"took", time.Since(p.start).Round(time.Millisecond)}, keyvals...)
	p.logger.Info(msg, keyvals...)
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches l to ctx.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached to ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
