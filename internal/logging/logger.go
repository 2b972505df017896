package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/p-mongodb/mongo-manager/internal/model"
)

// New creates a structured zerolog.Logger tagged with the deployment
// directory and run id, falling back to info level on an unparseable
// LogLevel.
func New(opts *model.Options, runID string) zerolog.Logger {
	ctx := zerolog.New(os.Stdout).With().Timestamp()

	if opts != nil && opts.Dir != "" {
		ctx = ctx.Str("dir", opts.Dir)
	}
	if runID != "" {
		ctx = ctx.Str("run_id", runID)
	}

	logger := ctx.Logger()

	levelStr := "info"
	if opts != nil && opts.LogLevel != "" {
		levelStr = opts.LogLevel
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
