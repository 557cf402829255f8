// Package logging provides structured logging for the intake handler, worker,
// and URL issuer processes.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog for a single component (intake, worker, urlissuer).
type Logger struct {
	zlog   zerolog.Logger
	output io.Writer
}

// New creates a component logger writing to stderr, tagged with component.
func New(component string) *Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}

	zlog := zerolog.New(output).
		With().
		Timestamp().
		Str("component", component).
		Logger()

	return &Logger{zlog: zlog, output: output}
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event { return l.zlog.Info() }

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event { return l.zlog.Warn() }

// Fatal returns a fatal level event.
func (l *Logger) Fatal() *zerolog.Event { return l.zlog.Fatal() }

// With creates a child logger builder with additional context.
func (l *Logger) With() zerolog.Context { return l.zlog.With() }

// WithJob returns a child logger tagged with a job tag for the duration of
// one job's processing.
func (l *Logger) WithJob(jobTag string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("job_tag", jobTag).Logger(), output: l.output}
}

// SetLevelFromEnv maps spec.md's numeric LOG_LEVEL environment variable onto
// zerolog's level scale: 0=debug, 1=info, 2=warn, 3=error, matching the
// coarse numeric scheme the original job_control.py's LOG_LEVEL env var used.
func SetLevelFromEnv(raw string) {
	switch raw {
	case "0":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "2":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "3":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	})
}
