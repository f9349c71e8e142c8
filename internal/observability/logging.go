package observability

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes zerolog with sane defaults. If logPath is non-empty,
// logs are written to that file (append mode) instead of stderr; if opening
// it fails, an error is printed to stderr and logging continues there.
//
// The default sink is os.Stderr, not os.Stdout: the acp subcommand serves
// newline-delimited JSON-RPC on stdout and exec streams turn text there
// too, so zerolog output must never share that stream. If otelWriter is
// non-nil (OTLP export is configured), log lines fan out to it as well, so
// a collector sees the same events a local log file would.
func InitLogger(logPath string, level string, otelWriter io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	writers := []io.Writer{os.Stderr}
	if logPath != "" {
		if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			writers = []io.Writer{f}
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "failed to open log file %q: %v\n", logPath, err)
		}
	}
	if otelWriter != nil {
		writers = append(writers, otelWriter)
	}
	var w io.Writer = writers[0]
	if len(writers) > 1 {
		w = io.MultiWriter(writers...)
	}
	log.Logger = log.Output(w).With().Timestamp().Logger()

	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	lvl := zerolog.InfoLevel
	if level != "" {
		if l, err := zerolog.ParseLevel(level); err == nil {
			lvl = l
		}
	}
	zerolog.SetGlobalLevel(lvl)
	// Redirect the standard library logger so ALL logs are captured.
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}
