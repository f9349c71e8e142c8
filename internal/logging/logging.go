// Package logging provides the per-turn, per-session debug logger used by
// internal/convsession: a logrus logger distinct from
// internal/observability's zerolog pipeline, which carries the traced
// request/response spans. This one exists for human-readable session
// diagnostics (turn submitted, turn failed, session shut down) that an
// operator tails alongside a running exec/acp process.
package logging

import (
    "fmt"
    "os"
    "path/filepath"
    "runtime"
    "strings"
    "time"

    "github.com/sirupsen/logrus"
)

// Log is the session-lifecycle logger configured with JSON output.
//
// Its output never includes os.Stdout: the acp subcommand serves
// newline-delimited JSON-RPC on stdout, and exec streams turn output
// there too, so a stray log line would corrupt either protocol.
var Log = logrus.New()

type contextHook struct{}

func (contextHook) Levels() []logrus.Level { return logrus.AllLevels }

func packageFromFunc(fn string) string {
    if i := strings.LastIndex(fn, "/"); i >= 0 {
        fn = fn[i+1:]
    }
    if i := strings.Index(fn, "."); i >= 0 {
        return fn[:i]
    }
    return fn
}

func (contextHook) Fire(e *logrus.Entry) error {
    if e.Caller == nil {
        return nil
    }
    pkg := packageFromFunc(e.Caller.Function)
    file := fmt.Sprintf("%s:%d", filepath.Base(e.Caller.File), e.Caller.Line)
    e.Data["package"] = pkg
    e.Data["file"] = file
    return nil
}

// logPath resolves the session log file location: CODEX_LOG_PATH if set,
// otherwise codex.log under CODEX_LOG_DIR (or the working directory).
func logPath() string {
    if p := os.Getenv("CODEX_LOG_PATH"); p != "" {
        return p
    }
    dir := os.Getenv("CODEX_LOG_DIR")
    return filepath.Join(dir, "codex.log")
}

func init() {
    Log.SetReportCaller(true)
    Log.SetFormatter(&logrus.JSONFormatter{
        TimestampFormat: time.RFC3339Nano,
        CallerPrettyfier: func(f *runtime.Frame) (string, string) {
            function := filepath.Base(f.Function)
            file := fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
            return function, file
        },
    })
    Log.AddHook(contextHook{})
    Log.SetOutput(os.Stderr)

    path := logPath()
    if logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
        Log.SetOutput(logFile)
    }

    levelStr := os.Getenv("LOG_LEVEL")
    if levelStr == "" {
        levelStr = "info"
    }
    if lvl, err := logrus.ParseLevel(levelStr); err == nil {
        Log.SetLevel(lvl)
    } else {
        Log.SetLevel(logrus.InfoLevel)
    }
}

