package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

func TestLoggerWithTraceAddsTraceAndSpanID(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	tid, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	sid, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: tid, SpanID: sid, TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	l := LoggerWithTrace(ctx)
	l.Info().Msg("retrying")

	out := buf.String()
	if !bytes.Contains([]byte(out), []byte(tid.String())) {
		t.Fatalf("log line missing trace_id: %s", out)
	}
	if !bytes.Contains([]byte(out), []byte(sid.String())) {
		t.Fatalf("log line missing span_id: %s", out)
	}
}

func TestLoggerWithTraceNilContextReturnsUsableLogger(t *testing.T) {
	l := LoggerWithTrace(nil)
	if l == nil {
		t.Fatal("expected a non-nil logger for a nil context")
	}
}
