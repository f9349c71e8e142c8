package convsession

import (
	"strings"
	"testing"

	"codexcore/internal/llmclient"
	"golang.org/x/time/rate"
)

func TestStatusCardIncludesModelProviderAndSession(t *testing.T) {
	s := &Session{endpoint: llmclient.Endpoint{Model: "gpt-test", Kind: "openai"}}
	card := s.StatusCard("sess-123")

	for _, want := range []string{"gpt-test", "openai", "sess-123", "Rate limit", "not configured"} {
		if !strings.Contains(card, want) {
			t.Fatalf("status card missing %q:\n%s", want, card)
		}
	}
	if !strings.HasPrefix(card, "╭") {
		t.Fatalf("status card should be border-wrapped: %s", card)
	}
}

func TestStatusCardShowsContextWindowOnceUsageRecorded(t *testing.T) {
	s := &Session{contextWindowTokens: 1000, endpoint: llmclient.Endpoint{Model: "m"}}
	s.accumulate(&llmclient.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150})

	card := s.StatusCard("sess-1")
	if !strings.Contains(card, "Context window") {
		t.Fatalf("expected a context window line once usage is non-zero:\n%s", card)
	}
	if !strings.Contains(card, "150 used / 1000") {
		t.Fatalf("expected usage numbers in context window line:\n%s", card)
	}
}

func TestFormatRateLimitLineRendersBarFromLimiterHeadroom(t *testing.T) {
	ep := llmclient.Endpoint{Limiter: rate.NewLimiter(rate.Limit(1), 10)}
	line := formatRateLimitLine(ep)
	if !strings.Contains(line, "[") || !strings.Contains(line, "]") {
		t.Fatalf("expected a bracketed bar, got %q", line)
	}
	if !strings.Contains(line, "0% used") {
		t.Fatalf("a fresh limiter at full burst should report 0%% used, got %q", line)
	}
}
