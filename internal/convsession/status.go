package convsession

import (
	"fmt"
	"strings"

	"codexcore/internal/llmclient"
)

const (
	rateLimitBarSegments = 20
	rateLimitBarFilled   = "█"
	rateLimitBarEmpty    = "░"
	statusLabelWidth     = 14
)

// StatusCard renders the session's current model, provider, token-usage, and
// rate-limit state as a bordered text block, the same fields an operator
// tailing /status would expect to see surfaced before sending another turn.
func (s *Session) StatusCard(sessionID string) string {
	s.mu.Lock()
	ep := s.endpoint
	usage := s.usage
	s.mu.Unlock()

	lines := []string{
		formatStatusField("Model", ep.Model),
		formatStatusField("Provider", string(ep.Kind)),
		formatStatusField("Session", sessionID),
		formatStatusField("Token usage", formatTokenUsage(usage)),
	}
	if usage.ContextWindowTokens > 0 {
		lines = append(lines, formatStatusField("Context window", formatContextWindow(usage)))
	}
	lines = append(lines, formatRateLimitLine(ep))

	return wrapStatusBorder(lines)
}

func formatTokenUsage(u UsageInfo) string {
	return fmt.Sprintf("%d total (%d prompt + %d completion)", u.TotalTokens, u.TotalPromptTokens, u.TotalCompletionTokens)
}

func formatContextWindow(u UsageInfo) string {
	return fmt.Sprintf("%.0f%% left (%d used / %d)", u.PercentOfContextWindowLeft, u.TotalTokens, u.ContextWindowTokens)
}

// formatRateLimitLine renders the endpoint's request-pacing budget as a
// filled/empty segment bar, mirroring a provider-side rate-limit window
// display without requiring a provider response header to have arrived yet:
// it reports the local token-bucket limiter's own remaining headroom rather
// than a value read off the provider's response.
func formatRateLimitLine(ep llmclient.Endpoint) string {
	if ep.Limiter == nil {
		return formatStatusField("Rate limit", "not configured")
	}
	burst := ep.Limiter.Burst()
	if burst <= 0 {
		return formatStatusField("Rate limit", "not configured")
	}
	available := ep.Limiter.Tokens()
	if available > float64(burst) {
		available = float64(burst)
	}
	if available < 0 {
		available = 0
	}
	percentUsed := 100 * (1 - available/float64(burst))
	bar := renderRateLimitBar(percentUsed)
	return formatStatusField("Rate limit", fmt.Sprintf("%s %.0f%% used", bar, percentUsed))
}

func wrapStatusBorder(lines []string) string {
	inner := 0
	for _, l := range lines {
		if n := len([]rune(l)); n > inner {
			inner = n
		}
	}
	horizontal := strings.Repeat("─", inner+2)
	var b strings.Builder
	fmt.Fprintf(&b, "╭%s╮\n", horizontal)
	for _, l := range lines {
		pad := inner - len([]rune(l))
		fmt.Fprintf(&b, "│ %s%s │\n", l, strings.Repeat(" ", pad))
	}
	fmt.Fprintf(&b, "╰%s╯", horizontal)
	return b.String()
}

func formatStatusField(label, value string) string {
	if value == "" {
		value = "<none>"
	}
	return fmt.Sprintf("%-*s%s", statusLabelWidth, label+":", value)
}

func renderRateLimitBar(percentUsed float64) string {
	ratio := percentUsed / 100
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio*rateLimitBarSegments + 0.5)
	if filled > rateLimitBarSegments {
		filled = rateLimitBarSegments
	}
	empty := rateLimitBarSegments - filled
	return "[" + strings.Repeat(rateLimitBarFilled, filled) + strings.Repeat(rateLimitBarEmpty, empty) + "]"
}
