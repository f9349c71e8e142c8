package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"codexcore/internal/observability"
	"codexcore/internal/settings"
)

// Endpoint describes where and how to reach a provider, resolved from
// settings by the caller (internal/provider) before a request is issued.
type Endpoint struct {
	BaseURL      string
	APIKey       string
	Model        string
	Kind         settings.ProviderKind
	ReasoningCtl settings.ReasoningControls
	MaxRetries   int
	IdleTimeout  time.Duration
	ExtraHeaders map[string]string

	// Limiter, if set, paces requests to this endpoint before each send
	// (including retries), so a provider's own rate limit is respected
	// instead of discovered through 429s.
	Limiter *rate.Limiter
}

// NewLimiter builds a token-bucket limiter pacing requests at
// requestsPerSecond with the given burst allowance.
func NewLimiter(requestsPerSecond float64, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// Client dispatches chat completions to a resolved Endpoint, normalizing the
// response into ResponseEvents.
type Client struct {
	HTTP *http.Client
}

// New builds a Client with an otel-instrumented HTTP transport.
func New(base *http.Client) *Client {
	return &Client{HTTP: observability.NewHTTPClient(base)}
}

type chatPayload struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Think    *bool         `json:"think,omitempty"`
	Thinking *thinkingBlock `json:"thinking,omitempty"`
}

type thinkingBlock struct {
	BudgetTokens *uint32  `json:"budget_tokens,omitempty"`
	BudgetWeight *float32 `json:"budget_weight,omitempty"`
}

type wireMessage struct {
	Role      string              `json:"role"`
	Content   string              `json:"content,omitempty"`
	ToolCallID string             `json:"tool_call_id,omitempty"`
	ToolCalls []wireToolCallJSON `json:"tool_calls,omitempty"`
}

type wireToolCallJSON struct {
	ID       string              `json:"id"`
	Type     string              `json:"type"`
	Function wireFunctionCallJSON `json:"function"`
}

type wireFunctionCallJSON struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func toWireMessages(msgs []ChatMessage) []wireMessage {
	out := make([]wireMessage, 0, len(msgs))
	for _, m := range msgs {
		wm := wireMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolID}
		for _, tc := range m.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, wireToolCallJSON{
				ID: tc.ID, Type: tc.Type,
				Function: wireFunctionCallJSON{Name: tc.Name, Arguments: tc.Arguments},
			})
		}
		out = append(out, wm)
	}
	return out
}

// Dispatch sends one chat-completion request and streams the normalized
// events to emit. It implements the retry/backoff and streaming-decision
// rules for choosing the streaming vs non-streaming wire path.
func (c *Client) Dispatch(ctx context.Context, ep Endpoint, msgs []ChatMessage, emit func(ResponseEvent)) error {
	streaming := SupportsStreaming(ep.BaseURL)
	override := ApplyReasoningOverride(ep.Kind, ep.ReasoningCtl)

	payload := chatPayload{Model: ep.Model, Messages: toWireMessages(msgs), Stream: streaming}
	if override.Think != nil {
		payload.Think = override.Think
	}
	if override.ThinkingBudgetTokens != nil || override.ThinkingBudgetWeight != nil {
		payload.Thinking = &thinkingBlock{BudgetTokens: override.ThinkingBudgetTokens, BudgetWeight: override.ThinkingBudgetWeight}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("llmclient: marshal payload: %w", err)
	}

	ctx, span := otel.Tracer("internal/llmclient").Start(ctx, "chat_completion")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", ep.Model), attribute.Bool("llm.streaming", streaming))

	policy := defaultBackoffPolicy()
	maxRetries := ep.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ep.Limiter != nil {
			if err := ep.Limiter.Wait(ctx); err != nil {
				return err
			}
		}
		resp, err := c.send(ctx, ep, body, streaming)
		if err != nil {
			lastErr = err
			if attempt == maxRetries {
				return &RetryLimitError{Attempts: attempt + 1, LastError: &ConnectionFailedError{Cause: err}}
			}
			select {
			case <-time.After(policy.delay(attempt, nil)):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < maxRetries {
				b, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				observability.LoggerWithTrace(ctx).Warn().Int("status", resp.StatusCode).Int("attempt", attempt).
					RawJSON("body", observability.RedactJSON(b)).Msg("llmclient_retrying")
				select {
				case <-time.After(policy.delay(attempt, resp)):
				case <-ctx.Done():
					return ctx.Err()
				}
				continue
			}
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if isRetryableStatus(resp.StatusCode) {
				return &RetryLimitError{Attempts: attempt + 1, LastError: &UnexpectedStatusError{
					Status: resp.StatusCode, Body: string(observability.RedactJSON(b)), RequestID: resp.Header.Get("x-request-id"),
				}}
			}
			return &UnexpectedStatusError{Status: resp.StatusCode, Body: string(observability.RedactJSON(b)), RequestID: resp.Header.Get("x-request-id")}
		}

		defer resp.Body.Close()
		rl := parseRateLimits(resp.Header)
		if rl != (RateLimitSnapshot{}) {
			emit(ResponseEvent{Kind: EventRateLimits, RateLimits: rl})
		}

		if !streaming {
			b, err := io.ReadAll(resp.Body)
			if err != nil {
				return &ResponseStreamFailedError{Cause: err}
			}
			enableThink := ep.Kind == settings.KindOllama && ep.ReasoningCtl.PostprocessReasoning
			return ParseNonStreaming(b, enableThink, emit)
		}

		enableThink := ep.Kind == settings.KindOllama && ep.ReasoningCtl.PostprocessReasoning
		proc := NewSSEProcessor(enableThink, ep.IdleTimeout)
		requestID := resp.Header.Get("x-request-id")
		return proc.Process(ctx, resp.Body, requestID, emit)
	}

	return &RetryLimitError{Attempts: maxRetries + 1, LastError: lastErr}
}

func (c *Client) send(ctx context.Context, ep Endpoint, body []byte, streaming bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if streaming {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if ep.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+ep.APIKey)
	}
	for k, v := range ep.ExtraHeaders {
		req.Header.Set(k, v)
	}
	return c.HTTP.Do(req)
}

func parseRateLimits(h http.Header) RateLimitSnapshot {
	var rl RateLimitSnapshot
	if v := h.Get("x-ratelimit-remaining-requests"); v != "" {
		fmt.Sscanf(v, "%d", &rl.RemainingRequests)
	}
	if v := h.Get("x-ratelimit-remaining-tokens"); v != "" {
		fmt.Sscanf(v, "%d", &rl.RemainingTokens)
	}
	rl.ResetRequests = h.Get("x-ratelimit-reset-requests")
	rl.ResetTokens = h.Get("x-ratelimit-reset-tokens")
	return rl
}
