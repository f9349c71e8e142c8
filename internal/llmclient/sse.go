package llmclient

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"
)

// sseChunk is the provider wire shape of one streamed completion chunk.
type sseChunk struct {
	Choices []struct {
		Delta struct {
			Content   string          `json:"content"`
			Reasoning json.RawMessage `json:"reasoning"`
			ToolCalls []struct {
				Index    int `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		Message struct {
			Reasoning json.RawMessage `json:"reasoning"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *usageBlock `json:"usage"`
}

type usageBlock struct {
	PromptTokens        int `json:"prompt_tokens"`
	CompletionTokens    int `json:"completion_tokens"`
	TotalTokens         int `json:"total_tokens"`
	PromptTokensDetails *struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"prompt_tokens_details"`
	CompletionTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"completion_tokens_details"`
}

func parseReasoningField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Text    string `json:"text"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Text != "" {
			return obj.Text
		}
		return obj.Content
	}
	return ""
}

type pendingToolCall struct {
	id, name string
	args     strings.Builder
	active   bool
}

// SSEProcessor implements the streaming state machine: idle-timeout
// detection, per-chunk delta routing, <think> extraction, tool-call
// accumulation across events, and finish_reason-driven termination.
type SSEProcessor struct {
	enableThink bool
	idleTimeout time.Duration

	thinker      *thinkStripper
	assistantBuf strings.Builder
	reasoningBuf strings.Builder
	tool         pendingToolCall
	requestID    string
}

// NewSSEProcessor builds a processor. enableThink mirrors
// `provider_kind = Ollama AND reasoning_controls.postprocess_reasoning`.
func NewSSEProcessor(enableThink bool, idleTimeout time.Duration) *SSEProcessor {
	p := &SSEProcessor{enableThink: enableThink, idleTimeout: idleTimeout}
	if enableThink {
		p.thinker = &thinkStripper{}
	}
	return p
}

// Process reads an SSE body and calls emit for every normalized event. It
// returns when the stream terminates ([DONE], finish_reason, EOF, idle
// timeout, or a read error).
func (p *SSEProcessor) Process(ctx context.Context, body io.Reader, requestID string, emit func(ResponseEvent)) error {
	p.requestID = requestID
	lines := make(chan string)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		scanner := bufio.NewScanner(body)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 4*1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				readErr <- ctx.Err()
				return
			case <-stop:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	emit(ResponseEvent{Kind: EventCreated})

	timeout := p.idleTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timer.C:
			return &StreamError{Message: "idle timeout waiting for SSE", RequestID: requestID}

		case err, ok := <-readErr:
			if !ok {
				continue
			}
			if err != nil {
				return &ResponseStreamFailedError{Cause: err}
			}
			p.finish(emit)
			return nil

		case line, ok := <-lines:
			if !ok {
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(timeout)

			line = strings.TrimSpace(line)
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				p.finish(emit)
				return nil
			}

			var chunk sseChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			done := p.handleChunk(chunk, emit)
			if done {
				return nil
			}
		}
	}
}

// handleChunk applies one decoded chunk's delta/finish_reason, returning
// true when the stream should stop (a terminal finish_reason was observed).
func (p *SSEProcessor) handleChunk(chunk sseChunk, emit func(ResponseEvent)) bool {
	if len(chunk.Choices) == 0 {
		return false
	}
	choice := chunk.Choices[0]
	delta := choice.Delta

	if delta.Content != "" {
		if p.thinker != nil {
			out := p.thinker.Feed(delta.Content)
			if out.Visible != "" {
				p.assistantBuf.WriteString(out.Visible)
				emit(ResponseEvent{Kind: EventOutputTextDelta, Delta: out.Visible})
			}
			if out.Reasoning != "" {
				p.reasoningBuf.WriteString(out.Reasoning)
				emit(ResponseEvent{Kind: EventReasoningContentDelta, Delta: out.Reasoning})
			}
		} else {
			p.assistantBuf.WriteString(delta.Content)
			emit(ResponseEvent{Kind: EventOutputTextDelta, Delta: delta.Content})
		}
	}

	if r := parseReasoningField(delta.Reasoning); r != "" {
		p.reasoningBuf.WriteString(r)
		emit(ResponseEvent{Kind: EventReasoningContentDelta, Delta: r})
	}
	if r := parseReasoningField(choice.Message.Reasoning); r != "" {
		p.reasoningBuf.WriteString(r)
		emit(ResponseEvent{Kind: EventReasoningContentDelta, Delta: r})
	}

	if len(delta.ToolCalls) > 0 {
		tc := delta.ToolCalls[0]
		p.tool.active = true
		if tc.ID != "" {
			p.tool.id = tc.ID
		}
		if tc.Function.Name != "" {
			p.tool.name = tc.Function.Name
		}
		if tc.Function.Arguments != "" {
			p.tool.args.WriteString(tc.Function.Arguments)
		}
	}

	switch choice.FinishReason {
	case "tool_calls":
		if p.tool.active {
			p.flushReasoning(emit)
			emit(ResponseEvent{Kind: EventOutputItemDone, Item: ResponseItem{
				Kind: ItemFunctionCall, CallID: p.tool.id, Name: p.tool.name, Arguments: p.tool.args.String(),
			}})
		}
		emit(p.completedEvent(chunk.Usage))
		return true

	case "stop":
		p.flushAssistant(emit)
		p.flushReasoning(emit)
		emit(p.completedEvent(chunk.Usage))
		return true
	}
	return false
}

// finish handles [DONE]/EOF termination without an explicit finish_reason:
// flush think-parser state, then buffered message, then buffered reasoning,
// then a Completed with an empty response id standing in for "unknown".
func (p *SSEProcessor) finish(emit func(ResponseEvent)) {
	if p.thinker != nil {
		out := p.thinker.Finalize()
		if out.Visible != "" {
			p.assistantBuf.WriteString(out.Visible)
		}
		if out.Reasoning != "" {
			p.reasoningBuf.WriteString(out.Reasoning)
		}
	}
	p.flushAssistant(emit)
	p.flushReasoning(emit)
	emit(ResponseEvent{Kind: EventCompleted})
}

func (p *SSEProcessor) flushAssistant(emit func(ResponseEvent)) {
	if p.assistantBuf.Len() == 0 {
		return
	}
	text := p.assistantBuf.String()
	p.assistantBuf.Reset()
	emit(ResponseEvent{Kind: EventOutputItemDone, Item: TextOnlyMessage("assistant", "output_text", text)})
}

func (p *SSEProcessor) flushReasoning(emit func(ResponseEvent)) {
	if p.reasoningBuf.Len() == 0 {
		return
	}
	text := p.reasoningBuf.String()
	p.reasoningBuf.Reset()
	emit(ResponseEvent{Kind: EventOutputItemDone, Item: ResponseItem{Kind: ItemReasoning, ReasoningContent: []string{text}}})
}

func (p *SSEProcessor) completedEvent(usage *usageBlock) ResponseEvent {
	ev := ResponseEvent{Kind: EventCompleted, ResponseID: p.requestID}
	if usage == nil {
		return ev
	}
	tu := &TokenUsage{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	}
	if usage.PromptTokensDetails != nil {
		tu.CachedTokens = usage.PromptTokensDetails.CachedTokens
	}
	if usage.CompletionTokensDetails != nil {
		tu.ReasoningTokens = usage.CompletionTokensDetails.ReasoningTokens
	}
	if tu.TotalTokens == 0 {
		tu.TotalTokens = tu.PromptTokens + tu.CompletionTokens
	}
	ev.TokenUsage = tu
	return ev
}
