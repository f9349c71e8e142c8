package llmclient

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func sseBody(chunks ...string) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString("data: ")
		b.WriteString(c)
		b.WriteString("\n\n")
	}
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}

func TestSSEProcessorFunctionCallOverSSE(t *testing.T) {
	body := sseBody(
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"c1","function":{"name":"read_file","arguments":"{\"path\":"}}]}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"a.txt\"}"}}]}}]}`,
		`{"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
	)

	proc := NewSSEProcessor(false, 5*time.Second)
	var events []ResponseEvent
	err := proc.Process(context.Background(), strings.NewReader(body), "", func(ev ResponseEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}

	var gotCall *ResponseItem
	var gotCompleted bool
	for _, ev := range events {
		if ev.Kind == EventOutputItemDone && ev.Item.Kind == ItemFunctionCall {
			item := ev.Item
			gotCall = &item
		}
		if ev.Kind == EventCompleted {
			gotCompleted = true
		}
	}
	if gotCall == nil {
		t.Fatal("expected a FunctionCall OutputItemDone event")
	}
	if gotCall.Name != "read_file" || gotCall.CallID != "c1" || gotCall.Arguments != `{"path":"a.txt"}` {
		t.Fatalf("unexpected call: %+v", gotCall)
	}
	if !gotCompleted {
		t.Fatal("expected a terminal Completed event")
	}
}

func TestSSEProcessorIdleTimeout(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	proc := NewSSEProcessor(false, 30*time.Millisecond)
	err := proc.Process(context.Background(), pr, "", func(ResponseEvent) {})
	if err == nil {
		t.Fatal("expected idle timeout error")
	}
	if _, ok := err.(*StreamError); !ok {
		t.Fatalf("expected *StreamError, got %T: %v", err, err)
	}
}

func TestSSEProcessorStopFinishReason(t *testing.T) {
	body := sseBody(
		`{"choices":[{"delta":{"content":"hi "}}]}`,
		`{"choices":[{"delta":{"content":"there"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2}}`,
	)
	proc := NewSSEProcessor(false, 5*time.Second)
	var events []ResponseEvent
	err := proc.Process(context.Background(), strings.NewReader(body), "", func(ev ResponseEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	var terminalCount int
	var completedCount int
	for _, ev := range events {
		if ev.Kind == EventOutputItemDone && ev.Item.Kind == ItemMessage {
			terminalCount++
			if ev.Item.PlainText() != "hi there" {
				t.Fatalf("terminal message = %q", ev.Item.PlainText())
			}
		}
		if ev.Kind == EventCompleted {
			completedCount++
			if ev.TokenUsage == nil || ev.TokenUsage.TotalTokens != 5 {
				t.Fatalf("token usage = %+v", ev.TokenUsage)
			}
		}
	}
	if terminalCount != 1 {
		t.Fatalf("expected exactly one terminal message, got %d", terminalCount)
	}
	if completedCount != 1 {
		t.Fatalf("expected exactly one Completed, got %d", completedCount)
	}
}
