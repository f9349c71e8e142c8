package convsession

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codexcore/internal/llmclient"
)

func sseServer(t *testing.T, chunks ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
}

func testEndpoint(baseURL string) llmclient.Endpoint {
	return llmclient.Endpoint{BaseURL: baseURL, Model: "test-model", MaxRetries: 1, IdleTimeout: 2 * time.Second}
}

func drainUntilComplete(t *testing.T, s *Session, id string, timeout time.Duration) []Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	var out []Event
	for {
		ev, ok := s.NextEvent(ctx)
		if !ok {
			t.Fatal("session closed before turn completed")
		}
		if ev.ID != id {
			continue
		}
		out = append(out, ev)
		switch ev.Msg.Kind {
		case MsgTaskComplete, MsgTurnAborted, MsgError:
			return out
		}
	}
}

func TestSessionRunsTurnToCompletion(t *testing.T) {
	srv := sseServer(t, `{"choices":[{"delta":{"content":"hi"}}]}`, `{"choices":[{"delta":{},"finish_reason":"stop"}]}`)
	defer srv.Close()

	client := llmclient.New(nil)
	s := NewSession(client, testEndpoint(srv.URL), "be helpful", "", 8000, nil)

	id := s.Submit(Op{Kind: OpUserTurn, Items: []llmclient.ResponseItem{
		llmclient.TextOnlyMessage("user", "input_text", "hello"),
	}})

	events := drainUntilComplete(t, s, id, 5*time.Second)
	last := events[len(events)-1]
	if last.Msg.Kind != MsgTaskComplete {
		t.Fatalf("last event kind = %v, want TaskComplete", last.Msg.Kind)
	}
	if last.Msg.LastAgentMessage == nil || *last.Msg.LastAgentMessage != "hi" {
		t.Fatalf("LastAgentMessage = %v, want \"hi\"", last.Msg.LastAgentMessage)
	}
}

func TestSessionReplacesActiveTurn(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprintf(w, "data: %s\n\n", `{"choices":[{"delta":{"content":"partial"}}]}`)
		flusher.Flush()
		<-r.Context().Done() // hang until the client cancels
		close(block)
	}))
	defer srv.Close()

	client := llmclient.New(nil)
	s := NewSession(client, testEndpoint(srv.URL), "be helpful", "", 8000, nil)

	firstID := s.Submit(Op{Kind: OpUserTurn, Items: []llmclient.ResponseItem{
		llmclient.TextOnlyMessage("user", "input_text", "first"),
	}})

	// Give the first turn time to start before replacing it.
	time.Sleep(100 * time.Millisecond)

	secondID := s.Submit(Op{Kind: OpUserTurn, Items: []llmclient.ResponseItem{
		llmclient.TextOnlyMessage("user", "input_text", "second"),
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sawReplaced := false
	for {
		ev, ok := s.NextEvent(ctx)
		if !ok {
			t.Fatal("session closed before seeing TurnAborted")
		}
		if ev.ID == firstID && ev.Msg.Kind == MsgTurnAborted {
			if ev.Msg.AbortReason != AbortReplaced {
				t.Fatalf("AbortReason = %v, want Replaced", ev.Msg.AbortReason)
			}
			sawReplaced = true
			break
		}
	}
	if !sawReplaced {
		t.Fatal("expected TurnAborted{Replaced} for the superseded turn")
	}
	_ = secondID
}

func TestSessionInterruptAbortsActiveTurn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprintf(w, "data: %s\n\n", `{"choices":[{"delta":{"content":"partial"}}]}`)
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := llmclient.New(nil)
	s := NewSession(client, testEndpoint(srv.URL), "be helpful", "", 8000, nil)

	id := s.Submit(Op{Kind: OpUserTurn, Items: []llmclient.ResponseItem{
		llmclient.TextOnlyMessage("user", "input_text", "hello"),
	}})
	time.Sleep(100 * time.Millisecond)
	s.Submit(Op{Kind: OpInterrupt})

	events := drainUntilComplete(t, s, id, 5*time.Second)
	last := events[len(events)-1]
	if last.Msg.Kind != MsgTurnAborted || last.Msg.AbortReason != AbortInterrupted {
		t.Fatalf("last event = %+v, want TurnAborted{Interrupted}", last.Msg)
	}
}

func TestEstimateCompletionTokensCountsWordsAndPunctuation(t *testing.T) {
	got := estimateCompletionTokens("hello, world!")
	if got != 4 {
		t.Fatalf("estimateCompletionTokens() = %d, want 4 (hello , world !)", got)
	}
}

func TestEstimateCompletionTokensEmptyString(t *testing.T) {
	if got := estimateCompletionTokens(""); got != 0 {
		t.Fatalf("estimateCompletionTokens(\"\") = %d, want 0", got)
	}
}

func TestValidateFinalOutputAcceptsMatchingSchema(t *testing.T) {
	schema := []byte(`{"type":"object","required":["answer"],"properties":{"answer":{"type":"string"}}}`)
	if err := validateFinalOutput(schema, `{"answer":"42"}`); err != nil {
		t.Fatalf("validateFinalOutput() = %v, want nil", err)
	}
}

func TestValidateFinalOutputRejectsMismatch(t *testing.T) {
	schema := []byte(`{"type":"object","required":["answer"],"properties":{"answer":{"type":"string"}}}`)
	if err := validateFinalOutput(schema, `{"wrong":"field"}`); err == nil {
		t.Fatal("validateFinalOutput() = nil, want a schema-violation error")
	}
}

func TestValidateFinalOutputRejectsNonJSONText(t *testing.T) {
	schema := []byte(`{"type":"object"}`)
	if err := validateFinalOutput(schema, "not json"); err == nil {
		t.Fatal("validateFinalOutput() = nil, want a parse error")
	}
}

func TestSessionEmitsErrorWhenFinalOutputViolatesSchema(t *testing.T) {
	srv := sseServer(t, `{"choices":[{"delta":{"content":"not json"}}]}`, `{"choices":[{"delta":{},"finish_reason":"stop"}]}`)
	defer srv.Close()

	client := llmclient.New(nil)
	s := NewSession(client, testEndpoint(srv.URL), "be helpful", "", 8000, nil)

	id := s.Submit(Op{
		Kind: OpUserTurn,
		Items: []llmclient.ResponseItem{
			llmclient.TextOnlyMessage("user", "input_text", "hello"),
		},
		FinalOutputJSONSchema: []byte(`{"type":"object"}`),
	})

	events := drainUntilComplete(t, s, id, 5*time.Second)
	last := events[len(events)-1]
	if last.Msg.Kind != MsgError {
		t.Fatalf("last event kind = %v, want Error", last.Msg.Kind)
	}
}

func TestSessionPostTurnHookFiresOnTaskComplete(t *testing.T) {
	srv := sseServer(t, `{"choices":[{"delta":{"content":"done"}}]}`, `{"choices":[{"delta":{},"finish_reason":"stop"}]}`)
	defer srv.Close()

	hookCalled := make(chan string, 1)
	client := llmclient.New(nil)
	s := NewSession(client, testEndpoint(srv.URL), "be helpful", "", 8000, func(_ context.Context, last string) {
		hookCalled <- last
	})

	id := s.Submit(Op{Kind: OpUserTurn, Items: []llmclient.ResponseItem{
		llmclient.TextOnlyMessage("user", "input_text", "hello"),
	}})
	drainUntilComplete(t, s, id, 5*time.Second)

	select {
	case got := <-hookCalled:
		if got != "done" {
			t.Fatalf("hook received %q, want \"done\"", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("post-turn hook never fired")
	}
}
