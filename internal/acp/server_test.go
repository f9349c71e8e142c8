package acp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codexcore/internal/command"
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

func newTestServer(t *testing.T, baseURL string) (*Server, *bytes.Buffer) {
	t.Helper()
	reg := command.NewRegistry()
	client := llmclient.New(nil)
	ep := llmclient.Endpoint{BaseURL: baseURL, Model: "test-model", MaxRetries: 1, IdleTimeout: 2 * time.Second}
	var out bytes.Buffer
	return NewServer(client, ep, reg, 8000, &out), &out
}

func readResponses(t *testing.T, out *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var results []map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(out.String()))
	for {
		var m map[string]interface{}
		if err := dec.Decode(&m); err != nil {
			break
		}
		results = append(results, m)
	}
	return results
}

func TestInitializeRejectsWrongProtocolVersion(t *testing.T) {
	srv := sseServer(t)
	defer srv.Close()
	s, out := newTestServer(t, srv.URL)

	in := strings.NewReader(`{"jsonrpc":"2.0","method":"initialize","id":1,"params":{"protocolVersion":2}}` + "\n")
	if err := s.Serve(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	results := readResponses(t, out)
	if len(results) != 1 {
		t.Fatalf("got %d responses, want 1", len(results))
	}
	errObj, ok := results[0]["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected an error response, got %+v", results[0])
	}
	if int(errObj["code"].(float64)) != InvalidParamsCode {
		t.Fatalf("code = %v, want InvalidParamsCode", errObj["code"])
	}
}

func TestUnknownMethodReturnsMethodNotFound(t *testing.T) {
	srv := sseServer(t)
	defer srv.Close()
	s, out := newTestServer(t, srv.URL)

	in := strings.NewReader(`{"jsonrpc":"2.0","method":"bogus","id":1}` + "\n")
	if err := s.Serve(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	results := readResponses(t, out)
	errObj := results[0]["error"].(map[string]interface{})
	if int(errObj["code"].(float64)) != MethodNotFoundCode {
		t.Fatalf("code = %v, want MethodNotFoundCode", errObj["code"])
	}
}

func TestSessionNewEmitsAvailableCommandsUpdate(t *testing.T) {
	srv := sseServer(t)
	defer srv.Close()
	s, out := newTestServer(t, srv.URL)

	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","method":"initialize","id":1,"params":{"protocolVersion":1}}`,
		`{"jsonrpc":"2.0","method":"session/new","id":2,"params":{}}`,
	}, "\n") + "\n")
	if err := s.Serve(context.Background(), in); err != nil {
		t.Fatal(err)
	}

	results := readResponses(t, out)
	var sawUpdate bool
	for _, r := range results {
		if r["method"] == "session/update" {
			params := r["params"].(map[string]interface{})
			if params["sessionUpdate"] == SessionUpdateAvailableCommandsUpd {
				sawUpdate = true
			}
		}
	}
	if !sawUpdate {
		t.Fatalf("expected an available_commands_update notification, got %+v", results)
	}
}

func TestSessionPromptRunsFreeFormTurn(t *testing.T) {
	srv := sseServer(t, `{"choices":[{"delta":{"content":"hi there"}}]}`, `{"choices":[{"delta":{},"finish_reason":"stop"}]}`)
	defer srv.Close()
	s, out := newTestServer(t, srv.URL)

	result, rpcErr := s.handleSessionNew(context.Background(), mustJSON(t, SessionNewParams{}))
	if rpcErr != nil {
		t.Fatal(rpcErr)
	}
	sessionID := result.(SessionNewResult).SessionID

	_, rpcErr = s.handleSessionPrompt(context.Background(), mustJSON(t, SessionPromptParams{
		SessionID: sessionID,
		Prompt:    []PromptBlock{{Type: "text", Text: "hello"}},
	}))
	if rpcErr != nil {
		t.Fatal(rpcErr)
	}

	results := readResponses(t, out)
	var sawChunk bool
	for _, r := range results {
		if r["method"] == "session/update" {
			params := r["params"].(map[string]interface{})
			if params["sessionUpdate"] == SessionUpdateAgentMessageChunk && strings.Contains(fmt.Sprint(params["content"]), "hi") {
				sawChunk = true
			}
		}
	}
	if !sawChunk {
		t.Fatalf("expected an agent_message_chunk update containing the reply, got %+v", results)
	}
}

func TestSessionPromptUnknownSlashCommandFallsThroughToRegistryError(t *testing.T) {
	srv := sseServer(t)
	defer srv.Close()
	s, _ := newTestServer(t, srv.URL)

	result, rpcErr := s.handleSessionNew(context.Background(), mustJSON(t, SessionNewParams{}))
	if rpcErr != nil {
		t.Fatal(rpcErr)
	}
	sessionID := result.(SessionNewResult).SessionID

	_, rpcErr = s.handleSessionPrompt(context.Background(), mustJSON(t, SessionPromptParams{
		SessionID: sessionID,
		Prompt:    []PromptBlock{{Type: "text", Text: "/totally-unknown"}},
	}))
	if rpcErr == nil {
		t.Fatal("expected an error for an unregistered slash command")
	}
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
