package llmclient

import "testing"

func TestParseNonStreamingReasoningContentOrder(t *testing.T) {
	body := []byte(`{"id":"resp1","choices":[{"message":{"reasoning_content":"think","content":"hi"}}],"usage":{"prompt_tokens":1,"completion_tokens":1}}`)

	var events []ResponseEvent
	if err := ParseNonStreaming(body, false, func(ev ResponseEvent) { events = append(events, ev) }); err != nil {
		t.Fatalf("ParseNonStreaming error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}
	if events[0].Kind != EventOutputItemDone || events[0].Item.Kind != ItemReasoning || events[0].Item.ReasoningContent[0] != "think" {
		t.Fatalf("event 0 = %+v", events[0])
	}
	if events[1].Kind != EventOutputItemDone || events[1].Item.Kind != ItemMessage || events[1].Item.PlainText() != "hi" {
		t.Fatalf("event 1 = %+v", events[1])
	}
	if events[2].Kind != EventCompleted || events[2].ResponseID != "resp1" {
		t.Fatalf("event 2 = %+v", events[2])
	}
}

func TestParseNonStreamingToolCalls(t *testing.T) {
	body := []byte(`{"id":"r2","choices":[{"message":{"tool_calls":[{"id":"c1","function":{"name":"read_file","arguments":"{\"path\":\"a.txt\"}"}}]}}]}`)
	var events []ResponseEvent
	if err := ParseNonStreaming(body, false, func(ev ResponseEvent) { events = append(events, ev) }); err != nil {
		t.Fatalf("ParseNonStreaming error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Item.Kind != ItemFunctionCall || events[0].Item.CallID != "c1" || events[0].Item.Name != "read_file" {
		t.Fatalf("event 0 = %+v", events[0])
	}
}
