package llmclient

import "testing"

func TestAggregatorStreamingSuppressesDuplicateTerminal(t *testing.T) {
	agg := NewAggregator(Streaming)

	var out []ResponseEvent
	feed := func(ev ResponseEvent) { out = append(out, agg.Feed(ev)...) }

	feed(ResponseEvent{Kind: EventOutputTextDelta, Delta: "hi "})
	feed(ResponseEvent{Kind: EventOutputTextDelta, Delta: "there"})
	feed(ResponseEvent{Kind: EventOutputItemDone, Item: TextOnlyMessage("assistant", "output_text", "hi there")})
	feed(ResponseEvent{Kind: EventCompleted})

	var terminalCount int
	for _, ev := range out {
		if ev.Kind == EventOutputItemDone && ev.Item.Kind == ItemMessage {
			terminalCount++
		}
	}
	if terminalCount != 1 {
		t.Fatalf("expected exactly one terminal message, got %d in %+v", terminalCount, out)
	}
}

func TestAggregatorStreamingSynthesizesTerminalWhenMissing(t *testing.T) {
	agg := NewAggregator(Streaming)
	var out []ResponseEvent
	feed := func(ev ResponseEvent) { out = append(out, agg.Feed(ev)...) }

	feed(ResponseEvent{Kind: EventOutputTextDelta, Delta: "hi "})
	feed(ResponseEvent{Kind: EventOutputTextDelta, Delta: "there"})
	feed(ResponseEvent{Kind: EventCompleted})

	var terminal *ResponseItem
	for _, ev := range out {
		if ev.Kind == EventOutputItemDone && ev.Item.Kind == ItemMessage {
			item := ev.Item
			terminal = &item
		}
	}
	if terminal == nil {
		t.Fatal("expected a synthesized terminal message")
	}
	if terminal.PlainText() != "hi there" {
		t.Fatalf("terminal text = %q", terminal.PlainText())
	}
}

func TestAggregatorAggregatedOnlySuppressesDeltas(t *testing.T) {
	agg := NewAggregator(AggregatedOnly)
	var out []ResponseEvent
	feed := func(ev ResponseEvent) { out = append(out, agg.Feed(ev)...) }

	feed(ResponseEvent{Kind: EventReasoningContentDelta, Delta: "think"})
	feed(ResponseEvent{Kind: EventOutputTextDelta, Delta: "hi"})
	feed(ResponseEvent{Kind: EventCompleted})

	if len(out) != 3 {
		t.Fatalf("expected reasoning+message+completed, got %d: %+v", len(out), out)
	}
	if out[0].Item.Kind != ItemReasoning {
		t.Fatalf("first event = %+v", out[0])
	}
	if out[1].Item.Kind != ItemMessage {
		t.Fatalf("second event = %+v", out[1])
	}
	if out[2].Kind != EventCompleted {
		t.Fatalf("third event = %+v", out[2])
	}
}

// TestAggregatorAggregatedOnlyCapturesBareTerminalItem exercises the case a
// non-streaming provider response produces: a terminal OutputItemDone with
// no preceding delta events at all. AggregatedOnly must still surface the
// item's text at EventCompleted instead of silently dropping it.
func TestAggregatorAggregatedOnlyCapturesBareTerminalItem(t *testing.T) {
	agg := NewAggregator(AggregatedOnly)
	var out []ResponseEvent
	feed := func(ev ResponseEvent) { out = append(out, agg.Feed(ev)...) }

	feed(ResponseEvent{Kind: EventOutputItemDone, Item: ResponseItem{
		Kind: ItemReasoning, ReasoningContent: []string{"thinking it through"},
	}})
	feed(ResponseEvent{Kind: EventOutputItemDone, Item: TextOnlyMessage("assistant", "output_text", "the answer")})
	feed(ResponseEvent{Kind: EventCompleted})

	if len(out) != 3 {
		t.Fatalf("expected reasoning+message+completed, got %d: %+v", len(out), out)
	}
	if out[0].Item.Kind != ItemReasoning || out[0].Item.ReasoningContent[0] != "thinking it through" {
		t.Fatalf("first event = %+v", out[0])
	}
	if out[1].Item.Kind != ItemMessage || out[1].Item.PlainText() != "the answer" {
		t.Fatalf("second event = %+v", out[1])
	}
	if out[2].Kind != EventCompleted {
		t.Fatalf("third event = %+v", out[2])
	}
}

func TestAggregatorExactlyOneCompletedPerTurn(t *testing.T) {
	agg := NewAggregator(Streaming)
	var completed int
	for _, ev := range agg.Feed(ResponseEvent{Kind: EventOutputTextDelta, Delta: "x"}) {
		if ev.Kind == EventCompleted {
			completed++
		}
	}
	for _, ev := range agg.Feed(ResponseEvent{Kind: EventCompleted}) {
		if ev.Kind == EventCompleted {
			completed++
		}
	}
	if completed != 1 {
		t.Fatalf("expected exactly 1 Completed, got %d", completed)
	}
}
