package llmclient

import "strings"

// AggregatorMode selects how the Aggregator relays deltas to its caller.
type AggregatorMode int

const (
	// AggregatedOnly suppresses per-token deltas; only terminal items and
	// Completed are forwarded.
	AggregatedOnly AggregatorMode = iota
	// Streaming forwards every delta as it arrives.
	Streaming
)

// Aggregator implements two aggregation modes on top of a raw
// ResponseEvent stream, guaranteeing a caller never observes both streamed
// deltas and a duplicate terminal message containing the same text.
type Aggregator struct {
	mode AggregatorMode

	sawTextDelta      bool
	sawReasoningDelta bool
	textBuf           strings.Builder
	reasoningBuf      strings.Builder
	sawTerminalMessage bool
	sawTerminalReasoning bool
}

// NewAggregator constructs an Aggregator in the given mode.
func NewAggregator(mode AggregatorMode) *Aggregator {
	return &Aggregator{mode: mode}
}

// Feed processes one raw event and returns the (possibly empty) sequence of
// events the caller should observe.
func (a *Aggregator) Feed(ev ResponseEvent) []ResponseEvent {
	switch ev.Kind {
	case EventOutputTextDelta:
		a.sawTextDelta = true
		a.textBuf.WriteString(ev.Delta)
		if a.mode == Streaming {
			return []ResponseEvent{ev}
		}
		return nil

	case EventReasoningContentDelta:
		a.sawReasoningDelta = true
		a.reasoningBuf.WriteString(ev.Delta)
		if a.mode == Streaming {
			return []ResponseEvent{ev}
		}
		return nil

	case EventOutputItemDone:
		if ev.Item.Kind == ItemMessage {
			a.sawTerminalMessage = true
		}
		if ev.Item.Kind == ItemReasoning {
			a.sawTerminalReasoning = true
		}
		if a.mode == Streaming {
			return []ResponseEvent{ev}
		}
		if ev.Item.Kind != ItemMessage && ev.Item.Kind != ItemReasoning {
			return []ResponseEvent{ev}
		}
		// A terminal item can arrive with no preceding delta events (e.g. a
		// non-streaming response parsed straight into ResponseItems), so its
		// text must still land in the buffer EventCompleted synthesizes from.
		if ev.Item.Kind == ItemMessage && !a.sawTextDelta {
			a.textBuf.WriteString(ev.Item.PlainText())
		}
		if ev.Item.Kind == ItemReasoning && !a.sawReasoningDelta {
			a.reasoningBuf.WriteString(strings.Join(ev.Item.ReasoningContent, "\n"))
		}
		return nil

	case EventCompleted:
		var out []ResponseEvent
		if a.mode == AggregatedOnly {
			if a.reasoningBuf.Len() > 0 {
				out = append(out, ResponseEvent{Kind: EventOutputItemDone, Item: ResponseItem{
					Kind: ItemReasoning, ReasoningContent: []string{a.reasoningBuf.String()},
				}})
			}
			if a.textBuf.Len() > 0 {
				out = append(out, ResponseEvent{Kind: EventOutputItemDone, Item: TextOnlyMessage("assistant", "output_text", a.textBuf.String())})
			}
			out = append(out, ev)
			return out
		}

		// Streaming mode: only synthesize a terminal item when deltas were
		// seen but no terminal OutputItemDone already carried that content.
		if a.sawReasoningDelta && !a.sawTerminalReasoning && a.reasoningBuf.Len() > 0 {
			out = append(out, ResponseEvent{Kind: EventOutputItemDone, Item: ResponseItem{
				Kind: ItemReasoning, ReasoningContent: []string{a.reasoningBuf.String()},
			}})
		}
		if a.sawTextDelta && !a.sawTerminalMessage && a.textBuf.Len() > 0 {
			out = append(out, ResponseEvent{Kind: EventOutputItemDone, Item: TextOnlyMessage("assistant", "output_text", a.textBuf.String())})
		}
		out = append(out, ev)
		return out

	default:
		return []ResponseEvent{ev}
	}
}
