// Package llmclient normalizes provider-specific completion wire formats
// (OpenAI Responses, OpenAI-compatible Chat, Ollama, Anthropic) into a
// canonical ResponseItem/ResponseEvent stream.
package llmclient

import "encoding/json"

// ContentItem is the polymorphic content payload carried by a Message item.
type ContentItem struct {
	Kind string `json:"kind"` // "input_text" | "output_text" | "opaque"
	Text string `json:"text,omitempty"`
	Raw  json.RawMessage `json:"raw,omitempty"`
}

// ItemKind tags a ResponseItem variant.
type ItemKind string

const (
	ItemMessage              ItemKind = "message"
	ItemReasoning             ItemKind = "reasoning"
	ItemFunctionCall          ItemKind = "function_call"
	ItemLocalShellCall        ItemKind = "local_shell_call"
	ItemFunctionCallOutput    ItemKind = "function_call_output"
	ItemCustomToolCall        ItemKind = "custom_tool_call"
	ItemCustomToolCallOutput  ItemKind = "custom_tool_call_output"
	ItemWebSearchCall         ItemKind = "web_search_call"
	ItemOther                 ItemKind = "other"
)

// ResponseItem is the polymorphic, tagged item type shared by input and
// output turns: messages, reasoning blocks, and function/tool calls.
type ResponseItem struct {
	Kind ItemKind

	// Message
	Role    string
	Content []ContentItem

	// Reasoning
	Summary          []string
	ReasoningContent []string
	EncryptedContent string

	// FunctionCall / CustomToolCall
	Name      string
	Arguments string
	CallID    string

	// LocalShellCall
	ShellID     string
	ShellStatus string
	ShellAction json.RawMessage

	// FunctionCallOutput / CustomToolCallOutput
	Output string

	// WebSearchCall
	WebSearchCallID string
}

// TextOnlyMessage builds the common case: a Message item with a single
// content part of the given kind.
func TextOnlyMessage(role, kind, text string) ResponseItem {
	return ResponseItem{
		Kind:    ItemMessage,
		Role:    role,
		Content: []ContentItem{{Kind: kind, Text: text}},
	}
}

// PlainText concatenates every text-bearing content part of a Message item.
func (r ResponseItem) PlainText() string {
	var out string
	for _, c := range r.Content {
		out += c.Text
	}
	return out
}

// TokenUsage mirrors the usage object emitted with Completed events.
type TokenUsage struct {
	PromptTokens            int `json:"prompt_tokens"`
	CachedTokens            int `json:"cached_tokens"`
	CompletionTokens        int `json:"completion_tokens"`
	ReasoningTokens         int `json:"reasoning_tokens"`
	TotalTokens             int `json:"total_tokens"`
}

// RateLimitSnapshot captures provider rate-limit response headers
// (x-ratelimit-remaining-requests and friends).
type RateLimitSnapshot struct {
	RemainingRequests int
	RemainingTokens   int
	ResetRequests     string
	ResetTokens       string
}

// EventKind tags a ResponseEvent variant.
type EventKind string

const (
	EventCreated                  EventKind = "created"
	EventOutputTextDelta          EventKind = "output_text_delta"
	EventReasoningContentDelta    EventKind = "reasoning_content_delta"
	EventReasoningSummaryDelta    EventKind = "reasoning_summary_delta"
	EventReasoningSummaryPartAdded EventKind = "reasoning_summary_part_added"
	EventWebSearchCallBegin       EventKind = "web_search_call_begin"
	EventOutputItemDone           EventKind = "output_item_done"
	EventRateLimits               EventKind = "rate_limits"
	EventCompleted                EventKind = "completed"
)

// ResponseEvent is the protocol-normalized event emitted to callers of the
// streaming client
type ResponseEvent struct {
	Kind EventKind

	Delta string // OutputTextDelta / ReasoningContentDelta / ReasoningSummaryDelta

	Item ResponseItem // OutputItemDone

	WebSearchCallID string // WebSearchCallBegin

	RateLimits RateLimitSnapshot

	ResponseID string      // Completed
	TokenUsage *TokenUsage // Completed, nil when unavailable
}
