package llmclient

import (
	"strings"

	"codexcore/internal/settings"
)

// ChatMessage is the wire-level message shape sent to a provider, covering
// the plain, tool-call, and tool-output variants describes.
type ChatMessage struct {
	Role      string
	Content   string
	ToolID    string
	ToolCalls []WireToolCall
}

// WireToolCall is the {id, type, function:{name,arguments}} shape emitted for
// FunctionCall / LocalShellCall items.
type WireToolCall struct {
	ID       string
	Type     string // "function" | "local_shell_call" | "custom"
	Name     string
	Arguments string
}

// BuildMessages converts an ordered ResponseItem list into the chat-style
// messages array's "Message assembly" rules: a leading
// system message (full instructions + overlay), reasoning-reattachment,
// and shape conversion for the remaining item kinds.
func BuildMessages(items []ResponseItem, fullInstructions, overlayPrompt string) []ChatMessage {
	out := make([]ChatMessage, 0, len(items)+1)
	out = append(out, ChatMessage{Role: "system", Content: mergeOverlay(fullInstructions, overlayPrompt)})

	lastUserIdx := -1
	for i, it := range items {
		if it.Kind == ItemMessage && it.Role == "user" {
			lastUserIdx = i
		}
	}

	// Reasoning re-attachment: if the conversation ends on a user message,
	// drop all reasoning outright.
	endsOnUser := len(items) > 0 && items[len(items)-1].Kind == ItemMessage && items[len(items)-1].Role == "user"

	reattach := map[int]string{} // target item index -> reasoning text to prepend
	if !endsOnUser {
		for i, it := range items {
			if it.Kind != ItemReasoning || i <= lastUserIdx {
				continue
			}
			text := strings.Join(it.ReasoningContent, "\n")
			if text == "" {
				text = strings.Join(it.Summary, "\n")
			}
			target := -1
			if i > 0 && isAssistantAnchor(items[i-1]) {
				target = i - 1
			} else {
				for j := i + 1; j < len(items); j++ {
					if isAssistantAnchor(items[j]) {
						target = j
						break
					}
				}
			}
			if target >= 0 {
				if existing, ok := reattach[target]; ok {
					reattach[target] = existing + "\n" + text
				} else {
					reattach[target] = text
				}
			}
		}
	}

	seenAssistantContent := map[string]bool{}
	for i, it := range items {
		switch it.Kind {
		case ItemMessage:
			content := it.PlainText()
			if it.Role == "assistant" {
				if prefix, ok := reattach[i]; ok && prefix != "" {
					combined := prefix + "\n" + content
					if seenAssistantContent[combined] {
						continue
					}
					seenAssistantContent[combined] = true
					out = append(out, ChatMessage{Role: "assistant", Content: combined})
					continue
				}
				if seenAssistantContent[content] {
					continue
				}
				seenAssistantContent[content] = true
			}
			out = append(out, ChatMessage{Role: it.Role, Content: content})

		case ItemFunctionCall:
			out = append(out, ChatMessage{
				Role: "assistant",
				ToolCalls: []WireToolCall{{
					ID: it.CallID, Type: "function", Name: it.Name, Arguments: it.Arguments,
				}},
			})

		case ItemCustomToolCall:
			out = append(out, ChatMessage{
				Role: "assistant",
				ToolCalls: []WireToolCall{{
					ID: it.CallID, Type: "custom", Name: it.Name, Arguments: it.Arguments,
				}},
			})

		case ItemLocalShellCall:
			out = append(out, ChatMessage{
				Role: "assistant",
				ToolCalls: []WireToolCall{{
					ID: it.ShellID, Type: "local_shell_call", Name: "local_shell", Arguments: string(it.ShellAction),
				}},
			})

		case ItemFunctionCallOutput, ItemCustomToolCallOutput:
			out = append(out, ChatMessage{Role: "tool", Content: it.Output, ToolID: it.CallID})
		}
	}
	return out
}

func isAssistantAnchor(it ResponseItem) bool {
	switch it.Kind {
	case ItemFunctionCall, ItemLocalShellCall:
		return true
	case ItemMessage:
		return it.Role == "assistant"
	default:
		return false
	}
}

// mergeOverlay prepends overlayPrompt to full unless full already contains
// it; an empty overlay is a pass-through.
func mergeOverlay(full, overlay string) string {
	overlay = strings.TrimSpace(overlay)
	if overlay == "" {
		return full
	}
	if strings.Contains(full, overlay) {
		return full
	}
	return overlay + "\n\n" + full
}

// ReasoningOverride describes the provider-kind-specific field(s) injected
// into the outbound request payload before dispatch.
type ReasoningOverride struct {
	Think                 *bool
	ThinkingBudgetTokens   *uint32
	ThinkingBudgetWeight  *float32
}

// ApplyReasoningOverride computes the override for a given provider kind and
// reasoning-control settings
func ApplyReasoningOverride(kind settings.ProviderKind, rc settings.ReasoningControls) ReasoningOverride {
	switch kind {
	case settings.KindOllama:
		t := rc.ThinkEnabled
		return ReasoningOverride{Think: &t}
	case settings.KindAnthropicClaude:
		return ReasoningOverride{
			ThinkingBudgetTokens:  rc.AnthropicBudgetTokens,
			ThinkingBudgetWeight: rc.AnthropicBudgetWeight,
		}
	default:
		return ReasoningOverride{}
	}
}

// SupportsStreaming implements the streaming-decision rule: any base URL
// under a known coding-plan endpoint does not support SSE streaming.
func SupportsStreaming(baseURL string) bool {
	return !strings.Contains(baseURL, "api.z.ai/api/coding/paas/") &&
		!strings.Contains(baseURL, "open.bigmodel.cn/api/coding/paas/")
}
