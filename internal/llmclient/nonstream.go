package llmclient

import "encoding/json"

// nonStreamResponse is the decoded shape of a non-streaming completion.
type nonStreamResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content          string          `json:"content"`
			ReasoningContent string          `json:"reasoning_content"`
			ToolCalls        []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string          `json:"name"`
					Arguments json.RawMessage `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage *usageBlock `json:"usage"`
}

// ParseNonStreaming implements non-streaming path: given a
// full JSON response body, emit the normalized event sequence via emit.
func ParseNonStreaming(body []byte, enableThink bool, emit func(ResponseEvent)) error {
	var resp nonStreamResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return &ResponseStreamFailedError{Cause: err}
	}
	if len(resp.Choices) == 0 {
		emit(ResponseEvent{Kind: EventCompleted, ResponseID: resp.ID, TokenUsage: usageToTokens(resp.Usage)})
		return nil
	}
	msg := resp.Choices[0].Message

	var extraReasoning []string
	if msg.ReasoningContent != "" {
		emit(ResponseEvent{Kind: EventOutputItemDone, Item: ResponseItem{
			Kind: ItemReasoning, ReasoningContent: []string{msg.ReasoningContent},
		}})
	}

	for _, tc := range msg.ToolCalls {
		args := string(tc.Function.Arguments)
		if len(tc.Function.Arguments) > 0 && tc.Function.Arguments[0] == '"' {
			var s string
			if err := json.Unmarshal(tc.Function.Arguments, &s); err == nil {
				args = s
			}
		}
		emit(ResponseEvent{Kind: EventOutputItemDone, Item: ResponseItem{
			Kind: ItemFunctionCall, CallID: tc.ID, Name: tc.Function.Name, Arguments: args,
		}})
	}

	if msg.Content != "" {
		visible := msg.Content
		if enableThink {
			s := &thinkStripper{}
			out := s.Feed(msg.Content)
			fin := s.Finalize()
			visible = out.Visible + fin.Visible
			if out.Reasoning+fin.Reasoning != "" {
				extraReasoning = append(extraReasoning, out.Reasoning+fin.Reasoning)
			}
		}
		for _, r := range extraReasoning {
			if r == "" {
				continue
			}
			emit(ResponseEvent{Kind: EventOutputItemDone, Item: ResponseItem{
				Kind: ItemReasoning, ReasoningContent: []string{r},
			}})
		}
		if visible != "" {
			emit(ResponseEvent{Kind: EventOutputItemDone, Item: TextOnlyMessage("assistant", "output_text", visible)})
		}
	}

	emit(ResponseEvent{Kind: EventCompleted, ResponseID: resp.ID, TokenUsage: usageToTokens(resp.Usage)})
	return nil
}

func usageToTokens(u *usageBlock) *TokenUsage {
	if u == nil {
		return nil
	}
	tu := &TokenUsage{PromptTokens: u.PromptTokens, CompletionTokens: u.CompletionTokens, TotalTokens: u.TotalTokens}
	if u.PromptTokensDetails != nil {
		tu.CachedTokens = u.PromptTokensDetails.CachedTokens
	}
	if u.CompletionTokensDetails != nil {
		tu.ReasoningTokens = u.CompletionTokensDetails.ReasoningTokens
	}
	if tu.TotalTokens == 0 {
		tu.TotalTokens = tu.PromptTokens + tu.CompletionTokens
	}
	return tu
}
