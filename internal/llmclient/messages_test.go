package llmclient

import (
	"testing"

	"codexcore/internal/settings"
)

func TestBuildMessagesDropsReasoningWhenEndsOnUser(t *testing.T) {
	items := []ResponseItem{
		TextOnlyMessage("user", "input_text", "hello"),
		{Kind: ItemReasoning, ReasoningContent: []string{"thinking"}},
		TextOnlyMessage("assistant", "output_text", "hi"),
		TextOnlyMessage("user", "input_text", "again"),
	}
	msgs := BuildMessages(items, "full instructions", "")
	for _, m := range msgs {
		if m.Role == "assistant" && m.Content != "hi" {
			t.Fatalf("reasoning should have been dropped, got %q", m.Content)
		}
	}
}

func TestBuildMessagesReattachesReasoningToFollowingAssistant(t *testing.T) {
	items := []ResponseItem{
		TextOnlyMessage("user", "input_text", "hello"),
		{Kind: ItemReasoning, ReasoningContent: []string{"thinking"}},
		TextOnlyMessage("assistant", "output_text", "hi"),
	}
	msgs := BuildMessages(items, "full", "")
	var found bool
	for _, m := range msgs {
		if m.Role == "assistant" && m.Content == "thinking\nhi" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected reasoning reattached to following assistant message, got %+v", msgs)
	}
}

func TestMergeOverlayPrependsUnlessAlreadyPresent(t *testing.T) {
	if got := mergeOverlay("full text", ""); got != "full text" {
		t.Fatalf("empty overlay should pass through, got %q", got)
	}
	got := mergeOverlay("full text here", "extra")
	if got != "extra\n\nfull text here" {
		t.Fatalf("got %q", got)
	}
	got2 := mergeOverlay("already has extra inside", "extra")
	if got2 != "already has extra inside" {
		t.Fatalf("should not duplicate, got %q", got2)
	}
}

func TestSupportsStreamingExcludesCodingPlanEndpoints(t *testing.T) {
	if SupportsStreaming("https://open.bigmodel.cn/api/coding/paas/v4") {
		t.Fatal("bigmodel coding-plan endpoint should not support streaming")
	}
	if SupportsStreaming("https://api.z.ai/api/coding/paas/v1") {
		t.Fatal("z.ai coding-plan endpoint should not support streaming")
	}
	if !SupportsStreaming("https://api.openai.com/v1") {
		t.Fatal("standard endpoint should support streaming")
	}
}

func TestApplyReasoningOverrideOllamaInjectsThink(t *testing.T) {
	rc := settings.ReasoningControls{ThinkEnabled: true}
	o := ApplyReasoningOverride(settings.KindOllama, rc)
	if o.Think == nil || !*o.Think {
		t.Fatalf("expected think override true, got %+v", o)
	}
}

func TestApplyReasoningOverrideOpenAIResponsesIsNoop(t *testing.T) {
	rc := settings.ReasoningControls{ThinkEnabled: true}
	o := ApplyReasoningOverride(settings.KindOpenAIResponses, rc)
	if o.Think != nil || o.ThinkingBudgetTokens != nil || o.ThinkingBudgetWeight != nil {
		t.Fatalf("expected no override, got %+v", o)
	}
}
