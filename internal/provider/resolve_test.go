package provider

import (
	"testing"

	"github.com/stretchr/testify/require"

	"codexcore/internal/settings"
)

func TestResolveDefaultsToOpenAI(t *testing.T) {
	s := settings.Defaults()
	s.Model.Default = "gpt-5-codex"

	got := ResolveModelProvider(Request{Settings: s})
	require.Equal(t, "openai", got.ProviderOverride)
	require.Equal(t, "gpt-5-codex", got.Model)
	require.True(t, got.IncludePlanTool)
	require.False(t, got.OSSActive)
}

func TestResolveColonTaggedModelGoesToOSS(t *testing.T) {
	s := settings.Defaults()
	got := ResolveModelProvider(Request{Settings: s, RequestedModel: "llama3.1:8b"})
	require.Equal(t, "oss", got.ProviderOverride)
	require.True(t, got.OSSActive)
}

func TestResolveForceOSSShortCircuits(t *testing.T) {
	s := settings.Defaults()
	s.Model.Provider = "openai"
	got := ResolveModelProvider(Request{Settings: s, ForceOSS: true})
	require.Equal(t, "oss", got.ProviderOverride)
	require.Equal(t, defaultOSSModel, got.Model)
	require.True(t, got.IncludePlanTool)
}

func TestResolveCustomProviderClaimsModel(t *testing.T) {
	s := settings.Defaults()
	s.Model.Provider = "myco"
	s.Providers.Custom = map[string]settings.CustomProvider{
		"myco": {
			Name:         "myco",
			WireAPI:      settings.WireChat,
			DefaultModel: "myco-large",
			ProviderKind: settings.KindOpenAIResponses,
		},
	}
	got := ResolveModelProvider(Request{Settings: s, RequestedModel: "myco-large"})
	require.Equal(t, "myco", got.ProviderOverride)
}

func TestResolveCustomProviderRejectsUnclaimedModelFallsBackToOpenAI(t *testing.T) {
	s := settings.Defaults()
	s.Model.Provider = "myco"
	s.Providers.Custom = map[string]settings.CustomProvider{
		"myco": {Name: "myco", DefaultModel: "myco-large"},
	}
	got := ResolveModelProvider(Request{Settings: s, RequestedModel: "gpt-5-codex"})
	require.Equal(t, "openai", got.ProviderOverride)
}

func TestResolveIsIdempotent(t *testing.T) {
	s := settings.Defaults()
	s.Model.Default = "gpt-oss:20b"
	req := Request{Settings: s}
	first := ResolveModelProvider(req)
	second := ResolveModelProvider(req)
	require.Equal(t, first, second)
}

func TestPlanToolForOSSExcludesVisionSlug(t *testing.T) {
	require.True(t, planToolForOSS("gpt-oss:20b"))
	require.False(t, planToolForOSS("library/qwen2.5vl:7b"))
	require.False(t, planToolForOSS("llama3.1:8b"))
}
