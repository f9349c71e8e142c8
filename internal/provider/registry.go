package provider

import "codexcore/internal/settings"

// BuiltinKind reports the ProviderKind for a non-custom provider name, so
// callers that need wire-level dispatch behavior don't have to special-case
// "openai"/"oss" strings themselves.
func BuiltinKind(name string) (settings.ProviderKind, bool) {
	switch name {
	case "openai":
		return settings.KindOpenAIResponses, true
	case "oss":
		return settings.KindOllama, true
	default:
		return "", false
	}
}

// Kind resolves the ProviderKind for a resolved provider name, checking the
// built-in registry first and falling back to the settings' custom-provider
// table.
func Kind(resolved string, s settings.Settings) settings.ProviderKind {
	if k, ok := BuiltinKind(resolved); ok {
		return k
	}
	if cp, ok := s.Providers.Custom[resolved]; ok {
		return cp.ProviderKind
	}
	return ""
}

// SanitizeReasoningOverrides drops reasoning-effort/summary overrides a
// provider kind cannot honor: only openai_responses and anthropic_claude
// support reasoning summaries, and Ollama never reports an effort level.
func SanitizeReasoningOverrides(kind settings.ProviderKind, m settings.ModelSettings) settings.ModelSettings {
	switch kind {
	case settings.KindOllama:
		m.ReasoningEffort = ""
		m.ReasoningSummary = ""
	case settings.KindAnthropicClaude:
		m.ReasoningSummary = ""
	}
	return m
}

// SanitizeToolOverrides drops tool-use settings a provider kind does not
// support, currently only the plan tool for kinds without native tool_calls
// accumulation support in the streaming client.
func SanitizeToolOverrides(kind settings.ProviderKind, includePlanTool bool) bool {
	if kind == "" {
		return false
	}
	return includePlanTool
}
