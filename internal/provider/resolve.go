// Package provider resolves the active model/provider pair from settings,
// CLI overrides, and the built-in/custom provider registry.
package provider

import (
	"strings"

	"codexcore/internal/settings"
)

// Resolved is the output of ResolveModelProvider.
type Resolved struct {
	Model            string
	ProviderOverride string
	OSSActive        bool
	IncludePlanTool  bool
}

// Request bundles the inputs to ResolveModelProvider.
type Request struct {
	Settings       settings.Settings
	RequestedModel string
	ForceOSS       bool
}

const defaultOSSModel = "gpt-oss:20b"

// ResolveModelProvider applies the provider-selection rules in order. It is
// a pure function of its inputs, so calling it twice with the same Request
// yields the same Resolved.
func ResolveModelProvider(req Request) Resolved {
	var out Resolved

	// Rule 1: force_oss short-circuits provider selection.
	if req.ForceOSS {
		out.ProviderOverride = "oss"
		out.OSSActive = true
		out.Model = firstNonEmpty(req.RequestedModel, req.Settings.Model.Default, defaultOSSModel)
		out.IncludePlanTool = planToolForOSS(out.Model)
		return out
	}

	// Rule 2: provider from settings, model from settings then CLI override.
	provider := req.Settings.Model.Provider
	model := req.Settings.Model.Default
	if req.RequestedModel != "" {
		model = req.RequestedModel
	}

	// Rule 3: default provider.
	if provider == "" {
		provider = "openai"
	}

	// Rule 4: custom provider model-claim check.
	if cp, ok := req.Settings.Providers.Custom[provider]; ok {
		if modelClaimedBy(cp, model) {
			out.ProviderOverride = provider
		} else {
			out.ProviderOverride = "openai"
			provider = "openai"
		}
	} else {
		out.ProviderOverride = provider
	}

	// Rule 5: openai model claimed by some *other* custom provider.
	if out.ProviderOverride == "openai" {
		for name, cp := range req.Settings.Providers.Custom {
			if modelClaimedBy(cp, model) {
				out.ProviderOverride = name
				provider = name
				break
			}
		}
	}

	// Rule 6: colon-tagged models are Ollama unless a custom provider claims them.
	if strings.Contains(model, ":") {
		claimedByCustom := false
		if out.ProviderOverride != "openai" && out.ProviderOverride != "oss" {
			if cp, ok := req.Settings.Providers.Custom[out.ProviderOverride]; ok && modelClaimedBy(cp, model) {
				claimedByCustom = true
			}
		}
		if !claimedByCustom {
			out.ProviderOverride = "oss"
		}
	}

	out.Model = model
	out.OSSActive = out.ProviderOverride == "oss"

	// Rule 7: plan-tool inclusion.
	switch {
	case out.ProviderOverride == "openai":
		out.IncludePlanTool = true
	case out.ProviderOverride == "oss":
		out.IncludePlanTool = planToolForOSS(model)
	default:
		if cp, ok := req.Settings.Providers.Custom[out.ProviderOverride]; ok {
			out.IncludePlanTool = cp.PlanToolEnabled
		}
	}

	return out
}

func modelClaimedBy(cp settings.CustomProvider, model string) bool {
	if model == "" {
		return false
	}
	if cp.DefaultModel == model {
		return true
	}
	for _, m := range cp.CachedModels {
		if m == model {
			return true
		}
	}
	return false
}

// planToolForOSS implements: slug begins with "gpt-oss" (after stripping a
// namespace prefix and a ":variant" suffix) and is not a qwen2.5vl slug.
func planToolForOSS(model string) bool {
	slug := model
	if i := strings.LastIndex(slug, "/"); i >= 0 {
		slug = slug[i+1:]
	}
	if i := strings.Index(slug, ":"); i >= 0 {
		slug = slug[:i]
	}
	slug = strings.ToLower(slug)
	if strings.Contains(slug, "qwen2.5vl") {
		return false
	}
	return strings.HasPrefix(slug, "gpt-oss")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
