// Package settings provides a typed view over the on-disk JSON configuration
// file: ranked candidate-path resolution, model/provider/index/memory/prompt
// defaults, and a process-wide snapshot swapped atomically on persist.
package settings

import "time"

// ReasoningEffort enumerates the supported reasoning-effort overrides.
type ReasoningEffort string

const (
	ReasoningMinimal ReasoningEffort = "minimal"
	ReasoningLow     ReasoningEffort = "low"
	ReasoningMedium  ReasoningEffort = "medium"
	ReasoningHigh    ReasoningEffort = "high"
)

// ReasoningSummary enumerates the reasoning-summary modes, with "off" as the
// explicit disabled value distinct from an unset field.
type ReasoningSummary string

const (
	ReasoningSummaryAuto    ReasoningSummary = "auto"
	ReasoningSummaryConcise ReasoningSummary = "concise"
	ReasoningSummaryDetail  ReasoningSummary = "detailed"
	ReasoningSummaryOff     ReasoningSummary = "off"
)

// WireAPI is the request/response shape a provider expects.
type WireAPI string

const (
	WireResponses WireAPI = "responses"
	WireChat      WireAPI = "chat"
)

// ProviderKind tags the dispatch-level behavior of a custom provider.
type ProviderKind string

const (
	KindOpenAIResponses ProviderKind = "openai_responses"
	KindOllama          ProviderKind = "ollama"
	KindAnthropicClaude ProviderKind = "anthropic_claude"
)

// ReasoningControls configures provider-specific reasoning passthrough.
type ReasoningControls struct {
	ThinkEnabled             bool    `json:"think_enabled"`
	PostprocessReasoning     bool    `json:"postprocess_reasoning"`
	AnthropicBudgetTokens    *uint32 `json:"anthropic_budget_tokens,omitempty"`
	AnthropicBudgetWeight    *float32 `json:"anthropic_budget_weight,omitempty"`
}

// CustomProvider describes a user-defined provider entry.
type CustomProvider struct {
	Name              string            `json:"name"`
	BaseURL           string            `json:"base_url,omitempty"`
	WireAPI           WireAPI           `json:"wire_api"`
	DefaultModel      string            `json:"default_model,omitempty"`
	CachedModels      []string          `json:"cached_models,omitempty"`
	LastModelRefresh  *time.Time        `json:"last_model_refresh,omitempty"`
	ExtraHeaders      map[string]string `json:"extra_headers,omitempty"`
	ProviderKind      ProviderKind      `json:"provider_kind"`
	ReasoningControls ReasoningControls `json:"reasoning_controls"`
	PlanToolEnabled   bool              `json:"plan_tool_enabled"`

	// RequestsPerSecond paces outgoing requests to this provider when > 0;
	// Burst is the token-bucket capacity (defaults to 1 when unset).
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`
	Burst             int     `json:"burst,omitempty"`
}

// knownCodingPlanBaseURLSubstring is the substring that marks a Responses-API
// base URL as actually a coding-plan Chat-only endpoint.
const knownCodingPlanBaseURLSubstring = "open.bigmodel.cn/api/coding/paas/"

// EffectiveWireAPI applies the Responses→Chat coding-plan downgrade.
func (p CustomProvider) EffectiveWireAPI() WireAPI {
	if p.WireAPI == WireResponses && containsSubstring(p.BaseURL, knownCodingPlanBaseURLSubstring) {
		return WireChat
	}
	return p.WireAPI
}

func containsSubstring(haystack, needle string) bool {
	return needle != "" && len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

// ModelSettings is the `model.*` settings block.
type ModelSettings struct {
	Default          string           `json:"default,omitempty"`
	Provider         string           `json:"provider,omitempty"`
	ReasoningEffort  ReasoningEffort  `json:"reasoning_effort,omitempty"`
	ReasoningSummary ReasoningSummary `json:"reasoning_summary,omitempty"`
}

// OSSProviderSettings is the `providers.oss.*` settings block.
type OSSProviderSettings struct {
	Endpoint string `json:"endpoint,omitempty"`
}

// ProvidersSettings is the `providers.*` settings block.
type ProvidersSettings struct {
	OSS    OSSProviderSettings       `json:"oss"`
	Custom map[string]CustomProvider `json:"custom,omitempty"`
}

// IndexSettings is the `index.*` settings block.
type IndexSettings struct {
	Overlay           bool    `json:"overlay"`
	PostTurnRefresh   bool    `json:"post_turn_refresh"`
	RefreshMinSecs    int     `json:"refresh_min_secs"`
	SearchConfidenceMin float64 `json:"search_confidence_min"`
	ContextTokens     int     `json:"context_tokens"`

	// OverlapLines and RetrievalThreshold replace the legacy overloaded
	// retrieval_threshold key.
	OverlapLines      int     `json:"overlap_lines"`
	RetrievalThreshold float64 `json:"retrieval_threshold"`

	// HybridLexicalBoost enables an additive lexical-fusion knob on top of
	// cosine scoring; default off.
	HybridLexicalBoost bool `json:"hybrid_lexical_boost"`
}

// PromptsSettings is the `prompts.*` settings block.
type PromptsSettings struct {
	Default string `json:"default,omitempty"`
}

// ACPSettings is the `acp.*` settings block.
type ACPSettings struct {
	YoloWithSearch bool `json:"yolo_with_search"`
}

// Settings is the complete typed view over settings.json.
type Settings struct {
	Model     ModelSettings     `json:"model"`
	Providers ProvidersSettings `json:"providers"`
	Index     IndexSettings     `json:"index"`
	Prompts   PromptsSettings   `json:"prompts"`
	ACP       ACPSettings       `json:"acp"`
}

// Defaults returns the out-of-the-box settings values.
func Defaults() Settings {
	return Settings{
		Providers: ProvidersSettings{
			OSS: OSSProviderSettings{Endpoint: "http://localhost:11434"},
		},
		Index: IndexSettings{
			Overlay:             true,
			PostTurnRefresh:     true,
			RefreshMinSecs:      300,
			SearchConfidenceMin: 0.60,
		},
	}
}
