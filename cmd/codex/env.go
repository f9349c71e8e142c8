package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"codexcore/internal/embedclient"
	"codexcore/internal/llmclient"
	"codexcore/internal/provider"
	"codexcore/internal/settings"
)

// codexHome resolves CODEX_HOME,
// falling back to "~/.codex".
func codexHome() string {
	if v := os.Getenv("CODEX_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codex"
	}
	return filepath.Join(home, ".codex")
}

func loadSettings() (settings.Settings, error) {
	if path := os.Getenv("CODEX_SETTINGS_PATH"); path != "" {
		return settings.Load(path)
	}
	path, ok := settings.ResolvePath()
	if !ok {
		return settings.Defaults(), nil
	}
	return settings.Load(path)
}

// buildEndpoint resolves the active model/provider pair through
// internal/provider's ordered rule chain, then fills in the transport
// details (base URL, reasoning controls, extra headers) for whichever
// provider won.
func buildEndpoint(cfg settings.Settings, modelOverride string) llmclient.Endpoint {
	return resolveEndpoint(cfg, modelOverride, false)
}

func resolveEndpoint(cfg settings.Settings, modelOverride string, forceOSS bool) llmclient.Endpoint {
	resolved := provider.ResolveModelProvider(provider.Request{
		Settings: cfg, RequestedModel: modelOverride, ForceOSS: forceOSS,
	})
	kind := provider.Kind(resolved.ProviderOverride, cfg)

	ep := llmclient.Endpoint{
		Model:       resolved.Model,
		Kind:        kind,
		MaxRetries:  3,
		IdleTimeout: 30 * time.Second,
	}
	if cp, ok := cfg.Providers.Custom[resolved.ProviderOverride]; ok {
		ep.BaseURL = cp.BaseURL
		ep.ReasoningCtl = cp.ReasoningControls
		ep.ExtraHeaders = cp.ExtraHeaders
		if cp.RequestsPerSecond > 0 {
			burst := cp.Burst
			if burst <= 0 {
				burst = 1
			}
			ep.Limiter = llmclient.NewLimiter(cp.RequestsPerSecond, burst)
		}
	} else if resolved.OSSActive {
		ep.BaseURL = cfg.Providers.OSS.Endpoint
	}
	return ep
}

func buildEmbedder(cfg settings.Settings) embedclient.Embedder {
	return embedclient.NewHTTPClient(embedclient.Config{
		BaseURL:   cfg.Providers.OSS.Endpoint,
		Path:      "/api/embeddings",
		Timeout:   30 * time.Second,
		BatchSize: 32,
	}, 768)
}

func memoryRoot() string {
	return filepath.Join(codexHome(), "memory")
}

func projectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("codex: resolve working directory: %w", err)
	}
	return dir, nil
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
