package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/BurntSushi/toml"
	"github.com/pterm/pterm"
)

// legacyTOML mirrors the handful of fields a pre-JSON `codex.toml` override
// file might carry. It is intentionally narrow: only the fields that
// existed before the JSON settings format are accepted.
type legacyTOML struct {
	Model    string `toml:"model"`
	Provider string `toml:"provider"`
}

// Load reads and parses the settings file at path, applying defaults for any
// field the file leaves unset.
func Load(path string) (Settings, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("settings: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("settings: parse %s: %w", path, err)
	}
	migrateLegacyRetrievalThreshold(&cfg)
	return cfg, nil
}

// LoadWithLegacyTOML is Load plus an optional `codex.toml` overlay applied
// before the JSON file, so a legacy file at legacyPath seeds model/provider
// defaults that the JSON file can still override.
func LoadWithLegacyTOML(path, legacyPath string) (Settings, error) {
	cfg := Defaults()
	if legacyPath != "" {
		var lt legacyTOML
		if _, err := toml.DecodeFile(legacyPath, &lt); err == nil {
			if lt.Model != "" {
				cfg.Model.Default = lt.Model
			}
			if lt.Provider != "" {
				cfg.Model.Provider = lt.Provider
			}
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			migrateLegacyRetrievalThreshold(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("settings: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("settings: parse %s: %w", path, err)
	}
	migrateLegacyRetrievalThreshold(&cfg)
	return cfg, nil
}

// migrateLegacyRetrievalThreshold handles the old single
// `index.retrieval_threshold` key, which doubled as both the chunk overlap
// hint and a confidence threshold. When overlap_lines is left at zero and
// the legacy value is at least 1, OverlapLines is seeded from it so
// existing settings files keep working; RetrievalThreshold reads the same
// key directly.
func migrateLegacyRetrievalThreshold(cfg *Settings) {
	if cfg.Index.OverlapLines == 0 && cfg.Index.RetrievalThreshold != 0 {
		if cfg.Index.RetrievalThreshold >= 1 {
			cfg.Index.OverlapLines = int(cfg.Index.RetrievalThreshold)
		}
	}
}

// Persist rewrites the settings file at path and swaps the global snapshot
// atomically; every mutation is expected to go through Persist rather than
// writing the file directly.
func Persist(path string, cfg Settings) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("settings: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("settings: rename %s: %w", tmp, err)
	}
	storeGlobal(cfg)
	pterm.Success.Printfln("settings persisted to %s", path)
	return nil
}

// global holds the process-wide settings snapshot: one initialized object,
// read-only snapshots everywhere else.
var global atomic.Pointer[Settings]
var globalOnce sync.Once

// InitGlobal initializes the process-wide settings snapshot. Subsequent
// calls are no-ops; use persist-and-swap (Persist) to change it afterward.
func InitGlobal(cfg Settings) {
	globalOnce.Do(func() {
		storeGlobal(cfg)
	})
}

func storeGlobal(cfg Settings) {
	c := cfg
	global.Store(&c)
}

// Global returns a read-only snapshot of the process-wide settings. Callers
// must not mutate the returned value; use Persist to change settings.
func Global() Settings {
	if p := global.Load(); p != nil {
		return *p
	}
	d := Defaults()
	return d
}
