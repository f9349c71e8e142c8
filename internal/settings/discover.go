package settings

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// candidateScore ranks a settings-file candidate path: deeper ancestors
// score higher, presence of recognized directory components
// scores higher, and paths under cwd or the executable's directory score
// higher still.
func candidateScore(path string, cwd string, exeDir string) int {
	score := strings.Count(filepath.ToSlash(path), "/")
	for _, marker := range []string{".codex", "codex-rs", "openai-codex"} {
		if strings.Contains(path, marker) {
			score += 10
		}
	}
	if cwd != "" && strings.HasPrefix(path, cwd) {
		score += 5
	}
	if exeDir != "" && strings.HasPrefix(path, exeDir) {
		score += 3
	}
	return score
}

// candidatePaths returns the ordered candidate list, highest priority first:
//  1. $CODEX_SETTINGS_PATH (explicit override, always wins if present)
//  2. ancestors' .codex/settings.json
//  3. ancestors' codex-rs/settings.json
//  4. $CODEX_HOME/settings.json
//  5. ~/.codex/settings.json
func candidatePaths() []string {
	var out []string
	if explicit := strings.TrimSpace(os.Getenv("CODEX_SETTINGS_PATH")); explicit != "" {
		out = append(out, explicit)
	}

	cwd, _ := os.Getwd()
	dir := cwd
	for dir != "" {
		out = append(out, filepath.Join(dir, ".codex", "settings.json"))
		out = append(out, filepath.Join(dir, "codex-rs", "settings.json"))
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if home := strings.TrimSpace(os.Getenv("CODEX_HOME")); home != "" {
		out = append(out, filepath.Join(home, "settings.json"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		out = append(out, filepath.Join(home, ".codex", "settings.json"))
	}
	return out
}

// memoizedPath concentrates settings-path resolution's process-lifetime
// memoization into one guarded variable instead of scattering a
// package-level var write across call sites.
var memoizedPath struct {
	sync.Once
	path  string
	found bool
}

// ResolvePath returns the first candidate path that exists on disk,
// preferring the highest-scoring one among those found at the same
// filesystem depth tier. The result is memoized for the process lifetime;
// call ResetResolutionForTest to clear it in tests.
func ResolvePath() (string, bool) {
	memoizedPath.Do(func() {
		if explicit := strings.TrimSpace(os.Getenv("CODEX_SETTINGS_PATH")); explicit != "" {
			if _, err := os.Stat(explicit); err == nil {
				memoizedPath.path = explicit
				memoizedPath.found = true
				return
			}
		}

		cwd, _ := os.Getwd()
		exeDir := ""
		if exe, err := os.Executable(); err == nil {
			exeDir = filepath.Dir(exe)
		}

		var best string
		bestScore := -1
		for _, c := range candidatePaths() {
			if c == "" {
				continue
			}
			if _, err := os.Stat(c); err != nil {
				continue
			}
			s := candidateScore(c, cwd, exeDir)
			if s > bestScore {
				bestScore = s
				best = c
			}
		}
		if best != "" {
			memoizedPath.path = best
			memoizedPath.found = true
		}
	})
	return memoizedPath.path, memoizedPath.found
}

// ResetResolutionForTest clears the memoized path. Tests only.
func ResetResolutionForTest() {
	memoizedPath = struct {
		sync.Once
		path  string
		found bool
	}{}
}
