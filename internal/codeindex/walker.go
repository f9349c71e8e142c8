package codeindex

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// builtinExcludeDirs lists target-directory exclusions (build output, VCS
// metadata, dependency caches) that a walk skips even without a
// .index-ignore entry.
var builtinExcludeDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, "target": true,
	"dist": true, "build": true, ".codex": true, ".idea": true, ".vscode": true,
}

// recognizedHiddenDocs allows specific hidden files through the
// hidden-dir exclusion (e.g. dotfile READMEs some projects keep at root).
var recognizedHiddenDocs = map[string]bool{
	".README.md": true,
}

// Walker enumerates candidate text files under a project root.
type Walker struct {
	root   string
	ignore *gitignore.GitIgnore
}

// NewWalker loads project_root/.index-ignore if present (gitignore-style
// syntax, lines appended after the built-in excludes).
func NewWalker(projectRoot string) (*Walker, error) {
	w := &Walker{root: projectRoot}
	path := filepath.Join(projectRoot, ".index-ignore")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			w.ignore = gitignore.CompileIgnoreLines()
			return w, nil
		}
		return nil, &FileWalkError{Path: path, Kind: FileWalkIgnoreError, Cause: err}
	}
	lines := strings.Split(string(data), "\n")
	ig, err := gitignore.CompileIgnoreLines(lines...)
	if err != nil {
		return nil, &FileWalkError{Path: path, Kind: FileWalkIgnoreError, Cause: err}
	}
	w.ignore = ig
	return w, nil
}

// Walk calls fn for every candidate text file under the project root, in
// lexical order, skipping excluded directories and binary/ignored files.
func (w *Walker) Walk(fn func(relPath, absPath string) error) error {
	return filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return &FileWalkError{Path: path, Kind: FileWalkStatError, Cause: err}
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}
		base := filepath.Base(path)
		if info.IsDir() {
			if builtinExcludeDirs[base] {
				return filepath.SkipDir
			}
			if strings.HasPrefix(base, ".") && base != "." {
				return filepath.SkipDir
			}
			if w.ignore.MatchesPath(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(base, ".") && !recognizedHiddenDocs[base] {
			return nil
		}
		if w.ignore.MatchesPath(rel) {
			return nil
		}
		if isLikelyBinary(path) {
			return nil
		}
		return fn(filepath.ToSlash(rel), path)
	})
}

// isLikelyBinary sniffs the first 512 bytes for a NUL byte, the same
// heuristic the standard http.DetectContentType path relies on internally.
func isLikelyBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()
	r := bufio.NewReader(f)
	buf := make([]byte, 512)
	n, _ := r.Read(buf)
	return bytes.IndexByte(buf[:n], 0) != -1
}
