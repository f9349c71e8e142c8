package memstore

import "path/filepath"

// Paths is the on-disk layout of one memory root:
// <memory_root>/{manifest.jsonl, hnsw/, lock, metrics.json, models/minicpm/}.
type Paths struct {
	Root string
}

func NewPaths(memoryRoot string) Paths { return Paths{Root: memoryRoot} }

func (p Paths) Manifest() string  { return filepath.Join(p.Root, "manifest.jsonl") }
func (p Paths) LockFile() string  { return filepath.Join(p.Root, "lock") }
func (p Paths) Metrics() string   { return filepath.Join(p.Root, "metrics.json") }
func (p Paths) HNSWDir() string   { return filepath.Join(p.Root, "hnsw") }
func (p Paths) GraphFile() string { return filepath.Join(p.HNSWDir(), "index.graph") }
func (p Paths) DataFile() string  { return filepath.Join(p.HNSWDir(), "index.data") }
func (p Paths) ModelsDir() string { return filepath.Join(p.Root, "models", "minicpm") }
