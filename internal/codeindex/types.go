// Package codeindex builds and queries a semantic index of a project's text
// files: a walker honoring .index-ignore, a line-window chunker, a local
// embedder, and an HNSW approximate nearest-neighbor store
package codeindex

import (
	"path/filepath"
	"time"
)

// BuildOptions configures one index build
type BuildOptions struct {
	ProjectRoot    string
	BatchSize      int
	LinesPerChunk  int
	Overlap        int
	RequestedModel string

	// EmbedConcurrency bounds how many embedding batches are in flight to
	// the embedder at once. Batches still land in the ANN graph in their
	// original order regardless of which goroutine finishes first.
	EmbedConcurrency int
}

// Normalize applies the documented defaults and clamps overlap to
// lines_per_chunk - 1.
func (o BuildOptions) Normalize() BuildOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = 64
	}
	if o.LinesPerChunk <= 0 {
		o.LinesPerChunk = 40
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	if o.Overlap > o.LinesPerChunk-1 {
		o.Overlap = o.LinesPerChunk - 1
	}
	if o.EmbedConcurrency <= 0 {
		o.EmbedConcurrency = 4
	}
	return o
}

// ChunkRecord is one line-window chunk of a source file.
type ChunkRecord struct {
	FilePath        string `json:"file_path"`
	StartLine       int    `json:"start_line"`
	EndLine         int    `json:"end_line"`
	TextHash        string `json:"text_hash"`
	EmbeddingOffset int    `json:"embedding_offset"`
}

// Manifest is the build summary persisted at IndexPaths.Manifest.
type Manifest struct {
	EmbeddingModel string    `json:"embedding_model"`
	EmbeddingDim   int       `json:"embedding_dim"`
	TotalFiles     int       `json:"total_files"`
	TotalChunks    int       `json:"total_chunks"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Analytics tracks build attempt/success history for the auto-refresh policy.
type Analytics struct {
	LastAttemptTS time.Time `json:"last_attempt_ts"`
	LastSuccessTS time.Time `json:"last_success_ts"`
	Hits          int       `json:"hits"`
	Misses        int       `json:"misses"`
}

// IndexPaths is the deterministic on-disk layout for one project's index.
type IndexPaths struct {
	Root string
}

func NewIndexPaths(projectRoot string) IndexPaths {
	return IndexPaths{Root: filepath.Join(projectRoot, ".codex", "index")}
}

func (p IndexPaths) Manifest() string  { return filepath.Join(p.Root, "manifest.json") }
func (p IndexPaths) Meta() string      { return filepath.Join(p.Root, "meta.jsonl") }
func (p IndexPaths) Analytics() string { return filepath.Join(p.Root, "analytics.json") }
func (p IndexPaths) GraphFile() string { return filepath.Join(p.Root, "vectors.hnsw.graph") }
func (p IndexPaths) DataFile() string  { return filepath.Join(p.Root, "vectors.hnsw.data") }

// QueryHit is one ranked search result.
type QueryHit struct {
	Rank      int     `json:"rank"`
	Score     float64 `json:"score"`
	FilePath  string  `json:"file_path"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Snippet   string  `json:"snippet"`
}

// ProgressEventKind tags a build-progress event.
type ProgressEventKind string

const (
	ProgressStarted   ProgressEventKind = "started"
	ProgressUpdate    ProgressEventKind = "progress"
	ProgressCompleted ProgressEventKind = "completed"
	ProgressError     ProgressEventKind = "error"
)

// ProgressEvent is published to build subscribers.
type ProgressEvent struct {
	Kind ProgressEventKind

	TotalFiles int // Started

	ProcessedFiles  int // Progress
	ProcessedChunks int
	TotalChunks     int
	CurrentPath     string

	Summary Manifest // Completed

	Message string // Error
}

// VerifyResult is the result of checking an index's consistency.
type VerifyResult struct {
	ManifestChunks int  `json:"manifest_chunks"`
	MetaChunks     int  `json:"meta_chunks"`
	GraphPresent   bool `json:"graph_present"`
	DataPresent    bool `json:"data_present"`
	OK             bool `json:"ok"`
}

// SnapshotDiff reports file changes detected by the delta monitor.
type SnapshotDiff struct {
	Added    []string
	Modified []string
	Removed  []string
}

func (d SnapshotDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Removed) == 0
}
