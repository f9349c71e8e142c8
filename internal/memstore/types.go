// Package memstore implements the global memory subsystem:
// an append-only JSONL manifest backed by an HNSW index, a background
// distiller that summarizes raw events into memory records, a model-artifact
// manager for the local summarization model, and a confidence-gated
// retriever.
package memstore

import "time"

// MemoryRecord is one distilled memory entry.
type MemoryRecord struct {
	ID         string         `json:"id"`
	Summary    string         `json:"summary"`
	Embedding  []float32      `json:"embedding"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Confidence float64        `json:"confidence"`
	Source     string         `json:"source"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`

	// RelatedIDs holds the ids of the k nearest existing records at the time
	// this one was appended, linking it into the rest of the memory graph.
	RelatedIDs []string `json:"related_ids,omitempty"`
}

// RecordUpdate patches a subset of a MemoryRecord's mutable fields; a nil
// field is left unchanged.
type RecordUpdate struct {
	Summary    *string
	Embedding  []float32
	Metadata   map[string]any
	Confidence *float64
	Source     *string
}

// MemoryMetrics are the atomically-persisted store counters.
type MemoryMetrics struct {
	RecordHit           int64 `json:"record_hit"`
	RecordMiss          int64 `json:"record_miss"`
	RecordPreviewAccept int64 `json:"record_preview_accept"`
	RecordPreviewSkip   int64 `json:"record_preview_skip"`
}

// MemoryStats summarizes a store for CLI/ACP reporting.
type MemoryStats struct {
	TotalRecords int           `json:"total_records"`
	EmbeddingDim int           `json:"embedding_dim"`
	Metrics      MemoryMetrics `json:"metrics"`
}

// MemoryEvent is one raw item enqueued for the distiller.
type MemoryEvent struct {
	Source   string
	Text     string
	Metadata map[string]any
	TS       time.Time
}

// QueryMatch is one result of Store.Query, paired with its cosine score.
type QueryMatch struct {
	Record MemoryRecord
	Score  float64
}
