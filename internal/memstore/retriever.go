package memstore

import (
	"context"

	"codexcore/internal/embedclient"
)

// PreviewMode gates whether retrieved memories may be auto-injected into a
// prompt or require explicit user confirmation first.
type PreviewMode string

const (
	PreviewDisabled PreviewMode = "disabled"
	PreviewEnabled  PreviewMode = "enabled"
)

// RetrieverSettings mirrors the subset of memory settings the retriever
// consults.
type RetrieverSettings struct {
	Enabled       bool
	MinConfidence float64
	Preview       PreviewMode
}

// RetrievedMatch is one candidate returned by Retrieve, tagged with whether
// it still requires user confirmation before use.
type RetrievedMatch struct {
	QueryMatch
	RequiresConfirmation bool
}

// Retriever implements retrieve_for_text.
type Retriever struct {
	Store    *Store
	Embedder embedclient.Embedder
}

// Retrieve embeds query, searches the store, filters by min_confidence,
// and tags results for confirmation when preview_mode is enabled.
func (r *Retriever) Retrieve(ctx context.Context, settings RetrieverSettings, query string, k int) ([]RetrievedMatch, error) {
	if !settings.Enabled {
		return nil, nil
	}
	if k <= 0 {
		k = 10
	}

	embeddings, err := r.Embedder.EmbedBatch(ctx, []string{query})
	if err != nil || len(embeddings) == 0 {
		return nil, err
	}

	matches := r.Store.Query(embeddings[0], k)
	requiresConfirmation := settings.Preview == PreviewEnabled

	var out []RetrievedMatch
	for _, m := range matches {
		if m.Record.Confidence < settings.MinConfidence {
			continue
		}
		out = append(out, RetrievedMatch{QueryMatch: m, RequiresConfirmation: requiresConfirmation})
	}
	return out, nil
}
