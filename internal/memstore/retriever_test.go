package memstore

import (
	"context"
	"testing"

	"codexcore/internal/embedclient"
)

func TestRetrieverFiltersByMinConfidenceAndReturnsEmptyWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	embedder := embedclient.NewDeterministic(8, true, 1)

	hi, _ := embedder.EmbedBatch(ctx, []string{"keep this one"})
	lo, _ := embedder.EmbedBatch(ctx, []string{"drop this one"})
	if _, err := store.Append(ctx, MemoryRecord{Summary: "keep", Embedding: hi[0], Confidence: 0.9}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Append(ctx, MemoryRecord{Summary: "drop", Embedding: lo[0], Confidence: 0.1}); err != nil {
		t.Fatal(err)
	}

	r := &Retriever{Store: store, Embedder: embedder}

	disabled, err := r.Retrieve(ctx, RetrieverSettings{Enabled: false}, "query", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(disabled) != 0 {
		t.Fatalf("expected no results when disabled, got %+v", disabled)
	}

	matches, err := r.Retrieve(ctx, RetrieverSettings{Enabled: true, MinConfidence: 0.5}, "keep this one", 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range matches {
		if m.Record.Confidence < 0.5 {
			t.Fatalf("returned match below threshold: %+v", m)
		}
	}
}

func TestRetrieverMarksPreviewConfirmation(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	embedder := embedclient.NewDeterministic(8, true, 1)
	emb, _ := embedder.EmbedBatch(ctx, []string{"some memory"})
	if _, err := store.Append(ctx, MemoryRecord{Summary: "mem", Embedding: emb[0], Confidence: 0.9}); err != nil {
		t.Fatal(err)
	}

	r := &Retriever{Store: store, Embedder: embedder}
	matches, err := r.Retrieve(ctx, RetrieverSettings{Enabled: true, Preview: PreviewEnabled}, "some memory", 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range matches {
		if !m.RequiresConfirmation {
			t.Fatal("expected preview-mode matches to require confirmation")
		}
	}
}
