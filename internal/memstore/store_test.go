package memstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// TestAppendRealignsEmbeddingDimension exercises scenario 4:
// inserting a 2-length embedding then a 4-length embedding leaves both
// records at length 4, with A's original values preserved in the prefix.
func TestAppendRealignsEmbeddingDimension(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	ctx := context.Background()
	if _, err := s.Append(ctx, MemoryRecord{Summary: "a", Embedding: []float32{1, 2}}); err != nil {
		t.Fatalf("Append A: %v", err)
	}
	if _, err := s.Append(ctx, MemoryRecord{Summary: "b", Embedding: []float32{1, 2, 3, 4}}); err != nil {
		t.Fatalf("Append B: %v", err)
	}

	all := s.LoadAll()
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}
	if len(all[0].Embedding) != 4 {
		t.Fatalf("record A embedding len = %d, want 4", len(all[0].Embedding))
	}
	if all[0].Embedding[0] != 1 || all[0].Embedding[1] != 2 {
		t.Fatalf("record A embedding prefix changed: %v", all[0].Embedding)
	}
	if all[0].Embedding[2] != 0 || all[0].Embedding[3] != 0 {
		t.Fatalf("record A embedding not zero-padded: %v", all[0].Embedding)
	}
}

// TestAppendLinksToNearestExistingRecord exercises the evolving-memory
// note-linking behavior: a newly appended record's related_ids names the
// closest prior records, not itself.
func TestAppendLinksToNearestExistingRecord(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	ctx := context.Background()
	a, err := s.Append(ctx, MemoryRecord{Summary: "a", Embedding: []float32{1, 0, 0}})
	if err != nil {
		t.Fatalf("Append A: %v", err)
	}
	if len(a.RelatedIDs) != 0 {
		t.Fatalf("first record RelatedIDs = %v, want empty", a.RelatedIDs)
	}

	b, err := s.Append(ctx, MemoryRecord{Summary: "b", Embedding: []float32{0.9, 0.1, 0}})
	if err != nil {
		t.Fatalf("Append B: %v", err)
	}
	if len(b.RelatedIDs) != 1 || b.RelatedIDs[0] != a.ID {
		t.Fatalf("RelatedIDs = %v, want [%s]", b.RelatedIDs, a.ID)
	}
}

// TestLoadManifestIgnoresTornTailLine exercises the manifest-atomicity
// invariant: a truncated trailing line (simulating an interrupted write) is
// dropped, while earlier committed records survive intact.
func TestLoadManifestIgnoresTornTailLine(t *testing.T) {
	dir := t.TempDir()
	paths := NewPaths(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `{"id":"1","summary":"one","confidence":0.5}` + "\n" +
		`{"id":"2","summary":"tw` // torn mid-write
	if err := os.WriteFile(paths.Manifest(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := loadManifest(paths)
	if err != nil {
		t.Fatalf("loadManifest: %v", err)
	}
	if len(records) != 1 || records[0].ID != "1" {
		t.Fatalf("records = %+v, want exactly record 1", records)
	}
}

func TestLoadManifestRejectsCorruptNonTailLine(t *testing.T) {
	dir := t.TempDir()
	paths := NewPaths(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `not json at all` + "\n" + `{"id":"2"}` + "\n"
	if err := os.WriteFile(paths.Manifest(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadManifest(paths); err == nil {
		t.Fatal("expected corruption error for a malformed non-tail line")
	}
}

func TestUpdateAndDeleteRoundtrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	rec, err := s.Append(ctx, MemoryRecord{Summary: "orig", Embedding: []float32{1}})
	if err != nil {
		t.Fatal(err)
	}

	newSummary := "patched"
	if _, err := s.Update(ctx, rec.ID, RecordUpdate{Summary: &newSummary}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	all := s.LoadAll()
	if all[0].Summary != "patched" {
		t.Fatalf("summary = %q, want patched", all[0].Summary)
	}

	deleted, err := s.Delete(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted.Summary != "patched" {
		t.Fatalf("deleted.Summary = %q, want patched", deleted.Summary)
	}
	if len(s.LoadAll()) != 0 {
		t.Fatal("expected empty store after delete")
	}
}

func TestResetClearsMetricsAndManifest(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	s.RecordHit()
	ctx := context.Background()
	if _, err := s.Append(ctx, MemoryRecord{Summary: "x", Embedding: []float32{1}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if len(s.LoadAll()) != 0 {
		t.Fatal("expected no records after reset")
	}
	if s.Stats().Metrics.RecordHit != 0 {
		t.Fatal("expected metrics cleared after reset")
	}
}

func TestQueryReturnsStoredRecords(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := s.Append(ctx, MemoryRecord{Summary: "a", Embedding: []float32{1, 0, 0}}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Append(ctx, MemoryRecord{Summary: "b", Embedding: []float32{0, 1, 0}}); err != nil {
		t.Fatal(err)
	}
	matches := s.Query([]float32{1, 0, 0}, 2)
	if len(matches) == 0 {
		t.Fatal("expected at least one match")
	}
	if matches[0].Record.Summary != "a" {
		t.Fatalf("closest match = %q, want a", matches[0].Record.Summary)
	}
}

func TestOpenCreatesLayout(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "hnsw")); err != nil {
		t.Fatal("expected hnsw dir created")
	}
	if _, err := os.Stat(filepath.Join(dir, "models", "minicpm")); err != nil {
		t.Fatal("expected models/minicpm dir created")
	}
}
