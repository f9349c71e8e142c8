package memstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	crdberrors "github.com/cockroachdb/errors"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"codexcore/internal/annindex"
	"codexcore/internal/observability"
)

// annParams matches HNSW parameters exactly.
func annParams() annindex.Params {
	return annindex.Params{MaxConnections: 32, EfConstruction: 200, MaxLayer: 16}
}

// Store is the global memory manifest plus its HNSW index, guarded by a
// cross-process file lock against concurrent writes from other codex
// processes.
type Store struct {
	paths Paths

	mu      sync.RWMutex
	records []MemoryRecord
	graph   *annindex.Graph
	metrics MemoryMetrics
}

// Open loads (or initializes) a memory store rooted at memoryRoot.
func Open(memoryRoot string) (*Store, error) {
	paths := NewPaths(memoryRoot)
	if err := os.MkdirAll(paths.HNSWDir(), 0o755); err != nil {
		return nil, fmt.Errorf("memstore: create root: %w", err)
	}
	if err := os.MkdirAll(paths.ModelsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("memstore: create models dir: %w", err)
	}

	records, err := loadManifest(paths)
	if err != nil {
		return nil, err
	}
	metrics := loadMetrics(paths)

	s := &Store{paths: paths, records: records, metrics: metrics}
	s.graph = s.buildGraph()
	return s, nil
}

// withLock runs fn while holding the store's cross-process lock file.
func (s *Store) withLock(ctx context.Context, fn func() error) error {
	lock := flock.New(s.paths.LockFile())
	lockCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ok, err := lock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil || !ok {
		return &LockTimeoutError{Path: s.paths.LockFile()}
	}
	defer lock.Unlock()
	return fn()
}

// Append aligns the record's embedding dimension against the existing
// maximum, links it to the k nearest existing records, appends it to the
// manifest, and rebuilds the HNSW index.
func (s *Store) Append(ctx context.Context, rec MemoryRecord) (MemoryRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now()
	rec.CreatedAt, rec.UpdatedAt = now, now

	err := s.withLock(ctx, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.records = append(s.records, rec)
		s.realignDimensions()
		newIdx := len(s.records) - 1
		s.graph = s.buildGraph()
		s.records[newIdx].RelatedIDs = s.generateLinksLocked(newIdx, 5)
		if err := s.writeManifestLocked(); err != nil {
			observability.LoggerWithTrace(ctx).Warn().Err(err).Str("record_id", rec.ID).Msg("memstore_append_write_failed")
			return err
		}
		rec = s.records[newIdx]
		return nil
	})
	return rec, err
}

// generateLinksLocked finds the k existing records nearest to
// s.records[idx]'s embedding, excluding the record itself. Caller holds s.mu
// and has already rebuilt s.graph to include idx.
func (s *Store) generateLinksLocked(idx, k int) []string {
	ef := k * 4
	if ef < 64 {
		ef = 64
	}
	hits := s.graph.Search(s.records[idx].Embedding, k+1, ef)
	out := make([]string, 0, k)
	for _, h := range hits {
		if int(h.ID) == idx || int(h.ID) < 0 || int(h.ID) >= len(s.records) {
			continue
		}
		out = append(out, s.records[h.ID].ID)
		if len(out) == k {
			break
		}
	}
	return out
}

// Update patches summary/embedding/metadata/confidence/source on an
// existing record, sets updated_at, rewrites the manifest, and rebuilds.
func (s *Store) Update(ctx context.Context, id string, patch RecordUpdate) (MemoryRecord, error) {
	var updated MemoryRecord
	err := s.withLock(ctx, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		idx := s.indexOfLocked(id)
		if idx < 0 {
			return &RecordNotFoundError{ID: id}
		}
		rec := &s.records[idx]
		if patch.Summary != nil {
			rec.Summary = *patch.Summary
		}
		if patch.Embedding != nil {
			rec.Embedding = patch.Embedding
		}
		if patch.Metadata != nil {
			rec.Metadata = patch.Metadata
		}
		if patch.Confidence != nil {
			rec.Confidence = *patch.Confidence
		}
		if patch.Source != nil {
			rec.Source = *patch.Source
		}
		rec.UpdatedAt = time.Now()

		s.realignDimensions()
		if err := s.writeManifestLocked(); err != nil {
			return err
		}
		s.graph = s.buildGraph()
		updated = s.records[s.indexOfLocked(id)]
		return nil
	})
	return updated, err
}

// Delete removes a record by id and returns the prior value.
func (s *Store) Delete(ctx context.Context, id string) (MemoryRecord, error) {
	var removed MemoryRecord
	err := s.withLock(ctx, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		idx := s.indexOfLocked(id)
		if idx < 0 {
			return &RecordNotFoundError{ID: id}
		}
		removed = s.records[idx]
		s.records = append(s.records[:idx], s.records[idx+1:]...)
		if err := s.writeManifestLocked(); err != nil {
			return err
		}
		s.graph = s.buildGraph()
		return nil
	})
	return removed, err
}

// Reset rewrites the manifest with no records, clears metrics, and rebuilds
// an empty in-memory index. The manifest file is emptied, not deleted, and
// the hnsw/ directory is left in place.
func (s *Store) Reset(ctx context.Context) error {
	return s.withLock(ctx, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.records = nil
		s.metrics = MemoryMetrics{}
		if err := s.writeManifestLocked(); err != nil {
			return err
		}
		if err := saveMetrics(s.paths, s.metrics); err != nil {
			return err
		}
		s.graph = s.buildGraph()
		return nil
	})
}

// Rebuild reconstructs the HNSW index from the current in-memory records.
func (s *Store) Rebuild() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = s.buildGraph()
}

// Fetch returns the records matching the given ids, in manifest order.
func (s *Store) Fetch(ids []string) []MemoryRecord {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []MemoryRecord
	for _, r := range s.records {
		if want[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// LoadAll returns a snapshot of every record; readers take this snapshot
// before acquiring the file lock rather than holding it across a scan.
func (s *Store) LoadAll() []MemoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MemoryRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Query searches the HNSW index for the top_k nearest records to embedding.
func (s *Store) Query(embedding []float32, topK int) []QueryMatch {
	if topK <= 0 {
		topK = 10
	}
	ef := topK * 4
	if ef < 64 {
		ef = 64
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.graph == nil {
		return nil
	}
	hits := s.graph.Search(embedding, topK, ef)
	out := make([]QueryMatch, 0, len(hits))
	for _, h := range hits {
		if int(h.ID) < 0 || int(h.ID) >= len(s.records) {
			continue
		}
		out = append(out, QueryMatch{Record: s.records[h.ID], Score: 1 - float64(h.Distance)})
	}
	return out
}

// Stats reports the current record count, embedding dimension, and metrics.
func (s *Store) Stats() MemoryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dim := 0
	if len(s.records) > 0 {
		dim = len(s.records[len(s.records)-1].Embedding)
	}
	return MemoryStats{TotalRecords: len(s.records), EmbeddingDim: dim, Metrics: s.metrics}
}

// RecordHit/RecordMiss/RecordPreviewAccept/RecordPreviewSkip bump and
// persist the named metric counter atomically.
func (s *Store) RecordHit()           { s.bump(func(m *MemoryMetrics) { m.RecordHit++ }) }
func (s *Store) RecordMiss()          { s.bump(func(m *MemoryMetrics) { m.RecordMiss++ }) }
func (s *Store) RecordPreviewAccept() { s.bump(func(m *MemoryMetrics) { m.RecordPreviewAccept++ }) }
func (s *Store) RecordPreviewSkip()   { s.bump(func(m *MemoryMetrics) { m.RecordPreviewSkip++ }) }

func (s *Store) bump(fn func(*MemoryMetrics)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.metrics)
	_ = saveMetrics(s.paths, s.metrics)
}

func (s *Store) indexOfLocked(id string) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

// realignDimensions enforces a single embedding dimension across the
// store: zero-pad shorter embeddings, truncate longer ones, to the max
// length across all records. Must be called with s.mu held.
func (s *Store) realignDimensions() {
	max := 0
	for _, r := range s.records {
		if len(r.Embedding) > max {
			max = len(r.Embedding)
		}
	}
	for i := range s.records {
		e := s.records[i].Embedding
		if len(e) == max {
			continue
		}
		aligned := make([]float32, max)
		n := len(e)
		if n > max {
			n = max
		}
		copy(aligned, e[:n])
		s.records[i].Embedding = aligned
	}
}

func (s *Store) buildGraph() *annindex.Graph {
	g := annindex.New(annParams())
	for _, r := range s.records {
		g.Insert(r.Embedding)
	}
	return g
}

func (s *Store) writeManifestLocked() error {
	tmp := s.paths.Manifest() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return crdberrors.WithHintf(
			crdberrors.Wrap(err, "memstore: create manifest"),
			"check that %s is writable and its parent directory exists", s.paths.Manifest())
	}
	w := bufio.NewWriter(f)
	for _, r := range s.records {
		b, err := json.Marshal(r)
		if err != nil {
			f.Close()
			return crdberrors.Wrapf(err, "memstore: marshal record %s", r.ID)
		}
		w.Write(b)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return crdberrors.Wrap(err, "memstore: flush manifest")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return crdberrors.Wrap(err, "memstore: sync manifest")
	}
	if err := f.Close(); err != nil {
		return crdberrors.Wrap(err, "memstore: close manifest")
	}
	return os.Rename(tmp, s.paths.Manifest())
}

// loadManifest reads every complete JSONL line. A decode failure on the
// final line is treated as a torn write from an interrupted append and is
// silently dropped (manifest-atomicity invariant); a decode
// failure on any earlier line is real corruption.
func loadManifest(paths Paths) ([]MemoryRecord, error) {
	data, err := os.ReadFile(paths.Manifest())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	lines := splitLines(data)
	var out []MemoryRecord
	for i, line := range lines {
		if len(line) == 0 {
			continue
		}
		var r MemoryRecord
		if err := json.Unmarshal(line, &r); err != nil {
			if i == len(lines)-1 {
				break
			}
			return nil, &ManifestCorruptionError{Line: i, Cause: err}
		}
		out = append(out, r)
	}
	return out, nil
}

func splitLines(data []byte) [][]byte {
	var out [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			out = append(out, data[start:i])
			start = i + 1
		}
	}
	if start < len(data) {
		out = append(out, data[start:])
	}
	return out
}

func loadMetrics(paths Paths) MemoryMetrics {
	data, err := os.ReadFile(paths.Metrics())
	if err != nil {
		return MemoryMetrics{}
	}
	var m MemoryMetrics
	if json.Unmarshal(data, &m) != nil {
		return MemoryMetrics{}
	}
	return m
}

func saveMetrics(paths Paths, m MemoryMetrics) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := paths.Metrics() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, paths.Metrics())
}
