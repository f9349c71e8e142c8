package codeindex

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"codexcore/internal/annindex"
	"codexcore/internal/embedclient"
)

// Builder runs the index build pipeline.
type Builder struct {
	Embedder embedclient.Embedder
}

// Build walks project_root, chunks every candidate text file, embeds the
// chunks in batches, builds an HNSW graph over the embeddings, and persists
// manifest/meta/graph atomically. Progress events are sent to emit as the
// pipeline advances; emit may be nil.
func (b *Builder) Build(ctx context.Context, opts BuildOptions, emit func(ProgressEvent)) (Manifest, error) {
	if emit == nil {
		emit = func(ProgressEvent) {}
	}
	opts = opts.Normalize()
	paths := NewIndexPaths(opts.ProjectRoot)
	if err := os.MkdirAll(paths.Root, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("codeindex: create index dir: %w", err)
	}

	analytics := loadAnalytics(paths)
	analytics.LastAttemptTS = time.Now()

	walker, err := NewWalker(opts.ProjectRoot)
	if err != nil {
		emit(ProgressEvent{Kind: ProgressError, Message: err.Error()})
		return Manifest{}, err
	}

	type fileEntry struct{ rel, abs string }
	var files []fileEntry
	if err := walker.Walk(func(rel, abs string) error {
		files = append(files, fileEntry{rel: rel, abs: abs})
		return nil
	}); err != nil {
		emit(ProgressEvent{Kind: ProgressError, Message: err.Error()})
		return Manifest{}, err
	}

	emit(ProgressEvent{Kind: ProgressStarted, TotalFiles: len(files)})

	var records []ChunkRecord
	var texts []string

	for i, f := range files {
		data, err := os.ReadFile(f.abs)
		if err != nil {
			emit(ProgressEvent{Kind: ProgressError, Message: err.Error()})
			continue
		}
		for _, lc := range ChunkLines(string(data), opts.LinesPerChunk, opts.Overlap) {
			records = append(records, ChunkRecord{
				FilePath: f.rel, StartLine: lc.StartLine, EndLine: lc.EndLine, TextHash: HashText(lc.Text),
			})
			texts = append(texts, lc.Text)
		}
		emit(ProgressEvent{
			Kind: ProgressUpdate, ProcessedFiles: i + 1, TotalFiles: len(files),
			ProcessedChunks: len(records), TotalChunks: len(records), CurrentPath: f.rel,
		})
	}

	// Batches are dispatched to the embedder EmbedConcurrency at a time; each
	// goroutine writes only its own slot in batchResults, so insertion into
	// the ANN graph below stays single-threaded and batch-ordered regardless
	// of which request the embedder answers first.
	type batchStart = int
	batchResults := map[batchStart][][]float32{}
	var resultsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.EmbedConcurrency)
	for start := 0; start < len(texts); start += opts.BatchSize {
		start := start
		end := start + opts.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]
		g.Go(func() error {
			embeddings, err := b.Embedder.EmbedBatch(gctx, batch)
			if err != nil {
				return fmt.Errorf("codeindex: embed batch at offset %d: %w", start, err)
			}
			resultsMu.Lock()
			batchResults[start] = embeddings
			resultsMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		analytics.Misses++
		saveAnalytics(paths, analytics)
		emit(ProgressEvent{Kind: ProgressError, Message: err.Error()})
		return Manifest{}, err
	}

	graph := annindex.New(annindex.DefaultParams())
	var dim int
	for start := 0; start < len(texts); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		for i, emb := range batchResults[start] {
			if dim == 0 {
				dim = len(emb)
			}
			idx := start + i
			id := graph.Insert(emb)
			records[idx].EmbeddingOffset = int(id)
		}
		emit(ProgressEvent{
			Kind: ProgressUpdate, ProcessedFiles: len(files), TotalFiles: len(files),
			ProcessedChunks: end, TotalChunks: len(texts),
		})
	}

	if err := writeMeta(paths, records); err != nil {
		emit(ProgressEvent{Kind: ProgressError, Message: err.Error()})
		return Manifest{}, err
	}
	if err := graph.Save(paths.GraphFile(), paths.DataFile()); err != nil {
		emit(ProgressEvent{Kind: ProgressError, Message: err.Error()})
		return Manifest{}, err
	}

	manifest := Manifest{
		EmbeddingModel: b.Embedder.Name(),
		EmbeddingDim:   dim,
		TotalFiles:     len(files),
		TotalChunks:    len(records),
		UpdatedAt:      time.Now(),
	}
	if err := writeManifest(paths, manifest); err != nil {
		emit(ProgressEvent{Kind: ProgressError, Message: err.Error()})
		return Manifest{}, err
	}

	analytics.LastSuccessTS = time.Now()
	analytics.Hits++
	saveAnalytics(paths, analytics)

	emit(ProgressEvent{Kind: ProgressCompleted, Summary: manifest})
	return manifest, nil
}

func writeManifest(paths IndexPaths, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(paths.Manifest(), data)
}

func writeMeta(paths IndexPaths, records []ChunkRecord) error {
	tmp := paths.Meta() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("codeindex: create meta: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, r := range records {
		b, err := json.Marshal(r)
		if err != nil {
			f.Close()
			return err
		}
		w.Write(b)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, paths.Meta())
}

func loadMeta(paths IndexPaths) ([]ChunkRecord, error) {
	data, err := os.ReadFile(paths.Meta())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []ChunkRecord
	for _, line := range splitLines(data) {
		if len(line) == 0 {
			continue
		}
		var r ChunkRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, &IndexCorruptionError{Cause: err}
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

func loadManifest(paths IndexPaths) (Manifest, error) {
	data, err := os.ReadFile(paths.Manifest())
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, &IndexManifestMissingError{ProjectRoot: filepath.Dir(filepath.Dir(paths.Root))}
		}
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, &IndexCorruptionError{Cause: err}
	}
	return m, nil
}

func loadAnalytics(paths IndexPaths) Analytics {
	data, err := os.ReadFile(paths.Analytics())
	if err != nil {
		return Analytics{}
	}
	var a Analytics
	if json.Unmarshal(data, &a) != nil {
		return Analytics{}
	}
	return a
}

func saveAnalytics(paths IndexPaths, a Analytics) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return
	}
	_ = atomicWrite(paths.Analytics(), data)
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
