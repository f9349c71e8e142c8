package codeindex

import (
	"context"
	"os"
	"sort"
	"strings"

	"codexcore/internal/annindex"
	"codexcore/internal/embedclient"
)

// Querier answers search-code requests against a previously built index.
type Querier struct {
	Embedder embedclient.Embedder

	// HybridLexicalBoost blends a lexical substring-match rank into the
	// cosine rank via reciprocal rank fusion before confidence filtering,
	// instead of relying on cosine similarity alone.
	HybridLexicalBoost bool
}

// rrfK is the reciprocal-rank-fusion denominator constant.
const rrfK = 60

// Query implements query_index: load manifest + meta + graph,
// embed the query, search with ef = max(topK*4, 64), and slice the matching
// text window straight from disk.
func (q *Querier) Query(ctx context.Context, projectRoot, query string, topK int, model string) ([]QueryHit, error) {
	paths := NewIndexPaths(projectRoot)

	manifest, err := loadManifest(paths)
	if err != nil {
		return nil, err
	}

	records, err := loadMeta(paths)
	if err != nil {
		return nil, err
	}

	graph, err := annindex.Load(paths.GraphFile(), paths.DataFile())
	if err != nil {
		return nil, &IndexCorruptionError{Cause: err}
	}

	embeddings, err := q.Embedder.EmbedBatch(ctx, []string{query})
	if err != nil || len(embeddings) == 0 {
		return nil, err
	}
	if embeddings[0] != nil && manifest.EmbeddingDim > 0 && len(embeddings[0]) != manifest.EmbeddingDim {
		got := q.Embedder.Name()
		if model != "" {
			got = model
		}
		return nil, &EmbeddingModelMismatchError{Manifest: manifest.EmbeddingModel, Got: got}
	}

	if topK <= 0 {
		topK = 10
	}
	ef := topK * 4
	if ef < 64 {
		ef = 64
	}

	hits := graph.Search(embeddings[0], topK, ef)
	out := make([]QueryHit, 0, len(hits))
	for i, h := range hits {
		rec := findRecordByOffset(records, int(h.ID))
		if rec == nil {
			continue
		}
		snippet, err := readSnippet(projectRoot, rec.FilePath, rec.StartLine, rec.EndLine)
		if err != nil {
			continue
		}
		out = append(out, QueryHit{
			Rank: i + 1, Score: 1 - float64(h.Distance),
			FilePath: rec.FilePath, StartLine: rec.StartLine, EndLine: rec.EndLine, Snippet: snippet,
		})
	}
	if q.HybridLexicalBoost {
		out = fuseLexicalRank(out, query)
	}
	return out, nil
}

// fuseLexicalRank re-ranks vector-search hits by blending in a lexical
// substring-match rank via reciprocal rank fusion, so a chunk that contains
// the query text verbatim is not out-ranked by a merely-nearby embedding.
func fuseLexicalRank(hits []QueryHit, query string) []QueryHit {
	lexRank := make(map[int]int, len(hits))
	lexOrder := make([]int, len(hits))
	for i := range hits {
		lexOrder[i] = i
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	count := func(i int) int {
		if needle == "" {
			return 0
		}
		return strings.Count(strings.ToLower(hits[i].Snippet), needle)
	}
	sort.SliceStable(lexOrder, func(a, b int) bool {
		return count(lexOrder[a]) > count(lexOrder[b])
	})
	for rank, idx := range lexOrder {
		lexRank[idx] = rank + 1
	}

	fused := make([]float64, len(hits))
	for i := range hits {
		vecRRF := 1.0 / float64(rrfK+hits[i].Rank)
		lexRRF := 0.0
		if count(i) > 0 {
			lexRRF = 1.0 / float64(rrfK+lexRank[i])
		}
		fused[i] = 0.7*vecRRF + 0.3*lexRRF
	}

	order := make([]int, len(hits))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return fused[order[a]] > fused[order[b]] })

	out := make([]QueryHit, len(hits))
	for rank, idx := range order {
		h := hits[idx]
		h.Rank = rank + 1
		h.Score = fused[idx]
		out[rank] = h
	}
	return out
}

// WithConfidenceMin filters hits whose score is below threshold, per
// with_confidence_min.
func WithConfidenceMin(hits []QueryHit, threshold float64) []QueryHit {
	out := make([]QueryHit, 0, len(hits))
	for _, h := range hits {
		if h.Score >= threshold {
			out = append(out, h)
		}
	}
	return out
}

func findRecordByOffset(records []ChunkRecord, offset int) *ChunkRecord {
	for i := range records {
		if records[i].EmbeddingOffset == offset {
			return &records[i]
		}
	}
	return nil
}

func readSnippet(projectRoot, relPath string, startLine, endLine int) (string, error) {
	data, err := os.ReadFile(projectRoot + string(os.PathSeparator) + relPath)
	if err != nil {
		return "", err
	}
	lines := strings.Split(string(data), "\n")
	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > endLine {
		return "", nil
	}
	return strings.Join(lines[startLine-1:endLine], "\n"), nil
}
