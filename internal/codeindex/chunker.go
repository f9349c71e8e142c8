package codeindex

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// LineChunk is one overlapping line-window slice of a file, before hashing.
type LineChunk struct {
	StartLine int // 1-based, inclusive
	EndLine   int // 1-based, inclusive
	Text      string
}

// ChunkLines splits text into overlapping line-windows of size
// linesPerChunk with stride linesPerChunk-overlap.
func ChunkLines(text string, linesPerChunk, overlap int) []LineChunk {
	if linesPerChunk <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap > linesPerChunk-1 {
		overlap = linesPerChunk - 1
	}
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		return nil
	}

	stride := linesPerChunk - overlap
	if stride <= 0 {
		stride = 1
	}

	var out []LineChunk
	for start := 0; start < len(lines); start += stride {
		end := start + linesPerChunk
		if end > len(lines) {
			end = len(lines)
		}
		window := strings.Join(lines[start:end], "\n")
		out = append(out, LineChunk{StartLine: start + 1, EndLine: end, Text: window})
		if end == len(lines) {
			break
		}
	}
	return out
}

// HashText returns the sha256 hex digest of a chunk's text, used as the
// content fingerprint in each chunk record alongside file_path/start_line/
// end_line.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
