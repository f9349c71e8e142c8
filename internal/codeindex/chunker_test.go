package codeindex

import (
	"strings"
	"testing"
)

func TestChunkLinesBoundary(t *testing.T) {
	lines := make([]string, 80)
	for i := range lines {
		lines[i] = "line"
	}
	text := strings.Join(lines, "\n")

	chunks := ChunkLines(text, 20, 5)
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	if chunks[0].StartLine != 1 || chunks[0].EndLine != 20 {
		t.Fatalf("first chunk = [%d,%d], want [1,20]", chunks[0].StartLine, chunks[0].EndLine)
	}
	last := chunks[len(chunks)-1]
	if last.EndLine != 80 {
		t.Fatalf("last chunk should reach EOF, got end=%d", last.EndLine)
	}
	for i := 1; i < len(chunks); i++ {
		stride := chunks[i].StartLine - chunks[i-1].StartLine
		if stride != 15 && chunks[i-1].EndLine != 80 {
			t.Fatalf("chunk %d stride = %d, want 15 (20-5 overlap)", i, stride)
		}
	}
}

func TestChunkLinesOverlapClampedBelowLinesPerChunk(t *testing.T) {
	chunks := ChunkLines(strings.Repeat("x\n", 10), 5, 99)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartLine <= chunks[i-1].StartLine {
			t.Fatalf("chunks must advance monotonically even with overlap clamp, got %+v then %+v", chunks[i-1], chunks[i])
		}
	}
}

func TestHashTextIsDeterministic(t *testing.T) {
	if HashText("abc") != HashText("abc") {
		t.Fatal("HashText must be deterministic")
	}
	if HashText("abc") == HashText("abd") {
		t.Fatal("HashText must distinguish different inputs")
	}
}
