package chunking

import (
	"strings"
	"testing"
)

func TestSplitWindowGeometry(t *testing.T) {
	s := NewSplitter(1000, 200)
	text := strings.Repeat("a", 2200)

	chunks := s.Split(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 1000 || len(chunks[1]) != 1000 {
		t.Fatalf("expected full windows of 1000, got %d/%d", len(chunks[0]), len(chunks[1]))
	}
	if len(chunks[2]) != 600 {
		t.Fatalf("expected final truncated window of 600, got %d", len(chunks[2]))
	}
}

func TestSplitPrefixReconstruction(t *testing.T) {
	s := NewSplitter(50, 10)
	var b strings.Builder
	for i := 0; i < 137; i++ {
		b.WriteByte(byte('a' + i%26))
	}
	text := b.String()

	chunks := s.Split(text)
	if len(chunks) == 0 {
		t.Fatalf("expected chunks")
	}

	// Concatenating chunks with the overlap removed reconstructs the text.
	rebuilt := chunks[0]
	for _, c := range chunks[1:] {
		if len(c) > s.Overlap {
			rebuilt += c[s.Overlap:]
		}
	}
	if rebuilt != text {
		t.Fatalf("overlap-stripped concatenation does not reconstruct input")
	}

	step := s.ChunkSize - s.Overlap
	for i, c := range chunks {
		start := i * step
		if !strings.HasPrefix(text[start:], c) {
			t.Fatalf("chunk %d does not start at offset %d", i, start)
		}
	}
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	s := NewSplitter(1000, 200)
	chunks := s.Split("short")
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Fatalf("expected single untouched chunk, got %q", chunks)
	}
}

func TestSplitEmptyText(t *testing.T) {
	s := NewSplitter(1000, 200)
	if chunks := s.Split(""); chunks != nil {
		t.Fatalf("expected nil for empty text, got %v", chunks)
	}
}

func TestNewSplitterClampsDegenerateOverlap(t *testing.T) {
	s := NewSplitter(100, 100)
	if s.Overlap >= s.ChunkSize {
		t.Fatalf("expected overlap clamped below chunk size, got %d/%d", s.Overlap, s.ChunkSize)
	}
	chunks := s.Split(strings.Repeat("x", 500))
	if len(chunks) == 0 {
		t.Fatalf("expected progress through text with clamped overlap")
	}
}
