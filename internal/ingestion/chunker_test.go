package ingestion

import (
	"strings"
	"testing"
)

func TestNewChunkerValidation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "defaults", size: 0, overlap: 0},
		{name: "custom", size: 500, overlap: 100},
		{name: "negative size", size: -1, overlap: 0, wantErr: true},
		{name: "negative overlap", size: 500, overlap: -1, wantErr: true},
		{name: "overlap equals size", size: 200, overlap: 200, wantErr: true},
		{name: "overlap exceeds size", size: 100, overlap: 150, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewChunker(tt.size, tt.overlap)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if c == nil {
				t.Fatal("nil chunker")
			}
		})
	}
}

func TestChunkEmpty(t *testing.T) {
	c, _ := NewChunker(0, 0)
	if chunks := c.Chunk(""); chunks != nil {
		t.Errorf("empty input produced %d chunks", len(chunks))
	}
}

func TestChunkShortText(t *testing.T) {
	c, _ := NewChunker(1000, 200)
	chunks := c.Chunk("A short regulation note.")
	if len(chunks) != 1 || chunks[0] != "A short regulation note." {
		t.Errorf("chunks = %v, want single verbatim chunk", chunks)
	}
}

func TestChunkOverlap(t *testing.T) {
	// Text with no sentence boundaries forces hard cuts at the size
	// limit, making the overlap arithmetic easy to verify.
	text := strings.Repeat("a", 250)
	c, err := NewChunker(100, 20)
	if err != nil {
		t.Fatal(err)
	}

	chunks := c.Chunk(text)
	if len(chunks) != 3 {
		t.Fatalf("len = %d, want 3", len(chunks))
	}
	if len(chunks[0]) != 100 {
		t.Errorf("first chunk length = %d, want 100", len(chunks[0]))
	}
	// Second chunk starts at 80, so the first 20 chars repeat.
	if len(chunks[1]) != 100 {
		t.Errorf("second chunk length = %d, want 100", len(chunks[1]))
	}
	// Final chunk covers 160..250.
	if len(chunks[2]) != 90 {
		t.Errorf("final chunk length = %d, want 90", len(chunks[2]))
	}
}

func TestChunkPrefersSentenceBoundary(t *testing.T) {
	first := strings.Repeat("x", 70) + ". "
	text := first + strings.Repeat("y", 200)
	c, err := NewChunker(100, 10)
	if err != nil {
		t.Fatal(err)
	}

	chunks := c.Chunk(text)
	// The period sits past the window midpoint, so the first chunk ends
	// there instead of at the hard 100-char limit.
	if !strings.HasSuffix(chunks[0], ".") {
		t.Errorf("first chunk = %q, want sentence-boundary cut", chunks[0])
	}
	if len(chunks[0]) != 71 {
		t.Errorf("first chunk length = %d, want 71", len(chunks[0]))
	}
}

func TestChunkNoMidpointBoundary(t *testing.T) {
	// A period before the midpoint must not shrink the chunk.
	text := "ab. " + strings.Repeat("z", 300)
	c, err := NewChunker(100, 10)
	if err != nil {
		t.Fatal(err)
	}

	chunks := c.Chunk(text)
	if len(chunks[0]) != 100 {
		t.Errorf("first chunk length = %d, want hard cut at 100", len(chunks[0]))
	}
}
