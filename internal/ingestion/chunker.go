// Package ingestion handles document processing: chunking, indexing
// and pipeline orchestration.
package ingestion

import (
	"fmt"
	"strings"
)

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// sentenceBoundaries are tried in order when looking for a clean break
// near the end of a chunk.
var sentenceBoundaries = []string{". ", ".\n", "? ", "?\n", "! ", "!\n"}

// Chunker splits text into overlapping character-based chunks,
// preferring sentence boundaries so chunks stay coherent.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker. Size and overlap are in characters;
// zero values take the defaults. Overlap must stay below size or
// chunking would never advance.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size == 0 {
		size = DefaultChunkSize
	}
	if size < 0 {
		return nil, fmt.Errorf("ingestion: chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("ingestion: chunk overlap must be non-negative, got %d", overlap)
	}
	if overlap == 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		return nil, fmt.Errorf("ingestion: chunk overlap %d must be less than chunk size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk splits text into overlapping chunks. A chunk tries to end at
// the last sentence boundary past the midpoint of its window; without
// one it cuts at the size limit. Empty input yields no chunks, input
// within one window is returned whole.
func (c *Chunker) Chunk(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= c.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			if chunk := strings.TrimSpace(text[start:]); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}
		if cut := c.lastBoundary(text, start, end); cut > 0 {
			end = cut + 1
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = end - c.overlap
	}
	return chunks
}

// lastBoundary finds a sentence boundary in text[start:end] past the
// window midpoint, returning 0 when none qualifies. Boundary kinds are
// tried in order; the first kind with a qualifying hit wins.
func (c *Chunker) lastBoundary(text string, start, end int) int {
	window := text[start:end]
	for _, punct := range sentenceBoundaries {
		if idx := strings.LastIndex(window, punct); idx > c.size/2 {
			return start + idx
		}
	}
	return 0
}
