package processors

import (
	"strings"

	"github.com/BKrowchuk/Horizon/core"
)

const (
	DefaultChunkSizeWords = 500
	DefaultOverlapWords   = 50
)

// SplitIntoChunks splits transcript text into word windows of chunkSize words,
// consecutive windows sharing overlap words of context. Word count at or below
// chunkSize returns the text as a single chunk. Arguments are clamped so the
// window always advances; callers reject bad sizes before getting here.
func SplitIntoChunks(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSizeWords
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= chunkSize {
		return []string{text}
	}

	chunks := make([]string, 0, len(words)/(chunkSize-overlap)+1)
	start := 0
	for start < len(words) {
		end := start + chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end >= len(words) {
			break
		}
		start = end - overlap
	}
	return chunks
}

// ChunkTranscript produces typed chunks with positional ids; chunk id equals
// the chunk's index position for the lifetime of the build.
func ChunkTranscript(text string, chunkSize, overlap int) []core.TranscriptChunk {
	parts := SplitIntoChunks(text, chunkSize, overlap)
	chunks := make([]core.TranscriptChunk, len(parts))
	for i, part := range parts {
		chunks[i] = core.TranscriptChunk{ChunkID: i, Text: part}
	}
	return chunks
}

// WordChunker adapts the word-window splitter to the index store's Chunker.
type WordChunker struct {
	SizeWords    int
	OverlapWords int
}

func DefaultChunker() WordChunker {
	return WordChunker{SizeWords: DefaultChunkSizeWords, OverlapWords: DefaultOverlapWords}
}

func (c WordChunker) Chunk(text string) []core.TranscriptChunk {
	return ChunkTranscript(text, c.SizeWords, c.OverlapWords)
}

func (c WordChunker) Params() (int, int) {
	return c.SizeWords, c.OverlapWords
}
