// Package chunker splits text into overlapping fixed-size windows with
// boundary snapping.
package chunker

import "strings"

// Chunk splits text into overlapping windows of at most chunkSize bytes.
// A window that does not reach the end of the text is snapped backward to
// the nearest newline after start+overlap, falling back to the nearest
// space, falling back to a hard cut. Each emitted chunk is trimmed and
// non-empty. overlap must be smaller than chunkSize.
func Chunk(text string, chunkSize, overlap int) []string {
	if text == "" {
		return nil
	}

	var chunks []string
	start := 0
	textLen := len(text)

	for start < textLen {
		end := start + chunkSize
		if end > textLen {
			end = textLen
		}

		if end < textLen {
			// Prefer newline boundaries (better semantic breaks), then spaces.
			snap := lastIndexInRange(text, '\n', start+overlap, end)
			if snap <= start {
				snap = lastIndexInRange(text, ' ', start+overlap, end)
			}
			if snap > start {
				end = snap
			}
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := end - overlap
		if next <= start {
			// Forced advance guarantees termination on pathological inputs.
			step := chunkSize - overlap
			if step < 1 {
				step = 1
			}
			next = start + step
		}
		start = next
	}

	return chunks
}

// lastIndexInRange returns the largest index i in [from, to) with text[i] == c,
// or -1 when the range is empty or c does not occur in it.
func lastIndexInRange(text string, c byte, from, to int) int {
	if from < 0 {
		from = 0
	}
	if to > len(text) {
		to = len(text)
	}
	if from >= to {
		return -1
	}
	i := strings.LastIndexByte(text[from:to], c)
	if i < 0 {
		return -1
	}
	return from + i
}
