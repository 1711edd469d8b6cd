package internal

import (
	"strings"
	"unicode/utf8"
)

var sentenceTerminators = []string{". ", "! ", "? "}

// SplitText splits text into pieces of at most maxSize bytes.
// Within the last overlap bytes of each window it cuts after the latest
// sentence terminator, else at the latest newline, else at the latest space,
// else exactly at maxSize. overlap is clamped to [0, maxSize]. Concatenating
// the pieces reproduces text.
func SplitText(text string, maxSize, overlap int) []string {
	chunks := SplitTextChunks(text, maxSize, overlap)
	pieces := make([]string, len(chunks))
	for i, chunk := range chunks {
		pieces[i] = chunk.Text
	}
	return pieces
}

// SplitTextChunks is SplitText with the byte offset of every piece
func SplitTextChunks(text string, maxSize, overlap int) []TextChunk {
	if text == "" {
		return nil
	}
	if maxSize <= 0 {
		return []TextChunk{{Offset: 0, Text: text}}
	}
	overlap = min(max(overlap, 0), maxSize)

	var chunks []TextChunk
	start := 0
	for start < len(text) {
		end := start + maxSize
		if end >= len(text) {
			chunks = append(chunks, TextChunk{Offset: start, Text: text[start:]})
			break
		}

		cut := findBreak(text, start, end, overlap)
		chunks = append(chunks, TextChunk{Offset: start, Text: text[start:cut]})
		start = cut
	}

	return chunks
}

// findBreak returns the cut point for the window text[start:end]; always > start
func findBreak(text string, start, end, overlap int) int {
	searchStart := max(start, end-overlap)
	window := text[searchStart:end]

	best := -1
	for _, terminator := range sentenceTerminators {
		if i := strings.LastIndex(window, terminator); i > best {
			best = i
		}
	}
	if best >= 0 {
		// keep the punctuation with the earlier chunk
		return searchStart + best + 1
	}

	if i := strings.LastIndexByte(window, '\n'); i >= 0 && searchStart+i > start {
		return searchStart + i
	}
	if i := strings.LastIndexByte(window, ' '); i >= 0 && searchStart+i > start {
		return searchStart + i
	}

	return hardCut(text, start, end)
}

// hardCut backs end off to a rune boundary so multi-byte characters stay whole
func hardCut(text string, start, end int) int {
	cut := end
	for cut > start && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut == start {
		_, size := utf8.DecodeRuneInString(text[start:])
		return start + size
	}
	return cut
}
