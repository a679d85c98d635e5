package analyzer

import (
	"regexp"
	"strings"
)

// Mode selects a chunking strategy.
type Mode string

const (
	ModeParagraph Mode = "paragraph"
	ModeSentence  Mode = "sentence"
	ModeFixed     Mode = "fixed"
)

// DefaultOverlap is the fixed-window overlap used when the caller does not
// specify one.
const DefaultOverlap = 32

var (
	blankLineRun   = regexp.MustCompile(`\n\s*\n+`)
	sentencePieces = regexp.MustCompile(`[^.!?\n]+[.!?\n]*`)
)

// Chunk splits text into chunks per the given mode. maxTokens bounds chunk
// size for "sentence" and "fixed" modes; overlap applies only to "fixed".
func Chunk(text string, mode Mode, maxTokens, overlap int) []string {
	switch mode {
	case ModeSentence:
		return chunkBySentence(text, maxTokens)
	case ModeFixed:
		return chunkByFixedWindow(text, maxTokens, overlap)
	default:
		return chunkByParagraph(text)
	}
}

func chunkByParagraph(text string) []string {
	parts := blankLineRun.Split(text, -1)
	var chunks []string
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			chunks = append(chunks, trimmed)
		}
	}
	if len(chunks) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}
	return chunks
}

func chunkBySentence(text string, maxTokens int) []string {
	sentences := sentencePieces.FindAllString(text, -1)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder
	currentTokens := 0

	for _, s := range sentences {
		sentTokens := len(strings.Fields(s))
		if currentTokens > 0 && currentTokens+sentTokens > maxTokens {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			currentTokens = 0
		}
		current.WriteString(s)
		currentTokens += sentTokens
	}

	if strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	return chunks
}

func chunkByFixedWindow(text string, maxTokens, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxTokens <= 0 {
		return []string{strings.Join(words, " ")}
	}

	step := maxTokens - overlap
	if step <= 0 {
		step = maxTokens
	}

	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + maxTokens
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
