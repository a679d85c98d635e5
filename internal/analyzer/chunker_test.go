package analyzer

import (
	"reflect"
	"strings"
	"testing"
)

func TestChunk_Paragraph_SplitsOnBlankLines(t *testing.T) {
	text := "first paragraph here\n\nsecond paragraph here\n\n\nthird one"
	chunks := Chunk(text, ModeParagraph, 0, 0)
	want := []string{"first paragraph here", "second paragraph here", "third one"}
	if !reflect.DeepEqual(chunks, want) {
		t.Errorf("got %v, want %v", chunks, want)
	}
}

func TestChunk_Paragraph_NoBlankLines_YieldsWholeText(t *testing.T) {
	text := "a single paragraph\nwith an internal newline"
	chunks := Chunk(text, ModeParagraph, 0, 0)
	if len(chunks) != 1 || chunks[0] != text {
		t.Errorf("expected whole text as one chunk, got %v", chunks)
	}
}

func TestChunk_Paragraph_EmptyText_YieldsNothing(t *testing.T) {
	if chunks := Chunk("  \n\n  ", ModeParagraph, 0, 0); len(chunks) != 0 {
		t.Errorf("expected no chunks for blank text, got %v", chunks)
	}
}

func TestChunk_Sentence_AccumulatesUpToMaxTokens(t *testing.T) {
	text := "One two three. Four five six. Seven eight nine."
	chunks := Chunk(text, ModeSentence, 6, 0)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if !strings.Contains(chunks[0], "One two three") || !strings.Contains(chunks[0], "Four five six") {
		t.Errorf("first chunk should hold the first two sentences, got %q", chunks[0])
	}
	if !strings.Contains(chunks[1], "Seven eight nine") {
		t.Errorf("second chunk should hold the third sentence, got %q", chunks[1])
	}
}

func TestChunk_Sentence_SingleOversizedSentence_StillEmitted(t *testing.T) {
	text := "one two three four five six seven."
	chunks := Chunk(text, ModeSentence, 3, 0)
	if len(chunks) != 1 {
		t.Errorf("an oversized single sentence must still be emitted whole, got %v", chunks)
	}
}

func TestChunk_Fixed_WindowsWithOverlap(t *testing.T) {
	words := make([]string, 10)
	for i := range words {
		words[i] = string(rune('a' + i))
	}
	text := strings.Join(words, " ")

	chunks := Chunk(text, ModeFixed, 4, 2)
	want := []string{
		"a b c d",
		"c d e f",
		"e f g h",
		"g h i j",
	}
	if !reflect.DeepEqual(chunks, want) {
		t.Errorf("got %v, want %v", chunks, want)
	}
}

func TestChunk_Fixed_OverlapAtLeastWindow_StillAdvances(t *testing.T) {
	text := "a b c d e f"
	chunks := Chunk(text, ModeFixed, 2, 5)
	if len(chunks) != 3 {
		t.Fatalf("expected the window to advance by its full width, got %v", chunks)
	}
}

func TestChunk_Fixed_ShortText_SingleChunk(t *testing.T) {
	chunks := Chunk("just three words", ModeFixed, 100, 32)
	if len(chunks) != 1 || chunks[0] != "just three words" {
		t.Errorf("got %v", chunks)
	}
}

func TestChunk_UnknownMode_FallsBackToParagraph(t *testing.T) {
	chunks := Chunk("para one\n\npara two", Mode(""), 0, 0)
	if len(chunks) != 2 {
		t.Errorf("expected paragraph fallback, got %v", chunks)
	}
}
