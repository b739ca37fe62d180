package splitter

import (
	"strings"
	"testing"
)

func TestSplitTextWindowSize(t *testing.T) {
	ts := NewRecursiveCharacterTextSplitter(DefaultWindowSize, DefaultWindowOverlap)

	text := strings.Repeat("one two three four five six seven eight nine ten. ", 20)
	chunks, err := ts.SplitText(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple windows for long text, got %d", len(chunks))
	}
	for i, c := range chunks {
		// RecursiveCharacter targets the window size but may exceed it
		// slightly when no separator exists inside the window.
		if len(c) > 2*DefaultWindowSize {
			t.Errorf("window %d has length %d, far above target %d", i, len(c), DefaultWindowSize)
		}
	}
}

func TestSplitTextPrefersParagraphBoundaries(t *testing.T) {
	ts := NewRecursiveCharacterTextSplitter(60, 0)

	text := "first paragraph stands alone\n\nsecond paragraph stands alone"
	chunks, err := ts.SplitText(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d windows, want 2 (split on paragraph boundary)", len(chunks))
	}
	if !strings.Contains(chunks[0], "first") || !strings.Contains(chunks[1], "second") {
		t.Errorf("unexpected windows: %q", chunks)
	}
}

func TestSplitTextDefaultsApplied(t *testing.T) {
	// Degenerate parameters must not panic the underlying splitter.
	ts := NewRecursiveCharacterTextSplitter(0, -1)
	chunks, err := ts.SplitText("short")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Errorf("got %q, want [short]", chunks)
	}
}
