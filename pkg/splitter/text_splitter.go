package splitter

import (
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultWindowSize is the target size of one extraction window.
	DefaultWindowSize = 140
	// DefaultWindowOverlap keeps adjacent windows self-contained.
	DefaultWindowOverlap = 20
)

// TextSplitter wraps the langchaingo recursive character splitter, which
// prefers paragraph boundaries, then lines, then spaces.
type TextSplitter struct {
	splitter textsplitter.TextSplitter
}

// NewRecursiveCharacterTextSplitter creates a splitter with the given window
// size and overlap. Out-of-range values fall back to the defaults.
func NewRecursiveCharacterTextSplitter(windowSize, windowOverlap int) *TextSplitter {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if windowOverlap < 0 || windowOverlap >= windowSize {
		windowOverlap = DefaultWindowOverlap
	}

	ts := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(windowSize),
		textsplitter.WithChunkOverlap(windowOverlap),
	)

	return &TextSplitter{splitter: ts}
}

// SplitText splits text into overlapping windows.
func (ts *TextSplitter) SplitText(text string) ([]string, error) {
	return ts.splitter.SplitText(text)
}
