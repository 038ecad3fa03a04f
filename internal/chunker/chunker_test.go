package chunker

import (
	"reflect"
	"strings"
	"testing"
)

func TestAssemble(t *testing.T) {
	c := New(DefaultOptions())

	tests := []struct {
		name      string
		sentences []string
		expected  []string
	}{
		{
			name:      "empty input",
			sentences: nil,
			expected:  nil,
		},
		{
			name:      "single sentence above minimum",
			sentences: []string{"Five words make a sentence."},
			expected:  []string{"Five words make a sentence."},
		},
		{
			name:      "single sentence below minimum dropped",
			sentences: []string{"Too short."},
			expected:  nil,
		},
		{
			name: "short sentences accumulate",
			sentences: []string{
				"One two.",
				"Three four.",
				"Five six.",
			},
			expected: []string{"One two. Three four. Five six."},
		},
		{
			name: "trailing short sentence merges into last chunk",
			sentences: []string{
				"This sentence has exactly six words.",
				"Tail bit.",
			},
			expected: []string{"This sentence has exactly six words. Tail bit."},
		},
		{
			name: "oversized sentence kept whole",
			sentences: []string{
				strings.Repeat("word ", 60) + "end.",
			},
			expected: []string{strings.TrimSpace(strings.Repeat("word ", 60) + "end.")},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			chunks := c.Assemble(test.sentences)

			var texts []string
			for _, chunk := range chunks {
				texts = append(texts, chunk.Text)
			}
			if !reflect.DeepEqual(texts, test.expected) {
				t.Errorf("Assemble() texts = %#v, want %#v", texts, test.expected)
			}
		})
	}
}

func TestAssembleFlushesBeforeOversizedSentence(t *testing.T) {
	c := New(Options{MinWordsPerChunk: 5, MaxWordsPerChunk: 10, MinChunkLength: 3})

	long := strings.TrimSpace(strings.Repeat("long ", 12) + "sentence.")
	sentences := []string{
		"Just four words here.",
		long,
		"A closing sentence with enough words.",
	}

	chunks := c.Assemble(sentences)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %#v", len(chunks), chunks)
	}
	if chunks[0].Text != "Just four words here." {
		t.Errorf("pending chunk not flushed before oversized sentence: %q", chunks[0].Text)
	}
	if chunks[1].Text != long {
		t.Errorf("oversized sentence was altered: %q", chunks[1].Text)
	}
}

func TestAssembleChunkInvariants(t *testing.T) {
	c := New(DefaultOptions())
	input := "The quick brown fox jumps over the lazy dog near the river bank. " +
		"A second sentence follows with several more words in it. " +
		"Short one. " +
		"Another moderately sized sentence arrives right here with words. " +
		"Final thought."

	chunks := c.Split(input)
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}

	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("chunk %d has index %d", i, chunk.Index)
		}
		if len(chunk.Text) < DefaultMinChunkLength {
			t.Errorf("chunk %d shorter than minimum length: %q", i, chunk.Text)
		}
		if chunk.Words != CountWords(chunk.Text) {
			t.Errorf("chunk %d word count mismatch: recorded %d, actual %d",
				i, chunk.Words, CountWords(chunk.Text))
		}
		// Every chunk except possibly the last stays within the word bounds.
		if i < len(chunks)-1 {
			if chunk.Words < DefaultMinWordsPerChunk || chunk.Words > DefaultMaxWordsPerChunk {
				t.Errorf("chunk %d word count %d outside [%d, %d]",
					i, chunk.Words, DefaultMinWordsPerChunk, DefaultMaxWordsPerChunk)
			}
		}
	}

	// Concatenating chunks reproduces the input modulo whitespace.
	var all []string
	for _, chunk := range chunks {
		all = append(all, chunk.Text)
	}
	got := strings.Join(strings.Fields(strings.Join(all, " ")), " ")
	want := strings.Join(strings.Fields(input), " ")
	if got != want {
		t.Errorf("chunks lost text:\n got %q\nwant %q", got, want)
	}
}

func TestAssembleIsDeterministic(t *testing.T) {
	c := New(DefaultOptions())
	sentences := []string{
		"The pipeline processes text deterministically.",
		"Same input must always give same output.",
		"No hidden state is allowed anywhere.",
	}

	first := c.Assemble(sentences)
	second := c.Assemble(sentences)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Assemble is not deterministic:\nfirst  %#v\nsecond %#v", first, second)
	}
}

func TestSplitAbbreviationScenario(t *testing.T) {
	c := New(DefaultOptions())
	input := "Dr. Smith went home. He was tired. The U.S. economy grew. It grew by 3%."

	chunks := c.Split(input)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}

	joined := strings.Join(strings.Fields(chunksText(chunks)), " ")
	if !strings.Contains(joined, "Dr. Smith") {
		t.Errorf("title abbreviation broken: %q", joined)
	}
	if !strings.Contains(joined, "U.S. economy") {
		t.Errorf("U.S. abbreviation broken: %q", joined)
	}
	want := strings.Join(strings.Fields(input), " ")
	if joined != want {
		t.Errorf("chunks do not cover all sentences:\n got %q\nwant %q", joined, want)
	}
}

func chunksText(chunks []Chunk) string {
	var parts []string
	for _, chunk := range chunks {
		parts = append(parts, chunk.Text)
	}
	return strings.Join(parts, " ")
}
