package chunker

import (
	"strings"
)

// Default chunking bounds. Chunks below the word minimum keep accumulating
// sentences; chunks above the word maximum are only produced when a single
// sentence alone exceeds it, because sentences are never split mid-way.
const (
	DefaultMinChunkLength   = 3
	DefaultMinWordsPerChunk = 5
	DefaultMaxWordsPerChunk = 50
)

// Chunk is a bounded, sentence-aligned span of text produced by the
// assembler. Chunks are never mutated after creation; Index records the
// 0-based position within the originating text.
type Chunk struct {
	Index int
	Text  string
	Words int
}

// Options configures the chunking bounds.
type Options struct {
	// MinChunkLength is the minimum character length for a sentence
	// fragment to survive segmentation.
	MinChunkLength int

	// MinWordsPerChunk is the word count below which sentences keep
	// accumulating into the current chunk.
	MinWordsPerChunk int

	// MaxWordsPerChunk is the word count above which the current chunk is
	// flushed before the next sentence starts a new one.
	MaxWordsPerChunk int
}

// DefaultOptions returns the standard chunking bounds.
func DefaultOptions() Options {
	return Options{
		MinChunkLength:   DefaultMinChunkLength,
		MinWordsPerChunk: DefaultMinWordsPerChunk,
		MaxWordsPerChunk: DefaultMaxWordsPerChunk,
	}
}

// Chunker splits text into sentences and assembles them into chunks.
// A Chunker is immutable and safe for concurrent use.
type Chunker struct {
	opts Options
}

// New creates a Chunker with the given options. Zero or negative bounds
// fall back to the defaults.
func New(opts Options) *Chunker {
	if opts.MinChunkLength <= 0 {
		opts.MinChunkLength = DefaultMinChunkLength
	}
	if opts.MinWordsPerChunk <= 0 {
		opts.MinWordsPerChunk = DefaultMinWordsPerChunk
	}
	if opts.MaxWordsPerChunk <= 0 {
		opts.MaxWordsPerChunk = DefaultMaxWordsPerChunk
	}
	return &Chunker{opts: opts}
}

// CountWords reports the number of whitespace-separated words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Assemble greedily merges ordered sentences into chunks bounded by word
// count. It is a pure function: the same sentence list always yields the
// same chunk list. Undersized trailing content is merged into the last
// emitted chunk when that does not overflow the maximum; if no chunk was
// emitted at all, the trailing content is dropped and the result is empty.
func (c *Chunker) Assemble(sentences []string) []Chunk {
	var chunks []Chunk
	currentChunk := ""

	emit := func(text string) {
		text = strings.TrimSpace(text)
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  text,
			Words: CountWords(text),
		})
	}

	for _, sentence := range sentences {
		potential := sentence
		if currentChunk != "" {
			potential = currentChunk + " " + sentence
		}

		words := CountWords(potential)
		switch {
		case words < c.opts.MinWordsPerChunk:
			currentChunk = potential
		case words <= c.opts.MaxWordsPerChunk:
			emit(potential)
			currentChunk = ""
		default:
			// Too large: flush what we had and let this sentence start
			// over, even when it alone exceeds the maximum.
			if currentChunk != "" {
				emit(currentChunk)
			}
			currentChunk = sentence
		}
	}

	if currentChunk != "" {
		if CountWords(currentChunk) >= c.opts.MinWordsPerChunk {
			emit(currentChunk)
		} else if len(chunks) > 0 {
			last := &chunks[len(chunks)-1]
			combined := last.Text + " " + strings.TrimSpace(currentChunk)
			if CountWords(combined) <= c.opts.MaxWordsPerChunk {
				last.Text = combined
				last.Words = CountWords(combined)
			}
		}
		// Otherwise the input was too short to form any chunk.
	}

	return chunks
}

// Split segments raw text into sentences and assembles them into chunks.
func (c *Chunker) Split(text string) []Chunk {
	return c.Assemble(c.Segment(text))
}
