package chunker

import "fmt"

const (
	DefaultSize    = 1800
	DefaultOverlap = 200
)

// Chunk is a contiguous slice of a document. Start and End are rune offsets.
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
}

// Window splits text into fixed-size chunks that overlap by a fixed number of characters.
type Window struct {
	size    int
	overlap int
}

func NewWindow(size, overlap int) (*Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than size %d", overlap, size)
	}

	return &Window{size: size, overlap: overlap}, nil
}

func (w *Window) Size() int    { return w.size }
func (w *Window) Overlap() int { return w.overlap }

// Split returns the chunks of text. The last chunk always ends at the end of the text.
// Empty text yields no chunks.
func (w *Window) Split(text string) []Chunk {
	runes := []rune(text)
	n := len(runes)

	var chunks []Chunk
	for start := 0; start < n; {
		end := min(start+w.size, n)
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})
		if end == n {
			break
		}
		start = max(0, end-w.overlap)
	}

	return chunks
}
