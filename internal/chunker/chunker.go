// Package chunker splits documents into overlapping token windows.
package chunker

import "errors"

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

var ErrInvalidOverlap = errors.New("chunk overlap must be smaller than chunk size")

// Encoder turns text into token ids and back.
type Encoder interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type Chunk struct {
	Source     string
	Index      int
	Text       string
	TokenStart int
	TokenEnd   int
}

type Splitter struct {
	encoder   Encoder
	chunkSize int
	overlap   int
}

type Option func(*Splitter)

// WithChunkSize sets the window size in tokens. Non-positive values are ignored.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

func New(encoder Encoder, opts ...Option) (*Splitter, error) {
	s := &Splitter{
		encoder:   encoder,
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.overlap >= s.chunkSize {
		return nil, ErrInvalidOverlap
	}

	return s, nil
}

func (s *Splitter) ChunkSize() int { return s.chunkSize }

func (s *Splitter) Overlap() int { return s.overlap }

// Split encodes text once and decodes each window [start, min(start+size, n)).
// The last window always ends at n.
func (s *Splitter) Split(source, text string) []Chunk {
	ids := s.encoder.Encode(text)
	n := len(ids)
	if n == 0 {
		return nil
	}

	step := s.chunkSize - s.overlap
	var chunks []Chunk

	for start := 0; ; start += step {
		end := start + s.chunkSize
		if end > n {
			end = n
		}

		chunks = append(chunks, Chunk{
			Source:     source,
			Index:      len(chunks),
			Text:       s.encoder.Decode(ids[start:end]),
			TokenStart: start,
			TokenEnd:   end,
		})

		if end == n {
			break
		}
	}

	return chunks
}
