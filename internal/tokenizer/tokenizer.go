// Package tokenizer wraps tiktoken BPE encodings with an embedded vocabulary
// so counting and chunking never reach the network.
package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const DefaultEncoding = "cl100k_base"

var loaderOnce sync.Once

type Tokenizer struct {
	encoding string
	bpe      *tiktoken.Tiktoken
}

func New(encoding string) (*Tokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}

	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	bpe, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %s: %w", encoding, err)
	}

	return &Tokenizer{encoding: encoding, bpe: bpe}, nil
}

func (t *Tokenizer) Encoding() string {
	return t.encoding
}

func (t *Tokenizer) Encode(text string) []int {
	return t.bpe.Encode(text, nil, nil)
}

// Decode returns the text for tokens. A token slice that splits a multibyte
// character decodes the partial bytes as U+FFFD, so the result is always valid
// UTF-8.
func (t *Tokenizer) Decode(tokens []int) string {
	return strings.ToValidUTF8(t.bpe.Decode(tokens), "\uFFFD")
}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	return len(t.Encode(text))
}
