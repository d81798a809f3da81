package chunking

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenLength counts tokens with the tiktoken encoding used by model.
func TokenLength(model string) (LengthFunc, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding for %s: %w", model, err)
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}, nil
}

// LazyTokenLength defers loading the tiktoken encoding to the first count.
// onErr is called once when the encoding cannot be loaded and fallback is used instead.
func LazyTokenLength(model string, fallback LengthFunc, onErr func(error)) LengthFunc {
	return LazyLength(func() (LengthFunc, error) { return TokenLength(model) }, fallback, onErr)
}

// LazyLength calls load once, on first use.
func LazyLength(load func() (LengthFunc, error), fallback LengthFunc, onErr func(error)) LengthFunc {
	var (
		once   sync.Once
		length LengthFunc
	)
	return func(text string) int {
		once.Do(func() {
			fn, err := load()
			if err != nil {
				if onErr != nil {
					onErr(err)
				}
				fn = fallback
			}
			length = fn
		})
		return length(text)
	}
}

// ApproxTokenLength assumes roughly four runes per token.
func ApproxTokenLength(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}
