package prompts

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/normanking/glimpse/pkg/types"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// CountTokens counts tokens with the cl100k_base encoding when it can be
// loaded, falling back to the chars/4 heuristic otherwise (the encoding
// data may be unavailable offline).
func CountTokens(text string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})

	if encoding == nil {
		return types.EstimateTokens(text)
	}
	return len(encoding.Encode(text, nil, nil))
}
