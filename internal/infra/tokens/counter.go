package tokens

import (
	"fmt"

	"github.com/marcosbolanos/pgvector-age/internal/core/embedding"
	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding は text-embedding-3 系モデルが使用するエンコーディング
const DefaultEncoding = "cl100k_base"

// Counter は tiktoken でトークン数を数える
type Counter struct {
	encoding *tiktoken.Tiktoken
}

// NewCounter は新しい Counter を作成する
// encoding が空の場合は cl100k_base を使用する
func NewCounter(encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return &Counter{encoding: enc}, nil
}

var _ embedding.TokenCounter = (*Counter)(nil)

// CountTokens はテキストのトークン数を返す
func (c *Counter) CountTokens(text string) int {
	if c.encoding == nil {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}
