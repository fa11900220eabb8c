package testing

import (
	"context"

	"github.com/marcosbolanos/pgvector-age/internal/core/embedding"
)

// StubEmbedder はテスト用の Embedder です
// EmbedFunc が未設定の場合は Dim 次元（未設定なら3次元）の固定ベクトルを返します
type StubEmbedder struct {
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)
	Dim       int
	Calls     []string
}

func (e *StubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.Calls = append(e.Calls, text)
	if e.EmbedFunc != nil {
		return e.EmbedFunc(ctx, text)
	}
	dim := e.Dim
	if dim == 0 {
		dim = 3
	}
	vector := make([]float32, dim)
	for i := range vector {
		vector[i] = float32(i+1) / 10
	}
	return vector, nil
}

func (e *StubEmbedder) Dimension() int {
	return e.Dim
}

// StubPrompter はテスト用の Prompter です
type StubPrompter struct {
	Answer bool
	Err    error
	Asked  int
}

func (p *StubPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	p.Asked++
	if p.Err != nil {
		return false, p.Err
	}
	return p.Answer, nil
}

// StubEnumerator はテスト用の Enumerator です
type StubEnumerator struct {
	Items []embedding.WorkItem
	Err   error
}

func (e *StubEnumerator) Enumerate(ctx context.Context) ([]embedding.WorkItem, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Items, nil
}

// StubLocker はテスト用の SessionLocker です
type StubLocker struct {
	Err      error
	Locked   []string
	Released []string
}

func (l *StubLocker) LockSession(ctx context.Context, sessionID string) (func(context.Context) error, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	l.Locked = append(l.Locked, sessionID)
	return func(context.Context) error {
		l.Released = append(l.Released, sessionID)
		return nil
	}, nil
}

// StubTokenCounter はテスト用の TokenCounter です（1文字1トークン）
type StubTokenCounter struct{}

func (StubTokenCounter) CountTokens(text string) int {
	return len([]rune(text))
}

// Items はテスト用の WorkItem を組み立てます
func Items(pairs ...[2]string) []embedding.WorkItem {
	items := make([]embedding.WorkItem, 0, len(pairs))
	for _, p := range pairs {
		items = append(items, embedding.WorkItem{ID: p[0], Label: "Concept", DisplayName: p[1]})
	}
	return items
}
