package embedding

import (
	"errors"
	"fmt"
)

// EmptyNameMessage は表示名が空のノードに記録されるエラーメッセージ
const EmptyNameMessage = "Empty node name"

var (
	// ErrEmptyName は表示名が空のノードを表すバリデーションエラー
	ErrEmptyName = errors.New(EmptyNameMessage)

	// ErrTokenLimit は入力テキストがトークン上限を超えた場合のエラー
	ErrTokenLimit = errors.New("input exceeds token limit")

	// ErrConnection はストアへの接続に失敗した場合のエラー（起動時のみ、致命的）
	ErrConnection = errors.New("store unavailable")

	// ErrEntryNotFound は更新対象のレジャーエントリが存在しない場合のエラー
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrPromptUnavailable は対話プロンプトが使えない環境（非TTY）を表す
	ErrPromptUnavailable = errors.New("interactive prompt unavailable")

	// ErrSessionRequired はセッションIDが指定されていない場合のエラー
	ErrSessionRequired = errors.New("session ID is required")
)

// EmbeddingError は外部 Embedding 呼び出しの失敗
// メッセージは失敗内訳の集計に使われるため元のエラーをそのまま保持する
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return e.Err.Error()
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// PersistenceError はレジャー/結果ストアへの書き込み失敗
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// OutcomeKind はノード1件の処理結果の種類
type OutcomeKind int

const (
	// OutcomeEmbedded は Embedding を生成して保存した
	OutcomeEmbedded OutcomeKind = iota
	// OutcomeCaughtUp は既存の結果を検出してレジャーのみ completed にした
	OutcomeCaughtUp
	// OutcomeFailed は失敗としてレジャーに記録した
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeEmbedded:
		return "embedded"
	case OutcomeCaughtUp:
		return "caught_up"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ItemOutcome はノード1件の処理結果
// 例外ではなく値としてバッチループに返される
type ItemOutcome struct {
	ItemID string
	Kind   OutcomeKind
	Err    error
}

// Message はレジャーに記録するエラーメッセージを返す
func (o ItemOutcome) Message() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
