package embedding

import (
	"context"

	"github.com/samber/mo"
)

// LedgerReader はレジャーの読み取り操作
type LedgerReader interface {
	// LatestIncompleteSession は completed 以外のエントリを持つ最も新しく更新されたセッションを返す
	LatestIncompleteSession(ctx context.Context) (mo.Option[*SessionSummary], error)
	// ListSessions は全セッションの集計を開始日時の新しい順に返す
	ListSessions(ctx context.Context) ([]*SessionSummary, error)
	// FailureBreakdown は failed エントリをエラーメッセージ別に件数の多い順で返す
	FailureBreakdown(ctx context.Context, sessionID string) ([]*FailureGroup, error)
	// CountByStatus はセッション内のステータス別件数を返す
	CountByStatus(ctx context.Context, sessionID string) (StatusCounts, error)
	// ListRemaining は pending/failed のエントリを登録順に返す
	ListRemaining(ctx context.Context, sessionID string) ([]*LedgerEntry, error)
}

// LedgerWriter はレジャーの書き込み操作
type LedgerWriter interface {
	// InsertEntry はエントリを登録する。既に存在する場合は何もせず false を返す
	InsertEntry(ctx context.Context, sessionID string, item WorkItem, status Status, errorMessage *string) (bool, error)
	MarkCompleted(ctx context.Context, sessionID, itemID string) error
	MarkFailed(ctx context.Context, sessionID, itemID, message string) error
	// ResetFailed は failed のエントリを pending に戻し、更新件数を返す
	ResetFailed(ctx context.Context, sessionID string) (int64, error)
}

// ResultStore は Embedding 結果の永続化
type ResultStore interface {
	ResultExists(ctx context.Context, id string) (bool, error)
	// UpsertResult は ID をキーに結果を挿入または更新する
	UpsertResult(ctx context.Context, result *Result) error
	GetResult(ctx context.Context, id string) (mo.Option[*Result], error)
}

// Store はレジャーと結果ストアをまとめたデータアクセス
// テスト時のモック用に消費者側で定義
type Store interface {
	LedgerReader
	LedgerWriter
	ResultStore

	// Transact は fn をトランザクション内で実行する
	// fn がエラーを返すかコミットに失敗した場合はロールバックされる
	// トランザクション内の Store から呼び出した場合はセーブポイントとして動作する
	Transact(ctx context.Context, fn func(tx Store) error) error
}

// Embedder はテキストをベクトルに変換する外部関数
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension は生成されるベクトルの次元数を返す（0 は未検証）
	Dimension() int
}

// TokenCounter は入力テキストのトークン数を数える
type TokenCounter interface {
	CountTokens(text string) int
}

// Throttle は Embedding 呼び出しの実行枠を待つ
type Throttle interface {
	Wait(ctx context.Context) error
}

// Enumerator は Embedding 対象のノードを列挙する
type Enumerator interface {
	Enumerate(ctx context.Context) ([]WorkItem, error)
}

// Prompter はオペレーターに yes/no を問い合わせる
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// SessionLocker はセッション単位の排他ロックを提供する
type SessionLocker interface {
	// LockSession はロックを取得し、解放関数を返す
	LockSession(ctx context.Context, sessionID string) (func(context.Context) error, error)
}
