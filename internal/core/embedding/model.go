package embedding

import (
	"fmt"
	"strings"
	"time"
)

// Status はレジャーエントリの処理状態を表す
type Status string

const (
	// StatusPending は未処理（またはリトライ待ち）
	StatusPending Status = "pending"
	// StatusCompleted は Embedding 済み
	StatusCompleted Status = "completed"
	// StatusFailed は処理失敗
	StatusFailed Status = "failed"
)

// Valid は既知のステータスかどうかを返す
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// WorkItem は Embedding 対象の1ノードを表す
// 列挙のたびに生成され、それ自体は永続化されない
type WorkItem struct {
	ID          string
	Label       string
	DisplayName string
}

// HasName は表示名が空白以外の文字を含むかどうかを返す
func (w WorkItem) HasName() bool {
	return strings.TrimSpace(w.DisplayName) != ""
}

// EmbeddingInput は Embedding API に渡す入力テキストを組み立てる
// ラベルを前置してノード種別の文脈を与える
func (w WorkItem) EmbeddingInput() string {
	return fmt.Sprintf("%s: %s", w.Label, w.DisplayName)
}

// LedgerEntry は (セッション, ノード) ごとの処理状態
type LedgerEntry struct {
	ID           int64
	SessionID    string
	ItemID       string
	Label        string
	Status       Status
	ErrorMessage *string // Status が failed のときのみ設定される
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Result はノードごとの Embedding 結果
// セッションに依存せずノードIDで一意となる
type Result struct {
	ID          string
	DisplayName string
	Label       string
	Vector      []float32
	CreatedAt   time.Time
}

// StatusCounts はセッション内のステータス別件数
type StatusCounts struct {
	Pending   int
	Completed int
	Failed    int
}

// Total は全件数を返す
func (c StatusCounts) Total() int {
	return c.Pending + c.Completed + c.Failed
}

// SessionSummary はセッション単位の集計結果
type SessionSummary struct {
	SessionID   string
	Total       int
	Completed   int
	Failed      int
	Pending     int
	StartedAt   time.Time
	LastUpdated time.Time
}

// Incomplete は completed 以外のエントリが残っているかどうかを返す
func (s *SessionSummary) Incomplete() bool {
	return s.Failed+s.Pending > 0
}

// CompletionRate は完了率（%）を返す
func (s *SessionSummary) CompletionRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total) * 100
}

// FailureGroup はエラーメッセージ単位の失敗件数
type FailureGroup struct {
	ErrorMessage string
	Count        int
}
