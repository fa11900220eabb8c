package embedding

import (
	"context"
	"fmt"
)

// ProgressReporter はレジャーの集計を提供する読み取り専用サービス
type ProgressReporter struct {
	ledger LedgerReader
}

// NewProgressReporter は新しい ProgressReporter を作成する
func NewProgressReporter(ledger LedgerReader) *ProgressReporter {
	return &ProgressReporter{ledger: ledger}
}

// ListSessions は全セッションの集計を開始日時の新しい順に返す
func (p *ProgressReporter) ListSessions(ctx context.Context) ([]*SessionSummary, error) {
	sessions, err := p.ledger.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// FailureBreakdown はセッションの失敗をエラーメッセージ別に集計する
func (p *ProgressReporter) FailureBreakdown(ctx context.Context, sessionID string) ([]*FailureGroup, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	groups, err := p.ledger.FailureBreakdown(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get failure breakdown: %w", err)
	}
	return groups, nil
}
