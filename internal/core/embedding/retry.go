package embedding

import (
	"context"
	"fmt"
	"log/slog"
)

// RetryResetter は failed のエントリを pending に戻す
type RetryResetter struct {
	store  Store
	logger *slog.Logger
}

// NewRetryResetter は新しい RetryResetter を作成する
func NewRetryResetter(store Store, logger *slog.Logger) *RetryResetter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryResetter{store: store, logger: logger}
}

// Reset はセッション内の failed エントリを pending に戻し、件数を返す
// completed と pending のエントリは変更しない
func (r *RetryResetter) Reset(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, ErrSessionRequired
	}

	var reset int64
	err := r.store.Transact(ctx, func(tx Store) error {
		n, err := tx.ResetFailed(ctx, sessionID)
		if err != nil {
			return err
		}
		reset = n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to reset failed entries: %w", err)
	}

	r.logger.Info("失敗したエントリをリセット", "sessionID", sessionID, "count", reset)
	return reset, nil
}
