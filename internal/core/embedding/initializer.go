package embedding

import (
	"context"
	"fmt"
	"log/slog"
)

// InitStats はレジャー初期化の結果
type InitStats struct {
	Inserted       int // pending として登録
	InsertedFailed int // 表示名が空のため failed として登録
	AlreadyTracked int // 既にエントリが存在した
	Skipped        int // ID が空、または入力内で重複
}

// LedgerInitializer はセッションのレジャーエントリを登録する
type LedgerInitializer struct {
	store  Store
	logger *slog.Logger
}

// NewLedgerInitializer は新しい LedgerInitializer を作成する
func NewLedgerInitializer(store Store, logger *slog.Logger) *LedgerInitializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerInitializer{store: store, logger: logger}
}

// Initialize は items をセッションのレジャーに登録する
// 表示名が空のノードは "Empty node name" の failed エントリとして登録する
// 既存エントリは変更しないため、同じセッションで何度呼んでも安全
func (i *LedgerInitializer) Initialize(ctx context.Context, sessionID string, items []WorkItem) (*InitStats, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	var stats InitStats
	err := i.store.Transact(ctx, func(tx Store) error {
		stats = InitStats{}
		seen := make(map[string]struct{}, len(items))

		for _, item := range items {
			if item.ID == "" {
				stats.Skipped++
				continue
			}
			if _, dup := seen[item.ID]; dup {
				stats.Skipped++
				continue
			}
			seen[item.ID] = struct{}{}

			status := StatusPending
			var errorMessage *string
			if !item.HasName() {
				status = StatusFailed
				msg := EmptyNameMessage
				errorMessage = &msg
			}

			inserted, err := tx.InsertEntry(ctx, sessionID, item, status, errorMessage)
			if err != nil {
				return fmt.Errorf("failed to insert ledger entry %s: %w", item.ID, err)
			}

			switch {
			case !inserted:
				stats.AlreadyTracked++
			case status == StatusFailed:
				stats.InsertedFailed++
			default:
				stats.Inserted++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	i.logger.Info("レジャーを初期化",
		"sessionID", sessionID,
		"inserted", stats.Inserted,
		"insertedFailed", stats.InsertedFailed,
		"alreadyTracked", stats.AlreadyTracked,
		"skipped", stats.Skipped,
	)

	return &stats, nil
}
