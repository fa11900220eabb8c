package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/marcosbolanos/pgvector-age/internal/core/embedding"
	"github.com/marcosbolanos/pgvector-age/internal/infra/postgres/sqlc"
	"github.com/samber/mo"
)

// conn は *pgxpool.Pool と pgx.Tx の共通部分です
// pgx.Tx の Begin はセーブポイントを作成します
type conn interface {
	sqlc.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store は embedding.Store を実装する PostgreSQL ストアです
type Store struct {
	db conn
	q  sqlc.Querier
}

// NewStore は新しい Store を作成します
func NewStore(db conn) *Store {
	return &Store{db: db, q: sqlc.New(db)}
}

// コンパイル時の型チェック
var _ embedding.Store = (*Store)(nil)

// Transact は fn をトランザクション内で実行します
// トランザクション内の Store から呼ばれた場合はセーブポイントになります
func (s *Store) Transact(ctx context.Context, fn func(tx embedding.Store) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(NewStore(tx)); err != nil {
		// キャンセル済みの ctx でもロールバックは送信する
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return fmt.Errorf("tx rollback failed: %v (original err: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// === Ledger ===

func (s *Store) LatestIncompleteSession(ctx context.Context) (mo.Option[*embedding.SessionSummary], error) {
	row, err := s.q.GetLatestIncompleteSession(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*embedding.SessionSummary](), nil
		}
		return mo.None[*embedding.SessionSummary](), fmt.Errorf("failed to get latest incomplete session: %w", err)
	}

	return mo.Some(&embedding.SessionSummary{
		SessionID:   row.SessionID,
		Total:       int(row.Total),
		Completed:   int(row.Completed),
		Failed:      int(row.Failed),
		Pending:     int(row.Pending),
		StartedAt:   PgtypeToTime(row.StartedAt),
		LastUpdated: PgtypeToTime(row.LastUpdated),
	}), nil
}

func (s *Store) ListSessions(ctx context.Context) ([]*embedding.SessionSummary, error) {
	rows, err := s.q.ListSessionSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]*embedding.SessionSummary, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, &embedding.SessionSummary{
			SessionID:   row.SessionID,
			Total:       int(row.Total),
			Completed:   int(row.Completed),
			Failed:      int(row.Failed),
			Pending:     int(row.Pending),
			StartedAt:   PgtypeToTime(row.StartedAt),
			LastUpdated: PgtypeToTime(row.LastUpdated),
		})
	}
	return sessions, nil
}

func (s *Store) FailureBreakdown(ctx context.Context, sessionID string) ([]*embedding.FailureGroup, error) {
	rows, err := s.q.ListFailureBreakdown(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list failure breakdown: %w", err)
	}

	groups := make([]*embedding.FailureGroup, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, &embedding.FailureGroup{
			ErrorMessage: row.ErrorMessage,
			Count:        int(row.Count),
		})
	}
	return groups, nil
}

func (s *Store) CountByStatus(ctx context.Context, sessionID string) (embedding.StatusCounts, error) {
	rows, err := s.q.CountLedgerByStatus(ctx, sessionID)
	if err != nil {
		return embedding.StatusCounts{}, fmt.Errorf("failed to count by status: %w", err)
	}

	var counts embedding.StatusCounts
	for _, row := range rows {
		switch embedding.Status(row.Status) {
		case embedding.StatusPending:
			counts.Pending = int(row.Count)
		case embedding.StatusCompleted:
			counts.Completed = int(row.Count)
		case embedding.StatusFailed:
			counts.Failed = int(row.Count)
		}
	}
	return counts, nil
}

func (s *Store) ListRemaining(ctx context.Context, sessionID string) ([]*embedding.LedgerEntry, error) {
	rows, err := s.q.ListRemainingLedgerEntries(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list remaining entries: %w", err)
	}

	entries := make([]*embedding.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, &embedding.LedgerEntry{
			ID:           row.ID,
			SessionID:    row.SessionID,
			ItemID:       row.NodeID,
			Label:        row.NodeLabel,
			Status:       embedding.Status(row.Status),
			ErrorMessage: PgtextToStringPtr(row.ErrorMessage),
			CreatedAt:    PgtypeToTime(row.CreatedAt),
			UpdatedAt:    PgtypeToTime(row.UpdatedAt),
		})
	}
	return entries, nil
}

func (s *Store) InsertEntry(ctx context.Context, sessionID string, item embedding.WorkItem, status embedding.Status, errorMessage *string) (bool, error) {
	n, err := s.q.InsertLedgerEntry(ctx, sqlc.InsertLedgerEntryParams{
		SessionID:    sessionID,
		NodeID:       item.ID,
		NodeLabel:    item.Label,
		Status:       string(status),
		ErrorMessage: StringPtrToPgtext(errorMessage),
	})
	if err != nil {
		return false, fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return n > 0, nil
}

func (s *Store) MarkCompleted(ctx context.Context, sessionID, itemID string) error {
	n, err := s.q.MarkLedgerCompleted(ctx, sqlc.MarkLedgerCompletedParams{
		SessionID: sessionID,
		NodeID:    itemID,
	})
	if err != nil {
		return fmt.Errorf("failed to mark completed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", embedding.ErrEntryNotFound, sessionID, itemID)
	}
	return nil
}

func (s *Store) MarkFailed(ctx context.Context, sessionID, itemID, message string) error {
	n, err := s.q.MarkLedgerFailed(ctx, sqlc.MarkLedgerFailedParams{
		SessionID:    sessionID,
		NodeID:       itemID,
		ErrorMessage: StringToNullableText(message),
	})
	if err != nil {
		return fmt.Errorf("failed to mark failed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", embedding.ErrEntryNotFound, sessionID, itemID)
	}
	return nil
}

func (s *Store) ResetFailed(ctx context.Context, sessionID string) (int64, error) {
	n, err := s.q.ResetFailedLedgerEntries(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to reset failed entries: %w", err)
	}
	return n, nil
}

// === Results ===

func (s *Store) ResultExists(ctx context.Context, id string) (bool, error) {
	exists, err := s.q.DocumentVectorExists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to check document vector: %w", err)
	}
	return exists, nil
}

func (s *Store) UpsertResult(ctx context.Context, result *embedding.Result) error {
	err := s.q.UpsertDocumentVector(ctx, sqlc.UpsertDocumentVectorParams{
		ID:        result.ID,
		NodeName:  result.DisplayName,
		NodeLabel: result.Label,
		Embedding: Float32ToVector(result.Vector),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert document vector: %w", err)
	}
	return nil
}

func (s *Store) GetResult(ctx context.Context, id string) (mo.Option[*embedding.Result], error) {
	row, err := s.q.GetDocumentVector(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*embedding.Result](), nil
		}
		return mo.None[*embedding.Result](), fmt.Errorf("failed to get document vector: %w", err)
	}

	return mo.Some(&embedding.Result{
		ID:          row.ID,
		DisplayName: row.NodeName,
		Label:       row.NodeLabel,
		Vector:      VectorToFloat32(row.Embedding),
		CreatedAt:   PgtypeToTime(row.CreatedAt),
	}), nil
}
