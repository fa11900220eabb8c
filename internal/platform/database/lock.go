package database

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrLockNotAcquired は別プロセスが同じセッションを処理中の場合のエラー
var ErrLockNotAcquired = errors.New("session is locked by another process")

// Locker は PostgreSQL のセッションスコープのアドバイザリロックでセッションを排他します
type Locker struct {
	pool *pgxpool.Pool
}

// NewLocker は新しい Locker を作成します
func NewLocker(pool *pgxpool.Pool) *Locker {
	return &Locker{pool: pool}
}

// GenerateLockID は文字列からロックIDを生成します
func GenerateLockID(parts ...string) int64 {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
	}
	hash := h.Sum(nil)

	// ハッシュの最初の8バイトをint64として使用
	var id int64
	for i := range 8 {
		id = (id << 8) | int64(hash[i])
	}

	return id
}

// LockSession はセッションのロックを取得し、解放関数を返します
// アドバイザリロックは接続に紐づくため、解放までコネクションを保持します
func (l *Locker) LockSession(ctx context.Context, sessionID string) (func(context.Context) error, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	lockID := GenerateLockID("embedding_session", sessionID)

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&locked); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to acquire advisory lock: %w", err)
	}
	if !locked {
		conn.Release()
		return nil, fmt.Errorf("%w: %s", ErrLockNotAcquired, sessionID)
	}

	release := func(ctx context.Context) error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", lockID); err != nil {
			return fmt.Errorf("failed to release advisory lock: %w", err)
		}
		return nil
	}
	return release, nil
}
