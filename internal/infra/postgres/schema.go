package postgres

import (
	"context"
	"fmt"

	"github.com/marcosbolanos/pgvector-age/internal/infra/postgres/sqlc"
)

// sql/schema/001_init.sql と同じ定義（ベクトル次元のみ可変）
const documentVectorsDDL = `CREATE TABLE IF NOT EXISTS document_vectors (
		id TEXT PRIMARY KEY,
		node_name TEXT NOT NULL,
		node_label TEXT NOT NULL,
		embedding vector(%d) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

var ledgerStatements = []string{
	`CREATE TABLE IF NOT EXISTS embedding_progress (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL,
		node_id TEXT NOT NULL,
		node_label TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('pending', 'completed', 'failed')),
		error_message TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (session_id, node_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_embedding_progress_session_status ON embedding_progress (session_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_embedding_progress_node_id ON embedding_progress (node_id)`,
}

// EnsureSchema は拡張・テーブル・インデックスが存在しなければ作成します
func EnsureSchema(ctx context.Context, db sqlc.DBTX, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension: %d", dimension)
	}

	statements := append([]string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(documentVectorsDDL, dimension),
	}, ledgerStatements...)

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
