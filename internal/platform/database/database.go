package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcosbolanos/pgvector-age/internal/core/embedding"
)

// Database はデータベース接続プールを保持します
type Database struct {
	Pool *pgxpool.Pool
}

// ConnectionParams はデータベース接続パラメータ
type ConnectionParams struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	// LoadAGE が true の場合、接続ごとに Apache AGE を読み込み search_path を設定します
	LoadAGE bool
}

// ageSetup は AGE の cypher() 呼び出しに必要なセッション設定
var ageSetup = []string{
	"LOAD 'age'",
	`SET search_path = ag_catalog, "$user", public`,
}

// ConnString は pgx 形式の接続文字列を返します
func (p ConnectionParams) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host,
		p.Port,
		p.User,
		p.Password,
		p.DBName,
		p.SSLMode,
	)
}

// New は新しいデータベース接続を作成します
// 接続できない場合は embedding.ErrConnection をラップして返します
func New(ctx context.Context, params ConnectionParams) (*Database, error) {
	poolCfg, err := pgxpool.ParseConfig(params.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if params.LoadAGE {
		poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			for _, stmt := range ageSetup {
				if _, err := conn.Exec(ctx, stmt); err != nil {
					return fmt.Errorf("failed to prepare AGE session (%s): %w", stmt, err)
				}
			}
			return nil
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create connection pool: %v", embedding.ErrConnection, err)
	}

	// 接続テスト
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %v", embedding.ErrConnection, err)
	}

	return &Database{Pool: pool}, nil
}

// Close はデータベース接続を閉じます
func (db *Database) Close() {
	db.Pool.Close()
}
