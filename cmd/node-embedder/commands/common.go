package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/marcosbolanos/pgvector-age/internal/platform/config"
	"github.com/marcosbolanos/pgvector-age/internal/platform/container"
	"github.com/marcosbolanos/pgvector-age/internal/platform/logger"
)

const (
	// ExitFailedItems は失敗したノードが残った場合の終了コード
	ExitFailedItems = 2
	// ExitPendingItems は未処理のノードが残った場合の終了コード
	ExitPendingItems = 3
)

// EnvFlag は全コマンド共通の環境変数ファイル指定
func EnvFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}

// SessionFlag はセッションIDの指定
func SessionFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "session",
		Usage:    "セッションID",
		Required: true,
	}
}

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Container *container.ServiceContainer

	logCloser io.Closer
}

// LoadConfig は設定とロガーを初期化する
func LoadConfig(envFile string) (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, nil, err
	}
	appLogger, closer, err := logger.New(logger.Config{
		Level:  level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, appLogger, closer, nil
}

// NewAppContext は設定を読み込み、DBに接続して AppContext を作成する
// configure は設定の検証前に呼ばれ、コマンドラインフラグの反映に使う
func NewAppContext(ctx context.Context, envFile string, configure func(*config.Config), opts ...container.ContainerOption) (*AppContext, error) {
	cfg, appLogger, closer, err := LoadConfig(envFile)
	if err != nil {
		return nil, err
	}
	if configure != nil {
		configure(cfg)
	}
	if err := cfg.Validate(); err != nil {
		closer.Close()
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	opts = append([]container.ContainerOption{container.WithContainerLogger(appLogger)}, opts...)
	cont, err := container.NewContainer(ctx, cfg, opts...)
	if err != nil {
		closer.Close()
		return nil, err
	}

	return &AppContext{
		Config:    cfg,
		Container: cont,
		logCloser: closer,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close(ctx context.Context) {
	if ac.Container != nil {
		if err := ac.Container.Close(context.WithoutCancel(ctx)); err != nil {
			ac.Logger().Warn("failed to close resources", "error", err)
		}
	}
	if ac.logCloser != nil {
		ac.logCloser.Close()
	}
}

// Logger はAppContextのロガーを返す
func (ac *AppContext) Logger() *slog.Logger {
	if ac.Container != nil {
		return ac.Container.Logger()
	}
	return slog.Default()
}
