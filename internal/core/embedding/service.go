package embedding

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// RunParams は1回の実行パラメータ
type RunParams struct {
	Session SessionOptions
}

// RunResult は1回の実行結果
type RunResult struct {
	Resolution *Resolution
	Init       *InitStats
	Summary    *RunSummary
}

// Service はセッション解決からバッチ処理までを順に実行する
type Service struct {
	store      Store
	enumerator Enumerator
	resolver   *SessionResolver
	runner     *BatchRunner
	locker     SessionLocker
	out        io.Writer
	logger     *slog.Logger
}

type serviceOptions struct {
	locker SessionLocker
	out    io.Writer
	logger *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*serviceOptions)

// WithServiceLogger はロガーを設定する
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// WithSessionLocker はセッションの排他ロックを設定する
func WithSessionLocker(locker SessionLocker) ServiceOption {
	return func(o *serviceOptions) {
		o.locker = locker
	}
}

// WithServiceOutput は進捗表示の出力先を設定する
func WithServiceOutput(w io.Writer) ServiceOption {
	return func(o *serviceOptions) {
		o.out = w
	}
}

// NewService は新しい Service を作成する
func NewService(store Store, enumerator Enumerator, resolver *SessionResolver, runner *BatchRunner, opts ...ServiceOption) *Service {
	options := serviceOptions{
		out:    io.Discard,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.out == nil {
		options.out = io.Discard
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &Service{
		store:      store,
		enumerator: enumerator,
		resolver:   resolver,
		runner:     runner,
		locker:     options.locker,
		out:        options.out,
		logger:     options.logger,
	}
}

// Run はセッションを解決し、レジャーを初期化して残りのノードを処理する
func (s *Service) Run(ctx context.Context, params RunParams) (*RunResult, error) {
	resolution, err := s.resolver.Resolve(ctx, params.Session)
	if err != nil {
		return nil, err
	}
	result := &RunResult{Resolution: resolution}

	if resolution.Resumed {
		fmt.Fprintf(s.out, "Resuming session: %s\n", resolution.SessionID)
	} else {
		fmt.Fprintf(s.out, "Starting new session: %s\n", resolution.SessionID)
	}

	if s.locker != nil {
		release, err := s.locker.LockSession(ctx, resolution.SessionID)
		if err != nil {
			return result, fmt.Errorf("failed to lock session %s: %w", resolution.SessionID, err)
		}
		defer func() {
			if releaseErr := release(context.WithoutCancel(ctx)); releaseErr != nil {
				s.logger.Warn("セッションロックの解放に失敗",
					"sessionID", resolution.SessionID,
					"error", releaseErr,
				)
			}
		}()
	}

	items, err := s.enumerator.Enumerate(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to enumerate nodes: %w", err)
	}
	fmt.Fprintf(s.out, "Found %d nodes in graph\n", len(items))

	initializer := NewLedgerInitializer(s.store, s.logger)
	stats, err := initializer.Initialize(ctx, resolution.SessionID, items)
	if err != nil {
		return result, fmt.Errorf("failed to initialize ledger: %w", err)
	}
	result.Init = stats

	summary, err := s.runner.Run(ctx, resolution.SessionID, items)
	result.Summary = summary
	if err != nil {
		return result, err
	}

	return result, nil
}
