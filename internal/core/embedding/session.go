package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// SessionIDPrefix はセッションIDの接頭辞
const SessionIDPrefix = "embedding_session_"

// NewSessionID は時刻ベースのセッションIDを生成する
// 同一秒内の衝突を避けるためランダムな接尾辞を付与する
func NewSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s%d_%s", SessionIDPrefix, now.Unix(), suffix)
}

// SessionOptions はセッション解決時のオペレーター指定
type SessionOptions struct {
	ForceResume bool
	ForceNew    bool
}

// Resolution はセッション解決の結果
type Resolution struct {
	SessionID string
	Resumed   bool
	// Previous は検出された未完了セッション（再開しなかった場合も設定される）
	Previous mo.Option[*SessionSummary]
}

// SessionResolver は今回の実行で使用するセッションIDを決定する
type SessionResolver struct {
	ledger   LedgerReader
	prompter Prompter
	newID    func() string
	logger   *slog.Logger
}

type sessionResolverOptions struct {
	newID  func() string
	logger *slog.Logger
}

// SessionResolverOption は SessionResolver のオプション設定
type SessionResolverOption func(*sessionResolverOptions)

// WithResolverLogger はロガーを設定する
func WithResolverLogger(logger *slog.Logger) SessionResolverOption {
	return func(o *sessionResolverOptions) {
		o.logger = logger
	}
}

// WithSessionIDGenerator はセッションIDの生成関数を差し替える
func WithSessionIDGenerator(fn func() string) SessionResolverOption {
	return func(o *sessionResolverOptions) {
		o.newID = fn
	}
}

// NewSessionResolver は新しい SessionResolver を作成する
// prompter が nil の場合、対話確認は常に「再開しない」として扱う
func NewSessionResolver(ledger LedgerReader, prompter Prompter, opts ...SessionResolverOption) *SessionResolver {
	options := sessionResolverOptions{
		newID:  func() string { return NewSessionID(time.Now()) },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &SessionResolver{
		ledger:   ledger,
		prompter: prompter,
		newID:    options.newID,
		logger:   options.logger,
	}
}

// Resolve はセッションIDを決定する
// 優先順位: ForceResume > ForceNew > 対話確認
func (r *SessionResolver) Resolve(ctx context.Context, opts SessionOptions) (*Resolution, error) {
	previous, err := r.ledger.LatestIncompleteSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find incomplete session: %w", err)
	}

	prev, found := previous.Get()
	if !found {
		return &Resolution{SessionID: r.newID(), Previous: previous}, nil
	}

	r.logger.Info("未完了のセッションを検出",
		"sessionID", prev.SessionID,
		"completed", prev.Completed,
		"total", prev.Total,
		"failed", prev.Failed,
	)

	if opts.ForceResume {
		if opts.ForceNew {
			r.logger.Warn("RESUME_SESSION と NEW_SESSION が両方指定されたため再開を優先します")
		}
		return &Resolution{SessionID: prev.SessionID, Resumed: true, Previous: previous}, nil
	}
	if opts.ForceNew {
		return &Resolution{SessionID: r.newID(), Previous: previous}, nil
	}

	resume, err := r.confirm(ctx)
	if err != nil {
		return nil, err
	}
	if resume {
		return &Resolution{SessionID: prev.SessionID, Resumed: true, Previous: previous}, nil
	}

	return &Resolution{SessionID: r.newID(), Previous: previous}, nil
}

func (r *SessionResolver) confirm(ctx context.Context) (bool, error) {
	if r.prompter == nil {
		return false, nil
	}

	ok, err := r.prompter.Confirm(ctx, "Resume previous session")
	if err != nil {
		if errors.Is(err, ErrPromptUnavailable) {
			r.logger.Warn("対話プロンプトが使用できないため新しいセッションを開始します")
			return false, nil
		}
		return false, fmt.Errorf("failed to confirm resumption: %w", err)
	}
	return ok, nil
}
