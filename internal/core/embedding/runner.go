package embedding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

const (
	// DefaultBatchSize は1トランザクションで処理するノード数のデフォルト値
	DefaultBatchSize = 100
	// DefaultProgressInterval は進捗行を出力する Embedding 件数の間隔
	DefaultProgressInterval = 50
	// DefaultEmbedTimeout は Embedding 呼び出し1回あたりのタイムアウト
	DefaultEmbedTimeout = 30 * time.Second
)

// RunnerConfig はバッチ処理の設定
type RunnerConfig struct {
	BatchSize        int
	ProgressInterval int
	EmbedTimeout     time.Duration
	// TokenLimit は入力テキストの最大トークン数（0 は無制限）
	TokenLimit int
}

// DefaultRunnerConfig はデフォルト設定を返す
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		BatchSize:        DefaultBatchSize,
		ProgressInterval: DefaultProgressInterval,
		EmbedTimeout:     DefaultEmbedTimeout,
	}
}

// RunSummary はバッチ処理の結果
type RunSummary struct {
	SessionID   string
	Remaining   int // 開始時点で pending/failed だったエントリ数
	Embedded    int
	CaughtUp    int
	Failed      int
	Orphaned    int // 対応するノードが列挙結果に存在しないエントリ数
	BatchErrors int
	Final       StatusCounts
}

// BatchRunner は未処理ノードをバッチ単位で Embedding する
type BatchRunner struct {
	store        Store
	embedder     Embedder
	tokenCounter TokenCounter
	throttle     Throttle
	config       RunnerConfig
	out          io.Writer
	logger       *slog.Logger
}

type batchRunnerOptions struct {
	config       RunnerConfig
	tokenCounter TokenCounter
	throttle     Throttle
	out          io.Writer
	logger       *slog.Logger
}

// BatchRunnerOption は BatchRunner のオプション設定
type BatchRunnerOption func(*batchRunnerOptions)

// WithRunnerLogger はロガーを設定する
func WithRunnerLogger(logger *slog.Logger) BatchRunnerOption {
	return func(o *batchRunnerOptions) {
		o.logger = logger
	}
}

// WithRunnerConfig はバッチ処理の設定を指定する
func WithRunnerConfig(config RunnerConfig) BatchRunnerOption {
	return func(o *batchRunnerOptions) {
		o.config = config
	}
}

// WithProgressWriter は進捗表示の出力先を指定する
func WithProgressWriter(w io.Writer) BatchRunnerOption {
	return func(o *batchRunnerOptions) {
		o.out = w
	}
}

// WithTokenCounter は入力トークン数の検査に使うカウンターを指定する
func WithTokenCounter(counter TokenCounter) BatchRunnerOption {
	return func(o *batchRunnerOptions) {
		o.tokenCounter = counter
	}
}

// WithThrottle は Embedding 呼び出し前に待つ実行枠を指定する
// 待機時間は EmbedTimeout に含まれない
func WithThrottle(throttle Throttle) BatchRunnerOption {
	return func(o *batchRunnerOptions) {
		o.throttle = throttle
	}
}

// NewBatchRunner は新しい BatchRunner を作成する
func NewBatchRunner(store Store, embedder Embedder, opts ...BatchRunnerOption) *BatchRunner {
	options := batchRunnerOptions{
		config: DefaultRunnerConfig(),
		out:    io.Discard,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	config := options.config
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.ProgressInterval <= 0 {
		config.ProgressInterval = DefaultProgressInterval
	}
	if options.out == nil {
		options.out = io.Discard
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &BatchRunner{
		store:        store,
		embedder:     embedder,
		tokenCounter: options.tokenCounter,
		throttle:     options.throttle,
		config:       config,
		out:          options.out,
		logger:       options.logger,
	}
}

// Run はセッションの pending/failed エントリを処理する
// バッチごとにコミットするため、中断しても完了済みのバッチは失われない
// ctx がキャンセルされた場合は処理中のバッチをロールバックして ctx.Err() を返す
func (r *BatchRunner) Run(ctx context.Context, sessionID string, items []WorkItem) (*RunSummary, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	entries, err := r.store.ListRemaining(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list remaining entries: %w", err)
	}

	summary := &RunSummary{SessionID: sessionID, Remaining: len(entries)}

	byID := make(map[string]WorkItem, len(items))
	for _, item := range items {
		if _, ok := byID[item.ID]; !ok {
			byID[item.ID] = item
		}
	}

	work := make([]WorkItem, 0, len(entries))
	for _, entry := range entries {
		item, ok := byID[entry.ItemID]
		if !ok {
			summary.Orphaned++
			continue
		}
		work = append(work, item)
	}
	if summary.Orphaned > 0 {
		r.logger.Warn("列挙結果に存在しないエントリをスキップ",
			"sessionID", sessionID,
			"orphaned", summary.Orphaned,
		)
	}

	counts, err := r.store.CountByStatus(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}
	completed := counts.Completed

	fmt.Fprintf(r.out, "Already completed: %d\n", completed)
	fmt.Fprintf(r.out, "Remaining to process: %d\n", len(work))

	total := (len(work) + r.config.BatchSize - 1) / r.config.BatchSize
	sinceReport := 0

	for batchNum := 0; batchNum < total; batchNum++ {
		if err := ctx.Err(); err != nil {
			return r.interrupted(ctx, summary, err)
		}

		start := batchNum * r.config.BatchSize
		end := min(start+r.config.BatchSize, len(work))
		batch := work[start:end]

		fmt.Fprintf(r.out, "Processing batch %d/%d...\n", batchNum+1, total)

		var outcomes []ItemOutcome
		err := r.store.Transact(ctx, func(tx Store) error {
			outcomes = outcomes[:0]
			for _, item := range batch {
				if err := ctx.Err(); err != nil {
					return err
				}
				outcome, err := r.processItem(ctx, tx, sessionID, item)
				if err != nil {
					return err
				}
				outcomes = append(outcomes, outcome)
			}
			return nil
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return r.interrupted(ctx, summary, ctxErr)
			}
			summary.BatchErrors++
			r.logger.Error("バッチのコミットに失敗",
				"sessionID", sessionID,
				"batch", batchNum+1,
				"error", err,
			)
			fmt.Fprintf(r.out, "Error committing batch %d: %v\n", batchNum+1, err)
			continue
		}

		for _, outcome := range outcomes {
			switch outcome.Kind {
			case OutcomeEmbedded:
				summary.Embedded++
				completed++
				sinceReport++
			case OutcomeCaughtUp:
				summary.CaughtUp++
				completed++
				sinceReport++
			case OutcomeFailed:
				summary.Failed++
				r.logger.Warn("ノードの処理に失敗",
					"sessionID", sessionID,
					"itemID", outcome.ItemID,
					"error", outcome.Message(),
				)
			}
			if sinceReport >= r.config.ProgressInterval {
				sinceReport = 0
				fmt.Fprintf(r.out, "  Embedded %d in this session (%d total completed)...\n",
					summary.Embedded+summary.CaughtUp, completed)
			}
		}

		fmt.Fprintf(r.out, "Committed batch %d/%d\n", batchNum+1, total)
	}

	if err := r.finish(ctx, summary); err != nil {
		return summary, err
	}
	return summary, nil
}

// processItem はノード1件を処理して結果を返す
// error を返すのはバッチ全体を中止すべき場合のみ
func (r *BatchRunner) processItem(ctx context.Context, tx Store, sessionID string, item WorkItem) (ItemOutcome, error) {
	if !item.HasName() {
		return r.fail(ctx, tx, sessionID, item, ErrEmptyName)
	}

	exists, err := tx.ResultExists(ctx, item.ID)
	if err != nil {
		return ItemOutcome{}, &PersistenceError{Op: "check result", Err: err}
	}
	if exists {
		if err := tx.MarkCompleted(ctx, sessionID, item.ID); err != nil {
			return ItemOutcome{}, &PersistenceError{Op: "mark completed", Err: err}
		}
		return ItemOutcome{ItemID: item.ID, Kind: OutcomeCaughtUp}, nil
	}

	input := item.EmbeddingInput()
	if r.tokenCounter != nil && r.config.TokenLimit > 0 {
		if n := r.tokenCounter.CountTokens(input); n > r.config.TokenLimit {
			return r.fail(ctx, tx, sessionID, item,
				fmt.Errorf("%w (%d > %d)", ErrTokenLimit, n, r.config.TokenLimit))
		}
	}

	vector, err := r.embed(ctx, input)
	if err != nil {
		if ctx.Err() != nil {
			return ItemOutcome{}, ctx.Err()
		}
		return r.fail(ctx, tx, sessionID, item, err)
	}

	result := &Result{
		ID:          item.ID,
		DisplayName: item.DisplayName,
		Label:       item.Label,
		Vector:      vector,
		CreatedAt:   time.Now(),
	}

	err = tx.Transact(ctx, func(sp Store) error {
		if err := sp.UpsertResult(ctx, result); err != nil {
			return &PersistenceError{Op: "upsert result", Err: err}
		}
		if err := sp.MarkCompleted(ctx, sessionID, item.ID); err != nil {
			return &PersistenceError{Op: "mark completed", Err: err}
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ItemOutcome{}, ctx.Err()
		}
		return r.fail(ctx, tx, sessionID, item, err)
	}

	return ItemOutcome{ItemID: item.ID, Kind: OutcomeEmbedded}, nil
}

func (r *BatchRunner) embed(ctx context.Context, input string) ([]float32, error) {
	if r.throttle != nil {
		if err := r.throttle.Wait(ctx); err != nil {
			return nil, &EmbeddingError{Err: err}
		}
	}

	callCtx := ctx
	if r.config.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.config.EmbedTimeout)
		defer cancel()
	}

	vector, err := r.embedder.Embed(callCtx, input)
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}
	if len(vector) == 0 {
		return nil, &EmbeddingError{Err: errors.New("empty embedding returned")}
	}
	if dim := r.embedder.Dimension(); dim > 0 && len(vector) != dim {
		return nil, &EmbeddingError{Err: fmt.Errorf("unexpected embedding dimension: got %d, want %d", len(vector), dim)}
	}
	return vector, nil
}

// fail はノードを failed として記録する
// 記録自体に失敗した場合はバッチを中止する
func (r *BatchRunner) fail(ctx context.Context, tx Store, sessionID string, item WorkItem, cause error) (ItemOutcome, error) {
	outcome := ItemOutcome{ItemID: item.ID, Kind: OutcomeFailed, Err: cause}
	if err := tx.MarkFailed(ctx, sessionID, item.ID, outcome.Message()); err != nil {
		return ItemOutcome{}, &PersistenceError{Op: "mark failed", Err: err}
	}
	return outcome, nil
}

func (r *BatchRunner) interrupted(ctx context.Context, summary *RunSummary, cause error) (*RunSummary, error) {
	r.logger.Warn("処理を中断", "sessionID", summary.SessionID, "error", cause)
	fmt.Fprintln(r.out, "Interrupted; uncommitted batch was rolled back. Resume to continue.")
	if err := r.finish(ctx, summary); err != nil {
		r.logger.Error("最終集計の取得に失敗", "sessionID", summary.SessionID, "error", err)
	}
	return summary, cause
}

// finish は最終集計を取得して表示する
func (r *BatchRunner) finish(ctx context.Context, summary *RunSummary) error {
	counts, err := r.store.CountByStatus(context.WithoutCancel(ctx), summary.SessionID)
	if err != nil {
		return fmt.Errorf("failed to count final status: %w", err)
	}
	summary.Final = counts

	fmt.Fprintf(r.out, "\nSession %s Summary:\n", summary.SessionID)
	fmt.Fprintf(r.out, "  Successfully embedded: %d\n", counts.Completed)
	fmt.Fprintf(r.out, "  Failed: %d\n", counts.Failed)
	fmt.Fprintf(r.out, "  Still pending: %d\n", counts.Pending)
	if summary.Orphaned > 0 {
		fmt.Fprintf(r.out, "  Not found in graph: %d\n", summary.Orphaned)
	}

	r.logger.Info("セッションの処理が終了",
		"sessionID", summary.SessionID,
		"embedded", summary.Embedded,
		"caughtUp", summary.CaughtUp,
		"failed", summary.Failed,
		"batchErrors", summary.BatchErrors,
		"completed", counts.Completed,
		"pending", counts.Pending,
	)
	return nil
}
