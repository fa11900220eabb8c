package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// Config はロガーの設定
type Config struct {
	Level  slog.Level
	Format string // "json" or "text"
	// File が指定された場合、JSON 形式のログをファイルにも書き出します
	File string
}

// DefaultConfig はデフォルトのロガー設定
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelInfo,
		Format: "text",
	}
}

// ParseLevel はログレベル文字列を slog.Level に変換します
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// New は新しいロガーを作成し、デフォルトロガーとして設定します
// 進捗出力と混ざらないようにログは標準エラー出力へ書き出します
// 返される io.Closer はログファイルを閉じます（ファイル未指定の場合は何もしません）
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	return newWithWriter(os.Stderr, cfg)
}

func newWithWriter(w io.Writer, cfg Config) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{
		Level: cfg.Level,
	}

	handler := newHandler(w, cfg.Format, opts)
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		handler = slogmulti.Fanout(handler, slog.NewJSONHandler(f, opts))
		closer = f
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, closer, nil
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	switch format {
	case "json":
		return slog.NewJSONHandler(w, opts)
	default: // "text"
		return slog.NewTextHandler(w, opts)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
