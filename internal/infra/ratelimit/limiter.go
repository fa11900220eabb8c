package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/marcosbolanos/pgvector-age/internal/core/embedding"
)

// Limiter は1分あたりのリクエスト数で Embedding 呼び出しを制限する
type Limiter struct {
	limiter *rate.Limiter
}

// New は requestsPerMinute の実行枠を持つ Limiter を作成する
// requestsPerMinute が 0 以下の場合は待機しない
func New(requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

var _ embedding.Throttle = (*Limiter)(nil)

// Wait は次の実行枠まで待つ
// ctx の期限までに枠が空かない場合はすぐにエラーを返すため、呼び出し単位のタイムアウトを含まない ctx を渡すこと
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
