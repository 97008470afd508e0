package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/nao1215/socialnet/pkg/apperror"
)

// rateLimitPrefix はレート制限のカウンタを保存するキーの接頭辞。
const rateLimitPrefix = "socialnet:ratelimit"

// NewRateLimitStore はレート制限のカウンタストアを生成する。
// redisURL が空ならプロセス内のメモリストア、指定されていればRedisストアを使う。
func NewRateLimitStore(redisURL string) (limiter.Store, error) {
	if redisURL == "" {
		return memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: rateLimitPrefix}), nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("REDIS_URL の解析に失敗: %w", err)
	}
	store, err := redisstore.NewStoreWithOptions(redis.NewClient(opts), limiter.StoreOptions{
		Prefix:   rateLimitPrefix,
		MaxRetry: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("レート制限ストアの初期化に失敗: %w", err)
	}
	return store, nil
}

// RateLimit はクライアントIP単位でリクエスト数を制限するGinミドルウェアを返す。
// rate はulule/limiterの形式（例: "20-M" は1分あたり20回）。
func RateLimit(rate string, store limiter.Store) (gin.HandlerFunc, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("レート制限の形式が不正です %q: %w", rate, err)
	}

	mw := mgin.NewMiddleware(limiter.New(store, r),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			RespondError(c, apperror.New(apperror.KindTooManyRequests, "Demasiadas solicitudes, inténtalo más tarde"))
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			RespondError(c, apperror.Wrap(apperror.KindInternal, apperror.InternalMessage, err))
		}),
	)
	return mw, nil
}
