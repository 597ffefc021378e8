package oracle

import "github.com/redis/go-redis/v9"

// Options configures the layered Client New assembles: a base OpenAI-style
// HTTP client wrapped first with a retry policy, then a concurrency cap,
// then an optional response cache (outermost to innermost the call passes
// through: cache → bounded → retrying → openai).
type Options struct {
	BaseURL       string
	APIKey        string
	Model         string
	ModelRevision string

	MaxConcurrent   int
	RatePerSecond   float64 // 0 disables the limiter
	Retry           RetryConfig
	RedisURL        string // empty disables the cache
}

// New assembles a fully-wired oracle Client from Options.
func New(opts Options) Client {
	var base Client = NewOpenAIClient(opts.BaseURL, opts.APIKey, opts.Model, opts.ModelRevision)
	base = WithRetry(base, opts.Retry)
	base = WithConcurrencyCap(base, opts.MaxConcurrent, opts.RatePerSecond)

	if opts.RedisURL != "" {
		redisOpts, err := redis.ParseURL(opts.RedisURL)
		if err == nil {
			base = WithCache(base, redis.NewClient(redisOpts))
		}
	}
	return base
}
