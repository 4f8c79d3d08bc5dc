package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"triage_server/adapter/out/provider"
	"triage_server/config"
	"triage_server/core/agent/llm"
	"triage_server/core/port/in"
	"triage_server/core/port/out"
	"triage_server/core/service/classification"
	"triage_server/infra/database"
	"triage_server/pkg/logger"
	"triage_server/pkg/ratelimit"
)

type Dependencies struct {
	Config *config.Config
	Redis  *redis.Client

	// Model
	Invoker    out.ModelInvoker
	Breaker    *llm.BreakerInvoker
	Classifier *classification.Classifier

	// Edge
	Limiter     *ratelimit.FixedWindowLimiter
	GoogleOAuth *provider.GoogleOAuth
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	// Redis (optional, rate limiting only)
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis connection failed, rate limiting disabled: %v", err)
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { redisClient.Close() })
			logger.Info("Redis connected")
		}
	}
	deps.Limiter = ratelimit.NewFixedWindowLimiter(deps.Redis, cfg.RateLimitPerMinute, time.Minute)

	// Model invoker
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	invoker, err := llm.NewInvoker(ctx, llm.InvokerConfig{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.LLMAPIKey(),
		Model:    cfg.LLMModel,
		Breaker:  cfg.LLMBreakerEnabled,
	})
	if err != nil {
		// Callers can still classify with their own key via X-OpenAI-Key.
		logger.WithError(err).Warn("No server-side model configured")
		invoker = unconfiguredInvoker(err)
	} else {
		logger.Info("Model provider: %s", invoker.Name())
	}
	deps.Invoker = invoker
	if b, ok := invoker.(*llm.BreakerInvoker); ok {
		deps.Breaker = b
	}

	deps.Classifier = classification.NewClassifier(invoker,
		classification.WithMaxConcurrency(cfg.LLMMaxConcurrency),
	)

	// OAuth - Google
	deps.GoogleOAuth = provider.NewGoogleOAuth(provider.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.OAuthRedirectURL(),
	})

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	return deps, cleanup, nil
}

// ServiceForKey builds a classifier on the caller's own OpenAI key. The
// shared breaker is skipped so one caller's bad key cannot trip it for all.
func (d *Dependencies) ServiceForKey(apiKey string) in.ClassificationService {
	model := llm.DefaultModel
	if d.Config.LLMProvider == llm.ProviderOpenAI && d.Config.LLMModel != "" {
		model = d.Config.LLMModel
	}
	return d.Classifier.WithModel(llm.NewClientWithConfig(llm.ClientConfig{
		APIKey: apiKey,
		Model:  model,
	}))
}

func unconfiguredInvoker(cause error) out.ModelInvoker {
	return out.ModelInvokerFunc(func(ctx context.Context, req out.GenerateRequest) (string, error) {
		return "", fmt.Errorf("%w: %w", llm.ErrModelInvocation, cause)
	})
}

func (d *Dependencies) HealthCheck(ctx context.Context) error {
	if d.Redis != nil {
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}
