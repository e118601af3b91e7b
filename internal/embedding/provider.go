package embedding

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"subalign/internal/config"
	"subalign/internal/logging"
	"subalign/internal/services"
)

// Vector is a dense embedding.
type Vector []float32

// Provider embeds a batch of texts, returning one vector per input in order.
// Implementations must be deterministic for identical input within a process.
type Provider interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([]Vector, error)
}

// New builds the provider selected by cfg.Embedding.Provider, wrapped in a
// RedisCache when cfg.Cache.RedisAddr is set and reachable.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Provider, error) {
	logger = logging.NewComponentLogger(logger, "embedding")
	var (
		provider Provider
		err      error
	)
	switch cfg.Embedding.Provider {
	case "openai":
		provider = NewOpenAI(OpenAIOptions{
			BaseURL:    cfg.Embedding.BaseURL,
			APIKey:     cfg.Embedding.APIKey,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Timeout:    cfg.EmbeddingTimeout(),
		})
	case "onnx":
		provider, err = NewONNX(ONNXOptions{
			ModelPath:     cfg.Embedding.ONNXModelPath,
			TokenizerPath: cfg.Embedding.ONNXTokenizerPath,
			LibraryPath:   cfg.Embedding.ONNXLibraryPath,
		})
	case "lexical":
		provider = NewLexical(cfg.Embedding.Dimensions)
	default:
		err = fmt.Errorf("unsupported embedding provider %q", cfg.Embedding.Provider)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "embed", "create provider", "embedding provider unavailable", err)
	}
	logger.Info("embedding provider ready",
		logging.String("provider", provider.Name()),
		logging.String("model", cfg.Embedding.Model),
	)

	if cfg.Cache.RedisAddr == "" {
		return provider, nil
	}
	cached, err := NewRedisCache(ctx, provider, RedisOptions{
		Addr:       cfg.Cache.RedisAddr,
		Prefix:     cfg.Cache.RedisPrefix,
		TTL:        cfg.CacheTTL(),
		Provider:   provider.Name(),
		Model:      cacheModel(cfg),
		Dimensions: cfg.Embedding.Dimensions,
	}, logger)
	if err != nil {
		logging.WarnWithContext(logger, "redis embedding cache disabled", "embedding_cache_unavailable",
			logging.Error(err),
			logging.String("redis_addr", cfg.Cache.RedisAddr),
			logging.String(logging.FieldImpact, "every request embeds its texts directly"),
			logging.String(logging.FieldErrorHint, "check cache.redis_addr and that redis is running"),
		)
		return provider, nil
	}
	return cached, nil
}

// cacheModel names the model behind the configured provider. The onnx
// provider is identified by its model file.
func cacheModel(cfg *config.Config) string {
	if cfg.Embedding.Provider == "onnx" {
		return cfg.Embedding.ONNXModelPath
	}
	return cfg.Embedding.Model
}

// Close releases provider resources when the provider holds any.
func Close(p Provider) error {
	if closer, ok := p.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func unavailable(operation, message string, err error) error {
	return services.Wrap(services.ErrEmbeddingUnavailable, "embed", operation, message, err)
}
