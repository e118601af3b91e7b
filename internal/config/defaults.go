package config

const (
	defaultDataDir                = "~/.local/share/subalign"
	defaultLogDir                 = "~/.local/share/subalign/logs"
	defaultBind                   = "127.0.0.1:5000"
	defaultRateLimitRPS           = 2.0
	defaultRateLimitBurst         = 5
	defaultRequestTimeoutSeconds  = 120
	defaultMaxBodyBytes           = 8 << 20
	defaultTemporalWeight         = 0.3
	defaultSemanticWeight         = 0.7
	defaultToleranceWindowSeconds = 5.0
	defaultNearMissWeight         = 0.5
	defaultSkipPenalty            = -0.05
	defaultMinMatchScore          = 0.25
	defaultShareTolerance         = 0.05
	defaultMaxCells               = 4_000_000
	defaultAlignedThreshold       = 0.7
	defaultReviewThreshold        = 0.4
	defaultEmbeddingProvider      = "openai"
	defaultEmbeddingBaseURL       = "https://api.openai.com/v1"
	defaultEmbeddingModel         = "text-embedding-3-small"
	defaultEmbeddingBatchSize     = 256
	defaultEmbeddingTimeout       = 60
	defaultLexicalDimensions      = 256
	defaultRedisPrefix            = "subalign:emb:"
	defaultCacheTTLHours          = 24 * 7
	defaultFeedbackBackend        = "sqlite"
	defaultFeedbackSQLiteName     = "feedback.db"
	defaultCassandraKeyspace      = "subalign"
	defaultFeedbackBuffer         = 64
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Server: Server{
			Bind:                  defaultBind,
			CORSOrigins:           []string{"*"},
			RateLimitRPS:          defaultRateLimitRPS,
			RateLimitBurst:        defaultRateLimitBurst,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			MaxBodyBytes:          defaultMaxBodyBytes,
		},
		Alignment: Alignment{
			TemporalWeight:         defaultTemporalWeight,
			SemanticWeight:         defaultSemanticWeight,
			ToleranceWindowSeconds: defaultToleranceWindowSeconds,
			NearMissWeight:         defaultNearMissWeight,
			SkipPenalty:            defaultSkipPenalty,
			MinMatchScore:          defaultMinMatchScore,
			ShareTolerance:         defaultShareTolerance,
			MaxCells:               defaultMaxCells,
			AlignedThreshold:       defaultAlignedThreshold,
			ReviewThreshold:        defaultReviewThreshold,
		},
		Embedding: Embedding{
			Provider:       defaultEmbeddingProvider,
			BaseURL:        defaultEmbeddingBaseURL,
			Model:          defaultEmbeddingModel,
			BatchSize:      defaultEmbeddingBatchSize,
			TimeoutSeconds: defaultEmbeddingTimeout,
		},
		Cache: Cache{
			RedisPrefix: defaultRedisPrefix,
			TTLHours:    defaultCacheTTLHours,
		},
		Feedback: Feedback{
			Backend:           defaultFeedbackBackend,
			CassandraKeyspace: defaultCassandraKeyspace,
			BufferSize:        defaultFeedbackBuffer,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
