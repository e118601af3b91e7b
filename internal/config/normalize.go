package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeEmbedding()
	c.normalizeCache()
	if err := c.normalizeFeedback(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv("SUBALIGN_API_TOKEN"); ok {
			c.Server.APIToken = strings.TrimSpace(value)
		}
	}
	origins := c.Server.CORSOrigins[:0]
	for _, origin := range c.Server.CORSOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.Server.CORSOrigins = origins
	if c.Server.RequestTimeoutSeconds <= 0 {
		c.Server.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = defaultMaxBodyBytes
	}
}

func (c *Config) normalizeEmbedding() {
	c.Embedding.Provider = strings.ToLower(strings.TrimSpace(c.Embedding.Provider))
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = defaultEmbeddingProvider
	}
	if c.Embedding.APIKey == "" {
		for _, key := range []string{"EMBEDDING_API_KEY", "OPENAI_API_KEY"} {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.Embedding.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.Embedding.BaseURL = strings.TrimRight(strings.TrimSpace(c.Embedding.BaseURL), "/")
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = defaultEmbeddingBaseURL
	}
	c.Embedding.Model = strings.TrimSpace(c.Embedding.Model)
	if c.Embedding.Model == "" {
		c.Embedding.Model = defaultEmbeddingModel
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = defaultEmbeddingBatchSize
	}
	if c.Embedding.TimeoutSeconds <= 0 {
		c.Embedding.TimeoutSeconds = defaultEmbeddingTimeout
	}
	if c.Embedding.Provider == "lexical" && c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = defaultLexicalDimensions
	}
	for _, field := range []*string{&c.Embedding.ONNXModelPath, &c.Embedding.ONNXTokenizerPath, &c.Embedding.ONNXLibraryPath} {
		if trimmed := strings.TrimSpace(*field); trimmed != "" {
			if expanded, err := expandPath(trimmed); err == nil {
				*field = expanded
			}
		}
	}
}

func (c *Config) normalizeCache() {
	c.Cache.RedisAddr = strings.TrimSpace(c.Cache.RedisAddr)
	if c.Cache.RedisAddr == "" {
		if value, ok := os.LookupEnv("REDIS_ADDR"); ok {
			c.Cache.RedisAddr = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Cache.RedisPrefix) == "" {
		c.Cache.RedisPrefix = defaultRedisPrefix
	}
	if c.Cache.TTLHours < 0 {
		c.Cache.TTLHours = 0
	}
}

func (c *Config) normalizeFeedback() error {
	c.Feedback.Backend = strings.ToLower(strings.TrimSpace(c.Feedback.Backend))
	if c.Feedback.Backend == "" {
		c.Feedback.Backend = defaultFeedbackBackend
	}
	if strings.TrimSpace(c.Feedback.SQLitePath) == "" {
		c.Feedback.SQLitePath = filepath.Join(c.Paths.DataDir, defaultFeedbackSQLiteName)
	}
	var err error
	if c.Feedback.SQLitePath, err = expandPath(c.Feedback.SQLitePath); err != nil {
		return fmt.Errorf("feedback.sqlite_path: %w", err)
	}
	if len(c.Feedback.CassandraHosts) == 0 {
		if value, ok := os.LookupEnv("CASSANDRA_HOSTS"); ok {
			c.Feedback.CassandraHosts = strings.Split(value, ",")
		}
	}
	hosts := make([]string, 0, len(c.Feedback.CassandraHosts))
	for _, host := range c.Feedback.CassandraHosts {
		if trimmed := strings.TrimSpace(host); trimmed != "" {
			hosts = append(hosts, trimmed)
		}
	}
	c.Feedback.CassandraHosts = hosts
	if strings.TrimSpace(c.Feedback.CassandraKeyspace) == "" {
		c.Feedback.CassandraKeyspace = defaultCassandraKeyspace
	}
	if c.Feedback.BufferSize <= 0 {
		c.Feedback.BufferSize = defaultFeedbackBuffer
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
