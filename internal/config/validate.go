package config

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

var keyspacePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,47}$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateAlignment(); err != nil {
		return err
	}
	if err := c.validateEmbedding(); err != nil {
		return err
	}
	if err := c.validateFeedback(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.RateLimitRPS < 0 {
		return errors.New("server.rate_limit_rps must be >= 0")
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst < 1 {
		return errors.New("server.rate_limit_burst must be >= 1 when rate limiting is enabled")
	}
	return nil
}

func (c *Config) validateAlignment() error {
	a := c.Alignment
	for name, value := range map[string]float64{
		"temporal_weight":  a.TemporalWeight,
		"semantic_weight":  a.SemanticWeight,
		"near_miss_weight": a.NearMissWeight,
		"min_match_score":  a.MinMatchScore,
		"share_tolerance":  a.ShareTolerance,
	} {
		if value < 0 || value > 1 || math.IsNaN(value) {
			return fmt.Errorf("alignment.%s must be between 0 and 1", name)
		}
	}
	if math.Abs(a.TemporalWeight+a.SemanticWeight-1) > 1e-6 {
		return fmt.Errorf("alignment.temporal_weight and alignment.semantic_weight must sum to 1 (got %.3f)", a.TemporalWeight+a.SemanticWeight)
	}
	if a.ToleranceWindowSeconds <= 0 {
		return errors.New("alignment.tolerance_window_seconds must be positive")
	}
	if a.SkipPenalty > 0 {
		return errors.New("alignment.skip_penalty must be <= 0")
	}
	if a.MaxCells <= 0 {
		return errors.New("alignment.max_cells must be positive")
	}
	if a.ReviewThreshold < 0 || a.AlignedThreshold > 1 {
		return errors.New("alignment thresholds must be between 0 and 1")
	}
	if a.ReviewThreshold >= a.AlignedThreshold {
		return errors.New("alignment.review_threshold must be lower than alignment.aligned_threshold")
	}
	return nil
}

func (c *Config) validateEmbedding() error {
	switch c.Embedding.Provider {
	case "openai":
		if c.Embedding.APIKey == "" {
			return errors.New("embedding.api_key is required for the openai provider; set OPENAI_API_KEY, add it to the config file, or use provider = \"lexical\"")
		}
	case "onnx":
		if c.Embedding.ONNXModelPath == "" || c.Embedding.ONNXTokenizerPath == "" {
			return errors.New("embedding.onnx_model_path and embedding.onnx_tokenizer_path are required for the onnx provider")
		}
	case "lexical":
	default:
		return fmt.Errorf("embedding.provider %q is not supported (use openai, onnx, or lexical)", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions < 0 {
		return errors.New("embedding.dimensions must be >= 0")
	}
	return nil
}

func (c *Config) validateFeedback() error {
	switch c.Feedback.Backend {
	case "sqlite", "none":
	case "cassandra":
		if len(c.Feedback.CassandraHosts) == 0 {
			return errors.New("feedback.cassandra_hosts must list at least one host for the cassandra backend")
		}
		if !keyspacePattern.MatchString(c.Feedback.CassandraKeyspace) {
			return fmt.Errorf("feedback.cassandra_keyspace %q is not a valid keyspace name", c.Feedback.CassandraKeyspace)
		}
	default:
		return fmt.Errorf("feedback.backend %q is not supported (use sqlite, cassandra, or none)", c.Feedback.Backend)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
}
