package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Server contains HTTP API settings.
type Server struct {
	Bind                  string   `toml:"bind"`
	APIToken              string   `toml:"api_token"`
	CORSOrigins           []string `toml:"cors_origins"`
	RateLimitRPS          float64  `toml:"rate_limit_rps"`
	RateLimitBurst        int      `toml:"rate_limit_burst"`
	RequestTimeoutSeconds int      `toml:"request_timeout_seconds"`
	MaxBodyBytes          int64    `toml:"max_body_bytes"`
}

// Alignment contains the scoring weights, solver penalties, and confidence
// thresholds. None of these are hard-coded in the engine.
type Alignment struct {
	TemporalWeight         float64 `toml:"temporal_weight"`
	SemanticWeight         float64 `toml:"semantic_weight"`
	ToleranceWindowSeconds float64 `toml:"tolerance_window_seconds"`
	NearMissWeight         float64 `toml:"near_miss_weight"`
	SkipPenalty            float64 `toml:"skip_penalty"`
	MinMatchScore          float64 `toml:"min_match_score"`
	ShareTolerance         float64 `toml:"share_tolerance"`
	MaxCells               int64   `toml:"max_cells"`
	AlignedThreshold       float64 `toml:"aligned_threshold"`
	ReviewThreshold        float64 `toml:"review_threshold"`
	// AllowTemporalOnly lets an alignment continue on timing alone when the
	// embedding provider fails. Off by default.
	AllowTemporalOnly bool `toml:"allow_temporal_only"`
}

// Embedding selects and configures the embedding provider.
type Embedding struct {
	Provider          string `toml:"provider"`
	BaseURL           string `toml:"base_url"`
	APIKey            string `toml:"api_key"`
	Model             string `toml:"model"`
	Dimensions        int    `toml:"dimensions"`
	BatchSize         int    `toml:"batch_size"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	ONNXModelPath     string `toml:"onnx_model_path"`
	ONNXTokenizerPath string `toml:"onnx_tokenizer_path"`
	ONNXLibraryPath   string `toml:"onnx_library_path"`
}

// Cache configures the optional shared text-to-vector cache.
type Cache struct {
	RedisAddr   string `toml:"redis_addr"`
	RedisPrefix string `toml:"redis_prefix"`
	TTLHours    int    `toml:"ttl_hours"`
}

// Feedback configures where reviewer feedback is written.
type Feedback struct {
	Backend           string   `toml:"backend"`
	SQLitePath        string   `toml:"sqlite_path"`
	CassandraHosts    []string `toml:"cassandra_hosts"`
	CassandraKeyspace string   `toml:"cassandra_keyspace"`
	BufferSize        int      `toml:"buffer_size"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for subalign.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Server: HTTP bind address, auth token, CORS, rate limits
//   - Alignment: scoring weights, solver penalties, confidence thresholds
//   - Embedding: provider selection and credentials
//   - Cache: optional Redis embedding cache
//   - Feedback: feedback sink backend
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Server    Server    `toml:"server"`
	Alignment Alignment `toml:"alignment"`
	Embedding Embedding `toml:"embedding"`
	Cache     Cache     `toml:"cache"`
	Feedback  Feedback  `toml:"feedback"`
	Logging   Logging   `toml:"logging"`
}

const defaultConfigLocation = "~/.config/subalign/config.toml"

// ErrConfigExists is returned by WriteSample when the target is present and
// overwriting was not requested.
var ErrConfigExists = errors.New("config file already exists")

// DefaultConfigPath returns the absolute path of the per-user config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigLocation)
}

// Override adjusts a decoded config before it is normalized and validated,
// for command-line flags that replace file settings.
type Override func(*Config)

// Load reads the config at path, or the first existing default candidate
// when path is empty, then applies overrides, normalizes and validates it.
// A missing file is not an error; defaults are used and the reported
// existence flag is false.
func Load(path string, overrides ...Override) (*Config, string, bool, error) {
	resolved, found, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if found {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	for _, override := range overrides {
		if override != nil {
			override(&cfg)
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		if found {
			return nil, "", false, fmt.Errorf("config %s: %w", resolved, err)
		}
		return nil, "", false, err
	}
	return &cfg, resolved, found, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	if err := toml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// locate resolves the config file. An explicit path is returned even when
// absent; otherwise the per-user file wins over ./subalign.toml.
func locate(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		found, err := isFile(expanded)
		return expanded, found, err
	}

	userPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("subalign.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{userPath, projectPath} {
		if found, _ := isFile(candidate); found {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	}
	return !info.IsDir(), nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath is the flock file guarding a single server per data directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "subalign.lock")
}

// RequestTimeout returns the per-request alignment deadline.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// EmbeddingTimeout returns the embedding provider call timeout.
func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutSeconds) * time.Second
}

// CacheTTL returns the shared cache entry lifetime; zero means no expiry.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// WriteTOML encodes the effective configuration. Secrets are masked.
func (c *Config) WriteTOML(w io.Writer) error {
	masked := *c
	masked.Server.APIToken = maskSecret(masked.Server.APIToken)
	masked.Embedding.APIKey = maskSecret(masked.Embedding.APIKey)
	encoder := toml.NewEncoder(w)
	encoder.SetIndentTables(true)
	if err := encoder.Encode(masked); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	return "********"
}

// ExpandPath resolves a leading "~" against the home directory and returns
// an absolute, cleaned path. The empty string is returned unchanged.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return "", nil
	}
	if rest, ok := strings.CutPrefix(pathValue, "~"); ok && (rest == "" || rest[0] == '/' || rest[0] == '\\') {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		pathValue = filepath.Join(home, rest)
	}
	absolute, err := filepath.Abs(pathValue)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// WriteSample writes the annotated sample configuration to path, creating
// parent directories. Without overwrite an existing file yields
// ErrConfigExists.
func WriteSample(path string, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	if err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	if _, err := io.WriteString(file, sampleConfig); err != nil {
		file.Close()
		return fmt.Errorf("write sample config: %w", err)
	}
	return file.Close()
}
