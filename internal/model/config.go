package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds all wikicite configuration
type Config struct {
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Storage      StorageConfig     `yaml:"storage" mapstructure:"storage"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
	Wikipedia    WikipediaConfig   `yaml:"wikipedia" mapstructure:"wikipedia"`
}

// HTTPConfig configures outbound requests to Wikipedia and cited sources
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the fetched-source cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// LLMConfig configures the claim judge
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	Model       string  `yaml:"model,omitempty" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// ConcurrencyConfig bounds parallel work
type ConcurrencyConfig struct {
	JudgeWorkers int `yaml:"judge_workers" mapstructure:"judge_workers"`
	BatchWorkers int `yaml:"batch_workers" mapstructure:"batch_workers"`
}

// RateLimitConfig is applied per host
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// StorageConfig configures the verification history database
type StorageConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// OutputConfig controls rendering and diagnostics. Format is table, json or
// yaml; Preview is claim or context.
type OutputConfig struct {
	Format   string `yaml:"format" mapstructure:"format"`
	Preview  string `yaml:"preview" mapstructure:"preview"`
	Verbose  bool   `yaml:"verbose" mapstructure:"verbose"`
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// WikipediaConfig configures the MediaWiki API client
type WikipediaConfig struct {
	DefaultLang string `yaml:"default_lang" mapstructure:"default_lang"`
	// APIURL overrides https://<lang>.wikipedia.org/w/api.php when set.
	APIURL string `yaml:"api_url,omitempty" mapstructure:"api_url"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	base := ".wikicite"
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, ".wikicite")
	}

	return &Config{
		HTTP: HTTPConfig{
			Timeout:       15 * time.Second,
			UserAgent:     "wikicite/0.1 (+https://github.com/ppiankov/wikicite)",
			MaxBodyBytes:  5_000_000,
			MaxRetries:    3,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       filepath.Join(base, "cache"),
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Timeout:     60,
			MaxTokens:   1024,
			Temperature: 0.7,
		},
		Concurrency: ConcurrencyConfig{
			JudgeWorkers: 4,
			BatchWorkers: 4,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    filepath.Join(base, "history.db"),
		},
		Output: OutputConfig{
			Format:   "table",
			Preview:  "claim",
			LogLevel: "warn",
		},
		Wikipedia: WikipediaConfig{
			DefaultLang: "en",
		},
	}
}
