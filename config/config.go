// Package config は、実行に必要な設定を 1 つの構造体にまとめます。
// 既定値、YAML ファイル、.env、環境変数の順に上書きされます。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sat8bit/postgen/llm"
	"github.com/sat8bit/postgen/retry"
	"github.com/sat8bit/postgen/source"
)

const (
	DefaultConfigFile = "postgen.yaml"
	DefaultEnvFile    = ".env"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ErrMissingAPIKey は、生成 API のキーが設定されていないことを示します。
var ErrMissingAPIKey = errors.New("missing API key")

type Config struct {
	Provider   string           `yaml:"provider"`
	TopicsFile string           `yaml:"topics_file"`
	OutputDir  string           `yaml:"output_dir"`
	Timezone   string           `yaml:"timezone"`
	Count      int              `yaml:"count"`
	Interval   time.Duration    `yaml:"interval"`
	Topic      string           `yaml:"-"`
	Generation GenerationConfig `yaml:"generation"`
	Retry      RetryConfig      `yaml:"retry"`
	Search     SearchConfig     `yaml:"search"`
	News       NewsConfig       `yaml:"news"`
	Logging    LoggingConfig    `yaml:"logging"`

	OpenAIAPIKey string `yaml:"-"`
	GeminiAPIKey string `yaml:"-"`
	SerperAPIKey string `yaml:"-"`
}

type GenerationConfig struct {
	Model        string        `yaml:"model"`
	BaseURL      string        `yaml:"base_url"`
	Temperature  float32       `yaml:"temperature"`
	Timeout      time.Duration `yaml:"timeout"`
	SystemPrompt string        `yaml:"system_prompt"`
}

type RetryConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

type SearchConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Num      int           `yaml:"num"`
	Timeout  time.Duration `yaml:"timeout"`
	// IgnoreErrors が true の場合、検索の失敗は警告のみで参考情報なしとして続行する。
	IgnoreErrors bool `yaml:"ignore_errors"`
}

// NewsConfig は、ニュースフィードの設定です。FeedURL が空の場合は無効です。
type NewsConfig struct {
	FeedURL string `yaml:"feed_url"`
	Limit   int    `yaml:"limit"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default は、既定値で埋めた Config を返します。
func Default() *Config {
	return &Config{
		Provider:   ProviderOpenAI,
		TopicsFile: "topics.txt",
		OutputDir:  "_posts",
		Timezone:   "Asia/Tokyo",
		Count:      1,
		Interval:   10 * time.Second,
		Generation: GenerationConfig{
			Temperature:  llm.DefaultTemperature,
			Timeout:      llm.DefaultTimeout,
			SystemPrompt: llm.DefaultSystemPrompt,
		},
		Retry: RetryConfig{
			MaxRetries:   retry.DefaultMaxRetries,
			InitialDelay: retry.DefaultInitialDelay,
			MaxDelay:     retry.DefaultMaxDelay,
		},
		Search: SearchConfig{
			Endpoint: source.DefaultSerperEndpoint,
			Num:      5,
			Timeout:  source.DefaultSerperTimeout,
		},
		News: NewsConfig{
			Limit: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load は、path の YAML ファイル(任意)と .env、環境変数から Config を構築します。
// path が空の場合は DefaultConfigFile が存在すれば読み込みます。
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := loadDotEnv(DefaultEnvFile); err != nil {
		return nil, err
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// loadDotEnv は、path の .env を読み込みます。ファイルがなければ何もしません。
// 既存の環境変数は上書きされません。
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv は、環境変数の値で Config を上書きします。
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	c.OpenAIAPIKey = get("OPENAI_API_KEY")
	c.GeminiAPIKey = get("GEMINI_API_KEY")
	c.SerperAPIKey = get("SERPER_API_KEY")
	if v := get("TOPIC"); v != "" {
		c.Topic = v
	}
	if v := get("POSTGEN_PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}
	if v := get("POSTGEN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// APIKey は、選択されたプロバイダの API キーを返します。
func (c *Config) APIKey() string {
	switch c.Provider {
	case ProviderGemini:
		return c.GeminiAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

// SearchEnabled は、Serper 検索が有効かどうかを返します。
func (c *Config) SearchEnabled() bool {
	return c.SerperAPIKey != ""
}

// Location は、日付の計算に使うタイムゾーンを返します。
// タイムゾーンデータベースが利用できない環境では JST 固定の Location を返します。
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}

// Validate は、設定値を検証します。
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unsupported provider: %q", c.Provider)
	}

	if c.APIKey() == "" {
		envName := "OPENAI_API_KEY"
		if c.Provider == ProviderGemini {
			envName = "GEMINI_API_KEY"
		}
		return fmt.Errorf("%w: set %s environment variable", ErrMissingAPIKey, envName)
	}

	if c.Count <= 0 {
		return fmt.Errorf("count must be positive, got %d", c.Count)
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative, got %v", c.Interval)
	}
	if c.Retry.MaxRetries <= 0 || c.Retry.MaxRetries > retry.MaxRetriesLimit {
		return fmt.Errorf("retry.max_retries must be between 1 and %d, got %d", retry.MaxRetriesLimit, c.Retry.MaxRetries)
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		return fmt.Errorf("retry.max_delay (%v) must not be less than retry.initial_delay (%v)", c.Retry.MaxDelay, c.Retry.InitialDelay)
	}
	if c.Retry.InitialDelay < 0 {
		return fmt.Errorf("retry.initial_delay must not be negative, got %v", c.Retry.InitialDelay)
	}
	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("generation.timeout must be positive, got %v", c.Generation.Timeout)
	}
	if c.Search.Num <= 0 {
		return fmt.Errorf("search.num must be positive, got %d", c.Search.Num)
	}
	if c.OutputDir == "" {
		return errors.New("output_dir must not be empty")
	}
	return nil
}

// RetryPolicy は、retry.Policy に変換します。
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries:   c.Retry.MaxRetries,
		InitialDelay: c.Retry.InitialDelay,
		MaxDelay:     c.Retry.MaxDelay,
	}
}
