package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Config holds the question generator configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
	LLM        LLMConfig        `yaml:"llm"`
	Generation GenerationConfig `yaml:"generation"`
	Extract    ExtractConfig    `yaml:"extract"`
	Redis      RedisConfig      `yaml:"redis"`
	Storage    StorageConfig    `yaml:"storage"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	File       string `yaml:"file"`  // optional rotating JSON log file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxUploadMB     int `yaml:"max_upload_mb"`
}

// LLMConfig selects and configures the completion backend.
type LLMConfig struct {
	Provider          string                    `yaml:"provider"` // openai, gemini, anthropic
	Providers         map[string]ProviderConfig `yaml:"providers"`
	RequestsPerSecond float64                   `yaml:"requests_per_second"` // 0 = no global limit
	SOCKS5Proxy       string                    `yaml:"socks5_proxy"`
	TimeoutSec        int                       `yaml:"timeout_sec"`
	Budget            BudgetConfig              `yaml:"budget"`
}

// ProviderConfig holds per-provider credentials and model.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// GenerationConfig tunes chunking, summarization and question synthesis.
// Zero values are replaced by defaults, so a temperature of exactly 0 cannot be configured.
type GenerationConfig struct {
	ChunkBudget         int     `yaml:"chunk_budget"`
	TopicLimit          int     `yaml:"topic_limit"`
	ChunkMaxTokens      int     `yaml:"chunk_max_tokens"`
	CompressMaxTokens   int     `yaml:"compress_max_tokens"`
	SummaryTemperature  float64 `yaml:"summary_temperature"`
	QuestionMaxTokens   int     `yaml:"question_max_tokens"`
	QuestionTemperature float64 `yaml:"question_temperature"`
	FeedbackMaxTokens   int     `yaml:"feedback_max_tokens"`
	FeedbackTemperature float64 `yaml:"feedback_temperature"`
	ChunkIntervalMS     int     `yaml:"chunk_interval_ms"`
	MergeDelayMS        int     `yaml:"merge_delay_ms"`
	Concurrency         int     `yaml:"concurrency"`
	RequestTimeoutSec   int     `yaml:"request_timeout_sec"`
	Language            string  `yaml:"language"`
	Encoding            string  `yaml:"encoding"`
}

// ExtractConfig configures the content extractors.
type ExtractConfig struct {
	YouTubeAPIKey     string   `yaml:"youtube_api_key"`
	TranscriptLangs   []string `yaml:"transcript_languages"`
	TimedTextURL      string   `yaml:"timedtext_url"`
	WebsiteTimeoutSec int      `yaml:"website_timeout_sec"`
	PDFToText         string   `yaml:"pdftotext"`
	Tesseract         string   `yaml:"tesseract"`
	TesseractLangs    string   `yaml:"tesseract_langs"`
	// LegacyGuardTypes lists content types served by collaborators that report
	// failure inside the payload. Only those are checked for FailurePatterns.
	LegacyGuardTypes []string `yaml:"legacy_guard_types"`
	FailurePatterns  []string `yaml:"legacy_failure_patterns"`
}

var contentTypes = map[string]bool{"text": true, "pdf": true, "image": true, "youtube": true, "website": true}

// RedisConfig holds the budget store connection. Empty addrs keep budgets in memory.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// a full pipeline run may take minutes
		c.HTTP.WriteTimeoutSec = 330
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = 16
	}

	if c.Logging.File != "" {
		if c.Logging.MaxSizeMB <= 0 {
			c.Logging.MaxSizeMB = 100
		}
		if c.Logging.MaxBackups <= 0 {
			c.Logging.MaxBackups = 5
		}
		if c.Logging.MaxAgeDays <= 0 {
			c.Logging.MaxAgeDays = 30
		}
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOpenAI
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 120
	}
	if c.LLM.Providers == nil {
		c.LLM.Providers = make(map[string]ProviderConfig)
	}
	for name, def := range map[string]string{
		ProviderOpenAI:    "gpt-4",
		ProviderGemini:    "gemini-pro",
		ProviderAnthropic: "claude-sonnet",
	} {
		p := c.LLM.Providers[name]
		if p.Model == "" {
			p.Model = def
			c.LLM.Providers[name] = p
		}
	}

	c.Generation.applyDefaults()

	if c.Extract.WebsiteTimeoutSec <= 0 {
		c.Extract.WebsiteTimeoutSec = 30
	}
	if c.Extract.PDFToText == "" {
		c.Extract.PDFToText = "pdftotext"
	}
	if c.Extract.Tesseract == "" {
		c.Extract.Tesseract = "tesseract"
	}
	if len(c.Extract.TranscriptLangs) == 0 {
		c.Extract.TranscriptLangs = []string{"ko", "en"}
	}
	if c.Extract.TesseractLangs == "" {
		c.Extract.TesseractLangs = "kor+eng"
	}

	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "questiongen:"
	}
}

func (g *GenerationConfig) applyDefaults() {
	setInt := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	setFloat := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}

	setInt(&g.ChunkBudget, 1000)
	setInt(&g.TopicLimit, 5)
	setInt(&g.ChunkMaxTokens, 500)
	setInt(&g.CompressMaxTokens, 200)
	setFloat(&g.SummaryTemperature, 0.3)
	setInt(&g.QuestionMaxTokens, 2000)
	setFloat(&g.QuestionTemperature, 0.7)
	setInt(&g.FeedbackMaxTokens, 2000)
	setFloat(&g.FeedbackTemperature, 0.7)
	setInt(&g.ChunkIntervalMS, 1000)
	setInt(&g.MergeDelayMS, 3000)
	setInt(&g.Concurrency, 1)
	setInt(&g.RequestTimeoutSec, 300)
	if g.Language == "" {
		g.Language = "Korean"
	}
	if g.Encoding == "" {
		g.Encoding = "cl100k_base"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini, ProviderAnthropic:
	default:
		return fmt.Errorf("llm.provider must be one of openai, gemini, anthropic, got %q", c.LLM.Provider)
	}
	switch c.LLM.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf("llm.budget.action must be \"warn\" or \"reject\", got %q", c.LLM.Budget.Action)
	}
	if c.LLM.RequestsPerSecond < 0 {
		return fmt.Errorf("llm.requests_per_second must not be negative, got %v", c.LLM.RequestsPerSecond)
	}
	if c.LLM.SOCKS5Proxy != "" && !strings.HasPrefix(c.LLM.SOCKS5Proxy, "socks5://") &&
		!strings.HasPrefix(c.LLM.SOCKS5Proxy, "socks5h://") {
		return fmt.Errorf("llm.socks5_proxy must be a socks5:// URL, got %q", c.LLM.SOCKS5Proxy)
	}
	if c.Generation.TopicLimit > c.Generation.ChunkBudget {
		return fmt.Errorf("generation.topic_limit (%d) is larger than chunk_budget (%d)",
			c.Generation.TopicLimit, c.Generation.ChunkBudget)
	}
	for _, t := range c.Extract.LegacyGuardTypes {
		if !contentTypes[t] {
			return fmt.Errorf("extract.legacy_guard_types: unknown content type %q", t)
		}
	}
	return nil
}

// Active returns the configuration of the selected LLM provider.
func (c *Config) Active() ProviderConfig {
	return c.LLM.Providers[c.LLM.Provider]
}

// ChunkInterval is the minimum spacing between chunk summarization calls.
func (g GenerationConfig) ChunkInterval() time.Duration {
	return time.Duration(g.ChunkIntervalMS) * time.Millisecond
}

// MergeDelay is the pause before partial summaries are merged.
func (g GenerationConfig) MergeDelay() time.Duration {
	return time.Duration(g.MergeDelayMS) * time.Millisecond
}

// RequestTimeout bounds one pipeline run.
func (g GenerationConfig) RequestTimeout() time.Duration {
	return time.Duration(g.RequestTimeoutSec) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
