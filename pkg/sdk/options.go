package questiongen

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	completer Completer

	provider string // "openai", "gemini" or "anthropic"
	apiKey   string
	baseURL  string
	model    string

	redisAddrs    []string
	redisPassword string

	counter       TokenCounter
	language      string
	chunkBudget   int
	topicLimit    int
	concurrency   int
	chunkInterval time.Duration
	mergeDelay    time.Duration
	timeout       time.Duration

	dailyLimit   int64
	monthlyLimit int64
	rejectOver   bool

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		language:      "Korean",
		chunkBudget:   1000,
		topicLimit:    5,
		concurrency:   1,
		chunkInterval: time.Second,
		mergeDelay:    3 * time.Second,
		timeout:       5 * time.Minute,
	}
}

// WithCompleter plugs in a custom LLM backend. It takes precedence over
// WithOpenAI, WithGemini and WithAnthropic.
func WithCompleter(c Completer) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.completer = c
	})
}

// WithOpenAI uses the OpenAI chat completions API. An empty model selects gpt-4.
func WithOpenAI(apiKey, model string) Option {
	return withProvider("openai", apiKey, model)
}

// WithGemini uses the Gemini generateContent API. An empty model selects gemini-pro.
func WithGemini(apiKey, model string) Option {
	return withProvider("gemini", apiKey, model)
}

// WithAnthropic uses the Anthropic Messages API. An empty model selects claude-sonnet.
func WithAnthropic(apiKey, model string) Option {
	return withProvider("anthropic", apiKey, model)
}

func withProvider(name, apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = name
		c.apiKey = apiKey
		c.model = model
	})
}

// WithBaseURL points the built-in backend at a compatible endpoint.
func WithBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = url
	})
}

// WithRedis persists token budget counters in Redis.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddrs = []string{addr}
		c.redisPassword = password
	})
}

// WithTokenCounter replaces the tiktoken cl100k_base counter used for chunking.
func WithTokenCounter(tc TokenCounter) Option {
	return optionFunc(func(c *clientConfig) {
		c.counter = tc
	})
}

// WithLanguage sets the language prompts ask the model to answer in. Default: Korean.
func WithLanguage(language string) Option {
	return optionFunc(func(c *clientConfig) {
		c.language = language
	})
}

// WithChunkBudget sets the token budget of one summarization call. Default: 1000.
func WithChunkBudget(tokens int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkBudget = tokens
	})
}

// WithTopicLimit caps the topics kept after aggregation. Default: 5.
func WithTopicLimit(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topicLimit = n
	})
}

// WithConcurrency sets how many chunk summaries may be in flight. Default: 1.
func WithConcurrency(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.concurrency = n
	})
}

// WithPacing sets the spacing between chunk calls and the pause before merging.
// Defaults: 1s and 3s. Zero disables either pause.
func WithPacing(chunkInterval, mergeDelay time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkInterval = chunkInterval
		c.mergeDelay = mergeDelay
	})
}

// WithTimeout bounds one Generate call. Default: 5 minutes. Zero disables the deadline.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithTokenBudget limits daily and monthly LLM token usage. Zero means unlimited.
// With reject=true calls over budget fail with ErrQuotaExceeded, otherwise they are only logged.
func WithTokenBudget(daily, monthly int64, reject bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.dailyLimit = daily
		c.monthlyLimit = monthly
		c.rejectOver = reject
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
