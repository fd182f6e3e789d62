// Package config loads process configuration from the environment, with an
// optional YAML file for tuning that is awkward to express as env vars.
// Precedence: defaults, then the file named by BIAS_CONFIG_FILE, then env.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	liststrings "biasmeter/pkg/platform/strings"
)

// Config is the full process configuration.
type Config struct {
	Server  Server        `yaml:"server"`
	Log     Log           `yaml:"log"`
	Engine  Engine        `yaml:"engine"`
	Lexicon Lexicon       `yaml:"lexicon"`
	Invoker Invoker       `yaml:"invoker"`
	Cache   Cache         `yaml:"cache"`
	Redis   RedisConfig   `yaml:"redis"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Engine tunes lexicon scoring.
type Engine struct {
	MaxChunkChars  int           `yaml:"max_chunk_chars"`
	ChunkTimeout   time.Duration `yaml:"chunk_timeout"`
	MaxConcurrency int           `yaml:"max_concurrency"` // 0 means GOMAXPROCS
}

// Lexicon points at vocabulary files. Empty paths use the embedded seeds.
type Lexicon struct {
	DomainPath    string `yaml:"domain_path"`
	SentimentPath string `yaml:"sentiment_path"`
}

// Invoker tunes model backends.
type Invoker struct {
	DefaultBackend string         `yaml:"default_backend"`
	FamilyOrder    []string       `yaml:"family_order"`
	MaxRetries     int            `yaml:"max_retries"`
	BaseDelay      time.Duration  `yaml:"base_delay"`
	MaxJitter      time.Duration  `yaml:"max_jitter"`
	AttemptTimeout time.Duration  `yaml:"attempt_timeout"`
	MaxPromptChars int            `yaml:"max_prompt_chars"`
	CircuitBreaker CircuitBreaker `yaml:"circuit_breaker"`

	// Backends are registered after the built-in catalog.
	Backends []Backend `yaml:"backends"`
}

// Backend is an extra backend registration.
type Backend struct {
	ID            string `yaml:"id"`
	Family        string `yaml:"family"`
	Model         string `yaml:"model"`
	CredentialRef string `yaml:"credential_ref"`
	FamilyDefault bool   `yaml:"family_default"`
}

type CircuitBreaker struct {
	Enabled          bool `yaml:"enabled"`
	FailureThreshold int  `yaml:"failure_threshold"`
	SuccessThreshold int  `yaml:"success_threshold"`
}

// Cache configures the model score cache. Redis is used when Redis.URL is
// set, the in-memory LRU otherwise.
type Cache struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Log: Log{Level: "info", Format: "json"},
		Engine: Engine{
			MaxChunkChars: 5000,
			ChunkTimeout:  5 * time.Second,
		},
		Invoker: Invoker{
			FamilyOrder:    []string{"openai", "anthropic", "gemini"},
			MaxRetries:     4,
			BaseDelay:      time.Second,
			MaxJitter:      time.Second,
			AttemptTimeout: 60 * time.Second,
			MaxPromptChars: 12000,
			CircuitBreaker: CircuitBreaker{FailureThreshold: 5, SuccessThreshold: 3},
		},
		Cache: Cache{Enabled: true, Size: 1024, TTL: 24 * time.Hour},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

// FromEnv builds the configuration so main stays lean.
func FromEnv() (Config, error) {
	cfg := Default()
	if path := os.Getenv("BIAS_CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("BIAS_ADDR", &c.Server.Addr)
	e.duration("BIAS_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	e.str("BIAS_LOG_LEVEL", &c.Log.Level)
	e.str("BIAS_LOG_FORMAT", &c.Log.Format)

	e.integer("BIAS_MAX_CHUNK_CHARS", &c.Engine.MaxChunkChars)
	e.duration("BIAS_CHUNK_TIMEOUT", &c.Engine.ChunkTimeout)
	e.integer("BIAS_MAX_CONCURRENCY", &c.Engine.MaxConcurrency)

	e.str("BIAS_DOMAIN_LEXICON", &c.Lexicon.DomainPath)
	e.str("BIAS_SENTIMENT_LEXICON", &c.Lexicon.SentimentPath)

	e.str("BIAS_DEFAULT_BACKEND", &c.Invoker.DefaultBackend)
	if v, ok := lookup("BIAS_FAMILY_ORDER"); ok {
		c.Invoker.FamilyOrder = liststrings.SplitList(v)
	}
	e.integer("BIAS_MAX_RETRIES", &c.Invoker.MaxRetries)
	e.duration("BIAS_ATTEMPT_TIMEOUT", &c.Invoker.AttemptTimeout)
	e.integer("BIAS_MAX_PROMPT_CHARS", &c.Invoker.MaxPromptChars)
	e.boolean("BIAS_CIRCUIT_BREAKER", &c.Invoker.CircuitBreaker.Enabled)

	e.boolean("BIAS_CACHE_ENABLED", &c.Cache.Enabled)
	e.integer("BIAS_CACHE_SIZE", &c.Cache.Size)
	e.duration("BIAS_CACHE_TTL", &c.Cache.TTL)
	e.str("REDIS_URL", &c.Redis.URL)

	e.boolean("BIAS_METRICS_ENABLED", &c.Metrics.Enabled)

	return errors.Join(e.errs...)
}

// MaxRetriesLimit bounds invoker.max_retries.
const MaxRetriesLimit = 10

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Engine.MaxChunkChars <= 0 {
		errs = append(errs, errors.New("engine.max_chunk_chars must be positive"))
	}
	if c.Engine.ChunkTimeout <= 0 {
		errs = append(errs, errors.New("engine.chunk_timeout must be positive"))
	}
	if c.Engine.MaxConcurrency < 0 {
		errs = append(errs, errors.New("engine.max_concurrency must not be negative"))
	}
	if c.Invoker.MaxRetries < 0 || c.Invoker.MaxRetries > MaxRetriesLimit {
		errs = append(errs, fmt.Errorf("invoker.max_retries must be between 0 and %d", MaxRetriesLimit))
	}
	if c.Invoker.BaseDelay < 0 || c.Invoker.MaxJitter < 0 {
		errs = append(errs, errors.New("invoker.base_delay and invoker.max_jitter must not be negative"))
	}
	if c.Invoker.AttemptTimeout <= 0 {
		errs = append(errs, errors.New("invoker.attempt_timeout must be positive"))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// CredentialRefs lists every credential reference the configured backends
// may need, including the built-in ones.
func (c Config) CredentialRefs(builtin ...string) []string {
	refs := append([]string(nil), builtin...)
	for _, b := range c.Invoker.Backends {
		if b.CredentialRef != "" {
			refs = append(refs, b.CredentialRef)
		}
	}
	return refs
}

// LookupCredentials reads each reference from the environment. Missing or
// blank references are omitted.
func LookupCredentials(refs []string) map[string]string {
	out := make(map[string]string, len(refs))
	for _, ref := range refs {
		if v := os.Getenv(ref); v != "" {
			out[ref] = v
		}
	}
	return out
}

type envReader struct {
	lookup lookupFunc
	errs   []error
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok && v != "" {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}
