package model

import (
	"fmt"
	"strings"
	"time"
)

// Config is the complete runtime configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Transcribe TranscribeConfig `yaml:"transcribe" mapstructure:"transcribe"`
	Evidence   EvidenceConfig   `yaml:"evidence" mapstructure:"evidence"`
	Synthesis  SynthesisConfig  `yaml:"synthesis" mapstructure:"synthesis"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Authority  AuthorityConfig  `yaml:"authority" mapstructure:"authority"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the websocket endpoint
type ServerConfig struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"` // "*" allows every origin
	MaxAudioBytes  int64         `yaml:"max_audio_bytes" mapstructure:"max_audio_bytes"`
	PingInterval   time.Duration `yaml:"ping_interval" mapstructure:"ping_interval"`
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	PongTimeout    time.Duration `yaml:"pong_timeout" mapstructure:"pong_timeout"`
	OutboxSize     int           `yaml:"outbox_size" mapstructure:"outbox_size"`
	UpgradeRPS     float64       `yaml:"upgrade_rps" mapstructure:"upgrade_rps"`     // Per-IP websocket upgrades per second
	UpgradeBurst   int           `yaml:"upgrade_burst" mapstructure:"upgrade_burst"` // Per-IP burst
	SegmentRPS     float64       `yaml:"segment_rps" mapstructure:"segment_rps"`     // Inbound segments per second per session
	SegmentBurst   int           `yaml:"segment_burst" mapstructure:"segment_burst"`
}

// LLMConfig configures the language model capability
type LLMConfig struct {
	Provider       string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model          string `yaml:"model" mapstructure:"model"`
	SynthesisModel string `yaml:"synthesis_model" mapstructure:"synthesis_model"` // Larger model for the verdict, optional
	APIKey         string `yaml:"-" mapstructure:"api_key"`
	BaseURL        string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout        int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens      int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// TranscribeConfig configures the audio transcriber
type TranscribeConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // openai, text
	Model    string `yaml:"model" mapstructure:"model"`
	Language string `yaml:"language,omitempty" mapstructure:"language"`
	TempDir  string `yaml:"temp_dir" mapstructure:"temp_dir"`
	Timeout  int    `yaml:"timeout" mapstructure:"timeout"` // seconds
}

// EvidenceConfig configures web evidence retrieval
type EvidenceConfig struct {
	SearchURL         string        `yaml:"search_url" mapstructure:"search_url"` // %s is replaced by the escaped query
	MaxResults        int           `yaml:"max_results" mapstructure:"max_results"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
	SearchTimeout     time.Duration `yaml:"search_timeout" mapstructure:"search_timeout"`
	MaxTextChars      int           `yaml:"max_text_chars" mapstructure:"max_text_chars"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	ExcludedHosts     []string      `yaml:"excluded_hosts" mapstructure:"excluded_hosts"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"` // Per domain
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	DomainRates       []DomainRate  `yaml:"domain_rates,omitempty" mapstructure:"domain_rates"` // Per-domain overrides
	InsecureTLS       bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy           string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// DomainRate overrides the fetch rate for one host
type DomainRate struct {
	Domain            string  `yaml:"domain" mapstructure:"domain"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// SynthesisConfig configures the verdict synthesizer
type SynthesisConfig struct {
	TopN          int `yaml:"top_n" mapstructure:"top_n"`
	ExcerptLength int `yaml:"excerpt_length" mapstructure:"excerpt_length"` // Per-source characters in the prompt
}

// PipelineConfig configures verification runs
type PipelineConfig struct {
	RunTimeout     time.Duration `yaml:"run_timeout" mapstructure:"run_timeout"`
	ScoringWorkers int           `yaml:"scoring_workers" mapstructure:"scoring_workers"` // 0 means one goroutine per document
	BatchWorkers   int           `yaml:"batch_workers" mapstructure:"batch_workers"`
}

// AuthorityConfig configures source authority classification
type AuthorityConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	PathPatterns     []PathPattern     `yaml:"path_patterns,omitempty" mapstructure:"path_patterns"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"`
}

// PathPattern maps a URL path regex to a tier name
type PathPattern struct {
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
	Tier    string `yaml:"tier" mapstructure:"tier"`
}

// CacheConfig configures the in-memory caches
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	PageTTL   time.Duration `yaml:"page_ttl" mapstructure:"page_ttl"`
	SearchTTL time.Duration `yaml:"search_ttl" mapstructure:"search_ttl"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Development bool   `yaml:"development" mapstructure:"development"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"*"},
			MaxAudioBytes:  10 << 20,
			PingInterval:   50 * time.Second,
			WriteTimeout:   10 * time.Second,
			PongTimeout:    60 * time.Second,
			OutboxSize:     64,
			UpgradeRPS:     5,
			UpgradeBurst:   10,
			SegmentRPS:     10,
			SegmentBurst:   20,
		},
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			SynthesisModel: "gpt-4o",
			Timeout:        30,
			MaxTokens:      1000,
		},
		Transcribe: TranscribeConfig{
			Provider: "openai",
			Model:    "whisper-1",
			TempDir:  "audio_segments",
			Timeout:  60,
		},
		Evidence: EvidenceConfig{
			SearchURL:     "https://www.google.com/search?q=%s",
			MaxResults:    10,
			FetchTimeout:  10 * time.Second,
			SearchTimeout: 15 * time.Second,
			MaxTextChars:  5000,
			MaxBodyBytes:  2_000_000,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
				"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36",
			ExcludedHosts: []string{
				"support.google.com",
				"accounts.google.com",
				"policies.google.com",
				"maps.google.com",
			},
			RespectRobots:     true,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Synthesis: SynthesisConfig{
			TopN:          3,
			ExcerptLength: 500,
		},
		Pipeline: PipelineConfig{
			RunTimeout:     2 * time.Minute,
			ScoringWorkers: 0,
			BatchWorkers:   4,
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"doi.org",
				"nih.gov",
				"who.int",
				"europa.eu",
				"nature.com",
				"science.org",
				"arxiv.org",
			},
			SecondaryDomains: []string{
				"wikipedia.org",
				"britannica.com",
				"reuters.com",
				"apnews.com",
				"bbc.co.uk",
				"bbc.com",
				"nytimes.com",
				"theguardian.com",
			},
		},
		Cache: CacheConfig{
			Enabled:   true,
			PageTTL:   10 * time.Minute,
			SearchTTL: 5 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate rejects out-of-range values and fills zero values with defaults
func (c *Config) Validate() error {
	def := DefaultConfig()

	if c.Server.Addr == "" {
		return fmt.Errorf("config: server.addr is required")
	}
	if c.Server.MaxAudioBytes <= 0 {
		c.Server.MaxAudioBytes = def.Server.MaxAudioBytes
	}
	if c.Server.OutboxSize <= 0 {
		c.Server.OutboxSize = def.Server.OutboxSize
	}
	if c.Evidence.MaxResults <= 0 || c.Evidence.MaxResults > 50 {
		return fmt.Errorf("config: evidence.max_results must be in 1..50, got %d", c.Evidence.MaxResults)
	}
	if !strings.Contains(c.Evidence.SearchURL, "%s") {
		return fmt.Errorf("config: evidence.search_url must contain %%s, got %q", c.Evidence.SearchURL)
	}
	if c.Evidence.FetchTimeout <= 0 {
		c.Evidence.FetchTimeout = def.Evidence.FetchTimeout
	}
	if c.Evidence.MaxTextChars <= 0 {
		c.Evidence.MaxTextChars = def.Evidence.MaxTextChars
	}
	for _, dr := range c.Evidence.DomainRates {
		if dr.Domain == "" || dr.RequestsPerSecond <= 0 {
			return fmt.Errorf("config: evidence.domain_rates entries need a domain and a positive rate, got %+v", dr)
		}
	}
	if c.Synthesis.TopN <= 0 {
		return fmt.Errorf("config: synthesis.top_n must be >= 1, got %d", c.Synthesis.TopN)
	}
	if c.Pipeline.ScoringWorkers < 0 {
		return fmt.Errorf("config: pipeline.scoring_workers must be >= 0, got %d", c.Pipeline.ScoringWorkers)
	}
	if c.Pipeline.RunTimeout <= 0 {
		c.Pipeline.RunTimeout = def.Pipeline.RunTimeout
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log.level %q", c.Log.Level)
	}
	return nil
}
