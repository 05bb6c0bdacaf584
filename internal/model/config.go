package model

import "time"

// Config is the complete ballotwatch configuration. It is loaded once at
// process start (defaults, then config file, then BALLOTWATCH_* env vars,
// then flags) and treated as immutable afterwards so the rule engine and
// reconciler stay pure.
type Config struct {
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Rules        RulesConfig       `yaml:"rules" mapstructure:"rules"`
	AI           AIConfig          `yaml:"ai" mapstructure:"ai"`
	Official     OfficialConfig    `yaml:"official" mapstructure:"official"`
	Escalation   EscalationConfig  `yaml:"escalation" mapstructure:"escalation"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
}

// HTTPConfig controls the outbound HTTP clients used by the
// corroboration layers.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS  bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy    string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// RulesConfig holds the deterministic Layer-1 constraints.
type RulesConfig struct {
	// ElectionDays maps a jurisdiction code to the weekday its elections
	// must fall on. The "default" key applies when no jurisdiction-specific
	// entry exists.
	ElectionDays map[string]string `yaml:"election_days" mapstructure:"election_days"`

	// PlausibilityYears bounds how far a claimed date may be from now
	// in either direction before it is rejected as implausible.
	PlausibilityYears int `yaml:"plausibility_years" mapstructure:"plausibility_years"`

	// DenyList contains placeholder phrases that must never appear in
	// free-text fields (case-insensitive substring match).
	DenyList []string `yaml:"deny_list" mapstructure:"deny_list"`
}

// AIConfig configures the Layer-2 AI corroboration client.
type AIConfig struct {
	APIKey    string        `yaml:"api_key" mapstructure:"api_key"`
	Model     string        `yaml:"model" mapstructure:"model"`
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens"`

	// Prior is the static reliability prior (0-100) assigned to this
	// source before citation and staleness adjustments.
	Prior int `yaml:"prior" mapstructure:"prior"`
}

// OfficialConfig configures the Layer-3 official-source client.
type OfficialConfig struct {
	// Endpoints maps a jurisdiction code to the official lookup URL for
	// that jurisdiction (e.g. a secretary-of-state election calendar).
	Endpoints map[string]string `yaml:"endpoints" mapstructure:"endpoints"`

	// AllowedDomains is the verified-source allowlist. A lookup URL whose
	// host is not under one of these domains is refused.
	AllowedDomains []string `yaml:"allowed_domains" mapstructure:"allowed_domains"`

	Prior   int           `yaml:"prior" mapstructure:"prior"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// EscalationConfig controls when reconciled verdicts are routed to the
// manual-review queue.
type EscalationConfig struct {
	// ConfidenceThreshold escalates any run whose final confidence falls
	// below it. Independent of the fixed pass threshold in reconcile.
	ConfidenceThreshold int `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
}

// CacheConfig controls caching of official-source fetches.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig controls batch processing parallelism.
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitConfig controls per-domain rate limiting of official lookups.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// OutputConfig controls CLI output and audit sinks.
type OutputConfig struct {
	Verbose        bool   `yaml:"verbose" mapstructure:"verbose"`
	ProvenancePath string `yaml:"provenance_path" mapstructure:"provenance_path"`
	ReviewPath     string `yaml:"review_path" mapstructure:"review_path"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "Ballotwatch/0.1 (+https://github.com/ballotwatch/ballotwatch)",
			MaxBodyBytes: 2_000_000,
		},
		Rules: RulesConfig{
			ElectionDays: map[string]string{
				"default": "Tuesday",
				"LA":      "Saturday",
			},
			PlausibilityYears: 6,
			DenyList: []string{
				"lorem ipsum",
				"placeholder",
				"tbd",
				"to be determined",
				"test test",
				"asdf",
				"sample text",
				"xxx",
			},
		},
		AI: AIConfig{
			Model:     "gpt-4o-mini",
			Timeout:   30 * time.Second,
			MaxTokens: 500,
			Prior:     75,
		},
		Official: OfficialConfig{
			Endpoints: map[string]string{},
			AllowedDomains: []string{
				"sos.la.gov",
				"vote.org",
				"usa.gov",
				"eac.gov",
			},
			Prior:   85,
			Timeout: 20 * time.Second,
		},
		Escalation: EscalationConfig{
			ConfidenceThreshold: 70,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".ballotwatch-cache",
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   6 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 1,
			BurstSize:         3,
		},
		Output: OutputConfig{
			ProvenancePath: "provenance.jsonl",
			ReviewPath:     "review-queue.jsonl",
		},
	}
}
