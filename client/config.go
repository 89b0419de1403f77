package client

import (
	"time"

	"github.com/mihmosh/whisper-flash/validation"
)

// Config is the transcription client configuration.
type Config struct {
	// ProxyURL is the base URL of the authenticating proxy.
	ProxyURL string `yaml:"proxy_url" mapstructure:"proxy_url" validate:"required,url"`
	// APIKey is the shared secret sent as X-API-Key.
	APIKey string `yaml:"api_key" mapstructure:"api_key" validate:"required"`
	// Workers is the number of worker instances behind the proxy,
	// addressed as /0 .. /N-1.
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=1"`

	// PollInterval is the per-task wait between result polls.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	// PollRate caps the global poll request rate across all tasks.
	PollRate float64 `yaml:"poll_rate" mapstructure:"poll_rate"`
	// SubmitMaxAttempts bounds enqueue attempts per chunk; each retry
	// moves to the next worker.
	SubmitMaxAttempts int `yaml:"submit_max_attempts" mapstructure:"submit_max_attempts"`
	// SubmitBackoff is the initial backoff between enqueue attempts.
	SubmitBackoff time.Duration `yaml:"submit_backoff" mapstructure:"submit_backoff"`
	// WarmupTimeout bounds how long to wait for workers to report "ok"
	// before submitting. Cold GPU instances download the model first.
	WarmupTimeout time.Duration `yaml:"warmup_timeout" mapstructure:"warmup_timeout"`
	// RequestTimeout bounds a single HTTP call through the proxy.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`

	Chunker ChunkerConfig `yaml:"chunker" mapstructure:"chunker"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.PollInterval == 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.PollRate == 0 {
		c.PollRate = 10
	}
	if c.SubmitMaxAttempts == 0 {
		c.SubmitMaxAttempts = 8
	}
	if c.SubmitBackoff == 0 {
		c.SubmitBackoff = 2 * time.Second
	}
	if c.WarmupTimeout == 0 {
		c.WarmupTimeout = 15 * time.Minute
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 2 * time.Minute
	}
	c.Chunker.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
