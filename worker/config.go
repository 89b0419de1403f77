package worker

import (
	"time"

	"github.com/mihmosh/whisper-flash/config"
	"github.com/mihmosh/whisper-flash/server"
	"github.com/mihmosh/whisper-flash/transcription/whisper"
	"github.com/mihmosh/whisper-flash/validation"
)

// Config is the worker service configuration.
type Config struct {
	config.BaseConfig `mapstructure:",squash"`

	Server server.Config `yaml:"server" mapstructure:"server"`

	// QueueCapacity bounds the in-memory task queue. Uploads beyond this
	// are rejected with 503 so the dispatcher reroutes them.
	QueueCapacity int `yaml:"queue_capacity" mapstructure:"queue_capacity" validate:"gte=1"`

	// ResultTTL is how long finished results stay retrievable.
	ResultTTL time.Duration `yaml:"result_ttl" mapstructure:"result_ttl"`

	// SweepInterval is how often expired results are evicted.
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`

	Whisper whisper.Config `yaml:"whisper" mapstructure:"whisper"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	c.BaseConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	if c.Server.MaxBodyBytes == 0 {
		// Audio chunks are a few MB of FLAC at most; 64MB leaves headroom.
		c.Server.MaxBodyBytes = 64 << 20
	}
	if c.QueueCapacity == 0 {
		c.QueueCapacity = 10
	}
	if c.ResultTTL == 0 {
		c.ResultTTL = 30 * time.Minute
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = time.Minute
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	return c.Server.Validate()
}
