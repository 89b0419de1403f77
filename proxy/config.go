package proxy

import (
	"time"

	"github.com/mihmosh/whisper-flash/config"
	"github.com/mihmosh/whisper-flash/server"
	"github.com/mihmosh/whisper-flash/validation"
)

// Config is the proxy service configuration.
type Config struct {
	config.BaseConfig `mapstructure:",squash"`

	Server server.Config `yaml:"server" mapstructure:"server"`

	// APIKey is the shared secret clients must present in X-API-Key.
	APIKey string `yaml:"api_key" mapstructure:"api_key" validate:"required"`

	// Targets are the worker base URLs, addressed by index in the route.
	Targets []string `yaml:"targets" mapstructure:"targets" validate:"required,min=1,dive,url"`

	// TokenTTL is the fallback token lifetime when the token carries no
	// parseable expiry claim. Google identity tokens live for an hour;
	// five minutes is deliberately conservative.
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`

	// UpstreamTimeout bounds a single forwarded request. Transcription of
	// a long chunk can take a while, so this is generous.
	UpstreamTimeout time.Duration `yaml:"upstream_timeout" mapstructure:"upstream_timeout"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	c.BaseConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 64 << 20
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 5 * time.Minute
	}
	if c.UpstreamTimeout == 0 {
		c.UpstreamTimeout = 10 * time.Minute
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	return c.Server.Validate()
}
