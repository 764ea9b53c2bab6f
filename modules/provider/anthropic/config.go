package anthropic

import "time"

// defaultMaxTokens applies when the tenant sets no output budget; the
// Messages API requires max_tokens on every request.
const defaultMaxTokens = 1024

const defaultTimeout = 60 * time.Second

// Config holds the YAML-decoded configuration for the Anthropic provider.
type Config struct {
	BaseURL          string        `yaml:"base_url"`
	DefaultMaxTokens int           `yaml:"default_max_tokens"`
	Timeout          time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.DefaultMaxTokens == 0 {
		c.DefaultMaxTokens = defaultMaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}
