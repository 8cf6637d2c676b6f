package redis

import (
	"fmt"
	"time"
)

type Config struct {
	Address string `yaml:"address"`
	// Prefix namespaces every key written by this service.
	Prefix string `yaml:"prefix" default:"tx-debugger"`
	// TTL bounds how long a cached entry lives. Zero keeps entries until
	// evicted by the server.
	TTL time.Duration `yaml:"ttl" default:"24h"`
}

func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.Prefix == "" {
		c.Prefix = "tx-debugger"
	}

	if c.TTL < 0 {
		return fmt.Errorf("redis ttl must not be negative")
	}

	return nil
}
