package ethereum

import (
	"fmt"
	"strings"
)

type Config struct {
	// Alchemy API key, used for every network Alchemy serves.
	AlchemyKey string `yaml:"alchemyKey"`
	// Per-network RPC endpoint overrides keyed by chain id.
	RPCURLs map[string]string `yaml:"rpcUrls"`
	// Extra headers sent with every RPC request.
	Headers map[string]string `yaml:"headers"`
}

func (c *Config) Validate() error {
	for id, url := range c.RPCURLs {
		if !isNumeric(id) {
			return fmt.Errorf("rpcUrls key %q is not a chain id", id)
		}

		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return fmt.Errorf("rpcUrls[%s] must be an http(s) URL", id)
		}
	}

	return nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
