package explorer

import (
	"errors"
	"strings"
)

type Config struct {
	// BaseURL is the Etherscan v2 unified endpoint; the chain is chosen by the
	// chainid query parameter.
	BaseURL string `yaml:"baseUrl" default:"https://api.etherscan.io/v2/api"`
	// APIKey may be empty, in which case lookups report that they are
	// unavailable instead of failing.
	APIKey string `yaml:"apiKey"`
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("explorer baseUrl is required")
	}

	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	return nil
}
