package simulation

import (
	"errors"
	"strings"
)

type Config struct {
	// BaseURL is the simulation API root.
	BaseURL string `yaml:"baseUrl" default:"https://api.tenderly.co/api/v1"`
	// AccountSlug is the account the simulations are billed to.
	AccountSlug string `yaml:"accountSlug"`
	// ProjectSlug is the project the simulations are stored under.
	ProjectSlug string `yaml:"projectSlug"`
	// AccessKey is sent as the X-Access-Key header.
	AccessKey string `yaml:"accessKey"`
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("simulation baseUrl is required")
	}

	if c.AccountSlug == "" || c.ProjectSlug == "" {
		return errors.New("simulation accountSlug and projectSlug are required")
	}

	if c.AccessKey == "" {
		return errors.New("simulation accessKey is required")
	}

	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	return nil
}
