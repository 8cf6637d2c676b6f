package llm

import "errors"

type Config struct {
	BaseURL     string  `yaml:"baseUrl" default:"https://openrouter.ai/api/v1"`
	APIKey      string  `yaml:"apiKey"`
	Model       string  `yaml:"model" default:"openai/gpt-4o"`
	Temperature float64 `yaml:"temperature" default:"0.3"`
	MaxTokens   int     `yaml:"maxTokens" default:"1500"`
	// Attribution headers sent to OpenRouter.
	Referer string `yaml:"referer" default:"https://github.com/4rdii/transaction-debugger-agent"`
	Title   string `yaml:"title" default:"AI Transaction Debugger"`
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("llm baseUrl is required")
	}

	if c.APIKey == "" {
		return errors.New("llm apiKey is required")
	}

	if c.Model == "" {
		return errors.New("llm model is required")
	}

	if c.MaxTokens <= 0 {
		return errors.New("llm maxTokens must be positive")
	}

	return nil
}
