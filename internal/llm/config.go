// Package llm provides the language-model client used to write animation scripts.
package llm

import "time"

// ModelTier selects a model by capability.
type ModelTier string

// TierStandard is used for script generation.
const TierStandard ModelTier = "standard"

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider
const ProviderGemini Provider = "gemini"

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// Config holds the model configuration for the client.
type Config struct {
	Provider          Provider
	Models            map[ModelTier]string
	Temperature       float32
	SystemInstruction string
	// RequestsPerMinute bounds outbound calls when wrapped by NewQuotaClient. Zero disables the limit.
	RequestsPerMinute int
	Retry             RetryConfig
}

// RetryConfig controls retries of transient upstream failures.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig retries three times starting at half a second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// DefaultConfig returns the Gemini configuration used by the generator.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierStandard: DefaultModel,
		},
		Temperature:       0.4,
		RequestsPerMinute: 30,
		Retry:             DefaultRetryConfig(),
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	return ""
}

// WithModel returns a copy of the config using model for every tier.
func (c *Config) WithModel(model string) *Config {
	out := *c
	out.Models = make(map[ModelTier]string, len(c.Models))
	for tier := range c.Models {
		out.Models[tier] = model
	}
	out.Models[TierStandard] = model
	return &out
}
