// Package llm wraps the optional generative model used to enrich skill
// extraction. Everything in the server works without it.
package llm

// ModelTier selects a model by capability.
type ModelTier string

const (
	// TierLite is used for skill and section extraction.
	TierLite ModelTier = "lite"
	// TierStandard is the fallback for tiers without an explicit model.
	TierStandard ModelTier = "standard"
)

// Config maps tiers to Gemini model names.
type Config struct {
	Models map[ModelTier]string
}

// DefaultConfig returns the default Gemini model assignment.
func DefaultConfig() *Config {
	return &Config{
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
		},
	}
}

// GetModel returns the model name for a given tier, falling back to the
// standard tier.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	return c.Models[TierStandard]
}

// WithModel returns a copy of c with model assigned to tier.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	next := &Config{Models: make(map[ModelTier]string, len(c.Models)+1)}
	for k, v := range c.Models {
		next.Models[k] = v
	}
	next.Models[tier] = model
	return next
}
