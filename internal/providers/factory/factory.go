// Package factory constructs the configured generation provider. It lives
// apart from package providers so the interface package stays free of
// backend imports.
package factory

import (
	"fmt"

	"github.com/feedbackos/feedbackos-backend/internal/config"
	"github.com/feedbackos/feedbackos-backend/internal/providers"
	"github.com/feedbackos/feedbackos-backend/internal/providers/anthropic"
	"github.com/feedbackos/feedbackos-backend/internal/providers/openai"
)

// New creates the provider named by cfg.Provider.
func New(cfg config.GenerationConfig) (providers.Provider, error) {
	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewProvider(cfg.APIKey)
	case "openai":
		return openai.NewProvider(cfg.APIKey)
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", cfg.Provider)
	}
}
