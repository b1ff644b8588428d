package model

import (
	"context"
	"fmt"

	"github.com/anforahq/anfora/internal/config"
	"github.com/anforahq/anfora/internal/model/contract"
	"github.com/anforahq/anfora/internal/model/providers/anthropic"
	"github.com/anforahq/anfora/internal/model/providers/openai"
)

// Provider is a remote language model capable of tool-calling completions.
type Provider interface {
	Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
	Name() string
	Health(ctx context.Context) error
}

// FromRegistry builds the provider for a registry entry. The entry's
// request timeout bounds every completion call against the upstream API.
func FromRegistry(reg config.ModelRegistry) (Provider, error) {
	timeout, err := config.DurationOrDefault(reg.RequestTimeout, config.DefaultModelRequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("model %s request timeout: %w", reg.Name, err)
	}

	switch reg.Provider {
	case "openai", "":
		return openai.New(reg.APIKey, reg.BaseURL, reg.Name, reg.Temperature, timeout), nil
	case "anthropic":
		return anthropic.New(reg.APIKey, reg.Name, timeout), nil
	default:
		return nil, fmt.Errorf("unknown model provider: %s", reg.Provider)
	}
}
