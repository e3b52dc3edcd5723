package llm

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/seeker/config"
)

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries one completion call to a provider.
type Request struct {
	Model       string
	MaxTokens   int
	Temperature float64
	System      string
	Messages    []Message
}

// Provider is the completion-service boundary. Implementations return the
// first text block of the model reply.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	SupportedModels() []string
}

// NewProvider creates an LLM provider from the first configured entry.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no LLM providers configured")
	}
	for _, provider := range cfg.Providers {
		return NewProviderFor(provider)
	}
	return nil, fmt.Errorf("no valid LLM providers found")
}

// NewProviderFor creates the provider for one configuration entry.
func NewProviderFor(cfg config.LLMProvider) (Provider, error) {
	switch cfg.Type {
	case "anthropic":
		return NewAnthropicProvider(cfg), nil
	case "openai":
		return NewOpenAIProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider type: %s", cfg.Type)
	}
}

// Metrics counts completions per model. *telemetry.Telemetry satisfies it.
type Metrics interface {
	RecordLLMCall(model string, success bool)
}

type meteredProvider struct {
	Provider
	metrics Metrics
}

// WithMetrics wraps p so every completion round trip is counted.
func WithMetrics(p Provider, m Metrics) Provider {
	if m == nil {
		return p
	}
	return &meteredProvider{Provider: p, metrics: m}
}

func (p *meteredProvider) Complete(ctx context.Context, req Request) (string, error) {
	out, err := p.Provider.Complete(ctx, req)
	p.metrics.RecordLLMCall(req.Model, err == nil)
	return out, err
}

// ValidateModel checks a model identifier against the provider's allow-list.
func ValidateModel(p Provider, model string) (string, error) {
	for _, m := range p.SupportedModels() {
		if m == model {
			return model, nil
		}
	}
	return "", fmt.Errorf("invalid model %q, supported models are: %v", model, p.SupportedModels())
}
