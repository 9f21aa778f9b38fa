package circuitbreaker

import (
	"context"

	"go.uber.org/zap"

	"github.com/meridianlab/listingintel/internal/llm"
)

// CompletionClient wraps an llm.Client with a breaker so that a failing
// provider endpoint fails fast instead of burning the per-run courtesy
// budget on doomed calls.
type CompletionClient struct {
	inner   llm.Client
	breaker *Breaker
}

// WrapClient guards client with a breaker named name.
func WrapClient(client llm.Client, name string, config Config, logger *zap.Logger) *CompletionClient {
	return &CompletionClient{
		inner:   client,
		breaker: New(name, config, logger),
	}
}

// Complete implements llm.Client.
func (c *CompletionClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	var text string
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		text, callErr = c.inner.Complete(ctx, req)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// State exposes the underlying breaker state for health reporting.
func (c *CompletionClient) State() State {
	return c.breaker.State()
}
