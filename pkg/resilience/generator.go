package resilience

import (
	"context"

	"github.com/vidsage/vidsage/engine/answer"
	"github.com/vidsage/vidsage/pkg/fn"
)

// GuardedGenerator wraps an answer.Generator with a circuit breaker.
type GuardedGenerator struct {
	breaker *Breaker
	inner   answer.Generator
}

// GuardGenerator protects gen with the breaker. A nil breaker gets the
// defaults.
func GuardGenerator(breaker *Breaker, gen answer.Generator) *GuardedGenerator {
	if breaker == nil {
		breaker = NewBreaker(DefaultBreakerOpts)
	}
	return &GuardedGenerator{breaker: breaker, inner: gen}
}

// Generate implements answer.Generator.
func (g *GuardedGenerator) Generate(ctx context.Context, prompt string, maxTokens int, temperature float32) (answer.Generation, error) {
	r := CallResult(g.breaker, ctx, func(ctx context.Context) fn.Result[answer.Generation] {
		return fn.FromPair(g.inner.Generate(ctx, prompt, maxTokens, temperature))
	})
	return r.Unwrap()
}

// State exposes the breaker state for health reporting.
func (g *GuardedGenerator) State() State {
	return g.breaker.State()
}
