package image

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"adstudio/internal/domain"
	"adstudio/internal/infra"
)

// Chain tries an ordered list of providers until one returns an image.
// Adding a third provider is an append, not new branching.
type Chain struct {
	providers []Provider
	logger    *infra.Logger
}

// NewChain builds a fallback chain over the given providers, tried in order.
func NewChain(logger *infra.Logger, providers ...Provider) *Chain {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Chain{providers: providers, logger: logger}
}

// Generate validates the request and walks the chain. The first provider
// returning at least one image wins; the result records which one it was.
// If every provider fails, the returned error wraps all their failures so a
// total outage is distinguishable from a single-provider degradation.
func (c *Chain) Generate(ctx context.Context, req Request) (*domain.ImageResult, error) {
	if !ValidAspectRatio(req.AspectRatio) {
		return nil, fmt.Errorf("image: unsupported aspect ratio %q: %w", req.AspectRatio, domain.ErrInvalidArgument)
	}
	if len(c.providers) == 0 {
		return nil, fmt.Errorf("image: no providers configured: %w", domain.ErrConfig)
	}

	var failures []error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}
		result, err := p.Attempt(ctx, req)
		if err == nil {
			return result, nil
		}
		c.logger.Warn().Err(err).Str("provider", p.Name()).Msg("image: provider attempt failed")
		failures = append(failures, err)
	}
	return nil, fmt.Errorf("image: all providers failed: %w", errors.Join(append(failures, domain.ErrGeneration)...))
}
