// Package image generates still images through an ordered chain of HTTP
// providers, falling through to the next provider when one fails.
package image

import (
	"context"
	"strings"

	"adstudio/internal/domain"
)

// Supported aspect ratios. Anything else is a caller contract violation.
const (
	AspectLandscape = "16:9"
	AspectPortrait  = "9:16"
	AspectSquare    = "1:1"
)

// Request describes a normalized generation request passed to any provider.
type Request struct {
	Prompt            string
	AspectRatio       string
	ReferenceImageURL string
	RequestID         string
}

// Provider is one strategy in the fallback chain. Attempt makes exactly one
// call; retry policy lives with the caller.
type Provider interface {
	Name() string
	Attempt(ctx context.Context, req Request) (*domain.ImageResult, error)
}

// ValidAspectRatio reports whether the ratio is one of the three the chain
// accepts.
func ValidAspectRatio(aspect string) bool {
	switch strings.TrimSpace(aspect) {
	case AspectLandscape, AspectPortrait, AspectSquare:
		return true
	default:
		return false
	}
}

// SizeToken maps an aspect ratio to the size token both fal-style providers
// understand.
func SizeToken(aspect string) string {
	switch strings.TrimSpace(aspect) {
	case AspectLandscape:
		return "landscape_16_9"
	case AspectPortrait:
		return "portrait_16_9"
	default:
		return "square_hd"
	}
}
