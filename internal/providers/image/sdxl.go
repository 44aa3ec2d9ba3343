package image

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"adstudio/internal/domain"
	"adstudio/internal/infra"
)

// SDXLOptions configures the fallback SDXL client.
type SDXLOptions struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// SDXL is the secondary provider. It does not support image-conditioned
// generation, so a reference image URL in the request is ignored.
type SDXL struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type sdxlRequest struct {
	Prompt    string `json:"prompt"`
	ImageSize string `json:"image_size"`
}

// NewSDXL constructs the fallback client with sane defaults.
func NewSDXL(opts SDXLOptions) *SDXL {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://fal.run/fal-ai/fast-sdxl"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &SDXL{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Name identifies this provider in results and logs.
func (s *SDXL) Name() string { return "sdxl" }

// Attempt makes one generation call and returns the first image.
func (s *SDXL) Attempt(ctx context.Context, req Request) (*domain.ImageResult, error) {
	if s.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	payload := sdxlRequest{
		Prompt:    req.Prompt,
		ImageSize: SizeToken(req.AspectRatio),
	}
	url, err := postImageRequest(ctx, s.httpClient, s.baseURL, s.apiKey, "sdxl", payload)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("url", url).Str("request_id", req.RequestID).Msg("sdxl: generated image")
	return &domain.ImageResult{URL: url, Prompt: req.Prompt, Provider: s.Name()}, nil
}

var _ Provider = (*SDXL)(nil)
