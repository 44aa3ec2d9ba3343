package image

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"adstudio/internal/domain"
	"adstudio/internal/infra"
)

// ErrMissingAPIKey indicates that a client was configured without credentials.
var ErrMissingAPIKey = errors.New("image: api key is required")

// FluxOptions configures the primary FLUX client.
type FluxOptions struct {
	APIKey          string
	BaseURL         string
	SafetyTolerance int
	HTTPClient      *http.Client
	Logger          *infra.Logger
	RequestTimeout  time.Duration
}

// Flux is the primary text-to-image provider. It supports image-conditioned
// generation through an optional image_url field.
type Flux struct {
	apiKey          string
	baseURL         string
	safetyTolerance int
	httpClient      *http.Client
	logger          *infra.Logger
}

type fluxRequest struct {
	Prompt          string `json:"prompt"`
	ImageSize       string `json:"image_size"`
	SafetyTolerance int    `json:"safety_tolerance"`
	NumImages       int    `json:"num_images"`
	ImageURL        string `json:"image_url,omitempty"`
}

type imageListResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Detail string `json:"detail"`
}

// NewFlux constructs the primary client with sane defaults.
func NewFlux(opts FluxOptions) *Flux {
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
		baseURL = "https://fal.run/fal-ai/flux-pro"
	}
	tolerance := opts.SafetyTolerance
	if tolerance <= 0 {
		tolerance = 2
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Flux{
		apiKey:          strings.TrimSpace(opts.APIKey),
		baseURL:         baseURL,
		safetyTolerance: tolerance,
		httpClient:      httpClient,
		logger:          logger,
	}
}

// Name identifies this provider in results and logs.
func (f *Flux) Name() string { return "flux" }

// Attempt makes one generation call and returns the first image.
func (f *Flux) Attempt(ctx context.Context, req Request) (*domain.ImageResult, error) {
	if f.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	payload := fluxRequest{
		Prompt:          req.Prompt,
		ImageSize:       SizeToken(req.AspectRatio),
		SafetyTolerance: f.safetyTolerance,
		NumImages:       1,
		ImageURL:        strings.TrimSpace(req.ReferenceImageURL),
	}
	url, err := postImageRequest(ctx, f.httpClient, f.baseURL, f.apiKey, "flux", payload)
	if err != nil {
		return nil, err
	}
	f.logger.Debug().Str("url", url).Str("request_id", req.RequestID).Msg("flux: generated image")
	return &domain.ImageResult{URL: url, Prompt: req.Prompt, Provider: f.Name()}, nil
}

// postImageRequest performs the shared request/decode cycle for fal-style
// image endpoints and returns the first image URL.
func postImageRequest(ctx context.Context, client *http.Client, endpoint, apiKey, name string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%s: encode request: %w", name, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: build request: %w", name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Key "+apiKey)

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s: http request: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: read response: %w", name, err)
	}
	if resp.StatusCode >= 300 {
		var detail imageListResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Detail != "" {
			return "", fmt.Errorf("%s: status %d: %s", name, resp.StatusCode, detail.Detail)
		}
		return "", fmt.Errorf("%s: status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded imageListResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", name, err)
	}
	for _, img := range decoded.Images {
		if url := strings.TrimSpace(img.URL); url != "" {
			return url, nil
		}
	}
	return "", fmt.Errorf("%s: empty image list", name)
}

var _ Provider = (*Flux)(nil)
