// Package video animates a still image into a short clip through a
// queue-based provider: one submission call, then status polling until the
// job reaches a terminal state.
package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"adstudio/internal/domain"
	"adstudio/internal/infra"
)

const defaultCfgScale = 0.5

// Options configures the video client.
type Options struct {
	APIKey         string
	BaseURL        string
	CfgScale       float64
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client talks to the asynchronous image-to-video provider.
type Client struct {
	apiKey     string
	baseURL    string
	cfgScale   float64
	httpClient *http.Client
	logger     *infra.Logger
}

// SubmitRequest captures the inputs for one animation job.
type SubmitRequest struct {
	ImageURL        string
	Prompt          string
	DurationSeconds int
	AspectRatio     string
}

type submitPayload struct {
	ImageURL    string  `json:"image_url"`
	Prompt      string  `json:"prompt"`
	Duration    int     `json:"duration"`
	AspectRatio string  `json:"aspect_ratio"`
	CfgScale    float64 `json:"cfg_scale"`
}

type submitResponse struct {
	RequestID string `json:"request_id"`
	Detail    string `json:"detail"`
}

type statusResponse struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
	Video    *struct {
		URL string `json:"url"`
	} `json:"video"`
	Detail string `json:"detail"`
}

// NewClient constructs a video client with sane defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://queue.fal.run/fal-ai/kling-video"
	}
	cfgScale := opts.CfgScale
	if cfgScale <= 0 {
		cfgScale = defaultCfgScale
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		cfgScale:   cfgScale,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Submit posts an animation request and returns the job in its initial
// pending state with the provider-assigned identifier.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*domain.VideoJob, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("video: api key is required: %w", domain.ErrConfig)
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		return nil, fmt.Errorf("video: image url is required: %w", domain.ErrInvalidArgument)
	}
	duration := req.DurationSeconds
	if duration <= 0 {
		duration = 5
	}
	payload := submitPayload{
		ImageURL:    strings.TrimSpace(req.ImageURL),
		Prompt:      req.Prompt,
		Duration:    duration,
		AspectRatio: req.AspectRatio,
		CfgScale:    c.cfgScale,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("video: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("video: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("video: submit: %v: %w", err, domain.ErrGeneration)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("video: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var detail submitResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Detail != "" {
			return nil, fmt.Errorf("video: submit status %d: %s: %w", resp.StatusCode, detail.Detail, domain.ErrGeneration)
		}
		return nil, fmt.Errorf("video: submit status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(raw)), domain.ErrGeneration)
	}

	var decoded submitResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("video: decode response: %v: %w", err, domain.ErrProtocol)
	}
	if decoded.RequestID == "" {
		return nil, fmt.Errorf("video: submission returned no job id: %w", domain.ErrProtocol)
	}
	c.logger.Info().Str("job_id", decoded.RequestID).Int("duration", duration).Msg("video: job submitted")
	return &domain.VideoJob{ID: decoded.RequestID, Status: domain.VideoJobPending}, nil
}

// Poll fetches the current state of a job. It is a single idempotent step;
// drive it with Wait or with a caller-owned loop.
func (c *Client) Poll(ctx context.Context, jobID string) (*domain.VideoJob, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, fmt.Errorf("video: job id is required: %w", domain.ErrInvalidArgument)
	}
	endpoint := fmt.Sprintf("%s/requests/%s/status", c.baseURL, jobID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("video: build status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("video: poll: %v: %w", err, domain.ErrGeneration)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("video: read status: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("video: status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(raw)), domain.ErrGeneration)
	}

	var decoded statusResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("video: decode status: %v: %w", err, domain.ErrProtocol)
	}
	return c.jobFromStatus(jobID, decoded)
}

func (c *Client) jobFromStatus(jobID string, s statusResponse) (*domain.VideoJob, error) {
	job := &domain.VideoJob{
		ID:       jobID,
		Progress: clampProgress(s.Progress),
		Message:  strings.TrimSpace(s.Message),
	}
	switch strings.ToLower(strings.TrimSpace(s.Status)) {
	case "pending", "in_queue":
		job.Status = domain.VideoJobPending
	case "processing", "in_progress":
		job.Status = domain.VideoJobProcessing
	case "failed", "error":
		job.Status = domain.VideoJobFailed
	case "completed":
		job.Status = domain.VideoJobCompleted
		if s.Video != nil {
			job.VideoURL = strings.TrimSpace(s.Video.URL)
		}
		if job.VideoURL == "" {
			// A completed job with no playable URL breaks the provider
			// contract; surface it as a failure, not a success.
			job.Status = domain.VideoJobFailed
			return job, fmt.Errorf("video: completed without result url: %w", domain.ErrProtocol)
		}
		job.Progress = 1
	default:
		return nil, fmt.Errorf("video: unknown status %q: %w", s.Status, domain.ErrProtocol)
	}
	return job, nil
}

func clampProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
