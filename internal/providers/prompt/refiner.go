// Package prompt rewrites a working generation prompt from a natural
// language edit instruction. When the chat provider is unreachable or not
// configured, refinement degrades to a deterministic concatenation instead
// of failing the caller.
package prompt

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

const defaultModel = "gpt-4o-mini"

const refineTimeout = 20 * time.Second

// Options configures the refiner.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
	OnFallback func(reason string, err error)
}

// Refiner merges edit instructions into an existing prompt via a chat
// completions provider.
type Refiner struct {
	apiKey     string
	model      string
	baseURL    string
	client     *http.Client
	logger     *infra.Logger
	onFallback func(reason string, err error)
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewRefiner constructs a refiner with sane defaults. A missing API key is
// not an error here; it pushes every Refine call into degraded mode.
func NewRefiner(opts Options) *Refiner {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: refineTimeout}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Refiner{
		apiKey:     strings.TrimSpace(opts.APIKey),
		model:      model,
		baseURL:    baseURL,
		client:     client,
		logger:     logger,
		onFallback: opts.OnFallback,
	}
}

// Refine merges instruction into current and returns the rewritten prompt
// text. Connectivity and configuration failures degrade to a concatenated
// prompt; only a malformed success response is surfaced as an error.
func (r *Refiner) Refine(ctx context.Context, current domain.GenerationPrompt, instruction string, newAssets []string) (string, error) {
	if r.apiKey == "" {
		return r.useFallback(current, instruction, newAssets, "missing_api_key", nil), nil
	}
	payload := chatRequest{
		Model:       r.model,
		Temperature: 0.4,
		Messages: []chatMessage{
			{Role: "system", Content: "You are an expert prompt engineer for marketing imagery. Respond with the rewritten prompt only, no commentary."},
			{Role: "user", Content: buildRefineInstruction(current, instruction, newAssets)},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return r.useFallback(current, instruction, newAssets, "encode_request", err), nil
	}
	endpoint := fmt.Sprintf("%s/chat/completions", r.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return r.useFallback(current, instruction, newAssets, "build_request", err), nil
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return r.useFallback(current, instruction, newAssets, "http_request", err), nil
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		reason := fmt.Sprintf("http_%d", resp.StatusCode)
		return r.useFallback(current, instruction, newAssets, reason, fmt.Errorf("chat status %d", resp.StatusCode)), nil
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("prompt: decode response: %v: %w", err, domain.ErrRefinement)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("prompt: response has no choices: %w", domain.ErrRefinement)
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("prompt: empty refined text: %w", domain.ErrRefinement)
	}
	// Returned verbatim; callers revalidate the identity-lock invariant
	// downstream when correctness is safety-critical.
	return text, nil
}

func (r *Refiner) useFallback(current domain.GenerationPrompt, instruction string, newAssets []string, reason string, err error) string {
	r.logger.Warn().Err(err).Str("reason", reason).Msg("prompt: degraded refinement")
	if r.onFallback != nil {
		r.onFallback(reason, err)
	}
	return DegradedRefine(current, instruction, newAssets)
}

func buildRefineInstruction(current domain.GenerationPrompt, instruction string, newAssets []string) string {
	sb := &strings.Builder{}
	sb.WriteString("Rewrite the generation prompt below so it incorporates the edit instruction.\n")
	sb.WriteString("Rules:\n")
	if current.HasIdentityLock() {
		fmt.Fprintf(sb, "- Keep this clause verbatim as the very first sentence: %q\n", domain.IdentityLockClause)
	}
	sb.WriteString("- Never add directives that render text, captions, or typography.\n")
	sb.WriteString("- Preserve composition, lighting, pose, and background unless the instruction changes them.\n")
	for _, asset := range newAssets {
		if asset = strings.TrimSpace(asset); asset != "" {
			fmt.Fprintf(sb, "- Mention the new reference asset %q.\n", asset)
		}
	}
	fmt.Fprintf(sb, "\nCurrent prompt:\n%s\n\nEdit instruction:\n%s\n", current.Text, instruction)
	sb.WriteString("\nRespond with the rewritten prompt only.")
	return sb.String()
}
