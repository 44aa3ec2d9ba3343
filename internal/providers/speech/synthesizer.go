// Package speech synthesizes voiceover audio from text through the speech
// endpoint of an OpenAI-compatible provider. There is no fallback provider
// for this capability.
package speech

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"adstudio/internal/domain"
	"adstudio/internal/infra"
)

// Format is the fixed container the provider returns audio in.
const Format = "mp3"

// Voices is the fixed set the provider accepts. Anything else is rejected
// before the network call.
var Voices = map[string]openai.SpeechVoice{
	"alloy":   openai.VoiceAlloy,
	"echo":    openai.VoiceEcho,
	"fable":   openai.VoiceFable,
	"onyx":    openai.VoiceOnyx,
	"nova":    openai.VoiceNova,
	"shimmer": openai.VoiceShimmer,
}

// Options configures the synthesizer.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Logger  *infra.Logger
}

// Synthesizer converts text to speech audio.
type Synthesizer struct {
	client *openai.Client
	model  openai.SpeechModel
	logger *infra.Logger
	hasKey bool
}

// NewSynthesizer constructs a synthesizer with sane defaults.
func NewSynthesizer(opts Options) *Synthesizer {
	cfg := openai.DefaultConfig(strings.TrimSpace(opts.APIKey))
	if baseURL := strings.TrimRight(opts.BaseURL, "/"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	model := openai.SpeechModel(strings.TrimSpace(opts.Model))
	if model == "" {
		model = openai.TTSModel1
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Synthesizer{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
		hasKey: strings.TrimSpace(opts.APIKey) != "",
	}
}

// Synthesize produces audio for text in the given voice.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voice string) (*domain.VoiceoverResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("speech: text is required: %w", domain.ErrInvalidArgument)
	}
	speechVoice, ok := Voices[strings.ToLower(strings.TrimSpace(voice))]
	if !ok {
		return nil, fmt.Errorf("speech: unknown voice %q: %w", voice, domain.ErrInvalidArgument)
	}
	if !s.hasKey {
		return nil, fmt.Errorf("speech: api key is required: %w", domain.ErrConfig)
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: s.model,
		Input: text,
		Voice: speechVoice,
	})
	if err != nil {
		return nil, fmt.Errorf("speech: synthesize: %v: %w", err, domain.ErrGeneration)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("speech: read audio: %v: %w", err, domain.ErrGeneration)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech: empty audio payload: %w", domain.ErrGeneration)
	}

	s.logger.Debug().Str("voice", string(speechVoice)).Int("bytes", len(audio)).Msg("speech: synthesized voiceover")
	return &domain.VoiceoverResult{
		Audio:  audio,
		Format: Format,
		Text:   text,
		Voice:  string(speechVoice),
	}, nil
}
