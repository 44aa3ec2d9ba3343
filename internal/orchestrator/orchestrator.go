// Package orchestrator composes the provider components into caller-facing
// operations, applies deadline budgeting, and normalizes every failure into
// the shared error taxonomy.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"adstudio/internal/domain"
	"adstudio/internal/infra"
	"adstudio/internal/providers/image"
	"adstudio/internal/providers/search"
	"adstudio/internal/providers/video"
)

// Refiner is the prompt refinement contract.
type Refiner interface {
	Refine(ctx context.Context, current domain.GenerationPrompt, instruction string, newAssets []string) (string, error)
}

// ImageGenerator is the fallback-chain contract.
type ImageGenerator interface {
	Generate(ctx context.Context, req image.Request) (*domain.ImageResult, error)
}

// VideoAnimator is the async animation contract.
type VideoAnimator interface {
	Submit(ctx context.Context, req video.SubmitRequest) (*domain.VideoJob, error)
	Wait(ctx context.Context, jobID string, opts video.WaitOptions) (*domain.VideoJob, error)
}

// Voiceover is the speech synthesis contract.
type Voiceover interface {
	Synthesize(ctx context.Context, text, voice string) (*domain.VoiceoverResult, error)
}

// AssetSearcher is the stock search contract.
type AssetSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]search.Result, error)
}

// Timeouts are the per-step budgets. A step whose budget exceeds the
// operation's remaining deadline fails fast instead of starting.
type Timeouts struct {
	Refine    time.Duration
	Image     time.Duration
	Video     time.Duration
	Voiceover time.Duration
	Search    time.Duration
}

// DefaultTimeouts are conservative production budgets.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Refine:    30 * time.Second,
		Image:     90 * time.Second,
		Video:     6 * time.Minute,
		Voiceover: 45 * time.Second,
		Search:    15 * time.Second,
	}
}

// Options wires the orchestrator's collaborators.
type Options struct {
	Refiner   Refiner
	Images    ImageGenerator
	Videos    VideoAnimator
	Speech    Voiceover
	Search    AssetSearcher
	Timeouts  Timeouts
	Logger    *infra.Logger
	PollEvery time.Duration
}

// Orchestrator is the single entry point callers talk to.
type Orchestrator struct {
	refiner   Refiner
	images    ImageGenerator
	videos    VideoAnimator
	speech    Voiceover
	search    AssetSearcher
	timeouts  Timeouts
	logger    *infra.Logger
	pollEvery time.Duration
}

// New constructs an orchestrator.
func New(opts Options) *Orchestrator {
	timeouts := opts.Timeouts
	if timeouts == (Timeouts{}) {
		timeouts = DefaultTimeouts()
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Orchestrator{
		refiner:   opts.Refiner,
		images:    opts.Images,
		videos:    opts.Videos,
		speech:    opts.Speech,
		search:    opts.Search,
		timeouts:  timeouts,
		logger:    logger,
		pollEvery: opts.PollEvery,
	}
}

// RefinePrompt rewrites the working prompt from an edit instruction.
func (o *Orchestrator) RefinePrompt(ctx context.Context, current domain.GenerationPrompt, instruction string, newAssets []string) (string, error) {
	stepCtx, cancel, err := o.stepContext(ctx, o.timeouts.Refine)
	if err != nil {
		return "", err
	}
	defer cancel()
	text, err := o.refiner.Refine(stepCtx, current, instruction, newAssets)
	if err != nil {
		return "", o.normalize(err)
	}
	return text, nil
}

// GenerateImage produces an image through the fallback chain.
func (o *Orchestrator) GenerateImage(ctx context.Context, prompt, aspectRatio, referenceImageURL string) (*domain.ImageResult, error) {
	stepCtx, cancel, err := o.stepContext(ctx, o.timeouts.Image)
	if err != nil {
		return nil, err
	}
	defer cancel()
	result, err := o.images.Generate(stepCtx, image.Request{
		Prompt:            prompt,
		AspectRatio:       aspectRatio,
		ReferenceImageURL: referenceImageURL,
	})
	if err != nil {
		return nil, o.normalize(err)
	}
	return result, nil
}

// AnimateImage submits an animation job and drives it to a terminal state,
// forwarding progress snapshots to onProgress when supplied.
func (o *Orchestrator) AnimateImage(ctx context.Context, imageURL, prompt string, durationSeconds int, aspectRatio string, onProgress func(domain.VideoJob)) (*domain.VideoJob, error) {
	stepCtx, cancel, err := o.stepContext(ctx, o.timeouts.Video)
	if err != nil {
		return nil, err
	}
	defer cancel()

	job, err := o.videos.Submit(stepCtx, video.SubmitRequest{
		ImageURL:        imageURL,
		Prompt:          prompt,
		DurationSeconds: durationSeconds,
		AspectRatio:     aspectRatio,
	})
	if err != nil {
		return nil, o.normalize(err)
	}
	done, err := o.videos.Wait(stepCtx, job.ID, video.WaitOptions{
		Interval:   o.pollEvery,
		OnProgress: onProgress,
	})
	if err != nil {
		return done, o.normalize(err)
	}
	return done, nil
}

// SynthesizeVoiceover converts text to speech audio.
func (o *Orchestrator) SynthesizeVoiceover(ctx context.Context, text, voice string) (*domain.VoiceoverResult, error) {
	stepCtx, cancel, err := o.stepContext(ctx, o.timeouts.Voiceover)
	if err != nil {
		return nil, err
	}
	defer cancel()
	result, err := o.speech.Synthesize(stepCtx, text, voice)
	if err != nil {
		return nil, o.normalize(err)
	}
	return result, nil
}

// SearchAssets queries the stock integration.
func (o *Orchestrator) SearchAssets(ctx context.Context, query string, limit int) ([]search.Result, error) {
	stepCtx, cancel, err := o.stepContext(ctx, o.timeouts.Search)
	if err != nil {
		return nil, err
	}
	defer cancel()
	results, err := o.search.Search(stepCtx, query, limit)
	if err != nil {
		return nil, o.normalize(err)
	}
	return results, nil
}

// stepContext derives a per-step context. If the parent deadline leaves less
// than the step's budget, the step fails fast with a timeout instead of
// starting a call it cannot finish.
func (o *Orchestrator) stepContext(ctx context.Context, budget time.Duration) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, o.normalize(err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < budget {
			return nil, nil, fmt.Errorf("orchestrator: %s left for a %s step: %w",
				remaining.Round(time.Millisecond), budget, domain.ErrTimeout)
		}
	}
	stepCtx, cancel := context.WithTimeout(ctx, budget)
	return stepCtx, cancel, nil
}

// normalize folds component and context errors into the taxonomy. Component
// sentinels pass through; everything unrecognized becomes a generation
// failure.
func (o *Orchestrator) normalize(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("orchestrator: %v: %w", err, domain.ErrTimeout)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("orchestrator: %v: %w", err, domain.ErrCancelled)
	case errors.Is(err, domain.ErrRefinement):
		// A malformed refinement response is a provider contract breach.
		return fmt.Errorf("%v: %w", err, domain.ErrProtocol)
	case errors.Is(err, domain.ErrConfig),
		errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrAuth),
		errors.Is(err, domain.ErrGeneration),
		errors.Is(err, domain.ErrProtocol),
		errors.Is(err, domain.ErrTimeout),
		errors.Is(err, domain.ErrCancelled):
		return err
	default:
		return fmt.Errorf("orchestrator: %v: %w", err, domain.ErrGeneration)
	}
}
