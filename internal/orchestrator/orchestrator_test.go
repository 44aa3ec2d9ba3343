package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"adstudio/internal/domain"
	"adstudio/internal/providers/image"
	"adstudio/internal/providers/search"
	"adstudio/internal/providers/video"
)

type fakeRefiner struct {
	text  string
	err   error
	calls int
}

func (f *fakeRefiner) Refine(ctx context.Context, current domain.GenerationPrompt, instruction string, newAssets []string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeImages struct {
	result *domain.ImageResult
	err    error
	calls  int
}

func (f *fakeImages) Generate(ctx context.Context, req image.Request) (*domain.ImageResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeVideos struct {
	job     *domain.VideoJob
	waitJob *domain.VideoJob
	err     error
	waitErr error
}

func (f *fakeVideos) Submit(ctx context.Context, req video.SubmitRequest) (*domain.VideoJob, error) {
	return f.job, f.err
}

func (f *fakeVideos) Wait(ctx context.Context, jobID string, opts video.WaitOptions) (*domain.VideoJob, error) {
	return f.waitJob, f.waitErr
}

type fakeSpeech struct {
	result *domain.VoiceoverResult
	err    error
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text, voice string) (*domain.VoiceoverResult, error) {
	return f.result, f.err
}

type fakeSearch struct {
	results []search.Result
	err     error
}

func (f *fakeSearch) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	return f.results, f.err
}

func newTestOrchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	if opts.Refiner == nil {
		opts.Refiner = &fakeRefiner{text: "refined"}
	}
	if opts.Images == nil {
		opts.Images = &fakeImages{result: &domain.ImageResult{URL: "https://x/img1.png", Provider: "flux"}}
	}
	if opts.Videos == nil {
		opts.Videos = &fakeVideos{
			job:     &domain.VideoJob{ID: "j1", Status: domain.VideoJobPending},
			waitJob: &domain.VideoJob{ID: "j1", Status: domain.VideoJobCompleted, VideoURL: "https://cdn/v.mp4", Progress: 1},
		}
	}
	if opts.Speech == nil {
		opts.Speech = &fakeSpeech{result: &domain.VoiceoverResult{Audio: []byte{1}, Format: "mp3", Voice: "nova"}}
	}
	if opts.Search == nil {
		opts.Search = &fakeSearch{}
	}
	return New(opts)
}

func TestStepFailsFastWhenBudgetExceedsDeadline(t *testing.T) {
	images := &fakeImages{result: &domain.ImageResult{URL: "u"}}
	orc := newTestOrchestrator(t, Options{
		Images:   images,
		Timeouts: Timeouts{Image: time.Minute, Refine: time.Minute, Video: time.Minute, Voiceover: time.Minute, Search: time.Minute},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := orc.GenerateImage(ctx, "p", "1:1", "")
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if images.calls != 0 {
		t.Fatalf("image generator called %d times, want 0 (fail fast)", images.calls)
	}
}

func TestNormalizeContextErrors(t *testing.T) {
	orc := newTestOrchestrator(t, Options{})
	cases := []struct {
		in   error
		want error
	}{
		{context.DeadlineExceeded, domain.ErrTimeout},
		{context.Canceled, domain.ErrCancelled},
		{fmt.Errorf("x: %w", domain.ErrRefinement), domain.ErrProtocol},
		{fmt.Errorf("x: %w", domain.ErrAuth), domain.ErrAuth},
		{errors.New("mystery provider explosion"), domain.ErrGeneration},
	}
	for _, tc := range cases {
		if got := orc.normalize(tc.in); !errors.Is(got, tc.want) {
			t.Fatalf("normalize(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestGenerateBundleFullPipeline(t *testing.T) {
	refiner := &fakeRefiner{text: "refined prompt"}
	orc := newTestOrchestrator(t, Options{Refiner: refiner})

	bundle, err := orc.GenerateBundle(context.Background(), BundleRequest{
		Prompt:         "a red shoe on a white background",
		Instruction:    "add soft shadows",
		AspectRatio:    "1:1",
		Animate:        true,
		AnimateSeconds: 5,
		VoiceoverText:  "introducing the red shoe",
		VoiceoverVoice: "nova",
	})
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	if refiner.calls != 1 {
		t.Fatalf("refiner calls = %d, want 1", refiner.calls)
	}
	if bundle.Prompt != "refined prompt" {
		t.Fatalf("prompt = %q, want the refined text", bundle.Prompt)
	}
	if bundle.Image == nil || bundle.Image.URL != "https://x/img1.png" {
		t.Fatalf("image = %+v", bundle.Image)
	}
	if bundle.Video == nil || bundle.Video.VideoURL != "https://cdn/v.mp4" {
		t.Fatalf("video = %+v", bundle.Video)
	}
	if bundle.Voiceover == nil || bundle.Voiceover.Voice != "nova" {
		t.Fatalf("voiceover = %+v", bundle.Voiceover)
	}
}

func TestGenerateBundleSkipsRefineWithoutInstruction(t *testing.T) {
	refiner := &fakeRefiner{text: "should not be used"}
	orc := newTestOrchestrator(t, Options{Refiner: refiner})

	bundle, err := orc.GenerateBundle(context.Background(), BundleRequest{
		Prompt:      "plain prompt",
		AspectRatio: "16:9",
	})
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	if refiner.calls != 0 {
		t.Fatalf("refiner calls = %d, want 0", refiner.calls)
	}
	if bundle.Prompt != "plain prompt" {
		t.Fatalf("prompt = %q, want the original", bundle.Prompt)
	}
	if bundle.Video != nil || bundle.Voiceover != nil {
		t.Fatal("optional steps must be skipped when not requested")
	}
}

func TestGenerateBundleAbortsOnImageFailure(t *testing.T) {
	orc := newTestOrchestrator(t, Options{
		Images: &fakeImages{err: fmt.Errorf("all providers failed: %w", domain.ErrGeneration)},
	})
	_, err := orc.GenerateBundle(context.Background(), BundleRequest{Prompt: "p", AspectRatio: "1:1"})
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("err = %v, want ErrGeneration", err)
	}
}

func TestAnimateImagePropagatesWaitError(t *testing.T) {
	orc := newTestOrchestrator(t, Options{
		Videos: &fakeVideos{
			job:     &domain.VideoJob{ID: "j1", Status: domain.VideoJobPending},
			waitErr: fmt.Errorf("polling deadline elapsed: %w", domain.ErrTimeout),
		},
	})
	_, err := orc.AnimateImage(context.Background(), "https://x/img1.png", "p", 5, "1:1", nil)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}
