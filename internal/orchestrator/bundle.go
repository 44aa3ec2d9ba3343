package orchestrator

import (
	"context"

	"adstudio/internal/domain"
)

// BundleRequest asks for a full asset bundle from one prompt: a refined
// prompt, an image, and optionally an animation of that image and a
// voiceover.
type BundleRequest struct {
	Prompt         string   `json:"prompt"`
	Instruction    string   `json:"instruction,omitempty"`
	NewAssets      []string `json:"new_assets,omitempty"`
	AspectRatio    string   `json:"aspect_ratio"`
	ReferenceURL   string   `json:"reference_url,omitempty"`
	Animate        bool     `json:"animate,omitempty"`
	AnimateSeconds int      `json:"animate_seconds,omitempty"`
	AnimatePrompt  string   `json:"animate_prompt,omitempty"`
	VoiceoverText  string   `json:"voiceover_text,omitempty"`
	VoiceoverVoice string   `json:"voiceover_voice,omitempty"`
}

// Bundle is the composed result.
type Bundle struct {
	Prompt    string                  `json:"prompt"`
	Image     *domain.ImageResult     `json:"image"`
	Video     *domain.VideoJob        `json:"video,omitempty"`
	Voiceover *domain.VoiceoverResult `json:"voiceover,omitempty"`
}

// GenerateBundle runs the pipeline end to end under the caller's deadline:
// refine (when an instruction is present), generate the image, then the
// optional animation and voiceover. The first failure aborts the bundle.
func (o *Orchestrator) GenerateBundle(ctx context.Context, req BundleRequest) (*Bundle, error) {
	promptText := req.Prompt
	if req.Instruction != "" {
		current := domain.NewGenerationPrompt(req.Prompt, req.NewAssets...)
		refined, err := o.RefinePrompt(ctx, current, req.Instruction, req.NewAssets)
		if err != nil {
			return nil, err
		}
		promptText = refined
	}

	img, err := o.GenerateImage(ctx, promptText, req.AspectRatio, req.ReferenceURL)
	if err != nil {
		return nil, err
	}
	bundle := &Bundle{Prompt: promptText, Image: img}

	if req.Animate {
		animatePrompt := req.AnimatePrompt
		if animatePrompt == "" {
			animatePrompt = promptText
		}
		job, err := o.AnimateImage(ctx, img.URL, animatePrompt, req.AnimateSeconds, req.AspectRatio, nil)
		if err != nil {
			return nil, err
		}
		bundle.Video = job
	}

	if req.VoiceoverText != "" {
		vo, err := o.SynthesizeVoiceover(ctx, req.VoiceoverText, req.VoiceoverVoice)
		if err != nil {
			return nil, err
		}
		bundle.Voiceover = vo
	}

	return bundle, nil
}
