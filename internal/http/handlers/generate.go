package handlers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"adstudio/internal/domain"
	"adstudio/internal/orchestrator"
)

type refineRequest struct {
	Prompt      string   `json:"prompt"`
	Instruction string   `json:"instruction"`
	NewAssets   []string `json:"new_assets,omitempty"`
}

type refineResponse struct {
	Prompt string `json:"prompt"`
}

// RefinePrompt rewrites a working prompt from an edit instruction.
func (a *App) RefinePrompt(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, fmt.Errorf("invalid payload: %w", domain.ErrInvalidArgument))
		return
	}
	current := domain.NewGenerationPrompt(req.Prompt, req.NewAssets...)
	refined, err := a.Orchestrator.RefinePrompt(r.Context(), current, req.Instruction, req.NewAssets)
	if err != nil {
		a.error(w, err)
		return
	}
	a.json(w, http.StatusOK, refineResponse{Prompt: refined})
}

type imageRequest struct {
	Prompt       string `json:"prompt"`
	AspectRatio  string `json:"aspect_ratio"`
	ReferenceURL string `json:"reference_url,omitempty"`
}

// GenerateImage produces an image through the provider fallback chain.
func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, fmt.Errorf("invalid payload: %w", domain.ErrInvalidArgument))
		return
	}
	result, err := a.Orchestrator.GenerateImage(r.Context(), req.Prompt, req.AspectRatio, req.ReferenceURL)
	if err != nil {
		a.error(w, err)
		return
	}
	a.json(w, http.StatusOK, result)
}

type videoRequest struct {
	ImageURL    string `json:"image_url"`
	Prompt      string `json:"prompt"`
	Duration    int    `json:"duration"`
	AspectRatio string `json:"aspect_ratio"`
}

// AnimateImage submits an animation job and blocks until it terminates or
// the operation budget runs out.
func (a *App) AnimateImage(w http.ResponseWriter, r *http.Request) {
	var req videoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, fmt.Errorf("invalid payload: %w", domain.ErrInvalidArgument))
		return
	}
	job, err := a.Orchestrator.AnimateImage(r.Context(), req.ImageURL, req.Prompt, req.Duration, req.AspectRatio, nil)
	if err != nil {
		a.error(w, err)
		return
	}
	a.json(w, http.StatusOK, job)
}

type voiceoverRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type voiceoverResponse struct {
	AudioBase64 string `json:"audio_base64"`
	Format      string `json:"format"`
	Voice       string `json:"voice"`
}

// SynthesizeVoiceover converts text to speech audio, returned base64-encoded.
func (a *App) SynthesizeVoiceover(w http.ResponseWriter, r *http.Request) {
	var req voiceoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, fmt.Errorf("invalid payload: %w", domain.ErrInvalidArgument))
		return
	}
	result, err := a.Orchestrator.SynthesizeVoiceover(r.Context(), req.Text, req.Voice)
	if err != nil {
		a.error(w, err)
		return
	}
	a.json(w, http.StatusOK, voiceoverResponse{
		AudioBase64: base64.StdEncoding.EncodeToString(result.Audio),
		Format:      result.Format,
		Voice:       result.Voice,
	})
}

// SearchAssets queries the read-only stock integration.
func (a *App) SearchAssets(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := a.Orchestrator.SearchAssets(r.Context(), query, limit)
	if err != nil {
		a.error(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"results": results})
}

// GenerateBundle runs the full pipeline for one prompt.
func (a *App) GenerateBundle(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.BundleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, fmt.Errorf("invalid payload: %w", domain.ErrInvalidArgument))
		return
	}
	bundle, err := a.Orchestrator.GenerateBundle(r.Context(), req)
	if err != nil {
		a.error(w, err)
		return
	}
	a.json(w, http.StatusOK, bundle)
}
