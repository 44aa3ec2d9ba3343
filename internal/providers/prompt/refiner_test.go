package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"adstudio/internal/domain"
)

func chatServer(t *testing.T, reply func(userContent string) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			Temperature float64 `json:"temperature"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Errorf("decode chat request: %v", err)
		}
		if len(req.Messages) != 2 {
			t.Errorf("messages = %d, want 2", len(req.Messages))
		}
		content := reply(req.Messages[len(req.Messages)-1].Content)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": content}},
			},
		})
	}))
}

func TestRefinePreservesIdentityLockRoundTrip(t *testing.T) {
	srv := chatServer(t, func(userContent string) string {
		if !strings.Contains(userContent, domain.IdentityLockClause) {
			t.Errorf("refine instruction must quote the identity-lock clause")
		}
		// A cooperative provider keeps the clause at the head.
		return domain.IdentityLockClause + " A red sneaker on a marble pedestal, dramatic lighting."
	})
	defer srv.Close()

	refiner := NewRefiner(Options{APIKey: "k", BaseURL: srv.URL})
	current := domain.NewGenerationPrompt(domain.IdentityLockClause + " A red sneaker on a marble pedestal.")
	refined, err := refiner.Refine(context.Background(), current, "make the lighting dramatic", nil)
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	if missing := current.MissingInvariants(refined); len(missing) != 0 {
		t.Fatalf("refinement dropped invariants: %v", missing)
	}
	if !strings.HasPrefix(refined, domain.IdentityLockClause) {
		t.Fatalf("clause not leading: %q", refined)
	}
}

func TestRefineReturnsProviderTextVerbatim(t *testing.T) {
	const reply = "  a refined prompt  "
	srv := chatServer(t, func(string) string { return reply })
	defer srv.Close()

	refiner := NewRefiner(Options{APIKey: "k", BaseURL: srv.URL})
	refined, err := refiner.Refine(context.Background(), domain.NewGenerationPrompt("p"), "i", nil)
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	if refined != strings.TrimSpace(reply) {
		t.Fatalf("refined = %q, want trimmed provider text", refined)
	}
}

func TestRefineDegradesWhenKeyMissing(t *testing.T) {
	var reason string
	refiner := NewRefiner(Options{
		OnFallback: func(r string, err error) { reason = r },
	})
	current := domain.NewGenerationPrompt(domain.IdentityLockClause + " A red sneaker.")
	refined, err := refiner.Refine(context.Background(), current, "add studio lighting", []string{"brand logo"})
	if err != nil {
		t.Fatalf("degraded mode must not fail the caller: %v", err)
	}
	if reason != "missing_api_key" {
		t.Fatalf("fallback reason = %q, want missing_api_key", reason)
	}
	if !strings.HasPrefix(refined, domain.IdentityLockClause) {
		t.Fatalf("degraded prompt must re-assert the identity lock first: %q", refined)
	}
	if !strings.Contains(refined, "add studio lighting") {
		t.Fatalf("degraded prompt missing the instruction: %q", refined)
	}
	if !strings.Contains(refined, "Brand Logo") {
		t.Fatalf("degraded prompt missing the titled asset mention: %q", refined)
	}
}

func TestRefineDegradesOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	var reason string
	refiner := NewRefiner(Options{
		APIKey:     "k",
		BaseURL:    srv.URL,
		OnFallback: func(r string, err error) { reason = r },
	})
	refined, err := refiner.Refine(context.Background(), domain.NewGenerationPrompt("base prompt"), "new instruction", nil)
	if err != nil {
		t.Fatalf("degraded mode must not fail the caller: %v", err)
	}
	if reason != "http_502" {
		t.Fatalf("fallback reason = %q, want http_502", reason)
	}
	if !strings.Contains(refined, "base prompt") || !strings.Contains(refined, "new instruction") {
		t.Fatalf("degraded prompt must concatenate both inputs: %q", refined)
	}
}

func TestRefineMalformedResponse(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no choices", `{"choices":[]}`},
		{"empty content", `{"choices":[{"message":{"content":""}}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			refiner := NewRefiner(Options{APIKey: "k", BaseURL: srv.URL})
			_, err := refiner.Refine(context.Background(), domain.NewGenerationPrompt("p"), "i", nil)
			if !errors.Is(err, domain.ErrRefinement) {
				t.Fatalf("err = %v, want ErrRefinement", err)
			}
		})
	}
}

func TestDegradedRefineWithoutIdentityLock(t *testing.T) {
	got := DegradedRefine(domain.NewGenerationPrompt("a plain prompt"), "warmer colors", nil)
	if got != "a plain prompt warmer colors" {
		t.Fatalf("degraded = %q", got)
	}
}
