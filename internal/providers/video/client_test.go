package video

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"adstudio/internal/domain"
)

// scriptedProvider serves a submission endpoint and a sequence of status
// responses, one per poll.
type scriptedProvider struct {
	t        *testing.T
	statuses []string
	polls    atomic.Int32
	submits  atomic.Int32
	lastBody atomic.Value
}

func (s *scriptedProvider) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			s.submits.Add(1)
			raw, err := io.ReadAll(r.Body)
			if err != nil {
				s.t.Errorf("read submit body: %v", err)
			}
			s.lastBody.Store(string(raw))
			w.Write([]byte(`{"request_id":"job-42"}`))
			return
		}
		idx := int(s.polls.Add(1)) - 1
		if idx >= len(s.statuses) {
			idx = len(s.statuses) - 1
		}
		w.Write([]byte(s.statuses[idx]))
	}))
}

func TestSubmitRequiresImageURL(t *testing.T) {
	client := NewClient(Options{APIKey: "k"})
	_, err := client.Submit(context.Background(), SubmitRequest{Prompt: "p"})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestSubmitPostsExpectedPayload(t *testing.T) {
	provider := &scriptedProvider{t: t}
	srv := provider.server()
	defer srv.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
	job, err := client.Submit(context.Background(), SubmitRequest{
		ImageURL:        "https://x/img1.png",
		Prompt:          "gentle camera pan",
		DurationSeconds: 5,
		AspectRatio:     "16:9",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.ID != "job-42" {
		t.Fatalf("job id = %q, want job-42", job.ID)
	}
	if job.Status != domain.VideoJobPending {
		t.Fatalf("status = %s, want pending", job.Status)
	}
	body, _ := provider.lastBody.Load().(string)
	for _, want := range []string{
		`"image_url":"https://x/img1.png"`,
		`"prompt":"gentle camera pan"`,
		`"duration":5`,
		`"aspect_ratio":"16:9"`,
		`"cfg_scale":0.5`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("submit payload missing %s: %s", want, body)
		}
	}
}

func TestWaitTerminatesOnThirdPoll(t *testing.T) {
	provider := &scriptedProvider{t: t, statuses: []string{
		`{"status":"processing","progress":0.2,"message":"rendering frames"}`,
		`{"status":"processing","progress":0.7,"message":"rendering frames"}`,
		`{"status":"completed","progress":1,"video":{"url":"https://cdn/final.mp4"}}`,
	}}
	srv := provider.server()
	defer srv.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
	var progress []domain.VideoJob
	job, err := client.Wait(context.Background(), "job-42", WaitOptions{
		Interval:   10 * time.Millisecond,
		OnProgress: func(j domain.VideoJob) { progress = append(progress, j) },
	})
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if job.Status != domain.VideoJobCompleted {
		t.Fatalf("status = %s, want completed", job.Status)
	}
	if job.VideoURL != "https://cdn/final.mp4" {
		t.Fatalf("url = %q, want https://cdn/final.mp4", job.VideoURL)
	}
	if got := provider.polls.Load(); got != 3 {
		t.Fatalf("polls = %d, want 3", got)
	}
	if len(progress) != 2 {
		t.Fatalf("progress callbacks = %d, want 2", len(progress))
	}
	if progress[1].Progress != 0.7 {
		t.Fatalf("second progress = %v, want 0.7", progress[1].Progress)
	}
}

func TestWaitCompletedWithoutURLIsProtocolFailure(t *testing.T) {
	provider := &scriptedProvider{t: t, statuses: []string{
		`{"status":"completed","progress":1}`,
	}}
	srv := provider.server()
	defer srv.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
	job, err := client.Wait(context.Background(), "job-42", WaitOptions{Interval: 10 * time.Millisecond})
	if !errors.Is(err, domain.ErrProtocol) {
		t.Fatalf("err = %v, want ErrProtocol", err)
	}
	if job == nil || job.Status != domain.VideoJobFailed {
		t.Fatalf("job = %+v, want failed state", job)
	}
}

func TestWaitToleratesTransientPollFailures(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := polls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if n <= 2 {
			http.Error(w, "flaky", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"status":"completed","progress":1,"video":{"url":"https://cdn/ok.mp4"}}`))
	}))
	defer srv.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
	job, err := client.Wait(context.Background(), "job-42", WaitOptions{
		Interval:      10 * time.Millisecond,
		FailureBudget: 3,
	})
	if err != nil {
		t.Fatalf("wait must survive two transient failures: %v", err)
	}
	if job.VideoURL != "https://cdn/ok.mp4" {
		t.Fatalf("url = %q", job.VideoURL)
	}
}

func TestWaitGivesUpAfterFailureBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
	_, err := client.Wait(context.Background(), "job-42", WaitOptions{
		Interval:      10 * time.Millisecond,
		FailureBudget: 2,
	})
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("err = %v, want ErrGeneration after exhausted budget", err)
	}
}

func TestWaitDeadlineSignalsTimeout(t *testing.T) {
	provider := &scriptedProvider{t: t, statuses: []string{
		`{"status":"processing","progress":0.1}`,
	}}
	srv := provider.server()
	defer srv.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_, err := client.Wait(ctx, "job-42", WaitOptions{Interval: 10 * time.Millisecond})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestWaitCancellationSignalsCancelled(t *testing.T) {
	provider := &scriptedProvider{t: t, statuses: []string{
		`{"status":"processing","progress":0.1}`,
	}}
	srv := provider.server()
	defer srv.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	_, err := client.Wait(ctx, "job-42", WaitOptions{Interval: 10 * time.Millisecond})
	if !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
}
