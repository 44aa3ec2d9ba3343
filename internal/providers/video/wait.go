package video

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adstudio/internal/domain"
)

const (
	defaultPollInterval  = 3 * time.Second
	defaultFailureBudget = 3
)

// WaitOptions tunes the polling loop.
type WaitOptions struct {
	// Interval between polls. Zero means the 3s default; production
	// deployments should stay in the 2-5s range.
	Interval time.Duration
	// FailureBudget is the number of consecutive transport failures
	// tolerated before the loop gives up. Zero means the default.
	FailureBudget int
	// OnProgress receives every non-terminal snapshot. Duplicate messages
	// are possible; consumers must tolerate them.
	OnProgress func(domain.VideoJob)
}

// Wait polls a job sequentially until it reaches a terminal state, the
// context is done, or too many consecutive polls fail. A single transport
// failure does not terminate the job.
func (c *Client) Wait(ctx context.Context, jobID string, opts WaitOptions) (*domain.VideoJob, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	budget := opts.FailureBudget
	if budget <= 0 {
		budget = defaultFailureBudget
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	consecutiveFailures := 0
	for {
		select {
		case <-ctx.Done():
			return nil, waitContextErr(ctx.Err())
		case <-ticker.C:
		}

		job, err := c.Poll(ctx, jobID)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrProtocol):
			// The provider broke its contract; polling further cannot fix it.
			return job, err
		case ctx.Err() != nil:
			return nil, waitContextErr(ctx.Err())
		default:
			consecutiveFailures++
			c.logger.Warn().Err(err).Str("job_id", jobID).Int("failures", consecutiveFailures).
				Msg("video: poll failed, will retry")
			if consecutiveFailures >= budget {
				return nil, fmt.Errorf("video: %d consecutive poll failures: %w", consecutiveFailures, err)
			}
			continue
		}
		consecutiveFailures = 0

		if job.Status.Terminal() {
			if job.Status == domain.VideoJobFailed {
				return job, fmt.Errorf("video: job failed: %s: %w", job.Message, domain.ErrGeneration)
			}
			c.logger.Info().Str("job_id", jobID).Str("url", job.VideoURL).Msg("video: job completed")
			return job, nil
		}
		if opts.OnProgress != nil {
			opts.OnProgress(*job)
		}
	}
}

// waitContextErr maps context termination onto the taxonomy. The remote job
// is left outstanding; no cancellation call exists on the provider side.
func waitContextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("video: polling deadline elapsed: %w", domain.ErrTimeout)
	}
	return fmt.Errorf("video: polling aborted: %w", domain.ErrCancelled)
}
