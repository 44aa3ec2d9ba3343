package domain

// ImageResult is the outcome of one successful image generation call.
// Immutable after creation; a regeneration produces a new value.
type ImageResult struct {
	URL      string `json:"url"`
	Prompt   string `json:"prompt"`
	Provider string `json:"provider"`
}

// VideoJobStatus is the provider-reported lifecycle state of a video job.
type VideoJobStatus string

const (
	VideoJobPending    VideoJobStatus = "pending"
	VideoJobProcessing VideoJobStatus = "processing"
	VideoJobCompleted  VideoJobStatus = "completed"
	VideoJobFailed     VideoJobStatus = "failed"
)

// Terminal reports whether the job can no longer change state.
func (s VideoJobStatus) Terminal() bool {
	return s == VideoJobCompleted || s == VideoJobFailed
}

// VideoJob is a snapshot of a remote animation job. It is created on
// submission and updated only from polling responses; once terminal it is
// never resurrected.
type VideoJob struct {
	ID       string         `json:"id"`
	Status   VideoJobStatus `json:"status"`
	Progress float64        `json:"progress"`
	Message  string         `json:"message,omitempty"`
	VideoURL string         `json:"video_url,omitempty"`
}

// VoiceoverResult holds synthesized speech audio. Created per call, never
// mutated.
type VoiceoverResult struct {
	Audio  []byte `json:"-"`
	Format string `json:"format"`
	Text   string `json:"text"`
	Voice  string `json:"voice"`
}
