package models

import "time"

// VideoStatus mirrors the video object returned by the remote API. The
// stage booleans are reported by the generation pipeline and are monotonic
// for the lifetime of one job run: once true they stay true until the job
// is recreated.
type VideoStatus struct {
	ID                   string `json:"ID"`
	Topic                string `json:"topic"`
	Script               string `json:"script"`
	ScriptGenerated      bool   `json:"scriptGenerated"`
	DALLEPromptGenerated bool   `json:"dallePromptGenerated"`
	DALLEGenerated       bool   `json:"dalleGenerated"`
	TTSGenerated         bool   `json:"ttsGenerated"`
	SVTGenerated         bool   `json:"svtGenerated"`
	VideoStitched        bool   `json:"videoStitched"`
	VideoGenerated       bool   `json:"videoGenerated"`
	VideoUploaded        bool   `json:"videoUploaded"`

	// Progress is the server's own percent estimate. It is authoritative
	// when non-zero; the stage table below is the fallback.
	Progress int    `json:"progress"`
	Error    string `json:"error"`

	VideoURL  string    `json:"videoURL"`
	CreatedAt time.Time `json:"CreatedAt"`
}

// Stage is one milestone of the generation pipeline, in pipeline order.
// Label describes the work that produces the milestone, so the label of
// the first unmet stage reads as "what is happening next".
type Stage struct {
	Key     string
	Label   string
	Percent int
}

// Pipeline is the fixed order in which stage flags are expected to become
// true, with the percent each completed stage maps to when the server does
// not supply its own progress value.
var Pipeline = []Stage{
	{Key: "script_draft", Label: "Writing script", Percent: 15},
	{Key: "script", Label: "Finalizing script", Percent: 20},
	{Key: "prompt", Label: "Generating image prompts", Percent: 40},
	{Key: "image", Label: "Generating scenes", Percent: 50},
	{Key: "narration", Label: "Recording narration", Percent: 60},
	{Key: "subtitles", Label: "Timing subtitles", Percent: 70},
	{Key: "render", Label: "Stitching video", Percent: 80},
	{Key: "publish", Label: "Publishing video", Percent: 90},
	{Key: "upload", Label: "Uploading video", Percent: 100},
}

// StageFlags extracts the pipeline milestones from a raw video status, in
// pipeline order.
func (v *VideoStatus) StageFlags() []bool {
	return []bool{
		v.Script != "",
		v.ScriptGenerated,
		v.DALLEPromptGenerated,
		v.DALLEGenerated,
		v.TTSGenerated,
		v.SVTGenerated,
		v.VideoStitched,
		v.VideoGenerated,
		v.VideoUploaded,
	}
}

// HighestStage returns the index of the highest set flag, or -1 if none
// are set. The backend supplies no per-flag timestamps, so when flags
// appear out of pipeline order the highest index wins.
func HighestStage(flags []bool) int {
	highest := -1
	for i, set := range flags {
		if set {
			highest = i
		}
	}
	return highest
}

// StagePercent maps a set of stage flags to the fallback percent value.
func StagePercent(flags []bool) int {
	highest := HighestStage(flags)
	if highest < 0 {
		return 0
	}
	return Pipeline[highest].Percent
}

// PhaseLabel names the next pending stage for a set of flags: the stage
// after the highest completed one, not the most recently completed one.
func PhaseLabel(flags []bool) string {
	next := HighestStage(flags) + 1
	if next >= len(Pipeline) {
		return "Published"
	}
	return Pipeline[next].Label
}

// StageStatus is one entry of the dashboard step tracker.
type StageStatus struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Done  bool   `json:"done"`
}

// JobStatus is the normalized projection of one watched job, derived from
// polled VideoStatus payloads. It is never persisted as the source of
// truth; the remote pipeline is.
type JobStatus struct {
	JobID           string        `json:"jobId"`
	Label           string        `json:"label,omitempty"`
	Stages          []StageStatus `json:"stages"`
	Percent         int           `json:"percent"`
	Phase           string        `json:"phase"`
	Error           string        `json:"error,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	RestartEligible bool          `json:"restartEligible"`
	Done            bool          `json:"done"`
}

// WatchedJob is the persisted record of a job the daemon is watching,
// carrying the last observed snapshot so a restart can show something
// before the first poll completes.
type WatchedJob struct {
	JobID       string     `json:"jobId"`
	Label       string     `json:"label"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastPercent int        `json:"lastPercent"`
	LastPhase   string     `json:"lastPhase"`
	LastError   string     `json:"lastError,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
