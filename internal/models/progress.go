package models

type ProgressUpdate struct {
	JobID    string `json:"jobId"`
	Message  string `json:"message"`
	Percent  int    `json:"percent"`
	Phase    string `json:"phase"`
	Error    string `json:"error,omitempty"`
	Status   string `json:"status"` // e.g. "in_progress", "completed", "failed", "notice"
	Eligible bool   `json:"restartEligible"`
	Done     bool   `json:"done"`
}
