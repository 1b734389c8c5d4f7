package types

type StatusResponse struct {
	Status          string  `json:"status"`
	Paused          bool    `json:"paused"`
	Running         bool    `json:"running"`
	LastRunTime     *string `json:"last_run_time"`
	IntervalSeconds int64   `json:"interval_seconds"`
	CooldownSeconds int64   `json:"cooldown_seconds"`
}

// AnalysisResult mirrors the latest stored result. Data is an empty object
// until the first run completes.
type AnalysisResult struct {
	RunID     string  `json:"run_id,omitempty"`
	Timestamp *string `json:"timestamp"`
	Text      string  `json:"text"`
	Data      any     `json:"data"`
}

type AnalyzeResponse struct {
	Message string         `json:"message"`
	Outcome string         `json:"outcome"`
	Result  AnalysisResult `json:"result"`
}

type PauseResponse struct {
	Paused bool `json:"paused"`
}

type ShareResponse struct {
	URL string `json:"url"`
}

type SaveLocalResponse struct {
	Message string `json:"message"`
	Path    string `json:"path"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type RunRequest struct {
	RunID string `path:"runId"`
}
