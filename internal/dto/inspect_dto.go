package dto

import "time"

type AnalyzeImageRequest struct {
	Image               string `json:"image" validate:"required"`
	Query               string `json:"query"`
	UseStructuredOutput bool   `json:"use_structured_output"`
}

type EvidenceItem struct {
	Rank        int     `json:"rank"`
	Modality    string  `json:"modality"`
	Content     string  `json:"content"`
	Source      string  `json:"source,omitempty"`
	RerankScore float64 `json:"rerank_score"`
	FusionScore float64 `json:"fusion_score"`
}

type AnalyzeImageResponse struct {
	SessionId      string         `json:"session_id"`
	VisualAnalysis string         `json:"visual_analysis"`
	Evidence       []EvidenceItem `json:"evidence"`
	ExpiresAt      time.Time      `json:"expires_at"`
}

type CompleteAnswerRequest struct {
	SessionId string `json:"session_id" validate:"required"`
	Query     string `json:"query"`
}

type CompleteAnswerResponse struct {
	SessionId string         `json:"session_id"`
	Answer    string         `json:"answer"`
	Evidence  []EvidenceItem `json:"evidence"`
}

// QueryRequest drives the combined path: both phases back to back,
// no client-visible session. At least one of text/image is required;
// the service enforces it since either alone is valid.
type QueryRequest struct {
	Text                string `json:"text"`
	Image               string `json:"image"`
	UseStructuredOutput bool   `json:"use_structured_output"`
}

type QueryResponse struct {
	Answer         string         `json:"answer"`
	VisualAnalysis string         `json:"visual_analysis,omitempty"`
	Evidence       []EvidenceItem `json:"evidence"`
}

type EnqueueTaskResponse struct {
	TaskId string `json:"task_id"`
}

type TaskStatusResponse struct {
	TaskId     string      `json:"task_id"`
	Status     string      `json:"status"`
	Progress   int         `json:"progress"`
	Attempts   int         `json:"attempts"`
	Result     interface{} `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

type UploadResponse struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	DataURI  string `json:"data_uri"`
}
