package api

import (
	"time"

	"github.com/mkolsari/streamrag/internal/domain/commonModels"
)

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

// Stream record types written to the NDJSON chat response, one per line.
const (
	RecordMeta  = "meta"
	RecordToken = "token"
	RecordDone  = "done"
	RecordError = "error"
)

// StreamRecord is one line of the chat stream. Type "meta" carries the
// chat id and retrieval sources before the first token, "token" carries
// one text fragment, "done" or "error" terminates the stream.
type StreamRecord struct {
	Type    string                `json:"type"`
	ChatId  string                `json:"chat_id,omitempty"`
	Sources []commonModels.Source `json:"sources,omitempty"`
	Content string                `json:"content,omitempty"`
	Error   string                `json:"error,omitempty"`
	Done    bool                  `json:"done,omitempty"`
}

type JobResponse struct {
	Id         string            `json:"id" example:"job_cz109"`
	FileName   string            `json:"file_name,omitempty"`
	Status     string            `json:"status"`
	ChunkCount int               `json:"chunk_count,omitempty"`
	Error      *JobOutgoingError `json:"error,omitempty"`
	StartTime  time.Time         `json:"start_time"`
	EndTime    time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

// requests---------------------

type ChatRequest struct {
	Message      string           `json:"message" validate:"required"`
	ChatID       string           `json:"chatID,omitempty"`
	SystemPrompt string           `json:"system_prompt,omitempty"`
	Documents    []InlineDocument `json:"documents,omitempty"`
}

// InlineDocument is indexed on the fly before the chat turn runs.
type InlineDocument struct {
	Name    string `json:"name"`
	Content string `json:"content" validate:"required"`
}
