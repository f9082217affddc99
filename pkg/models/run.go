package models

import (
	"time"

	"github.com/google/uuid"
)

// PipelineRun is the record of a single chain execution. Every stage
// artifact is retained, in stage order.
type PipelineRun struct {
	UUID      uuid.UUID  `json:"uuid"`
	ID        int64      `json:"id"` // used as a cursor for pagination
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	Input         string     `json:"input"`
	FilledText    string     `json:"filled_text"`
	GeneratedText string     `json:"generated_text"`
	Sentiment     *Sentiment `json:"sentiment"`
	Summary       string     `json:"summary"`
	// SummaryFallback is set when summarization failed and the sentinel
	// summary was substituted.
	SummaryFallback bool   `json:"summary_fallback"`
	Question        string `json:"question"`
	// QuestionFallback is set when question generation failed and the
	// fixed fallback question was substituted.
	QuestionFallback bool      `json:"question_fallback"`
	Answer           *QAAnswer `json:"answer"`

	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	DurationMS int64                  `json:"duration_ms"`
}

type CreateRunRequest struct {
	Input    string                 `json:"input"    validate:"required,min=1"`
	Metadata map[string]interface{} `json:"metadata"`
}

type UpdateRunRequest struct {
	UUID     uuid.UUID              `json:"uuid"`
	Metadata map[string]interface{} `json:"metadata" validate:"required"`
}

type RunListResponse struct {
	Runs       []*PipelineRun `json:"runs"`
	TotalCount int            `json:"total_count"`
	RowCount   int            `json:"row_count"`
}
