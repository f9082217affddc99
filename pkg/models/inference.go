package models

import (
	"context"
)

// InferenceClient is the set of model tasks the chain draws on. Each method
// wraps a single hosted model call. Implementations must not retry beyond
// transport-level retries and must return the model output verbatim.
type InferenceClient interface {
	// FillMask resolves the mask token in text and returns the top-ranked
	// completed sentence.
	FillMask(ctx context.Context, text string) (string, error)
	// GenerateText continues seed with a single bounded-length sequence.
	GenerateText(ctx context.Context, seed string) (string, error)
	// ClassifySentiment returns the best label and its score for text.
	ClassifySentiment(ctx context.Context, text string) (*Sentiment, error)
	// Summarize condenses text deterministically.
	Summarize(ctx context.Context, text string) (string, error)
	// AnswerQuestion extracts an answer span for question from passage.
	AnswerQuestion(ctx context.Context, question string, passage string) (*QAAnswer, error)
}

type Sentiment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// QAAnswer is an extractive answer span. Start and End are character
// offsets into the passage the question was answered from.
type QAAnswer struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
}
