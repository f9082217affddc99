package models

import (
	"context"
)

// QuestionGenerator produces a single question from a summary. The summary
// may be the no-summary sentinel; generators must not special-case it.
type QuestionGenerator interface {
	GenerateQuestion(ctx context.Context, summary string) (string, error)
}
