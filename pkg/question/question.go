package question

import (
	"context"
	"fmt"

	"github.com/textchain/textchain/config"
	"github.com/textchain/textchain/internal"
	"github.com/textchain/textchain/pkg/models"
)

var log = internal.GetLogger()

// NewQuestionGenerator returns the question backend selected by
// question.backend. The runner backend shells out to a local command such as
// ollama. The llm backend calls a hosted chat service via pkg/llms.
func NewQuestionGenerator(
	ctx context.Context,
	cfg *config.Config,
) (models.QuestionGenerator, error) {
	switch cfg.Question.Backend {
	case "runner", "":
		return NewRunnerQuestionGenerator(cfg), nil
	case "llm":
		return NewLLMQuestionGenerator(ctx, cfg)
	default:
		return nil, fmt.Errorf("invalid question backend: %s", cfg.Question.Backend)
	}
}
