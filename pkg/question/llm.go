package question

import (
	"context"
	"fmt"
	"strings"

	llms2 "github.com/tmc/langchaingo/llms"

	"github.com/textchain/textchain/config"
	"github.com/textchain/textchain/internal"
	"github.com/textchain/textchain/pkg/llms"
	"github.com/textchain/textchain/pkg/models"
)

const QuestionMaxOutputTokens = 128

// Force compiler to validate that LLMQuestionGenerator implements the
// QuestionGenerator interface.
var _ models.QuestionGenerator = &LLMQuestionGenerator{}

// LLMQuestionGenerator generates questions with a hosted chat model instead
// of a local runner process.
type LLMQuestionGenerator struct {
	llmClient models.LLM
	modelName string
}

func NewLLMQuestionGenerator(
	ctx context.Context,
	cfg *config.Config,
) (*LLMQuestionGenerator, error) {
	llmClient, err := llms.NewLLMClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	modelName, err := llms.GetLLMModelName(cfg)
	if err != nil {
		return nil, err
	}
	return &LLMQuestionGenerator{llmClient: llmClient, modelName: modelName}, nil
}

func (l *LLMQuestionGenerator) GenerateQuestion(
	ctx context.Context,
	summary string,
) (string, error) {
	prompt, err := internal.ParsePrompt(
		questionPromptTemplate,
		QuestionPromptTemplateData{Summary: summary},
	)
	if err != nil {
		return "", err
	}

	if err := l.validatePromptTokens(prompt); err != nil {
		return "", err
	}

	question, err := l.llmClient.Call(
		ctx,
		prompt,
		llms2.WithMaxTokens(QuestionMaxOutputTokens),
	)
	if err != nil {
		return "", llms.NewLLMError("question generation failed", err)
	}

	return strings.TrimSpace(question), nil
}

// validatePromptTokens confirms the prompt and the output budget fit the
// model's token budget. The failure is a configuration problem, not a model
// call failure, so it is not wrapped in an LLMError and fails the run.
func (l *LLMQuestionGenerator) validatePromptTokens(prompt string) error {
	maxTokens, ok := llms.MaxLLMTokensMap[l.modelName]
	if !ok {
		log.Debugf("no token budget known for model %s, skipping prompt validation", l.modelName)
		return nil
	}

	promptTokens, err := l.llmClient.GetTokenCount(prompt)
	if err != nil {
		return err
	}
	if promptTokens+QuestionMaxOutputTokens > maxTokens {
		return fmt.Errorf(
			"summary is too long for %s: %d prompt tokens with a %d token budget",
			l.modelName,
			promptTokens,
			maxTokens,
		)
	}
	return nil
}
