package question

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	llms2 "github.com/tmc/langchaingo/llms"

	"github.com/textchain/textchain/config"
	"github.com/textchain/textchain/pkg/llms"
	"github.com/textchain/textchain/pkg/testutils"
)

type fakeLLM struct {
	prompt     string
	response   string
	err        error
	tokenCount int
}

func (f *fakeLLM) Call(
	_ context.Context,
	prompt string,
	_ ...llms2.CallOption,
) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeLLM) GetTokenCount(_ string) (int, error) { return f.tokenCount, nil }

func (f *fakeLLM) Init(_ context.Context, _ *config.Config) error { return nil }

func TestLLMQuestionGenerator_GenerateQuestion(t *testing.T) {
	llmClient := &fakeLLM{response: "  What caused the policy shift?\n"}
	generator := &LLMQuestionGenerator{llmClient: llmClient}

	question, err := generator.GenerateQuestion(context.Background(), testutils.TestSummary)
	require.NoError(t, err)
	assert.Equal(t, "What caused the policy shift?", question)

	expectedPrompt := "Generate a simple question based on the following summary:\n\n" +
		testutils.TestSummary + "\n\nQuestion:"
	assert.Equal(t, expectedPrompt, llmClient.prompt)
}

func TestLLMQuestionGenerator_CallError(t *testing.T) {
	llmClient := &fakeLLM{err: errors.New("rate limited")}
	generator := &LLMQuestionGenerator{llmClient: llmClient}

	_, err := generator.GenerateQuestion(context.Background(), testutils.TestSummary)
	require.Error(t, err)

	var llmErr *llms.LLMError
	assert.ErrorAs(t, err, &llmErr)
}

func TestLLMQuestionGenerator_PromptOverBudget(t *testing.T) {
	llmClient := &fakeLLM{response: "unreachable", tokenCount: 5000}
	generator := &LLMQuestionGenerator{llmClient: llmClient, modelName: "gpt-3.5-turbo"}

	_, err := generator.GenerateQuestion(context.Background(), testutils.TestSummary)
	require.Error(t, err)

	// An oversized prompt is a configuration problem, not a failed model
	// call, so it must not be absorbed into the fallback question.
	var llmErr *llms.LLMError
	assert.False(t, errors.As(err, &llmErr))
	assert.Empty(t, llmClient.prompt)
}
