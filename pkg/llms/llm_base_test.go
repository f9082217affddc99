package llms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/textchain/textchain/pkg/testutils"
)

func TestGetLLMModelName(t *testing.T) {
	testCases := []struct {
		name        string
		service     string
		model       string
		endpoint    string
		expected    string
		expectError bool
	}{
		{
			name:     "valid openai model",
			service:  "openai",
			model:    "gpt-3.5-turbo",
			expected: "gpt-3.5-turbo",
		},
		{
			name:     "valid anthropic model",
			service:  "anthropic",
			model:    "claude-2",
			expected: "claude-2",
		},
		{
			name:        "invalid model",
			service:     "openai",
			model:       "gpt-2000",
			expectError: true,
		},
		{
			name:        "empty model",
			service:     "openai",
			model:       "",
			expectError: true,
		},
		{
			name:     "custom endpoint skips validation",
			service:  "openai",
			model:    "my-local-model",
			endpoint: "http://localhost:8080/v1",
			expected: "my-local-model",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testutils.NewTestConfig()
			cfg.Question.LLM.Service = tc.service
			cfg.Question.LLM.Model = tc.model
			cfg.Question.LLM.OpenAIEndpoint = tc.endpoint

			model, err := GetLLMModelName(cfg)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, model)
		})
	}
}

func TestNewLLMClient_InvalidService(t *testing.T) {
	cfg := testutils.NewTestConfig()
	cfg.Question.LLM.Service = "cohere"

	_, err := NewLLMClient(context.Background(), cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid LLM service")
}

func TestNewLLMClient_InvalidModel(t *testing.T) {
	cfg := testutils.NewTestConfig()
	cfg.Question.LLM.Service = "openai"
	cfg.Question.LLM.Model = "not-a-model"

	_, err := NewLLMClient(context.Background(), cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid llm model")
}
