package llms

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/tmc/langchaingo/llms"

	"github.com/textchain/textchain/config"
	"github.com/textchain/textchain/pkg/models"
)

const AnthropicAPITimeout = 30 * time.Second
const AnthropicAPIKeyNotSetError = "TEXTCHAIN_ANTHROPIC_API_KEY is not set" //nolint:gosec

var _ models.LLM = &AnthropicLLM{}

func NewAnthropicLLM(ctx context.Context, cfg *config.Config) (*AnthropicLLM, error) {
	llm := &AnthropicLLM{}
	err := llm.Init(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return llm, nil
}

type AnthropicLLM struct {
	client *anthropic.LLM
}

func (all *AnthropicLLM) Init(_ context.Context, cfg *config.Config) error {
	options := all.configureClient(cfg)

	// Create a new client instance with options
	llm, err := anthropic.New(options...)
	if err != nil {
		return err
	}
	all.client = llm

	return nil
}

func (all *AnthropicLLM) Call(ctx context.Context,
	prompt string,
	options ...llms.CallOption,
) (string, error) {
	// If the LLM is not initialized, return an error
	if all.client == nil {
		return "", NewLLMError(InvalidLLMModelError, nil)
	}

	if len(options) == 0 {
		options = append(options, llms.WithTemperature(DefaultTemperature))
	}

	thisCtx, cancel := context.WithTimeout(ctx, AnthropicAPITimeout)
	defer cancel()

	prompt = "Human: " + prompt + "\nAssistant:"

	completion, err := all.client.Call(thisCtx, prompt, options...)
	if err != nil {
		return "", err
	}

	return completion, nil
}

// GetTokenCount returns the number of tokens in the text.
// Return 0 for now, since we don't have a token count function
func (all *AnthropicLLM) GetTokenCount(_ string) (int, error) {
	return 0, nil
}

func (all *AnthropicLLM) configureClient(cfg *config.Config) []anthropic.Option {
	apiKey := cfg.Question.LLM.AnthropicAPIKey
	// If the key is not set, log a fatal error and exit
	if apiKey == "" {
		log.Fatal(AnthropicAPIKeyNotSetError)
	}

	options := make([]anthropic.Option, 0)
	options = append(
		options,
		anthropic.WithModel(cfg.Question.LLM.Model),
		anthropic.WithToken(apiKey),
	)

	return options
}
