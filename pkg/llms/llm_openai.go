package llms

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/schema"

	"github.com/tmc/langchaingo/llms"

	"github.com/pkoukk/tiktoken-go"
	"github.com/textchain/textchain/config"
	"github.com/textchain/textchain/pkg/models"
	"github.com/tmc/langchaingo/llms/openai"
)

const OpenAIAPITimeout = 90 * time.Second
const MaxOpenAIAPIRequestAttempts = 5
const OpenAIAPIKeyNotSetError = "TEXTCHAIN_OPENAI_API_KEY is not set" //nolint:gosec

var _ models.LLM = &OpenAILLM{}

func NewOpenAILLM(ctx context.Context, cfg *config.Config) (*OpenAILLM, error) {
	llm := &OpenAILLM{}
	err := llm.Init(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return llm, nil
}

type OpenAILLM struct {
	llm *openai.Chat
	tkm *tiktoken.Tiktoken
}

func (oll *OpenAILLM) Init(_ context.Context, cfg *config.Config) error {
	// Initialize the Tiktoken client
	encoding := "cl100k_base"
	tkm, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return err
	}
	oll.tkm = tkm

	options := oll.configureClient(cfg)

	// Create a new client instance with options
	llm, err := openai.NewChat(options...)
	if err != nil {
		return err
	}
	oll.llm = llm

	return nil
}

func (oll *OpenAILLM) Call(ctx context.Context,
	prompt string,
	options ...llms.CallOption,
) (string, error) {
	// If the LLM is not initialized, return an error
	if oll.llm == nil {
		return "", NewLLMError(InvalidLLMModelError, nil)
	}

	if len(options) == 0 {
		options = append(options, llms.WithTemperature(DefaultTemperature))
	}

	thisCtx, cancel := context.WithTimeout(ctx, OpenAIAPITimeout)
	defer cancel()

	messages := []schema.ChatMessage{schema.SystemChatMessage{Content: prompt}}

	completion, err := oll.llm.Call(thisCtx, messages, options...)
	if err != nil {
		return "", err
	}

	return completion.GetContent(), nil
}

// GetTokenCount returns the number of tokens in the text
func (oll *OpenAILLM) GetTokenCount(text string) (int, error) {
	return len(oll.tkm.Encode(text, nil, nil)), nil
}

func (oll *OpenAILLM) configureClient(cfg *config.Config) []openai.Option {
	// Retrieve the OpenAIAPIKey from configuration
	apiKey := cfg.Question.LLM.OpenAIAPIKey
	// If the key is not set, log a fatal error and exit
	if apiKey == "" {
		log.Fatal(OpenAIAPIKeyNotSetError)
	}

	retryableHTTPClient := NewRetryableHTTPClient(MaxOpenAIAPIRequestAttempts, OpenAIAPITimeout)

	options := make([]openai.Option, 0)
	options = append(
		options,
		openai.WithHTTPClient(retryableHTTPClient.StandardClient()),
		openai.WithModel(cfg.Question.LLM.Model),
		openai.WithToken(apiKey),
	)

	if cfg.Question.LLM.OpenAIEndpoint != "" {
		options = append(options, openai.WithBaseURL(cfg.Question.LLM.OpenAIEndpoint))
	}

	if cfg.Question.LLM.OpenAIOrgID != "" {
		options = append(options, openai.WithOrganization(cfg.Question.LLM.OpenAIOrgID))
	}

	return options
}
