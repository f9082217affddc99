package models

import (
	"context"

	"github.com/textchain/textchain/config"

	"github.com/tmc/langchaingo/llms"
)

type LLM interface {
	// Call runs the LLM chat completion against the prompt
	Call(
		ctx context.Context,
		prompt string,
		options ...llms.CallOption,
	) (string, error)
	// GetTokenCount returns the number of tokens in the given text
	GetTokenCount(text string) (int, error)
	// Init initializes the LLM
	Init(ctx context.Context, cfg *config.Config) error
}
