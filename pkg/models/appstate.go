package models

import (
	"github.com/textchain/textchain/config"
)

// AppState is a struct that holds the state of the application
// Use cmd.NewAppState to create a new instance
type AppState struct {
	Inference InferenceClient
	Questions QuestionGenerator
	RunStore  RunStore
	Config    *config.Config
}
