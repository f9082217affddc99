package config

import "time"

// Config holds the configuration of the application
// Use LoadConfig to create a new instance
type Config struct {
	Inference     InferenceConfig     `mapstructure:"inference"`
	Question      QuestionConfig      `mapstructure:"question"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Fetch         FetchConfig         `mapstructure:"fetch"`
	Store         StoreConfig         `mapstructure:"store"`
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Auth          AuthConfig          `mapstructure:"auth"`
	OpenTelemetry OpenTelemetryConfig `mapstructure:"opentelemetry"`
}

// InferenceConfig configures the hosted model inference client used for the
// fill-mask, generation, sentiment, summarization and question answering
// stages.
type InferenceConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	// APIKey is loaded from ENV not config file.
	APIKey    string          `mapstructure:"api_key"`
	MaskToken string          `mapstructure:"mask_token"`
	Models    InferenceModels `mapstructure:"models"`
	Generate  GenerateConfig  `mapstructure:"generate"`
	Summary   SummaryConfig   `mapstructure:"summary"`
}

// InferenceModels names the model checkpoint used for each task.
type InferenceModels struct {
	FillMask          string `mapstructure:"fill_mask"`
	TextGeneration    string `mapstructure:"text_generation"`
	Sentiment         string `mapstructure:"sentiment"`
	Summarization     string `mapstructure:"summarization"`
	QuestionAnswering string `mapstructure:"question_answering"`
}

type GenerateConfig struct {
	MaxLength int `mapstructure:"max_length"`
}

type SummaryConfig struct {
	MaxLength int `mapstructure:"max_length"`
	MinLength int `mapstructure:"min_length"`
}

// QuestionConfig selects and configures the question generation backend.
type QuestionConfig struct {
	// Backend is one of "runner" or "llm".
	Backend string       `mapstructure:"backend"`
	Runner  RunnerConfig `mapstructure:"runner"`
	LLM     LLM          `mapstructure:"llm"`
}

// RunnerConfig describes the external command spawned for question
// generation. The rendered instruction is written to its stdin. Model, when
// set, is appended to the argument list.
type RunnerConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
	Model   string   `mapstructure:"model"`
}

type LLM struct {
	Service string `mapstructure:"service"`
	Model   string `mapstructure:"model"`
	// OpenAIAPIKey is loaded from ENV not config file.
	OpenAIAPIKey string `mapstructure:"openai_api_key"`
	// AnthropicAPIKey is loaded from ENV not config file.
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	OpenAIEndpoint  string `mapstructure:"openai_endpoint"`
	OpenAIOrgID     string `mapstructure:"openai_org_id"`
}

type PipelineConfig struct {
	RequireEnglish bool `mapstructure:"require_english"`
}

type FetchConfig struct {
	UserAgent string        `mapstructure:"user_agent"`
	CachePath string        `mapstructure:"cache_path"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

type StoreConfig struct {
	Type     string         `mapstructure:"type"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	// PurgeEvery is the interval between hard-deletion sweeps of
	// soft-deleted runs. Zero disables the sweep.
	PurgeEvery int `mapstructure:"purge_every"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type ServerConfig struct {
	Port          int               `mapstructure:"port"`
	CustomHeaders map[string]string `mapstructure:"custom_headers"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	// Secret is loaded from ENV not config file.
	Secret   string `mapstructure:"secret"`
	Required bool   `mapstructure:"required"`
}

type OpenTelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
