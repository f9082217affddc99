package config

import (
	"errors"
	"strings"

	"github.com/textchain/textchain/internal"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// We're bootstrapping so avoid any imports from other packages
var log = logrus.New()

// LoadConfig loads the config file and ENV variables into a Config struct
func LoadConfig(configFile string) (*Config, error) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetConfigType("yaml")

	setDefaults()

	viper.SetEnvPrefix("TEXTCHAIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine unless one was named explicitly.
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	// Environment variables take precedence over config file
	loadDotEnv()

	if err := bindSecretEnvVars(); err != nil {
		log.Fatalf("Error binding environment variable: %s", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("inference.endpoint", "https://api-inference.huggingface.co")
	viper.SetDefault("inference.mask_token", "[MASK]")
	viper.SetDefault("inference.models.fill_mask", "bert-base-uncased")
	viper.SetDefault("inference.models.text_generation", "gpt2")
	viper.SetDefault("inference.models.sentiment", "distilbert-base-uncased-finetuned-sst-2-english")
	viper.SetDefault("inference.models.summarization", "sshleifer/distilbart-cnn-12-6")
	viper.SetDefault("inference.models.question_answering", "distilbert-base-cased-distilled-squad")
	viper.SetDefault("inference.generate.max_length", 60)
	viper.SetDefault("inference.summary.max_length", 50)
	viper.SetDefault("inference.summary.min_length", 10)
	viper.SetDefault("question.backend", "runner")
	viper.SetDefault("question.runner.command", "ollama")
	viper.SetDefault("question.runner.args", []string{"run"})
	viper.SetDefault("question.runner.model", "llama2")
	viper.SetDefault("question.llm.service", "openai")
	viper.SetDefault("question.llm.model", "gpt-3.5-turbo")
	viper.SetDefault("pipeline.require_english", false)
	viper.SetDefault("fetch.user_agent", "textchain/"+Version)
	viper.SetDefault("fetch.cache_ttl", "24h")
	viper.SetDefault("store.type", "postgres")
	viper.SetDefault("store.purge_every", 60)
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("auth.required", false)
	viper.SetDefault("opentelemetry.enabled", false)
}

// bindSecretEnvVars binds keys that are never read from the config file.
// Without an explicit binding viper does not surface env-only values
// through Unmarshal.
func bindSecretEnvVars() error {
	if err := viper.BindEnv("inference.api_key", "TEXTCHAIN_INFERENCE_API_KEY"); err != nil {
		return err
	}
	if err := viper.BindEnv("question.llm.openai_api_key", "TEXTCHAIN_OPENAI_API_KEY"); err != nil {
		return err
	}
	if err := viper.BindEnv("question.llm.anthropic_api_key", "TEXTCHAIN_ANTHROPIC_API_KEY"); err != nil {
		return err
	}
	return viper.BindEnv("auth.secret", "TEXTCHAIN_AUTH_SECRET")
}

// loadDotEnv loads environment variables from .env file
func loadDotEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Debug(".env file not found or unable to load")
	}
}

// SetLogLevel sets the log level based on the config file. Defaults to INFO if not set or invalid
func SetLogLevel(cfg *Config) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	internal.SetLogLevel(level)
	log.Info("Log level set to: ", level)
}
