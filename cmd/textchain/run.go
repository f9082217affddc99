package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/oiime/logrusbun"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"

	"github.com/textchain/textchain/config"
	"github.com/textchain/textchain/pkg/auth"
	"github.com/textchain/textchain/pkg/fetch"
	"github.com/textchain/textchain/pkg/inference"
	"github.com/textchain/textchain/pkg/mcpserver"
	"github.com/textchain/textchain/pkg/models"
	"github.com/textchain/textchain/pkg/pipeline"
	"github.com/textchain/textchain/pkg/question"
	"github.com/textchain/textchain/pkg/server"
	"github.com/textchain/textchain/pkg/store/postgres"
	"github.com/textchain/textchain/pkg/telemetry"
)

const RunStoreTypePostgres = "postgres"

// otelShutdown flushes buffered spans. Set when opentelemetry is enabled.
var otelShutdown func(context.Context) error

// runChain is the entrypoint for one-shot chain execution
func runChain(args []string) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		log.Fatalf("Error configuring textchain: %s", err)
	}

	handleCLIOptions(cfg)

	config.SetLogLevel(cfg)
	startTelemetry(cfg)
	appState := NewAppState(cfg)

	ctx := context.Background()
	input := resolveInput(ctx, cfg, args)

	run, err := pipeline.NewPipeline(appState).Run(ctx, input)
	if err != nil {
		log.Fatalf("chain run failed: %v", err)
	}

	if appState.RunStore != nil {
		if err := appState.RunStore.SaveRun(ctx, run); err != nil {
			log.Errorf("failed to save run: %v", err)
		}
	}

	printRun(run)

	if otelShutdown != nil {
		_ = otelShutdown(ctx)
	}
}

// serve is the entrypoint for the textchain HTTP API server
func serve() {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		log.Fatalf("Error configuring textchain: %s", err)
	}

	handleCLIOptions(cfg)

	log.Infof("Starting textchain server version %s", config.VersionString)

	config.SetLogLevel(cfg)
	startTelemetry(cfg)
	appState := NewAppState(cfg)

	srv := server.Create(appState)

	log.Infof("Listening on: %s", srv.Addr)
	err = srv.ListenAndServe()
	if err != nil {
		log.Fatal(err)
	}
}

// runMCP is the entrypoint for the stdio MCP server
func runMCP() {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		log.Fatalf("Error configuring textchain: %s", err)
	}

	handleCLIOptions(cfg)

	config.SetLogLevel(cfg)
	startTelemetry(cfg)
	appState := NewAppState(cfg)

	if err := mcpserver.New(appState).Run(context.Background()); err != nil {
		log.Fatal(err)
	}
}

// NewAppState creates an AppState struct from the config file / ENV, initializes the
// inference client and question generator, and connects the run store when configured
func NewAppState(cfg *config.Config) *models.AppState {
	ctx := context.Background()

	inferenceClient, err := inference.NewHuggingFaceClient(cfg)
	if err != nil {
		log.Fatalf("failed to create inference client: %v", err)
	}

	questionGenerator, err := question.NewQuestionGenerator(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to create question generator: %v", err)
	}

	appState := &models.AppState{
		Inference: inferenceClient,
		Questions: questionGenerator,
		Config:    cfg,
	}

	initializeRunStore(appState)
	setupSignalHandler(appState)
	setupPurgeProcessor(ctx, appState)

	return appState
}

// handleCLIOptions handles CLI options that don't require the chain to run
func handleCLIOptions(cfg *config.Config) {
	if showVersion {
		fmt.Println(config.VersionString)
		os.Exit(0)
	}
	if dumpConfig {
		out, err := yaml.Marshal(viper.AllSettings())
		if err != nil {
			log.Fatalf("unable to dump config: %v", err)
		}
		fmt.Println(string(out))
		os.Exit(0)
	}
	if generateToken {
		fmt.Println(auth.GenerateJWT(cfg))
		os.Exit(0)
	}
}

// resolveInput acquires the chain input from the positional argument, a file,
// or a fetched URL, then appends the mask suffix if one was given.
func resolveInput(ctx context.Context, cfg *config.Config, args []string) string {
	var input string

	switch {
	case len(args) > 0 && args[0] != "":
		input = args[0]
	case inputFile != "":
		data, err := os.ReadFile(inputFile)
		if err != nil {
			log.Fatalf("failed to read %s: %v", inputFile, err)
		}
		input = string(data)
	case inputURL != "":
		fetcher, err := fetch.NewFetcher(cfg)
		if err != nil {
			log.Fatalf("failed to create fetcher: %v", err)
		}
		defer func() {
			if err := fetcher.Close(); err != nil {
				log.Errorf("error closing fetcher: %v", err)
			}
		}()
		article, err := fetcher.Fetch(ctx, inputURL, selector)
		if err != nil {
			log.Fatalf("failed to fetch %s: %v", inputURL, err)
		}
		log.Infof("fetched %q (%s)", article.Title, article.Language)
		input = article.Text
	default:
		log.Fatal("no input provided: pass text as an argument, or use --file or --url")
	}

	input = strings.TrimSpace(input)
	if maskSuffix != "" {
		input = input + " " + maskSuffix
	}
	return input
}

// printRun prints the completed run to stdout
func printRun(run *models.PipelineRun) {
	if jsonOutput {
		out, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			log.Fatalf("unable to marshal run: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	summary := run.Summary
	if run.SummaryFallback {
		summary += " [fallback]"
	}
	questionLine := run.Question
	if run.QuestionFallback {
		questionLine += " [fallback]"
	}

	fmt.Printf("Input:      %s\n", run.Input)
	fmt.Printf("Filled:     %s\n", run.FilledText)
	fmt.Printf("Generated:  %s\n", run.GeneratedText)
	if run.Sentiment != nil {
		fmt.Printf("Sentiment:  %s (%.2f)\n", run.Sentiment.Label, run.Sentiment.Score)
	}
	fmt.Printf("Summary:    %s\n", summary)
	fmt.Printf("Question:   %s\n", questionLine)
	if run.Answer != nil {
		fmt.Printf("Answer:     %s (%.2f)\n", run.Answer.Answer, run.Answer.Score)
	}
	fmt.Printf("Duration:   %s\n", time.Duration(run.DurationMS)*time.Millisecond)
}

// startTelemetry configures the global tracer provider when opentelemetry is
// enabled in config
func startTelemetry(cfg *config.Config) {
	if !cfg.OpenTelemetry.Enabled {
		return
	}
	shutdown, err := telemetry.Start(context.Background())
	if err != nil {
		log.Fatalf("failed to start opentelemetry: %v", err)
	}
	otelShutdown = shutdown
}

// initializeRunStore initializes the run store based on the config file / ENV.
// The store is optional; without it runs are not persisted.
func initializeRunStore(appState *models.AppState) {
	cfg := appState.Config
	if cfg.Store.Type == "" || cfg.Store.Postgres.DSN == "" {
		log.Info("run store not configured; runs will not be persisted")
		return
	}

	switch cfg.Store.Type {
	case RunStoreTypePostgres:
		db, err := postgres.NewPostgresConn(appState)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		if cfg.Log.Level == "debug" {
			pgDebugLogging(db)
		}
		runStore, err := postgres.NewPostgresRunStore(appState, db)
		if err != nil {
			log.Fatal(err)
		}
		appState.RunStore = runStore
	default:
		log.Fatal(
			fmt.Sprintf("store.type (%s) is not supported", cfg.Store.Type),
		)
	}

	log.Info("Using run store: ", cfg.Store.Type)
}

func pgDebugLogging(db *bun.DB) {
	db.AddQueryHook(logrusbun.NewQueryHook(logrusbun.QueryHookOptions{
		LogSlow:         time.Second,
		Logger:          log,
		QueryLevel:      logrus.DebugLevel,
		ErrorLevel:      logrus.ErrorLevel,
		SlowLevel:       logrus.WarnLevel,
		MessageTemplate: "{{.Operation}}[{{.Duration}}]: {{.Query}}",
		ErrorTemplate:   "{{.Operation}}[{{.Duration}}]: {{.Query}}: {{.Error}}",
	}))
}

// setupSignalHandler sets up a signal handler to close the run store and flush
// traces on termination
func setupSignalHandler(appState *models.AppState) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		if appState.RunStore != nil {
			if err := appState.RunStore.Close(); err != nil {
				log.Errorf("Error closing run store connection: %v", err)
			}
		}
		if otelShutdown != nil {
			if err := otelShutdown(context.Background()); err != nil {
				log.Errorf("Error flushing traces: %v", err)
			}
		}
		os.Exit(0)
	}()
}

// setupPurgeProcessor sets up a go routine to purge soft-deleted runs from the
// store at a regular interval. It's cancellable via the passed context.
// If store.purge_every is 0, this function does nothing.
func setupPurgeProcessor(ctx context.Context, appState *models.AppState) {
	if appState.RunStore == nil {
		return
	}

	interval := time.Duration(appState.Config.Store.PurgeEvery) * time.Minute
	if interval == 0 {
		log.Debug("purge delete processor disabled")
		return
	}

	log.Infof("Starting purge delete processor. Purging every %v", interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Info("Stopping purge delete processor")
				return
			default:
				err := appState.RunStore.PurgeDeleted(ctx)
				if err != nil {
					log.Errorf("error purging deleted records: %v", err)
				}
			}
			time.Sleep(interval)
		}
	}()
}
