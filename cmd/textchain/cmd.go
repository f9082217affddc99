package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/textchain/textchain/config"
	"github.com/textchain/textchain/internal"
	"github.com/textchain/textchain/pkg/models"
	"github.com/textchain/textchain/pkg/store/postgres"
)

var (
	log *logrus.Logger

	cfgFile       string
	showVersion   bool
	dumpConfig    bool
	generateToken bool
	fixturePath   string

	inputFile  string
	inputURL   string
	selector   string
	maskSuffix string
	jsonOutput bool
)

var cmd = &cobra.Command{
	Use:   "textchain [input]",
	Short: "textchain chains hosted transformer tasks into a single text pipeline: fill mask, generate, classify, summarize, question, and answer",
	Args:  cobra.MaximumNArgs(1),
	Run:   func(cmd *cobra.Command, args []string) { runChain(args) },
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the textchain HTTP API server",
	Run:   func(cmd *cobra.Command, args []string) { serve() },
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the chain over the Model Context Protocol on stdio",
	Run:   func(cmd *cobra.Command, args []string) { runMCP() },
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test utilities",
}

var createFixturesCmd = &cobra.Command{
	Use:   "create-fixtures",
	Short: "Create fixtures for testing",
	Run: func(cmd *cobra.Command, args []string) {
		fixtureCount, _ := cmd.Flags().GetInt("count")
		outputDir, _ := cmd.Flags().GetString("outputDir")
		postgres.GenerateFixtureData(fixtureCount, outputDir)
		fmt.Println("Fixtures created successfully.")
	},
}

var loadFixturesCmd = &cobra.Command{
	Use:   "load-fixtures",
	Short: "Load fixtures for testing",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatalf("Error configuring textchain: %s", err)
		}
		appState := &models.AppState{
			Config: cfg,
		}
		db, err := postgres.NewPostgresConn(appState)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v\n", err)
		}
		err = postgres.LoadFixtures(context.Background(), appState, db, fixturePath)
		if err != nil {
			log.Fatalf("Failed to load fixtures: %v\n", err)
		}
		fmt.Println("Fixtures loaded successfully.")
	},
}

var dumpJsonSchemaCmd = &cobra.Command{
	Use:     "json-schema",
	Short:   "Generates JSON Schema for textchain's configuration file",
	Example: "textchain json-schema > textchain_config_schema.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := config.JSONSchema()
		if err != nil {
			return err
		}
		fmt.Println(string(schema))
		return nil
	},
}

func init() {
	testCmd.AddCommand(createFixturesCmd)
	testCmd.AddCommand(loadFixturesCmd)
	cmd.AddCommand(serveCmd)
	cmd.AddCommand(mcpCmd)
	cmd.AddCommand(testCmd)
	cmd.AddCommand(dumpJsonSchemaCmd)

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default config.yaml)")
	cmd.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "print version number")
	cmd.PersistentFlags().BoolVarP(&dumpConfig, "dump-config", "d", false, "dump config")
	cmd.PersistentFlags().
		BoolVarP(&generateToken, "generate-token", "g", false, "generate a new JWT token")

	cmd.Flags().StringVar(&inputFile, "file", "", "read the chain input from a file")
	cmd.Flags().StringVar(&inputURL, "url", "", "fetch the chain input from a URL")
	cmd.Flags().
		StringVar(&selector, "selector", "", "CSS selector to narrow the fetched page (requires --url)")
	cmd.Flags().
		StringVar(&maskSuffix, "mask-suffix", "", "text appended to the input, useful for adding a mask token to fetched pages")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the completed run as JSON")

	createFixturesCmd.Flags().Int("count", 100, "Number of fixtures to generate per model")
	createFixturesCmd.Flags().String("outputDir", "./test_data", "Path to output fixtures")
	loadFixturesCmd.Flags().
		StringVarP(&fixturePath, "fixturePath", "f", "./test_data", "Path containing fixtures to load")
}

// Execute executes the root cobra command.
func Execute() {
	log = internal.GetLogger()
	log.SetLevel(logrus.InfoLevel)

	err := cmd.Execute()

	if err != nil {
		os.Exit(1)
	}
}
