package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dbfixture"
	"github.com/uptrace/bun/extra/bundebug"
	"gopkg.in/yaml.v3"

	"github.com/textchain/textchain/pkg/models"
)

type Row interface {
	RunSchema
}

type FixtureModel[T Row] struct {
	Model string `yaml:"model"`
	Rows  []T    `yaml:"rows"`
}

type Fixtures[T Row] []FixtureModel[T]

func generateTimeLastNDays(nDays int) time.Time {
	now := time.Now()
	windowStart := now.Add(time.Duration(-nDays) * 24 * time.Hour)
	return gofakeit.DateRange(windowStart, now)
}

// fallbackProbability is the share of generated runs that exercise the
// sentinel summary and fallback question paths.
const fallbackProbability = 0.05

func generateFakeRun() RunSchema {
	dateCreated := generateTimeLastNDays(14)

	subject := strings.TrimSuffix(gofakeit.Sentence(6), ".")
	input := fmt.Sprintf("%s [MASK].", subject)
	filled := strings.ToLower(strings.Replace(input, "[MASK]", gofakeit.Noun(), 1))
	generated := filled + " " + gofakeit.Paragraph(1, 3, 12, " ")
	answer := strings.TrimSuffix(gofakeit.Sentence(5), ".")

	labels := []string{"POSITIVE", "NEGATIVE"}

	run := RunSchema{
		UUID:           uuid.New(),
		CreatedAt:      dateCreated,
		UpdatedAt:      dateCreated,
		Input:          input,
		FilledText:     filled,
		GeneratedText:  generated,
		SentimentLabel: labels[gofakeit.Number(0, 1)],
		SentimentScore: gofakeit.Float64Range(0.5, 1.0),
		Summary:        gofakeit.Sentence(12),
		Question:       fmt.Sprintf("What is %s?", gofakeit.Noun()),
		Answer:         answer,
		AnswerScore:    gofakeit.Float64Range(0.1, 1.0),
		AnswerStart:    0,
		AnswerEnd:      len(answer),
		Metadata:       gofakeit.Map(),
		DurationMS:     int64(gofakeit.Number(800, 12_000)),
	}

	if gofakeit.Float32Range(0, 1) < fallbackProbability {
		run.Summary = "No summary available."
		run.SummaryFallback = true
	}
	if gofakeit.Float32Range(0, 1) < fallbackProbability {
		run.Question = "What are the key points mentioned in the summary?"
		run.QuestionFallback = true
	}

	return run
}

func GenerateFixtureData(fixtureCount int, outputDir string) {
	fakerGlobal := gofakeit.NewUnlocked(0)
	gofakeit.SetGlobalFaker(fakerGlobal)

	runs := make([]RunSchema, fixtureCount)
	for i := 0; i < fixtureCount; i++ {
		runs[i] = generateFakeRun()
	}

	runFixture := Fixtures[RunSchema]{
		{
			Model: "RunSchema",
			Rows:  runs,
		},
	}

	if outputDir == "" {
		outputDir = "./"
	} else {
		// Create output directory if it doesn't exist
		if _, err := os.Stat(outputDir); os.IsNotExist(err) {
			err = os.Mkdir(outputDir, 0755)
			if err != nil {
				fmt.Printf("unable to create %s: %v", outputDir, err)
				return
			}
		}
	}

	writeFixtureToYAML(runFixture, outputDir, "run_fixtures.yaml")
}

func writeFixtureToYAML[T Row](fixtures Fixtures[T], outputDir, filename string) {
	// Marshal the fixture into YAML
	data, err := yaml.Marshal(&fixtures)
	if err != nil {
		fmt.Printf("error: %v", err)
		return
	}

	// Write the YAML data to a file
	file, err := os.Create(filepath.Join(outputDir, filename))
	if err != nil {
		fmt.Printf("error: %v", err)
		return
	}
	defer func(file *os.File) {
		err := file.Close()
		if err != nil {
			fmt.Printf("error: %v", err)
			return
		}
	}(file)

	_, err = file.Write(data)
	if err != nil {
		fmt.Printf("error: %v", err)
		return
	}

	fmt.Printf("Fixtures generated successfully in %s!\n", filename)
}

func LoadFixtures(
	ctx context.Context,
	appState *models.AppState,
	db *bun.DB,
	fixturePath string,
) error {
	db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))

	dropSchemaQuery := `DROP SCHEMA public CASCADE;
CREATE SCHEMA public;
GRANT ALL ON SCHEMA public TO postgres;
GRANT ALL ON SCHEMA public TO public;`

	_, err := db.ExecContext(ctx, dropSchemaQuery)
	if err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}

	err = CreateSchema(ctx, appState, db)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	db.RegisterModel(
		(*RunSchema)(nil),
	)

	fixture := dbfixture.New(db, dbfixture.WithRecreateTables())

	files, err := os.ReadDir(fixturePath)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, file := range files {
		if !file.IsDir() {
			switch filepath.Ext(file.Name()) {
			case ".yaml", ".yml":
				err := fixture.Load(ctx, os.DirFS(fixturePath), file.Name())
				if err != nil {
					return fmt.Errorf("failed to load fixture %s: %w", file.Name(), err)
				}
			}
		}
	}

	return nil
}
