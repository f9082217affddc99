package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pemistahl/lingua-go"

	"github.com/textchain/textchain/internal"
	"github.com/textchain/textchain/pkg/llms"
	"github.com/textchain/textchain/pkg/models"
	"github.com/textchain/textchain/pkg/question"
)

var log = internal.GetLogger()

const (
	// SummarySentinel replaces the summary when summarization fails. The
	// chain continues and later stages receive this exact text.
	SummarySentinel = "No summary available."
	// FallbackQuestion replaces the question when the backend exits with a
	// non-zero status or the LLM call fails.
	FallbackQuestion = "What are the key points mentioned in the summary?"
)

// Pipeline runs the six stages in order. Each stage receives the previous
// stage's output verbatim.
type Pipeline struct {
	inference models.InferenceClient
	questions models.QuestionGenerator
	maskToken string
	detector  lingua.LanguageDetector
}

func NewPipeline(appState *models.AppState) *Pipeline {
	p := &Pipeline{
		inference: appState.Inference,
		questions: appState.Questions,
		maskToken: appState.Config.Inference.MaskToken,
	}
	if appState.Config.Pipeline.RequireEnglish {
		p.detector = newEnglishDetector()
	}
	return p
}

// Run executes fill mask, text generation, sentiment, summarization, question
// generation, and question answering against the input. Summarization and
// question failures are substituted so the chain always completes; any other
// stage error aborts the run.
func (p *Pipeline) Run(ctx context.Context, input string) (*models.PipelineRun, error) {
	start := time.Now()

	run := &models.PipelineRun{
		UUID:  uuid.New(),
		Input: input,
	}

	if p.detector != nil {
		if err := p.requireEnglish(input); err != nil {
			return nil, err
		}
	}

	if !strings.Contains(input, p.maskToken) {
		log.Debugf("input does not contain mask token %s", p.maskToken)
	}

	filled, err := p.inference.FillMask(ctx, input)
	if err != nil {
		return nil, err
	}
	run.FilledText = filled
	log.Debugf("filled text: %s", filled)

	generated, err := p.inference.GenerateText(ctx, filled)
	if err != nil {
		return nil, err
	}
	run.GeneratedText = generated
	log.Debugf("generated %d chars", len(generated))

	sentiment, err := p.inference.ClassifySentiment(ctx, generated)
	if err != nil {
		return nil, err
	}
	run.Sentiment = sentiment
	log.Debugf("sentiment: %s (%.2f)", sentiment.Label, sentiment.Score)

	summary, err := p.inference.Summarize(ctx, generated)
	if err != nil {
		log.Warnf("summarization failed, continuing with sentinel summary: %v", err)
		summary = SummarySentinel
		run.SummaryFallback = true
	}
	run.Summary = summary

	generatedQuestion, err := p.questions.GenerateQuestion(ctx, summary)
	if err != nil {
		if !isFallbackEligible(err) {
			return nil, err
		}
		log.Warnf("question generation failed, continuing with fallback question: %v", err)
		generatedQuestion = FallbackQuestion
		run.QuestionFallback = true
	}
	run.Question = generatedQuestion

	answer, err := p.inference.AnswerQuestion(ctx, generatedQuestion, summary)
	if err != nil {
		return nil, err
	}
	run.Answer = answer

	run.DurationMS = time.Since(start).Milliseconds()

	return run, nil
}

// isFallbackEligible reports whether a question stage failure is substituted
// with the fallback question. A runner that exited non-zero or a failed LLM
// call qualifies. A runner that could not start at all is a deployment
// problem and fails the run.
func isFallbackEligible(err error) bool {
	var processErr *question.ProcessError
	if errors.As(err, &processErr) {
		return true
	}
	var llmErr *llms.LLMError
	return errors.As(err, &llmErr)
}

func (p *Pipeline) requireEnglish(input string) error {
	language, exists := p.detector.DetectLanguageOf(input)
	if !exists || language != lingua.English {
		return models.NewBadRequestError(
			fmt.Sprintf("input must be English, detected %s", language),
		)
	}
	return nil
}

func newEnglishDetector() lingua.LanguageDetector {
	return lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English,
			lingua.Spanish,
			lingua.French,
			lingua.German,
			lingua.Portuguese,
			lingua.Dutch,
		).
		Build()
}
