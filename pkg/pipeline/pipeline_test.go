package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textchain/textchain/pkg/llms"
	"github.com/textchain/textchain/pkg/models"
	"github.com/textchain/textchain/pkg/question"
	"github.com/textchain/textchain/pkg/testutils"
)

// stubInference counts calls and records the input each stage received so
// tests can assert the hand-off between stages is verbatim.
type stubInference struct {
	fillMaskCalls  int
	generateCalls  int
	sentimentCalls int
	summarizeCalls int
	answerCalls    int

	generateIn  string
	sentimentIn string
	summarizeIn string
	answerIn    string
	passageIn   string

	fillMaskErr  error
	summarizeErr error
}

func (s *stubInference) FillMask(_ context.Context, _ string) (string, error) {
	s.fillMaskCalls++
	if s.fillMaskErr != nil {
		return "", s.fillMaskErr
	}
	return testutils.TestFilledText, nil
}

func (s *stubInference) GenerateText(_ context.Context, seed string) (string, error) {
	s.generateCalls++
	s.generateIn = seed
	return testutils.TestGeneratedText, nil
}

func (s *stubInference) ClassifySentiment(_ context.Context, text string) (*models.Sentiment, error) {
	s.sentimentCalls++
	s.sentimentIn = text
	return &models.Sentiment{Label: "POSITIVE", Score: 0.93}, nil
}

func (s *stubInference) Summarize(_ context.Context, text string) (string, error) {
	s.summarizeCalls++
	s.summarizeIn = text
	if s.summarizeErr != nil {
		return "", s.summarizeErr
	}
	return testutils.TestSummary, nil
}

func (s *stubInference) AnswerQuestion(
	_ context.Context,
	q string,
	passage string,
) (*models.QAAnswer, error) {
	s.answerCalls++
	s.answerIn = q
	s.passageIn = passage
	return &models.QAAnswer{
		Answer: "Wind and solar prices fell faster than forecast",
		Score:  0.81,
		Start:  0,
		End:    47,
	}, nil
}

type stubQuestionGenerator struct {
	calls     int
	summaryIn string
	err       error
}

func (s *stubQuestionGenerator) GenerateQuestion(_ context.Context, summary string) (string, error) {
	s.calls++
	s.summaryIn = summary
	if s.err != nil {
		return "", s.err
	}
	return testutils.TestQuestion, nil
}

func newTestPipeline(
	inference *stubInference,
	questions *stubQuestionGenerator,
) *Pipeline {
	appState := &models.AppState{
		Inference: inference,
		Questions: questions,
		Config:    testutils.NewTestConfig(),
	}
	return NewPipeline(appState)
}

func TestPipeline_Run(t *testing.T) {
	inference := &stubInference{}
	questions := &stubQuestionGenerator{}
	p := newTestPipeline(inference, questions)

	run, err := p.Run(context.Background(), testutils.TestInput)
	require.NoError(t, err)

	// every stage ran exactly once
	assert.Equal(t, 1, inference.fillMaskCalls)
	assert.Equal(t, 1, inference.generateCalls)
	assert.Equal(t, 1, inference.sentimentCalls)
	assert.Equal(t, 1, inference.summarizeCalls)
	assert.Equal(t, 1, questions.calls)
	assert.Equal(t, 1, inference.answerCalls)

	// each stage received the previous stage's output verbatim
	assert.Equal(t, testutils.TestFilledText, inference.generateIn)
	assert.Equal(t, testutils.TestGeneratedText, inference.sentimentIn)
	assert.Equal(t, testutils.TestGeneratedText, inference.summarizeIn)
	assert.Equal(t, testutils.TestSummary, questions.summaryIn)
	assert.Equal(t, testutils.TestQuestion, inference.answerIn)
	assert.Equal(t, testutils.TestSummary, inference.passageIn)

	assert.NotContains(t, run.FilledText, "[MASK]")
	assert.Equal(t, testutils.TestInput, run.Input)
	assert.Equal(t, testutils.TestFilledText, run.FilledText)
	assert.Equal(t, testutils.TestGeneratedText, run.GeneratedText)
	require.NotNil(t, run.Sentiment)
	assert.Equal(t, "POSITIVE", run.Sentiment.Label)
	assert.InDelta(t, 0.93, run.Sentiment.Score, 0.001)
	assert.Equal(t, testutils.TestSummary, run.Summary)
	assert.False(t, run.SummaryFallback)
	assert.Equal(t, testutils.TestQuestion, run.Question)
	assert.False(t, run.QuestionFallback)
	require.NotNil(t, run.Answer)
	assert.Equal(t, "Wind and solar prices fell faster than forecast", run.Answer.Answer)
	assert.NotEqual(t, "", run.UUID.String())
}

func TestPipeline_SummarizeFailure(t *testing.T) {
	inference := &stubInference{summarizeErr: errors.New("model overloaded")}
	questions := &stubQuestionGenerator{}
	p := newTestPipeline(inference, questions)

	run, err := p.Run(context.Background(), testutils.TestInput)
	require.NoError(t, err)

	assert.Equal(t, SummarySentinel, run.Summary)
	assert.True(t, run.SummaryFallback)

	// the sentinel flows on as the question source and the QA context
	assert.Equal(t, SummarySentinel, questions.summaryIn)
	assert.Equal(t, SummarySentinel, inference.passageIn)
	assert.Equal(t, 1, inference.answerCalls)
}

func TestPipeline_QuestionFallback(t *testing.T) {
	testCases := []struct {
		name string
		err  error
	}{
		{
			name: "runner exited non-zero",
			err:  question.NewProcessError(1, "model not found"),
		},
		{
			name: "llm call failed",
			err:  llms.NewLLMError("rate limited", nil),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			inference := &stubInference{}
			questions := &stubQuestionGenerator{err: tc.err}
			p := newTestPipeline(inference, questions)

			run, err := p.Run(context.Background(), testutils.TestInput)
			require.NoError(t, err)

			assert.Equal(t, FallbackQuestion, run.Question)
			assert.True(t, run.QuestionFallback)
			assert.Equal(t, FallbackQuestion, inference.answerIn)
			assert.Equal(t, testutils.TestSummary, inference.passageIn)
		})
	}
}

func TestPipeline_QuestionStartFailureAborts(t *testing.T) {
	inference := &stubInference{}
	questions := &stubQuestionGenerator{err: errors.New("runner failed to start")}
	p := newTestPipeline(inference, questions)

	_, err := p.Run(context.Background(), testutils.TestInput)
	require.Error(t, err)
	assert.Equal(t, 0, inference.answerCalls)
}

func TestPipeline_FillMaskFailureAborts(t *testing.T) {
	inference := &stubInference{fillMaskErr: errors.New("bad gateway")}
	questions := &stubQuestionGenerator{}
	p := newTestPipeline(inference, questions)

	_, err := p.Run(context.Background(), testutils.TestInput)
	require.Error(t, err)
	assert.Equal(t, 0, inference.generateCalls)
	assert.Equal(t, 0, questions.calls)
}

func TestPipeline_RequireEnglish(t *testing.T) {
	inference := &stubInference{}
	questions := &stubQuestionGenerator{}

	cfg := testutils.NewTestConfig()
	cfg.Pipeline.RequireEnglish = true
	appState := &models.AppState{
		Inference: inference,
		Questions: questions,
		Config:    cfg,
	}
	p := NewPipeline(appState)

	_, err := p.Run(
		context.Background(),
		"Der schnelle braune Fuchs springt über den faulen [MASK].",
	)
	require.Error(t, err)
	assert.Equal(t, 0, inference.fillMaskCalls)

	_, err = p.Run(context.Background(), testutils.TestInput)
	require.NoError(t, err)
}
