package inference

import (
	"context"

	"github.com/textchain/textchain/pkg/models"
)

// taskRequest is the request envelope shared by all hosted model tasks.
type taskRequest struct {
	Inputs     any         `json:"inputs"`
	Parameters any         `json:"parameters,omitempty"`
	Options    taskOptions `json:"options"`
}

type taskOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type generateParameters struct {
	MaxLength          int `json:"max_length"`
	NumReturnSequences int `json:"num_return_sequences"`
}

type summaryParameters struct {
	MaxLength int  `json:"max_length"`
	MinLength int  `json:"min_length"`
	DoSample  bool `json:"do_sample"`
}

type fillMaskCandidate struct {
	Sequence string  `json:"sequence"`
	Score    float64 `json:"score"`
	Token    int     `json:"token"`
	TokenStr string  `json:"token_str"`
}

type generatedSequence struct {
	GeneratedText string `json:"generated_text"`
}

type classifiedLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type summaryResult struct {
	SummaryText string `json:"summary_text"`
}

type qaInputs struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

type qaResult struct {
	Score  float64 `json:"score"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Answer string  `json:"answer"`
}

// FillMask resolves the mask token in text. Candidates arrive ordered by
// score, the top-ranked full sequence is returned.
func (c *HuggingFaceClient) FillMask(ctx context.Context, text string) (string, error) {
	request := taskRequest{
		Inputs:  text,
		Options: taskOptions{WaitForModel: true},
	}

	var candidates []fillMaskCandidate
	if err := c.post(ctx, c.models.FillMask, &request, &candidates); err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", NewInferenceError("fill-mask returned no candidates", nil)
	}

	top := candidates[0]
	log.Debugf("fill-mask selected %q (score %.4f)", top.TokenStr, top.Score)
	return top.Sequence, nil
}

// GenerateText continues seed with exactly one sequence of bounded length.
func (c *HuggingFaceClient) GenerateText(ctx context.Context, seed string) (string, error) {
	request := taskRequest{
		Inputs: seed,
		Parameters: generateParameters{
			MaxLength:          c.generateMaxLen,
			NumReturnSequences: 1,
		},
		Options: taskOptions{WaitForModel: true},
	}

	var sequences []generatedSequence
	if err := c.post(ctx, c.models.TextGeneration, &request, &sequences); err != nil {
		return "", err
	}
	if len(sequences) == 0 {
		return "", NewInferenceError("text generation returned no sequences", nil)
	}

	return sequences[0].GeneratedText, nil
}

// ClassifySentiment returns the best label and score for text.
func (c *HuggingFaceClient) ClassifySentiment(
	ctx context.Context,
	text string,
) (*models.Sentiment, error) {
	request := taskRequest{
		Inputs:  text,
		Options: taskOptions{WaitForModel: true},
	}

	var labels [][]classifiedLabel
	if err := c.post(ctx, c.models.Sentiment, &request, &labels); err != nil {
		return nil, err
	}
	if len(labels) == 0 || len(labels[0]) == 0 {
		return nil, NewInferenceError("sentiment classification returned no labels", nil)
	}

	best := labels[0][0]
	for _, label := range labels[0][1:] {
		if label.Score > best.Score {
			best = label
		}
	}

	return &models.Sentiment{Label: best.Label, Score: best.Score}, nil
}

// Summarize condenses text deterministically. The configured max length is
// clamped toward the input's estimated token count so short passages do not
// request summaries longer than their input.
func (c *HuggingFaceClient) Summarize(ctx context.Context, text string) (string, error) {
	maxLength := c.summaryMaxLen
	if c.tkm != nil {
		inputTokens := len(c.tkm.Encode(text, nil, nil))
		maxLength = effectiveSummaryMaxLength(inputTokens, c.summaryMaxLen, c.summaryMinLen)
		if maxLength != c.summaryMaxLen {
			log.Debugf("summary max_length clamped to %d for short input", maxLength)
		}
	}

	request := taskRequest{
		Inputs: text,
		Parameters: summaryParameters{
			MaxLength: maxLength,
			MinLength: c.summaryMinLen,
			DoSample:  false,
		},
		Options: taskOptions{WaitForModel: true},
	}

	var results []summaryResult
	if err := c.post(ctx, c.models.Summarization, &request, &results); err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", NewInferenceError("summarization returned no results", nil)
	}

	return results[0].SummaryText, nil
}

// effectiveSummaryMaxLength lowers maxLength to the input's token count,
// holding it above minLength.
func effectiveSummaryMaxLength(inputTokens, maxLength, minLength int) int {
	if inputTokens >= maxLength {
		return maxLength
	}
	if inputTokens <= minLength {
		return minLength + 1
	}
	return inputTokens
}

// AnswerQuestion extracts the answer span for question from passage.
func (c *HuggingFaceClient) AnswerQuestion(
	ctx context.Context,
	question string,
	passage string,
) (*models.QAAnswer, error) {
	request := taskRequest{
		Inputs:  qaInputs{Question: question, Context: passage},
		Options: taskOptions{WaitForModel: true},
	}

	var result qaResult
	if err := c.post(ctx, c.models.QuestionAnswering, &request, &result); err != nil {
		return nil, err
	}

	return &models.QAAnswer{
		Answer: result.Answer,
		Score:  result.Score,
		Start:  result.Start,
		End:    result.End,
	}, nil
}
