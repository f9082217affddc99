package testutils

import "github.com/textchain/textchain/pkg/models"

// Canned stage artifacts for store and handler tests.

const TestInput = "Renewable energy reduces [MASK]."

const TestFilledText = "renewable energy reduces costs."

const TestGeneratedText = "renewable energy reduces costs. Over the last decade, the price of " +
	"wind and solar power has fallen faster than any government forecast predicted, and " +
	"utilities that once resisted the transition now compete to sign long-term supply contracts."

const TestSummary = "Wind and solar prices fell faster than forecast, and utilities now " +
	"compete for long-term renewable supply contracts."

const TestQuestion = "What caused the policy shift?"

func NewTestRun() *models.PipelineRun {
	return &models.PipelineRun{
		Input:         TestInput,
		FilledText:    TestFilledText,
		GeneratedText: TestGeneratedText,
		Sentiment:     &models.Sentiment{Label: "POSITIVE", Score: 0.93},
		Summary:       TestSummary,
		Question:      TestQuestion,
		Answer: &models.QAAnswer{
			Answer: "Wind and solar prices fell faster than forecast",
			Score:  0.81,
			Start:  0,
			End:    47,
		},
		Metadata: map[string]interface{}{
			"source": "test",
		},
	}
}
