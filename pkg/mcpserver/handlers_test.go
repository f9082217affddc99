package mcpserver

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textchain/textchain/config"
	"github.com/textchain/textchain/pkg/models"
	"github.com/textchain/textchain/pkg/testutils"
)

type cannedInference struct{}

func (c *cannedInference) FillMask(_ context.Context, _ string) (string, error) {
	return testutils.TestFilledText, nil
}

func (c *cannedInference) GenerateText(_ context.Context, _ string) (string, error) {
	return testutils.TestGeneratedText, nil
}

func (c *cannedInference) ClassifySentiment(_ context.Context, _ string) (*models.Sentiment, error) {
	return &models.Sentiment{Label: "POSITIVE", Score: 0.93}, nil
}

func (c *cannedInference) Summarize(_ context.Context, _ string) (string, error) {
	return testutils.TestSummary, nil
}

func (c *cannedInference) AnswerQuestion(
	_ context.Context,
	_ string,
	_ string,
) (*models.QAAnswer, error) {
	return &models.QAAnswer{Answer: "Wind and solar prices fell", Score: 0.81, End: 26}, nil
}

type cannedQuestions struct{}

func (c *cannedQuestions) GenerateQuestion(_ context.Context, _ string) (string, error) {
	return testutils.TestQuestion, nil
}

type mapRunStore struct {
	runs map[uuid.UUID]*models.PipelineRun
}

func newMapRunStore() *mapRunStore {
	return &mapRunStore{runs: make(map[uuid.UUID]*models.PipelineRun)}
}

func (s *mapRunStore) SaveRun(_ context.Context, run *models.PipelineRun) error {
	s.runs[run.UUID] = run
	return nil
}

func (s *mapRunStore) GetRun(_ context.Context, runUUID uuid.UUID) (*models.PipelineRun, error) {
	run, ok := s.runs[runUUID]
	if !ok {
		return nil, models.NewNotFoundError("run " + runUUID.String())
	}
	return run, nil
}

func (s *mapRunStore) ListRuns(
	_ context.Context,
	_ int64,
	limit int,
) (*models.RunListResponse, error) {
	runs := make([]*models.PipelineRun, 0, len(s.runs))
	for _, run := range s.runs {
		if len(runs) == limit {
			break
		}
		runs = append(runs, run)
	}
	return &models.RunListResponse{
		Runs:       runs,
		RowCount:   len(runs),
		TotalCount: len(s.runs),
	}, nil
}

func (s *mapRunStore) UpdateRunMetadata(
	_ context.Context,
	runUUID uuid.UUID,
	metadata map[string]interface{},
) (*models.PipelineRun, error) {
	run, err := s.GetRun(context.Background(), runUUID)
	if err != nil {
		return nil, err
	}
	run.Metadata = metadata
	return run, nil
}

func (s *mapRunStore) DeleteRun(_ context.Context, runUUID uuid.UUID) error {
	delete(s.runs, runUUID)
	return nil
}

func (s *mapRunStore) PurgeDeleted(_ context.Context) error { return nil }

func (s *mapRunStore) Close() error { return nil }

func newTestAppState(store models.RunStore) *models.AppState {
	return &models.AppState{
		Inference: &cannedInference{},
		Questions: &cannedQuestions{},
		RunStore:  store,
		Config: &config.Config{
			Inference: config.InferenceConfig{MaskToken: "[MASK]"},
		},
	}
}

func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	content, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return content.Text
}

func TestHandleRunChain(t *testing.T) {
	store := newMapRunStore()
	handler := HandleRunChain(newTestAppState(store))

	result, structured, err := handler(
		context.Background(),
		nil,
		RunChainInput{
			Input:    testutils.TestInput,
			Metadata: map[string]interface{}{"source": "mcp-test"},
		},
	)
	require.NoError(t, err)

	run, ok := structured.(*models.PipelineRun)
	require.True(t, ok)
	assert.Equal(t, testutils.TestFilledText, run.FilledText)
	assert.Equal(t, testutils.TestQuestion, run.Question)
	assert.Equal(t, "mcp-test", run.Metadata["source"])

	assert.Contains(t, textContent(t, result), testutils.TestQuestion)

	// Run should have been persisted.
	_, err = store.GetRun(context.Background(), run.UUID)
	assert.NoError(t, err)
}

func TestHandleRunChain_EmptyInput(t *testing.T) {
	handler := HandleRunChain(newTestAppState(nil))

	_, _, err := handler(context.Background(), nil, RunChainInput{})
	assert.ErrorContains(t, err, "input cannot be empty")
}

func TestHandleGetRun(t *testing.T) {
	store := newMapRunStore()
	appState := newTestAppState(store)

	run := testutils.NewTestRun()
	run.UUID = uuid.New()
	require.NoError(t, store.SaveRun(context.Background(), run))

	handler := HandleGetRun(appState)

	t.Run("existing run", func(t *testing.T) {
		result, structured, err := handler(
			context.Background(),
			nil,
			GetRunInput{UUID: run.UUID.String()},
		)
		require.NoError(t, err)

		retrievedRun, ok := structured.(*models.PipelineRun)
		require.True(t, ok)
		assert.Equal(t, run.UUID, retrievedRun.UUID)
		assert.Contains(t, textContent(t, result), run.UUID.String())
	})

	t.Run("invalid UUID", func(t *testing.T) {
		_, _, err := handler(context.Background(), nil, GetRunInput{UUID: "not-a-uuid"})
		assert.ErrorContains(t, err, "invalid run UUID")
	})

	t.Run("no run store", func(t *testing.T) {
		noStoreHandler := HandleGetRun(newTestAppState(nil))
		_, _, err := noStoreHandler(
			context.Background(),
			nil,
			GetRunInput{UUID: run.UUID.String()},
		)
		assert.ErrorIs(t, err, errNoRunStore)
	})
}

func TestHandleListRuns(t *testing.T) {
	store := newMapRunStore()
	appState := newTestAppState(store)

	for i := 0; i < 3; i++ {
		run := testutils.NewTestRun()
		run.UUID = uuid.New()
		require.NoError(t, store.SaveRun(context.Background(), run))
	}

	handler := HandleListRuns(appState)

	_, structured, err := handler(context.Background(), nil, ListRunsInput{})
	require.NoError(t, err)

	listResponse, ok := structured.(*models.RunListResponse)
	require.True(t, ok)
	assert.Equal(t, 3, listResponse.RowCount)
	assert.Equal(t, 3, listResponse.TotalCount)
}
