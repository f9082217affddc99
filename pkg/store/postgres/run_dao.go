package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/textchain/textchain/pkg/models"
)

type RunDAO struct {
	db *bun.DB
}

func NewRunDAO(db *bun.DB) *RunDAO {
	return &RunDAO{
		db: db,
	}
}

// Create inserts a completed run.
func (dao *RunDAO) Create(ctx context.Context, run *models.PipelineRun) error {
	if run.Input == "" {
		return models.NewBadRequestError("run input cannot be empty")
	}

	runDB := runToRunSchema(run)
	_, err := dao.db.NewInsert().Model(runDB).Returning("*").Exec(ctx)
	if err != nil {
		if err, ok := err.(pgdriver.Error); ok && err.IntegrityViolation() {
			return models.NewBadRequestError(
				"run already exists with uuid: " + run.UUID.String(),
			)
		}
		return err
	}

	run.UUID = runDB.UUID
	run.ID = runDB.ID
	run.CreatedAt = runDB.CreatedAt
	run.UpdatedAt = runDB.UpdatedAt

	return nil
}

// Get gets a run by UUID.
func (dao *RunDAO) Get(ctx context.Context, runUUID uuid.UUID) (*models.PipelineRun, error) {
	run := new(RunSchema)
	err := dao.db.NewSelect().Model(run).Where("uuid = ?", runUUID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFoundError("run " + runUUID.String())
		}
		return nil, err
	}
	return runSchemaToRun(run), nil
}

// UpdateMetadata merges metadata into a run's stored metadata under an
// advisory lock, so concurrent updates to the same run don't clobber
// each other.
func (dao *RunDAO) UpdateMetadata(
	ctx context.Context,
	runUUID uuid.UUID,
	metadata map[string]interface{},
	isPrivileged bool,
) (*models.PipelineRun, error) {
	lockRetryPolicy := retrypolicy.Builder[any]().
		HandleErrors(models.ErrLockAcquisitionFailed).
		WithBackoff(200*time.Millisecond, 10*time.Second).
		WithMaxRetries(7).
		Build()

	lockIDVal, err := failsafe.Get(func() (any, error) {
		return tryAcquireAdvisoryLock(ctx, dao.db, runUUID.String())
	}, lockRetryPolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire advisory lock: %w", err)
	}

	lockID, ok := lockIDVal.(uint64)
	if !ok {
		return nil, fmt.Errorf(
			"failed to acquire advisory lock: %w",
			models.ErrLockAcquisitionFailed,
		)
	}

	defer func(ctx context.Context, lockID uint64) {
		err := releaseAdvisoryLock(ctx, dao.db, lockID)
		if err != nil {
			log.Errorf("failed to release advisory lock: %v", err)
		}
	}(ctx, lockID)

	tx, err := dao.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer rollbackOnError(tx)

	mergedMetadata, err := mergeRunMetadata(ctx, tx, runUUID, metadata, isPrivileged)
	if err != nil {
		return nil, fmt.Errorf("failed to merge metadata: %w", err)
	}

	_, err = tx.NewUpdate().
		Model(&RunSchema{}).
		Set("metadata = ?", mergedMetadata).
		Set("updated_at = ?", time.Now()).
		Where("uuid = ?", runUUID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update run metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return dao.Get(ctx, runUUID)
}

// Delete soft deletes a run.
func (dao *RunDAO) Delete(ctx context.Context, runUUID uuid.UUID) error {
	r, err := dao.db.NewDelete().
		Model(&RunSchema{}).
		Where("uuid = ?", runUUID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rowsAffected, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return models.NewNotFoundError("run " + runUUID.String())
	}

	return nil
}

// ListAll lists all runs. The cursor is used to paginate results.
func (dao *RunDAO) ListAll(
	ctx context.Context,
	cursor int64,
	limit int,
) (*models.RunListResponse, error) {
	var totalCount int
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	var runsDB []*RunSchema

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := dao.db.NewSelect().
			Model(&runsDB).
			Where("id > ?", cursor).
			OrderExpr("id ASC").
			Limit(limit).
			Scan(ctx)

		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		totalCount, err = dao.db.NewSelect().
			Model((*RunSchema)(nil)).
			Count(ctx)

		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}()

	wg.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("failed to list runs: %w", firstErr)
	}

	runs := make([]*models.PipelineRun, len(runsDB))
	for i := range runs {
		runs[i] = runSchemaToRun(runsDB[i])
	}

	return &models.RunListResponse{
		Runs:       runs,
		RowCount:   len(runs),
		TotalCount: totalCount,
	}, nil
}

func runToRunSchema(run *models.PipelineRun) *RunSchema {
	runDB := &RunSchema{
		UUID:             run.UUID,
		Input:            run.Input,
		FilledText:       run.FilledText,
		GeneratedText:    run.GeneratedText,
		Summary:          run.Summary,
		SummaryFallback:  run.SummaryFallback,
		Question:         run.Question,
		QuestionFallback: run.QuestionFallback,
		Metadata:         run.Metadata,
		DurationMS:       run.DurationMS,
	}
	if run.Sentiment != nil {
		runDB.SentimentLabel = run.Sentiment.Label
		runDB.SentimentScore = run.Sentiment.Score
	}
	if run.Answer != nil {
		runDB.Answer = run.Answer.Answer
		runDB.AnswerScore = run.Answer.Score
		runDB.AnswerStart = run.Answer.Start
		runDB.AnswerEnd = run.Answer.End
	}
	return runDB
}

func runSchemaToRun(runDB *RunSchema) *models.PipelineRun {
	run := &models.PipelineRun{
		UUID:             runDB.UUID,
		ID:               runDB.ID,
		CreatedAt:        runDB.CreatedAt,
		UpdatedAt:        runDB.UpdatedAt,
		Input:            runDB.Input,
		FilledText:       runDB.FilledText,
		GeneratedText:    runDB.GeneratedText,
		Summary:          runDB.Summary,
		SummaryFallback:  runDB.SummaryFallback,
		Question:         runDB.Question,
		QuestionFallback: runDB.QuestionFallback,
		Metadata:         runDB.Metadata,
		DurationMS:       runDB.DurationMS,
	}
	if runDB.SentimentLabel != "" {
		run.Sentiment = &models.Sentiment{
			Label: runDB.SentimentLabel,
			Score: runDB.SentimentScore,
		}
	}
	if runDB.Answer != "" {
		run.Answer = &models.QAAnswer{
			Answer: runDB.Answer,
			Score:  runDB.AnswerScore,
			Start:  runDB.AnswerStart,
			End:    runDB.AnswerEnd,
		}
	}
	if !runDB.DeletedAt.IsZero() {
		deletedAt := runDB.DeletedAt
		run.DeletedAt = &deletedAt
	}
	return run
}
