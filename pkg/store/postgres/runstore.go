package postgres

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/textchain/textchain/internal"
	"github.com/textchain/textchain/pkg/models"
	"github.com/textchain/textchain/pkg/store"
)

var log = internal.GetLogger()

// NewPostgresRunStore returns a new PostgresRunStore. Use this to correctly initialize the store.
func NewPostgresRunStore(
	appState *models.AppState,
	client *bun.DB,
) (*PostgresRunStore, error) {
	if appState == nil {
		return nil, store.NewStorageError("nil appState received", nil)
	}

	prs := &PostgresRunStore{
		BaseRunStore: store.BaseRunStore[*bun.DB]{Client: client},
		RunStore:     NewRunDAO(client),
		appState:     appState,
	}

	err := prs.OnStart(context.Background())
	if err != nil {
		return nil, store.NewStorageError("failed to run OnInit", err)
	}
	return prs, nil
}

// Force compiler to validate that PostgresRunStore implements the RunStore interface.
var _ models.RunStore = &PostgresRunStore{}

type PostgresRunStore struct {
	store.BaseRunStore[*bun.DB]
	RunStore *RunDAO
	appState *models.AppState
}

func (prs *PostgresRunStore) OnStart(
	ctx context.Context,
) error {
	err := CreateSchema(ctx, prs.appState, prs.Client)
	if err != nil {
		return store.NewStorageError("failed to ensure postgres schema setup", err)
	}

	return nil
}

func (prs *PostgresRunStore) GetClient() *bun.DB {
	return prs.Client
}

// SaveRun inserts a completed run.
func (prs *PostgresRunStore) SaveRun(ctx context.Context, run *models.PipelineRun) error {
	return prs.RunStore.Create(ctx, run)
}

// GetRun retrieves a run by UUID.
func (prs *PostgresRunStore) GetRun(
	ctx context.Context,
	runUUID uuid.UUID,
) (*models.PipelineRun, error) {
	return prs.RunStore.Get(ctx, runUUID)
}

// ListRuns returns runs, paginated by cursor and limit.
func (prs *PostgresRunStore) ListRuns(
	ctx context.Context,
	cursor int64,
	limit int,
) (*models.RunListResponse, error) {
	return prs.RunStore.ListAll(ctx, cursor, limit)
}

// UpdateRunMetadata merges metadata into the stored run's metadata.
func (prs *PostgresRunStore) UpdateRunMetadata(
	ctx context.Context,
	runUUID uuid.UUID,
	metadata map[string]interface{},
) (*models.PipelineRun, error) {
	return prs.RunStore.UpdateMetadata(ctx, runUUID, metadata, false)
}

// DeleteRun soft deletes a run.
func (prs *PostgresRunStore) DeleteRun(ctx context.Context, runUUID uuid.UUID) error {
	return prs.RunStore.Delete(ctx, runUUID)
}

// PurgeDeleted hard deletes all soft-deleted runs.
func (prs *PostgresRunStore) PurgeDeleted(ctx context.Context) error {
	return purgeDeleted(ctx, prs.Client)
}

func (prs *PostgresRunStore) Close() error {
	if prs.Client != nil {
		return prs.Client.Close()
	}
	return nil
}

// generateLockID generates an ID for an advisory lock based on the given key.
func generateLockID(key string) uint64 {
	hasher := sha256.New()
	hasher.Write([]byte(key))
	hash := hasher.Sum(nil)
	return binary.BigEndian.Uint64(hash[:8])
}

// tryAcquireAdvisoryLock attempts to acquire a PostgreSQL advisory lock using pg_try_advisory_lock.
// This function will fail if it's unable to immediately acquire a lock.
// Accepts a bun.IDB, which can be either a *bun.DB or *bun.Tx.
// Returns the lock ID and a boolean indicating if the lock was successfully acquired.
func tryAcquireAdvisoryLock(ctx context.Context, db bun.IDB, key string) (uint64, error) {
	lockID := generateLockID(key)

	var acquired bool
	if err := db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock(?)", lockID).Scan(&acquired); err != nil {
		return 0, fmt.Errorf("tryAcquireAdvisoryLock: %w", err)
	}
	if !acquired {
		return 0, models.NewAdvisoryLockError(fmt.Errorf("failed to acquire advisory lock for %s", key))
	}
	return lockID, nil
}

// releaseAdvisoryLock releases a PostgreSQL advisory lock for the given key.
// Accepts a bun.IDB, which can be either a *bun.DB or *bun.Tx.
func releaseAdvisoryLock(ctx context.Context, db bun.IDB, lockID uint64) error {
	if _, err := db.ExecContext(ctx, "SELECT pg_advisory_unlock(?)", lockID); err != nil {
		return store.NewStorageError("failed to release advisory lock", err)
	}

	return nil
}

// rollbackOnError rolls back the transaction if an error is encountered.
// If the error is sql.ErrTxDone, the transaction has already been committed or rolled back
// and we ignore the error.
func rollbackOnError(tx bun.Tx) {
	if rollBackErr := tx.Rollback(); rollBackErr != nil && !errors.Is(rollBackErr, sql.ErrTxDone) {
		log.Error("failed to rollback transaction", rollBackErr)
	}
}
