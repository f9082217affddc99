package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dario.cat/mergo"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/textchain/textchain/pkg/models"
)

// mergeRunMetadata merges the received metadata map with the run's existing
// metadata in DB, creating keys and values if they don't exist, and
// overwriting others.
func mergeRunMetadata(ctx context.Context,
	db bun.IDB,
	runUUID uuid.UUID,
	metadata map[string]interface{},
	isPrivileged bool) (map[string]interface{}, error) {
	if len(metadata) == 0 {
		return nil, errors.New("metadata cannot be empty")
	}
	// remove the top-level `system` key from the metadata if the caller is not privileged
	if !isPrivileged {
		delete(metadata, "system")
	}

	// query by table name rather than model so soft-deleted runs are included
	dbMetadata := new(map[string]interface{})
	err := db.NewSelect().
		Table("pipeline_run").
		Column("metadata").
		Where("uuid = ?", runUUID).
		Scan(ctx, &dbMetadata)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFoundError("run " + runUUID.String())
		}
		return nil, fmt.Errorf("failed to get run metadata: %w", err)
	}

	// merge the existing metadata with the new metadata
	if err := mergo.Merge(dbMetadata, metadata, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge metadata: %w", err)
	}

	return *dbMetadata, nil
}
