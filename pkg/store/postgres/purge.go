package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// purgeDeleted hard deletes all soft deleted runs.
func purgeDeleted(ctx context.Context, db *bun.DB) error {
	log.Debugf("purging run store")

	for _, schema := range tableList {
		log.Debugf("purging schema %T", schema)
		_, err := db.NewDelete().
			Model(schema).
			WhereDeleted().
			ForceDelete().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("error purging rows from %T: %w", schema, err)
		}
	}
	log.Info("completed purging run store")

	return nil
}
