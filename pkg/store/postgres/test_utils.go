package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// CleanDB drops all tables and indexes.
func CleanDB(t *testing.T, db *bun.DB) {
	_, err := db.NewDropTable().
		Model(&RunSchema{}).
		Cascade().
		IfExists().
		Exec(context.Background())
	require.NoError(t, err)
}
