package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bunotel"

	"github.com/textchain/textchain/pkg/models"
)

type RunSchema struct {
	bun.BaseModel `bun:"table:pipeline_run,alias:pr" yaml:"-"`

	UUID      uuid.UUID `bun:",pk,type:uuid,default:gen_random_uuid()"                     yaml:"uuid,omitempty"`
	ID        int64     `bun:",autoincrement"                                              yaml:"id,omitempty"` // used as a cursor for pagination
	CreatedAt time.Time `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp" yaml:"created_at,omitempty"`
	UpdatedAt time.Time `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp" yaml:"updated_at,omitempty"`
	DeletedAt time.Time `bun:"type:timestamptz,soft_delete,nullzero"                       yaml:"deleted_at,omitempty"`

	Input            string                 `bun:",notnull"                            yaml:"input,omitempty"`
	FilledText       string                 `bun:",nullzero"                           yaml:"filled_text,omitempty"`
	GeneratedText    string                 `bun:",nullzero"                           yaml:"generated_text,omitempty"`
	SentimentLabel   string                 `bun:",nullzero"                           yaml:"sentiment_label,omitempty"`
	SentimentScore   float64                `bun:","                                   yaml:"sentiment_score,omitempty"`
	Summary          string                 `bun:",nullzero"                           yaml:"summary,omitempty"`
	SummaryFallback  bool                   `bun:",notnull,default:false"              yaml:"summary_fallback,omitempty"`
	Question         string                 `bun:",nullzero"                           yaml:"question,omitempty"`
	QuestionFallback bool                   `bun:",notnull,default:false"              yaml:"question_fallback,omitempty"`
	Answer           string                 `bun:",nullzero"                           yaml:"answer,omitempty"`
	AnswerScore      float64                `bun:","                                   yaml:"answer_score,omitempty"`
	AnswerStart      int                    `bun:","                                   yaml:"answer_start,omitempty"`
	AnswerEnd        int                    `bun:","                                   yaml:"answer_end,omitempty"`
	Metadata         map[string]interface{} `bun:"type:jsonb,nullzero,json_use_number" yaml:"metadata,omitempty"`
	DurationMS       int64                  `bun:","                                   yaml:"duration_ms,omitempty"`
}

var _ bun.BeforeAppendModelHook = (*RunSchema)(nil)

func (s *RunSchema) BeforeAppendModel(_ context.Context, query bun.Query) error {
	if _, ok := query.(*bun.UpdateQuery); ok {
		s.UpdatedAt = time.Now()
	}
	return nil
}

// BeforeCreateTable is a marker method to ensure uniform interface across all table models - used in table creation iterator
func (s *RunSchema) BeforeCreateTable(
	_ context.Context,
	_ *bun.CreateTableQuery,
) error {
	return nil
}

// Create cursor and created_at indexes after table creation
var _ bun.AfterCreateTableHook = (*RunSchema)(nil)

func (*RunSchema) AfterCreateTable(
	ctx context.Context,
	query *bun.CreateTableQuery,
) error {
	colsToIndex := []string{"id", "created_at"}
	for _, col := range colsToIndex {
		_, err := query.DB().NewCreateIndex().
			Model((*RunSchema)(nil)).
			Index(fmt.Sprintf("pipeline_run_%s_idx", col)).
			IfNotExists().
			Column(col).
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

var tableList = []bun.BeforeCreateTableHook{
	&RunSchema{},
}

// CreateSchema creates the db schema if it does not exist.
func CreateSchema(
	ctx context.Context,
	_ *models.AppState,
	db *bun.DB,
) error {
	for i := len(tableList) - 1; i >= 0; i-- {
		schema := tableList[i]
		_, err := db.NewCreateTable().
			Model(schema).
			IfNotExists().
			WithForeignKeys().
			Exec(ctx)
		if err != nil {
			// bun still trying to create indexes despite IfNotExists flag
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			return fmt.Errorf("error creating table for schema %T: %w", schema, err)
		}
	}

	return nil
}

// NewPostgresConn creates a new bun.DB connection to a postgres database using the provided DSN.
// The connection is configured to pool connections based on the number of PROCs available.
func NewPostgresConn(appState *models.AppState) (*bun.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	maxOpenConns := 4 * runtime.GOMAXPROCS(0)

	sqldb := sql.OpenDB(
		pgdriver.NewConnector(
			pgdriver.WithDSN(appState.Config.Store.Postgres.DSN),
			pgdriver.WithReadTimeout(1*time.Minute),
		),
	)
	sqldb.SetMaxOpenConns(maxOpenConns)
	sqldb.SetMaxIdleConns(maxOpenConns)

	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(bunotel.NewQueryHook(bunotel.WithDBName("textchain")))

	if err := checkPostgresVersion(ctx, db); err != nil {
		return nil, err
	}

	return db, nil
}

// checkPostgresVersion confirms the server is a version we can create our
// schema on. gen_random_uuid is in core from 13 onward.
func checkPostgresVersion(ctx context.Context, db *bun.DB) error {
	const minVersion = "13.0"
	requiredVersion, err := semver.NewVersion(minVersion)
	if err != nil {
		return fmt.Errorf("error parsing required postgres version: %w", err)
	}

	var version string
	err = db.NewSelect().
		ColumnExpr("current_setting('server_version')").
		Scan(ctx, &version)
	if err != nil {
		return fmt.Errorf("error checking postgres version: %w", err)
	}

	// strip build suffixes such as "15.4 (Debian 15.4-1.pgdg120+1)"
	version = strings.Fields(version)[0]

	thisVersion, err := semver.NewVersion(version)
	if err != nil {
		log.Warnf("unable to parse postgres version %q: %v", version, err)
		return nil
	}

	if requiredVersion.GreaterThan(thisVersion) {
		return fmt.Errorf(
			"postgres version %s is not supported. %s or later is required",
			version,
			minVersion,
		)
	}

	return nil
}
