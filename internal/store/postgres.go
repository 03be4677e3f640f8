package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/poll-lab/pollboard/internal/db"
	"github.com/poll-lab/pollboard/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const upsertArticleSQL = `
INSERT INTO articles (id, url, title, publisher, published_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (url) DO UPDATE SET title = $3, publisher = $4, published_at = $5
RETURNING id`

const upsertObservationSQL = `
INSERT INTO poll_observations
  (observation_key, article_id, pollster, title, survey_end_date, audience_scope,
   audience_region_code, region_code, office_type, source_channel, source_channels,
   official_release_at, verified, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
ON CONFLICT (observation_key) DO UPDATE SET
  article_id = COALESCE($2, poll_observations.article_id),
  pollster = $3, title = $4, survey_end_date = $5, audience_scope = $6,
  audience_region_code = $7, region_code = $8, office_type = $9,
  source_channel = $10, source_channels = $11, official_release_at = $12,
  verified = $13, updated_at = $14
RETURNING id`

// observationProjection is the shared column list for reads that feed
// the reconciliation engine. The COALESCE folds the legacy singular
// source_channel into the tag array.
const observationProjection = `
	o.id,
	po.option_type,
	po.option_name,
	po.value_mid,
	o.pollster,
	COALESCE(o.title, '') AS title,
	o.survey_end_date,
	o.audience_scope,
	o.audience_region_code,
	o.region_code,
	COALESCE(o.office_type, '') AS office_type,
	COALESCE(
		o.source_channels,
		CASE WHEN o.source_channel IS NULL THEN ARRAY[]::text[] ELSE ARRAY[o.source_channel] END
	) AS source_channels,
	o.official_release_at,
	a.published_at AS article_published_at,
	o.updated_at AS observation_updated_at,
	o.verified`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare the write-path statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range map[string]string{
			"upsert_article":     upsertArticleSQL,
			"upsert_observation": upsertObservationSQL,
		} {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS articles (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	url          TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL,
	publisher    TEXT,
	published_at TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS poll_observations (
	id                   BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	observation_key      TEXT NOT NULL UNIQUE,
	article_id           TEXT REFERENCES articles(id),
	pollster             TEXT NOT NULL,
	title                TEXT,
	survey_end_date      DATE,
	audience_scope       TEXT,
	audience_region_code TEXT,
	region_code          TEXT,
	office_type          TEXT,
	source_channel       TEXT,
	source_channels      TEXT[],
	official_release_at  TIMESTAMPTZ,
	verified             BOOLEAN NOT NULL DEFAULT FALSE,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS poll_options (
	id             BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	observation_id BIGINT NOT NULL REFERENCES poll_observations(id),
	option_type    TEXT NOT NULL,
	option_name    TEXT NOT NULL,
	value_raw      TEXT,
	value_min      DOUBLE PRECISION,
	value_max      DOUBLE PRECISION,
	value_mid      DOUBLE PRECISION,
	is_missing     BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE (observation_id, option_type, option_name)
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id                TEXT PRIMARY KEY,
	run_type          TEXT NOT NULL,
	extractor_version TEXT,
	status            TEXT NOT NULL DEFAULT 'running',
	record_count      INTEGER NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at      TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_observations_key ON poll_observations(observation_key);
CREATE INDEX IF NOT EXISTS idx_observations_scope ON poll_observations(audience_scope);
CREATE INDEX IF NOT EXISTS idx_observations_region_office ON poll_observations(region_code, office_type);
CREATE INDEX IF NOT EXISTS idx_observations_survey_end ON poll_observations(survey_end_date DESC);
CREATE INDEX IF NOT EXISTS idx_options_observation ON poll_options(observation_id);
CREATE INDEX IF NOT EXISTS idx_options_type ON poll_options(option_type);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_status ON ingest_runs(status);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListSummaryRows(ctx context.Context, filter SummaryFilter) ([]model.Observation, error) {
	query := `SELECT ` + observationProjection + `
		FROM poll_options po
		JOIN poll_observations o ON o.id = po.observation_id
		LEFT JOIN articles a ON a.id = o.article_id
		WHERE po.option_type IN ('party_support', 'president_job_approval', 'election_frame')
		  AND o.verified = TRUE
		  AND o.audience_scope = 'national'`
	args := []any{}
	argIdx := 1

	if filter.AsOf != nil {
		query += fmt.Sprintf(` AND o.survey_end_date <= $%d`, argIdx)
		args = append(args, *filter.AsOf)
		argIdx++
	}
	query += ` ORDER BY po.option_type, po.option_name, o.id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list summary rows")
	}
	defer rows.Close()

	return scanObservations(rows, "postgres: list summary rows")
}

func (s *PostgresStore) ListMapLatestRows(ctx context.Context, filter MapLatestFilter) ([]model.Observation, error) {
	args := []any{}
	argIdx := 1

	asOfFilter := ""
	if filter.AsOf != nil {
		asOfFilter = fmt.Sprintf(`AND o.survey_end_date <= $%d`, argIdx)
		args = append(args, *filter.AsOf)
		argIdx++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	// One newest matchup row per region and office, then the gate
	// decides what survives.
	query := fmt.Sprintf(`
		WITH ranked AS (
			SELECT `+observationProjection+`,
				ROW_NUMBER() OVER (
					PARTITION BY o.region_code, o.office_type
					ORDER BY o.survey_end_date DESC NULLS LAST,
					         o.id DESC,
					         po.value_mid DESC NULLS LAST,
					         po.option_name
				) AS rn
			FROM poll_observations o
			JOIN poll_options po ON po.observation_id = o.id
			LEFT JOIN articles a ON a.id = o.article_id
			WHERE o.verified = TRUE
			  AND po.option_type = 'candidate_matchup'
			  AND po.value_mid IS NOT NULL
			  %s
		)
		SELECT id, option_type, option_name, value_mid, pollster, title,
		       survey_end_date, audience_scope, audience_region_code,
		       region_code, office_type, source_channels,
		       official_release_at, article_published_at,
		       observation_updated_at, verified
		FROM ranked
		WHERE rn = 1
		ORDER BY region_code, office_type
		LIMIT $%d`, asOfFilter, argIdx)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list map latest rows")
	}
	defer rows.Close()

	return scanObservations(rows, "postgres: list map latest rows")
}

func (s *PostgresStore) CreateIngestRun(ctx context.Context, runType, extractorVersion string) (*IngestRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingest_runs (id, run_type, extractor_version, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, runType, extractorVersion, string(IngestRunRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert ingest run")
	}

	return &IngestRun{
		ID:               id,
		RunType:          runType,
		ExtractorVersion: extractorVersion,
		Status:           IngestRunRunning,
		CreatedAt:        now,
	}, nil
}

func (s *PostgresStore) CompleteIngestRun(ctx context.Context, runID string, status IngestRunStatus, recordCount int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE ingest_runs SET status = $1, record_count = $2, completed_at = $3 WHERE id = $4`,
		string(status), recordCount, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete ingest run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("ingest run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) UpsertRecord(ctx context.Context, rec Record) (int64, error) {
	now := time.Now().UTC()

	var articleID *string
	if rec.Article != nil {
		var id string
		err := s.pool.QueryRow(ctx, upsertArticleSQL,
			uuid.New().String(), rec.Article.URL, rec.Article.Title,
			rec.Article.Publisher, rec.Article.PublishedAt, now,
		).Scan(&id)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: upsert article %s", rec.Article.URL)
		}
		articleID = &id
	}

	obs := rec.Observation
	var obsID int64
	err := s.pool.QueryRow(ctx, upsertObservationSQL,
		obs.ObservationKey, articleID, obs.Pollster, obs.Title,
		obs.SurveyEndDate, string(obs.AudienceScope), obs.AudienceRegionCode,
		obs.RegionCode, obs.OfficeType, obs.SourceChannel, channelTags(obs),
		obs.OfficialReleaseAt, obs.Verified, now,
	).Scan(&obsID)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert observation %s", obs.ObservationKey)
	}

	if len(rec.Options) > 0 {
		optionRows := make([][]any, 0, len(rec.Options))
		for _, opt := range rec.Options {
			optionRows = append(optionRows, []any{
				obsID, string(opt.OptionType), opt.OptionName,
				opt.ValueRaw, opt.ValueMin, opt.ValueMax, opt.ValueMid, opt.IsMissing,
			})
		}
		_, err = db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
			Table:        "poll_options",
			Columns:      []string{"observation_id", "option_type", "option_name", "value_raw", "value_min", "value_max", "value_mid", "is_missing"},
			ConflictKeys: []string{"observation_id", "option_type", "option_name"},
		}, optionRows)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: upsert options for %s", obs.ObservationKey)
		}
	}

	return obsID, nil
}

// scanObservations drains rows produced with observationProjection.
func scanObservations(rows pgx.Rows, op string) ([]model.Observation, error) {
	var out []model.Observation
	for rows.Next() {
		var (
			o     model.Observation
			scope *string
		)
		err := rows.Scan(
			&o.RowID, &o.OptionType, &o.OptionName, &o.ValueMid,
			&o.Pollster, &o.Title, &o.SurveyEndDate, &scope,
			&o.AudienceRegionCode, &o.RegionCode, &o.OfficeType,
			&o.SourceChannels, &o.OfficialReleaseAt, &o.ArticlePublishedAt,
			&o.UpdatedAt, &o.Verified,
		)
		if err != nil {
			return nil, eris.Wrap(err, op+" scan")
		}
		if scope != nil {
			o.AudienceScope = model.NormalizeScope(*scope)
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), op+" iterate")
}
