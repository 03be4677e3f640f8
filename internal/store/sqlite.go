package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/poll-lab/pollboard/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Channel tags
// are stored as a JSON array since SQLite has no array type.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sdb}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS articles (
	id           TEXT PRIMARY KEY,
	url          TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL,
	publisher    TEXT,
	published_at DATETIME,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS poll_observations (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	observation_key      TEXT NOT NULL UNIQUE,
	article_id           TEXT REFERENCES articles(id),
	pollster             TEXT NOT NULL,
	title                TEXT,
	survey_end_date      DATETIME,
	audience_scope       TEXT,
	audience_region_code TEXT,
	region_code          TEXT,
	office_type          TEXT,
	source_channel       TEXT,
	source_channels      TEXT,
	official_release_at  DATETIME,
	verified             INTEGER NOT NULL DEFAULT 0,
	created_at           DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS poll_options (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	observation_id INTEGER NOT NULL REFERENCES poll_observations(id),
	option_type    TEXT NOT NULL,
	option_name    TEXT NOT NULL,
	value_raw      TEXT,
	value_min      REAL,
	value_max      REAL,
	value_mid      REAL,
	is_missing     INTEGER NOT NULL DEFAULT 0,
	UNIQUE (observation_id, option_type, option_name)
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id                TEXT PRIMARY KEY,
	run_type          TEXT NOT NULL,
	extractor_version TEXT,
	status            TEXT NOT NULL DEFAULT 'running',
	record_count      INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at      DATETIME
);

CREATE INDEX IF NOT EXISTS idx_observations_scope ON poll_observations(audience_scope);
CREATE INDEX IF NOT EXISTS idx_observations_region_office ON poll_observations(region_code, office_type);
CREATE INDEX IF NOT EXISTS idx_observations_survey_end ON poll_observations(survey_end_date DESC);
CREATE INDEX IF NOT EXISTS idx_options_observation ON poll_options(observation_id);
CREATE INDEX IF NOT EXISTS idx_options_type ON poll_options(option_type);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteObservationProjection = `
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
		CASE WHEN o.source_channel IS NULL THEN '[]' ELSE json_array(o.source_channel) END
	) AS source_channels,
	o.official_release_at,
	a.published_at AS article_published_at,
	o.updated_at AS observation_updated_at,
	o.verified`

func (s *SQLiteStore) ListSummaryRows(ctx context.Context, filter SummaryFilter) ([]model.Observation, error) {
	query := `SELECT ` + sqliteObservationProjection + `
		FROM poll_options po
		JOIN poll_observations o ON o.id = po.observation_id
		LEFT JOIN articles a ON a.id = o.article_id
		WHERE po.option_type IN ('party_support', 'president_job_approval', 'election_frame')
		  AND o.verified = 1
		  AND o.audience_scope = 'national'`
	var args []any

	if filter.AsOf != nil {
		query += ` AND o.survey_end_date <= ?`
		args = append(args, *filter.AsOf)
	}
	query += ` ORDER BY po.option_type, po.option_name, o.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list summary rows")
	}
	defer rows.Close()

	return scanSQLiteObservations(rows, "sqlite: list summary rows")
}

func (s *SQLiteStore) ListMapLatestRows(ctx context.Context, filter MapLatestFilter) ([]model.Observation, error) {
	var args []any

	asOfFilter := ""
	if filter.AsOf != nil {
		asOfFilter = `AND o.survey_end_date <= ?`
		args = append(args, *filter.AsOf)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	query := `
		WITH ranked AS (
			SELECT ` + sqliteObservationProjection + `,
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
			WHERE o.verified = 1
			  AND po.option_type = 'candidate_matchup'
			  AND po.value_mid IS NOT NULL
			  ` + asOfFilter + `
		)
		SELECT id, option_type, option_name, value_mid, pollster, title,
		       survey_end_date, audience_scope, audience_region_code,
		       region_code, office_type, source_channels,
		       official_release_at, article_published_at,
		       observation_updated_at, verified
		FROM ranked
		WHERE rn = 1
		ORDER BY region_code, office_type
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list map latest rows")
	}
	defer rows.Close()

	return scanSQLiteObservations(rows, "sqlite: list map latest rows")
}

func (s *SQLiteStore) CreateIngestRun(ctx context.Context, runType, extractorVersion string) (*IngestRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, run_type, extractor_version, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, runType, extractorVersion, string(IngestRunRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert ingest run")
	}

	return &IngestRun{
		ID:               id,
		RunType:          runType,
		ExtractorVersion: extractorVersion,
		Status:           IngestRunRunning,
		CreatedAt:        now,
	}, nil
}

func (s *SQLiteStore) CompleteIngestRun(ctx context.Context, runID string, status IngestRunStatus, recordCount int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ingest_runs SET status = ?, record_count = ?, completed_at = ? WHERE id = ?`,
		string(status), recordCount, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete ingest run %s", runID)
	}
	return checkRowsAffected(res, "ingest run", runID)
}

func (s *SQLiteStore) UpsertRecord(ctx context.Context, rec Record) (int64, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert record")
	}
	defer tx.Rollback()

	var articleID *string
	if rec.Article != nil {
		var id string
		err := tx.QueryRowContext(ctx,
			`INSERT INTO articles (id, url, title, publisher, published_at, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (url) DO UPDATE SET title = excluded.title,
			   publisher = excluded.publisher, published_at = excluded.published_at
			 RETURNING id`,
			uuid.New().String(), rec.Article.URL, rec.Article.Title,
			rec.Article.Publisher, rec.Article.PublishedAt, now,
		).Scan(&id)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert article %s", rec.Article.URL)
		}
		articleID = &id
	}

	obs := rec.Observation
	var channelsJSON *string
	if tags := channelTags(obs); tags != nil {
		b, err := json.Marshal(tags)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: marshal source channels")
		}
		encoded := string(b)
		channelsJSON = &encoded
	}

	var obsID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO poll_observations
		   (observation_key, article_id, pollster, title, survey_end_date, audience_scope,
		    audience_region_code, region_code, office_type, source_channel, source_channels,
		    official_release_at, verified, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (observation_key) DO UPDATE SET
		   article_id = COALESCE(excluded.article_id, poll_observations.article_id),
		   pollster = excluded.pollster, title = excluded.title,
		   survey_end_date = excluded.survey_end_date,
		   audience_scope = excluded.audience_scope,
		   audience_region_code = excluded.audience_region_code,
		   region_code = excluded.region_code, office_type = excluded.office_type,
		   source_channel = excluded.source_channel,
		   source_channels = excluded.source_channels,
		   official_release_at = excluded.official_release_at,
		   verified = excluded.verified, updated_at = excluded.updated_at
		 RETURNING id`,
		obs.ObservationKey, articleID, obs.Pollster, obs.Title,
		obs.SurveyEndDate, string(obs.AudienceScope), obs.AudienceRegionCode,
		obs.RegionCode, obs.OfficeType, obs.SourceChannel, channelsJSON,
		obs.OfficialReleaseAt, obs.Verified, now, now,
	).Scan(&obsID)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: upsert observation %s", obs.ObservationKey)
	}

	for _, opt := range rec.Options {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO poll_options
			   (observation_id, option_type, option_name, value_raw, value_min, value_max, value_mid, is_missing)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (observation_id, option_type, option_name) DO UPDATE SET
			   value_raw = excluded.value_raw, value_min = excluded.value_min,
			   value_max = excluded.value_max, value_mid = excluded.value_mid,
			   is_missing = excluded.is_missing`,
			obsID, string(opt.OptionType), opt.OptionName,
			opt.ValueRaw, opt.ValueMin, opt.ValueMax, opt.ValueMid, opt.IsMissing,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert option %s/%s", opt.OptionType, opt.OptionName)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert record")
	}
	return obsID, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func scanSQLiteObservations(rows *sql.Rows, op string) ([]model.Observation, error) {
	var out []model.Observation
	for rows.Next() {
		var (
			o            model.Observation
			scope        sql.NullString
			channelsJSON string
			surveyEnd    sql.NullTime
			releaseAt    sql.NullTime
			publishedAt  sql.NullTime
			updatedAt    sql.NullTime
		)
		err := rows.Scan(
			&o.RowID, &o.OptionType, &o.OptionName, &o.ValueMid,
			&o.Pollster, &o.Title, &surveyEnd, &scope,
			&o.AudienceRegionCode, &o.RegionCode, &o.OfficeType,
			&channelsJSON, &releaseAt, &publishedAt, &updatedAt, &o.Verified,
		)
		if err != nil {
			return nil, eris.Wrap(err, op+" scan")
		}
		if scope.Valid {
			o.AudienceScope = model.NormalizeScope(scope.String)
		}
		if err := json.Unmarshal([]byte(channelsJSON), &o.SourceChannels); err != nil {
			return nil, eris.Wrap(err, op+" unmarshal channels")
		}
		o.SurveyEndDate = nullableTime(surveyEnd)
		o.OfficialReleaseAt = nullableTime(releaseAt)
		o.ArticlePublishedAt = nullableTime(publishedAt)
		o.UpdatedAt = nullableTime(updatedAt)
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), op+" iterate")
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
