package store

import (
	"context"
	"time"

	"github.com/poll-lab/pollboard/internal/model"
)

// SummaryFilter narrows the dashboard summary read.
type SummaryFilter struct {
	AsOf *time.Time `json:"as_of,omitempty"`
}

// MapLatestFilter narrows the map-latest read.
type MapLatestFilter struct {
	AsOf  *time.Time `json:"as_of,omitempty"`
	Limit int        `json:"limit,omitempty"`
}

// IngestRunStatus is the lifecycle state of an ingest run.
type IngestRunStatus string

const (
	IngestRunRunning  IngestRunStatus = "running"
	IngestRunComplete IngestRunStatus = "complete"
	IngestRunFailed   IngestRunStatus = "failed"
)

// IngestRun tracks one ingest invocation.
type IngestRun struct {
	ID               string          `json:"id"`
	RunType          string          `json:"run_type"`
	ExtractorVersion string          `json:"extractor_version,omitempty"`
	Status           IngestRunStatus `json:"status"`
	RecordCount      int             `json:"record_count"`
	CreatedAt        time.Time       `json:"created_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
}

// ArticleRecord is the article half of an ingest record.
type ArticleRecord struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Publisher   string     `json:"publisher,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// ObservationRecord is one poll observation to persist.
type ObservationRecord struct {
	ObservationKey     string              `json:"observation_key"`
	Pollster           string              `json:"pollster"`
	Title              string              `json:"title,omitempty"`
	SurveyEndDate      *time.Time          `json:"survey_end_date,omitempty"`
	AudienceScope      model.AudienceScope `json:"audience_scope,omitempty"`
	AudienceRegionCode *string             `json:"audience_region_code,omitempty"`
	RegionCode         *string             `json:"region_code,omitempty"`
	OfficeType         string              `json:"office_type,omitempty"`
	SourceChannel      *string             `json:"source_channel,omitempty"`
	SourceChannels     []string            `json:"source_channels,omitempty"`
	OfficialReleaseAt  *time.Time          `json:"official_release_at,omitempty"`
	Verified           bool                `json:"verified"`
}

// channelTags is the tag array to persist, nil when empty so the read
// projection can fall back to the legacy singular column.
func channelTags(obs ObservationRecord) []string {
	if len(obs.SourceChannels) == 0 {
		return nil
	}
	return obs.SourceChannels
}

// OptionRecord is one option row under an observation.
type OptionRecord struct {
	OptionType model.OptionType `json:"option_type"`
	OptionName string           `json:"option_name"`
	ValueRaw   *string          `json:"value_raw,omitempty"`
	ValueMin   *float64         `json:"value_min,omitempty"`
	ValueMax   *float64         `json:"value_max,omitempty"`
	ValueMid   *float64         `json:"value_mid,omitempty"`
	IsMissing  bool             `json:"is_missing"`
}

// Record bundles an article, its observation, and the option rows.
type Record struct {
	Article     *ArticleRecord    `json:"article,omitempty"`
	Observation ObservationRecord `json:"observation"`
	Options     []OptionRecord    `json:"options"`
}

// Store defines the persistence interface for the reconciliation service.
type Store interface {
	// Reads feeding the engine
	ListSummaryRows(ctx context.Context, filter SummaryFilter) ([]model.Observation, error)
	ListMapLatestRows(ctx context.Context, filter MapLatestFilter) ([]model.Observation, error)

	// Ingest write path
	CreateIngestRun(ctx context.Context, runType, extractorVersion string) (*IngestRun, error)
	CompleteIngestRun(ctx context.Context, runID string, status IngestRunStatus, recordCount int) error
	UpsertRecord(ctx context.Context, rec Record) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
