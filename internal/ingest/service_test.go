package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poll-lab/pollboard/internal/model"
	"github.com/poll-lab/pollboard/internal/store"
)

// fakeStore records write calls in memory.
type fakeStore struct {
	runs      []store.IngestRun
	records   []store.Record
	failAfter int // fail UpsertRecord once this many records are written; -1 disables
}

func newFakeStore() *fakeStore {
	return &fakeStore{failAfter: -1}
}

func (f *fakeStore) ListSummaryRows(context.Context, store.SummaryFilter) ([]model.Observation, error) {
	return nil, nil
}

func (f *fakeStore) ListMapLatestRows(context.Context, store.MapLatestFilter) ([]model.Observation, error) {
	return nil, nil
}

func (f *fakeStore) CreateIngestRun(_ context.Context, runType, extractorVersion string) (*store.IngestRun, error) {
	run := store.IngestRun{
		ID:               "run-1",
		RunType:          runType,
		ExtractorVersion: extractorVersion,
		Status:           store.IngestRunRunning,
	}
	f.runs = append(f.runs, run)
	return &run, nil
}

func (f *fakeStore) CompleteIngestRun(_ context.Context, runID string, status store.IngestRunStatus, recordCount int) error {
	for i := range f.runs {
		if f.runs[i].ID == runID {
			f.runs[i].Status = status
			f.runs[i].RecordCount = recordCount
			return nil
		}
	}
	return eris.Errorf("ingest run not found: %s", runID)
}

func (f *fakeStore) UpsertRecord(_ context.Context, rec store.Record) (int64, error) {
	if f.failAfter >= 0 && len(f.records) >= f.failAfter {
		return 0, eris.New("fake: write refused")
	}
	f.records = append(f.records, rec)
	return int64(len(f.records)), nil
}

func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

const samplePayload = `{
	"run_type": "manual",
	"extractor_version": "manual-v2",
	"records": [
		{
			"article": {
				"url": "https://news.example.com/1",
				"title": "여론조사 보도",
				"publisher": "예시일보",
				"published_at": "2026-02-21T09:00:00+09:00"
			},
			"observation": {
				"observation_key": "obs-1",
				"pollster": "한국리서치",
				"survey_end_date": "2026-02-20",
				"audience_scope": "national",
				"source_channels": ["article"],
				"verified": true
			},
			"options": [
				{"option_type": "party_support", "option_name": "더불어민주당", "value_raw": "45%"},
				{"option_type": "party_support", "option_name": "국민의힘", "value_raw": "40~45%"},
				{"option_type": "party_support", "option_name": "개혁신당", "value_raw": "언급 없음"}
			]
		}
	]
}`

func TestDecodePayload(t *testing.T) {
	p, err := DecodePayload(strings.NewReader(samplePayload))
	require.NoError(t, err)
	assert.Equal(t, "manual", p.RunType)
	assert.Equal(t, "manual-v2", p.ExtractorVersion)
	require.Len(t, p.Records, 1)
	assert.Equal(t, "obs-1", p.Records[0].Observation.ObservationKey)
}

func TestDecodePayload_Defaults(t *testing.T) {
	p, err := DecodePayload(strings.NewReader(`{"records":[{"observation":{"observation_key":"k","pollster":"p"},"options":[]}]}`))
	require.NoError(t, err)
	assert.Equal(t, "manual", p.RunType)
	assert.Equal(t, "manual-v1", p.ExtractorVersion)
}

func TestDecodePayload_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", `{`, "decode payload"},
		{"no records", `{"records":[]}`, "no records"},
		{"missing key", `{"records":[{"observation":{"pollster":"p"},"options":[]}]}`, "missing observation_key"},
		{"missing pollster", `{"records":[{"observation":{"observation_key":"k"},"options":[]}]}`, "missing pollster"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePayload(strings.NewReader(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestServiceRun_WritesRecords(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs)

	p, err := DecodePayload(strings.NewReader(samplePayload))
	require.NoError(t, err)

	res, err := svc.Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, 1, res.RecordCount)

	require.Len(t, fs.runs, 1)
	assert.Equal(t, store.IngestRunComplete, fs.runs[0].Status)
	assert.Equal(t, 1, fs.runs[0].RecordCount)

	require.Len(t, fs.records, 1)
	rec := fs.records[0]

	require.NotNil(t, rec.Article)
	require.NotNil(t, rec.Article.PublishedAt)
	assert.Equal(t, model.ScopeNational, rec.Observation.AudienceScope)
	require.NotNil(t, rec.Observation.SurveyEndDate)

	require.Len(t, rec.Options, 3)
	single, rng, missing := rec.Options[0], rec.Options[1], rec.Options[2]

	require.NotNil(t, single.ValueMid)
	assert.InDelta(t, 45, *single.ValueMid, 0.001)
	assert.False(t, single.IsMissing)

	require.NotNil(t, rng.ValueMid)
	assert.InDelta(t, 42.5, *rng.ValueMid, 0.001)

	assert.Nil(t, missing.ValueMid)
	assert.True(t, missing.IsMissing)
}

func TestServiceRun_FailureMarksRunFailed(t *testing.T) {
	fs := newFakeStore()
	fs.failAfter = 0
	svc := NewService(fs)

	p, err := DecodePayload(strings.NewReader(samplePayload))
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "obs-1")

	require.Len(t, fs.runs, 1)
	assert.Equal(t, store.IngestRunFailed, fs.runs[0].Status)
	assert.Equal(t, 0, fs.runs[0].RecordCount)
}

func TestServiceRun_KeepsLegacySingularChannel(t *testing.T) {
	payload, err := DecodePayload(strings.NewReader(`{
		"records": [{
			"observation": {
				"observation_key": "obs-legacy",
				"pollster": "한국갤럽",
				"source_channel": "nesdc",
				"verified": true
			},
			"options": [
				{"option_type": "party_support", "option_name": "더불어민주당", "value_raw": "43%"}
			]
		}]
	}`))
	require.NoError(t, err)

	fs := newFakeStore()
	_, err = NewService(fs).Run(context.Background(), payload)
	require.NoError(t, err)

	require.Len(t, fs.records, 1)
	obs := fs.records[0].Observation
	require.NotNil(t, obs.SourceChannel)
	assert.Equal(t, "nesdc", *obs.SourceChannel)
	assert.Empty(t, obs.SourceChannels)
}
