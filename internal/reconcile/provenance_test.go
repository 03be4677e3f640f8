package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poll-lab/pollboard/internal/model"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDerive_SourcePriority(t *testing.T) {
	d := NewDeriver(nil)

	tests := []struct {
		name     string
		row      model.Observation
		priority model.SourcePriority
	}{
		{
			name:     "official only",
			row:      model.Observation{SourceChannels: []string{"nesdc"}},
			priority: model.PriorityOfficial,
		},
		{
			name:     "both tags",
			row:      model.Observation{SourceChannels: []string{"nesdc", "article"}},
			priority: model.PriorityMixed,
		},
		{
			name:     "article only",
			row:      model.Observation{SourceChannels: []string{"article"}},
			priority: model.PriorityArticle,
		},
		{
			name:     "no tags rank below article",
			row:      model.Observation{},
			priority: model.PriorityNone,
		},
		{
			name:     "unrecognized tag degrades to article",
			row:      model.Observation{SourceChannels: []string{"telegram"}},
			priority: model.PriorityArticle,
		},
		{
			name: "legacy singular channel is folded in",
			row: model.Observation{
				SourceChannel:  strPtr("nesdc"),
				SourceChannels: []string{"article"},
			},
			priority: model.PriorityMixed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := d.Derive(&tt.row)
			assert.Equal(t, tt.priority, meta.SourcePriority)
		})
	}
}

func TestDerive_AnchorResolutionOrder(t *testing.T) {
	d := NewDeriver(nil)

	official := kst(2026, time.February, 26, 9, 0, 0)
	published := kst(2026, time.February, 26, 1, 0, 0)
	updated := kst(2026, time.February, 26, 3, 0, 0)

	row := model.Observation{
		OfficialReleaseAt:  official,
		ArticlePublishedAt: published,
		UpdatedAt:          updated,
	}
	meta := d.Derive(&row)
	require.NotNil(t, meta.FreshnessAnchor)
	assert.True(t, meta.FreshnessAnchor.Equal(*official))

	row.OfficialReleaseAt = nil
	meta = d.Derive(&row)
	require.NotNil(t, meta.FreshnessAnchor)
	assert.True(t, meta.FreshnessAnchor.Equal(*published))

	row.ArticlePublishedAt = nil
	meta = d.Derive(&row)
	require.NotNil(t, meta.FreshnessAnchor)
	assert.True(t, meta.FreshnessAnchor.Equal(*updated))
}

func TestDerive_OfficialTagSurrogateAnchor(t *testing.T) {
	d := NewDeriver(nil)

	published := kst(2026, time.February, 26, 1, 0, 0)
	updated := kst(2026, time.February, 26, 3, 0, 0)

	// Official tag with no release instant: the update instant stands in
	// as the official release and wins over the article publication.
	row := model.Observation{
		SourceChannels:     []string{"nesdc"},
		ArticlePublishedAt: published,
		UpdatedAt:          updated,
	}
	meta := d.Derive(&row)
	require.NotNil(t, meta.FreshnessAnchor)
	assert.True(t, meta.FreshnessAnchor.Equal(*updated))

	// The raw release field is reported as absent, not as the surrogate.
	assert.Nil(t, meta.OfficialReleaseAt)
}

func TestDerive_FreshnessHours(t *testing.T) {
	now := time.Date(2026, time.February, 27, 12, 0, 0, 0, model.KST)
	d := NewDeriver(fixedClock(now))

	anchor := now.Add(-90*time.Minute - 18*time.Second)
	row := model.Observation{OfficialReleaseAt: &anchor}
	meta := d.Derive(&row)
	require.NotNil(t, meta.FreshnessHours)
	assert.InDelta(t, 1.51, *meta.FreshnessHours, 0.001) // 1.505h rounds up

	// A future anchor clamps to zero, never negative.
	future := now.Add(2 * time.Hour)
	row = model.Observation{OfficialReleaseAt: &future}
	meta = d.Derive(&row)
	require.NotNil(t, meta.FreshnessHours)
	assert.Equal(t, 0.0, *meta.FreshnessHours)
}

func TestDerive_NoAnchorMeansNilFreshness(t *testing.T) {
	d := NewDeriver(nil)

	meta := d.Derive(&model.Observation{})
	assert.Nil(t, meta.FreshnessAnchor)
	assert.Nil(t, meta.FreshnessHours)
	assert.False(t, meta.IsOfficialConfirmed)
}

func TestDerive_DoesNotMutateInput(t *testing.T) {
	d := NewDeriver(nil)

	updated := kst(2026, time.February, 26, 3, 0, 0)
	row := model.Observation{
		SourceChannels: []string{"nesdc"},
		UpdatedAt:      updated,
	}
	_ = d.Derive(&row)
	assert.Nil(t, row.OfficialReleaseAt)
	assert.Equal(t, []string{"nesdc"}, row.SourceChannels)
}
