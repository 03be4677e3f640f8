package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/poll-lab/pollboard/internal/model"
)

func strPtr(s string) *string { return &s }

func kst(year int, month time.Month, day, hour, minute, sec int) *time.Time {
	t := time.Date(year, month, day, hour, minute, sec, 0, model.KST)
	return &t
}

func TestIsEligible_OfficialRowsAreUnconditional(t *testing.T) {
	f := NewCutoffFilter(time.Time{})

	row := model.Observation{
		SourceChannels:     []string{model.ChannelOfficial},
		SurveyEndDate:      kst(2024, time.March, 1, 0, 0, 0),
		ArticlePublishedAt: kst(2024, time.March, 2, 9, 0, 0),
	}
	assert.True(t, f.IsEligible(&row))
}

func TestIsEligible_ArticlePublishedBoundaryInclusive(t *testing.T) {
	f := NewCutoffFilter(time.Time{})

	before := model.Observation{
		SourceChannel:      strPtr("article"),
		ArticlePublishedAt: kst(2025, time.November, 30, 23, 59, 59),
	}
	assert.False(t, f.IsEligible(&before))

	at := model.Observation{
		SourceChannel:      strPtr("article"),
		ArticlePublishedAt: kst(2025, time.December, 1, 0, 0, 0),
	}
	assert.True(t, f.IsEligible(&at))
}

func TestIsEligible_SurveyEndIsIndependentlyNecessary(t *testing.T) {
	f := NewCutoffFilter(time.Time{})

	// Fresh publication cannot rescue a stale survey.
	row := model.Observation{
		SourceChannels:     []string{model.ChannelArticle},
		ArticlePublishedAt: kst(2026, time.February, 20, 9, 0, 0),
		SurveyEndDate:      kst(2025, time.November, 30, 0, 0, 0),
	}
	assert.False(t, f.IsEligible(&row))

	// And a stale publication fails even with a fresh survey.
	row = model.Observation{
		SourceChannels:     []string{model.ChannelArticle},
		ArticlePublishedAt: kst(2025, time.November, 29, 9, 0, 0),
		SurveyEndDate:      kst(2026, time.February, 20, 0, 0, 0),
	}
	assert.False(t, f.IsEligible(&row))
}

func TestIsEligible_MissingSignalsPass(t *testing.T) {
	f := NewCutoffFilter(time.Time{})

	row := model.Observation{SourceChannels: []string{model.ChannelArticle}}
	assert.True(t, f.IsEligible(&row))
}

func TestIsEligible_UntaggedRowsAreArticleGated(t *testing.T) {
	f := NewCutoffFilter(time.Time{})

	row := model.Observation{
		ArticlePublishedAt: kst(2025, time.October, 1, 0, 0, 0),
	}
	assert.False(t, f.IsEligible(&row))
}

func TestIsEligible_MixedChannelRowIsGated(t *testing.T) {
	f := NewCutoffFilter(time.Time{})

	row := model.Observation{
		SourceChannels:     []string{model.ChannelOfficial, model.ChannelArticle},
		ArticlePublishedAt: kst(2025, time.November, 1, 0, 0, 0),
	}
	assert.False(t, f.IsEligible(&row))
}

func TestSurveyEndBefore_UTCInstantNormalizedToKST(t *testing.T) {
	f := NewCutoffFilter(time.Time{})

	// 2025-11-30 16:00 UTC is 2025-12-01 01:00 KST: at the cutoff date.
	end := time.Date(2025, time.November, 30, 16, 0, 0, 0, time.UTC)
	row := model.Observation{SurveyEndDate: &end}
	assert.False(t, f.SurveyEndBefore(&row))
}
