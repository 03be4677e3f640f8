package reconcile

import (
	"math"
	"time"

	"github.com/poll-lab/pollboard/internal/model"
)

// Deriver computes ProvenanceMeta for a row. It never fails: absent or
// malformed inputs degrade to nil fields and the article default.
type Deriver struct {
	now func() time.Time
}

// NewDeriver builds a deriver using the given clock. A nil clock means
// time.Now; tests inject a fixed one.
func NewDeriver(now func() time.Time) *Deriver {
	if now == nil {
		now = time.Now
	}
	return &Deriver{now: now}
}

// Derive annotates a row with source priority, freshness, and official
// confirmation. The input row is not mutated.
func (d *Deriver) Derive(row *model.Observation) model.ProvenanceMeta {
	channels := row.Channels()
	hasOfficial := channels[model.ChannelOfficial]
	hasArticle := channels[model.ChannelArticle]

	// Unrecognized tags rank as article; only a fully untagged row gets
	// the none rank, which loses ranking ties to any tagged row.
	priority := model.PriorityNone
	switch {
	case hasOfficial && hasArticle:
		priority = model.PriorityMixed
	case hasOfficial:
		priority = model.PriorityOfficial
	case len(channels) > 0:
		priority = model.PriorityArticle
	}

	// An official tag without a release instant still means an official
	// filing exists; the row's own update instant stands in for it when
	// resolving the anchor.
	officialAnchor := row.OfficialReleaseAt
	if officialAnchor == nil && hasOfficial {
		officialAnchor = row.UpdatedAt
	}

	anchor := firstNonNil(officialAnchor, row.ArticlePublishedAt, row.UpdatedAt)

	meta := model.ProvenanceMeta{
		SourcePriority:      priority,
		FreshnessAnchor:     anchor,
		OfficialReleaseAt:   row.OfficialReleaseAt,
		ArticlePublishedAt:  row.ArticlePublishedAt,
		IsOfficialConfirmed: hasOfficial,
	}
	if anchor != nil {
		meta.FreshnessHours = ptr(freshnessHours(d.now(), *anchor))
	}
	return meta
}

// freshnessHours measures the age of an anchor in hours, clamped at zero
// and rounded to two decimals.
func freshnessHours(now, anchor time.Time) float64 {
	age := now.Sub(anchor)
	if age < 0 {
		age = 0
	}
	return math.Round(age.Hours()*100) / 100
}

// firstNonNil resolves an ordered fallback chain of instants explicitly,
// instead of hiding the precedence in boolean short-circuits.
func firstNonNil(candidates ...*time.Time) *time.Time {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
