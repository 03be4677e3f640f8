package reconcile

import (
	"time"

	"github.com/poll-lab/pollboard/internal/model"
)

// DefaultArticleCutoff is the instant before which article-sourced data
// is too old to display. The boundary itself is inclusive.
var DefaultArticleCutoff = time.Date(2025, time.December, 1, 0, 0, 0, 0, model.KST)

// CutoffFilter gates article-tagged rows on their temporal evidence.
// Official-only rows pass unconditionally: a statutory filing is always
// displayable once ingested.
type CutoffFilter struct {
	cutoff time.Time
}

// NewCutoffFilter builds a filter for the given cutoff instant. A zero
// cutoff falls back to DefaultArticleCutoff.
func NewCutoffFilter(cutoff time.Time) *CutoffFilter {
	if cutoff.IsZero() {
		cutoff = DefaultArticleCutoff
	}
	return &CutoffFilter{cutoff: cutoff}
}

// Cutoff returns the configured cutoff instant.
func (f *CutoffFilter) Cutoff() time.Time {
	return f.cutoff
}

// IsEligible reports whether the row may be shown at all. Article-tagged
// rows must have both temporal signals, where present, at or after the
// cutoff; each signal is independently necessary. Rows missing both
// signals pass: absence of evidence is not staleness.
func (f *CutoffFilter) IsEligible(row *model.Observation) bool {
	if !row.HasArticleChannel() {
		return true
	}
	if f.ArticlePublishedBefore(row) {
		return false
	}
	if f.SurveyEndBefore(row) {
		return false
	}
	return true
}

// ArticlePublishedBefore reports whether the row's article publication
// instant falls strictly before the cutoff.
func (f *CutoffFilter) ArticlePublishedBefore(row *model.Observation) bool {
	if row.ArticlePublishedAt == nil {
		return false
	}
	return row.ArticlePublishedAt.Before(f.cutoff)
}

// SurveyEndBefore reports whether the row's survey-end date falls
// strictly before the cutoff date.
func (f *CutoffFilter) SurveyEndBefore(row *model.Observation) bool {
	if row.SurveyEndDate == nil {
		return false
	}
	// Survey-end is date-resolution evidence; compare against the cutoff
	// date in KST, inclusive at the boundary.
	end := row.SurveyEndDate.In(model.KST)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, model.KST)
	cut := f.cutoff.In(model.KST)
	cutDay := time.Date(cut.Year(), cut.Month(), cut.Day(), 0, 0, 0, 0, model.KST)
	return endDay.Before(cutDay)
}
