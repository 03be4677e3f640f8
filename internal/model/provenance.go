package model

import "time"

// SourcePriority classifies which channel kinds fed an observation.
type SourcePriority string

const (
	PriorityOfficial SourcePriority = "official"
	PriorityArticle  SourcePriority = "article"
	PriorityMixed    SourcePriority = "mixed"
	PriorityNone     SourcePriority = "none"
)

// Rank orders priorities for selection tie-breaks: official filings beat
// article summaries, which beat rows with no channel evidence at all.
func (p SourcePriority) Rank() int {
	switch p {
	case PriorityOfficial, PriorityMixed:
		return 2
	case PriorityArticle:
		return 1
	default:
		return 0
	}
}

// SourceTier labels the winning row of a canonical selection for display.
type SourceTier string

const (
	TierOfficial         SourceTier = "nesdc"
	TierArticleAggregate SourceTier = "article_aggregate"
	TierArticle          SourceTier = "article"
)

// ProvenanceMeta is derived per row and never persisted. FreshnessHours is
// nil when no anchor timestamp could be resolved; it is never negative.
type ProvenanceMeta struct {
	SourcePriority      SourcePriority `json:"source_priority"`
	FreshnessAnchor     *time.Time     `json:"freshness_anchor,omitempty"`
	FreshnessHours      *float64       `json:"freshness_hours,omitempty"`
	OfficialReleaseAt   *time.Time     `json:"official_release_at,omitempty"`
	ArticlePublishedAt  *time.Time     `json:"article_published_at,omitempty"`
	IsOfficialConfirmed bool           `json:"is_official_confirmed"`
}

// SelectionKey identifies one logical question.
type SelectionKey struct {
	OptionType    OptionType    `json:"option_type"`
	OptionName    string        `json:"option_name"`
	AudienceScope AudienceScope `json:"audience_scope"`
}

// CanonicalSelection is the single representative chosen for a key, with
// its provenance and the display tier of the winning source.
type CanonicalSelection struct {
	Key        SelectionKey   `json:"key"`
	Winner     Observation    `json:"winner"`
	Provenance ProvenanceMeta `json:"provenance"`
	SourceTier SourceTier     `json:"selected_source_tier"`
}
