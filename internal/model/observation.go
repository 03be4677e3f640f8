package model

import (
	"strings"
	"time"
)

// OptionType identifies the logical question an option row answers.
type OptionType string

const (
	OptionPartySupport     OptionType = "party_support"
	OptionJobApproval      OptionType = "president_job_approval"
	OptionElectionFrame    OptionType = "election_frame"
	OptionCandidate        OptionType = "candidate"
	OptionCandidateMatchup OptionType = "candidate_matchup"
)

// CandidateBearing reports whether rows of this option type carry a
// free-text candidate name (as opposed to a party or frame label).
func (t OptionType) CandidateBearing() bool {
	return t == OptionCandidate || t == OptionCandidateMatchup
}

// AudienceScope is the population an observation speaks for.
type AudienceScope string

const (
	ScopeNational AudienceScope = "national"
	ScopeRegional AudienceScope = "regional"
	ScopeLocal    AudienceScope = "local"
	ScopeUnknown  AudienceScope = "unknown"
)

// NormalizeScope maps a best-effort scope string onto a known scope,
// degrading everything unrecognized to ScopeUnknown.
func NormalizeScope(raw string) AudienceScope {
	switch AudienceScope(strings.ToLower(strings.TrimSpace(raw))) {
	case ScopeNational:
		return ScopeNational
	case ScopeRegional:
		return ScopeRegional
	case ScopeLocal:
		return ScopeLocal
	default:
		return ScopeUnknown
	}
}

// Channel tag values carried by observations.
const (
	ChannelOfficial = "nesdc"
	ChannelArticle  = "article"
)

// Observation is one raw poll option row as supplied by the storage
// collaborator. Field presence is best-effort: every nullable attribute
// is a pointer and the engine treats a nil as "absent", never as an error.
type Observation struct {
	RowID              int64          `json:"row_id"`
	OptionType         OptionType     `json:"option_type"`
	OptionName         string         `json:"option_name"`
	ValueMid           *float64       `json:"value_mid,omitempty"`
	Pollster           string         `json:"pollster,omitempty"`
	Title              string         `json:"title,omitempty"`
	SurveyEndDate      *time.Time     `json:"survey_end_date,omitempty"`
	AudienceScope      AudienceScope  `json:"audience_scope,omitempty"`
	AudienceRegionCode *string        `json:"audience_region_code,omitempty"`
	RegionCode         *string        `json:"region_code,omitempty"`
	OfficeType         string         `json:"office_type,omitempty"`
	SourceChannel      *string        `json:"source_channel,omitempty"`
	SourceChannels     []string       `json:"source_channels,omitempty"`
	OfficialReleaseAt  *time.Time     `json:"official_release_at,omitempty"`
	ArticlePublishedAt *time.Time     `json:"article_published_at,omitempty"`
	UpdatedAt          *time.Time     `json:"observation_updated_at,omitempty"`
	Verified           bool           `json:"verified"`
}

// Channels folds the legacy singular source_channel into the tag set and
// returns the combined set, lowercased and trimmed. The returned set is
// freshly allocated; callers may not see the row's own slice.
func (o *Observation) Channels() map[string]bool {
	out := make(map[string]bool, len(o.SourceChannels)+1)
	for _, c := range o.SourceChannels {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			out[c] = true
		}
	}
	if o.SourceChannel != nil {
		c := strings.ToLower(strings.TrimSpace(*o.SourceChannel))
		if c != "" {
			out[c] = true
		}
	}
	return out
}

// HasOfficialChannel reports whether any official filing tag is present.
func (o *Observation) HasOfficialChannel() bool {
	return o.Channels()[ChannelOfficial]
}

// HasArticleChannel reports whether the row carries an article tag.
// A row with no tags at all is treated as article-sourced: untagged data
// gets the most conservative provenance, not a free pass.
func (o *Observation) HasArticleChannel() bool {
	ch := o.Channels()
	if len(ch) == 0 {
		return true
	}
	return ch[ChannelArticle]
}

// Scope returns the audience scope, normalized.
func (o *Observation) Scope() AudienceScope {
	return NormalizeScope(string(o.AudienceScope))
}
