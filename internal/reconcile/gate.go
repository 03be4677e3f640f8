package reconcile

import (
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/poll-lab/pollboard/internal/model"
)

// Exclusion reason codes, in evaluation order. The first matching reason
// wins; a row failing none is kept.
const (
	ReasonInvalidCandidateName = "invalid_candidate_option_name"
	ReasonGenericOptionToken   = "generic_option_token"
	ReasonLegacyMatchupTitle   = "legacy_matchup_title"
	ReasonSurveyEndBeforeCut   = "survey_end_date_before_cutoff"
	ReasonPublishedBeforeCut   = "article_published_at_before_cutoff"
)

// placeholderNamePattern matches a masked candidate identity: a single
// Hangul surname syllable immediately followed by a Latin letter ("김A").
var placeholderNamePattern = regexp.MustCompile(`^[가-힣][A-Za-z]$`)

// legacyTitlePattern finds a year+election-type marker in a display
// title, bracketed or bare ("[2022 지방선거] ...", "2022 지방선거 ...").
var legacyTitlePattern = regexp.MustCompile(`\[?\s*((?:19|20)\d{2})\s*년?\s*(지방선거|총선|대선|재보궐|국회의원선거|대통령선거)`)

// Gate applies the per-row exclusion policy for feeds that show every
// surviving item rather than one representative per key.
type Gate struct {
	classifier *Classifier
	filter     *CutoffFilter
	cycleYear  int
}

// NewGate wires the gate. cycleYear is the electoral cycle currently being
// served; titles marked with an earlier cycle are excluded as legacy.
func NewGate(classifier *Classifier, filter *CutoffFilter, cycleYear int) *Gate {
	return &Gate{
		classifier: classifier,
		filter:     filter,
		cycleYear:  cycleYear,
	}
}

// ExcludedRow pairs a dropped row with the reason that dropped it.
type ExcludedRow struct {
	Row    model.Observation `json:"row"`
	Reason string            `json:"reason"`
}

// FilterStats summarizes one gate pass for observability.
type FilterStats struct {
	TotalCount    int            `json:"total_count"`
	KeptCount     int            `json:"kept_count"`
	ExcludedCount int            `json:"excluded_count"`
	ReasonCounts  map[string]int `json:"reason_counts"`
}

// GateResult is the full outcome of a gate pass: the surviving rows, the
// exclusion ledger, and the kept-row audience scope breakdown.
type GateResult struct {
	Kept           []model.Observation         `json:"kept"`
	Excluded       []ExcludedRow               `json:"excluded"`
	ReasonCounts   map[string]int              `json:"reason_counts"`
	Stats          FilterStats                 `json:"filter_stats"`
	ScopeBreakdown map[model.AudienceScope]int `json:"scope_breakdown"`
}

// Apply evaluates every row against the exclusion policy. The input is
// not mutated; repeated calls on the same rows yield identical results.
func (g *Gate) Apply(rows []model.Observation) GateResult {
	result := GateResult{
		Kept:         make([]model.Observation, 0, len(rows)),
		ReasonCounts: map[string]int{},
		ScopeBreakdown: map[model.AudienceScope]int{
			model.ScopeNational: 0,
			model.ScopeRegional: 0,
			model.ScopeLocal:    0,
			model.ScopeUnknown:  0,
		},
	}

	for i := range rows {
		row := rows[i]
		reason := g.ExclusionReason(&row)
		if reason == "" {
			result.Kept = append(result.Kept, row)
			result.ScopeBreakdown[row.Scope()]++
			continue
		}
		result.Excluded = append(result.Excluded, ExcludedRow{Row: row, Reason: reason})
		result.ReasonCounts[reason]++
	}

	result.Stats = FilterStats{
		TotalCount:    len(rows),
		KeptCount:     len(result.Kept),
		ExcludedCount: len(result.Excluded),
		ReasonCounts:  result.ReasonCounts,
	}

	zap.L().Debug("reconcile: gate pass",
		zap.Int("total", result.Stats.TotalCount),
		zap.Int("kept", result.Stats.KeptCount),
		zap.Int("excluded", result.Stats.ExcludedCount),
	)

	return result
}

// ExclusionReason returns the first matching exclusion reason for a row,
// or the empty string when the row should be kept.
func (g *Gate) ExclusionReason(row *model.Observation) string {
	name := NormalizeToken(row.OptionName)
	if placeholderNamePattern.MatchString(name) {
		return ReasonInvalidCandidateName
	}
	if g.classifier.IsNoise(row.OptionName) {
		return ReasonGenericOptionToken
	}
	if g.isLegacyTitle(row.Title) {
		return ReasonLegacyMatchupTitle
	}
	// Survey-end staleness blocks the feed regardless of channel; the
	// article-publication cutoff only binds article-tagged rows.
	if g.filter.SurveyEndBefore(row) {
		return ReasonSurveyEndBeforeCut
	}
	if row.HasArticleChannel() && g.filter.ArticlePublishedBefore(row) {
		return ReasonPublishedBeforeCut
	}
	return ""
}

// isLegacyTitle reports whether a display title carries a year+election
// marker for a cycle earlier than the one being served.
func (g *Gate) isLegacyTitle(title string) bool {
	m := legacyTitlePattern.FindStringSubmatch(title)
	if m == nil {
		return false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return false
	}
	return year < g.cycleYear
}
