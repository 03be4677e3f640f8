package reconcile

import (
	"context"
	"runtime"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/poll-lab/pollboard/internal/model"
)

// parallelGroupThreshold is the group count above which per-group ranking
// fans out across workers. Groups share no state; the final sort restores
// a deterministic order regardless of scheduling.
const parallelGroupThreshold = 32

// AggregatorPredicate reports whether a pollster label denotes a compiled
// article aggregate rather than a single named firm. The rule is policy,
// injected so it can evolve without touching the selector.
type AggregatorPredicate func(pollster string) bool

// DefaultAggregatorLabels are the known compiled-source pollster labels.
var DefaultAggregatorLabels = []string{
	"기사집계",
	"언론보도종합",
	"기사종합",
}

// NewAggregatorPredicate matches pollster names containing any of the
// given labels, compared in normalized form.
func NewAggregatorPredicate(labels []string) AggregatorPredicate {
	normalized := make([]string, 0, len(labels))
	for _, l := range labels {
		if n := NormalizeToken(l); n != "" {
			normalized = append(normalized, n)
		}
	}
	return func(pollster string) bool {
		p := NormalizeToken(pollster)
		if p == "" {
			return false
		}
		for _, l := range normalized {
			if strings.Contains(p, l) {
				return true
			}
		}
		return false
	}
}

// Selector turns many eligible rows into one canonical representative per
// logical question. It holds no per-call state and is safe for concurrent
// use across independent requests.
type Selector struct {
	filter       *CutoffFilter
	classifier   *Classifier
	deriver      *Deriver
	isAggregator AggregatorPredicate
}

// NewSelector wires the selector from its collaborators. A nil aggregator
// predicate falls back to the default label set.
func NewSelector(filter *CutoffFilter, classifier *Classifier, deriver *Deriver, isAggregator AggregatorPredicate) *Selector {
	if isAggregator == nil {
		isAggregator = NewAggregatorPredicate(DefaultAggregatorLabels)
	}
	return &Selector{
		filter:       filter,
		classifier:   classifier,
		deriver:      deriver,
		isAggregator: isAggregator,
	}
}

// rankedRow pairs a row with its derived provenance for comparison.
type rankedRow struct {
	row  model.Observation
	meta model.ProvenanceMeta
}

// Select filters, groups, and ranks rows, returning one CanonicalSelection
// per surviving key, sorted by option name in code-point order. Groups
// with no eligible rows are simply absent. The input slice is not mutated.
func (s *Selector) Select(ctx context.Context, rows []model.Observation) []model.CanonicalSelection {
	groups := make(map[model.SelectionKey][]rankedRow)
	var keys []model.SelectionKey

	dropped := 0
	for i := range rows {
		row := rows[i]
		if !s.filter.IsEligible(&row) {
			dropped++
			continue
		}
		if row.OptionType.CandidateBearing() && s.classifier.IsNoise(row.OptionName) {
			dropped++
			continue
		}

		key := model.SelectionKey{
			OptionType:    row.OptionType,
			OptionName:    row.OptionName,
			AudienceScope: row.Scope(),
		}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], rankedRow{row: row, meta: s.deriver.Derive(&row)})
	}

	selections := make([]model.CanonicalSelection, len(keys))
	if len(keys) >= parallelGroupThreshold {
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i, key := range keys {
			g.Go(func() error {
				selections[i] = s.pickWinner(key, groups[key])
				return nil
			})
		}
		_ = g.Wait() // workers return no errors
	} else {
		for i, key := range keys {
			selections[i] = s.pickWinner(key, groups[key])
		}
	}

	sort.Slice(selections, func(i, j int) bool {
		a, b := selections[i].Key, selections[j].Key
		if a.OptionName != b.OptionName {
			return a.OptionName < b.OptionName
		}
		if a.OptionType != b.OptionType {
			return a.OptionType < b.OptionType
		}
		return a.AudienceScope < b.AudienceScope
	})

	zap.L().Debug("reconcile: selection pass",
		zap.Int("rows_in", len(rows)),
		zap.Int("rows_dropped", dropped),
		zap.Int("groups", len(selections)),
	)

	return selections
}

// pickWinner ranks one group and labels the winning source tier.
func (s *Selector) pickWinner(key model.SelectionKey, group []rankedRow) model.CanonicalSelection {
	best := group[0]
	for _, cand := range group[1:] {
		if outranks(cand, best) {
			best = cand
		}
	}

	tier := model.TierArticle
	switch {
	case best.row.HasOfficialChannel():
		tier = model.TierOfficial
	case s.isAggregator(best.row.Pollster):
		tier = model.TierArticleAggregate
	}

	return model.CanonicalSelection{
		Key:        key,
		Winner:     best.row,
		Provenance: best.meta,
		SourceTier: tier,
	}
}

// outranks reports whether a beats b under the composite key: survey-end
// date, then freshness anchor (nils last on both), then source priority,
// then row identifier. Every comparison is strict, so the winner is
// independent of input order.
func outranks(a, b rankedRow) bool {
	if c := compareTimePtr(a.row.SurveyEndDate, b.row.SurveyEndDate); c != 0 {
		return c > 0
	}
	if c := compareTimePtr(a.meta.FreshnessAnchor, b.meta.FreshnessAnchor); c != 0 {
		return c > 0
	}
	if ar, br := a.meta.SourcePriority.Rank(), b.meta.SourcePriority.Rank(); ar != br {
		return ar > br
	}
	return a.row.RowID > b.row.RowID
}

// compareTimePtr orders optional instants: later beats earlier, and any
// instant beats nil.
func compareTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case a.After(*b):
		return 1
	case b.After(*a):
		return -1
	default:
		return 0
	}
}
