package reconcile

import (
	"time"

	"github.com/rotisserie/eris"
)

// Options configure an engine assembly. Zero values fall back to the
// built-in defaults of each component.
type Options struct {
	Cutoff           time.Time
	CycleYear        int
	AggregatorLabels []string
	LexiconFile      string
	Now              func() time.Time
}

// Engine bundles the five components wired over shared policy state.
type Engine struct {
	Classifier *Classifier
	Filter     *CutoffFilter
	Deriver    *Deriver
	Selector   *Selector
	Gate       *Gate
}

// NewEngine assembles the engine from options.
func NewEngine(opts Options) (*Engine, error) {
	lex := DefaultLexicon()
	if opts.LexiconFile != "" {
		loaded, err := LoadLexicon(opts.LexiconFile)
		if err != nil {
			return nil, eris.Wrap(err, "reconcile: load lexicon")
		}
		lex = loaded
	}

	cycleYear := opts.CycleYear
	if cycleYear == 0 {
		cycleYear = time.Now().Year()
	}

	classifier := NewClassifier(lex)
	filter := NewCutoffFilter(opts.Cutoff)
	deriver := NewDeriver(opts.Now)

	var pred AggregatorPredicate
	if len(opts.AggregatorLabels) > 0 {
		pred = NewAggregatorPredicate(opts.AggregatorLabels)
	}

	return &Engine{
		Classifier: classifier,
		Filter:     filter,
		Deriver:    deriver,
		Selector:   NewSelector(filter, classifier, deriver, pred),
		Gate:       NewGate(classifier, filter, cycleYear),
	}, nil
}
