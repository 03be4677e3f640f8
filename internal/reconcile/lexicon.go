// Package reconcile implements the provenance and reconciliation engine:
// noise classification of candidate names, article cutoff eligibility,
// per-row provenance derivation, canonical representative selection, and
// the exclusion-reason gate for list-style feeds.
package reconcile

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Lexicon is the immutable word data behind the name classifier. It is
// built once at startup and passed into NewClassifier; the classifier
// never mutates it.
type Lexicon struct {
	// ExactNoise lists tokens that are noise when a name (or a
	// postposition-stripped variant of it) matches exactly: survey
	// jargon, party names, region words, frame labels.
	ExactNoise []string `yaml:"exact_noise"`

	// SubstringNoise lists fragments that mark a name as noise when
	// contained anywhere in it.
	SubstringNoise []string `yaml:"substring_noise"`

	// PostpositionSuffixes are single-syllable case/topic markers
	// stripped from the tail of a token to build match variants.
	PostpositionSuffixes []string `yaml:"postposition_suffixes"`

	// FragmentEndings are multi-syllable grammatical endings that betray
	// a mid-sentence extraction rather than a bare name.
	FragmentEndings []string `yaml:"fragment_endings"`
}

// DefaultLexicon returns the curated production lexicon.
func DefaultLexicon() Lexicon {
	return Lexicon{
		ExactNoise: []string{
			"오차는", "응답률은", "지지율은",
			"오차범위", "표본오차", "응답률",
			"조사기관", "여론조사", "지지율",
			"민주", "민주당", "더불어민주당",
			"국힘", "국민의힘",
			"차이", "같은", "외",
			"지지", "지지도",
			"재정자립도", "적합도", "선호도",
			"인지도", "호감도", "비호감도",
			"국정안정론", "국정견제론",
			"정권교체", "정권재창출", "정권심판", "정권지원",
			"긍정평가", "부정평가",
			"양자대결", "다자대결", "가상대결",
			"전라", "경상", "충청",
		},
		SubstringNoise: []string{
			"오차", "오차범위", "표본오차", "응답률",
			"조사기관", "여론조사",
			"지지율", "지지도", "지지",
			"재정자립", "적합도", "선호도",
			"안정론", "견제론", "정권",
			"최고치", "최저치", "대결",
			"긍정평가", "부정평가",
			"더불어민주당", "국민의힘",
			"전라", "경상", "충청",
		},
		PostpositionSuffixes: []string{
			"은", "는", "이", "가", "을", "를",
			"와", "과", "의", "도", "만", "로", "에",
		},
		FragmentEndings: []string{
			"에서", "으로",
		},
	}
}

// lexiconOverlay is the YAML shape of an optional overlay file: extra
// tokens appended to the defaults, never replacing them.
type lexiconOverlay struct {
	ExtraExactNoise     []string `yaml:"extra_exact_noise"`
	ExtraSubstringNoise []string `yaml:"extra_substring_noise"`
}

// LoadLexicon returns the default lexicon, extended by the overlay file
// at path when one is configured.
func LoadLexicon(path string) (Lexicon, error) {
	lex := DefaultLexicon()
	if path == "" {
		return lex, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, eris.Wrapf(err, "reconcile: read lexicon %s", path)
	}

	var overlay lexiconOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return Lexicon{}, eris.Wrapf(err, "reconcile: parse lexicon %s", path)
	}

	lex.ExactNoise = append(lex.ExactNoise, overlay.ExtraExactNoise...)
	lex.SubstringNoise = append(lex.SubstringNoise, overlay.ExtraSubstringNoise...)
	return lex, nil
}
