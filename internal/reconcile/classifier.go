package reconcile

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// namePattern is the shape a legitimate bare candidate name must have
// after normalization: 2 to 8 Hangul syllables and nothing else.
var namePattern = regexp.MustCompile(`^[가-힣]{2,8}$`)

// Classifier decides whether a free-text option name is a genuine
// human/option label or scraping residue. It is a pure function of its
// lexicon: no I/O, no state, safe for concurrent use.
type Classifier struct {
	exact     map[string]bool
	substring []string
	suffixes  []string
	endings   []string
}

// NewClassifier compiles a lexicon into a classifier. Lexicon entries are
// normalized the same way candidate names are, so overlay files may carry
// raw text.
func NewClassifier(lex Lexicon) *Classifier {
	c := &Classifier{
		exact:    make(map[string]bool, len(lex.ExactNoise)),
		suffixes: append([]string(nil), lex.PostpositionSuffixes...),
		endings:  append([]string(nil), lex.FragmentEndings...),
	}
	for _, tok := range lex.ExactNoise {
		if n := NormalizeToken(tok); n != "" {
			c.exact[n] = true
		}
	}
	for _, tok := range lex.SubstringNoise {
		if n := NormalizeToken(tok); n != "" {
			c.substring = append(c.substring, n)
		}
	}
	return c
}

// NormalizeToken folds a raw option name to its canonical comparison
// form: NFC-composed, width-folded, lowercased, stripped of everything
// outside digits, ASCII letters, and Hangul syllables.
func NormalizeToken(raw string) string {
	folded := strings.ToLower(norm.NFC.String(width.Fold.String(raw)))

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 0xAC00 && r <= 0xD7A3: // Hangul syllables
			b.WriteRune(r)
		}
	}
	return b.String()
}

// variants returns the token plus every form obtained by stripping one
// trailing postposition, provided the remainder keeps more than one
// syllable. A bare two-syllable name is never reduced to a single one.
func (c *Classifier) variants(token string) []string {
	out := []string{token}
	for _, suffix := range c.suffixes {
		if !strings.HasSuffix(token, suffix) {
			continue
		}
		rest := strings.TrimSuffix(token, suffix)
		if utf8.RuneCountInString(rest) > 1 {
			out = append(out, rest)
		}
	}
	return out
}

// IsNoise reports whether name is scraping residue rather than a
// legitimate option label. Checks run in fixed order, first match wins.
func (c *Classifier) IsNoise(name string) bool {
	raw := width.Fold.String(name)
	token := NormalizeToken(raw)
	if token == "" {
		return true
	}

	variants := c.variants(token)

	for _, v := range variants {
		if c.exact[v] {
			return true
		}
	}

	for _, v := range variants {
		for _, frag := range c.substring {
			if strings.Contains(v, frag) {
				return true
			}
		}
		for _, ending := range c.endings {
			if strings.HasSuffix(v, ending) {
				return true
			}
		}
	}

	for _, r := range raw {
		if unicode.IsDigit(r) || r == '%' {
			return true
		}
	}

	return !namePattern.MatchString(token)
}
