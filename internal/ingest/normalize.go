// Package ingest decodes poll extraction payloads and writes them
// through the store under a tracked run.
package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

// NormalizedValue is the numeric reading of a raw percentage string.
type NormalizedValue struct {
	Min     *float64
	Max     *float64
	Mid     *float64
	Missing bool
}

var (
	singleRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*%?\s*$`)
	rangeRe  = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*[~\-]\s*(\d+(?:\.\d+)?)\s*%?\s*$`)
	bandRe   = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*%?\s*대\s*$`)
)

// missingMarkers are raw values that mean "no figure reported".
var missingMarkers = map[string]bool{
	"언급 없음": true,
	"미공개":   true,
	"N/A":   true,
	"-":     true,
}

// NormalizePercentage parses a raw percentage string: a single value
// ("45%"), a range ("40~45%"), or a decade band ("40%대", read as
// 40 to 49). Anything unparseable is treated as missing.
func NormalizePercentage(raw *string) NormalizedValue {
	if raw == nil {
		return NormalizedValue{Missing: true}
	}
	s := strings.TrimSpace(*raw)
	if s == "" || missingMarkers[s] {
		return NormalizedValue{Missing: true}
	}

	if m := rangeRe.FindStringSubmatch(s); m != nil {
		lo, _ := strconv.ParseFloat(m[1], 64)
		hi, _ := strconv.ParseFloat(m[2], 64)
		if lo > hi {
			lo, hi = hi, lo
		}
		mid := (lo + hi) / 2
		return NormalizedValue{Min: &lo, Max: &hi, Mid: &mid}
	}

	if m := bandRe.FindStringSubmatch(s); m != nil {
		lo, _ := strconv.ParseFloat(m[1], 64)
		hi := lo + 9
		mid := (lo + hi) / 2
		return NormalizedValue{Min: &lo, Max: &hi, Mid: &mid}
	}

	if m := singleRe.FindStringSubmatch(s); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return NormalizedValue{Min: &v, Max: &v, Mid: &v}
	}

	return NormalizedValue{Missing: true}
}
