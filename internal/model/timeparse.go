package model

import (
	"strings"
	"time"
)

// KST is the timezone every instant in the engine is normalized to.
// A fixed zone avoids a runtime tzdata dependency; Korea has no DST.
var KST = time.FixedZone("KST", 9*60*60)

// timestampLayouts are tried in order. Naive layouts (no zone) are
// interpreted as KST, matching how upstream feeds report local times.
var timestampLayouts = []struct {
	layout string
	naive  bool
}{
	{layout: time.RFC3339Nano},
	{layout: time.RFC3339},
	{layout: time.RFC1123Z},
	{layout: time.RFC1123},
	{layout: time.RFC822Z},
	{layout: time.RFC822},
	{layout: "2006-01-02T15:04:05", naive: true},
	{layout: "2006-01-02 15:04:05", naive: true},
	{layout: "2006-01-02", naive: true},
}

// ParseInstant parses a best-effort timestamp string and normalizes it to
// KST. Unparseable or empty input degrades to nil, never an error.
func ParseInstant(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, l := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if l.naive {
			t, err = time.ParseInLocation(l.layout, raw, KST)
		} else {
			t, err = time.Parse(l.layout, raw)
		}
		if err == nil {
			kst := t.In(KST)
			return &kst
		}
	}
	return nil
}

// ParseDate parses a date-only string (or the date part of a timestamp)
// as a KST midnight instant. Degrades to nil on failure.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if i := strings.IndexByte(raw, 'T'); i > 0 {
		raw = raw[:i]
	}
	t, err := time.ParseInLocation("2006-01-02", raw, KST)
	if err != nil {
		return nil
	}
	kst := t.In(KST)
	return &kst
}
