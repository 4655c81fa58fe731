package scoring

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrUnparsedTimestamp marks a published value that no known layout accepts.
var ErrUnparsedTimestamp = errors.New("unparsed timestamp")

// StaleFallback is the age assigned to records whose timestamp cannot be parsed.
const StaleFallback = 24 * time.Hour

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"20060102150405",
	"20060102T150405Z",
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
}

// zoneOffsets covers the abbreviations feeds commonly emit. time.Parse gives an
// unknown abbreviation a zero offset, so these are applied afterwards.
var zoneOffsets = map[string]int{
	"EST":  -5 * 3600,
	"EDT":  -4 * 3600,
	"CST":  -6 * 3600,
	"CDT":  -5 * 3600,
	"MST":  -7 * 3600,
	"MDT":  -6 * 3600,
	"PST":  -8 * 3600,
	"PDT":  -7 * 3600,
	"AKST": -9 * 3600,
	"AKDT": -8 * 3600,
	"HST":  -10 * 3600,
	"BST":  1 * 3600,
	"CET":  1 * 3600,
	"CEST": 2 * 3600,
	"EET":  2 * 3600,
	"EEST": 3 * 3600,
	"IST":  5*3600 + 1800,
	"JST":  9 * 3600,
	"KST":  9 * 3600,
	"AEST": 10 * 3600,
	"AEDT": 11 * 3600,
}

func withKnownZone(t time.Time) time.Time {
	name, offset := t.Zone()
	if offset != 0 {
		return t
	}
	known, ok := zoneOffsets[name]
	if !ok {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(),
		time.FixedZone(name, known))
}

// ParseTimestamp accepts the timestamp shapes feeds emit. Values without a zone are UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrUnparsedTimestamp)
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return withKnownZone(t).UTC(), nil
		}
	}
	if t, err := dateparse.ParseIn(value, time.UTC); err == nil {
		return withKnownZone(t).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsedTimestamp, value)
}

// ResolvePublished turns a raw published value into a UTC time. A missing value
// counts as published now; an unparseable one falls back to now minus StaleFallback
// and reports ErrUnparsedTimestamp alongside the usable fallback.
func ResolvePublished(raw string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return now.UTC(), nil
	}
	t, err := ParseTimestamp(raw)
	if err != nil {
		return now.Add(-StaleFallback).UTC(), err
	}
	return t, nil
}

// FormatStored renders the persisted published_utc form.
func FormatStored(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseStored reads a persisted published_utc value.
func ParseStored(value string) (time.Time, error) {
	return ParseTimestamp(value)
}
