package models

import (
	"fmt"
	"time"
)

// StoreTimeLayout is the normalized timestamp representation used in
// the store and in rendered "till" fields.
const StoreTimeLayout = "2006-01-02 15:04:05"

// PayloadTimeLayout is the wire format of timestamps in action
// payloads: ISO-8601 with fractional seconds and a literal UTC marker.
const PayloadTimeLayout = "2006-01-02T15:04:05.000Z"

// Epoch is the sentinel "not set" value for expiry timestamps.
var Epoch = time.Date(1970, 1, 1, 0, 0, 1, 0, time.UTC)

// ParseActionTS parses a payload timestamp and normalizes it to UTC.
func ParseActionTS(s string) (time.Time, error) {
	t, err := time.Parse(PayloadTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse action timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FormatTS renders a timestamp in the normalized store representation.
func FormatTS(t time.Time) string {
	return t.UTC().Format(StoreTimeLayout)
}
