package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Field layout of a session record.
const (
	creationTimeField        = "creationTime"
	lastAccessedTimeField    = "lastAccessedTime"
	maxInactiveIntervalField = "maxInactiveInterval"

	// AttrPrefix prefixes the field of every session attribute.
	AttrPrefix = "sessionAttr:"
)

// AttrField returns the record field that holds attribute name.
func AttrField(name string) string {
	return AttrPrefix + name
}

func encodeMillis(t time.Time) []byte {
	return []byte(strconv.FormatInt(t.UnixMilli(), 10))
}

func encodeSeconds(d time.Duration) []byte {
	return []byte(strconv.FormatInt(int64(d/time.Second), 10))
}

// decode rebuilds a session from the fields of its record. Unknown fields
// are ignored.
func decode(id string, entries map[string][]byte, defaultMaxInactive time.Duration) (*Session, error) {
	s := &Session{
		id:                  id,
		maxInactiveInterval: defaultMaxInactive,
		attrs:               make(map[string]json.RawMessage),
		delta:               make(map[string][]byte),
	}

	for field, value := range entries {
		switch {
		case field == creationTimeField:
			ms, err := strconv.ParseInt(string(value), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", field, err)
			}
			s.creationTime = time.UnixMilli(ms).UTC()
		case field == lastAccessedTimeField:
			ms, err := strconv.ParseInt(string(value), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", field, err)
			}
			s.lastAccessedTime = time.UnixMilli(ms).UTC()
		case field == maxInactiveIntervalField:
			secs, err := strconv.ParseInt(string(value), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", field, err)
			}
			s.maxInactiveInterval = time.Duration(secs) * time.Second
		case strings.HasPrefix(field, AttrPrefix):
			name := strings.TrimPrefix(field, AttrPrefix)
			if !json.Valid(value) {
				return nil, fmt.Errorf("decode attribute %q: invalid JSON", name)
			}
			s.attrs[name] = append(json.RawMessage(nil), value...)
		}
	}
	return s, nil
}
