// Package session stores user sessions as hash records.
//
// A session is one record under <namespace>:sessions:<id> with three
// metadata fields and one sessionAttr:<name> field per attribute. Sessions
// are loaded with a single Entries call, so when the repository sits on a
// selective store only whitelisted attributes come back. A missing
// attribute is simply absent.
package session

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Session is an in-memory session. Changes are tracked and written by
// Repository.Save. A Session is not safe for concurrent use.
type Session struct {
	id                  string
	creationTime        time.Time
	lastAccessedTime    time.Time
	maxInactiveInterval time.Duration
	attrs               map[string]json.RawMessage

	// delta holds encoded fields to write; a nil value marks a removal.
	delta map[string][]byte
	isNew bool
}

func newSession(id string, now time.Time, maxInactive time.Duration) *Session {
	s := &Session{
		id:    id,
		attrs: make(map[string]json.RawMessage),
		delta: make(map[string][]byte),
		isNew: true,
	}
	now = now.Truncate(time.Millisecond)
	s.setCreationTime(now)
	s.SetLastAccessedTime(now)
	s.SetMaxInactiveInterval(maxInactive)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) CreationTime() time.Time { return s.creationTime }

func (s *Session) LastAccessedTime() time.Time { return s.lastAccessedTime }

func (s *Session) MaxInactiveInterval() time.Duration { return s.maxInactiveInterval }

// IsNew reports whether the session has never been saved.
func (s *Session) IsNew() bool { return s.isNew }

func (s *Session) setCreationTime(t time.Time) {
	s.creationTime = t
	s.delta[creationTimeField] = encodeMillis(t)
}

// SetLastAccessedTime records an access at t.
func (s *Session) SetLastAccessedTime(t time.Time) {
	s.lastAccessedTime = t.Truncate(time.Millisecond)
	s.delta[lastAccessedTimeField] = encodeMillis(s.lastAccessedTime)
}

// SetMaxInactiveInterval sets the idle timeout, truncated to seconds.
// A non-positive interval never expires.
func (s *Session) SetMaxInactiveInterval(d time.Duration) {
	s.maxInactiveInterval = d.Truncate(time.Second)
	s.delta[maxInactiveIntervalField] = encodeSeconds(s.maxInactiveInterval)
}

// IsExpired reports whether the session has been idle for longer than its
// max inactive interval. Sessions without a known access time never expire
// here; the record TTL still removes them.
func (s *Session) IsExpired(now time.Time) bool {
	if s.maxInactiveInterval <= 0 || s.lastAccessedTime.IsZero() {
		return false
	}
	return !now.Before(s.lastAccessedTime.Add(s.maxInactiveInterval))
}

// Attribute decodes the named attribute into dst and reports whether it
// was present.
func (s *Session) Attribute(name string, dst any) (bool, error) {
	raw, ok := s.attrs[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode attribute %q: %w", name, err)
	}
	return true, nil
}

// SetAttribute stores v as JSON. A nil v removes the attribute.
func (s *Session) SetAttribute(name string, v any) error {
	if v == nil {
		s.RemoveAttribute(name)
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode attribute %q: %w", name, err)
	}
	s.attrs[name] = raw
	s.delta[AttrPrefix+name] = raw
	return nil
}

func (s *Session) RemoveAttribute(name string) {
	delete(s.attrs, name)
	s.delta[AttrPrefix+name] = nil
}

// AttributeNames lists attribute names in ascending order.
func (s *Session) AttributeNames() []string {
	names := make([]string, 0, len(s.attrs))
	for name := range s.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Attributes returns the raw JSON of every attribute.
func (s *Session) Attributes() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(s.attrs))
	for k, v := range s.attrs {
		out[k] = v
	}
	return out
}

// changes splits the pending delta into fields to write and fields to drop.
func (s *Session) changes() (set map[string][]byte, removed []string) {
	set = make(map[string][]byte, len(s.delta))
	for field, value := range s.delta {
		if value == nil {
			removed = append(removed, field)
			continue
		}
		set[field] = value
	}
	sort.Strings(removed)
	return set, removed
}

func (s *Session) clearChanges() {
	s.delta = make(map[string][]byte)
	s.isNew = false
}
