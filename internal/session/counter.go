package session

import (
	"time"

	"github.com/google/uuid"
)

// Attributes written by Increment.
const (
	IncrementAttr   = "increment"
	UpdatedDateAttr = "updatedDate"
	UUIDAttr        = "uuid"
)

// Counter is the result of one Increment.
type Counter struct {
	Increment   int64  `json:"increment"`
	UpdatedDate string `json:"updatedDate"`
}

// Increment bumps the session's counter attribute and stamps the date. It
// also writes a fresh uuid attribute on every call.
func Increment(s *Session, now time.Time) (Counter, error) {
	var n int64
	if _, err := s.Attribute(IncrementAttr, &n); err != nil {
		return Counter{}, err
	}
	c := Counter{Increment: n + 1, UpdatedDate: now.Format(time.DateOnly)}

	if err := s.SetAttribute(IncrementAttr, c.Increment); err != nil {
		return Counter{}, err
	}
	if err := s.SetAttribute(UpdatedDateAttr, c.UpdatedDate); err != nil {
		return Counter{}, err
	}
	if err := s.SetAttribute(UUIDAttr, uuid.NewString()); err != nil {
		return Counter{}, err
	}
	return c, nil
}
