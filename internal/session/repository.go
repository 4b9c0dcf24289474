package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roach88/hashview/internal/hashstore"
)

// DefaultMaxInactiveInterval is the idle timeout of new sessions.
const DefaultMaxInactiveInterval = 30 * time.Minute

// expiryGrace is added to the idle timeout to get the record TTL.
const expiryGrace = 5 * time.Minute

var (
	// ErrNotFound is returned for a session that does not exist or expired.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidated is returned when saving a loaded session whose record
	// was deleted in the meantime.
	ErrInvalidated = errors.New("session was invalidated")
)

// IDGenerator produces session ids.
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator produces random (version 4) uuids.
type UUIDGenerator struct{}

func (UUIDGenerator) Generate() string {
	return uuid.NewString()
}

// Repository persists sessions in a hashstore.Store.
type Repository struct {
	store       hashstore.Store
	namespace   string
	maxInactive time.Duration
	clock       hashstore.Clock
	ids         IDGenerator
	logger      *zap.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithNamespace sets the key prefix. The default is "hashview".
func WithNamespace(ns string) Option {
	return func(r *Repository) { r.namespace = ns }
}

// WithMaxInactiveInterval sets the idle timeout of new sessions.
func WithMaxInactiveInterval(d time.Duration) Option {
	return func(r *Repository) { r.maxInactive = d }
}

func WithClock(c hashstore.Clock) Option {
	return func(r *Repository) { r.clock = c }
}

// WithIDGenerator replaces the random uuid generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Repository) { r.ids = g }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// NewRepository creates a repository over store. Wrap store in a
// selective.Store to limit which attributes are loaded.
func NewRepository(store hashstore.Store, opts ...Option) *Repository {
	r := &Repository{
		store:       store,
		namespace:   "hashview",
		maxInactive: DefaultMaxInactiveInterval,
		clock:       hashstore.SystemClock{},
		ids:         UUIDGenerator{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key returns the record key of session id.
func (r *Repository) Key(id string) string {
	return r.namespace + ":sessions:" + id
}

// New creates an unsaved session with a fresh id.
func (r *Repository) New() *Session {
	return newSession(r.ids.Generate(), r.clock.Now(), r.maxInactive)
}

// Save writes the session's pending changes and refreshes its expiry in one
// optimistic transaction.
func (r *Repository) Save(ctx context.Context, s *Session) error {
	key := r.Key(s.id)
	set, removed := s.changes()

	err := r.store.Watch(ctx, func(tx *hashstore.Tx) error {
		if !s.isNew {
			n, err := r.store.Exists(ctx, key)
			if err != nil {
				return err
			}
			if n == 0 {
				return ErrInvalidated
			}
		}
		if len(set) > 0 {
			tx.SetAll(key, set)
		}
		if len(removed) > 0 {
			tx.Delete(key, removed...)
		}
		if s.maxInactiveInterval > 0 {
			tx.Expire(key, s.maxInactiveInterval+expiryGrace)
		} else {
			tx.Persist(key)
		}
		return nil
	}, key)
	if err != nil {
		return fmt.Errorf("save session %s: %w", s.id, err)
	}

	r.logger.Debug("Session saved",
		zap.String("id", s.id),
		zap.Int("set", len(set)),
		zap.Int("removed", len(removed)),
	)
	s.clearChanges()
	return nil
}

// FindByID loads a session. It returns ErrNotFound when the record has no
// readable fields or the session has expired; expired sessions are deleted.
func (r *Repository) FindByID(ctx context.Context, id string) (*Session, error) {
	key := r.Key(id)
	entries, err := r.store.Hash(key).Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}

	s, err := decode(id, entries, r.maxInactive)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if s.IsExpired(r.clock.Now()) {
		r.logger.Debug("Session expired", zap.String("id", id))
		if _, err := r.store.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("delete expired session %s: %w", id, err)
		}
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.store.Delete(ctx, r.Key(id)); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
