package selective

import (
	"github.com/roach88/hashview/internal/hashstore"
	"github.com/roach88/hashview/internal/whitelist"
)

// Store is a hashstore.Store whose handles are Records.
type Store struct {
	hashstore.Store

	policy *whitelist.Policy
	fields []string
}

var _ hashstore.Store = (*Store)(nil)

// NewStore wraps s. Every Record it returns shares policy.
func NewStore(s hashstore.Store, policy *whitelist.Policy) *Store {
	return &Store{Store: s, policy: policy, fields: policy.Fields()}
}

// Hash returns a fresh Record over the wrapped store's handle for key.
func (s *Store) Hash(key string) hashstore.Hash {
	return newRecord(s.Store.Hash(key), s.policy, s.fields)
}

// Unwrap returns the wrapped store.
func (s *Store) Unwrap() hashstore.Store {
	return s.Store
}

// Policy returns the whitelist shared by every Record.
func (s *Store) Policy() *whitelist.Policy {
	return s.policy
}
