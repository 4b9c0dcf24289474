package selective

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/hashview/internal/hashstore"
	"github.com/roach88/hashview/internal/whitelist"
)

// ErrMisaligned is returned when a multi-get answers with a different number
// of values than fields requested.
var ErrMisaligned = errors.New("multi-get result not aligned with request")

// Record is a hashstore.Hash whose Entries returns only whitelisted fields.
type Record struct {
	hashstore.Hash

	policy *whitelist.Policy
	fields []string
}

var _ hashstore.Hash = (*Record)(nil)

// NewRecord wraps h with policy.
func NewRecord(h hashstore.Hash, policy *whitelist.Policy) *Record {
	return newRecord(h, policy, policy.Fields())
}

func newRecord(h hashstore.Hash, policy *whitelist.Policy, fields []string) *Record {
	return &Record{Hash: h, policy: policy, fields: fields}
}

// Entries fetches the whitelisted fields and returns the ones that are set.
// The map is never nil. Its iteration order carries no meaning.
func (r *Record) Entries(ctx context.Context) (map[string][]byte, error) {
	out := make(map[string][]byte, len(r.fields))
	if len(r.fields) == 0 {
		return out, nil
	}

	values, err := r.Hash.MGet(ctx, r.fields...)
	if err != nil {
		return nil, err
	}
	if len(values) != len(r.fields) {
		return nil, fmt.Errorf("%w: key %q: asked for %d fields, got %d",
			ErrMisaligned, r.Hash.Key(), len(r.fields), len(values))
	}

	for i, v := range values {
		if v.Present {
			out[r.fields[i]] = v.Value
		}
	}
	return out, nil
}

// Unwrap returns the wrapped handle.
func (r *Record) Unwrap() hashstore.Hash {
	return r.Hash
}

// Policy returns the shared whitelist.
func (r *Record) Policy() *whitelist.Policy {
	return r.policy
}
