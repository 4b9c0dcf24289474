// Package whitelist holds the closed set of field names a selective read may
// return. A Policy is built once at startup and shared read-only.
package whitelist

import "strings"

// Policy is an immutable, ordered list of field names.
type Policy struct {
	names  []string
	fields []string
	index  map[string]struct{}
}

// New creates a policy from names. Duplicates are kept in Names but collapse
// to their first occurrence in Fields. An empty list is allowed.
func New(names ...string) *Policy {
	p := &Policy{
		names: append([]string(nil), names...),
		index: make(map[string]struct{}, len(names)),
	}
	for _, name := range names {
		if _, seen := p.index[name]; seen {
			continue
		}
		p.index[name] = struct{}{}
		p.fields = append(p.fields, name)
	}
	return p
}

// Contains reports whether name is whitelisted.
func (p *Policy) Contains(name string) bool {
	_, ok := p.index[name]
	return ok
}

// Names returns the declared list verbatim.
func (p *Policy) Names() []string {
	return append([]string(nil), p.names...)
}

// Fields returns the deduplicated fetch list in declaration order.
func (p *Policy) Fields() []string {
	return append([]string(nil), p.fields...)
}

// Len returns the number of distinct field names.
func (p *Policy) Len() int {
	return len(p.fields)
}

// String formats the deduplicated fields, not the declared names.
func (p *Policy) String() string {
	return "[" + strings.Join(p.fields, ", ") + "]"
}
