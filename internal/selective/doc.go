// Package selective restricts bulk record reads to a whitelist.
//
// A Store wraps any hashstore.Store. Every handle it hands out is a Record
// whose Entries fetches only the whitelisted fields in one MGet. Everything
// else, on the store and on the handle, reaches the wrapped implementation
// untouched, including Watch transactions.
//
// Fields outside the whitelist are still written and stored; they just never
// come back through Entries. Absent fields are left out of the result map.
package selective
