// Package hashstore defines the contract of a field-addressable key-value store.
//
// A store maps top-level keys to records. A record is a mapping of field name
// to opaque byte value (a "hash"). Callers acquire a Hash handle bound to one
// key and issue field-level operations through it.
//
// # Semantics shared by every backend
//
//   - A record exists while it holds at least one field. Deleting the last
//     field deletes the record.
//   - A record may carry an absolute expiry. Past that instant it behaves as
//     if it did not exist.
//   - MGet results are positionally aligned with the requested field names.
//     A field that is not set is reported as an Optional with Present=false,
//     which is distinct from a present empty value.
//   - Every mutation stamps the record with a value from a store-wide
//     logical clock. Watch compares these versions to implement optimistic
//     transactions (WATCH/MULTI/EXEC).
//
// Backends live in sub-packages (sqlitestore, boltstore). The storetest
// package holds the conformance suite both run against.
package hashstore
