// Package store adapts the external shared key-value store to the
// operations the multiplexing core needs: identity uniqueness claims,
// secret-token mapping, atomic resource counters and game records.
//
// Three backends implement the KV interface: redis (the shared deployment
// target), sqlite (single-node) and memory (tests and development). The
// higher-level Accounts and Games types encode the key layout and the
// claim/release protocol and are backend-agnostic.
package store
