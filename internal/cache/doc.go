// Package cache defines the durable URL → body table behind the read-through
// fetcher. Entries are keyed by the request URL verbatim and hold the raw
// response body exactly as received. The bbolt-backed store runs every lookup
// in its own read transaction and every write in its own write transaction,
// so cache hits never contend with the writer lock; snapshot isolation and
// write serialization come from bbolt itself.
package cache
