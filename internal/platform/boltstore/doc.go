// Package boltstore implements store.KeyValueStore on a single bbolt file for
// single-node deployments that run without a Redis server.
//
// Values carry an expiry header and are hidden once expired; a background
// sweeper removes them. Lists are nested buckets keyed by a monotonic
// sequence, so iteration order is push order. Blocking pops wait on an
// in-process signal, which is sufficient because a bbolt file is only ever
// opened by one process.
package boltstore
