// Package store defines the key-value/list contract the job queue and task
// store are built on. Concrete drivers live under internal/platform; the core
// only depends on the operations declared here, so the backing store can be
// swapped without touching queue or worker logic.
package store
