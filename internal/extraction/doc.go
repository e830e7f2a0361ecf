// Package extraction turns PDF bytes into structured text for the worker
// pool. Chain implements task.Strategy: it runs a primary backend and, when
// that fails, a fallback backend, reporting progress to the task as it goes.
package extraction
