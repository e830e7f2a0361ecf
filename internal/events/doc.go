// Package events carries task lifecycle notifications between components.
//
// The document service emits TaskSubmitted when a file is accepted, and
// workers emit TaskCompleted or TaskFailed once a job reaches its terminal
// state. Handlers subscribe through an EventEmitter without either side
// depending on the other.
package events
