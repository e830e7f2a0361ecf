// Package service contains the application use cases for document
// submission and task inspection. It coordinates the task store and job
// queue so the HTTP layer and the maintenance CLI share one set of rules:
// admission control, cleanup of tasks whose enqueue failed, and the mapping
// of lower-level failures onto a small set of sentinel errors.
//
// Error handling:
//   - Expected conditions are returned as sentinel errors (ErrTaskNotFound,
//     ErrQueueFull, ErrResultNotReady, ErrResultMissing).
//   - Everything else is wrapped in a *ServiceError naming the operation.
//   - Callers use errors.Is/errors.As; the API layer maps sentinels to
//     status codes.
package service
