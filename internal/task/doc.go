// Package task manages document extraction jobs: the durable task records
// clients poll, the bounded FIFO queue that feeds workers, and the worker
// pool that drains it.
//
// All coordination between workers flows through the backing store. The
// queue's pop is the single point of job ownership, and each task has one
// writer at a time: the producer until enqueue, then the worker that popped
// its job.
//
// Delivery is at most once. A worker that dies after popping a job abandons
// it, and the task stays in StatusProcessing until its TTL lapses; nothing
// re-queues it.
package task
