// Package engine implements the replication core of cync: the event
// classifier, the per-target replication dispatcher, and the branch
// reconciliation routine.
//
// One Engine instance owns all mutable state — the directory presence
// cache and the reconciliation state (last reconciled branch plus the
// suppression flag). There are no package-level singletons; shutdown
// is the caller closing the remote layer.
//
// The engine assumes a single dispatching goroutine: Dispatch and
// Reconcile must never run concurrently, and nothing here is locked.
// Mutations are best-effort and per-target independent — a failure on
// one target never aborts the fanout to its siblings, and nothing is
// retried beyond the next event touching the same path.
package engine
