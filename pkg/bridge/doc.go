// Package bridge runs engine operations either on the caller's goroutine
// (Run) or on a bounded worker pool (Submit).
//
// Each operation is written once as an Op and both entry points are derived
// from it, so the blocking and deferred forms cannot drift apart. Deferred
// operations retain every handle they use before they are handed to a
// worker and release them after completion. Completion is delivered through
// a Promise. Callbacks registered with Then run one at a time on the pool's
// dispatcher goroutine.
//
// Dispatched operations cannot be cancelled. A caller that loses interest
// stops waiting and discards the result.
package bridge
