// Package boxed provides the three ownership wrappers used to hand engine
// objects to callers.
//
//   - Cell: one owner. The value can be borrowed mutably or taken exactly
//     once, after which every access fails with an IllegalState error.
//   - Shared: reference counted handles over one mutex-guarded value. The
//     lock is held for a single callback only. A callback that panics
//     poisons the box, and every later Lock reports LockPoisoned.
//   - Arc: reference counted handles over a value that is safe for
//     concurrent reads. It has no lock.
//
// Release is idempotent per handle. The value's release function runs once,
// when the last handle goes. A handle dropped without Release is released by
// a runtime cleanup after it is garbage collected.
package boxed
