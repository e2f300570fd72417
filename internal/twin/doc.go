// Package twin defines the device state model and its merge algebra.
//
// A device's state is a set of independently optional element slots
// (button, battery, sensor). Devices send either partial updates, which
// merge slot-wise into the last known state, or full updates, which
// replace it. The merge is last-writer-wins per slot and therefore
// order-sensitive: replaying deltas in a different order can produce a
// different state.
//
// All types here are plain values with no locking; concurrency is the
// dispatch package's concern.
package twin
