// Package dispatch is the fan-out core of meshconsole.
//
// It keeps the latest merged state per device, broadcasts updates to
// per-device listener channels, and manages client sessions that attach
// over WebSocket. A new subscriber always receives the stored snapshot
// first and then live updates, with no gap and no duplicate in between.
package dispatch
