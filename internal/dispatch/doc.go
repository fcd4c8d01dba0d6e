// Package dispatch delivers terminal job updates to live subscribers.
//
// It owns the ordering between room joins and update fan-out so that a
// client connecting around the moment a result arrives receives it
// exactly through one of the two paths: live push or stored replay.
package dispatch
