// Package daemon assembles and runs the relay process.
package daemon
