// Package language normalizes client language hints for the worker.
package language
