// Package gateway ties uploads, the job store, object storage, and the
// worker client together: it creates job records, moves audio into
// storage, and hands jobs to the worker with failure reconciliation.
package gateway
