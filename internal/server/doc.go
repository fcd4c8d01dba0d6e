// Package server exposes the relay HTTP API: uploads, presigned upload
// URLs, worker dispatch and callback, job status, and the websocket
// live channel that pushes finished results to subscribed clients.
package server
