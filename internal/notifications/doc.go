// Package notifications pushes job outcome alerts to an ntfy topic.
package notifications
