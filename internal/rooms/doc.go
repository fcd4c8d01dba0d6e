// Package rooms tracks live update subscribers grouped by job.
//
// Each job has a room; websocket connections join the room for the job
// they care about and receive every update published while joined.
// Membership is in-memory only and empties on restart.
package rooms
