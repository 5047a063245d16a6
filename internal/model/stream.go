package model

import "time"

// StatusKind is the kind of a status stream event.
type StatusKind string

const (
	StatusKindConnected  StatusKind = "connected"
	StatusKindProcessing StatusKind = "processing"
	StatusKindCompleted  StatusKind = "completed"
	StatusKindError      StatusKind = "error"
)

// StatusEvent is a notification about the progress of the task generation job.
type StatusEvent struct {
	Kind      StatusKind
	Message   string
	Timestamp time.Time
}
