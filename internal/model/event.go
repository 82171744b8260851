package model

import "time"

// LifecycleEvent is published to the event stream whenever an
// application changes status.
// This shall match the message model consumed by downstream services.
type LifecycleEvent struct {
	EventID       string    `json:"event_id"`
	ApplicationID string    `json:"application_id"`
	OldStatus     Status    `json:"old_status"`
	NewStatus     Status    `json:"new_status"`
	Actor         string    `json:"actor,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
