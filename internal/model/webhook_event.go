package model

import "time"

// WebhookEvent is a processor event persisted on first delivery so replays can be spotted.
type WebhookEvent struct {
	ProcessorEventID string    `db:"processor_event_id"`
	EventType        string    `db:"event_type"`
	IntentID         string    `db:"intent_id"`
	ReceivedAt       time.Time `db:"received_at"`
}
