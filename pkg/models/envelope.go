package models

import "time"

// EventEnvelope is the wire shape published to the optional Kafka event
// mirror. ID carries the event identity string, so downstream consumers can
// dedup on the same key this service does.
type EventEnvelope struct {
	ID        string                 `json:"id"`
	Source    string                 `json:"source"`
	EventType string                 `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}
