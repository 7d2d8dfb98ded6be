package model

import "time"

type EventStatus string

const (
	EventStatusReceived  EventStatus = "received"
	EventStatusProcessed EventStatus = "processed"
	EventStatusFailed    EventStatus = "failed"
	EventStatusIgnored   EventStatus = "ignored"
)

// WebhookEvent is a normalized provider callback. LinkID and StatusToken are the
// first non-empty match over the alias lists in the normalizer; an event whose
// LinkID could not be resolved is always disposed as ignored.
type WebhookEvent struct {
	ID          string // ULID, assigned at ingestion
	LinkID      string // empty when no alias matched
	StatusToken string // raw provider status value, empty when absent
	Success     bool   // status token is in the success set
	Payload     []byte // raw body as delivered
	DedupHash   string // sha256 hex of Payload; (LinkID, DedupHash) is the dedup key
	ReceivedAt  time.Time
	Status      EventStatus
}
