package audit

import "time"

// AggregateConsentRequest is the outbox aggregate type for consent events.
const AggregateConsentRequest = "consent_request"

// Event records one consent state change. Contact values are stored as given:
// the outbox is the system of record for who consented to what.
type Event struct {
	Timestamp      time.Time `json:"timestamp"`
	Action         string    `json:"action"`
	ConsentID      string    `json:"consent_id"`
	RequesterType  string    `json:"requester_type"`
	RequesterValue string    `json:"requester_value"`
	TargetType     string    `json:"target_type"`
	TargetValue    string    `json:"target_value"`
	Scope          string    `json:"scope"`
	Status         string    `json:"status"`
	Reason         string    `json:"reason,omitempty"`
	ClientID       string    `json:"client_id,omitempty"`
	Device         string    `json:"device,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
}
