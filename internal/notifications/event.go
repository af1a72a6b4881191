package notifications

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entity types with a dedicated realtime topic. Events for any other entity
// type are still persisted and visible on the supervisory channel.
const (
	EntityOrder   = "ORDER"
	EntityCourier = "COURIER"
)

// SeverityInfo is assumed when a producer omits the severity field.
const SeverityInfo = "INFO"

// Event is the canonical domain event flowing through the pipeline. It is
// constructed once per inbound message by Decode and immutable afterwards.
type Event struct {
	EventID      string                 `json:"eventId"`
	Microservice string                 `json:"microservice"`
	Action       string                 `json:"action"`
	EntityType   string                 `json:"entityType"`
	EntityID     string                 `json:"entityId"`
	Message      string                 `json:"message"`
	Timestamp    time.Time              `json:"eventTimestamp"`
	Data         map[string]interface{} `json:"data"`
	Severity     string                 `json:"severity"`

	// TimestampSubstituted is true when the inbound message carried a
	// missing or unparsable eventTimestamp and ingestion time was used
	// instead. Surfaced so the substitution is never silent.
	TimestampSubstituted bool `json:"-"`
}

// DecodeError marks an inbound message as malformed. The consumer treats it
// as a poison message: nacked without requeue, never retried.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode event: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode event: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// envelope mirrors the JSON the producers publish. eventTimestamp stays a
// string here so an unparsable value can fall back instead of failing the
// whole message.
type envelope struct {
	EventID      string                 `json:"eventId"`
	Microservice string                 `json:"microservice"`
	Action       string                 `json:"action"`
	EntityType   string                 `json:"entityType"`
	EntityID     string                 `json:"entityId"`
	Message      string                 `json:"message"`
	Timestamp    string                 `json:"eventTimestamp"`
	Data         map[string]interface{} `json:"data"`
	Severity     string                 `json:"severity"`
}

// Decode validates and normalizes a raw broker payload into an Event.
// eventId, entityType, entityId and action are required; severity defaults
// to INFO and data to an empty map. A missing or unparsable eventTimestamp
// is substituted with the current time and flagged on the event.
func Decode(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, &DecodeError{Reason: "malformed payload", Err: err}
	}

	switch {
	case env.EventID == "":
		return Event{}, &DecodeError{Reason: "missing eventId"}
	case env.EntityType == "":
		return Event{}, &DecodeError{Reason: "missing entityType"}
	case env.EntityID == "":
		return Event{}, &DecodeError{Reason: "missing entityId"}
	case env.Action == "":
		return Event{}, &DecodeError{Reason: "missing action"}
	}

	ev := Event{
		EventID:      env.EventID,
		Microservice: env.Microservice,
		Action:       env.Action,
		EntityType:   env.EntityType,
		EntityID:     env.EntityID,
		Message:      env.Message,
		Data:         env.Data,
		Severity:     env.Severity,
	}

	if ev.Severity == "" {
		ev.Severity = SeverityInfo
	}
	if ev.Data == nil {
		ev.Data = map[string]interface{}{}
	}

	ts, err := time.Parse(time.RFC3339, env.Timestamp)
	if env.Timestamp == "" || err != nil {
		ev.Timestamp = time.Now().UTC()
		ev.TimestampSubstituted = true
	} else {
		ev.Timestamp = ts
	}

	return ev, nil
}
