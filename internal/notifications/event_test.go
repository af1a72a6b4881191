package notifications

import (
	"errors"
	"testing"
	"time"
)

func TestDecode_WellFormed(t *testing.T) {
	raw := []byte(`{
		"eventId": "e1",
		"microservice": "order-service",
		"action": "STATUS_CHANGED",
		"entityType": "ORDER",
		"entityId": "42",
		"message": "shipped",
		"eventTimestamp": "2025-03-01T10:30:00Z",
		"data": {"status": "SHIPPED"},
		"severity": "WARNING"
	}`)

	ev, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if ev.EventID != "e1" {
		t.Errorf("expected eventId e1, got %s", ev.EventID)
	}
	if ev.EntityType != EntityOrder {
		t.Errorf("expected entityType ORDER, got %s", ev.EntityType)
	}
	if ev.Severity != "WARNING" {
		t.Errorf("expected severity WARNING, got %s", ev.Severity)
	}
	want := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	if !ev.Timestamp.Equal(want) {
		t.Errorf("expected timestamp %v, got %v", want, ev.Timestamp)
	}
	if ev.TimestampSubstituted {
		t.Error("valid timestamp must not be flagged as substituted")
	}
	if ev.Data["status"] != "SHIPPED" {
		t.Errorf("expected data.status SHIPPED, got %v", ev.Data["status"])
	}
}

func TestDecode_Defaults(t *testing.T) {
	raw := []byte(`{"eventId":"e2","action":"CREATED","entityType":"COURIER","entityId":"7","message":"new courier"}`)

	ev, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if ev.Severity != SeverityInfo {
		t.Errorf("expected default severity INFO, got %s", ev.Severity)
	}
	if ev.Data == nil || len(ev.Data) != 0 {
		t.Errorf("expected empty data map, got %v", ev.Data)
	}
}

func TestDecode_MissingTimestampIsSubstituted(t *testing.T) {
	raw := []byte(`{"eventId":"e3","action":"CREATED","entityType":"ORDER","entityId":"1"}`)

	before := time.Now().UTC()
	ev, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if !ev.TimestampSubstituted {
		t.Error("expected substitution flag for missing timestamp")
	}
	if ev.Timestamp.Before(before) || ev.Timestamp.After(time.Now().UTC()) {
		t.Errorf("substituted timestamp %v not within ingestion window", ev.Timestamp)
	}
}

func TestDecode_InvalidTimestampIsSubstituted(t *testing.T) {
	raw := []byte(`{"eventId":"e4","action":"CREATED","entityType":"ORDER","entityId":"1","eventTimestamp":"yesterday"}`)

	ev, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !ev.TimestampSubstituted {
		t.Error("expected substitution flag for unparsable timestamp")
	}
	if ev.Timestamp.IsZero() {
		t.Error("expected a non-zero substituted timestamp")
	}
}

func TestDecode_MissingRequiredFields(t *testing.T) {
	cases := map[string]string{
		"eventId":    `{"action":"A","entityType":"ORDER","entityId":"1"}`,
		"entityType": `{"eventId":"e","action":"A","entityId":"1"}`,
		"entityId":   `{"eventId":"e","action":"A","entityType":"ORDER"}`,
		"action":     `{"eventId":"e","entityType":"ORDER","entityId":"1"}`,
	}

	for missing, raw := range cases {
		_, err := Decode([]byte(raw))
		if err == nil {
			t.Errorf("expected error with missing %s", missing)
			continue
		}
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Errorf("missing %s: expected *DecodeError, got %T", missing, err)
		}
	}
}

func TestDecode_MalformedPayload(t *testing.T) {
	_, err := Decode([]byte("not json"))
	if err == nil {
		t.Fatal("expected error for malformed payload")
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
}
