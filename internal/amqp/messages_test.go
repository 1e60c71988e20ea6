package amqp

import "testing"

func TestWorkLogSettledMessageRoundTrip(t *testing.T) {
	msg := NewWorkLogSettledMessage(42, 1)

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	parsed, err := WorkLogSettledMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if parsed.WorkLogID != 42 || parsed.PersonID != 1 {
		t.Fatalf("unexpected message: %+v", parsed)
	}
	if parsed.Timestamp.IsZero() {
		t.Fatal("timestamp should survive the round trip")
	}
}

func TestWorkLogSettledMessageFromJSONInvalid(t *testing.T) {
	if _, err := WorkLogSettledMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed body")
	}
}
