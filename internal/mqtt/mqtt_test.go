package mqtt

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/sweeney/pin-toggler/internal/toggler"
)

func TestNewTopics(t *testing.T) {
	got := NewTopics("home/desk")
	want := Topics{Set: "home/desk/set", Events: "home/desk/events", System: "home/desk/system"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if def := NewTopics(""); def.Set != DefaultTopicBase+"/set" {
		t.Errorf("default set topic: got %q", def.Set)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		payload string
		want    Command
	}{
		{`{"pin":1,"rate":"MEDIUM"}`, Command{Pin: 1, Rate: toggler.Medium}},
		{`{"pin":0,"rate":"max"}`, Command{Pin: 0, Rate: toggler.Max}},
		{`{"rate":"4","pin":2}`, Command{Pin: 2, Rate: toggler.Fast}},
		{`{"pin":2,"rate":"OFF"}`, Command{Pin: 2, Rate: toggler.Off}},
	}
	for _, tt := range tests {
		got, err := ParseCommand([]byte(tt.payload))
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.payload, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.payload, got, tt.want)
		}
	}
}

func TestParseCommandErrors(t *testing.T) {
	tests := []struct {
		payload string
		want    error
	}{
		{`not json`, ErrBadCommand},
		{`{"rate":"SLOW"}`, ErrBadCommand},
		{`{"pin":1}`, ErrBadCommand},
		{`{"pin":1,"rate":"BLINKY"}`, toggler.ErrInvalidRate},
		{`{"pin":1,"rate":"3"}`, toggler.ErrInvalidRate},
	}
	for _, tt := range tests {
		if _, err := ParseCommand([]byte(tt.payload)); !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.payload, tt.want, err)
		}
	}
}

type recordingSetter struct {
	calls []Command
	err   error
}

func (r *recordingSetter) SetRate(index int, rate toggler.Rate) error {
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, Command{Pin: index, Rate: rate})
	return nil
}

func TestDispatch(t *testing.T) {
	s := &recordingSetter{}

	cmd, err := Dispatch(s, []byte(`{"pin":2,"rate":"FAST"}`))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	want := Command{Pin: 2, Rate: toggler.Fast}
	if cmd != want {
		t.Errorf("command: got %+v, want %+v", cmd, want)
	}
	if !reflect.DeepEqual(s.calls, []Command{want}) {
		t.Errorf("setter calls: got %+v", s.calls)
	}
}

func TestDispatchSetterError(t *testing.T) {
	s := &recordingSetter{err: toggler.ErrIndexOutOfRange}

	_, err := Dispatch(s, []byte(`{"pin":9,"rate":"SLOW"}`))
	if !errors.Is(err, toggler.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestDispatchBadPayloadSkipsSetter(t *testing.T) {
	s := &recordingSetter{}
	if _, err := Dispatch(s, []byte(`{}`)); err == nil {
		t.Fatal("expected error")
	}
	if len(s.calls) != 0 {
		t.Errorf("setter called for bad payload: %+v", s.calls)
	}
}

func TestFormatRatePayloadExactJSON(t *testing.T) {
	event := RateEvent{
		Timestamp: time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC),
		Index:     1,
		Pin:       18,
		Rate:      toggler.Medium,
		Source:    "mqtt",
	}
	got, err := FormatRatePayload(event)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	want := `{"toggler":{"timestamp":"2026-01-03T12:00:00Z","event":"RATE","index":1,"pin":18,"rate":"MEDIUM","source":"mqtt"}}`
	if string(got) != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestFormatRatePayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	event := RateEvent{Timestamp: time.Date(2026, 1, 3, 14, 0, 0, 0, loc), Rate: toggler.Slow}

	got, _ := FormatRatePayload(event)
	var parsed RatePayload
	if err := json.Unmarshal(got, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Toggler.Timestamp != "2026-01-03T12:00:00Z" {
		t.Errorf("timestamp: got %s, want 2026-01-03T12:00:00Z", parsed.Toggler.Timestamp)
	}
}

func TestFormatRatePayloadInvalidRate(t *testing.T) {
	if _, err := FormatRatePayload(RateEvent{Rate: toggler.Rate(7)}); !errors.Is(err, toggler.ErrInvalidRate) {
		t.Errorf("expected ErrInvalidRate, got %v", err)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}
	got, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	want := `{"system":{"timestamp":"2026-01-03T12:00:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(got) != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	got, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if string(got) != string(raw) {
		t.Errorf("got %s, want raw payload", got)
	}
}

func TestWillPayloadFormat(t *testing.T) {
	want := `{"system":{"event":"OFFLINE"}}`
	if got := string(WillPayload()); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()
	event := RateEvent{Timestamp: time.Now(), Index: 0, Pin: 13, Rate: toggler.Max, Source: "http"}

	if err := f.PublishRate(event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(f.RateEvents) != 1 || f.RateEvents[0] != event {
		t.Errorf("events: got %+v", f.RateEvents)
	}
	if len(f.Payloads) != 1 {
		t.Errorf("expected 1 payload, got %d", len(f.Payloads))
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")
	f.PublishSystemError = errors.New("broker down")

	if err := f.PublishRate(RateEvent{Rate: toggler.Slow}); err == nil {
		t.Error("expected PublishRate error")
	}
	if err := f.PublishSystem(SystemEvent{Event: "HEARTBEAT"}); err == nil {
		t.Error("expected PublishSystem error")
	}
	if len(f.RateEvents) != 0 || len(f.SystemEvents) != 0 {
		t.Error("failed publishes should not be recorded")
	}
}

func TestFakePublisherDeliver(t *testing.T) {
	f := NewFakePublisher()
	f.Deliver([]byte(`ignored`)) // no handler, no panic

	var got []byte
	f.OnCommand = func(p []byte) { got = p }
	f.Deliver([]byte(`{"pin":0,"rate":"SLOW"}`))
	if string(got) != `{"pin":0,"rate":"SLOW"}` {
		t.Errorf("handler got %q", got)
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.PublishRate(RateEvent{Rate: toggler.Slow})
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Close()
	f.Connected = true

	f.Reset()

	if len(f.RateEvents) != 0 || len(f.SystemEvents) != 0 || f.Closed || f.Connected {
		t.Errorf("expected clean state after reset: %+v", f)
	}
	if names := f.SystemEventNames(); len(names) != 0 {
		t.Errorf("expected no system events, got %v", names)
	}
}
