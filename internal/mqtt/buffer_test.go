package mqtt

import (
	"testing"

	"github.com/rs/zerolog"
)

func rateMsg(index int, payload byte) bufferedMsg {
	return bufferedMsg{kind: kindRate, index: index, topic: "events", payload: []byte{payload}}
}

func systemMsg(payload byte) bufferedMsg {
	return bufferedMsg{kind: kindSystem, topic: "system", payload: []byte{payload}, qos: 1, retained: true}
}

func payloads(msgs []bufferedMsg) []byte {
	out := make([]byte, len(msgs))
	for i, m := range msgs {
		out[i] = m.payload[0]
	}
	return out
}

func TestOutboxEmptyDrain(t *testing.T) {
	o := newOutbox(10, zerolog.Nop())
	if got := o.drainAll(); got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
}

func TestOutboxKeepsOrder(t *testing.T) {
	o := newOutbox(10, zerolog.Nop())
	o.push(systemMsg(1))
	o.push(rateMsg(0, 2))
	o.push(rateMsg(1, 3))
	o.push(systemMsg(4))

	got := o.drainAll()
	if string(payloads(got)) != string([]byte{1, 2, 3, 4}) {
		t.Errorf("order: got %v, want [1 2 3 4]", payloads(got))
	}
	if got2 := o.drainAll(); got2 != nil {
		t.Errorf("expected nil from second drain, got %d items", len(got2))
	}
}

func TestOutboxLatestRatePerPin(t *testing.T) {
	o := newOutbox(10, zerolog.Nop())
	o.push(rateMsg(0, 1))
	o.push(rateMsg(1, 2))
	o.push(rateMsg(0, 3))
	o.push(rateMsg(0, 4))

	got := o.drainAll()
	if string(payloads(got)) != string([]byte{2, 4}) {
		t.Errorf("got %v, want [2 4]", payloads(got))
	}
	if o.dropped.Superseded != 2 {
		t.Errorf("Superseded: got %d, want 2", o.dropped.Superseded)
	}
	if o.dropped.Total() != 0 {
		t.Errorf("superseded events should not count as dropped, got %+v", o.dropped)
	}
}

func TestOutboxFullEvictsRateBeforeSystem(t *testing.T) {
	o := newOutbox(3, zerolog.Nop())
	o.push(systemMsg(1))
	o.push(rateMsg(0, 2))
	o.push(systemMsg(3))
	o.push(systemMsg(4))

	got := o.drainAll()
	if string(payloads(got)) != string([]byte{1, 3, 4}) {
		t.Errorf("got %v, want [1 3 4]", payloads(got))
	}
	if o.dropped.Rate != 1 || o.dropped.System != 0 {
		t.Errorf("dropped: got %+v", o.dropped)
	}
}

func TestOutboxFullOfSystemEvictsOldest(t *testing.T) {
	o := newOutbox(2, zerolog.Nop())
	o.push(systemMsg(1))
	o.push(systemMsg(2))
	o.push(systemMsg(3))

	got := o.drainAll()
	if string(payloads(got)) != string([]byte{2, 3}) {
		t.Errorf("got %v, want [2 3]", payloads(got))
	}
	if o.dropped.System != 1 {
		t.Errorf("System dropped: got %d, want 1", o.dropped.System)
	}
}

func TestOutboxDropCountsSurviveDrain(t *testing.T) {
	o := newOutbox(1, zerolog.Nop())
	o.push(rateMsg(0, 1))
	o.push(rateMsg(1, 2))
	if !o.overflow {
		t.Fatal("expected overflow after pushing past capacity")
	}
	o.drainAll()
	if o.overflow {
		t.Error("overflow should reset after drain")
	}
	o.push(rateMsg(2, 3))
	o.push(rateMsg(3, 4))
	if o.dropped.Rate != 2 {
		t.Errorf("Rate dropped across drains: got %d, want 2", o.dropped.Rate)
	}
}

func TestOutboxLen(t *testing.T) {
	o := newOutbox(10, zerolog.Nop())
	if o.len() != 0 {
		t.Errorf("expected len 0, got %d", o.len())
	}
	o.push(rateMsg(0, 1))
	o.push(systemMsg(2))
	if o.len() != 2 {
		t.Errorf("expected len 2, got %d", o.len())
	}
	o.drainAll()
	if o.len() != 0 {
		t.Errorf("expected len 0 after drain, got %d", o.len())
	}
}

func TestOutboxPreservesFields(t *testing.T) {
	o := newOutbox(10, zerolog.Nop())
	o.push(bufferedMsg{
		kind:     kindSystem,
		topic:    "devices/test",
		payload:  []byte(`{"test":true}`),
		qos:      1,
		retained: true,
	})

	got := o.drainAll()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].topic != "devices/test" || string(got[0].payload) != `{"test":true}` {
		t.Errorf("got %+v", got[0])
	}
	if got[0].qos != 1 || !got[0].retained {
		t.Errorf("qos/retained: got %d/%v", got[0].qos, got[0].retained)
	}
}
