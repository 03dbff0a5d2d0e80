package mqtt

import "github.com/rs/zerolog"

type msgKind uint8

const (
	kindRate msgKind = iota
	kindSystem
)

// bufferedMsg is an event published while the broker was unreachable.
type bufferedMsg struct {
	kind     msgKind
	index    int // pin index, rate events only
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// DropCounts reports events the outbox discarded since the publisher started.
type DropCounts struct {
	// Rate and System count events evicted because the outbox was full.
	Rate   uint64
	System uint64

	// Superseded counts rate events replaced by a newer one for the same pin.
	Superseded uint64
}

// Total is the number of events lost to a full outbox.
func (d DropCounts) Total() uint64 {
	return d.Rate + d.System
}

// outbox holds events until the next connect. Only the latest rate per pin is
// kept. When full, the oldest rate event goes first; lifecycle events are
// evicted only when nothing else is queued.
// Not safe for concurrent use; the caller must synchronize.
type outbox struct {
	log      zerolog.Logger
	msgs     []bufferedMsg
	capacity int
	dropped  DropCounts
	overflow bool // an event was evicted since the last drain
}

func newOutbox(capacity int, log zerolog.Logger) *outbox {
	return &outbox{
		log:      log,
		msgs:     make([]bufferedMsg, 0, capacity),
		capacity: capacity,
	}
}

func (o *outbox) push(msg bufferedMsg) {
	if msg.kind == kindRate {
		if i := o.find(func(m bufferedMsg) bool { return m.kind == kindRate && m.index == msg.index }); i >= 0 {
			o.remove(i)
			o.dropped.Superseded++
		}
	}

	if len(o.msgs) == o.capacity {
		victim := o.find(func(m bufferedMsg) bool { return m.kind == kindRate })
		if victim < 0 {
			victim = 0
		}
		if o.msgs[victim].kind == kindRate {
			o.dropped.Rate++
		} else {
			o.dropped.System++
		}
		o.remove(victim)
		if !o.overflow {
			o.log.Warn().Int("capacity", o.capacity).Msg("mqtt outbox full, dropping events")
			o.overflow = true
		}
	}
	o.msgs = append(o.msgs, msg)
}

func (o *outbox) find(match func(bufferedMsg) bool) int {
	for i, m := range o.msgs {
		if match(m) {
			return i
		}
	}
	return -1
}

func (o *outbox) remove(i int) {
	o.msgs = append(o.msgs[:i], o.msgs[i+1:]...)
}

// drainAll returns the queued events oldest first and empties the outbox.
func (o *outbox) drainAll() []bufferedMsg {
	if len(o.msgs) == 0 {
		return nil
	}
	out := append([]bufferedMsg(nil), o.msgs...)
	o.msgs = o.msgs[:0]
	o.overflow = false
	return out
}

func (o *outbox) len() int {
	return len(o.msgs)
}
