// Event sink: the core's sole log-emission surface (spec §1: "the core
// consumes only a validated Configuration record and emits event records
// to a log sink"). Each record is tagged with a short id
// (github.com/teris-io/shortid, pack indirect require) and fingerprinted
// with xxhash (github.com/cespare/xxhash/v2, pack indirect require, and
// the same family aistore itself uses for cos.ChecksumXXHash) so a
// downstream consumer can deduplicate or audit the event stream.
package sim

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/teris-io/shortid"

	"github.com/kitline/kitline/internal/nlog"
)

// Event is one emitted record.
type Event struct {
	ID          string
	Fingerprint uint64
	Kind        string
	Detail      string
}

// EventSink fans every emitted Event out to the log facade and keeps a
// bounded ring of the most recent records for diagnostics.
type EventSink struct {
	mu      sync.Mutex
	gen     *shortid.Shortid
	ring    []Event
	ringCap int
	runID   string
}

// NewEventSink builds a sink tagged with the given run correlation id.
func NewEventSink(runID string, ringCap int) *EventSink {
	gen, err := shortid.New(1, shortid.DefaultABC, 1)
	if err != nil {
		gen = shortid.MustNew(1, shortid.DefaultABC, 1)
	}
	return &EventSink{gen: gen, ringCap: ringCap, runID: runID}
}

// Emit records one event and logs it through nlog.
func (s *EventSink) Emit(kind, detail string) Event {
	id, err := s.gen.Generate()
	if err != nil {
		id = "????"
	}
	fp := xxhash.Sum64String(s.runID + "|" + kind + "|" + detail)
	ev := Event{ID: id, Fingerprint: fp, Kind: kind, Detail: detail}

	s.mu.Lock()
	s.ring = append(s.ring, ev)
	if len(s.ring) > s.ringCap {
		s.ring = s.ring[len(s.ring)-s.ringCap:]
	}
	s.mu.Unlock()

	nlog.Infof("[%s] %s: %s (fp=%x)", ev.ID, kind, detail, fp)
	return ev
}

// Recent returns a copy of the most recently emitted events, newest last.
func (s *EventSink) Recent() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.ring))
	copy(out, s.ring)
	return out
}
