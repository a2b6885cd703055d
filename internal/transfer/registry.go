//go:generate go run go.uber.org/mock/mockgen -source=registry.go -destination=../../mocks/mock_recorder.go -package=mocks
package transfer

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Recorder receives transfer lifecycle notifications, typically for metrics.
type Recorder interface {
	TransferStarted(direction string)
	TransferFinished(direction string, outcome string, bytes int64)
}

// Event is a point-in-time copy of a record.
type Event struct {
	ID          uuid.UUID
	Peer        string
	Label       string
	Direction   Direction
	Total       int64
	Transferred int64
	Outcome     Outcome
	At          time.Time
}

// Done reports whether the transfer reached a final outcome.
func (e Event) Done() bool {
	return e.Outcome != InProgress
}

// Progress returns the completed fraction in [0, 1], or 0 when the total is
// unknown.
func (e Event) Progress() float64 {
	if e.Outcome == OK {
		return 1
	}
	if e.Total <= 0 {
		return 0
	}
	return math.Min(1, float64(e.Transferred)/float64(e.Total))
}

// KeepFinished is how many finished records a registry retains. Older ones
// are dropped as new transfers finish; in-progress records are never dropped.
const KeepFinished = 32

// Registry holds the transfers of one component. It is created by the caller
// and passed to the Sharer or the Downloader; there is no shared instance.
type Registry struct {
	mu       sync.RWMutex
	records  map[uuid.UUID]*Record
	order    []uuid.UUID
	keep     int
	subs     map[int]chan Event
	nextSub  int
	recorder Recorder
}

// NewRegistry creates an empty registry. recorder may be nil.
func NewRegistry(recorder Recorder) *Registry {
	return &Registry{
		records:  make(map[uuid.UUID]*Record),
		keep:     KeepFinished,
		subs:     make(map[int]chan Event),
		recorder: recorder,
	}
}

// Begin registers a new in-progress transfer.
func (r *Registry) Begin(direction Direction, peer, label string, total int64) *Record {
	rec := &Record{
		ID:        uuid.New(),
		Peer:      peer,
		Label:     label,
		Direction: direction,
		Total:     total,
		StartedAt: time.Now(),
		registry:  r,
	}

	r.mu.Lock()
	r.records[rec.ID] = rec
	r.order = append(r.order, rec.ID)
	r.mu.Unlock()

	if r.recorder != nil {
		r.recorder.TransferStarted(string(direction))
	}
	r.publish(rec, true)
	return rec
}

// Snapshot returns the state of every record, oldest first.
func (r *Registry) Snapshot() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]Event, 0, len(r.order))
	for _, id := range r.order {
		events = append(events, r.records[id].event())
	}
	return events
}

// Active returns the number of transfers still in progress.
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, rec := range r.records {
		if rec.Outcome() == InProgress {
			n++
		}
	}
	return n
}

// Subscribe returns a channel of events and a function that ends the
// subscription. Progress events are dropped when the channel is full;
// Snapshot stays the source of truth for a lagging subscriber.
func (r *Registry) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
			close(ch)
		})
	}
}

func (r *Registry) finished(rec *Record) {
	if r.recorder != nil {
		r.recorder.TransferFinished(string(rec.Direction), rec.Outcome().String(), rec.Transferred())
	}
	r.publish(rec, true)
	r.prune()
}

// prune drops the oldest finished records beyond the retention limit.
func (r *Registry) prune() {
	r.mu.Lock()
	defer r.mu.Unlock()

	finished := 0
	for _, id := range r.order {
		if r.records[id].Outcome() != InProgress {
			finished++
		}
	}
	excess := finished - r.keep
	if excess <= 0 {
		return
	}

	kept := r.order[:0]
	for _, id := range r.order {
		if excess > 0 && r.records[id].Outcome() != InProgress {
			delete(r.records, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}

func (r *Registry) publish(rec *Record, important bool) {
	ev := rec.event()

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ch := range r.subs {
		if important {
			// Lifecycle events get a short grace period before being dropped.
			select {
			case ch <- ev:
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

func (rec *Record) event() Event {
	return Event{
		ID:          rec.ID,
		Peer:        rec.Peer,
		Label:       rec.Label,
		Direction:   rec.Direction,
		Total:       rec.Total,
		Transferred: rec.Transferred(),
		Outcome:     rec.Outcome(),
		At:          time.Now(),
	}
}
