package transfer

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Outcome is the state of a transfer.
type Outcome int32

const (
	InProgress Outcome = iota
	OK
	Failed
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Failed:
		return "failed"
	default:
		return "in-progress"
	}
}

// Direction tells whether bytes leave (upload) or enter (download) this host.
type Direction string

const (
	Upload   Direction = "upload"
	Download Direction = "download"
)

// Record tracks one byte stream. Only the goroutine that owns the stream calls
// Add and Finish; anyone may read it through the registry.
type Record struct {
	ID        uuid.UUID
	Peer      string
	Label     string
	Direction Direction
	Total     int64
	StartedAt time.Time

	transferred atomic.Int64
	outcome     atomic.Int32
	registry    *Registry
}

// Transferred returns the number of bytes moved so far.
func (r *Record) Transferred() int64 {
	return r.transferred.Load()
}

// Outcome returns the current outcome.
func (r *Record) Outcome() Outcome {
	return Outcome(r.outcome.Load())
}

// Add accounts for a chunk of n bytes.
func (r *Record) Add(n int64) {
	if n <= 0 || r.Outcome() != InProgress {
		return
	}
	r.transferred.Add(n)
	r.registry.publish(r, false)
}

// Finish closes the record. A record ends ok only when the stream ended
// without error and every expected byte went through. Total < 0 means the
// length was not known in advance. Calling Finish twice keeps the first
// outcome.
func (r *Record) Finish(err error) Outcome {
	outcome := Failed
	if err == nil && (r.Total < 0 || r.Transferred() == r.Total) {
		outcome = OK
	}
	if !r.outcome.CompareAndSwap(int32(InProgress), int32(outcome)) {
		return r.Outcome()
	}
	r.registry.finished(r)
	return outcome
}

// Writer returns w wrapped so that every successful write is added to the record.
func (r *Record) Writer(w io.Writer) io.Writer {
	return &countingWriter{w: w, rec: r}
}

type countingWriter struct {
	w   io.Writer
	rec *Record
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.rec.Add(int64(n))
	return n, err
}
