package ui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"fileshare/internal/transfer"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

const (
	barWidth     = 40
	addressWidth = 16
	// RedrawInterval is the minimum time between two progress redraws.
	RedrawInterval = 500 * time.Millisecond
)

// Progress formats one transfer as
// "get <address> [=====>     ] (42.0%) 1.2 MB / 2.9 MB".
func (p *Printer) Progress(ev transfer.Event) string {
	progress := ev.Progress()
	filled := int(math.Floor(progress * barWidth))
	bar := "[" + strings.Repeat("=", filled) + ">" + strings.Repeat(" ", barWidth-filled) + "]"

	padding := strings.Repeat(" ", max(0, addressWidth-len(ev.Label)))

	var status string
	switch ev.Outcome {
	case transfer.OK:
		status = "(" + p.paint(green, "ok") + ")"
	case transfer.Failed:
		status = "(" + p.paint(red, "fail") + ")"
	default:
		status = "(" + p.paint(blue, fmt.Sprintf("%.1f%%", 100*progress)) + ")"
	}

	size := humanize.Bytes(uint64(max(0, ev.Transferred)))
	if ev.Total > 0 {
		size += " / " + humanize.Bytes(uint64(ev.Total))
	}

	return p.paint(green, "get") + " " + ev.Label + " " + padding + bar + " " + status + " " + size
}

// Monitor redraws the transfers of a registry. Progress redraws are
// throttled to Interval; a transfer finishing always redraws.
type Monitor struct {
	Interval time.Duration

	printer  *Printer
	registry *transfer.Registry
	last     time.Time
	printed  map[uuid.UUID]struct{}
}

// NewMonitor creates a monitor for registry.
func NewMonitor(printer *Printer, registry *transfer.Registry) *Monitor {
	return &Monitor{
		Interval: RedrawInterval,
		printer:  printer,
		registry: registry,
		printed:  make(map[uuid.UUID]struct{}),
	}
}

// Run follows the registry until ctx is done and draws a final frame.
func (m *Monitor) Run(ctx context.Context) {
	events, stop := m.registry.Subscribe(64)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			m.Draw()
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.update(ev.Done())
		}
	}
}

func (m *Monitor) update(force bool) {
	if !force && time.Since(m.last) < m.Interval {
		return
	}
	m.Draw()
}

// Draw renders the current state. An interactive printer redraws every
// transfer the registry still holds in place; otherwise each transfer is
// printed once it is done.
func (m *Monitor) Draw() {
	m.last = time.Now()
	snapshot := m.registry.Snapshot()

	if !m.printer.Interactive() {
		current := make(map[uuid.UUID]struct{}, len(snapshot))
		for _, ev := range snapshot {
			current[ev.ID] = struct{}{}
			if _, ok := m.printed[ev.ID]; ok || !ev.Done() {
				continue
			}
			m.printed[ev.ID] = struct{}{}
			m.printer.Log(m.printer.Progress(ev))
		}
		// The registry drops old finished records; forget them here too.
		for id := range m.printed {
			if _, ok := current[id]; !ok {
				delete(m.printed, id)
			}
		}
		return
	}

	m.printer.Clear()
	for _, ev := range snapshot {
		m.printer.Line(m.printer.Progress(ev))
	}
}
