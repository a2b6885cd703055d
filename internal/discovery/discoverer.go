package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"fileshare/internal/common"
	"fileshare/internal/metrics"

	"go.uber.org/zap"
)

// Discoverer looks for shares by querying the multicast group.
type Discoverer struct {
	// Group is where queries are sent.
	Group *net.UDPAddr
	// Interval is the query resend period.
	Interval time.Duration
	// OnMalformed receives responses that could not be decoded. When nil
	// they are logged and dropped.
	OnMalformed func(raw string, err error)
	// MDNS also browses the zeroconf service and feeds its entries through
	// the same dedup path.
	MDNS bool

	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewDiscoverer creates a discoverer that queries group every
// common.ResendInterval. m may be nil.
func NewDiscoverer(group *net.UDPAddr, m *metrics.Metrics, log *zap.Logger) *Discoverer {
	return &Discoverer{
		Group:    group,
		Interval: common.ResendInterval,
		metrics:  m,
		log:      log,
	}
}

// Discover starts querying and calls onFound once per distinct response,
// serially from a single goroutine. The returned cancel stops the resend
// loop, waits for it and closes the socket. It is safe to call more than
// once and from inside onFound; once it returns no new onFound call starts,
// though a call already running on another goroutine may still be finishing.
func (d *Discoverer) Discover(ctx context.Context, onFound func(common.Offer)) (func(), error) {
	conn, err := openQuerySocket()
	if err != nil {
		return nil, err
	}

	ctx, stopCtx := context.WithCancel(ctx)
	var (
		stopped    atomic.Bool
		loops      sync.WaitGroup
		inbox      = make(chan string, 16)
		dispatch   sync.Mutex
		inCallback atomic.Bool
	)

	loops.Add(2)
	go func() {
		defer loops.Done()
		d.sendLoop(ctx, conn)
	}()
	go func() {
		defer loops.Done()
		d.readLoop(ctx, conn, inbox)
	}()

	if d.MDNS {
		if err := Browse(ctx, func(raw string) { deliver(ctx, inbox, raw) }, d.log); err != nil {
			d.log.Warn("mDNS browsing unavailable", zap.Error(err))
		}
	}

	// Callbacks run with dispatch held. inCallback is set while user code
	// runs, so a cancel from inside a callback does not wait on itself.
	found := func(o common.Offer) {
		inCallback.Store(true)
		defer inCallback.Store(false)
		onFound(o)
	}
	var malformed func(string, error)
	if d.OnMalformed != nil {
		malformed = func(raw string, err error) {
			inCallback.Store(true)
			defer inCallback.Store(false)
			d.OnMalformed(raw, err)
		}
	}

	go func() {
		seen := make(map[string]struct{})
		for {
			select {
			case <-ctx.Done():
				return
			case raw := <-inbox:
				dispatch.Lock()
				if stopped.Load() || ctx.Err() != nil {
					dispatch.Unlock()
					return
				}
				d.handle(seen, raw, found, malformed)
				dispatch.Unlock()
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stopped.Store(true)
			stopCtx()
			_ = conn.Close()
			loops.Wait()
		})
		if !inCallback.Load() {
			dispatch.Lock()
			dispatch.Unlock()
		}
	}
	return cancel, nil
}

// handle dedups raw on its exact text and dispatches it. Malformed responses
// go to onMalformed, or are logged when it is nil.
func (d *Discoverer) handle(seen map[string]struct{}, raw string, onFound func(common.Offer), onMalformed func(string, error)) {
	if _, ok := seen[raw]; ok {
		d.metrics.OfferReceived("duplicate")
		return
	}
	seen[raw] = struct{}{}

	offer, err := DecodeOffer(raw)
	if err != nil {
		d.metrics.OfferReceived("malformed")
		if onMalformed != nil {
			onMalformed(raw, err)
			return
		}
		d.log.Warn("Dropping malformed discovery response", zap.String("raw", raw), zap.Error(err))
		return
	}

	d.metrics.OfferReceived("new")
	d.log.Debug("Found share", zap.String("url", offer.URL()), zap.String("origin", offer.Origin))
	onFound(offer)
}

func (d *Discoverer) sendLoop(ctx context.Context, conn *net.UDPConn) {
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	query := []byte(common.QueryToken)
	for ctx.Err() == nil {
		if _, err := conn.WriteTo(query, d.Group); err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			d.log.Warn("Could not send discovery query", zap.String("group", d.Group.String()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}

func (d *Discoverer) readLoop(ctx context.Context, conn *net.UDPConn, inbox chan<- string) {
	buf := make([]byte, 1500)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				d.log.Warn("Discovery socket failed", zap.Error(err))
			}
			return
		}
		deliver(ctx, inbox, string(buf[:n]))
	}
}

func deliver(ctx context.Context, inbox chan<- string, raw string) {
	select {
	case inbox <- raw:
	case <-ctx.Done():
	}
}

// ParseGroup resolves the multicast group and port queries are sent to.
func ParseGroup(address string, port int) (*net.UDPAddr, error) {
	ip := net.ParseIP(address)
	if ip == nil || ip.To4() == nil || !ip.IsMulticast() {
		return nil, fmt.Errorf("invalid multicast group %q", address)
	}
	return &net.UDPAddr{IP: ip, Port: port}, nil
}
