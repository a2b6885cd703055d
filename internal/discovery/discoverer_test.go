package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fileshare/internal/common"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// collector records offers handed to onFound.
type collector struct {
	mu     sync.Mutex
	offers []common.Offer
}

func (c *collector) add(o common.Offer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offers = append(c.offers, o)
}

func (c *collector) all() []common.Offer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]common.Offer(nil), c.offers...)
}

func newTestDiscoverer(group *net.UDPAddr) *Discoverer {
	d := NewDiscoverer(group, nil, zap.NewNop())
	d.Interval = 50 * time.Millisecond
	return d
}

// fakeResponder answers every datagram with reply and counts queries.
func fakeResponder(t *testing.T, reply string) (*net.UDPAddr, *atomic.Int64) {
	t.Helper()
	conn := listenLoopback(t)
	var queries atomic.Int64
	go func() {
		buf := make([]byte, 1500)
		for {
			_, src, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			queries.Add(1)
			_, _ = conn.WriteTo([]byte(reply), src)
		}
	}()
	return conn.LocalAddr().(*net.UDPAddr), &queries
}

func TestDiscoverer_FindsShareOnce(t *testing.T) {
	req := require.New(t)
	desc := testDescriptor("notes.txt", "laptop")
	addr := startAnnouncer(t, desc)

	found := &collector{}
	cancel, err := newTestDiscoverer(addr).Discover(context.Background(), found.add)
	req.NoError(err)
	defer cancel()

	// Then the share shows up
	req.Eventually(func() bool { return len(found.all()) == 1 }, 2*time.Second, 10*time.Millisecond)

	// And repeated identical responses are not reported again
	time.Sleep(300 * time.Millisecond)
	offers := found.all()
	req.Len(offers, 1)
	req.Equal(desc.Message(), offers[0].Raw)
	req.Equal("laptop", offers[0].Origin)
	req.Equal("notes.txt", offers[0].Filename)
}

func TestDiscoverer_HandleDedupsOnExactText(t *testing.T) {
	req := require.New(t)
	d := newTestDiscoverer(nil)
	seen := make(map[string]struct{})
	found := &collector{}

	d.handle(seen, "http://10.0.0.1:52525/a@x", found.add, nil)
	d.handle(seen, "http://10.0.0.1:52525/a@x", found.add, nil)
	d.handle(seen, "http://10.0.0.1:52525/a@y", found.add, nil)
	d.handle(seen, "http://10.0.0.2:52525/a@x", found.add, nil)

	req.Len(found.all(), 3)
}

func TestDiscoverer_Malformed(t *testing.T) {
	req := require.New(t)
	addr, _ := fakeResponder(t, "not a share")

	var (
		mu   sync.Mutex
		bad  []string
		errs []error
	)
	d := newTestDiscoverer(addr)
	d.OnMalformed = func(raw string, err error) {
		mu.Lock()
		bad = append(bad, raw)
		errs = append(errs, err)
		mu.Unlock()
	}

	found := &collector{}
	cancel, err := d.Discover(context.Background(), found.add)
	req.NoError(err)
	defer cancel()

	req.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(bad) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The same garbage again is a duplicate, not a second report
	time.Sleep(200 * time.Millisecond)
	mu.Lock()
	req.Equal([]string{"not a share"}, bad)
	req.ErrorIs(errs[0], common.ErrMalformedOffer)
	mu.Unlock()
	req.Empty(found.all())
}

func TestDiscoverer_CancelStopsQueries(t *testing.T) {
	req := require.New(t)
	addr, queries := fakeResponder(t, "http://10.0.0.1:52525/a@x")

	found := &collector{}
	cancel, err := newTestDiscoverer(addr).Discover(context.Background(), found.add)
	req.NoError(err)

	// Given a few query rounds went out and the share was found
	req.Eventually(func() bool {
		return queries.Load() >= 3 && len(found.all()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// When discovery is canceled, twice
	cancel()
	cancel()

	// Then no more queries are sent
	time.Sleep(50 * time.Millisecond)
	sent := queries.Load()
	time.Sleep(250 * time.Millisecond)
	req.Equal(sent, queries.Load())
	req.Len(found.all(), 1)
}

func TestDiscoverer_CancelFromCallback(t *testing.T) {
	req := require.New(t)
	addr, _ := fakeResponder(t, "http://10.0.0.1:52525/a@x")

	var cancel func()
	calls := make(chan common.Offer, 4)
	var ready sync.WaitGroup
	ready.Add(1)

	c, err := newTestDiscoverer(addr).Discover(context.Background(), func(o common.Offer) {
		ready.Wait()
		cancel()
		calls <- o
	})
	req.NoError(err)
	cancel = c
	ready.Done()

	select {
	case o := <-calls:
		req.Equal("x", o.Origin)
	case <-time.After(2 * time.Second):
		t.Fatal("offer not delivered")
	}
}

func TestDiscoverer_ContextCancelStopsDelivery(t *testing.T) {
	req := require.New(t)
	addr, _ := fakeResponder(t, "http://10.0.0.1:52525/a@x")

	ctx, stop := context.WithCancel(context.Background())
	stop()

	found := &collector{}
	cancel, err := newTestDiscoverer(addr).Discover(ctx, found.add)
	req.NoError(err)
	defer cancel()

	time.Sleep(200 * time.Millisecond)
	req.Empty(found.all())
}

// distinctResponder answers every datagram with a new offer.
func distinctResponder(t *testing.T) *net.UDPAddr {
	t.Helper()
	conn := listenLoopback(t)
	go func() {
		buf := make([]byte, 1500)
		for n := 0; ; n++ {
			_, src, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			reply := fmt.Sprintf("http://10.0.0.1:52525/a@host-%d", n)
			_, _ = conn.WriteTo([]byte(reply), src)
		}
	}()
	return conn.LocalAddr().(*net.UDPAddr)
}

func TestDiscoverer_NoCallbackAfterCancelReturns(t *testing.T) {
	req := require.New(t)
	addr := distinctResponder(t)

	var (
		found    atomic.Int64
		canceled atomic.Bool
		late     atomic.Int64
	)
	d := newTestDiscoverer(addr)
	d.Interval = 5 * time.Millisecond

	cancel, err := d.Discover(context.Background(), func(common.Offer) {
		if canceled.Load() {
			late.Add(1)
		}
		time.Sleep(2 * time.Millisecond)
		found.Add(1)
	})
	req.NoError(err)

	// Given new offers keep arriving
	req.Eventually(func() bool { return found.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	// When discovery is canceled from another goroutine
	cancel()
	canceled.Store(true)

	// Then no callback starts afterwards
	time.Sleep(100 * time.Millisecond)
	req.Zero(late.Load())
}
