package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"fileshare/internal/common"
	"fileshare/internal/metrics"

	"go.uber.org/zap"
)

// Announcer answers discovery queries for one share.
type Announcer struct {
	desc    common.ShareDescriptor
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewAnnouncer creates an announcer for desc. m may be nil.
func NewAnnouncer(desc common.ShareDescriptor, m *metrics.Metrics, log *zap.Logger) *Announcer {
	return &Announcer{
		desc:    desc,
		metrics: m,
		log:     log,
	}
}

// Serve replies to every datagram read from conn with the share message,
// sent straight back to the sender. The query payload is not inspected.
// Serve returns nil once ctx is done; conn is left open for the caller.
func (a *Announcer) Serve(ctx context.Context, conn net.PacketConn) error {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	message := []byte(a.desc.Message())
	buf := make([]byte, 1500)

	a.log.Info("Answering discovery queries", zap.String("addr", conn.LocalAddr().String()), zap.String("message", a.desc.Message()))
	for {
		_, src, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read discovery query: %w", err)
		}

		if _, err := conn.WriteTo(message, src); err != nil {
			a.log.Warn("Could not answer discovery query", zap.String("from", src.String()), zap.Error(err))
			continue
		}
		a.metrics.QueryAnswered()
		a.log.Debug("Answered discovery query", zap.String("from", src.String()))
	}
}
