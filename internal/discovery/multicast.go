package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/samber/lo"
	"golang.org/x/net/ipv4"
)

// ListenGroup opens the announcer socket on port and joins group on every
// up, multicast-capable interface. The port is bound with address reuse so
// several sharers on one host can answer queries.
func ListenGroup(ctx context.Context, group string, port int) (*net.UDPConn, error) {
	groupAddr, err := ParseGroup(group, port)
	if err != nil {
		return nil, err
	}

	lc := net.ListenConfig{Control: reuseControl}
	pc, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("listen on discovery port %d: %w", port, err)
	}
	conn := pc.(*net.UDPConn)

	p := ipv4.NewPacketConn(conn)

	// An empty interface list falls through to the default interface below.
	ifaces, _ := net.Interfaces()
	candidates := lo.Filter(ifaces, func(iface net.Interface, _ int) bool {
		return iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagMulticast != 0
	})

	joined := 0
	for i := range candidates {
		if err := p.JoinGroup(&candidates[i], &net.UDPAddr{IP: groupAddr.IP}); err == nil {
			joined++
		}
	}
	if joined == 0 {
		if err := p.JoinGroup(nil, &net.UDPAddr{IP: groupAddr.IP}); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("join group %s: %w", group, err)
		}
	}
	_ = p.SetMulticastLoopback(true)

	return conn, nil
}

// openQuerySocket opens the ephemeral socket a discoverer sends queries from
// and receives responses on.
func openQuerySocket() (*net.UDPConn, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("open query socket: %w", err)
	}
	p := ipv4.NewPacketConn(conn)
	_ = p.SetMulticastLoopback(true)
	_ = p.SetMulticastTTL(1)
	return conn, nil
}
