//go:generate go run go.uber.org/mock/mockgen -source=host.go -destination=../../mocks/mock_host.go -package=mocks
package common

import (
	"fmt"
	"net"

	"github.com/samber/lo"
)

// AddrSource lists the addresses of the local network interfaces.
type AddrSource interface {
	InterfaceAddrs() ([]net.Addr, error)
}

// SystemAddrs reads interface addresses from the operating system.
type SystemAddrs struct{}

func (SystemAddrs) InterfaceAddrs() ([]net.Addr, error) {
	return net.InterfaceAddrs()
}

// LocalIPv4 returns the first non-loopback IPv4 address reported by source.
func LocalIPv4(source AddrSource) (string, error) {
	addrs, err := source.InterfaceAddrs()
	if err != nil {
		return "", fmt.Errorf("list interface addresses: %w", err)
	}

	ips := lo.FilterMap(addrs, func(addr net.Addr, _ int) (net.IP, bool) {
		var ip net.IP
		switch a := addr.(type) {
		case *net.IPNet:
			ip = a.IP
		case *net.IPAddr:
			ip = a.IP
		}
		if ip == nil || ip.IsLoopback() {
			return nil, false
		}
		v4 := ip.To4()
		return v4, v4 != nil
	})
	if len(ips) == 0 {
		return "", ErrNoNetwork
	}
	return ips[0].String(), nil
}
