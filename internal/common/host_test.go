package common

import (
	"errors"
	"net"
	"testing"

	"fileshare/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func ipNet(s string) *net.IPNet {
	ip, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	n.IP = ip
	return n
}

func TestLocalIPv4(t *testing.T) {
	tests := []struct {
		name    string
		addrs   []net.Addr
		want    string
		wantErr error
	}{
		{
			name:  "skips loopback and IPv6",
			addrs: []net.Addr{ipNet("127.0.0.1/8"), ipNet("fe80::1/64"), ipNet("192.168.1.20/24")},
			want:  "192.168.1.20",
		},
		{
			name:  "first usable address wins",
			addrs: []net.Addr{ipNet("10.0.0.5/8"), ipNet("192.168.1.20/24")},
			want:  "10.0.0.5",
		},
		{
			name:  "plain IPAddr is accepted",
			addrs: []net.Addr{&net.IPAddr{IP: net.ParseIP("172.16.0.9")}},
			want:  "172.16.0.9",
		},
		{
			name:    "only loopback means no network",
			addrs:   []net.Addr{ipNet("127.0.0.1/8"), ipNet("::1/128")},
			wantErr: ErrNoNetwork,
		},
		{
			name:    "no interfaces at all",
			wantErr: ErrNoNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			ctrl := gomock.NewController(t)
			source := mocks.NewMockAddrSource(ctrl)
			source.EXPECT().InterfaceAddrs().Return(tt.addrs, nil)

			got, err := LocalIPv4(source)

			if tt.wantErr != nil {
				req.ErrorIs(err, tt.wantErr)
				return
			}
			req.NoError(err)
			req.Equal(tt.want, got)
		})
	}
}

func TestLocalIPv4_SourceError(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	source := mocks.NewMockAddrSource(ctrl)
	boom := errors.New("boom")
	source.EXPECT().InterfaceAddrs().Return(nil, boom)

	_, err := LocalIPv4(source)

	req.ErrorIs(err, boom)
	req.NotErrorIs(err, ErrNoNetwork)
}

func TestShareDescriptor_Message(t *testing.T) {
	req := require.New(t)
	desc := ShareDescriptor{
		ShareName:   "movie.mkv",
		HostAddress: "192.168.1.20",
		Port:        52525,
		Hostname:    "laptop",
	}

	req.Equal("http://192.168.1.20:52525/movie.mkv", desc.URL())
	req.Equal("http://192.168.1.20:52525/movie.mkv@laptop", desc.Message())
}

func TestOffer_URL(t *testing.T) {
	req := require.New(t)
	offer := Offer{Host: "10.0.0.2", Port: 4000, Path: "/a.txt", Origin: "desk"}

	req.Equal("http://10.0.0.2:4000/a.txt", offer.URL())
	req.Equal("desk/a.txt", offer.Label())
}
