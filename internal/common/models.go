package common

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

const (
	// MulticastAddress is the discovery group every sharer joins.
	MulticastAddress = "224.0.0.234"
	// DefaultPort is both the preferred HTTP port and the discovery port.
	DefaultPort = 52525
	// QueryToken is the payload of a discovery query. Its content is not checked.
	QueryToken = "get"
	// ResendInterval is the period of the discovery query broadcast.
	ResendInterval = 1 * time.Second
	// DiscoveryWait is how long `ls` waits for a first offer.
	DiscoveryWait = 1500 * time.Millisecond
	// Scheme is the scheme of every advertised share URL.
	Scheme = "http"
	// ServiceName is the mDNS service name used when mDNS is enabled.
	ServiceName = "_fileshare._tcp"
	// ServiceDomain is the mDNS service domain.
	ServiceDomain = "local."
	// ChunkSize is the copy buffer size for transfers (32KB).
	ChunkSize = 32 * 1024
)

// ShareDescriptor is the identity of the file being shared. It is built once
// when sharing starts and never changes afterwards.
type ShareDescriptor struct {
	FilePath    string
	TotalSize   int64
	ShareName   string
	HostAddress string
	Port        int
	ContentType string
	Hostname    string
}

// URL returns the address peers download the share from.
func (d ShareDescriptor) URL() string {
	host := net.JoinHostPort(d.HostAddress, strconv.Itoa(d.Port))
	return fmt.Sprintf("%s://%s/%s", Scheme, host, d.ShareName)
}

// Message returns the discovery response payload for this share.
func (d ShareDescriptor) Message() string {
	return d.URL() + "@" + d.Hostname
}

// Offer is a share seen on the network.
type Offer struct {
	Host     string `validate:"required,hostname_rfc1123|ip"`
	Port     int    `validate:"min=1,max=65535"`
	Path     string `validate:"required,startswith=/"`
	Filename string
	Origin   string
	// Raw is the exact response text the offer was decoded from.
	Raw string
}

// URL returns the download URL of the offer.
func (o Offer) URL() string {
	u := url.URL{
		Scheme: Scheme,
		Host:   net.JoinHostPort(o.Host, strconv.Itoa(o.Port)),
		Path:   o.Path,
	}
	return u.String()
}

// Label is how an offer is shown to the user: origin host followed by path.
func (o Offer) Label() string {
	return o.Origin + o.Path
}
