// Package discovery finds shares on the local network segment.
//
// A discovering peer sends the query token to the multicast group once per
// resend interval. Every sharer listening on the group answers the sender
// directly with "<share url>@<hostname>". Responses are deduplicated on their
// exact text. An optional mDNS side channel advertises and browses the same
// messages through zeroconf.
package discovery

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"fileshare/internal/common"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// DecodeOffer parses a discovery response. The origin label is everything
// after the last "@" and the share URL everything before the first one, so
// a response that repeats the path after the hostname decodes the same way.
func DecodeOffer(raw string) (common.Offer, error) {
	first := strings.Index(raw, "@")
	if first < 0 {
		return common.Offer{}, fmt.Errorf("%w: missing origin in %q", common.ErrMalformedOffer, raw)
	}
	origin := raw[strings.LastIndex(raw, "@")+1:]

	offer, err := parseShareURL(raw[:first])
	if err != nil {
		return common.Offer{}, fmt.Errorf("%w: %q: %v", common.ErrMalformedOffer, raw, err)
	}
	offer.Origin = origin
	offer.Raw = raw
	return offer, nil
}

// OfferFromURL builds an offer from a share URL typed by the user. The host
// doubles as the origin label.
func OfferFromURL(raw string) (common.Offer, error) {
	offer, err := parseShareURL(raw)
	if err != nil {
		return common.Offer{}, fmt.Errorf("%w: %q: %v", common.ErrMalformedOffer, raw, err)
	}
	offer.Origin = offer.Host
	offer.Raw = raw
	return offer, nil
}

func parseShareURL(raw string) (common.Offer, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return common.Offer{}, err
	}
	if u.Scheme != common.Scheme {
		return common.Offer{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	port := 80
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return common.Offer{}, fmt.Errorf("invalid port %q", p)
		}
	}

	offer := common.Offer{
		Host: u.Hostname(),
		Port: port,
		Path: u.Path,
	}
	if name := path.Base(u.Path); name != "/" && name != "." {
		offer.Filename = name
	}
	if err := validate.Struct(offer); err != nil {
		return common.Offer{}, err
	}
	return offer, nil
}
