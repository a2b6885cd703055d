package discovery

import (
	"context"
	"fmt"
	"strings"

	"fileshare/internal/common"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"
)

const (
	txtURL  = "url="
	txtHost = "host="
)

// Advertise publishes desc as a zeroconf service. The caller shuts the
// returned server down.
func Advertise(desc common.ShareDescriptor) (*zeroconf.Server, error) {
	server, err := zeroconf.Register(desc.ShareName, common.ServiceName, common.ServiceDomain, desc.Port, serviceText(desc), nil)
	if err != nil {
		return nil, fmt.Errorf("could not register service: %w", err)
	}
	return server, nil
}

// Browse looks for advertised shares until ctx is done and passes each
// entry's discovery message to onMessage.
func Browse(ctx context.Context, onMessage func(string), log *zap.Logger) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to initialize resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 8)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case entry := <-entries:
				if entry == nil {
					continue
				}
				message, ok := messageFromText(entry.Text)
				if !ok {
					log.Debug("Ignoring mDNS entry without share text", zap.String("instance", entry.Instance))
					continue
				}
				onMessage(message)
			}
		}
	}()

	if err := resolver.Browse(ctx, common.ServiceName, common.ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse: %w", err)
	}
	return nil
}

func serviceText(desc common.ShareDescriptor) []string {
	return []string{txtURL + desc.URL(), txtHost + desc.Hostname}
}

// messageFromText rebuilds "<url>@<host>" from TXT records.
func messageFromText(text []string) (string, bool) {
	var shareURL, host string
	for _, record := range text {
		switch {
		case strings.HasPrefix(record, txtURL):
			shareURL = strings.TrimPrefix(record, txtURL)
		case strings.HasPrefix(record, txtHost):
			host = strings.TrimPrefix(record, txtHost)
		}
	}
	if shareURL == "" || host == "" {
		return "", false
	}
	return shareURL + "@" + host, true
}
