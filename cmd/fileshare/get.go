package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"fileshare/internal/common"
	"fileshare/internal/discovery"
	"fileshare/internal/p2p"
	"fileshare/internal/transfer"
	"fileshare/internal/ui"
)

var errNoFiles = errors.New("no files found")

// list discovers shares, lets the user pick one and downloads it.
func (a *app) list(args []string) error {
	fs := newFlagSet("ls")
	output := fs.String("o", "", "output file (default: the shared file name in the current directory)")
	if ok, err := parse(fs, args); !ok {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, err := discovery.ParseGroup(a.cfg.MulticastAddress, a.cfg.Port)
	if err != nil {
		return err
	}

	d := discovery.NewDiscoverer(group, a.metrics, a.log)
	d.Interval = a.cfg.ResendInterval
	d.MDNS = a.cfg.MDNS

	malformed := make(chan error, 1)
	d.OnMalformed = func(_ string, err error) {
		select {
		case malformed <- err:
		default:
		}
	}

	chooser := ui.NewChooser(a.printer)
	first := make(chan struct{})
	var once sync.Once

	cancel, err := d.Discover(ctx, func(offer common.Offer) {
		chooser.Add(offer)
		once.Do(func() { close(first) })
	})
	if err != nil {
		return err
	}
	defer cancel()

	select {
	case <-first:
	case err := <-malformed:
		return err
	case <-time.After(a.cfg.DiscoveryWait):
		return errNoFiles
	case <-ctx.Done():
		return nil
	}

	type pick struct {
		offer common.Offer
		err   error
	}
	picked := make(chan pick, 1)
	go func() {
		offer, err := chooser.Pick(ctx, os.Stdin)
		picked <- pick{offer: offer, err: err}
	}()

	var offer common.Offer
	select {
	case p := <-picked:
		if errors.Is(p.err, context.Canceled) {
			return nil
		}
		if p.err != nil {
			return p.err
		}
		offer = p.offer
	case err := <-malformed:
		return err
	}

	cancel()
	a.printer.Clear()
	return a.download(ctx, offer, *output)
}

// get downloads, or resumes, a share from its URL.
func (a *app) get(args []string) error {
	fs := newFlagSet("get")
	output := fs.String("o", "", "output file (default: the shared file name in the current directory)")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	if fs.Arg(0) == "" {
		return errors.New("get requires a share url")
	}

	offer, err := discovery.OfferFromURL(fs.Arg(0))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.download(ctx, offer, *output)
}

func (a *app) download(ctx context.Context, offer common.Offer, output string) error {
	dest := output
	if dest == "" {
		dest = offer.Filename
	}
	if dest == "" {
		dest = "download"
	}

	registry := transfer.NewRegistry(a.metrics)
	downloader := p2p.NewDownloader(registry, &http.Client{}, a.log)

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		ui.NewMonitor(a.printer, registry).Run(monitorCtx)
		close(done)
	}()

	_, err := downloader.Fetch(ctx, offer, dest)
	stopMonitor()
	<-done
	return err
}
