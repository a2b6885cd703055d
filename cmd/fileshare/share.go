package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"fileshare/internal/common"
	"fileshare/internal/discovery"
	"fileshare/internal/p2p"
	"fileshare/internal/transfer"
	"fileshare/internal/ui"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// share serves one file over HTTP and answers discovery queries until
// interrupted.
func (a *app) share(args []string) error {
	fs := newFlagSet("share")
	port := fs.Int("p", a.cfg.Port, "preferred HTTP port")
	if ok, err := parse(fs, args); !ok {
		return err
	}

	path := fs.Arg(0)
	if path == "" {
		return errors.New("share requires a file path")
	}

	stat, err := p2p.StatShare(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := p2p.Listen(*port, a.log)
	if err != nil {
		return err
	}
	defer ln.Close()

	host, err := common.LocalIPv4(common.SystemAddrs{})
	if err != nil {
		return err
	}

	desc, err := p2p.NewShareDescriptor(path, stat, host, ln.Addr().(*net.TCPAddr).Port)
	if err != nil {
		return err
	}

	conn, err := discovery.ListenGroup(ctx, a.cfg.MulticastAddress, a.cfg.Port)
	if err != nil {
		return err
	}
	defer conn.Close()

	registry := transfer.NewRegistry(a.metrics)
	server := p2p.NewServer(desc, registry, a.log)
	announcer := discovery.NewAnnouncer(desc, a.metrics, a.log)

	if a.cfg.MDNS {
		zc, err := discovery.Advertise(desc)
		if err != nil {
			a.log.Warn("mDNS advertisement unavailable", zap.Error(err))
		} else {
			defer zc.Shutdown()
		}
	}

	var metricsLn net.Listener
	if a.cfg.MetricsAddr != "" {
		metricsLn, err = net.Listen("tcp", a.cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
		defer metricsLn.Close()
		a.log.Info("Metrics listening", zap.String("addr", metricsLn.Addr().String()))
	}

	a.printer.Share(desc.URL())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Serve(gctx, ln) })
	g.Go(func() error { return announcer.Serve(gctx, conn) })
	g.Go(func() error {
		ui.NewMonitor(a.printer, registry).Run(gctx)
		return nil
	})
	if metricsLn != nil {
		g.Go(func() error { return a.metrics.Serve(gctx, metricsLn) })
	}

	return g.Wait()
}
