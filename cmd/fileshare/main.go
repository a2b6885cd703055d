package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"fileshare/internal/config"
	"fileshare/internal/logging"
	"fileshare/internal/metrics"
	"fileshare/internal/ui"

	"github.com/gookit/color"
	"go.uber.org/zap"
)

var version = "1.0.0"

// app carries what every command needs.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
	printer *ui.Printer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fail %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Logging())
	if err != nil {
		fmt.Fprintf(os.Stderr, "fail logger: %v\n", err)
		os.Exit(1)
	}

	interactive := isTerminal(os.Stdout)
	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
		printer: ui.NewPrinter(os.Stdout, interactive && !cfg.NoColor && color.SupportColor(), interactive),
	}

	err = a.run(os.Args[1:])
	_ = log.Sync()
	if err != nil {
		a.printer.Fail("%v", err)
		os.Exit(1)
	}
}

// run dispatches to a command. Any first argument that is not a command
// is the file to share.
func (a *app) run(args []string) error {
	if len(args) == 0 {
		a.printer.Usage(version)
		return nil
	}

	switch args[0] {
	case "help", "-h", "-help", "--help", "version", "--version":
		a.printer.Usage(version)
		return nil
	case "ls":
		return a.list(args[1:])
	case "get":
		return a.get(args[1:])
	case "share":
		return a.share(args[1:])
	default:
		return a.share(args)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// parse treats -h as a successful usage request.
func parse(fs *flag.FlagSet, args []string) (bool, error) {
	err := fs.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}
