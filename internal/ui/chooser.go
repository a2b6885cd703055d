package ui

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"fileshare/internal/common"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// ErrNoChoice is returned when input ends before an offer was picked.
var ErrNoChoice = errors.New("no file selected")

// Chooser lists offers as they are discovered and lets the user pick one
// by number.
type Chooser struct {
	mu      sync.Mutex
	printer *Printer
	offers  []common.Offer
}

// NewChooser creates an empty chooser.
func NewChooser(printer *Printer) *Chooser {
	return &Chooser{printer: printer}
}

// Add appends an offer and redraws the list.
func (c *Chooser) Add(offer common.Offer) {
	c.mu.Lock()
	c.offers = append(c.offers, offer)
	offers := append([]common.Offer(nil), c.offers...)
	c.mu.Unlock()

	c.printer.Clear()
	c.printer.Line(strings.TrimRight(c.table(offers), "\n"))
	c.printer.Line(c.printer.paint(bold, "select a file:") + " type its number and press enter")
}

// Pick reads lines from in until one names a listed offer.
func (c *Chooser) Pick(ctx context.Context, in io.Reader) (common.Offer, error) {
	type result struct {
		offer common.Offer
		err   error
	}
	done := make(chan result, 1)

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			offer, err := c.choose(scanner.Text())
			if err != nil {
				c.printer.Fail("%v", err)
				continue
			}
			done <- result{offer: offer}
			return
		}
		if err := scanner.Err(); err != nil {
			done <- result{err: fmt.Errorf("read selection: %w", err)}
			return
		}
		done <- result{err: ErrNoChoice}
	}()

	select {
	case <-ctx.Done():
		return common.Offer{}, ctx.Err()
	case r := <-done:
		return r.offer, r.err
	}
}

func (c *Chooser) choose(input string) (common.Offer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 1 || n > len(c.offers) {
		return common.Offer{}, fmt.Errorf("pick a number between 1 and %d", len(c.offers))
	}
	return c.offers[n-1], nil
}

func (c *Chooser) table(offers []common.Offer) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"#", "Offer", "URL"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	table.AppendBulk(lo.Map(offers, func(o common.Offer, i int) []string {
		return []string{strconv.Itoa(i + 1), c.printer.paint(green, "get") + " " + o.Label(), o.URL()}
	}))
	table.Render()
	return buf.String()
}
