// Package ui draws the terminal output of the fileshare command.
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gookit/color"
)

var (
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
	blue  = color.New(color.FgCyan)
	bold  = color.New(color.OpBold)
)

// Printer writes status lines. In interactive mode it remembers how many
// lines it drew since the last Clear so they can be redrawn in place.
type Printer struct {
	mu          sync.Mutex
	out         io.Writer
	colored     bool
	interactive bool
	offset      int
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer, colored, interactive bool) *Printer {
	return &Printer{
		out:         out,
		colored:     colored,
		interactive: interactive,
	}
}

// Interactive reports whether the printer redraws in place.
func (p *Printer) Interactive() bool {
	return p.interactive
}

// Log writes a line that stays on screen across Clear.
func (p *Printer) Log(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}

// Line writes a line that the next Clear erases.
func (p *Printer) Line(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offset += strings.Count(line, "\n") + 1
	fmt.Fprintln(p.out, line)
}

// Clear erases the lines drawn with Line.
func (p *Printer) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.interactive && p.offset > 0 {
		fmt.Fprintf(p.out, "\033[%dA\033[J", p.offset)
	}
	p.offset = 0
}

// Fail writes a "fail <message>" line.
func (p *Printer) Fail(format string, args ...any) {
	p.Line(p.paint(red, "fail") + " " + fmt.Sprintf(format, args...))
}

// Share writes the lines shown while a file is being shared.
func (p *Printer) Share(url string) {
	p.Log(p.paint(green, "share this command:") + " " + p.paint(bold, "curl -LOC - "+url))
}

// Usage writes the help text.
func (p *Printer) Usage(version string) {
	p.Log(p.paint(green, "you are running") + " " + p.paint(bold, "fileshare") + " " + p.paint(green, "version") + " " + p.paint(bold, version))
	p.Log("")
	p.Log(p.paint(bold, "fileshare [filename]") + "    " + p.paint(green, "share a file on the network"))
	p.Log(p.paint(bold, "fileshare ls [-o path]") + "  " + p.paint(green, "list all files on the network"))
	p.Log(strings.Repeat(" ", 24) + p.paint(green, "select one to download it"))
	p.Log(p.paint(bold, "fileshare get <url>") + "     " + p.paint(green, "download or resume a share by url"))
	p.Log("")
}

func (p *Printer) paint(style color.Style, s string) string {
	if !p.colored || s == "" {
		return s
	}
	return style.Sprint(s)
}
