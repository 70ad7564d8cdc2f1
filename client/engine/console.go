package engine

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

const (
	markOK   = "✓"
	markFail = "✗"
)

// Console prints the human readable run output to the terminal and mirrors
// every line into the journal.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	journal io.Writer
	tty     bool

	statusActive bool

	okStyle   *color.Color
	failStyle *color.Color
	headStyle *color.Color
	dimStyle  *color.Color
}

// NewConsole creates a console. journal may be nil. tty enables in-place
// status lines; useColor enables ANSI colors on out (never in the journal).
func NewConsole(out io.Writer, journal io.Writer, tty bool, useColor bool) *Console {
	c := &Console{
		out:       out,
		journal:   journal,
		tty:       tty,
		okStyle:   color.New(color.FgGreen),
		failStyle: color.New(color.FgRed, color.Bold),
		headStyle: color.New(color.FgCyan, color.Bold),
		dimStyle:  color.New(color.Faint),
	}

	for _, style := range []*color.Color{c.okStyle, c.failStyle, c.headStyle, c.dimStyle} {
		if useColor {
			style.EnableColor()
		} else {
			style.DisableColor()
		}
	}

	return c
}

// Line prints one plain line.
func (c *Console) Line(format string, args ...any) {
	c.emit(nil, fmt.Sprintf(format, args...))
}

// OK prints a line prefixed with a check mark.
func (c *Console) OK(format string, args ...any) {
	c.emit(c.okStyle, markOK+" "+fmt.Sprintf(format, args...))
}

// Fail prints a line prefixed with a cross.
func (c *Console) Fail(format string, args ...any) {
	c.emit(c.failStyle, markFail+" "+fmt.Sprintf(format, args...))
}

// Section prints an empty line followed by a "=== title ===" heading.
func (c *Console) Section(title string) {
	c.emit(nil, "")
	c.emit(c.headStyle, "=== "+title+" ===")
}

// Rule prints a horizontal separator.
func (c *Console) Rule(width int) {
	c.emit(nil, strings.Repeat("=", width))
}

// Status prints the live status line. On a terminal it is redrawn in place;
// the journal always receives it as a regular line.
func (c *Console) Status(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.journal != nil {
		_, _ = io.WriteString(c.journal, line+"\n")
	}

	if !c.tty {
		_, _ = io.WriteString(c.out, line+"\n")

		return
	}

	w, _ := TermSize()
	_, _ = io.WriteString(c.out, "\r\x1b[2K"+c.dimStyle.Sprint(truncateToCells(line, w-1)))
	c.statusActive = true
}

func (c *Console) emit(style *color.Color, line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.statusActive {
		_, _ = io.WriteString(c.out, "\n")
		c.statusActive = false
	}

	if c.journal != nil {
		_, _ = io.WriteString(c.journal, line+"\n")
	}

	if style != nil {
		line = style.Sprint(line)
	}

	_, _ = io.WriteString(c.out, line+"\n")
}
