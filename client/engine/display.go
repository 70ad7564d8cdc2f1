package engine

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"golang.org/x/sys/unix"
)

func IsTTY() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func TermSize() (w, h int) {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil || ws == nil || ws.Col == 0 || ws.Row == 0 {
		return 80, 24
	}
	return int(ws.Col), int(ws.Row)
}

// UseColor resolves a color mode (auto|always|never) for stdout.
func UseColor(mode string) bool {
	switch strings.ToLower(mode) {
	case "never":
		return false
	case "always":
		return true
	default:
		return os.Getenv("NO_COLOR") == "" && IsTTY()
	}
}

func displayWidth(s string) int { return runewidth.StringWidth(s) }

func truncateToCells(s string, max int) string {
	if max <= 0 {
		return ""
	}
	return runewidth.Truncate(s, max, "…")
}

func padToCellsRight(s string, w int) string { return runewidth.FillRight(s, w) }

func formatMs(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
}

func humanETA(d time.Duration) string {
	d = max(d, 0).Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%02dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

func humanCount(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

// FormatStatusLine renders the once-per-second line of the sustained scenario.
// elapsed is the scenario time; remaining and extra are optional.
func FormatStatusLine(p Progress, elapsed, remaining time.Duration, extra string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "elapsed %.1fs | connections %s/%s | messages %s/%s | in-flight %d",
		elapsed.Seconds(),
		humanCount(p.ConnSuccess), humanCount(p.Connections()),
		humanCount(p.MsgSuccess), humanCount(p.Messages()),
		p.InFlight,
	)

	if remaining > 0 {
		sb.WriteString(" | remaining ")
		sb.WriteString(humanETA(remaining))
	}

	if extra != "" {
		sb.WriteString(" | ")
		sb.WriteString(extra)
	}

	return sb.String()
}
