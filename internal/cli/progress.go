package cli

import (
	"fmt"
	"os"
	"time"
)

// ─── Step Feedback ───────────────────────────────────────────────────────────
// Transient status lines for long-running commands. The fetch tool writes
// its own progress to the operation log file, so the terminal only sees
// step markers:
//   [...] downloading microsoft/BitNet-b1.58-2B-4T
//   [done] downloading microsoft/BitNet-b1.58-2B-4T (3m12s)

type stepPrinter struct {
	active    string
	stepStart time.Time
}

func newStepPrinter() *stepPrinter {
	return &stepPrinter{}
}

// Begin announces a step, replacing the previous transient line.
func (p *stepPrinter) Begin(status string) {
	clearLine()
	fmt.Fprintf(os.Stderr, "[...] %s", status)
	p.active = status
	p.stepStart = time.Now()
}

// Done finalizes the current step with its wall time.
func (p *stepPrinter) Done() {
	if p.active == "" {
		return
	}
	clearLine()
	fmt.Fprintf(os.Stderr, "[done] %s (%s)\n", p.active, formatElapsed(time.Since(p.stepStart)))
	p.active = ""
}

// Fail finalizes the current step as failed.
func (p *stepPrinter) Fail() {
	if p.active == "" {
		return
	}
	clearLine()
	fmt.Fprintf(os.Stderr, "[fail] %s\n", p.active)
	p.active = ""
}

func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

func clearLine() {
	fmt.Fprintf(os.Stderr, "\r\033[K")
}
