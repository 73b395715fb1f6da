package reportutils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/rnative/rnative-client/sdk/models"
)

// ProgressPrinter reports task status while waiting. On a terminal it keeps
// one line up to date; otherwise it writes a line per change so logs stay
// readable.
type ProgressPrinter struct {
	mu       sync.Mutex
	out      io.Writer
	inPlace  bool
	last     string
	lastSize int
}

// NewProgressPrinter returns a printer writing to out. In-place updates are
// used only when out is a terminal.
func NewProgressPrinter(out io.Writer) *ProgressPrinter {
	return &ProgressPrinter{out: out, inPlace: isTerminal(out)}
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Update prints the status if it differs from the last one printed. It
// matches monitor.PollFunc.
func (p *ProgressPrinter) Update(status *models.TaskStatus) {
	line := fmt.Sprintf("Status: %s", status.Status)
	if status.HasProgress() {
		line += fmt.Sprintf(" [%s]", progressText(status))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if line == p.last {
		return
	}
	p.last = line

	if !p.inPlace {
		fmt.Fprintln(p.out, line)
		return
	}

	padding := ""
	if p.lastSize > len(line) {
		padding = strings.Repeat(" ", p.lastSize-len(line))
	}
	fmt.Fprintf(p.out, "\r%s%s", line, padding)
	p.lastSize = len(line)
}

// Done terminates an in-place line.
func (p *ProgressPrinter) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inPlace && p.lastSize > 0 {
		fmt.Fprintln(p.out)
		p.lastSize = 0
	}
}
