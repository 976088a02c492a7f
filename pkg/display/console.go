// Package display implementation for terminal-based output.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"ff/pkg/common"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
)

// consoleDisplay handles terminal output.
// Mutable
type consoleDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

// NewConsole creates a Display that writes to standard error.
func NewConsole() Display {
	return &consoleDisplay{
		out: os.Stderr,
	}
}

// NewWriterDisplay creates a Display that writes to the provided io.Writer.
func NewWriterDisplay(w io.Writer) Display {
	return &consoleDisplay{
		out: w,
	}
}

// Discard returns a Display that drops everything.
func Discard() Display {
	return NewWriterDisplay(io.Discard)
}

func (d *consoleDisplay) SetVerbose(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.verbose = v
}

func (d *consoleDisplay) Verbose() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.verbose
}

// Print writes a message directly to the output writer.
func (d *consoleDisplay) Print(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprint(d.out, msg)
}

func (d *consoleDisplay) Log(msg string) {
	d.Print(msg + "\n")
}

func (d *consoleDisplay) Close() {}

// lockedWriter lets progress bars share the output with concurrent tasks.
type lockedWriter struct {
	d *consoleDisplay
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.d.mu.Lock()
	defer w.d.mu.Unlock()
	return w.d.out.Write(p)
}

func (d *consoleDisplay) StartTask(name string) Task {
	d.Print(fmt.Sprintf("[%s]\n", name))
	return &consoleTask{d: d, name: name}
}

// Render displays structured data from an Output struct to the console.
func (d *consoleDisplay) Render(out *common.Output) {
	if out == nil {
		return
	}

	if out.Message != "" {
		d.Print(fmt.Sprintln(out.Message))
	}

	if len(out.KV) > 0 {
		for _, kv := range out.KV {
			d.Print(fmt.Sprintf("%-12s %s\n", kv.Key+":", kv.Value))
		}
	}

	if out.Table != nil {
		d.renderTable(out.Table)
	}
}

func (d *consoleDisplay) renderTable(t *common.Table) {
	if len(t.Header) == 0 {
		return
	}

	// cells may carry ANSI styling, so measure printable width
	widths := make([]int, len(t.Header))
	for i, h := range t.Header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var sb strings.Builder
	for i, h := range t.Header {
		sb.WriteString(pad(h, widths[i]))
	}
	d.Print(strings.TrimRight(sb.String(), " ") + "\n")

	totalWidth := 0
	for _, w := range widths {
		totalWidth += w + 2
	}
	d.Print(strings.Repeat("-", totalWidth) + "\n")

	for _, row := range t.Rows {
		sb.Reset()
		for i, cell := range row {
			if i < len(widths) {
				sb.WriteString(pad(cell, widths[i]))
			}
		}
		d.Print(strings.TrimRight(sb.String(), " ") + "\n")
	}
}

func pad(cell string, width int) string {
	return cell + strings.Repeat(" ", width-lipgloss.Width(cell)+2)
}

// consoleTask renders one task's progress as a progress bar.
// Mutable
type consoleTask struct {
	d     *consoleDisplay
	name  string
	stage string
	bar   *progressbar.ProgressBar
}

func (t *consoleTask) Log(msg string) {
	if !t.d.Verbose() {
		return
	}
	if t.bar != nil {
		_ = t.bar.Clear()
	}
	t.d.Print(fmt.Sprintf("[%s] %s\n", t.name, msg))
}

func (t *consoleTask) SetStage(name string, target string) {
	t.stage = name
	t.resetBar()
	t.d.Print(fmt.Sprintf("[%s] %s -> %s\n", t.name, name, target))
}

func (t *consoleTask) Progress(percent int, message string) {
	if t.bar == nil {
		max := int64(100)
		if percent < 0 {
			max = -1
		}
		t.bar = progressbar.NewOptions64(max,
			progressbar.OptionSetWriter(lockedWriter{t.d}),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	t.bar.Describe(fmt.Sprintf("[%s] %s %s", t.name, t.stage, message))
	if percent >= 0 {
		_ = t.bar.Set(percent)
	} else {
		_ = t.bar.Add(1)
	}
}

func (t *consoleTask) Done() {
	t.resetBar()
	t.d.Print(fmt.Sprintf("[%s] Done\n", t.name))
}

func (t *consoleTask) resetBar() {
	if t.bar != nil {
		_ = t.bar.Finish()
		t.bar = nil
	}
}
