package migration

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Observer receives operator-facing progress output during a migration run.
type Observer interface {
	// Infof reports a neutral progress message.
	Infof(format string, args ...any)

	// Okf reports a successfully completed step.
	Okf(format string, args ...any)

	// Warnf reports a non-fatal problem, including swallowed cleanup failures.
	Warnf(format string, args ...any)

	// Errorf reports a failure on the primary path.
	Errorf(format string, args ...any)

	// Planf reports an intended action during a dry run.
	Planf(format string, args ...any)
}

var (
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3b82f6"))
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#eab308"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	planStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
)

// ConsoleObserver writes timestamped, severity-tagged lines to a writer.
// Severity tags are colored when the writer is a terminal.
type ConsoleObserver struct {
	out   io.Writer
	color bool
	now   func() time.Time
}

// NewConsoleObserver returns an observer writing to stderr, colored when
// stderr is a terminal.
func NewConsoleObserver() *ConsoleObserver {
	return NewConsoleObserverTo(os.Stderr, isatty.IsTerminal(os.Stderr.Fd()))
}

// NewConsoleObserverTo returns an observer writing to w.
func NewConsoleObserverTo(w io.Writer, color bool) *ConsoleObserver {
	return &ConsoleObserver{out: w, color: color, now: time.Now}
}

func (o *ConsoleObserver) Infof(format string, args ...any) {
	o.emit("INFO", infoStyle, format, args...)
}

func (o *ConsoleObserver) Okf(format string, args ...any) {
	o.emit(" OK ", okStyle, format, args...)
}

func (o *ConsoleObserver) Warnf(format string, args ...any) {
	o.emit("WARN", warnStyle, format, args...)
}

func (o *ConsoleObserver) Errorf(format string, args ...any) {
	o.emit("FAIL", errStyle, format, args...)
}

func (o *ConsoleObserver) Planf(format string, args ...any) {
	o.emit("PLAN", planStyle, format, args...)
}

func (o *ConsoleObserver) emit(tag string, style lipgloss.Style, format string, args ...any) {
	if o.color {
		tag = style.Render(tag)
	}
	fmt.Fprintf(o.out, "%s [%s] %s\n", o.now().Format("15:04:05"), tag, fmt.Sprintf(format, args...))
}
