package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	isatty "github.com/mattn/go-isatty"
)

var (
	styleArrow   = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)  // cyan/blue
	styleJob     = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)  // bright white
	styleDesc    = lipgloss.NewStyle().Faint(true)                                  // dim
	styleWarnLbl = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true) // yellow
	styleWarnTxt = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))            // yellow
	styleDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)  // green
	styleZero    = lipgloss.NewStyle().Faint(true)
	colorEnabled = true
)

// InitConsole configures color output based on noColor flag and TTY detection
func InitConsole(noColor bool) {
	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	colorEnabled = tty && !noColor
}

func r(st lipgloss.Style, s string) string {
	if !colorEnabled {
		return s
	}
	return st.Render(s)
}

const previewLimit = 72

// ConsoleProgress prints batch progress as styled lines.
type ConsoleProgress struct {
	W     io.Writer
	total int
}

// NewConsoleProgress writes to stderr so stdout stays free for manifests.
func NewConsoleProgress() *ConsoleProgress {
	return &ConsoleProgress{W: os.Stderr}
}

func (c *ConsoleProgress) SetTotal(n int) {
	c.total = n
	fmt.Fprintln(c.W, r(styleDesc, fmt.Sprintf("Will process %d job(s)", n)))
}

func (c *ConsoleProgress) SetCurrent(label string) {
	fmt.Fprintf(c.W, "%s %s\n", r(styleArrow, "→"), r(styleJob, "Job "+label))
}

// SetPrompt prints a shortened preview of the job prompt.
func (c *ConsoleProgress) SetPrompt(prompt string) {
	fmt.Fprintln(c.W, PromptPreview(prompt, previewLimit))
}

// PromptPreview returns the first line of a prompt, faint and shortened.
func PromptPreview(prompt string, limit int) string {
	line := prompt
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i] + " …"
	}
	if limit > 0 && len([]rune(line)) > limit {
		line = string([]rune(line)[:limit]) + "…"
	}
	return r(styleDesc, "  "+line)
}

// Warnf returns a single-line colored warning string with a standard prefix.
func Warnf(format string, a ...interface{}) string {
	msg := fmt.Sprintf(format, a...)
	return r(styleWarnLbl, "Warning:") + " " + r(styleWarnTxt, msg)
}

// SavedCount returns a colored summary of how many images were written.
func SavedCount(n int, dir string) string {
	if n <= 0 {
		return r(styleZero, "✓ No images generated")
	}
	return r(styleDone, fmt.Sprintf("✓ Saved %d image(s) to %s", n, dir))
}
