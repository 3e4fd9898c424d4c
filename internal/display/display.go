// Package display chooses between the interactive dashboard and plain text
// output for the user list.
package display

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/smileynet/roster/internal/controller"
	"github.com/smileynet/roster/internal/dashboard"
)

// DefaultWidth is the plain-text layout width when none is configured.
const DefaultWidth = 100

// Display renders the user list.
type Display interface {
	Run(ctx context.Context, ctl *controller.Controller) error
}

// Options configures display creation.
type Options struct {
	Writer     io.Writer // Output destination (default: os.Stdout).
	Input      io.Reader // Key input for the dashboard (default: os.Stdin).
	ForcePlain bool      // Force plain text even if TTY.
	Width      int       // Plain-text layout width (default: DefaultWidth).
}

// New returns a TUI display when the writer is a TTY, or a plain text
// display otherwise. ForcePlain overrides TTY detection.
func New(opts Options) Display {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}

	if opts.ForcePlain || !IsTTY(opts.Writer) {
		return &PlainDisplay{w: opts.Writer, width: opts.Width}
	}

	return &TUIDisplay{w: opts.Writer, in: opts.Input}
}

// IsTTY reports whether w is connected to a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PlainDisplay loads the list synchronously and prints it once.
type PlainDisplay struct {
	w     io.Writer
	width int
}

// NewPlain returns a PlainDisplay writing to w at the given width.
func NewPlain(w io.Writer, width int) *PlainDisplay {
	if width <= 0 {
		width = DefaultWidth
	}
	return &PlainDisplay{w: w, width: width}
}

// Run executes the startup flow and writes the rendered list.
// A fetch failure is printed as an "Error: ..." line and returned.
func (d *PlainDisplay) Run(ctx context.Context, ctl *controller.Controller) error {
	if err := ctl.Load(ctx); err != nil {
		_, _ = fmt.Fprintf(d.w, "Error: %s\n", err)
		return err
	}
	return d.Print(ctl)
}

// Print writes the current list without loading.
func (d *PlainDisplay) Print(ctl *controller.Controller) error {
	_, err := fmt.Fprintln(d.w, ctl.List().View(d.width))
	return err
}

// TUIDisplay runs the dashboard as a Bubble Tea program.
// Falls back to PlainDisplay if the program fails to start.
type TUIDisplay struct {
	w  io.Writer
	in io.Reader
}

// Run starts the dashboard and blocks until the user quits. The error shown
// in the banner when the user quit is returned.
func (d *TUIDisplay) Run(ctx context.Context, ctl *controller.Controller) error {
	opts := []tea.ProgramOption{tea.WithOutput(d.w), tea.WithContext(ctx), tea.WithAltScreen()}
	if d.in != nil {
		opts = append(opts, tea.WithInput(d.in))
	}
	p := tea.NewProgram(dashboard.NewModel(ctx, ctl), opts...)

	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return ctx.Err()
		}
		if ctl.List().Rendered() {
			return fmt.Errorf("display: running dashboard: %w", err)
		}
		// Fall back to plain text when the terminal could not be driven.
		plain := &PlainDisplay{w: d.w, width: DefaultWidth}
		return plain.Run(ctx, ctl)
	}

	if m, ok := final.(dashboard.Model); ok {
		return m.Err()
	}
	return nil
}
