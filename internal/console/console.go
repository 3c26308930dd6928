// Package console prints human-facing command output. Colour is decided once
// per Console and never through the library's global switch.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Console writes coloured lines to an output and an error stream.
type Console struct {
	out   io.Writer
	err   io.Writer
	color bool

	ok    *color.Color
	warn  *color.Color
	fail  *color.Color
	info  *color.Color
	faint *color.Color
	bold  *color.Color
}

// ColorEnabled reports whether output to w should be coloured: not when
// disabled by flag, not when NO_COLOR is set and only on a terminal.
func ColorEnabled(w io.Writer, noColor bool) bool {
	if noColor {
		return false
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// New returns a Console. enableColor is usually ColorEnabled(out, flag).
func New(out, errOut io.Writer, enableColor bool) *Console {
	c := &Console{out: out, err: errOut, color: enableColor}
	c.ok = c.style(color.FgGreen)
	c.warn = c.style(color.FgYellow)
	c.fail = c.style(color.FgRed, color.Bold)
	c.info = c.style(color.FgCyan)
	c.faint = c.style(color.Faint)
	c.bold = c.style(color.Bold)
	return c
}

func (c *Console) style(attrs ...color.Attribute) *color.Color {
	s := color.New(attrs...)
	if c.color {
		s.EnableColor()
	} else {
		s.DisableColor()
	}
	return s
}

// Out is the plain output stream, for tables and JSON.
func (c *Console) Out() io.Writer { return c.out }

// Err is the error stream.
func (c *Console) Err() io.Writer { return c.err }

// Color reports whether this console emits colour.
func (c *Console) Color() bool { return c.color }

func (c *Console) Success(format string, args ...any) {
	c.ok.Fprintf(c.out, format+"\n", args...)
}

func (c *Console) Info(format string, args ...any) {
	c.info.Fprintf(c.out, format+"\n", args...)
}

func (c *Console) Plain(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Detail prints a dimmed secondary line.
func (c *Console) Detail(format string, args ...any) {
	c.faint.Fprintf(c.out, format+"\n", args...)
}

func (c *Console) Heading(format string, args ...any) {
	c.bold.Fprintf(c.out, format+"\n", args...)
}

// Warn prints to the error stream.
func (c *Console) Warn(format string, args ...any) {
	c.warn.Fprintf(c.err, "warning: "+format+"\n", args...)
}

// Error prints to the error stream.
func (c *Console) Error(format string, args ...any) {
	c.fail.Fprintf(c.err, "error: "+format+"\n", args...)
}

// Status colours a sync stage or action name for tables.
func (c *Console) Status(s string) string {
	switch s {
	case "merged", "unchanged", "ok", "up to date":
		return c.ok.Sprint(s)
	case "build", "would build", "stale", "published", "archived":
		return c.warn.Sprint(s)
	case "failed", "mismatch", "missing":
		return c.fail.Sprint(s)
	}
	return s
}
