package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	errInputClosed = errors.New("input closed")
	errQuit        = errors.New("quit")
)

// terminal reads answer lines in the background so a countdown can
// resolve a question while the learner is still typing. Input is not
// touched until the first read, which leaves stdin to the MCP server.
type terminal struct {
	in    io.Reader
	out   io.Writer
	once  sync.Once
	lines chan string

	// Feedback styles. Colors only reach a real terminal; pipes and
	// buffers get plain text.
	good, bad, note lipgloss.Style
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	r := lipgloss.NewRenderer(out)
	return &terminal{
		in:    in,
		out:   out,
		lines: make(chan string),
		good:  r.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true),
		bad:   r.NewStyle().Foreground(lipgloss.Color("#e53935")),
		note:  r.NewStyle().Foreground(lipgloss.Color("#FFC107")),
	}
}

func (t *terminal) start() {
	go func() {
		defer close(t.lines)
		scanner := bufio.NewScanner(t.in)
		for scanner.Scan() {
			t.lines <- strings.TrimSpace(scanner.Text())
		}
	}()
}

func (t *terminal) printf(format string, args ...any) {
	fmt.Fprintf(t.out, format, args...)
}

func (t *terminal) println(args ...any) {
	fmt.Fprintln(t.out, args...)
}

// readLine waits for a line, a wake signal, or cancellation. woke is
// true when the wake channel fired first.
func (t *terminal) readLine(ctx context.Context, wake <-chan struct{}) (line string, woke bool, err error) {
	t.once.Do(t.start)
	select {
	case l, ok := <-t.lines:
		if !ok {
			return "", false, errInputClosed
		}
		if l == "q" || l == ":q" {
			return "", false, errQuit
		}
		return l, false, nil
	case <-wake:
		return "", true, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

// prompt prints label and reads one line with no deadline
func (t *terminal) prompt(ctx context.Context, label string) (string, error) {
	t.printf("%s", label)
	line, _, err := t.readLine(ctx, nil)
	return line, err
}

// wakeup returns a one-slot channel and a callback that fills it
// without blocking, for timer callbacks
func wakeup() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	return ch, func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func drain(ch <-chan struct{}) {
	select {
	case <-ch:
	default:
	}
}
