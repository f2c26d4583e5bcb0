// Package clip copies generated content to the user's clipboard, falling
// back to an OSC52 terminal sequence and finally to a file on disk.
package clip

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	atotto "github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"
)

// Method is the mechanism that made the content available.
type Method string

const (
	MethodNative Method = "native"
	MethodOSC52  Method = "osc52"
	MethodFile   Method = "file"
)

// Result reports how content was copied. FilePath is set for MethodFile.
type Result struct {
	Method   Method
	FilePath string
}

// Terminals drop or stall on large OSC52 payloads.
const osc52LimitBytes = 100_000

// Copier tries each mechanism in order until one succeeds.
type Copier struct {
	native   func(string) error
	terminal io.Writer
	isTTY    func() bool
	getenv   func(string) string
	dir      string
}

// Option configures a Copier.
type Option func(*Copier)

// WithNative replaces the OS clipboard writer.
func WithNative(fn func(string) error) Option {
	return func(c *Copier) { c.native = fn }
}

// WithTerminal sends OSC52 sequences to w when isTTY reports true.
func WithTerminal(w io.Writer, isTTY func() bool) Option {
	return func(c *Copier) {
		c.terminal = w
		c.isTTY = isTTY
	}
}

// WithFileDir sets where the file fallback is written.
func WithFileDir(dir string) Option {
	return func(c *Copier) { c.dir = dir }
}

// New returns a Copier using the system clipboard and stderr.
func New(opts ...Option) *Copier {
	c := &Copier{
		native:   atotto.WriteAll,
		terminal: os.Stderr,
		isTTY:    func() bool { return term.IsTerminal(int(os.Stderr.Fd())) },
		getenv:   os.Getenv,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Copy makes text available through the first mechanism that works.
func (c *Copier) Copy(text string) (Result, error) {
	if text == "" {
		return Result{}, errors.New("nothing to copy")
	}
	if c.native != nil {
		if err := c.native(text); err == nil {
			return Result{Method: MethodNative}, nil
		}
	}
	if err := c.writeOSC52(text); err == nil {
		return Result{Method: MethodOSC52}, nil
	}

	path, err := c.writeFile(text)
	if err != nil {
		return Result{}, fmt.Errorf("copying content: %w", err)
	}
	return Result{Method: MethodFile, FilePath: path}, nil
}

func (c *Copier) writeOSC52(text string) error {
	if c.terminal == nil || c.isTTY == nil || !c.isTTY() {
		return errors.New("no terminal for OSC52")
	}
	if len(text) > osc52LimitBytes {
		return fmt.Errorf("text too large for OSC52 (%d bytes > %d)", len(text), osc52LimitBytes)
	}

	seq := osc52.New(text).Limit(osc52LimitBytes)
	switch {
	case c.getenv("TMUX") != "":
		seq = seq.Tmux()
	case c.getenv("STY") != "":
		seq = seq.Screen()
	}
	_, err := seq.WriteTo(c.terminal)
	return err
}

func (c *Copier) writeFile(text string) (path string, err error) {
	f, err := os.CreateTemp(c.dir, "agency-content-*.md")
	if err != nil {
		return "", err
	}
	path = f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if _, err = f.WriteString(text); err != nil {
		_ = f.Close()
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return filepath.Clean(path), nil
}
