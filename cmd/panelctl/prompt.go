package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter asks the user for input.
type prompter interface {
	Line(label string) (string, error)
	Secret(label string) (string, error)
}

// termPrompter reads from stdin, hiding secrets when stdin is a terminal.
type termPrompter struct {
	in  *os.File
	out io.Writer
	r   *bufio.Reader
}

func newTermPrompter(in *os.File, out io.Writer) *termPrompter {
	return &termPrompter{in: in, out: out, r: bufio.NewReader(in)}
}

func (p *termPrompter) Line(label string) (string, error) {
	_, _ = fmt.Fprint(p.out, label)
	return p.readLine()
}

func (p *termPrompter) Secret(label string) (string, error) {
	_, _ = fmt.Fprint(p.out, label)
	fd := int(p.in.Fd())
	if !term.IsTerminal(fd) {
		return p.readLine()
	}
	b, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func (p *termPrompter) readLine() (string, error) {
	s, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(s, "\r\n"), nil
}
