package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads answers from stdin. Secrets are read without echo when stdin
// is a terminal.
type prompter struct {
	file *os.File
	r    *bufio.Reader
}

func newPrompter(in io.Reader) *prompter {
	if in == nil {
		in = strings.NewReader("")
	}
	p := &prompter{r: bufio.NewReader(in)}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.file = f
	}
	return p
}

func (p *prompter) line(w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	s, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		if errors.Is(err, io.EOF) {
			return "", usagef("no input for %q", strings.TrimSpace(strings.TrimSuffix(label, ": ")))
		}
		return "", err
	}
	return strings.TrimSpace(s), nil
}

func (p *prompter) secret(w io.Writer, label string) (string, error) {
	if p.file == nil {
		return p.line(w, label)
	}
	fmt.Fprint(w, label)
	b, err := term.ReadPassword(int(p.file.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// confirm asks a yes/no question; anything but y/yes is no.
func (p *prompter) confirm(w io.Writer, question string) (bool, error) {
	ans, err := p.line(w, question+" [y/N] ")
	if err != nil {
		var u usageError
		if errors.As(err, &u) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(ans) {
	case "y", "yes", "s", "si", "sí":
		return true, nil
	}
	return false, nil
}
