package mock

import (
	"bytes"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ruffel/hecdeploy"
)

var _ hecdeploy.Shell = (*Shell)(nil)

// Shell is a fake interactive login shell.
//
// Output is buffered internally, so reads block until the shell has printed
// something or the shell is closed. Every complete input line is echoed back
// (as a terminal with ECHO enabled would), followed by the result of each
// ";"-separated "echo" statement with $VARS expanded, followed by the prompt.
// Inside "(set -u; ...)" an undefined variable is reported as bash does.
type Shell struct {
	// Prompt is printed after the banner and after every command.
	Prompt string
	// Mute makes the shell echo input without ever answering it.
	Mute bool

	mu       sync.Mutex
	cond     *sync.Cond
	out      bytes.Buffer
	in       []byte
	vars     map[string]string
	lines    []string
	closed   bool
	closeCnt int
}

// NewShell returns a shell that has already printed banner.
func NewShell(banner string, vars map[string]string) *Shell {
	s := &Shell{
		Prompt: "$ ",
		vars:   vars,
	}
	s.cond = sync.NewCond(&s.mu)
	s.out.WriteString(banner)

	return s
}

// Read blocks until output is available or the shell is closed.
func (s *Shell) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.out.Len() == 0 && !s.closed {
		s.cond.Wait()
	}

	if s.out.Len() == 0 {
		return 0, io.EOF
	}

	return s.out.Read(p)
}

// Write types p into the shell.
func (s *Shell) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, io.ErrClosedPipe
	}

	s.in = append(s.in, p...)

	for {
		i := bytes.IndexByte(s.in, '\n')
		if i < 0 {
			break
		}

		line := strings.TrimRight(string(s.in[:i]), "\r")
		s.in = s.in[i+1:]
		s.handle(line)
	}

	s.cond.Broadcast()

	return len(p), nil
}

// Close terminates the shell. Pending and future reads return io.EOF.
func (s *Shell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.closeCnt++
	s.cond.Broadcast()

	return nil
}

// Lines returns every line typed into the shell so far.
func (s *Shell) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.lines...)
}

// Closed reports how many times Close was called.
func (s *Shell) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closeCnt
}

func (s *Shell) handle(line string) {
	s.lines = append(s.lines, line)
	s.out.WriteString(line + "\r\n")

	if s.Mute {
		return
	}

	// Only the forms the resolver types are understood: plain echo statements,
	// optionally inside "(set -u; ...) 2>&1".
	strict := false

	for _, stmt := range strings.Split(line, ";") {
		stmt = strings.TrimSpace(stmt)

		endSubshell := strings.HasSuffix(stmt, ") 2>&1")
		stmt = strings.TrimSuffix(stmt, ") 2>&1")
		stmt = strings.TrimPrefix(stmt, "(")

		switch {
		case stmt == "set -u":
			strict = true
		case strings.HasPrefix(stmt, "echo "):
			s.echo(strings.TrimPrefix(stmt, "echo "), strict)
		}

		if endSubshell {
			strict = false
		}
	}

	s.out.WriteString(s.Prompt)
}

// echo prints arg with $VARS expanded. With strict set, an undefined variable
// prints the error bash gives under nounset instead.
func (s *Shell) echo(arg string, strict bool) {
	arg = strings.Trim(strings.TrimSpace(arg), `"`)

	var unset string

	expanded := os.Expand(arg, func(name string) string {
		v, ok := s.vars[name]
		if !ok && unset == "" {
			unset = name
		}

		return v
	})

	if strict && unset != "" {
		s.out.WriteString("bash: " + unset + ": unbound variable\r\n")

		return
	}

	s.out.WriteString(expanded + "\r\n")
}
