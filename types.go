package hecdeploy

import (
	"io"
	"strings"
	"time"

	"github.com/google/shlex"
)

// Command describes one process to run, locally or on the cluster.
type Command struct {
	Cmd  string   // Program name, looked up on the target's PATH
	Args []string // Arguments, passed verbatim
	Env  []string // Extra "KEY=VALUE" pairs on top of the target's environment
	Dir  string   // Working directory; empty keeps the target's default

	// Nil streams are read as empty and written to nowhere.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Tty requests a pseudo-terminal. Only remote sessions support it.
	Tty bool
}

// Validate reports a nil command or one without a program name.
func (c *Command) Validate() error {
	if c == nil {
		return &ValidationError{Field: "command", Reason: "command is nil"}
	}

	if strings.TrimSpace(c.Cmd) == "" {
		return &ValidationError{Field: "command", Value: c.Cmd, Reason: "program name is empty"}
	}

	return nil
}

// NewCommand creates a Command running binary with args.
func NewCommand(binary string, args ...string) *Command {
	return &Command{
		Cmd:  binary,
		Args: args,
	}
}

// String renders the command line as a POSIX shell would read it, quoting only
// the words that need it. It is meant for logs and error messages.
func (c *Command) String() string {
	words := make([]string, 0, len(c.Args)+1)
	words = append(words, c.Cmd)

	for _, arg := range c.Args {
		words = append(words, quoteWord(arg))
	}

	return strings.Join(words, " ")
}

// ParseCommand splits a command line with shell quoting rules, as found in
// settings such as env_export_command.
func ParseCommand(line string) (*Command, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return nil, &ValidationError{Field: "command line", Value: line, Reason: err.Error()}
	}

	if len(words) == 0 {
		return nil, &ValidationError{Field: "command line", Value: line, Reason: "no program name"}
	}

	return NewCommand(words[0], words[1:]...), nil
}

// Result describes a finished command.
type Result struct {
	ExitCode int           // 0 on success
	Duration time.Duration // Wall time from start to exit
	Error    error         // Transport failure, if any; never set for a plain non-zero exit
}

// BufferedResult is a Result with the captured output, as returned by
// Executor.RunBuffered.
type BufferedResult struct {
	Result

	Stdout []byte
	Stderr []byte
}

const safeChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_./=:,+@%"

func quoteWord(s string) string {
	if s == "" {
		return "''"
	}

	if strings.Trim(s, safeChars) == "" {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
