package remotepath

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"
	"github.com/ruffel/hecdeploy"
	"go.uber.org/zap"
)

const (
	// DefaultSettle is how long the shell must stay silent before the banner is
	// considered fully printed.
	DefaultSettle = 500 * time.Millisecond
	// DefaultTimeout bounds each request/response exchange.
	DefaultTimeout = 10 * time.Second
	// DefaultAttempts is the number of exchanges tried before giving up.
	DefaultAttempts = 3
)

var (
	// ErrNoAnswer means the shell finished responding but the echoed command, or
	// the line after it, was not found.
	ErrNoAnswer = errors.New("no answer found in shell output")
	// ErrNotAbsolute means the shell answered with something other than an absolute path.
	ErrNotAbsolute = errors.New("shell did not answer with an absolute path")
	// ErrShellClosed means the shell ended before answering.
	ErrShellClosed = errors.New("shell closed before answering")
	// ErrTimeout means the end-of-response marker did not arrive in time.
	ErrTimeout = errors.New("timed out waiting for shell response")
	// ErrUnsetVariable means the path references a variable the remote shell does not define.
	ErrUnsetVariable = errors.New("variable is not set in the remote shell")
)

// IsSymbolic reports whether p starts with a variable reference.
func IsSymbolic(p string) bool {
	return strings.HasPrefix(p, "$")
}

// Resolver resolves symbolic paths over an interactive shell.
type Resolver struct {
	settle   time.Duration
	timeout  time.Duration
	attempts int
	logger   *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSettle sets how long the shell must be quiet before the first request.
func WithSettle(d time.Duration) Option {
	return func(r *Resolver) {
		r.settle = d
	}
}

// WithTimeout bounds each exchange with the shell.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		r.timeout = d
	}
}

// WithAttempts sets the number of exchanges tried before giving up.
func WithAttempts(n int) Option {
	return func(r *Resolver) {
		r.attempts = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// New returns a Resolver with default timings.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		settle:   DefaultSettle,
		timeout:  DefaultTimeout,
		attempts: DefaultAttempts,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.attempts < 1 {
		r.attempts = 1
	}

	return r
}

// Resolve returns p unchanged if it is literal, without calling open. Otherwise it
// opens a shell, asks it to expand p and closes the shell again. Every failure is
// reported as a *hecdeploy.ResolutionError.
func (r *Resolver) Resolve(ctx context.Context, p string, open hecdeploy.ShellOpener) (string, error) {
	if !IsSymbolic(p) {
		return p, nil
	}

	sh, err := open(ctx)
	if err != nil {
		return "", &hecdeploy.ResolutionError{Path: p, Err: fmt.Errorf("failed to open shell: %w", err)}
	}

	defer func() { _ = sh.Close() }()

	resolved, err := r.resolve(ctx, p, sh)
	if err != nil {
		return "", &hecdeploy.ResolutionError{Path: p, Err: err}
	}

	r.logger.Debug("resolved remote path", zap.String("path", p), zap.String("resolved", resolved))

	return resolved, nil
}

func (r *Resolver) resolve(ctx context.Context, p string, sh hecdeploy.Shell) (string, error) {
	out := startPump(sh)
	defer out.stop()

	if err := out.drain(ctx, r.settle, r.timeout); err != nil {
		return "", err
	}

	var lastErr error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		answer, err := r.exchange(ctx, p, sh, out)
		if err == nil {
			return answer, nil
		}

		r.logger.Debug("remote path exchange failed",
			zap.String("path", p),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		lastErr = err

		if errors.Is(err, ErrShellClosed) || errors.Is(err, ErrUnsetVariable) || ctx.Err() != nil {
			break
		}
	}

	return "", lastErr
}

// exchange sends one echo request and parses its answer. The expansion runs in
// a subshell with nounset, so an undefined variable prints an error instead of
// expanding to nothing.
func (r *Resolver) exchange(ctx context.Context, p string, sh io.Writer, out *pump) (string, error) {
	marker := "__HECDEPLOY_" + strings.ReplaceAll(uuid.NewString(), "-", "") + "__"
	request := fmt.Sprintf(`(set -u; echo "%s") 2>&1; echo %s`, p, marker)

	if _, err := io.WriteString(sh, request+"\n"); err != nil {
		return "", fmt.Errorf("failed to write to shell: %w", err)
	}

	lines, err := out.readUntil(ctx, marker, r.timeout)
	if err != nil {
		return "", err
	}

	return answerAfter(lines, request, marker)
}

// answerAfter finds the echoed request (possibly prefixed by a prompt) and
// returns the line that follows it.
func answerAfter(lines []string, request, marker string) (string, error) {
	for i, line := range lines {
		if !strings.HasSuffix(strings.TrimRight(line, " "), request) {
			continue
		}

		if i+1 >= len(lines) {
			break
		}

		answer := strings.TrimSpace(lines[i+1])
		if answer == marker || answer == "" {
			return "", ErrNotAbsolute
		}

		if strings.Contains(answer, "unbound variable") || strings.Contains(answer, "parameter not set") {
			return "", fmt.Errorf("%w: %s", ErrUnsetVariable, answer)
		}

		if !path.IsAbs(answer) {
			return "", fmt.Errorf("%w: %q", ErrNotAbsolute, answer)
		}

		return path.Clean(answer), nil
	}

	return "", ErrNoAnswer
}

// cleanLines strips terminal escape sequences and carriage returns and splits s into lines.
func cleanLines(s string) []string {
	s = ansi.Strip(s)
	s = strings.ReplaceAll(s, "\r", "")

	return strings.Split(s, "\n")
}
