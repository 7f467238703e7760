package remotepath

import (
	"context"
	"io"
	"strings"
	"time"
)

// pump moves shell output onto a channel so reads can be bounded by timers.
type pump struct {
	chunks chan []byte
	done   chan struct{}
}

func startPump(r io.Reader) *pump {
	p := &pump{
		chunks: make(chan []byte, 64),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(p.chunks)

		buf := make([]byte, 4096)

		for {
			n, err := r.Read(buf)
			if n > 0 {
				select {
				case p.chunks <- append([]byte(nil), buf[:n]...):
				case <-p.done:
					return
				}
			}

			if err != nil {
				return
			}
		}
	}()

	return p
}

func (p *pump) stop() {
	close(p.done)
}

// drain discards output until the shell has been quiet for settle. Output that
// never goes quiet is abandoned after limit.
func (p *pump) drain(ctx context.Context, settle, limit time.Duration) error {
	quiet := time.NewTimer(settle)
	defer quiet.Stop()

	deadline := time.NewTimer(limit)
	defer deadline.Stop()

	for {
		select {
		case _, ok := <-p.chunks:
			if !ok {
				return ErrShellClosed
			}

			quiet.Reset(settle)
		case <-quiet.C:
			return nil
		case <-deadline.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// readUntil collects output until a complete line equals marker.
func (p *pump) readUntil(ctx context.Context, marker string, timeout time.Duration) ([]string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var buf strings.Builder

	for {
		select {
		case chunk, ok := <-p.chunks:
			if !ok {
				return nil, ErrShellClosed
			}

			buf.Write(chunk)

			lines := cleanLines(buf.String())
			for _, line := range lines {
				if strings.TrimSpace(line) == marker {
					return lines, nil
				}
			}
		case <-timer.C:
			return nil, ErrTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
