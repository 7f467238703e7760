// Package progress tracks file transfer progress for display and telemetry.
package progress

import (
	"io"
	"sync"

	"github.com/ruffel/hecdeploy"
	"github.com/schollz/progressbar/v3"
)

// Snapshot is the progress exposed at one point of a transfer.
type Snapshot struct {
	Transferred int64
	Total       int64
}

// Reporter turns raw transfer callbacks into monotonic progress.
//
// The total reported by the first callback is kept for the rest of the transfer
// and Transferred never decreases, even if a later callback reports less. A
// Reporter is safe for concurrent use and never fails a transfer.
type Reporter struct {
	mu      sync.Mutex
	started bool
	current Snapshot

	record  bool
	history []int64

	barOut  io.Writer
	barDesc string
	bar     *progressbar.ProgressBar
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithBar renders a byte progress bar with the given description to w.
func WithBar(w io.Writer, description string) Option {
	return func(r *Reporter) {
		r.barOut = w
		r.barDesc = description
	}
}

// WithHistory keeps every distinct Transferred value for History.
func WithHistory() Option {
	return func(r *Reporter) {
		r.record = true
	}
}

// New creates a Reporter.
func New(opts ...Option) *Reporter {
	r := &Reporter{}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Callback returns the Reporter as a transfer progress callback.
func (r *Reporter) Callback() hecdeploy.ProgressFunc {
	return r.Update
}

// Update records a raw progress callback.
func (r *Reporter) Update(current, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	first := !r.started
	if first {
		r.started = true
		r.current.Total = total

		if r.barOut != nil {
			r.bar = newBar(r.barOut, r.barDesc, total)
		}
	}

	if !first && current <= r.current.Transferred {
		return
	}

	if current > r.current.Transferred {
		r.current.Transferred = current
	}

	if r.record {
		r.history = append(r.history, r.current.Transferred)
	}

	r.render()
}

// Snapshot returns the current progress.
func (r *Reporter) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.current
}

// History returns the distinct Transferred values exposed so far, in order.
// It is empty unless the Reporter was created WithHistory.
func (r *Reporter) History() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]int64(nil), r.history...)
}

// Finish completes the rendered bar, if any.
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

func (r *Reporter) render() {
	if r.bar == nil {
		return
	}

	// Rendering is best effort.
	defer func() { _ = recover() }()

	_ = r.bar.Set64(r.current.Transferred)
}

func newBar(w io.Writer, description string, total int64) *progressbar.ProgressBar {
	if total <= 0 {
		total = -1
	}

	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
