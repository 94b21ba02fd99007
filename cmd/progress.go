package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const progressRedraw = 250 * time.Millisecond

// progressPrinter redraws one status line on stderr while a batch runs, so
// JSON on stdout stays clean.
type progressPrinter struct {
	out   io.Writer
	label string
	total int
	now   func() time.Time

	mu      sync.Mutex
	started time.Time
	ok      int
	failed  int
	elapsed time.Duration // summed per-target durations
	width   int           // length of the last line drawn

	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func newProgressPrinter(out io.Writer, total int, label string) *progressPrinter {
	return &progressPrinter{
		out:     out,
		label:   label,
		total:   max(total, 1),
		now:     time.Now,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins redrawing on a ticker.
func (p *progressPrinter) Start() {
	p.mu.Lock()
	p.started = p.now()
	p.mu.Unlock()

	go func() {
		defer close(p.stopped)
		ticker := time.NewTicker(progressRedraw)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.redraw(false)
			case <-p.stop:
				return
			}
		}
	}()
}

// Increment records one finished target; seconds is how long it took.
func (p *progressPrinter) Increment(success bool, seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if success {
		p.ok++
	} else {
		p.failed++
	}
	p.elapsed += time.Duration(seconds * float64(time.Second))
}

// Stop ends the redraw loop and leaves the final line on screen. Extra
// calls do nothing.
func (p *progressPrinter) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
		<-p.stopped
		p.redraw(true)
	})
}

func (p *progressPrinter) redraw(final bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := p.line()
	pad := ""
	if n := p.width - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	p.width = len(line)

	fmt.Fprintf(p.out, "\r%s%s", line, pad)
	if final {
		fmt.Fprintln(p.out)
	}
}

func (p *progressPrinter) line() string {
	done := p.ok + p.failed
	total := max(p.total, done)

	var avg float64
	if done > 0 {
		avg = p.elapsed.Seconds() / float64(done)
	}
	line := fmt.Sprintf("[%s] Progress: %d/%d (%.1f%%) OK:%d Fail:%d Avg:%.2fs",
		p.label, done, total, float64(done)/float64(total)*100, p.ok, p.failed, avg)

	// wall-clock rate, since targets run in parallel
	if done > 0 && done < total && !p.started.IsZero() {
		perTarget := p.now().Sub(p.started) / time.Duration(done)
		eta := perTarget * time.Duration(total-done)
		line += fmt.Sprintf(" ETA:%s", eta.Round(time.Second))
	}
	return line
}
