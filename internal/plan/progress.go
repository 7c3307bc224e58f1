package plan

import "sync"

// progress forwards monotonic values in [0, 100] to a callback. It is safe for the
// concurrent tier loads.
type progress struct {
	mu   sync.Mutex
	last int
	fn   func(int)
}

func newProgress(fn func(int)) *progress {
	return &progress{last: -1, fn: fn}
}

func (p *progress) report(v int) {
	if p == nil || p.fn == nil {
		return
	}
	v = min(max(v, 0), progressDone)

	p.mu.Lock()
	defer p.mu.Unlock()
	if v <= p.last {
		return
	}
	p.last = v
	p.fn(v)
}
