package pipeline

import (
	"log/slog"
	"sync/atomic"
)

// progressCounter logs every `every`-th call to Tick, a best-effort accuracy
// under concurrent writers (spec.md §5's "atomic integer, best-effort
// accuracy, races allowed"). Tick is race-free (atomic.Int64): Add hands
// each caller a distinct count, so every multiple of `every` is logged
// exactly once, by whichever worker reached it; only the order of log
// lines across workers depends on interleaving.
//
// spec.md §9 flags the original's `counter % 100000` check as almost
// certainly an inverted condition (it logs on every count that is *not* a
// multiple of 100000). This reimplementation uses the intended `== 0` test.
type progressCounter struct {
	n     atomic.Int64
	every int64
	log   *slog.Logger
	label string
}

func newProgressCounter(log *slog.Logger, label string, every int) *progressCounter {
	if every <= 0 {
		every = 100000
	}
	return &progressCounter{every: int64(every), log: log, label: label}
}

func (p *progressCounter) Tick() {
	n := p.n.Add(1)
	if n%p.every == 0 {
		p.log.Info("progress", slog.String("pass", p.label), slog.Int64("count", n))
	}
}
