package scanner

import "github.com/feral-file/ff-holder-indexer/internal/domain"

// walker owns the cursor and chunk size of one scan
type walker struct {
	from, to  uint64
	ascending bool
	cursor    uint64
	finished  bool

	size      uint64
	min       uint64
	max       uint64
	growAfter int
	streak    int
}

func newWalker(from, to uint64, cfg Config) *walker {
	w := &walker{
		from:      from,
		to:        to,
		ascending: cfg.Direction == domain.ScanDirectionAsc,
		size:      cfg.DefaultChunkSize,
		min:       cfg.MinChunkSize,
		max:       cfg.MaxChunkSize,
		growAfter: cfg.GrowAfter,
	}
	if w.ascending {
		w.cursor = from
	} else {
		w.cursor = to
	}
	return w
}

func (w *walker) done() bool {
	return w.finished
}

// next returns the chunk at the cursor, truncated at the far bound
func (w *walker) next() domain.BlockRange {
	if w.ascending {
		end := w.to
		if w.to-w.cursor >= w.size {
			end = w.cursor + w.size - 1
		}
		return domain.BlockRange{Start: w.cursor, End: end}
	}

	start := w.from
	if w.cursor-w.from >= w.size {
		start = w.cursor - w.size + 1
	}
	return domain.BlockRange{Start: start, End: w.cursor}
}

func (w *walker) advance(chunk domain.BlockRange) {
	if w.ascending {
		if chunk.End >= w.to {
			w.finished = true
			return
		}
		w.cursor = chunk.End + 1
		return
	}

	if chunk.Start <= w.from {
		w.finished = true
		return
	}
	w.cursor = chunk.Start - 1
}

func (w *walker) succeeded(chunk domain.BlockRange) {
	w.advance(chunk)
	w.streak++
	if w.streak >= w.growAfter && w.size < w.max {
		w.size *= 2
		if w.size > w.max {
			w.size = w.max
		}
		w.streak = 0
	}
}

func (w *walker) skipped(chunk domain.BlockRange) {
	w.advance(chunk)
	w.streak = 0
}

// canShrink reports whether a range error on chunk can be retried smaller
func (w *walker) canShrink(chunk domain.BlockRange) bool {
	return w.size > w.min && chunk.Size() > w.min
}

// shrink halves the size relative to the failed chunk, floored at min.
// The cursor stays put so the same bounds are retried.
func (w *walker) shrink(chunk domain.BlockRange) {
	base := w.size
	if span := chunk.Size(); span < base {
		base = span
	}
	w.size = base / 2
	if w.size < w.min {
		w.size = w.min
	}
	w.streak = 0
}
