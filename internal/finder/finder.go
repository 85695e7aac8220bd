// Package finder implements the background regex scanner (SPEC_FULL.md
// §4.2): it iterates every record of a RowProvider on its own goroutine,
// accumulating an ordered, cancellable, incrementally growing match set
// with cursor navigation, while the UI thread keeps polling
// constant-time/lock-bounded getters.
//
// Grounded on original_source/src/find.rs (FoundRecord, the sorted match
// vector, cursor+hint via next_from/prev_from, should_terminate,
// drop-triggered cancellation) translated into an owned goroutine guarded
// by a single mutex plus an atomic cancel flag, per the "own worker +
// shared state guarded by one mutex + atomic cancel" idiom SPEC_FULL.md §9
// calls out across Finder and Sorter alike.
package finder

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/YS-L/csvlens-sub000/internal/rowprovider"
)

// FoundRecord is a single match: the record it was found in, its position
// under the active sort (or its record index if none), and the non-empty,
// ordered set of column indices that matched.
type FoundRecord struct {
	RecordIndex   int64
	RowOrder      int64
	ColumnsMatched []int
}

// RowOrderSource lets a Finder consult an attached Sorter for the row
// order of a record without importing internal/sorter directly (avoiding
// a dependency cycle; cmd/csvlens wires the two together).
type RowOrderSource interface {
	RecordOrder(recordIndex int64) (int64, bool)
}

// State mirrors the Finder state machine named in SPEC_FULL.md §4.2.
type State int

const (
	Scanning State = iota
	ScanningWithCursor
	Done
	DoneWithCursor
	Cancelled
)

const scanBatchSize = 500

// Finder scans a RowProvider in the background for records matching a
// regular expression, either against one configured column or against
// every field.
type Finder struct {
	provider   *rowprovider.RowProvider
	matcher    FieldMatcher
	column     *int
	rowMatcher RowMatcher
	order      RowOrderSource

	mu      sync.Mutex
	matches []FoundRecord
	done    bool
	elapsed time.Duration
	cursor  *int
	hint    int64

	terminate atomic.Bool
	wg        sync.WaitGroup
}

// FieldMatcher decides whether a field value matches. *regexp.Regexp
// satisfies this directly via MatchString.
type FieldMatcher interface {
	MatchString(string) bool
}

// RowMatcher matches an entire record at once, returning the ordered
// column indices that matched. *finder.Condition (predicate.go)
// implements this, letting a Finder scan by a SPEC_FULL.md §4.2a/§4.5a
// predicate tree instead of a single regex/column pair — the path
// RowsView.SetRowFilter's interactive row filtering uses.
type RowMatcher interface {
	MatchedColumns(cols []string) []int
}

// New spawns the background scan immediately. column, if non-nil,
// restricts matching to a single field index; order, if non-nil, supplies
// row_order from an attached Sorter.
func New(provider *rowprovider.RowProvider, matcher FieldMatcher, column *int, order RowOrderSource) *Finder {
	f := &Finder{
		provider: provider,
		matcher:  matcher,
		column:   column,
		order:    order,
	}
	f.wg.Add(1)
	go f.run()
	return f
}

// NewCondition spawns a background scan driven by a RowMatcher (typically
// a *finder.Condition tree) instead of a single regex, so the whole row
// is evaluated at once per SPEC_FULL.md §4.5a's row-filter semantics.
func NewCondition(provider *rowprovider.RowProvider, matcher RowMatcher, order RowOrderSource) *Finder {
	f := &Finder{
		provider:   provider,
		rowMatcher: matcher,
		order:      order,
	}
	f.wg.Add(1)
	go f.run()
	return f
}

func (f *Finder) run() {
	defer f.wg.Done()
	start := time.Now()

	var rowsFrom int64
	for {
		if f.terminate.Load() {
			f.finish(start)
			return
		}

		batch, err := f.provider.GetRows(rowsFrom, scanBatchSize)
		if err != nil || len(batch) == 0 {
			f.finish(start)
			return
		}

		for _, rec := range batch {
			if f.terminate.Load() {
				f.finish(start)
				return
			}
			f.scanRecord(rec)
		}
		rowsFrom += int64(len(batch))

		if len(batch) < scanBatchSize {
			f.finish(start)
			return
		}
	}
}

func (f *Finder) scanRecord(rec rowprovider.Record) {
	var cols []int
	switch {
	case f.rowMatcher != nil:
		cols = f.rowMatcher.MatchedColumns(rec.Fields)
	case f.column != nil:
		if *f.column < len(rec.Fields) && f.matcher.MatchString(rec.Fields[*f.column]) {
			cols = []int{*f.column}
		}
	default:
		for i, v := range rec.Fields {
			if f.matcher.MatchString(v) {
				cols = append(cols, i)
			}
		}
	}
	if len(cols) == 0 {
		return
	}

	rowOrder := rec.Index
	if f.order != nil {
		if ro, ok := f.order.RecordOrder(rec.Index); ok {
			rowOrder = ro
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	// Insertion sort into the sorted-by-row_order set: ties by record
	// index preserve a stable total order.
	idx := sort.Search(len(f.matches), func(i int) bool {
		return f.matches[i].RowOrder >= rowOrder
	})
	f.matches = append(f.matches, FoundRecord{})
	copy(f.matches[idx+1:], f.matches[idx:])
	f.matches[idx] = FoundRecord{RecordIndex: rec.Index, RowOrder: rowOrder, ColumnsMatched: cols}
}

func (f *Finder) finish(start time.Time) {
	f.mu.Lock()
	f.done = true
	f.elapsed = time.Since(start)
	f.mu.Unlock()
}

// Terminate flips the cancellation flag; the worker checks it at least
// once per record and exits promptly without forced interruption. Calling
// it more than once is safe (idempotent).
func (f *Finder) Terminate() {
	f.terminate.Store(true)
}

// Wait blocks until the worker goroutine has exited. Used by owners
// (RowsView) tearing down an attached Finder.
func (f *Finder) Wait() {
	f.wg.Wait()
}

// Count returns the number of matches found so far.
func (f *Finder) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.matches)
}

// Done reports whether the scan has finished (including by cancellation).
func (f *Finder) Done() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// Elapsed returns the scan duration once finished; zero beforehand.
func (f *Finder) Elapsed() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.elapsed
}

// State computes the Finder's current state machine value.
func (f *Finder) State() State {
	f.mu.Lock()
	done, hasCursor := f.done, f.cursor != nil
	f.mu.Unlock()

	if f.terminate.Load() && done {
		return Cancelled
	}
	switch {
	case done && hasCursor:
		return DoneWithCursor
	case done:
		return Done
	case hasCursor:
		return ScanningWithCursor
	default:
		return Scanning
	}
}

// Cursor returns the current cursor index into the ordered match set, if
// positioned.
func (f *Finder) Cursor() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cursor == nil {
		return 0, false
	}
	return *f.cursor, true
}

// ResetCursor clears the cursor.
func (f *Finder) ResetCursor() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursor = nil
}

// SetRowHint stores the hint used the next time the cursor is first
// positioned by Next/Prev (SPEC_FULL.md §9, "cursor-with-hint idiom").
func (f *Finder) SetRowHint(hint int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hint = hint
}

// Next advances the cursor and returns the match now under it. If the
// cursor is unset, it positions at the first match with row_order >= hint
// (saturating to the last match); otherwise it advances by one, saturating
// at count-1. Returns false if there are no matches at all.
func (f *Finder) Next() (FoundRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.matches) == 0 {
		return FoundRecord{}, false
	}
	if f.cursor == nil {
		pos := sort.Search(len(f.matches), func(i int) bool {
			return f.matches[i].RowOrder >= f.hint
		})
		if pos >= len(f.matches) {
			pos = len(f.matches) - 1
		}
		f.cursor = &pos
	} else {
		next := *f.cursor + 1
		if next > len(f.matches)-1 {
			next = len(f.matches) - 1
		}
		f.cursor = &next
	}
	return f.matches[*f.cursor], true
}

// Prev is symmetric to Next, saturating at 0.
func (f *Finder) Prev() (FoundRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.matches) == 0 {
		return FoundRecord{}, false
	}
	if f.cursor == nil {
		pos := sort.Search(len(f.matches), func(i int) bool {
			return f.matches[i].RowOrder >= f.hint
		})
		if pos >= len(f.matches) {
			pos = len(f.matches) - 1
		}
		f.cursor = &pos
	} else {
		prev := *f.cursor - 1
		if prev < 0 {
			prev = 0
		}
		f.cursor = &prev
	}
	return f.matches[*f.cursor], true
}

// Current returns the match at the cursor, if any.
func (f *Finder) Current() (FoundRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cursor == nil || len(f.matches) == 0 {
		return FoundRecord{}, false
	}
	return f.matches[*f.cursor], true
}

// GetSubset returns the record indices of matches in [offset, offset+num),
// suitable for use as a RowsView filter-index list.
func (f *Finder) GetSubset(offset, num int) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	end := offset + num
	if end > len(f.matches) {
		end = len(f.matches)
	}
	if offset >= end {
		return nil
	}
	out := make([]int64, 0, end-offset)
	for _, m := range f.matches[offset:end] {
		out = append(out, m.RecordIndex)
	}
	return out
}
