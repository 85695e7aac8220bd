// Package view implements the row window state machine (SPEC_FULL.md
// §4.5, §4.5a): RowsView owns the currently displayed window of rows,
// translates Control values into window movement, and indirects through
// an optional filter index list (e.g. from a Finder) so scrolling and
// clamping work identically whether the underlying record set is the
// full file or a filtered subset.
//
// Grounded on original_source/src/view.rs (RowsView: rows_from,
// filter_indices, do_get_rows' equality-short-circuited refetch,
// handle_control's ScrollDown/Up/PageDown/PageUp/Bottom/To dispatch,
// bottom_rows_from's saturating-subtraction clamp) and
// original_source/src/app.rs's App::step handling of ScrollLeft/ScrollRight
// against csv_table_state.cols_offset, including the has_more_cols_to_show
// gate on ScrollRight.
package view

import (
	"time"

	"github.com/YS-L/csvlens-sub000/internal/finder"
	"github.com/YS-L/csvlens-sub000/internal/input"
	"github.com/YS-L/csvlens-sub000/internal/rowprovider"
)

// RowsView owns the displayed window: which rows are visible, how many,
// and (optionally) which subset of the full record set they're drawn
// from.
type RowsView struct {
	provider *rowprovider.RowProvider

	headers []string
	rows    []rowprovider.Row

	numRows  int64
	rowsFrom int64

	filterIndices []int64
	hasFilter     bool

	// rowFilter is the Condition tree behind the active filterIndices, if
	// the filter came from SetRowFilter rather than a plain SetFilter of a
	// precomputed index list (SPEC_FULL.md §4.5a). It's not evaluated
	// here; the caller re-scans to produce filterIndices, exactly as a
	// Finder's growing match set already does for SetFilter.
	rowFilter *finder.Condition

	// freezeCols is the number of leading columns that never scroll
	// horizontally (SPEC_FULL.md §4.5a); view.go only stores it, rendering
	// owns splitting frozen from scrollable columns.
	freezeCols int

	// colsOffset is how many scrollable (non-frozen) columns are hidden
	// off the left edge, moved by ScrollLeft/ScrollRight.
	colsOffset int

	elapsed time.Duration
}

// New opens the initial window [0, numRows) against provider.
func New(provider *rowprovider.RowProvider, numRows int64) (*RowsView, error) {
	v := &RowsView{
		provider: provider,
		headers:  provider.Headers(),
		numRows:  numRows,
	}
	if err := v.doGetRows(); err != nil {
		return nil, err
	}
	return v, nil
}

// Headers returns the full (unfiltered-by-column) header list.
func (v *RowsView) Headers() []string { return v.headers }

// Rows returns the currently fetched window.
func (v *RowsView) Rows() []rowprovider.Row { return v.rows }

// NumRows returns the configured window height.
func (v *RowsView) NumRows() int64 { return v.numRows }

// RowsFrom returns the first record index of the current window (index
// into the filtered subset if a filter is active, else into the full
// file).
func (v *RowsView) RowsFrom() int64 { return v.rowsFrom }

// Elapsed returns how long the most recent refetch took.
func (v *RowsView) Elapsed() time.Duration { return v.elapsed }

// IsFilter reports whether a filter index list is currently active.
func (v *RowsView) IsFilter() bool { return v.hasFilter }

// SetFreezeCols sets the count of leading columns excluded from
// horizontal scrolling.
func (v *RowsView) SetFreezeCols(n int) { v.freezeCols = n }

// FreezeCols returns the current frozen-column count.
func (v *RowsView) FreezeCols() int { return v.freezeCols }

// ColsOffset returns how many scrollable columns are currently hidden off
// the left edge; rendering adds this to freezeCols to find where the
// visible window into the header/row slice starts.
func (v *RowsView) ColsOffset() int { return v.colsOffset }

// hasMoreColsToShow mirrors original_source's CsvTableState::has_more_cols_to_show:
// ScrollRight only advances while there's at least one more scrollable
// column beyond the current offset.
func (v *RowsView) hasMoreColsToShow() bool {
	scrollable := len(v.headers) - v.freezeCols
	if scrollable < 0 {
		scrollable = 0
	}
	return v.colsOffset+1 < scrollable
}

// SetRowFilter installs cond as the active row predicate (SPEC_FULL.md
// §4.5a) and applies indices exactly like SetFilter: the caller (a Finder
// scanning cond via its RowMatcher path) supplies the growing match set,
// and from here it renders through the identical filterIndices
// indirection a plain regex Finder already uses.
func (v *RowsView) SetRowFilter(cond *finder.Condition, indices []int64) error {
	v.rowFilter = cond
	return v.SetFilter(indices)
}

// RowFilter returns the Condition tree behind the active row filter, or
// nil if none is set or the active filter came from a plain SetFilter.
func (v *RowsView) RowFilter() *finder.Condition { return v.rowFilter }

// SetNumRows resizes the window height (e.g. on terminal resize),
// refetching only if the height actually changed.
func (v *RowsView) SetNumRows(numRows int64) error {
	if numRows == v.numRows {
		return nil
	}
	v.numRows = numRows
	return v.doGetRows()
}

// SetFilter installs filterIndices as the active subset, refetching
// unless it's byte-for-byte identical to the one already active (so
// polling a still-scanning Finder doesn't force a refetch on every tick
// once results stop changing).
func (v *RowsView) SetFilter(filterIndices []int64) error {
	if v.hasFilter && sameIndices(v.filterIndices, filterIndices) {
		return nil
	}
	v.filterIndices = append([]int64(nil), filterIndices...)
	v.hasFilter = true
	return v.doGetRows()
}

// InitFilter activates filtering with an empty subset (used the instant a
// find begins, before any match has been found yet).
func (v *RowsView) InitFilter() error {
	return v.SetFilter(nil)
}

// ResetFilter deactivates filtering, returning to the full record set.
func (v *RowsView) ResetFilter() error {
	if !v.hasFilter {
		return nil
	}
	v.hasFilter = false
	v.filterIndices = nil
	v.rowFilter = nil
	return v.doGetRows()
}

func sameIndices(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// InView reports whether rowIndex (a position in the active record set,
// filtered or not) falls within the current window.
func (v *RowsView) InView(rowIndex int64) bool {
	last := v.rowsFrom + v.numRows
	return rowIndex >= v.rowsFrom && rowIndex < last
}

// HandleControl applies the scrolling variants of Control (ScrollUp/Down,
// page variants, ScrollBottom/Top, ScrollLeft/Right, ScrollTo); other
// Control kinds are a no-op here (they belong to the find/goto dispatch
// one layer up).
func (v *RowsView) HandleControl(c input.Control) error {
	switch c.Kind {
	case input.ScrollDown:
		return v.increaseRowsFrom(1)
	case input.ScrollPageDown:
		return v.increaseRowsFrom(v.numRows)
	case input.ScrollUp:
		return v.decreaseRowsFrom(1)
	case input.ScrollPageUp:
		return v.decreaseRowsFrom(v.numRows)
	case input.ScrollBottom:
		if total, ok := v.getTotal(); ok {
			rowsFrom := total - v.numRows
			if rowsFrom < 0 {
				rowsFrom = 0
			}
			return v.SetRowsFrom(rowsFrom)
		}
		return nil
	case input.ScrollTop:
		return v.SetRowsFrom(0)
	case input.ScrollLeft:
		if v.colsOffset > 0 {
			v.colsOffset--
		}
		return nil
	case input.ScrollRight:
		if v.hasMoreColsToShow() {
			v.colsOffset++
		}
		return nil
	case input.ScrollTo:
		rowsFrom := int64(c.Goto) - 1
		if rowsFrom < 0 {
			rowsFrom = 0
		}
		if bottom, ok := v.bottomRowsFrom(); ok && rowsFrom > bottom {
			rowsFrom = bottom
		}
		return v.SetRowsFrom(rowsFrom)
	}
	return nil
}

// SetRowsFrom jumps directly to rowsFrom, clamped to the bottom of the
// active record set, refetching only if it actually changes.
func (v *RowsView) SetRowsFrom(rowsFrom int64) error {
	if bottom, ok := v.bottomRowsFrom(); ok && rowsFrom > bottom {
		rowsFrom = bottom
	}
	if rowsFrom == v.rowsFrom {
		return nil
	}
	v.rowsFrom = rowsFrom
	return v.doGetRows()
}

func (v *RowsView) increaseRowsFrom(delta int64) error {
	next := v.rowsFrom + delta
	return v.SetRowsFrom(next)
}

func (v *RowsView) decreaseRowsFrom(delta int64) error {
	next := v.rowsFrom - delta
	if next < 0 {
		next = 0
	}
	return v.SetRowsFrom(next)
}

func (v *RowsView) getTotal() (int64, bool) {
	if v.hasFilter {
		return int64(len(v.filterIndices)), true
	}
	if n, ok := v.provider.GetTotalLineNumbers(); ok {
		return n, true
	}
	if n := v.provider.GetTotalLineNumbersApprox(); n > 0 {
		return n, true
	}
	return 0, false
}

func (v *RowsView) bottomRowsFrom() (int64, bool) {
	total, ok := v.getTotal()
	if !ok {
		return 0, false
	}
	bottom := total - v.numRows
	if bottom < 0 {
		bottom = 0
	}
	return bottom, true
}

// GetTotalLineNumbers and GetTotalLineNumbersApprox forward to the
// provider, for status-line rendering.
func (v *RowsView) GetTotalLineNumbers() (int64, bool) { return v.provider.GetTotalLineNumbers() }
func (v *RowsView) GetTotalLineNumbersApprox() int64   { return v.provider.GetTotalLineNumbersApprox() }

func (v *RowsView) doGetRows() error {
	start := time.Now()
	var rows []rowprovider.Record
	var err error

	if v.hasFilter {
		startIdx := int(v.rowsFrom)
		if startIdx > len(v.filterIndices)-1 {
			startIdx = len(v.filterIndices) - 1
		}
		if startIdx < 0 {
			startIdx = 0
		}
		end := startIdx + int(v.numRows)
		if end > len(v.filterIndices) {
			end = len(v.filterIndices)
		}
		if startIdx < end {
			rows, err = v.provider.GetRowsForIndices(v.filterIndices[startIdx:end])
		}
	} else {
		rows, err = v.provider.GetRows(v.rowsFrom, v.numRows)
	}
	if err != nil {
		return err
	}

	out := make([]rowprovider.Row, len(rows))
	for i, r := range rows {
		out[i] = r.ToRow()
	}
	v.rows = out
	v.elapsed = time.Since(start)
	return nil
}
