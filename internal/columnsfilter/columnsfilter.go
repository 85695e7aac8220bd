// Package columnsfilter implements the header-regex column projection
// (SPEC_FULL.md §4.4): a compiled pattern is matched against column
// headers once at construction, producing the subset of column indices to
// display, with a documented degenerate fallback to "show everything"
// when the pattern matches no header at all.
//
// Grounded on original_source/src/columns_filter.rs (ColumnsFilter), kept
// as a small immutable value type the way the teacher's
// internal/query/filter.go resolves a WHERE clause's column references
// once against a schema rather than by name on every row.
package columnsfilter

import "regexp"

// ColumnsFilter is the result of matching pattern against one set of
// headers.
type ColumnsFilter struct {
	pattern              *regexp.Regexp
	indices              []int
	filteredHeaders      []string
	filteredFlags        []bool
	numColumnsBeforeFilter int
	disabledBecauseNoMatch bool
}

// New matches pattern against every header, in order. If no header
// matches, the filter disables itself and exposes every column
// unfiltered (disabledBecauseNoMatch reports this).
func New(pattern *regexp.Regexp, headers []string) *ColumnsFilter {
	var indices []int
	var filteredHeaders []string
	filteredFlags := make([]bool, len(headers))

	for i, header := range headers {
		if pattern.MatchString(header) {
			indices = append(indices, i)
			filteredHeaders = append(filteredHeaders, header)
			filteredFlags[i] = true
		}
	}

	disabledBecauseNoMatch := false
	if len(indices) == 0 {
		indices = make([]int, len(headers))
		filteredHeaders = make([]string, len(headers))
		for i, h := range headers {
			indices[i] = i
			filteredHeaders[i] = h
		}
		disabledBecauseNoMatch = true
	}

	return &ColumnsFilter{
		pattern:                pattern,
		indices:                indices,
		filteredHeaders:        filteredHeaders,
		filteredFlags:          filteredFlags,
		numColumnsBeforeFilter: len(headers),
		disabledBecauseNoMatch: disabledBecauseNoMatch,
	}
}

// FilteredHeaders returns the headers of the columns to display, in
// display order.
func (c *ColumnsFilter) FilteredHeaders() []string { return c.filteredHeaders }

// Indices returns the original column indices corresponding to
// FilteredHeaders, in the same order.
func (c *ColumnsFilter) Indices() []int { return c.indices }

// Pattern returns the compiled pattern the filter was built from.
func (c *ColumnsFilter) Pattern() *regexp.Regexp { return c.pattern }

// NumFiltered returns the number of columns selected for display.
func (c *ColumnsFilter) NumFiltered() int { return len(c.indices) }

// NumOriginal returns the column count the filter was built against.
func (c *ColumnsFilter) NumOriginal() int { return c.numColumnsBeforeFilter }

// DisabledBecauseNoMatch reports whether the pattern matched no header at
// all, in which case every column is shown unfiltered.
func (c *ColumnsFilter) DisabledBecauseNoMatch() bool { return c.disabledBecauseNoMatch }

// IsColumnFiltered reports whether the original column at index matched
// the pattern.
func (c *ColumnsFilter) IsColumnFiltered(index int) bool {
	if index < 0 || index >= len(c.filteredFlags) {
		return false
	}
	return c.filteredFlags[index]
}
