package rowprovider

// Record is a single parsed data record: an ordered sequence of field
// values, plus its stable, 0-based position in file order (headers
// excluded). See SPEC_FULL.md §3.
type Record struct {
	Index  int64
	Fields []string
}

// Row is a Record dressed up for display: a 1-based record number and the
// field list. Highlight ranges are attached by the view/UI layer, not here.
type Row struct {
	RecordNum int64
	Fields    []string
}

// ToRow converts a Record into its display Row.
func (r Record) ToRow() Row {
	return Row{RecordNum: r.Index + 1, Fields: r.Fields}
}
