// Package rowprovider implements the re-openable, seekable record reader
// (SPEC_FULL.md §4.1, §4.1a): it serves bounded windows of records from a
// file that may still be growing, fabricates headers when none are
// configured, and estimates total record counts without requiring a full
// scan on every call.
//
// Architecture note (see DESIGN.md "Open design decisions"): this package
// deliberately does NOT reuse the teacher's mmap-based
// internal/indexer.Scanner. mmap assumes a fixed-size snapshot; a
// RowProvider's file may grow between calls, so every call instead opens
// its own *os.File and seeks to the nearest known checkpoint
// (SparseOffsetIndex), tolerating growth the way a plain re-open does.
package rowprovider

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/YS-L/csvlens-sub000/internal/config"
)

// rowCacheBudgetBytes bounds the row-window cache's memory use.
const rowCacheBudgetBytes = 8 * 1024 * 1024

// Stats exposes debug-surface counters (SPEC_FULL.md §3.1) — read-only to
// the UI, populated as a side effect of normal scanning.
type Stats struct {
	ParseErrors  uint64
	BytesScanned uint64
	IndexBlocks  uint64
}

// RowProvider serves windows of records. All public methods are safe for
// concurrent use: a Finder or Sorter worker may call GetRows/GetRowsForIndices
// on the same RowProvider instance the UI thread uses from the view (each
// call opens an independent *os.File, per SPEC_FULL.md §5 "each worker owns
// a reader opened from the same path; there is no shared reader state").
type RowProvider struct {
	cfg       *config.Config
	headers   []string
	headerLen int
	// dataStartOffset is the byte offset of record 0 (i.e. right after the
	// header line, if any).
	dataStartOffset int64

	index *SparseOffsetIndex
	cache *rowWindowCache

	mu           sync.Mutex
	totalKnown   bool
	totalRows    int64
	lastScanIdx  int64
	lastScanByte int64

	approxTotal atomic.Int64

	parseErrors  atomic.Uint64
	bytesScanned atomic.Uint64
}

// New opens path, reads and caches the header record if cfg.HasHeaders,
// and otherwise fabricates col0, col1, … from the column count of the
// first data record. Returns IoError-equivalent (wrapped) if the path
// cannot be opened.
func New(cfg *config.Config) (*RowProvider, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("rowprovider: open %s: %w", cfg.Path, err)
	}
	defer f.Close()

	rr := newRecordReader(f, cfg.Delimiter)
	p := &RowProvider{
		cfg:   cfg,
		index: NewSparseOffsetIndex(DefaultIndexStride),
		cache: newRowWindowCache(rowCacheBudgetBytes),
	}

	if cfg.HasHeaders {
		fields, _, err := rr.ReadRecord()
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("rowprovider: reading header: %w", err)
		}
		p.headers = fields
		p.headerLen = len(fields)
		p.dataStartOffset = rr.offset()
		return p, nil
	}

	// No headers: peek the first record purely to learn the column count;
	// data reading restarts from byte 0 on every GetRows call.
	fields, _, err := rr.ReadRecord()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("rowprovider: reading first record: %w", err)
	}
	p.headerLen = len(fields)
	p.headers = fabricateHeaders(p.headerLen)
	p.dataStartOffset = 0
	return p, nil
}

func fabricateHeaders(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("col%d", i)
	}
	return out
}

// Invalidate drops every cached row window. Called when the caller's
// Watcher observes the backing file change, since a cached window may now
// point at stale or shifted records (SPEC_FULL.md §4.8).
func (p *RowProvider) Invalidate() {
	p.cache.invalidate()
}

// Headers returns the cached header field list.
func (p *RowProvider) Headers() []string {
	return p.headers
}

// Stats returns a snapshot of the debug counters.
func (p *RowProvider) Stats() Stats {
	return Stats{
		ParseErrors:  p.parseErrors.Load(),
		BytesScanned: p.bytesScanned.Load(),
		IndexBlocks:  uint64(p.index.Len()),
	}
}

// openFrom opens the underlying file and positions a recordReader at the
// nearest known checkpoint at or before target, returning the record
// index the reader is now positioned at (i.e. the index of the very next
// record it will yield).
func (p *RowProvider) openFrom(target int64) (*os.File, *recordReader, int64, error) {
	f, err := os.Open(p.cfg.Path)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("rowprovider: open %s: %w", p.cfg.Path, err)
	}

	startIdx, startOffset, ok := p.index.Lookup(target)
	if !ok || startOffset < p.dataStartOffset {
		startIdx, startOffset = 0, p.dataStartOffset
	}
	if startOffset > 0 {
		if _, err := f.Seek(startOffset, io.SeekStart); err != nil {
			f.Close()
			return nil, nil, 0, fmt.Errorf("rowprovider: seek: %w", err)
		}
	}
	rr := newRecordReader(f, p.cfg.Delimiter)
	// The counting reader starts at the seek position, so offsets it
	// reports are absolute file offsets.
	rr.cr.n = startOffset
	return f, rr, startIdx, nil
}

// GetRows returns up to numRows consecutive records starting at record
// index rowsFrom. Records that fail to parse are skipped and counted
// (Stats.ParseErrors), not fatal.
func (p *RowProvider) GetRows(rowsFrom, numRows int64) ([]Record, error) {
	if numRows <= 0 {
		return nil, nil
	}

	cacheKey := fmt.Sprintf("%d:%d", rowsFrom, numRows)
	if cached, ok := p.cache.get(cacheKey); ok {
		return cached, nil
	}

	f, rr, idx, err := p.openFrom(rowsFrom)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make([]Record, 0, numRows)
	for {
		fields, startOffset, err := rr.ReadRecord()
		if err == io.EOF {
			p.noteEOF(idx)
			break
		}
		p.index.Observe(idx, startOffset)
		if err != nil {
			p.parseErrors.Add(1)
			idx++
			continue
		}
		if idx >= rowsFrom {
			out = append(out, Record{Index: idx, Fields: fields})
			if int64(len(out)) >= numRows {
				p.noteProgress(idx, rr.offset())
				p.cache.put(cacheKey, out)
				return out, nil
			}
		}
		idx++
	}
	p.noteProgress(idx-1, rr.offset())
	p.cache.put(cacheKey, out)
	return out, nil
}

// GetRowsForIndices returns records at the given (not necessarily
// contiguous or sorted) indices, in the order given. Indices are sorted
// internally for a single forward scan and reordered to match the input.
func (p *RowProvider) GetRowsForIndices(indices []int64) ([]Record, error) {
	if len(indices) == 0 {
		return nil, nil
	}

	order := make([]int, len(indices))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return indices[order[a]] < indices[order[b]] })

	lowest := indices[order[0]]
	f, rr, idx, err := p.openFrom(lowest)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	found := make(map[int64]Record, len(indices))
	remaining := len(indices)
	for remaining > 0 {
		fields, startOffset, err := rr.ReadRecord()
		if err == io.EOF {
			p.noteEOF(idx)
			break
		}
		p.index.Observe(idx, startOffset)
		if err != nil {
			p.parseErrors.Add(1)
			idx++
			continue
		}
		if _, want := found[idx]; !want {
			for _, target := range indices {
				if target == idx {
					want = true
					break
				}
			}
			if want {
				found[idx] = Record{Index: idx, Fields: fields}
				remaining--
			}
		}
		idx++
	}
	p.noteProgress(idx-1, rr.offset())

	out := make([]Record, 0, len(indices))
	for _, target := range indices {
		if rec, ok := found[target]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (p *RowProvider) noteProgress(lastIdx, lastOffset int64) {
	if lastIdx < 0 {
		return
	}
	p.bytesScanned.Store(uint64(lastOffset))
	p.mu.Lock()
	if lastIdx > p.lastScanIdx {
		p.lastScanIdx = lastIdx
		p.lastScanByte = lastOffset
	}
	p.mu.Unlock()
	p.bumpApprox(p.GetTotalLineNumbersApprox())
}

// noteEOF records that a scan reached true end-of-file at record count
// seenCount. If the stream is not actively being appended to, this makes
// the total exact (SPEC_FULL.md §4.1 get_total_line_numbers).
func (p *RowProvider) noteEOF(seenCount int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.cfg.StreamActive() {
		p.totalKnown = true
		p.totalRows = seenCount
	} else if seenCount > p.totalRows {
		p.totalRows = seenCount
	}
}

func (p *RowProvider) bumpApprox(v int64) {
	for {
		cur := p.approxTotal.Load()
		if v <= cur {
			return
		}
		if p.approxTotal.CompareAndSwap(cur, v) {
			return
		}
	}
}

// GetTotalLineNumbers returns the exact record count once a full pass has
// completed and the stream is no longer active; ok is false otherwise.
func (p *RowProvider) GetTotalLineNumbers() (n int64, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.totalKnown && !p.cfg.StreamActive() {
		return p.totalRows, true
	}
	return 0, false
}

// GetTotalLineNumbersApprox returns a monotonically non-decreasing
// estimate derived from file size and the observed mean record length, or
// the exact count once known.
func (p *RowProvider) GetTotalLineNumbersApprox() int64 {
	if n, ok := p.GetTotalLineNumbers(); ok {
		return n
	}

	p.mu.Lock()
	lastIdx, lastByte := p.lastScanIdx, p.lastScanByte
	p.mu.Unlock()

	if lastIdx <= 0 || lastByte <= p.dataStartOffset {
		return p.approxTotal.Load()
	}

	info, err := os.Stat(p.cfg.Path)
	if err != nil {
		return p.approxTotal.Load()
	}

	scannedBytes := lastByte - p.dataStartOffset
	meanBytesPerRecord := float64(scannedBytes) / float64(lastIdx+1)
	if meanBytesPerRecord <= 0 {
		return p.approxTotal.Load()
	}
	totalDataBytes := float64(info.Size() - p.dataStartOffset)
	estimate := int64(totalDataBytes / meanBytesPerRecord)
	if estimate < lastIdx+1 {
		estimate = lastIdx + 1
	}

	prev := p.approxTotal.Load()
	if estimate > prev {
		return estimate
	}
	return prev
}
