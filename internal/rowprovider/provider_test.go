package rowprovider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/YS-L/csvlens-sub000/internal/config"
)

func writeTestCSV(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write test csv: %v", err)
	}
	return path
}

func newTestProvider(t *testing.T, contents string, hasHeaders bool) *RowProvider {
	t.Helper()
	path := writeTestCSV(t, contents)
	cfg, err := config.New(path, ',', hasHeaders)
	if err != nil {
		t.Fatalf("config.New: %v", err)
	}
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestGetRowsWindow(t *testing.T) {
	p := newTestProvider(t, "a,b\n1,2\n3,4\n5,6\n", true)

	if got := p.Headers(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Headers() = %v", got)
	}

	rows, err := p.GetRows(1, 2)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].Index != 1 || rows[0].Fields[0] != "3" {
		t.Fatalf("rows[0] = %+v", rows[0])
	}
	if rows[1].Index != 2 || rows[1].Fields[0] != "5" {
		t.Fatalf("rows[1] = %+v", rows[1])
	}
}

func TestGetRowsCacheHit(t *testing.T) {
	p := newTestProvider(t, "a\n1\n2\n3\n", true)

	first, err := p.GetRows(0, 2)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}

	// Truncate the underlying file so a cache miss would return short/empty
	// results; a cache hit must still return the original window.
	if err := os.Truncate(p.cfg.Path, 0); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	second, err := p.GetRows(0, 2)
	if err != nil {
		t.Fatalf("GetRows (cached): %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("cached GetRows returned %d rows, want %d (cache not hit)", len(second), len(first))
	}

	p.Invalidate()
	third, err := p.GetRows(0, 2)
	if err != nil {
		t.Fatalf("GetRows (post-invalidate): %v", err)
	}
	if len(third) != 0 {
		t.Fatalf("post-invalidate GetRows returned %d rows from truncated file, want 0", len(third))
	}
}

func TestGetRowsForIndices(t *testing.T) {
	p := newTestProvider(t, "a\n1\n2\n3\n4\n5\n", true)

	rows, err := p.GetRowsForIndices([]int64{3, 0, 4})
	if err != nil {
		t.Fatalf("GetRowsForIndices: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if rows[0].Index != 3 || rows[1].Index != 0 || rows[2].Index != 4 {
		t.Fatalf("rows order not preserved: %+v", rows)
	}
}

func TestGetTotalLineNumbersExactAfterFullScan(t *testing.T) {
	p := newTestProvider(t, "a\n1\n2\n3\n", true)

	if _, ok := p.GetTotalLineNumbers(); ok {
		t.Fatal("GetTotalLineNumbers should not be exact before any full scan")
	}

	if _, err := p.GetRows(0, 100); err != nil {
		t.Fatalf("GetRows: %v", err)
	}

	total, ok := p.GetTotalLineNumbers()
	if !ok {
		t.Fatal("GetTotalLineNumbers should be exact after a scan reaching EOF")
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
}

func TestFabricatedHeadersWhenNoHeaderRow(t *testing.T) {
	p := newTestProvider(t, "1,2,3\n4,5,6\n", false)

	headers := p.Headers()
	if len(headers) != 3 || headers[0] != "col0" || headers[2] != "col2" {
		t.Fatalf("Headers() = %v", headers)
	}

	rows, err := p.GetRows(0, 2)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 || rows[0].Fields[0] != "1" {
		t.Fatalf("rows = %+v", rows)
	}
}
