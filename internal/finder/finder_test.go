package finder

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/YS-L/csvlens-sub000/internal/config"
	"github.com/YS-L/csvlens-sub000/internal/rowprovider"
)

func newTestProvider(t *testing.T, contents string) *rowprovider.RowProvider {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write test csv: %v", err)
	}
	cfg, err := config.New(path, ',', true)
	if err != nil {
		t.Fatalf("config.New: %v", err)
	}
	p, err := rowprovider.New(cfg)
	if err != nil {
		t.Fatalf("rowprovider.New: %v", err)
	}
	return p
}

func waitDone(t *testing.T, f *Finder) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !f.Done() {
		if time.Now().After(deadline) {
			t.Fatal("finder did not finish scanning in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestFinderRegexColumnMatch(t *testing.T) {
	p := newTestProvider(t, "name,note\nalice,foo\nbob,bar\ncarol,foobar\n")
	re := regexp.MustCompile(`foo`)
	col := 1
	f := New(p, re, &col, nil)
	defer f.Wait()
	waitDone(t, f)

	if got := f.Count(); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}

	first, ok := f.Next()
	if !ok {
		t.Fatal("Next() returned false on non-empty match set")
	}
	if first.RecordIndex != 0 || first.ColumnsMatched[0] != 1 {
		t.Fatalf("first match = %+v", first)
	}

	second, ok := f.Next()
	if !ok || second.RecordIndex != 2 {
		t.Fatalf("second match = %+v, ok=%v", second, ok)
	}

	// Next saturates at the last match rather than wrapping or erroring.
	third, ok := f.Next()
	if !ok || third.RecordIndex != second.RecordIndex {
		t.Fatalf("Next() at end = %+v, want saturated at %+v", third, second)
	}
}

func TestFinderPrevSaturatesAtStart(t *testing.T) {
	p := newTestProvider(t, "v\nfoo\nbar\nfoo\n")
	re := regexp.MustCompile(`foo`)
	f := New(p, re, nil, nil)
	defer f.Wait()
	waitDone(t, f)

	first, ok := f.Prev()
	if !ok {
		t.Fatal("Prev() returned false")
	}

	again, ok := f.Prev()
	if !ok || again.RecordIndex != first.RecordIndex {
		t.Fatalf("Prev() at start = %+v, want saturated at %+v", again, first)
	}
}

func TestFinderSetRowHintPositionsCursor(t *testing.T) {
	p := newTestProvider(t, "v\nfoo\nfoo\nfoo\nfoo\n")
	re := regexp.MustCompile(`foo`)
	f := New(p, re, nil, nil)
	defer f.Wait()
	waitDone(t, f)

	f.SetRowHint(2)
	m, ok := f.Next()
	if !ok {
		t.Fatal("Next() returned false")
	}
	if m.RowOrder < 2 {
		t.Fatalf("Next() after SetRowHint(2) landed on RowOrder %d, want >= 2", m.RowOrder)
	}
}

func TestFinderGetSubsetWindow(t *testing.T) {
	p := newTestProvider(t, "v\nfoo\nfoo\nfoo\nfoo\nfoo\n")
	re := regexp.MustCompile(`foo`)
	f := New(p, re, nil, nil)
	defer f.Wait()
	waitDone(t, f)

	subset := f.GetSubset(1, 2)
	if len(subset) != 2 || subset[0] != 1 || subset[1] != 2 {
		t.Fatalf("GetSubset(1, 2) = %v", subset)
	}

	// A window past the end of the match set clamps rather than panicking.
	tail := f.GetSubset(4, 10)
	if len(tail) != 1 || tail[0] != 4 {
		t.Fatalf("GetSubset(4, 10) = %v", tail)
	}

	none := f.GetSubset(10, 5)
	if len(none) != 0 {
		t.Fatalf("GetSubset(10, 5) = %v, want empty", none)
	}
}

func TestFinderNoMatches(t *testing.T) {
	p := newTestProvider(t, "v\nalice\nbob\n")
	re := regexp.MustCompile(`zzz`)
	f := New(p, re, nil, nil)
	defer f.Wait()
	waitDone(t, f)

	if got := f.Count(); got != 0 {
		t.Fatalf("Count() = %d, want 0", got)
	}
	if _, ok := f.Next(); ok {
		t.Fatal("Next() on empty match set should return false")
	}
	if f.State() != Done {
		t.Fatalf("State() = %v, want Done", f.State())
	}
}

func TestFinderNewConditionWholeRowMatch(t *testing.T) {
	p := newTestProvider(t, "name,city\nalice,paris\nbob,london\ncarol,paris\n")
	cond := And(
		NewRegexCondition(regexp.MustCompile(`^(alice|carol)$`), 0),
		NewRegexCondition(regexp.MustCompile(`paris`), 1),
	)
	f := NewCondition(p, cond, nil)
	defer f.Wait()
	waitDone(t, f)

	if got := f.Count(); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}

	m, ok := f.Next()
	if !ok || m.RecordIndex != 0 {
		t.Fatalf("first match = %+v", m)
	}
	if len(m.ColumnsMatched) != 2 {
		t.Fatalf("ColumnsMatched = %v, want both columns named by the AND's children", m.ColumnsMatched)
	}
}

func TestFinderTerminateStopsScan(t *testing.T) {
	p := newTestProvider(t, "v\nfoo\nfoo\nfoo\n")
	re := regexp.MustCompile(`foo`)
	f := New(p, re, nil, nil)
	f.Terminate()
	f.Wait()

	if f.State() != Cancelled {
		t.Fatalf("State() = %v, want Cancelled", f.State())
	}
}
