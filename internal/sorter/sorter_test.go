package sorter

import (
	"os"
	"path/filepath"
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

func waitFinished(t *testing.T, s *Sorter) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		status, msg := s.GetStatus()
		if status != Running {
			if status == Error {
				t.Fatalf("sort failed: %s", msg)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("sort did not finish in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSorterAscendingIndices(t *testing.T) {
	p := newTestProvider(t, "v\n30\n10\n50\n20\n40\n")
	s := New(p, 0)
	defer s.Wait()
	waitFinished(t, s)

	got, ok := s.GetSortedIndices(0, 5, Ascending)
	if !ok {
		t.Fatal("GetSortedIndices returned ok=false after Finished")
	}
	want := []int64{1, 3, 0, 4, 2} // values 10,20,30,40,50 -> original record indices
	if !int64SliceEqual(got, want) {
		t.Fatalf("GetSortedIndices ascending = %v, want %v", got, want)
	}
}

func TestSorterDescendingIndices(t *testing.T) {
	p := newTestProvider(t, "v\n30\n10\n50\n20\n40\n")
	s := New(p, 0)
	defer s.Wait()
	waitFinished(t, s)

	got, ok := s.GetSortedIndices(0, 5, Descending)
	if !ok {
		t.Fatal("GetSortedIndices returned ok=false after Finished")
	}
	want := []int64{2, 4, 0, 3, 1} // values 50,40,30,20,10
	if !int64SliceEqual(got, want) {
		t.Fatalf("GetSortedIndices descending = %v, want %v", got, want)
	}
}

func TestSorterDescendingClampsPastEnd(t *testing.T) {
	p := newTestProvider(t, "v\n3\n1\n2\n")
	s := New(p, 0)
	defer s.Wait()
	waitFinished(t, s)

	got, ok := s.GetSortedIndices(10, 5, Descending)
	if !ok {
		t.Fatal("GetSortedIndices returned ok=false after Finished")
	}
	if len(got) != 0 {
		t.Fatalf("GetSortedIndices(10, 5, Descending) = %v, want empty instead of a panic/underflow", got)
	}
}

func TestSorterEmptyColumnIsError(t *testing.T) {
	p := newTestProvider(t, "a,b\n1,2\n3,4\n")
	// Column index 5 doesn't exist on any record, so the scan collects no keys.
	s := New(p, 5)
	defer s.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for {
		status, msg := s.GetStatus()
		if status == Error {
			if msg != "sort not supported for data type Null" {
				t.Fatalf("error message = %q, want %q", msg, "sort not supported for data type Null")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("sort over an empty column did not reach Error status in time (status=%v)", status)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSorterRecordOrderFlipsUnderDescending(t *testing.T) {
	p := newTestProvider(t, "v\n30\n10\n20\n")
	s := New(p, 0)
	defer s.Wait()
	waitFinished(t, s)

	ascOrder, ok := s.GetRecordOrder(0, Ascending) // value 30 -> last ascending
	if !ok || ascOrder != 2 {
		t.Fatalf("GetRecordOrder(0, Ascending) = (%d, %v), want (2, true)", ascOrder, ok)
	}
	descOrder, ok := s.GetRecordOrder(0, Descending)
	if !ok || descOrder != 0 {
		t.Fatalf("GetRecordOrder(0, Descending) = (%d, %v), want (0, true)", descOrder, ok)
	}
}

func TestSorterRecordOrderImplementsRowOrderSource(t *testing.T) {
	p := newTestProvider(t, "v\n30\n10\n20\n")
	s := New(p, 0)
	defer s.Wait()
	waitFinished(t, s)

	order, ok := s.RecordOrder(1) // value 10, ascending position 0
	if !ok || order != 0 {
		t.Fatalf("RecordOrder(1) = (%d, %v), want (0, true)", order, ok)
	}
}

func TestSorterTerminateCancelsRun(t *testing.T) {
	p := newTestProvider(t, "v\n1\n2\n3\n")
	s := New(p, 0)
	s.Terminate()
	s.Wait()

	status, _ := s.GetStatus()
	if status != Error {
		t.Fatalf("GetStatus() after Terminate = %v, want Error", status)
	}
}

func int64SliceEqual(a, b []int64) bool {
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
