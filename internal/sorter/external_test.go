package sorter

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pierrec/lz4/v4"
)

func TestWriteReadKeyedRecordRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	recs := []keyedRecord{
		{recordIndex: 0, key: "alpha"},
		{recordIndex: 42, key: ""},
		{recordIndex: 7, key: "a much longer value with spaces and digits 123"},
	}
	for _, rec := range recs {
		if err := writeKeyedRecord(w, rec); err != nil {
			t.Fatalf("writeKeyedRecord: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	r := bufio.NewReader(&buf)
	for _, want := range recs {
		got, err := readKeyedRecord(r)
		if err != nil {
			t.Fatalf("readKeyedRecord: %v", err)
		}
		if got != want {
			t.Fatalf("readKeyedRecord = %+v, want %+v", got, want)
		}
	}
}

// writeChunkFile mirrors runOutOfCore's flush closure, for tests that need
// to hand kWayMerge pre-built chunk files directly.
func writeChunkFile(t *testing.T, path string, recs []keyedRecord) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create chunk file: %v", err)
	}
	defer f.Close()
	lw := lz4.NewWriter(f)
	bw := bufio.NewWriter(lw)
	for _, rec := range recs {
		if err := writeKeyedRecord(bw, rec); err != nil {
			t.Fatalf("writeKeyedRecord: %v", err)
		}
	}
	if err := bw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := lw.Close(); err != nil {
		t.Fatalf("lz4 close: %v", err)
	}
}

func TestKWayMergeOrdersAcrossChunks(t *testing.T) {
	dir := t.TempDir()
	chunkA := filepath.Join(dir, "a.tmp")
	chunkB := filepath.Join(dir, "b.tmp")

	// Each chunk must already be sorted on entry, as flush() guarantees.
	writeChunkFile(t, chunkA, []keyedRecord{
		{recordIndex: 10, key: "10"},
		{recordIndex: 30, key: "30"},
		{recordIndex: 50, key: "50"},
	})
	writeChunkFile(t, chunkB, []keyedRecord{
		{recordIndex: 20, key: "20"},
		{recordIndex: 40, key: "40"},
	})

	out, err := kWayMerge([]string{chunkA, chunkB}, lexCompare)
	if err != nil {
		t.Fatalf("kWayMerge: %v", err)
	}

	want := []int64{10, 20, 30, 40, 50}
	if len(out) != len(want) {
		t.Fatalf("kWayMerge = %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("kWayMerge = %v, want %v", out, want)
		}
	}
}

func TestRunOutOfCoreMergesScannedRecords(t *testing.T) {
	p := newTestProvider(t, "v\n30\n10\n50\n20\n40\n")
	s := &Sorter{provider: p, column: 0, sortType: Lexicographic, status: Running}

	s.runOutOfCore(nil, 0)

	status, msg := s.GetStatus()
	if status != Finished {
		t.Fatalf("GetStatus() = %v (%s), want Finished", status, msg)
	}
	total, ok := s.Total()
	if !ok || total != 5 {
		t.Fatalf("Total() = (%d, %v), want (5, true)", total, ok)
	}

	got, ok := s.GetSortedIndices(0, 5, Ascending)
	if !ok {
		t.Fatal("GetSortedIndices returned ok=false")
	}
	want := []int64{1, 3, 0, 4, 2} // values 10,20,30,40,50
	if !int64SliceEqual(got, want) {
		t.Fatalf("GetSortedIndices = %v, want %v", got, want)
	}
}

func TestRunOutOfCoreHonorsBufferedPrefix(t *testing.T) {
	p := newTestProvider(t, "v\n30\n10\n")
	s := &Sorter{provider: p, column: 0, sortType: Lexicographic, status: Running}

	// Simulate run()'s in-memory phase having already buffered one key
	// (record 99, value "5") before the budget was exceeded at rowsFrom=0.
	buffered := []keyedRecord{{recordIndex: 99, key: "5"}}
	s.runOutOfCore(buffered, 0)

	status, msg := s.GetStatus()
	if status != Finished {
		t.Fatalf("GetStatus() = %v (%s), want Finished", status, msg)
	}

	got, ok := s.GetSortedIndices(0, 3, Ascending)
	if !ok {
		t.Fatal("GetSortedIndices returned ok=false")
	}
	want := []int64{99, 1, 0} // values 5, 10, 30
	if !int64SliceEqual(got, want) {
		t.Fatalf("GetSortedIndices = %v, want %v", got, want)
	}
}

func TestRunOutOfCoreEmptyColumnIsError(t *testing.T) {
	p := newTestProvider(t, "a,b\n1,2\n3,4\n")
	// Column 5 doesn't exist on any record, so the scan collects no keys
	// and no buffered prefix is supplied either.
	s := &Sorter{provider: p, column: 5, sortType: Lexicographic, status: Running}

	s.runOutOfCore(nil, 0)

	status, msg := s.GetStatus()
	if status != Error {
		t.Fatalf("GetStatus() = %v, want Error", status)
	}
	if msg != "sort not supported for data type Null" {
		t.Fatalf("error message = %q, want %q", msg, "sort not supported for data type Null")
	}
}
