package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCursorDetectsChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "growing.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Terminate()

	c := NewCursor(w)
	if c.Check() {
		t.Fatalf("expected no change immediately after NewCursor")
	}

	time.Sleep(10 * time.Millisecond)
	if err := os.WriteFile(path, []byte("a,b\n1,2\n3,4\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	changed := false
	for time.Now().Before(deadline) {
		if c.Check() {
			changed = true
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !changed {
		t.Fatalf("expected Check to observe the file change within the deadline")
	}
}
