package view

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/YS-L/csvlens-sub000/internal/config"
	"github.com/YS-L/csvlens-sub000/internal/input"
	"github.com/YS-L/csvlens-sub000/internal/rowprovider"
)

func newTestProvider(t *testing.T, numRows int) *rowprovider.RowProvider {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	content := "a,b\n"
	for i := 0; i < numRows; i++ {
		content += "x,y\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
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

func TestScrollDownAndPageDown(t *testing.T) {
	p := newTestProvider(t, 20)
	v, err := New(p, 5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if v.RowsFrom() != 0 || len(v.Rows()) != 5 {
		t.Fatalf("unexpected initial window: from=%d len=%d", v.RowsFrom(), len(v.Rows()))
	}

	if err := v.HandleControl(input.Control{Kind: input.ScrollDown}); err != nil {
		t.Fatalf("ScrollDown: %v", err)
	}
	if v.RowsFrom() != 1 {
		t.Fatalf("expected rowsFrom=1, got %d", v.RowsFrom())
	}

	if err := v.HandleControl(input.Control{Kind: input.ScrollPageDown}); err != nil {
		t.Fatalf("ScrollPageDown: %v", err)
	}
	if v.RowsFrom() != 6 {
		t.Fatalf("expected rowsFrom=6, got %d", v.RowsFrom())
	}
}

func TestScrollBottomClampsAtTotal(t *testing.T) {
	p := newTestProvider(t, 10)
	v, err := New(p, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := v.HandleControl(input.Control{Kind: input.ScrollBottom}); err != nil {
		t.Fatalf("ScrollBottom: %v", err)
	}
	if v.RowsFrom() != 6 {
		t.Fatalf("expected rowsFrom=6 (10-4), got %d", v.RowsFrom())
	}
}

func TestScrollToClampsToBottom(t *testing.T) {
	p := newTestProvider(t, 10)
	v, err := New(p, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := v.HandleControl(input.Control{Kind: input.ScrollTo, Goto: 1000}); err != nil {
		t.Fatalf("ScrollTo: %v", err)
	}
	if v.RowsFrom() != 6 {
		t.Fatalf("expected clamped rowsFrom=6, got %d", v.RowsFrom())
	}
}

func TestSetFilterSwitchesToSubset(t *testing.T) {
	p := newTestProvider(t, 10)
	v, err := New(p, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := v.SetFilter([]int64{2, 4, 6, 8}); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	if !v.IsFilter() {
		t.Fatalf("expected filter active")
	}
	if len(v.Rows()) != 3 {
		t.Fatalf("expected 3 rows from filtered subset, got %d", len(v.Rows()))
	}

	if err := v.ResetFilter(); err != nil {
		t.Fatalf("ResetFilter: %v", err)
	}
	if v.IsFilter() {
		t.Fatalf("expected filter inactive after reset")
	}
}
