package input

import "testing"

func TestHistoryPrevNext(t *testing.T) {
	h := newHistoryWith("foo")
	h.Push("bar")
	h.Push("baz")
	h.Push("foo")

	wantPrev := []string{"foo", "baz", "bar"}
	for _, want := range wantPrev {
		got, ok := h.Prev()
		if !ok || got != want {
			t.Fatalf("Prev() = %q, %v; want %q, true", got, ok, want)
		}
	}
	if _, ok := h.Prev(); ok {
		t.Fatalf("expected Prev() to be exhausted")
	}
	if _, ok := h.Prev(); ok {
		t.Fatalf("expected Prev() to stay exhausted")
	}

	wantNext := []string{"baz", "foo"}
	for _, want := range wantNext {
		got, ok := h.Next()
		if !ok || got != want {
			t.Fatalf("Next() = %q, %v; want %q, true", got, ok, want)
		}
	}
	if _, ok := h.Next(); ok {
		t.Fatalf("expected Next() to be exhausted")
	}
	if _, ok := h.Next(); ok {
		t.Fatalf("expected Next() to stay exhausted")
	}
}

func TestHistoryPushDuplicateDedupes(t *testing.T) {
	h := newHistoryWith("foo")
	h.Push("bar")
	h.Push("baz")
	h.Push("foo")
	h.Push("bar")

	wantPrev := []string{"bar", "foo", "baz"}
	for _, want := range wantPrev {
		got, ok := h.Prev()
		if !ok || got != want {
			t.Fatalf("Prev() = %q, %v; want %q, true", got, ok, want)
		}
	}
	if _, ok := h.Prev(); ok {
		t.Fatalf("expected Prev() to be exhausted")
	}
}

func TestHistoryContainerIsolatesModes(t *testing.T) {
	c := NewHistoryContainer()
	c.Set(ModeFind, "foo")
	c.Set(ModeFind, "bar")
	c.Set(ModeGotoLine, "123")
	c.Set(ModeGotoLine, "456")

	if _, ok := c.Prev(ModeDefault); ok {
		t.Fatalf("expected no history for ModeDefault")
	}
	if got, ok := c.Prev(ModeFind); !ok || got != "bar" {
		t.Fatalf("Prev(ModeFind) = %q, %v; want bar, true", got, ok)
	}
	if got, ok := c.Prev(ModeGotoLine); !ok || got != "456" {
		t.Fatalf("Prev(ModeGotoLine) = %q, %v; want 456, true", got, ok)
	}
}
