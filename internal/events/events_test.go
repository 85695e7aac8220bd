package events

import (
	"testing"
	"time"

	"github.com/YS-L/csvlens-sub000/internal/input"
)

func TestKeyPressIsForwarded(t *testing.T) {
	keys := make(chan input.Key, 1)
	src := NewSource(keys, nil)
	defer src.Stop()

	keys <- input.Key{Type: input.KeyChar, Rune: 'j'}

	select {
	case ev := <-src.C:
		if ev.Kind != KeyPress || ev.Key.Rune != 'j' {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for key press event")
	}
}

func TestTickFiresAbsentInput(t *testing.T) {
	keys := make(chan input.Key)
	src := NewSource(keys, nil)
	defer src.Stop()

	select {
	case ev := <-src.C:
		if ev.Kind != Tick {
			t.Fatalf("expected Tick, got %+v", ev)
		}
	case <-time.After(TickRate + 2*time.Second):
		t.Fatal("timed out waiting for tick")
	}
}

func TestStopEndsSource(t *testing.T) {
	keys := make(chan input.Key)
	src := NewSource(keys, nil)
	src.Stop()
	src.Stop() // idempotent
}
