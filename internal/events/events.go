// Package events implements the tick/keypress/file-change multiplexer
// (SPEC_FULL.md §4.7): a single channel of Event values drives the main
// loop, combining raw key presses, a steady tick used to poll background
// workers, and file-change notifications that coalesce onto the same tick
// boundary rather than firing one event per write.
//
// Grounded on original_source/src/util/events.rs (CsvlensEvents: the
// poll/tick race, the file-watcher drain-then-coalesce loop) and
// original_source/src/watch.rs for the underlying change detector.
package events

import (
	"time"

	"github.com/YS-L/csvlens-sub000/internal/input"
	"github.com/YS-L/csvlens-sub000/internal/watch"
)

// Kind identifies which variant of Event is populated.
type Kind int

const (
	KeyPress Kind = iota
	FileChanged
	Tick
)

// Event is one item off the multiplexed channel.
type Event struct {
	Kind Kind
	Key  input.Key
}

// TickRate matches original_source's 250ms poll/tick interval.
const TickRate = 250 * time.Millisecond

// Source emits Events on C, combining keys from a caller-supplied
// producer, a steady tick, and (if cursor is non-nil) file-change
// notifications. Stop ends the background goroutine.
type Source struct {
	C chan Event

	stop chan struct{}
}

// NewSource starts multiplexing immediately. keys is read until it's
// closed or Stop is called; cursor may be nil if there's no file to
// watch (e.g. reading from a pipe that isn't also a growing regular
// file).
func NewSource(keys <-chan input.Key, cursor *watch.Cursor) *Source {
	s := &Source{
		C:    make(chan Event),
		stop: make(chan struct{}),
	}
	go s.run(keys, cursor)
	return s
}

func (s *Source) run(keys <-chan input.Key, cursor *watch.Cursor) {
	ticker := time.NewTicker(TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case key, ok := <-keys:
			if !ok {
				// Upstream key source closed (EOF on stdin, or the
				// terminal session ended); stop producing events.
				return
			}
			s.emit(Event{Kind: KeyPress, Key: key})
		case <-ticker.C:
			if cursor != nil && cursor.Check() {
				s.emit(Event{Kind: FileChanged})
				continue
			}
			s.emit(Event{Kind: Tick})
		}
	}
}

func (s *Source) emit(ev Event) {
	select {
	case s.C <- ev:
	case <-s.stop:
	}
}

// Stop ends the background goroutine. Safe to call more than once.
func (s *Source) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
}
