// Package input implements the modal key handler (SPEC_FULL.md §4.6,
// §4.6a): raw key presses are translated into a small Control vocabulary,
// with a line-buffering sub-mode for goto-line/find/filter/filter-columns/
// freeze-columns/option entry, a direct (non-buffering) help toggle, and a
// per-mode command history recalled with up/down.
//
// Grounded on original_source/src/input.rs (InputHandler, InputMode,
// BufferState, the handler_default/handler_buffering split) and
// original_source/src/history.rs (BufferHistory, BufferHistoryContainer).
// original_source/src/common.rs's InputMode enum names Filter,
// FilterColumns, FreezeColumns, Option and Help alongside the three
// input.rs itself dispatches; input.rs and app.rs (the Control consumer)
// only ever trigger Default/GotoLine/Find/Filter from a key, so the
// FreezeColumns/Option default-mode keys ('f'/'o') are this port's own
// choice, recorded in DESIGN.md rather than lifted from a binding that
// doesn't exist upstream.
package input

import "strconv"

// ControlKind identifies which variant of Control is populated.
type ControlKind int

const (
	Nothing ControlKind = iota
	ScrollUp
	ScrollDown
	ScrollLeft
	ScrollRight
	ScrollBottom
	ScrollTop
	ScrollPageUp
	ScrollPageDown
	ScrollTo
	ScrollToNextFound
	ScrollToPrevFound
	Find
	Filter
	FilterColumns
	FreezeColumns
	Option
	Help
	CycleSelectionMode
	Sort
	Quit
	BufferContent
	BufferReset
)

// Control is the result of handling one key press. Text and Goto are
// only meaningful for the corresponding Kind.
type Control struct {
	Kind ControlKind
	Goto int
	Text string
}

// Mode selects which buffering sub-mode, if any, is active.
type Mode int

const (
	ModeDefault Mode = iota
	ModeGotoLine
	ModeFind
	ModeSortColumn
	ModeFilter
	ModeFilterColumns
	ModeFreezeColumns
	ModeOption
	ModeHelp
)

// KeyType classifies a key press into the handful of cases the handler
// distinguishes; everything else collapses to KeyChar/KeyOther.
type KeyType int

const (
	KeyChar KeyType = iota
	KeyBackspace
	KeyEsc
	KeyEnter
	KeyCtrlF
	KeyCtrlB
	KeyPageUp
	KeyPageDown
	KeyHome
	KeyEnd
	KeyTab
	KeyUp
	KeyDown
	KeyOther
)

// Key is the handler's input alphabet, deliberately narrower than a
// terminal library's raw key event so the handler stays testable without
// one.
type Key struct {
	Type KeyType
	Rune rune
}

type bufferState struct {
	active bool
	buf    string
}

// Handler turns key presses into Control values, tracking the current
// mode and (while buffering) the in-progress line plus its history.
type Handler struct {
	mode    Mode
	buffer  bufferState
	history *HistoryContainer
}

// New returns a handler starting in ModeDefault with an empty history.
func New() *Handler {
	return &Handler{history: NewHistoryContainer()}
}

// HandleKey is the single entry point: it dispatches to the buffering or
// default handler depending on whether line entry is in progress.
func (h *Handler) HandleKey(key Key) Control {
	if h.buffer.active {
		return h.handleBuffering(key)
	}
	return h.handleDefault(key)
}

// Mode reports the handler's current input mode.
func (h *Handler) Mode() Mode { return h.mode }

// Buffering reports whether a line-entry buffer is active, for callers
// (the up/down history-recall key pair, §4.6a) that only apply outside
// the handler's own key dispatch.
func (h *Handler) Buffering() bool { return h.buffer.active }

func (h *Handler) handleDefault(key Key) Control {
	if key.Type == KeyChar {
		switch key.Rune {
		case 'q':
			return Control{Kind: Quit}
		case 'j':
			return Control{Kind: ScrollDown}
		case 'k':
			return Control{Kind: ScrollUp}
		case 'h':
			return Control{Kind: ScrollLeft}
		case 'l':
			return Control{Kind: ScrollRight}
		case 'g':
			return Control{Kind: ScrollTop}
		case 'G':
			return Control{Kind: ScrollBottom}
		case 'n':
			return Control{Kind: ScrollToNextFound}
		case 'N':
			return Control{Kind: ScrollToPrevFound}
		case 'H':
			if h.mode == ModeHelp {
				h.mode = ModeDefault
			} else {
				h.mode = ModeHelp
			}
			return Control{Kind: Help}
		}
		if key.Rune >= '0' && key.Rune <= '9' {
			init := string(key.Rune)
			h.buffer = bufferState{active: true, buf: init}
			h.mode = ModeGotoLine
			return Control{Kind: BufferContent, Text: init}
		}
		if key.Rune == '/' {
			h.buffer = bufferState{active: true, buf: ""}
			h.mode = ModeFind
			return Control{Kind: BufferContent, Text: ""}
		}
		if key.Rune == '&' {
			h.buffer = bufferState{active: true, buf: ""}
			h.mode = ModeFilter
			return Control{Kind: BufferContent, Text: ""}
		}
		if key.Rune == '*' {
			h.buffer = bufferState{active: true, buf: ""}
			h.mode = ModeFilterColumns
			return Control{Kind: BufferContent, Text: ""}
		}
		if key.Rune == 'f' {
			h.buffer = bufferState{active: true, buf: ""}
			h.mode = ModeFreezeColumns
			return Control{Kind: BufferContent, Text: ""}
		}
		if key.Rune == 'o' {
			h.buffer = bufferState{active: true, buf: ""}
			h.mode = ModeOption
			return Control{Kind: BufferContent, Text: ""}
		}
		if key.Rune == 's' {
			h.buffer = bufferState{active: true, buf: ""}
			h.mode = ModeSortColumn
			return Control{Kind: BufferContent, Text: ""}
		}
		return Control{Kind: Nothing}
	}
	switch key.Type {
	case KeyCtrlF, KeyPageDown:
		return Control{Kind: ScrollPageDown}
	case KeyCtrlB, KeyPageUp:
		return Control{Kind: ScrollPageUp}
	case KeyHome:
		return Control{Kind: ScrollTop}
	case KeyEnd:
		return Control{Kind: ScrollBottom}
	case KeyDown:
		return Control{Kind: ScrollDown}
	case KeyUp:
		return Control{Kind: ScrollUp}
	case KeyTab:
		return Control{Kind: CycleSelectionMode}
	default:
		return Control{Kind: Nothing}
	}
}

func (h *Handler) handleBuffering(key Key) Control {
	switch key.Type {
	case KeyEsc:
		h.resetBuffer()
		return Control{Kind: BufferReset}
	case KeyBackspace:
		buf := h.buffer.buf
		if len(buf) > 0 {
			runes := []rune(buf)
			newBuf := string(runes[:len(runes)-1])
			if len(newBuf) > 0 {
				h.buffer.buf = newBuf
				return Control{Kind: BufferContent, Text: newBuf}
			}
		}
		h.resetBuffer()
		return Control{Kind: BufferReset}
	case KeyEnter:
		switch h.mode {
		case ModeFind:
			text := h.buffer.buf
			h.history.Set(ModeFind, text)
			h.resetBuffer()
			return Control{Kind: Find, Text: text}
		case ModeFilter:
			text := h.buffer.buf
			h.history.Set(ModeFilter, text)
			h.resetBuffer()
			return Control{Kind: Filter, Text: text}
		case ModeFilterColumns:
			text := h.buffer.buf
			h.history.Set(ModeFilterColumns, text)
			h.resetBuffer()
			return Control{Kind: FilterColumns, Text: text}
		case ModeSortColumn:
			n, err := strconv.Atoi(h.buffer.buf)
			h.history.Set(ModeSortColumn, h.buffer.buf)
			h.resetBuffer()
			if err != nil {
				return Control{Kind: BufferReset}
			}
			return Control{Kind: Sort, Goto: n}
		case ModeFreezeColumns:
			n, err := strconv.Atoi(h.buffer.buf)
			h.resetBuffer()
			if err != nil {
				return Control{Kind: BufferReset}
			}
			return Control{Kind: FreezeColumns, Goto: n}
		case ModeOption:
			text := h.buffer.buf
			h.resetBuffer()
			return Control{Kind: Option, Text: text}
		}
		return h.handleBufferChar(key)
	case KeyChar:
		if key.Rune == 'G' && h.mode == ModeGotoLine {
			n, err := strconv.Atoi(h.buffer.buf)
			h.history.Set(ModeGotoLine, h.buffer.buf)
			h.resetBuffer()
			if err != nil {
				return Control{Kind: BufferReset}
			}
			return Control{Kind: ScrollTo, Goto: n}
		}
		return h.handleBufferChar(key)
	default:
		return Control{Kind: Nothing}
	}
}

func (h *Handler) handleBufferChar(key Key) Control {
	if key.Type != KeyChar {
		return Control{Kind: Nothing}
	}
	h.history.ResetCursors()
	newBuf := h.buffer.buf + string(key.Rune)
	h.buffer.buf = newBuf
	return Control{Kind: BufferContent, Text: newBuf}
}

func (h *Handler) resetBuffer() {
	h.buffer = bufferState{}
	h.mode = ModeDefault
}

// HistoryPrev/HistoryNext let the caller (the event loop, on up/down
// arrow while buffering) recall earlier entries for the active mode and
// replace the in-progress buffer with them.
func (h *Handler) HistoryPrev() (string, bool) {
	if !h.buffer.active {
		return "", false
	}
	s, ok := h.history.Prev(h.mode)
	if ok {
		h.buffer.buf = s
	}
	return s, ok
}

func (h *Handler) HistoryNext() (string, bool) {
	if !h.buffer.active {
		return "", false
	}
	s, ok := h.history.Next(h.mode)
	if ok {
		h.buffer.buf = s
	}
	return s, ok
}
