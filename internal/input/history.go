package input

// History is a per-mode recall buffer for previously entered lines
// (goto-line numbers, find patterns): Push appends (de-duplicating and
// resetting the recall cursor to the end), Prev/Next walk it without
// mutating it. Ported from original_source/src/history.rs's
// BufferHistory.
type History struct {
	buffers []string
	cursor  int
}

func newHistoryWith(buf string) *History {
	return &History{buffers: []string{buf}, cursor: 1}
}

// Push appends buf, removing any earlier occurrence of the same text
// first, and resets the recall cursor past the end. Empty strings are
// never kept.
func (h *History) Push(buf string) {
	if buf == "" {
		return
	}
	for i, b := range h.buffers {
		if b == buf {
			h.buffers = append(h.buffers[:i], h.buffers[i+1:]...)
			break
		}
	}
	h.buffers = append(h.buffers, buf)
	h.resetCursor()
}

// Prev moves the recall cursor back one and returns the entry now under
// it, or ("", false) once the cursor has reached the oldest entry.
func (h *History) Prev() (string, bool) {
	if h.cursor == 0 {
		return "", false
	}
	h.cursor--
	return h.buffers[h.cursor], true
}

// Next is Prev's mirror: moves forward one, or ("", false) at the newest
// entry.
func (h *History) Next() (string, bool) {
	if h.cursor >= len(h.buffers)-1 {
		return "", false
	}
	h.cursor++
	return h.buffers[h.cursor], true
}

func (h *History) resetCursor() {
	h.cursor = len(h.buffers)
}

// HistoryContainer keeps one History per input Mode.
type HistoryContainer struct {
	byMode map[Mode]*History
}

// NewHistoryContainer returns an empty container.
func NewHistoryContainer() *HistoryContainer {
	return &HistoryContainer{byMode: make(map[Mode]*History)}
}

// Set records content as the latest entry for mode, creating its History
// on first use.
func (c *HistoryContainer) Set(mode Mode, content string) {
	h, ok := c.byMode[mode]
	if !ok {
		c.byMode[mode] = newHistoryWith(content)
		return
	}
	h.Push(content)
}

// Prev/Next delegate to mode's History, if one exists yet.
func (c *HistoryContainer) Prev(mode Mode) (string, bool) {
	h, ok := c.byMode[mode]
	if !ok {
		return "", false
	}
	return h.Prev()
}

func (c *HistoryContainer) Next(mode Mode) (string, bool) {
	h, ok := c.byMode[mode]
	if !ok {
		return "", false
	}
	return h.Next()
}

// ResetCursors resets every mode's recall cursor to its end. The Handler
// calls it whenever a character is typed into an active buffer.
func (c *HistoryContainer) ResetCursors() {
	for _, h := range c.byMode {
		h.resetCursor()
	}
}
