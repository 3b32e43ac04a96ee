package discovery

import (
	"fmt"
	"io"
	"time"
)

const historySize = 50

type historyEntry struct {
	at   time.Time
	line string
}

// history is a fixed-size circular record of state transitions and
// engine calls, appended only from the main loop.
type history struct {
	entries [historySize]historyEntry
	next    int
	count   int
}

func (h *history) record(format string, args ...interface{}) {
	h.entries[h.next] = historyEntry{
		at:   time.Now(),
		line: fmt.Sprintf(format, args...),
	}
	h.next = (h.next + 1) % historySize
	if h.count < historySize {
		h.count++
	}
}

// dump writes the retained entries oldest-first.
func (h *history) dump(w io.Writer) {
	start := h.next - h.count
	if start < 0 {
		start += historySize
	}
	for i := 0; i < h.count; i++ {
		e := h.entries[(start+i)%historySize]
		fmt.Fprintf(w, "  %s %s\n", e.at.Format("15:04:05.000"), e.line)
	}
}
