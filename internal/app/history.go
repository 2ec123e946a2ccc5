package app

import (
	"context"
	"sync"

	"github.com/okian/huematch/internal/domain/model"
)

// memoryHistory is the capture ring used when no persistent history is
// configured.
type memoryHistory struct {
	mu   sync.Mutex
	buf  []model.Capture
	next int
	full bool
}

func newMemoryHistory(size int) *memoryHistory {
	if size < 1 {
		size = 1
	}
	return &memoryHistory{buf: make([]model.Capture, size)}
}

func (h *memoryHistory) AppendCapture(_ context.Context, c model.Capture) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.next] = c
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
	return nil
}

// Captures returns the ring newest first.
func (h *memoryHistory) Captures(context.Context) ([]model.Capture, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := h.next
	if h.full {
		n = len(h.buf)
	}
	out := make([]model.Capture, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, h.buf[(h.next-i+len(h.buf))%len(h.buf)])
	}
	return out, nil
}
