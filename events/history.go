package events

// DefaultHistoryCapacity bounds the bus history when no capacity is given.
const DefaultHistoryCapacity = 1000

// History is a fixed-capacity ring of dispatched notifications.
type History struct {
	buf   []Notification
	start int
	size  int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{buf: make([]Notification, capacity)}
}

// Add records n, overwriting the oldest entry when full.
func (h *History) Add(n Notification) {
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = n
		h.size++
		return
	}
	h.buf[h.start] = n
	h.start = (h.start + 1) % len(h.buf)
}

// Snapshot returns recorded notifications oldest first, optionally filtered
// to the given kinds.
func (h *History) Snapshot(kinds ...Kind) []Notification {
	out := make([]Notification, 0, h.size)
	for i := 0; i < h.size; i++ {
		n := h.buf[(h.start+i)%len(h.buf)]
		if len(kinds) == 0 || hasKind(kinds, n.Kind) {
			out = append(out, n)
		}
	}
	return out
}

func (h *History) Len() int { return h.size }
func (h *History) Cap() int { return len(h.buf) }

func (h *History) Clear() {
	clear(h.buf)
	h.start, h.size = 0, 0
}

func hasKind(kinds []Kind, k Kind) bool {
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}
