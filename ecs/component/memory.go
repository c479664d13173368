package component

import "github.com/jakecoffman/cp"

const (
	DefaultMaxMemories         = 100
	DefaultImportanceThreshold = 0.1
	// DefaultRecencyHalfLife is the age, in ticks, at which a memory's
	// recency weight drops to one half.
	DefaultRecencyHalfLife = 50.0
)

// Topics written by the AI manager.
const (
	TopicCombat = "combat"
	TopicDeath  = "death"
	TopicAlly   = "ally"
	TopicPlayer = "player"
)

type MemoryEntry struct {
	Content    string
	Topic      string
	Subject    uint64
	Importance float64
	Timestamp  int64
	Witnessed  bool
	// Location is where it happened; only meaningful when Located is set.
	Location cp.Vector
	Located  bool
}

// Memory is a bounded, ordered log of remembered events.
type Memory struct {
	MaxMemories         int
	ImportanceThreshold float64
	HalfLife            float64
	Entries             []MemoryEntry
}

var MemoryComponent = NewComponent[Memory]()

func NewMemory(maxMemories int, threshold float64) Memory {
	if maxMemories <= 0 {
		maxMemories = DefaultMaxMemories
	}
	return Memory{
		MaxMemories:         maxMemories,
		ImportanceThreshold: threshold,
		HalfLife:            DefaultRecencyHalfLife,
	}
}

// RecencyWeight maps an age in ticks to (0,1]. It is 1 at age 0, 1/2 at one
// half-life and strictly decreasing after that.
func RecencyWeight(age int64, halfLife float64) float64 {
	if age <= 0 {
		return 1
	}
	if halfLife <= 0 {
		halfLife = DefaultRecencyHalfLife
	}
	return 1 / (1 + float64(age)/halfLife)
}

func (m Memory) capacity() int {
	if m.MaxMemories <= 0 {
		return DefaultMaxMemories
	}
	return m.MaxMemories
}

// Score is the eviction key of e at time now.
func (m Memory) Score(e MemoryEntry, now int64) float64 {
	return e.Importance * RecencyWeight(now-e.Timestamp, m.HalfLife)
}

// Add appends entry and, when over capacity, evicts the entry with the lowest
// importance × recency weight. Ties evict the oldest, then the earliest
// inserted. The evicted entry is returned.
func (m *Memory) Add(entry MemoryEntry, now int64) (MemoryEntry, bool) {
	entry.Importance = clampUnit(entry.Importance)
	m.Entries = append(m.Entries, entry)
	if len(m.Entries) <= m.capacity() {
		return MemoryEntry{}, false
	}
	victim := 0
	best := m.Score(m.Entries[0], now)
	for i := 1; i < len(m.Entries); i++ {
		s := m.Score(m.Entries[i], now)
		if s < best || (s == best && m.Entries[i].Timestamp < m.Entries[victim].Timestamp) {
			victim, best = i, s
		}
	}
	evicted := m.Entries[victim]
	m.Entries = append(m.Entries[:victim], m.Entries[victim+1:]...)
	return evicted, true
}

// Recall returns entries about topic whose importance reaches the threshold,
// oldest first.
func (m Memory) Recall(topic string) []MemoryEntry {
	var out []MemoryEntry
	for _, e := range m.Entries {
		if e.Topic == topic && e.Importance >= m.ImportanceThreshold {
			out = append(out, e)
		}
	}
	return out
}

// RecallScore is the strongest recency-weighted importance among entries on
// topic, in [0,1].
func (m Memory) RecallScore(topic string, now int64) float64 {
	if topic == "" {
		return 0
	}
	best := 0.0
	for _, e := range m.Recall(topic) {
		if s := m.Score(e, now); s > best {
			best = s
		}
	}
	return best
}

// About returns entries whose subject is the given entity.
func (m Memory) About(subject uint64) []MemoryEntry {
	var out []MemoryEntry
	for _, e := range m.Entries {
		if e.Subject == subject {
			out = append(out, e)
		}
	}
	return out
}

// At returns entries that happened at pos.
func (m Memory) At(pos cp.Vector) []MemoryEntry {
	var out []MemoryEntry
	for _, e := range m.Entries {
		if e.Located && e.Location == pos {
			out = append(out, e)
		}
	}
	return out
}

// Forget drops entries whose recency-weighted importance fell below the
// threshold. Witnessed entries fade at half speed.
func (m *Memory) Forget(now int64) int {
	kept := m.Entries[:0]
	dropped := 0
	for _, e := range m.Entries {
		age := now - e.Timestamp
		if e.Witnessed {
			age /= 2
		}
		if e.Importance*RecencyWeight(age, m.HalfLife) < m.ImportanceThreshold {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	m.Entries = kept
	return dropped
}
