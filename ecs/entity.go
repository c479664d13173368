package ecs

import "strconv"

// Entity is a generational handle: the low 32 bits index a slot, the high
// 32 bits carry the slot's generation at allocation time.
type Entity uint64

type entityID uint32
type generation uint32

const entityIDBits = 32

func makeEntity(id entityID, gen generation) Entity {
	return Entity(uint64(gen)<<entityIDBits | uint64(id))
}

func (e Entity) id() entityID {
	return entityID(uint32(e))
}

func (e Entity) generation() generation {
	return generation(uint32(uint64(e) >> entityIDBits))
}

func (e Entity) String() string {
	return strconv.FormatUint(uint64(e), 10)
}

// Valid reports whether e could refer to an entity. The zero Entity never does.
func (e Entity) Valid() bool {
	return e.id() > 0
}

// entityStore hands out ids and tracks per-slot generations so that a handle
// to a destroyed entity never matches a later occupant of the same slot.
type entityStore struct {
	gen  []generation
	live []bool
	free []entityID
	n    int
}

func (s *entityStore) create() Entity {
	var id entityID
	if last := len(s.free) - 1; last >= 0 {
		id = s.free[last]
		s.free = s.free[:last]
	} else {
		s.gen = append(s.gen, 0)
		s.live = append(s.live, false)
		id = entityID(len(s.gen))
	}
	s.live[id-1] = true
	s.n++
	return makeEntity(id, s.gen[id-1])
}

func (s *entityStore) destroy(e Entity) bool {
	if !s.isAlive(e) {
		return false
	}
	idx := e.id() - 1
	s.gen[idx]++
	s.live[idx] = false
	s.free = append(s.free, e.id())
	s.n--
	return true
}

func (s *entityStore) isAlive(e Entity) bool {
	id := e.id()
	if id == 0 || int(id) > len(s.gen) {
		return false
	}
	return s.live[id-1] && s.gen[id-1] == e.generation()
}

func (s *entityStore) handle(id entityID) Entity {
	return makeEntity(id, s.gen[id-1])
}

func (s *entityStore) all() []Entity {
	out := make([]Entity, 0, s.n)
	for i, alive := range s.live {
		if alive {
			out = append(out, makeEntity(entityID(i+1), s.gen[i]))
		}
	}
	return out
}
