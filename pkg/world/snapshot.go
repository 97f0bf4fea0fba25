package world

import "slices"

// IncomingExit is an exit seen from its target's side.
type IncomingExit struct {
	SourceID  LocationID
	Direction Direction
}

// Snapshot is an id-indexed view of every location, loaded once per request
// and threaded through the engine. It is not safe for concurrent use.
//
// Snapshots are never refreshed from storage; writes made during a request
// must be reflected with Put so later steps see them.
type Snapshot struct {
	byID     map[LocationID]*Location
	order    []LocationID
	incoming map[LocationID][]IncomingExit
	cells    map[Coordinates][]LocationID
	indexed  map[LocationID]*Location // copy of what is currently indexed per id
}

// NewSnapshot indexes locs, keeping their order. Later duplicates of an id replace earlier ones.
func NewSnapshot(locs []*Location) *Snapshot {
	s := &Snapshot{
		byID:     make(map[LocationID]*Location, len(locs)),
		incoming: make(map[LocationID][]IncomingExit),
		cells:    make(map[Coordinates][]LocationID),
		indexed:  make(map[LocationID]*Location, len(locs)),
	}
	for _, loc := range locs {
		if loc != nil {
			s.Put(loc)
		}
	}
	return s
}

func (s *Snapshot) Len() int {
	return len(s.order)
}

// Get returns the location with id, or nil.
func (s *Snapshot) Get(id LocationID) *Location {
	return s.byID[id]
}

// All returns locations in load order.
func (s *Snapshot) All() []*Location {
	out := make([]*Location, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Incoming returns every exit, from any location, that targets id.
func (s *Snapshot) Incoming(id LocationID) []IncomingExit {
	return s.incoming[id]
}

// OccupantsAt returns the ids of locations placed at c, in load order.
func (s *Snapshot) OccupantsAt(c Coordinates) []LocationID {
	return s.cells[c]
}

// IsOccupied reports whether any location sits at c.
func (s *Snapshot) IsOccupied(c Coordinates) bool {
	return len(s.cells[c]) > 0
}

// HasCoordinatedLocations reports whether anything in the world has been placed.
func (s *Snapshot) HasCoordinatedLocations() bool {
	return len(s.cells) > 0
}

// Put inserts or replaces loc by id and reindexes its exits and coordinates.
func (s *Snapshot) Put(loc *Location) {
	if old, ok := s.indexed[loc.ID]; ok {
		s.unindex(old)
	} else {
		s.order = append(s.order, loc.ID)
	}
	s.byID[loc.ID] = loc
	s.index(loc)
}

// Remove drops id from the snapshot.
func (s *Snapshot) Remove(id LocationID) {
	old, ok := s.indexed[id]
	if !ok {
		return
	}
	s.unindex(old)
	delete(s.byID, id)
	delete(s.indexed, id)
	s.order = slices.DeleteFunc(s.order, func(x LocationID) bool { return x == id })
}

func (s *Snapshot) index(loc *Location) {
	s.indexed[loc.ID] = loc.Clone()
	for _, e := range loc.Exits {
		s.incoming[e.TargetID] = append(s.incoming[e.TargetID], IncomingExit{SourceID: loc.ID, Direction: e.Direction})
	}
	if loc.Coordinates != nil {
		c := *loc.Coordinates
		s.cells[c] = append(s.cells[c], loc.ID)
	}
}

func (s *Snapshot) unindex(loc *Location) {
	for _, e := range loc.Exits {
		in := slices.DeleteFunc(s.incoming[e.TargetID], func(x IncomingExit) bool { return x.SourceID == loc.ID })
		if len(in) == 0 {
			delete(s.incoming, e.TargetID)
		} else {
			s.incoming[e.TargetID] = in
		}
	}
	if loc.Coordinates != nil {
		c := *loc.Coordinates
		ids := slices.DeleteFunc(s.cells[c], func(x LocationID) bool { return x == loc.ID })
		if len(ids) == 0 {
			delete(s.cells, c)
		} else {
			s.cells[c] = ids
		}
	}
}
