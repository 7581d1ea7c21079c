package diagram

// EdgeSet keeps edges keyed by id in first-insertion order. Putting an
// edge whose id is already present replaces it in place (last write wins).
type EdgeSet struct {
	index map[string]int
	edges []Edge
}

// NewEdgeSet creates an empty edge set.
func NewEdgeSet() *EdgeSet {
	return &EdgeSet{index: make(map[string]int)}
}

// Put inserts e, replacing any edge with the same id. It reports whether
// an existing edge was replaced.
func (s *EdgeSet) Put(e Edge) bool {
	if e.ID == "" {
		e.ID = EdgeID(e.Source, e.Target)
	}
	if i, ok := s.index[e.ID]; ok {
		s.edges[i] = e
		return true
	}
	s.index[e.ID] = len(s.edges)
	s.edges = append(s.edges, e)
	return false
}

// Len returns the number of edges.
func (s *EdgeSet) Len() int {
	return len(s.edges)
}

// Edges returns a copy of the edges in insertion order.
func (s *EdgeSet) Edges() []Edge {
	return append([]Edge(nil), s.edges...)
}
