// Package chmodel defines the fixed node/edge record shape shared by every
// stage of the pipeline: text ingest, OSM ingest, the contraction core, and
// the spatial block file. There is exactly one record shape — see the design
// note on polymorphic payloads: no per-format subtype, only zero-valued
// fields the format in question doesn't populate.
package chmodel

// NodeID is a dense index into the node table, assigned at ingest time.
type NodeID uint32

// EdgeID is a dense index into the edge store. Ids are assigned by a
// monotone counter and never reused or shifted. A freshly appended
// shortcut's child ids are strictly less than its own id; a shortcut that is
// replaced in place keeps its older id, so its new children may carry
// larger ids.
type EdgeID uint32

// NoNode, NoEdge, NoDist and NoLevel are the sentinel values used throughout
// for "absent" ids, distances and levels.
const (
	NoNode  NodeID = ^NodeID(0)
	NoEdge  EdgeID = ^EdgeID(0)
	NoDist  uint32 = ^uint32(0)
	NoLevel uint32 = ^uint32(0)
)

// Direction selects which of the two sorted indices a lookup applies to.
type Direction int

const (
	Out Direction = iota
	In
)

// Node is the fixed node record. Coordinates are signed micro-degrees
// (round(deg * 1e7)). OSMID and Elev are zero when the ingest format doesn't
// carry them (geo-only ingest). Level is NoLevel until the node is
// contracted, and is set exactly once.
type Node struct {
	ID    NodeID
	Lon   int32
	Lat   int32
	OSMID uint64
	Elev  int32
	Level uint32
}

// Contracted reports whether the node has been assigned a level.
func (n Node) Contracted() bool {
	return n.Level != NoLevel
}

// Edge is the fixed edge record: a plain original edge, an OSM-tagged edge,
// and a CH shortcut are all the same struct. ChildEdge1/ChildEdge2/CenterNode
// are NoEdge/NoEdge/NoNode for a non-shortcut original edge.
type Edge struct {
	ID         EdgeID
	Src        NodeID
	Tgt        NodeID
	Dist       uint32
	RoadType   uint8 // 0 = unknown, falls into the default speed bucket
	Speed      int32 // posted speed; <= 0 means "not posted"
	ChildEdge1 EdgeID
	ChildEdge2 EdgeID
	CenterNode NodeID
}

// IsShortcut reports whether the edge was produced by contracting a node.
func (e *Edge) IsShortcut() bool {
	return e.CenterNode != NoNode
}

// SameEndpoints reports whether two edges share (src, tgt) — the definition
// of "equal-endpoint" shortcuts from the data model.
func SameEndpoints(a, b *Edge) bool {
	return a.Src == b.Src && a.Tgt == b.Tgt
}

// OutLess orders edges by the outgoing sort key (src, tgt).
func OutLess(a, b *Edge) bool {
	if a.Src != b.Src {
		return a.Src < b.Src
	}
	return a.Tgt < b.Tgt
}

// InLess orders edges by the incoming sort key (tgt, src).
func InLess(a, b *Edge) bool {
	if a.Tgt != b.Tgt {
		return a.Tgt < b.Tgt
	}
	return a.Src < b.Src
}

// defaultSpeedForRoadType is the fallback km/h table used when an edge has
// no posted speed, indexed by the road-type codes used throughout ingest.
func defaultSpeedForRoadType(roadType uint8) int32 {
	switch roadType {
	case 1:
		return 130 // motorway
	case 2:
		return 100 // motorway link
	case 3:
		return 70 // primary
	case 4:
		return 70 // primary link
	case 5:
		return 65 // secondary
	case 6:
		return 65 // secondary link
	case 7:
		return 60 // tertiary
	case 8:
		return 60 // tertiary link
	case 9:
		return 80 // trunk
	case 10:
		return 80 // trunk link
	case 11:
		return 30 // unclassified
	case 12:
		return 50 // residential
	case 13:
		return 30 // living street
	case 14:
		return 30 // road
	case 15:
		return 30 // service
	case 16:
		return 30 // turning circle
	default:
		return 50
	}
}

// EdgeTime computes the time-weighted variant of an edge's distance:
// min(MaxUint32, dist*1300/speed_eff). speed_eff is the posted speed when
// positive, otherwise the road-type default. The result is expressed in
// 9/325 of a second, matching the binary format's time field.
func EdgeTime(e *Edge) uint32 {
	speed := e.Speed
	if speed <= 0 {
		speed = defaultSpeedForRoadType(e.RoadType)
	}
	result := uint64(e.Dist) * 1300 / uint64(speed)
	if result > uint64(NoDist) {
		return NoDist
	}
	return uint32(result)
}

// Concat merges two consecutive edges (edge1.Tgt == edge2.Src) into the
// shortcut that would replace them, without assigning an id or center node —
// the caller fills those in.
func Concat(edge1, edge2 *Edge) Edge {
	return Edge{
		ID:         NoEdge,
		Src:        edge1.Src,
		Tgt:        edge2.Tgt,
		Dist:       edge1.Dist + edge2.Dist,
		ChildEdge1: NoEdge,
		ChildEdge2: NoEdge,
		CenterNode: NoNode,
	}
}
