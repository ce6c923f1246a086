// Package osmingest builds a chmodel graph from an OSM PBF extract: a
// two-pass way/node scan, direction and car-accessibility filtering per the
// highway tag set, and a dense node/edge remap into chmodel's fixed record
// shape.
package osmingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"sort"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"chcore/pkg/chmodel"
	"chcore/pkg/geo"
)

// roadType maps an OSM highway tag value to the road-type code chmodel's
// default-speed table is indexed by.
var roadType = map[string]uint8{
	"motorway":       1,
	"motorway_link":  2,
	"primary":        3,
	"primary_link":   4,
	"secondary":      5,
	"secondary_link": 6,
	"tertiary":       7,
	"tertiary_link":  8,
	"trunk":          9,
	"trunk_link":     10,
	"unclassified":   11,
	"residential":    12,
	"living_street":  13,
	"road":           14,
	"service":        15,
}

func isCarAccessible(tags osm.Tags) bool {
	hw := tags.Find("highway")
	if _, ok := roadType[hw]; !ok {
		return false
	}
	if tags.Find("area") == "yes" {
		return false
	}
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}
	return true
}

func directionFlags(tags osm.Tags) (forward, backward bool) {
	forward, backward = true, true

	hw := tags.Find("highway")
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward, backward = true, false
	case "-1", "reverse":
		forward, backward = false, true
	case "no":
		forward, backward = true, true
	case "reversible":
		forward, backward = false, false
	}
	return forward, backward
}

// maxspeedKMH parses the common subset of the OSM maxspeed tag: a bare
// number (km/h) or a number with a "mph" suffix. Anything else (implicit
// limits, conditional values) is treated as not posted.
func maxspeedKMH(tags osm.Tags) int32 {
	v := tags.Find("maxspeed")
	if v == "" {
		return 0
	}
	var num float64
	var unit string
	if n, _ := fmt.Sscanf(v, "%f %s", &num, &unit); n == 0 {
		if _, err := fmt.Sscanf(v, "%f", &num); err != nil {
			return 0
		}
	}
	if unit == "mph" {
		num *= 1.60934
	}
	if num <= 0 {
		return 0
	}
	return int32(math.Round(num))
}

// BBox filters ingest to a geographic bounding box. A zero-value BBox
// disables filtering.
type BBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

func (b BBox) isZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLon == 0 && b.MaxLon == 0
}

func (b BBox) contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Options configures Parse.
type Options struct {
	BBox BBox
}

type wayInfo struct {
	nodeIDs          []osm.NodeID
	forward, backward bool
	roadType         uint8
	speed            int32
}

// Parse reads an OSM PBF extract and returns a chmodel node/edge set ready
// for graph.Init. rs is scanned twice (way pass, then node-coordinate pass)
// so it must support seeking back to the start.
func Parse(ctx context.Context, rs io.ReadSeeker, opts Options) ([]chmodel.Node, []chmodel.Edge, error) {
	referenced := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if !isCarAccessible(w.Tags) || len(w.Nodes) < 2 {
			continue
		}
		fwd, bwd := directionFlags(w.Tags)
		if !fwd && !bwd {
			continue
		}

		ids := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			ids[i] = wn.ID
			referenced[wn.ID] = struct{}{}
		}
		ways = append(ways, wayInfo{
			nodeIDs:  ids,
			forward:  fwd,
			backward: bwd,
			roadType: roadType[w.Tags.Find("highway")],
			speed:    maxspeedKMH(w.Tags),
		})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, nil, fmt.Errorf("osmingest: way pass: %w", err)
	}
	scanner.Close()
	log.Printf("osmingest: %d ways, %d referenced nodes", len(ways), len(referenced))

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, nil, fmt.Errorf("osmingest: seek for node pass: %w", err)
	}

	type coord struct{ lat, lon float64 }
	coords := make(map[osm.NodeID]coord, len(referenced))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referenced[n.ID]; !needed {
			continue
		}
		coords[n.ID] = coord{lat: n.Lat, lon: n.Lon}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, nil, fmt.Errorf("osmingest: node pass: %w", err)
	}
	scanner.Close()
	log.Printf("osmingest: %d node coordinates collected", len(coords))

	useBBox := !opts.BBox.isZero()

	// Assign dense ids in ascending OSM node id order, for reproducible output.
	ordered := make([]osm.NodeID, 0, len(coords))
	for id := range coords {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	idIndex := make(map[osm.NodeID]chmodel.NodeID, len(ordered))
	nodes := make([]chmodel.Node, len(ordered))
	for i, id := range ordered {
		c := coords[id]
		idIndex[id] = chmodel.NodeID(i)
		nodes[i] = chmodel.Node{
			ID:    chmodel.NodeID(i),
			Lon:   int32(math.Round(c.lon * 1e7)),
			Lat:   int32(math.Round(c.lat * 1e7)),
			OSMID: uint64(id),
			Level: chmodel.NoLevel,
		}
	}

	var edges []chmodel.Edge
	var skipped, bboxFiltered int
	for _, w := range ways {
		for i := 0; i < len(w.nodeIDs)-1; i++ {
			fromID, toID := w.nodeIDs[i], w.nodeIDs[i+1]
			from, fromOk := coords[fromID]
			to, toOk := coords[toID]
			if !fromOk || !toOk {
				skipped++
				continue
			}
			if useBBox && (!opts.BBox.contains(from.lat, from.lon) || !opts.BBox.contains(to.lat, to.lon)) {
				bboxFiltered++
				continue
			}

			dist := uint32(math.Round(geo.Haversine(from.lat, from.lon, to.lat, to.lon)))
			if dist == 0 {
				dist = 1
			}

			fromNode, toNode := idIndex[fromID], idIndex[toID]
			if w.forward {
				edges = append(edges, newOSMEdge(fromNode, toNode, dist, w))
			}
			if w.backward {
				edges = append(edges, newOSMEdge(toNode, fromNode, dist, w))
			}
		}
	}

	if skipped > 0 {
		log.Printf("osmingest: skipped %d edges with missing node coordinates", skipped)
	}
	if bboxFiltered > 0 {
		log.Printf("osmingest: filtered %d edges outside bounding box", bboxFiltered)
	}
	log.Printf("osmingest: built %d directed edges over %d nodes", len(edges), len(nodes))

	return nodes, edges, nil
}

func newOSMEdge(src, tgt chmodel.NodeID, dist uint32, w wayInfo) chmodel.Edge {
	return chmodel.Edge{
		Src:        src,
		Tgt:        tgt,
		Dist:       dist,
		RoadType:   w.roadType,
		Speed:      w.speed,
		ChildEdge1: chmodel.NoEdge,
		ChildEdge2: chmodel.NoEdge,
		CenterNode: chmodel.NoNode,
	}
}
