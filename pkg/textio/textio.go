// Package textio implements the four plain-text graph formats: STD and
// FMI share a node/edge record shape and differ only in header framing,
// SIMPLE drops the OSM-specific fields, and FMI_CH is STD's shape with an
// extended write-only comment header. None of the four round-trip through
// every other format — FMI is read-only and FMI_CH is write-only in the
// original tool, and that asymmetry is kept here.
package textio

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"chcore/pkg/cherr"
	"chcore/pkg/chmodel"
)

// Format selects one of the four text graph formats.
type Format int

const (
	STD Format = iota
	Simple
	FMI
	FMICH
)

func (f Format) String() string {
	switch f {
	case STD:
		return "STD"
	case Simple:
		return "SIMPLE"
	case FMI:
		return "FMI"
	case FMICH:
		return "FMI_CH"
	default:
		return "UNKNOWN"
	}
}

// ParseFormat maps a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "STD":
		return STD, nil
	case "SIMPLE":
		return Simple, nil
	case "FMI":
		return FMI, nil
	case "FMI_CH":
		return FMICH, nil
	}
	return 0, cherr.New(cherr.FormatUnsupported, "unknown text format %q", s)
}

// Read parses a text graph file. FMI_CH has no reader in the original tool
// and has none here either.
func Read(r io.Reader, format Format) ([]chmodel.Node, []chmodel.Edge, error) {
	if format == FMICH {
		return nil, nil, cherr.New(cherr.FormatUnsupported, "FMI_CH is write-only")
	}

	br := bufio.NewReader(r)
	if format == FMI {
		if err := skipFMIComments(br); err != nil {
			return nil, nil, cherr.Wrap(cherr.IngestMalformed, err, "skip FMI header comments")
		}
	}

	var nrNodes, nrEdges uint32
	if _, err := fmt.Fscan(br, &nrNodes, &nrEdges); err != nil {
		return nil, nil, cherr.Wrap(cherr.IngestMalformed, err, "read header counts")
	}

	nodes := make([]chmodel.Node, nrNodes)
	for i := range nodes {
		n, err := readNode(br, format, chmodel.NodeID(i))
		if err != nil {
			return nil, nil, err
		}
		nodes[i] = n
	}

	edges := make([]chmodel.Edge, nrEdges)
	for i := range edges {
		e, err := readEdge(br, format)
		if err != nil {
			return nil, nil, err
		}
		edges[i] = e
	}

	return nodes, edges, nil
}

// skipFMIComments discards leading blank lines and lines starting with '#'.
func skipFMIComments(br *bufio.Reader) error {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return err
		}
		if b[0] != '#' && b[0] != '\n' && b[0] != '\r' {
			return nil
		}
		if _, err := br.ReadString('\n'); err != nil {
			return err
		}
	}
}

func readNode(r io.Reader, format Format, expectedID chmodel.NodeID) (chmodel.Node, error) {
	if format == Simple {
		var lat, lon, elev int32
		if _, err := fmt.Fscan(r, &lat, &lon, &elev); err != nil {
			return chmodel.Node{}, cherr.Wrap(cherr.IngestMalformed, err, "read node at index %d", expectedID)
		}
		return chmodel.Node{ID: expectedID, Lat: lat, Lon: lon, Elev: elev, Level: chmodel.NoLevel}, nil
	}

	var id chmodel.NodeID
	var osmID uint64
	var lat, lon, elev int32
	if _, err := fmt.Fscan(r, &id, &osmID, &lat, &lon, &elev); err != nil {
		return chmodel.Node{}, cherr.Wrap(cherr.IngestMalformed, err, "read node at index %d", expectedID)
	}
	if id != expectedID {
		return chmodel.Node{}, cherr.New(cherr.IngestMalformed, "node id %d at index %d: ids must be sequential", id, expectedID)
	}
	return chmodel.Node{ID: id, OSMID: osmID, Lat: lat, Lon: lon, Elev: elev, Level: chmodel.NoLevel}, nil
}

func readEdge(r io.Reader, format Format) (chmodel.Edge, error) {
	if format == Simple {
		var src, tgt chmodel.NodeID
		var dist uint32
		if _, err := fmt.Fscan(r, &src, &tgt, &dist); err != nil {
			return chmodel.Edge{}, cherr.Wrap(cherr.IngestMalformed, err, "read edge")
		}
		return chmodel.Edge{Src: src, Tgt: tgt, Dist: dist, ChildEdge1: chmodel.NoEdge, ChildEdge2: chmodel.NoEdge, CenterNode: chmodel.NoNode}, nil
	}

	var src, tgt chmodel.NodeID
	var dist uint32
	var roadType uint8
	var speed int32
	if _, err := fmt.Fscan(r, &src, &tgt, &dist, &roadType, &speed); err != nil {
		return chmodel.Edge{}, cherr.Wrap(cherr.IngestMalformed, err, "read edge")
	}
	return chmodel.Edge{
		Src: src, Tgt: tgt, Dist: dist, RoadType: roadType, Speed: speed,
		ChildEdge1: chmodel.NoEdge, ChildEdge2: chmodel.NoEdge, CenterNode: chmodel.NoNode,
	}, nil
}

// Write serializes a graph in a text format. FMI has no writer in the
// original tool and has none here either.
func Write(w io.Writer, format Format, nodes []chmodel.Node, edges []chmodel.Edge) error {
	if format == FMI {
		return cherr.New(cherr.FormatUnsupported, "FMI is read-only")
	}

	bw := bufio.NewWriter(w)
	if err := writeHeader(bw, format, len(nodes), len(edges)); err != nil {
		return err
	}
	for i := range nodes {
		if format != Simple {
			cherr.Assert(nodes[i].ID == chmodel.NodeID(i), "node at index %d has id %d", i, nodes[i].ID)
		}
		if err := writeNode(bw, format, &nodes[i]); err != nil {
			return err
		}
	}
	for i := range edges {
		if err := writeEdge(bw, format, &edges[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeHeader(w *bufio.Writer, format Format, nrNodes, nrEdges int) error {
	if format == FMICH {
		fmt.Fprintf(w, "# Id : %s\n", randomID(32))
		fmt.Fprintf(w, "# Timestamp : %d\n", time.Now().Unix())
		fmt.Fprintln(w, "# Type: maxspeed")
		fmt.Fprintln(w, "# Revision: 1")
		fmt.Fprintln(w)
	}
	_, err := fmt.Fprintf(w, "%d\n%d\n", nrNodes, nrEdges)
	return err
}

func randomID(n int) string {
	b := make([]byte, n/2)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func writeNode(w *bufio.Writer, format Format, n *chmodel.Node) error {
	var err error
	if format == Simple {
		_, err = fmt.Fprintf(w, "%d %d %d\n", n.Lat, n.Lon, n.Elev)
	} else {
		_, err = fmt.Fprintf(w, "%d %d %d %d %d\n", n.ID, n.OSMID, n.Lat, n.Lon, n.Elev)
	}
	return err
}

func writeEdge(w *bufio.Writer, format Format, e *chmodel.Edge) error {
	var err error
	if format == Simple {
		_, err = fmt.Fprintf(w, "%d %d %d\n", e.Src, e.Tgt, e.Dist)
	} else {
		_, err = fmt.Fprintf(w, "%d %d %d %d %d\n", e.Src, e.Tgt, e.Dist, e.RoadType, e.Speed)
	}
	return err
}
