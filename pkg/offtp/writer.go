// Package offtp implements the spatial block file format: a hierarchical
// grid of fixed-size node blocks plus two edge sections, 4096-byte-aligned,
// big-endian, with no checksum trailer. Grounded byte-for-byte in the
// original Offline-TP writer/reader this format was distilled from.
package offtp

import (
	"encoding/binary"
	"io"
	"sort"

	"chcore/pkg/ch"
	"chcore/pkg/cherr"
	"chcore/pkg/chmodel"
)

const (
	magicWord1    = 0x4348474F
	magicWord2    = 0x66665450
	formatVersion = 1
	blockSize     = 255
	pageSize      = 4096
)

// gridLevel describes one level of the hierarchical grid: nodes with CH
// level below RankThreshold are placed into a Width x Width grid aligned to
// the base grid. Nodes at or above the last level's threshold form the
// single core chain.
type gridLevel struct {
	RankThreshold uint32
	Width         uint32
}

var gridLevels = []gridLevel{
	{5, 256},
	{10, 64},
	{20, 32},
	{40, 8},
}

var coreRankThreshold = gridLevels[len(gridLevels)-1].RankThreshold

const noBlock = ^uint32(0)

type block struct {
	baseX, baseY int32
	level        uint32 // index into gridLevels, or noBlock for the core chain
	next         uint32
	count        uint32
	nodeIDs      [blockSize]uint32
}

func newBlock(baseX, baseY int32, level uint32) block {
	b := block{baseX: baseX, baseY: baseY, level: level, next: noBlock}
	for i := range b.nodeIDs {
		b.nodeIDs[i] = noBlock
	}
	return b
}

// writer accumulates the block layout and edge partitioning for one
// Write call; it is not reused across calls.
type writer struct {
	nodes []chmodel.Node
	edges []chmodel.Edge

	minLon, minLat, maxLon, maxLat int32

	blocks                         []block
	cellBlocks                     []uint32
	baseCellX, baseCellY           int32
	baseCellWidth, baseCellHeight  int32
	coreBlockStart                 uint32

	nodeBlockID         []uint32
	nodeFirstOutEdgeID  []uint32
	nodeFirstInEdgeID   []uint32
	nodeEndEdgeID       []uint32

	useEdges     []int
	edgesReverse []uint32

	written uint64
}

// Write serializes data in the spatial block file layout.
func Write(w io.Writer, data ch.ExportData) error {
	wr := &writer{nodes: data.Nodes, edges: data.Edges, coreBlockStart: noBlock}
	wr.calcBounds()
	wr.prepareCellBlocks()
	wr.fillBlocks()
	wr.countAndSortEdges()

	steps := []func(io.Writer) error{
		wr.writeHeader,
		wr.writeNodeGeoBlocks,
		wr.writeNodeEdgeBlocks,
		wr.writeEdgesBasic,
		wr.writeEdgesDetails,
	}
	for i, step := range steps {
		if err := step(w); err != nil {
			return err
		}
		if i < len(steps)-1 {
			if err := wr.align(w); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *writer) calcBounds() {
	if len(w.nodes) == 0 {
		return
	}
	w.minLon, w.maxLon = w.nodes[0].Lon, w.nodes[0].Lon
	w.minLat, w.maxLat = w.nodes[0].Lat, w.nodes[0].Lat
	for _, n := range w.nodes[1:] {
		if n.Lon < w.minLon {
			w.minLon = n.Lon
		}
		if n.Lon > w.maxLon {
			w.maxLon = n.Lon
		}
		if n.Lat < w.minLat {
			w.minLat = n.Lat
		}
		if n.Lat > w.maxLat {
			w.maxLat = n.Lat
		}
	}
}

// prepareCellBlocks pre-allocates the base grid in a fixed (y-major) order.
// Every grid-coordinate lookup in this file uses the same y*width+x offset,
// which is what keeps a cell's pre-allocated block and its later lookups
// pointing at the same slot.
func (w *writer) prepareCellBlocks() {
	w.baseCellX = w.minLon - 1
	w.baseCellY = w.minLat - 1

	var cellCount uint32
	for _, gl := range gridLevels {
		cellCount += gl.Width * gl.Width
	}

	n := gridLevels[0].Width
	w.baseCellWidth = (w.maxLon-w.minLon)/int32(n) + 1
	w.baseCellHeight = (w.maxLat-w.minLat)/int32(n) + 1

	w.cellBlocks = make([]uint32, cellCount)
	for i := range w.cellBlocks {
		w.cellBlocks[i] = noBlock
	}

	for y := uint32(0); y < n; y++ {
		for x := uint32(0); x < n; x++ {
			idx := w.createBlock(w.baseCellX+int32(x)*w.baseCellWidth, w.baseCellY+int32(y)*w.baseCellHeight, 0)
			w.cellBlocks[y*n+x] = idx
		}
	}
}

func (w *writer) createBlock(baseX, baseY int32, level uint32) uint32 {
	idx := uint32(len(w.blocks))
	w.blocks = append(w.blocks, newBlock(baseX, baseY, level))
	return idx
}

func (w *writer) extendBlock(blk uint32) uint32 {
	old := &w.blocks[blk]
	idx := uint32(len(w.blocks))
	cherr.Assert(old.next == noBlock, "block %d already extended", blk)
	old.next = idx
	w.blocks = append(w.blocks, newBlock(old.baseX, old.baseY, old.level))
	return idx
}

func (w *writer) sameLevelLastBlock(blk uint32) uint32 {
	if blk == noBlock {
		return blk
	}
	for w.blocks[blk].next != noBlock {
		t := w.blocks[blk].next
		cherr.Assert(w.blocks[blk].baseX == w.blocks[t].baseX && w.blocks[blk].baseY == w.blocks[t].baseY && w.blocks[blk].level == w.blocks[t].level,
			"block chain %d is not a single grid level", blk)
		blk = t
	}
	return blk
}

func (w *writer) blockAddNode(nodeIdx int, blk uint32) uint32 {
	blk = w.sameLevelLastBlock(blk)
	if w.blocks[blk].count >= blockSize {
		blk = w.extendBlock(blk)
	}
	b := &w.blocks[blk]
	slot := b.count
	b.count++
	b.nodeIDs[slot] = uint32(nodeIdx)
	return (blk << 10) + slot
}

func (w *writer) findBaseCellLastBlock(x, y int32) uint32 {
	blk := w.cellBlocks[w.baseGridOffset(x, y)]
	cherr.Assert(blk != noBlock, "base cell for (%d,%d) was never allocated", x, y)
	for w.blocks[blk].next != noBlock {
		blk = w.blocks[blk].next
	}
	return blk
}

func (w *writer) getGridX(level uint32, x int32) uint32 {
	basex := int64(x-w.baseCellX) / int64(w.baseCellWidth)
	return uint32(basex * int64(gridLevels[level].Width) / int64(gridLevels[0].Width))
}

func (w *writer) getGridY(level uint32, y int32) uint32 {
	basey := int64(y-w.baseCellY) / int64(w.baseCellHeight)
	return uint32(basey * int64(gridLevels[level].Width) / int64(gridLevels[0].Width))
}

func (w *writer) localGridOffset(level uint32, x, y int32) uint32 {
	return w.getGridY(level, y)*gridLevels[level].Width + w.getGridX(level, x)
}

func (w *writer) baseGridOffset(x, y int32) uint32 {
	return w.localGridOffset(0, x, y)
}

func (w *writer) gridOffset(level uint32, x, y int32) uint32 {
	var base uint32
	for i := uint32(0); i < level; i++ {
		base += gridLevels[i].Width * gridLevels[i].Width
	}
	return base + w.localGridOffset(level, x, y)
}

func (w *writer) gridBaseX(level, cellX uint32) int32 {
	baseCellX := cellX * (gridLevels[0].Width / gridLevels[level].Width)
	return w.baseCellX + w.baseCellWidth*int32(baseCellX)
}

func (w *writer) gridBaseY(level, cellY uint32) int32 {
	baseCellY := cellY * (gridLevels[0].Width / gridLevels[level].Width)
	return w.baseCellY + w.baseCellHeight*int32(baseCellY)
}

// blocksAddNode sorts one node into the grid level implied by its CH level,
// linking the base cell's chain up into it when this is the first node of
// that cell to reach this level. Must be called in ascending level order.
func (w *writer) blocksAddNode(nodeIdx int) uint32 {
	node := &w.nodes[nodeIdx]
	x, y := node.Lon, node.Lat
	rank := node.Level

	level := noBlock
	for i, gl := range gridLevels {
		if gl.RankThreshold > rank {
			level = uint32(i)
			break
		}
	}

	var blk uint32
	if level != noBlock {
		cellNdx := w.gridOffset(level, x, y)
		blk = w.cellBlocks[cellNdx]
		if blk == noBlock {
			blk = w.createBlock(w.gridBaseX(level, w.getGridX(level, x)), w.gridBaseY(level, w.getGridY(level, y)), level)
			w.cellBlocks[cellNdx] = blk
		}
	} else {
		if w.coreBlockStart == noBlock {
			w.coreBlockStart = w.createBlock(w.baseCellX, w.baseCellY, noBlock)
		}
		blk = w.coreBlockStart
	}

	if level != 0 {
		old := w.findBaseCellLastBlock(x, y)
		if old < blk {
			cherr.Assert(w.blocks[old].next == noBlock, "base cell link for (%d,%d) already set", x, y)
			w.blocks[old].next = blk
		}
	}

	return w.blockAddNode(nodeIdx, blk)
}

// fillBlocks sorts all nodes into the grid, processing them in ascending CH
// level order — required by blocksAddNode's vertical-chain-linking rule.
func (w *writer) fillBlocks() {
	order := make([]int, len(w.nodes))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return w.nodes[order[i]].Level < w.nodes[order[j]].Level })

	w.nodeBlockID = make([]uint32, len(w.nodes))
	for _, idx := range order {
		w.nodeBlockID[idx] = w.blocksAddNode(idx)
	}
}

// countAndSortEdges assigns every edge a file position (and its reverse
// mapping), following the core-shortcut-drop and up/down partitioning rule.
func (w *writer) countAndSortEdges() {
	numNodes := len(w.nodes)
	w.nodeFirstOutEdgeID = make([]uint32, numNodes)
	w.nodeFirstInEdgeID = make([]uint32, numNodes)
	w.nodeEndEdgeID = make([]uint32, numNodes)

	var useEdgeCount int
	for _, e := range w.edges {
		srank, trank := w.nodes[e.Src].Level, w.nodes[e.Tgt].Level
		cherr.Assert(srank != trank, "edge (%d,%d) has equal endpoint levels %d", e.Src, e.Tgt, srank)

		switch {
		case srank >= coreRankThreshold && trank >= coreRankThreshold:
			if e.CenterNode == chmodel.NoNode || w.nodes[e.CenterNode].Level < coreRankThreshold {
				w.nodeFirstOutEdgeID[e.Src]++
				useEdgeCount++
			}
		case srank < trank:
			w.nodeFirstOutEdgeID[e.Src]++
			useEdgeCount++
		default:
			w.nodeFirstInEdgeID[e.Tgt]++
			useEdgeCount++
		}
	}

	nextOutEdge := make([]uint32, numNodes)
	nextInEdge := make([]uint32, numNodes)

	var nextEdgeID uint32
	for bi := range w.blocks {
		b := &w.blocks[bi]
		for j := uint32(0); j < b.count; j++ {
			n := b.nodeIDs[j]

			cur := nextEdgeID
			nextEdgeID += w.nodeFirstOutEdgeID[n]
			nextOutEdge[n] = cur
			w.nodeFirstOutEdgeID[n] = cur

			cur = nextEdgeID
			nextEdgeID += w.nodeFirstInEdgeID[n]
			nextInEdge[n] = cur
			w.nodeFirstInEdgeID[n] = cur

			w.nodeEndEdgeID[n] = nextEdgeID
		}
	}

	w.useEdges = make([]int, useEdgeCount)
	w.edgesReverse = make([]uint32, len(w.edges))
	for i := range w.edgesReverse {
		w.edgesReverse[i] = noBlock
	}

	for edgeIdx := range w.edges {
		e := &w.edges[edgeIdx]
		srank, trank := w.nodes[e.Src].Level, w.nodes[e.Tgt].Level

		k := noBlock
		switch {
		case srank >= coreRankThreshold && trank >= coreRankThreshold:
			if e.CenterNode == chmodel.NoNode || w.nodes[e.CenterNode].Level < coreRankThreshold {
				k = nextOutEdge[e.Src]
				nextOutEdge[e.Src]++
			}
		case srank < trank:
			k = nextOutEdge[e.Src]
			nextOutEdge[e.Src]++
		default:
			k = nextInEdge[e.Tgt]
			nextInEdge[e.Tgt]++
		}

		if k != noBlock {
			w.useEdges[k] = edgeIdx
		}
		w.edgesReverse[edgeIdx] = k
	}
}

func (w *writer) writeInt(dst io.Writer, val uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], val)
	if _, err := dst.Write(buf[:]); err != nil {
		return err
	}
	w.written += 4
	return nil
}

func (w *writer) align(dst io.Writer) error {
	pad := pageSize - (w.written % pageSize)
	if pad == pageSize {
		return nil
	}
	buf := make([]byte, pad)
	if _, err := dst.Write(buf); err != nil {
		return err
	}
	w.written += pad
	return nil
}

func (w *writer) writeHeader(dst io.Writer) error {
	words := []uint32{
		magicWord1, magicWord2, formatVersion,
		uint32(w.baseCellX), uint32(w.baseCellY),
		uint32(w.baseCellWidth), uint32(w.baseCellHeight),
		gridLevels[0].Width, gridLevels[0].Width,
		blockSize, uint32(len(w.blocks)), w.coreBlockStart, uint32(len(w.useEdges)),
	}
	for _, v := range words {
		if err := w.writeInt(dst, v); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) writeNodeGeoBlocks(dst io.Writer) error {
	for bi := range w.blocks {
		b := &w.blocks[bi]
		if err := w.writeInt(dst, b.next); err != nil {
			return err
		}
		if err := w.writeInt(dst, b.count); err != nil {
			return err
		}
		for j := 0; j < blockSize; j++ {
			n := b.nodeIDs[j]
			if n != noBlock {
				if err := w.writeInt(dst, uint32(w.nodes[n].Lon)); err != nil {
					return err
				}
				if err := w.writeInt(dst, uint32(w.nodes[n].Lat)); err != nil {
					return err
				}
			} else {
				if err := w.writeInt(dst, 0); err != nil {
					return err
				}
				if err := w.writeInt(dst, 0); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (w *writer) writeNodeEdgeBlocks(dst io.Writer) error {
	var currentEndEdgeID uint32
	for bi := range w.blocks {
		b := &w.blocks[bi]
		if err := w.writeInt(dst, 0); err != nil {
			return err
		}
		for j := 0; j < blockSize; j++ {
			n := b.nodeIDs[j]
			if n != noBlock {
				if err := w.writeInt(dst, w.nodeFirstOutEdgeID[n]); err != nil {
					return err
				}
				if err := w.writeInt(dst, w.nodeFirstInEdgeID[n]); err != nil {
					return err
				}
				currentEndEdgeID = w.nodeEndEdgeID[n]
			} else {
				if err := w.writeInt(dst, currentEndEdgeID); err != nil {
					return err
				}
				if err := w.writeInt(dst, currentEndEdgeID); err != nil {
					return err
				}
			}
		}
		if err := w.writeInt(dst, currentEndEdgeID); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) writeEdgesBasic(dst io.Writer) error {
	for _, origIdx := range w.useEdges {
		e := &w.edges[origIdx]
		srank, trank := w.nodes[e.Src].Level, w.nodes[e.Tgt].Level
		if srank < trank || trank >= coreRankThreshold {
			if err := w.writeInt(dst, w.nodeBlockID[e.Tgt]); err != nil {
				return err
			}
		} else {
			if err := w.writeInt(dst, w.nodeBlockID[e.Src]); err != nil {
				return err
			}
		}
		if err := w.writeInt(dst, chmodel.EdgeTime(e)); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) writeEdgesDetails(dst io.Writer) error {
	for _, origIdx := range w.useEdges {
		e := &w.edges[origIdx]
		if err := w.writeInt(dst, e.Dist); err != nil {
			return err
		}
		if !e.IsShortcut() {
			if err := w.writeInt(dst, 0xFFFFFFFF); err != nil {
				return err
			}
			if err := w.writeInt(dst, 0xFFFFFFFF); err != nil {
				return err
			}
			if err := w.writeInt(dst, 0xFFFFFFFF); err != nil {
				return err
			}
			continue
		}
		c1 := w.edgesReverse[e.ChildEdge1]
		c2 := w.edgesReverse[e.ChildEdge2]
		cherr.Assert(c1 != noBlock && c2 != noBlock, "shortcut (%d,%d) child edge was dropped from the file", e.Src, e.Tgt)
		if err := w.writeInt(dst, c1); err != nil {
			return err
		}
		if err := w.writeInt(dst, c2); err != nil {
			return err
		}
		if err := w.writeInt(dst, w.nodeBlockID[e.CenterNode]); err != nil {
			return err
		}
	}
	return nil
}
