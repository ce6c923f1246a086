package offtp

import (
	"encoding/binary"
	"io"
	"math"

	"chcore/pkg/cherr"
)

// Header is the fixed-size preamble of an offtp file.
type Header struct {
	BaseCellX, BaseCellY           int32
	BaseCellWidth, BaseCellHeight  int32
	BaseGridWidth, BaseGridHeight  uint32
	BlockSize                      uint32
	BlockCount                     uint32
	CoreBlockStart                 uint32
	EdgeCount                      uint32
}

type sectionOffsets struct {
	blockStride        uint64
	nodeGeo            uint64
	nodeEdgePointers   uint64
	edgesBasic         uint64
	edgesDetails       uint64
}

// File is an opened offtp file, ready for FindNode queries.
type File struct {
	r      io.ReaderAt
	header Header
	off    sectionOffsets
}

// Open reads and validates the header of an offtp file.
func Open(r io.ReaderAt) (*File, error) {
	f := &File{r: r}
	if err := f.loadHeader(); err != nil {
		return nil, err
	}
	return f, nil
}

// Header returns the parsed file header.
func (f *File) Header() Header { return f.header }

func align4k(off uint64) uint64 {
	return (off + pageSize - 1) &^ (pageSize - 1)
}

func (f *File) loadHeader() error {
	words, err := f.readWords(0, 13)
	if err != nil {
		return cherr.Wrap(cherr.IngestMalformed, err, "read offtp header")
	}
	if words[0] != magicWord1 || words[1] != magicWord2 {
		return cherr.New(cherr.FormatUnsupported, "not an offtp file: bad magic")
	}
	if words[2] != formatVersion {
		return cherr.New(cherr.FormatUnsupported, "offtp format version %d unsupported", words[2])
	}

	f.header = Header{
		BaseCellX:      int32(words[3]),
		BaseCellY:      int32(words[4]),
		BaseCellWidth:  int32(words[5]),
		BaseCellHeight: int32(words[6]),
		BaseGridWidth:  words[7],
		BaseGridHeight: words[8],
		BlockSize:      words[9],
		BlockCount:     words[10],
		CoreBlockStart: words[11],
		EdgeCount:      words[12],
	}

	stride := uint64(f.header.BlockSize+1) * 2 * 4
	f.off.blockStride = stride
	f.off.nodeGeo = pageSize
	f.off.nodeEdgePointers = align4k(f.off.nodeGeo + uint64(f.header.BlockCount)*stride)
	f.off.edgesBasic = align4k(f.off.nodeEdgePointers + uint64(f.header.BlockCount)*stride)
	f.off.edgesDetails = align4k(f.off.edgesBasic + uint64(f.header.EdgeCount)*8)
	return nil
}

func (f *File) readWords(offset uint64, count int) ([]uint32, error) {
	buf := make([]byte, count*4)
	if _, err := f.r.ReadAt(buf, int64(offset)); err != nil {
		return nil, err
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = binary.BigEndian.Uint32(buf[i*4:])
	}
	return out, nil
}

// nodeGeoIterator walks a block chain in the node-geo section, assigning
// each node the same (block<<10 | slot) file id used everywhere else in the
// format. It guards against revisiting a block already seen during this
// walk — a chain can never legitimately loop, so a repeat means the search
// driving this iterator should stop rather than spin.
type nodeGeoIterator struct {
	f *File

	curBlock      uint32
	nextBlock     uint32
	slotIndex     uint32
	blockRemaining uint32
	currentOffset uint64

	visited map[uint32]bool

	id       uint32
	lon, lat int32
}

func newNodeGeoIterator(f *File) *nodeGeoIterator {
	return &nodeGeoIterator{f: f, visited: make(map[uint32]bool)}
}

func (it *nodeGeoIterator) loadBlock(blockNr uint32) {
	it.blockRemaining = 0
	it.nextBlock = blockNr
}

func (it *nodeGeoIterator) ensureBlock() (bool, error) {
	for it.blockRemaining == 0 {
		if it.nextBlock >= it.f.header.BlockCount {
			return false, nil
		}
		if it.visited[it.nextBlock] {
			return false, nil
		}
		it.visited[it.nextBlock] = true
		it.curBlock = it.nextBlock

		blockOffset := it.f.off.nodeGeo + uint64(it.curBlock)*it.f.off.blockStride
		hdr, err := it.f.readWords(blockOffset, 2)
		if err != nil {
			return false, err
		}
		it.nextBlock = hdr[0]
		it.blockRemaining = hdr[1]
		it.slotIndex = 0
		it.currentOffset = blockOffset + 8
	}
	return true, nil
}

func (it *nodeGeoIterator) next() (bool, error) {
	ok, err := it.ensureBlock()
	if err != nil || !ok {
		return false, err
	}
	words, err := it.f.readWords(it.currentOffset, 2)
	if err != nil {
		return false, err
	}
	it.id = (it.curBlock << 10) | it.slotIndex
	it.lon = int32(words[0])
	it.lat = int32(words[1])
	it.currentOffset += 8
	it.slotIndex++
	it.blockRemaining--
	return true, nil
}

func (f *File) gridCoordsFor(x, y int32) (uint32, uint32) {
	var gx uint32
	if x >= f.header.BaseCellX {
		gx = uint32((x - f.header.BaseCellX) / f.header.BaseCellWidth)
	}
	if gx > f.header.BaseGridWidth-1 {
		gx = f.header.BaseGridWidth - 1
	}
	var gy uint32
	if y >= f.header.BaseCellY {
		gy = uint32((y - f.header.BaseCellY) / f.header.BaseCellHeight)
	}
	if gy > f.header.BaseGridHeight-1 {
		gy = f.header.BaseGridHeight - 1
	}
	return gx, gy
}

func squareDistance(lon1, lat1, lon2, lat2 int32) uint64 {
	dlon := int64(lon1) - int64(lon2)
	dlat := int64(lat1) - int64(lat2)
	return uint64(dlon*dlon + dlat*dlat)
}

// NoNode is returned by FindNode, together with a CoreEmpty error, when the
// query's base cell holds no node and the file's core chain is empty.
const NoNode = ^uint32(0)

// FindNode returns the file id of the node nearest (lon, lat) in degrees,
// by nearest-cell grid expansion: scan the query's base cell, then keep
// expanding toward whichever neighboring cell the current best candidate
// suggests, until a round finds nothing closer. Falls back to the core
// chain's first node if the query's base cell holds no nodes; nodes in
// other base cells are not searched in that case, so if the core chain is
// empty too the result is NoNode with a CoreEmpty error.
func (f *File) FindNode(lon, lat float64) (uint32, error) {
	searchLon := int32(math.Round(lon * 1e7))
	searchLat := int32(math.Round(lat * 1e7))

	it := newNodeGeoIterator(f)

	var (
		foundAny           bool
		foundID            uint32
		foundLon, foundLat int32
		minDist            uint64 = math.MaxUint64
	)

	scanCell := func(gx, gy uint32) error {
		it.loadBlock(gy*f.header.BaseGridWidth + gx)
		for {
			ok, err := it.next()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			d := squareDistance(searchLon, searchLat, it.lon, it.lat)
			if d < minDist {
				minDist = d
				foundAny = true
				foundID = it.id
				foundLon, foundLat = it.lon, it.lat
			}
		}
	}

	startX, startY := f.gridCoordsFor(searchLon, searchLat)
	if err := scanCell(startX, startY); err != nil {
		return 0, err
	}

	for {
		lastID := foundID
		lastFound := foundAny

		if !foundAny {
			coreIt := newNodeGeoIterator(f)
			coreIt.loadBlock(f.header.CoreBlockStart)
			ok, err := coreIt.next()
			if err != nil {
				return 0, err
			}
			if !ok {
				return NoNode, cherr.New(cherr.CoreEmpty, "offtp file has an empty core chain")
			}
			foundAny = true
			foundID = coreIt.id
			foundLon, foundLat = coreIt.lon, coreIt.lat
			minDist = squareDistance(searchLon, searchLat, foundLon, foundLat)
			if !lastFound {
				continue
			}
		}

		nx, ny := startX, startY
		switch {
		case searchLon < foundLon && startX > 0:
			nx = startX - 1
		case searchLon > foundLon && startX+1 < f.header.BaseGridWidth:
			nx = startX + 1
		}
		switch {
		case searchLat < foundLat && startY > 0:
			ny = startY - 1
		case searchLat > foundLat && startY+1 < f.header.BaseGridHeight:
			ny = startY + 1
		}

		neighbors := [][2]uint32{{startX, ny}, {nx, startY}, {nx, ny}}
		for _, c := range neighbors {
			if c[0] == startX && c[1] == startY {
				continue
			}
			if err := scanCell(c[0], c[1]); err != nil {
				return 0, err
			}
		}

		if foundID == lastID {
			return foundID, nil
		}
		startX, startY = f.gridCoordsFor(foundLon, foundLat)
	}
}
