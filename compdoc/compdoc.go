// Package compdoc reads OLE2 compound-file containers: the sector-based
// format that hosts the "Workbook"/"Book" byte streams of legacy Excel
// files. Only what a stream consumer needs is exposed: open the container,
// pull one named stream out of it.
package compdoc

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf16"
)

// Signature is the magic cookie in the first 8 bytes of every compound file.
var Signature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Special sector IDs in FAT chains.
const (
	freeSector       = 0xFFFFFFFF
	endOfChain       = 0xFFFFFFFE
	fatSector        = 0xFFFFFFFD
	difatSector      = 0xFFFFFFFC
	maxRegularSector = 0xFFFFFFFA
)

// Directory entry object types.
const (
	typeUnknown = 0x00
	typeStorage = 0x01
	typeStream  = 0x02
	typeRoot    = 0x05
)

const dirEntrySize = 128

// Error reports a structural problem in the container itself.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// DirEntry is one entry of the container's directory stream.
type DirEntry struct {
	Name        string
	Type        byte
	StartSector uint32
	Size        uint64
}

// Document is an opened compound file, fully buffered in memory.
type Document struct {
	mem           []byte
	sectorSize    int
	miniSize      int
	miniCutoff    uint32
	fat           []uint32
	miniFAT       []uint32
	dirs          []DirEntry
	miniStream    []byte
	miniStreamSet bool
}

// Open reads the whole container from r and parses its header, FAT,
// mini-FAT and directory.
func Open(r io.ReadSeeker) (*Document, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	mem, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return OpenBytes(mem)
}

// OpenBytes parses a container already held in memory.
func OpenBytes(mem []byte) (*Document, error) {
	if len(mem) < 512 {
		return nil, newError("compound document too short: %d bytes", len(mem))
	}
	for i, b := range Signature {
		if mem[i] != b {
			return nil, newError("not an OLE2 compound document")
		}
	}

	sectorShift := binary.LittleEndian.Uint16(mem[30:32])
	if sectorShift != 9 && sectorShift != 12 {
		return nil, newError("bad sector shift %d", sectorShift)
	}
	miniShift := binary.LittleEndian.Uint16(mem[32:34])

	d := &Document{
		mem:        mem,
		sectorSize: 1 << sectorShift,
		miniSize:   1 << miniShift,
		miniCutoff: binary.LittleEndian.Uint32(mem[56:60]),
	}

	if err := d.loadFAT(); err != nil {
		return nil, err
	}
	if err := d.loadMiniFAT(); err != nil {
		return nil, err
	}
	if err := d.loadDirectory(); err != nil {
		return nil, err
	}
	return d, nil
}

// Dirs lists the directory entries found in the container.
func (d *Document) Dirs() []DirEntry {
	return d.dirs
}

// Stream returns the contents of the first stream entry whose name matches
// any of the given names, in the order the names are given.
func (d *Document) Stream(names ...string) ([]byte, error) {
	for _, name := range names {
		for i := range d.dirs {
			ent := &d.dirs[i]
			if ent.Name != name {
				continue
			}
			if ent.Type != typeStream {
				return nil, newError("directory entry %q is not a stream (type 0x%02x)", name, ent.Type)
			}
			return d.readStream(ent)
		}
	}
	return nil, newError("no stream named %v in compound document", names)
}

func (d *Document) readStream(ent *DirEntry) ([]byte, error) {
	if uint32(ent.Size) < d.miniCutoff {
		mini, err := d.loadMiniStream()
		if err != nil {
			return nil, err
		}
		data, err := chainData(mini, d.miniFAT, ent.StartSector, d.miniSize)
		if err != nil {
			return nil, err
		}
		return clampStream(data, ent.Size), nil
	}
	data, err := d.fatChainData(ent.StartSector)
	if err != nil {
		return nil, err
	}
	return clampStream(data, ent.Size), nil
}

func clampStream(data []byte, size uint64) []byte {
	if uint64(len(data)) > size {
		return data[:size]
	}
	return data
}

// sectorData returns the payload of one regular sector. Sector 0 begins
// right after the 512-byte header block; with 4096-byte sectors the header
// occupies all of the first sector.
func (d *Document) sectorData(sid uint32) ([]byte, error) {
	start := (int(sid) + 1) * d.sectorSize
	end := start + d.sectorSize
	if start < 0 || start > len(d.mem) {
		return nil, newError("sector %d out of range", sid)
	}
	if end > len(d.mem) {
		end = len(d.mem)
	}
	return d.mem[start:end], nil
}

func (d *Document) loadFAT() error {
	numFAT := binary.LittleEndian.Uint32(d.mem[44:48])
	firstDIFAT := binary.LittleEndian.Uint32(d.mem[68:72])
	numDIFAT := binary.LittleEndian.Uint32(d.mem[72:76])

	// 109 FAT sector IDs live in the header itself.
	var fatSectors []uint32
	for i := 0; i < 109; i++ {
		sid := binary.LittleEndian.Uint32(d.mem[76+4*i : 80+4*i])
		if sid > maxRegularSector {
			break
		}
		fatSectors = append(fatSectors, sid)
	}

	// The rest, if any, chain through dedicated DIFAT sectors. The last
	// 4 bytes of each DIFAT sector point at the next one.
	sid := firstDIFAT
	for i := uint32(0); i < numDIFAT && sid <= maxRegularSector; i++ {
		sector, err := d.sectorData(sid)
		if err != nil {
			return err
		}
		if len(sector) < d.sectorSize {
			return newError("truncated DIFAT sector %d", sid)
		}
		n := d.sectorSize/4 - 1
		for j := 0; j < n; j++ {
			entry := binary.LittleEndian.Uint32(sector[4*j : 4*j+4])
			if entry > maxRegularSector {
				continue
			}
			fatSectors = append(fatSectors, entry)
		}
		sid = binary.LittleEndian.Uint32(sector[len(sector)-4:])
	}

	if uint32(len(fatSectors)) < numFAT {
		return newError("FAT sector count %d exceeds DIFAT entries %d", numFAT, len(fatSectors))
	}

	for _, fsid := range fatSectors {
		sector, err := d.sectorData(fsid)
		if err != nil {
			return err
		}
		for off := 0; off+4 <= len(sector); off += 4 {
			d.fat = append(d.fat, binary.LittleEndian.Uint32(sector[off:off+4]))
		}
	}
	return nil
}

func (d *Document) loadMiniFAT() error {
	sid := binary.LittleEndian.Uint32(d.mem[60:64])
	numMini := binary.LittleEndian.Uint32(d.mem[64:68])
	for i := uint32(0); i < numMini && sid <= maxRegularSector; i++ {
		sector, err := d.sectorData(sid)
		if err != nil {
			return err
		}
		for off := 0; off+4 <= len(sector); off += 4 {
			d.miniFAT = append(d.miniFAT, binary.LittleEndian.Uint32(sector[off:off+4]))
		}
		if int(sid) >= len(d.fat) {
			break
		}
		sid = d.fat[sid]
	}
	return nil
}

func (d *Document) loadDirectory() error {
	firstDir := binary.LittleEndian.Uint32(d.mem[48:52])
	stream, err := d.fatChainData(firstDir)
	if err != nil {
		return err
	}
	for off := 0; off+dirEntrySize <= len(stream); off += dirEntrySize {
		raw := stream[off : off+dirEntrySize]
		objType := raw[66]
		if objType == typeUnknown {
			continue
		}
		nameLen := int(binary.LittleEndian.Uint16(raw[64:66]))
		if nameLen < 2 || nameLen > 64 {
			continue
		}
		words := make([]uint16, 0, nameLen/2-1)
		for i := 0; i+2 <= nameLen-2; i += 2 {
			words = append(words, binary.LittleEndian.Uint16(raw[i:i+2]))
		}
		d.dirs = append(d.dirs, DirEntry{
			Name:        string(utf16.Decode(words)),
			Type:        objType,
			StartSector: binary.LittleEndian.Uint32(raw[116:120]),
			Size:        binary.LittleEndian.Uint64(raw[120:128]),
		})
	}
	if len(d.dirs) == 0 {
		return newError("compound document has an empty directory")
	}
	return nil
}

// fatChainData concatenates a sector chain from the regular FAT.
func (d *Document) fatChainData(start uint32) ([]byte, error) {
	var data []byte
	sid := start
	for steps := 0; sid <= maxRegularSector; steps++ {
		if steps > len(d.fat) {
			return nil, newError("cyclic FAT chain starting at sector %d", start)
		}
		sector, err := d.sectorData(sid)
		if err != nil {
			return nil, err
		}
		data = append(data, sector...)
		if int(sid) >= len(d.fat) {
			break
		}
		sid = d.fat[sid]
	}
	return data, nil
}

// loadMiniStream materializes the root entry's sector chain, which backs
// every stream smaller than the mini-stream cutoff.
func (d *Document) loadMiniStream() ([]byte, error) {
	if d.miniStreamSet {
		return d.miniStream, nil
	}
	var root *DirEntry
	for i := range d.dirs {
		if d.dirs[i].Type == typeRoot {
			root = &d.dirs[i]
			break
		}
	}
	if root == nil {
		return nil, newError("compound document has no root entry")
	}
	data, err := d.fatChainData(root.StartSector)
	if err != nil {
		return nil, err
	}
	d.miniStream = clampStream(data, root.Size)
	d.miniStreamSet = true
	return d.miniStream, nil
}

// chainData walks a mini-FAT chain over an already materialized backing
// stream.
func chainData(backing []byte, fat []uint32, start uint32, chunk int) ([]byte, error) {
	var data []byte
	sid := start
	for steps := 0; sid <= maxRegularSector; steps++ {
		if steps > len(fat) {
			return nil, newError("cyclic mini-FAT chain starting at sector %d", start)
		}
		off := int(sid) * chunk
		if off >= len(backing) {
			return nil, newError("mini sector %d out of range", sid)
		}
		end := off + chunk
		if end > len(backing) {
			end = len(backing)
		}
		data = append(data, backing[off:end]...)
		if int(sid) >= len(fat) {
			break
		}
		sid = fat[sid]
	}
	return data, nil
}
