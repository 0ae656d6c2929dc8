package biff

import (
	"encoding/binary"
	"strings"

	"github.com/google/uuid"
)

// Moniker class IDs carried by HLINK records, in canonical form.
var (
	urlMonikerGUID  = uuid.MustParse("79eac9e0-baf9-11ce-8c82-00aa004ba90b")
	fileMonikerGUID = uuid.MustParse("00000303-0000-0000-c000-000000000046")
)

// HyperlinkInfo is one HLINK record: the (inclusive) cell range it covers
// and the resolved target.
type HyperlinkInfo struct {
	FirstRow int
	LastRow  int
	FirstCol int
	LastCol  int
	Target   string
}

// guidFromLE reads a CLSID stored in mixed-endian on-disk order into a
// canonical UUID.
func guidFromLE(b []byte) uuid.UUID {
	var g [16]byte
	g[0], g[1], g[2], g[3] = b[3], b[2], b[1], b[0]
	g[4], g[5] = b[5], b[4]
	g[6], g[7] = b[7], b[6]
	copy(g[8:], b[8:16])
	u, _ := uuid.FromBytes(g[:])
	return u
}

// DecodeHyperlink decodes an HLINK record. The second result is false
// when the record carries no usable target (for example an embedded
// document link this reader does not resolve).
func DecodeHyperlink(r *Record) (HyperlinkInfo, bool) {
	data := r.Data
	if len(data) < 32 {
		return HyperlinkInfo{}, false
	}
	info := HyperlinkInfo{
		FirstRow: int(binary.LittleEndian.Uint16(data[0:2])),
		LastRow:  int(binary.LittleEndian.Uint16(data[2:4])),
		FirstCol: int(binary.LittleEndian.Uint16(data[4:6])),
		LastCol:  int(binary.LittleEndian.Uint16(data[6:8])),
	}

	// 16-byte StdLink CLSID and 4-byte stream version precede the flags.
	pos := 8 + 16 + 4
	flags := binary.LittleEndian.Uint32(data[pos : pos+4])
	pos += 4

	skipCounted := func() {
		if pos+4 > len(data) {
			pos = len(data)
			return
		}
		n := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		pos += 4 + 2*n
	}

	if flags&0x14 != 0 { // display description
		skipCounted()
	}
	if flags&0x80 != 0 { // target frame
		skipCounted()
	}

	if flags&0x01 != 0 && pos+16 <= len(data) {
		moniker := guidFromLE(data[pos : pos+16])
		pos += 16
		switch moniker {
		case urlMonikerGUID:
			if pos+4 > len(data) {
				return HyperlinkInfo{}, false
			}
			nbytes := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
			pos += 4
			if pos+nbytes > len(data) {
				nbytes = len(data) - pos
			}
			info.Target = trimNUL(decodeUTF16(data[pos : pos+nbytes]))
			pos += nbytes
		case fileMonikerGUID:
			if pos+6 > len(data) {
				return HyperlinkInfo{}, false
			}
			pos += 2 // directory up-count
			n := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
			pos += 4
			if pos+n > len(data) {
				n = len(data) - pos
			}
			info.Target = trimNUL(string(data[pos : pos+n]))
			pos += n
		default:
			return HyperlinkInfo{}, false
		}
	}

	if info.Target == "" && flags&0x08 != 0 && pos+4 <= len(data) {
		// Text mark only: an intra-document location like "#Sheet1!A1".
		n := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		pos += 4
		end := pos + 2*n
		if end > len(data) {
			end = len(data)
		}
		mark := trimNUL(decodeUTF16(data[pos:end]))
		if mark != "" {
			info.Target = "#" + mark
		}
	}

	if info.Target == "" {
		return HyperlinkInfo{}, false
	}
	return info, true
}

func trimNUL(s string) string {
	return strings.TrimRight(s, "\x00")
}
