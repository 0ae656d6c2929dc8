package biff

import (
	"encoding/binary"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// SSTBuilder accumulates a shared-string table record and the CONTINUE
// records that carry its overflow. BIFF caps a record payload at 8224
// bytes, so large tables are split; a split inside a string's character
// data restarts with a fresh options byte at the top of the next
// fragment.
//
// The table is materialized once, when the workbook globals reach their
// terminator.
type SSTBuilder struct {
	unique int
	frags  [][]byte
}

// NewSSTBuilder starts a builder from the table-defining SST record.
func NewSSTBuilder(r *Record) *SSTBuilder {
	b := &SSTBuilder{}
	if len(r.Data) >= 8 {
		b.unique = int(binary.LittleEndian.Uint32(r.Data[4:8]))
		b.frags = append(b.frags, r.Data[8:])
	}
	return b
}

// Absorb appends one CONTINUE record's payload.
func (b *SSTBuilder) Absorb(r *Record) {
	b.frags = append(b.frags, r.Data)
}

// Materialize decodes the accumulated fragments into the string table.
func (b *SSTBuilder) Materialize() []string {
	c := &sstCursor{frags: b.frags}
	table := make([]string, 0, b.unique)
	for i := 0; i < b.unique; i++ {
		s, ok := c.readString()
		if !ok {
			break
		}
		table = append(table, s)
	}
	return table
}

// sstCursor walks the fragment list byte by byte.
type sstCursor struct {
	frags [][]byte
	fi    int
	off   int
}

func (c *sstCursor) avail() int {
	if c.fi >= len(c.frags) {
		return 0
	}
	return len(c.frags[c.fi]) - c.off
}

// hop advances to the next non-empty fragment.
func (c *sstCursor) hop() bool {
	for c.avail() == 0 {
		if c.fi >= len(c.frags) {
			return false
		}
		c.fi++
		c.off = 0
	}
	return true
}

func (c *sstCursor) u8() (byte, bool) {
	if !c.hop() {
		return 0, false
	}
	v := c.frags[c.fi][c.off]
	c.off++
	return v, true
}

func (c *sstCursor) u16() (uint16, bool) {
	lo, ok := c.u8()
	if !ok {
		return 0, false
	}
	hi, ok := c.u8()
	if !ok {
		return 0, false
	}
	return uint16(lo) | uint16(hi)<<8, true
}

func (c *sstCursor) u32() (uint32, bool) {
	lo, ok := c.u16()
	if !ok {
		return 0, false
	}
	hi, ok := c.u16()
	if !ok {
		return 0, false
	}
	return uint32(lo) | uint32(hi)<<16, true
}

func (c *sstCursor) skip(n int) {
	for n > 0 && c.hop() {
		take := c.avail()
		if take > n {
			take = n
		}
		c.off += take
		n -= take
	}
}

// readString decodes one unicode string, re-reading the options byte
// whenever its character data continues into the next fragment.
func (c *sstCursor) readString() (string, bool) {
	nchars16, ok := c.u16()
	if !ok {
		return "", false
	}
	options, ok := c.u8()
	if !ok {
		return "", false
	}

	var runs, phonetic int
	if options&0x08 != 0 {
		r, ok := c.u16()
		if !ok {
			return "", false
		}
		runs = int(r)
	}
	if options&0x04 != 0 {
		p, ok := c.u32()
		if !ok {
			return "", false
		}
		phonetic = int(p)
	}

	var sb strings.Builder
	wide := options&0x01 != 0
	remaining := int(nchars16)
	for remaining > 0 {
		if c.avail() == 0 {
			if !c.hop() {
				break
			}
			// A continuation within character data restarts with a
			// fresh options byte; only the width bit is meaningful.
			opt, ok := c.u8()
			if !ok {
				break
			}
			wide = opt&0x01 != 0
		}
		charSize := 1
		if wide {
			charSize = 2
		}
		n := c.avail() / charSize
		if n == 0 {
			break
		}
		if n > remaining {
			n = remaining
		}
		chunk := c.frags[c.fi][c.off : c.off+n*charSize]
		c.off += n * charSize
		remaining -= n
		if wide {
			sb.WriteString(decodeUTF16(chunk))
		} else {
			sb.WriteString(decodeBytes(chunk, charmap.ISO8859_1))
		}
	}

	c.skip(4*runs + phonetic)
	return sb.String(), true
}
