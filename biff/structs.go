package biff

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding"
)

// BOFInfo is the decoded header of one sub-stream.
type BOFInfo struct {
	Version    int // 20, 30, 40, 45, 50, 70 or 80
	StreamType int // StreamGlobals, StreamWorksheet, ...
}

// DecodeBOF determines the BIFF version and sub-stream type of a BOF
// record. The version is derived from the record ID's high byte, refined
// by the payload's version word for the 0x0809 form.
func DecodeBOF(r *Record) (BOFInfo, error) {
	if !IsBOF(r.ID) {
		return BOFInfo{}, fmt.Errorf("record 0x%04x is not a BOF", uint16(r.ID))
	}
	if len(r.Data) < 4 {
		return BOFInfo{}, fmt.Errorf("BOF record payload too short: %d bytes", len(r.Data))
	}
	vers := binary.LittleEndian.Uint16(r.Data[0:2])
	streamType := int(binary.LittleEndian.Uint16(r.Data[2:4]))

	var version int
	switch uint16(r.ID) >> 8 {
	case 0x08:
		switch {
		case vers == 0x0600:
			version = 80
		case vers == 0x0500:
			version = 50
			if len(r.Data) >= 8 {
				build := binary.LittleEndian.Uint16(r.Data[4:6])
				year := binary.LittleEndian.Uint16(r.Data[6:8])
				if year >= 1994 && build != 2412 && build != 3218 && build != 3321 {
					version = 70
				}
			}
		case vers == 0x0400:
			version = 45
		default:
			version = 21
		}
	case 0x04:
		version = 40
	case 0x02:
		version = 30
	default:
		version = 20
	}
	if version < 50 && streamType != StreamGlobals && streamType != StreamGlobals4W {
		// Ancient files carry a single worksheet stream with no globals.
		streamType = StreamWorksheet
	}
	return BOFInfo{Version: version, StreamType: streamType}, nil
}

// BoundSheetInfo is one entry of the workbook's sheet directory.
type BoundSheetInfo struct {
	Offset     int // absolute offset of the sheet's BOF within the stream
	SheetType  byte
	Visibility byte
	Name       string
}

// DecodeBoundSheet decodes a BOUNDSHEET record.
func DecodeBoundSheet(r *Record, version int, enc encoding.Encoding) (BoundSheetInfo, error) {
	if len(r.Data) < 7 {
		return BoundSheetInfo{}, fmt.Errorf("BOUNDSHEET record payload too short: %d bytes", len(r.Data))
	}
	info := BoundSheetInfo{
		Offset:     int(int32(binary.LittleEndian.Uint32(r.Data[0:4]))),
		Visibility: r.Data[4] & 0x03,
		SheetType:  r.Data[5],
	}
	var err error
	if version >= 80 {
		info.Name, _, err = unpackUnicodeString(r.Data, 6, 1)
	} else {
		info.Name, _, err = unpackByteString(r.Data, 6, 1, enc)
	}
	return info, err
}

// DimensionsInfo is the declared extent of one worksheet. LastRow and
// LastCol are exclusive upper bounds.
type DimensionsInfo struct {
	FirstRow int
	LastRow  int
	FirstCol int
	LastCol  int
}

// DecodeDimensions decodes a DIMENSIONS record. BIFF8 widened the row
// fields to 32 bits; the layout is picked by payload length.
func DecodeDimensions(r *Record) (DimensionsInfo, error) {
	if len(r.Data) >= 14 {
		return DimensionsInfo{
			FirstRow: int(binary.LittleEndian.Uint32(r.Data[0:4])),
			LastRow:  int(binary.LittleEndian.Uint32(r.Data[4:8])),
			FirstCol: int(binary.LittleEndian.Uint16(r.Data[8:10])),
			LastCol:  int(binary.LittleEndian.Uint16(r.Data[10:12])),
		}, nil
	}
	if len(r.Data) >= 8 {
		return DimensionsInfo{
			FirstRow: int(binary.LittleEndian.Uint16(r.Data[0:2])),
			LastRow:  int(binary.LittleEndian.Uint16(r.Data[2:4])),
			FirstCol: int(binary.LittleEndian.Uint16(r.Data[4:6])),
			LastCol:  int(binary.LittleEndian.Uint16(r.Data[6:8])),
		}, nil
	}
	return DimensionsInfo{}, fmt.Errorf("DIMENSIONS record payload too short: %d bytes", len(r.Data))
}

// RowInfo is the header of one defined row. LastCol is the exclusive
// upper bound of the row's defined columns.
type RowInfo struct {
	Index    int
	FirstCol int
	LastCol  int
}

// DecodeRow decodes a ROW record's indexing fields.
func DecodeRow(r *Record) (RowInfo, error) {
	if len(r.Data) < 6 {
		return RowInfo{}, fmt.Errorf("ROW record payload too short: %d bytes", len(r.Data))
	}
	return RowInfo{
		Index:    int(binary.LittleEndian.Uint16(r.Data[0:2])),
		FirstCol: int(binary.LittleEndian.Uint16(r.Data[2:4])),
		LastCol:  int(binary.LittleEndian.Uint16(r.Data[4:6])),
	}, nil
}

// IndexInfo is a worksheet's random-access index: the existing row range
// and the absolute stream addresses of the block-boundary (DBCELL)
// records.
type IndexInfo struct {
	FirstRow   int
	LastRow    int // exclusive
	BlockAddrs []int
}

// DecodeIndex decodes an INDEX record. BIFF8 widened the row fields to
// 32 bits and grew the fixed header from 12 to 16 bytes.
func DecodeIndex(r *Record, version int) (IndexInfo, error) {
	var info IndexInfo
	var addrStart int
	if version >= 80 {
		if len(r.Data) < 16 {
			return info, fmt.Errorf("INDEX record payload too short: %d bytes", len(r.Data))
		}
		info.FirstRow = int(binary.LittleEndian.Uint32(r.Data[4:8]))
		info.LastRow = int(binary.LittleEndian.Uint32(r.Data[8:12]))
		addrStart = 16
	} else {
		if len(r.Data) < 12 {
			return info, fmt.Errorf("INDEX record payload too short: %d bytes", len(r.Data))
		}
		info.FirstRow = int(binary.LittleEndian.Uint16(r.Data[4:6]))
		info.LastRow = int(binary.LittleEndian.Uint16(r.Data[6:8]))
		addrStart = 12
	}
	for off := addrStart; off+4 <= len(r.Data); off += 4 {
		info.BlockAddrs = append(info.BlockAddrs, int(binary.LittleEndian.Uint32(r.Data[off:off+4])))
	}
	return info, nil
}

// FormatInfo is one number-format definition. HasCode is false for the
// BIFF2/BIFF3 layout, which carries no embedded format code; those are
// numbered by position instead.
type FormatInfo struct {
	Code    uint16
	Pattern string
	HasCode bool
}

// DecodeFormat decodes a FORMAT record of either layout.
func DecodeFormat(r *Record, version int, enc encoding.Encoding) (FormatInfo, error) {
	var info FormatInfo
	var err error
	if r.ID == RecFormat2 {
		info.Pattern, _, err = unpackByteString(r.Data, 0, 1, enc)
		return info, err
	}
	if len(r.Data) < 3 {
		return info, fmt.Errorf("FORMAT record payload too short: %d bytes", len(r.Data))
	}
	info.Code = binary.LittleEndian.Uint16(r.Data[0:2])
	info.HasCode = true
	if version >= 80 {
		info.Pattern, _, err = unpackUnicodeString(r.Data, 2, 2)
	} else {
		info.Pattern, _, err = unpackByteString(r.Data, 2, 1, enc)
	}
	return info, err
}

// XFInfo is the slice of an extended-format record this reader cares
// about: the number-format code, plus the "format in use" gate carried by
// the BIFF3/BIFF4 layouts.
type XFInfo struct {
	Format     uint16
	Gated      bool // layout carries a format-used flag
	FormatUsed bool // meaningful only when Gated
}

// DecodeXF extracts the format code from any of the four legacy XF
// layouts. BIFF2 stores it in the low bits of byte 2; BIFF3 and BIFF4
// store it in byte 1 behind a usage flag; BIFF5/BIFF8 store it as a
// 16-bit field at offset 2.
func DecodeXF(r *Record) (XFInfo, error) {
	switch r.ID {
	case RecXF2:
		if len(r.Data) < 3 {
			return XFInfo{}, fmt.Errorf("XF record payload too short: %d bytes", len(r.Data))
		}
		return XFInfo{Format: uint16(r.Data[2] & 0x3F)}, nil
	case RecXF3:
		if len(r.Data) < 4 {
			return XFInfo{}, fmt.Errorf("XF record payload too short: %d bytes", len(r.Data))
		}
		return XFInfo{
			Format:     uint16(r.Data[1]),
			Gated:      true,
			FormatUsed: r.Data[3]&0x04 != 0,
		}, nil
	case RecXF4:
		if len(r.Data) < 4 {
			return XFInfo{}, fmt.Errorf("XF record payload too short: %d bytes", len(r.Data))
		}
		return XFInfo{
			Format:     uint16(r.Data[1] & 0x3F),
			Gated:      true,
			FormatUsed: r.Data[3]&0x04 != 0,
		}, nil
	default:
		if len(r.Data) < 4 {
			return XFInfo{}, fmt.Errorf("XF record payload too short: %d bytes", len(r.Data))
		}
		return XFInfo{Format: binary.LittleEndian.Uint16(r.Data[2:4])}, nil
	}
}

// DecodeCodepage returns the CODEPAGE record's value.
func DecodeCodepage(r *Record) (int, error) {
	if len(r.Data) < 2 {
		return 0, fmt.Errorf("CODEPAGE record payload too short: %d bytes", len(r.Data))
	}
	return int(binary.LittleEndian.Uint16(r.Data[0:2])), nil
}

// DecodeDateMode returns 0 (1900 system) or 1 (1904 system).
func DecodeDateMode(r *Record) (int, error) {
	if len(r.Data) < 2 {
		return 0, fmt.Errorf("DATEMODE record payload too short: %d bytes", len(r.Data))
	}
	mode := int(binary.LittleEndian.Uint16(r.Data[0:2]))
	if mode != 0 && mode != 1 {
		mode = 0
	}
	return mode, nil
}
