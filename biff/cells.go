package biff

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/text/encoding"
)

// isBiff2Cell reports whether the record uses the BIFF2 cell layout:
// row, column, then a 3-byte attribute field instead of a 2-byte XF index.
func isBiff2Cell(id RecID) bool {
	switch id {
	case RecInteger, RecNumberB2, RecLabelB2, RecBoolErrB2, RecBlankB2:
		return true
	}
	return false
}

// CellRow returns the 0-based row index of a cell record.
func CellRow(r *Record) int {
	if len(r.Data) < 2 {
		return 0
	}
	return int(binary.LittleEndian.Uint16(r.Data[0:2]))
}

// CellCol returns the 0-based column index of a cell record.
func CellCol(r *Record) int {
	if len(r.Data) < 4 {
		return 0
	}
	return int(binary.LittleEndian.Uint16(r.Data[2:4]))
}

// CellXF returns the extended-format index of a cell record. BIFF2 cell
// records carry it in the low 6 bits of the first attribute byte.
func CellXF(r *Record) int {
	if isBiff2Cell(r.ID) {
		if len(r.Data) < 5 {
			return 0
		}
		return int(r.Data[4] & 0x3F)
	}
	if len(r.Data) < 6 {
		return 0
	}
	return int(binary.LittleEndian.Uint16(r.Data[4:6]))
}

// cellPayload is the offset of the value portion of a cell record.
func cellPayload(id RecID) int {
	if isBiff2Cell(id) {
		return 7
	}
	return 6
}

// RKNumber expands a 30-bit compressed number. Bit 0 selects a final
// divide-by-100, bit 1 selects integer (signed, shifted) versus the high
// 30 bits of an IEEE double.
func RKNumber(raw uint32) float64 {
	var f float64
	if raw&0x02 != 0 {
		f = float64(int32(raw) >> 2)
	} else {
		f = math.Float64frombits(uint64(raw&0xFFFFFFFC) << 32)
	}
	if raw&0x01 != 0 {
		f /= 100
	}
	return f
}

// DecodeRK decodes an RK record into its numeric value.
func DecodeRK(r *Record) (float64, error) {
	if len(r.Data) < 10 {
		return 0, fmt.Errorf("RK record payload too short: %d bytes", len(r.Data))
	}
	return RKNumber(binary.LittleEndian.Uint32(r.Data[6:10])), nil
}

// MulRKValue is one column's entry of a multi-column compressed-number
// record.
type MulRKValue struct {
	Col    int
	XF     int
	Number float64
}

// DecodeMulRK expands a MULRK record into one value per spanned column.
// A record carrying no sub-values yields an empty slice.
func DecodeMulRK(r *Record) ([]MulRKValue, error) {
	if len(r.Data) < 6 {
		return nil, fmt.Errorf("MULRK record payload too short: %d bytes", len(r.Data))
	}
	firstCol := int(binary.LittleEndian.Uint16(r.Data[2:4]))
	n := (len(r.Data) - 6) / 6
	vals := make([]MulRKValue, 0, n)
	for i := 0; i < n; i++ {
		off := 4 + i*6
		vals = append(vals, MulRKValue{
			Col:    firstCol + i,
			XF:     int(binary.LittleEndian.Uint16(r.Data[off : off+2])),
			Number: RKNumber(binary.LittleEndian.Uint32(r.Data[off+2 : off+6])),
		})
	}
	return vals, nil
}

// DecodeNumber decodes a NUMBER record's embedded double.
func DecodeNumber(r *Record) (float64, error) {
	off := cellPayload(r.ID)
	if len(r.Data) < off+8 {
		return 0, fmt.Errorf("NUMBER record payload too short: %d bytes", len(r.Data))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(r.Data[off : off+8])), nil
}

// DecodeInteger decodes the BIFF2-only 16-bit integer cell.
func DecodeInteger(r *Record) (int, error) {
	if len(r.Data) < 9 {
		return 0, fmt.Errorf("INTEGER record payload too short: %d bytes", len(r.Data))
	}
	return int(binary.LittleEndian.Uint16(r.Data[7:9])), nil
}

// DecodeBoolErr decodes a BOOLERR record. isErr set means the value byte
// is an error code, not a boolean.
func DecodeBoolErr(r *Record) (value byte, isErr bool, err error) {
	off := cellPayload(r.ID)
	if len(r.Data) < off+2 {
		return 0, false, fmt.Errorf("BOOLERR record payload too short: %d bytes", len(r.Data))
	}
	return r.Data[off], r.Data[off+1] != 0, nil
}

// DecodeLabel decodes an inline string cell. The layout depends on the
// sheet's BIFF version: BIFF8 uses a unicode string, earlier versions a
// length-prefixed byte string in the workbook encoding.
func DecodeLabel(r *Record, version int, enc encoding.Encoding) (string, error) {
	var s string
	var err error
	switch {
	case r.ID == RecLabelB2:
		s, _, err = unpackByteString(r.Data, 7, 1, enc)
	case version >= 80 && r.ID != RecRString:
		s, _, err = unpackUnicodeString(r.Data, 6, 2)
	default:
		// RSTRING and pre-unicode LABEL: 2-byte length, byte characters.
		// The rich-text runs trailing an RSTRING are ignored.
		s, _, err = unpackByteString(r.Data, 6, 2, enc)
	}
	return s, err
}

// DecodeLabelSST returns the shared-string table index of a LABELSST cell.
func DecodeLabelSST(r *Record) (int, error) {
	if len(r.Data) < 10 {
		return 0, fmt.Errorf("LABELSST record payload too short: %d bytes", len(r.Data))
	}
	return int(binary.LittleEndian.Uint32(r.Data[6:10])), nil
}

// MulBlankSpan returns the first and last (inclusive) columns covered by
// a MULBLANK record.
func MulBlankSpan(r *Record) (first, last int) {
	if len(r.Data) < 6 {
		return 0, -1
	}
	first = int(binary.LittleEndian.Uint16(r.Data[2:4]))
	last = int(binary.LittleEndian.Uint16(r.Data[len(r.Data)-2:]))
	return first, last
}

// FormulaKind tags the cached result of a FORMULA record.
type FormulaKind int

const (
	FormulaNumber FormulaKind = iota
	FormulaString             // value lives in the following STRING record
	FormulaBool
	FormulaError
	FormulaEmpty
)

// FormulaResult is the cached result stored inside a FORMULA record.
// Formula expressions themselves are never evaluated.
type FormulaResult struct {
	Kind   FormulaKind
	Number float64
	Bool   bool
	Err    byte
}

// DecodeFormulaResult decodes the 8-byte cached result field. Non-numeric
// results are tagged by 0xFFFF in the two high bytes.
func DecodeFormulaResult(r *Record) (FormulaResult, error) {
	if len(r.Data) < 14 {
		return FormulaResult{}, fmt.Errorf("FORMULA record payload too short: %d bytes", len(r.Data))
	}
	res := r.Data[6:14]
	if res[6] == 0xFF && res[7] == 0xFF {
		switch res[0] {
		case 0:
			return FormulaResult{Kind: FormulaString}, nil
		case 1:
			return FormulaResult{Kind: FormulaBool, Bool: res[2] != 0}, nil
		case 2:
			return FormulaResult{Kind: FormulaError, Err: res[2]}, nil
		default:
			return FormulaResult{Kind: FormulaEmpty}, nil
		}
	}
	return FormulaResult{
		Kind:   FormulaNumber,
		Number: math.Float64frombits(binary.LittleEndian.Uint64(res)),
	}, nil
}

// DecodeString decodes a STRING record: the cached text result that
// follows a string-valued FORMULA record.
func DecodeString(r *Record, version int, enc encoding.Encoding) (string, error) {
	var s string
	var err error
	if version >= 80 {
		s, _, err = unpackUnicodeString(r.Data, 0, 2)
	} else {
		s, _, err = unpackByteString(r.Data, 0, 2, enc)
	}
	return s, err
}
