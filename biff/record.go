// Package biff provides a cursor over a BIFF record stream and typed
// decoders for the individual record kinds a worksheet reader consumes.
// A BIFF stream is a flat sequence of records, each a 4-byte header
// (2-byte ID, 2-byte payload length) followed by the payload.
package biff

// RecID identifies a BIFF record kind.
type RecID uint16

// Record IDs, per MS-XLS section 2.3/2.4. Only kinds this reader interprets
// are listed; everything else is skipped by ID.
const (
	RecInteger     RecID = 0x0002 // BIFF2 only
	RecNumberB2    RecID = 0x0003
	RecLabelB2     RecID = 0x0004
	RecBoolErrB2   RecID = 0x0005
	RecFormula     RecID = 0x0006
	RecRowB2       RecID = 0x0008
	RecEOF         RecID = 0x000A
	RecBlankB2     RecID = 0x0001
	RecFormat2     RecID = 0x001E // BIFF2/BIFF3 layout
	RecDateMode    RecID = 0x0022
	RecFilePass    RecID = 0x002F
	RecFont        RecID = 0x0031
	RecFont4       RecID = 0x0231 // BIFF3/BIFF4 layout
	RecContinue    RecID = 0x003C
	RecCodepage    RecID = 0x0042
	RecXF2         RecID = 0x0043 // BIFF2 layout
	RecIXFE        RecID = 0x0044 // BIFF2 only
	RecUncalced    RecID = 0x005E
	RecBoundSheet  RecID = 0x0085
	RecCountry     RecID = 0x008C
	RecMulRK       RecID = 0x00BD
	RecMulBlank    RecID = 0x00BE
	RecRString     RecID = 0x00D6
	RecDBCell      RecID = 0x00D7
	RecXF          RecID = 0x00E0 // BIFF5/BIFF8 layout
	RecSST         RecID = 0x00FC
	RecLabelSST    RecID = 0x00FD
	RecExtSST      RecID = 0x00FF
	RecHyperlink   RecID = 0x01B8
	RecBlank       RecID = 0x0201
	RecNumber      RecID = 0x0203
	RecLabel       RecID = 0x0204
	RecBoolErr     RecID = 0x0205
	RecFormula3    RecID = 0x0206
	RecString      RecID = 0x0207
	RecRow         RecID = 0x0208
	RecIndex       RecID = 0x020B
	RecDimensions2 RecID = 0x0000 // BIFF2 layout
	RecDimensions  RecID = 0x0200
	RecXF3         RecID = 0x0243 // BIFF3 layout
	RecRK          RecID = 0x027E
	RecFormula4    RecID = 0x0406
	RecFormat      RecID = 0x041E
	RecXF4         RecID = 0x0443 // BIFF4 layout
	RecBOF         RecID = 0x0809
	RecBOF4        RecID = 0x0409
	RecBOF3        RecID = 0x0209
	RecBOF2        RecID = 0x0009
)

// BOF stream types.
const (
	StreamGlobals   = 0x0005
	StreamGlobals4W = 0x0100
	StreamWorksheet = 0x0010
	StreamChart     = 0x0020
	StreamMacro     = 0x0040
)

// BOUNDSHEET sheet types.
const (
	SheetWorksheet = 0x00
	SheetChart     = 0x02
	SheetVBModule  = 0x06
)

// Record is one decoded record header plus its payload. Data may be
// shorter than the declared payload length when the stream was opened in
// Loose mode and the record extended past end-of-stream.
type Record struct {
	ID     RecID
	Data   []byte
	Offset int // offset of the 4-byte header within the stream

	declared int
}

// EncodedSize is the full on-stream size of the record: the 4-byte header
// plus the declared payload length. Cursor arithmetic uses the declared
// length even when the payload was truncated, so that offsets derived from
// producer metadata stay aligned.
func (r *Record) EncodedSize() int {
	return 4 + r.declared
}

var cellRecords = map[RecID]bool{
	RecInteger:   true,
	RecNumberB2:  true,
	RecLabelB2:   true,
	RecBoolErrB2: true,
	RecFormula:   true,
	RecFormula3:  true,
	RecFormula4:  true,
	RecBlankB2:   true,
	RecMulRK:     true,
	RecMulBlank:  true,
	RecRString:   true,
	RecBlank:     true,
	RecNumber:    true,
	RecLabel:     true,
	RecBoolErr:   true,
	RecLabelSST:  true,
	RecRK:        true,
}

// IsCellRecord reports whether id is a record kind that carries cell data
// for one or more columns of a row.
func IsCellRecord(id RecID) bool {
	return cellRecords[id]
}

// IsBOF reports whether id is any of the version-specific BOF kinds.
func IsBOF(id RecID) bool {
	return id == RecBOF || id == RecBOF4 || id == RecBOF3 || id == RecBOF2
}

// IsRow reports whether id is a row record of any supported version.
func IsRow(id RecID) bool {
	return id == RecRow || id == RecRowB2
}

// ErrorText maps BIFF error codes to their display form.
var ErrorText = map[byte]string{
	0x00: "#NULL!",
	0x07: "#DIV/0!",
	0x0F: "#VALUE!",
	0x17: "#REF!",
	0x1D: "#NAME?",
	0x24: "#NUM!",
	0x2A: "#N/A",
}
