package xlsread

import (
	"fmt"

	"github.com/wangxuesong29/exceltk/biff"
)

// setCell writes v at col in the row being assembled. Columns at or
// beyond the sheet extent are dropped silently; a hyperlink covering
// the cell is attached on the way in.
func (sr *sheetReader) setCell(t *traversal, col int, v Value) {
	if col < 0 || col >= len(t.buf) {
		return
	}
	if target, ok := sr.hyperlinks[cellRef{t.depth, col}]; ok {
		v.Hyperlink = target
	}
	t.buf[col] = v
}

// decodeCell dispatches one cell record into the row buffer. Blank
// cells and error values produce no value at all; malformed payloads
// are logged and dropped rather than failing the sheet.
func (sr *sheetReader) decodeCell(rec *biff.Record, t *traversal) error {
	col := biff.CellCol(rec)
	switch rec.ID {
	case biff.RecBlank, biff.RecBlankB2, biff.RecMulBlank:
		return nil
	case biff.RecRK:
		n, err := biff.DecodeRK(rec)
		if err != nil {
			return sr.dropCell(rec, t, err)
		}
		sr.setCell(t, col, Value{Kind: KindNumber, Number: n, xf: biff.CellXF(rec)})
	case biff.RecMulRK:
		vals, err := biff.DecodeMulRK(rec)
		if err != nil {
			return sr.dropCell(rec, t, err)
		}
		for _, mv := range vals {
			sr.setCell(t, mv.Col, Value{Kind: KindNumber, Number: mv.Number, xf: mv.XF})
		}
	case biff.RecNumber, biff.RecNumberB2:
		n, err := biff.DecodeNumber(rec)
		if err != nil {
			return sr.dropCell(rec, t, err)
		}
		sr.setCell(t, col, Value{Kind: KindNumber, Number: n, xf: biff.CellXF(rec)})
	case biff.RecInteger:
		n, err := biff.DecodeInteger(rec)
		if err != nil {
			return sr.dropCell(rec, t, err)
		}
		sr.setCell(t, col, Value{Kind: KindNumber, Number: float64(n), xf: biff.CellXF(rec)})
	case biff.RecBoolErr, biff.RecBoolErrB2:
		val, isErr, err := biff.DecodeBoolErr(rec)
		if err != nil {
			return sr.dropCell(rec, t, err)
		}
		if isErr {
			return nil
		}
		sr.setCell(t, col, Value{Kind: KindBool, Bool: val != 0})
	case biff.RecLabel, biff.RecLabelB2, biff.RecRString:
		s, err := biff.DecodeLabel(rec, sr.ws.Version, sr.g.Encoding)
		if err != nil {
			return sr.dropCell(rec, t, err)
		}
		sr.setCell(t, col, Value{Kind: KindText, Text: s, xf: biff.CellXF(rec)})
	case biff.RecLabelSST:
		idx, err := biff.DecodeLabelSST(rec)
		if err != nil {
			return sr.dropCell(rec, t, err)
		}
		s, ok := sr.g.SharedString(idx)
		if !ok {
			return sr.dropCell(rec, t, fmt.Errorf("shared string index %d out of range", idx))
		}
		sr.setCell(t, col, Value{Kind: KindText, Text: s, xf: biff.CellXF(rec)})
	case biff.RecFormula, biff.RecFormula3, biff.RecFormula4:
		return sr.decodeFormulaCell(rec, t, col)
	}
	return nil
}

// decodeFormulaCell writes a formula's cached result. String results
// live in the STRING record that follows the formula; error results
// yield no value.
func (sr *sheetReader) decodeFormulaCell(rec *biff.Record, t *traversal, col int) error {
	res, err := biff.DecodeFormulaResult(rec)
	if err != nil {
		return sr.dropCell(rec, t, err)
	}
	switch res.Kind {
	case biff.FormulaNumber:
		sr.setCell(t, col, Value{Kind: KindNumber, Number: res.Number, xf: biff.CellXF(rec)})
	case biff.FormulaBool:
		sr.setCell(t, col, Value{Kind: KindBool, Bool: res.Bool})
	case biff.FormulaEmpty:
		sr.setCell(t, col, Value{Kind: KindText})
	case biff.FormulaError:
		// Cached error, no value.
	case biff.FormulaString:
		next, err := sr.s.ReadAt(rec.Offset + rec.EncodedSize())
		if err != nil {
			return err
		}
		if next == nil || next.ID != biff.RecString {
			return sr.dropCell(rec, t, fmt.Errorf("string formula not followed by a STRING record"))
		}
		s, err := biff.DecodeString(next, sr.ws.Version, sr.g.Encoding)
		if err != nil {
			return sr.dropCell(rec, t, err)
		}
		sr.setCell(t, col, Value{Kind: KindText, Text: s, xf: biff.CellXF(rec)})
	}
	return nil
}

// dropCell logs a malformed cell payload and discards it. The sheet
// keeps going; a single bad cell is not worth the workbook.
func (sr *sheetReader) dropCell(rec *biff.Record, t *traversal, err error) error {
	if sr.verbosity >= 1 {
		fmt.Fprintf(sr.logf, "sheet %q row %d: dropping record 0x%04X: %v\n", sr.ws.Name, t.depth, rec.ID, err)
	}
	return nil
}
