package xlsread

import (
	"fmt"
	"io"

	"github.com/wangxuesong29/exceltk/biff"
)

// defaultMaxCols is the column extent assumed when a sheet carries no
// dimensions record at all.
const defaultMaxCols = 256

type cellRef struct {
	row, col int
}

// sheetReader extracts one worksheet's rows from the workbook stream.
// It is built fresh per sheet; the stream cursor is shared with the
// workbook but every traversal seeks explicitly.
type sheetReader struct {
	g  *WorkbookGlobals
	ws *Worksheet
	s  *biff.Stream

	logf      io.Writer
	verbosity int

	index       *biff.IndexInfo
	firstRow    *biff.RowInfo
	firstRowOff int
	hyperlinks  map[cellRef]string
}

func newSheetReader(g *WorkbookGlobals, ws *Worksheet, s *biff.Stream, logf io.Writer, verbosity int) *sheetReader {
	return &sheetReader{
		g:          g,
		ws:         ws,
		s:          s,
		logf:       logf,
		verbosity:  verbosity,
		hyperlinks: make(map[cellRef]string),
	}
}

// loadHeader performs the per-sheet header pass: validate the stream
// header, capture the index if one exists, resolve the row and column
// extents, and collect hyperlink targets. skip reports that the sheet
// contributes no table (bad header, empty extent, or no rows).
func (sr *sheetReader) loadHeader() (skip bool, err error) {
	sr.s.Seek(sr.ws.Offset)
	rec, err := sr.s.ReadNext()
	if err != nil {
		return false, err
	}
	if rec == nil || !biff.IsBOF(rec.ID) {
		if sr.verbosity >= 1 {
			fmt.Fprintf(sr.logf, "sheet %q: no stream header at offset %d, skipping\n", sr.ws.Name, sr.ws.Offset)
		}
		return true, nil
	}
	bof, err := biff.DecodeBOF(rec)
	if err != nil {
		return false, err
	}
	if bof.StreamType != biff.StreamWorksheet {
		if sr.verbosity >= 1 {
			fmt.Fprintf(sr.logf, "sheet %q: substream type 0x%04X is not a worksheet, skipping\n", sr.ws.Name, bof.StreamType)
		}
		return true, nil
	}
	sr.ws.Version = bof.Version

	rec, err = sr.s.ReadNext()
	if err != nil {
		return false, err
	}
	if rec != nil && rec.ID == biff.RecUncalced {
		rec, err = sr.s.ReadNext()
		if err != nil {
			return false, err
		}
	}
	if rec != nil && rec.ID == biff.RecIndex {
		idx, err := biff.DecodeIndex(rec, sr.ws.Version)
		if err != nil {
			return false, err
		}
		sr.index = &idx
		rec, err = sr.s.ReadNext()
		if err != nil {
			return false, err
		}
	}

	// Scan for the dimensions record, then keep going until the first
	// row record (or end of sheet). The record already in hand is part
	// of the scan.
	var dims *biff.DimensionsInfo
	for rec != nil {
		if rec.ID == biff.RecDimensions || rec.ID == biff.RecDimensions2 {
			d, err := biff.DecodeDimensions(rec)
			if err != nil {
				return false, err
			}
			dims = &d
		} else if biff.IsRow(rec.ID) {
			ri, err := biff.DecodeRow(rec)
			if err != nil {
				return false, err
			}
			sr.firstRow = &ri
			sr.firstRowOff = rec.Offset
			break
		} else if rec.ID == biff.RecEOF {
			break
		}
		rec, err = sr.s.ReadNext()
		if err != nil {
			return false, err
		}
	}

	switch {
	case dims != nil:
		sr.ws.MaxRow = dims.LastRow
		sr.ws.MaxCol = dims.LastCol
		if sr.ws.MaxCol <= 0 && sr.firstRow != nil {
			sr.ws.MaxCol = sr.firstRow.LastCol
		}
	case sr.index != nil:
		sr.ws.MaxRow = sr.index.LastRow
		sr.ws.MaxCol = defaultMaxCols
	default:
		sr.ws.MaxCol = defaultMaxCols
	}

	if sr.index != nil && sr.index.LastRow <= sr.index.FirstRow {
		return true, nil
	}
	if sr.firstRow == nil {
		return true, nil
	}
	if sr.ws.MaxRow <= 0 || sr.ws.MaxCol <= 0 {
		return true, nil
	}

	if err := sr.collectHyperlinks(); err != nil {
		return false, err
	}
	if sr.verbosity >= 2 {
		fmt.Fprintf(sr.logf, "sheet %q: extent %dx%d, index=%v, %d hyperlink cells\n",
			sr.ws.Name, sr.ws.MaxRow, sr.ws.MaxCol, sr.index != nil, len(sr.hyperlinks))
	}
	return false, nil
}

// collectHyperlinks scans forward from the current position. Hyperlink
// records form one contiguous run near the end of the sheet; the scan
// stops at the first non-hyperlink record after that run, or at the end
// of the sheet.
func (sr *sheetReader) collectHyperlinks() error {
	seen := false
	for {
		rec, err := sr.s.ReadNext()
		if err != nil {
			return err
		}
		if rec == nil || rec.ID == biff.RecEOF {
			return nil
		}
		if rec.ID != biff.RecHyperlink {
			if seen {
				return nil
			}
			continue
		}
		seen = true
		hl, ok := biff.DecodeHyperlink(rec)
		if !ok {
			continue
		}
		// Whole-row and whole-column links declare the full 65536x256
		// grid; only cells inside the sheet extent can be attached.
		lastRow, lastCol := hl.LastRow, hl.LastCol
		if lastRow >= sr.ws.MaxRow {
			lastRow = sr.ws.MaxRow - 1
		}
		if lastCol >= sr.ws.MaxCol {
			lastCol = sr.ws.MaxCol - 1
		}
		for r := hl.FirstRow; r <= lastRow; r++ {
			for c := hl.FirstCol; c <= lastCol; c++ {
				sr.hyperlinks[cellRef{r, c}] = hl.Target
			}
		}
	}
}

// traversal is the mutable state shared by both row-reading modes: the
// index of the row being assembled, the cursor offset within the
// stream, and the in-progress row buffer.
type traversal struct {
	depth  int
	offset int
	buf    []Value
	rows   [][]Value
}

// readRows walks the sheet's cell data and returns one slice per row,
// each sr.ws.MaxCol wide. The mode is chosen once: indexed when the
// header pass captured an index, sequential otherwise.
func (sr *sheetReader) readRows() ([][]Value, error) {
	t := &traversal{buf: make([]Value, sr.ws.MaxCol)}
	var err error
	if sr.index != nil {
		err = sr.readIndexed(t)
	} else {
		err = sr.readSequential(t)
	}
	if err != nil {
		return nil, err
	}
	return t.rows, nil
}

// finishRow snapshots the buffer as the completed row at the current
// depth, applying date reclassification to numeric and numeric-text
// cells, and advances the depth.
func (sr *sheetReader) finishRow(t *traversal) {
	row := make([]Value, len(t.buf))
	for i, v := range t.buf {
		switch v.Kind {
		case KindNumber:
			v = sr.g.reclassify(v)
		case KindText:
			v = sr.g.reclassifyText(v)
		}
		row[i] = v
		t.buf[i] = Value{}
	}
	t.rows = append(t.rows, row)
	t.depth++
}

// decodeRowAt runs the shared per-row loop at t.offset: consume cell
// records belonging to the row at the current depth, skip interleaved
// non-cell records, and stop on one of three row-ending conditions. A
// cell belonging to a different row ends the row without being
// consumed; a block-boundary record or end-of-sheet ends it after being
// consumed.
func (sr *sheetReader) decodeRowAt(t *traversal) (endBlock, endSheet bool, err error) {
	for {
		rec, err := sr.s.ReadAt(t.offset)
		if err != nil {
			return false, false, err
		}
		if rec == nil {
			return false, true, nil
		}
		switch {
		case rec.ID == biff.RecDBCell:
			t.offset += rec.EncodedSize()
			return true, false, nil
		case rec.ID == biff.RecEOF:
			t.offset += rec.EncodedSize()
			return false, true, nil
		case biff.IsCellRecord(rec.ID):
			if biff.CellRow(rec) != t.depth {
				return false, false, nil
			}
			t.offset += rec.EncodedSize()
			if err := sr.decodeCell(rec, t); err != nil {
				return false, false, err
			}
		default:
			t.offset += rec.EncodedSize()
		}
	}
}

// readIndexed visits each block-boundary address the index declares. At
// each address there must be a block-boundary record; its disagreement
// with the index is not recoverable. The row records that follow it
// belong to the next block and are stepped over; the block's cell data
// starts after them.
func (sr *sheetReader) readIndexed(t *traversal) error {
	for _, addr := range sr.index.BlockAddrs {
		if t.depth >= sr.ws.MaxRow {
			return nil
		}
		rec, err := sr.s.ReadAt(addr)
		if err != nil {
			return err
		}
		if rec == nil || rec.ID != biff.RecDBCell {
			return &BlockStructureError{Sheet: sr.ws.Name, Addr: addr}
		}
		off := addr + rec.EncodedSize()
		sawRow := false
		for {
			r, err := sr.s.ReadAt(off)
			if err != nil {
				return err
			}
			if r == nil || !biff.IsRow(r.ID) {
				break
			}
			sawRow = true
			off += r.EncodedSize()
		}
		if !sawRow {
			// End of usable data: the final address points past the
			// last block's rows.
			return nil
		}
		t.offset = off
		for t.depth < sr.ws.MaxRow {
			endBlock, endSheet, err := sr.decodeRowAt(t)
			if err != nil {
				return err
			}
			sr.finishRow(t)
			if endSheet {
				return nil
			}
			if endBlock {
				break
			}
		}
	}
	return nil
}

// readSequential walks the sheet without an index. Each defined row is
// located by its row record: the scan finds the row's first cell, the
// shared per-row loop assembles every row up to and including it
// (undefined rows in between come out empty), then the next row record
// with a strictly greater index is sought.
func (sr *sheetReader) readSequential(t *traversal) error {
	target := *sr.firstRow
	targetOff := sr.firstRowOff
	for t.depth < sr.ws.MaxRow {
		cellOff, found, err := sr.findRowCells(target.Index, targetOff)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		t.offset = cellOff
		for t.depth <= target.Index && t.depth < sr.ws.MaxRow {
			_, endSheet, err := sr.decodeRowAt(t)
			if err != nil {
				return err
			}
			sr.finishRow(t)
			if endSheet {
				return nil
			}
		}
		next, nextOff, ok, err := sr.nextRowAfter(target.Index, targetOff)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		target = next
		targetOff = nextOff
	}
	return nil
}

// findRowCells scans from a row record's offset to the first cell
// record belonging to that row. found is false when the sheet ends
// before any such cell appears.
func (sr *sheetReader) findRowCells(rowIdx, fromOff int) (cellOff int, found bool, err error) {
	off := fromOff
	for {
		rec, err := sr.s.ReadAt(off)
		if err != nil {
			return 0, false, err
		}
		if rec == nil || rec.ID == biff.RecEOF {
			return 0, false, nil
		}
		if biff.IsCellRecord(rec.ID) && biff.CellRow(rec) == rowIdx {
			return off, true, nil
		}
		off += rec.EncodedSize()
	}
}

// nextRowAfter scans forward for the next row record with an index
// strictly greater than rowIdx.
func (sr *sheetReader) nextRowAfter(rowIdx, fromOff int) (biff.RowInfo, int, bool, error) {
	off := fromOff
	for {
		rec, err := sr.s.ReadAt(off)
		if err != nil {
			return biff.RowInfo{}, 0, false, err
		}
		if rec == nil || rec.ID == biff.RecEOF {
			return biff.RowInfo{}, 0, false, nil
		}
		if biff.IsRow(rec.ID) {
			ri, err := biff.DecodeRow(rec)
			if err != nil {
				return biff.RowInfo{}, 0, false, err
			}
			if ri.Index > rowIdx {
				return ri, rec.Offset, true, nil
			}
		}
		off += rec.EncodedSize()
	}
}
