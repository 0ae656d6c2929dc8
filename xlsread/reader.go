// Package xlsread extracts tabular data from legacy binary spreadsheet
// files: BIFF record streams, usually hosted inside an OLE2 compound
// document. Formulas are never evaluated; only their cached results are
// read.
package xlsread

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"golang.org/x/text/encoding"

	"github.com/wangxuesong29/exceltk/biff"
	"github.com/wangxuesong29/exceltk/compdoc"
)

// Options configures a Reader. The zero value reads in Strict mode and
// discards diagnostics.
type Options struct {
	// Mode selects how a record whose declared payload extends past the
	// end of the stream is handled: Strict fails, Loose truncates.
	Mode biff.Mode

	// Logf receives diagnostic output when Verbosity > 0. nil means
	// discard.
	Logf io.Writer

	// Verbosity selects how much diagnostic output Logf receives.
	Verbosity int

	// EncodingOverride, when non-nil, replaces the encoding declared by
	// the workbook. Useful for files whose CODEPAGE record lies.
	EncodingOverride encoding.Encoding
}

// Table is one extracted worksheet: its rows and positional column
// names ("0", "1", ...).
type Table struct {
	Name string
	Cols []string
	Rows [][]Value
}

// Reader extracts every worksheet of a workbook. It is not safe for
// concurrent use.
type Reader struct {
	globals   *WorkbookGlobals
	stream    *biff.Stream
	mode      biff.Mode
	logf      io.Writer
	verbosity int
	encoding  encoding.Encoding

	owned io.Closer // closed on release; nil when the caller owns the source

	tables   []Table
	produced bool
	invalid  bool
	released bool
}

// Open reads a workbook from r. The whole source is consumed up front;
// r is not used after Open returns. A non-nil error still comes with a
// usable Reader whose ProduceAll yields no tables.
func Open(r io.Reader, opts *Options) (*Reader, error) {
	rd := newReader(opts)
	mem, err := io.ReadAll(r)
	if err != nil {
		rd.invalidate()
		return rd, err
	}
	if err := rd.load(mem); err != nil {
		rd.invalidate()
		return rd, err
	}
	return rd, nil
}

// OpenFile opens the workbook at path. The file handle is owned by the
// Reader and released after extraction finishes or fails.
func OpenFile(path string, opts *Options) (*Reader, error) {
	rd := newReader(opts)
	f, err := os.Open(path)
	if err != nil {
		rd.invalidate()
		return rd, err
	}
	rd.owned = f
	mem, err := io.ReadAll(f)
	if err != nil {
		rd.invalidate()
		return rd, err
	}
	if err := rd.load(mem); err != nil {
		rd.invalidate()
		return rd, err
	}
	return rd, nil
}

func newReader(opts *Options) *Reader {
	rd := &Reader{logf: io.Discard}
	if opts != nil {
		rd.mode = opts.Mode
		rd.verbosity = opts.Verbosity
		rd.encoding = opts.EncodingOverride
		if opts.Logf != nil {
			rd.logf = opts.Logf
		}
	}
	return rd
}

// load locates the workbook stream and reads the globals section. Files
// that are not compound documents are treated as raw BIFF streams.
func (rd *Reader) load(mem []byte) error {
	stream := mem
	if bytes.HasPrefix(mem, compdoc.Signature) {
		doc, err := compdoc.OpenBytes(mem)
		if err != nil {
			return err
		}
		stream, err = doc.Stream("Workbook", "Book")
		if err != nil {
			return err
		}
	} else if rd.verbosity >= 1 {
		fmt.Fprintln(rd.logf, "no compound-document signature, reading as a raw record stream")
	}
	rd.stream = biff.NewStream(stream, rd.mode)
	g, err := LoadGlobals(rd.stream, rd.encoding, rd.logf, rd.verbosity)
	if err != nil {
		return err
	}
	rd.globals = g
	return nil
}

// ProduceAll extracts every worksheet that yields at least one row and
// returns the tables. The result is computed once; later calls return
// the same slice without touching the source. A fatal parse failure in
// any sheet abandons the whole workbook and yields no tables.
func (rd *Reader) ProduceAll() []Table {
	if rd.invalid || rd.produced {
		return rd.tables
	}
	tables := []Table{}
	for _, ws := range rd.globals.Sheets {
		sr := newSheetReader(rd.globals, ws, rd.stream, rd.logf, rd.verbosity)
		skip, err := sr.loadHeader()
		if err != nil {
			rd.fail(ws.Name, err)
			return nil
		}
		if skip {
			continue
		}
		rows, err := sr.readRows()
		if err != nil {
			rd.fail(ws.Name, err)
			return nil
		}
		if len(rows) == 0 {
			continue
		}
		cols := make([]string, ws.MaxCol)
		for i := range cols {
			cols[i] = strconv.Itoa(i)
		}
		tables = append(tables, Table{Name: ws.Name, Cols: cols, Rows: rows})
	}
	rd.tables = tables
	rd.produced = true
	rd.release()
	return rd.tables
}

func (rd *Reader) fail(sheet string, err error) {
	if rd.verbosity >= 1 {
		fmt.Fprintf(rd.logf, "sheet %q: %v; abandoning workbook\n", sheet, err)
	}
	rd.invalidate()
}

// invalidate marks the reader unusable and releases the source. Every
// later ProduceAll call returns no tables.
func (rd *Reader) invalidate() {
	rd.invalid = true
	rd.release()
}

// release closes an owned source exactly once.
func (rd *Reader) release() {
	if rd.released {
		return
	}
	rd.released = true
	if rd.owned != nil {
		rd.owned.Close()
	}
}

// Close releases the underlying source. It is safe to call any number
// of times and after ProduceAll; already-produced tables stay valid.
func (rd *Reader) Close() error {
	rd.release()
	return nil
}
