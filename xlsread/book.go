package xlsread

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"golang.org/x/exp/maps"
	"golang.org/x/text/encoding"

	"github.com/wangxuesong29/exceltk/biff"
)

// Worksheet describes one sheet announced by the workbook globals. The
// extent fields are filled in later by the per-sheet header pass; both
// are exclusive upper bounds.
type Worksheet struct {
	Name       string
	Offset     int
	Visibility byte
	Version    int

	MaxRow int
	MaxCol int
}

// FontInfo is the small slice of a font record this reader retains.
type FontInfo struct {
	Height  int
	Options uint16
}

// WorkbookGlobals holds everything the globals section contributes:
// the sheet directory, the shared-string table, extended formats,
// number-format patterns, the text encoding and the date epoch mode.
type WorkbookGlobals struct {
	Version  int
	DateMode int
	Sheets   []*Worksheet
	Encoding encoding.Encoding

	fonts    []FontInfo
	xfs      []biff.XFInfo
	formats  map[uint16]string
	sst      []string
	sstReady bool
}

// SharedString returns the shared string at idx. It reports false when
// the table was never materialized or idx is out of range.
func (g *WorkbookGlobals) SharedString(idx int) (string, bool) {
	if !g.sstReady || idx < 0 || idx >= len(g.sst) {
		return "", false
	}
	return g.sst[idx], true
}

// XF returns the extended-format entry at idx.
func (g *WorkbookGlobals) XF(idx int) (biff.XFInfo, bool) {
	if idx < 0 || idx >= len(g.xfs) {
		return biff.XFInfo{}, false
	}
	return g.xfs[idx], true
}

// CustomFormat returns the number-format pattern registered under code.
func (g *WorkbookGlobals) CustomFormat(code uint16) (string, bool) {
	s, ok := g.formats[code]
	return s, ok
}

// CustomFormatCodes lists the registered format codes in ascending
// order.
func (g *WorkbookGlobals) CustomFormatCodes() []uint16 {
	codes := maps.Keys(g.formats)
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// LoadGlobals reads the workbook globals section from the start of s.
// The first record must be a globals stream header; anything else is
// fatal. Very old single-sheet files open directly with a worksheet
// header, in which case a one-entry sheet directory is synthesized and
// the stream is left untouched for the sheet pass.
// A non-nil override pins the text encoding for the whole workbook and
// makes any CODEPAGE record inert.
func LoadGlobals(s *biff.Stream, override encoding.Encoding, logf io.Writer, verbosity int) (*WorkbookGlobals, error) {
	g := &WorkbookGlobals{
		Encoding: biff.DefaultEncoding,
		formats:  make(map[uint16]string),
	}
	if override != nil {
		g.Encoding = override
	}

	s.Seek(0)
	rec, err := s.ReadNext()
	if err != nil {
		return nil, err
	}
	if rec == nil || !biff.IsBOF(rec.ID) {
		return nil, newReadError("workbook stream does not start with a stream header record")
	}
	bof, err := biff.DecodeBOF(rec)
	if err != nil {
		return nil, err
	}
	g.Version = bof.Version
	if bof.StreamType != biff.StreamGlobals && bof.StreamType != biff.StreamGlobals4W {
		if bof.Version < 50 && bof.StreamType == biff.StreamWorksheet {
			// Single-sheet file with no globals section at all.
			g.Sheets = append(g.Sheets, &Worksheet{Name: "Sheet1", Offset: rec.Offset, Version: bof.Version})
			return g, nil
		}
		return nil, newReadError("workbook stream opens with stream type 0x%04X, not workbook globals", bof.StreamType)
	}

	var (
		sst       *biff.SSTBuilder
		absorbing bool
	)
	for {
		rec, err = s.ReadNext()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			break
		}
		if absorbing && rec.ID != biff.RecContinue {
			absorbing = false
		}
		switch rec.ID {
		case biff.RecBoundSheet:
			bs, err := biff.DecodeBoundSheet(rec, g.Version, g.Encoding)
			if err != nil {
				return nil, err
			}
			if bs.SheetType != biff.SheetWorksheet {
				if verbosity >= 1 {
					fmt.Fprintf(logf, "skipping non-worksheet substream %q (type 0x%02X)\n", bs.Name, bs.SheetType)
				}
				continue
			}
			g.Sheets = append(g.Sheets, &Worksheet{
				Name:       bs.Name,
				Offset:     bs.Offset,
				Visibility: bs.Visibility,
				Version:    g.Version,
			})
		case biff.RecSST:
			sst = biff.NewSSTBuilder(rec)
			absorbing = true
		case biff.RecContinue:
			if absorbing {
				sst.Absorb(rec)
			}
		case biff.RecCodepage:
			cp, err := biff.DecodeCodepage(rec)
			if err != nil {
				return nil, err
			}
			if override != nil {
				continue
			}
			if enc, ok := biff.EncodingForCodepage(cp); ok {
				g.Encoding = enc
			} else if verbosity >= 1 {
				fmt.Fprintf(logf, "unknown codepage %d, keeping default encoding\n", cp)
			}
		case biff.RecDateMode:
			dm, err := biff.DecodeDateMode(rec)
			if err != nil {
				return nil, err
			}
			g.DateMode = dm
		case biff.RecFont, biff.RecFont4:
			if len(rec.Data) >= 4 {
				g.fonts = append(g.fonts, FontInfo{
					Height:  int(binary.LittleEndian.Uint16(rec.Data)),
					Options: binary.LittleEndian.Uint16(rec.Data[2:]),
				})
			}
		case biff.RecXF, biff.RecXF2, biff.RecXF3, biff.RecXF4:
			xf, err := biff.DecodeXF(rec)
			if err != nil {
				return nil, err
			}
			g.xfs = append(g.xfs, xf)
		case biff.RecFormat, biff.RecFormat2:
			fi, err := biff.DecodeFormat(rec, g.Version, g.Encoding)
			if err != nil {
				return nil, err
			}
			code := fi.Code
			if !fi.HasCode {
				// Old format records carry no code; they are numbered
				// in stream order.
				code = uint16(len(g.formats))
			}
			g.formats[code] = fi.Pattern
		case biff.RecFilePass:
			return nil, newReadError("workbook is encrypted")
		case biff.RecEOF:
			goto done
		}
	}
done:
	if sst != nil {
		g.sst = sst.Materialize()
		g.sstReady = true
	}
	if verbosity >= 2 {
		fmt.Fprintf(logf, "globals: %d sheets, %d shared strings, %d XFs, %d formats, datemode %d\n",
			len(g.Sheets), len(g.sst), len(g.xfs), len(g.formats), g.DateMode)
		if codes := g.CustomFormatCodes(); len(codes) > 0 {
			fmt.Fprintf(logf, "globals: custom format codes %v\n", codes)
		}
	}
	return g, nil
}
