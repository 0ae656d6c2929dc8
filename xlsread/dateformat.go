package xlsread

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// formatClass says what a number format turns a raw serial number into.
type formatClass int

const (
	classNumber formatClass = iota
	classDate
	classText
)

// builtinFormatClass covers the format codes Excel defines itself.
// Codes outside this map are producer-defined and classified by
// pattern.
var builtinFormatClass = map[uint16]formatClass{
	0: classNumber, 1: classNumber, 2: classNumber, 3: classNumber, 4: classNumber,
	5: classNumber, 6: classNumber, 7: classNumber, 8: classNumber,
	9: classNumber, 10: classNumber, 11: classNumber, 12: classNumber, 13: classNumber,
	14: classDate, 15: classDate, 16: classDate, 17: classDate, 18: classDate,
	19: classDate, 20: classDate, 21: classDate, 22: classDate,
	27: classDate, 28: classDate, 29: classDate, 30: classDate, 31: classDate,
	32: classDate, 33: classDate, 34: classDate, 35: classDate, 36: classDate,
	37: classNumber, 38: classNumber, 39: classNumber, 40: classNumber,
	41: classNumber, 42: classNumber, 43: classNumber, 44: classNumber,
	45: classDate, 46: classDate, 47: classDate,
	48: classNumber,
	49: classText,
	50: classDate, 51: classDate, 52: classDate, 53: classDate, 54: classDate,
	55: classDate, 56: classDate, 57: classDate, 58: classDate,
}

// reclassify looks at a numeric cell's extended format and, where the
// format is a date or text format, rewrites the value accordingly. A
// cell whose XF index is unknown, or whose layout gates the format off,
// keeps its plain number.
func (g *WorkbookGlobals) reclassify(v Value) Value {
	code, ok := g.formatCode(v.xf)
	if !ok {
		return v
	}
	switch g.classify(code) {
	case classDate:
		t, err := serialToTime(v.Number, g.DateMode)
		if err != nil {
			return v
		}
		return Value{Kind: KindDate, Time: t, Hyperlink: v.Hyperlink, xf: v.xf}
	case classText:
		return Value{
			Kind:      KindText,
			Text:      strconv.FormatFloat(v.Number, 'f', -1, 64),
			Hyperlink: v.Hyperlink,
			xf:        v.xf,
		}
	}
	return v
}

// reclassifyText is the string-valued twin of reclassify: a text cell
// holding a plain decimal number under a date format is re-parsed and
// converted. Non-numeric text is left alone.
func (g *WorkbookGlobals) reclassifyText(v Value) Value {
	n, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
	if err != nil {
		return v
	}
	code, ok := g.formatCode(v.xf)
	if !ok {
		return v
	}
	if g.classify(code) != classDate {
		return v
	}
	t, err := serialToTime(n, g.DateMode)
	if err != nil {
		return v
	}
	return Value{Kind: KindDate, Time: t, Hyperlink: v.Hyperlink, xf: v.xf}
}

// formatCode resolves a cell's XF index to its number-format code. ok
// is false when the number format should not influence the value.
func (g *WorkbookGlobals) formatCode(xfIdx int) (uint16, bool) {
	xf, ok := g.XF(xfIdx)
	if !ok {
		// Some producers store the format code directly where the XF
		// index belongs.
		if xfIdx >= 0 && xfIdx <= 0xFFFF {
			return uint16(xfIdx), true
		}
		return 0, false
	}
	if xf.Gated && !xf.FormatUsed {
		return 0, false
	}
	return xf.Format, true
}

func (g *WorkbookGlobals) classify(code uint16) formatClass {
	if class, ok := builtinFormatClass[code]; ok {
		return class
	}
	if pattern, ok := g.formats[code]; ok && IsDateTimePattern(pattern) {
		return classDate
	}
	return classNumber
}

var (
	dateChars    = map[rune]bool{'y': true, 'Y': true, 'm': true, 'M': true, 'd': true, 'D': true, 'h': true, 'H': true, 's': true, 'S': true}
	numChars     = map[rune]bool{'0': true, '#': true, '?': true}
	punctChars   = map[rune]bool{'$': true, '-': true, '+': true, '/': true, '(': true, ')': true, ':': true, ' ': true}
	bracketedRe  = regexp.MustCompile(`\[.*?\]`)
	neverDateFmt = map[string]bool{
		"0.00E+00": true,
		"##0.0E+0": true,
		"General":  true,
		"GENERAL":  true,
		"general":  true,
		"@":        true,
	}
)

// IsDateTimePattern classifies a custom number-format pattern. Quoted
// literals, escaped characters and bracketed sections do not count;
// what remains is a date format when it contains date letters (ymdhs,
// caseless) and no digit placeholders.
func IsDateTimePattern(pattern string) bool {
	state := 0
	var reduced strings.Builder
	for _, c := range pattern {
		switch state {
		case 0:
			switch {
			case c == '"':
				state = 1
			case c == '\\' || c == '_' || c == '*':
				state = 2
			case punctChars[c]:
				// skip
			default:
				reduced.WriteRune(c)
			}
		case 1:
			if c == '"' {
				state = 0
			}
		case 2:
			state = 0
		}
	}
	s := bracketedRe.ReplaceAllString(reduced.String(), "")
	if neverDateFmt[s] {
		return false
	}
	dates, nums := 0, 0
	for _, c := range s {
		if dateChars[c] {
			dates++
		} else if numChars[c] {
			nums++
		}
	}
	return dates > 0 && nums == 0
}

var (
	epoch1904       = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
	epoch1900       = time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC)
	epoch1900Minus1 = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
)

// serialToTime converts an Excel date serial to a time.Time. The
// 1900 system pretends 1900 was a leap year; serials below 60 predate
// the phantom Feb 29 and use the unadjusted epoch.
func serialToTime(serial float64, datemode int) (time.Time, error) {
	if serial < 0 {
		return time.Time{}, newReadError("negative date serial %f", serial)
	}
	var epoch time.Time
	if datemode == 1 {
		epoch = epoch1904
	} else if serial < 60 {
		epoch = epoch1900
	} else {
		epoch = epoch1900Minus1
	}
	days := int(serial)
	fraction := serial - float64(days)

	// Round the day fraction at Excel's millisecond resolution.
	ms := int(math.Round(fraction * 86400000.0))
	return epoch.AddDate(0, 0, days).
		Add(time.Duration(ms/1000)*time.Second + time.Duration(ms%1000)*time.Millisecond), nil
}
