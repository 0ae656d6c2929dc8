package biff

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// encodingFromCodepage maps the CODEPAGE record value to a byte-string
// decoder. Codepages not listed here are unresolvable; the workbook keeps
// whatever encoding it already had.
var encodingFromCodepage = map[int]encoding.Encoding{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	852:   charmap.CodePage852,
	866:   charmap.CodePage866,
	874:   charmap.Windows874,
	932:   japanese.ShiftJIS,
	936:   simplifiedchinese.GBK,
	949:   korean.EUCKR,
	950:   traditionalchinese.Big5,
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	1255:  charmap.Windows1255,
	1256:  charmap.Windows1256,
	1257:  charmap.Windows1257,
	1258:  charmap.Windows1258,
	10000: charmap.Macintosh,
	32768: charmap.Macintosh,
	32769: charmap.Windows1252,
}

// EncodingForCodepage resolves a CODEPAGE record value. The second result
// is false when the codepage is unknown (including the obfuscated values
// found in password-protected files); callers are expected to tolerate
// that and keep their prior default.
func EncodingForCodepage(codepage int) (encoding.Encoding, bool) {
	enc, ok := encodingFromCodepage[codepage]
	return enc, ok
}

// DefaultEncoding is used for byte strings before any codepage record is
// seen.
var DefaultEncoding encoding.Encoding = charmap.ISO8859_1

func decodeBytes(raw []byte, enc encoding.Encoding) string {
	if enc == nil {
		enc = DefaultEncoding
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func decodeUTF16(raw []byte) string {
	words := make([]uint16, len(raw)/2)
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(raw[i*2 : i*2+2])
	}
	return string(utf16.Decode(words))
}

// unpackByteString reads a length-prefixed byte string (pre-unicode BIFF
// layout) and reports the number of bytes consumed.
func unpackByteString(data []byte, pos, lenlen int, enc encoding.Encoding) (string, int, error) {
	if pos+lenlen > len(data) {
		return "", 0, fmt.Errorf("byte string length field past end of payload")
	}
	var nchars int
	if lenlen == 1 {
		nchars = int(data[pos])
	} else {
		nchars = int(binary.LittleEndian.Uint16(data[pos : pos+2]))
	}
	pos += lenlen
	if pos+nchars > len(data) {
		nchars = len(data) - pos
	}
	return decodeBytes(data[pos:pos+nchars], enc), lenlen + nchars, nil
}

// unpackUnicodeString reads a BIFF8 unicode string: a 1- or 2-byte
// character count, an options byte, optional rich-text/phonetic headers,
// then compressed (one byte per char) or UTF-16LE character data. The
// rich-text runs and phonetic blocks trailing the characters are skipped.
// Reports the number of bytes consumed.
func unpackUnicodeString(data []byte, pos, lenlen int) (string, int, error) {
	start := pos
	if pos+lenlen > len(data) {
		return "", 0, fmt.Errorf("unicode string length field past end of payload")
	}
	var nchars int
	if lenlen == 1 {
		nchars = int(data[pos])
	} else {
		nchars = int(binary.LittleEndian.Uint16(data[pos : pos+2]))
	}
	pos += lenlen

	if pos >= len(data) {
		if nchars == 0 {
			return "", pos - start, nil
		}
		return "", 0, fmt.Errorf("unicode string options byte past end of payload")
	}
	options := data[pos]
	pos++

	var runs, phoneticSize int
	if options&0x08 != 0 { // rich text
		if pos+2 > len(data) {
			return "", 0, fmt.Errorf("unicode string rich-text header past end of payload")
		}
		runs = int(binary.LittleEndian.Uint16(data[pos : pos+2]))
		pos += 2
	}
	if options&0x04 != 0 { // phonetic
		if pos+4 > len(data) {
			return "", 0, fmt.Errorf("unicode string phonetic header past end of payload")
		}
		phoneticSize = int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		pos += 4
	}

	var str string
	if options&0x01 != 0 {
		if pos+2*nchars > len(data) {
			nchars = (len(data) - pos) / 2
		}
		str = decodeUTF16(data[pos : pos+2*nchars])
		pos += 2 * nchars
	} else {
		if pos+nchars > len(data) {
			nchars = len(data) - pos
		}
		str = decodeBytes(data[pos:pos+nchars], charmap.ISO8859_1)
		pos += nchars
	}

	pos += 4*runs + phoneticSize
	if pos > len(data) {
		pos = len(data)
	}
	return str, pos - start, nil
}
