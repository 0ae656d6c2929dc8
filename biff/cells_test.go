package biff

import (
	"math"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

// mustRec decodes a single encoded record.
func mustRec(t *testing.T, mem []byte) *Record {
	t.Helper()
	r, err := NewStream(mem, Strict).ReadNext()
	if err != nil || r == nil {
		t.Fatalf("decoding test record: %v, %v", r, err)
	}
	return r
}

func f64bits(v float64) []byte {
	bits := math.Float64bits(v)
	return cat(u32(uint32(bits)), u32(uint32(bits>>32)))
}

func TestRKNumber(t *testing.T) {
	negFive := int32(-5)
	tests := []struct {
		raw  uint32
		want float64
	}{
		{uint32(100<<2) | 2, 100},
		{uint32(12345<<2) | 3, 123.45},
		{uint32(negFive<<2) | 2, -5},
		{uint32(math.Float64bits(1.5) >> 32), 1.5},
		{uint32(math.Float64bits(1.5)>>32) | 1, 0.015},
	}
	for _, tt := range tests {
		if got := RKNumber(tt.raw); got != tt.want {
			t.Errorf("RKNumber(%#x) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestDecodeRK(t *testing.T) {
	r := mustRec(t, rec(RecRK, cat(u16(3), u16(1), u16(15), u32(uint32(100<<2)|2))...))
	if got := CellRow(r); got != 3 {
		t.Errorf("CellRow = %d, want 3", got)
	}
	if got := CellCol(r); got != 1 {
		t.Errorf("CellCol = %d, want 1", got)
	}
	if got := CellXF(r); got != 15 {
		t.Errorf("CellXF = %d, want 15", got)
	}
	n, err := DecodeRK(r)
	if err != nil || n != 100 {
		t.Errorf("DecodeRK = %v, %v, want 100", n, err)
	}
}

func TestDecodeMulRK(t *testing.T) {
	payload := cat(
		u16(7), u16(2), // row 7, first col 2
		u16(11), u32(uint32(10<<2)|2),
		u16(12), u32(uint32(2050<<2)|3),
		u16(3), // last col
	)
	vals, err := DecodeMulRK(mustRec(t, rec(RecMulRK, payload...)))
	if err != nil {
		t.Fatalf("DecodeMulRK: %v", err)
	}
	want := []MulRKValue{
		{Col: 2, XF: 11, Number: 10},
		{Col: 3, XF: 12, Number: 20.5},
	}
	if len(vals) != len(want) {
		t.Fatalf("got %d values, want %d", len(vals), len(want))
	}
	for i := range want {
		if vals[i] != want[i] {
			t.Errorf("value %d = %+v, want %+v", i, vals[i], want[i])
		}
	}
}

func TestDecodeMulRKEmpty(t *testing.T) {
	vals, err := DecodeMulRK(mustRec(t, rec(RecMulRK, cat(u16(0), u16(0), u16(0))...)))
	if err != nil {
		t.Fatalf("DecodeMulRK: %v", err)
	}
	if len(vals) != 0 {
		t.Errorf("got %d values, want 0", len(vals))
	}
}

func TestDecodeNumber(t *testing.T) {
	payload := cat(u16(0), u16(0), u16(0), f64bits(3.25))
	n, err := DecodeNumber(mustRec(t, rec(RecNumber, payload...)))
	if err != nil || n != 3.25 {
		t.Errorf("DecodeNumber = %v, %v, want 3.25", n, err)
	}
}

func TestDecodeBoolErr(t *testing.T) {
	tests := []struct {
		value, flag byte
		wantVal     byte
		wantErr     bool
	}{
		{1, 0, 1, false},
		{0, 0, 0, false},
		{0x2A, 1, 0x2A, true},
	}
	for _, tt := range tests {
		payload := cat(u16(0), u16(0), u16(0), []byte{tt.value, tt.flag})
		val, isErr, err := DecodeBoolErr(mustRec(t, rec(RecBoolErr, payload...)))
		if err != nil {
			t.Fatalf("DecodeBoolErr: %v", err)
		}
		if val != tt.wantVal || isErr != tt.wantErr {
			t.Errorf("DecodeBoolErr(%d,%d) = %d, %v", tt.value, tt.flag, val, isErr)
		}
	}
}

func TestDecodeLabelSST(t *testing.T) {
	payload := cat(u16(0), u16(0), u16(0), u32(42))
	idx, err := DecodeLabelSST(mustRec(t, rec(RecLabelSST, payload...)))
	if err != nil || idx != 42 {
		t.Errorf("DecodeLabelSST = %d, %v, want 42", idx, err)
	}
}

func TestDecodeLabel(t *testing.T) {
	// BIFF8 inline label: unicode string, compressed characters.
	payload := cat(u16(0), u16(0), u16(0), u16(5), []byte{0}, []byte("hello"))
	s, err := DecodeLabel(mustRec(t, rec(RecLabel, payload...)), 80, charmap.ISO8859_1)
	if err != nil || s != "hello" {
		t.Errorf("DecodeLabel = %q, %v, want hello", s, err)
	}

	// BIFF5 layout: 2-byte length, encoded bytes.
	payload = cat(u16(0), u16(0), u16(0), u16(3), []byte("abc"))
	s, err = DecodeLabel(mustRec(t, rec(RecLabel, payload...)), 70, charmap.ISO8859_1)
	if err != nil || s != "abc" {
		t.Errorf("DecodeLabel biff5 = %q, %v, want abc", s, err)
	}
}

func TestMulBlankSpan(t *testing.T) {
	payload := cat(u16(0), u16(4), u16(0), u16(0), u16(0), u16(6))
	first, last := MulBlankSpan(mustRec(t, rec(RecMulBlank, payload...)))
	if first != 4 || last != 6 {
		t.Errorf("MulBlankSpan = %d, %d, want 4, 6", first, last)
	}
}

func TestDecodeFormulaResult(t *testing.T) {
	head := cat(u16(0), u16(0), u16(0))
	tests := []struct {
		name string
		res  []byte
		want FormulaResult
	}{
		{"number", f64bits(2.5), FormulaResult{Kind: FormulaNumber, Number: 2.5}},
		{"string", []byte{0, 0, 0, 0, 0, 0, 0xFF, 0xFF}, FormulaResult{Kind: FormulaString}},
		{"bool", []byte{1, 0, 1, 0, 0, 0, 0xFF, 0xFF}, FormulaResult{Kind: FormulaBool, Bool: true}},
		{"error", []byte{2, 0, 0x2A, 0, 0, 0, 0xFF, 0xFF}, FormulaResult{Kind: FormulaError, Err: 0x2A}},
		{"empty", []byte{3, 0, 0, 0, 0, 0, 0xFF, 0xFF}, FormulaResult{Kind: FormulaEmpty}},
	}
	for _, tt := range tests {
		res, err := DecodeFormulaResult(mustRec(t, rec(RecFormula, cat(head, tt.res)...)))
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if res != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.name, res, tt.want)
		}
	}
}

func TestDecodeInteger(t *testing.T) {
	payload := cat(u16(0), u16(0), []byte{0, 0, 0}, u16(1234))
	n, err := DecodeInteger(mustRec(t, rec(RecInteger, payload...)))
	if err != nil || n != 1234 {
		t.Errorf("DecodeInteger = %d, %v, want 1234", n, err)
	}
}
