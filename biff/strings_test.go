package biff

import "testing"

func TestEncodingForCodepage(t *testing.T) {
	tests := []struct {
		codepage int
		sample   []byte
		want     string
	}{
		{1252, []byte{0xE9}, "é"},
		{1251, []byte{0xC4}, "Д"},
		{932, []byte{0x82, 0xA0}, "あ"},
		{936, []byte{0xD6, 0xD0}, "中"},
		{949, []byte{0xB0, 0xA1}, "가"},
		{950, []byte{0xA4, 0xA4}, "中"},
	}
	for _, tt := range tests {
		enc, ok := EncodingForCodepage(tt.codepage)
		if !ok {
			t.Errorf("EncodingForCodepage(%d) not found", tt.codepage)
			continue
		}
		if got := decodeBytes(tt.sample, enc); got != tt.want {
			t.Errorf("codepage %d: decoded %q, want %q", tt.codepage, got, tt.want)
		}
	}
}

func TestEncodingForCodepageUnknown(t *testing.T) {
	if _, ok := EncodingForCodepage(54321); ok {
		t.Error("EncodingForCodepage(54321) should not resolve")
	}
}

func TestUnpackByteString(t *testing.T) {
	// Latin-1 "héllo" is 5 bytes with é as 0xE9.
	data := cat([]byte{0, 0}, []byte{5}, []byte{'h', 0xE9, 'l', 'l', 'o'})
	s, n, err := unpackByteString(data, 2, 1, DefaultEncoding)
	if err != nil {
		t.Fatalf("unpackByteString: %v", err)
	}
	if s != "héllo" || n != 6 {
		t.Errorf("unpackByteString = %q, %d", s, n)
	}
}

func TestUnpackUnicodeString(t *testing.T) {
	// Compressed.
	data := cat(u16(3), []byte{0}, []byte("abc"))
	s, n, err := unpackUnicodeString(data, 0, 2)
	if err != nil || s != "abc" || n != 6 {
		t.Errorf("compressed = %q, %d, %v", s, n, err)
	}

	// Wide.
	data = cat(u16(2), []byte{1}, []byte{0x42, 0x30, 0x44, 0x30}) // あい
	s, _, err = unpackUnicodeString(data, 0, 2)
	if err != nil || s != "あい" {
		t.Errorf("wide = %q, %v", s, err)
	}

	// Rich-text runs are skipped over.
	data = cat(u16(2), []byte{0x08}, u16(1), []byte("hi"), u32(0))
	s, n, err = unpackUnicodeString(data, 0, 2)
	if err != nil || s != "hi" {
		t.Errorf("rich = %q, %v", s, err)
	}
	if n != len(data) {
		t.Errorf("rich consumed %d bytes, want %d", n, len(data))
	}
}
