package biff

import "testing"

// urlMonikerLE is the URL moniker CLSID in its mixed-endian on-disk form.
var urlMonikerLE = []byte{
	0xE0, 0xC9, 0xEA, 0x79, 0xF9, 0xBA, 0xCE, 0x11,
	0x8C, 0x82, 0x00, 0xAA, 0x00, 0x4B, 0xA9, 0x0B,
}

func utf16z(s string) []byte {
	out := make([]byte, 0, 2*len(s)+2)
	for _, c := range s {
		out = append(out, byte(c), byte(c>>8))
	}
	return append(out, 0, 0)
}

func hlinkPayload(flags uint32, tail []byte) []byte {
	return cat(
		u16(1), u16(2), u16(0), u16(0), // rows 1-2, col 0
		make([]byte, 16), // StdLink CLSID, ignored
		u32(2),           // stream version
		u32(flags),
		tail,
	)
}

func TestDecodeHyperlinkURL(t *testing.T) {
	target := utf16z("http://example.com/")
	payload := hlinkPayload(0x03, cat(urlMonikerLE, u32(uint32(len(target))), target))
	info, ok := DecodeHyperlink(mustRec(t, rec(RecHyperlink, payload...)))
	if !ok {
		t.Fatal("DecodeHyperlink reported no target")
	}
	if info.FirstRow != 1 || info.LastRow != 2 || info.FirstCol != 0 || info.LastCol != 0 {
		t.Errorf("range = %+v", info)
	}
	if info.Target != "http://example.com/" {
		t.Errorf("Target = %q", info.Target)
	}
}

func TestDecodeHyperlinkWithDescription(t *testing.T) {
	desc := utf16z("click here")
	target := utf16z("http://example.com/")
	tail := cat(
		u32(uint32(len(desc)/2)), desc, // description, counted in characters
		urlMonikerLE, u32(uint32(len(target))), target,
	)
	info, ok := DecodeHyperlink(mustRec(t, rec(RecHyperlink, hlinkPayload(0x17, tail)...)))
	if !ok || info.Target != "http://example.com/" {
		t.Errorf("DecodeHyperlink = %+v, %v", info, ok)
	}
}

func TestDecodeHyperlinkTextMark(t *testing.T) {
	mark := utf16z("Sheet2!A1")
	tail := cat(u32(uint32(len(mark)/2)), mark)
	info, ok := DecodeHyperlink(mustRec(t, rec(RecHyperlink, hlinkPayload(0x08, tail)...)))
	if !ok || info.Target != "#Sheet2!A1" {
		t.Errorf("DecodeHyperlink = %+v, %v", info, ok)
	}
}

func TestDecodeHyperlinkUnknownMoniker(t *testing.T) {
	tail := cat(make([]byte, 16), u32(4), []byte{1, 2, 3, 4})
	_, ok := DecodeHyperlink(mustRec(t, rec(RecHyperlink, hlinkPayload(0x01, tail)...)))
	if ok {
		t.Error("unknown moniker should carry no usable target")
	}
}
