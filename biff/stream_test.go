package biff

import (
	"encoding/binary"
	"errors"
	"testing"
)

// rec encodes one record: 4-byte header plus payload.
func rec(id RecID, payload ...byte) []byte {
	out := make([]byte, 4, 4+len(payload))
	binary.LittleEndian.PutUint16(out[0:2], uint16(id))
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(payload)))
	return append(out, payload...)
}

func cat(chunks ...[]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func u16(v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return b[:]
}

func u32(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func TestReadNextIterates(t *testing.T) {
	mem := cat(
		rec(RecDateMode, 1, 0),
		rec(RecEOF),
	)
	s := NewStream(mem, Strict)

	r1, err := s.ReadNext()
	if err != nil || r1 == nil {
		t.Fatalf("first ReadNext: %v, %v", r1, err)
	}
	if r1.ID != RecDateMode || len(r1.Data) != 2 || r1.Offset != 0 {
		t.Errorf("first record = %+v", r1)
	}

	r2, err := s.ReadNext()
	if err != nil || r2 == nil {
		t.Fatalf("second ReadNext: %v, %v", r2, err)
	}
	if r2.ID != RecEOF || r2.Offset != 6 {
		t.Errorf("second record = %+v", r2)
	}

	r3, err := s.ReadNext()
	if r3 != nil || err != nil {
		t.Errorf("at end got %v, %v, want nil, nil", r3, err)
	}
}

func TestReadAtKeepsCursor(t *testing.T) {
	mem := cat(rec(RecDateMode, 1, 0), rec(RecEOF))
	s := NewStream(mem, Strict)

	r, err := s.ReadAt(6)
	if err != nil || r == nil || r.ID != RecEOF {
		t.Fatalf("ReadAt(6) = %v, %v", r, err)
	}
	if s.Position() != 0 {
		t.Errorf("Position() = %d after ReadAt, want 0", s.Position())
	}
}

func TestStrictTruncation(t *testing.T) {
	// Declares 8 payload bytes, carries 2.
	mem := cat(u16(uint16(RecNumber)), u16(8), []byte{1, 2})
	s := NewStream(mem, Strict)

	_, err := s.ReadNext()
	var te *TruncationError
	if !errors.As(err, &te) {
		t.Fatalf("ReadNext error = %v, want *TruncationError", err)
	}
	if te.ID != RecNumber || te.Declared != 8 || te.Remaining != 2 || te.Offset != 0 {
		t.Errorf("TruncationError = %+v", te)
	}
}

func TestLooseTruncation(t *testing.T) {
	mem := cat(u16(uint16(RecNumber)), u16(8), []byte{1, 2})
	s := NewStream(mem, Loose)

	r, err := s.ReadNext()
	if err != nil || r == nil {
		t.Fatalf("ReadNext: %v, %v", r, err)
	}
	if len(r.Data) != 2 {
		t.Errorf("len(Data) = %d, want truncated 2", len(r.Data))
	}
	if r.EncodedSize() != 12 {
		t.Errorf("EncodedSize() = %d, want declared 12", r.EncodedSize())
	}
}

func TestSeek(t *testing.T) {
	mem := cat(rec(RecDateMode, 0, 0), rec(RecEOF))
	s := NewStream(mem, Strict)
	s.Seek(6)
	r, err := s.ReadNext()
	if err != nil || r == nil || r.ID != RecEOF {
		t.Fatalf("after Seek(6), ReadNext = %v, %v", r, err)
	}
}
