package biff

import (
	"encoding/binary"
	"fmt"
)

// Mode controls how the stream treats a record whose declared payload
// extends past the end of the stream. The mode is fixed at construction.
type Mode int

const (
	// Strict fails with a *TruncationError.
	Strict Mode = iota
	// Loose truncates the payload to the remaining bytes and continues.
	Loose
)

// TruncationError reports a record whose declared size runs past the end
// of the stream, encountered under Strict mode.
type TruncationError struct {
	Offset    int
	ID        RecID
	Declared  int
	Remaining int
}

func (e *TruncationError) Error() string {
	return fmt.Sprintf("record 0x%04x at offset %d declares %d payload bytes but only %d remain",
		uint16(e.ID), e.Offset, e.Declared, e.Remaining)
}

// Stream is a seekable cursor over one BIFF record sequence.
// It is not safe for concurrent use.
type Stream struct {
	mem  []byte
	pos  int
	mode Mode
}

// NewStream wraps an in-memory record sequence.
func NewStream(mem []byte, mode Mode) *Stream {
	return &Stream{mem: mem, mode: mode}
}

// Size returns the total stream length in bytes.
func (s *Stream) Size() int {
	return len(s.mem)
}

// Position returns the current cursor offset.
func (s *Stream) Position() int {
	return s.pos
}

// Seek moves the cursor to an absolute offset.
func (s *Stream) Seek(offset int) {
	s.pos = offset
}

// ReadNext decodes the record at the cursor and advances by its full
// encoded size. At end of stream it returns nil, nil.
func (s *Stream) ReadNext() (*Record, error) {
	rec, err := s.decodeAt(s.pos)
	if err != nil || rec == nil {
		return nil, err
	}
	s.pos += rec.EncodedSize()
	return rec, nil
}

// ReadAt decodes the record at an arbitrary offset without disturbing the
// cursor. Past-the-end offsets return nil, nil.
func (s *Stream) ReadAt(offset int) (*Record, error) {
	return s.decodeAt(offset)
}

func (s *Stream) decodeAt(offset int) (*Record, error) {
	if offset < 0 || offset+4 > len(s.mem) {
		return nil, nil
	}
	id := RecID(binary.LittleEndian.Uint16(s.mem[offset : offset+2]))
	length := int(binary.LittleEndian.Uint16(s.mem[offset+2 : offset+4]))

	end := offset + 4 + length
	if end > len(s.mem) {
		if s.mode == Strict {
			return nil, &TruncationError{
				Offset:    offset,
				ID:        id,
				Declared:  length,
				Remaining: len(s.mem) - offset - 4,
			}
		}
		end = len(s.mem)
	}
	return &Record{
		ID:       id,
		Data:     s.mem[offset+4 : end],
		Offset:   offset,
		declared: length,
	}, nil
}
