package biff

import "testing"

// sstRecord encodes an SST record defining nunique strings, followed by
// the given body bytes.
func sstRecord(t *testing.T, nunique int, body []byte) *Record {
	t.Helper()
	return mustRec(t, rec(RecSST, cat(u32(uint32(nunique)), u32(uint32(nunique)), body)...))
}

func compressed(s string) []byte {
	return cat(u16(uint16(len(s))), []byte{0}, []byte(s))
}

func TestSSTSimple(t *testing.T) {
	body := cat(compressed("alpha"), compressed("beta"))
	b := NewSSTBuilder(sstRecord(t, 2, body))
	got := b.Materialize()
	want := []string{"alpha", "beta"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Materialize() = %q, want %q", got, want)
	}
}

func TestSSTWideCharacters(t *testing.T) {
	// "π≈3" as UTF-16LE.
	body := cat(u16(3), []byte{1}, []byte{0xC0, 0x03, 0x48, 0x22, '3', 0x00})
	b := NewSSTBuilder(sstRecord(t, 1, body))
	got := b.Materialize()
	if len(got) != 1 || got[0] != "π≈3" {
		t.Errorf("Materialize() = %q, want [π≈3]", got)
	}
}

func TestSSTContinueSplitInCharacters(t *testing.T) {
	// "little" fits in the SST record; "continued!" is split after
	// "conti" and the CONTINUE fragment restarts with a fresh options
	// byte before "nued!".
	first := cat(compressed("little"), u16(10), []byte{0}, []byte("conti"))
	b := NewSSTBuilder(sstRecord(t, 2, first))
	b.Absorb(mustRec(t, rec(RecContinue, cat([]byte{0}, []byte("nued!"))...)))

	got := b.Materialize()
	want := []string{"little", "continued!"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Materialize() = %q, want %q", got, want)
	}
}

func TestSSTContinueSplitBetweenStrings(t *testing.T) {
	// The split lands exactly on a string boundary; the next fragment
	// starts with a full string header, not a bare options byte.
	b := NewSSTBuilder(sstRecord(t, 2, compressed("one")))
	b.Absorb(mustRec(t, rec(RecContinue, compressed("two")...)))

	got := b.Materialize()
	want := []string{"one", "two"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Materialize() = %q, want %q", got, want)
	}
}

func TestSSTContinueWidthChange(t *testing.T) {
	// A string that starts compressed may continue in wide characters.
	first := cat(u16(4), []byte{0}, []byte("ab"))
	b := NewSSTBuilder(sstRecord(t, 1, first))
	b.Absorb(mustRec(t, rec(RecContinue, cat([]byte{1}, []byte{'c', 0, 'd', 0})...)))

	got := b.Materialize()
	if len(got) != 1 || got[0] != "abcd" {
		t.Errorf("Materialize() = %q, want [abcd]", got)
	}
}

func TestSSTRichTextRunsSkipped(t *testing.T) {
	// Rich-text runs trail the characters and must not bleed into the
	// next string.
	rich := cat(u16(2), []byte{0x08}, u16(1), []byte("hi"), u32(0))
	body := cat(rich, compressed("next"))
	b := NewSSTBuilder(sstRecord(t, 2, body))

	got := b.Materialize()
	want := []string{"hi", "next"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Materialize() = %q, want %q", got, want)
	}
}
