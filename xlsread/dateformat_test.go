package xlsread

import (
	"testing"
	"time"

	"github.com/wangxuesong29/exceltk/biff"
)

func TestIsDateTimePattern(t *testing.T) {
	tests := []struct {
		pattern string
		want    bool
	}{
		{"yyyy-mm-dd", true},
		{"dd/mm/yyyy hh:mm", true},
		{"h:mm:ss AM/PM", true},
		{"[h]:mm:ss", true},
		{"General", false},
		{"0.00", false},
		{"#,##0.00", false},
		{"0.00E+00", false},
		{"@", false},
		{`"Year: "yyyy`, true},
		{`"mm totally not a date"`, false},
		{"yyyy mm 0", false}, // digit placeholder wins
		{`\d0.0`, false},
		{"mmm-yy", true},
	}
	for _, tt := range tests {
		if got := IsDateTimePattern(tt.pattern); got != tt.want {
			t.Errorf("IsDateTimePattern(%q) = %v, want %v", tt.pattern, got, tt.want)
		}
	}
}

func TestSerialToTime(t *testing.T) {
	tests := []struct {
		serial   float64
		datemode int
		want     time.Time
	}{
		{41640, 0, time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)},
		{2741, 0, time.Date(1907, 7, 3, 0, 0, 0, 0, time.UTC)},
		{38406, 0, time.Date(2005, 2, 23, 0, 0, 0, 0, time.UTC)},
		{1, 0, time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)},
		{0.5, 0, time.Date(1899, 12, 31, 12, 0, 0, 0, time.UTC)},
		{41640.25, 0, time.Date(2014, 1, 1, 6, 0, 0, 0, time.UTC)},
		{0, 1, time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)},
		{366, 1, time.Date(1905, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := serialToTime(tt.serial, tt.datemode)
		if err != nil {
			t.Errorf("serialToTime(%v, %d): %v", tt.serial, tt.datemode, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("serialToTime(%v, %d) = %v, want %v", tt.serial, tt.datemode, got, tt.want)
		}
	}
}

func TestSerialToTimeNegative(t *testing.T) {
	if _, err := serialToTime(-1, 0); err == nil {
		t.Error("negative serial should fail")
	}
}

func TestClassifyBuiltins(t *testing.T) {
	g := &WorkbookGlobals{formats: map[uint16]string{
		164: "dd.mm.yyyy",
		165: "0.0%",
	}}
	tests := []struct {
		code uint16
		want formatClass
	}{
		{0, classNumber},
		{4, classNumber},
		{14, classDate},
		{22, classDate},
		{45, classDate},
		{48, classNumber},
		{49, classText},
		{58, classDate},
		{164, classDate},
		{165, classNumber},
		{200, classNumber}, // unregistered custom code
	}
	for _, tt := range tests {
		if got := g.classify(tt.code); got != tt.want {
			t.Errorf("classify(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestReclassifyText(t *testing.T) {
	g := &WorkbookGlobals{
		xfs: []biff.XFInfo{
			{Format: 0, FormatUsed: true},
			{Format: 14, FormatUsed: true},
		},
		formats: map[uint16]string{},
	}
	tests := []struct {
		name string
		in   Value
		want Value
	}{
		{
			name: "numeric text under a date format converts",
			in:   Value{Kind: KindText, Text: "41640", xf: 1},
			want: Value{Kind: KindDate, Time: time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), xf: 1},
		},
		{
			name: "numeric text under General stays text",
			in:   Value{Kind: KindText, Text: "41640", xf: 0},
			want: Value{Kind: KindText, Text: "41640", xf: 0},
		},
		{
			name: "non-numeric text stays text",
			in:   Value{Kind: KindText, Text: "hello", xf: 1},
			want: Value{Kind: KindText, Text: "hello", xf: 1},
		},
	}
	for _, tt := range tests {
		if got := g.reclassifyText(tt.in); got != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestFormatCodeOutOfRangeIndexIsTheCode(t *testing.T) {
	g := &WorkbookGlobals{formats: map[uint16]string{}}
	code, ok := g.formatCode(14)
	if !ok || code != 14 {
		t.Fatalf("formatCode(14) = %d, %v, want 14, true", code, ok)
	}
	v := g.reclassify(Value{Kind: KindNumber, Number: 41640, xf: 14})
	if v.Kind != KindDate {
		t.Fatalf("reclassify kind = %v, want %v", v.Kind, KindDate)
	}
	if want := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC); !v.Time.Equal(want) {
		t.Errorf("reclassify time = %v, want %v", v.Time, want)
	}
}
