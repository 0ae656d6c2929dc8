package xlsread

import (
	"strconv"
	"time"

	"github.com/metakeule/fmtdate"
)

// Kind discriminates the variants a decoded cell value may take.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindBool
	KindNumber
	KindText
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindDate:
		return "date"
	}
	return "unknown"
}

// Value is one decoded cell. Exactly one of Bool, Number, Text and Time
// is meaningful, selected by Kind; a KindEmpty value carries none of
// them. Hyperlink is set independently when the cell lies inside a
// hyperlink record's range.
type Value struct {
	Kind      Kind
	Bool      bool
	Number    float64
	Text      string
	Time      time.Time
	Hyperlink string

	xf int
}

// IsEmpty reports whether the cell decoded to no value at all.
func (v Value) IsEmpty() bool {
	return v.Kind == KindEmpty
}

// String renders the value for display. Dates use an ISO layout,
// dropping the time-of-day part when it is midnight.
func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindText:
		return v.Text
	case KindDate:
		if v.Time.Hour() == 0 && v.Time.Minute() == 0 && v.Time.Second() == 0 {
			return fmtdate.Format("YYYY-MM-DD", v.Time)
		}
		return fmtdate.Format("YYYY-MM-DD hh:mm:ss", v.Time)
	}
	return ""
}

// FormatDate renders a KindDate value with the given fmtdate layout;
// other kinds fall back to String.
func (v Value) FormatDate(layout string) string {
	if v.Kind != KindDate {
		return v.String()
	}
	return fmtdate.Format(layout, v.Time)
}
