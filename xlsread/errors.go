package xlsread

import "fmt"

// ReadError reports a structural problem that makes the workbook
// unreadable: a missing or malformed globals section, an unusable
// worksheet stream, and the like.
type ReadError struct {
	Message string
}

func (e *ReadError) Error() string {
	return e.Message
}

func newReadError(format string, args ...interface{}) *ReadError {
	return &ReadError{Message: fmt.Sprintf(format, args...)}
}

// BlockStructureError reports a worksheet whose index names a
// block-boundary address at which no block-boundary record exists. The
// index and the cell data disagree, so row addresses derived from the
// index cannot be trusted; this reader treats the condition as fatal for
// the workbook rather than silently degrading.
type BlockStructureError struct {
	Sheet string
	Addr  int
}

func (e *BlockStructureError) Error() string {
	return fmt.Sprintf("sheet %q: index addresses offset %d but no block-boundary record is there", e.Sheet, e.Addr)
}
