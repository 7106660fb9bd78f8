package xlsx

import (
	"bytes"
	"io"
	"os"

	"github.com/adnsv/srw/xml"
)

// rowStream is the constant-memory backing store of a worksheet. Only
// the current row is held in memory; completed rows are serialized to
// compact XML fragments and spilled to a lazily created temporary file,
// which is read back once at assembly time and then removed.
type rowStream struct {
	sheet *Sheet
	dir   string // temp dir override, "" = system default

	tmp      *os.File
	cur      map[int]cell
	curRow   int
	started  bool
	consumed bool
}

func newRowStream(sheet *Sheet, dir string) *rowStream {
	return &rowStream{sheet: sheet, dir: dir}
}

// set stores a cell. Rows must arrive in non-decreasing order: the
// current row accepts cells at any column, a higher row flushes the
// current one, and a lower row is a row-order error because its data
// has already left memory.
func (rs *rowStream) set(row, col int, c cell) error {
	if rs.consumed {
		return ErrSheetConsumed
	}
	if !rs.started {
		rs.started = true
		rs.curRow = row
		rs.cur = map[int]cell{}
	}
	switch {
	case row == rs.curRow:
		rs.cur[col] = c
		return nil
	case row > rs.curRow:
		if err := rs.flushCurrent(); err != nil {
			return err
		}
		rs.curRow = row
		rs.cur = map[int]cell{col: c}
		return nil
	default:
		return ErrRowOrder
	}
}

func (rs *rowStream) flushCurrent() error {
	if len(rs.cur) == 0 {
		return nil
	}
	if rs.tmp == nil {
		f, err := os.CreateTemp(rs.dir, "go-xlsx-sheet-*.tmp")
		if err != nil {
			return err
		}
		rs.tmp = f
	}
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{})
	emitRow(x, rs.sheet, rs.curRow, rs.cur)
	rs.cur = nil
	_, err := rs.tmp.Write(bb.Bytes())
	return err
}

// finish flushes the pending row and reads the spilled fragments back.
func (rs *rowStream) finish() ([]byte, error) {
	if rs.consumed {
		return nil, ErrSheetConsumed
	}
	if err := rs.flushCurrent(); err != nil {
		return nil, err
	}
	if rs.tmp == nil {
		return nil, nil
	}
	if _, err := rs.tmp.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(rs.tmp)
}

// discard removes the spill file. Called unconditionally after assembly,
// success or failure; the stream can not be written or saved again.
func (rs *rowStream) discard() {
	rs.consumed = true
	if rs.tmp != nil {
		name := rs.tmp.Name()
		rs.tmp.Close()
		os.Remove(name)
		rs.tmp = nil
	}
}
