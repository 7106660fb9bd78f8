package xlsx

import (
	"strconv"
	"time"
)

// Worksheet bounds. Rows and columns in the public API are zero-indexed;
// the maximum addressable cell is (MaxRow-1, MaxCol-1), i.e. XFD1048576.
const (
	MaxRow = 1048576
	MaxCol = 16384

	maxCellChars = 32767
)

type cellType int

const (
	cellBlank cellType = iota
	cellNumber
	cellSharedString
	cellRichString
	cellBool
	cellFormula
	cellError
)

// cell is one entry in a worksheet's sparse grid. Exactly one of the value
// fields is meaningful, selected by typ. style is an index into the
// workbook's format table; 0 is the default format.
type cell struct {
	typ      cellType
	style    int
	hasStyle bool // explicit format, even when style == 0
	num      float64
	sst      int // shared/rich string table index
	boolVal  bool
	formula  string
	cached   string // cached formula result
	errCode  string
}

// ErrorCode is a cell error literal as defined by the sheet schema.
type ErrorCode string

const (
	ErrorDiv0  ErrorCode = "#DIV/0!"
	ErrorNA    ErrorCode = "#N/A"
	ErrorName  ErrorCode = "#NAME?"
	ErrorNull  ErrorCode = "#NULL!"
	ErrorNum   ErrorCode = "#NUM!"
	ErrorRef   ErrorCode = "#REF!"
	ErrorValue ErrorCode = "#VALUE!"
)

// ColumnNumberAsLetters converts a 1-based column number to its A1-style
// letter form (1 -> "A", 27 -> "AA").
func ColumnNumberAsLetters(n int) string {
	if n < 1 {
		panic("invalid column number")
	}
	var s string
	for n > 0 {
		s = string(rune((n-1)%26+65)) + s
		n = (n - 1) / 26
	}
	return s
}

// CellCoordAsString converts 1-based column and row numbers to an A1-style
// reference.
func CellCoordAsString(col, row int) string {
	if row < 0 {
		panic("invalid row number")
	}
	return ColumnNumberAsLetters(col) + strconv.Itoa(row)
}

// cellRef renders a zero-indexed (row, col) pair as an A1 reference.
func cellRef(row, col int) string {
	return CellCoordAsString(col+1, row+1)
}

// absCellRef renders a zero-indexed (row, col) pair as an absolute $A$1
// reference, used in defined-name formulas.
func absCellRef(row, col int) string {
	return "$" + ColumnNumberAsLetters(col+1) + "$" + strconv.Itoa(row+1)
}

// rangeRef renders a zero-indexed cell range as A1:B2, collapsing to a
// single reference when the range is one cell.
func rangeRef(row1, col1, row2, col2 int) string {
	first := cellRef(row1, col1)
	last := cellRef(row2, col2)
	if first == last {
		return first
	}
	return first + ":" + last
}

func checkCell(row, col int) error {
	if row < 0 || row >= MaxRow || col < 0 || col >= MaxCol {
		return ErrRowColumnLimit
	}
	return nil
}

func checkRange(row1, col1, row2, col2 int) error {
	if err := checkCell(row1, col1); err != nil {
		return err
	}
	if err := checkCell(row2, col2); err != nil {
		return err
	}
	if row1 > row2 || col1 > col2 {
		return ErrRangeOrder
	}
	return nil
}

// formatFloat renders a float the way sheet XML expects: shortest exact
// decimal form, no exponent for typical magnitudes.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// excelEpoch is day zero of the 1900 date system.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// timeToSerial converts a time to an Excel serial date number in the 1900
// date system. The historical Lotus leap-year quirk for serials below 60
// is not compensated; dates from March 1900 on are exact.
func timeToSerial(t time.Time) float64 {
	return t.Sub(excelEpoch).Hours() / 24
}
