package xlsx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSheet(t *testing.T) *Sheet {
	t.Helper()
	wb := NewWorkbook()
	sh, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)
	return sh
}

func TestWriteBounds(t *testing.T) {
	sh := newTestSheet(t)

	assert.NoError(t, sh.WriteNumber(0, 0, 1, nil))
	assert.NoError(t, sh.WriteNumber(MaxRow-1, MaxCol-1, 1, nil), "last cell is addressable")

	assert.ErrorIs(t, sh.WriteNumber(MaxRow, 0, 1, nil), ErrRowColumnLimit)
	assert.ErrorIs(t, sh.WriteNumber(0, MaxCol, 1, nil), ErrRowColumnLimit)
	assert.ErrorIs(t, sh.WriteNumber(-1, 0, 1, nil), ErrRowColumnLimit)
}

func TestRangeOrderValidation(t *testing.T) {
	sh := newTestSheet(t)

	assert.ErrorIs(t, sh.MergeRange(5, 0, 3, 2, "x", nil), ErrRangeOrder)
	assert.ErrorIs(t, sh.Autofilter(0, 3, 0, 1), ErrRangeOrder)
	assert.ErrorIs(t, sh.SetColumnWidth(4, 2, 10), ErrRangeOrder)
}

func TestMergeRangeValidation(t *testing.T) {
	sh := newTestSheet(t)

	require.NoError(t, sh.MergeRange(0, 0, 1, 2, "a", nil))

	err := sh.MergeRange(1, 2, 3, 4, "b", nil)
	assert.ErrorIs(t, err, ErrMergeOverlap, "ranges sharing one cell may not both merge")
	assert.Len(t, sh.merges, 1, "failed merge leaves the sheet unchanged")

	assert.NoError(t, sh.MergeRange(2, 3, 3, 4, "c", nil), "disjoint range merges fine")
	assert.ErrorIs(t, sh.MergeRange(9, 9, 9, 9, "d", nil), ErrMergeSingleCell)
}

func TestUsedRangeTracking(t *testing.T) {
	sh := newTestSheet(t)
	assert.Equal(t, "A1", sh.dimensionRef(), "empty sheet still declares a dimension")

	require.NoError(t, sh.WriteNumber(4, 2, 1, nil))
	assert.Equal(t, "C5", sh.dimensionRef())

	require.NoError(t, sh.WriteString(1, 0, "x", nil))
	require.NoError(t, sh.WriteBool(9, 5, true, nil))
	assert.Equal(t, "A2:F10", sh.dimensionRef())
}

func TestCellOverwrite(t *testing.T) {
	sh := newTestSheet(t)

	require.NoError(t, sh.WriteNumber(0, 0, 1, nil))
	require.NoError(t, sh.WriteString(0, 0, "later", nil))

	c := sh.rows[0].cells[0]
	assert.Equal(t, cellSharedString, c.typ, "later write at the same coordinate wins")
}

func TestStylePrecedence(t *testing.T) {
	wb := NewWorkbook()
	sh, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)

	rowFmt := &Format{Font: Font{Bold: true}}
	colFmt := &Format{Font: Font{Italic: true}}
	cellFmt := &Format{Font: Font{Size: 20}}

	require.NoError(t, sh.SetRowFormat(1, rowFmt))
	require.NoError(t, sh.SetColumnFormat(1, 1, colFmt))

	require.NoError(t, sh.WriteNumber(1, 1, 1, cellFmt))
	require.NoError(t, sh.WriteNumber(1, 2, 2, nil))
	require.NoError(t, sh.WriteNumber(3, 1, 3, nil))
	require.NoError(t, sh.WriteNumber(3, 3, 4, nil))

	cellIdx := wb.formats.add(cellFmt)
	rowIdx := wb.formats.add(rowFmt)
	colIdx := wb.formats.add(colFmt)

	assert.Equal(t, cellIdx, sh.resolveStyle(sh.rows[1].cells[1], 1, 1), "cell format wins")
	assert.Equal(t, rowIdx, sh.resolveStyle(sh.rows[1].cells[2], 1, 2), "row format beats column")
	assert.Equal(t, colIdx, sh.resolveStyle(sh.rows[3].cells[1], 3, 1), "column format is the fallback")
	assert.Equal(t, 0, sh.resolveStyle(sh.rows[3].cells[3], 3, 3))
}

func TestWriteDateSerial(t *testing.T) {
	sh := newTestSheet(t)

	// 2008-02-28 is serial 39506 in the 1900 date system.
	d := time.Date(2008, time.February, 28, 0, 0, 0, 0, time.UTC)
	require.NoError(t, sh.WriteDate(0, 0, d, &Format{NumFormat: "mm-dd-yy"}))
	assert.InDelta(t, 39506.0, sh.rows[0].cells[0].num, 1e-9)

	noon := time.Date(2008, time.February, 28, 12, 0, 0, 0, time.UTC)
	require.NoError(t, sh.WriteDate(0, 1, noon, nil))
	assert.InDelta(t, 39506.5, sh.rows[0].cells[1].num, 1e-9)
}

func TestFormulaNormalization(t *testing.T) {
	sh := newTestSheet(t)

	require.NoError(t, sh.WriteFormula(0, 0, "=SUM(A2:A9)", nil))
	assert.Equal(t, "SUM(A2:A9)", sh.rows[0].cells[0].formula, "leading = is stripped")
	assert.Equal(t, "0", sh.rows[0].cells[0].cached)

	require.NoError(t, sh.WriteFormulaResult(0, 1, "1+1", "2", nil))
	assert.Equal(t, "2", sh.rows[0].cells[1].cached)
}

func TestSheetNameValidation(t *testing.T) {
	wb := NewWorkbook()

	_, err := wb.AddSheet("Data")
	require.NoError(t, err)

	_, err = wb.AddSheet("data")
	assert.ErrorIs(t, err, ErrDuplicateName, "names are unique case-insensitively")

	for _, bad := range []string{"", "with:colon", "a[b]", "'quoted'", "0123456789012345678901234567890X"} {
		_, err = wb.AddSheet(bad)
		assert.Error(t, err, "name %q", bad)
	}
}

func TestColumnLetters(t *testing.T) {
	assert.Equal(t, "A", ColumnNumberAsLetters(1))
	assert.Equal(t, "Z", ColumnNumberAsLetters(26))
	assert.Equal(t, "AA", ColumnNumberAsLetters(27))
	assert.Equal(t, "XFD", ColumnNumberAsLetters(MaxCol))
	assert.Equal(t, "B3", cellRef(2, 1))
	assert.Equal(t, "A1:C5", rangeRef(0, 0, 4, 2))
	assert.Equal(t, "D4", rangeRef(3, 3, 3, 3))
}
