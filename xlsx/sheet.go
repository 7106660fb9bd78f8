package xlsx

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Sheet is one worksheet: a sparse cell grid plus row/column metadata,
// merge ranges, and registered embedded objects. Sheets are created
// through Workbook.AddSheet or Workbook.AddConstantMemorySheet; the two
// modes share this write surface, but constant-memory sheets reject
// operations that need a full-sheet view.
type Sheet struct {
	Name string

	workbook *Workbook
	index    int

	rows     map[int]*sheetRow
	rowProps map[int]*rowProperties
	colProps map[int]*colProperties

	merges     []cellRange
	autofilter *cellRange
	freeze     *freezePane

	hyperlinks []hyperlink
	images     []*imagePlacement
	charts     []*chartPlacement
	tables     []*Table

	hasDim         bool
	minRow, minCol int
	maxRow, maxCol int

	stream *rowStream // non-nil in constant-memory mode
}

type sheetRow struct {
	cells map[int]cell
}

type rowProperties struct {
	height    float64
	hidden    bool
	outline   int
	format    int
	hasFormat bool
}

type colProperties struct {
	width     float64
	hidden    bool
	outline   int
	format    int
	hasFormat bool
}

type cellRange struct {
	r1, c1, r2, c2 int
}

func (a cellRange) overlaps(b cellRange) bool {
	return a.r1 <= b.r2 && b.r1 <= a.r2 && a.c1 <= b.c2 && b.c1 <= a.c2
}

func (a cellRange) ref() string {
	return rangeRef(a.r1, a.c1, a.r2, a.c2)
}

type freezePane struct {
	row, col int
}

type hyperlink struct {
	row, col int
	url      string
	tooltip  string
}

type imagePlacement struct {
	row, col int
	img      *Image
	media    *MediaInfo
}

type chartPlacement struct {
	row, col int
	chart    *Chart
}

// setCell validates coordinates, routes the cell to the sheet's backing
// storage, and maintains the running used range. It is the single funnel
// for every typed write.
func (s *Sheet) setCell(row, col int, c cell) error {
	if err := checkCell(row, col); err != nil {
		return err
	}
	if s.stream != nil {
		if err := s.stream.set(row, col, c); err != nil {
			return err
		}
	} else {
		r, ok := s.rows[row]
		if !ok {
			r = &sheetRow{cells: map[int]cell{}}
			s.rows[row] = r
		}
		r.cells[col] = c
	}
	s.touch(row, col)
	return nil
}

// touch extends the used range; the <dimension> element is tracked
// incrementally because constant-memory sheets can not be re-scanned.
func (s *Sheet) touch(row, col int) {
	if !s.hasDim {
		s.hasDim = true
		s.minRow, s.maxRow = row, row
		s.minCol, s.maxCol = col, col
		return
	}
	if row < s.minRow {
		s.minRow = row
	}
	if row > s.maxRow {
		s.maxRow = row
	}
	if col < s.minCol {
		s.minCol = col
	}
	if col > s.maxCol {
		s.maxCol = col
	}
}

func (s *Sheet) dimensionRef() string {
	if !s.hasDim {
		return "A1"
	}
	return rangeRef(s.minRow, s.minCol, s.maxRow, s.maxCol)
}

func (s *Sheet) styleIndex(f *Format) (int, bool) {
	if f == nil {
		return 0, false
	}
	return s.workbook.formats.add(f), true
}

// WriteNumber writes a numeric cell.
func (s *Sheet) WriteNumber(row, col int, v float64, f *Format) error {
	si, has := s.styleIndex(f)
	return s.setCell(row, col, cell{typ: cellNumber, num: v, style: si, hasStyle: has})
}

// WriteString writes a string cell. The text is interned into the
// workbook-wide shared string table; byte-identical strings share one
// table entry.
func (s *Sheet) WriteString(row, col int, v string, f *Format) error {
	if err := checkCell(row, col); err != nil {
		return err
	}
	i, err := s.workbook.strings.intern(v)
	if err != nil {
		return err
	}
	si, has := s.styleIndex(f)
	return s.setCell(row, col, cell{typ: cellSharedString, sst: i, style: si, hasStyle: has})
}

// WriteRichString writes a string cell composed of multiple formatted
// runs. Rich strings always occupy a fresh shared string slot.
func (s *Sheet) WriteRichString(row, col int, runs []RichRun, f *Format) error {
	if err := checkCell(row, col); err != nil {
		return err
	}
	i, err := s.workbook.strings.internRich(runs)
	if err != nil {
		return err
	}
	si, has := s.styleIndex(f)
	return s.setCell(row, col, cell{typ: cellRichString, sst: i, style: si, hasStyle: has})
}

// WriteBool writes a boolean cell.
func (s *Sheet) WriteBool(row, col int, v bool, f *Format) error {
	si, has := s.styleIndex(f)
	return s.setCell(row, col, cell{typ: cellBool, boolVal: v, style: si, hasStyle: has})
}

// WriteFormula writes a formula cell with a cached result of 0. A
// leading "=" is stripped. Formula text is not parsed or validated.
func (s *Sheet) WriteFormula(row, col int, formula string, f *Format) error {
	return s.WriteFormulaResult(row, col, formula, "0", f)
}

// WriteFormulaResult writes a formula cell with an explicit cached
// result, for readers that do not recalculate on load.
func (s *Sheet) WriteFormulaResult(row, col int, formula, result string, f *Format) error {
	formula = strings.TrimPrefix(formula, "=")
	si, has := s.styleIndex(f)
	return s.setCell(row, col, cell{typ: cellFormula, formula: formula, cached: result, style: si, hasStyle: has})
}

// WriteDate writes a date/time as an Excel serial number in the 1900
// date system. Pair it with a date number format, or the cell displays
// as a raw number.
func (s *Sheet) WriteDate(row, col int, t time.Time, f *Format) error {
	si, has := s.styleIndex(f)
	return s.setCell(row, col, cell{typ: cellNumber, num: timeToSerial(t), style: si, hasStyle: has})
}

// WriteBlank writes a blank cell carrying a format. A blank without a
// format is indistinguishable from an unwritten cell and is skipped.
func (s *Sheet) WriteBlank(row, col int, f *Format) error {
	if f == nil {
		return checkCell(row, col)
	}
	si, has := s.styleIndex(f)
	return s.setCell(row, col, cell{typ: cellBlank, style: si, hasStyle: has})
}

// WriteError writes an error-value cell.
func (s *Sheet) WriteError(row, col int, code ErrorCode, f *Format) error {
	si, has := s.styleIndex(f)
	return s.setCell(row, col, cell{typ: cellError, errCode: string(code), style: si, hasStyle: has})
}

// WriteURL writes a hyperlinked string cell. The display text defaults
// to the URL. The link target is registered as an external relationship
// of the worksheet part.
func (s *Sheet) WriteURL(row, col int, url, text string, f *Format) error {
	if text == "" {
		text = url
	}
	if len(url) > maxCellChars {
		return ErrMaxStringLength
	}
	if err := s.WriteString(row, col, text, f); err != nil {
		return err
	}
	s.hyperlinks = append(s.hyperlinks, hyperlink{row: row, col: col, url: url})
	return nil
}

// WriteURLWithTip is WriteURL with a hover tooltip.
func (s *Sheet) WriteURLWithTip(row, col int, url, text, tip string, f *Format) error {
	if err := s.WriteURL(row, col, url, text, f); err != nil {
		return err
	}
	s.hyperlinks[len(s.hyperlinks)-1].tooltip = tip
	return nil
}

// MergeRange merges a range spanning at least two cells, writing value
// into the first cell and the shared format into the rest. Ranges may
// not overlap previously merged ranges. Validation happens before any
// cell is touched, so a failed merge leaves the sheet unchanged.
func (s *Sheet) MergeRange(row1, col1, row2, col2 int, value string, f *Format) error {
	if s.stream != nil {
		return ErrCapability
	}
	if err := checkRange(row1, col1, row2, col2); err != nil {
		return err
	}
	rng := cellRange{row1, col1, row2, col2}
	if row1 == row2 && col1 == col2 {
		return ErrMergeSingleCell
	}
	for _, m := range s.merges {
		if m.overlaps(rng) {
			return ErrMergeOverlap
		}
	}
	if err := s.WriteString(row1, col1, value, f); err != nil {
		return err
	}
	for r := row1; r <= row2; r++ {
		for c := col1; c <= col2; c++ {
			if r == row1 && c == col1 {
				continue
			}
			if err := s.WriteBlank(r, c, f); err != nil {
				return err
			}
		}
	}
	s.merges = append(s.merges, rng)
	return nil
}

func (s *Sheet) rowProp(row int) *rowProperties {
	rp, ok := s.rowProps[row]
	if !ok {
		rp = &rowProperties{}
		s.rowProps[row] = rp
	}
	return rp
}

// SetRowHeight sets a custom row height in points. In constant-memory
// mode row properties must be set before the row is flushed.
func (s *Sheet) SetRowHeight(row int, height float64) error {
	if err := checkCell(row, 0); err != nil {
		return err
	}
	s.rowProp(row).height = height
	return nil
}

// SetRowFormat sets the row default format, applied to cells in the row
// that have no explicit format.
func (s *Sheet) SetRowFormat(row int, f *Format) error {
	if err := checkCell(row, 0); err != nil {
		return err
	}
	rp := s.rowProp(row)
	rp.format = s.workbook.formats.add(f)
	rp.hasFormat = f != nil
	return nil
}

// SetRowHidden hides or shows a row.
func (s *Sheet) SetRowHidden(row int, hidden bool) error {
	if err := checkCell(row, 0); err != nil {
		return err
	}
	s.rowProp(row).hidden = hidden
	return nil
}

// SetRowOutlineLevel sets the row grouping level (0-7).
func (s *Sheet) SetRowOutlineLevel(row, level int) error {
	if err := checkCell(row, 0); err != nil {
		return err
	}
	if level < 0 || level > 7 {
		return errors.New("outline level must be 0..7")
	}
	s.rowProp(row).outline = level
	return nil
}

func (s *Sheet) colRange(first, last int) ([]*colProperties, error) {
	if err := checkCell(0, first); err != nil {
		return nil, err
	}
	if err := checkCell(0, last); err != nil {
		return nil, err
	}
	if first > last {
		return nil, ErrRangeOrder
	}
	var out []*colProperties
	for c := first; c <= last; c++ {
		cp, ok := s.colProps[c]
		if !ok {
			cp = &colProperties{width: -1}
			s.colProps[c] = cp
		}
		out = append(out, cp)
	}
	return out, nil
}

// SetColumnWidth sets a custom width, in character units, for a column
// range (inclusive, zero-indexed).
func (s *Sheet) SetColumnWidth(first, last int, width float64) error {
	cols, err := s.colRange(first, last)
	if err != nil {
		return err
	}
	for _, cp := range cols {
		cp.width = width
	}
	return nil
}

// SetColumnFormat sets the column default format, the lowest-precedence
// format source after the cell's own and the row default.
func (s *Sheet) SetColumnFormat(first, last int, f *Format) error {
	cols, err := s.colRange(first, last)
	if err != nil {
		return err
	}
	si := s.workbook.formats.add(f)
	for _, cp := range cols {
		cp.format = si
		cp.hasFormat = f != nil
	}
	return nil
}

// SetColumnHidden hides or shows a column range.
func (s *Sheet) SetColumnHidden(first, last int, hidden bool) error {
	cols, err := s.colRange(first, last)
	if err != nil {
		return err
	}
	for _, cp := range cols {
		cp.hidden = hidden
	}
	return nil
}

// SetColumnOutlineLevel sets the column grouping level (0-7).
func (s *Sheet) SetColumnOutlineLevel(first, last, level int) error {
	if level < 0 || level > 7 {
		return errors.New("outline level must be 0..7")
	}
	cols, err := s.colRange(first, last)
	if err != nil {
		return err
	}
	for _, cp := range cols {
		cp.outline = level
	}
	return nil
}

// Autofilter sets the sheet autofilter range and registers the hidden
// _xlnm._FilterDatabase defined name Excel expects alongside it.
func (s *Sheet) Autofilter(row1, col1, row2, col2 int) error {
	if s.stream != nil {
		return ErrCapability
	}
	if err := checkRange(row1, col1, row2, col2); err != nil {
		return err
	}
	s.autofilter = &cellRange{row1, col1, row2, col2}
	return nil
}

// FreezePanes freezes all rows above row and all columns left of col.
func (s *Sheet) FreezePanes(row, col int) error {
	if err := checkCell(row, col); err != nil {
		return err
	}
	s.freeze = &freezePane{row: row, col: col}
	return nil
}

// InsertImage anchors an image with its top-left corner at (row, col).
// Byte-identical image data is stored once in the package; each
// placement still gets its own relationship entry.
func (s *Sheet) InsertImage(row, col int, img *Image) error {
	if s.stream != nil {
		return ErrCapability
	}
	if err := checkCell(row, col); err != nil {
		return err
	}
	if img == nil || len(img.blob) == 0 {
		return ErrUnsupportedImage
	}
	m := s.workbook.media.add(img.blob, img.format, img.contentType())
	s.images = append(s.images, &imagePlacement{row: row, col: col, img: img, media: m})
	return nil
}

// InsertChart anchors a chart with its top-left corner at (row, col).
func (s *Sheet) InsertChart(row, col int, ch *Chart) error {
	if s.stream != nil {
		return ErrCapability
	}
	if err := checkCell(row, col); err != nil {
		return err
	}
	if ch == nil || len(ch.Series) == 0 {
		return errors.New("chart has no series")
	}
	s.charts = append(s.charts, &chartPlacement{row: row, col: col, chart: ch})
	return nil
}

// AddTable declares a worksheet table over the given range. The first
// row is the header row; columns supplies its captions and defaults to
// Column1..N. Header captions are written into the sheet as strings.
func (s *Sheet) AddTable(row1, col1, row2, col2 int, columns []string) (*Table, error) {
	if s.stream != nil {
		return nil, ErrCapability
	}
	if err := checkRange(row1, col1, row2, col2); err != nil {
		return nil, err
	}
	if row2 == row1 {
		return nil, errors.New("table range needs a data row below the header row")
	}
	ncols := col2 - col1 + 1
	if columns == nil {
		for i := 0; i < ncols; i++ {
			columns = append(columns, "Column"+strconv.Itoa(i+1))
		}
	}
	if len(columns) != ncols {
		return nil, errors.New("table column count does not match the range width")
	}
	// Caption writes below must not be able to fail halfway through.
	for _, name := range columns {
		if len([]rune(name)) > maxCellChars {
			return nil, ErrMaxStringLength
		}
	}
	s.workbook.nextTableID++
	t := &Table{
		Name:    "Table" + strconv.Itoa(s.workbook.nextTableID),
		id:      s.workbook.nextTableID,
		rng:     cellRange{row1, col1, row2, col2},
		columns: append([]string(nil), columns...),
	}
	for i, name := range t.columns {
		if err := s.WriteString(row1, col1+i, name, nil); err != nil {
			return nil, err
		}
	}
	s.tables = append(s.tables, t)
	return t, nil
}

// Table is a declared worksheet table region.
type Table struct {
	Name string

	id      int
	rng     cellRange
	columns []string
}
