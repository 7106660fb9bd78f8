package xlsx

// Font represents font formatting properties for cell content, matching
// the OpenXML font element. The zero value is the workbook default
// (Calibri 11, black).
type Font struct {
	Name          string
	Size          float64 // points, 0 = default of 11
	Bold          bool
	Italic        bool
	Underline     UnderlineType
	Strikethrough bool
	Color         string // RGB hex, e.g. "FF0000"; "" = automatic
}

// UnderlineType represents the type of underline formatting
// (ST_UnderlineValues).
type UnderlineType string

const (
	UnderlineNone             UnderlineType = ""
	UnderlineSingle           UnderlineType = "single"
	UnderlineDouble           UnderlineType = "double"
	UnderlineSingleAccounting UnderlineType = "singleAccounting"
	UnderlineDoubleAccounting UnderlineType = "doubleAccounting"
)

// IsDefault returns true if the font uses all default properties.
func (f *Font) IsDefault() bool {
	return *f == Font{}
}

// PatternType is a cell fill pattern (ST_PatternType).
type PatternType string

const (
	PatternNone       PatternType = ""
	PatternSolid      PatternType = "solid"
	PatternGray125    PatternType = "gray125"
	PatternLightGray  PatternType = "lightGray"
	PatternMediumGray PatternType = "mediumGray"
	PatternDarkGray   PatternType = "darkGray"
)

// Fill describes the cell background.
type Fill struct {
	Pattern    PatternType
	Foreground string // RGB hex
	Background string // RGB hex
}

// BorderStyle is a cell border line style (ST_BorderStyle).
type BorderStyle string

const (
	BorderNone   BorderStyle = ""
	BorderThin   BorderStyle = "thin"
	BorderMedium BorderStyle = "medium"
	BorderThick  BorderStyle = "thick"
	BorderDashed BorderStyle = "dashed"
	BorderDotted BorderStyle = "dotted"
	BorderDouble BorderStyle = "double"
	BorderHair   BorderStyle = "hair"
)

// BorderEdge is one side of a cell border.
type BorderEdge struct {
	Style BorderStyle
	Color string // RGB hex
}

// Border holds the four cell border sides.
type Border struct {
	Left   BorderEdge
	Right  BorderEdge
	Top    BorderEdge
	Bottom BorderEdge
}

// HAlign is a horizontal alignment value.
type HAlign string

const (
	HAlignDefault HAlign = ""
	HAlignLeft    HAlign = "left"
	HAlignCenter  HAlign = "center"
	HAlignRight   HAlign = "right"
	HAlignFill    HAlign = "fill"
	HAlignJustify HAlign = "justify"
)

// VAlign is a vertical alignment value.
type VAlign string

const (
	VAlignDefault VAlign = "" // bottom
	VAlignTop     VAlign = "top"
	VAlignCenter  VAlign = "center"
	VAlignBottom  VAlign = "bottom"
	VAlignJustify VAlign = "justify"
)

// Alignment describes cell content placement.
type Alignment struct {
	Horizontal HAlign
	Vertical   VAlign
	Rotation   int // degrees, -90..90
	Indent     int
	Wrap       bool
	Shrink     bool
}

func (a *Alignment) isDefault() bool {
	return *a == Alignment{}
}

// Format is a complete cell format descriptor. Formats are plain values;
// two independently constructed but equal descriptors collapse to one
// style table entry. The zero value is the default format at style
// index 0.
type Format struct {
	Font   Font
	Fill   Fill
	Border Border
	Align  Alignment

	// NumFormat is a number format code. Codes matching a builtin
	// pattern resolve to the builtin id; others get a custom id above
	// the reserved 0-163 range.
	NumFormat string

	// Protection flags, effective only on protected sheets. Cells are
	// locked by default, hence the inverted field.
	Unlocked bool
	Hidden   bool
}

// firstCustomNumFmtID is the first number format id above Excel's
// reserved builtin range.
const firstCustomNumFmtID = 164

// builtinNumFmtIDs maps builtin format codes back to their reserved ids,
// so a user-supplied code identical to a builtin pattern does not burn a
// custom slot.
var builtinNumFmtIDs = map[string]int{
	"General":                  0,
	"0":                        1,
	"0.00":                     2,
	"#,##0":                    3,
	"#,##0.00":                 4,
	"0%":                       9,
	"0.00%":                    10,
	"0.00E+00":                 11,
	"# ?/?":                    12,
	"# ??/??":                  13,
	"mm-dd-yy":                 14,
	"d-mmm-yy":                 15,
	"d-mmm":                    16,
	"mmm-yy":                   17,
	"h:mm AM/PM":               18,
	"h:mm:ss AM/PM":            19,
	"h:mm":                     20,
	"h:mm:ss":                  21,
	"m/d/yy h:mm":              22,
	"#,##0 ;(#,##0)":           37,
	"#,##0 ;[Red](#,##0)":      38,
	"#,##0.00;(#,##0.00)":      39,
	"#,##0.00;[Red](#,##0.00)": 40,
	"mm:ss":                    45,
	"[h]:mm:ss":                46,
	"mmss.0":                   47,
	"##0.0E+0":                 48,
	"@":                        49,
}

// numFmt is one custom number format slot.
type numFmt struct {
	id   int
	code string
}

// xfRecord is one resolved cellXfs entry: the format's sub-records
// replaced by their table ids.
type xfRecord struct {
	numFmtID int
	fontID   int
	fillID   int
	borderID int
	align    Alignment
	unlocked bool
	hidden   bool
}

// formatTable deduplicates Format descriptors into a compact ordinal
// table. Index 0 is always the default format; fills 0 and 1 are the
// fixed none/gray125 entries Excel expects.
type formatTable struct {
	xfs     []xfRecord
	xfIndex map[Format]int

	fonts     []Font
	fontIndex map[Font]int

	fills     []Fill
	fillIndex map[Fill]int

	borders     []Border
	borderIndex map[Border]int

	numFmts     []numFmt
	numFmtIndex map[string]int // custom code -> id
}

func newFormatTable() *formatTable {
	t := &formatTable{
		xfIndex:     map[Format]int{},
		fontIndex:   map[Font]int{},
		fillIndex:   map[Fill]int{},
		borderIndex: map[Border]int{},
		numFmtIndex: map[string]int{},
	}
	t.fonts = append(t.fonts, Font{})
	t.fontIndex[Font{}] = 0
	t.fills = append(t.fills, Fill{}, Fill{Pattern: PatternGray125})
	t.fillIndex[Fill{}] = 0
	t.fillIndex[Fill{Pattern: PatternGray125}] = 1
	t.borders = append(t.borders, Border{})
	t.borderIndex[Border{}] = 0
	t.xfs = append(t.xfs, xfRecord{})
	t.xfIndex[Format{}] = 0
	return t
}

// add interns f and returns its style index. A nil format is the default
// format at index 0.
func (t *formatTable) add(f *Format) int {
	if f == nil {
		return 0
	}
	if i, ok := t.xfIndex[*f]; ok {
		return i
	}
	rec := xfRecord{
		numFmtID: t.numFormatID(f.NumFormat),
		fontID:   t.fontID(f.Font),
		fillID:   t.fillID(f.Fill),
		borderID: t.borderID(f.Border),
		align:    f.Align,
		unlocked: f.Unlocked,
		hidden:   f.Hidden,
	}
	i := len(t.xfs)
	t.xfs = append(t.xfs, rec)
	t.xfIndex[*f] = i
	return i
}

// numFormatID resolves a format code to a builtin id or a stable custom
// id at or above firstCustomNumFmtID. Identical codes share one id.
func (t *formatTable) numFormatID(code string) int {
	if code == "" {
		return 0
	}
	if id, ok := builtinNumFmtIDs[code]; ok {
		return id
	}
	if id, ok := t.numFmtIndex[code]; ok {
		return id
	}
	id := firstCustomNumFmtID + len(t.numFmts)
	t.numFmts = append(t.numFmts, numFmt{id: id, code: code})
	t.numFmtIndex[code] = id
	return id
}

func (t *formatTable) fontID(f Font) int {
	if i, ok := t.fontIndex[f]; ok {
		return i
	}
	i := len(t.fonts)
	t.fonts = append(t.fonts, f)
	t.fontIndex[f] = i
	return i
}

func (t *formatTable) fillID(f Fill) int {
	if i, ok := t.fillIndex[f]; ok {
		return i
	}
	i := len(t.fills)
	t.fills = append(t.fills, f)
	t.fillIndex[f] = i
	return i
}

func (t *formatTable) borderID(b Border) int {
	if i, ok := t.borderIndex[b]; ok {
		return i
	}
	i := len(t.borders)
	t.borders = append(t.borders, b)
	t.borderIndex[b] = i
	return i
}

// freeze produces the lookup-only view the styles serializer consumes.
func (t *formatTable) freeze() *frozenFormats {
	return &frozenFormats{
		xfs:     t.xfs,
		fonts:   t.fonts,
		fills:   t.fills,
		borders: t.borders,
		numFmts: t.numFmts,
	}
}

type frozenFormats struct {
	xfs     []xfRecord
	fonts   []Font
	fills   []Fill
	borders []Border
	numFmts []numFmt
}

func (ff *frozenFormats) len() int { return len(ff.xfs) }

func (ff *frozenFormats) at(i int) xfRecord {
	if i < 0 || i >= len(ff.xfs) {
		// Style indices originate from add() only; see frozenStrings.at.
		panic("xlsx: style index out of range")
	}
	return ff.xfs[i]
}
