package xlsx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// DocProperties are the document metadata written to docProps/core.xml
// and docProps/app.xml. Created defaults to the workbook construction
// time; set it explicitly for reproducible output.
type DocProperties struct {
	Title    string
	Subject  string
	Author   string
	Manager  string
	Company  string
	Category string
	Keywords string
	Comments string
	Status   string
	Created  time.Time
}

type definedName struct {
	name    string
	formula string
}

// Workbook is the root of the data model: the ordered sheet list (tab
// order), the workbook-wide shared string and style tables, defined
// names, and document properties. All mutation happens through the
// builder surface before a save; saving freezes the shared tables and
// assembles the package.
type Workbook struct {
	AppName string
	Props   DocProperties

	// TempDir overrides the directory for constant-memory spill files.
	// Empty means the system temp dir.
	TempDir string

	Sheets []*Sheet

	sheetMap     map[string]*Sheet // keyed by lower-cased name
	strings      *sharedStrings
	formats      *formatTable
	media        *mediaRegistry
	definedNames []definedName
	definedSet   map[string]bool
	activeSheet  int
	nextTableID  int
}

// NewWorkbook creates an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{
		Props:      DocProperties{Created: time.Now().UTC()},
		sheetMap:   map[string]*Sheet{},
		strings:    newSharedStrings(),
		formats:    newFormatTable(),
		media:      newMediaRegistry(),
		definedSet: map[string]bool{},
	}
}

// AddSheet appends a standard-mode worksheet, which retains all cells in
// memory until save time and supports arbitrary write order.
func (wb *Workbook) AddSheet(name string) (*Sheet, error) {
	return wb.addSheet(name, false)
}

// AddConstantMemorySheet appends a worksheet that spills each completed
// row to a temporary file instead of retaining it. Rows must be written
// in non-decreasing order, and operations needing a full-sheet view
// (merges, autofilter, images, charts, tables) return ErrCapability.
func (wb *Workbook) AddConstantMemorySheet(name string) (*Sheet, error) {
	return wb.addSheet(name, true)
}

func (wb *Workbook) addSheet(name string, constant bool) (*Sheet, error) {
	if _, exists := wb.sheetMap[strings.ToLower(name)]; exists {
		return nil, fmt.Errorf("%w: sheet '%s'", ErrDuplicateName, name)
	}
	if err := validateSheetName(name); err != nil {
		return nil, err
	}

	sheet := &Sheet{
		workbook: wb,
		Name:     name,
		index:    len(wb.Sheets),
		rows:     map[int]*sheetRow{},
		rowProps: map[int]*rowProperties{},
		colProps: map[int]*colProperties{},
	}
	if constant {
		sheet.stream = newRowStream(sheet, wb.TempDir)
	}

	wb.Sheets = append(wb.Sheets, sheet)
	wb.sheetMap[strings.ToLower(name)] = sheet

	return sheet, nil
}

func validateSheetName(s string) error {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return errors.New("empty sheet name is not allowed")
	} else if n > 31 {
		return errors.New("the sheet name is too long")
	}
	if strings.HasPrefix(s, "'") || strings.HasSuffix(s, "'") {
		return errors.New("the first or last character of the sheet name can not be a single quote")
	}
	if strings.ContainsAny(s, ":\\/?*[]") {
		return errors.New("the sheet can not contain any of the characters :\\/?*[]")
	}
	return nil
}

// DefineName registers a workbook-level defined name for a formula or
// range, e.g. DefineName("Rates", "Sheet1!$B$2:$B$10").
func (wb *Workbook) DefineName(name, formula string) error {
	if name == "" {
		return errors.New("empty defined name is not allowed")
	}
	key := strings.ToLower(name)
	if wb.definedSet[key] {
		return fmt.Errorf("%w: defined name '%s'", ErrDuplicateName, name)
	}
	wb.definedSet[key] = true
	wb.definedNames = append(wb.definedNames, definedName{name: name, formula: formula})
	return nil
}

// SetActiveSheet selects the sheet shown when the file opens.
func (wb *Workbook) SetActiveSheet(index int) error {
	if index < 0 || index >= len(wb.Sheets) {
		return errors.New("sheet index out of range")
	}
	wb.activeSheet = index
	return nil
}

// SaveToStorage assembles the package into an arbitrary Storage backend.
// Unlike SaveTo it performs no finalization; a ZipStorage passed here must
// be closed by the caller.
func (wb *Workbook) SaveToStorage(s Storage) error {
	return wb.write(s)
}

// SaveTo assembles the package and writes it to out as a ZIP stream.
func (wb *Workbook) SaveTo(out io.Writer) error {
	zs := NewZipStorage(out)
	if err := wb.write(zs); err != nil {
		return err
	}
	return zs.Close()
}

// SaveToBuffer assembles the package into a byte slice.
func (wb *Workbook) SaveToBuffer() ([]byte, error) {
	bb := bytes.Buffer{}
	if err := wb.SaveTo(&bb); err != nil {
		return nil, err
	}
	return bb.Bytes(), nil
}

// SaveToPath writes the package to a file. The archive is staged in a
// temporary file beside the destination and renamed into place only on
// full success, so a failed save never leaves a truncated file at path.
func (wb *Workbook) SaveToPath(path string) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".go-xlsx-*")
	if err != nil {
		return err
	}
	tmpName := f.Name()

	err = wb.SaveTo(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpName)
		return err
	}
	if err = os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// write runs one assembly pass against a Storage. This is the freeze
// barrier: the shared tables become lookup-only views here, before any
// part is serialized. Constant-memory spill files are removed whether or
// not assembly succeeds.
func (wb *Workbook) write(s Storage) error {
	if len(wb.Sheets) == 0 {
		return errors.New("workbook must contain at least one sheet")
	}
	for _, sheet := range wb.Sheets {
		if sheet.stream != nil && sheet.stream.consumed {
			return ErrSheetConsumed
		}
	}

	w := newWriter(s, wb, wb.strings.freeze(), wb.formats.freeze())
	err := w.run(wb)

	for _, sheet := range wb.Sheets {
		if sheet.stream != nil {
			sheet.stream.discard()
		}
	}
	return err
}
