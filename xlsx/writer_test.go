package xlsx

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unzipParts(t *testing.T, blob []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	require.NoError(t, err)
	parts := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		parts[f.Name] = b
	}
	return parts
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	bb := bytes.Buffer{}
	require.NoError(t, png.Encode(&bb, img))
	return bb.Bytes()
}

func TestEmptyWorkbookLayout(t *testing.T) {
	wb := NewWorkbook()
	_, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)

	blob, err := wb.SaveToBuffer()
	require.NoError(t, err)
	parts := unzipParts(t, blob)

	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"xl/workbook.xml",
		"xl/_rels/workbook.xml.rels",
		"xl/worksheets/sheet1.xml",
		"xl/styles.xml",
		"xl/theme/theme1.xml",
		"docProps/core.xml",
		"docProps/app.xml",
	} {
		assert.Contains(t, parts, name)
	}

	_, hasSST := parts["xl/sharedStrings.xml"]
	assert.False(t, hasSST, "no strings, no sharedStrings part")
	assert.NotContains(t, string(parts["xl/_rels/workbook.xml.rels"]), "sharedStrings",
		"workbook rels must not point at the omitted part")

	assert.NotContains(t, parts, "xl/worksheets/_rels/sheet1.xml.rels",
		"a plain sheet needs no relationship file")

	assert.Contains(t, string(parts["_rels/.rels"]), `Target="xl/workbook.xml"`)
	assert.Contains(t, string(parts["xl/workbook.xml"]), `name="Sheet1"`)
}

func TestSharedStringsPartAppearsWithStrings(t *testing.T) {
	wb := NewWorkbook()
	sh, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)
	require.NoError(t, sh.WriteString(0, 0, "hello", nil))
	require.NoError(t, sh.WriteString(1, 0, "hello", nil))
	require.NoError(t, sh.WriteString(2, 0, "  padded  ", nil))

	blob, err := wb.SaveToBuffer()
	require.NoError(t, err)
	parts := unzipParts(t, blob)

	sst := string(parts["xl/sharedStrings.xml"])
	assert.Contains(t, sst, `count="3"`)
	assert.Contains(t, sst, `uniqueCount="2"`)
	assert.Contains(t, sst, `xml:space="preserve"`)
	assert.Contains(t, string(parts["xl/_rels/workbook.xml.rels"]), "sharedStrings.xml")

	sheet := string(parts["xl/worksheets/sheet1.xml"])
	assert.Contains(t, sheet, `t="s"`)
}

func TestImageAndHyperlinkRelationships(t *testing.T) {
	wb := NewWorkbook()
	sh, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)

	img, err := NewImage(testPNG(t, 4, 3))
	require.NoError(t, err)
	assert.Equal(t, 4, img.Width())
	assert.Equal(t, 3, img.Height())
	assert.Equal(t, "png", img.Format())

	require.NoError(t, sh.InsertImage(2, 1, img))
	require.NoError(t, sh.WriteURL(0, 0, "https://example.com/", "example", nil))

	blob, err := wb.SaveToBuffer()
	require.NoError(t, err)
	parts := unzipParts(t, blob)

	rels := parts["xl/worksheets/_rels/sheet1.xml.rels"]
	require.NotNil(t, rels)
	assert.Equal(t, 2, bytes.Count(rels, []byte("<Relationship ")),
		"hyperlink plus drawing")
	assert.Contains(t, string(rels), `TargetMode="External"`)

	sheet := parts["xl/worksheets/sheet1.xml"]
	assert.Equal(t, 2, bytes.Count(sheet, []byte("r:id=")),
		"every relationship is referenced exactly once")

	drawing := parts["xl/drawings/drawing1.xml"]
	require.NotNil(t, drawing)
	assert.Equal(t, 1, bytes.Count(drawing, []byte("r:embed=")))

	drawingRels := parts["xl/drawings/_rels/drawing1.xml.rels"]
	require.NotNil(t, drawingRels)
	assert.Equal(t, 1, bytes.Count(drawingRels, []byte("<Relationship ")))
	assert.Contains(t, string(drawingRels), "../media/")

	assert.Contains(t, string(parts["[Content_Types].xml"]), "image/png")

	found := 0
	for name := range parts {
		if filepath.Dir(name) == "xl/media" {
			found++
		}
	}
	assert.Equal(t, 1, found, "one media blob stored")
}

func TestDuplicateImageBytesStoredOnce(t *testing.T) {
	wb := NewWorkbook()
	sh, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)

	data := testPNG(t, 2, 2)
	a, err := NewImage(data)
	require.NoError(t, err)
	b, err := NewImage(append([]byte(nil), data...))
	require.NoError(t, err)

	require.NoError(t, sh.InsertImage(0, 0, a))
	require.NoError(t, sh.InsertImage(10, 0, b))

	blob, err := wb.SaveToBuffer()
	require.NoError(t, err)
	parts := unzipParts(t, blob)

	media := 0
	for name := range parts {
		if filepath.Dir(name) == "xl/media" {
			media++
		}
	}
	assert.Equal(t, 1, media, "byte-identical blobs share one package entry")

	drawingRels := parts["xl/drawings/_rels/drawing1.xml.rels"]
	assert.Equal(t, 2, bytes.Count(drawingRels, []byte("<Relationship ")),
		"each placement keeps its own relationship id")
}

func TestRepeatSaveIdempotence(t *testing.T) {
	wb := NewWorkbook()
	wb.AppName = "go-xlsx"
	wb.Props.Author = "tester"
	wb.Props.Created = time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

	sh, err := wb.AddSheet("Report")
	require.NoError(t, err)
	require.NoError(t, sh.WriteString(0, 0, "metric", nil))
	require.NoError(t, sh.WriteNumber(1, 0, 42.5, &Format{NumFormat: "0.00"}))
	require.NoError(t, sh.MergeRange(3, 0, 3, 2, "merged", &Format{Align: Alignment{Horizontal: HAlignCenter}}))
	require.NoError(t, sh.Autofilter(0, 0, 1, 0))

	first, err := wb.SaveToBuffer()
	require.NoError(t, err)
	second, err := wb.SaveToBuffer()
	require.NoError(t, err)

	assert.Equal(t, unzipParts(t, first), unzipParts(t, second),
		"two saves decompress to byte-identical parts")
}

func TestStylesPartContent(t *testing.T) {
	wb := NewWorkbook()
	sh, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)

	f := &Format{
		Font:      Font{Bold: true, Color: "FF0000"},
		Fill:      Fill{Pattern: PatternSolid, Foreground: "FFFF00"},
		Border:    Border{Bottom: BorderEdge{Style: BorderThin}},
		NumFormat: "0.000%",
	}
	require.NoError(t, sh.WriteNumber(0, 0, 0.5, f))

	blob, err := wb.SaveToBuffer()
	require.NoError(t, err)
	parts := unzipParts(t, blob)

	styles := string(parts["xl/styles.xml"])
	assert.Contains(t, styles, `numFmtId="164"`)
	assert.Contains(t, styles, `formatCode="0.000%"`)
	assert.Contains(t, styles, `rgb="FFFF0000"`)
	assert.Contains(t, styles, `patternType="solid"`)
	assert.Contains(t, styles, `style="thin"`)
	assert.Contains(t, styles, `patternType="gray125"`)

	sheet := string(parts["xl/worksheets/sheet1.xml"])
	assert.Contains(t, sheet, `s="1"`, "cell references the interned style")
}

func TestChartAndTableParts(t *testing.T) {
	wb := NewWorkbook()
	sh, err := wb.AddSheet("Data")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, sh.WriteNumber(i+1, 0, float64(i*10), nil))
	}
	_, err = sh.AddTable(0, 0, 5, 1, []string{"Amount", "Note"})
	require.NoError(t, err)

	ch := NewChart(ChartColumn).AddSeries(ChartSeries{
		Name:   "Amount",
		Values: "Data!$A$2:$A$6",
	})
	require.NoError(t, sh.InsertChart(1, 4, ch))

	blob, err := wb.SaveToBuffer()
	require.NoError(t, err)
	parts := unzipParts(t, blob)

	require.Contains(t, parts, "xl/drawings/drawing1.xml")
	require.Contains(t, parts, "xl/charts/chart1.xml")
	require.Contains(t, parts, "xl/tables/table1.xml")

	sheet := string(parts["xl/worksheets/sheet1.xml"])
	assert.Contains(t, sheet, "<tableParts")
	assert.Contains(t, sheet, "<drawing")

	chart := string(parts["xl/charts/chart1.xml"])
	assert.Contains(t, chart, "Data!$A$2:$A$6")
	assert.Contains(t, chart, "c:barChart")

	table := string(parts["xl/tables/table1.xml"])
	assert.Contains(t, table, `name="Amount"`)
	assert.Contains(t, table, `ref="A1:B6"`)

	ctypes := string(parts["[Content_Types].xml"])
	assert.Contains(t, ctypes, "drawingml.chart+xml")
	assert.Contains(t, ctypes, "spreadsheetml.table+xml")

	sst := string(parts["xl/sharedStrings.xml"])
	assert.Contains(t, sst, "Amount", "table headers are written as cells")
}

func TestFreezePanesAndDefinedNames(t *testing.T) {
	wb := NewWorkbook()
	sh, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)

	require.NoError(t, sh.WriteString(0, 0, "h", nil))
	require.NoError(t, sh.FreezePanes(1, 0))
	require.NoError(t, sh.Autofilter(0, 0, 4, 2))
	require.NoError(t, wb.DefineName("Rates", "Sheet1!$B$2:$B$10"))
	assert.ErrorIs(t, wb.DefineName("rates", "Sheet1!$C$1"), ErrDuplicateName)

	blob, err := wb.SaveToBuffer()
	require.NoError(t, err)
	parts := unzipParts(t, blob)

	sheet := string(parts["xl/worksheets/sheet1.xml"])
	assert.Contains(t, sheet, `state="frozen"`)
	assert.Contains(t, sheet, `<autoFilter ref="A1:C5"`)

	workbook := string(parts["xl/workbook.xml"])
	assert.Contains(t, workbook, `name="Rates"`)
	assert.Contains(t, workbook, "_xlnm._FilterDatabase")
	assert.Contains(t, workbook, "Sheet1!$A$1:$C$5")
}

func TestSaveToPathAtomic(t *testing.T) {
	wb := NewWorkbook()
	_, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.xlsx")
	require.NoError(t, wb.SaveToPath(dest))

	blob, err := os.ReadFile(dest)
	require.NoError(t, err)
	unzipParts(t, blob)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no stray temp files after a successful save")
}

func TestRelationshipConsistencyCheck(t *testing.T) {
	wb := NewWorkbook()
	w := newWriter(NewDirStorage(t.TempDir()), wb, wb.strings.freeze(), wb.formats.freeze())

	part := "/xl/worksheets/sheet1.xml"
	w.markStrict(part)

	// dangling reference: emitted but never registered
	w.noteRef(part, "rId1")
	assert.ErrorIs(t, w.validateRefs(), ErrInternalConsistency)

	w.relsFor(part).add("type", "target")
	assert.NoError(t, w.validateRefs())

	// orphaned entry: registered but never emitted
	w.relsFor(part).add("type", "other")
	assert.ErrorIs(t, w.validateRefs(), ErrInternalConsistency)
}

func TestLineChartPart(t *testing.T) {
	wb := NewWorkbook()
	sh, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, sh.WriteNumber(i, 0, float64(i), nil))
	}
	ch := NewChart(ChartLine).AddSeries(ChartSeries{Values: "Sheet1!$A$1:$A$3"})
	require.NoError(t, sh.InsertChart(0, 2, ch))

	blob, err := wb.SaveToBuffer()
	require.NoError(t, err)
	parts := unzipParts(t, blob)

	chart := string(parts["xl/charts/chart1.xml"])
	assert.Contains(t, chart, "<c:lineChart")
	assert.NotContains(t, chart, "c:barDir")

	drawing := string(parts["xl/drawings/drawing1.xml"])
	assert.Contains(t, drawing, "<xdr:from")
	assert.Contains(t, drawing, "<xdr:to")
}

func TestRichStringAndErrorCellSerialization(t *testing.T) {
	wb := NewWorkbook()
	sh, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)

	runs := []RichRun{
		{Font: &Font{Bold: true, Color: "FF0000"}, Text: "hot"},
		{Text: " cold"},
	}
	require.NoError(t, sh.WriteRichString(0, 0, runs, nil))
	require.NoError(t, sh.WriteError(1, 0, ErrorDiv0, nil))

	blob, err := wb.SaveToBuffer()
	require.NoError(t, err)
	parts := unzipParts(t, blob)

	sst := string(parts["xl/sharedStrings.xml"])
	assert.Contains(t, sst, "<r>")
	assert.Contains(t, sst, "<rPr>")
	assert.Contains(t, sst, `rgb="FFFF0000"`)
	assert.Contains(t, sst, ">hot</t>")
	assert.Contains(t, sst, `xml:space="preserve"`, "run text with leading space keeps it")

	sheet := string(parts["xl/worksheets/sheet1.xml"])
	assert.Contains(t, sheet, `t="s"`, "rich string cell points into the shared table")
	assert.Contains(t, sheet, `t="e"`)
	assert.Contains(t, sheet, "<v>#DIV/0!</v>")
}

func TestSaveToStorage(t *testing.T) {
	wb := NewWorkbook()
	sh, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)
	require.NoError(t, sh.WriteNumber(0, 0, 7, nil))

	dir := t.TempDir()
	require.NoError(t, wb.SaveToStorage(NewDirStorage(dir)))

	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"xl/workbook.xml",
		"xl/worksheets/sheet1.xml",
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestAddTableCaptionValidation(t *testing.T) {
	wb := NewWorkbook()
	sh, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)

	long := strings.Repeat("x", maxCellChars+1)
	_, err = sh.AddTable(0, 0, 3, 1, []string{"ok", long})
	assert.ErrorIs(t, err, ErrMaxStringLength)

	assert.Empty(t, sh.rows, "no header cell written before validation completed")
	assert.Empty(t, sh.tables)
	assert.Equal(t, 0, wb.nextTableID)
}

func TestRelsPathMapping(t *testing.T) {
	assert.Equal(t, "/_rels/.rels", relsPathFor(pkgRootPart))
	assert.Equal(t, "/xl/_rels/workbook.xml.rels", relsPathFor("/xl/workbook.xml"))
	assert.Equal(t, "/xl/worksheets/_rels/sheet2.xml.rels", relsPathFor("/xl/worksheets/sheet2.xml"))
}
