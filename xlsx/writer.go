package xlsx

import (
	"bytes"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/adnsv/srw/xml"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
)

// Writer assembles one save of a workbook: it walks the frozen data
// model, emits every XML part through Storage, and keeps the
// relationship graph and content-type manifest consistent with what the
// parts actually reference. A Writer is single-use; each save builds a
// fresh one, so repeated saves of the same workbook are independent.
type Writer struct {
	out    Storage
	ctypes *contentTypes

	// partRels maps each owning part to its relationship list; refs
	// records every r:id attribute actually emitted into that part, so
	// the two can be cross-checked before the .rels files are written.
	partRels map[string]*relationships
	refs     map[string]map[string]bool
	strict   map[string]bool

	strings *frozenStrings
	formats *frozenFormats
	media   *mediaRegistry

	lastDrawing int
	lastChart   int
}

func newWriter(out Storage, wb *Workbook, fs *frozenStrings, ff *frozenFormats) *Writer {
	return &Writer{
		out:      out,
		ctypes:   newContentTypes(),
		partRels: map[string]*relationships{},
		refs:     map[string]map[string]bool{},
		strict:   map[string]bool{},
		strings:  fs,
		formats:  ff,
		media:    wb.media,
	}
}

func (w *Writer) relsFor(part string) *relationships {
	r, ok := w.partRels[part]
	if !ok {
		r = &relationships{}
		w.partRels[part] = r
	}
	return r
}

// noteRef records that the part's XML carries an r:id reference, for the
// pre-assembly consistency check.
func (w *Writer) noteRef(part, rid string) {
	m, ok := w.refs[part]
	if !ok {
		m = map[string]bool{}
		w.refs[part] = m
	}
	m[rid] = true
}

// markStrict opts the part into the both-ways check: every relationship
// entry must be referenced from the XML and vice versa. Worksheets and
// drawings are strict; the workbook part legitimately carries entries
// (styles, theme, sharedStrings) that its XML never names.
func (w *Writer) markStrict(part string) {
	w.strict[part] = true
}

// run emits the whole package. The shared tables were frozen by the
// caller; everything here is lookup-only.
func (w *Writer) run(wb *Workbook) error {
	if err := w.writeWorkbook(wb); err != nil {
		return err
	}
	if err := w.writeStyles(); err != nil {
		return err
	}
	if err := w.writeTheme(); err != nil {
		return err
	}
	if w.strings.len() > 0 {
		if err := w.writeSharedStrings(); err != nil {
			return err
		}
	}
	if err := w.writeCoreProperties(wb); err != nil {
		return err
	}
	if err := w.writeExtendedProperties(wb); err != nil {
		return err
	}
	if err := w.writeMedia(); err != nil {
		return err
	}
	if err := w.validateRefs(); err != nil {
		return err
	}
	if err := w.writeRelsFiles(); err != nil {
		return err
	}
	return w.writeContentTypes()
}

const workbookPart = "/xl/workbook.xml"

func (w *Writer) writeWorkbook(wb *Workbook) error {
	w.ctypes.setOverride(workbookPart,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml")
	w.relsFor(pkgRootPart).add(
		"http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument",
		"xl/workbook.xml")

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("workbook")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")
	x.Attr("xmlns:r", "http://schemas.openxmlformats.org/officeDocument/2006/relationships")

	x.OTag("+workbookPr").Attr("date1904", "false").CTag()

	x.OTag("+bookViews")
	x.OTag("+workbookView")
	if wb.activeSheet > 0 {
		x.Attr("activeTab", wb.activeSheet)
	}
	x.CTag()
	x.CTag()

	x.OTag("+sheets")
	for i, sheet := range wb.Sheets {
		rid := w.relsFor(workbookPart).add(
			"http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet",
			fmt.Sprintf("worksheets/sheet%d.xml", i+1))
		w.noteRef(workbookPart, rid)
		x.OTag("+sheet")
		x.Attr("name", sheet.Name)
		x.Attr("sheetId", i+1)
		x.Attr("r:id", rid)
		x.CTag()
	}
	x.CTag()

	var filtered []*Sheet
	for _, sheet := range wb.Sheets {
		if sheet.autofilter != nil {
			filtered = append(filtered, sheet)
		}
	}
	if len(wb.definedNames) > 0 || len(filtered) > 0 {
		x.OTag("+definedNames")
		for _, dn := range wb.definedNames {
			x.OTag("+definedName").Attr("name", dn.name).Write(dn.formula).CTag()
		}
		for _, sheet := range filtered {
			af := sheet.autofilter
			formula := quoteSheetName(sheet.Name) + "!" +
				absCellRef(af.r1, af.c1) + ":" + absCellRef(af.r2, af.c2)
			x.OTag("+definedName")
			x.Attr("name", "_xlnm._FilterDatabase")
			x.Attr("localSheetId", sheet.index)
			x.Attr("hidden", 1)
			x.Write(formula)
			x.CTag()
		}
		x.CTag()
	}

	x.OTag("+calcPr").Attr("calcId", 124519).Attr("fullCalcOnLoad", 1).CTag()

	x.CTag() // workbook

	if err := w.out.WriteBlob(workbookPart, bb.Bytes()); err != nil {
		return err
	}

	for i, sheet := range wb.Sheets {
		if err := w.writeSheet(sheet, i+1); err != nil {
			return err
		}
	}
	return nil
}

// quoteSheetName quotes a sheet name for use in a range formula when it
// contains characters that need it.
func quoteSheetName(name string) string {
	if strings.ContainsAny(name, " !$%&()+,-;<=>@^`{|}~") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

func (w *Writer) writeStyles() error {
	relpath := "styles.xml"
	abspath := "/xl/" + relpath

	w.ctypes.setOverride(abspath,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml")
	w.relsFor(workbookPart).add(
		"http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles", relpath)

	ff := w.formats

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("styleSheet")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")

	if len(ff.numFmts) > 0 {
		x.OTag("+numFmts").Attr("count", len(ff.numFmts))
		for _, nf := range ff.numFmts {
			x.OTag("+numFmt").Attr("numFmtId", nf.id).Attr("formatCode", nf.code).CTag()
		}
		x.CTag()
	}

	x.OTag("+fonts").Attr("count", len(ff.fonts))
	for _, f := range ff.fonts {
		x.OTag("+font")
		if f.Bold {
			x.OTag("+b").CTag()
		}
		if f.Italic {
			x.OTag("+i").CTag()
		}
		if f.Underline != UnderlineNone {
			x.OTag("+u")
			if f.Underline != UnderlineSingle {
				x.Attr("val", string(f.Underline))
			}
			x.CTag()
		}
		if f.Strikethrough {
			x.OTag("+strike").CTag()
		}
		sz := f.Size
		if sz == 0 {
			sz = 11
		}
		x.OTag("+sz").Attr("val", formatFloat(sz)).CTag()
		if f.Color != "" {
			x.OTag("+color").Attr("rgb", rgbArgb(f.Color)).CTag()
		}
		name := f.Name
		if name == "" {
			name = "Calibri"
		}
		x.OTag("+name").Attr("val", name).CTag()
		x.OTag("+family").Attr("val", 2).CTag()
		x.CTag()
	}
	x.CTag()

	x.OTag("+fills").Attr("count", len(ff.fills))
	for _, f := range ff.fills {
		x.OTag("+fill")
		x.OTag("+patternFill")
		pattern := f.Pattern
		if pattern == PatternNone {
			pattern = "none"
		}
		x.Attr("patternType", string(pattern))
		if f.Foreground != "" {
			x.OTag("+fgColor").Attr("rgb", rgbArgb(f.Foreground)).CTag()
		}
		if f.Background != "" {
			x.OTag("+bgColor").Attr("rgb", rgbArgb(f.Background)).CTag()
		} else if f.Foreground != "" {
			x.OTag("+bgColor").Attr("indexed", 64).CTag()
		}
		x.CTag()
		x.CTag()
	}
	x.CTag()

	x.OTag("+borders").Attr("count", len(ff.borders))
	for _, b := range ff.borders {
		x.OTag("+border")
		emitBorderEdge(x, "left", b.Left)
		emitBorderEdge(x, "right", b.Right)
		emitBorderEdge(x, "top", b.Top)
		emitBorderEdge(x, "bottom", b.Bottom)
		x.OTag("+diagonal").CTag()
		x.CTag()
	}
	x.CTag()

	x.OTag("+cellStyleXfs").Attr("count", 1)
	x.OTag("+xf").Attr("numFmtId", 0).Attr("fontId", 0).Attr("fillId", 0).Attr("borderId", 0).CTag()
	x.CTag()

	x.OTag("+cellXfs").Attr("count", ff.len())
	for _, xf := range ff.xfs {
		x.OTag("+xf")
		x.Attr("numFmtId", xf.numFmtID)
		x.Attr("fontId", xf.fontID)
		x.Attr("fillId", xf.fillID)
		x.Attr("borderId", xf.borderID)
		x.Attr("xfId", 0)
		if xf.numFmtID > 0 {
			x.Attr("applyNumberFormat", 1)
		}
		if xf.fontID > 0 {
			x.Attr("applyFont", 1)
		}
		if xf.fillID > 0 {
			x.Attr("applyFill", 1)
		}
		if xf.borderID > 0 {
			x.Attr("applyBorder", 1)
		}
		hasAlign := !xf.align.isDefault()
		hasProt := xf.unlocked || xf.hidden
		if hasAlign {
			x.Attr("applyAlignment", 1)
		}
		if hasProt {
			x.Attr("applyProtection", 1)
		}
		if hasAlign {
			x.OTag("+alignment")
			if xf.align.Horizontal != HAlignDefault {
				x.Attr("horizontal", string(xf.align.Horizontal))
			}
			if xf.align.Vertical != VAlignDefault {
				x.Attr("vertical", string(xf.align.Vertical))
			}
			if xf.align.Rotation != 0 {
				x.Attr("textRotation", xf.align.Rotation)
			}
			if xf.align.Indent > 0 {
				x.Attr("indent", xf.align.Indent)
			}
			if xf.align.Wrap {
				x.Attr("wrapText", 1)
			}
			if xf.align.Shrink {
				x.Attr("shrinkToFit", 1)
			}
			x.CTag()
		}
		if hasProt {
			x.OTag("+protection")
			if xf.unlocked {
				x.Attr("locked", 0)
			}
			if xf.hidden {
				x.Attr("hidden", 1)
			}
			x.CTag()
		}
		x.CTag()
	}
	x.CTag()

	x.OTag("+cellStyles").Attr("count", 1)
	x.OTag("+cellStyle").Attr("name", "Normal").Attr("xfId", 0).Attr("builtinId", 0).CTag()
	x.CTag()

	x.CTag() // styleSheet

	return w.out.WriteBlob(abspath, bb.Bytes())
}

func emitBorderEdge(x *xml.Writer, side xml.NameString, e BorderEdge) {
	x.OTag("+" + side)
	if e.Style != BorderNone {
		x.Attr("style", string(e.Style))
		x.OTag("+color")
		if e.Color != "" {
			x.Attr("rgb", rgbArgb(e.Color))
		} else {
			x.Attr("auto", 1)
		}
		x.CTag()
	}
	x.CTag()
}

// rgbArgb expands a 6-digit RGB hex to the 8-digit ARGB form the schema
// expects; 8-digit input passes through.
func rgbArgb(c string) string {
	if len(c) == 6 {
		return "FF" + c
	}
	return c
}

func (w *Writer) writeSharedStrings() error {
	relpath := "sharedStrings.xml"
	abspath := "/xl/" + relpath

	w.ctypes.setOverride(abspath,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml")
	w.relsFor(workbookPart).add(
		"http://schemas.openxmlformats.org/officeDocument/2006/relationships/sharedStrings", relpath)

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("sst")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")
	x.Attr("count", w.strings.total)
	x.Attr("uniqueCount", w.strings.len())

	for i := 0; i < w.strings.len(); i++ {
		e := w.strings.at(i)
		x.OTag("+si")
		if e.rich != nil {
			for _, run := range e.rich {
				x.OTag("+r")
				if run.Font != nil {
					emitRunFont(x, run.Font)
				}
				emitText(x, run.Text)
				x.CTag()
			}
		} else {
			emitText(x, e.text)
		}
		x.CTag()
	}

	x.CTag()

	return w.out.WriteBlob(abspath, bb.Bytes())
}

func emitText(x *xml.Writer, s string) {
	x.OTag("t")
	if s != strings.TrimSpace(s) {
		x.Attr("xml:space", "preserve")
	}
	x.Write(s)
	x.CTag()
}

func emitRunFont(x *xml.Writer, f *Font) {
	x.OTag("+rPr")
	if f.Bold {
		x.OTag("+b").CTag()
	}
	if f.Italic {
		x.OTag("+i").CTag()
	}
	if f.Underline != UnderlineNone {
		x.OTag("+u")
		if f.Underline != UnderlineSingle {
			x.Attr("val", string(f.Underline))
		}
		x.CTag()
	}
	if f.Strikethrough {
		x.OTag("+strike").CTag()
	}
	if f.Size > 0 {
		x.OTag("+sz").Attr("val", formatFloat(f.Size)).CTag()
	}
	if f.Color != "" {
		x.OTag("+color").Attr("rgb", rgbArgb(f.Color)).CTag()
	}
	if f.Name != "" {
		x.OTag("+rFont").Attr("val", f.Name).CTag()
	}
	x.CTag()
}

func (w *Writer) writeTheme() error {
	relpath := "theme/theme1.xml"
	abspath := "/xl/" + relpath

	w.ctypes.setOverride(abspath,
		"application/vnd.openxmlformats-officedocument.theme+xml")
	w.relsFor(workbookPart).add(
		"http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme", relpath)

	return w.out.WriteBlob(abspath, []byte(themeXML))
}

func (w *Writer) writeCoreProperties(wb *Workbook) error {
	relpath := "docProps/core.xml"
	abspath := "/" + relpath

	w.ctypes.setOverride(abspath, "application/vnd.openxmlformats-package.core-properties+xml")
	w.relsFor(pkgRootPart).add(
		"http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties", relpath)

	stamp := wb.Props.Created.UTC().Format("2006-01-02T15:04:05Z")

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})

	x.XmlStandaloneDecl()
	x.OTag("cp:coreProperties")
	x.Attr("xmlns:cp", "http://schemas.openxmlformats.org/package/2006/metadata/core-properties")
	x.Attr("xmlns:dc", "http://purl.org/dc/elements/1.1/")
	x.Attr("xmlns:dcterms", "http://purl.org/dc/terms/")
	x.Attr("xmlns:dcmitype", "http://purl.org/dc/dcmitype/")
	x.Attr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance")

	if wb.Props.Title != "" {
		x.OTag("+dc:title").Write(wb.Props.Title).CTag()
	}
	if wb.Props.Subject != "" {
		x.OTag("+dc:subject").Write(wb.Props.Subject).CTag()
	}
	if wb.Props.Author != "" {
		x.OTag("+dc:creator").Write(wb.Props.Author).CTag()
		x.OTag("+cp:lastModifiedBy").Write(wb.Props.Author).CTag()
	}
	if wb.Props.Keywords != "" {
		x.OTag("+cp:keywords").Write(wb.Props.Keywords).CTag()
	}
	if wb.Props.Comments != "" {
		x.OTag("+dc:description").Write(wb.Props.Comments).CTag()
	}
	if wb.Props.Category != "" {
		x.OTag("+cp:category").Write(wb.Props.Category).CTag()
	}
	if wb.Props.Status != "" {
		x.OTag("+cp:contentStatus").Write(wb.Props.Status).CTag()
	}

	x.OTag("+dcterms:created")
	x.Attr("xsi:type", "dcterms:W3CDTF")
	x.Write(stamp)
	x.CTag()

	x.OTag("+dcterms:modified")
	x.Attr("xsi:type", "dcterms:W3CDTF")
	x.Write(stamp)
	x.CTag()

	x.CTag()

	return w.out.WriteBlob(abspath, bb.Bytes())
}

func (w *Writer) writeExtendedProperties(wb *Workbook) error {
	relpath := "docProps/app.xml"
	abspath := "/" + relpath

	w.ctypes.setOverride(abspath, "application/vnd.openxmlformats-officedocument.extended-properties+xml")
	w.relsFor(pkgRootPart).add(
		"http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties", relpath)

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("Properties")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties")
	x.Attr("xmlns:vt", "http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes")

	if wb.AppName != "" {
		x.OTag("+Application").String(wb.AppName).CTag()
	}

	x.OTag("+HeadingPairs")
	x.OTag("+vt:vector").Attr("size", 2).Attr("baseType", "variant")
	x.OTag("+vt:variant")
	x.OTag("+vt:lpstr").Write("Worksheets").CTag()
	x.CTag()
	x.OTag("+vt:variant")
	x.OTag("+vt:i4").Write(len(wb.Sheets)).CTag()
	x.CTag()
	x.CTag()
	x.CTag()

	x.OTag("+TitlesOfParts")
	x.OTag("+vt:vector").Attr("size", len(wb.Sheets)).Attr("baseType", "lpstr")
	for _, sheet := range wb.Sheets {
		x.OTag("+vt:lpstr").Write(sheet.Name).CTag()
	}
	x.CTag()
	x.CTag()

	if wb.Props.Manager != "" {
		x.OTag("+Manager").Write(wb.Props.Manager).CTag()
	}
	if wb.Props.Company != "" {
		x.OTag("+Company").Write(wb.Props.Company).CTag()
	}

	x.CTag()

	return w.out.WriteBlob(abspath, bb.Bytes())
}

// writeMedia stores every registered media blob under xl/media and
// declares its extension's content type.
func (w *Writer) writeMedia() error {
	if w.media == nil {
		return nil
	}
	for _, m := range w.media.list {
		if err := w.out.WriteBlob("/xl/media/"+m.Name, m.Blob); err != nil {
			return err
		}
		ext := strings.TrimPrefix(path.Ext(m.Name), ".")
		w.ctypes.setDefault(ext, m.ContentType)
	}
	return nil
}

// validateRefs is the central consistency pass: every r:id emitted into
// a part's XML must have a matching relationship entry, and for strict
// parts every relationship entry must be referenced. A violation is a
// defect in this package, never a data problem.
func (w *Writer) validateRefs() error {
	for part, refs := range w.refs {
		ids := w.partRels[part].ids()
		for rid := range refs {
			if !ids[rid] {
				return fmt.Errorf("%w: %s references %s with no matching relationship entry",
					ErrInternalConsistency, part, rid)
			}
		}
	}
	for part, rels := range w.partRels {
		if !w.strict[part] {
			continue
		}
		refs := w.refs[part]
		for _, e := range rels.entries {
			if !refs[e.id] {
				return fmt.Errorf("%w: %s declares unreferenced relationship %s",
					ErrInternalConsistency, part, e.id)
			}
		}
	}
	return nil
}

func (w *Writer) writeRelsFiles() error {
	return enumerate(w.partRels, func(part string, rels *relationships) error {
		if rels.empty() {
			return nil
		}
		return w.writeRels(relsPathFor(part), rels)
	})
}

func (w *Writer) writeRels(path string, rels *relationships) error {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("Relationships")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/package/2006/relationships")
	for _, e := range rels.entries {
		x.OTag("+Relationship").Attr("Id", e.id).Attr("Type", e.typ).Attr("Target", e.target)
		if e.external {
			x.Attr("TargetMode", "External")
		}
		x.CTag()
	}
	x.CTag()

	return w.out.WriteBlob(path, bb.Bytes())
}

func (w *Writer) writeContentTypes() error {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})

	x.XmlStandaloneDecl()
	x.OTag("Types")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/package/2006/content-types")
	enumerate(w.ctypes.defaults, func(ext, ctype string) error {
		x.OTag("+Default").Attr("Extension", ext).Attr("ContentType", ctype).CTag()
		return nil
	})
	enumerate(w.ctypes.overrides, func(abspath, ctype string) error {
		x.OTag("+Override").Attr("PartName", abspath).Attr("ContentType", ctype).CTag()
		return nil
	})

	x.CTag()

	return w.out.WriteBlob("[Content_Types].xml", bb.Bytes())
}

// enumerate visits a map in sorted key order, keeping every emitted list
// deterministic so repeated saves produce byte-identical parts.
func enumerate[M ~map[K]V, K constraints.Ordered, V any](m M, callback func(k K, v V) error) error {
	keys := maps.Keys(m)
	slices.Sort(keys)
	for _, k := range keys {
		err := callback(k, m[k])
		if err != nil {
			return err
		}
	}
	return nil
}
