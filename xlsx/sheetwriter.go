package xlsx

import (
	"bytes"
	"fmt"

	"github.com/adnsv/srw/xml"
)

// writeSheet serializes one worksheet part to /xl/worksheets/sheetN.xml.
// The workbook relationship for the sheet is registered by the caller;
// this emits the part body, the sheet's own relationships (hyperlinks,
// drawing, tables), and any drawing/chart/table parts hanging off it.
func (w *Writer) writeSheet(sh *Sheet, n int) error {
	abspath := fmt.Sprintf("/xl/worksheets/sheet%d.xml", n)

	w.ctypes.setOverride(abspath, "application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml")
	w.markStrict(abspath)

	cfg := xml.WriterConfig{Indent: xml.Indent2Spaces}
	if sh.stream != nil {
		// Compact output so the spilled row fragments splice in cleanly.
		cfg = xml.WriterConfig{}
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, cfg)
	x.XmlStandaloneDecl()

	x.OTag("worksheet")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")
	x.Attr("xmlns:r", "http://schemas.openxmlformats.org/officeDocument/2006/relationships")

	x.OTag("+dimension").Attr("ref", sh.dimensionRef()).CTag()

	x.OTag("+sheetViews")
	x.OTag("+sheetView")
	if sh.index == sh.workbook.activeSheet {
		x.Attr("tabSelected", 1)
	}
	x.Attr("workbookViewId", 0)
	if fp := sh.freeze; fp != nil && (fp.row > 0 || fp.col > 0) {
		x.OTag("+pane")
		if fp.col > 0 {
			x.Attr("xSplit", fp.col)
		}
		if fp.row > 0 {
			x.Attr("ySplit", fp.row)
		}
		x.Attr("topLeftCell", cellRef(fp.row, fp.col))
		x.Attr("activePane", paneName(fp.row, fp.col))
		x.Attr("state", "frozen")
		x.CTag()
	}
	x.CTag() // sheetView
	x.CTag() // sheetViews

	x.OTag("+sheetFormatPr").Attr("defaultRowHeight", 15).CTag()

	if len(sh.colProps) > 0 {
		x.OTag("+cols")
		enumerate(sh.colProps, func(c int, cp *colProperties) error {
			x.OTag("+col").Attr("min", c+1).Attr("max", c+1)
			if cp.width >= 0 {
				x.Attr("width", formatFloat(cp.width)).Attr("customWidth", 1)
			}
			if cp.hasFormat {
				x.Attr("style", cp.format)
			}
			if cp.hidden {
				x.Attr("hidden", 1)
			}
			if cp.outline > 0 {
				x.Attr("outlineLevel", cp.outline)
			}
			x.CTag()
			return nil
		})
		x.CTag()
	}

	if sh.stream != nil {
		// Placeholder; spilled rows are spliced in below.
		x.OTag("+sheetData")
		x.CTag()
	} else {
		x.OTag("+sheetData")
		enumerate(sh.sheetDataRows(), func(r int, cells map[int]cell) error {
			emitRow(x, sh, r, cells)
			return nil
		})
		x.CTag()
	}

	if sh.autofilter != nil {
		x.OTag("+autoFilter").Attr("ref", sh.autofilter.ref()).CTag()
	}

	if len(sh.merges) > 0 {
		x.OTag("+mergeCells").Attr("count", len(sh.merges))
		for _, m := range sh.merges {
			x.OTag("+mergeCell").Attr("ref", m.ref()).CTag()
		}
		x.CTag()
	}

	if len(sh.hyperlinks) > 0 {
		x.OTag("+hyperlinks")
		for _, h := range sh.hyperlinks {
			rid := w.relsFor(abspath).addExternal(
				"http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink", h.url)
			w.noteRef(abspath, rid)
			x.OTag("+hyperlink").Attr("ref", cellRef(h.row, h.col)).Attr("r:id", rid)
			if h.tooltip != "" {
				x.Attr("tooltip", h.tooltip)
			}
			x.CTag()
		}
		x.CTag()
	}

	x.OTag("+pageMargins")
	x.Attr("left", "0.7").Attr("right", "0.7")
	x.Attr("top", "0.75").Attr("bottom", "0.75")
	x.Attr("header", "0.3").Attr("footer", "0.3")
	x.CTag()

	var drawingNum int
	if len(sh.images) > 0 || len(sh.charts) > 0 {
		w.lastDrawing++
		drawingNum = w.lastDrawing
		rid := w.relsFor(abspath).add(
			"http://schemas.openxmlformats.org/officeDocument/2006/relationships/drawing",
			fmt.Sprintf("../drawings/drawing%d.xml", drawingNum))
		w.noteRef(abspath, rid)
		x.OTag("+drawing").Attr("r:id", rid).CTag()
	}

	if len(sh.tables) > 0 {
		x.OTag("+tableParts").Attr("count", len(sh.tables))
		for _, t := range sh.tables {
			rid := w.relsFor(abspath).add(
				"http://schemas.openxmlformats.org/officeDocument/2006/relationships/table",
				fmt.Sprintf("../tables/table%d.xml", t.id))
			w.noteRef(abspath, rid)
			x.OTag("+tablePart").Attr("r:id", rid).CTag()
		}
		x.CTag()
	}

	x.CTag() // worksheet

	doc := bb.Bytes()
	if sh.stream != nil {
		rows, err := sh.stream.finish()
		if err != nil {
			return err
		}
		doc = spliceSheetData(doc, rows)
	}

	if err := w.out.WriteBlob(abspath, doc); err != nil {
		return err
	}

	if drawingNum > 0 {
		if err := w.writeDrawing(sh, drawingNum); err != nil {
			return err
		}
	}
	for _, t := range sh.tables {
		if err := w.writeTable(t); err != nil {
			return err
		}
	}
	return nil
}

func paneName(row, col int) string {
	switch {
	case row > 0 && col > 0:
		return "bottomRight"
	case col > 0:
		return "topRight"
	default:
		return "bottomLeft"
	}
}

// sheetDataRows returns every row that must appear in sheetData: rows
// with cells plus rows carrying non-default properties.
func (s *Sheet) sheetDataRows() map[int]map[int]cell {
	out := map[int]map[int]cell{}
	for r, sr := range s.rows {
		out[r] = sr.cells
	}
	for r, rp := range s.rowProps {
		if _, ok := out[r]; ok {
			continue
		}
		if rp.height > 0 || rp.hidden || rp.outline > 0 || rp.hasFormat {
			out[r] = map[int]cell{}
		}
	}
	return out
}

// emitRow serializes one <row> element. Shared between the standard-mode
// worksheet serializer and the constant-memory flush path, which calls
// it with a fresh compact writer per row.
func emitRow(x *xml.Writer, s *Sheet, rowNum int, cells map[int]cell) {
	x.OTag("+row").Attr("r", rowNum+1)
	if rp := s.rowProps[rowNum]; rp != nil {
		if rp.height > 0 {
			x.Attr("ht", formatFloat(rp.height)).Attr("customHeight", 1)
		}
		if rp.hidden {
			x.Attr("hidden", 1)
		}
		if rp.outline > 0 {
			x.Attr("outlineLevel", rp.outline)
		}
		if rp.hasFormat {
			x.Attr("s", rp.format).Attr("customFormat", 1)
		}
	}
	enumerate(cells, func(colNum int, c cell) error {
		emitCell(x, s, rowNum, colNum, c)
		return nil
	})
	x.CTag()
}

// resolveStyle applies the format precedence chain: explicit cell format,
// then row default, then column default.
func (s *Sheet) resolveStyle(c cell, row, col int) int {
	if c.hasStyle {
		return c.style
	}
	if rp := s.rowProps[row]; rp != nil && rp.hasFormat {
		return rp.format
	}
	if cp := s.colProps[col]; cp != nil && cp.hasFormat {
		return cp.format
	}
	return 0
}

func emitCell(x *xml.Writer, s *Sheet, row, col int, c cell) {
	x.OTag("+c").Attr("r", cellRef(row, col))
	if si := s.resolveStyle(c, row, col); si > 0 {
		x.Attr("s", si)
	}
	switch c.typ {
	case cellBlank:
		// format-only cell, no value
	case cellNumber:
		x.Attr("t", "n")
		x.OTag("v").Write(formatFloat(c.num)).CTag()
	case cellSharedString, cellRichString:
		x.Attr("t", "s")
		x.OTag("v").Write(c.sst).CTag()
	case cellBool:
		x.Attr("t", "b")
		if c.boolVal {
			x.OTag("v").Write("1").CTag()
		} else {
			x.OTag("v").Write("0").CTag()
		}
	case cellFormula:
		x.OTag("f").Write(c.formula).CTag()
		x.OTag("v").Write(c.cached).CTag()
	case cellError:
		x.Attr("t", "e")
		x.OTag("v").Write(c.errCode).CTag()
	}
	x.CTag()
}

// spliceSheetData replaces the empty sheetData placeholder in doc with
// the spilled row fragments. Handles both the self-closing and the
// open/close rendering of the empty element.
func spliceSheetData(doc, rows []byte) []byte {
	i := bytes.Index(doc, []byte("<sheetData"))
	if i < 0 {
		return doc
	}
	closeTag := []byte("</sheetData>")
	end := bytes.Index(doc[i:], closeTag)
	var tail []byte
	if end >= 0 {
		tail = doc[i+end+len(closeTag):]
	} else {
		// self-closing form
		gt := bytes.IndexByte(doc[i:], '>')
		if gt < 0 {
			return doc
		}
		tail = doc[i+gt+1:]
	}
	out := make([]byte, 0, len(doc)+len(rows))
	out = append(out, doc[:i]...)
	out = append(out, []byte("<sheetData>")...)
	out = append(out, rows...)
	out = append(out, closeTag...)
	out = append(out, tail...)
	return out
}
