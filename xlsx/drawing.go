package xlsx

import (
	"bytes"
	"fmt"

	"github.com/adnsv/srw/xml"
)

// emuPerPixel converts pixels to English Metric Units at 96 dpi.
const emuPerPixel = 9525

// Chart frame size when anchored, in pixels.
const (
	chartWidthPx  = 480
	chartHeightPx = 288
)

// colWidthPixels returns the display width of a column in pixels,
// honoring custom character widths.
func (s *Sheet) colWidthPixels(col int) float64 {
	if cp := s.colProps[col]; cp != nil && cp.width >= 0 {
		if cp.hidden {
			return 0
		}
		return float64(int(cp.width*7.0+0.5)) + 5
	}
	return 64
}

// rowHeightPixels returns the display height of a row in pixels.
func (s *Sheet) rowHeightPixels(row int) float64 {
	if rp := s.rowProps[row]; rp != nil {
		if rp.hidden {
			return 0
		}
		if rp.height > 0 {
			return rp.height * 4 / 3
		}
	}
	return 20
}

// anchorEnd walks cells from (row, col) until the pixel extent is
// consumed, producing the "to" corner of a two-cell anchor.
func (s *Sheet) anchorEnd(row, col int, wpx, hpx float64) (toRow, toCol int, rowOff, colOff int64) {
	c := col
	for wpx >= s.colWidthPixels(c) && c < MaxCol-1 {
		wpx -= s.colWidthPixels(c)
		c++
	}
	r := row
	for hpx >= s.rowHeightPixels(r) && r < MaxRow-1 {
		hpx -= s.rowHeightPixels(r)
		r++
	}
	return r, c, int64(hpx * emuPerPixel), int64(wpx * emuPerPixel)
}

// writeDrawing serializes the drawing part anchoring a sheet's images
// and charts, plus the chart parts referenced from it.
func (w *Writer) writeDrawing(sh *Sheet, dn int) error {
	abspath := fmt.Sprintf("/xl/drawings/drawing%d.xml", dn)

	w.ctypes.setOverride(abspath, "application/vnd.openxmlformats-officedocument.drawing+xml")
	w.markStrict(abspath)

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("xdr:wsDr")
	x.Attr("xmlns:xdr", "http://schemas.openxmlformats.org/drawingml/2006/spreadsheetDrawing")
	x.Attr("xmlns:a", "http://schemas.openxmlformats.org/drawingml/2006/main")
	x.Attr("xmlns:r", "http://schemas.openxmlformats.org/officeDocument/2006/relationships")

	objID := 1

	for i, p := range sh.images {
		// Every placement gets its own relationship, even when the
		// media blob is shared.
		rid := w.relsFor(abspath).add(
			"http://schemas.openxmlformats.org/officeDocument/2006/relationships/image",
			"../media/"+p.media.Name)
		w.noteRef(abspath, rid)

		wpx, hpx := p.img.scaledPixels()
		toRow, toCol, rowOff, colOff := sh.anchorEnd(p.row, p.col, wpx, hpx)

		objID++
		x.OTag("+xdr:twoCellAnchor").Attr("editAs", "oneCell")
		emitAnchorCorner(x, "xdr:from", p.row, p.col, 0, 0)
		emitAnchorCorner(x, "xdr:to", toRow, toCol, rowOff, colOff)

		x.OTag("+xdr:pic")
		x.OTag("+xdr:nvPicPr")
		x.OTag("+xdr:cNvPr").Attr("id", objID).Attr("name", fmt.Sprintf("Picture %d", i+1))
		if p.img.AltText != "" {
			x.Attr("descr", p.img.AltText)
		}
		x.CTag()
		x.OTag("+xdr:cNvPicPr")
		x.OTag("+a:picLocks").Attr("noChangeAspect", 1).CTag()
		x.CTag()
		x.CTag() // nvPicPr

		x.OTag("+xdr:blipFill")
		x.OTag("+a:blip").Attr("r:embed", rid).CTag()
		x.OTag("+a:stretch")
		x.OTag("+a:fillRect").CTag()
		x.CTag()
		x.CTag() // blipFill

		x.OTag("+xdr:spPr")
		x.OTag("+a:xfrm")
		x.OTag("+a:off").Attr("x", 0).Attr("y", 0).CTag()
		x.OTag("+a:ext").Attr("cx", int(wpx*emuPerPixel)).Attr("cy", int(hpx*emuPerPixel)).CTag()
		x.CTag()
		x.OTag("+a:prstGeom").Attr("prst", "rect")
		x.OTag("+a:avLst").CTag()
		x.CTag()
		x.CTag() // spPr

		x.CTag() // pic
		x.OTag("+xdr:clientData").CTag()
		x.CTag() // twoCellAnchor
	}

	type chartPart struct {
		num   int
		chart *Chart
	}
	var pending []chartPart

	for i, p := range sh.charts {
		w.lastChart++
		cn := w.lastChart
		pending = append(pending, chartPart{num: cn, chart: p.chart})

		rid := w.relsFor(abspath).add(
			"http://schemas.openxmlformats.org/officeDocument/2006/relationships/chart",
			fmt.Sprintf("../charts/chart%d.xml", cn))
		w.noteRef(abspath, rid)

		toRow, toCol, rowOff, colOff := sh.anchorEnd(p.row, p.col, chartWidthPx, chartHeightPx)

		objID++
		x.OTag("+xdr:twoCellAnchor")
		emitAnchorCorner(x, "xdr:from", p.row, p.col, 0, 0)
		emitAnchorCorner(x, "xdr:to", toRow, toCol, rowOff, colOff)

		x.OTag("+xdr:graphicFrame").Attr("macro", "")
		x.OTag("+xdr:nvGraphicFramePr")
		x.OTag("+xdr:cNvPr").Attr("id", objID).Attr("name", fmt.Sprintf("Chart %d", i+1)).CTag()
		x.OTag("+xdr:cNvGraphicFramePr").CTag()
		x.CTag()
		x.OTag("+xdr:xfrm")
		x.OTag("+a:off").Attr("x", 0).Attr("y", 0).CTag()
		x.OTag("+a:ext").Attr("cx", 0).Attr("cy", 0).CTag()
		x.CTag()
		x.OTag("+a:graphic")
		x.OTag("+a:graphicData").Attr("uri", "http://schemas.openxmlformats.org/drawingml/2006/chart")
		x.OTag("+c:chart")
		x.Attr("xmlns:c", "http://schemas.openxmlformats.org/drawingml/2006/chart")
		x.Attr("r:id", rid)
		x.CTag()
		x.CTag()
		x.CTag() // graphic
		x.CTag() // graphicFrame
		x.OTag("+xdr:clientData").CTag()
		x.CTag() // twoCellAnchor
	}

	x.CTag() // wsDr

	if err := w.out.WriteBlob(abspath, bb.Bytes()); err != nil {
		return err
	}

	for _, cp := range pending {
		if err := w.writeChart(cp.chart, cp.num); err != nil {
			return err
		}
	}
	return nil
}

func emitAnchorCorner(x *xml.Writer, tag xml.NameString, row, col int, rowOff, colOff int64) {
	x.OTag("+" + tag)
	x.OTag("+xdr:col").Write(col).CTag()
	x.OTag("+xdr:colOff").Write(int(colOff)).CTag()
	x.OTag("+xdr:row").Write(row).CTag()
	x.OTag("+xdr:rowOff").Write(int(rowOff)).CTag()
	x.CTag()
}

// writeChart serializes a minimal chart part: series data references,
// category/value axes, no styling.
func (w *Writer) writeChart(ch *Chart, cn int) error {
	abspath := fmt.Sprintf("/xl/charts/chart%d.xml", cn)

	w.ctypes.setOverride(abspath,
		"application/vnd.openxmlformats-officedocument.drawingml.chart+xml")

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("c:chartSpace")
	x.Attr("xmlns:c", "http://schemas.openxmlformats.org/drawingml/2006/chart")
	x.Attr("xmlns:a", "http://schemas.openxmlformats.org/drawingml/2006/main")
	x.Attr("xmlns:r", "http://schemas.openxmlformats.org/officeDocument/2006/relationships")

	x.OTag("+c:chart")

	if ch.Title != "" {
		x.OTag("+c:title")
		x.OTag("+c:tx")
		x.OTag("+c:rich")
		x.OTag("+a:bodyPr").CTag()
		x.OTag("+a:lstStyle").CTag()
		x.OTag("+a:p")
		x.OTag("+a:r")
		x.OTag("+a:t").Write(ch.Title).CTag()
		x.CTag()
		x.CTag()
		x.CTag()
		x.CTag()
		x.CTag()
		x.OTag("+c:autoTitleDeleted").Attr("val", 0).CTag()
	}

	x.OTag("+c:plotArea")
	x.OTag("+c:layout").CTag()

	plotTag := xml.NameString("c:lineChart")
	if ch.Type == ChartBar || ch.Type == ChartColumn {
		plotTag = "c:barChart"
	}
	x.OTag("+" + plotTag)
	if plotTag == "c:barChart" {
		dir := "col"
		if ch.Type == ChartBar {
			dir = "bar"
		}
		x.OTag("+c:barDir").Attr("val", dir).CTag()
		x.OTag("+c:grouping").Attr("val", "clustered").CTag()
	} else {
		x.OTag("+c:grouping").Attr("val", "standard").CTag()
	}

	for i, ser := range ch.Series {
		x.OTag("+c:ser")
		x.OTag("+c:idx").Attr("val", i).CTag()
		x.OTag("+c:order").Attr("val", i).CTag()
		if ser.Name != "" {
			x.OTag("+c:tx")
			x.OTag("+c:v").Write(ser.Name).CTag()
			x.CTag()
		}
		if ser.Categories != "" {
			x.OTag("+c:cat")
			x.OTag("+c:strRef")
			x.OTag("+c:f").Write(ser.Categories).CTag()
			x.CTag()
			x.CTag()
		}
		x.OTag("+c:val")
		x.OTag("+c:numRef")
		x.OTag("+c:f").Write(ser.Values).CTag()
		x.CTag()
		x.CTag()
		x.CTag() // ser
	}

	x.OTag("+c:axId").Attr("val", 1).CTag()
	x.OTag("+c:axId").Attr("val", 2).CTag()
	x.CTag() // barChart/lineChart

	catPos, valPos := "b", "l"
	if ch.Type == ChartBar {
		catPos, valPos = "l", "b"
	}

	x.OTag("+c:catAx")
	x.OTag("+c:axId").Attr("val", 1).CTag()
	x.OTag("+c:scaling")
	x.OTag("+c:orientation").Attr("val", "minMax").CTag()
	x.CTag()
	x.OTag("+c:delete").Attr("val", 0).CTag()
	x.OTag("+c:axPos").Attr("val", catPos).CTag()
	x.OTag("+c:crossAx").Attr("val", 2).CTag()
	x.CTag()

	x.OTag("+c:valAx")
	x.OTag("+c:axId").Attr("val", 2).CTag()
	x.OTag("+c:scaling")
	x.OTag("+c:orientation").Attr("val", "minMax").CTag()
	x.CTag()
	x.OTag("+c:delete").Attr("val", 0).CTag()
	x.OTag("+c:axPos").Attr("val", valPos).CTag()
	x.OTag("+c:crossAx").Attr("val", 1).CTag()
	x.CTag()

	x.CTag() // plotArea
	x.OTag("+c:plotVisOnly").Attr("val", 1).CTag()
	x.CTag() // chart
	x.CTag() // chartSpace

	return w.out.WriteBlob(abspath, bb.Bytes())
}

// writeTable serializes one worksheet table part.
func (w *Writer) writeTable(t *Table) error {
	abspath := fmt.Sprintf("/xl/tables/table%d.xml", t.id)

	w.ctypes.setOverride(abspath,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.table+xml")

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("table")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")
	x.Attr("id", t.id)
	x.Attr("name", t.Name)
	x.Attr("displayName", t.Name)
	x.Attr("ref", t.rng.ref())
	x.Attr("totalsRowShown", 0)

	x.OTag("+autoFilter").Attr("ref", t.rng.ref()).CTag()

	x.OTag("+tableColumns").Attr("count", len(t.columns))
	for i, name := range t.columns {
		x.OTag("+tableColumn").Attr("id", i+1).Attr("name", name).CTag()
	}
	x.CTag()

	x.OTag("+tableStyleInfo")
	x.Attr("name", "TableStyleMedium9")
	x.Attr("showFirstColumn", 0)
	x.Attr("showLastColumn", 0)
	x.Attr("showRowStripes", 1)
	x.Attr("showColumnStripes", 0)
	x.CTag()

	x.CTag() // table

	return w.out.WriteBlob(abspath, bb.Bytes())
}
