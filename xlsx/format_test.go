package xlsx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDeduplication(t *testing.T) {
	ft := newFormatTable()

	a := &Format{Font: Font{Bold: true, Size: 14}, Align: Alignment{Horizontal: HAlignCenter}}
	b := &Format{Font: Font{Bold: true, Size: 14}, Align: Alignment{Horizontal: HAlignCenter}}
	c := &Format{Font: Font{Italic: true}}

	ia := ft.add(a)
	ib := ft.add(b)
	ic := ft.add(c)

	assert.Equal(t, ia, ib, "structurally equal descriptors collapse to one entry")
	assert.NotEqual(t, ia, ic)
	assert.Equal(t, 0, ft.add(nil), "nil format is the default entry")
	assert.Equal(t, 0, ft.add(&Format{}), "zero-value format is the default entry")
}

func TestDefaultEntriesReserved(t *testing.T) {
	ft := newFormatTable()
	ft.add(&Format{Fill: Fill{Pattern: PatternSolid, Foreground: "FFFF00"}})

	assert.Equal(t, xfRecord{}, ft.xfs[0], "index 0 stays the default format")
	assert.Equal(t, Fill{}, ft.fills[0])
	assert.Equal(t, Fill{Pattern: PatternGray125}, ft.fills[1], "gray125 fill keeps its fixed slot")
}

func TestCustomNumberFormatAllocation(t *testing.T) {
	ft := newFormatTable()

	a := ft.add(&Format{NumFormat: "0.000%", Font: Font{Bold: true}})
	b := ft.add(&Format{NumFormat: "0.000%", Font: Font{Italic: true}})

	assert.NotEqual(t, a, b, "different formats, even sharing a number format")
	assert.Len(t, ft.numFmts, 1, "one custom id for both")
	assert.Equal(t, firstCustomNumFmtID, ft.numFmts[0].id)
	assert.Equal(t, ft.xfs[a].numFmtID, ft.xfs[b].numFmtID)
}

func TestBuiltinNumberFormatResolution(t *testing.T) {
	ft := newFormatTable()

	i := ft.add(&Format{NumFormat: "0.00"})
	assert.Equal(t, 2, ft.xfs[i].numFmtID, "builtin code resolves to its reserved id")
	assert.Empty(t, ft.numFmts, "no custom slot burned")

	j := ft.add(&Format{NumFormat: "@"})
	assert.Equal(t, 49, ft.xfs[j].numFmtID)
}

func TestFormatSubRecordDeduplication(t *testing.T) {
	ft := newFormatTable()

	a := ft.add(&Format{Font: Font{Bold: true}, NumFormat: "0"})
	b := ft.add(&Format{Font: Font{Bold: true}, Fill: Fill{Pattern: PatternSolid, Foreground: "C0C0C0"}})

	assert.Equal(t, ft.xfs[a].fontID, ft.xfs[b].fontID, "shared font collapses to one font record")
	assert.Len(t, ft.fonts, 2, "default font plus the bold one")
}
