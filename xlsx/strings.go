package xlsx

// RichRun is one formatted span of a rich-text string. A nil Font inherits
// the cell's font.
type RichRun struct {
	Font *Font
	Text string
}

// sstEntry is one shared-string-table slot: either a plain deduplicated
// string or an always-appended rich-text run list.
type sstEntry struct {
	text string
	rich []RichRun
	uses int
}

// sharedStrings interns every plain string written anywhere in the
// workbook. Indices are handed out in first-seen order and baked into cell
// records as they are written, so the table is strictly append-only.
type sharedStrings struct {
	entries []sstEntry
	index   map[string]int
	total   int // all references, including repeats
}

func newSharedStrings() *sharedStrings {
	return &sharedStrings{index: map[string]int{}}
}

// intern returns the stable index for s, appending a new entry when the
// exact byte sequence has not been seen before. Strings over the cell
// character limit are rejected here, before the table is touched.
func (st *sharedStrings) intern(s string) (int, error) {
	if len([]rune(s)) > maxCellChars {
		return 0, ErrMaxStringLength
	}
	st.total++
	if i, ok := st.index[s]; ok {
		st.entries[i].uses++
		return i, nil
	}
	i := len(st.entries)
	st.entries = append(st.entries, sstEntry{text: s, uses: 1})
	st.index[s] = i
	return i, nil
}

// internRich appends a rich-text entry. Rich strings are rarely repeated,
// so they skip deduplication and always get a fresh slot.
func (st *sharedStrings) internRich(runs []RichRun) (int, error) {
	n := 0
	for _, r := range runs {
		n += len([]rune(r.Text))
	}
	if n > maxCellChars {
		return 0, ErrMaxStringLength
	}
	st.total++
	i := len(st.entries)
	st.entries = append(st.entries, sstEntry{rich: append([]RichRun(nil), runs...), uses: 1})
	return i, nil
}

func (st *sharedStrings) empty() bool { return len(st.entries) == 0 }

// freeze produces the lookup-only view consumed by the part serializers.
// Once a frozenStrings exists no further interning may happen; the type
// itself has no insert methods.
func (st *sharedStrings) freeze() *frozenStrings {
	return &frozenStrings{entries: st.entries, total: st.total}
}

type frozenStrings struct {
	entries []sstEntry
	total   int
}

func (fs *frozenStrings) len() int { return len(fs.entries) }

func (fs *frozenStrings) at(i int) sstEntry {
	if i < 0 || i >= len(fs.entries) {
		// Indices come from interning only; an unknown index is a defect
		// in this package, not bad input.
		panic("xlsx: shared string index out of range")
	}
	return fs.entries[i]
}
