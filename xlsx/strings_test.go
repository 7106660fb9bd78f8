package xlsx

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedStringInterning(t *testing.T) {
	st := newSharedStrings()

	for i := 0; i < 10; i++ {
		idx, err := st.intern("value " + strconv.Itoa(i))
		require.NoError(t, err)
		assert.Equal(t, i, idx, "distinct strings get indices in first-seen order")
	}

	idx, err := st.intern("value 3")
	require.NoError(t, err)
	assert.Equal(t, 3, idx, "repeated string returns its original index")
	assert.Equal(t, 10, len(st.entries), "repeat does not grow the table")
	assert.Equal(t, 11, st.total)
	assert.Equal(t, 2, st.entries[3].uses)
}

func TestSharedStringLengthLimit(t *testing.T) {
	st := newSharedStrings()

	ok := strings.Repeat("x", maxCellChars)
	_, err := st.intern(ok)
	assert.NoError(t, err)

	_, err = st.intern(ok + "x")
	assert.ErrorIs(t, err, ErrMaxStringLength)
	assert.Equal(t, 1, len(st.entries), "rejected string does not pollute the table")
}

func TestRichStringsAlwaysAppended(t *testing.T) {
	st := newSharedStrings()

	runs := []RichRun{
		{Font: &Font{Bold: true}, Text: "bold"},
		{Text: " plain"},
	}
	a, err := st.internRich(runs)
	require.NoError(t, err)
	b, err := st.internRich(runs)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "identical rich strings still get fresh slots")
}

func TestFrozenStringsLookup(t *testing.T) {
	st := newSharedStrings()
	_, err := st.intern("hello")
	require.NoError(t, err)

	fs := st.freeze()
	assert.Equal(t, 1, fs.len())
	assert.Equal(t, "hello", fs.at(0).text)
	assert.Panics(t, func() { fs.at(1) }, "out-of-range index is a defect, not an error")
}
