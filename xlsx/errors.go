package xlsx

import "errors"

// Errors returned by the builder surface. Each failed call leaves the
// workbook model untouched, so callers may drop the offending write and
// continue.
var (
	// ErrRowColumnLimit indicates a row or column index outside the
	// worksheet bounds (1,048,576 rows by 16,384 columns, zero-indexed).
	ErrRowColumnLimit = errors.New("row or column exceeds worksheet limits")

	// ErrRangeOrder indicates a range whose first cell is below or to the
	// right of its last cell.
	ErrRangeOrder = errors.New("range first cell is after last cell")

	// ErrMaxStringLength indicates a string longer than the 32,767
	// character cell limit.
	ErrMaxStringLength = errors.New("string exceeds the 32767 character limit")

	// ErrMergeOverlap indicates a merge range that shares cells with a
	// previously added merge range.
	ErrMergeOverlap = errors.New("merge range overlaps an existing merge range")

	// ErrMergeSingleCell indicates a merge range that spans fewer than
	// two cells.
	ErrMergeSingleCell = errors.New("merge range must span at least two cells")

	// ErrRowOrder indicates a write below an already flushed row in a
	// constant-memory worksheet.
	ErrRowOrder = errors.New("row was already flushed in constant-memory mode")

	// ErrCapability indicates an operation that the worksheet's storage
	// mode cannot support.
	ErrCapability = errors.New("operation is not available in constant-memory mode")

	// ErrSheetConsumed indicates a second save of a workbook whose
	// constant-memory spill data has already been read back and removed.
	ErrSheetConsumed = errors.New("constant-memory sheet data was already consumed by a previous save")

	// ErrDuplicateName indicates a sheet or defined name that collides
	// with an existing one.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrUnsupportedImage indicates image data in a format the package
	// cannot probe or embed.
	ErrUnsupportedImage = errors.New("unsupported image format")

	// ErrInternalConsistency signals a defect in this package: an r:id
	// reference and its .rels entry went out of sync. Correct use of the
	// public API can not produce it.
	ErrInternalConsistency = errors.New("internal relationship consistency violation")
)
