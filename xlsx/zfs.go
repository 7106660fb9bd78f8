package xlsx

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Storage is the byte sink for assembled package parts. Implementations
// write to ZIP archives or to a directory tree.
type Storage interface {
	WriteBlob(path string, blob []byte) error
}

// DirStorage writes package parts into a directory structure on disk.
// Useful for debugging, as the generated XML can be inspected directly.
type DirStorage struct {
	Dir string
}

// NewDirStorage creates a directory-backed storage rooted at dir.
// Directories are created as needed.
func NewDirStorage(dir string) *DirStorage {
	return &DirStorage{Dir: dir}
}

// WriteBlob writes one part, creating parent directories automatically.
func (ds *DirStorage) WriteBlob(path string, blob []byte) error {
	path = strings.TrimPrefix(path, "/")
	fn := filepath.Join(ds.Dir, path)
	err := os.MkdirAll(filepath.Dir(fn), 0777)
	if err != nil {
		return err
	}
	return os.WriteFile(fn, blob, 0666)
}

// ZipStorage writes package parts into a ZIP archive, producing a
// standard .xlsx stream.
type ZipStorage struct {
	z *zip.Writer
}

// NewZipStorage creates a ZIP-backed storage writing to out.
func NewZipStorage(out io.Writer) *ZipStorage {
	return &ZipStorage{z: zip.NewWriter(out)}
}

// WriteBlob writes one part as a ZIP entry.
func (zs *ZipStorage) WriteBlob(path string, blob []byte) error {
	path = strings.TrimPrefix(path, "/")
	f, err := zs.z.Create(path)
	if err != nil {
		return err
	}
	_, err = f.Write(blob)
	return err
}

// Close finalizes the archive. Skipping it leaves the ZIP central
// directory unwritten and the file unreadable.
func (zs *ZipStorage) Close() error {
	return zs.z.Close()
}
