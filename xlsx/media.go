package xlsx

import (
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
)

// BlobHash digests a media blob into a 128-bit content hash.
func BlobHash(blob []byte) uuid.UUID {
	h := fnv.New128()
	h.Write(blob)
	uid, _ := uuid.FromBytes(h.Sum([]byte{}))
	return uid
}

// MediaInfo is one stored media blob under xl/media. The name is derived
// from the content hash, so byte-identical blobs registered from any
// number of placements share a single package entry while every
// placement still gets its own relationship id.
type MediaInfo struct {
	Name        string
	Blob        []byte
	ContentType string
}

type mediaRegistry struct {
	list  []*MediaInfo
	index map[string]*MediaInfo
}

func newMediaRegistry() *mediaRegistry {
	return &mediaRegistry{index: map[string]*MediaInfo{}}
}

// add registers a blob, deduplicating by content hash.
func (mr *mediaRegistry) add(blob []byte, ext, ctype string) *MediaInfo {
	n := fmt.Sprintf("%.16x.%s", BlobHash(blob), ext)
	if info, ok := mr.index[n]; ok {
		return info
	}
	info := &MediaInfo{Name: n, Blob: blob, ContentType: ctype}
	mr.index[n] = info
	mr.list = append(mr.list, info)
	return info
}
