package romfile

import (
	"archive/zip"
	"fmt"
	"io"
	"time"

	"github.com/bodgit/sevenzip"
)

type archiveEntry struct {
	name     string
	size     uint64
	modified time.Time
	open     func() (io.ReadCloser, error)
}

type archiveReader struct {
	entries []archiveEntry
	closer  io.Closer
}

func (a *archiveReader) Close() error {
	return a.closer.Close()
}

func openArchive(path string, kind Kind) (*archiveReader, error) {
	switch kind {
	case Zip:
		r, err := zip.OpenReader(path)
		if err != nil {
			return nil, err
		}
		out := &archiveReader{closer: r}
		for _, f := range r.File {
			out.entries = append(out.entries, archiveEntry{
				name:     f.Name,
				size:     f.UncompressedSize64,
				modified: f.Modified,
				open:     f.Open,
			})
		}
		return out, nil
	case SevenZip:
		r, err := sevenzip.OpenReader(path)
		if err != nil {
			return nil, err
		}
		out := &archiveReader{closer: r}
		for _, f := range r.File {
			out.entries = append(out.entries, archiveEntry{
				name:     f.Name,
				size:     f.UncompressedSize,
				modified: f.Modified,
				open:     f.Open,
			})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s is not an archive kind", kind)
	}
}

// firstImage returns the first entry recognized by ext.
func (a *archiveReader) firstImage(ext Extensions) (archiveEntry, bool) {
	for _, e := range a.entries {
		if ext.IsImageEntry(e.name) {
			return e, true
		}
	}
	return archiveEntry{}, false
}

func (a *archiveReader) lookup(name string) (archiveEntry, bool) {
	for _, e := range a.entries {
		if e.name == name {
			return e, true
		}
	}
	return archiveEntry{}, false
}
