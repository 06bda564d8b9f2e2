package romfile

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Kind is the container type of a candidate file.
type Kind int

const (
	Loose Kind = iota
	Zip
	SevenZip
)

func (k Kind) String() string {
	switch k {
	case Zip:
		return "zip"
	case SevenZip:
		return "7z"
	default:
		return "loose"
	}
}

// Archive reports whether the candidate is read through an archive.
func (k Kind) Archive() bool {
	return k != Loose
}

// Candidate is a file of the local collection being evaluated for a match.
// For archives, Entry names the first qualifying inner image.
type Candidate struct {
	Path    string
	Kind    Kind
	Size    int64
	ModTime time.Time
	Entry   string
	Digest  string
}

// Name is the outer file name.
func (c Candidate) Name() string {
	return filepath.Base(c.Path)
}

// Extensions lists the recognized image and archive suffixes.
type Extensions struct {
	Images   []string
	Archives map[string]Kind
}

// DefaultExtensions is the Nintendo 64 set: .z64 (big endian), .n64 (little
// endian), .v64 (byte swapped), in .zip or .7z archives.
func DefaultExtensions() Extensions {
	return Extensions{
		Images:   []string{".z64", ".n64", ".v64"},
		Archives: map[string]Kind{".zip": Zip, ".7z": SevenZip},
	}
}

// WithImages returns a copy using the given image extensions.
func (e Extensions) WithImages(images []string) Extensions {
	out := Extensions{Archives: e.Archives}
	for _, ext := range images {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out.Images = append(out.Images, ext)
	}
	return out
}

// KindOf classifies an outer file name. Matching is case-insensitive.
func (e Extensions) KindOf(name string) (Kind, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return Loose, false
	}
	if k, ok := e.Archives[ext]; ok {
		return k, true
	}
	for _, img := range e.Images {
		if ext == strings.ToLower(img) {
			return Loose, true
		}
	}
	return Loose, false
}

// IsImageEntry reports whether an inner archive entry is an image. Unlike
// KindOf this comparison is case-sensitive: "GAME.Z64" inside an archive is
// not recognized.
func (e Extensions) IsImageEntry(name string) bool {
	for _, img := range e.Images {
		if strings.HasSuffix(name, img) {
			return true
		}
	}
	return false
}

// Key identifies the image set, independent of order. Cached archive digests
// are only reused under the same key.
func (e Extensions) Key() string {
	images := slices.Clone(e.Images)
	slices.Sort(images)
	return strings.Join(slices.Compact(images), ",")
}
