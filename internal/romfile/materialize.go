package romfile

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// chtimes is replaced in tests.
var chtimes = os.Chtimes

// ErrDigestMismatch is returned when produced content does not hash to the
// candidate's digest.
var ErrDigestMismatch = errors.New("digest mismatch")

// Output describes a produced file.
type Output struct {
	Path  string
	Bytes int64
}

// Materialize produces c in destDir: loose files are copied with their mode
// and modification time, archives have only the matched entry extracted
// under its base name. Content is verified against c.Digest while writing.
func Materialize(c Candidate, destDir string) (Output, error) {
	if c.Kind.Archive() {
		return extract(c, destDir)
	}
	return copyLoose(c, destDir)
}

func copyLoose(c Candidate, destDir string) (Output, error) {
	in, err := os.Open(c.Path)
	if err != nil {
		return Output{}, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return Output{}, err
	}

	dst := filepath.Join(destDir, filepath.Base(c.Path))
	n, err := writeVerified(dst, in, c.Digest, info.Mode().Perm(), info.ModTime())
	if err != nil {
		return Output{}, err
	}
	return Output{Path: dst, Bytes: n}, nil
}

func extract(c Candidate, destDir string) (Output, error) {
	a, err := openArchive(c.Path, c.Kind)
	if err != nil {
		return Output{}, fmt.Errorf("open archive %s: %w", c.Path, err)
	}
	defer a.Close()

	entry, ok := a.lookup(c.Entry)
	if !ok {
		return Output{}, fmt.Errorf("%s: entry %q: %w", c.Path, c.Entry, ErrNoEntry)
	}
	name, err := flatName(entry.name)
	if err != nil {
		return Output{}, fmt.Errorf("%s: %w", c.Path, err)
	}

	rc, err := entry.open()
	if err != nil {
		return Output{}, fmt.Errorf("open %s in %s: %w", entry.name, c.Path, err)
	}
	defer rc.Close()

	dst := filepath.Join(destDir, name)
	n, err := writeVerified(dst, rc, c.Digest, 0o644, entry.modified)
	if err != nil {
		return Output{}, err
	}
	return Output{Path: dst, Bytes: n}, nil
}

// flatName strips any directory prefix from an archive entry name.
func flatName(entry string) (string, error) {
	name := path.Base(strings.ReplaceAll(entry, `\`, "/"))
	if name == "." || name == ".." || name == "/" || name == "" {
		return "", fmt.Errorf("unusable entry name %q", entry)
	}
	return name, nil
}

// writeVerified streams r into dst through a temp file in the same directory,
// renaming only when the MD5 matches want.
func writeVerified(dst string, r io.Reader, want string, mode os.FileMode, modTime time.Time) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".romfilter-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	h := md5.New()
	n, err := io.CopyBuffer(io.MultiWriter(tmp, h), onlyReader{r}, make([]byte, ChunkSize))
	if err != nil {
		tmp.Close()
		return n, fmt.Errorf("write %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("write %s: %w", dst, err)
	}

	got := strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
	if want != "" && !strings.EqualFold(got, want) {
		return n, fmt.Errorf("%s: %w: got %s, want %s", dst, ErrDigestMismatch, got, want)
	}

	if mode == 0 {
		mode = 0o644
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return n, err
	}
	if !modTime.IsZero() {
		if err := chtimes(tmp.Name(), modTime, modTime); err != nil {
			return n, fmt.Errorf("set times on %s: %w", dst, err)
		}
	}
	// dst appears only once fully written, verified and stamped.
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return n, fmt.Errorf("rename into %s: %w", dst, err)
	}
	return n, nil
}
