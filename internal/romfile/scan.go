package romfile

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Another0Noob/romfilter/internal/logging"
)

// ChunkSize is the read size used while hashing.
const ChunkSize = 64 << 10

// ErrNoEntry is returned for archives holding no recognized image.
var ErrNoEntry = errors.New("archive has no recognized image entry")

// DigestCache remembers digests between runs. images is the image extension
// set an archive entry was chosen with (see Extensions.Key); it is empty for
// loose files.
type DigestCache interface {
	Lookup(path string, size int64, modTime time.Time, images string) (entry, digest string, ok bool)
	Store(path string, size int64, modTime time.Time, images, entry, digest string) error
}

// Scanner lists and hashes candidate files.
type Scanner struct {
	Ext    Extensions
	Cache  DigestCache
	Logger *slog.Logger
}

// NewScanner returns a scanner for ext. cache may be nil.
func NewScanner(ext Extensions, cache DigestCache, logger *slog.Logger) *Scanner {
	return &Scanner{Ext: ext, Cache: cache, Logger: logging.NewComponentLogger(logger, "scan")}
}

// List enumerates the candidates directly inside dir, sorted by name.
// Subdirectories are not descended into.
func (s *Scanner) List(dir string) ([]Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var out []Candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		kind, ok := s.Ext.KindOf(e.Name())
		if !ok {
			continue
		}
		path := filepath.Join(dir, e.Name())
		// Stat follows symlinks.
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, Candidate{
			Path:    path,
			Kind:    kind,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return out, nil
}

// Digest fills c.Digest (and c.Entry for archives) with the MD5 of the image
// content, streamed in ChunkSize reads.
func (s *Scanner) Digest(c *Candidate) error {
	var images string
	if c.Kind.Archive() {
		images = s.Ext.Key()
	}

	if s.Cache != nil {
		entry, digest, ok := s.Cache.Lookup(c.Path, c.Size, c.ModTime, images)
		if ok && (!c.Kind.Archive() || s.Ext.IsImageEntry(entry)) {
			c.Entry, c.Digest = entry, digest
			return nil
		}
	}

	var err error
	if c.Kind.Archive() {
		err = s.digestArchive(c)
	} else {
		err = s.digestLoose(c)
	}
	if err != nil {
		return err
	}

	if s.Cache != nil {
		if err := s.Cache.Store(c.Path, c.Size, c.ModTime, images, c.Entry, c.Digest); err != nil {
			s.logger().Warn("digest cache store failed", slog.String("path", c.Path), logging.Error(err))
		}
	}
	return nil
}

func (s *Scanner) digestLoose(c *Candidate) error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	digest, _, err := HashReader(f)
	if err != nil {
		return fmt.Errorf("hash %s: %w", c.Path, err)
	}
	c.Digest = digest
	return nil
}

func (s *Scanner) digestArchive(c *Candidate) error {
	a, err := openArchive(c.Path, c.Kind)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", c.Path, err)
	}
	defer a.Close()

	entry, ok := a.firstImage(s.Ext)
	if !ok {
		return fmt.Errorf("%s: %w", c.Path, ErrNoEntry)
	}
	rc, err := entry.open()
	if err != nil {
		return fmt.Errorf("open %s in %s: %w", entry.name, c.Path, err)
	}
	defer rc.Close()

	digest, _, err := HashReader(rc)
	if err != nil {
		return fmt.Errorf("hash %s in %s: %w", entry.name, c.Path, err)
	}
	c.Entry, c.Digest = entry.name, digest
	return nil
}

func (s *Scanner) logger() *slog.Logger {
	if s.Logger == nil {
		return logging.NewNop()
	}
	return s.Logger
}

// HashReader returns the uppercase hex MD5 of r and the number of bytes read.
func HashReader(r io.Reader) (string, int64, error) {
	h := md5.New()
	n, err := io.CopyBuffer(h, onlyReader{r}, make([]byte, ChunkSize))
	if err != nil {
		return "", n, err
	}
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil))), n, nil
}

// HashFile hashes a whole file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	digest, _, err := HashReader(f)
	return digest, err
}

// onlyReader hides WriterTo so io.CopyBuffer uses the given buffer.
type onlyReader struct {
	io.Reader
}
