package output

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/natefinch/atomic"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
)

// Sink receives committed outputs.
type Sink interface {
	Write(url string, data []byte) error
	Remove(url string) error
}

// compressible lists the output extensions that get a .gz sibling.
var compressible = map[string]bool{
	".html": true, ".css": true, ".js": true, ".xml": true,
	".json": true, ".txt": true, ".svg": true,
}

const gzipMinSize = 256

// DirSink writes outputs below a directory using atomic renames.
type DirSink struct {
	root string
	gzip bool
}

// SinkOption configures a DirSink.
type SinkOption func(*DirSink)

// WithGzip enables precompressed .gz siblings for text outputs.
func WithGzip(enabled bool) SinkOption {
	return func(s *DirSink) { s.gzip = enabled }
}

// NewDirSink returns a sink rooted at dir.
func NewDirSink(dir string, opts ...SinkOption) *DirSink {
	s := &DirSink{root: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the output directory.
func (s *DirSink) Root() string { return s.root }

// Path maps a Url onto its file below the root.
func (s *DirSink) Path(url string) string {
	return filepath.Join(s.root, filepath.FromSlash(content.OutputPath(url)))
}

func (s *DirSink) Write(url string, data []byte) error {
	p := s.Path(url)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("ensure dir for %s: %w", url, err)
	}
	if err := atomic.WriteFile(p, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", url, err)
	}
	if !s.gzip {
		return nil
	}
	if !compressible[path.Ext(p)] || len(data) < gzipMinSize {
		return removeIfExists(p + ".gz")
	}
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("gzip %s: %w", url, err)
	}
	if _, err := zw.Write(data); err != nil {
		return fmt.Errorf("gzip %s: %w", url, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("gzip %s: %w", url, err)
	}
	if err := atomic.WriteFile(p+".gz", &buf); err != nil {
		return fmt.Errorf("write %s.gz: %w", url, err)
	}
	return nil
}

// Remove deletes the output for url and its .gz sibling, then prunes empty
// parent directories up to the root.
func (s *DirSink) Remove(url string) error {
	p := s.Path(url)
	if err := removeIfExists(p); err != nil {
		return fmt.Errorf("remove %s: %w", url, err)
	}
	if err := removeIfExists(p + ".gz"); err != nil {
		return fmt.Errorf("remove %s.gz: %w", url, err)
	}
	root := filepath.Clean(s.root)
	for dir := filepath.Dir(p); dir != root && strings.HasPrefix(dir, root); dir = filepath.Dir(dir) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			break
		}
		if err := os.Remove(dir); err != nil {
			break
		}
	}
	return nil
}

func removeIfExists(p string) error {
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// MemorySink keeps outputs in memory. It backs tests and dry runs.
type MemorySink struct {
	mu    sync.Mutex
	Files map[string][]byte
	// Writes counts Write calls per Url.
	Writes map[string]int
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{Files: make(map[string][]byte), Writes: make(map[string]int)}
}

func (m *MemorySink) Write(url string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	url = content.NormalizeURL(url)
	m.Files[url] = append([]byte(nil), data...)
	m.Writes[url]++
	return nil
}

func (m *MemorySink) Remove(url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Files, content.NormalizeURL(url))
	return nil
}
