// Package source provides the overlaid source filesystem a build reads from.
// Roots are searched in order and the first root holding a path wins, which
// lets a site shadow files of the themes layered beneath it.
package source

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/zeebo/blake3"
)

// Reader is the read side of the source filesystem used by processors.
type Reader interface {
	Read(name string) ([]byte, error)
	Exists(name string) bool
	Fingerprint(name string) (string, error)
}

// Root is one layer of the overlay.
type Root struct {
	Name string
	FS   fs.FS
	// Dir is the on-disk directory backing FS, empty for in-memory roots.
	Dir string
}

// Overlay merges several roots; earlier roots shadow later ones.
type Overlay struct {
	roots []Root

	mu     sync.Mutex
	hashes map[string]string
}

// New builds an overlay from explicit roots.
func New(roots ...Root) *Overlay {
	return &Overlay{roots: roots, hashes: make(map[string]string)}
}

// NewDirs builds an overlay from on-disk directories in priority order.
func NewDirs(dirs ...string) *Overlay {
	roots := make([]Root, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			abs = d
		}
		roots = append(roots, Root{Name: filepath.Base(abs), FS: os.DirFS(abs), Dir: abs})
	}
	return New(roots...)
}

// Roots returns the configured roots in priority order.
func (o *Overlay) Roots() []Root {
	return append([]Root(nil), o.roots...)
}

// Dirs returns the on-disk directories of all roots that have one.
func (o *Overlay) Dirs() []string {
	var out []string
	for _, r := range o.roots {
		if r.Dir != "" {
			out = append(out, r.Dir)
		}
	}
	return out
}

// Walk enumerates regular files below dir across all roots. Shadowed files
// appear once. Hidden files and directories are skipped. The result is sorted.
func (o *Overlay) Walk(dir string) ([]string, error) {
	dir = clean(dir)
	seen := make(map[string]struct{})
	var out []string
	for _, r := range o.roots {
		if _, err := fs.Stat(r.FS, dir); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s in %s: %w", dir, r.Name, err)
		}
		err := fs.WalkDir(r.FS, dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p != dir && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			if _, dup := seen[p]; dup {
				return nil
			}
			seen[p] = struct{}{}
			out = append(out, p)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s in %s: %w", dir, r.Name, err)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Resolve returns the root that serves name.
func (o *Overlay) Resolve(name string) (Root, bool) {
	name = clean(name)
	for _, r := range o.roots {
		if st, err := fs.Stat(r.FS, name); err == nil && !st.IsDir() {
			return r, true
		}
	}
	return Root{}, false
}

// Exists reports whether any root holds the file.
func (o *Overlay) Exists(name string) bool {
	_, ok := o.Resolve(name)
	return ok
}

// Read returns the bytes of the first root holding name.
func (o *Overlay) Read(name string) ([]byte, error) {
	name = clean(name)
	r, ok := o.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("read %s: %w", name, fs.ErrNotExist)
	}
	b, err := fs.ReadFile(r.FS, name)
	if err != nil {
		return nil, fmt.Errorf("read %s from %s: %w", name, r.Name, err)
	}
	return b, nil
}

// Fingerprint returns the blake3 hash of the file. Results are cached until
// Invalidate is called for the path.
func (o *Overlay) Fingerprint(name string) (string, error) {
	name = clean(name)
	o.mu.Lock()
	if h, ok := o.hashes[name]; ok {
		o.mu.Unlock()
		return h, nil
	}
	o.mu.Unlock()

	b, err := o.Read(name)
	if err != nil {
		return "", err
	}
	h := Hash(b)

	o.mu.Lock()
	o.hashes[name] = h
	o.mu.Unlock()
	return h, nil
}

// Invalidate drops cached fingerprints. With no arguments the whole cache is
// cleared.
func (o *Overlay) Invalidate(names ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(names) == 0 {
		o.hashes = make(map[string]string)
		return
	}
	for _, n := range names {
		delete(o.hashes, clean(n))
	}
}

// Rel maps an absolute on-disk path onto an overlay-relative path.
func (o *Overlay) Rel(abs string) (string, bool) {
	for _, r := range o.roots {
		if r.Dir == "" {
			continue
		}
		rel, err := filepath.Rel(r.Dir, abs)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		return filepath.ToSlash(rel), true
	}
	return "", false
}

// Hash returns the hex blake3 digest of b.
func Hash(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func clean(name string) string {
	name = strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(name)), "/")
	if name == "" {
		return "."
	}
	return name
}
