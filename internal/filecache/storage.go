package filecache

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jmgilman/go/fs/core"
)

// tempDirName holds in-progress writes under the cache directory.
const tempDirName = ".tmp"

// Storage writes and reads entry files under one directory. Writes go to
// a temporary file that is renamed into place, so readers only ever see a
// complete file or no file.
type Storage struct {
	fs       core.FS
	rootPath string
	tempDir  string
	locks    pathLocks

	// fsMu guards directory metadata: creating, renaming, removing and
	// listing files. In-memory providers do not guard their directory maps
	// against concurrent mutation. File contents are read and written
	// outside it.
	fsMu sync.RWMutex
}

// pathLocks hands out one mutex per path. A mutex is dropped once no
// caller holds or waits for it, so the map only holds in-flight paths.
type pathLocks struct {
	mu sync.Mutex
	m  map[string]*pathLock
}

type pathLock struct {
	sync.Mutex
	refs int
}

// lock acquires the mutex for path and returns its release function.
func (p *pathLocks) lock(path string) func() {
	p.mu.Lock()
	if p.m == nil {
		p.m = make(map[string]*pathLock)
	}
	l, ok := p.m[path]
	if !ok {
		l = &pathLock{}
		p.m[path] = l
	}
	l.refs++
	p.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		p.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(p.m, path)
		}
		p.mu.Unlock()
	}
}

// held returns the number of paths with a holder or waiter.
func (p *pathLocks) held() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

// NewStorage returns a Storage rooted at rootPath. The directory is not
// created; see Store.EnsureDirectory.
func NewStorage(fsys core.FS, rootPath string) (*Storage, error) {
	if fsys == nil {
		return nil, fmt.Errorf("filesystem cannot be nil")
	}
	if rootPath == "" {
		return nil, fmt.Errorf("root path cannot be empty")
	}

	return &Storage{
		fs:       fsys,
		rootPath: rootPath,
		tempDir:  filepath.Join(rootPath, tempDirName),
	}, nil
}

// Root returns the directory entries are stored in.
func (s *Storage) Root() string {
	return s.rootPath
}

// Path returns the full path of the entry file name.
func (s *Storage) Path(name string) string {
	return filepath.Join(s.rootPath, name)
}

// MkdirAll creates the cache directory and its parents.
func (s *Storage) MkdirAll() error {
	s.fsMu.Lock()
	defer s.fsMu.Unlock()
	return s.fs.MkdirAll(s.rootPath, 0o755)
}

// WriteAtomically stores payload under name with a header recording c and
// the payload checksum.
func (s *Storage) WriteAtomically(ctx context.Context, name string, c Compression, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	fullPath := s.Path(name)

	unlock := s.locks.lock(fullPath)
	defer unlock()

	tempPath, err := s.tempPath(name)
	if err != nil {
		return err
	}

	s.fsMu.Lock()
	err = s.fs.MkdirAll(s.tempDir, 0o755)
	var file core.File
	if err == nil {
		file, err = s.fs.Create(tempPath)
	}
	s.fsMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to create temp file %q: %w", tempPath, err)
	}

	// The temp name is unique, so its contents need no shared lock.
	_, err = file.Write(encodeEntry(c, payload))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		s.remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// A cancelled build leaves no partial final file behind.
	if err := ctx.Err(); err != nil {
		s.remove(tempPath)
		return fmt.Errorf("context cancelled: %w", err)
	}

	s.fsMu.Lock()
	err = s.fs.Rename(tempPath, fullPath)
	s.fsMu.Unlock()
	if err != nil {
		s.remove(tempPath)
		return fmt.Errorf("failed to rename temp file to %q: %w", fullPath, err)
	}
	return nil
}

func (s *Storage) remove(path string) {
	s.fsMu.Lock()
	_ = s.fs.Remove(path)
	s.fsMu.Unlock()
}

// ReadWithIntegrity returns the verified payload stored under name and the
// compression it was stored with. A missing file yields ErrEntryNotFound.
func (s *Storage) ReadWithIntegrity(ctx context.Context, name string) (Compression, []byte, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, fmt.Errorf("context cancelled: %w", err)
	}

	fullPath := s.Path(name)

	unlock := s.locks.lock(fullPath)
	defer unlock()

	s.fsMu.RLock()
	file, err := s.fs.Open(fullPath)
	s.fsMu.RUnlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("%w: %s", ErrEntryNotFound, fullPath)
		}
		return "", nil, fmt.Errorf("failed to open %q: %w", fullPath, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read %q: %w", fullPath, err)
	}

	return decodeEntry(data)
}

// List returns the names of all entry files in the cache directory.
func (s *Storage) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	s.fsMu.RLock()
	defer s.fsMu.RUnlock()

	exists, err := s.fs.Exists(s.rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to check directory existence: %w", err)
	}
	if !exists {
		return []string{}, nil
	}

	entries, err := s.fs.ReadDir(s.rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %q: %w", s.rootPath, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), entrySuffix) {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

// CleanupTempFiles removes temp files left behind by interrupted writes and
// returns how many were removed.
func (s *Storage) CleanupTempFiles(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context cancelled: %w", err)
	}

	s.fsMu.Lock()
	defer s.fsMu.Unlock()

	exists, err := s.fs.Exists(s.tempDir)
	if err != nil {
		return 0, fmt.Errorf("failed to check temp directory: %w", err)
	}
	if !exists {
		return 0, nil
	}

	entries, err := s.fs.ReadDir(s.tempDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read temp directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		path := filepath.Join(s.tempDir, entry.Name())
		if err := s.fs.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to remove temp file %q: %w", path, err)
		}
		removed++
	}
	return removed, nil
}

func (s *Storage) tempPath(name string) (string, error) {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("failed to generate temp file name: %w", err)
	}
	return filepath.Join(s.tempDir, name+"."+hex.EncodeToString(suffix)), nil
}

// encodeEntry prepends the header line "<compression> <sha256-hex>\n".
func encodeEntry(c Compression, payload []byte) []byte {
	sum := sha256.Sum256(payload)
	header := string(c) + " " + hex.EncodeToString(sum[:]) + "\n"

	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	return append(out, payload...)
}

// decodeEntry splits an entry file into its compression and verified payload.
func decodeEntry(data []byte) (Compression, []byte, error) {
	header, payload, ok := bytes.Cut(data, []byte("\n"))
	if !ok {
		return "", nil, fmt.Errorf("%w: missing header", ErrCacheCorrupted)
	}

	name, expected, ok := strings.Cut(string(header), " ")
	if !ok {
		return "", nil, fmt.Errorf("%w: malformed header", ErrCacheCorrupted)
	}
	c, err := ParseCompression(name)
	if err != nil || name == "" {
		return "", nil, fmt.Errorf("%w: unknown compression %q", ErrCacheCorrupted, name)
	}

	sum := sha256.Sum256(payload)
	if hex.EncodeToString(sum[:]) != expected {
		return "", nil, fmt.Errorf("%w: checksum mismatch", ErrCacheCorrupted)
	}
	return c, payload, nil
}
