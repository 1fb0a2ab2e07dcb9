// Package mocks provides mock implementations for testing.
package mocks

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmcdonald/savebak/internal/ports"
)

// MockFileSystem implements ports.FileSystem as an in-memory tree.
// Paths are slash-separated and cleaned before use.
type MockFileSystem struct {
	// Files maps paths to file contents
	Files map[string][]byte
	// Dirs records which directories exist
	Dirs map[string]bool
	// Errors maps paths to errors (for simulating failures)
	Errors map[string]error
	// Calls records mutating operations in order, e.g. "mkdir /a", "write /a/b"
	Calls []string
}

// NewMockFileSystem creates a new mock filesystem containing only "/".
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Files:  make(map[string][]byte),
		Dirs:   map[string]bool{"/": true},
		Errors: make(map[string]error),
	}
}

// AddFile creates a file and all of its parent directories.
func (m *MockFileSystem) AddFile(name string, data []byte) {
	name = path.Clean(name)
	m.addDirs(path.Dir(name))
	m.Files[name] = data
}

// AddDir creates a directory and all of its parents.
func (m *MockFileSystem) AddDir(name string) {
	m.addDirs(path.Clean(name))
}

func (m *MockFileSystem) addDirs(dir string) {
	for {
		m.Dirs[dir] = true
		parent := path.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func (m *MockFileSystem) fail(name string) error {
	if err, ok := m.Errors[path.Clean(name)]; ok {
		return err
	}
	return nil
}

func (m *MockFileSystem) ReadDir(name string) ([]os.DirEntry, error) {
	name = path.Clean(name)
	if err := m.fail(name); err != nil {
		return nil, err
	}
	if !m.Dirs[name] {
		if _, ok := m.Files[name]; ok {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
		}
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}

	var entries []os.DirEntry
	for p, data := range m.Files {
		if path.Dir(p) == name {
			entries = append(entries, &mockDirEntry{info: mockFileInfo{name: path.Base(p), size: int64(len(data))}})
		}
	}
	for d := range m.Dirs {
		if d != name && path.Dir(d) == name {
			entries = append(entries, &mockDirEntry{info: mockFileInfo{name: path.Base(d), isDir: true}})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (m *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	name = path.Clean(name)
	if err := m.fail(name); err != nil {
		return nil, err
	}
	if m.Dirs[name] {
		return &mockFileInfo{name: path.Base(name), isDir: true}, nil
	}
	if data, ok := m.Files[name]; ok {
		return &mockFileInfo{name: path.Base(name), size: int64(len(data))}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

func (m *MockFileSystem) MkdirAll(p string, perm os.FileMode) error {
	p = path.Clean(p)
	if err := m.fail(p); err != nil {
		return err
	}
	m.Calls = append(m.Calls, "mkdir "+p)
	m.addDirs(p)
	return nil
}

func (m *MockFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	name = path.Clean(name)
	if err := m.fail(name); err != nil {
		return err
	}
	if !m.Dirs[path.Dir(name)] {
		return &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	m.Calls = append(m.Calls, "write "+name)
	m.Files[name] = append([]byte(nil), data...)
	return nil
}

func (m *MockFileSystem) ReadFile(name string) ([]byte, error) {
	name = path.Clean(name)
	if err := m.fail(name); err != nil {
		return nil, err
	}
	if content, ok := m.Files[name]; ok {
		return content, nil
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

func (m *MockFileSystem) Remove(name string) error {
	name = path.Clean(name)
	if err := m.fail(name); err != nil {
		return err
	}
	m.Calls = append(m.Calls, "remove "+name)
	if _, ok := m.Files[name]; ok {
		delete(m.Files, name)
		return nil
	}
	if m.Dirs[name] {
		delete(m.Dirs, name)
		return nil
	}
	return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
}

func (m *MockFileSystem) RemoveAll(p string) error {
	p = path.Clean(p)
	if err := m.fail(p); err != nil {
		return err
	}
	m.Calls = append(m.Calls, "removeall "+p)
	for k := range m.Files {
		if k == p || strings.HasPrefix(k, p+"/") {
			delete(m.Files, k)
		}
	}
	for k := range m.Dirs {
		if k == p || strings.HasPrefix(k, p+"/") {
			delete(m.Dirs, k)
		}
	}
	return nil
}

// Rename moves a file or a whole directory subtree.
func (m *MockFileSystem) Rename(oldpath, newpath string) error {
	oldpath, newpath = path.Clean(oldpath), path.Clean(newpath)
	if err := m.fail(oldpath); err != nil {
		return err
	}
	if err := m.fail(newpath); err != nil {
		return err
	}
	m.Calls = append(m.Calls, "rename "+oldpath+" "+newpath)
	if content, ok := m.Files[oldpath]; ok {
		m.Files[newpath] = content
		delete(m.Files, oldpath)
		return nil
	}
	if !m.Dirs[oldpath] {
		return &fs.PathError{Op: "rename", Path: oldpath, Err: fs.ErrNotExist}
	}
	if m.Dirs[newpath] {
		return &fs.PathError{Op: "rename", Path: newpath, Err: fs.ErrExist}
	}
	for k, v := range m.Files {
		if strings.HasPrefix(k, oldpath+"/") {
			m.Files[newpath+strings.TrimPrefix(k, oldpath)] = v
			delete(m.Files, k)
		}
	}
	for k := range m.Dirs {
		if k == oldpath || strings.HasPrefix(k, oldpath+"/") {
			m.Dirs[newpath+strings.TrimPrefix(k, oldpath)] = true
			delete(m.Dirs, k)
		}
	}
	return nil
}

func (m *MockFileSystem) Open(name string) (io.ReadCloser, error) {
	name = path.Clean(name)
	if err := m.fail(name); err != nil {
		return nil, err
	}
	content, ok := m.Files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

// OpenFile returns a writer whose contents land in Files on Close.
func (m *MockFileSystem) OpenFile(name string, flag int, perm os.FileMode) (io.WriteCloser, error) {
	name = path.Clean(name)
	if err := m.fail(name); err != nil {
		return nil, err
	}
	if !m.Dirs[path.Dir(name)] {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	_, exists := m.Files[name]
	if exists && flag&os.O_EXCL != 0 {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrExist}
	}
	if !exists && flag&os.O_CREATE == 0 {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	m.Calls = append(m.Calls, "write "+name)
	m.Files[name] = []byte{}
	return &mockWriter{fs: m, name: name}, nil
}

type mockWriter struct {
	fs   *MockFileSystem
	name string
	buf  bytes.Buffer
}

func (w *mockWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *mockWriter) Close() error {
	w.fs.Files[w.name] = w.buf.Bytes()
	return nil
}

// mockFileInfo implements os.FileInfo for testing.
type mockFileInfo struct {
	name  string
	size  int64
	isDir bool
}

func (fi *mockFileInfo) Name() string { return fi.name }
func (fi *mockFileInfo) Size() int64  { return fi.size }
func (fi *mockFileInfo) Mode() os.FileMode {
	if fi.isDir {
		return os.ModeDir | 0755
	}
	return 0644
}
func (fi *mockFileInfo) ModTime() time.Time { return time.Time{} }
func (fi *mockFileInfo) IsDir() bool        { return fi.isDir }
func (fi *mockFileInfo) Sys() interface{}   { return nil }

// mockDirEntry implements os.DirEntry for testing.
type mockDirEntry struct {
	info mockFileInfo
}

func (e *mockDirEntry) Name() string               { return e.info.name }
func (e *mockDirEntry) IsDir() bool                { return e.info.isDir }
func (e *mockDirEntry) Type() fs.FileMode          { return e.info.Mode().Type() }
func (e *mockDirEntry) Info() (fs.FileInfo, error) { return &e.info, nil }

// Compile-time check that MockFileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*MockFileSystem)(nil)
