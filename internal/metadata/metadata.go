// Package metadata reads and writes the archive's JSON sidecar records:
// the root record holding the save counter and one record per save slot.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jmcdonald/savebak/internal/ports"
)

// FileName is the name of every metadata record, both at the archive root
// and inside each slot directory.
const FileName = "metadata"

// DateLayout is how slot capture times are rendered.
const DateLayout = "2006-01-02 15:04:05"

// ErrNotFound is returned when a slot record is missing or cannot be parsed.
var ErrNotFound = errors.New("save not found")

// Root is the archive root record.
type Root struct {
	LastSaveNumber int `json:"last_save_number"`
}

// Slot is the metadata record of one archived save.
type Slot struct {
	SaveNumber  int    `json:"save_number"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

// NewSlot builds a slot record stamped with t truncated to whole seconds.
func NewSlot(saveNumber int, description string, t time.Time) Slot {
	return Slot{
		SaveNumber:  saveNumber,
		Date:        t.Truncate(time.Second).Format(DateLayout),
		Description: description,
	}
}

// Time parses Date in the local time zone.
func (s Slot) Time() (time.Time, error) {
	return time.ParseInLocation(DateLayout, s.Date, time.Local)
}

// Store reads and writes metadata records under an archive directory.
type Store struct {
	fs         ports.FileSystem
	archiveDir string

	// SkipCorrupt makes GetSaves omit unreadable slot records instead of failing.
	SkipCorrupt bool
	// Logger receives warnings about skipped records. Nil discards them.
	Logger *slog.Logger
}

// NewStore creates a store rooted at archiveDir.
func NewStore(fsys ports.FileSystem, archiveDir string) *Store {
	return &Store{fs: fsys, archiveDir: archiveDir}
}

// ArchiveDir returns the directory the store is rooted at.
func (s *Store) ArchiveDir() string {
	return s.archiveDir
}

// RootPath returns the path of the root record.
func (s *Store) RootPath() string {
	return filepath.Join(s.archiveDir, FileName)
}

// SlotDir returns the directory of slot n.
func (s *Store) SlotDir(n int) string {
	return filepath.Join(s.archiveDir, strconv.Itoa(n))
}

// SlotPath returns the path of slot n's record.
func (s *Store) SlotPath(n int) string {
	return filepath.Join(s.SlotDir(n), FileName)
}

func (s *Store) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

// HasRoot reports whether the root record exists.
func (s *Store) HasRoot() (bool, error) {
	_, err := s.fs.Stat(s.RootPath())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// LastSaveNumber returns the root counter, creating the root record with a
// value of 0 when it does not exist yet.
func (s *Store) LastSaveNumber() (int, error) {
	data, err := s.fs.ReadFile(s.RootPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := s.writeRoot(Root{}); err != nil {
				return 0, err
			}
			return 0, nil
		}
		return 0, fmt.Errorf("reading root metadata: %w", err)
	}

	var root Root
	if err := json.Unmarshal(data, &root); err != nil {
		return 0, fmt.Errorf("parsing root metadata: %w", err)
	}
	return root.LastSaveNumber, nil
}

// SetLastSaveNumber overwrites the root counter with n.
func (s *Store) SetLastSaveNumber(n int) error {
	return s.writeRoot(Root{LastSaveNumber: n})
}

// writeRoot replaces the root record via a temp file and rename.
func (s *Store) writeRoot(root Root) error {
	if err := s.fs.MkdirAll(s.archiveDir, 0755); err != nil {
		return fmt.Errorf("creating archive dir: %w", err)
	}

	data, err := json.Marshal(root)
	if err != nil {
		return err
	}

	tmp := s.RootPath() + ".tmp"
	if err := s.fs.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing root metadata: %w", err)
	}
	if err := s.fs.Rename(tmp, s.RootPath()); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replacing root metadata: %w", err)
	}
	return nil
}

// WriteSlot writes a slot record into dir. Slot records are written once.
func (s *Store) WriteSlot(dir string, slot Slot) error {
	data, err := json.Marshal(slot)
	if err != nil {
		return err
	}
	if err := s.fs.WriteFile(filepath.Join(dir, FileName), data, 0644); err != nil {
		return fmt.Errorf("writing save metadata: %w", err)
	}
	return nil
}

// GetSave loads slot n's record.
func (s *Store) GetSave(n int) (Slot, error) {
	data, err := s.fs.ReadFile(s.SlotPath(n))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Slot{}, fmt.Errorf("save %d: %w", n, ErrNotFound)
		}
		return Slot{}, fmt.Errorf("reading save %d: %w", n, err)
	}

	var slot Slot
	if err := json.Unmarshal(data, &slot); err != nil {
		return Slot{}, fmt.Errorf("save %d: malformed metadata (%v): %w", n, err, ErrNotFound)
	}
	if slot.SaveNumber < 1 {
		return Slot{}, fmt.Errorf("save %d: invalid save number %d: %w", n, slot.SaveNumber, ErrNotFound)
	}
	return slot, nil
}

// GetSaves loads every slot from 1 to the root counter, keyed by each
// record's own save number. It returns an empty map without touching the
// disk when the root record does not exist.
func (s *Store) GetSaves() (map[int]Slot, error) {
	saves := make(map[int]Slot)

	ok, err := s.HasRoot()
	if err != nil {
		return nil, fmt.Errorf("checking root metadata: %w", err)
	}
	if !ok {
		return saves, nil
	}

	last, err := s.LastSaveNumber()
	if err != nil {
		return nil, err
	}

	for n := 1; n <= last; n++ {
		slot, err := s.GetSave(n)
		if err != nil {
			if s.SkipCorrupt && errors.Is(err, ErrNotFound) {
				s.logger().Warn("skipping unreadable save", "save", n, "error", err)
				continue
			}
			return nil, err
		}
		saves[slot.SaveNumber] = slot
	}
	return saves, nil
}
