// Package archive creates numbered save slots and copies game save files
// into and out of them.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jmcdonald/savebak/internal/adapters/osfs"
	"github.com/jmcdonald/savebak/internal/config"
	"github.com/jmcdonald/savebak/internal/metadata"
	"github.com/jmcdonald/savebak/internal/ports"
)

// FilesDir is the sub-directory of a slot holding the copied save files.
const FilesDir = "files"

const (
	lockName      = ".lock"
	stagingPrefix = ".staging-"
	orphanPrefix  = ".orphan-"
)

var (
	// ErrSourceUnavailable is returned when the directory to copy from is
	// missing or is not a directory.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrInvalidInput is returned for a blank save description.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLocked is returned when another process holds the archive lock.
	ErrLocked = errors.New("archive is locked")
)

// NewSave describes a freshly created slot.
type NewSave struct {
	Slot      metadata.Slot
	Path      string
	FilesPath string
}

// Archive manages the save slots under one archive directory for one live
// save directory.
type Archive struct {
	fs      ports.FileSystem
	store   *metadata.Store
	liveDir string
	logger  *slog.Logger

	// Now returns the capture time for new slots (defaults to time.Now)
	Now func() time.Time
}

// New creates an archive with the given dependencies. A nil logger discards output.
func New(fsys ports.FileSystem, archiveDir, liveDir string, logger *slog.Logger) *Archive {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	store := metadata.NewStore(fsys, archiveDir)
	store.Logger = logger
	return &Archive{
		fs:      fsys,
		store:   store,
		liveDir: liveDir,
		logger:  logger,
		Now:     time.Now,
	}
}

// NewFromConfig creates an archive on the real filesystem using the paths
// and corrupt-record policy from cfg.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Archive, error) {
	archiveDir, err := config.ExpandPath(cfg.ArchiveDir)
	if err != nil {
		return nil, err
	}
	liveDir, err := config.ExpandPath(cfg.LiveDir)
	if err != nil {
		return nil, err
	}
	a := New(osfs.New(), archiveDir, liveDir, logger)
	a.store.SkipCorrupt = cfg.OnCorrupt == config.OnCorruptSkip
	return a, nil
}

// Store returns the metadata store backing the archive.
func (a *Archive) Store() *metadata.Store {
	return a.store
}

// LiveDir returns the game's live save directory.
func (a *Archive) LiveDir() string {
	return a.liveDir
}

// LastSaveNumber returns the highest save number ever assigned.
func (a *Archive) LastSaveNumber() (int, error) {
	return a.store.LastSaveNumber()
}

// Saves returns every readable slot keyed by save number.
func (a *Archive) Saves() (map[int]metadata.Slot, error) {
	return a.store.GetSaves()
}

// GetSave returns slot n's record without reading any other slot.
func (a *Archive) GetSave(n int) (metadata.Slot, error) {
	return a.store.GetSave(n)
}

// FilesPath returns the directory holding slot n's save files.
func (a *Archive) FilesPath(n int) string {
	return filepath.Join(a.store.SlotDir(n), FilesDir)
}

// MakeNewSave allocates the next save number and creates an empty slot for it.
func (a *Archive) MakeNewSave(description string) (NewSave, error) {
	if strings.TrimSpace(description) == "" {
		return NewSave{}, fmt.Errorf("%w: description must not be empty", ErrInvalidInput)
	}
	return a.create(description, nil)
}

// Save captures the live save directory into a new slot. The slot becomes
// visible only once all of its files are in place.
func (a *Archive) Save(description string) (metadata.Slot, error) {
	if strings.TrimSpace(description) == "" {
		return metadata.Slot{}, fmt.Errorf("%w: description must not be empty", ErrInvalidInput)
	}
	if err := a.checkSourceDir(a.liveDir); err != nil {
		return metadata.Slot{}, err
	}

	created, err := a.create(description, func(filesPath string) error {
		_, err := a.copyFiles(a.liveDir, filesPath)
		return err
	})
	if err != nil {
		return metadata.Slot{}, err
	}
	return created.Slot, nil
}

// Restore copies slot n's files over the live save directory.
func (a *Archive) Restore(n int) error {
	if _, err := a.store.GetSave(n); err != nil {
		return err
	}
	return a.ExportSave(n, a.liveDir)
}

// ExportSave copies every file of slot n into dest, overwriting files with
// the same name.
func (a *Archive) ExportSave(n int, dest string) error {
	src := a.FilesPath(n)
	if _, err := a.fs.ReadDir(src); err != nil {
		return fmt.Errorf("save %d files: %w: %v", n, ErrSourceUnavailable, err)
	}
	if err := a.fs.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	count, err := a.copyFiles(src, dest)
	if err != nil {
		return err
	}
	a.logger.Info("exported save", "save", n, "files", count, "dest", dest)
	return nil
}

// ImportLiveFiles copies every file of src into slot n's files directory.
// src is checked before anything is copied.
func (a *Archive) ImportLiveFiles(n int, src string) error {
	if err := a.checkSourceDir(src); err != nil {
		return err
	}
	dest := a.FilesPath(n)
	if info, err := a.fs.Stat(dest); err != nil || !info.IsDir() {
		return fmt.Errorf("save %d has no files directory: %w", n, metadata.ErrNotFound)
	}

	count, err := a.copyFiles(src, dest)
	if err != nil {
		return err
	}
	a.logger.Info("imported files", "save", n, "files", count, "src", src)
	return nil
}

// SlotSize returns the total size in bytes of slot n's files.
func (a *Archive) SlotSize(n int) (int64, error) {
	entries, err := a.fs.ReadDir(a.FilesPath(n))
	if err != nil {
		return 0, fmt.Errorf("save %d files: %w: %v", n, ErrSourceUnavailable, err)
	}
	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

func (a *Archive) checkSourceDir(dir string) error {
	info, err := a.fs.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s does not exist", ErrSourceUnavailable, dir)
		}
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrSourceUnavailable, dir)
	}
	return nil
}

// create builds a slot in a staging directory, lets fill populate its files
// directory, then renames it into place and advances the counter.
func (a *Archive) create(description string, fill func(filesPath string) error) (NewSave, error) {
	unlock, err := a.lock()
	if err != nil {
		return NewSave{}, err
	}
	defer unlock()

	n, err := a.allocate()
	if err != nil {
		return NewSave{}, err
	}

	staging := filepath.Join(a.store.ArchiveDir(), stagingPrefix+uuid.NewString())
	if err := a.stage(staging, n, description, fill); err != nil {
		_ = a.fs.RemoveAll(staging)
		return NewSave{}, err
	}

	slotDir := a.store.SlotDir(n)
	if err := a.fs.Rename(staging, slotDir); err != nil {
		_ = a.fs.RemoveAll(staging)
		return NewSave{}, fmt.Errorf("committing save %d: %w", n, err)
	}
	if err := a.store.SetLastSaveNumber(n); err != nil {
		return NewSave{}, err
	}

	slot, err := a.store.GetSave(n)
	if err != nil {
		return NewSave{}, err
	}
	a.logger.Info("created save", "save", n, "description", description)
	return NewSave{
		Slot:      slot,
		Path:      slotDir,
		FilesPath: filepath.Join(slotDir, FilesDir),
	}, nil
}

func (a *Archive) stage(staging string, n int, description string, fill func(string) error) error {
	filesPath := filepath.Join(staging, FilesDir)
	if err := a.fs.MkdirAll(filesPath, 0755); err != nil {
		return fmt.Errorf("creating save dir: %w", err)
	}
	if err := a.store.WriteSlot(staging, metadata.NewSlot(n, description, a.Now())); err != nil {
		return err
	}
	if fill != nil {
		if err := fill(filesPath); err != nil {
			return err
		}
	}
	return nil
}

// allocate returns the next free save number. A directory already on disk
// with a readable record wins over the counter and is skipped. One without a
// record is moved aside as .orphan-<n>-<uuid> and its number reused, so
// listings never scan it.
func (a *Archive) allocate() (int, error) {
	last, err := a.store.LastSaveNumber()
	if err != nil {
		return 0, err
	}

	n := last + 1
	for {
		dir := a.store.SlotDir(n)
		_, err := a.fs.Stat(dir)
		if errors.Is(err, fs.ErrNotExist) {
			return n, nil
		}
		if err != nil {
			return 0, fmt.Errorf("checking save dir %d: %w", n, err)
		}

		_, err = a.store.GetSave(n)
		if errors.Is(err, metadata.ErrNotFound) {
			aside := filepath.Join(a.store.ArchiveDir(), fmt.Sprintf("%s%d-%s", orphanPrefix, n, uuid.NewString()))
			if err := a.fs.Rename(dir, aside); err != nil {
				return 0, fmt.Errorf("moving aside save dir %d: %w", n, err)
			}
			a.logger.Warn("moved aside save directory without metadata", "save", n, "path", aside)
			return n, nil
		}
		if err != nil {
			return 0, err
		}
		a.logger.Warn("skipping orphaned save directory", "save", n)
		n++
	}
}

// lock takes the archive's advisory lock file and returns its release func.
func (a *Archive) lock() (func(), error) {
	if err := a.fs.MkdirAll(a.store.ArchiveDir(), 0755); err != nil {
		return nil, fmt.Errorf("creating archive dir: %w", err)
	}

	path := filepath.Join(a.store.ArchiveDir(), lockName)
	w, err := a.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: remove %s if no other savebak is running", ErrLocked, path)
		}
		return nil, fmt.Errorf("creating lock: %w", err)
	}
	_, werr := fmt.Fprintf(w, "%d\n", os.Getpid())
	if cerr := w.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = a.fs.Remove(path)
		return nil, fmt.Errorf("writing lock: %w", werr)
	}

	return func() {
		if err := a.fs.Remove(path); err != nil {
			a.logger.Error("releasing lock", "path", path, "error", err)
		}
	}, nil
}

// copyFiles copies the regular files directly inside src into dest.
// Sub-directories are skipped.
func (a *Archive) copyFiles(src, dest string) (int, error) {
	entries, err := a.fs.ReadDir(src)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			a.logger.Debug("skipping sub-directory", "path", filepath.Join(src, entry.Name()))
			continue
		}
		if err := a.copyFile(filepath.Join(src, entry.Name()), filepath.Join(dest, entry.Name())); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (a *Archive) copyFile(src, dest string) error {
	in, err := a.fs.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := a.fs.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	_, copyErr := io.Copy(out, in)
	closeErr := out.Close() // Close immediately to flush

	if copyErr != nil {
		return fmt.Errorf("copying %s: %w", src, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing %s: %w", dest, closeErr)
	}
	return nil
}
