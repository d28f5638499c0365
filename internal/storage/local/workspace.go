// Package local manages the scanner's on-disk workspace: the ephemeral
// working directory that receives every downloaded image and the hits
// directory that receives promoted matches.
package local

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

var (
	// ErrUnknownImage is returned when a transition names a file that was never Put.
	ErrUnknownImage = errors.New("unknown image")
	// ErrInvalidTransition is returned when a file is moved out of order.
	ErrInvalidTransition = errors.New("invalid image state transition")
	// ErrDuplicateImage is returned when the same filename is Put twice.
	ErrDuplicateImage = errors.New("duplicate image")
	// ErrAlreadyReset is returned when Reset is called more than once.
	ErrAlreadyReset = errors.New("workspace already reset")
)

// State is where a downloaded image is in its lifecycle.
type State string

// Image lifecycle states. Pending images are either promoted
// (Hit, then Persisted) or deleted by the final purge (Purged).
const (
	StatePending   State = "pending"
	StateHit       State = "hit"
	StatePersisted State = "persisted"
	StatePurged    State = "purged"
)

// Terminal reports whether no further transition is expected.
func (s State) Terminal() bool {
	return s == StatePersisted || s == StatePurged
}

// Config captures the two directories owned by the workspace.
type Config struct {
	// WorkDir receives every downloaded image and is removed by Purge.
	WorkDir string `mapstructure:"work_dir" yaml:"work_dir"`
	// HitsDir is wiped by Reset and receives promoted images.
	HitsDir string `mapstructure:"hits_dir" yaml:"hits_dir"`
}

// Entry is the ledger record for one image file.
type Entry struct {
	Filename string
	State    State
	Term     string
}

// Workspace owns the working and hits directories and tracks every file
// written into them. It is safe for concurrent use; workers only ever touch
// distinct filenames.
type Workspace struct {
	workDir string
	hitsDir string

	mu     sync.Mutex
	reset  bool
	ledger map[string]*Entry
}

// New validates the directory layout without touching the filesystem.
func New(cfg Config) (*Workspace, error) {
	if strings.TrimSpace(cfg.WorkDir) == "" || strings.TrimSpace(cfg.HitsDir) == "" {
		return nil, fmt.Errorf("work and hits directories are required")
	}
	work := filepath.Clean(cfg.WorkDir)
	hits := filepath.Clean(cfg.HitsDir)
	if Overlap(work, hits) {
		return nil, fmt.Errorf("work and hits directories must be disjoint: %s, %s", work, hits)
	}
	return &Workspace{
		workDir: work,
		hitsDir: hits,
		ledger:  make(map[string]*Entry),
	}, nil
}

// Overlap reports whether a and b are the same directory or one contains
// the other.
func Overlap(a, b string) bool {
	a, b = absDir(a), absDir(b)
	return within(a, b) || within(b, a)
}

func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func absDir(dir string) string {
	dir = filepath.Clean(strings.TrimSpace(dir))
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// Reset wipes and recreates the hits directory and ensures the working
// directory exists and is writable. It may run only once per Workspace.
func (w *Workspace) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.reset {
		return ErrAlreadyReset
	}
	if err := os.RemoveAll(w.hitsDir); err != nil {
		return fmt.Errorf("remove hits directory %s: %w", w.hitsDir, err)
	}
	if err := os.MkdirAll(w.hitsDir, 0o750); err != nil {
		return fmt.Errorf("create hits directory %s: %w", w.hitsDir, err)
	}
	if err := ensureWritableDir(w.workDir); err != nil {
		return err
	}
	w.reset = true
	return nil
}

// Put writes img under filename in the working directory and records it as
// pending. PNG and JPEG targets are re-encoded; other extensions keep the
// downloaded bytes since there is no encoder for them.
func (w *Workspace) Put(filename string, img image.Image, raw []byte) (string, error) {
	target, err := w.resolve(w.workDir, filename)
	if err != nil {
		return "", err
	}

	w.mu.Lock()
	if _, ok := w.ledger[filename]; ok {
		w.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrDuplicateImage, filename)
	}
	w.ledger[filename] = &Entry{Filename: filename, State: StatePending}
	w.mu.Unlock()

	if _, fmtErr := imaging.FormatFromFilename(filename); fmtErr == nil {
		if err := imaging.Save(img, target); err != nil {
			return "", fmt.Errorf("encode %s: %w", filename, err)
		}
		return target, nil
	}
	if err := os.WriteFile(target, raw, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", filename, err)
	}
	return target, nil
}

// MarkHit moves a pending image to the hit state.
func (w *Workspace) MarkHit(filename, term string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, err := w.entry(filename)
	if err != nil {
		return err
	}
	if entry.State != StatePending {
		return fmt.Errorf("%w: %s is %s, want %s", ErrInvalidTransition, filename, entry.State, StatePending)
	}
	entry.State = StateHit
	entry.Term = term
	return nil
}

// Promote relocates a hit image from the working directory into the hits
// directory and marks it persisted. Ownership of the file moves with it.
func (w *Workspace) Promote(filename string) (string, error) {
	src, err := w.resolve(w.workDir, filename)
	if err != nil {
		return "", err
	}
	dst, err := w.resolve(w.hitsDir, filename)
	if err != nil {
		return "", err
	}

	w.mu.Lock()
	entry, err := w.entry(filename)
	if err == nil && entry.State != StateHit {
		err = fmt.Errorf("%w: %s is %s, want %s", ErrInvalidTransition, filename, entry.State, StateHit)
	}
	w.mu.Unlock()
	if err != nil {
		return "", err
	}

	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("move %s to hits: %w", filename, err)
	}

	w.mu.Lock()
	entry.State = StatePersisted
	w.mu.Unlock()
	return dst, nil
}

// Purge deletes the working directory and everything left in it. Every
// image that was not persisted is marked purged.
func (w *Workspace) Purge() error {
	if err := os.RemoveAll(w.workDir); err != nil {
		return fmt.Errorf("purge working directory %s: %w", w.workDir, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, entry := range w.ledger {
		if entry.State != StatePersisted {
			entry.State = StatePurged
		}
	}
	return nil
}

// Verify checks that every recorded image ended either persisted in the
// hits directory or purged, and that the working directory is gone.
func (w *Workspace) Verify() error {
	var problems []string
	for _, entry := range w.Entries() {
		switch entry.State {
		case StatePersisted:
			if _, err := os.Stat(filepath.Join(w.hitsDir, entry.Filename)); err != nil {
				problems = append(problems, fmt.Sprintf("%s: persisted but missing from hits", entry.Filename))
			}
		case StatePurged:
		default:
			problems = append(problems, fmt.Sprintf("%s: left in state %s", entry.Filename, entry.State))
		}
	}
	if _, err := os.Stat(w.workDir); err == nil {
		problems = append(problems, fmt.Sprintf("working directory %s still exists", w.workDir))
	}
	if len(problems) > 0 {
		return fmt.Errorf("workspace not clean: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Entries returns a snapshot of the ledger sorted by filename.
func (w *Workspace) Entries() []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Entry, 0, len(w.ledger))
	for _, entry := range w.ledger {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out
}

func (w *Workspace) entry(filename string) (*Entry, error) {
	entry, ok := w.ledger[filename]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownImage, filename)
	}
	return entry, nil
}

// resolve joins filename onto dir and rejects anything that escapes it.
func (w *Workspace) resolve(dir, filename string) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", fmt.Errorf("filename is required")
	}
	full := filepath.Join(dir, filename)
	if filepath.Dir(full) != dir {
		return "", fmt.Errorf("path traversal detected: %s", filename)
	}
	return full, nil
}

func ensureWritableDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(dir, 0o750); mkErr != nil {
			return fmt.Errorf("create working directory %s: %w", dir, mkErr)
		}
	case err != nil:
		return fmt.Errorf("stat working directory %s: %w", dir, err)
	case !info.IsDir():
		return fmt.Errorf("working directory %s is not a directory", dir)
	}

	probe := filepath.Join(dir, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("working directory %s is not writable: %w", dir, err)
	}
	if err := os.Remove(probe); err != nil {
		return fmt.Errorf("clean up writable probe: %w", err)
	}
	return nil
}
