// Package curate holds caller-side helpers for acting on similarity groups:
// counting them, suggesting which copy to keep, dropping vanished files and
// moving or trashing the rest. The engine never calls into this package.
package curate

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"snappurge/imageprocessor"
	"snappurge/types"
)

// Summary counts the contents of a result set
type Summary struct {
	Groups           int   `json:"groups"`
	Images           int   `json:"images"`
	Duplicates       int   `json:"duplicates"`
	ReclaimableBytes int64 `json:"reclaimable_bytes"`
}

// Selection is the keep/remove suggestion for one group
type Selection struct {
	Keep             string   `json:"keep"`
	Remove           []string `json:"remove"`
	ReclaimableBytes int64    `json:"reclaimable_bytes"`
}

// Summarize counts groups and images. Duplicates is every image beyond the
// first of its group. ReclaimableBytes is the sum over selections, which may be nil.
func Summarize(groups []types.SimilarityGroup, selections []Selection) Summary {
	s := Summary{Groups: len(groups)}
	for _, g := range groups {
		s.Images += len(g.Paths)
	}
	s.Duplicates = s.Images - s.Groups
	for _, sel := range selections {
		s.ReclaimableBytes += sel.ReclaimableBytes
	}
	return s
}

type candidate struct {
	path  string
	area  int
	size  int64
	mtime int64
}

func inspect(fsys afero.Fs, path string) candidate {
	c := candidate{path: path, size: -1, mtime: -1}
	if cfg, _, err := imageprocessor.LoadImageConfig(fsys, path); err == nil {
		c.area = cfg.Width * cfg.Height
	}
	if info, err := fsys.Stat(path); err == nil {
		c.size = info.Size()
		c.mtime = info.ModTime().UnixNano()
	}
	return c
}

func (c candidate) betterThan(other candidate) bool {
	if c.area != other.area {
		return c.area > other.area
	}
	if c.size != other.size {
		return c.size > other.size
	}
	return c.mtime > other.mtime
}

// KeepBest picks the copy to keep: largest pixel area, then largest file, then
// most recently modified. Ties keep the earlier path. Unreadable dimensions
// count as zero area.
func KeepBest(fsys afero.Fs, paths []string) Selection {
	if len(paths) == 0 {
		return Selection{}
	}

	candidates := make([]candidate, len(paths))
	best := 0
	for i, p := range paths {
		candidates[i] = inspect(fsys, p)
		if candidates[i].betterThan(candidates[best]) {
			best = i
		}
	}

	sel := Selection{Keep: paths[best]}
	for i, c := range candidates {
		if i == best {
			continue
		}
		sel.Remove = append(sel.Remove, c.path)
		if c.size > 0 {
			sel.ReclaimableBytes += c.size
		}
	}
	return sel
}

// SelectAll runs KeepBest on every group
func SelectAll(fsys afero.Fs, groups []types.SimilarityGroup) []Selection {
	selections := make([]Selection, 0, len(groups))
	for _, g := range groups {
		selections = append(selections, KeepBest(fsys, g.Paths))
	}
	return selections
}

// Refresh drops paths that no longer exist and then any group left with fewer
// than two paths. Group order is preserved.
func Refresh(fsys afero.Fs, groups []types.SimilarityGroup) []types.SimilarityGroup {
	var out []types.SimilarityGroup
	for _, g := range groups {
		var remaining []string
		for _, p := range g.Paths {
			if ok, err := afero.Exists(fsys, p); err == nil && ok {
				remaining = append(remaining, p)
			}
		}
		if len(remaining) >= 2 {
			out = append(out, types.SimilarityGroup{Representative: g.Representative, Paths: remaining})
		}
	}
	return out
}

// Move renames each path into destDir. An existing name gets a _1, _2, ...
// suffix before the extension. Failures are collected and do not stop the
// remaining moves. The returned map goes from old path to new path.
func Move(fsys afero.Fs, paths []string, destDir string) (map[string]string, error) {
	if err := fsys.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create destination %s: %w", destDir, err)
	}

	moved := make(map[string]string, len(paths))
	var errs []error
	for _, p := range paths {
		target, err := freeName(fsys, destDir, filepath.Base(p))
		if err != nil {
			errs = append(errs, fmt.Errorf("move %s: %w", p, err))
			continue
		}
		if err := fsys.Rename(p, target); err != nil {
			errs = append(errs, fmt.Errorf("move %s: %w", p, err))
			continue
		}
		moved[p] = target
	}
	return moved, errors.Join(errs...)
}

// DefaultTrashDir returns the home trash of the freedesktop.org trash layout:
// $XDG_DATA_HOME/Trash, or ~/.local/share/Trash when XDG_DATA_HOME is unset.
func DefaultTrashDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "Trash"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "Trash"), nil
}

// Trash moves each path into trashDir/files and records where it came from in
// trashDir/info/<name>.trashinfo, so desktop file managers can restore it.
// Failures are collected like Move. The returned map goes from old path to
// trashed path.
func Trash(fsys afero.Fs, paths []string, trashDir string) (map[string]string, error) {
	filesDir := filepath.Join(trashDir, "files")
	infoDir := filepath.Join(trashDir, "info")
	for _, dir := range []string{filesDir, infoDir} {
		if err := fsys.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create trash %s: %w", dir, err)
		}
	}

	trashed := make(map[string]string, len(paths))
	var errs []error
	for _, p := range paths {
		target, err := trashOne(fsys, p, filesDir, infoDir)
		if err != nil {
			errs = append(errs, fmt.Errorf("trash %s: %w", p, err))
			continue
		}
		trashed[p] = target
	}
	return trashed, errors.Join(errs...)
}

func trashOne(fsys afero.Fs, path, filesDir, infoDir string) (string, error) {
	if _, err := fsys.Stat(path); err != nil {
		return "", err
	}
	target, err := freeName(fsys, filesDir, filepath.Base(path))
	if err != nil {
		return "", err
	}
	infoPath := filepath.Join(infoDir, filepath.Base(target)+".trashinfo")

	// the info file is written first and removed again if the rename fails
	if err := afero.WriteFile(fsys, infoPath, trashInfo(path, time.Now()), 0o600); err != nil {
		return "", err
	}
	if err := fsys.Rename(path, target); err != nil {
		_ = fsys.Remove(infoPath)
		return "", err
	}
	return target, nil
}

func trashInfo(path string, deleted time.Time) []byte {
	escaped := (&url.URL{Path: path}).EscapedPath()
	return []byte(fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n", escaped, deleted.Format("2006-01-02T15:04:05")))
}

func freeName(fsys afero.Fs, dir, name string) (string, error) {
	target := filepath.Join(dir, name)
	exists, err := afero.Exists(fsys, target)
	if err != nil || !exists {
		return target, err
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		target = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, ext))
		exists, err := afero.Exists(fsys, target)
		if err != nil {
			return "", err
		}
		if !exists {
			return target, nil
		}
	}
}
