package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RetentionPolicy bounds the rotated output kept on disk. Zero fields are
// not enforced.
type RetentionPolicy struct {
	MaxAge   time.Duration
	MaxBytes int64
}

// Enabled reports whether any limit is set.
func (p RetentionPolicy) Enabled() bool {
	return p.MaxAge > 0 || p.MaxBytes > 0
}

// OutputFile is one rotated output file.
type OutputFile struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// PruneResult summarizes one retention pass.
type PruneResult struct {
	Removed   int
	Freed     int64
	Remaining int64
}

// ListOutputs returns the files in dir with extension ext, oldest first.
func ListOutputs(dir, ext string) ([]OutputFile, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []OutputFile
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		out = append(out, OutputFile{
			Path:    filepath.Join(dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].Path < out[j].Path
		}
		return out[i].ModTime.Before(out[j].ModTime)
	})
	return out, nil
}

// Prune removes the oldest output files until none is older than MaxAge and
// the total size is at most MaxBytes. The active file is never removed.
func Prune(dir, ext, active string, policy RetentionPolicy, now time.Time) (PruneResult, error) {
	files, err := ListOutputs(dir, ext)
	if err != nil {
		return PruneResult{}, err
	}

	var res PruneResult
	for _, f := range files {
		res.Remaining += f.Size
	}

	var errs []error
	for _, f := range files {
		if f.Path == active {
			continue
		}
		expired := policy.MaxAge > 0 && now.Sub(f.ModTime) > policy.MaxAge
		oversize := policy.MaxBytes > 0 && res.Remaining > policy.MaxBytes
		if !expired && !oversize {
			// Files are ordered oldest first, so nothing later is expired
			// either.
			break
		}
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		res.Removed++
		res.Freed += f.Size
		res.Remaining -= f.Size
	}
	return res, errors.Join(errs...)
}

// FormatBytes renders b with a binary unit.
func FormatBytes(b int64) string {
	const (
		_          = iota
		KB float64 = 1 << (10 * iota)
		MB
		GB
	)

	fb := float64(b)
	switch {
	case fb >= GB:
		return fmt.Sprintf("%.2fGiB", fb/GB)
	case fb >= MB:
		return fmt.Sprintf("%.2fMiB", fb/MB)
	case fb >= KB:
		return fmt.Sprintf("%.2fKiB", fb/KB)
	default:
		return fmt.Sprintf("%dB", b)
	}
}
