package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/jjpe/ipc-chan/ipcerr"
)

// ErrNotFound is returned by Resolve when neither the path as given, any
// probed ancestor, nor the home directory holds the file.  Load treats it
// as "no config file present" and falls back to Default.
var ErrNotFound = errors.New("config file not found")

// Resolve locates the config file named by path.
//
// The search order is fixed:
//
//  1. path as given, relative to the current working directory;
//  2. an upward walk that steps two directories at a time: starting from
//     path's parent (or the working directory when path is a bare
//     filename), each step moves to the grandparent of the current
//     directory and probes grandparent/<base(path)>;
//  3. <home>/<base(path)>.
//
// The two-directory step is deliberate and load-bearing: a file placed in
// a direct parent is NOT found unless that directory is also reachable as
// a grandparent from a deeper start.  Callers rely on this to pick up a
// settings file near a project root without knowing their own depth.
func Resolve(path string) (string, error) {
	if fileExists(path) {
		return path, nil
	}

	name := filepath.Base(path)

	cur := filepath.Dir(path)
	if cur == "." && path == name {
		wd, err := os.Getwd()
		if err != nil {
			return "", ipcerr.Wrap(ipcerr.CodeIO, err, "resolve working directory")
		}
		cur = wd
	}

	for {
		parent, ok := parentDir(cur)
		if !ok {
			break
		}
		grand, ok := parentDir(parent)
		if !ok {
			break
		}
		if dirExists(grand) {
			if cand := filepath.Join(grand, name); fileExists(cand) {
				return cand, nil
			}
		}
		cur = grand
	}

	if home, err := os.UserHomeDir(); err == nil {
		if cand := filepath.Join(home, name); fileExists(cand) {
			return cand, nil
		}
	}

	return "", ErrNotFound
}

// parentDir mirrors the "no further ancestor" notion of the walk: the
// filesystem root and the top of a relative path have no parent.
func parentDir(p string) (string, bool) {
	if p == "" || p == "." {
		return "", false
	}
	d := filepath.Dir(p)
	if d == p {
		return "", false
	}
	return d, true
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func dirExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
