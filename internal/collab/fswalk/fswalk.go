// Package fswalk implements the filesystem collaborator behind files():
// directory listing with optional regex filtering and recursion, plus
// fsnotify-backed change detection so a long-lived session can tell a
// files() operator's cached listing is stale.
package fswalk

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/fsnotify/fsnotify"
)

// Walker lists audio files under a root folder using the real
// filesystem.
type Walker struct{}

func New() *Walker { return &Walker{} }

// List implements collab.FileWalker. pattern, if non-empty, is an
// unanchored regex that must match somewhere in each file's base name;
// recursive walks subdirectories.
func (w *Walker) List(folder, pattern string, recursive bool) ([]string, error) {
	var re *regexp.Regexp
	if pattern != "" {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
	}

	var out []string
	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != folder {
				return filepath.SkipDir
			}
			return nil
		}
		if re != nil && !re.MatchString(filepath.Base(path)) {
			return nil
		}
		out = append(out, path)
		return nil
	}
	if err := filepath.WalkDir(folder, walkFn); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// Watch implements collab.FileWalker: it watches folder (and, if
// recursive, every subdirectory observed at watch-start time) and
// invokes onChange on any create/remove/rename/write event. The
// returned stop func closes the underlying fsnotify.Watcher.
func (w *Walker) Watch(folder string, recursive bool, onChange func()) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dirs := []string{folder}
	if recursive {
		dirs = nil
		_ = filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
			if err == nil && d.IsDir() {
				dirs = append(dirs, path)
			}
			return nil
		})
	}
	for _, d := range dirs {
		if err := watcher.Add(d); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case _, ok := <-watcher.Events:
				if !ok {
					return
				}
				onChange()
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()

	stop := func() {
		close(done)
		watcher.Close()
	}
	return stop, nil
}
