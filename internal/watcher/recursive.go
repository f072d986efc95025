package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Add registers root and every directory below it. Only a failure to register
// root itself is returned; subdirectories that cannot be registered are logged
// and skipped.
func (watcher *Watcher) Add(root string) error {
	if watcher == nil {
		return errors.New("watcher is nil")
	}
	if strings.TrimSpace(root) == "" {
		return errors.New("path is required")
	}
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", root)
	}

	watcher.mutex.Lock()
	closed := watcher.closed
	watcher.mutex.Unlock()
	if closed {
		return ErrClosed
	}

	if err := watcher.addDir(root); err != nil {
		return err
	}
	for _, dir := range collectRecursiveDirs(root) {
		if err := watcher.addDir(dir); err != nil {
			watcher.logWarn("watch add failed", map[string]string{
				"path":  dir,
				"error": err.Error(),
			})
		}
	}
	return nil
}

// collectRecursiveDirs lists the directories below root, root excluded.
// Unreadable subtrees are skipped.
func collectRecursiveDirs(root string) []string {
	dirs := []string{}
	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if entry != nil && entry.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if !entry.IsDir() || path == root {
			return nil
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs
}

func (watcher *Watcher) addDir(path string) error {
	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return ErrClosed
	}
	if _, ok := watcher.dirs[path]; ok {
		watcher.mutex.Unlock()
		return nil
	}
	watcher.mutex.Unlock()

	if err := watcher.watcher.Add(path); err != nil {
		return err
	}

	watcher.mutex.Lock()
	watcher.dirs[path] = struct{}{}
	count := len(watcher.dirs)
	watcher.mutex.Unlock()

	watcher.logDebug("watch added", path, count)
	return nil
}

// addCreatedTree registers a directory created while watching. Entries that
// were created inside it before registration are reported as changes so they
// are not missed.
func (watcher *Watcher) addCreatedTree(root string) {
	if err := watcher.addDir(root); err != nil {
		if !errors.Is(err, ErrClosed) {
			watcher.logWarn("watch add failed", map[string]string{
				"path":  root,
				"error": err.Error(),
			})
		}
		return
	}

	now := time.Now()
	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || path == root {
			return nil
		}
		if entry.IsDir() {
			if addErr := watcher.addDir(path); addErr != nil {
				return fs.SkipDir
			}
		}
		watcher.mutex.Lock()
		if !watcher.closed {
			watcher.debouncer.schedule(path, now)
		}
		watcher.mutex.Unlock()
		return nil
	})
}

// forgetTree drops bookkeeping for a removed or renamed directory and
// everything below it. The OS drops the kernel watches on its own.
func (watcher *Watcher) forgetTree(root string) {
	watcher.mutex.Lock()
	var removed []string
	for dir := range watcher.dirs {
		if isWithinPath(root, dir) {
			delete(watcher.dirs, dir)
			removed = append(removed, dir)
		}
	}
	count := len(watcher.dirs)
	watcher.mutex.Unlock()

	for _, dir := range removed {
		_ = watcher.watcher.Remove(dir)
		watcher.logDebug("watch removed", dir, count)
	}
}

// WatchedDirs reports how many directories are registered with the OS.
func (watcher *Watcher) WatchedDirs() int {
	if watcher == nil {
		return 0
	}
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return len(watcher.dirs)
}

func isWithinPath(parent, child string) bool {
	parentPath := filepath.Clean(parent)
	childPath := filepath.Clean(child)
	rel, err := filepath.Rel(parentPath, childPath)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return false
	}
	return true
}
