package fsaccess

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// ReadTextFile returns the full UTF-8 content of path.
func ReadTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		kind := ErrIO
		if errors.Is(err, fs.ErrNotExist) {
			kind = ErrPathNotFound
		}
		return "", newError(kind, fmt.Sprintf("failed to read file: %v", err), err)
	}
	if !utf8.Valid(data) {
		return "", newError(ErrNotText, fmt.Sprintf("failed to read file: %s: stream did not contain valid UTF-8", path), nil)
	}
	return string(data), nil
}

// WriteTextFile creates missing parent directories and replaces the content
// of path.
func WriteTextFile(path, content string) error {
	if parent := filepath.Dir(path); parent != "" {
		if err := os.MkdirAll(parent, dirPerm); err != nil {
			return newError(ErrIO, fmt.Sprintf("failed to create directory: %v", err), err)
		}
	}
	if err := os.WriteFile(path, []byte(content), filePerm); err != nil {
		return newError(ErrIO, fmt.Sprintf("failed to write file: %v", err), err)
	}
	return nil
}

// ListDir returns the visible children of path. Directories sort before
// files, then names ascend case-insensitively.
func ListDir(path string) (Listing, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Listing{}, newError(ErrPathNotFound, fmt.Sprintf("directory does not exist: %s", path), err)
		}
		return Listing{}, newError(ErrIO, fmt.Sprintf("failed to read directory: %v", err), err)
	}
	if !info.IsDir() {
		return Listing{}, newError(ErrNotADirectory, fmt.Sprintf("path is not a directory: %s", path), nil)
	}

	children, err := os.ReadDir(path)
	if err != nil {
		return Listing{}, newError(ErrIO, fmt.Sprintf("failed to read directory: %v", err), err)
	}

	entries := make([]Entry, 0, len(children))
	for _, child := range children {
		name := child.Name()
		if IsHidden(name) {
			continue
		}
		childPath := filepath.Join(path, name)
		// Stat follows symlinks so a link to a directory lists as one.
		isDir := child.IsDir()
		if childInfo, statErr := os.Stat(childPath); statErr == nil {
			isDir = childInfo.IsDir()
		}
		entries = append(entries, Entry{
			Name:       name,
			Path:       childPath,
			IsDir:      isDir,
			IsMarkdown: isMarkdown(name, isDir),
		})
	}
	sortListing(entries)

	return Listing{Path: path, Entries: entries}, nil
}

func sortListing(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}

// ListMarkdownFiles walks path recursively, following symlinks, and returns
// every markdown file outside hidden segments sorted by lower-cased path.
// Entries that cannot be read are skipped.
func ListMarkdownFiles(path string) ([]Entry, error) {
	rootInfo, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newError(ErrPathNotFound, fmt.Sprintf("directory does not exist: %s", path), err)
		}
		return nil, newError(ErrIO, fmt.Sprintf("failed to read directory: %v", err), err)
	}
	// A file root is its own single-entry walk.
	if !rootInfo.IsDir() {
		name := filepath.Base(path)
		if rootInfo.Mode().IsRegular() && isMarkdown(name, false) {
			return []Entry{{Name: name, Path: path, IsMarkdown: true}}, nil
		}
		return []Entry{}, nil
	}

	var (
		mu      sync.Mutex
		entries []Entry
	)
	conf := &fastwalk.Config{
		Follow: true,
	}
	walkErr := fastwalk.Walk(conf, path, func(current string, d fs.DirEntry, err error) error {
		if err != nil || current == path {
			return nil
		}
		rel, relErr := filepath.Rel(path, current)
		if relErr != nil {
			return nil
		}
		if hasHiddenSegment(rel) {
			return skipHidden(d)
		}
		if d.IsDir() || !isMarkdown(d.Name(), false) {
			return nil
		}
		info, statErr := os.Stat(current)
		if statErr != nil || !info.Mode().IsRegular() {
			return nil
		}

		mu.Lock()
		entries = append(entries, Entry{
			Name:       d.Name(),
			Path:       current,
			IsMarkdown: true,
		})
		mu.Unlock()
		return nil
	})
	if walkErr != nil {
		return nil, newError(ErrIO, fmt.Sprintf("failed to read directory: %v", walkErr), walkErr)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Path) < strings.ToLower(entries[j].Path)
	})
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// skipHidden prunes a hidden entry. Symlinks are followed, so a hidden link
// may lead to a directory and is pruned like one.
func skipHidden(d fs.DirEntry) error {
	if d.IsDir() || d.Type()&fs.ModeSymlink != 0 {
		return fs.SkipDir
	}
	return nil
}

// PathExists reports whether path can be stat'ed. It never fails.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// GetMetadata describes a single path.
func GetMetadata(path string) (Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, notExistError(path, err)
	}
	entry := newEntry(filepath.Clean(path), info.IsDir())
	entry.Path = path
	return entry, nil
}

// Stat returns GetMetadata plus size, modification time and, for regular
// files, a MIME type sniffed from the content.
func Stat(path string) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Metadata{}, notExistError(path, err)
	}
	entry := newEntry(filepath.Clean(path), info.IsDir())
	entry.Path = path

	metadata := Metadata{
		Entry:    entry,
		Size:     info.Size(),
		Modified: info.ModTime().UTC(),
	}
	if info.Mode().IsRegular() {
		if mtype, detectErr := mimetype.DetectFile(path); detectErr == nil {
			metadata.MimeType = mtype.String()
		}
	}
	return metadata, nil
}

func notExistError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return newError(ErrPathNotFound, fmt.Sprintf("file does not exist: %s", path), err)
	}
	return newError(ErrIO, fmt.Sprintf("failed to stat path: %v", err), err)
}
