package fsaccess

import (
	"path/filepath"
	"strings"
	"time"
)

const (
	hiddenPrefix      = "."
	markdownExtension = ".md"
)

// Entry describes one filesystem path.
type Entry struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	IsDir      bool   `json:"is_dir"`
	IsMarkdown bool   `json:"is_markdown"`
}

// Listing holds the visible children of a directory, directories first.
type Listing struct {
	Path    string  `json:"path"`
	Entries []Entry `json:"entries"`
}

// Metadata extends Entry with size, modification time and a sniffed MIME type.
type Metadata struct {
	Entry
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	MimeType string    `json:"mime_type,omitempty"`
}

// IsHidden reports whether name starts with the hidden marker.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, hiddenPrefix)
}

func isMarkdown(name string, isDir bool) bool {
	return !isDir && strings.HasSuffix(strings.ToLower(name), markdownExtension)
}

func newEntry(path string, isDir bool) Entry {
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) {
		name = ""
	}
	return Entry{
		Name:       name,
		Path:       path,
		IsDir:      isDir,
		IsMarkdown: isMarkdown(name, isDir),
	}
}

// hasHiddenSegment reports whether any component of rel starts with the
// hidden marker.
func hasHiddenSegment(rel string) bool {
	if rel == "." || rel == "" {
		return false
	}
	for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
		if IsHidden(segment) {
			return true
		}
	}
	return false
}
