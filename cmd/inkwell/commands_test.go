package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"inkwell/internal/fsaccess"
)

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand(streams{In: strings.NewReader(stdin), Out: &out, Err: &errOut})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCatPrintsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.md")
	if err := os.WriteFile(path, []byte("# Hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := runCommand(t, "", "cat", path)
	if err != nil {
		t.Fatalf("cat: %v", err)
	}
	if out != "# Hello" {
		t.Fatalf("expected file content, got %q", out)
	}
}

func TestCatMissingFileFails(t *testing.T) {
	_, err := runCommand(t, "", "cat", filepath.Join(t.TempDir(), "missing.md"))
	if err == nil || !strings.Contains(err.Error(), "failed to read file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestWriteFromFlagAndStdin(t *testing.T) {
	dir := t.TempDir()
	flagPath := filepath.Join(dir, "nested", "flag.md")
	if _, err := runCommand(t, "", "write", flagPath, "--content", "from flag"); err != nil {
		t.Fatalf("write flag: %v", err)
	}
	got, err := fsaccess.ReadTextFile(flagPath)
	if err != nil || got != "from flag" {
		t.Fatalf("expected flag content, got %q (%v)", got, err)
	}

	stdinPath := filepath.Join(dir, "stdin.md")
	if _, err := runCommand(t, "from stdin\n", "write", stdinPath); err != nil {
		t.Fatalf("write stdin: %v", err)
	}
	got, err = fsaccess.ReadTextFile(stdinPath)
	if err != nil || got != "from stdin\n" {
		t.Fatalf("expected stdin content, got %q (%v)", got, err)
	}
}

func TestListPrintsEntries(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.md"), []byte("a"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".hidden"), []byte("h"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := runCommand(t, "", "ls", dir)
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	var listing fsaccess.Listing
	if err := json.Unmarshal([]byte(out), &listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listing.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", listing.Entries)
	}
	if listing.Entries[0].Name != "sub" || !listing.Entries[0].IsDir {
		t.Fatalf("expected directory first, got %+v", listing.Entries[0])
	}
	if listing.Entries[1].Name != "a.md" || !listing.Entries[1].IsMarkdown {
		t.Fatalf("expected markdown file second, got %+v", listing.Entries[1])
	}
}

func TestMarkdownListsNestedFiles(t *testing.T) {
	dir := t.TempDir()
	if err := fsaccess.WriteTextFile(filepath.Join(dir, "x", "b.md"), "b"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := fsaccess.WriteTextFile(filepath.Join(dir, "c.txt"), "c"); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := runCommand(t, "", "md", dir)
	if err != nil {
		t.Fatalf("md: %v", err)
	}
	var entries []fsaccess.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "b.md" {
		t.Fatalf("expected only b.md, got %+v", entries)
	}
}

func TestExistsReportsBool(t *testing.T) {
	dir := t.TempDir()
	out, err := runCommand(t, "", "exists", dir)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !strings.Contains(out, `"exists": true`) {
		t.Fatalf("expected exists true, got %q", out)
	}

	out, err = runCommand(t, "", "exists", filepath.Join(dir, "nope"))
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !strings.Contains(out, `"exists": false`) {
		t.Fatalf("expected exists false, got %q", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "inkwell ") {
		t.Fatalf("expected version line, got %q", out)
	}

	out, err = runCommand(t, "", "version", "--json")
	if err != nil {
		t.Fatalf("version --json: %v", err)
	}
	var info map[string]any
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestCommandsRequirePathArgument(t *testing.T) {
	for _, name := range []string{"cat", "write", "ls", "md", "exists", "stat", "watch"} {
		if _, err := runCommand(t, "", name); err == nil {
			t.Fatalf("expected %s without a path to fail", name)
		}
	}
}
