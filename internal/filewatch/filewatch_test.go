package filewatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type chanEditor chan string

func (c chanEditor) Edit(text string) { c <- text }

func next(t *testing.T, edits chanEditor) string {
	t.Helper()
	select {
	case s := <-edits:
		return s
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for an edit")
		return ""
	}
}

func TestWatchDeliversInitialAndLaterContents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.py")
	if err := os.WriteFile(path, []byte("print(1)"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	edits := make(chanEditor, 16)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, edits, nil) }()

	if got := next(t, edits); got != "print(1)" {
		t.Fatalf("initial: got %q", got)
	}

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("print(2)"), 0o644); err != nil {
		t.Fatal(err)
	}
	for {
		got := next(t, edits)
		if got == "print(2)" {
			break
		}
		// An editor may truncate before writing; partial states are allowed.
		if got != "" {
			t.Fatalf("unexpected edit %q", got)
		}
	}

	// Rename-over saves keep being followed.
	tmp := filepath.Join(dir, "main.py.swp")
	if err := os.WriteFile(tmp, []byte("print(3)"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	for next(t, edits) != "print(3)" {
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}

func TestWatchMissingFile(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "absent.js"), make(chanEditor, 1), nil)
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
