package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2020, time.May, 17, 9, 30, 0, 0, time.Local) }
}

func countDirs(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to walk %s: %v", root, err)
	}
	return n
}

func TestCreate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := New(WithClock(fixedClock()))

	paths, err := c.Create(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := filepath.Join(dir, "2020-05-17"); paths.Root != want {
		t.Errorf("Root: got %q, want %q", paths.Root, want)
	}
	if want := filepath.Join(dir, "2020-05-17", "Hilfe"); paths.Help != want {
		t.Errorf("Help: got %q, want %q", paths.Help, want)
	}
	if want := filepath.Join(dir, "2020-05-17", "Tagesbilder"); paths.Daily != want {
		t.Errorf("Daily: got %q, want %q", paths.Daily, want)
	}

	for _, p := range []string{paths.Root, paths.Help, paths.Daily} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", p)
		}
	}
	if got := countDirs(t, dir); got != 3 {
		t.Errorf("directories created: got %d, want 3", got)
	}

	entries, err := os.ReadDir(paths.Help)
	if err != nil {
		t.Fatalf("read %s: %v", paths.Help, err)
	}
	if len(entries) != 0 {
		t.Errorf("Help folder: got %d entries, want empty", len(entries))
	}
}

func TestCreate_SecondRunSameDay(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := New(WithClock(fixedClock()))

	first, err := c.Create(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	marker := filepath.Join(first.Daily, "keep.jpg")
	if err := os.WriteFile(marker, []byte("image"), 0644); err != nil {
		t.Fatalf("failed to write marker: %v", err)
	}

	second, err := c.Create(dir)
	if !errors.Is(err, ErrExists) {
		t.Fatalf("second Create: got err %v, want ErrExists", err)
	}
	if second.Root != first.Root {
		t.Errorf("Root: got %q, want %q", second.Root, first.Root)
	}
	if got := countDirs(t, dir); got != 3 {
		t.Errorf("directories after second run: got %d, want 3", got)
	}
	if data, err := os.ReadFile(marker); err != nil || string(data) != "image" {
		t.Errorf("existing content changed: %q, %v", data, err)
	}
}

func TestCreate_RootIsFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "2020-05-17"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	_, err := New(WithClock(fixedClock())).Create(dir)
	if !errors.Is(err, ErrExists) {
		t.Errorf("got err %v, want ErrExists", err)
	}
}

func TestCreate_NextDay(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	day := time.Date(2020, time.May, 17, 23, 0, 0, 0, time.Local)
	c := New(WithClock(func() time.Time { return day }))

	if _, err := c.Create(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	day = day.Add(2 * time.Hour)
	paths, err := c.Create(dir)
	if err != nil {
		t.Fatalf("next day: unexpected error: %v", err)
	}
	if filepath.Base(paths.Root) != "2020-05-18" {
		t.Errorf("Root: got %q, want 2020-05-18", paths.Root)
	}
}

func TestCreate_MissingParent(t *testing.T) {
	t.Parallel()

	_, err := New(WithClock(fixedClock())).Create(filepath.Join(t.TempDir(), "missing"))
	if err == nil || errors.Is(err, ErrExists) {
		t.Errorf("got err %v, want creation failure", err)
	}
}

func TestWithFolderNames(t *testing.T) {
	t.Parallel()

	c := New(WithClock(fixedClock()), WithFolderNames("Help", "Daily"))
	paths := c.PathsFor("/srv", fixedClock()())

	if paths.Help != filepath.Join("/srv", "2020-05-17", "Help") {
		t.Errorf("Help: got %q", paths.Help)
	}
	if paths.Daily != filepath.Join("/srv", "2020-05-17", "Daily") {
		t.Errorf("Daily: got %q", paths.Daily)
	}
}
