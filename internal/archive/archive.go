// Package archive creates the dated backup folders that collect each day's images.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shineum/photoreport/internal/config"
)

// DateLayout names the dated root, e.g. "2020-05-17".
const DateLayout = "2006-01-02"

// ErrExists is returned when today's archive root is already present.
var ErrExists = errors.New("archive already exists")

// Paths are the directories of one dated archive.
type Paths struct {
	Root  string
	Help  string
	Daily string
}

// Creator builds dated archives beneath a caller-supplied directory.
type Creator struct {
	helpDir  string
	dailyDir string
	now      func() time.Time
}

// Option customizes a Creator.
type Option func(*Creator)

// WithClock replaces the wall clock used to name the dated root.
func WithClock(now func() time.Time) Option {
	return func(c *Creator) { c.now = now }
}

// WithFolderNames overrides the two child folder names.
func WithFolderNames(help, daily string) Option {
	return func(c *Creator) {
		c.helpDir = help
		c.dailyDir = daily
	}
}

// New creates a Creator using the default folder names and the wall clock.
func New(opts ...Option) *Creator {
	c := &Creator{
		helpDir:  config.DefaultHelpDir,
		dailyDir: config.DefaultDailyDir,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PathsFor returns the archive paths for the given day beneath dir.
func (c *Creator) PathsFor(dir string, day time.Time) Paths {
	root := filepath.Join(dir, day.Format(DateLayout))
	return Paths{
		Root:  root,
		Help:  filepath.Join(root, c.helpDir),
		Daily: filepath.Join(root, c.dailyDir),
	}
}

// Create makes today's archive root and its two child folders beneath dir.
// If the root already exists nothing is touched and ErrExists is returned
// together with the paths. A failure after the root was made leaves the
// partial tree in place.
func (c *Creator) Create(dir string) (Paths, error) {
	paths := c.PathsFor(dir, c.now())

	if _, err := os.Stat(paths.Root); err == nil {
		return paths, ErrExists
	} else if !errors.Is(err, fs.ErrNotExist) {
		return paths, fmt.Errorf("failed to stat archive root: %w", err)
	}

	if err := os.Mkdir(paths.Root, 0755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return paths, ErrExists
		}
		return paths, fmt.Errorf("failed to create archive root: %w", err)
	}
	for _, sub := range []string{paths.Help, paths.Daily} {
		if err := os.Mkdir(sub, 0755); err != nil {
			return paths, fmt.Errorf("failed to create archive folder %s: %w", sub, err)
		}
	}

	slog.Debug("archive created", "root", paths.Root)
	return paths, nil
}
