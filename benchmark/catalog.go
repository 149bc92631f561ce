// Package benchmark discovers benchmark definitions and their test cases and
// loads their static assets (prompt, schema, inputs, recorded outputs).
package benchmark

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// TemplateName is the benchmark skeleton directory, never run.
const TemplateName = "template"

// inputExt is the extension of test-case input files.
const inputExt = ".txt"

// Catalog enumerates benchmarks under a root directory.
type Catalog struct {
	root   string
	logger *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// NewCatalog creates a catalog rooted at dir.
func NewCatalog(dir string, opts ...Option) *Catalog {
	c := &Catalog{root: dir, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the benchmarks root directory.
func (c *Catalog) Root() string {
	return c.root
}

// ListBenchmarks returns the sorted names of runnable benchmarks: directories
// with a manifest, excluding the template. A missing root yields no names.
func (c *Catalog) ListBenchmarks() ([]string, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug("Benchmarks directory not found", "path", c.root)
			return nil, nil
		}
		return nil, fmt.Errorf("read benchmarks directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == TemplateName {
			continue
		}
		if _, err := os.Stat(filepath.Join(c.root, entry.Name(), ManifestFile)); err != nil {
			continue
		}
		names = append(names, entry.Name())
	}

	slices.Sort(names)
	return names, nil
}

// Get loads the named benchmark, including the template.
func (c *Catalog) Get(name string) (*Benchmark, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid benchmark name %q", name)
	}

	dir := filepath.Join(c.root, name)
	manifest, err := LoadManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("benchmark %q not found in %s", name, c.root)
		}
		return nil, err
	}
	if manifest.Name == "" {
		manifest.Name = name
	}
	return &Benchmark{Name: name, Dir: dir, Manifest: manifest}, nil
}

// ListTestCases returns the sorted test-case ids of a benchmark. A missing
// inputs directory yields no ids.
func (c *Catalog) ListTestCases(name string) ([]string, error) {
	b, err := c.Get(name)
	if err != nil {
		return nil, err
	}
	return b.TestCases()
}

// TestCases returns the sorted ids of inputs matching the manifest pattern.
func (b *Benchmark) TestCases() ([]string, error) {
	dir := b.path(b.Manifest.Inputs)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, nil
	}

	matches, err := doublestar.Glob(os.DirFS(dir), b.Manifest.InputPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob inputs of %s: %w", b.Name, err)
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if !strings.HasSuffix(m, inputExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(m, inputExt))
	}

	slices.Sort(ids)
	return ids, nil
}
