package definition

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrWorkflowNotFound is returned when a catalog has no workflow by that name.
var ErrWorkflowNotFound = errors.New("workflow not found")

// Catalog indexes workflow resources by metadata.name.
type Catalog struct {
	mu        sync.RWMutex
	workflows map[string]*Workflow
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{workflows: make(map[string]*Workflow)}
}

// Add registers a workflow, replacing any workflow with the same name.
func (c *Catalog) Add(w *Workflow) error {
	if w.Name() == "" {
		return errors.New("workflow has no metadata.name")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workflows[w.Name()] = w
	return nil
}

// Get returns a workflow by name.
func (c *Catalog) Get(name string) (*Workflow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.workflows[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrWorkflowNotFound, name)
	}
	return w, nil
}

// Names returns the registered names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.workflows))
	for name := range c.workflows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of workflows.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.workflows)
}

// LoadPaths loads every .yaml or .yml file under the given files or
// directories. Directories are not searched recursively.
func LoadPaths(paths ...string) (*Catalog, error) {
	c := NewCatalog()
	var errs []error
	for _, p := range paths {
		files, err := expand(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, f := range files {
			w, err := LoadFile(f)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if err := c.Add(w); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", f, err))
			}
		}
	}
	return c, errors.Join(errs...)
}

func expand(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	return files, nil
}
