// Package assets handles mesh loading and caching for the importer.
package assets

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Faultbox/meshatlas/pkg/atlas"
	"github.com/Faultbox/meshatlas/pkg/mesh"
)

// Manager resolves mesh names against a list of mesh directories.
type Manager struct {
	dirs  []string
	libs  []*mesh.Library
	cache *meshCache
	mu    sync.RWMutex
}

// NewManager creates a new mesh manager.
func NewManager() *Manager {
	return &Manager{
		cache: newMeshCache(),
	}
}

// AddDir loads every mesh under dir and adds it to the manager.
// Directories are searched in reverse order (last added = highest priority).
func (m *Manager) AddDir(dir string) error {
	lib := mesh.NewLibrary()
	if err := lib.LoadDir(dir); err != nil {
		return fmt.Errorf("loading mesh dir %s: %w", dir, err)
	}

	m.mu.Lock()
	m.dirs = append(m.dirs, dir)
	m.libs = append(m.libs, lib)
	m.cache.reset()
	m.mu.Unlock()

	return nil
}

// Dirs returns the mesh directories in the order they were added.
func (m *Manager) Dirs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.dirs...)
}

// Get looks up a mesh by name.
func (m *Manager) Get(name string) (*mesh.Mesh, bool) {
	if ms, ok := m.cache.get(name); ok {
		return ms, true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.libs) - 1; i >= 0; i-- {
		if ms, ok := m.libs[i].Get(name); ok {
			m.cache.put(name, ms)
			return ms, true
		}
	}
	return nil, false
}

// Names returns every distinct mesh name, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var names []string
	for _, lib := range m.libs {
		for _, name := range lib.Names() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the number of distinct mesh names.
func (m *Manager) Len() int {
	return len(m.Names())
}

// Mesh implements atlas.MeshSource.
func (m *Manager) Mesh(name string) (atlas.Mesh, bool) {
	ms, ok := m.Get(name)
	if !ok {
		return nil, false
	}
	return ms, true
}

// Reload reads every directory again. On failure the previous meshes stay.
func (m *Manager) Reload() error {
	dirs := m.Dirs()
	libs := make([]*mesh.Library, 0, len(dirs))
	for _, dir := range dirs {
		lib := mesh.NewLibrary()
		if err := lib.LoadDir(dir); err != nil {
			return fmt.Errorf("reloading mesh dir %s: %w", dir, err)
		}
		libs = append(libs, lib)
	}

	m.mu.Lock()
	m.libs = libs
	m.cache.reset()
	m.mu.Unlock()

	return nil
}

// Close drops all directories.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dirs = nil
	m.libs = nil
	m.cache.reset()
}

// CacheStats counts name lookups since the manager was created.
type CacheStats struct {
	Hits    int
	Misses  int
	Entries int
}

// CacheStats returns the lookup counters of the name cache.
func (m *Manager) CacheStats() CacheStats {
	return m.cache.stats()
}

// meshCache remembers which library resolved a name. Clearing it drops
// the entries but keeps the counters.
type meshCache struct {
	mu      sync.Mutex
	entries map[string]*mesh.Mesh
	hits    int
	misses  int
}

func newMeshCache() *meshCache {
	return &meshCache{entries: make(map[string]*mesh.Mesh)}
}

func (c *meshCache) get(name string) (*mesh.Mesh, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ms, ok := c.entries[name]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return ms, ok
}

func (c *meshCache) put(name string, ms *mesh.Mesh) {
	c.mu.Lock()
	c.entries[name] = ms
	c.mu.Unlock()
}

func (c *meshCache) reset() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

func (c *meshCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Entries: len(c.entries)}
}
