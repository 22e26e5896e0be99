package mesh

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// ErrDuplicateMesh is returned when two meshes share a name.
var ErrDuplicateMesh = errors.New("duplicate mesh name")

// Library maps mesh names to meshes, remembering insertion order.
type Library struct {
	meshes map[string]*Mesh
	order  []string
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{meshes: make(map[string]*Mesh)}
}

// Add registers a mesh.
func (l *Library) Add(m *Mesh) error {
	if _, exists := l.meshes[m.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMesh, m.Name())
	}
	l.meshes[m.Name()] = m
	l.order = append(l.order, m.Name())
	return nil
}

// Replace registers a mesh, overwriting any mesh with the same name.
func (l *Library) Replace(m *Mesh) {
	if _, exists := l.meshes[m.Name()]; !exists {
		l.order = append(l.order, m.Name())
	}
	l.meshes[m.Name()] = m
}

// Get returns the mesh with the given name.
func (l *Library) Get(name string) (*Mesh, bool) {
	m, ok := l.meshes[name]
	return m, ok
}

// Names returns mesh names in insertion order.
func (l *Library) Names() []string {
	return append([]string(nil), l.order...)
}

// Len returns the number of meshes.
func (l *Library) Len() int {
	return len(l.order)
}

// LoadDir adds every mesh file under dir, in lexical path order.
func (l *Library) LoadDir(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), Ext) {
			return nil
		}
		m, err := LoadFile(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		return l.Add(m)
	})
}
