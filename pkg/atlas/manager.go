package atlas

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Manager owns a pool of atlases named <prefix>NN and assigns meshes to
// the first one with room, creating atlases as needed.
type Manager struct {
	prefix  string
	opts    Options
	log     *zap.Logger
	atlases []*Atlas
	retired []*Atlas // dropped but not yet closed
	next    int
}

// NewManager creates an empty pool. Every atlas it creates uses opts.
func NewManager(prefix string, opts Options) (*Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{prefix: prefix, opts: opts, log: log}, nil
}

// Atlases returns the managed atlases in creation order.
func (mg *Manager) Atlases() []*Atlas {
	return append([]*Atlas(nil), mg.atlases...)
}

// FindAtlasForMesh returns the atlas holding the named mesh.
func (mg *Manager) FindAtlasForMesh(name string) (*Atlas, Rect, bool) {
	for _, a := range mg.atlases {
		if r, ok := a.FindRectForMesh(name); ok {
			return a, r, true
		}
	}
	return nil, Rect{}, false
}

// Assign places m in the first atlas with room. A mesh that is already
// assigned stays where it is. ErrTooLarge is returned when m does not fit
// even an empty atlas.
func (mg *Manager) Assign(m Mesh, rd Renderer) (*Atlas, Rect, error) {
	if a, r, ok := mg.FindAtlasForMesh(m.Name()); ok {
		return a, r, nil
	}

	for _, a := range mg.atlases {
		r, err := a.Place(m, rd)
		if err == nil {
			mg.log.Debug("assigned mesh", zap.String("mesh", m.Name()), zap.String("atlas", a.Name()))
			return a, r, nil
		}
		if !isCapacity(err) && !errors.Is(err, ErrTableFull) {
			return nil, Rect{}, err
		}
	}

	a, err := mg.create()
	if err != nil {
		return nil, Rect{}, err
	}
	r, err := a.Place(m, rd)
	if err != nil {
		if isCapacity(err) {
			return nil, Rect{}, fmt.Errorf("%w: %q exceeds a %dx%d atlas", ErrTooLarge, m.Name(), mg.opts.Width, mg.opts.Height)
		}
		return nil, Rect{}, err
	}
	mg.next++
	mg.atlases = append(mg.atlases, a)
	mg.log.Info("assigned mesh to new atlas", zap.String("mesh", m.Name()), zap.String("atlas", a.Name()))
	return a, r, nil
}

// RegenerateAll clears every atlas and reassigns all managed meshes plus
// any extra names, ordered by name prefix (up to the last '_') and then by
// full name. Atlases left empty are dropped. Per-mesh failures are joined
// into the returned error; the remaining meshes are still assigned.
func (mg *Manager) RegenerateAll(src MeshSource, rd Renderer, extra ...string) error {
	names := make(map[string]bool)
	for _, a := range mg.atlases {
		for _, r := range a.Rects() {
			names[r.Mesh] = true
		}
	}
	for _, n := range extra {
		names[n] = true
	}

	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Slice(sorted, func(i, j int) bool {
		pi, pj := namePrefix(sorted[i]), namePrefix(sorted[j])
		if pi != pj {
			return pi < pj
		}
		return sorted[i] < sorted[j]
	})

	for _, a := range mg.atlases {
		a.ClearAllRects()
	}

	var errs []error
	assigned := 0
	for _, n := range sorted {
		m, ok := src.Mesh(n)
		if !ok {
			mg.log.Warn("dropping missing mesh", zap.String("mesh", n))
			continue
		}
		if _, _, err := mg.Assign(m, rd); err != nil {
			errs = append(errs, err)
			continue
		}
		assigned++
	}

	kept := mg.atlases[:0]
	for _, a := range mg.atlases {
		if a.Len() > 0 {
			kept = append(kept, a)
			continue
		}
		mg.log.Info("dropping empty atlas", zap.String("atlas", a.Name()))
		mg.retired = append(mg.retired, a)
	}
	clear(mg.atlases[len(kept):])
	mg.atlases = kept

	mg.log.Info("regenerated managed atlases",
		zap.Int("assigned", assigned),
		zap.Int("meshes", len(sorted)),
		zap.Int("atlases", len(mg.atlases)))
	return errors.Join(errs...)
}

// Close closes every atlas, including ones dropped by RegenerateAll.
func (mg *Manager) Close(dev Device) {
	for _, a := range mg.atlases {
		a.Close(dev)
	}
	for _, a := range mg.retired {
		a.Close(dev)
	}
	mg.atlases, mg.retired = nil, nil
}

// create builds the next atlas of the pool. It joins the pool and takes
// its number only once a mesh has been placed in it.
func (mg *Manager) create() (*Atlas, error) {
	opts := mg.opts
	opts.Name = fmt.Sprintf("%s%02d", mg.prefix, mg.next)
	return New(opts)
}

func namePrefix(name string) string {
	if i := strings.LastIndexByte(name, '_'); i > 0 {
		return name[:i]
	}
	return name
}
