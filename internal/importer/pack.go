package importer

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/meshatlas/pkg/atlas"
)

// Pack spreads meshes over as many atlases as needed, named <prefix>NN,
// writes one source per atlas into dir and imports each of them. With no
// names every known mesh is packed. It returns the written source paths.
func (im *AtlasImporter) Pack(dir string, names []string) ([]string, error) {
	if len(names) == 0 {
		names = im.meshes.Names()
	}
	for _, name := range names {
		if _, ok := im.meshes.Get(name); !ok {
			return nil, fmt.Errorf("%w: %q", atlas.ErrMeshNotFound, name)
		}
	}

	opts := im.cfg.Atlas.Options()
	opts.Logger = im.log
	mg, err := atlas.NewManager(im.cfg.Atlas.Prefix, opts)
	if err != nil {
		return nil, err
	}
	if err := mg.RegenerateAll(im.meshes, im.rd, names...); err != nil {
		return nil, fmt.Errorf("packing meshes: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating source directory: %w", err)
	}

	var written []string
	for _, a := range mg.Atlases() {
		path := filepath.Join(dir, a.Name()+SourceExt)
		if err := os.WriteFile(path, a.Source().Marshal(), 0644); err != nil {
			return written, fmt.Errorf("writing source: %w", err)
		}
		written = append(written, path)
		im.log.Info("packed atlas",
			zap.String("source", path),
			zap.Int("rects", a.Len()),
			zap.Float64("occupancy", a.Occupancy()))

		if err := im.Import(path, im.OutputPath(path), nil); err != nil {
			return written, err
		}
	}

	stats := im.meshes.CacheStats()
	im.log.Debug("mesh lookups",
		zap.Int("hits", stats.Hits),
		zap.Int("misses", stats.Misses),
		zap.Int("cached", stats.Entries))
	return written, nil
}
