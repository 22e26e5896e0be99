// Package importer turns editor atlas sources into binary atlas assets.
package importer

import (
	"fmt"
	gomath "math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/meshatlas/internal/assets"
	"github.com/Faultbox/meshatlas/internal/config"
	"github.com/Faultbox/meshatlas/internal/raster"
	"github.com/Faultbox/meshatlas/pkg/atlas"
	"github.com/Faultbox/meshatlas/pkg/formats"
	"github.com/Faultbox/meshatlas/pkg/mesh"
)

// Importer file extensions.
const (
	SourceExt = ".atlas"
	AssetExt  = ".matl"
)

// AtlasImporter imports .atlas sources. Meshes are resolved from the
// configured mesh directories.
type AtlasImporter struct {
	cfg    *config.Config
	meshes *assets.Manager
	rd     atlas.Renderer
	log    *zap.Logger
}

// New creates an importer and loads every configured mesh directory.
func New(cfg *config.Config, log *zap.Logger) (*AtlasImporter, error) {
	if log == nil {
		log = zap.NewNop()
	}
	meshes := assets.NewManager()
	for _, dir := range cfg.Import.MeshDirs {
		if err := meshes.AddDir(dir); err != nil {
			return nil, err
		}
	}
	log.Debug("meshes loaded", zap.Strings("dirs", cfg.Import.MeshDirs), zap.Int("count", meshes.Len()))

	return &AtlasImporter{
		cfg:    cfg,
		meshes: meshes,
		rd:     raster.New(),
		log:    log,
	}, nil
}

// Ext returns the source extension handled by the importer.
func (im *AtlasImporter) Ext() string { return SourceExt }

// Meshes returns the mesh manager used to resolve rects.
func (im *AtlasImporter) Meshes() *assets.Manager { return im.meshes }

// OutputPath returns where the asset for srcPath is written.
func (im *AtlasImporter) OutputPath(srcPath string) string {
	name := strings.TrimSuffix(filepath.Base(srcPath), SourceExt)
	return filepath.Join(im.cfg.Import.OutputDir, name+AssetExt)
}

// Build loads a source into a rasterized atlas. Sources saved at another
// DPI are regenerated. Otherwise the saved layout is kept and redrawn.
func (im *AtlasImporter) Build(srcPath string, meta *Meta) (*atlas.Atlas, error) {
	src, err := formats.ParseAtlasSourceFile(srcPath)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		if meta, err = LoadMeta(srcPath); err != nil {
			return nil, err
		}
	}

	opts := im.cfg.Atlas.Options()
	opts.Name = strings.TrimSuffix(filepath.Base(srcPath), SourceExt)
	opts.Logger = im.log
	opts.Filter, opts.Clamp = meta.Sampling()
	if src.Width > 0 {
		opts.Width = src.Width
	}
	if src.Height > 0 {
		opts.Height = src.Height
	}
	opts.MaxSize = max(opts.MaxSize, opts.Width, opts.Height)

	a, err := atlas.New(opts)
	if err != nil {
		return nil, err
	}
	if err := a.RestoreSource(src); err != nil {
		return nil, fmt.Errorf("restoring %s: %w", srcPath, err)
	}

	dpi := int(gomath.Round(float64(opts.DPI)))
	if src.DPI != 0 && src.DPI != dpi {
		im.log.Info("dpi changed, regenerating",
			zap.String("source", srcPath),
			zap.Int("from", src.DPI),
			zap.Int("to", dpi))
		err = a.Regenerate(im.meshes, im.rd)
	} else {
		err = a.Redraw(im.meshes, im.rd)
	}
	if err != nil {
		return nil, fmt.Errorf("rasterizing %s: %w", srcPath, err)
	}
	stats := im.meshes.CacheStats()
	im.log.Debug("built atlas",
		zap.String("source", srcPath),
		zap.Int("rects", a.Len()),
		zap.Int("mesh_cache_hits", stats.Hits),
		zap.Int("mesh_cache_misses", stats.Misses))
	return a, nil
}

// Import builds srcPath and writes the binary asset to outPath. A nil
// meta is read from the file next to the source.
func (im *AtlasImporter) Import(srcPath, outPath string, meta *Meta) error {
	a, err := im.Build(srcPath, meta)
	if err != nil {
		return err
	}

	asset, err := a.ToAsset()
	if err != nil {
		return err
	}
	data, err := asset.Marshal()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("writing asset: %w", err)
	}

	w, h := a.Size()
	im.log.Info("imported atlas",
		zap.String("source", srcPath),
		zap.String("output", outPath),
		zap.Int("rects", a.Len()),
		zap.Int("width", w),
		zap.Int("height", h))
	return nil
}

// DependsOn reports whether the source at srcPath has a rect for the
// named mesh. Unreadable sources depend on nothing.
func (im *AtlasImporter) DependsOn(srcPath, meshName string) bool {
	src, err := formats.ParseAtlasSourceFile(srcPath)
	if err != nil {
		im.log.Debug("skipping unreadable source", zap.String("source", srcPath), zap.Error(err))
		return false
	}
	for _, r := range src.Rects {
		if r.Mesh == meshName {
			return true
		}
	}
	return false
}

// FindSources returns every atlas source under dir.
func FindSources(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == SourceExt {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

// Affected maps changed file paths to the sources among sources that must
// be imported again. meshesChanged reports whether any mesh file changed,
// in which case the mesh manager needs a reload first.
func (im *AtlasImporter) Affected(changed, sources []string) (targets []string, meshesChanged bool) {
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			targets = append(targets, path)
		}
	}

	for _, path := range changed {
		switch {
		case strings.HasSuffix(path, SourceExt):
			add(path)
		case strings.HasSuffix(path, SourceExt+MetaExt):
			add(strings.TrimSuffix(path, MetaExt))
		case strings.HasSuffix(path, mesh.Ext):
			meshesChanged = true
			name := strings.TrimSuffix(filepath.Base(path), mesh.Ext)
			if m, err := mesh.LoadFile(path); err == nil {
				name = m.Name()
			}
			for _, src := range sources {
				if im.DependsOn(src, name) {
					add(src)
				}
			}
		}
	}
	sort.Strings(targets)
	return targets, meshesChanged
}
