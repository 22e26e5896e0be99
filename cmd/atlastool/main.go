// atlastool is a CLI utility for building and inspecting mesh atlases.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"

	"github.com/Faultbox/meshatlas/internal/config"
	"github.com/Faultbox/meshatlas/internal/engine/debug"
	"github.com/Faultbox/meshatlas/internal/importer"
	"github.com/Faultbox/meshatlas/internal/logger"
	"github.com/Faultbox/meshatlas/internal/watch"
	"github.com/Faultbox/meshatlas/pkg/formats"
	"github.com/Faultbox/meshatlas/pkg/mesh"
)

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fail(err)
	}
	defer logger.Sync()

	command := args[0]
	args = args[1:]

	switch command {
	case "import":
		err = cmdImport(cfg, args)
	case "info":
		err = cmdInfo(args)
	case "export":
		err = cmdExport(args)
	case "pack":
		err = cmdPack(cfg, args)
	case "watch":
		err = cmdWatch(cfg, args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fail(err)
	}
}

func fail(err error) {
	logger.Sync()
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Println(`atlastool - mesh atlas utility

Usage:
  atlastool [flags] <command> [options]

Commands:
  import <file.atlas>... [-o out]      Import sources into binary atlas assets
  info <file.matl|file.atlas>          Show atlas size and rects
  export <file.matl> <out.png> [-s N]  Write the atlas pixels as PNG, scaled by N
  pack [-d dir] [mesh...]              Pack meshes into new atlas sources and import them
  watch <dir>                          Re-import sources under dir when they or their meshes change

Flags:
  -config <file>   Config file (default ./meshatlas.yaml)
  -meshes <dir>    Mesh directory
  -out <dir>       Output directory for assets
  -size, -dpi, -padding, -debug, -log

Examples:
  atlastool import ui/props.atlas
  atlastool -dpi 192 import ui/props.atlas
  atlastool export build/props.matl props.png -s 2
  atlastool -meshes art/meshes pack -d ui rock tree`)
}

func newImporter(cfg *config.Config) (*importer.AtlasImporter, error) {
	return importer.New(cfg, logger.Named("importer"))
}

func cmdImport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	out := fs.String("o", "", "Output file (single source only)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.New("usage: atlastool import <file.atlas>... [-o out]")
	}
	if *out != "" && fs.NArg() > 1 {
		return errors.New("-o needs exactly one source")
	}

	im, err := newImporter(cfg)
	if err != nil {
		return err
	}
	for _, src := range fs.Args() {
		dst := *out
		if dst == "" {
			dst = im.OutputPath(src)
		}
		if err := im.Import(src, dst, nil); err != nil {
			return err
		}
		fmt.Printf("%s -> %s\n", src, dst)
	}
	return nil
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: atlastool info <file.matl|file.atlas>")
	}
	path := args[0]

	if strings.HasSuffix(path, importer.SourceExt) {
		src, err := formats.ParseAtlasSourceFile(path)
		if err != nil {
			return err
		}
		fmt.Printf("Source:  %s\n", path)
		fmt.Printf("Size:    %dx%d\n", src.Width, src.Height)
		fmt.Printf("DPI:     %d\n", src.DPI)
		fmt.Printf("Rects:   %d\n", len(src.Rects))
		fmt.Println()
		for _, r := range src.Rects {
			fmt.Printf("  %-24s %4d,%-4d %4dx%-4d frames %d\n", r.Mesh, r.X, r.Y, r.Width, r.Height, r.FrameCount)
		}
		return nil
	}

	a, err := formats.ParseAtlasFile(path)
	if err != nil {
		return err
	}
	used := 0
	for _, r := range a.Rects {
		used += int(r.Width) * int(r.Height)
	}
	fmt.Printf("Asset:   %s\n", path)
	fmt.Printf("Version: %d\n", a.Version)
	fmt.Printf("Size:    %dx%d\n", a.Width, a.Height)
	fmt.Printf("Format:  %s\n", formatName(a.Format))
	fmt.Printf("Filter:  %s\n", filterName(a.Filter))
	fmt.Printf("Clamp:   %s\n", clampName(a.Clamp))
	fmt.Printf("DPI:     %d\n", a.DPI)
	fmt.Printf("Rects:   %d (%.1f%% used)\n", len(a.Rects), 100*float64(used)/float64(a.Width*a.Height))
	fmt.Println()
	for _, r := range a.Rects {
		fmt.Printf("  %-24s %4d,%-4d %4dx%-4d frames %d  content %d,%d-%d,%d\n",
			r.Mesh, r.X, r.Y, r.Width, r.Height, r.FrameCount,
			r.PixelMin[0], r.PixelMin[1], r.PixelMax[0], r.PixelMax[1])
	}
	return nil
}

func formatName(f formats.TextureFormat) string {
	switch f {
	case formats.TextureFormatR8:
		return "R8"
	case formats.TextureFormatRGBA8:
		return "RGBA8"
	}
	return fmt.Sprintf("unknown (%d)", f)
}

func filterName(f formats.TextureFilter) string {
	if f == formats.TextureFilterNearest {
		return "nearest"
	}
	return "linear"
}

func clampName(c formats.TextureClamp) string {
	if c == formats.TextureClampRepeat {
		return "repeat"
	}
	return "clamp"
}

func cmdExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	scale := fs.Int("s", 1, "Integer scale factor")
	smooth := fs.Bool("smooth", false, "Use Catmull-Rom filtering when scaling")
	fs.Parse(args)

	if fs.NArg() < 2 || *scale < 1 {
		return errors.New("usage: atlastool export <file.matl> <out.png> [-s N]")
	}

	a, err := formats.ParseAtlasFile(fs.Arg(0))
	if err != nil {
		return err
	}

	img := assetImage(a)
	if *scale > 1 {
		b := img.Bounds()
		dst := image.NewRGBA(image.Rect(0, 0, b.Dx()**scale, b.Dy()**scale))
		var interp xdraw.Interpolator = xdraw.NearestNeighbor
		if *smooth {
			interp = xdraw.CatmullRom
		}
		interp.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		img = dst
	}

	if err := debug.WritePNG(fs.Arg(1), img); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%dx%d)\n", fs.Arg(1), img.Bounds().Dx(), img.Bounds().Dy())
	return nil
}

// assetImage wraps the asset pixels without copying. RGBA8 pixels are
// premultiplied, matching image.RGBA.
func assetImage(a *formats.Atlas) image.Image {
	r := image.Rect(0, 0, int(a.Width), int(a.Height))
	if a.Format == formats.TextureFormatR8 {
		return &image.Alpha{Pix: a.Pixels, Stride: int(a.Width), Rect: r}
	}
	return &image.RGBA{Pix: a.Pixels, Stride: int(a.Width) * 4, Rect: r}
}

func cmdPack(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	dir := fs.String("d", ".", "Directory for the generated .atlas sources")
	fs.Parse(args)

	im, err := newImporter(cfg)
	if err != nil {
		return err
	}
	written, err := im.Pack(*dir, fs.Args())
	for _, path := range written {
		fmt.Printf("%s -> %s\n", path, im.OutputPath(path))
	}
	return err
}

func cmdWatch(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: atlastool watch <dir>")
	}
	srcDir := args[0]

	im, err := newImporter(cfg)
	if err != nil {
		return err
	}
	log := logger.Named("watch")

	w, err := watch.New(cfg.Import.WatchDebounce, log, importer.SourceExt, importer.SourceExt+importer.MetaExt, mesh.Ext)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, dir := range append([]string{srcDir}, cfg.Import.MeshDirs...) {
		if err := w.AddRecursive(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	log.Info("watching", zap.String("sources", srcDir), zap.Strings("meshes", cfg.Import.MeshDirs))
	for {
		select {
		case batch, ok := <-w.Batches():
			if !ok {
				return nil
			}
			reimport(im, srcDir, batch, log)
		case err, ok := <-w.Errors():
			if ok {
				log.Error("watcher", zap.Error(err))
			}
		case <-interrupt:
			return nil
		}
	}
}

// reimport imports every source affected by a batch of changes. Failures
// are logged and the watch goes on.
func reimport(im *importer.AtlasImporter, srcDir string, changed []string, log *zap.Logger) {
	sources, err := importer.FindSources(srcDir)
	if err != nil {
		log.Error("listing sources", zap.Error(err))
		return
	}

	targets, meshesChanged := im.Affected(changed, sources)
	if meshesChanged {
		if err := im.Meshes().Reload(); err != nil {
			log.Error("reloading meshes", zap.Error(err))
			return
		}
	}

	for _, src := range targets {
		if _, err := os.Stat(src); err != nil {
			continue // deleted
		}
		out := im.OutputPath(src)
		if err := im.Import(src, out, nil); err != nil {
			log.Error("import failed", zap.String("source", filepath.Base(src)), zap.Error(err))
		}
	}
}
