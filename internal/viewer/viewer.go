// Package viewer implements the interactive atlas preview loop.
package viewer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/meshatlas/internal/config"
	"github.com/Faultbox/meshatlas/internal/engine/debug"
	"github.com/Faultbox/meshatlas/internal/engine/input"
	"github.com/Faultbox/meshatlas/internal/engine/window"
	"github.com/Faultbox/meshatlas/internal/gpu"
	"github.com/Faultbox/meshatlas/internal/importer"
	"github.com/Faultbox/meshatlas/internal/preview"
	"github.com/Faultbox/meshatlas/internal/preview/canvas"
	"github.com/Faultbox/meshatlas/internal/raster"
	"github.com/Faultbox/meshatlas/internal/watch"
	"github.com/Faultbox/meshatlas/pkg/atlas"
	"github.com/Faultbox/meshatlas/pkg/math"
	"github.com/Faultbox/meshatlas/pkg/mesh"
)

// Viewer shows one atlas source and rebuilds it when its files change.
type Viewer struct {
	cfg      *config.Config
	log      *zap.Logger
	srcPath  string
	importer *importer.AtlasImporter
	raster   *raster.Renderer
	atlas    *atlas.Atlas

	window   *window.Window
	renderer *preview.Renderer
	input    *input.Input
	device   *gpu.GLDevice
	watcher  *watch.Watcher
	shots    *debug.ScreenshotCapture

	view    canvas.View
	opts    preview.DrawOptions
	running bool
	capture bool // take a screenshot after the next draw
}

// New builds the atlas for srcPath and opens the preview window.
func New(cfg *config.Config, srcPath string, log *zap.Logger) (*Viewer, error) {
	v := &Viewer{
		cfg:     cfg,
		log:     log,
		srcPath: srcPath,
		raster:  raster.New(),
		view:    canvas.DefaultView(),
		shots:   debug.NewScreenshotCapture(filepath.Join(cfg.Import.OutputDir, "screenshots"), "atlasview"),
	}

	bg, err := canvas.ParseColor(cfg.Preview.Background)
	if err != nil {
		return nil, fmt.Errorf("preview background: %w", err)
	}
	v.opts = preview.DrawOptions{Background: bg, ShowOutlines: cfg.Preview.ShowOutlines}

	v.importer, err = importer.New(cfg, log.Named("importer"))
	if err != nil {
		return nil, err
	}
	v.atlas, err = v.importer.Build(srcPath, nil)
	if err != nil {
		return nil, err
	}

	// Window first: the GL context must exist before any GL call
	v.window, err = window.New(window.Config{
		Title:     "atlasview",
		Width:     cfg.Preview.Width,
		Height:    cfg.Preview.Height,
		MinWidth:  320,
		MinHeight: 240,
		VSync:     cfg.Preview.VSync,
		Logger:    log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	if err := gl.Init(); err != nil {
		v.window.Close()
		return nil, fmt.Errorf("gl init: %w", err)
	}

	v.renderer, err = preview.New()
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	v.device = gpu.NewGLDevice()
	v.input = input.New()

	v.watcher, err = watch.New(cfg.Import.WatchDebounce, log.Named("watch"),
		importer.SourceExt, importer.SourceExt+importer.MetaExt, mesh.Ext)
	if err != nil {
		log.Warn("live reload disabled", zap.Error(err))
	} else {
		dirs := append([]string{filepath.Dir(srcPath)}, cfg.Import.MeshDirs...)
		for _, dir := range dirs {
			if err := v.watcher.AddRecursive(dir); err != nil {
				log.Warn("not watching directory", zap.String("dir", dir), zap.Error(err))
			}
		}
	}

	v.updateTitle()
	return v, nil
}

// Run starts the preview loop. It returns when the window closes.
func (v *Viewer) Run() error {
	v.running = true
	fpsTimer := time.Now()
	frames := 0

	for v.running {
		if v.input.Update() {
			v.running = false
			break
		}
		v.handleEvents()
		v.pollWatcher()

		if err := v.atlas.Sync(v.device); err != nil {
			// Stays dirty, retried next frame.
			v.log.Warn("atlas sync failed", zap.Error(err))
		}

		w, h := v.window.Size()
		fw, fh := v.window.DrawableSize()
		v.renderer.Draw(v.atlas, v.framebufferView(w, fw), fw, fh, v.opts)
		if v.capture {
			v.capture = false
			v.screenshot(fw, fh)
		}
		v.window.SwapBuffers()

		frames++
		if time.Since(fpsTimer) >= time.Second {
			v.log.Debug("fps", zap.Int("count", frames), zap.Int("width", w), zap.Int("height", h))
			frames = 0
			fpsTimer = time.Now()
		}
	}
	return nil
}

// framebufferView converts the window-space view to framebuffer pixels.
func (v *Viewer) framebufferView(windowW, fbW int) canvas.View {
	fv := v.view
	if windowW > 0 {
		fv.Pan = fv.Pan.Scale(float32(fbW) / float32(windowW))
	}
	return fv
}

func (v *Viewer) handleEvents() {
	w, h := v.window.Size()
	aw, ah := v.atlas.Size()

	for _, e := range v.input.Events() {
		switch e.Type {
		case input.EventKeyDown:
			v.handleKey(e.Key)

		case input.EventMouseWheel:
			if e.Wheel > 0 {
				v.view.ZoomBy(1.25)
			} else if e.Wheel < 0 {
				v.view.ZoomBy(0.8)
			}

		case input.EventMouseMove:
			if v.input.ButtonDown(sdl.BUTTON_LEFT) || v.input.ButtonDown(sdl.BUTTON_MIDDLE) {
				v.view.Pan = v.view.Pan.Add(math.Vec2{X: float32(e.DeltaX), Y: float32(e.DeltaY)})
			}
			p := v.view.ScreenToAtlas(math.Vec2{X: float32(e.MouseX), Y: float32(e.MouseY)}, w, h, aw, ah)
			hover := ""
			if r, ok := canvas.PickRect(v.atlas, p); ok {
				hover = r.Mesh
			}
			if hover != v.opts.Hover {
				v.opts.Hover = hover
				v.updateTitle()
			}
		}
	}
}

func (v *Viewer) handleKey(key sdl.Keycode) {
	switch key {
	case sdl.K_ESCAPE:
		v.running = false
	case sdl.K_o:
		v.opts.ShowOutlines = !v.opts.ShowOutlines
	case sdl.K_0, sdl.K_HOME:
		v.view = canvas.DefaultView()
	case sdl.K_r:
		if err := v.atlas.Regenerate(v.importer.Meshes(), v.raster); err != nil {
			v.log.Error("regenerate failed", zap.Error(err))
		}
		v.updateTitle()
	case sdl.K_s:
		v.save()
	case sdl.K_F12:
		v.capture = true
	}
}

// save writes the current layout back to the source and imports it.
func (v *Viewer) save() {
	if err := os.WriteFile(v.srcPath, v.atlas.Source().Marshal(), 0644); err != nil {
		v.log.Error("saving source", zap.Error(err))
		return
	}
	if err := v.importer.Import(v.srcPath, v.importer.OutputPath(v.srcPath), nil); err != nil {
		v.log.Error("import failed", zap.Error(err))
	}
}

// screenshot reads back the drawn frame before it is presented.
func (v *Viewer) screenshot(width, height int) {
	pixels := make([]byte, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))

	path, err := v.shots.CaptureFromPixels(pixels, width, height)
	if err != nil {
		v.log.Error("screenshot failed", zap.Error(err))
		return
	}
	v.log.Info("screenshot saved", zap.String("path", path))
}

func (v *Viewer) pollWatcher() {
	if v.watcher == nil {
		return
	}
	select {
	case batch := <-v.watcher.Batches():
		v.reload(batch)
	default:
	}
}

// reload rebuilds the atlas after a change to its source or meshes. The
// current atlas stays on screen when the rebuild fails.
func (v *Viewer) reload(changed []string) {
	targets, meshesChanged := v.importer.Affected(changed, []string{v.srcPath})
	if meshesChanged {
		if err := v.importer.Meshes().Reload(); err != nil {
			v.log.Error("reloading meshes", zap.Error(err))
			return
		}
	}
	if len(targets) == 0 {
		return
	}

	a, err := v.importer.Build(v.srcPath, nil)
	if err != nil {
		v.log.Error("rebuilding atlas", zap.Error(err))
		return
	}
	v.atlas.Close(v.device)
	v.atlas = a
	v.opts.Hover = ""
	v.updateTitle()
	v.log.Info("atlas reloaded", zap.String("source", v.srcPath))
}

func (v *Viewer) updateTitle() {
	if v.window == nil {
		return
	}
	w, h := v.atlas.Size()
	title := fmt.Sprintf("atlasview - %s %dx%d, %d rects, %.0f%% used",
		filepath.Base(v.srcPath), w, h, v.atlas.Len(), v.atlas.Occupancy()*100)
	if v.opts.Hover != "" {
		title += " - " + v.opts.Hover
	}
	v.window.SetTitle(title)
}

// Close releases the atlas texture, GL objects and the window.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	if v.watcher != nil {
		v.watcher.Close()
	}
	if v.atlas != nil && v.device != nil {
		v.atlas.Close(v.device)
	}
	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}
