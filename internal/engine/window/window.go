// Package window opens the SDL2 window and OpenGL context the preview
// draws into.
package window

import (
	"fmt"
	"runtime"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"
)

func init() {
	// GL contexts are bound to the thread that created them.
	runtime.LockOSThread()
}

// Requested context version. 4.1 core is the newest macOS offers.
const (
	GLMajor = 4
	GLMinor = 1
)

// Config holds window configuration.
type Config struct {
	Title     string
	Width     int
	Height    int
	MinWidth  int
	MinHeight int
	VSync     bool
	Logger    *zap.Logger
}

// Window owns an SDL2 window and its GL context.
type Window struct {
	log *zap.Logger
	win *sdl.Window
	ctx sdl.GLContext
}

// New initializes SDL video, then creates a resizable high-DPI window and
// makes a core GL context current on it.
func New(cfg Config) (*Window, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	w := &Window{log: log}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("SDL_Init: %w", err)
	}
	ok := false
	defer func() {
		if !ok {
			w.Close()
		}
	}()

	attrs := []struct {
		attr  sdl.GLattr
		value int
	}{
		{sdl.GL_CONTEXT_MAJOR_VERSION, GLMajor},
		{sdl.GL_CONTEXT_MINOR_VERSION, GLMinor},
		{sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE},
		{sdl.GL_DOUBLEBUFFER, 1},
	}
	for _, a := range attrs {
		if err := sdl.GLSetAttribute(a.attr, a.value); err != nil {
			return nil, fmt.Errorf("SDL_GL_SetAttribute(%d): %w", a.attr, err)
		}
	}

	var err error
	w.win, err = sdl.CreateWindow(cfg.Title,
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(cfg.Width), int32(cfg.Height),
		sdl.WINDOW_OPENGL|sdl.WINDOW_RESIZABLE|sdl.WINDOW_ALLOW_HIGHDPI)
	if err != nil {
		return nil, fmt.Errorf("SDL_CreateWindow: %w", err)
	}
	if cfg.MinWidth > 0 && cfg.MinHeight > 0 {
		w.win.SetMinimumSize(int32(cfg.MinWidth), int32(cfg.MinHeight))
	}

	if w.ctx, err = w.win.GLCreateContext(); err != nil {
		return nil, fmt.Errorf("SDL_GL_CreateContext: %w", err)
	}

	interval := 0
	if cfg.VSync {
		interval = 1
	}
	if err := sdl.GLSetSwapInterval(interval); err != nil {
		// adaptive or forced vsync drivers refuse this; not fatal
		log.Warn("swap interval rejected", zap.Int("interval", interval), zap.Error(err))
	}

	dw, dh := w.DrawableSize()
	log.Info("window created",
		zap.String("title", cfg.Title),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Int("drawable_width", dw),
		zap.Int("drawable_height", dh),
		zap.Bool("vsync", cfg.VSync))

	ok = true
	return w, nil
}

// Close tears down whatever New managed to create and shuts SDL down.
func (w *Window) Close() {
	if w.ctx != nil {
		sdl.GLDeleteContext(w.ctx)
		w.ctx = nil
	}
	if w.win != nil {
		w.win.Destroy()
		w.win = nil
	}
	sdl.Quit()
}

// SwapBuffers presents the back buffer.
func (w *Window) SwapBuffers() {
	w.win.GLSwap()
}

// Size returns the window size in screen coordinates, the space mouse
// events are reported in.
func (w *Window) Size() (int, int) {
	width, height := w.win.GetSize()
	return int(width), int(height)
}

// DrawableSize returns the framebuffer size in pixels. It is larger than
// Size on high-DPI displays.
func (w *Window) DrawableSize() (int, int) {
	width, height := w.win.GLGetDrawableSize()
	return int(width), int(height)
}

// SetTitle sets the window title.
func (w *Window) SetTitle(title string) {
	w.win.SetTitle(title)
}
