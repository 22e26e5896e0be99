// Package atlas packs rasterized meshes into a texture atlas and keeps the
// GPU copy of it in sync.
//
// An Atlas owns a fixed table of MaxRects slots, a rect packer, a CPU pixel
// buffer and, once synced, a GPU texture. Slots are invalidated rather than
// removed, and the lowest invalidated slot is reused on the next allocation.
// Every change to the table or the pixels sets the dirty flag; Sync uploads
// the buffer only while that flag is set.
//
// The package is single-threaded. Callers serialize access to an Atlas.
package atlas

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"go.uber.org/zap"

	"github.com/Faultbox/meshatlas/pkg/formats"
	"github.com/Faultbox/meshatlas/pkg/math"
	"github.com/Faultbox/meshatlas/pkg/rectpack"
)

const (
	// MaxRects is the capacity of the rect table.
	MaxRects = 256

	DefaultSize     = 1024
	DefaultMaxSize  = 4096
	DefaultDPI      = 96
	DefaultPadding  = 2
	DefaultChannels = 4
)

// Atlas errors.
var (
	ErrTableFull    = errors.New("atlas: rect table full")
	ErrAtlasFull    = errors.New("atlas: no free space for rect")
	ErrTooLarge     = errors.New("atlas: mesh does not fit the atlas surface")
	ErrRectNotFound = errors.New("atlas: no rect for mesh")
	ErrMeshNotFound = errors.New("atlas: mesh not found")
	ErrDuplicate    = errors.New("atlas: mesh already has a rect")
	ErrInconsistent = errors.New("atlas: rect table and packer diverged")
	ErrUpload       = errors.New("atlas: texture upload failed")
)

// OptionError reports an invalid Options field.
type OptionError struct {
	Field  string
	Reason string
}

func (e *OptionError) Error() string {
	return "atlas: invalid option " + e.Field + ": " + e.Reason
}

// Options configures an Atlas.
type Options struct {
	Name string

	Width   int
	Height  int
	MaxSize int // growth limit for both axes

	DPI      float32 // pixels per mesh unit
	Padding  int     // pixels around every frame
	Channels int     // 4 for RGBA8, 1 for alpha only

	// RepackThreshold is how many pixels a rect may shrink per axis and
	// still keep its slot. Zero reuses a slot only for an unchanged footprint.
	RepackThreshold int

	Filter formats.TextureFilter
	Clamp  formats.TextureClamp

	Logger *zap.Logger
}

// DefaultOptions returns the editor defaults.
func DefaultOptions() Options {
	return Options{
		Width:    DefaultSize,
		Height:   DefaultSize,
		MaxSize:  DefaultMaxSize,
		DPI:      DefaultDPI,
		Padding:  DefaultPadding,
		Channels: DefaultChannels,
		Filter:   formats.TextureFilterLinear,
		Clamp:    formats.TextureClampClamp,
	}
}

// Validate checks the options.
func (o *Options) Validate() error {
	if o.Width < 1 || o.Height < 1 {
		return &OptionError{Field: "Size", Reason: "must be at least 1x1"}
	}
	if o.MaxSize < 1 || o.MaxSize > formats.MaxAtlasDimension {
		return &OptionError{Field: "MaxSize", Reason: fmt.Sprintf("must be in [1, %d]", formats.MaxAtlasDimension)}
	}
	if o.Width > o.MaxSize || o.Height > o.MaxSize {
		return &OptionError{Field: "Size", Reason: "must be at most MaxSize"}
	}
	if o.DPI <= 0 {
		return &OptionError{Field: "DPI", Reason: "must be positive"}
	}
	if o.Padding < 0 {
		return &OptionError{Field: "Padding", Reason: "must be non-negative"}
	}
	if o.Channels != 1 && o.Channels != 4 {
		return &OptionError{Field: "Channels", Reason: "must be 1 or 4"}
	}
	if o.RepackThreshold < 0 {
		return &OptionError{Field: "RepackThreshold", Reason: "must be non-negative"}
	}
	return nil
}

// Rect is one slot of the rect table.
type Rect struct {
	Slot int
	Seq  uint64 // allocation order, used to regenerate in insertion order

	X, Y          int
	Width, Height int

	Mesh       string
	FrameCount int
	MeshBounds math.Bounds2

	// Content pixel bounds of the frame, relative to the frame origin.
	// PixelMax is inclusive.
	PixelMin image.Point
	PixelMax image.Point

	Valid bool
}

// FrameWidth returns the width of one frame of the strip.
func (r Rect) FrameWidth() int {
	if r.FrameCount < 1 {
		return r.Width
	}
	return r.Width / r.FrameCount
}

// Bounds returns the rect in atlas pixel space.
func (r Rect) Bounds() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// FrameBounds returns the pixel rect of frame i.
func (r Rect) FrameBounds(i int) image.Rectangle {
	fw := r.FrameWidth()
	x := r.X + i*fw
	return image.Rect(x, r.Y, x+fw, r.Y+r.Height)
}

func (r Rect) placement() rectpack.Rect {
	return rectpack.Rect{X: r.X, Y: r.Y, W: r.Width, H: r.Height}
}

// Atlas is a texture atlas: rect table, packer, pixel buffer and texture.
type Atlas struct {
	opts Options
	log  *zap.Logger

	tbl    *table
	pixels []byte // lazily allocated, width*height*channels
	dirty  bool

	texture    Texture
	material   *Material
	texW, texH int
	hasTexture bool
	closed     bool
}

// New creates an empty atlas.
func New(opts Options) (*Atlas, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Name != "" {
		log = log.With(zap.String("atlas", opts.Name))
	}

	return &Atlas{
		opts: opts,
		log:  log,
		tbl:  newTable(opts.Width, opts.Height),
	}, nil
}

// Name returns the atlas name.
func (a *Atlas) Name() string { return a.opts.Name }

// Options returns the options the atlas was created with. Width and Height
// reflect the current surface size.
func (a *Atlas) Options() Options {
	o := a.opts
	o.Width, o.Height = a.tbl.width, a.tbl.height
	return o
}

// Size returns the surface size in pixels.
func (a *Atlas) Size() (width, height int) {
	return a.tbl.width, a.tbl.height
}

// Dirty reports whether the pixel buffer changed since the last Sync.
func (a *Atlas) Dirty() bool { return a.dirty }

// MarkDirty forces the next Sync to upload.
func (a *Atlas) MarkDirty() { a.dirty = true }

// Occupancy returns the used fraction of the surface.
func (a *Atlas) Occupancy() float64 {
	return a.tbl.packer.Occupancy()
}

// Pixels returns the pixel buffer, allocating it on first use.
func (a *Atlas) Pixels() []byte {
	a.ensurePixels()
	return a.pixels
}

// Image returns an image view over the pixel buffer.
func (a *Atlas) Image() draw.Image {
	a.ensurePixels()
	return a.imageView(a.pixels, a.tbl.width, a.tbl.height)
}

func (a *Atlas) ensurePixels() {
	if a.pixels == nil {
		a.pixels = make([]byte, a.tbl.width*a.tbl.height*a.opts.Channels)
	}
}

func (a *Atlas) imageView(pix []byte, width, height int) draw.Image {
	bounds := image.Rect(0, 0, width, height)
	if a.opts.Channels == 1 {
		return &image.Alpha{Pix: pix, Stride: width, Rect: bounds}
	}
	return &image.RGBA{Pix: pix, Stride: width * 4, Rect: bounds}
}

func (a *Atlas) String() string {
	return fmt.Sprintf("atlas %q %dx%d (%d rects)", a.opts.Name, a.tbl.width, a.tbl.height, a.Len())
}
