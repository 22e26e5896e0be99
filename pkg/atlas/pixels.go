package atlas

import (
	"fmt"
	"image"
	"image/draw"
)

// ClearRectPixels zeroes the pixels under r.
func (a *Atlas) ClearRectPixels(r Rect) {
	a.checkOpen()
	a.clearRegion(r)
	a.dirty = true
}

func (a *Atlas) clearRegion(r Rect) {
	if a.pixels == nil {
		return
	}
	clearRect(a.pixels, a.tbl.width*a.opts.Channels, a.opts.Channels, r.Bounds())
}

// copyRegion returns a copy of the pixel rows under r.
func (a *Atlas) copyRegion(r Rect) []byte {
	ch := a.opts.Channels
	stride := a.tbl.width * ch
	b := r.Bounds()
	row := b.Dx() * ch
	out := make([]byte, 0, row*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := y*stride + b.Min.X*ch
		out = append(out, a.pixels[off:off+row]...)
	}
	return out
}

// pasteRegion writes rows saved by copyRegion back under r.
func (a *Atlas) pasteRegion(r Rect, saved []byte) {
	ch := a.opts.Channels
	stride := a.tbl.width * ch
	b := r.Bounds()
	row := b.Dx() * ch
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := y*stride + b.Min.X*ch
		copy(a.pixels[off:off+row], saved[(y-b.Min.Y)*row:])
	}
}

// contentCell returns the frame-relative area inside the padding ring.
func (a *Atlas) contentCell(r Rect) (image.Point, image.Point) {
	p := a.opts.Padding
	return image.Pt(p, p), image.Pt(max(r.FrameWidth()-p-1, p), max(r.Height-p-1, p))
}

// resetContent sets the content bounds of a freshly placed rect to its
// whole cell until it is rasterized.
func (a *Atlas) resetContent(r Rect) Rect {
	r.PixelMin, r.PixelMax = a.contentCell(r)
	a.tbl.rects[r.Slot] = r
	return r
}

// rasterize renders every frame of m into r on the given buffer, records
// the content bounds and bleeds the content edges into the padding.
func (a *Atlas) rasterize(pix []byte, width, height int, r Rect, m Mesh, rd Renderer) (Rect, error) {
	ch := a.opts.Channels
	stride := width * ch
	dst := a.imageView(pix, width, height)
	bounds := m.Bounds()

	clearRect(pix, stride, ch, r.Bounds())
	for f := 0; f < r.FrameCount; f++ {
		cell := r.FrameBounds(f).Inset(a.opts.Padding)
		if err := rd.RenderMesh(dst, m, f, cell, bounds, a.opts.DPI); err != nil {
			clearRect(pix, stride, ch, r.Bounds())
			return r, &RasterError{Mesh: r.Mesh, Frame: f, Err: err}
		}
	}

	r.MeshBounds = bounds
	if lo, hi, ok := scanContent(pix, stride, ch, r); ok {
		r.PixelMin, r.PixelMax = lo, hi
	} else {
		r.PixelMin, r.PixelMax = a.contentCell(r)
	}

	for f := 0; f < r.FrameCount; f++ {
		frame := r.FrameBounds(f)
		dilate(pix, stride, ch, frame, frame.Inset(a.opts.Padding))
	}
	return r, nil
}

// RasterError reports a mesh frame the renderer could not draw.
type RasterError struct {
	Mesh  string
	Frame int
	Err   error
}

func (e *RasterError) Error() string {
	return fmt.Sprintf("atlas: rasterizing %q frame %d: %v", e.Mesh, e.Frame, e.Err)
}

func (e *RasterError) Unwrap() error { return e.Err }

func clearRect(pix []byte, stride, ch int, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := y * stride
		clear(pix[off+r.Min.X*ch : off+r.Max.X*ch])
	}
}

// scanContent returns the union of non-transparent pixel bounds over all
// frames of r, relative to the frame origin. PixelMax is inclusive.
func scanContent(pix []byte, stride, ch int, r Rect) (image.Point, image.Point, bool) {
	lo := image.Pt(r.FrameWidth(), r.Height)
	hi := image.Pt(-1, -1)
	found := false

	for f := 0; f < r.FrameCount; f++ {
		frame := r.FrameBounds(f)
		for y := frame.Min.Y; y < frame.Max.Y; y++ {
			off := y*stride + ch - 1
			for x := frame.Min.X; x < frame.Max.X; x++ {
				if pix[off+x*ch] == 0 {
					continue
				}
				fx, fy := x-frame.Min.X, y-frame.Min.Y
				lo.X, lo.Y = min(lo.X, fx), min(lo.Y, fy)
				hi.X, hi.Y = max(hi.X, fx), max(hi.Y, fy)
				found = true
			}
		}
	}
	return lo, hi, found
}

// dilate copies the edge pixels of cell outward until they fill frame, so
// linear filtering at the content edge never samples a neighbor.
func dilate(pix []byte, stride, ch int, frame, cell image.Rectangle) {
	if cell.Empty() || cell == frame {
		return
	}

	for y := cell.Min.Y; y < cell.Max.Y; y++ {
		off := y * stride
		left := pix[off+cell.Min.X*ch : off+(cell.Min.X+1)*ch]
		for x := frame.Min.X; x < cell.Min.X; x++ {
			copy(pix[off+x*ch:off+(x+1)*ch], left)
		}
		right := pix[off+(cell.Max.X-1)*ch : off+cell.Max.X*ch]
		for x := cell.Max.X; x < frame.Max.X; x++ {
			copy(pix[off+x*ch:off+(x+1)*ch], right)
		}
	}

	rowStart, rowEnd := frame.Min.X*ch, frame.Max.X*ch
	top := pix[cell.Min.Y*stride+rowStart : cell.Min.Y*stride+rowEnd]
	for y := frame.Min.Y; y < cell.Min.Y; y++ {
		copy(pix[y*stride+rowStart:y*stride+rowEnd], top)
	}
	bottom := pix[(cell.Max.Y-1)*stride+rowStart : (cell.Max.Y-1)*stride+rowEnd]
	for y := cell.Max.Y; y < frame.Max.Y; y++ {
		copy(pix[y*stride+rowStart:y*stride+rowEnd], bottom)
	}
}

func copyPixels(dst, src draw.Image) {
	draw.Draw(dst, src.Bounds().Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
}
