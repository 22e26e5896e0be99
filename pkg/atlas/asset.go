package atlas

import (
	"fmt"
	"image"
	gomath "math"

	"github.com/Faultbox/meshatlas/pkg/formats"
	"github.com/Faultbox/meshatlas/pkg/math"
)

// ToAsset converts the atlas to its binary asset form. Valid rects are
// written in allocation order, which Restore turns back into Seq order.
func (a *Atlas) ToAsset() (*formats.Atlas, error) {
	format, err := formats.TextureFormatForChannels(a.opts.Channels)
	if err != nil {
		return nil, err
	}
	a.ensurePixels()

	w, h := a.Size()
	asset := &formats.Atlas{
		Version: formats.AtlasVersion,
		Format:  format,
		Filter:  a.opts.Filter,
		Clamp:   a.opts.Clamp,
		Width:   uint32(w),
		Height:  uint32(h),
		DPI:     uint32(gomath.Round(float64(a.opts.DPI))),
		Pixels:  append([]byte(nil), a.pixels...),
	}
	for _, r := range a.tbl.ordered() {
		if len(r.Mesh) > formats.AtlasNameSize {
			return nil, fmt.Errorf("%w: %q", formats.ErrAtlasNameTooLong, r.Mesh)
		}
		asset.Rects = append(asset.Rects, formats.AtlasRecord{
			X:          int32(r.X),
			Y:          int32(r.Y),
			Width:      int32(r.Width),
			Height:     int32(r.Height),
			FrameCount: uint16(r.FrameCount),
			BoundsMin:  [2]float32{r.MeshBounds.Min.X, r.MeshBounds.Min.Y},
			BoundsMax:  [2]float32{r.MeshBounds.Max.X, r.MeshBounds.Max.Y},
			PixelMin:   [2]int16{int16(r.PixelMin.X), int16(r.PixelMin.Y)},
			PixelMax:   [2]int16{int16(r.PixelMax.X), int16(r.PixelMax.Y)},
			Mesh:       r.Mesh,
		})
	}
	return asset, nil
}

// FromAsset loads a binary asset into a new atlas. Size, DPI, channel
// depth and sampling come from the asset; the rest from opts.
func FromAsset(asset *formats.Atlas, opts Options) (*Atlas, error) {
	opts.Width, opts.Height = int(asset.Width), int(asset.Height)
	opts.MaxSize = max(opts.MaxSize, opts.Width, opts.Height)
	opts.DPI = float32(asset.DPI)
	opts.Channels = asset.Format.Channels()
	opts.Filter, opts.Clamp = asset.Filter, asset.Clamp

	a, err := New(opts)
	if err != nil {
		return nil, err
	}
	if len(asset.Pixels) != a.opts.Width*a.opts.Height*a.opts.Channels {
		return nil, fmt.Errorf("%w: %d pixel bytes for %dx%d", formats.ErrTruncatedAtlasData, len(asset.Pixels), opts.Width, opts.Height)
	}

	rects := make([]Rect, 0, len(asset.Rects))
	for _, rec := range asset.Rects {
		rects = append(rects, Rect{
			X:          int(rec.X),
			Y:          int(rec.Y),
			Width:      int(rec.Width),
			Height:     int(rec.Height),
			Mesh:       rec.Mesh,
			FrameCount: int(rec.FrameCount),
			MeshBounds: math.Bounds2{
				Min: math.Vec2{X: rec.BoundsMin[0], Y: rec.BoundsMin[1]},
				Max: math.Vec2{X: rec.BoundsMax[0], Y: rec.BoundsMax[1]},
			},
			PixelMin: image.Pt(int(rec.PixelMin[0]), int(rec.PixelMin[1])),
			PixelMax: image.Pt(int(rec.PixelMax[0]), int(rec.PixelMax[1])),
		})
	}
	if err := a.Restore(rects); err != nil {
		return nil, err
	}

	a.pixels = append([]byte(nil), asset.Pixels...)
	a.dirty = true
	return a, nil
}

// Source returns the editable text form of the layout, rects in
// allocation order.
func (a *Atlas) Source() *formats.AtlasSource {
	w, h := a.Size()
	src := &formats.AtlasSource{
		Width:  w,
		Height: h,
		DPI:    int(gomath.Round(float64(a.opts.DPI))),
	}
	for _, r := range a.tbl.ordered() {
		b := r.MeshBounds
		src.Rects = append(src.Rects, formats.AtlasSourceRect{
			Mesh:           r.Mesh,
			X:              r.X,
			Y:              r.Y,
			Width:          r.Width,
			Height:         r.Height,
			FrameCount:     r.FrameCount,
			Bounds:         [4]float32{b.Min.X, b.Min.Y, b.Max.X, b.Max.Y},
			HasBounds:      true,
			PixelBounds:    [4]int{r.PixelMin.X, r.PixelMin.Y, r.PixelMax.X, r.PixelMax.Y},
			HasPixelBounds: true,
		})
	}
	return src
}

// RestoreSource restores the rect layout of a text source. Rects without
// recorded bounds keep zero bounds until they are redrawn.
func (a *Atlas) RestoreSource(src *formats.AtlasSource) error {
	rects := make([]Rect, 0, len(src.Rects))
	for _, sr := range src.Rects {
		r := Rect{
			X:          sr.X,
			Y:          sr.Y,
			Width:      sr.Width,
			Height:     sr.Height,
			Mesh:       sr.Mesh,
			FrameCount: sr.FrameCount,
		}
		if sr.HasBounds {
			r.MeshBounds = math.Bounds2{
				Min: math.Vec2{X: sr.Bounds[0], Y: sr.Bounds[1]},
				Max: math.Vec2{X: sr.Bounds[2], Y: sr.Bounds[3]},
			}
		}
		if sr.HasPixelBounds {
			r.PixelMin = image.Pt(sr.PixelBounds[0], sr.PixelBounds[1])
			r.PixelMax = image.Pt(sr.PixelBounds[2], sr.PixelBounds[3])
		} else {
			r.PixelMin, r.PixelMax = a.contentCell(r)
		}
		rects = append(rects, r)
	}
	return a.Restore(rects)
}
