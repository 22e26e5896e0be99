// Package canvas computes preview geometry without touching GL.
package canvas

import (
	"image"

	"github.com/Faultbox/meshatlas/pkg/atlas"
	"github.com/Faultbox/meshatlas/pkg/math"
)

// Zoom limits.
const (
	MinZoom = 0.1
	MaxZoom = 32
)

// fitMargin leaves a border around a fitted atlas.
const fitMargin = 0.9

// View is the pan and zoom state of the preview. Zoom 1 fits the atlas
// to the window.
type View struct {
	Zoom float32
	Pan  math.Vec2 // screen pixels
}

// DefaultView returns a fitted, centered view.
func DefaultView() View {
	return View{Zoom: 1}
}

// ZoomBy multiplies the zoom, clamped to [MinZoom, MaxZoom].
func (v *View) ZoomBy(factor float32) {
	v.Zoom = min(max(v.Zoom*factor, MinZoom), MaxZoom)
}

// scale returns screen pixels per atlas pixel.
func (v View) scale(screenW, screenH, atlasW, atlasH int) float32 {
	fit := min(float32(screenW)/float32(atlasW), float32(screenH)/float32(atlasH))
	return fit * fitMargin * v.Zoom
}

// origin returns the screen position of atlas pixel (0, 0).
func (v View) origin(screenW, screenH, atlasW, atlasH int) math.Vec2 {
	s := v.scale(screenW, screenH, atlasW, atlasH)
	center := math.Vec2{X: float32(screenW) / 2, Y: float32(screenH) / 2}
	half := math.Vec2{X: float32(atlasW) * s / 2, Y: float32(atlasH) * s / 2}
	return center.Add(v.Pan).Sub(half)
}

// placement maps atlas pixels to screen pixels.
func (v View) placement(screenW, screenH, atlasW, atlasH int) math.Mat4 {
	s := v.scale(screenW, screenH, atlasW, atlasH)
	o := v.origin(screenW, screenH, atlasW, atlasH)
	return math.Affine2D(o, math.Vec2{X: s, Y: s})
}

// Transform maps atlas pixel space to clip space with y down.
func (v View) Transform(screenW, screenH, atlasW, atlasH int) math.Mat4 {
	proj := math.ScreenOrtho(float32(screenW), float32(screenH))
	return proj.Mul(v.placement(screenW, screenH, atlasW, atlasH))
}

// ScreenToAtlas maps a screen position to atlas pixel space.
func (v View) ScreenToAtlas(p math.Vec2, screenW, screenH, atlasW, atlasH int) math.Vec2 {
	inv, ok := v.placement(screenW, screenH, atlasW, atlasH).InvertAffine2D()
	if !ok {
		return math.Vec2{}
	}
	return inv.TransformVec2(p)
}

// PickRect returns the valid rect under atlas position p.
func PickRect(a *atlas.Atlas, p math.Vec2) (atlas.Rect, bool) {
	if p.X < 0 || p.Y < 0 {
		return atlas.Rect{}, false
	}
	pt := image.Pt(int(p.X), int(p.Y))
	for _, r := range a.Rects() {
		if pt.In(r.Bounds()) {
			return r, true
		}
	}
	return atlas.Rect{}, false
}
