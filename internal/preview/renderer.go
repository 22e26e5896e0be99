// Package preview draws an atlas texture and its rect outlines with OpenGL.
package preview

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/meshatlas/internal/engine/shader"
	"github.com/Faultbox/meshatlas/internal/preview/canvas"
	"github.com/Faultbox/meshatlas/internal/preview/shaders"
	"github.com/Faultbox/meshatlas/pkg/atlas"
	"github.com/Faultbox/meshatlas/pkg/math"
)

// DrawOptions controls what Draw renders besides the atlas texture.
type DrawOptions struct {
	Background   canvas.Color
	ShowOutlines bool
	Hover        string // mesh whose rect is highlighted
}

// Renderer draws atlases. It must be used on the GL thread.
type Renderer struct {
	program *shader.Program
	vao     uint32
	vbo     uint32
	white   uint32

	under canvas.Batch // checker and outlines share the white texture
	over  canvas.Batch
	quad  canvas.Batch
}

// New creates the preview renderer.
func New() (*Renderer, error) {
	prog, err := shader.Compile(shaders.QuadVertexShader, shaders.QuadFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("quad shader: %w", err)
	}
	r := &Renderer{program: prog}
	r.createBuffers()
	r.createWhiteTexture()
	return r, nil
}

func (r *Renderer) createBuffers() {
	gl.GenVertexArrays(1, &r.vao)
	gl.GenBuffers(1, &r.vbo)
	gl.BindVertexArray(r.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)

	stride := int32(canvas.FloatsPerVertex * 4)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, stride, 2*4)
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointerWithOffset(2, 4, gl.FLOAT, false, stride, 4*4)

	gl.BindVertexArray(0)
}

func (r *Renderer) createWhiteTexture() {
	gl.GenTextures(1, &r.white)
	gl.BindTexture(gl.TEXTURE_2D, r.white)
	white := []uint8{255, 255, 255, 255}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, 1, 1, 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(white))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
}

// Draw clears the screen and renders a synced atlas through view.
func (r *Renderer) Draw(a *atlas.Atlas, view canvas.View, screenW, screenH int, opts DrawOptions) {
	bg := opts.Background
	gl.Viewport(0, 0, int32(screenW), int32(screenH))
	gl.ClearColor(bg.R, bg.G, bg.B, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	mat := a.Material()
	if mat == nil {
		return
	}

	w, h := a.Size()
	full := math.Bounds2{Max: math.Vec2{X: float32(w), Y: float32(h)}}

	r.under.Reset()
	r.under.AddChecker(full, 16, canvas.ColorChecker.Premultiplied())

	r.quad.Reset()
	r.quad.AddQuad(full, math.Vec2{}, math.Vec2{X: 1, Y: 1}, canvas.ColorWhite)

	r.over.Reset()
	if opts.ShowOutlines {
		for _, box := range a.Outline(1) {
			r.over.AddRect(box, canvas.ColorOutline.Premultiplied())
		}
	}
	if rect, ok := a.FindRectForMesh(opts.Hover); ok && opts.Hover != "" {
		for _, box := range hoverOutline(rect) {
			r.over.AddRect(box, canvas.ColorHover.Premultiplied())
		}
	}

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.ONE, gl.ONE_MINUS_SRC_ALPHA)
	gl.Disable(gl.DEPTH_TEST)

	r.program.Use()
	r.program.SetMat4("uTransform", view.Transform(screenW, screenH, w, h))
	r.program.SetInt("uTexture", 0)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindVertexArray(r.vao)

	r.flush(&r.under, r.white)
	r.flush(&r.quad, uint32(mat.Texture))
	r.flush(&r.over, r.white)

	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.UseProgram(0)
}

func (r *Renderer) flush(b *canvas.Batch, tex uint32) {
	if b.Len() == 0 {
		return
	}
	v := b.Vertices()
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(v)*4, unsafe.Pointer(&v[0]), gl.STREAM_DRAW)
	gl.DrawArrays(gl.TRIANGLES, 0, int32(b.Len()))
}

// hoverOutline returns a 2 pixel border just outside the rect.
func hoverOutline(rect atlas.Rect) []math.Bounds2 {
	x0, y0 := float32(rect.X)-2, float32(rect.Y)-2
	x1, y1 := float32(rect.X+rect.Width)+2, float32(rect.Y+rect.Height)+2
	return []math.Bounds2{
		{Min: math.Vec2{X: x0, Y: y0}, Max: math.Vec2{X: x1, Y: y0 + 2}},
		{Min: math.Vec2{X: x0, Y: y1 - 2}, Max: math.Vec2{X: x1, Y: y1}},
		{Min: math.Vec2{X: x0, Y: y0}, Max: math.Vec2{X: x0 + 2, Y: y1}},
		{Min: math.Vec2{X: x1 - 2, Y: y0}, Max: math.Vec2{X: x1, Y: y1}},
	}
}

// Close releases GL resources.
func (r *Renderer) Close() {
	if r.vao != 0 {
		gl.DeleteVertexArrays(1, &r.vao)
	}
	if r.vbo != 0 {
		gl.DeleteBuffers(1, &r.vbo)
	}
	if r.white != 0 {
		gl.DeleteTextures(1, &r.white)
	}
	r.program.Delete()
}
