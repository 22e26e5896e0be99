package canvas

import "github.com/Faultbox/meshatlas/pkg/math"

// FloatsPerVertex is pos2 + uv2 + color4.
const FloatsPerVertex = 8

// Batch collects quads as triangle vertices.
type Batch struct {
	vertices []float32
}

// Reset empties the batch, keeping its storage.
func (b *Batch) Reset() {
	b.vertices = b.vertices[:0]
}

// Len returns the number of vertices.
func (b *Batch) Len() int {
	return len(b.vertices) / FloatsPerVertex
}

// Vertices returns the raw vertex data.
func (b *Batch) Vertices() []float32 {
	return b.vertices
}

// AddQuad appends a textured quad as two triangles.
func (b *Batch) AddQuad(box math.Bounds2, uvMin, uvMax math.Vec2, c Color) {
	x0, y0, x1, y1 := box.Min.X, box.Min.Y, box.Max.X, box.Max.Y
	u0, v0, u1, v1 := uvMin.X, uvMin.Y, uvMax.X, uvMax.Y
	b.vertices = append(b.vertices,
		x0, y0, u0, v0, c.R, c.G, c.B, c.A,
		x1, y0, u1, v0, c.R, c.G, c.B, c.A,
		x1, y1, u1, v1, c.R, c.G, c.B, c.A,
		x0, y0, u0, v0, c.R, c.G, c.B, c.A,
		x1, y1, u1, v1, c.R, c.G, c.B, c.A,
		x0, y1, u0, v1, c.R, c.G, c.B, c.A,
	)
}

// AddRect appends a solid quad. It samples the white texture at (0, 0).
func (b *Batch) AddRect(box math.Bounds2, c Color) {
	b.AddQuad(box, math.Vec2{}, math.Vec2{}, c)
}

// AddChecker appends a checkerboard of cell-sized squares covering box,
// drawn behind transparent atlas pixels.
func (b *Batch) AddChecker(box math.Bounds2, cell float32, c Color) {
	if cell <= 0 {
		return
	}
	row := 0
	for y := box.Min.Y; y < box.Max.Y; y += cell {
		col := 0
		for x := box.Min.X; x < box.Max.X; x += cell {
			if (row+col)%2 == 0 {
				b.AddRect(math.Bounds2{
					Min: math.Vec2{X: x, Y: y},
					Max: math.Vec2{X: min(x+cell, box.Max.X), Y: min(y+cell, box.Max.Y)},
				}, c)
			}
			col++
		}
		row++
	}
}
