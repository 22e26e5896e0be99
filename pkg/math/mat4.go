package math

// Mat4 is a column-major 4x4 matrix, the layout glUniformMatrix4fv expects
// with transpose set to false. Element (row, col) lives at index col*4+row.
type Mat4 [16]float32

// Identity returns the identity matrix.
func Identity() Mat4 {
	var m Mat4
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
	return m
}

// Ortho returns an orthographic projection of the box
// [left,right] x [bottom,top] x [near,far] onto clip space.
func Ortho(left, right, bottom, top, near, far float32) Mat4 {
	w, h, d := right-left, top-bottom, far-near
	m := Identity()
	m[0] = 2 / w
	m[5] = 2 / h
	m[10] = -2 / d
	m[12] = -(right + left) / w
	m[13] = -(top + bottom) / h
	m[14] = -(far + near) / d
	return m
}

// ScreenOrtho maps window pixels with the origin at the top left corner
// to clip space.
func ScreenOrtho(width, height float32) Mat4 {
	return Ortho(0, width, height, 0, -1, 1)
}

// Affine2D scales the xy plane by s and then moves it by t.
func Affine2D(t, s Vec2) Mat4 {
	m := Identity()
	m[0], m[5] = s.X, s.Y
	m[12], m[13] = t.X, t.Y
	return m
}

// Mul returns m * o, so o is applied first.
func (m Mat4) Mul(o Mat4) Mat4 {
	var r Mat4
	for i := range r {
		col, row := i/4, i%4
		for k := 0; k < 4; k++ {
			r[i] += m[k*4+row] * o[col*4+k]
		}
	}
	return r
}

// TransformVec2 applies m to the point (p.X, p.Y, 0, 1) and drops z.
func (m Mat4) TransformVec2(p Vec2) Vec2 {
	return Vec2{
		X: m[0]*p.X + m[4]*p.Y + m[12],
		Y: m[1]*p.X + m[5]*p.Y + m[13],
	}
}

// InvertAffine2D inverts a matrix built by Affine2D. It reports false when
// either scale factor is zero.
func (m Mat4) InvertAffine2D() (Mat4, bool) {
	if m[0] == 0 || m[5] == 0 {
		return Mat4{}, false
	}
	s := Vec2{1 / m[0], 1 / m[5]}
	t := Vec2{-m[12] * s.X, -m[13] * s.Y}
	return Affine2D(t, s), true
}

// Ptr returns the address of the first element for GL uniform uploads.
func (m *Mat4) Ptr() *float32 {
	return &m[0]
}
