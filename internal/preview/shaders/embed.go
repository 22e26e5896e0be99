// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// QuadVertexShader transforms textured, tinted 2D quads.
//
//go:embed quad.vert
var QuadVertexShader string

// QuadFragmentShader samples the bound texture and multiplies by the
// vertex color.
//
//go:embed quad.frag
var QuadFragmentShader string
