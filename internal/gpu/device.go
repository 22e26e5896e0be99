// Package gpu uploads atlas pixel buffers to OpenGL textures.
package gpu

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/meshatlas/pkg/atlas"
	"github.com/Faultbox/meshatlas/pkg/formats"
)

// Device errors.
var (
	ErrUnknownTexture = errors.New("gpu: unknown texture")
	ErrPixelSize      = errors.New("gpu: pixel buffer size mismatch")
)

type textureInfo struct {
	width, height int
	channels      int
}

// GLDevice implements atlas.Device on the current GL context. It must be
// used from the thread that owns the context.
type GLDevice struct {
	textures map[atlas.Texture]textureInfo
}

// NewGLDevice creates a device. gl.Init must have been called.
func NewGLDevice() *GLDevice {
	return &GLDevice{textures: make(map[atlas.Texture]textureInfo)}
}

// CreateTexture implements atlas.Device.
func (d *GLDevice) CreateTexture(width, height, channels int, pixels []byte, filter formats.TextureFilter, clamp formats.TextureClamp) (atlas.Texture, error) {
	internal, format, err := glFormat(channels)
	if err != nil {
		return 0, err
	}
	if len(pixels) != width*height*channels {
		return 0, fmt.Errorf("%w: %d bytes for %dx%dx%d", ErrPixelSize, len(pixels), width, height, channels)
	}

	var texID uint32
	gl.GenTextures(1, &texID)
	gl.BindTexture(gl.TEXTURE_2D, texID)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(width), int32(height), 0,
		format, gl.UNSIGNED_BYTE, gl.Ptr(pixels))

	f := int32(gl.LINEAR)
	if filter == formats.TextureFilterNearest {
		f = gl.NEAREST
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, f)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, f)

	wrap := int32(gl.CLAMP_TO_EDGE)
	if clamp == formats.TextureClampRepeat {
		wrap = gl.REPEAT
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap)

	// Alpha-only atlases sample as white with coverage in alpha.
	if channels == 1 {
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_SWIZZLE_R, gl.ONE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_SWIZZLE_G, gl.ONE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_SWIZZLE_B, gl.ONE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_SWIZZLE_A, gl.RED)
	}

	if err := checkError("TexImage2D"); err != nil {
		gl.DeleteTextures(1, &texID)
		return 0, err
	}

	tex := atlas.Texture(texID)
	d.textures[tex] = textureInfo{width: width, height: height, channels: channels}
	return tex, nil
}

// UpdateTexture implements atlas.Device. The whole surface is replaced.
func (d *GLDevice) UpdateTexture(tex atlas.Texture, pixels []byte) error {
	info, ok := d.textures[tex]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTexture, tex)
	}
	if len(pixels) != info.width*info.height*info.channels {
		return fmt.Errorf("%w: %d bytes for %dx%dx%d", ErrPixelSize, len(pixels), info.width, info.height, info.channels)
	}
	_, format, err := glFormat(info.channels)
	if err != nil {
		return err
	}

	gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(info.width), int32(info.height),
		format, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return checkError("TexSubImage2D")
}

// DestroyTexture implements atlas.Device.
func (d *GLDevice) DestroyTexture(tex atlas.Texture) {
	if _, ok := d.textures[tex]; !ok {
		return
	}
	id := uint32(tex)
	gl.DeleteTextures(1, &id)
	delete(d.textures, tex)
}

// Live returns the number of textures not yet destroyed.
func (d *GLDevice) Live() int { return len(d.textures) }

func glFormat(channels int) (internal int32, format uint32, err error) {
	switch channels {
	case 1:
		return gl.R8, gl.RED, nil
	case 4:
		return gl.RGBA8, gl.RGBA, nil
	default:
		return 0, 0, fmt.Errorf("%w: %d", formats.ErrUnsupportedAtlasFormat, channels)
	}
}

func checkError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%s: gl error 0x%x", op, code)
	}
	return nil
}
