package atlas

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/meshatlas/pkg/formats"
)

// Texture is a device texture handle.
type Texture uint32

// Material binds the atlas texture with its sampling state.
type Material struct {
	Texture Texture
	Filter  formats.TextureFilter
	Clamp   formats.TextureClamp
}

// Device uploads pixel buffers to the GPU.
type Device interface {
	CreateTexture(width, height, channels int, pixels []byte, filter formats.TextureFilter, clamp formats.TextureClamp) (Texture, error)
	UpdateTexture(tex Texture, pixels []byte) error
	DestroyTexture(tex Texture)
}

// Material returns the atlas material, or nil before the first Sync.
func (a *Atlas) Material() *Material { return a.material }

// Sync uploads the pixel buffer when the atlas is dirty. It does nothing
// when the atlas is clean. The texture and material are created on the
// first upload and recreated when the surface size changed. On failure the
// atlas stays dirty so the next Sync retries.
func (a *Atlas) Sync(dev Device) error {
	a.checkOpen()
	if !a.dirty {
		return nil
	}
	a.ensurePixels()

	w, h := a.tbl.width, a.tbl.height
	if a.hasTexture && (a.texW != w || a.texH != h) {
		dev.DestroyTexture(a.texture)
		a.hasTexture = false
		a.material = nil
	}

	if !a.hasTexture {
		tex, err := dev.CreateTexture(w, h, a.opts.Channels, a.pixels, a.opts.Filter, a.opts.Clamp)
		if err != nil {
			a.log.Warn("texture create failed", zap.Error(err))
			return fmt.Errorf("%w: %v", ErrUpload, err)
		}
		a.texture, a.texW, a.texH, a.hasTexture = tex, w, h, true
		a.material = &Material{Texture: tex, Filter: a.opts.Filter, Clamp: a.opts.Clamp}
	} else if err := dev.UpdateTexture(a.texture, a.pixels); err != nil {
		a.log.Warn("texture upload failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUpload, err)
	}

	a.dirty = false
	return nil
}

// Close destroys the texture and releases the pixel buffer. Calling Close
// twice, or using the atlas after Close, panics.
func (a *Atlas) Close(dev Device) {
	a.checkOpen()
	if a.hasTexture {
		dev.DestroyTexture(a.texture)
		a.hasTexture = false
	}
	a.material = nil
	a.pixels = nil
	a.closed = true
}

func (a *Atlas) checkOpen() {
	if a.closed {
		panic(fmt.Sprintf("atlas %q used after Close", a.opts.Name))
	}
}
