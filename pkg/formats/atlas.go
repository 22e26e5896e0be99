package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Atlas asset errors.
var (
	ErrInvalidAtlasMagic       = errors.New("invalid atlas magic: expected 'MATL'")
	ErrUnsupportedAtlasVersion = errors.New("unsupported atlas version")
	ErrUnsupportedAtlasFormat  = errors.New("unsupported atlas texture format")
	ErrTruncatedAtlasData      = errors.New("truncated atlas data")
	ErrInvalidAtlasSize        = errors.New("invalid atlas dimensions")
	ErrAtlasNameTooLong        = errors.New("atlas rect mesh name too long")
)

// AtlasMagic is the asset signature.
var AtlasMagic = [4]byte{'M', 'A', 'T', 'L'}

const (
	// AssetTypeAtlas is the type tag written in the asset header.
	AssetTypeAtlas uint16 = 1

	// AtlasVersion is the only version written and read.
	AtlasVersion uint16 = 1

	// MaxAtlasDimension bounds the width and height of an atlas texture.
	MaxAtlasDimension = 1 << 16

	// AtlasNameSize is the fixed size of the mesh name field of a rect record.
	AtlasNameSize = 52

	atlasHeaderSize = 32
	atlasRectSize   = 96
)

// TextureFormat is the pixel layout of the atlas texture.
type TextureFormat uint8

// Texture formats.
const (
	TextureFormatR8    TextureFormat = 1
	TextureFormatRGBA8 TextureFormat = 4
)

// Channels returns bytes per pixel, or 0 for unknown formats.
func (f TextureFormat) Channels() int {
	switch f {
	case TextureFormatR8:
		return 1
	case TextureFormatRGBA8:
		return 4
	}
	return 0
}

// TextureFormatForChannels maps a channel count to its format.
func TextureFormatForChannels(channels int) (TextureFormat, error) {
	switch channels {
	case 1:
		return TextureFormatR8, nil
	case 4:
		return TextureFormatRGBA8, nil
	}
	return 0, fmt.Errorf("%w: %d channels", ErrUnsupportedAtlasFormat, channels)
}

// TextureFilter selects texture sampling.
type TextureFilter uint8

// Texture filters.
const (
	TextureFilterLinear  TextureFilter = 0
	TextureFilterNearest TextureFilter = 1
)

// TextureClamp selects texture wrapping.
type TextureClamp uint8

// Texture clamp modes.
const (
	TextureClampClamp  TextureClamp = 0
	TextureClampRepeat TextureClamp = 1
)

// AtlasRecord is one packed rect of an atlas asset.
type AtlasRecord struct {
	X, Y, Width, Height int32
	FrameCount          uint16
	BoundsMin           [2]float32 // mesh-space bounds
	BoundsMax           [2]float32
	PixelMin            [2]int16 // content bounds relative to the rect origin
	PixelMax            [2]int16
	Mesh                string
}

// Atlas represents a parsed atlas asset.
type Atlas struct {
	Version uint16
	Flags   uint32
	Format  TextureFormat
	Filter  TextureFilter
	Clamp   TextureClamp
	Width   uint32
	Height  uint32
	DPI     uint32
	Rects   []AtlasRecord
	Pixels  []byte // Width*Height*Format.Channels() bytes, row-major
}

// PixelSize returns the expected length of Pixels.
func (a *Atlas) PixelSize() int {
	return int(a.Width) * int(a.Height) * a.Format.Channels()
}

// checkSize rejects dimensions a texture cannot have. Within the limits
// PixelSize cannot overflow.
func checkSize(width, height uint32) error {
	if width == 0 || height == 0 || width > MaxAtlasDimension || height > MaxAtlasDimension {
		return fmt.Errorf("%w: %dx%d (limit %d)", ErrInvalidAtlasSize, width, height, MaxAtlasDimension)
	}
	return nil
}

type atlasHeader struct {
	Signature [4]byte
	Type      uint16
	Version   uint16
	Flags     uint32
	Format    uint8
	Filter    uint8
	Clamp     uint8
	Reserved  uint8
	Width     uint32
	Height    uint32
	DPI       uint32
	RectCount uint32
}

type atlasRect struct {
	X, Y, W, H int32
	Frames     uint16
	Reserved   uint16
	MinX, MinY float32
	MaxX, MaxY float32
	PixMinX    int16
	PixMinY    int16
	PixMaxX    int16
	PixMaxY    int16
	Name       [AtlasNameSize]byte
}

// ParseAtlas parses an atlas asset from raw bytes.
func ParseAtlas(data []byte) (*Atlas, error) {
	if len(data) < atlasHeaderSize {
		return nil, ErrTruncatedAtlasData
	}

	r := bytes.NewReader(data)

	var h atlasHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedAtlasData)
	}
	if h.Signature != AtlasMagic {
		return nil, ErrInvalidAtlasMagic
	}
	if h.Type != AssetTypeAtlas {
		return nil, fmt.Errorf("%w: asset type %d", ErrInvalidAtlasMagic, h.Type)
	}
	if h.Version != AtlasVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedAtlasVersion, h.Version)
	}

	atlas := &Atlas{
		Version: h.Version,
		Flags:   h.Flags,
		Format:  TextureFormat(h.Format),
		Filter:  TextureFilter(h.Filter),
		Clamp:   TextureClamp(h.Clamp),
		Width:   h.Width,
		Height:  h.Height,
		DPI:     h.DPI,
	}
	if atlas.Format.Channels() == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedAtlasFormat, h.Format)
	}
	if err := checkSize(h.Width, h.Height); err != nil {
		return nil, err
	}

	// Guard against absurd counts before allocating.
	pixelSize := int64(h.Width) * int64(h.Height) * int64(atlas.Format.Channels())
	if int64(h.RectCount)*atlasRectSize+pixelSize > int64(r.Len()) {
		return nil, fmt.Errorf("%w: %d rects and %d pixel bytes in %d bytes",
			ErrTruncatedAtlasData, h.RectCount, pixelSize, r.Len())
	}

	atlas.Rects = make([]AtlasRecord, 0, h.RectCount)
	for i := uint32(0); i < h.RectCount; i++ {
		var wr atlasRect
		if err := binary.Read(r, binary.LittleEndian, &wr); err != nil {
			return nil, fmt.Errorf("%w: reading rect %d", ErrTruncatedAtlasData, i)
		}
		atlas.Rects = append(atlas.Rects, AtlasRecord{
			X:          wr.X,
			Y:          wr.Y,
			Width:      wr.W,
			Height:     wr.H,
			FrameCount: wr.Frames,
			BoundsMin:  [2]float32{wr.MinX, wr.MinY},
			BoundsMax:  [2]float32{wr.MaxX, wr.MaxY},
			PixelMin:   [2]int16{wr.PixMinX, wr.PixMinY},
			PixelMax:   [2]int16{wr.PixMaxX, wr.PixMaxY},
			Mesh:       string(bytes.TrimRight(wr.Name[:], "\x00")),
		})
	}

	size := atlas.PixelSize()
	if r.Len() < size {
		return nil, fmt.Errorf("%w: pixel data (%d of %d bytes)", ErrTruncatedAtlasData, r.Len(), size)
	}
	atlas.Pixels = make([]byte, size)
	if _, err := io.ReadFull(r, atlas.Pixels); err != nil {
		return nil, fmt.Errorf("%w: reading pixel data", ErrTruncatedAtlasData)
	}

	return atlas, nil
}

// ParseAtlasFile parses an atlas asset from disk.
func ParseAtlasFile(path string) (*Atlas, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading atlas file: %w", err)
	}
	return ParseAtlas(data)
}

// WriteTo encodes the asset to w.
func (a *Atlas) WriteTo(w io.Writer) (int64, error) {
	data, err := a.Marshal()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Marshal encodes the asset: header, rect count, fixed-size rect records,
// then the raw pixel buffer.
func (a *Atlas) Marshal() ([]byte, error) {
	if a.Format.Channels() == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedAtlasFormat, a.Format)
	}
	if err := checkSize(a.Width, a.Height); err != nil {
		return nil, err
	}
	if len(a.Pixels) != a.PixelSize() {
		return nil, fmt.Errorf("pixel buffer is %d bytes, expected %d", len(a.Pixels), a.PixelSize())
	}

	buf := bytes.NewBuffer(make([]byte, 0, atlasHeaderSize+len(a.Rects)*atlasRectSize+len(a.Pixels)))

	h := atlasHeader{
		Signature: AtlasMagic,
		Type:      AssetTypeAtlas,
		Version:   AtlasVersion,
		Flags:     a.Flags,
		Format:    uint8(a.Format),
		Filter:    uint8(a.Filter),
		Clamp:     uint8(a.Clamp),
		Width:     a.Width,
		Height:    a.Height,
		DPI:       a.DPI,
		RectCount: uint32(len(a.Rects)),
	}
	if err := binary.Write(buf, binary.LittleEndian, &h); err != nil {
		return nil, err
	}

	for i, rec := range a.Rects {
		if len(rec.Mesh) > AtlasNameSize {
			return nil, fmt.Errorf("%w: rect %d %q (%d bytes, max %d)", ErrAtlasNameTooLong, i, rec.Mesh, len(rec.Mesh), AtlasNameSize)
		}
		wr := atlasRect{
			X:       rec.X,
			Y:       rec.Y,
			W:       rec.Width,
			H:       rec.Height,
			Frames:  rec.FrameCount,
			MinX:    rec.BoundsMin[0],
			MinY:    rec.BoundsMin[1],
			MaxX:    rec.BoundsMax[0],
			MaxY:    rec.BoundsMax[1],
			PixMinX: rec.PixelMin[0],
			PixMinY: rec.PixelMin[1],
			PixMaxX: rec.PixelMax[0],
			PixMaxY: rec.PixelMax[1],
		}
		copy(wr.Name[:], rec.Mesh)
		if err := binary.Write(buf, binary.LittleEndian, &wr); err != nil {
			return nil, err
		}
	}

	buf.Write(a.Pixels)
	return buf.Bytes(), nil
}
