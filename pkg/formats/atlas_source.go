package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrInvalidAtlasSource is returned for malformed .atlas source files.
var ErrInvalidAtlasSource = errors.New("invalid atlas source")

// AtlasSourceRect is one "r" line of an atlas source file.
type AtlasSourceRect struct {
	Mesh                string
	X, Y, Width, Height int
	FrameCount          int
	Bounds              [4]float32 // minX, minY, maxX, maxY
	HasBounds           bool
	PixelBounds         [4]int // minX, minY, maxX, maxY relative to the frame origin
	HasPixelBounds      bool
}

// AtlasSource is the editable text form of an atlas: its size, DPI and
// current rect layout.
type AtlasSource struct {
	Width  int
	Height int
	DPI    int
	Rects  []AtlasSourceRect
}

// ParseAtlasSource parses the text atlas format:
//
//	w 1024
//	h 1024
//	d 96
//	r "mesh" x y w h frames bminx bminy bmaxx bmaxy pminx pminy pmaxx pmaxy
//
// The frame count, mesh bounds and pixel bounds groups of an "r" line are
// optional so older files still load.
func ParseAtlasSource(data []byte) (*AtlasSource, error) {
	src := &AtlasSource{}

	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		var err error
		switch key {
		case "w":
			src.Width, err = strconv.Atoi(rest)
		case "h":
			src.Height, err = strconv.Atoi(rest)
		case "d":
			src.DPI, err = strconv.Atoi(rest)
		case "r":
			var r AtlasSourceRect
			r, err = parseSourceRect(rest)
			if err == nil {
				src.Rects = append(src.Rects, r)
			}
		default:
			err = fmt.Errorf("unknown token %q", key)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidAtlasSource, lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAtlasSource, err)
	}

	return src, nil
}

// ParseAtlasSourceFile parses an atlas source from disk.
func ParseAtlasSourceFile(path string) (*AtlasSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading atlas source: %w", err)
	}
	return ParseAtlasSource(data)
}

func parseSourceRect(s string) (AtlasSourceRect, error) {
	var r AtlasSourceRect

	quoted, err := strconv.QuotedPrefix(s)
	if err != nil {
		return r, fmt.Errorf("missing rect mesh name")
	}
	r.Mesh, _ = strconv.Unquote(quoted)

	fields := strings.Fields(s[len(quoted):])
	if len(fields) < 4 {
		return r, fmt.Errorf("rect %q needs x y w h", r.Mesh)
	}

	ints := make([]int, 0, 5)
	for _, f := range fields[:min(5, len(fields))] {
		v, err := strconv.Atoi(f)
		if err != nil {
			return r, fmt.Errorf("rect %q: %v", r.Mesh, err)
		}
		ints = append(ints, v)
	}
	r.X, r.Y, r.Width, r.Height = ints[0], ints[1], ints[2], ints[3]
	r.FrameCount = 1
	if len(ints) == 5 {
		r.FrameCount = ints[4]
	}

	if len(fields) >= 9 {
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(fields[5+i], 32)
			if err != nil {
				return r, fmt.Errorf("rect %q bounds: %v", r.Mesh, err)
			}
			r.Bounds[i] = float32(v)
		}
		r.HasBounds = true
	}

	if len(fields) >= 13 {
		for i := 0; i < 4; i++ {
			v, err := strconv.Atoi(fields[9+i])
			if err != nil {
				return r, fmt.Errorf("rect %q pixel bounds: %v", r.Mesh, err)
			}
			r.PixelBounds[i] = v
		}
		r.HasPixelBounds = true
	}

	if r.Width <= 0 || r.Height <= 0 || r.FrameCount <= 0 {
		return r, fmt.Errorf("rect %q has non-positive size or frame count", r.Mesh)
	}
	return r, nil
}

// Marshal encodes the source in the text format.
func (s *AtlasSource) Marshal() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "w %d\n", s.Width)
	fmt.Fprintf(&b, "h %d\n", s.Height)
	fmt.Fprintf(&b, "d %d\n", s.DPI)
	b.WriteString("\n")

	for _, r := range s.Rects {
		fmt.Fprintf(&b, "r %s %d %d %d %d %d %.6f %.6f %.6f %.6f %d %d %d %d\n",
			strconv.Quote(r.Mesh),
			r.X, r.Y, r.Width, r.Height, r.FrameCount,
			r.Bounds[0], r.Bounds[1], r.Bounds[2], r.Bounds[3],
			r.PixelBounds[0], r.PixelBounds[1], r.PixelBounds[2], r.PixelBounds[3])
	}
	return b.Bytes()
}
