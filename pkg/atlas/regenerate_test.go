package atlas

import (
	"bytes"
	"errors"
	"image"
	"testing"
)

func TestPlace_RasterizesContent(t *testing.T) {
	a := newPixelAtlas(t, 64)
	rd := &fillRenderer{inset: 3}

	r := mustPlace(t, a, rd, sized("m", 10, 10))
	if r.PixelMin != image.Pt(3, 3) || r.PixelMax != image.Pt(6, 6) {
		t.Errorf("content bounds = %v..%v, want (3,3)..(6,6)", r.PixelMin, r.PixelMax)
	}
	if got, _ := a.FindRectForMesh("m"); got.PixelMax != r.PixelMax {
		t.Error("content bounds not stored in the table")
	}
	if !a.Dirty() {
		t.Error("Place did not mark the atlas dirty")
	}
}

func TestPlace_DilatesIntoPadding(t *testing.T) {
	a := newPixelAtlas(t, 64, func(o *Options) { o.Padding = 2 })
	rd := &fillRenderer{}

	r := mustPlace(t, a, rd, sized("m", 4, 4))
	if r.Width != 8 || r.Height != 8 {
		t.Fatalf("footprint = %dx%d, want 8x8", r.Width, r.Height)
	}
	if r.PixelMin != image.Pt(2, 2) || r.PixelMax != image.Pt(5, 5) {
		t.Errorf("content bounds = %v..%v, want (2,2)..(5,5)", r.PixelMin, r.PixelMax)
	}

	img := a.Image()
	for _, p := range []image.Point{{0, 0}, {7, 0}, {0, 7}, {7, 7}, {1, 4}} {
		if _, _, _, alpha := img.At(r.X+p.X, r.Y+p.Y).RGBA(); alpha == 0 {
			t.Errorf("padding pixel %v not dilated", p)
		}
	}
	if _, _, _, alpha := img.At(r.X+8, r.Y).RGBA(); alpha != 0 {
		t.Error("dilation leaked outside the rect")
	}
}

func TestPlace_RasterFailureFreesRect(t *testing.T) {
	a := newPixelAtlas(t, 64)
	rd := &fillRenderer{fail: map[string]bool{"bad": true}}

	_, err := a.Place(sized("bad", 8, 8), rd)
	var re *RasterError
	if !errors.As(err, &re) || re.Mesh != "bad" || !errors.Is(err, errDegenerate) {
		t.Fatalf("expected RasterError for bad, got %v", err)
	}
	if _, ok := a.FindRectForMesh("bad"); ok {
		t.Error("rect kept after raster failure")
	}
	assertNoOverlap(t, a)
}

func TestPlace_MultiFrame(t *testing.T) {
	a := newPixelAtlas(t, 64, func(o *Options) { o.Padding = 1 })
	rd := &fillRenderer{}

	m := testMesh{name: "walk", frames: 3, bounds: box(4, 4)}
	r := mustPlace(t, a, rd, m)
	if r.FrameCount != 3 || r.Width != 18 || r.Height != 6 {
		t.Fatalf("strip = %d frames %dx%d, want 3 frames 18x6", r.FrameCount, r.Width, r.Height)
	}
	if rd.calls != 3 {
		t.Errorf("renderer called %d times, want 3", rd.calls)
	}

	// frame 1 is drawn with its own color
	img := a.Image()
	_, g0, _, _ := img.At(r.X+3, r.Y+3).RGBA()
	_, g1, _, _ := img.At(r.X+6+3, r.Y+3).RGBA()
	if g0 == g1 {
		t.Error("frames 0 and 1 have the same content")
	}
}

func TestUpdate_ReplacesChangedMesh(t *testing.T) {
	a := newPixelAtlas(t, 64)
	rd := &fillRenderer{}
	set := meshSet{}.add(sized("a", 10, 10), sized("b", 10, 10))

	if err := a.Update(set.source(), rd, "a", "b"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if a.Len() != 2 {
		t.Fatalf("len = %d, want 2", a.Len())
	}

	set.add(sized("a", 20, 12))
	if err := a.Update(set.source(), rd, "a"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	r, _ := a.FindRectForMesh("a")
	if r.Width != 20 || r.Height != 12 {
		t.Errorf("a = %dx%d after update, want 20x12", r.Width, r.Height)
	}
	assertNoOverlap(t, a)

	if err := a.Update(set.source(), rd, "missing"); !errors.Is(err, ErrMeshNotFound) {
		t.Errorf("expected ErrMeshNotFound, got %v", err)
	}
}

func TestUpdate_GrowsWhenFull(t *testing.T) {
	a := newPixelAtlas(t, 32, func(o *Options) { o.MaxSize = 128 })
	rd := &fillRenderer{}
	set := meshSet{}.add(sized("a", 20, 20), sized("b", 20, 20), sized("big", 40, 10))

	if err := a.Update(set.source(), rd, "a", "b"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if w, h := a.Size(); w != 64 || h != 64 {
		t.Errorf("size = %dx%d, want 64x64", w, h)
	}
	if a.Len() != 2 {
		t.Errorf("len = %d, want 2", a.Len())
	}
	rb, _ := a.FindRectForMesh("b")
	if rb.X != 20 || rb.Y != 0 {
		t.Errorf("b at (%d,%d), want (20,0)", rb.X, rb.Y)
	}

	if err := a.Update(set.source(), rd, "big"); err != nil {
		t.Fatalf("Update big: %v", err)
	}
	if _, ok := a.FindRectForMesh("big"); !ok {
		t.Error("big not placed")
	}
	assertNoOverlap(t, a)
}

func TestUpdate_CappedGrowthFails(t *testing.T) {
	a := newPixelAtlas(t, 32, func(o *Options) { o.MaxSize = 32 })
	rd := &fillRenderer{}
	set := meshSet{}.add(sized("a", 20, 20), sized("b", 20, 20))

	if err := a.Update(set.source(), rd, "a"); err != nil {
		t.Fatal(err)
	}
	pixels := bytes.Clone(a.Pixels())

	err := a.Update(set.source(), rd, "b")
	if !errors.Is(err, ErrAtlasFull) {
		t.Fatalf("expected ErrAtlasFull, got %v", err)
	}
	if w, _ := a.Size(); w != 32 {
		t.Errorf("width = %d, want 32", w)
	}
	if a.Len() != 1 {
		t.Errorf("len = %d, want 1", a.Len())
	}
	if !bytes.Equal(pixels, a.Pixels()) {
		t.Error("failed regeneration changed the pixels")
	}
}

func TestRegenerate_InsertionOrder(t *testing.T) {
	a := newPixelAtlas(t, 64)
	rd := &fillRenderer{}
	set := meshSet{}.add(sized("a", 10, 10), sized("b", 20, 20), sized("c", 10, 10), sized("d", 10, 10))

	for _, n := range []string{"a", "b", "c"} {
		mustPlace(t, a, rd, set[n].(testMesh))
	}
	if err := a.FreeRect("a"); err != nil {
		t.Fatal(err)
	}
	if r := mustPlace(t, a, rd, set["d"].(testMesh)); r.Slot != 0 {
		t.Fatalf("d slot = %d, want 0", r.Slot)
	}

	if err := a.Regenerate(set.source(), rd); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}

	want := []struct {
		name string
		x, y int
	}{{"b", 0, 0}, {"c", 20, 0}, {"d", 30, 0}}
	rects := a.Rects()
	if len(rects) != len(want) {
		t.Fatalf("got %d rects, want %d", len(rects), len(want))
	}
	for i, w := range want {
		r := rects[i]
		if r.Mesh != w.name || r.X != w.x || r.Y != w.y || r.Slot != i {
			t.Errorf("rect %d = %s slot %d at (%d,%d), want %s at (%d,%d)", i, r.Mesh, r.Slot, r.X, r.Y, w.name, w.x, w.y)
		}
	}
	if !a.Dirty() {
		t.Error("Regenerate did not mark the atlas dirty")
	}
}

func TestRegenerate_Deterministic(t *testing.T) {
	build := func() *Atlas {
		a := newPixelAtlas(t, 64, func(o *Options) { o.MaxSize = 256 })
		rd := &fillRenderer{}
		set := meshSet{}
		for i, n := range []string{"p", "q", "r", "s", "t", "u"} {
			set.add(sized(n, float32(8+i*5), float32(30-i*3)))
		}
		names := []string{"p", "q", "r", "s", "t", "u"}
		if err := a.Update(set.source(), rd, names...); err != nil {
			t.Fatal(err)
		}
		if err := a.Regenerate(set.source(), rd); err != nil {
			t.Fatal(err)
		}
		return a
	}

	a1, a2 := build(), build()
	r1, r2 := a1.Rects(), a2.Rects()
	if len(r1) != len(r2) {
		t.Fatalf("%d vs %d rects", len(r1), len(r2))
	}
	for i := range r1 {
		if r1[i].Bounds() != r2[i].Bounds() || r1[i].Mesh != r2[i].Mesh {
			t.Errorf("rect %d: %s %v vs %s %v", i, r1[i].Mesh, r1[i].Bounds(), r2[i].Mesh, r2[i].Bounds())
		}
	}
	if !bytes.Equal(a1.Pixels(), a2.Pixels()) {
		t.Error("pixel buffers differ")
	}
}

func TestRegenerate_RasterFailureAborts(t *testing.T) {
	a := newPixelAtlas(t, 64)
	ok := &fillRenderer{}
	set := meshSet{}.add(sized("a", 10, 10), sized("b", 12, 12), sized("c", 8, 8))
	if err := a.Update(set.source(), ok, "a", "b", "c"); err != nil {
		t.Fatal(err)
	}
	before := a.Rects()
	pixels := bytes.Clone(a.Pixels())

	failing := &fillRenderer{fail: map[string]bool{"b": true}}
	err := a.Regenerate(set.source(), failing)
	var re *RasterError
	if !errors.As(err, &re) || re.Mesh != "b" {
		t.Fatalf("expected RasterError for b, got %v", err)
	}

	after := a.Rects()
	if len(after) != len(before) {
		t.Fatalf("rects changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("rect %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
	if !bytes.Equal(pixels, a.Pixels()) {
		t.Error("aborted regeneration changed the pixels")
	}
}

func TestRegenerate_DropsMissingMeshes(t *testing.T) {
	a := newPixelAtlas(t, 64)
	rd := &fillRenderer{}
	set := meshSet{}.add(sized("a", 10, 10), sized("b", 10, 10))
	if err := a.Update(set.source(), rd, "a", "b"); err != nil {
		t.Fatal(err)
	}

	delete(set, "a")
	if err := a.Regenerate(set.source(), rd); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if _, ok := a.FindRectForMesh("a"); ok {
		t.Error("rect for deleted mesh survived")
	}
	if r, ok := a.FindRectForMesh("b"); !ok || r.X != 0 || r.Y != 0 {
		t.Errorf("b = %+v, want at origin", r)
	}
}

func TestRedraw(t *testing.T) {
	a := newPixelAtlas(t, 64)
	rd := &fillRenderer{}
	set := meshSet{}.add(sized("a", 10, 10), sized("b", 10, 10))

	err := a.Restore([]Rect{
		{X: 30, Y: 0, Width: 10, Height: 10, Mesh: "a", FrameCount: 1},
		{X: 0, Y: 40, Width: 10, Height: 10, Mesh: "b", FrameCount: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := a.Redraw(set.source(), rd); err != nil {
		t.Fatalf("Redraw: %v", err)
	}
	if rd.calls != 2 {
		t.Errorf("renderer called %d times, want 2", rd.calls)
	}
	if r, _ := a.FindRectForMesh("a"); r.X != 30 || r.MeshBounds != box(10, 10) {
		t.Errorf("a moved or lost bounds: %+v", r)
	}
	if _, _, _, alpha := a.Image().At(35, 5).RGBA(); alpha == 0 {
		t.Error("a was not drawn")
	}

	// a mesh that outgrew its rect forces a full regeneration
	set.add(sized("b", 16, 16))
	if err := a.Redraw(set.source(), rd); err != nil {
		t.Fatalf("Redraw: %v", err)
	}
	if r, _ := a.FindRectForMesh("b"); r.Width != 16 {
		t.Errorf("b width = %d after regeneration, want 16", r.Width)
	}
	if r, _ := a.FindRectForMesh("a"); r.X != 0 || r.Y != 0 {
		t.Errorf("a at (%d,%d) after regeneration, want origin", r.X, r.Y)
	}
	assertNoOverlap(t, a)
}

func TestUpdate_RasterFailureKeepsPlacedMesh(t *testing.T) {
	a := newPixelAtlas(t, 64)
	rd := &fillRenderer{}
	mustPlace(t, a, rd, sized("a", 10, 10))
	mustPlace(t, a, rd, sized("b", 6, 6))
	before, _ := a.FindRectForMesh("a")
	pix := append([]byte(nil), a.Pixels()...)
	rd.fail = map[string]bool{"a": true}

	tests := []struct {
		name string
		mesh testMesh
	}{
		{"same footprint", sized("a", 10, 10)},
		{"repacked", sized("a", 20, 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Update(meshSet{}.add(tt.mesh).source(), rd, "a")
			if !errors.Is(err, errDegenerate) {
				t.Fatalf("expected raster error, got %v", err)
			}
			after, ok := a.FindRectForMesh("a")
			if !ok {
				t.Fatal("mesh lost its rect after a failed redraw")
			}
			if after != before {
				t.Errorf("rect = %+v, want %+v", after, before)
			}
			if !bytes.Equal(a.Pixels(), pix) {
				t.Error("pixels changed after a failed redraw")
			}
			assertNoOverlap(t, a)
		})
	}
}
