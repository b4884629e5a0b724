package geometry

import (
	"errors"
	"math"
	"testing"
)

func TestMapToFullResolutionIdentity(t *testing.T) {
	p := Placement{X: 100, Y: 100, Width: 100, Height: 100}

	mapped, err := MapToFullResolution(p, Viewport{Width: 800, Height: 600}, 800, 600)
	if err != nil {
		t.Fatalf("MapToFullResolution failed: %v", err)
	}

	if mapped != p {
		t.Errorf("identity scale changed placement: got %+v, want %+v", mapped, p)
	}
}

func TestMapToFullResolutionDoubleScale(t *testing.T) {
	p := Placement{X: 100, Y: 100, Width: 100, Height: 100}

	mapped, err := MapToFullResolution(p, Viewport{Width: 800, Height: 600}, 1600, 1200)
	if err != nil {
		t.Fatalf("MapToFullResolution failed: %v", err)
	}

	want := Placement{X: 200, Y: 200, Width: 200, Height: 200}
	if mapped != want {
		t.Errorf("got %+v, want %+v", mapped, want)
	}
}

func TestMapToFullResolutionNonUniformScale(t *testing.T) {
	// 800x600 preview onto a 1600x600 image: x doubles, y is unchanged.
	p := Placement{X: 50, Y: 50, Width: 120, Height: 120}

	mapped, err := MapToFullResolution(p, Viewport{Width: 800, Height: 600}, 1600, 600)
	if err != nil {
		t.Fatalf("MapToFullResolution failed: %v", err)
	}

	want := Placement{X: 100, Y: 50, Width: 240, Height: 120}
	if mapped != want {
		t.Errorf("got %+v, want %+v", mapped, want)
	}
}

func TestMapToFullResolutionRoundingWithinOnePixel(t *testing.T) {
	previews := []Viewport{
		{Width: 800, Height: 600},
		{Width: 640, Height: 480},
		{Width: 375, Height: 667},
	}
	naturals := [][2]int{
		{1600, 1200},
		{3024, 4032},
		{1000, 1000},
		{777, 333},
	}
	placements := []Placement{
		{X: 0, Y: 0, Width: 1, Height: 1},
		{X: 13, Y: 27, Width: 99, Height: 101},
		{X: 100, Y: 100, Width: 100, Height: 100},
		{X: 311, Y: 250, Width: 64, Height: 64},
	}

	for _, preview := range previews {
		for _, natural := range naturals {
			for _, p := range placements {
				mapped, err := MapToFullResolution(p, preview, natural[0], natural[1])
				if err != nil {
					t.Fatalf("MapToFullResolution(%+v, %+v, %v) failed: %v", p, preview, natural, err)
				}

				scaleX := float64(natural[0]) / float64(preview.Width)
				scaleY := float64(natural[1]) / float64(preview.Height)

				checks := []struct {
					name  string
					got   int
					exact float64
				}{
					{"x", mapped.X, float64(p.X) * scaleX},
					{"y", mapped.Y, float64(p.Y) * scaleY},
					{"width", mapped.Width, float64(p.Width) * scaleX},
					{"height", mapped.Height, float64(p.Height) * scaleY},
				}
				for _, c := range checks {
					if math.Abs(float64(c.got)-c.exact) > 1 {
						t.Errorf("%s drifted more than one pixel: got %d, exact %.3f (preview %+v natural %v)",
							c.name, c.got, c.exact, preview, natural)
					}
				}
			}
		}
	}
}

func TestMapToFullResolutionInvalidDimensions(t *testing.T) {
	valid := Placement{X: 10, Y: 10, Width: 50, Height: 50}

	cases := []struct {
		name     string
		p        Placement
		preview  Viewport
		naturalW int
		naturalH int
	}{
		{"zero preview width", valid, Viewport{Width: 0, Height: 600}, 1600, 1200},
		{"negative preview height", valid, Viewport{Width: 800, Height: -1}, 1600, 1200},
		{"zero natural width", valid, Viewport{Width: 800, Height: 600}, 0, 1200},
		{"zero natural height", valid, Viewport{Width: 800, Height: 600}, 1600, 0},
		{"zero placement width", Placement{X: 10, Y: 10, Width: 0, Height: 50}, Viewport{Width: 800, Height: 600}, 1600, 1200},
		{"negative placement x", Placement{X: -1, Y: 10, Width: 50, Height: 50}, Viewport{Width: 800, Height: 600}, 1600, 1200},
	}

	for _, tc := range cases {
		_, err := MapToFullResolution(tc.p, tc.preview, tc.naturalW, tc.naturalH)
		if err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
			continue
		}
		var dimErr *InvalidDimensionError
		if !errors.As(err, &dimErr) {
			t.Errorf("%s: expected InvalidDimensionError, got %T: %v", tc.name, err, err)
		}
	}
}
