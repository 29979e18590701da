package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestNormalizeDegrees(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{180, 180},
		{360, 0},
		{-90, 270},
		{725, 5},
		{-720, 0},
	}
	for _, c := range cases {
		if got := NormalizeDegrees(c.in); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("NormalizeDegrees(%v) = %v, want %v", c.in, got, c.want)
		}
	}
	if got := NormalizeDegrees(float32(-45)); got != 315 {
		t.Errorf("NormalizeDegrees(float32(-45)) = %v, want 315", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 3); got != 3 {
		t.Errorf("Clamp(5, 0, 3) = %v, want 3", got)
	}
	if got := Clamp(-1.5, 0.0, 3.0); got != 0 {
		t.Errorf("Clamp(-1.5, 0, 3) = %v, want 0", got)
	}
	if got := Clamp(2, 0, 3); got != 2 {
		t.Errorf("Clamp(2, 0, 3) = %v, want 2", got)
	}
}

func TestBAMToDegrees(t *testing.T) {
	cases := []struct {
		in   uint16
		want float64
	}{
		{0, 0},
		{0x4000, 90},
		{0x8000, 180},
		{0xC000, 270},
	}
	for _, c := range cases {
		if got := BAMToDegrees(c.in); got != c.want {
			t.Errorf("BAMToDegrees(%#x) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestBearing(t *testing.T) {
	origin := mgl64.Vec2{0, 0}
	cases := []struct {
		to   mgl64.Vec2
		want float64
	}{
		{mgl64.Vec2{1, 0}, 0},
		{mgl64.Vec2{0, 1}, 90},
		{mgl64.Vec2{-1, 0}, 180},
		{mgl64.Vec2{0, -1}, 270},
	}
	for _, c := range cases {
		if got := Bearing(origin, c.to); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("Bearing(%v) = %v, want %v", c.to, got, c.want)
		}
	}
}

func TestAngleDelta(t *testing.T) {
	if got := AngleDelta(350, 10); math.Abs(got-20) > 1e-9 {
		t.Errorf("AngleDelta(350, 10) = %v, want 20", got)
	}
	if got := AngleDelta(10, 350); math.Abs(got+20) > 1e-9 {
		t.Errorf("AngleDelta(10, 350) = %v, want -20", got)
	}
}

func TestCross(t *testing.T) {
	if got := Cross(mgl64.Vec2{1, 0}, mgl64.Vec2{0, 1}); got != 1 {
		t.Errorf("Cross(x, y) = %v, want 1", got)
	}
}
