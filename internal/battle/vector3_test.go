package battle

import "testing"

func TestNormalizeUnitLength(t *testing.T) {
	v := Normalize(Vector3{X: 3, Y: 4, Z: 0})
	want := Vector3{X: 0.6, Y: 0.8, Z: 0}
	const eps = 1e-6
	if abs32(v.X-want.X) > eps || abs32(v.Y-want.Y) > eps || abs32(v.Z-want.Z) > eps {
		t.Errorf("Normalize() = %+v, want %+v", v, want)
	}
}

func TestNormalizeZeroVectorIsNoOp(t *testing.T) {
	v := Normalize(ZeroVector3())
	if v != ZeroVector3() {
		t.Errorf("Normalize(zero) = %+v, want zero vector", v)
	}
}

func TestAddAndScale(t *testing.T) {
	a := Vector3{X: 1, Y: 2, Z: 3}
	b := Vector3{X: 4, Y: 5, Z: 6}
	got := Add(a, b)
	want := Vector3{X: 5, Y: 7, Z: 9}
	if got != want {
		t.Errorf("Add() = %+v, want %+v", got, want)
	}

	scaled := Scale(a, 2)
	if scaled != (Vector3{X: 2, Y: 4, Z: 6}) {
		t.Errorf("Scale() = %+v", scaled)
	}
}

func TestDistance(t *testing.T) {
	d := Distance(Vector3{}, Vector3{X: 3, Y: 4, Z: 0})
	if abs32(d-5) > 1e-6 {
		t.Errorf("Distance() = %v, want 5", d)
	}
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
