package geom

import "testing"

func TestRectSides(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}
	if r.Left() != 10 || r.Top() != 20 || r.Right() != 40 || r.Bottom() != 60 {
		t.Errorf("sides = %v %v %v %v", r.Left(), r.Top(), r.Right(), r.Bottom())
	}
	if c := r.Center(); c.X != 25 || c.Y != 40 {
		t.Errorf("Center() = %+v, want {25 40}", c)
	}
	if r.Area() != 1200 {
		t.Errorf("Area() = %v, want 1200", r.Area())
	}
}

func TestContainsBoundaryInclusive(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	tests := []struct {
		p    Point
		want bool
	}{
		{Point{5, 5}, true},
		{Point{0, 0}, true},
		{Point{10, 10}, true},
		{Point{10, 5}, true},
		{Point{10.01, 5}, false},
		{Point{-0.01, 5}, false},
		{Point{5, 11}, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%+v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestInsetAndUnion(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 100, Height: 100}
	in := r.Inset(40, 10, 20, 10)
	if in != (Rect{X: 10, Y: 40, Width: 80, Height: 40}) {
		t.Errorf("Inset = %+v", in)
	}

	u := Rect{X: 0, Y: 0, Width: 10, Height: 10}.Union(Rect{X: 20, Y: -5, Width: 5, Height: 5})
	if u != (Rect{X: 0, Y: -5, Width: 25, Height: 15}) {
		t.Errorf("Union = %+v", u)
	}
}

func TestBoundingBox(t *testing.T) {
	if _, ok := BoundingBox(nil); ok {
		t.Error("BoundingBox(nil) should report false")
	}
	box, ok := BoundingBox([]Rect{
		{X: 5, Y: 5, Width: 10, Height: 10},
		{X: -5, Y: 30, Width: 2, Height: 2},
	})
	if !ok || box != FromEdges(-5, 5, 15, 32) {
		t.Errorf("BoundingBox = %+v", box)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 3) != 3 || Clamp(-1, 0, 3) != 0 || Clamp(2, 0, 3) != 2 {
		t.Error("Clamp misbehaves")
	}
}
