package geom

import (
	"math"
	"testing"
)

func TestVecSnap(t *testing.T) {
	tests := []struct {
		name string
		in   Vec
		q    float64
		want Vec
	}{
		{"unit quantum", V(3.4, 7.6), 1, V(3, 8)},
		{"quantum below one clamps", V(3.4, 7.6), 0.25, V(3, 8)},
		{"rounds to nearest", V(14, 16), 10, V(10, 20)},
		{"negative", V(-14, -16), 10, V(-10, -20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Snap(tt.q); got != tt.want {
				t.Errorf("Snap(%v, %v) = %v, want %v", tt.in, tt.q, got, tt.want)
			}
		})
	}
}

func TestRectContainsAndOverlaps(t *testing.T) {
	r := R(0, 0, 10, 4)
	if !r.Contains(V(10, 4)) {
		t.Error("edges should be inclusive")
	}
	if r.Contains(V(10.1, 2)) {
		t.Error("point outside should not be contained")
	}
	if !r.Overlaps(R(10, 4, 5, 5)) {
		t.Error("touching rectangles overlap")
	}
	if r.Overlaps(R(11, 0, 5, 5)) {
		t.Error("disjoint rectangles should not overlap")
	}
}

func TestRectUnionIgnoresZero(t *testing.T) {
	a := R(1, 1, 2, 2)
	if got := (Rect{}).Union(a); got != a {
		t.Errorf("zero.Union(a) = %v, want %v", got, a)
	}
	got := a.Union(R(5, -1, 1, 1))
	want := Rect{Min: V(1, -1), Max: V(6, 3)}
	if got != want {
		t.Errorf("Union = %v, want %v", got, want)
	}
}

func TestSegmentDistance(t *testing.T) {
	a, b := V(0, 0), V(10, 0)
	tests := []struct {
		p    Vec
		want float64
	}{
		{V(5, 3), 3},
		{V(-4, 3), 5},
		{V(13, 4), 5},
	}
	for _, tt := range tests {
		if got := SegmentDistance(tt.p, a, b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("SegmentDistance(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if got := SegmentDistance(V(3, 4), a, a); got != 5 {
		t.Errorf("degenerate segment distance = %v, want 5", got)
	}
}

func TestProject(t *testing.T) {
	a, b := V(0, 0), V(10, 0)
	tests := []struct {
		name     string
		p        Vec
		wantT    float64
		wantDist float64
	}{
		{"above middle", V(5, 3), 0.5, 3},
		{"before start", V(-4, 3), -0.4, 3},
		{"past end", V(13, 4), 1.3, 4},
		{"on endpoint", V(10, 0), 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotT, gotDist := Project(tt.p, a, b)
			if math.Abs(gotT-tt.wantT) > 1e-9 || math.Abs(gotDist-tt.wantDist) > 1e-9 {
				t.Errorf("Project(%v) = (%v, %v), want (%v, %v)", tt.p, gotT, gotDist, tt.wantT, tt.wantDist)
			}
		})
	}
	if gotT, gotDist := Project(V(3, 4), a, a); gotT != 0 || gotDist != 5 {
		t.Errorf("degenerate Project = (%v, %v), want (0, 5)", gotT, gotDist)
	}
}
