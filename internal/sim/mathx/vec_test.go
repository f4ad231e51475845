package mathx

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestNormalizedZero(t *testing.T) {
	if _, ok := (Vec3{}).Normalized(); ok {
		t.Fatalf("zero vector must not normalize")
	}
	u, ok := V(3, 0, 4).Normalized()
	if !ok || math.Abs(u.Len()-1) > 1e-12 {
		t.Fatalf("unexpected unit vector: %+v ok=%v", u, ok)
	}
}

func TestRandomUnitIsUnbiased(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	var sum Vec3
	const n = 20000
	for i := 0; i < n; i++ {
		u := RandomUnit(r)
		if math.Abs(u.Len()-1) > 1e-9 {
			t.Fatalf("not a unit vector: %+v", u)
		}
		sum = sum.Add(u)
	}
	mean := sum.Scale(1.0 / n)
	for _, c := range []float64{mean.X, mean.Y, mean.Z} {
		if math.Abs(c) > 0.03 {
			t.Fatalf("axis bias: mean=%+v", mean)
		}
	}
}

func TestBoundingSphere(t *testing.T) {
	c, r := BoundingSphere([]Vec3{V(-10, 0, 0), V(10, 0, 0)}, []float64{1, 2})
	if !c.IsZero() {
		t.Fatalf("center: %+v", c)
	}
	if r != 12 {
		t.Fatalf("radius: got %v want 12", r)
	}
	if _, r := BoundingSphere(nil, nil); r != 0 {
		t.Fatalf("empty sphere radius: %v", r)
	}
}
