package mathx

import "math"

type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }

func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }

func (a Vec3) Dot(b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func (a Vec3) Len() float64 { return math.Sqrt(a.Dot(a)) }

func (a Vec3) Dist(b Vec3) float64 { return a.Sub(b).Len() }

func (a Vec3) IsZero() bool { return a.X == 0 && a.Y == 0 && a.Z == 0 }

// Normalized returns the unit vector along a, or ok=false for a (near) zero vector.
func (a Vec3) Normalized() (Vec3, bool) {
	l := a.Len()
	if l < 1e-9 {
		return Vec3{}, false
	}
	return a.Scale(1 / l), true
}

// Source is the random source used by every probabilistic rule of the simulation.
// *math/rand/v2.Rand satisfies it.
type Source interface {
	Float64() float64
	NormFloat64() float64
}

// RandomUnit draws a direction uniformly on the unit sphere.
func RandomUnit(r Source) Vec3 {
	for {
		v := Vec3{r.NormFloat64(), r.NormFloat64(), r.NormFloat64()}
		if u, ok := v.Normalized(); ok {
			return u
		}
	}
}

// RightOf returns the horizontal right-hand axis for a heading given as yaw in degrees.
func RightOf(yawDeg float64) Vec3 {
	rad := (yawDeg - 90) * math.Pi / 180
	return Vec3{X: math.Cos(rad), Y: math.Sin(rad)}
}

// Mean returns the average of pts, or ok=false when pts is empty.
func Mean(pts []Vec3) (Vec3, bool) {
	if len(pts) == 0 {
		return Vec3{}, false
	}
	var sum Vec3
	for _, p := range pts {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float64(len(pts))), true
}

// BoundingSphere returns a sphere enclosing pts with each point grown by its radius.
// The center is the centroid, which is not minimal but stable across calls.
func BoundingSphere(pts []Vec3, radii []float64) (Vec3, float64) {
	center, ok := Mean(pts)
	if !ok {
		return Vec3{}, 0
	}
	r := 0.0
	for i, p := range pts {
		d := p.Dist(center)
		if i < len(radii) {
			d += radii[i]
		}
		if d > r {
			r = d
		}
	}
	return center, r
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
