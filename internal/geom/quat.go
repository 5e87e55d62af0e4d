package geom

import "math"

// Quat is a rotation quaternion.
type Quat struct {
	X, Y, Z, W float64
}

func IdentityQuat() Quat {
	return Quat{W: 1}
}

// Mul returns the Hamilton product q*o (o applied first).
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

func (q Quat) Normalize() Quat {
	n := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if n == 0 {
		return IdentityQuat()
	}
	return Quat{q.X / n, q.Y / n, q.Z / n, q.W / n}
}

// Canonical flips the sign so W is non-negative; q and -q encode the same rotation.
func (q Quat) Canonical() Quat {
	if q.W < 0 {
		return Quat{-q.X, -q.Y, -q.Z, -q.W}
	}
	return q
}

// Mirror reflects the rotation through the plane normal to a. The component
// about a is kept and the other two are inverted.
func (q Quat) Mirror(a Axis) Quat {
	s := a.signs()
	return Quat{X: -s[0] * q.X, Y: -s[1] * q.Y, Z: -s[2] * q.Z, W: q.W}
}

func axisAngle(axis Vec3, rad float64) Quat {
	h := rad / 2
	sin := math.Sin(h)
	return Quat{axis.X * sin, axis.Y * sin, axis.Z * sin, math.Cos(h)}
}

// FromEulerDegrees builds a rotation applying z, then x, then y.
func FromEulerDegrees(x, y, z float64) Quat {
	qx := axisAngle(Vec3{1, 0, 0}, x*math.Pi/180)
	qy := axisAngle(Vec3{0, 1, 0}, y*math.Pi/180)
	qz := axisAngle(Vec3{0, 0, 1}, z*math.Pi/180)
	return qy.Mul(qx).Mul(qz).Normalize()
}

// EulerDegrees is the inverse of FromEulerDegrees.
func (q Quat) EulerDegrees() Vec3 {
	r := q.rotation()
	sx := -r[1][2]
	sx = math.Max(-1, math.Min(1, sx))
	x := math.Asin(sx)
	var y, z float64
	if math.Abs(sx) < 1-1e-9 {
		y = math.Atan2(r[0][2], r[2][2])
		z = math.Atan2(r[1][0], r[1][1])
	} else {
		y = math.Atan2(-r[2][0], r[0][0])
		z = 0
	}
	deg := 180 / math.Pi
	return Vec3{x * deg, y * deg, z * deg}
}

func (q Quat) rotation() [3][3]float64 {
	q = q.Normalize()
	x, y, z, w := q.X, q.Y, q.Z, q.W
	return [3][3]float64{
		{1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w)},
		{2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w)},
		{2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y)},
	}
}

func quatFromRotation(r [3][3]float64) Quat {
	var q Quat
	tr := r[0][0] + r[1][1] + r[2][2]
	switch {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		q = Quat{
			X: (r[2][1] - r[1][2]) / s,
			Y: (r[0][2] - r[2][0]) / s,
			Z: (r[1][0] - r[0][1]) / s,
			W: 0.25 * s,
		}
	case r[0][0] > r[1][1] && r[0][0] > r[2][2]:
		s := math.Sqrt(1+r[0][0]-r[1][1]-r[2][2]) * 2
		q = Quat{
			X: 0.25 * s,
			Y: (r[0][1] + r[1][0]) / s,
			Z: (r[0][2] + r[2][0]) / s,
			W: (r[2][1] - r[1][2]) / s,
		}
	case r[1][1] > r[2][2]:
		s := math.Sqrt(1+r[1][1]-r[0][0]-r[2][2]) * 2
		q = Quat{
			X: (r[0][1] + r[1][0]) / s,
			Y: 0.25 * s,
			Z: (r[1][2] + r[2][1]) / s,
			W: (r[0][2] - r[2][0]) / s,
		}
	default:
		s := math.Sqrt(1+r[2][2]-r[0][0]-r[1][1]) * 2
		q = Quat{
			X: (r[0][2] + r[2][0]) / s,
			Y: (r[1][2] + r[2][1]) / s,
			Z: 0.25 * s,
			W: (r[1][0] - r[0][1]) / s,
		}
	}
	return q.Normalize().Canonical()
}
