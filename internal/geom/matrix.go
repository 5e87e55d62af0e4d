package geom

import "math"

// Matrix is a row-major 3x4 affine transform: rotation and scale in the left
// 3x3 block, translation in the last column.
type Matrix [3][4]float64

func IdentityMatrix() Matrix {
	return Matrix{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
}

// Compose builds translation * rotation * scale.
func Compose(p Pose) Matrix {
	r := p.Rotation.rotation()
	sc := [3]float64{p.Scale.X, p.Scale.Y, p.Scale.Z}
	pos := [3]float64{p.Position.X, p.Position.Y, p.Position.Z}
	var m Matrix
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m[row][col] = r[row][col] * sc[col]
		}
		m[row][3] = pos[row]
	}
	return m
}

func (m Matrix) Translation() Vec3 {
	return Vec3{m[0][3], m[1][3], m[2][3]}
}

// Decompose splits m into position, rotation and scale. A reflection in the
// upper block is attributed to a negative x scale.
func (m Matrix) Decompose() Pose {
	var sc [3]float64
	for col := 0; col < 3; col++ {
		sc[col] = math.Sqrt(m[0][col]*m[0][col] + m[1][col]*m[1][col] + m[2][col]*m[2][col])
	}
	if m.det3() < 0 {
		sc[0] = -sc[0]
	}

	var r [3][3]float64
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			if sc[col] == 0 {
				if row == col {
					r[row][col] = 1
				}
				continue
			}
			r[row][col] = m[row][col] / sc[col]
		}
	}
	return Pose{
		Position: m.Translation(),
		Rotation: quatFromRotation(r),
		Scale:    Vec3{sc[0], sc[1], sc[2]},
	}
}

// Mirror returns S*m*S where S reflects axis a. Translation on a flips sign and
// rotations about the other two axes are inverted, converting between left- and
// right-handed frames.
func (m Matrix) Mirror(a Axis) Matrix {
	s := a.signs()
	var out Matrix
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			out[row][col] = s[row] * s[col] * m[row][col]
		}
		out[row][3] = s[row] * m[row][3]
	}
	return out
}

// ScaleTranslation multiplies the translation column by k.
func (m Matrix) ScaleTranslation(k float64) Matrix {
	m[0][3] *= k
	m[1][3] *= k
	m[2][3] *= k
	return m
}

func (m Matrix) det3() float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}
