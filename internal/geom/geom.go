// Package geom holds the small amount of pose math the codec needs: vectors,
// unit quaternions and 3x4 affine matrices.
package geom

import (
	"fmt"
	"math"
	"strings"
)

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// MaxAbs is the largest component magnitude.
func (v Vec3) MaxAbs() float64 {
	return math.Max(math.Abs(v.X), math.Max(math.Abs(v.Y), math.Abs(v.Z)))
}

func (v Vec3) Component(a Axis) float64 {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

// Axis names one of the three coordinate axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	default:
		return 0, fmt.Errorf("geom: unknown axis %q", s)
	}
}

func (a Axis) signs() [3]float64 {
	s := [3]float64{1, 1, 1}
	if a >= AxisX && a <= AxisZ {
		s[a] = -1
	}
	return s
}

// Pose is a position, orientation and per-axis scale.
type Pose struct {
	Position Vec3
	Rotation Quat
	Scale    Vec3
}

// IdentityPose sits at the origin with no rotation and unit scale.
func IdentityPose() Pose {
	return Pose{Rotation: IdentityQuat(), Scale: Vec3{1, 1, 1}}
}

// DefaultPose is the fallback applied when an inbound pose is rejected.
func DefaultPose() Pose {
	p := IdentityPose()
	p.Position = Vec3{0, 0, 0.5}
	return p
}
