package geom

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func nearVec(a, b Vec3, tol float64) bool {
	return near(a.X, b.X, tol) && near(a.Y, b.Y, tol) && near(a.Z, b.Z, tol)
}

// sameRotation treats q and -q as equal.
func sameRotation(a, b Quat, tol float64) bool {
	a, b = a.Normalize(), b.Normalize()
	dot := a.X*b.X + a.Y*b.Y + a.Z*b.Z + a.W*b.W
	return near(math.Abs(dot), 1, tol)
}

func TestComposeIdentity(t *testing.T) {
	if m := Compose(IdentityPose()); m != IdentityMatrix() {
		t.Fatalf("identity pose composed to %v", m)
	}
}

func TestComposeDecomposeRoundTrip(t *testing.T) {
	in := Pose{
		Position: Vec3{0.01, -0.2, 3},
		Rotation: FromEulerDegrees(30, -45, 60),
		Scale:    Vec3{1, 2, 0.5},
	}
	out := Compose(in).Decompose()
	if !nearVec(out.Position, in.Position, eps) {
		t.Fatalf("position: got=%+v want=%+v", out.Position, in.Position)
	}
	if !nearVec(out.Scale, in.Scale, 1e-9) {
		t.Fatalf("scale: got=%+v want=%+v", out.Scale, in.Scale)
	}
	if !sameRotation(out.Rotation, in.Rotation, 1e-9) {
		t.Fatalf("rotation: got=%+v want=%+v", out.Rotation, in.Rotation)
	}
}

func TestDecomposeLargeRotations(t *testing.T) {
	for _, e := range []Vec3{{0, 180, 0}, {180, 0, 0}, {0, 0, 180}, {90, 0, 0}, {-90, 10, 0}} {
		q := FromEulerDegrees(e.X, e.Y, e.Z)
		got := Compose(Pose{Rotation: q, Scale: Vec3{1, 1, 1}}).Decompose().Rotation
		if !sameRotation(got, q, 1e-9) {
			t.Fatalf("euler=%+v got=%+v want=%+v", e, got, q)
		}
	}
}

func TestEulerRoundTrip(t *testing.T) {
	in := Vec3{20, -35, 110}
	out := FromEulerDegrees(in.X, in.Y, in.Z).EulerDegrees()
	if !nearVec(out, in, 1e-9) {
		t.Fatalf("euler: got=%+v want=%+v", out, in)
	}
}

func TestMirrorMatchesQuatMirror(t *testing.T) {
	p := Pose{
		Position: Vec3{1, 2, 3},
		Rotation: FromEulerDegrees(10, 20, 30),
		Scale:    Vec3{1, 1, 1},
	}
	for _, a := range []Axis{AxisX, AxisY, AxisZ} {
		m := Compose(p).Mirror(a)
		got := m.Decompose()
		if !sameRotation(got.Rotation, p.Rotation.Mirror(a), 1e-9) {
			t.Fatalf("axis=%v rotation: got=%+v want=%+v", a, got.Rotation, p.Rotation.Mirror(a))
		}
		if got.Position.Component(a) != -p.Position.Component(a) {
			t.Fatalf("axis=%v translation not flipped: %+v", a, got.Position)
		}
		if !nearVec(got.Scale, p.Scale, 1e-9) {
			t.Fatalf("axis=%v mirror changed scale: %+v", a, got.Scale)
		}
		if back := m.Mirror(a); !nearMatrix(back, Compose(p), 1e-12) {
			t.Fatalf("axis=%v mirror is not an involution", a)
		}
	}
}

func TestMirrorXEulerConvention(t *testing.T) {
	q := FromEulerDegrees(0, 25, 0).Mirror(AxisX)
	if e := q.EulerDegrees(); !nearVec(e, Vec3{0, -25, 0}, 1e-9) {
		t.Fatalf("mirroring x should invert yaw: %+v", e)
	}
	q = FromEulerDegrees(25, 0, 0).Mirror(AxisX)
	if e := q.EulerDegrees(); !nearVec(e, Vec3{25, 0, 0}, 1e-9) {
		t.Fatalf("mirroring x should keep pitch: %+v", e)
	}
}

func TestParseAxis(t *testing.T) {
	if a, err := ParseAxis(" Y "); err != nil || a != AxisY {
		t.Fatalf("parse y: %v %v", a, err)
	}
	if _, err := ParseAxis("w"); err == nil {
		t.Fatalf("expected error for unknown axis")
	}
}

func TestDefaultPose(t *testing.T) {
	p := DefaultPose()
	if p.Position != (Vec3{0, 0, 0.5}) || p.Rotation != IdentityQuat() || p.Scale != (Vec3{1, 1, 1}) {
		t.Fatalf("unexpected default pose: %+v", p)
	}
}

func nearMatrix(a, b Matrix, tol float64) bool {
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			if !near(a[r][c], b[r][c], tol) {
				return false
			}
		}
	}
	return true
}
