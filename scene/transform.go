package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// RotationEpsilon is the largest accepted distance of a rotation's
// magnitude from 1.
const RotationEpsilon = 1e-5

// Transform is a local (parent-relative) transform.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// FromTRS returns the transform made of translation t, rotation
// r (x, y, z, w) and scale s.
func FromTRS(t [3]float64, r [4]float64, s [3]float64) Transform {
	return Transform{
		Position: mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])},
		Rotation: mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}},
		Scale:    mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])},
	}
}

// FromMatrix decomposes the affine column-major matrix m into
// translation, rotation and scale. Shear is discarded.
func FromMatrix(m mgl32.Mat4) Transform {
	c0, c1, c2 := m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()
	s := mgl32.Vec3{c0.Len(), c1.Len(), c2.Len()}
	if m.Det() < 0 {
		s[0] = -s[0]
	}
	tr := Transform{
		Position: m.Col(3).Vec3(),
		Rotation: mgl32.QuatIdent(),
		Scale:    s,
	}
	if s[0] == 0 || s[1] == 0 || s[2] == 0 {
		return tr
	}
	rot := mgl32.Mat4FromCols(
		c0.Mul(1/s[0]).Vec4(0),
		c1.Mul(1/s[1]).Vec4(0),
		c2.Mul(1/s[2]).Vec4(0),
		mgl32.Vec4{0, 0, 0, 1},
	)
	tr.Rotation = mgl32.Mat4ToQuat(rot).Normalize()
	return tr
}

// RotationArray returns the rotation as x, y, z, w.
func (t *Transform) RotationArray() [4]float32 {
	return [4]float32{t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2], t.Rotation.W}
}

func finite(v ...float32) bool {
	for _, f := range v {
		if math32.IsNaN(f) || math32.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// normalize enforces the rotation invariant on t.
// Non-finite rotations are left for the serializer to reject.
// It returns a non-empty note when t had to be changed or looks
// degenerate.
func (t *Transform) normalize() (notes []string, err error) {
	q := t.Rotation
	if finite(q.W, q.V[0], q.V[1], q.V[2]) {
		l := q.Len()
		switch {
		case l == 0:
			return nil, ErrDegenerateRotation
		case math32.Abs(l-1) > RotationEpsilon:
			t.Rotation = q.Scale(1 / l)
			notes = append(notes, "rotation renormalized")
		}
	}
	if t.Scale[0] == 0 || t.Scale[1] == 0 || t.Scale[2] == 0 {
		notes = append(notes, "zero scale component (degenerate geometry)")
	}
	return notes, nil
}
