package spatialmath

import (
	"github.com/golang/geo/r3"
)

// RigidTransform is a rotation followed by a translation. Applied to a point p it yields
// Rotation*p + Translation.
type RigidTransform struct {
	Translation r3.Vector
	Rotation    Quaternion
}

// NewRigidTransform returns the transform rotating by q and then translating by t.
func NewRigidTransform(t r3.Vector, q Quaternion) RigidTransform {
	return RigidTransform{Translation: t, Rotation: q}
}

// IdentityTransform returns the transform which leaves points unchanged.
func IdentityTransform() RigidTransform {
	return RigidTransform{Rotation: IdentityQuaternion()}
}

// Apply transforms p.
func (t RigidTransform) Apply(p r3.Vector) r3.Vector {
	return t.Rotation.Rotate(p).Add(t.Translation)
}

// Compose returns t*o, which applies o first and then t.
func (t RigidTransform) Compose(o RigidTransform) RigidTransform {
	return RigidTransform{
		Translation: t.Rotation.Rotate(o.Translation).Add(t.Translation),
		Rotation:    t.Rotation.Mul(o.Rotation),
	}
}

// Inverse returns the transform undoing t.
func (t RigidTransform) Inverse() RigidTransform {
	inv := t.Rotation.Inverse()
	return RigidTransform{
		Translation: inv.Rotate(t.Translation).Mul(-1),
		Rotation:    inv,
	}
}

// Interpolate blends two transforms, linearly in translation and spherically in rotation.
func Interpolate(a, b RigidTransform, ratio float64) RigidTransform {
	return RigidTransform{
		Translation: a.Translation.Add(b.Translation.Sub(a.Translation).Mul(ratio)),
		Rotation:    Slerp(a.Rotation, b.Rotation, ratio),
	}
}

// TransformAlmostEqual reports whether two transforms agree within tol in each component.
func TransformAlmostEqual(a, b RigidTransform, tol float64) bool {
	return a.Translation.Sub(b.Translation).Norm() < tol && QuaternionAlmostEqual(a.Rotation, b.Rotation, tol)
}
