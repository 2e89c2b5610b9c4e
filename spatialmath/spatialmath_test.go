package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestQuaternionRotate(t *testing.T) {
	q := NewQuaternionFromAxisAngle(r3.Vector{Z: 1}, math.Pi/2)
	v := q.Rotate(r3.Vector{X: 1})
	test.That(t, v.X, test.ShouldAlmostEqual, 0)
	test.That(t, v.Y, test.ShouldAlmostEqual, 1)
	test.That(t, v.Z, test.ShouldAlmostEqual, 0)
	test.That(t, q.Yaw(), test.ShouldAlmostEqual, math.Pi/2)

	// non-unit quaternions still rotate without scaling
	scaled := NewQuaternion(2*q.Real, 2*q.Imag, 2*q.Jmag, 2*q.Kmag)
	v = scaled.Rotate(r3.Vector{X: 3})
	test.That(t, v.Y, test.ShouldAlmostEqual, 3)
	test.That(t, v.Norm(), test.ShouldAlmostEqual, 3)
}

func TestQuaternionInverse(t *testing.T) {
	q := NewQuaternionFromAxisAngle(r3.Vector{X: 1, Y: 2, Z: 3}, 0.7)
	id := q.Inverse().Mul(q)
	test.That(t, QuaternionAlmostEqual(id, IdentityQuaternion(), 1e-9), test.ShouldBeTrue)

	zero := Quaternion{}
	test.That(t, zero.Inverse(), test.ShouldResemble, zero)
	test.That(t, zero.Normalize(), test.ShouldResemble, IdentityQuaternion())
}

func TestVectorIsZero(t *testing.T) {
	test.That(t, IdentityQuaternion().VectorIsZero(), test.ShouldBeTrue)
	test.That(t, Quaternion{}.VectorIsZero(), test.ShouldBeTrue)
	test.That(t, NewQuaternion(0.9, 0, 0, 0.1).VectorIsZero(), test.ShouldBeFalse)
}

func TestQuaternionAlmostEqual(t *testing.T) {
	q := NewQuaternionFromAxisAngle(r3.Vector{Y: 1}, 1.2)
	neg := NewQuaternion(-q.Real, -q.Imag, -q.Jmag, -q.Kmag)
	test.That(t, QuaternionAlmostEqual(q, neg, 1e-9), test.ShouldBeTrue)
	test.That(t, QuaternionAlmostEqual(q, IdentityQuaternion(), 1e-3), test.ShouldBeFalse)
}

func TestSlerp(t *testing.T) {
	a := IdentityQuaternion()
	b := NewQuaternionFromAxisAngle(r3.Vector{Z: 1}, math.Pi/2)

	test.That(t, QuaternionAlmostEqual(Slerp(a, b, 0), a, 1e-9), test.ShouldBeTrue)
	test.That(t, QuaternionAlmostEqual(Slerp(a, b, 1), b, 1e-9), test.ShouldBeTrue)
	test.That(t, Slerp(a, b, 0.5).Yaw(), test.ShouldAlmostEqual, math.Pi/4)

	// nearly identical rotations take the linear path
	c := NewQuaternionFromAxisAngle(r3.Vector{Z: 1}, 1e-4)
	test.That(t, Slerp(a, c, 0.5).Yaw(), test.ShouldAlmostEqual, 5e-5, 1e-9)
}

func TestRigidTransform(t *testing.T) {
	rot := NewQuaternionFromAxisAngle(r3.Vector{Z: 1}, math.Pi/2)
	tf := NewRigidTransform(r3.Vector{X: 1, Y: 2, Z: 3}, rot)

	p := tf.Apply(r3.Vector{X: 1})
	test.That(t, p.X, test.ShouldAlmostEqual, 1)
	test.That(t, p.Y, test.ShouldAlmostEqual, 3)
	test.That(t, p.Z, test.ShouldAlmostEqual, 3)

	back := tf.Inverse().Apply(p)
	test.That(t, back.X, test.ShouldAlmostEqual, 1)
	test.That(t, back.Y, test.ShouldAlmostEqual, 0)
	test.That(t, back.Z, test.ShouldAlmostEqual, 0)

	test.That(t, TransformAlmostEqual(tf.Compose(tf.Inverse()), IdentityTransform(), 1e-9), test.ShouldBeTrue)
	test.That(t, TransformAlmostEqual(IdentityTransform().Compose(tf), tf, 1e-9), test.ShouldBeTrue)

	other := NewRigidTransform(r3.Vector{X: -4}, NewQuaternionFromAxisAngle(r3.Vector{X: 1}, 0.3))
	q := r3.Vector{X: 0.5, Y: -2, Z: 7}
	composed := tf.Compose(other).Apply(q)
	sequential := tf.Apply(other.Apply(q))
	test.That(t, composed.Sub(sequential).Norm(), test.ShouldBeLessThan, 1e-9)
}

func TestInterpolate(t *testing.T) {
	a := IdentityTransform()
	b := NewRigidTransform(r3.Vector{X: 10}, NewQuaternionFromAxisAngle(r3.Vector{Z: 1}, 1))

	mid := Interpolate(a, b, 0.25)
	test.That(t, mid.Translation.X, test.ShouldAlmostEqual, 2.5)
	test.That(t, mid.Rotation.Yaw(), test.ShouldAlmostEqual, 0.25)
	test.That(t, TransformAlmostEqual(Interpolate(a, b, 1), b, 1e-9), test.ShouldBeTrue)
}
