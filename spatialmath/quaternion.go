// Package spatialmath defines the rotations and rigid transforms used to move sensor data into
// the tracking frame.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Quaternion is a rotation expressed as a gonum quaternion, Real being the scalar part.
type Quaternion quat.Number

// NewQuaternion returns the quaternion w + xi + yj + zk.
func NewQuaternion(w, x, y, z float64) Quaternion {
	return Quaternion{Real: w, Imag: x, Jmag: y, Kmag: z}
}

// IdentityQuaternion returns the quaternion which signifies no rotation.
func IdentityQuaternion() Quaternion {
	return Quaternion{Real: 1}
}

// NewQuaternionFromAxisAngle returns the rotation of theta radians around axis.
func NewQuaternionFromAxisAngle(axis r3.Vector, theta float64) Quaternion {
	if axis.Norm() == 0 {
		return IdentityQuaternion()
	}
	axis = axis.Normalize()
	s := math.Sin(theta / 2)
	return Quaternion{Real: math.Cos(theta / 2), Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s}
}

// Number returns q as a gonum quaternion.
func (q Quaternion) Number() quat.Number {
	return quat.Number(q)
}

// Mul returns the rotation q followed by o expressed in q's frame, i.e. q*o.
func (q Quaternion) Mul(o Quaternion) Quaternion {
	return Quaternion(quat.Mul(q.Number(), o.Number()))
}

// Inverse returns the rotation undoing q.
func (q Quaternion) Inverse() Quaternion {
	if q.Norm() == 0 {
		return q
	}
	return Quaternion(quat.Inv(q.Number()))
}

// Norm returns the magnitude of q.
func (q Quaternion) Norm() float64 {
	return quat.Abs(q.Number())
}

// Normalize returns q scaled to unit length. The zero quaternion normalizes to the identity.
func (q Quaternion) Normalize() Quaternion {
	n := q.Norm()
	if n == 0 {
		return IdentityQuaternion()
	}
	return Quaternion(quat.Scale(1/n, q.Number()))
}

// VectorIsZero reports whether the vector part of q is exactly zero, as sent by sensors that
// do not fill in an orientation.
func (q Quaternion) VectorIsZero() bool {
	return q.Imag == 0 && q.Jmag == 0 && q.Kmag == 0
}

// Rotate applies q to v.
func (q Quaternion) Rotate(v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q.Number(), p), quat.Conj(q.Number()))
	n := q.Norm()
	n2 := n * n
	if n2 == 0 {
		return v
	}
	return r3.Vector{X: r.Imag / n2, Y: r.Jmag / n2, Z: r.Kmag / n2}
}

// Yaw returns the rotation around the z axis in radians.
func (q Quaternion) Yaw() float64 {
	q = q.Normalize()
	return math.Atan2(2*(q.Real*q.Kmag+q.Imag*q.Jmag), 1-2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag))
}

// QuaternionAlmostEqual reports whether two quaternions describe the same rotation within tol.
// q and -q are the same rotation.
func QuaternionAlmostEqual(a, b Quaternion, tol float64) bool {
	a, b = a.Normalize(), b.Normalize()
	same := math.Abs(a.Real-b.Real) < tol && math.Abs(a.Imag-b.Imag) < tol &&
		math.Abs(a.Jmag-b.Jmag) < tol && math.Abs(a.Kmag-b.Kmag) < tol
	flipped := math.Abs(a.Real+b.Real) < tol && math.Abs(a.Imag+b.Imag) < tol &&
		math.Abs(a.Jmag+b.Jmag) < tol && math.Abs(a.Kmag+b.Kmag) < tol
	return same || flipped
}

// Slerp interpolates between two rotations along the shortest arc. ratio 0 yields a, 1 yields b.
func Slerp(a, b Quaternion, ratio float64) Quaternion {
	a, b = a.Normalize(), b.Normalize()
	dot := a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
	if dot < 0 {
		b = Quaternion(quat.Scale(-1, b.Number()))
		dot = -dot
	}
	// nearly parallel, fall back to normalized linear interpolation
	if dot > 0.9995 {
		return Quaternion(quat.Add(a.Number(), quat.Scale(ratio, quat.Sub(b.Number(), a.Number())))).Normalize()
	}
	theta := math.Acos(dot)
	sinTheta := math.Sin(theta)
	wa := math.Sin((1-ratio)*theta) / sinTheta
	wb := math.Sin(ratio*theta) / sinTheta
	return Quaternion(quat.Add(quat.Scale(wa, a.Number()), quat.Scale(wb, b.Number())))
}
