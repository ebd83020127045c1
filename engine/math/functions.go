package math

import (
	m "math"

	"golang.org/x/exp/rand"
)

const (
	Pi        float32 = 3.14159265358979323846
	TwoPi     float32 = 2.0 * Pi
	HalfPi    float32 = 0.5 * Pi
	QuarterPi float32 = 0.25 * Pi

	// FloatEpsilon is the tolerance used by the Compare helpers.
	FloatEpsilon float32 = 1.192092896e-07

	degToRadMultiplier float32 = Pi / 180.0
	radToDegMultiplier float32 = 180.0 / Pi
)

func DegToRad(degrees float32) float32 {
	return degrees * degToRadMultiplier
}

func RadToDeg(radians float32) float32 {
	return radians * radToDegMultiplier
}

// RandomInRange returns a random float32 in [min, max).
func RandomInRange(min, max float32) float32 {
	return min + rand.Float32()*(max-min)
}

func Sqrt(x float32) float32 {
	return float32(m.Sqrt(float64(x)))
}

func Abs(x float32) float32 {
	return float32(m.Abs(float64(x)))
}

func Sin(x float32) float32 {
	return float32(m.Sin(float64(x)))
}

func Cos(x float32) float32 {
	return float32(m.Cos(float64(x)))
}

func Tan(x float32) float32 {
	return float32(m.Tan(float64(x)))
}

/* ---- Vec2 ---- */

func NewVec2(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

func NewVec2Zero() Vec2 {
	return Vec2{}
}

func NewVec2One() Vec2 {
	return Vec2{X: 1, Y: 1}
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vec2) MulScalar(s float32) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

func (v Vec2) Dot(o Vec2) float32 {
	return v.X*o.X + v.Y*o.Y
}

func (v Vec2) Length() float32 {
	return Sqrt(v.Dot(v))
}

func (v Vec2) Normalized() Vec2 {
	l := v.Length()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / l, Y: v.Y / l}
}

func (v Vec2) Compare(o Vec2, tolerance float32) bool {
	return Abs(v.X-o.X) <= tolerance && Abs(v.Y-o.Y) <= tolerance
}

/* ---- Vec3 ---- */

func NewVec3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func NewVec3Zero() Vec3 {
	return Vec3{}
}

func NewVec3One() Vec3 {
	return Vec3{X: 1, Y: 1, Z: 1}
}

func NewVec3Up() Vec3 {
	return Vec3{Y: 1}
}

func NewVec3Forward() Vec3 {
	return Vec3{Z: -1}
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Mul multiplies component-wise.
func (v Vec3) Mul(o Vec3) Vec3 {
	return Vec3{X: v.X * o.X, Y: v.Y * o.Y, Z: v.Z * o.Z}
}

func (v Vec3) MulScalar(s float32) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (v Vec3) Dot(o Vec3) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) LengthSquared() float32 {
	return v.Dot(v)
}

func (v Vec3) Length() float32 {
	return Sqrt(v.LengthSquared())
}

func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return Vec3{X: v.X / l, Y: v.Y / l, Z: v.Z / l}
}

func (v Vec3) Distance(o Vec3) float32 {
	return v.Sub(o).Length()
}

func (v Vec3) Lerp(o Vec3, t float32) Vec3 {
	return Vec3{
		X: v.X + (o.X-v.X)*t,
		Y: v.Y + (o.Y-v.Y)*t,
		Z: v.Z + (o.Z-v.Z)*t,
	}
}

func (v Vec3) Compare(o Vec3, tolerance float32) bool {
	return Abs(v.X-o.X) <= tolerance &&
		Abs(v.Y-o.Y) <= tolerance &&
		Abs(v.Z-o.Z) <= tolerance
}

/* ---- Vec4 ---- */

func NewVec4(x, y, z, w float32) Vec4 {
	return Vec4{X: x, Y: y, Z: z, W: w}
}

func NewVec4One() Vec4 {
	return Vec4{X: 1, Y: 1, Z: 1, W: 1}
}

func (v Vec4) Add(o Vec4) Vec4 {
	return Vec4{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z, W: v.W + o.W}
}

func (v Vec4) MulScalar(s float32) Vec4 {
	return Vec4{X: v.X * s, Y: v.Y * s, Z: v.Z * s, W: v.W * s}
}

func (v Vec4) Compare(o Vec4, tolerance float32) bool {
	return Abs(v.X-o.X) <= tolerance &&
		Abs(v.Y-o.Y) <= tolerance &&
		Abs(v.Z-o.Z) <= tolerance &&
		Abs(v.W-o.W) <= tolerance
}

/* ---- Quaternion ---- */

func NewQuatIdentity() Quaternion {
	return Quaternion{W: 1}
}

// NewQuatFromAxisAngle builds a rotation of angle radians around axis.
func NewQuatFromAxisAngle(axis Vec3, angle float32, normalize bool) Quaternion {
	halfAngle := 0.5 * angle
	s := Sin(halfAngle)
	c := Cos(halfAngle)

	q := Quaternion{X: s * axis.X, Y: s * axis.Y, Z: s * axis.Z, W: c}
	if normalize {
		return q.Normalized()
	}
	return q
}

func (q Quaternion) Normal() float32 {
	return Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

func (q Quaternion) Normalized() Quaternion {
	n := q.Normal()
	if n == 0 {
		return NewQuatIdentity()
	}
	return Quaternion{X: q.X / n, Y: q.Y / n, Z: q.Z / n, W: q.W / n}
}

func (q Quaternion) Mul(o Quaternion) Quaternion {
	return Quaternion{
		X: q.X*o.W + q.Y*o.Z - q.Z*o.Y + q.W*o.X,
		Y: -q.X*o.Z + q.Y*o.W + q.Z*o.X + q.W*o.Y,
		Z: q.X*o.Y - q.Y*o.X + q.Z*o.W + q.W*o.Z,
		W: -q.X*o.X - q.Y*o.Y - q.Z*o.Z + q.W*o.W,
	}
}

func (q Quaternion) ToMat4() Mat4 {
	n := q.Normalized()

	out := NewMat4Identity()
	out.Data[0] = 1.0 - 2.0*n.Y*n.Y - 2.0*n.Z*n.Z
	out.Data[1] = 2.0*n.X*n.Y - 2.0*n.Z*n.W
	out.Data[2] = 2.0*n.X*n.Z + 2.0*n.Y*n.W

	out.Data[4] = 2.0*n.X*n.Y + 2.0*n.Z*n.W
	out.Data[5] = 1.0 - 2.0*n.X*n.X - 2.0*n.Z*n.Z
	out.Data[6] = 2.0*n.Y*n.Z - 2.0*n.X*n.W

	out.Data[8] = 2.0*n.X*n.Z - 2.0*n.Y*n.W
	out.Data[9] = 2.0*n.Y*n.Z + 2.0*n.X*n.W
	out.Data[10] = 1.0 - 2.0*n.X*n.X - 2.0*n.Y*n.Y
	return out
}

/* ---- Mat4 ---- */

func NewMat4Identity() Mat4 {
	out := Mat4{}
	out.Data[0] = 1
	out.Data[5] = 1
	out.Data[10] = 1
	out.Data[15] = 1
	return out
}

func NewMat4Translation(position Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[12] = position.X
	out.Data[13] = position.Y
	out.Data[14] = position.Z
	return out
}

func NewMat4Scale(scale Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[0] = scale.X
	out.Data[5] = scale.Y
	out.Data[10] = scale.Z
	return out
}

// NewMat4Perspective builds a right-handed perspective projection.
func NewMat4Perspective(fovRadians, aspect, near, far float32) Mat4 {
	halfTan := Tan(fovRadians * 0.5)
	out := Mat4{}
	out.Data[0] = 1.0 / (aspect * halfTan)
	out.Data[5] = 1.0 / halfTan
	out.Data[10] = -((far + near) / (far - near))
	out.Data[11] = -1.0
	out.Data[14] = -((2.0 * far * near) / (far - near))
	return out
}

// NewMat4LookAt builds a view matrix looking from position at target.
func NewMat4LookAt(position, target, up Vec3) Mat4 {
	zAxis := target.Sub(position).Normalized()
	xAxis := zAxis.Cross(up).Normalized()
	yAxis := xAxis.Cross(zAxis)

	out := Mat4{}
	out.Data[0] = xAxis.X
	out.Data[1] = yAxis.X
	out.Data[2] = -zAxis.X
	out.Data[4] = xAxis.Y
	out.Data[5] = yAxis.Y
	out.Data[6] = -zAxis.Y
	out.Data[8] = xAxis.Z
	out.Data[9] = yAxis.Z
	out.Data[10] = -zAxis.Z
	out.Data[12] = -xAxis.Dot(position)
	out.Data[13] = -yAxis.Dot(position)
	out.Data[14] = zAxis.Dot(position)
	out.Data[15] = 1.0
	return out
}

func (a Mat4) Mul(b Mat4) Mat4 {
	out := Mat4{}
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a.Data[k*4+row] * b.Data[col*4+k]
			}
			out.Data[col*4+row] = sum
		}
	}
	return out
}
