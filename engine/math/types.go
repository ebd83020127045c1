package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

// Quaternion represents a rotational orientation.
type Quaternion Vec4

// Mat4 is a 4x4 column-major matrix, typically used to represent object
// transformations.
type Mat4 struct {
	Data [16]float32
}

// Extents2D represents the min/max extents of a 2D object.
type Extents2D struct {
	Min Vec2
	Max Vec2
}

// Extents3D represents the min/max extents of a 3D object.
type Extents3D struct {
	Min Vec3
	Max Vec3
}

// Vertex3D is a single vertex in 3D space.
type Vertex3D struct {
	Position Vec3
	Normal   Vec3
	Texcoord Vec2
	Colour   Vec4
	Tangent  Vec3
}

// Vertex2D is a single vertex in 2D space.
type Vertex2D struct {
	Position Vec2
	Texcoord Vec2
}

// Transform is the placement of an object in the world. A transform may
// have a parent whose own transform is taken into account. Mutate it
// through the methods so the cached local matrix stays consistent.
type Transform struct {
	Position Vec3
	Rotation Quaternion
	Scale    Vec3
	// isDirty marks the cached local matrix stale.
	isDirty bool
	local   Mat4
	Parent  *Transform
}
