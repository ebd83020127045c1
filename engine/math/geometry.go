package math

// GenerateNormals fills each vertex normal with the face normal of its
// triangle. Smoothing, if wanted, is a separate pass.
func GenerateNormals(vertices []Vertex3D, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0 := indices[i+0]
		i1 := indices[i+1]
		i2 := indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		normal := edge1.Cross(edge2).Normalized()
		vertices[i0].Normal = normal
		vertices[i1].Normal = normal
		vertices[i2].Normal = normal
	}
}

// GenerateTangents derives per-triangle tangents from texture coordinates.
// Triangles with degenerate UVs are skipped.
func GenerateTangents(vertices []Vertex3D, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0 := indices[i+0]
		i1 := indices[i+1]
		i2 := indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		deltaU1 := vertices[i1].Texcoord.X - vertices[i0].Texcoord.X
		deltaV1 := vertices[i1].Texcoord.Y - vertices[i0].Texcoord.Y
		deltaU2 := vertices[i2].Texcoord.X - vertices[i0].Texcoord.X
		deltaV2 := vertices[i2].Texcoord.Y - vertices[i0].Texcoord.Y

		dividend := deltaU1*deltaV2 - deltaU2*deltaV1
		if Abs(dividend) < FloatEpsilon {
			continue
		}
		fc := 1.0 / dividend

		tangent := Vec3{
			X: fc * (deltaV2*edge1.X - deltaV1*edge2.X),
			Y: fc * (deltaV2*edge1.Y - deltaV1*edge2.Y),
			Z: fc * (deltaV2*edge1.Z - deltaV1*edge2.Z),
		}.Normalized()

		handedness := float32(1.0)
		if deltaV1*deltaU2-deltaV2*deltaU1 < 0 {
			handedness = -1.0
		}

		t := tangent.MulScalar(handedness)
		vertices[i0].Tangent = t
		vertices[i1].Tangent = t
		vertices[i2].Tangent = t
	}
}

// DeduplicateVertices collapses identical vertices and rewrites indices to
// point at the surviving ones. Returns the unique vertex slice and how
// many vertices were removed.
func DeduplicateVertices(vertices []Vertex3D, indices []uint32) ([]Vertex3D, int) {
	unique := make([]Vertex3D, 0, len(vertices))
	remap := make([]uint32, len(vertices))
	seen := make(map[Vertex3D]uint32, len(vertices))

	for i, v := range vertices {
		if idx, ok := seen[v]; ok {
			remap[i] = idx
			continue
		}
		idx := uint32(len(unique))
		seen[v] = idx
		unique = append(unique, v)
		remap[i] = idx
	}

	for i, idx := range indices {
		indices[i] = remap[idx]
	}

	return unique, len(vertices) - len(unique)
}

// CalculateExtents returns the axis-aligned bounds of the vertices.
func CalculateExtents(vertices []Vertex3D) Extents3D {
	if len(vertices) == 0 {
		return Extents3D{}
	}
	ext := Extents3D{Min: vertices[0].Position, Max: vertices[0].Position}
	for _, v := range vertices[1:] {
		p := v.Position
		if p.X < ext.Min.X {
			ext.Min.X = p.X
		}
		if p.Y < ext.Min.Y {
			ext.Min.Y = p.Y
		}
		if p.Z < ext.Min.Z {
			ext.Min.Z = p.Z
		}
		if p.X > ext.Max.X {
			ext.Max.X = p.X
		}
		if p.Y > ext.Max.Y {
			ext.Max.Y = p.Y
		}
		if p.Z > ext.Max.Z {
			ext.Max.Z = p.Z
		}
	}
	return ext
}
