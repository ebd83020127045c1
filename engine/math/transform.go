package math

func NewTransform() *Transform {
	t := &Transform{}
	t.SetPositionRotationScale(NewVec3Zero(), NewQuatIdentity(), NewVec3One())
	t.local = NewMat4Identity()
	return t
}

func TransformFromPosition(position Vec3) *Transform {
	t := NewTransform()
	t.SetPosition(position)
	return t
}

func TransformFromPositionRotationScale(position Vec3, rotation Quaternion, scale Vec3) *Transform {
	t := NewTransform()
	t.SetPositionRotationScale(position, rotation, scale)
	return t
}

func (t *Transform) SetPosition(position Vec3) {
	t.Position = position
	t.isDirty = true
}

func (t *Transform) Translate(translation Vec3) {
	t.Position = t.Position.Add(translation)
	t.isDirty = true
}

func (t *Transform) SetRotation(rotation Quaternion) {
	t.Rotation = rotation
	t.isDirty = true
}

func (t *Transform) Rotate(rotation Quaternion) {
	t.Rotation = t.Rotation.Mul(rotation)
	t.isDirty = true
}

func (t *Transform) SetScale(scale Vec3) {
	t.Scale = scale
	t.isDirty = true
}

func (t *Transform) SetPositionRotationScale(position Vec3, rotation Quaternion, scale Vec3) {
	t.Position = position
	t.Rotation = rotation
	t.Scale = scale
	t.isDirty = true
}

// GetLocal returns the local transformation matrix, recalculating it only
// when position, rotation or scale changed since the last call. Column
// vector convention: scale applies first, translation last.
func (t *Transform) GetLocal() Mat4 {
	if t == nil {
		return NewMat4Identity()
	}
	if t.isDirty {
		rs := t.Rotation.ToMat4().Mul(NewMat4Scale(t.Scale))
		t.local = NewMat4Translation(t.Position).Mul(rs)
		t.isDirty = false
	}
	return t.local
}

// GetWorld returns the world matrix, folding in parent transforms.
func (t *Transform) GetWorld() Mat4 {
	if t == nil {
		return NewMat4Identity()
	}
	l := t.GetLocal()
	if t.Parent != nil {
		return t.Parent.GetWorld().Mul(l)
	}
	return l
}
