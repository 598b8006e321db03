package actor

import "github.com/go-gl/mathgl/mgl64"

// Transform represents a position, rotation and scale in 3D space
type Transform struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	InverseRotation mgl64.Quat
	Scale           mgl64.Vec3
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position:        mgl64.Vec3{0, 0, 0},
		Rotation:        mgl64.QuatIdent(),
		InverseRotation: mgl64.QuatIdent(),
		Scale:           mgl64.Vec3{1, 1, 1},
	}
}

// ToWorld maps a local point, scale first
func (t Transform) ToWorld(local mgl64.Vec3) mgl64.Vec3 {
	scaled := mgl64.Vec3{local.X() * t.Scale.X(), local.Y() * t.Scale.Y(), local.Z() * t.Scale.Z()}
	return t.Rotation.Rotate(scaled).Add(t.Position)
}
