package fracture

import (
	"github.com/go-gl/mathgl/mgl64"
)

// decompose splits an affine matrix into location, rotation and scale.
func decompose(m mgl64.Mat4) (mgl64.Vec3, mgl64.Quat, mgl64.Vec3) {
	loc := m.Col(3).Vec3()
	scale := mgl64.Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}

	rot := mgl64.Ident4()
	for i := 0; i < 3; i++ {
		axis := m.Col(i).Vec3()
		if scale[i] > 0 {
			axis = axis.Mul(1 / scale[i])
		}
		rot.SetCol(i, axis.Vec4(0))
	}

	return loc, mgl64.Mat4ToQuat(rot).Normalize(), scale
}

func compose(loc mgl64.Vec3, rot mgl64.Quat, scale mgl64.Vec3) mgl64.Mat4 {
	return mgl64.Translate3D(loc.X(), loc.Y(), loc.Z()).
		Mul4(rot.Normalize().Mat4()).
		Mul4(mgl64.Scale3D(scale.X(), scale.Y(), scale.Z()))
}

// shardPosition places a shard centroid in world space.
func shardPosition(loc mgl64.Vec3, rot mgl64.Quat, scale, centroid mgl64.Vec3) mgl64.Vec3 {
	offset := mgl64.Vec3{centroid.X() * scale.X(), centroid.Y() * scale.Y(), centroid.Z() * scale.Z()}
	return loc.Add(rot.Rotate(offset))
}

// checkSimRunning reports whether simulated transforms apply at ctime.
func (w *World) checkSimRunning(ctime int) bool {
	return w.world != nil && !w.Muted && ctime > w.Settings.StartFrame
}

// SyncTransforms copies the simulated transforms onto ob, or the object
// transform onto its settings when the simulation does not drive it. Shards
// record the frame in their history.
func (w *World) SyncTransforms(ob *Object, ctime int) {
	if w == nil || ob == nil {
		return
	}
	transforming := w.scene.transforming(ob)

	if ob.Fractured() {
		f := ob.Fracture
		if transforming || (ob.RigidBody != nil && ob.RigidBody.Kinematic) {
			f.OrigTransform = ob.Transform
			if transforming {
				w.objectChanged = true
				w.CacheReset()
				for _, c := range f.Constraints {
					c.Enabled = true
					c.State.Escalate(NeedsValidate)
				}
			}
		}

		if f.OrigTransform != (mgl64.Mat4{}) && !w.objectChanged {
			ob.Transform = f.OrigTransform
		}

		loc, rot, scale := decompose(ob.Transform)
		for _, s := range f.Shards {
			rb := s.RigidBody
			if rb == nil {
				continue
			}

			if w.checkSimRunning(ctime) && !transforming {
				if w.Muted {
					return
				}
			} else {
				rb.Position = shardPosition(loc, rot, scale, s.Centroid)
				rb.Orientation = rot
			}
			s.RecordFrame(ctime, rb.Position, rb.Orientation)
		}
		return
	}

	rb := ob.RigidBody
	// keep original transform for kinematic and passive objects
	if rb == nil || rb.Kinematic || rb.Type == Passive {
		return
	}

	if w.checkSimRunning(ctime) && !transforming {
		_, _, scale := decompose(ob.Transform)
		ob.Transform = compose(rb.Position, rb.Orientation.Normalize(), scale)
		return
	}

	if transforming {
		w.objectChanged = true
	}
	rb.Position, rb.Orientation, _ = decompose(ob.Transform)
}

// AfterTransformCancel returns ob and its bodies to their state before an
// interactive transform was cancelled: loc and rot are the original object
// location and rotation.
func (w *World) AfterTransformCancel(ob *Object, loc mgl64.Vec3, rot mgl64.Quat) {
	if ob == nil {
		return
	}
	_, _, scale := decompose(ob.Transform)
	ob.Transform = compose(loc, rot, scale)

	restore := func(rb *RigidBody, position mgl64.Vec3) {
		if rb == nil {
			return
		}
		rb.Position = position
		rb.Orientation = rot.Normalize()
		if rb.body != nil {
			// passive bodies need to be kinematic to be moved back
			if rb.Type == Passive {
				rb.body.SetKinematic(true)
			}
			rb.body.SetTransform(rb.Position, rb.Orientation)
		}
	}

	if ob.Fracture != nil {
		ob.Fracture.OrigTransform = ob.Transform
		for _, s := range ob.Fracture.Shards {
			restore(s.RigidBody, shardPosition(loc, rot, scale, s.Centroid))
		}
		return
	}
	restore(ob.RigidBody, loc)
}
