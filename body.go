package fracture

import (
	"github.com/go-gl/mathgl/mgl64"
)

// lockFactor returns 0 on the locked axes and 1 on the free ones.
func lockFactor(locks LockFlags, x, y, z LockFlags) mgl64.Vec3 {
	factor := mgl64.Vec3{1, 1, 1}
	for i, flag := range [3]LockFlags{x, y, z} {
		if locks&flag != 0 {
			factor[i] = 0
		}
	}
	return factor
}

// validateBody creates the engine body of rb at position and orientation,
// or re-adds the live one. rebuild replaces both the shape and the body.
// It reports whether a new body handle was allocated.
func (w *World) validateBody(rb *RigidBody, ob *Object, g Geometry, position mgl64.Vec3, orientation mgl64.Quat, rebuild bool) bool {
	if rb == nil {
		return false
	}

	if rb.shape == nil || rebuild {
		if err := w.validateShape(rb, g, true); err != nil {
			w.logger.Warn("no collision shape, body left out of the simulation", "object", ob.Name, "error", err)
		}
	}

	if rb.body != nil && !rebuild && w.world != nil {
		w.world.RemoveBody(rb.body)
	}

	created := false
	if rb.body == nil || rebuild {
		if rb.body != nil {
			rb.body.Delete()
			rb.body = nil
			w.index.invalidate()
		}
		if rb.shape == nil {
			return false
		}

		b := w.engine.NewBody(rb.shape, position, orientation)
		b.SetFriction(rb.Friction)
		b.SetRestitution(rb.Restitution)
		b.SetDamping(rb.LinearDamping, rb.AngularDamping)
		b.SetSleepThresholds(rb.LinearSleepThreshold, rb.AngularSleepThreshold)
		b.SetActivation(rb.UseDeactivation)
		if rb.Type == Passive || rb.StartDeactivated {
			b.Deactivate()
		}

		b.SetLinearFactor(lockFactor(ob.Locks, LockLocX, LockLocY, LockLocZ))
		b.SetAngularFactor(lockFactor(ob.Locks, LockRotX, LockRotY, LockRotZ))

		b.SetMass(rb.EffectiveMass())
		b.SetKinematic(rb.Kinematic || rb.Disabled)

		rb.body = b
		created = true
		w.index.invalidate()
	}

	if w.world != nil {
		w.world.AddBody(rb.body, rb.CollisionGroups)
	}

	return created
}

// syncBody runs the work pending on rb. The state is Clean afterwards.
func (w *World) syncBody(rb *RigidBody, ob *Object, g Geometry, position mgl64.Vec3, orientation mgl64.Quat, rebuild bool) {
	rebuilt := false
	switch {
	case rebuild || rb.State == NeedsRebuild:
		w.validateBody(rb, ob, g, position, orientation, true)
		rebuilt = true
	case rb.State >= NeedsValidate:
		w.validateBody(rb, ob, g, position, orientation, false)
	}

	// the new shape is attached to the existing body
	if rb.State == NeedsReshape && !rebuilt && rb.body != nil {
		if err := w.validateShape(rb, g, true); err != nil {
			w.logger.Warn("reshape failed", "object", ob.Name, "error", err)
		} else {
			rb.body.SetShape(rb.shape)
		}
	}

	rb.State = Clean
}

// validateShard validates a shard body at its stored transform, and restarts
// its frame history.
func (w *World) validateShard(ob *Object, s *Shard, rebuild bool) {
	rb := s.RigidBody
	if rb == nil {
		return
	}
	if rebuild || rb.State >= NeedsValidate {
		s.StartFrame = w.Settings.StartFrame
		s.history = s.history[:0]
	}
	w.syncBody(rb, ob, s.Geometry, rb.Position, rb.Orientation, rebuild)
}

// validateObject validates a whole object body at the object transform.
func (w *World) validateObject(ob *Object, rebuild bool) {
	loc, rot, _ := decompose(ob.Transform)
	w.syncBody(ob.RigidBody, ob, ob.Geometry, loc, rot, rebuild)
}

// effectorForce sums the force fields at a body position and velocity.
func (w *World) effectorForce(position, velocity mgl64.Vec3) (mgl64.Vec3, bool) {
	if len(w.scene.Effectors) == 0 {
		return mgl64.Vec3{}, false
	}

	var force mgl64.Vec3
	for _, effector := range w.scene.Effectors {
		force = force.Add(effector.Force(position, velocity))
	}
	return force.Mul(w.Settings.EffectorWeights.Global), true
}

// updateBody pushes the per frame state of the owner into the live body:
// scale, margin, kinematic transforms and force fields.
func (w *World) updateBody(ob *Object, rb *RigidBody, g Geometry, centroid mgl64.Vec3) {
	if rb == nil || rb.body == nil {
		return
	}

	if rb.Shape == ShapeTrimesh && rb.UseDeform && g != nil {
		if err := w.validateShape(rb, g, true); err == nil {
			rb.body.SetShape(rb.shape)
		}
	}

	loc, rot, scale := decompose(ob.Transform)
	rb.body.SetScale(scale)
	// compensate the embedded convex hull margin
	if !rb.UseMargin && rb.Shape == ShapeConvexHull {
		rb.shape.SetMargin(rb.EffectiveMargin() * min(scale.X(), scale.Y(), scale.Z()))
	}

	transforming := w.scene.transforming(ob)
	// moved objects are kinematic while the user holds them
	if transforming {
		rb.body.SetKinematic(true)
		rb.body.SetMass(0)
	}

	switch {
	case rb.Kinematic || transforming:
		rb.body.Activate()
		rb.body.SetTransform(shardPosition(loc, rot, scale, centroid), rot)

	case rb.Type == Active && !ob.IsEffector:
		force, ok := w.effectorForce(rb.body.Position(), rb.body.LinearVelocity())
		if !ok {
			return
		}
		if force.Len() != 0 {
			rb.body.Activate()
		}
		rb.body.ApplyCentralForce(force)
	}
}

// calcShardMass distributes the object mass over its shards by volume.
// Active shards weigh at least minimumActiveMass.
func (w *World) calcShardMass(ob *Object, s *Shard) {
	rb := s.RigidBody
	if rb == nil || ob.RigidBody == nil {
		return
	}

	volume := calcVolume(ob.RigidBody.Shape, ob.Geometry)
	if volume > 0 {
		rb.Mass = calcVolume(rb.Shape, s.Geometry) / volume * ob.RigidBody.Mass
	}
	if rb.Type == Active && rb.Mass == 0 {
		rb.Mass = minimumActiveMass
	}

	if rb.body != nil && rb.Type == Active {
		rb.body.SetMass(rb.EffectiveMass())
	}
}
