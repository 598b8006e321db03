package fracture

import (
	"math"

	"github.com/akmonengine/fracture/engine"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// ConstraintScope tells where the endpoints of a constraint are resolved.
type ConstraintScope int

const (
	// ObjectScope endpoints are objects of the scene
	ObjectScope ConstraintScope = iota
	// ShardScope endpoints are shards of the owning fracture
	ShardScope
)

// free axis sentinel, lower > upper
const (
	freeLower = 0.0
	freeUpper = -1.0
)

// AxisLimit bounds one degree of freedom. A disabled limit leaves the axis free.
type AxisLimit struct {
	Enabled      bool
	Lower, Upper float64
}

type Spring struct {
	Enabled   bool
	Stiffness float64
	Damping   float64
}

type Motor struct {
	Enabled        bool
	MaxImpulse     float64
	TargetVelocity float64
}

// Constraint joins two bodies, whole objects or shards of one fracture.
type Constraint struct {
	Type  engine.ConstraintType
	Scope ConstraintScope
	// Endpoint1 and Endpoint2 are weak references by id
	Endpoint1, Endpoint2 uuid.UUID

	Enabled           bool
	DisableCollisions bool
	UseBreaking       bool
	BreakingThreshold float64
	// OverrideIterations replaces the world solver iterations by SolverIterations
	OverrideIterations bool
	SolverIterations   int

	// Limits are indexed by engine.Axis
	Limits [6]AxisLimit
	// Springs act on the linear axes of 6dof-spring constraints
	Springs      [3]Spring
	LinearMotor  Motor
	AngularMotor Motor

	State SyncState
	// KinematicDeactivation forces a rebuild after an impact woke the shards
	KinematicDeactivation bool

	// rest distance and angle between the shards, captured at bind time
	StartDistance float64
	StartAngle    float64

	handle engine.Constraint
	// bodies the handle was built with
	bodyA, bodyB engine.Body
}

func newConstraint(kind engine.ConstraintType) *Constraint {
	c := &Constraint{
		Type:              kind,
		Enabled:           true,
		BreakingThreshold: 10,
		SolverIterations:  10,
		LinearMotor:       Motor{MaxImpulse: 1, TargetVelocity: 1},
		AngularMotor:      Motor{MaxImpulse: 1, TargetVelocity: 1},
	}
	for axis := engine.LinearX; axis <= engine.AngularZ; axis++ {
		if axis.IsLinear() {
			c.Limits[axis] = AxisLimit{Lower: -1, Upper: 1}
		} else {
			c.Limits[axis] = AxisLimit{Lower: -math.Pi / 4, Upper: math.Pi / 4}
		}
	}
	for i := range c.Springs {
		c.Springs[i] = Spring{Stiffness: 10, Damping: 0.5}
	}

	return c
}

// NewObjectConstraint returns an enabled constraint between two objects,
// which disables the collisions between them.
func NewObjectConstraint(kind engine.ConstraintType, ob1, ob2 *Object) *Constraint {
	c := newConstraint(kind)
	c.Scope = ObjectScope
	c.DisableCollisions = true
	if ob1 != nil {
		c.Endpoint1 = ob1.ID
	}
	if ob2 != nil {
		c.Endpoint2 = ob2.ID
	}
	return c
}

// NewShardConstraint returns an enabled constraint breaking at threshold 1.
// Fracture.Connect binds it to its shards.
func NewShardConstraint(kind engine.ConstraintType) *Constraint {
	c := newConstraint(kind)
	c.Scope = ShardScope
	c.UseBreaking = true
	c.BreakingThreshold = 1
	return c
}

// Handle returns the live engine constraint, nil while the constraint is inert.
func (c *Constraint) Handle() engine.Constraint {
	return c.handle
}

func (c *Constraint) Live() bool {
	return c.handle != nil
}

// disabled reports whether the constraint currently holds nothing.
func (c *Constraint) disabled() bool {
	if c.handle != nil {
		return !c.handle.Enabled()
	}
	return !c.Enabled
}

// disable turns the constraint off, settings and live handle.
func (c *Constraint) disable() {
	c.Enabled = false
	c.State.Escalate(NeedsValidate)
	if c.handle != nil {
		c.handle.SetEnabled(false)
	}
}

// stale reports whether the live handle was built on bodies that were
// replaced since.
func (c *Constraint) stale(a, b *RigidBody) bool {
	if c.handle == nil || a == nil || b == nil {
		return false
	}
	return c.bodyA != a.body || c.bodyB != b.body
}

func (c *Constraint) limit(h engine.Constraint, axis engine.Axis) {
	if l := c.Limits[axis]; l.Enabled {
		h.SetLimits(axis, l.Lower, l.Upper)
		return
	}
	h.SetLimits(axis, freeLower, freeUpper)
}

// configure applies the per type parameters to a new handle.
func (c *Constraint) configure(h engine.Constraint) {
	switch c.Type {
	case engine.ConstraintHinge:
		c.limit(h, engine.AngularZ)

	case engine.ConstraintSlider:
		c.limit(h, engine.LinearX)

	case engine.ConstraintPiston:
		c.limit(h, engine.LinearX)
		c.limit(h, engine.AngularX)

	case engine.Constraint6DOFSpring, engine.Constraint6DOF:
		if c.Type == engine.Constraint6DOFSpring {
			for i, spring := range c.Springs {
				h.SetSpring(engine.Axis(i), spring.Enabled, spring.Stiffness, spring.Damping)
			}
			h.SetEquilibrium()
		}
		for axis := engine.LinearX; axis <= engine.AngularZ; axis++ {
			c.limit(h, axis)
		}

	case engine.ConstraintMotor:
		h.SetMotor(c.LinearMotor.Enabled, c.AngularMotor.Enabled)
		h.SetMotorMaxImpulse(c.LinearMotor.MaxImpulse, c.AngularMotor.MaxImpulse)
		h.SetMotorTargetVelocity(c.LinearMotor.TargetVelocity, c.AngularMotor.TargetVelocity)
	}
}

// teardown deletes the engine handle, the constraint stays inert.
func (w *World) teardown(c *Constraint) {
	if c.handle == nil {
		return
	}
	if w.world != nil {
		w.world.RemoveConstraint(c.handle)
	}
	c.handle.Delete()
	c.handle = nil
	c.bodyA, c.bodyB = nil, nil
}

// validateConstraint builds the engine constraint between a and b at pivot,
// or re-adds the live one. An endpoint without a live body leaves the
// constraint inert. It reports whether a new handle was allocated.
func (w *World) validateConstraint(c *Constraint, a, b *RigidBody, pivot mgl64.Vec3, orientation mgl64.Quat, rebuild bool) bool {
	if c == nil {
		return false
	}
	if a == nil || b == nil || a.body == nil || b.body == nil {
		w.teardown(c)
		if c.Scope == ShardScope {
			c.KinematicDeactivation = false
		}
		return false
	}

	// shard constraints woken by an impact were already removed from the world
	forced := c.Scope == ShardScope && c.KinematicDeactivation
	if c.handle != nil && !rebuild && !forced && w.world != nil {
		w.world.RemoveConstraint(c.handle)
	}

	created := false
	if c.handle == nil || rebuild || forced {
		w.teardown(c)

		h, err := w.engine.NewConstraint(c.Type, pivot, orientation, a.body, b.body)
		if err != nil {
			w.logger.Warn("constraint left inert", "type", c.Type, "error", err)
			return false
		}
		c.configure(h)

		h.SetEnabled(c.Enabled)
		if c.UseBreaking {
			h.SetBreakingThreshold(c.BreakingThreshold)
		} else {
			h.SetBreakingThreshold(engine.Unbounded)
		}
		if c.OverrideIterations {
			h.SetSolverIterations(c.SolverIterations)
		} else {
			h.SetSolverIterations(engine.DefaultIterations)
		}

		c.handle = h
		c.bodyA, c.bodyB = a.body, b.body
		created = true
	}

	if w.world != nil {
		w.world.AddConstraint(c.handle, c.DisableCollisions)
	}
	if c.Scope == ShardScope {
		c.KinematicDeactivation = false
	}

	return created
}

// syncObjectConstraint runs the work pending on the constraint of cob. The
// endpoints are resolved in the scene, the pivot is the transform of cob.
func (w *World) syncObjectConstraint(cob *Object, rebuild bool) {
	c := cob.Constraint
	if c == nil {
		c = NewObjectConstraint(engine.ConstraintFixed, nil, nil)
		cob.Constraint = c
		rebuild = true
	}

	var a, b *RigidBody
	if ob := w.scene.Object(c.Endpoint1); ob != nil {
		a = ob.RigidBody
	}
	if ob := w.scene.Object(c.Endpoint2); ob != nil {
		b = ob.RigidBody
	}

	loc, rot, _ := decompose(cob.Transform)
	switch {
	case rebuild || c.State == NeedsRebuild || c.stale(a, b):
		w.validateConstraint(c, a, b, loc, rot, true)
	case c.State >= NeedsValidate:
		w.validateConstraint(c, a, b, loc, rot, false)
	}
	c.State = Clean
}

// shardBodies resolves the endpoints of a shard constraint.
func (f *Fracture) shardBodies(c *Constraint) (*Shard, *Shard, *RigidBody, *RigidBody) {
	s1, s2 := f.Shard(c.Endpoint1), f.Shard(c.Endpoint2)
	var a, b *RigidBody
	if s1 != nil {
		a = s1.RigidBody
	}
	if s2 != nil {
		b = s2.RigidBody
	}
	return s1, s2, a, b
}

// syncShardConstraint runs the work pending on a shard constraint. The pivot
// is the transform of the first shard. The rest distance and angle are
// captured again on every rebuild.
func (w *World) syncShardConstraint(f *Fracture, c *Constraint, rebuild bool) {
	_, _, a, b := f.shardBodies(c)

	var pivot mgl64.Vec3
	orientation := mgl64.QuatIdent()
	if a != nil {
		pivot, orientation = a.Position, a.Orientation
	}

	switch {
	case rebuild || c.State == NeedsRebuild || c.stale(a, b):
		w.validateConstraint(c, a, b, pivot, orientation, true)
		c.captureRest(a, b)
	case c.State >= NeedsValidate || c.KinematicDeactivation:
		w.validateConstraint(c, a, b, pivot, orientation, false)
	}

	if c.handle != nil && w.rebuildConstraints {
		c.handle.SetEnabled(true)
	}
	c.State = Clean
}
