// Package engine declares the rigid body dynamics primitives the fracture core
// drives. The core never depends on a concrete engine: bodies, shapes,
// constraints and worlds are opaque handles behind these interfaces.
package engine

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Unbounded is the breaking threshold of a constraint that never breaks.
const Unbounded = math.MaxFloat64

// DefaultIterations asks a constraint to use the world solver iterations.
const DefaultIterations = -1

// ConstraintType enumerates the supported joint kinds.
type ConstraintType int

const (
	ConstraintPoint ConstraintType = iota
	ConstraintFixed
	ConstraintHinge
	ConstraintSlider
	ConstraintPiston
	Constraint6DOF
	Constraint6DOFSpring
	ConstraintMotor
)

func (t ConstraintType) String() string {
	switch t {
	case ConstraintPoint:
		return "point"
	case ConstraintFixed:
		return "fixed"
	case ConstraintHinge:
		return "hinge"
	case ConstraintSlider:
		return "slider"
	case ConstraintPiston:
		return "piston"
	case Constraint6DOF:
		return "6dof"
	case Constraint6DOFSpring:
		return "6dof-spring"
	case ConstraintMotor:
		return "motor"
	}
	return "unknown"
}

// Axis is one of the six degrees of freedom of a constraint frame.
type Axis int

const (
	LinearX Axis = iota
	LinearY
	LinearZ
	AngularX
	AngularY
	AngularZ
)

// IsLinear reports whether the axis is a translation axis.
func (a Axis) IsLinear() bool {
	return a <= LinearZ
}

// FilterFunc is invoked by the world for every candidate body pair found by
// the broad phase. It runs synchronously on the stepping goroutine and
// returns whether the pair may collide.
type FilterFunc func(a, b Body) bool

// TriangleMesh is the input of a triangle mesh shape.
type TriangleMesh struct {
	Vertices  []mgl64.Vec3
	Triangles [][3]int
}

// Engine creates worlds and the handles living in them.
type Engine interface {
	NewWorld(gravity mgl64.Vec3, filter FilterFunc) World

	NewBoxShape(halfExtents mgl64.Vec3) (Shape, error)
	NewSphereShape(radius float64) (Shape, error)
	NewCapsuleShape(radius, height float64) (Shape, error)
	NewCylinderShape(radius, height float64) (Shape, error)
	NewConeShape(radius, height float64) (Shape, error)
	// NewConvexHullShape builds a hull around points, coplanar points fail.
	// canEmbed reports whether the margin could be embedded inside the hull.
	NewConvexHullShape(points []mgl64.Vec3, margin float64) (shape Shape, canEmbed bool, err error)
	// NewTriangleMeshShape builds a static BVH backed mesh, or a dynamic mesh
	// when dynamic is set.
	NewTriangleMeshShape(mesh TriangleMesh, dynamic bool) (Shape, error)

	NewBody(shape Shape, position mgl64.Vec3, orientation mgl64.Quat) Body
	// NewConstraint joins a and b at the world space pivot. The orientation is
	// the constraint frame in world space.
	NewConstraint(kind ConstraintType, pivot mgl64.Vec3, orientation mgl64.Quat, a, b Body) (Constraint, error)
}

// World is a live simulation world.
type World interface {
	SetGravity(gravity mgl64.Vec3)
	SetSolverIterations(iterations int)
	SetSplitImpulse(enabled bool)

	AddBody(body Body, groups uint32)
	RemoveBody(body Body)
	AddConstraint(constraint Constraint, disableCollisions bool)
	RemoveConstraint(constraint Constraint)

	// Step advances the world by timestep using fixed sub-steps of fixedStep.
	// maxSubsteps <= 0 means no limit.
	Step(timestep float64, maxSubsteps int, fixedStep float64)
	Delete()
}

// Body is a rigid body handle.
type Body interface {
	SetFriction(friction float64)
	SetRestitution(restitution float64)
	SetDamping(linear, angular float64)
	SetSleepThresholds(linear, angular float64)
	// SetActivation allows (true) or forbids (false) automatic deactivation.
	SetActivation(enabled bool)
	Activate()
	Deactivate()
	IsActive() bool

	SetLinearFactor(factor mgl64.Vec3)
	SetAngularFactor(factor mgl64.Vec3)
	SetMass(mass float64)
	Mass() float64
	SetKinematic(kinematic bool)
	IsKinematic() bool

	SetScale(scale mgl64.Vec3)
	SetShape(shape Shape)
	SetTransform(position mgl64.Vec3, orientation mgl64.Quat)
	Position() mgl64.Vec3
	Orientation() mgl64.Quat
	LinearVelocity() mgl64.Vec3
	AngularVelocity() mgl64.Vec3
	SetVelocities(linear, angular mgl64.Vec3)
	ApplyCentralForce(force mgl64.Vec3)

	Delete()
}

// Shape is a collision shape handle.
type Shape interface {
	SetMargin(margin float64)
	Margin() float64
	Delete()
}

// Constraint is a joint handle.
type Constraint interface {
	SetEnabled(enabled bool)
	Enabled() bool
	SetBreakingThreshold(threshold float64)
	// SetSolverIterations overrides the world iterations, DefaultIterations
	// restores them.
	SetSolverIterations(iterations int)
	// SetLimits constrains an axis between lower and upper. lower > upper
	// leaves the axis free, lower == upper locks it.
	SetLimits(axis Axis, lower, upper float64)
	SetSpring(axis Axis, enabled bool, stiffness, damping float64)
	// SetEquilibrium captures the current offsets as spring rest positions.
	SetEquilibrium()
	SetMotor(linear, angular bool)
	SetMotorMaxImpulse(linear, angular float64)
	SetMotorTargetVelocity(linear, angular float64)
	Delete()
}
