package fracture

import (
	"github.com/akmonengine/fracture/engine"
	"github.com/go-gl/mathgl/mgl64"
)

// BodyType tells whether the simulation moves a body.
type BodyType int

const (
	// Active bodies are moved by the simulation
	Active BodyType = iota
	// Passive bodies never move, they only collide
	Passive
)

func (t BodyType) String() string {
	if t == Passive {
		return "passive"
	}
	return "active"
}

// ShapeKind selects the collision shape built for a body.
type ShapeKind int

const (
	ShapeBox ShapeKind = iota
	ShapeSphere
	ShapeCapsule
	ShapeCylinder
	ShapeCone
	ShapeConvexHull
	ShapeTrimesh
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeBox:
		return "box"
	case ShapeSphere:
		return "sphere"
	case ShapeCapsule:
		return "capsule"
	case ShapeCylinder:
		return "cylinder"
	case ShapeCone:
		return "cone"
	case ShapeConvexHull:
		return "convex-hull"
	case ShapeTrimesh:
		return "trimesh"
	}
	return "unknown"
}

// SyncState is the pending synchronization work of a body or a constraint.
// States are ordered, a stronger state includes the work of the weaker ones.
type SyncState int

const (
	Clean SyncState = iota
	// NeedsValidate re-adds the live handle with the current settings
	NeedsValidate
	// NeedsReshape validates and rebuilds the collision shape on the same body
	NeedsReshape
	// NeedsRebuild recreates the engine handles
	NeedsRebuild
)

func (s SyncState) String() string {
	switch s {
	case Clean:
		return "clean"
	case NeedsValidate:
		return "needs-validate"
	case NeedsReshape:
		return "needs-reshape"
	case NeedsRebuild:
		return "needs-rebuild"
	}
	return "unknown"
}

// Escalate raises the state to s, it never lowers it.
func (st *SyncState) Escalate(s SyncState) {
	*st = max(*st, s)
}

const (
	defaultMargin     = 0.04
	minimumActiveMass = 0.001
)

// RigidBody holds the simulation settings of an object or a shard, and the
// engine handles built from them.
type RigidBody struct {
	Type  BodyType
	Shape ShapeKind

	Mass                  float64
	Friction              float64
	Restitution           float64
	Margin                float64
	LinearDamping         float64
	AngularDamping        float64
	LinearSleepThreshold  float64
	AngularSleepThreshold float64
	// CollisionGroups is a 20 bits mask, bodies collide when they share a bit
	CollisionGroups uint32

	// Position and Orientation are the last synced transform, they only
	// follow the live body when the simulation writes them back
	Position    mgl64.Vec3
	Orientation mgl64.Quat

	Kinematic        bool
	Disabled         bool
	UseDeactivation  bool
	StartDeactivated bool
	UseMargin        bool
	UseDeform        bool
	// KinematicDeactivation keeps kinematic shards in place until an impact
	// turns them dynamic
	KinematicDeactivation bool

	State SyncState

	body  engine.Body
	shape engine.Shape
}

// NewRigidBody returns settings seeded with the defaults. Active bodies use a
// convex hull, passive ones a triangle mesh.
func NewRigidBody(bodyType BodyType) *RigidBody {
	rb := &RigidBody{
		Type:                  bodyType,
		Shape:                 ShapeConvexHull,
		Mass:                  1.0,
		Friction:              0.5,
		Restitution:           0.0,
		Margin:                defaultMargin,
		LinearSleepThreshold:  0.4,
		AngularSleepThreshold: 0.5,
		LinearDamping:         0.04,
		AngularDamping:        0.1,
		CollisionGroups:       1,
		Orientation:           mgl64.QuatIdent(),
	}
	if bodyType == Passive {
		rb.Shape = ShapeTrimesh
	}

	return rb
}

// EffectiveMass is the mass given to the engine: passive, kinematic and
// disabled bodies are massless.
func (rb *RigidBody) EffectiveMass() float64 {
	if rb.Type == Passive || rb.Kinematic || rb.Disabled {
		return 0
	}
	return rb.Mass
}

// EffectiveMargin is the collision margin given to the engine.
func (rb *RigidBody) EffectiveMargin() float64 {
	if rb.UseMargin || rb.Shape == ShapeConvexHull || rb.Shape == ShapeTrimesh || rb.Shape == ShapeCone {
		return rb.Margin
	}
	return defaultMargin
}

// Body returns the live engine body, nil when the body is not simulated.
func (rb *RigidBody) Body() engine.Body {
	return rb.body
}

func (rb *RigidBody) Live() bool {
	return rb.body != nil
}

// copySettings duplicates the settings without the engine handles.
func (rb *RigidBody) copySettings() *RigidBody {
	c := *rb
	c.body = nil
	c.shape = nil
	c.State = NeedsValidate
	return &c
}

// free deletes both engine handles.
func (rb *RigidBody) free() {
	if rb.body != nil {
		rb.body.Delete()
		rb.body = nil
	}
	if rb.shape != nil {
		rb.shape.Delete()
		rb.shape = nil
	}
}
