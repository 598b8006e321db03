// Package dynamics is an XPBD rigid body engine implementing the engine
// interfaces: fixed sub-steps, spatial grid broad phase with a user collision
// filter, 6 degrees of freedom joints and sleep management. It has no narrow
// phase: bodies never produce contacts.
package dynamics

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/fracture/actor"
	"github.com/akmonengine/fracture/constraint"
	"github.com/akmonengine/fracture/engine"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DEFAULT_WORKERS    = 1
	DEFAULT_CELL_SIZE  = 2.0
	DEFAULT_CELL_COUNT = 1024
	DEFAULT_ITERATIONS = 10
)

var (
	ErrInvalidShape      = errors.New("dynamics: invalid shape parameters")
	ErrDegenerateHull    = errors.New("dynamics: degenerate convex hull")
	ErrEmptyMesh         = errors.New("dynamics: triangle mesh has no triangles")
	ErrInvalidConstraint = errors.New("dynamics: invalid constraint bodies")
)

// Stats counts live handles and allocations since the engine was created
type Stats struct {
	Worlds      int
	Bodies      int
	Shapes      int
	Constraints int

	BodiesCreated      int
	ShapesCreated      int
	ConstraintsCreated int
}

type Engine struct {
	CellSize  float64
	CellCount int
	Workers   int

	listeners map[EventType][]EventListener
	stats     Stats
	nextID    uint64
}

type Option func(*Engine)

// WithWorkers sets the goroutines used to integrate bodies
func WithWorkers(workers int) Option {
	return func(e *Engine) {
		e.Workers = workers
	}
}

// WithGrid configures the broad phase of every world
func WithGrid(cellSize float64, cellCount int) Option {
	return func(e *Engine) {
		e.CellSize = cellSize
		e.CellCount = cellCount
	}
}

func NewEngine(options ...Option) *Engine {
	e := &Engine{
		CellSize:  DEFAULT_CELL_SIZE,
		CellCount: DEFAULT_CELL_COUNT,
		Workers:   DEFAULT_WORKERS,
		listeners: make(map[EventType][]EventListener),
	}
	for _, option := range options {
		option(e)
	}
	e.Workers = max(DEFAULT_WORKERS, e.Workers)

	return e
}

// Subscribe registers a listener on every world created afterwards
func (e *Engine) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

func (e *Engine) Stats() Stats {
	return e.stats
}

func (e *Engine) NewWorld(gravity mgl64.Vec3, filter engine.FilterFunc) engine.World {
	w := &World{
		engine:      e,
		Gravity:     gravity,
		Iterations:  DEFAULT_ITERATIONS,
		SpatialGrid: NewSpatialGrid(e.CellSize, e.CellCount),
		Workers:     e.Workers,
		filter:      filter,
		excluded:    make(map[pairKey]int),
		Events:      NewEvents(),
	}
	for eventType, listeners := range e.listeners {
		for _, listener := range listeners {
			w.Events.Subscribe(eventType, listener)
		}
	}
	e.stats.Worlds++

	return w
}

func validLength(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return true
}

func (e *Engine) newShape(s actor.ShapeInterface) *shape {
	e.stats.Shapes++
	e.stats.ShapesCreated++
	return &shape{engine: e, ShapeInterface: s}
}

func (e *Engine) NewBoxShape(halfExtents mgl64.Vec3) (engine.Shape, error) {
	if !validLength(halfExtents.X(), halfExtents.Y(), halfExtents.Z()) {
		return nil, fmt.Errorf("box %v: %w", halfExtents, ErrInvalidShape)
	}
	return e.newShape(&actor.Box{HalfExtents: halfExtents}), nil
}

func (e *Engine) NewSphereShape(radius float64) (engine.Shape, error) {
	if !validLength(radius) {
		return nil, fmt.Errorf("sphere radius %v: %w", radius, ErrInvalidShape)
	}
	return e.newShape(&actor.Sphere{Radius: radius}), nil
}

func (e *Engine) NewCapsuleShape(radius, height float64) (engine.Shape, error) {
	if !validLength(radius, height) {
		return nil, fmt.Errorf("capsule %v x %v: %w", radius, height, ErrInvalidShape)
	}
	return e.newShape(&actor.Capsule{Radius: radius, Height: height}), nil
}

func (e *Engine) NewCylinderShape(radius, height float64) (engine.Shape, error) {
	if !validLength(radius, height) {
		return nil, fmt.Errorf("cylinder %v x %v: %w", radius, height, ErrInvalidShape)
	}
	return e.newShape(&actor.Cylinder{Radius: radius, Height: height}), nil
}

func (e *Engine) NewConeShape(radius, height float64) (engine.Shape, error) {
	if !validLength(radius, height) {
		return nil, fmt.Errorf("cone %v x %v: %w", radius, height, ErrInvalidShape)
	}
	return e.newShape(&actor.Cone{Radius: radius, Height: height}), nil
}

// NewConvexHullShape needs at least 4 finite points spanning a volume. The
// margin can be embedded when the hull is thicker than twice the margin on
// every axis.
func (e *Engine) NewConvexHullShape(points []mgl64.Vec3, margin float64) (engine.Shape, bool, error) {
	if len(points) < 4 {
		return nil, false, fmt.Errorf("%d points: %w", len(points), ErrDegenerateHull)
	}
	for _, p := range points {
		if !finite(p) {
			return nil, false, fmt.Errorf("point %v: %w", p, ErrInvalidShape)
		}
	}
	if flat(points) {
		return nil, false, fmt.Errorf("%d coplanar points: %w", len(points), ErrDegenerateHull)
	}

	hull := actor.NewConvexHull(append([]mgl64.Vec3(nil), points...))
	hull.ComputeAABB(actor.NewTransform())
	aabb := hull.GetAABB()
	size := aabb.Max.Sub(aabb.Min)

	canEmbed := margin > 0 && size.X() > 2*margin && size.Y() > 2*margin && size.Z() > 2*margin
	if canEmbed {
		hull.SetMargin(margin)
	}

	return e.newShape(hull), canEmbed, nil
}

func (e *Engine) NewTriangleMeshShape(mesh engine.TriangleMesh, dynamic bool) (engine.Shape, error) {
	if len(mesh.Triangles) == 0 || len(mesh.Vertices) == 0 {
		return nil, ErrEmptyMesh
	}
	for _, tri := range mesh.Triangles {
		for _, index := range tri {
			if index < 0 || index >= len(mesh.Vertices) {
				return nil, fmt.Errorf("triangle index %d out of %d vertices: %w", index, len(mesh.Vertices), ErrInvalidShape)
			}
		}
	}

	vertices := append([]mgl64.Vec3(nil), mesh.Vertices...)
	triangles := append([][3]int(nil), mesh.Triangles...)
	return e.newShape(actor.NewTriangleMesh(vertices, triangles, dynamic)), nil
}

func (e *Engine) NewBody(s engine.Shape, position mgl64.Vec3, orientation mgl64.Quat) engine.Body {
	sh := s.(*shape)
	transform := actor.NewTransform()
	transform.Position = position
	transform.Rotation = orientation.Normalize()

	rb := actor.NewRigidBody(transform, sh.ShapeInterface, 1.0)
	rb.Shape.ComputeAABB(rb.Transform)

	e.nextID++
	e.stats.Bodies++
	e.stats.BodiesCreated++

	return &body{engine: e, id: e.nextID, rb: rb, shape: sh}
}

func (e *Engine) NewConstraint(kind engine.ConstraintType, pivot mgl64.Vec3, orientation mgl64.Quat, a, b engine.Body) (engine.Constraint, error) {
	bodyA, okA := a.(*body)
	bodyB, okB := b.(*body)
	if !okA || !okB || bodyA == bodyB || bodyA.deleted || bodyB.deleted {
		return nil, ErrInvalidConstraint
	}

	e.stats.Constraints++
	e.stats.ConstraintsCreated++

	return &joint{
		engine: e,
		joint:  constraint.NewJoint(constraint.JointType(kind), pivot, orientation, bodyA.rb, bodyB.rb),
		a:      bodyA,
		b:      bodyB,
	}, nil
}

// flat reports whether points lie on a single plane, a line or a point.
func flat(points []mgl64.Vec3) bool {
	const eps = 1e-9
	origin := points[0]

	var far mgl64.Vec3
	for _, p := range points[1:] {
		if d := p.Sub(origin); d.Len() > far.Len() {
			far = d
		}
	}
	extent := far.Len()
	if extent <= eps {
		return true
	}
	tolerance := eps * math.Max(1, extent)

	var normal mgl64.Vec3
	for _, p := range points[1:] {
		if n := far.Cross(p.Sub(origin)); n.Len() > normal.Len() {
			normal = n
		}
	}
	if normal.Len() <= tolerance*extent {
		return true
	}
	normal = normal.Normalize()

	for _, p := range points[1:] {
		if math.Abs(normal.Dot(p.Sub(origin))) > tolerance {
			return false
		}
	}
	return true
}

func finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// ============================================================================
// Handles
// ============================================================================

type shape struct {
	actor.ShapeInterface
	engine  *Engine
	deleted bool
}

func (s *shape) Margin() float64 {
	return s.GetMargin()
}

func (s *shape) Delete() {
	if s.deleted {
		return
	}
	s.deleted = true
	s.engine.stats.Shapes--
}

type body struct {
	engine  *Engine
	id      uint64
	rb      *actor.RigidBody
	shape   *shape
	world   *World
	groups  uint32
	deleted bool
}

func (b *body) SetFriction(friction float64)       { b.rb.Material.Friction = friction }
func (b *body) SetRestitution(restitution float64) { b.rb.Material.Restitution = restitution }

func (b *body) SetDamping(linear, angular float64) {
	b.rb.Material.LinearDamping = linear
	b.rb.Material.AngularDamping = angular
}

func (b *body) SetSleepThresholds(linear, angular float64) {
	b.rb.LinearSleepThreshold = linear
	b.rb.AngularSleepThreshold = angular
}

func (b *body) SetActivation(enabled bool) { b.rb.DeactivationEnabled = enabled }
func (b *body) Activate()                  { b.rb.Awake() }
func (b *body) Deactivate()                { b.rb.Sleep() }
func (b *body) IsActive() bool             { return !b.rb.IsSleeping }

func (b *body) SetLinearFactor(factor mgl64.Vec3)  { b.rb.LinearFactor = factor }
func (b *body) SetAngularFactor(factor mgl64.Vec3) { b.rb.AngularFactor = factor }
func (b *body) SetMass(mass float64)               { b.rb.SetMass(mass) }
func (b *body) Mass() float64                      { return b.rb.Material.GetMass() }
func (b *body) SetKinematic(kinematic bool)        { b.rb.SetKinematic(kinematic) }
func (b *body) IsKinematic() bool                  { return b.rb.Kinematic }
func (b *body) SetScale(scale mgl64.Vec3)          { b.rb.SetScale(scale) }

// SetShape swaps the collision shape, the body keeps its identity
func (b *body) SetShape(s engine.Shape) {
	b.shape = s.(*shape)
	b.rb.Shape = b.shape.ShapeInterface
	b.rb.SetMass(b.rb.Material.GetMass())
	b.rb.Shape.ComputeAABB(b.rb.Transform)
}

func (b *body) SetTransform(position mgl64.Vec3, orientation mgl64.Quat) {
	b.rb.SetTransform(position, orientation)
}

func (b *body) Position() mgl64.Vec3        { return b.rb.Transform.Position }
func (b *body) Orientation() mgl64.Quat     { return b.rb.Transform.Rotation }
func (b *body) LinearVelocity() mgl64.Vec3  { return b.rb.Velocity }
func (b *body) AngularVelocity() mgl64.Vec3 { return b.rb.AngularVelocity }

func (b *body) SetVelocities(linear, angular mgl64.Vec3) {
	b.rb.Velocity = linear
	b.rb.AngularVelocity = angular
}

func (b *body) ApplyCentralForce(force mgl64.Vec3) { b.rb.AddForce(force) }

func (b *body) Delete() {
	if b.deleted {
		return
	}
	if b.world != nil {
		b.world.RemoveBody(b)
	}
	b.deleted = true
	b.engine.stats.Bodies--
}

type joint struct {
	engine            *Engine
	joint             *constraint.Joint
	a, b              *body
	world             *World
	disableCollisions bool
	deleted           bool
}

func (j *joint) SetEnabled(enabled bool) {
	j.joint.Enabled = enabled
	if enabled {
		j.joint.Broken = false
	}
}

func (j *joint) Enabled() bool { return j.joint.Enabled }

func (j *joint) SetBreakingThreshold(threshold float64) { j.joint.BreakingThreshold = threshold }
func (j *joint) SetSolverIterations(iterations int)     { j.joint.Iterations = iterations }

func (j *joint) SetLimits(axis engine.Axis, lower, upper float64) {
	j.joint.Limits[axis] = constraint.Limit{Lower: lower, Upper: upper}
}

func (j *joint) SetSpring(axis engine.Axis, enabled bool, stiffness, damping float64) {
	spring := &j.joint.Springs[axis]
	spring.Enabled = enabled
	spring.Stiffness = stiffness
	spring.Damping = damping
}

func (j *joint) SetEquilibrium() { j.joint.SetEquilibrium() }

func (j *joint) SetMotor(linear, angular bool) {
	j.joint.LinearMotor.Enabled = linear
	j.joint.AngularMotor.Enabled = angular
}

func (j *joint) SetMotorMaxImpulse(linear, angular float64) {
	j.joint.LinearMotor.MaxImpulse = linear
	j.joint.AngularMotor.MaxImpulse = angular
}

func (j *joint) SetMotorTargetVelocity(linear, angular float64) {
	j.joint.LinearMotor.TargetVelocity = linear
	j.joint.AngularMotor.TargetVelocity = angular
}

// iterations resolves the override against the world default
func (j *joint) iterations(worldIterations int) int {
	if j.joint.Iterations > 0 {
		return j.joint.Iterations
	}
	return worldIterations
}

func (j *joint) Delete() {
	if j.deleted {
		return
	}
	if j.world != nil {
		j.world.RemoveConstraint(j)
	}
	j.deleted = true
	j.engine.stats.Constraints--
}
