package fracture

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Geometry is the mesh data of an object or a shard.
type Geometry interface {
	Vertices() []mgl64.Vec3
	// Faces lists the vertex indices of every polygon
	Faces() [][]int
	// Bounds is the local axis aligned bound, ok is false without vertices
	Bounds() (min, max mgl64.Vec3, ok bool)
}

// Mesh is a plain Geometry.
type Mesh struct {
	Verts []mgl64.Vec3
	Polys [][]int
}

func (m *Mesh) Vertices() []mgl64.Vec3 { return m.Verts }
func (m *Mesh) Faces() [][]int         { return m.Polys }

func (m *Mesh) Bounds() (mgl64.Vec3, mgl64.Vec3, bool) {
	if len(m.Verts) == 0 {
		return mgl64.Vec3{}, mgl64.Vec3{}, false
	}
	min, max := m.Verts[0], m.Verts[0]
	for _, v := range m.Verts[1:] {
		for i := 0; i < 3; i++ {
			min[i] = math.Min(min[i], v[i])
			max[i] = math.Max(max[i], v[i])
		}
	}
	return min, max, true
}

// NewBoxMesh builds a closed box of the given half extents centered on center.
func NewBoxMesh(center, halfExtents mgl64.Vec3) *Mesh {
	h := halfExtents
	verts := make([]mgl64.Vec3, 0, 8)
	for _, z := range []float64{-h.Z(), h.Z()} {
		for _, y := range []float64{-h.Y(), h.Y()} {
			for _, x := range []float64{-h.X(), h.X()} {
				verts = append(verts, center.Add(mgl64.Vec3{x, y, z}))
			}
		}
	}

	return &Mesh{
		Verts: verts,
		Polys: [][]int{
			{0, 2, 3, 1}, {4, 5, 7, 6},
			{0, 1, 5, 4}, {2, 6, 7, 3},
			{0, 4, 6, 2}, {1, 3, 7, 5},
		},
	}
}

// Effector samples a force field.
type Effector interface {
	Force(position, velocity mgl64.Vec3) mgl64.Vec3
}

// EffectorFunc adapts a function to Effector.
type EffectorFunc func(position, velocity mgl64.Vec3) mgl64.Vec3

func (f EffectorFunc) Force(position, velocity mgl64.Vec3) mgl64.Vec3 {
	return f(position, velocity)
}

// MaxForce bounds every force field component.
const MaxForce = 10000.0

// Wind pushes every body along Direction, proportionally to Strength.
type Wind struct {
	Direction mgl64.Vec3
	Strength  float64
}

func (w Wind) Force(position, velocity mgl64.Vec3) mgl64.Vec3 {
	if w.Direction.Len() == 0 {
		return mgl64.Vec3{}
	}
	f := w.Direction.Normalize().Mul(w.Strength)
	for i := range f {
		f[i] = math.Max(-MaxForce, math.Min(MaxForce, f[i]))
	}
	return f
}

// LockFlags protect object transform channels from edits. A locked channel
// is also locked in the simulation.
type LockFlags uint8

const (
	LockLocX LockFlags = 1 << iota
	LockLocY
	LockLocZ
	LockRotX
	LockRotY
	LockRotZ
)

// Object is a scene object taking part in the simulation.
type Object struct {
	ID        uuid.UUID
	Name      string
	Transform mgl64.Mat4
	Locks     LockFlags
	Selected  bool
	// IsEffector objects emit force fields and never receive them
	IsEffector bool
	Geometry   Geometry

	RigidBody *RigidBody
	Fracture  *Fracture
	// Constraint is set on members of the constraint group
	Constraint *Constraint

	// slot in the index map when the object is not fractured
	slot int
}

func NewObject(name string, transform mgl64.Mat4, geometry Geometry) *Object {
	return &Object{
		ID:        uuid.Must(uuid.NewV7()),
		Name:      name,
		Transform: transform,
		Geometry:  geometry,
		slot:      -1,
	}
}

// Fractured reports whether the object simulates through its shards.
func (ob *Object) Fractured() bool {
	return ob.Fracture != nil && ob.Fracture.Active && !ob.Fracture.Refresh
}

// Scene is the simulation group, the constraint group and the world settings
// an owning scene provides.
type Scene struct {
	Name        string
	Objects     []*Object
	Constraints []*Object
	Gravity     mgl64.Vec3
	UseGravity  bool
	// FPS is the display frame rate
	FPS       float64
	Effectors []Effector
	// Transforming is set while the selected objects are moved interactively
	Transforming bool
}

func NewScene(name string) *Scene {
	return &Scene{
		Name:       name,
		Gravity:    mgl64.Vec3{0, 0, -9.81},
		UseGravity: true,
		FPS:        24,
	}
}

// Object finds an object of the simulation group by id.
func (s *Scene) Object(id uuid.UUID) *Object {
	for _, ob := range s.Objects {
		if ob.ID == id {
			return ob
		}
	}
	return nil
}

// Add appends objects to the simulation group.
func (s *Scene) Add(objects ...*Object) {
	s.Objects = append(s.Objects, objects...)
}

// AddConstraint appends a constraint object to the constraint group.
func (s *Scene) AddConstraint(ob *Object) {
	s.Constraints = append(s.Constraints, ob)
}

// transforming reports whether ob is being moved interactively.
func (s *Scene) transforming(ob *Object) bool {
	return ob.Selected && s.Transforming
}

// FrameTransform is one entry of a shard history.
type FrameTransform struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

// Shard is a rigid fragment of a fractured object.
type Shard struct {
	ID        uuid.UUID
	RigidBody *RigidBody
	Geometry  Geometry
	Centroid  mgl64.Vec3
	// ThresholdWeight scales the weighted breaking thresholds
	ThresholdWeight float64
	// GroundWeight > 0.5 makes the shard passive
	GroundWeight float64
	StartFrame   int
	// LinearIndex is the slot of the shard in the index map
	LinearIndex int

	history     []FrameTransform
	constraints []*Constraint
}

func NewShard(geometry Geometry, centroid mgl64.Vec3) *Shard {
	return &Shard{
		ID:              uuid.Must(uuid.NewV7()),
		Geometry:        geometry,
		Centroid:        centroid,
		ThresholdWeight: 1,
		StartFrame:      1,
		LinearIndex:     -1,
	}
}

// RecordFrame appends the transform of frame to the history. Frames already
// recorded are kept, frames missing since the last record repeat this one.
func (s *Shard) RecordFrame(frame int, position mgl64.Vec3, orientation mgl64.Quat) {
	n := frame - s.StartFrame + 1
	if n <= len(s.history) || n <= 0 {
		return
	}
	ft := FrameTransform{Position: position, Orientation: orientation}
	for len(s.history) < n {
		s.history = append(s.history, ft)
	}
}

// TransformAt returns the recorded transform of frame.
func (s *Shard) TransformAt(frame int) (FrameTransform, bool) {
	i := frame - s.StartFrame
	if i < 0 || i >= len(s.history) {
		return FrameTransform{}, false
	}
	return s.history[i], true
}

// Constraints lists the constraints the shard takes part in.
func (s *Shard) Constraints() []*Constraint {
	return s.constraints
}

// BreakingSettings drive the breaking rules of a fractured object.
type BreakingSettings struct {
	// Threshold is the flat breaking threshold, or the island maximum when
	// MassDependent is set
	Threshold     float64
	MassDependent bool

	Percentage         float64
	PercentageWeighted bool
	Angle              float64
	AngleWeighted      bool
	Distance           float64
	DistanceWeighted   bool

	// SolverIterations overrides the constraint iterations when > 0
	SolverIterations int
}

// Fracture holds the shards and shard constraints of a fractured object.
type Fracture struct {
	Active  bool
	Refresh bool
	Shards  []*Shard
	// Constraints join shards of this fracture
	Constraints    []*Constraint
	UseConstraints bool
	Breaking       BreakingSettings

	// OrigTransform is the object transform before the simulation moved it
	OrigTransform mgl64.Mat4
}

func NewFracture() *Fracture {
	return &Fracture{
		Active:         true,
		UseConstraints: true,
		Breaking:       BreakingSettings{Threshold: 10},
	}
}

// Shard finds a shard by id.
func (f *Fracture) Shard(id uuid.UUID) *Shard {
	for _, s := range f.Shards {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Connect adds a shard constraint between a and b, breaking at the fracture
// threshold.
func (f *Fracture) Connect(c *Constraint, a, b *Shard) {
	c.Scope = ShardScope
	c.Endpoint1, c.Endpoint2 = a.ID, b.ID
	c.BreakingThreshold = f.Breaking.Threshold
	f.Constraints = append(f.Constraints, c)
	a.constraints = append(a.constraints, c)
	b.constraints = append(b.constraints, c)
}

// islandOf returns the shards reachable from start through enabled constraints.
func (f *Fracture) islandOf(start *Shard) []*Shard {
	visited := map[uuid.UUID]bool{start.ID: true}
	island := []*Shard{start}

	for i := 0; i < len(island); i++ {
		for _, c := range island[i].constraints {
			if !c.Enabled {
				continue
			}
			other := c.Endpoint1
			if other == island[i].ID {
				other = c.Endpoint2
			}
			if visited[other] {
				continue
			}
			if s := f.Shard(other); s != nil {
				visited[other] = true
				island = append(island, s)
			}
		}
	}
	return island
}
