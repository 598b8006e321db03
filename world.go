package fracture

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/akmonengine/fracture/engine"
	"github.com/akmonengine/fracture/pointcache"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// World keeps a scene in sync with one live engine world. It is the explicit
// context of every entry point: one World per scene.
type World struct {
	Settings Settings
	// Muted suppresses the simulated transforms, a step in flight completes
	Muted bool

	scene  *Scene
	engine engine.Engine
	world  engine.World
	cache  *pointcache.Cache
	index  indexMap
	logger *slog.Logger

	// last simulated frame
	lastTime int
	// objectChanged is set when the scene moved an object interactively
	objectChanged bool
	// rebuildConstraints re-enables the shard constraints on the next update
	rebuildConstraints bool
	// body count recorded with the cache
	numBodies int
	state     State

	activations []activation
	pending     map[activation]bool
}

type Option func(*World)

func WithLogger(logger *slog.Logger) Option {
	return func(w *World) {
		w.logger = logger
	}
}

func WithSettings(settings Settings) Option {
	return func(w *World) {
		w.Settings = settings
	}
}

// WithStore persists the cache frames in store instead of memory.
func WithStore(store pointcache.Store) Option {
	return func(w *World) {
		w.cache = pointcache.New(pointcache.NewID(w.scene.Name), store, 0, 0, 1)
	}
}

// NewWorld binds scene to eng. The engine world itself is created on the
// first rebuild.
func NewWorld(scene *Scene, eng engine.Engine, options ...Option) (*World, error) {
	if scene == nil {
		return nil, ErrNoScene
	}
	if eng == nil {
		return nil, ErrNoEngine
	}

	w := &World{
		Settings: DefaultSettings(),
		scene:    scene,
		engine:   eng,
		logger:   slog.Default(),
		pending:  make(map[activation]bool),
	}
	for _, option := range options {
		option(w)
	}

	if err := w.Settings.Validate(); err != nil {
		if w.cache != nil {
			w.cache.Close()
		}
		return nil, fmt.Errorf("new world: %w", err)
	}

	if w.cache == nil {
		w.cache = pointcache.New(pointcache.NewID(scene.Name), pointcache.NewMemoryStore(), 0, 0, 1)
	}
	w.cache.StartFrame = w.Settings.StartFrame
	w.cache.EndFrame = w.Settings.EndFrame
	w.cache.Step = w.Settings.CacheStep
	w.lastTime = w.Settings.StartFrame
	w.rebuildConstraints = true

	return w, nil
}

func (w *World) Scene() *Scene {
	return w.scene
}

func (w *World) Cache() *pointcache.Cache {
	return w.cache
}

// Engine returns the live engine world, nil before the first rebuild.
func (w *World) Engine() engine.World {
	return w.world
}

// LastTime is the last frame simulated or read from the cache.
func (w *World) LastTime() int {
	return w.lastTime
}

// gravity is the scene gravity scaled by the effector weights.
func (w *World) gravity() mgl64.Vec3 {
	if !w.scene.UseGravity {
		return mgl64.Vec3{}
	}
	return w.scene.Gravity.Mul(w.Settings.EffectorWeights.Global * w.Settings.EffectorWeights.Gravity)
}

// validateWorld creates the engine world on rebuild or first use, then
// applies the solver settings.
func (w *World) validateWorld(rebuild bool) {
	if rebuild || w.world == nil {
		if w.world != nil {
			w.world.Delete()
		}
		w.world = w.engine.NewWorld(w.gravity(), w.filter)
		w.index.invalidate()
	}

	w.world.SetSolverIterations(w.Settings.SolverIterations)
	w.world.SetSplitImpulse(w.Settings.SplitImpulse)
}

// updateWorld pushes the gravity and rebuilds the index map.
func (w *World) updateWorld() {
	if w.world == nil {
		return
	}
	w.world.SetGravity(w.gravity())

	w.index.rebuild(w.scene.Objects)
	w.numBodies = w.index.len()
	w.logger.Debug("index map rebuilt", "slots", w.index.len())
}

// updateSimulation runs the pending work of every object, shard and
// constraint. rebuild recreates the world and every handle.
func (w *World) updateSimulation(rebuild bool) {
	if rebuild {
		w.validateWorld(true)
		w.updateWorld()
	}

	for _, ob := range w.scene.Objects {
		if ob.Fractured() {
			f := ob.Fracture
			for _, s := range f.Shards {
				w.breakByPercentage(f, s)
				w.validateShard(ob, s, rebuild)
				w.updateBody(ob, s.RigidBody, s.Geometry, s.Centroid)
			}

			maxMass := 0.0
			if f.Breaking.MassDependent {
				maxMass = maxConstraintMass(f)
			}
			for _, c := range f.Constraints {
				w.updateBreaking(f, c, maxMass, rebuild)
				w.syncShardConstraint(f, c, rebuild)
			}
			continue
		}

		if ob.RigidBody == nil {
			w.CreateObject(ob, Active)
			w.validateObject(ob, true)
		} else {
			w.validateObject(ob, rebuild)
		}
		w.updateBody(ob, ob.RigidBody, ob.Geometry, mgl64.Vec3{})
	}

	for _, cob := range w.scene.Constraints {
		w.syncObjectConstraint(cob, rebuild)
	}

	if rebuild {
		w.logger.Info("world rebuilt", "bodies", w.index.len())
	}
}

// CreateObject gives ob rigid body settings seeded with the defaults, at the
// object transform. Existing settings are returned untouched.
func (w *World) CreateObject(ob *Object, bodyType BodyType) *RigidBody {
	if ob == nil {
		return nil
	}
	if ob.RigidBody != nil {
		return ob.RigidBody
	}

	rb := NewRigidBody(bodyType)
	rb.State = NeedsValidate
	rb.Position, rb.Orientation, _ = decompose(ob.Transform)
	ob.RigidBody = rb

	if w.scene.Object(ob.ID) == nil {
		w.scene.Add(ob)
	}
	w.index.invalidate()
	w.CacheReset()

	return rb
}

// CreateShard gives s a copy of the object settings, placed at the centroid
// of the shard. Grounded shards are passive.
func (w *World) CreateShard(ob *Object, s *Shard) *RigidBody {
	if ob == nil || s == nil {
		return nil
	}

	if ob.RigidBody == nil {
		w.CreateObject(ob, Active)
	} else {
		ob.RigidBody.State.Escalate(NeedsValidate)
	}

	rb := ob.RigidBody.copySettings()
	rb.Type = Active
	if s.GroundWeight > 0.5 {
		rb.Type = Passive
	}

	loc, rot, scale := decompose(ob.Transform)
	rb.Position = shardPosition(loc, rot, scale, s.Centroid)
	rb.Orientation = rot
	s.RigidBody = rb

	if ob.Fracture != nil && ob.Fracture.Shard(s.ID) == nil {
		ob.Fracture.Shards = append(ob.Fracture.Shards, s)
	}
	w.calcShardMass(ob, s)

	w.index.invalidate()
	w.cache.MarkOutdated()

	return rb
}

// ConnectShards joins the shards a and b of ob through c. The constraint is
// built on the next step.
func (w *World) ConnectShards(ob *Object, c *Constraint, a, b *Shard) {
	if ob == nil || ob.Fracture == nil || c == nil || a == nil || b == nil {
		return
	}
	ob.Fracture.Connect(c, a, b)
	c.State = NeedsRebuild
	w.cache.MarkOutdated()
}

// CreateConstraint joins ob1 and ob2 through cob, a member of the constraint
// group.
func (w *World) CreateConstraint(cob *Object, kind engine.ConstraintType, ob1, ob2 *Object) *Constraint {
	if cob == nil {
		return nil
	}
	if cob.Constraint != nil {
		w.teardown(cob.Constraint)
	}

	c := NewObjectConstraint(kind, ob1, ob2)
	c.State = NeedsRebuild
	cob.Constraint = c
	if !slices.Contains(w.scene.Constraints, cob) {
		w.scene.AddConstraint(cob)
	}
	w.CacheReset()

	return c
}

// detach tears down a shard constraint and forgets it.
func (w *World) detach(f *Fracture, c *Constraint) {
	w.teardown(c)
	f.Constraints = slices.DeleteFunc(f.Constraints, func(other *Constraint) bool { return other == c })
	for _, id := range [2]uuid.UUID{c.Endpoint1, c.Endpoint2} {
		if s := f.Shard(id); s != nil {
			s.constraints = slices.DeleteFunc(s.constraints, func(other *Constraint) bool { return other == c })
		}
	}
}

// RemoveShard takes s out of the simulation along with the constraints it
// takes part in.
func (w *World) RemoveShard(ob *Object, s *Shard) {
	if ob == nil || ob.Fracture == nil || s == nil {
		return
	}
	f := ob.Fracture

	for _, c := range slices.Clone(s.constraints) {
		w.detach(f, c)
	}
	if s.RigidBody != nil {
		s.RigidBody.free()
		s.RigidBody = nil
	}
	f.Shards = slices.DeleteFunc(f.Shards, func(other *Shard) bool { return other == s })
	s.LinearIndex = -1

	w.index.invalidate()
	w.cache.MarkOutdated()
}

// RemoveObject takes ob out of the simulation group and frees its handles.
// Object constraints keep their settings but lose the endpoint.
func (w *World) RemoveObject(ob *Object) {
	if ob == nil {
		return
	}

	if ob.Fracture != nil {
		f := ob.Fracture
		for _, c := range slices.Clone(f.Constraints) {
			w.detach(f, c)
		}
		for _, s := range f.Shards {
			if s.RigidBody != nil {
				s.RigidBody.free()
				s.RigidBody = nil
			}
		}
	}

	if rb := ob.RigidBody; rb != nil {
		for _, cob := range w.scene.Constraints {
			c := cob.Constraint
			if c == nil {
				continue
			}
			if c.Endpoint1 == ob.ID {
				c.Endpoint1 = uuid.Nil
				c.State.Escalate(NeedsValidate)
			}
			if c.Endpoint2 == ob.ID {
				c.Endpoint2 = uuid.Nil
				c.State.Escalate(NeedsValidate)
			}
			// the handle must not outlive the body it was built on
			if c.handle != nil && (c.bodyA == rb.body || c.bodyB == rb.body) {
				w.teardown(c)
			}
		}
		rb.free()
		ob.RigidBody = nil
	}

	w.scene.Objects = slices.DeleteFunc(w.scene.Objects, func(other *Object) bool { return other == ob })
	ob.slot = -1
	w.index.invalidate()
	w.CacheReset()
}

// RemoveConstraint takes cob out of the constraint group.
func (w *World) RemoveConstraint(cob *Object) {
	if cob == nil {
		return
	}
	if cob.Constraint != nil {
		w.teardown(cob.Constraint)
		cob.Constraint = nil
	}
	w.scene.Constraints = slices.DeleteFunc(w.scene.Constraints, func(other *Object) bool { return other == cob })
	w.CacheReset()
}

// Close frees every handle and the engine world, then closes the cache.
func (w *World) Close() error {
	for _, cob := range w.scene.Constraints {
		if cob.Constraint != nil {
			w.teardown(cob.Constraint)
		}
	}
	for _, ob := range w.scene.Objects {
		if ob.Fracture != nil {
			for _, c := range ob.Fracture.Constraints {
				w.teardown(c)
			}
			for _, s := range ob.Fracture.Shards {
				if s.RigidBody != nil {
					s.RigidBody.free()
				}
			}
		}
		if ob.RigidBody != nil {
			ob.RigidBody.free()
		}
	}

	if w.world != nil {
		w.world.Delete()
		w.world = nil
	}
	w.index.invalidate()
	w.state = NoWorld

	if err := w.cache.Close(); err != nil {
		return fmt.Errorf("close cache: %w", err)
	}
	return nil
}

// CacheReset marks the cache outdated. Shards of kinematic objects become
// kinematic again.
func (w *World) CacheReset() {
	if w == nil {
		return
	}
	w.cache.MarkOutdated()
	w.restoreKinematic()
}

// resetStore drops the stored frames, a store failure only loses the frames.
func (w *World) resetStore(ctx context.Context) {
	if err := w.cache.Reset(ctx); err != nil {
		w.logger.Warn("cache reset failed", "error", err)
	}
}
