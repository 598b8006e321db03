package dynamics

import (
	"math"

	"github.com/akmonengine/fracture/actor"
	"github.com/akmonengine/fracture/engine"
	"github.com/go-gl/mathgl/mgl64"
)

type World struct {
	engine *Engine
	// List of all bodies in the world
	bodies []*body
	joints []*joint
	// Gravity acceleration (m/s², or N/kg)
	Gravity      mgl64.Vec3
	Iterations   int
	SplitImpulse bool
	SpatialGrid  *SpatialGrid
	Workers      int

	filter engine.FilterFunc
	// pairs of bodies joined by a constraint disabling their collisions
	excluded map[pairKey]int
	// time left over from the previous Step, below one fixed sub-step
	localTime float64
	// pairs accepted by the filter during the last sub-step
	pairs   [][2]*body
	deleted bool

	Events Events
}

func (w *World) SetGravity(gravity mgl64.Vec3) { w.Gravity = gravity }

func (w *World) SetSolverIterations(iterations int) {
	w.Iterations = max(1, iterations)
}

func (w *World) SetSplitImpulse(enabled bool) { w.SplitImpulse = enabled }

// AddBody adds a body to the world, a body lives in one world at most
func (w *World) AddBody(handle engine.Body, groups uint32) {
	b := handle.(*body)
	if b.deleted || b.world == w {
		return
	}
	if b.world != nil {
		b.world.RemoveBody(b)
	}

	b.world = w
	b.groups = groups
	b.rb.Shape.ComputeAABB(b.rb.Transform)
	w.bodies = append(w.bodies, b)
}

// RemoveBody removes a body from the world
func (w *World) RemoveBody(handle engine.Body) {
	b := handle.(*body)
	if b.world != w {
		return
	}

	k := -1
	for i, other := range w.bodies {
		if other == b {
			k = i
			break
		}
	}

	if k != -1 {
		w.bodies = append(w.bodies[:k], w.bodies[k+1:]...)
	}
	b.world = nil

	w.Events.forget(b)
}

func (w *World) AddConstraint(handle engine.Constraint, disableCollisions bool) {
	j := handle.(*joint)
	if j.deleted || j.world == w {
		return
	}
	if j.world != nil {
		j.world.RemoveConstraint(j)
	}

	j.world = w
	j.disableCollisions = disableCollisions
	w.joints = append(w.joints, j)
	if disableCollisions {
		w.excluded[makePairKey(j.a, j.b)]++
	}
}

func (w *World) RemoveConstraint(handle engine.Constraint) {
	j := handle.(*joint)
	if j.world != w {
		return
	}

	for i, other := range w.joints {
		if other == j {
			w.joints = append(w.joints[:i], w.joints[i+1:]...)
			break
		}
	}
	j.world = nil

	if j.disableCollisions {
		key := makePairKey(j.a, j.b)
		if w.excluded[key]--; w.excluded[key] <= 0 {
			delete(w.excluded, key)
		}
	}
}

// Bodies returns the number of bodies in the world
func (w *World) Bodies() int {
	return len(w.bodies)
}

// Constraints returns the number of constraints in the world
func (w *World) Constraints() int {
	return len(w.joints)
}

// Pairs returns the pairs accepted by the filter during the last sub-step
func (w *World) Pairs() [][2]engine.Body {
	pairs := make([][2]engine.Body, 0, len(w.pairs))
	for _, pair := range w.pairs {
		pairs = append(pairs, [2]engine.Body{pair[0], pair[1]})
	}
	return pairs
}

// Step advances the world by timestep in fixed sub-steps. The remainder
// below one sub-step is carried to the next call.
func (w *World) Step(timestep float64, maxSubsteps int, fixedStep float64) {
	if w.deleted || fixedStep <= 0 || timestep < 0 {
		return
	}
	w.Workers = max(DEFAULT_WORKERS, w.Workers)

	w.localTime += timestep
	substeps := int(math.Floor(w.localTime/fixedStep + 1e-9))
	w.localTime = math.Max(0, w.localTime-float64(substeps)*fixedStep)
	if maxSubsteps > 0 && substeps > maxSubsteps {
		substeps = maxSubsteps
	}

	for range substeps {
		w.substep(fixedStep)
	}

	w.Events.processSleepEvents(w.bodies)
	w.Events.flush()
}

func (w *World) substep(h float64) {
	rigidBodies := make([]*actor.RigidBody, len(w.bodies))
	for i, b := range w.bodies {
		rigidBodies[i] = b.rb
	}

	// Phase 1: Integration
	w.integrate(h, rigidBodies)

	// Phase 2: Broad phase, every candidate pair goes through the filter
	w.detectPairs(rigidBodies)

	// Phase 3: Solver
	w.solvePosition(h)

	// Phase 4: Update Position & Velocity
	w.update(h, rigidBodies)

	// Phase 5: Velocity, motors and spring damping
	w.solveVelocity(h)

	w.checkBreaks()
	w.trySleep(h, rigidBodies)
}

func (w *World) integrate(h float64, bodies []*actor.RigidBody) {
	task(w.Workers, bodies, func(body *actor.RigidBody) {
		body.Integrate(h, w.Gravity)
	})
}

// detectPairs runs on the stepping goroutine, the filter may mutate state
// owned by the caller
func (w *World) detectPairs(bodies []*actor.RigidBody) {
	w.SpatialGrid.Clear()
	for i, body := range bodies {
		w.SpatialGrid.Insert(i, body)
	}
	w.SpatialGrid.SortCells()

	w.pairs = w.pairs[:0]
	for _, pair := range w.SpatialGrid.FindPairs(bodies) {
		bodyA, bodyB := w.bodies[pair.A], w.bodies[pair.B]
		if w.excluded[makePairKey(bodyA, bodyB)] > 0 {
			continue
		}
		if w.filter != nil && !w.filter(bodyA, bodyB) {
			continue
		}

		w.pairs = append(w.pairs, [2]*body{bodyA, bodyB})
		w.Events.recordPair(bodyA, bodyB)
	}
}

func (w *World) solvePosition(h float64) {
	iterations := 0
	for _, j := range w.joints {
		j.joint.BeginStep()
		iterations = max(iterations, j.iterations(w.Iterations))
	}

	// Joints share bodies, they are solved sequentially
	for i := 0; i < iterations; i++ {
		for _, j := range w.joints {
			if i < j.iterations(w.Iterations) {
				j.joint.SolvePosition(h)
			}
		}
	}
}

func (w *World) update(h float64, bodies []*actor.RigidBody) {
	task(w.Workers, bodies, func(body *actor.RigidBody) {
		body.Update(h)
	})
}

func (w *World) solveVelocity(h float64) {
	for _, j := range w.joints {
		j.joint.SolveVelocity(h)
	}
}

func (w *World) checkBreaks() {
	for _, j := range w.joints {
		if j.joint.CheckBreak() {
			w.Events.emitBroken(j)
		}
	}
}

// trySleep sets the body to sleep if its velocity is lower than the threshold, for a given duration
// this method is too simple to use a task, it slows down in multiple goroutines
func (w *World) trySleep(h float64, bodies []*actor.RigidBody) {
	for _, body := range bodies {
		body.TrySleep(h, actor.DeactivationTime)
	}
}

// Delete detaches every handle, the handles themselves stay owned by their creator
func (w *World) Delete() {
	if w.deleted {
		return
	}
	for _, b := range w.bodies {
		b.world = nil
	}
	for _, j := range w.joints {
		j.world = nil
	}
	w.bodies = nil
	w.joints = nil
	w.deleted = true
	w.engine.stats.Worlds--
}
