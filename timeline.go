package fracture

import (
	"context"
	"math"

	"github.com/akmonengine/fracture/pointcache"
	"github.com/go-gl/mathgl/mgl64"
)

// State is what the last frame request did.
type State int

const (
	NoWorld State = iota
	Rebuilding
	Stepping
	ReadingCache
	Muted
)

func (s State) String() string {
	switch s {
	case NoWorld:
		return "no-world"
	case Rebuilding:
		return "rebuilding"
	case Stepping:
		return "stepping"
	case ReadingCache:
		return "reading-cache"
	case Muted:
		return "muted"
	}
	return "unknown"
}

const defaultFPS = 24.0

func (w *World) State() State {
	return w.state
}

// RebuildWorld marks the cache outdated when the scene no longer matches it,
// and rebuilds everything when the simulation restarts from its first frame.
func (w *World) RebuildWorld(ctx context.Context, ctime int) {
	if w == nil || w.scene == nil {
		return
	}
	start := w.Settings.StartFrame

	wholes, shards := countItems(w.scene.Objects)
	if w.world == nil || w.numBodies != wholes+shards {
		w.cache.MarkOutdated()
	}

	if ctime == start+1 && w.lastTime == start && w.cache.Outdated() && !w.cache.Baked() {
		w.state = Rebuilding
		w.resetStore(ctx)
		w.restoreKinematic()
		w.updateSimulation(true)
		w.cache.Validate(start)
	}
}

// Step advances the simulation to ctime. The engine steps one frame at most:
// other frames are read from the cache or wait for a rebuild.
func (w *World) Step(ctx context.Context, ctime int) {
	if w == nil || w.scene == nil {
		return
	}
	if w.Muted {
		w.state = Muted
		return
	}
	start := w.Settings.StartFrame

	if ctime <= start {
		w.rebuildConstraints = true
		w.lastTime = start
		if w.objectChanged {
			w.objectChanged = false
			w.state = Rebuilding
			w.updateSimulation(true)
		}
		return
	}
	ctime = min(ctime, w.Settings.EndFrame)

	if w.world == nil && !w.cache.Baked() {
		w.state = NoWorld
		return
	}
	w.index.ensure(w.scene.Objects)

	snap, ok, err := w.cache.Read(ctx, ctime)
	if err != nil {
		w.logger.Warn("cache read failed", "frame", ctime, "error", err)
	}
	if ok && w.applySnapshot(snap) {
		w.cache.Validate(ctime)
		w.lastTime = ctime
		w.state = ReadingCache
		w.logger.Debug("cache hit", "frame", ctime)
		return
	}
	w.logger.Debug("cache miss", "frame", ctime)

	if w.lastTime == start {
		w.state = Rebuilding
		w.restoreKinematic()
		w.updateSimulation(true)
	}

	if ctime != w.lastTime+1 || w.cache.Baked() {
		return
	}
	w.state = Stepping

	// the start frame is stored before the first step moves anything
	if w.lastTime == start && (w.cache.Outdated() || w.cache.LastExact() == 0) {
		w.writeFrame(ctx, start)
	}
	if w.lastTime > start {
		w.rebuildConstraints = false
	}

	w.updateSimulation(false)
	w.index.ensure(w.scene.Objects)

	fps := w.scene.FPS
	if fps <= 0 {
		fps = defaultFPS
	}
	timestep := 1 / fps * float64(ctime-w.lastTime) * w.Settings.TimeScale
	fixedStep := 1 / float64(w.Settings.StepsPerSecond) * math.Min(w.Settings.TimeScale, 1)
	w.world.Step(timestep, 0, fixedStep)

	w.postStep()

	w.cache.Validate(ctime)
	w.writeFrame(ctx, ctime)
	w.lastTime = ctime
}

// postStep restores the bodies of the objects being moved, puts the passive
// bodies back to sleep and applies the impacts recorded by the filter.
func (w *World) postStep() {
	for _, ob := range w.scene.Objects {
		transforming := w.scene.transforming(ob)

		for _, rb := range ob.rigidBodies() {
			if rb.body == nil {
				continue
			}
			if transforming {
				rb.body.SetKinematic(rb.Kinematic || rb.Disabled)
				rb.body.SetMass(rb.EffectiveMass())
			}
			if rb.Type == Passive {
				rb.body.Deactivate()
			}
		}
	}

	w.applyActivations()
}

// rigidBodies lists the settings simulated for ob.
func (ob *Object) rigidBodies() []*RigidBody {
	if !ob.Fractured() {
		if ob.RigidBody == nil {
			return nil
		}
		return []*RigidBody{ob.RigidBody}
	}

	bodies := make([]*RigidBody, 0, len(ob.Fracture.Shards))
	for _, s := range ob.Fracture.Shards {
		if s.RigidBody != nil {
			bodies = append(bodies, s.RigidBody)
		}
	}
	return bodies
}

// restoreKinematic turns the shards of kinematic objects kinematic again,
// undoing the impacts of a previous run.
func (w *World) restoreKinematic() {
	for _, ob := range w.scene.Objects {
		if ob.Fracture == nil || ob.RigidBody == nil || !ob.RigidBody.Kinematic {
			continue
		}
		for _, s := range ob.Fracture.Shards {
			rb := s.RigidBody
			if rb == nil || rb.Kinematic {
				continue
			}
			rb.Kinematic = true
			rb.State.Escalate(NeedsRebuild)
		}
	}
}

// capture copies the transforms of the live active bodies into their
// settings and a snapshot of frame.
func (w *World) capture(frame int) pointcache.Snapshot {
	snap := pointcache.Snapshot{
		Frame:  frame,
		Bodies: make([]pointcache.BodyState, w.index.len()),
	}

	for slot, rb := range w.index.bodies {
		if rb == nil || rb.body == nil || rb.Type != Active {
			continue
		}
		rb.Position = rb.body.Position()
		rb.Orientation = rb.body.Orientation()

		q := rb.Orientation
		snap.Bodies[slot] = pointcache.BodyState{
			Active:      true,
			Position:    [3]float64(rb.Position),
			Orientation: [4]float64{q.W, q.V.X(), q.V.Y(), q.V.Z()},
		}
	}
	return snap
}

// applySnapshot copies the cached transforms into the settings. A snapshot
// recorded with another body count is a miss.
func (w *World) applySnapshot(snap pointcache.Snapshot) bool {
	if len(snap.Bodies) != w.index.len() {
		return false
	}

	for slot, state := range snap.Bodies {
		rb := w.index.bodies[slot]
		if rb == nil || !state.Active {
			continue
		}
		rb.Position = mgl64.Vec3(state.Position)
		o := state.Orientation
		rb.Orientation = mgl64.Quat{W: o[0], V: mgl64.Vec3{o[1], o[2], o[3]}}
	}
	return true
}

// writeFrame stores the state of frame. A store failure only loses the
// frame, it is simulated again on the next request.
func (w *World) writeFrame(ctx context.Context, frame int) {
	snap := w.capture(frame)
	if err := w.cache.Write(ctx, snap); err != nil {
		w.logger.Warn("cache write failed", "frame", frame, "error", err)
	}
}
