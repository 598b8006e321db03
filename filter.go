package fracture

import "github.com/akmonengine/fracture/engine"

// collision groups use the 20 low bits
const groupMask = 1<<20 - 1

// colgroupCheck reports whether two collision group masks share a group.
func colgroupCheck(group1, group2 uint32) bool {
	return group1&group2&groupMask != 0
}

// activation is an impact recorded by the filter, applied after the step.
type activation struct {
	owner *Object
	// shard hit, nil when the owner is simulated as a whole
	shard *Shard
}

// filter is called by the engine for every candidate pair, synchronously
// during the step. It only records impacts, the settings and the world are
// changed after the step by applyActivations.
func (w *World) filter(a, b engine.Body) bool {
	w.index.ensure(w.scene.Objects)

	ob1, mi1, ok1 := w.index.resolve(a)
	ob2, mi2, ok2 := w.index.resolve(b)
	if !ok1 || !ok2 || ob1.RigidBody == nil || ob2.RigidBody == nil {
		return true
	}
	rbo1, rbo2 := ob1.RigidBody, ob2.RigidBody
	groups := colgroupCheck(rbo1.CollisionGroups, rbo2.CollisionGroups)

	kinematic1, kinematic2 := rbo1.Kinematic, rbo2.Kinematic
	if mi1 != nil {
		kinematic1 = mi1.RigidBody.Kinematic
	}
	if mi2 != nil {
		kinematic2 = mi2.RigidBody.Kinematic
	}

	// shards of the same object never wake each other
	sameObject := mi1 != nil && mi2 != nil && ob1 == ob2
	if !sameObject && groups && (kinematic1 || kinematic2) {
		w.recordImpact(ob1, mi1, ob2)
		w.recordImpact(ob2, mi2, ob1)
	}

	return groups
}

// recordImpact queues the activation of owner hit by other.
func (w *World) recordImpact(owner *Object, hit *Shard, other *Object) {
	if !owner.RigidBody.KinematicDeactivation {
		return
	}

	if owner.Fracture != nil {
		if !other.RigidBody.KinematicDeactivation && owner.Fracture.UseConstraints {
			return
		}
		if hit == nil {
			return
		}
	} else {
		hit = nil
	}

	act := activation{owner: owner, shard: hit}
	if w.pending[act] {
		return
	}
	w.pending[act] = true
	w.activations = append(w.activations, act)
}

// applyActivations turns the recorded shards dynamic, along with every shard
// of their fracture island. The constraints of a woken fracture leave the
// world and are rebuilt on the next update.
func (w *World) applyActivations() {
	for _, act := range w.activations {
		if act.shard == nil {
			rb := act.owner.RigidBody
			if rb.Kinematic {
				rb.Kinematic = false
				rb.State.Escalate(NeedsRebuild)
			}
			continue
		}

		f := act.owner.Fracture
		woken := 0
		for _, s := range f.islandOf(act.shard) {
			if rb := s.RigidBody; rb != nil && rb.Kinematic {
				rb.Kinematic = false
				rb.State.Escalate(NeedsRebuild)
				woken++
			}
		}
		if woken == 0 {
			continue
		}

		for _, c := range f.Constraints {
			if c.handle != nil && w.world != nil {
				w.world.RemoveConstraint(c.handle)
			}
			c.State.Escalate(NeedsValidate)
			c.KinematicDeactivation = true
		}
		w.logger.Debug("fracture island activated", "object", act.owner.Name, "shards", woken)
	}

	w.activations = w.activations[:0]
	clear(w.pending)
}
