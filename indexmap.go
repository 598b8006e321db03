package fracture

import "github.com/akmonengine/fracture/engine"

// indexMap resolves live engine bodies to the shard or object owning them.
// One slot per shard of a fractured object, one slot per other object. It is
// rebuilt wholesale, never patched: any handle allocation, any deletion or
// any cardinality change invalidates all of it.
type indexMap struct {
	valid bool

	// live body handle -> slot
	slots map[engine.Body]int
	// slot -> settings
	bodies []*RigidBody
	// slot -> index of the owner in objects
	owners []int
	// slot -> shard, nil for whole objects
	shards  []*Shard
	objects []*Object
}

func (m *indexMap) invalidate() {
	m.valid = false
}

// countItems counts the objects simulated as a whole and the shards of the
// fractured objects.
func countItems(objects []*Object) (wholes, shards int) {
	for _, ob := range objects {
		if ob.Fractured() {
			shards += len(ob.Fracture.Shards)
		} else {
			wholes++
		}
	}
	return wholes, shards
}

func (m *indexMap) rebuild(objects []*Object) {
	wholes, shards := countItems(objects)
	n := wholes + shards

	m.slots = make(map[engine.Body]int, n)
	m.bodies = make([]*RigidBody, 0, n)
	m.owners = make([]int, 0, n)
	m.shards = make([]*Shard, 0, n)
	m.objects = append(m.objects[:0], objects...)

	add := func(rb *RigidBody, owner int, shard *Shard) int {
		slot := len(m.bodies)
		m.bodies = append(m.bodies, rb)
		m.owners = append(m.owners, owner)
		m.shards = append(m.shards, shard)
		if rb != nil && rb.body != nil {
			m.slots[rb.body] = slot
		}
		return slot
	}

	for i, ob := range objects {
		if ob.Fractured() {
			for _, s := range ob.Fracture.Shards {
				s.LinearIndex = add(s.RigidBody, i, s)
			}
			ob.slot = -1
			continue
		}
		ob.slot = add(ob.RigidBody, i, nil)
	}

	m.valid = true
}

// ensure rebuilds the map when it was invalidated.
func (m *indexMap) ensure(objects []*Object) {
	if !m.valid {
		m.rebuild(objects)
	}
}

func (m *indexMap) len() int {
	return len(m.bodies)
}

// resolve returns the owner of a live body, and its shard when the owner is
// fractured.
func (m *indexMap) resolve(b engine.Body) (*Object, *Shard, bool) {
	slot, ok := m.slots[b]
	if !ok {
		return nil, nil, false
	}
	return m.objects[m.owners[slot]], m.shards[slot], true
}
