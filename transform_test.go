package fracture

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVecInDelta(t *testing.T, want, got mgl64.Vec3) {
	t.Helper()
	assert.True(t, want.ApproxEqualThreshold(got, 1e-9), "want %v, got %v", want, got)
}

func TestDecompose(t *testing.T) {
	tests := []struct {
		name  string
		loc   mgl64.Vec3
		rot   mgl64.Quat
		scale mgl64.Vec3
	}{
		{"identity", mgl64.Vec3{}, mgl64.QuatIdent(), mgl64.Vec3{1, 1, 1}},
		{"translated", mgl64.Vec3{1, -2, 3}, mgl64.QuatIdent(), mgl64.Vec3{1, 1, 1}},
		{"rotated and scaled", mgl64.Vec3{0, 0, 4}, mgl64.QuatRotate(math.Pi/3, mgl64.Vec3{0, 1, 0}), mgl64.Vec3{2, 3, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, rot, scale := decompose(compose(tt.loc, tt.rot, tt.scale))

			assertVecInDelta(t, tt.loc, loc)
			assertVecInDelta(t, tt.scale, scale)
			assert.True(t, tt.rot.OrientationEqualThreshold(rot, 1e-9), "want %v, got %v", tt.rot, rot)
		})
	}
}

func TestShardPosition(t *testing.T) {
	rot := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	got := shardPosition(mgl64.Vec3{1, 0, 0}, rot, mgl64.Vec3{2, 2, 2}, mgl64.Vec3{1, 0, 0})

	assertVecInDelta(t, mgl64.Vec3{1, 2, 0}, got)
}

func TestSyncTransforms_Whole(t *testing.T) {
	w, _ := newTestWorld(t)
	active := addBox(w, "active", mgl64.Vec3{0, 0, 10}, Active)
	passive := addBox(w, "ground", mgl64.Vec3{0, 0, -5}, Passive)
	passiveTransform := passive.Transform

	runFrames(w, 1, 3)

	loc, _, _ := decompose(active.Transform)
	assertVecInDelta(t, active.RigidBody.Position, loc)
	assert.Less(t, loc.Z(), 10.0)
	assert.Equal(t, passiveTransform, passive.Transform, "passive objects keep their transform")
}

func TestSyncTransforms_BeforeStart(t *testing.T) {
	w, _ := newTestWorld(t)
	ob := addBox(w, "box", mgl64.Vec3{}, Active)

	// out of the simulation the settings follow the object
	ob.Transform = mgl64.Translate3D(3, 0, 0)
	w.SyncTransforms(ob, 1)

	assertVecInDelta(t, mgl64.Vec3{3, 0, 0}, ob.RigidBody.Position)
	assert.False(t, w.objectChanged)
}

func TestSyncTransforms_Transforming(t *testing.T) {
	w, _ := newTestWorld(t)
	ob := addBox(w, "box", mgl64.Vec3{0, 0, 10}, Active)
	runFrames(w, 1, 3)

	w.Scene().Transforming = true
	ob.Selected = true
	ob.Transform = mgl64.Translate3D(5, 0, 0)
	w.SyncTransforms(ob, 3)

	assertVecInDelta(t, mgl64.Vec3{5, 0, 0}, ob.RigidBody.Position)
	assert.True(t, w.objectChanged)
}

func TestSyncTransforms_ShardHistory(t *testing.T) {
	w, _ := newTestWorld(t)
	ob := newFracturedObject(w, "wall", mgl64.Vec3{0, 0, 5}, 2)
	ob.RigidBody.Kinematic = true
	for _, s := range ob.Fracture.Shards {
		s.RigidBody.Kinematic = true
	}

	runFrames(w, 1, 3)

	s := ob.Fracture.Shards[1]
	for frame := 1; frame <= 3; frame++ {
		ft, ok := s.TransformAt(frame)
		require.True(t, ok, "frame %d", frame)
		assertVecInDelta(t, mgl64.Vec3{0.4, 0, 5}, ft.Position)
	}
	_, ok := s.TransformAt(4)
	assert.False(t, ok)
	assert.Equal(t, ob.Transform, ob.Fracture.OrigTransform)
}

func TestShard_RecordFrame(t *testing.T) {
	s := NewShard(nil, mgl64.Vec3{})
	s.StartFrame = 5

	s.RecordFrame(4, mgl64.Vec3{1, 0, 0}, mgl64.QuatIdent())
	s.RecordFrame(5, mgl64.Vec3{2, 0, 0}, mgl64.QuatIdent())
	s.RecordFrame(5, mgl64.Vec3{9, 0, 0}, mgl64.QuatIdent())
	s.RecordFrame(6, mgl64.Vec3{3, 0, 0}, mgl64.QuatIdent())

	ft, ok := s.TransformAt(5)
	require.True(t, ok)
	assert.Equal(t, 2.0, ft.Position.X(), "recorded frames are kept")
	ft, ok = s.TransformAt(6)
	require.True(t, ok)
	assert.Equal(t, 3.0, ft.Position.X())
	_, ok = s.TransformAt(4)
	assert.False(t, ok)
}

func TestAfterTransformCancel(t *testing.T) {
	w, _ := newTestWorld(t)
	ob := addBox(w, "box", mgl64.Vec3{}, Passive)
	runFrames(w, 1, 2)

	ob.Transform = mgl64.Translate3D(7, 0, 0)
	rot := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 0, 1})
	w.AfterTransformCancel(ob, mgl64.Vec3{1, 2, 3}, rot)

	loc, gotRot, _ := decompose(ob.Transform)
	assertVecInDelta(t, mgl64.Vec3{1, 2, 3}, loc)
	assert.True(t, rot.OrientationEqualThreshold(gotRot, 1e-9))

	body := ob.RigidBody.Body()
	assertVecInDelta(t, mgl64.Vec3{1, 2, 3}, body.Position())
	assert.True(t, body.IsKinematic(), "passive bodies are moved back kinematic")
	assertVecInDelta(t, mgl64.Vec3{1, 2, 3}, ob.RigidBody.Position)
}

func TestAfterTransformCancel_Shards(t *testing.T) {
	w, _ := newTestWorld(t)
	ob := newFracturedObject(w, "wall", mgl64.Vec3{}, 2)

	w.AfterTransformCancel(ob, mgl64.Vec3{0, 0, 1}, mgl64.QuatIdent())

	assert.Equal(t, ob.Transform, ob.Fracture.OrigTransform)
	assertVecInDelta(t, mgl64.Vec3{0, 0, 1}, ob.Fracture.Shards[0].RigidBody.Position)
	assertVecInDelta(t, mgl64.Vec3{0.4, 0, 1}, ob.Fracture.Shards[1].RigidBody.Position)
}
