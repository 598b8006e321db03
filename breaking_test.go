package fracture

import (
	"math"
	"testing"

	"github.com/akmonengine/fracture/engine"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newShardAt returns a shard with settings placed at position, out of any
// engine world.
func newShardAt(position mgl64.Vec3, mass float64) *Shard {
	s := NewShard(NewBoxMesh(mgl64.Vec3{}, mgl64.Vec3{0.5, 0.5, 0.5}), position)
	s.RigidBody = NewRigidBody(Active)
	s.RigidBody.Position = position
	s.RigidBody.Mass = mass
	return s
}

// newStar joins a center shard to n neighbors along X.
func newStar(n int) (*Fracture, *Shard) {
	f := NewFracture()
	center := newShardAt(mgl64.Vec3{}, 1)
	f.Shards = append(f.Shards, center)

	for i := range n {
		s := newShardAt(mgl64.Vec3{float64(i + 1), 0, 0}, 1)
		f.Shards = append(f.Shards, s)
		f.Connect(NewShardConstraint(engine.ConstraintFixed), center, s)
	}
	return f, center
}

func TestBreakByPercentage(t *testing.T) {
	tests := []struct {
		name       string
		percentage float64
		weighted   bool
		weight     float64
		disabled   int
		wantBroken bool
	}{
		{"disabled rule", 0, false, 1, 4, false},
		{"below the percentage", 60, false, 1, 2, false},
		{"at the percentage", 50, false, 1, 2, true},
		{"weighted down", 100, true, 0.5, 2, true},
		{"weighted up", 40, true, 2, 2, false},
		{"zero weight disables the rule", 50, true, 0, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := newTestWorld(t)
			f, center := newStar(4)
			f.Breaking.Percentage = tt.percentage
			f.Breaking.PercentageWeighted = tt.weighted
			center.ThresholdWeight = tt.weight
			for _, c := range f.Constraints[:tt.disabled] {
				c.Enabled = false
			}

			assert.Equal(t, tt.wantBroken, w.breakByPercentage(f, center))

			enabled := 0
			for _, c := range f.Constraints {
				if c.Enabled {
					enabled++
				}
			}
			if tt.wantBroken {
				assert.Zero(t, enabled)
			} else {
				assert.Equal(t, 4-tt.disabled, enabled)
			}
		})
	}
}

func TestBreakByPercentage_OnlyOnce(t *testing.T) {
	w, _ := newTestWorld(t)
	f, center := newStar(4)
	f.Breaking.Percentage = 50
	for _, c := range f.Constraints[:2] {
		c.Enabled = false
	}

	require.True(t, w.breakByPercentage(f, center))
	for _, c := range f.Constraints {
		c.State = Clean
	}

	// every constraint is already off, later frames leave them alone
	assert.False(t, w.breakByPercentage(f, center))
	for _, c := range f.Constraints {
		assert.Equal(t, Clean, c.State)
		assert.False(t, c.Enabled)
	}
}

func TestBreakByPercentage_WithoutConstraints(t *testing.T) {
	w, _ := newTestWorld(t)
	f := NewFracture()
	s := newShardAt(mgl64.Vec3{}, 1)
	f.Shards = append(f.Shards, s)
	f.Breaking.Percentage = 10

	assert.False(t, w.breakByPercentage(f, s))
}

func TestConstraintThreshold(t *testing.T) {
	settings := BreakingSettings{Threshold: 10}

	threshold, ok := constraintThreshold(0, 3, settings)
	require.True(t, ok)
	assert.Equal(t, 10.0, threshold, "flat thresholds ignore the masses")

	settings.MassDependent = true
	_, ok = constraintThreshold(0, 3, settings)
	assert.False(t, ok)

	prev := 0.0
	for _, mass := range []float64{0.5, 1, 2, 4} {
		threshold, ok := constraintThreshold(4, mass, settings)
		require.True(t, ok)
		assert.Greater(t, threshold, prev)
		prev = threshold
	}
	assert.Equal(t, 10.0, prev, "the heaviest constraint gets the whole threshold")
}

func TestMaxConstraintMass(t *testing.T) {
	f, _ := newStar(3)
	f.Shards[2].RigidBody.Mass = 5
	f.Shards[3].RigidBody = nil

	assert.Equal(t, 6.0, maxConstraintMass(f))
}

func TestMinConstraintDistance(t *testing.T) {
	assert.Equal(t, math.MaxFloat64, MinConstraintDistance(nil))
	assert.Equal(t, math.MaxFloat64, MinConstraintDistance(&Object{}))

	f, _ := newStar(3)
	ob := &Object{Fracture: f}
	assert.InDelta(t, 1.0, MinConstraintDistance(ob), 1e-12)

	// constraints without both bodies are skipped
	f.Shards[1].RigidBody = nil
	assert.InDelta(t, 2.0, MinConstraintDistance(ob), 1e-12)
}

func TestBreakByDistanceAngle(t *testing.T) {
	tests := []struct {
		name      string
		breaking  BreakingSettings
		weight    float64
		move      mgl64.Vec3
		turn      float64
		wantBreak bool
	}{
		{"no rule", BreakingSettings{}, 1, mgl64.Vec3{5, 0, 0}, 0, false},
		{"within distance", BreakingSettings{Distance: 0.5}, 1, mgl64.Vec3{0.4, 0, 0}, 0, false},
		{"past distance", BreakingSettings{Distance: 0.5}, 1, mgl64.Vec3{0.6, 0, 0}, 0, true},
		{"weighted distance", BreakingSettings{Distance: 1, DistanceWeighted: true}, 0.2, mgl64.Vec3{0.3, 0, 0}, 0, true},
		{"within angle", BreakingSettings{Angle: 0.5}, 1, mgl64.Vec3{}, 0.4, false},
		{"past angle", BreakingSettings{Angle: 0.5}, 1, mgl64.Vec3{}, 0.6, true},
		{"sideways move keeps the distance", BreakingSettings{Distance: 0.5}, 1, mgl64.Vec3{0, 0.1, 0}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := newTestWorld(t)
			f, center := newStar(1)
			f.Breaking = tt.breaking
			other := f.Shards[1]
			center.ThresholdWeight, other.ThresholdWeight = tt.weight, tt.weight

			c := f.Constraints[0]
			c.captureRest(center.RigidBody, other.RigidBody)
			require.InDelta(t, 1.0, c.StartDistance, 1e-12)

			other.RigidBody.Position = other.RigidBody.Position.Add(tt.move)
			other.RigidBody.Orientation = mgl64.QuatRotate(tt.turn, mgl64.Vec3{0, 0, 1})

			assert.Equal(t, tt.wantBreak, w.breakByDistanceAngle(f, c))
			assert.Equal(t, !tt.wantBreak, c.Enabled)
		})
	}
}

func TestUpdateBreaking(t *testing.T) {
	w, _ := newTestWorld(t)
	f, center := newStar(2)
	f.Breaking.Distance = 0.5
	other := f.Shards[1]
	c := f.Constraints[0]
	c.captureRest(center.RigidBody, other.RigidBody)

	other.RigidBody.Position = mgl64.Vec3{2, 0, 0}
	w.updateBreaking(f, c, 0, true)
	assert.True(t, c.Enabled, "rebuilds skip the deviation rule")
	assert.True(t, c.OverrideIterations)
	assert.Equal(t, w.Settings.SolverIterations, c.SolverIterations)

	w.updateBreaking(f, c, 0, false)
	assert.False(t, c.Enabled)
	assert.Equal(t, NeedsValidate, c.State)

	// a broken constraint stays broken once its shards are back
	other.RigidBody.Position = mgl64.Vec3{1, 0, 0}
	w.updateBreaking(f, c, 0, false)
	assert.False(t, c.Enabled)
}

func TestUpdateBreaking_MassDependent(t *testing.T) {
	w, _ := newTestWorld(t)
	f, _ := newStar(2)
	f.Breaking = BreakingSettings{Threshold: 12, MassDependent: true, SolverIterations: 30}
	f.Shards[2].RigidBody.Mass = 3

	maxMass := maxConstraintMass(f)
	require.Equal(t, 4.0, maxMass)
	for _, c := range f.Constraints {
		w.updateBreaking(f, c, maxMass, true)
	}

	assert.InDelta(t, 6.0, f.Constraints[0].BreakingThreshold, 1e-12)
	assert.InDelta(t, 12.0, f.Constraints[1].BreakingThreshold, 1e-12)
	assert.Equal(t, 30, f.Constraints[0].SolverIterations)
}

func TestFracture_BreakingInTheWorld(t *testing.T) {
	w, _ := newTestWorld(t)

	ob := NewObject("pillar", mgl64.Translate3D(0, 0, 5), NewBoxMesh(mgl64.Vec3{}, mgl64.Vec3{1, 0.5, 0.5}))
	rb := w.CreateObject(ob, Active)
	rb.Shape = ShapeBox
	rb.Mass = 2
	ob.Fracture = NewFracture()
	ob.Fracture.Breaking.Angle = 0.02

	// the passive shard holds, the active one swings down and turns past the
	// breaking angle
	anchor := NewShard(NewBoxMesh(mgl64.Vec3{}, mgl64.Vec3{0.5, 0.5, 0.5}), mgl64.Vec3{-0.5, 0, 0})
	anchor.GroundWeight = 1
	falling := NewShard(NewBoxMesh(mgl64.Vec3{}, mgl64.Vec3{0.5, 0.5, 0.5}), mgl64.Vec3{0.5, 0, 0})
	w.CreateShard(ob, anchor)
	w.CreateShard(ob, falling)
	c := NewShardConstraint(engine.ConstraintPoint)
	ob.Fracture.Connect(c, anchor, falling)
	// the threshold alone never breaks it
	c.BreakingThreshold = engine.Unbounded

	runFrames(w, 1, 10)

	assert.False(t, c.Enabled)
	assert.Less(t, falling.RigidBody.Position.Z(), 5.0)
	assert.InDelta(t, 5.0, anchor.RigidBody.Position.Z(), 1e-9)
}
