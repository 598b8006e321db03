package fracture

import (
	"math"
	"testing"

	"github.com/akmonengine/fracture/engine"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometryBounds(t *testing.T) {
	min, max := geometryBounds(nil)
	assert.Equal(t, mgl64.Vec3{-1, -1, -1}, min)
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, max)

	min, max = geometryBounds(&Mesh{})
	assert.Equal(t, mgl64.Vec3{-1, -1, -1}, min, "meshes without vertices use the unit bound")
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, max)

	min, max = geometryBounds(NewBoxMesh(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0.5, 1, 2}))
	assert.Equal(t, mgl64.Vec3{0.5, -1, -2}, min)
	assert.Equal(t, mgl64.Vec3{1.5, 1, 2}, max)
}

func TestTriangulate(t *testing.T) {
	mesh := &Mesh{
		Verts: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {0.5, 0.5, 1}},
		Polys: [][]int{{0, 1, 2, 3}, {0, 1, 4}, {3, 4}},
	}

	got := triangulate(mesh)

	assert.Len(t, got.Vertices, 5)
	assert.Equal(t, [][3]int{{0, 1, 2}, {0, 2, 3}, {0, 1, 4}}, got.Triangles, "degenerate faces give no triangle")
	assert.Empty(t, triangulate(nil).Triangles)

	box := triangulate(NewBoxMesh(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}))
	assert.Len(t, box.Triangles, 12)
}

func TestCalcVolume(t *testing.T) {
	cube := NewBoxMesh(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})
	flat := &Mesh{Verts: []mgl64.Vec3{{0, 0, 0}, {2, 0, 0}, {2, 3, 0}}}

	tests := []struct {
		name string
		kind ShapeKind
		g    Geometry
		want float64
	}{
		{"box", ShapeBox, NewBoxMesh(mgl64.Vec3{}, mgl64.Vec3{1, 1.5, 2}), 24},
		{"hull counts as its bound", ShapeConvexHull, cube, 8},
		{"sphere", ShapeSphere, cube, 4.0 / 3.0 * math.Pi},
		{"cylinder", ShapeCylinder, cube, 2 * math.Pi},
		{"capsule counts as a cylinder", ShapeCapsule, cube, 2 * math.Pi},
		{"cone", ShapeCone, cube, 2 * math.Pi / 3},
		{"flat mesh uses its area", ShapeTrimesh, flat, 6},
		{"no geometry", ShapeBox, nil, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, calcVolume(tt.kind, tt.g), 1e-9)
		})
	}
}

func TestValidateShape(t *testing.T) {
	cube := NewBoxMesh(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})

	tests := []struct {
		name string
		kind ShapeKind
		g    Geometry
		want ShapeKind
	}{
		{"box", ShapeBox, cube, ShapeBox},
		{"sphere", ShapeSphere, cube, ShapeSphere},
		{"capsule", ShapeCapsule, cube, ShapeCapsule},
		{"cylinder", ShapeCylinder, cube, ShapeCylinder},
		{"cone", ShapeCone, cube, ShapeCone},
		{"hull", ShapeConvexHull, cube, ShapeConvexHull},
		{"trimesh", ShapeTrimesh, cube, ShapeTrimesh},
		{"degenerate hull falls back", ShapeConvexHull, &Mesh{Verts: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}}, ShapeBox},
		{"empty trimesh falls back", ShapeTrimesh, &Mesh{}, ShapeBox},
		{"unknown kind falls back", ShapeKind(42), cube, ShapeBox},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, eng := newTestWorld(t)
			rb := NewRigidBody(Active)
			rb.Shape = tt.kind

			require.NoError(t, w.validateShape(rb, tt.g, true))
			assert.Equal(t, tt.want, rb.Shape)
			assert.NotNil(t, rb.shape)
			assert.Equal(t, 1, eng.Stats().Shapes)
		})
	}
}

func TestValidateShape_FlatGeometry(t *testing.T) {
	tests := []struct {
		kind ShapeKind
		want ShapeKind
	}{
		{ShapeBox, ShapeBox},
		{ShapeSphere, ShapeSphere},
		{ShapeCapsule, ShapeCapsule},
		{ShapeCylinder, ShapeCylinder},
		{ShapeCone, ShapeCone},
		{ShapeConvexHull, ShapeBox},
		{ShapeTrimesh, ShapeTrimesh},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			w, _ := newTestWorld(t)
			ob := NewObject("plate", mgl64.Translate3D(0, 0, 10), NewBoxMesh(mgl64.Vec3{}, mgl64.Vec3{1, 1, 0}))
			rb := w.CreateObject(ob, Active)
			rb.Shape = tt.kind

			require.NoError(t, w.validateShape(rb, ob.Geometry, true))
			assert.NotNil(t, rb.shape)
			assert.Equal(t, tt.want, rb.Shape)

			volume := calcVolume(rb.Shape, ob.Geometry)
			assert.False(t, math.IsNaN(volume) || math.IsInf(volume, 0), "volume = %v", volume)
			assert.GreaterOrEqual(t, volume, 0.0)

			runFrames(w, 1, 2)
			require.True(t, rb.Live())
			position := rb.Body().Position()
			for i := range position {
				assert.False(t, math.IsNaN(position[i]) || math.IsInf(position[i], 0), "position = %v", position)
			}
			assert.Less(t, position.Z(), 10.0, "the plate falls")
		})
	}
}

func TestValidateShape_ReplacesShape(t *testing.T) {
	w, eng := newTestWorld(t)
	rb := NewRigidBody(Active)
	rb.Shape = ShapeBox
	cube := NewBoxMesh(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})

	require.NoError(t, w.validateShape(rb, cube, true))
	first := rb.shape

	require.NoError(t, w.validateShape(rb, cube, false))
	assert.Same(t, first, rb.shape, "an existing shape is kept without rebuild")

	require.NoError(t, w.validateShape(rb, cube, true))
	assert.NotSame(t, first, rb.shape)
	assert.Equal(t, 1, eng.Stats().Shapes, "the replaced shape is freed")
	assert.Equal(t, 2, eng.Stats().ShapesCreated)
}

func TestNewShape_HullMargin(t *testing.T) {
	tests := []struct {
		name       string
		g          Geometry
		useMargin  bool
		margin     float64
		wantMargin float64
	}{
		{"embedded in a thick hull", NewBoxMesh(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}), false, 0.3, defaultMargin},
		{"not embedded in a thin hull", NewBoxMesh(mgl64.Vec3{}, mgl64.Vec3{1, 1, 0.01}), false, 0.3, 0},
		{"user margin is kept", NewBoxMesh(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}), true, 0.3, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := newTestWorld(t)
			rb := NewRigidBody(Active)
			rb.UseMargin = tt.useMargin
			rb.Margin = tt.margin

			shape, err := w.newShape(rb, tt.g)
			require.NoError(t, err)
			require.NotNil(t, shape)
			assert.InDelta(t, tt.wantMargin, rb.Margin, 1e-12)
		})
	}
}

func TestNewShape_TrimeshFollowsBodyType(t *testing.T) {
	w, _ := newTestWorld(t)
	cube := NewBoxMesh(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})

	for _, bodyType := range []BodyType{Active, Passive} {
		rb := NewRigidBody(bodyType)
		rb.Shape = ShapeTrimesh
		shape, err := w.newShape(rb, cube)
		require.NoError(t, err)
		assert.NotNil(t, shape)
	}

	_, err := w.newShape(&RigidBody{Shape: ShapeKind(-1)}, cube)
	assert.ErrorIs(t, err, ErrUnknownShape)
}

func TestRigidBody_EffectiveMass(t *testing.T) {
	tests := []struct {
		name  string
		setup func(rb *RigidBody)
		want  float64
	}{
		{"active", func(rb *RigidBody) {}, 2},
		{"passive", func(rb *RigidBody) { rb.Type = Passive }, 0},
		{"kinematic", func(rb *RigidBody) { rb.Kinematic = true }, 0},
		{"disabled", func(rb *RigidBody) { rb.Disabled = true }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := NewRigidBody(Active)
			rb.Mass = 2
			tt.setup(rb)
			assert.Equal(t, tt.want, rb.EffectiveMass())
		})
	}
}

func TestRigidBody_Defaults(t *testing.T) {
	active := NewRigidBody(Active)
	assert.Equal(t, ShapeConvexHull, active.Shape)
	assert.Equal(t, uint32(1), active.CollisionGroups)

	passive := NewRigidBody(Passive)
	assert.Equal(t, ShapeTrimesh, passive.Shape)
	assert.Equal(t, "passive", passive.Type.String())
}

func TestSyncState_Escalate(t *testing.T) {
	st := NeedsReshape
	st.Escalate(NeedsValidate)
	assert.Equal(t, NeedsReshape, st, "escalate never lowers")

	st.Escalate(NeedsRebuild)
	assert.Equal(t, NeedsRebuild, st)
	assert.Equal(t, "needs-rebuild", st.String())
}

func TestConstraintType_String(t *testing.T) {
	assert.Equal(t, "6dof-spring", engine.Constraint6DOFSpring.String())
	assert.Equal(t, "convex-hull", ShapeConvexHull.String())
}
