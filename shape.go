package fracture

import (
	"fmt"
	"math"

	"github.com/akmonengine/fracture/engine"
	"github.com/go-gl/mathgl/mgl64"
)

// geometryBounds returns the local bound of g, [-1, 1] on every axis when
// g has no vertices.
func geometryBounds(g Geometry) (mgl64.Vec3, mgl64.Vec3) {
	if g != nil {
		if min, max, ok := g.Bounds(); ok {
			return min, max
		}
	}
	return mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1}
}

// triangulate fans every face into triangles, a quad (v1, v2, v3, v4) gives
// (v1, v2, v3) and (v1, v3, v4).
func triangulate(g Geometry) engine.TriangleMesh {
	var mesh engine.TriangleMesh
	if g == nil {
		return mesh
	}

	mesh.Vertices = g.Vertices()
	for _, face := range g.Faces() {
		for i := 1; i+1 < len(face); i++ {
			mesh.Triangles = append(mesh.Triangles, [3]int{face[0], face[i], face[i+1]})
		}
	}
	return mesh
}

// newShape builds the engine shape of rb.Shape from the geometry bound.
func (w *World) newShape(rb *RigidBody, g Geometry) (engine.Shape, error) {
	min, max := geometryBounds(g)
	half := max.Sub(min).Mul(0.5)

	switch rb.Shape {
	case ShapeBox:
		return w.engine.NewBoxShape(half)

	case ShapeSphere:
		return w.engine.NewSphereShape(math.Max(half.X(), math.Max(half.Y(), half.Z())))

	case ShapeCapsule, ShapeCylinder, ShapeCone:
		// quadrics stand upright on the local Z axis
		radius := math.Max(half.X(), half.Y())
		height := 2 * half.Z()

		switch rb.Shape {
		case ShapeCapsule:
			return w.engine.NewCapsuleShape(radius, math.Max(height-2*radius, 0))
		case ShapeCylinder:
			return w.engine.NewCylinderShape(radius, height)
		default:
			return w.engine.NewConeShape(radius, height)
		}

	case ShapeConvexHull:
		hasVolume := math.Min(half.X(), math.Min(half.Y(), half.Z())) > 0
		hullMargin := 0.0
		if !rb.UseMargin && hasVolume {
			hullMargin = defaultMargin
		}

		var points []mgl64.Vec3
		if g != nil {
			points = g.Vertices()
		}
		shape, canEmbed, err := w.engine.NewConvexHullShape(points, hullMargin)
		if !rb.UseMargin {
			rb.Margin = 0
			if canEmbed && hasVolume {
				rb.Margin = defaultMargin
			}
		}
		return shape, err

	case ShapeTrimesh:
		// dynamic triangle meshes are unstable, only active bodies get one
		return w.engine.NewTriangleMeshShape(triangulate(g), rb.Type == Active)
	}

	return nil, fmt.Errorf("shape kind %d: %w", rb.Shape, ErrUnknownShape)
}

// validateShape creates the collision shape of rb, or replaces it when
// rebuild is set. A shape that fails to build falls back to a box, once.
func (w *World) validateShape(rb *RigidBody, g Geometry, rebuild bool) error {
	if rb == nil || (rb.shape != nil && !rebuild) {
		return nil
	}

	shape, err := w.newShape(rb, g)
	if err != nil && rb.Shape != ShapeBox {
		w.logger.Warn("collision shape fell back to box", "shape", rb.Shape, "error", err)
		rb.Shape = ShapeBox
		shape, err = w.newShape(rb, g)
	}
	if err != nil {
		return fmt.Errorf("build %s shape: %w", rb.Shape, err)
	}

	if rb.shape != nil {
		rb.shape.Delete()
	}
	rb.shape = shape
	rb.shape.SetMargin(rb.EffectiveMargin())

	return nil
}

// calcVolume approximates the volume of a shape kind fitted to g. Mesh
// shapes count as their bound, a flat bound uses the area of its two other
// axes.
func calcVolume(kind ShapeKind, g Geometry) float64 {
	min, max := geometryBounds(g)
	size := max.Sub(min)

	switch kind {
	case ShapeSphere:
		radius := math.Max(size.X(), math.Max(size.Y(), size.Z())) / 2
		return 4.0 / 3.0 * math.Pi * radius * radius * radius

	// capsules count as cylinders
	case ShapeCapsule, ShapeCylinder:
		radius := math.Max(size.X(), size.Y()) / 2
		return math.Pi * radius * radius * size.Z()

	case ShapeCone:
		radius := math.Max(size.X(), size.Y()) / 2
		return math.Pi / 3 * radius * radius * size.Z()
	}

	switch {
	case size.X() == 0:
		return size.Y() * size.Z()
	case size.Y() == 0:
		return size.X() * size.Z()
	case size.Z() == 0:
		return size.X() * size.Y()
	}
	return size.X() * size.Y() * size.Z()
}
