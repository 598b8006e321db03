package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Overlaps checks if two AABBs overlap
func (a AABB) Overlaps(other AABB) bool {
	// AABBs overlap if they overlap on all three axes
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

// Expand grows the box by margin on every side
func (a AABB) Expand(margin float64) AABB {
	m := mgl64.Vec3{margin, margin, margin}
	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

// IsFinite reports whether both corners are finite numbers
func (a AABB) IsFinite() bool {
	for i := 0; i < 3; i++ {
		if math.IsNaN(a.Min[i]) || math.IsInf(a.Min[i], 0) || math.IsNaN(a.Max[i]) || math.IsInf(a.Max[i], 0) {
			return false
		}
	}
	return true
}

// aabbOfPoints computes the world AABB of local points
func aabbOfPoints(points []mgl64.Vec3, transform Transform) AABB {
	if len(points) == 0 {
		return AABB{Min: transform.Position, Max: transform.Position}
	}

	worldPoint := transform.ToWorld(points[0])
	min := worldPoint
	max := worldPoint

	for i := 1; i < len(points); i++ {
		worldPoint = transform.ToWorld(points[i])

		min[0] = math.Min(min[0], worldPoint[0])
		min[1] = math.Min(min[1], worldPoint[1])
		min[2] = math.Min(min[2], worldPoint[2])

		max[0] = math.Max(max[0], worldPoint[0])
		max[1] = math.Max(max[1], worldPoint[1])
		max[2] = math.Max(max[2], worldPoint[2])
	}

	return AABB{Min: min, Max: max}
}
