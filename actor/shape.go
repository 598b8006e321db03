package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeType represents the type of collision shape
type ShapeType int

const (
	ShapeTypeSphere ShapeType = iota
	ShapeTypeBox
	ShapeTypeCapsule
	ShapeTypeCylinder
	ShapeTypeCone
	ShapeTypeConvexHull
	ShapeTypeTriangleMesh
)

// ShapeInterface is the interface that all collision shapes must implement
type ShapeInterface interface {
	Type() ShapeType
	// ComputeAABB calculates the axis-aligned bounding box for the shape
	// at the given transform, margin included
	ComputeAABB(transform Transform)
	GetAABB() AABB
	ComputeInertia(mass float64) mgl64.Mat3
	Support(direction mgl64.Vec3) mgl64.Vec3
	GetMargin() float64
	SetMargin(margin float64)
}

// shapeBase holds the state every shape shares
type shapeBase struct {
	aabb   AABB
	margin float64
}

func (s *shapeBase) GetAABB() AABB {
	return s.aabb
}

func (s *shapeBase) GetMargin() float64 {
	return s.margin
}

func (s *shapeBase) SetMargin(margin float64) {
	s.margin = math.Max(0, margin)
}

// maxScale returns the largest absolute scale component
func maxScale(scale mgl64.Vec3) float64 {
	return math.Max(math.Abs(scale.X()), math.Max(math.Abs(scale.Y()), math.Abs(scale.Z())))
}

// boxCorners returns the 8 corners of a box centered on the origin
func boxCorners(h mgl64.Vec3) []mgl64.Vec3 {
	return []mgl64.Vec3{
		{-h.X(), -h.Y(), -h.Z()},
		{+h.X(), -h.Y(), -h.Z()},
		{-h.X(), +h.Y(), -h.Z()},
		{+h.X(), +h.Y(), -h.Z()},
		{-h.X(), -h.Y(), +h.Z()},
		{+h.X(), -h.Y(), +h.Z()},
		{-h.X(), +h.Y(), +h.Z()},
		{+h.X(), +h.Y(), +h.Z()},
	}
}

// boxInertia: I = (m/12) * (dimension1² + dimension2²)
func boxInertia(mass float64, halfExtents mgl64.Vec3) mgl64.Mat3 {
	x := halfExtents.X() * 2
	y := halfExtents.Y() * 2
	z := halfExtents.Z() * 2

	factor := mass / 12.0
	ix := factor * (y*y + z*z)
	iy := factor * (x*x + z*z)
	iz := factor * (x*x + y*y)

	return mgl64.Mat3{
		ix, 0, 0,
		0, iy, 0,
		0, 0, iz,
	}
}

// Box represents an oriented box collision shape
// The box is defined by its half-extents (half-width, half-height, half-depth)
type Box struct {
	shapeBase
	HalfExtents mgl64.Vec3
}

func (b *Box) Type() ShapeType {
	return ShapeTypeBox
}

func (b *Box) ComputeAABB(transform Transform) {
	b.aabb = aabbOfPoints(boxCorners(b.HalfExtents), transform).Expand(b.margin)
}

func (b *Box) ComputeInertia(mass float64) mgl64.Mat3 {
	return boxInertia(mass, b.HalfExtents)
}

func (b *Box) Support(direction mgl64.Vec3) mgl64.Vec3 {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()

	if direction.X() < 0 {
		hx = -hx
	}
	if direction.Y() < 0 {
		hy = -hy
	}
	if direction.Z() < 0 {
		hz = -hz
	}

	return mgl64.Vec3{hx, hy, hz}
}

// Sphere represents a spherical collision shape
type Sphere struct {
	shapeBase
	Radius float64
}

func (s *Sphere) Type() ShapeType {
	return ShapeTypeSphere
}

// ComputeAABB calculates the axis-aligned bounding box for the sphere
func (s *Sphere) ComputeAABB(transform Transform) {
	// Sphere AABB is not affected by rotation, only by position
	r := s.Radius*maxScale(transform.Scale) + s.margin
	radiusVec := mgl64.Vec3{r, r, r}

	s.aabb = AABB{
		Min: transform.Position.Sub(radiusVec),
		Max: transform.Position.Add(radiusVec),
	}
}

func (s *Sphere) ComputeInertia(mass float64) mgl64.Mat3 {
	// Pour une sphère : I = (2/5) * m * r²
	i := (2.0 / 5.0) * mass * s.Radius * s.Radius

	return mgl64.Mat3{
		i, 0, 0,
		0, i, 0,
		0, 0, i,
	}
}

func (s *Sphere) Support(direction mgl64.Vec3) mgl64.Vec3 {
	if direction.Len() == 0 {
		return mgl64.Vec3{s.Radius, 0, 0}
	}
	return direction.Normalize().Mul(s.Radius)
}

// Capsule is a cylinder of Height capped by two half spheres, aligned on Z
type Capsule struct {
	shapeBase
	Radius float64
	Height float64
}

func (c *Capsule) Type() ShapeType {
	return ShapeTypeCapsule
}

func (c *Capsule) ComputeAABB(transform Transform) {
	caps := []mgl64.Vec3{{0, 0, -c.Height / 2}, {0, 0, c.Height / 2}}
	r := c.Radius*maxScale(transform.Scale) + c.margin
	c.aabb = aabbOfPoints(caps, transform).Expand(r)
}

func (c *Capsule) ComputeInertia(mass float64) mgl64.Mat3 {
	return cylinderInertia(mass, c.Radius, c.Height+2*c.Radius)
}

func (c *Capsule) Support(direction mgl64.Vec3) mgl64.Vec3 {
	var tip mgl64.Vec3
	if direction.Z() >= 0 {
		tip = mgl64.Vec3{0, 0, c.Height / 2}
	} else {
		tip = mgl64.Vec3{0, 0, -c.Height / 2}
	}
	if direction.Len() == 0 {
		return tip
	}
	return tip.Add(direction.Normalize().Mul(c.Radius))
}

// Cylinder aligned on Z, Height is the full height
type Cylinder struct {
	shapeBase
	Radius float64
	Height float64
}

func (c *Cylinder) Type() ShapeType {
	return ShapeTypeCylinder
}

func (c *Cylinder) ComputeAABB(transform Transform) {
	c.aabb = aabbOfPoints(boxCorners(mgl64.Vec3{c.Radius, c.Radius, c.Height / 2}), transform).Expand(c.margin)
}

func cylinderInertia(mass, radius, height float64) mgl64.Mat3 {
	ixy := mass * (3*radius*radius + height*height) / 12.0
	iz := mass * radius * radius / 2.0

	return mgl64.Mat3{
		ixy, 0, 0,
		0, ixy, 0,
		0, 0, iz,
	}
}

func (c *Cylinder) ComputeInertia(mass float64) mgl64.Mat3 {
	return cylinderInertia(mass, c.Radius, c.Height)
}

func (c *Cylinder) Support(direction mgl64.Vec3) mgl64.Vec3 {
	z := c.Height / 2
	if direction.Z() < 0 {
		z = -z
	}
	radial := mgl64.Vec3{direction.X(), direction.Y(), 0}
	if radial.Len() > 1e-12 {
		radial = radial.Normalize().Mul(c.Radius)
	}
	return mgl64.Vec3{radial.X(), radial.Y(), z}
}

// Cone aligned on Z, apex on +Z, Height is the full height
type Cone struct {
	shapeBase
	Radius float64
	Height float64
}

func (c *Cone) Type() ShapeType {
	return ShapeTypeCone
}

func (c *Cone) ComputeAABB(transform Transform) {
	c.aabb = aabbOfPoints(boxCorners(mgl64.Vec3{c.Radius, c.Radius, c.Height / 2}), transform).Expand(c.margin)
}

func (c *Cone) ComputeInertia(mass float64) mgl64.Mat3 {
	ixy := mass * (3.0/20.0*c.Radius*c.Radius + 3.0/80.0*c.Height*c.Height)
	iz := mass * 3.0 / 10.0 * c.Radius * c.Radius

	return mgl64.Mat3{
		ixy, 0, 0,
		0, ixy, 0,
		0, 0, iz,
	}
}

func (c *Cone) Support(direction mgl64.Vec3) mgl64.Vec3 {
	apex := mgl64.Vec3{0, 0, c.Height / 2}
	rim := mgl64.Vec3{0, 0, -c.Height / 2}
	radial := mgl64.Vec3{direction.X(), direction.Y(), 0}
	if radial.Len() > 1e-12 {
		radial = radial.Normalize().Mul(c.Radius)
		rim = rim.Add(radial)
	}

	if apex.Dot(direction) >= rim.Dot(direction) {
		return apex
	}
	return rim
}

// pointCloud holds the vertices shared by hulls and meshes
type pointCloud struct {
	Points []mgl64.Vec3
}

func (p pointCloud) support(direction mgl64.Vec3) mgl64.Vec3 {
	best := mgl64.Vec3{}
	bestDot := -math.MaxFloat64
	for _, point := range p.Points {
		if dot := point.Dot(direction); dot > bestDot {
			bestDot = dot
			best = point
		}
	}
	return best
}

// halfExtents of the local bounds, used for inertia
func (p pointCloud) halfExtents() mgl64.Vec3 {
	if len(p.Points) == 0 {
		return mgl64.Vec3{}
	}
	min, max := p.Points[0], p.Points[0]
	for _, point := range p.Points[1:] {
		for i := 0; i < 3; i++ {
			min[i] = math.Min(min[i], point[i])
			max[i] = math.Max(max[i], point[i])
		}
	}
	return max.Sub(min).Mul(0.5)
}

// ConvexHull is the convex envelope of a point set
type ConvexHull struct {
	shapeBase
	pointCloud
}

func NewConvexHull(points []mgl64.Vec3) *ConvexHull {
	return &ConvexHull{pointCloud: pointCloud{Points: points}}
}

func (h *ConvexHull) Type() ShapeType {
	return ShapeTypeConvexHull
}

func (h *ConvexHull) ComputeAABB(transform Transform) {
	h.aabb = aabbOfPoints(h.Points, transform).Expand(h.margin)
}

func (h *ConvexHull) ComputeInertia(mass float64) mgl64.Mat3 {
	return boxInertia(mass, h.halfExtents())
}

func (h *ConvexHull) Support(direction mgl64.Vec3) mgl64.Vec3 {
	return h.support(direction)
}

// TriangleMesh is an indexed triangle soup. Static meshes are queried
// through their bounds only, Dynamic meshes are refit every step.
type TriangleMesh struct {
	shapeBase
	pointCloud
	Triangles [][3]int
	Dynamic   bool
}

func NewTriangleMesh(vertices []mgl64.Vec3, triangles [][3]int, dynamic bool) *TriangleMesh {
	return &TriangleMesh{pointCloud: pointCloud{Points: vertices}, Triangles: triangles, Dynamic: dynamic}
}

func (m *TriangleMesh) Type() ShapeType {
	return ShapeTypeTriangleMesh
}

func (m *TriangleMesh) ComputeAABB(transform Transform) {
	m.aabb = aabbOfPoints(m.Points, transform).Expand(m.margin)
}

func (m *TriangleMesh) ComputeInertia(mass float64) mgl64.Mat3 {
	return boxInertia(mass, m.halfExtents())
}

func (m *TriangleMesh) Support(direction mgl64.Vec3) mgl64.Vec3 {
	return m.support(direction)
}
