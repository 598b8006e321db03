package constraint

import (
	"github.com/akmonengine/fracture/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// DefaultCompliance controls the stiffness of locked and limited axes.
	// Lower values = stiffer joints (less drift, potential jitter)
	// Higher values = softer joints
	// Typical range: 1e-10 (very stiff) to 1e-6 (soft)
	DefaultCompliance = 1e-9
)

type Constraint interface {
	SolvePosition(dt float64)
	SolveVelocity(dt float64)
}

// linearWeight is the generalized inverse mass of a body for a correction
// along n applied at r
func linearWeight(rb *actor.RigidBody, r, n mgl64.Vec3) float64 {
	rCrossN := r.Cross(n)
	return rb.InverseMass() + rb.GetInverseInertiaWorld().Mul3x1(rCrossN).Dot(rCrossN)
}

// angularWeight is the generalized inverse inertia of a body around n
func angularWeight(rb *actor.RigidBody, n mgl64.Vec3) float64 {
	return rb.GetInverseInertiaWorld().Mul3x1(n).Dot(n)
}

// applyLinear moves bodyA and bodyB so that the anchor separation shrinks by
// correction (pointing from A to B). Returns |Δλ|.
func applyLinear(bodyA, bodyB *actor.RigidBody, rA, rB, correction mgl64.Vec3, compliance, dt float64) float64 {
	c := correction.Len()
	if c < 1e-10 {
		return 0
	}
	n := correction.Mul(1.0 / c)

	totalWeight := linearWeight(bodyA, rA, n) + linearWeight(bodyB, rB, n)
	if totalWeight <= 1e-12 {
		return 0
	}

	alphaTilde := compliance / (dt * dt)
	deltaLambda := -c / (totalWeight + alphaTilde)
	impulse := n.Mul(deltaLambda)

	// Body A receives -impulse, body B receives +impulse
	bodyA.ApplyLinearCorrection(impulse.Mul(-bodyA.InverseMass()))
	bodyB.ApplyLinearCorrection(impulse.Mul(bodyB.InverseMass()))
	bodyA.ApplyAngularCorrection(bodyA.GetInverseInertiaWorld().Mul3x1(rA.Cross(impulse.Mul(-1))))
	bodyB.ApplyAngularCorrection(bodyB.GetInverseInertiaWorld().Mul3x1(rB.Cross(impulse)))

	return -deltaLambda
}

// applyAngular rotates bodyA and bodyB so that the rotation of B relative to
// A shrinks by correction (a world space rotation vector). Returns |Δλ|.
func applyAngular(bodyA, bodyB *actor.RigidBody, correction mgl64.Vec3, compliance, dt float64) float64 {
	theta := correction.Len()
	if theta < 1e-10 {
		return 0
	}
	n := correction.Mul(1.0 / theta)

	totalWeight := angularWeight(bodyA, n) + angularWeight(bodyB, n)
	if totalWeight <= 1e-12 {
		return 0
	}

	alphaTilde := compliance / (dt * dt)
	deltaLambda := -theta / (totalWeight + alphaTilde)
	impulse := n.Mul(deltaLambda)

	bodyA.ApplyAngularCorrection(bodyA.GetInverseInertiaWorld().Mul3x1(impulse.Mul(-1)))
	bodyB.ApplyAngularCorrection(bodyB.GetInverseInertiaWorld().Mul3x1(impulse))

	return -deltaLambda
}

func clampSmallVelocities(rb *actor.RigidBody) {
	const velocityThreshold = 1e-5

	if rb.Velocity.Len() < velocityThreshold {
		rb.Velocity = mgl64.Vec3{0, 0, 0}
	}
	if rb.AngularVelocity.Len() < velocityThreshold {
		rb.AngularVelocity = mgl64.Vec3{0, 0, 0}
	}
}
