package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DeactivationTime is how long a body must stay under its sleep thresholds before sleeping
const DeactivationTime = 2.0

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by forces, gravity, and constraints
	// They have finite mass and can move freely
	BodyTypeDynamic BodyType = iota

	// BodyTypeStatic bodies are immovable and have infinite mass (zero mass given)
	BodyTypeStatic

	// BodyTypeKinematic bodies are moved by SetTransform only
	BodyTypeKinematic
)

type Material struct {
	mass        float64
	Restitution float64 // 0= no rebound, 1= perfect restitution
	Friction    float64

	LinearDamping  float64 // 0.0 - 1.0, typique : 0.04
	AngularDamping float64 // 0.0 - 1.0, typique : 0.1
}

func (material Material) GetMass() float64 {
	return material.mass
}

// RigidBody represents a rigid body in the physics simulation
type RigidBody struct {
	// Spatial properties
	PreviousTransform Transform
	Transform         Transform

	// Linear motion
	PresolveVelocity mgl64.Vec3
	Velocity         mgl64.Vec3 // Linear velocity (m/s)

	// Angular motion
	PresolveAngularVelocity mgl64.Vec3
	AngularVelocity         mgl64.Vec3 // Vitesse de rotation (rad/s)
	InertiaLocal            mgl64.Mat3 // Tenseur d'inertie en espace local
	InverseInertiaLocal     mgl64.Mat3

	accumulatedForce  mgl64.Vec3
	accumulatedTorque mgl64.Vec3

	// Per axis motion locks, 1 = free, 0 = locked
	LinearFactor  mgl64.Vec3
	AngularFactor mgl64.Vec3

	IsSleeping bool
	SleepTimer float64
	// DeactivationEnabled allows the body to fall asleep on its own
	DeactivationEnabled   bool
	LinearSleepThreshold  float64
	AngularSleepThreshold float64

	// Physical properties
	Material  Material
	BodyType  BodyType
	Kinematic bool

	// Collision shape
	Shape ShapeInterface
}

// NewRigidBody creates a new rigid body with the given properties
// A mass <= 0 makes the body static
func NewRigidBody(transform Transform, shape ShapeInterface, mass float64) *RigidBody {
	if transform.Scale == (mgl64.Vec3{}) {
		transform.Scale = mgl64.Vec3{1, 1, 1}
	}
	transform.InverseRotation = transform.Rotation.Inverse()

	rb := &RigidBody{
		PreviousTransform:     transform,
		Transform:             transform,
		Shape:                 shape,
		LinearFactor:          mgl64.Vec3{1, 1, 1},
		AngularFactor:         mgl64.Vec3{1, 1, 1},
		LinearSleepThreshold:  0.8,
		AngularSleepThreshold: 1.0,
	}
	rb.SetMass(mass)

	return rb
}

// SetMass updates the mass, the body type and the inertia
func (rb *RigidBody) SetMass(mass float64) {
	if math.IsNaN(mass) || mass < 0 {
		mass = 0
	}
	rb.Material.mass = mass
	rb.refreshType()

	if mass > 0 {
		rb.InertiaLocal = rb.Shape.ComputeInertia(mass)
		rb.InverseInertiaLocal = rb.InertiaLocal.Inv()
	} else {
		rb.InertiaLocal = mgl64.Mat3{}
		rb.InverseInertiaLocal = mgl64.Mat3{}
	}
}

// SetKinematic switches between kinematic and mass driven behaviour
func (rb *RigidBody) SetKinematic(kinematic bool) {
	rb.Kinematic = kinematic
	rb.refreshType()
	if kinematic {
		rb.Velocity = mgl64.Vec3{}
		rb.AngularVelocity = mgl64.Vec3{}
	}
}

func (rb *RigidBody) refreshType() {
	switch {
	case rb.Kinematic:
		rb.BodyType = BodyTypeKinematic
	case rb.Material.mass <= 0:
		rb.BodyType = BodyTypeStatic
	default:
		rb.BodyType = BodyTypeDynamic
	}
}

// InverseMass is zero for static and kinematic bodies
func (rb *RigidBody) InverseMass() float64 {
	if rb.BodyType != BodyTypeDynamic {
		return 0
	}
	return 1.0 / rb.Material.mass
}

// SetTransform teleports the body
func (rb *RigidBody) SetTransform(position mgl64.Vec3, rotation mgl64.Quat) {
	rb.Transform.Position = position
	rb.Transform.Rotation = rotation.Normalize()
	rb.Transform.InverseRotation = rb.Transform.Rotation.Inverse()
	rb.PreviousTransform = rb.Transform

	rb.Shape.ComputeAABB(rb.Transform)
}

func (rb *RigidBody) SetScale(scale mgl64.Vec3) {
	rb.Transform.Scale = scale
	rb.PreviousTransform.Scale = scale

	rb.Shape.ComputeAABB(rb.Transform)
}

func (rb *RigidBody) TrySleep(dt float64, timeThreshold float64) {
	if rb.BodyType != BodyTypeDynamic || rb.IsSleeping || !rb.DeactivationEnabled {
		return
	}

	if rb.Velocity.Len() < rb.LinearSleepThreshold && rb.AngularVelocity.Len() < rb.AngularSleepThreshold {
		rb.SleepTimer += dt // Incrémente le timer
		if rb.SleepTimer >= timeThreshold {
			rb.Sleep()
		}
	} else {
		rb.SleepTimer = 0.0
	}
}

func (rb *RigidBody) Sleep() {
	rb.IsSleeping = true
	rb.SleepTimer = 0.0

	rb.Shape.ComputeAABB(rb.Transform)
	rb.ClearForces()
	rb.Velocity = mgl64.Vec3{}
	rb.AngularVelocity = mgl64.Vec3{}
}

func (rb *RigidBody) Awake() {
	rb.IsSleeping = false
	rb.SleepTimer = 0.0
}

func (rb *RigidBody) Integrate(dt float64, gravity mgl64.Vec3) {
	if rb.BodyType != BodyTypeDynamic || rb.IsSleeping {
		return
	}

	// Stockage état précédent
	rb.PreviousTransform.Position = rb.Transform.Position
	rb.PreviousTransform.Rotation = rb.Transform.Rotation

	// ========== INTÉGRATION LINÉAIRE ==========
	acceleration := gravity.Add(rb.accumulatedForce.Mul(1.0 / rb.Material.GetMass()))
	rb.Velocity = rb.Velocity.Add(mulComponents(acceleration.Mul(dt), rb.LinearFactor))

	// ========== LINEAR DAMPING ==========
	rb.Velocity = rb.Velocity.Mul(math.Exp(-rb.Material.LinearDamping * dt))
	rb.Transform.Position = rb.Transform.Position.Add(rb.Velocity.Mul(dt))

	// ========== INTÉGRATION ANGULAIRE ==========
	I_inv := rb.GetInverseInertiaWorld()
	angularAccel := I_inv.Mul3x1(rb.accumulatedTorque)
	rb.AngularVelocity = rb.AngularVelocity.Add(mulComponents(angularAccel.Mul(dt), rb.AngularFactor))

	// ========== ANGULAR DAMPING ==========
	rb.AngularVelocity = rb.AngularVelocity.Mul(math.Exp(-rb.Material.AngularDamping * dt))

	// ========== UPDATE QUATERNION ==========
	omegaQuat := mgl64.Quat{V: rb.AngularVelocity, W: 0}
	q_dot := omegaQuat.Mul(rb.Transform.Rotation).Scale(0.5)
	rb.Transform.Rotation = rb.Transform.Rotation.Add(q_dot.Scale(dt)).Normalize()
	rb.Transform.InverseRotation = rb.Transform.Rotation.Inverse()

	rb.PresolveVelocity = rb.Velocity
	rb.PresolveAngularVelocity = rb.AngularVelocity

	rb.Shape.ComputeAABB(rb.Transform)
	rb.ClearForces()
}

func (rb *RigidBody) Update(dt float64) {
	if rb.BodyType != BodyTypeDynamic || rb.IsSleeping {
		return
	}

	// Commit predicted position to actual position
	rb.Velocity = mulComponents(rb.Transform.Position.Sub(rb.PreviousTransform.Position).Mul(1.0/dt), rb.LinearFactor)
	qDelta := rb.Transform.Rotation.Mul(rb.PreviousTransform.Rotation.Conjugate())
	qDelta = qDelta.Normalize()
	if qDelta.W >= 0.0 {
		rb.AngularVelocity = qDelta.V.Mul(2.0 / dt)
	} else {
		rb.AngularVelocity = qDelta.V.Mul(-2.0 / dt)
	}
	rb.AngularVelocity = mulComponents(rb.AngularVelocity, rb.AngularFactor)

	rb.Shape.ComputeAABB(rb.Transform)
}

// AddForce accumulates a force (N) applied at the center of mass until the next integration
func (rb *RigidBody) AddForce(force mgl64.Vec3) {
	if rb.BodyType == BodyTypeDynamic {
		rb.Awake()

		rb.accumulatedForce = rb.accumulatedForce.Add(force)
	}
}

// AddTorque accumulates a torque (N⋅m)
func (rb *RigidBody) AddTorque(torque mgl64.Vec3) {
	if rb.BodyType == BodyTypeDynamic {
		rb.Awake()

		rb.accumulatedTorque = rb.accumulatedTorque.Add(torque)
	}
}

// Méthodes optionnelles pour reset
func (rb *RigidBody) ClearForces() {
	rb.accumulatedForce = mgl64.Vec3{0, 0, 0}
	rb.accumulatedTorque = mgl64.Vec3{0, 0, 0}
}

func (rb *RigidBody) SupportWorld(direction mgl64.Vec3) mgl64.Vec3 {
	localDirection := rb.Transform.InverseRotation.Rotate(direction)
	localSupport := rb.Shape.Support(localDirection)

	return rb.Transform.ToWorld(localSupport)
}

// Inertie en espace monde
func (rb *RigidBody) GetInertiaWorld() mgl64.Mat3 {
	// I_world = R * I_local * R^T
	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InertiaLocal).Mul3(R.Transpose())
}

// Inverse de l'inertie en espace monde
func (rb *RigidBody) GetInverseInertiaWorld() mgl64.Mat3 {
	if rb.BodyType != BodyTypeDynamic {
		return mgl64.Mat3{0, 0, 0, 0, 0, 0, 0, 0, 0}
	}

	// I_world^(-1) = R * I_local^(-1) * R^T
	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InverseInertiaLocal).Mul3(R.Transpose())
}

func mulComponents(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z()}
}

// ApplyLinearCorrection moves a dynamic body, honoring its linear factor
func (rb *RigidBody) ApplyLinearCorrection(delta mgl64.Vec3) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}
	rb.Transform.Position = rb.Transform.Position.Add(mulComponents(delta, rb.LinearFactor))
}

// ApplyAngularCorrection rotates a dynamic body by the small rotation vector delta
// For a small angle δθ, the rotation quaternion is q_delta ≈ [1, δθ/2]
func (rb *RigidBody) ApplyAngularCorrection(delta mgl64.Vec3) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}
	delta = mulComponents(delta, rb.AngularFactor)
	if delta.Len() < 1e-12 {
		return
	}

	qDelta := mgl64.Quat{W: 1.0, V: delta.Mul(0.5)}.Normalize()
	rb.Transform.Rotation = qDelta.Mul(rb.Transform.Rotation).Normalize()
	rb.Transform.InverseRotation = rb.Transform.Rotation.Inverse()
}

// ApplyImpulse changes the velocities of a dynamic body by an impulse applied at r from its center
func (rb *RigidBody) ApplyImpulse(impulse, r mgl64.Vec3) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}
	rb.Velocity = rb.Velocity.Add(mulComponents(impulse.Mul(rb.InverseMass()), rb.LinearFactor))
	rb.ApplyAngularImpulse(r.Cross(impulse))
}

// ApplyAngularImpulse changes the angular velocity of a dynamic body
func (rb *RigidBody) ApplyAngularImpulse(impulse mgl64.Vec3) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}
	deltaOmega := rb.GetInverseInertiaWorld().Mul3x1(impulse)
	rb.AngularVelocity = rb.AngularVelocity.Add(mulComponents(deltaOmega, rb.AngularFactor))
}

// VelocityAt returns the velocity of the body point at r from its center
func (rb *RigidBody) VelocityAt(r mgl64.Vec3) mgl64.Vec3 {
	return rb.Velocity.Add(rb.AngularVelocity.Cross(r))
}
