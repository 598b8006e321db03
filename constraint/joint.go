package constraint

import (
	"math"

	"github.com/akmonengine/fracture/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// JointType lists the joint kinds, in the same order as engine.ConstraintType
type JointType int

const (
	JointPoint JointType = iota
	JointFixed
	JointHinge
	JointSlider
	JointPiston
	Joint6DOF
	Joint6DOFSpring
	JointMotor
)

// Axis indices: 0..2 linear X/Y/Z, 3..5 angular X/Y/Z
const axisCount = 6

// Limit bounds one axis of the joint frame.
// Lower > Upper leaves the axis free, Lower == Upper locks it.
type Limit struct {
	Lower, Upper float64
}

var (
	free   = Limit{Lower: 0, Upper: -1}
	locked = Limit{}
)

func (l Limit) IsFree() bool {
	return l.Lower > l.Upper
}

// error returns how far value lies outside the limit
func (l Limit) error(value float64) float64 {
	switch {
	case l.IsFree():
		return 0
	case value < l.Lower:
		return value - l.Lower
	case value > l.Upper:
		return value - l.Upper
	}
	return 0
}

type Spring struct {
	Enabled     bool
	Stiffness   float64
	Damping     float64
	Equilibrium float64
}

type Motor struct {
	Enabled        bool
	MaxImpulse     float64
	TargetVelocity float64
}

// Joint is a 6 degrees of freedom XPBD joint. Every joint type is a preset of
// axis limits, springs and motors.
type Joint struct {
	Type  JointType
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody

	// Anchor and frame in each body local space
	LocalAnchorA mgl64.Vec3
	LocalAnchorB mgl64.Vec3
	LocalFrameA  mgl64.Quat
	LocalFrameB  mgl64.Quat

	Limits       [axisCount]Limit
	Springs      [axisCount]Spring
	LinearMotor  Motor
	AngularMotor Motor

	Enabled bool
	// Broken is set when the joint disabled itself
	Broken            bool
	BreakingThreshold float64
	// Iterations overrides the world solver iterations when > 0
	Iterations int

	appliedImpulse float64
}

// NewJoint joins a and b at a world space pivot with a world space frame
func NewJoint(jointType JointType, pivot mgl64.Vec3, frame mgl64.Quat, a, b *actor.RigidBody) *Joint {
	frame = frame.Normalize()
	j := &Joint{
		Type:              jointType,
		BodyA:             a,
		BodyB:             b,
		LocalAnchorA:      a.Transform.InverseRotation.Rotate(pivot.Sub(a.Transform.Position)),
		LocalAnchorB:      b.Transform.InverseRotation.Rotate(pivot.Sub(b.Transform.Position)),
		LocalFrameA:       a.Transform.InverseRotation.Mul(frame),
		LocalFrameB:       b.Transform.InverseRotation.Mul(frame),
		Enabled:           true,
		BreakingThreshold: math.MaxFloat64,
		Iterations:        -1,
	}

	for i := range j.Limits {
		j.Limits[i] = locked
	}
	switch jointType {
	case JointPoint:
		j.Limits[3], j.Limits[4], j.Limits[5] = free, free, free
	case JointHinge:
		j.Limits[5] = free
	case JointSlider:
		j.Limits[0] = free
	case JointPiston:
		j.Limits[0], j.Limits[3] = free, free
	case JointMotor:
		for i := range j.Limits {
			j.Limits[i] = free
		}
	}

	return j
}

// anchors returns the lever arms and world anchors of both bodies
func (j *Joint) anchors() (rA, rB, pA, pB mgl64.Vec3) {
	rA = j.BodyA.Transform.Rotation.Rotate(j.LocalAnchorA)
	rB = j.BodyB.Transform.Rotation.Rotate(j.LocalAnchorB)
	return rA, rB, j.BodyA.Transform.Position.Add(rA), j.BodyB.Transform.Position.Add(rB)
}

func (j *Joint) frames() (mgl64.Quat, mgl64.Quat) {
	return j.BodyA.Transform.Rotation.Mul(j.LocalFrameA).Normalize(),
		j.BodyB.Transform.Rotation.Mul(j.LocalFrameB).Normalize()
}

// Offsets returns the linear offset of B in the frame of A and the relative rotation vector
func (j *Joint) Offsets() (linear, angular mgl64.Vec3) {
	_, _, pA, pB := j.anchors()
	frameA, frameB := j.frames()

	linear = frameA.Inverse().Rotate(pB.Sub(pA))
	angular = rotationVector(frameA.Inverse().Mul(frameB))
	return linear, angular
}

// SetEquilibrium captures the current offsets as spring rest positions
func (j *Joint) SetEquilibrium() {
	linear, angular := j.Offsets()
	for i := 0; i < 3; i++ {
		j.Springs[i].Equilibrium = linear[i]
		j.Springs[i+3].Equilibrium = angular[i]
	}
}

func (j *Joint) active() bool {
	if !j.Enabled {
		return false
	}
	if j.BodyA.InverseMass() == 0 && j.BodyB.InverseMass() == 0 {
		return false
	}
	if j.BodyA.IsSleeping && j.BodyB.IsSleeping {
		return false
	}

	// An awake dynamic body wakes up its sleeping partner
	if j.BodyA.IsSleeping && j.BodyB.BodyType == actor.BodyTypeDynamic {
		j.BodyA.Awake()
	}
	if j.BodyB.IsSleeping && j.BodyA.BodyType == actor.BodyTypeDynamic {
		j.BodyB.Awake()
	}
	return true
}

// BeginStep resets the impulse measured over a sub-step
func (j *Joint) BeginStep() {
	j.appliedImpulse = 0
}

// SolvePosition runs one XPBD iteration over the 6 axes
func (j *Joint) SolvePosition(dt float64) {
	if !j.active() {
		return
	}

	// ========== LINEAR AXES ==========
	rA, rB, pA, pB := j.anchors()
	frameA, _ := j.frames()
	local := frameA.Inverse().Rotate(pB.Sub(pA))

	var correction mgl64.Vec3
	for i := 0; i < 3; i++ {
		correction[i] = j.Limits[i].error(local[i])
	}
	lambda := applyLinear(j.BodyA, j.BodyB, rA, rB, frameA.Rotate(correction), DefaultCompliance, dt)

	// Springs pull toward the equilibrium with a compliance of 1/stiffness
	for i := 0; i < 3; i++ {
		spring := j.Springs[i]
		if !spring.Enabled || spring.Stiffness <= 0 {
			continue
		}
		rA, rB, pA, pB = j.anchors()
		offset := frameA.Inverse().Rotate(pB.Sub(pA))[i] - spring.Equilibrium
		axis := frameA.Rotate(unitAxis(i))
		applyLinear(j.BodyA, j.BodyB, rA, rB, axis.Mul(offset), 1.0/spring.Stiffness, dt)
	}

	// ========== ANGULAR AXES ==========
	frameA, frameB := j.frames()
	relative := rotationVector(frameA.Inverse().Mul(frameB))

	var angularCorrection mgl64.Vec3
	for i := 0; i < 3; i++ {
		angularCorrection[i] = j.Limits[i+3].error(relative[i])
	}
	angularLambda := applyAngular(j.BodyA, j.BodyB, frameA.Rotate(angularCorrection), DefaultCompliance, dt)

	j.appliedImpulse += (lambda + angularLambda) / dt
}

// SolveVelocity drives motors and damps springs
func (j *Joint) SolveVelocity(dt float64) {
	if !j.active() {
		return
	}

	rA, rB, _, _ := j.anchors()
	frameA, _ := j.frames()
	axisX := frameA.Rotate(mgl64.Vec3{1, 0, 0})

	if j.LinearMotor.Enabled {
		j.driveLinear(rA, rB, axisX, j.LinearMotor.TargetVelocity, j.LinearMotor.MaxImpulse)
	}
	if j.AngularMotor.Enabled {
		j.driveAngular(axisX, j.AngularMotor.TargetVelocity, j.AngularMotor.MaxImpulse)
	}

	for i := 0; i < 3; i++ {
		spring := j.Springs[i]
		if !spring.Enabled || spring.Damping <= 0 {
			continue
		}
		axis := frameA.Rotate(unitAxis(i))
		vRel := j.BodyB.VelocityAt(rB).Sub(j.BodyA.VelocityAt(rA)).Dot(axis)
		j.driveLinear(rA, rB, axis, vRel*(1-math.Min(spring.Damping*dt, 1)), math.MaxFloat64)
	}

	clampSmallVelocities(j.BodyA)
	clampSmallVelocities(j.BodyB)
}

// driveLinear pushes the relative velocity along axis toward target
func (j *Joint) driveLinear(rA, rB, axis mgl64.Vec3, target, maxImpulse float64) {
	totalWeight := linearWeight(j.BodyA, rA, axis) + linearWeight(j.BodyB, rB, axis)
	if totalWeight <= 1e-12 {
		return
	}

	vRel := j.BodyB.VelocityAt(rB).Sub(j.BodyA.VelocityAt(rA)).Dot(axis)
	impulse := clamp((target-vRel)/totalWeight, maxImpulse)

	j.BodyA.ApplyImpulse(axis.Mul(-impulse), rA)
	j.BodyB.ApplyImpulse(axis.Mul(impulse), rB)
}

// driveAngular pushes the relative angular velocity around axis toward target
func (j *Joint) driveAngular(axis mgl64.Vec3, target, maxImpulse float64) {
	totalWeight := angularWeight(j.BodyA, axis) + angularWeight(j.BodyB, axis)
	if totalWeight <= 1e-12 {
		return
	}

	omegaRel := j.BodyB.AngularVelocity.Sub(j.BodyA.AngularVelocity).Dot(axis)
	impulse := clamp((target-omegaRel)/totalWeight, maxImpulse)

	j.BodyA.ApplyAngularImpulse(axis.Mul(-impulse))
	j.BodyB.ApplyAngularImpulse(axis.Mul(impulse))
}

// CheckBreak disables the joint when the impulse of the last sub-step exceeds
// its threshold. Returns true when the joint just broke.
func (j *Joint) CheckBreak() bool {
	if !j.Enabled || j.BreakingThreshold == math.MaxFloat64 {
		return false
	}
	if j.appliedImpulse > j.BreakingThreshold {
		j.Enabled = false
		j.Broken = true
		return true
	}
	return false
}

// AppliedImpulse of the last sub-step
func (j *Joint) AppliedImpulse() float64 {
	return j.appliedImpulse
}

func unitAxis(i int) mgl64.Vec3 {
	var axis mgl64.Vec3
	axis[i] = 1
	return axis
}

func clamp(value, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, value))
}

// rotationVector converts a quaternion to axis * angle, shortest arc
func rotationVector(q mgl64.Quat) mgl64.Vec3 {
	if q.W < 0 {
		q = q.Scale(-1)
	}
	s := q.V.Len()
	if s < 1e-12 {
		return q.V.Mul(2)
	}
	angle := 2 * math.Atan2(s, q.W)
	return q.V.Mul(angle / s)
}
