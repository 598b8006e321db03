package fracture

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// distAngle measures the distance between two bodies and the angle of their
// relative orientation.
func distAngle(a, b *RigidBody) (float64, float64) {
	if a == nil || b == nil {
		return 0, 0
	}

	dist := a.Position.Sub(b.Position).Len()
	diff := a.Orientation.Normalize().Inverse().Mul(b.Orientation.Normalize())
	angle := 2 * math.Acos(mgl64.Clamp(diff.W, -1, 1))

	return dist, angle
}

// captureRest stores the current distance and angle as the rest state.
func (c *Constraint) captureRest(a, b *RigidBody) {
	c.StartDistance, c.StartAngle = distAngle(a, b)
}

// maxConstraintMass is the heaviest pair of endpoint masses over the
// constraints of a fracture.
func maxConstraintMass(f *Fracture) float64 {
	maxMass := 0.0
	for _, c := range f.Constraints {
		_, _, a, b := f.shardBodies(c)
		if a == nil || b == nil {
			continue
		}
		maxMass = math.Max(maxMass, a.Mass+b.Mass)
	}
	return maxMass
}

// constraintThreshold scales the configured threshold by the endpoint mass of
// a constraint relative to the heaviest one, when the thresholds depend on
// mass. ok is false when nothing should be applied.
func constraintThreshold(maxMass, conMass float64, settings BreakingSettings) (threshold float64, ok bool) {
	if !settings.MassDependent {
		return settings.Threshold, true
	}
	if maxMass == 0 {
		return 0, false
	}
	return conMass / maxMass * settings.Threshold, true
}

// minConstraintDistance is the shortest distance between the centroids of
// two joined shards, math.MaxFloat64 without constraints.
func minConstraintDistance(f *Fracture) float64 {
	minDist := math.MaxFloat64
	for _, c := range f.Constraints {
		s1, s2, a, b := f.shardBodies(c)
		if a == nil || b == nil {
			continue
		}
		minDist = math.Min(minDist, s1.Centroid.Sub(s2.Centroid).Len())
	}
	return minDist
}

// MinConstraintDistance is the shortest distance between two joined shards
// of ob, math.MaxFloat64 when ob has none.
func MinConstraintDistance(ob *Object) float64 {
	if ob == nil || ob.Fracture == nil {
		return math.MaxFloat64
	}
	return minConstraintDistance(ob.Fracture)
}

// breakByPercentage disables every constraint of shard once the share of its
// disabled constraints reaches the breaking percentage. It reports whether
// any constraint was still enabled.
func (w *World) breakByPercentage(f *Fracture, s *Shard) bool {
	settings := f.Breaking
	percentage := settings.Percentage
	if settings.PercentageWeighted {
		percentage *= s.ThresholdWeight
	}
	if percentage <= 0 || len(s.constraints) == 0 {
		return false
	}

	broken := 0
	for _, c := range s.constraints {
		if c.disabled() {
			broken++
		}
	}
	if float64(broken)/float64(len(s.constraints))*100 < percentage {
		return false
	}

	disabled := 0
	for _, c := range s.constraints {
		if !c.Enabled {
			continue
		}
		c.disable()
		disabled++
	}
	if disabled == 0 {
		return false
	}
	w.logger.Debug("constraints broken by percentage", "shard", s.ID, "constraints", len(s.constraints), "broken", broken)

	return true
}

// breakByDistanceAngle disables c when its endpoints moved or turned away
// from their rest state by more than the breaking distance or angle.
func (w *World) breakByDistanceAngle(f *Fracture, c *Constraint) bool {
	s1, s2, a, b := f.shardBodies(c)
	if a == nil || b == nil {
		return false
	}

	settings := f.Breaking
	weight := math.Min(s1.ThresholdWeight, s2.ThresholdWeight)
	useAngle := settings.Angle > 0 || (settings.AngleWeighted && weight > 0)
	useDistance := settings.Distance > 0 || (settings.DistanceWeighted && weight > 0)
	if !useAngle && !useDistance {
		return false
	}

	breakingAngle, breakingDistance := settings.Angle, settings.Distance
	if settings.AngleWeighted {
		breakingAngle *= weight
	}
	if settings.DistanceWeighted {
		breakingDistance *= weight
	}

	dist, angle := distAngle(a, b)
	angleDiff := math.Abs(angle - c.StartAngle)
	distDiff := math.Abs(dist - c.StartDistance)

	if (useAngle && angleDiff > breakingAngle) || (useDistance && distDiff > breakingDistance) {
		c.disable()
		w.logger.Debug("constraint broken by deviation", "distance", distDiff, "angle", angleDiff)
		return true
	}
	return false
}

// updateBreaking refreshes the threshold and the solver iterations of a shard
// constraint, then applies the deviation rule. The deviation rule is skipped
// on rebuild, the rest state is captured again then.
func (w *World) updateBreaking(f *Fracture, c *Constraint, maxMass float64, rebuild bool) {
	iterations := f.Breaking.SolverIterations
	if iterations == 0 {
		iterations = w.Settings.SolverIterations
	}
	if iterations > 0 {
		c.OverrideIterations = true
		c.SolverIterations = iterations
	}

	if f.Breaking.MassDependent {
		_, _, a, b := f.shardBodies(c)
		if a != nil && b != nil {
			if threshold, ok := constraintThreshold(maxMass, a.Mass+b.Mass, f.Breaking); ok && threshold != c.BreakingThreshold {
				c.BreakingThreshold = threshold
				if c.handle != nil && c.UseBreaking {
					c.handle.SetBreakingThreshold(threshold)
				}
			}
		}
	}

	if !rebuild {
		w.breakByDistanceAngle(f, c)
	}
}
