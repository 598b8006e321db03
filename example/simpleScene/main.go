package main

import (
	"fmt"

	"github.com/akmonengine/fracture/dynamics"
	"github.com/akmonengine/fracture/engine"
	"github.com/go-gl/mathgl/mgl64"
)

// JointDebugger affiche les évènements du monde
type JointDebugger struct {
	step int
}

func (d *JointDebugger) Subscribe(eng *dynamics.Engine) {
	eng.Subscribe(dynamics.CONSTRAINT_BROKEN, d.onBroken)
	eng.Subscribe(dynamics.OVERLAP_ENTER, d.onOverlap)
	eng.Subscribe(dynamics.ON_SLEEP, d.onSleep)
}

func (d *JointDebugger) onBroken(event dynamics.Event) {
	e := event.(dynamics.ConstraintBrokenEvent)
	fmt.Printf("💥 Step %d: joint cassé (impulse=%.3f)\n", d.step, e.Impulse)
}

func (d *JointDebugger) onOverlap(event dynamics.Event) {
	e := event.(dynamics.OverlapEnterEvent)
	fmt.Printf("🎯 Step %d: overlap %v / %v\n", d.step, e.BodyA.Position(), e.BodyB.Position())
}

func (d *JointDebugger) onSleep(event dynamics.Event) {
	e := event.(dynamics.SleepEvent)
	fmt.Printf("💤 Step %d: body endormi à %v\n", d.step, e.Body.Position())
}

// SetupScene creates a cube hanging from a static anchor, above a static ground
func SetupScene(eng *dynamics.Engine) (engine.World, engine.Body, engine.Constraint) {
	world := eng.NewWorld(mgl64.Vec3{0, 0, -9.81}, nil)

	groundShape, _ := eng.NewBoxShape(mgl64.Vec3{10, 10, 0.5})
	ground := eng.NewBody(groundShape, mgl64.Vec3{0, 0, -0.5}, mgl64.QuatIdent())
	ground.SetMass(0)
	world.AddBody(ground, 1)

	anchorShape, _ := eng.NewBoxShape(mgl64.Vec3{0.1, 0.1, 0.1})
	anchor := eng.NewBody(anchorShape, mgl64.Vec3{0, 0, 5}, mgl64.QuatIdent())
	anchor.SetMass(0)
	world.AddBody(anchor, 1)

	// le cube est à l'horizontale du pivot, il part en balancier
	cubeShape, _ := eng.NewBoxShape(mgl64.Vec3{0.5, 0.5, 0.5})
	cube := eng.NewBody(cubeShape, mgl64.Vec3{2, 0, 5}, mgl64.QuatIdent())
	cube.SetMass(4)
	world.AddBody(cube, 1)

	joint, err := eng.NewConstraint(engine.ConstraintPoint, mgl64.Vec3{0, 0, 5}, mgl64.QuatIdent(), anchor, cube)
	if err != nil {
		panic(err)
	}
	joint.SetBreakingThreshold(2)
	world.AddConstraint(joint, true)

	return world, cube, joint
}

func main() {
	fmt.Println("🧪 Balancier cassable sur un point joint")
	fmt.Println("========================================")

	eng := dynamics.NewEngine(dynamics.WithWorkers(2))
	debugger := &JointDebugger{}
	debugger.Subscribe(eng)

	world, cube, joint := SetupScene(eng)
	defer world.Delete()

	const dt float64 = 1.0 / 24.0
	const fixedStep float64 = 1.0 / 60.0
	const maxSteps int = 72

	for step := 0; step < maxSteps; step++ {
		debugger.step = step + 1
		world.Step(dt, 0, fixedStep)

		if step%12 == 0 {
			fmt.Printf("--- ÉTAPE %d ---\n", step+1)
			fmt.Printf("  Position: %v\n", cube.Position())
			fmt.Printf("  Velocity: %v\n", cube.LinearVelocity())
			fmt.Printf("  Joint actif: %v\n", joint.Enabled())
		}
	}

	stats := eng.Stats()
	fmt.Printf("Bodies: %d, shapes: %d, constraints: %d\n", stats.Bodies, stats.Shapes, stats.Constraints)
	fmt.Println("Test terminé!")
}
