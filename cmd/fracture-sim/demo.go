package main

import (
	"fmt"

	"github.com/akmonengine/fracture"
	"github.com/akmonengine/fracture/engine"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	demoSceneName = "demo-wall"
	wallColumns   = 3
	wallRows      = 3
	shardSize     = 1.0
)

// demo is the scene simulated by the commands.
type demo struct {
	scene      *fracture.Scene
	wall       *fracture.Object
	ground     *fracture.Object
	projectile *fracture.Object
}

// newDemo builds the scene and creates the settings of every body in w.
// The wall stands on the XZ plane, the projectile falls on its top row.
func newDemo(w *fracture.World) *demo {
	d := &demo{scene: w.Scene()}

	d.ground = fracture.NewObject("ground", mgl64.Translate3D(0, 0, -0.5), fracture.NewBoxMesh(mgl64.Vec3{}, mgl64.Vec3{10, 10, 0.5}))
	ground := w.CreateObject(d.ground, fracture.Passive)
	ground.Shape = fracture.ShapeBox

	height := wallRows * shardSize
	d.wall = fracture.NewObject("wall", mgl64.Translate3D(0, 0, height/2), fracture.NewBoxMesh(mgl64.Vec3{}, mgl64.Vec3{wallColumns * shardSize / 2, shardSize / 2, height / 2}))
	wall := w.CreateObject(d.wall, fracture.Active)
	wall.Shape = fracture.ShapeBox
	wall.Mass = float64(wallColumns * wallRows)
	wall.Kinematic = true
	wall.KinematicDeactivation = true

	f := fracture.NewFracture()
	f.Breaking.Threshold = 25
	f.Breaking.Percentage = 50
	d.wall.Fracture = f

	half := mgl64.Vec3{shardSize / 2, shardSize / 2, shardSize / 2}
	grid := make([][]*fracture.Shard, wallRows)
	for row := range wallRows {
		grid[row] = make([]*fracture.Shard, wallColumns)
		for col := range wallColumns {
			centroid := mgl64.Vec3{
				(float64(col) - float64(wallColumns-1)/2) * shardSize,
				0,
				(float64(row) - float64(wallRows-1)/2) * shardSize,
			}
			s := fracture.NewShard(fracture.NewBoxMesh(mgl64.Vec3{}, half), centroid)
			if row == 0 {
				s.GroundWeight = 1
			}
			w.CreateShard(d.wall, s)
			grid[row][col] = s
		}
	}

	for row := range wallRows {
		for col := range wallColumns {
			if col+1 < wallColumns {
				w.ConnectShards(d.wall, fracture.NewShardConstraint(engine.ConstraintFixed), grid[row][col], grid[row][col+1])
			}
			if row+1 < wallRows {
				w.ConnectShards(d.wall, fracture.NewShardConstraint(engine.ConstraintFixed), grid[row][col], grid[row+1][col])
			}
		}
	}

	d.projectile = fracture.NewObject("projectile", mgl64.Translate3D(0, 0, height+2), fracture.NewBoxMesh(mgl64.Vec3{}, mgl64.Vec3{0.25, 0.25, 0.25}))
	projectile := w.CreateObject(d.projectile, fracture.Active)
	projectile.Shape = fracture.ShapeBox
	projectile.Mass = 2
	projectile.KinematicDeactivation = true

	return d
}

// bodyReport is the state of one simulated body.
type bodyReport struct {
	Name      string     `json:"name"`
	Position  [3]float64 `json:"position"`
	Kinematic bool       `json:"kinematic"`
}

// bodies lists the settings of every simulated body, shards by their slot.
func (d *demo) bodies() []bodyReport {
	var reports []bodyReport
	for _, ob := range d.scene.Objects {
		if ob.Fractured() {
			for i, s := range ob.Fracture.Shards {
				if rb := s.RigidBody; rb != nil {
					reports = append(reports, bodyReport{
						Name:      fmt.Sprintf("%s.%d", ob.Name, i),
						Position:  [3]float64(rb.Position),
						Kinematic: rb.Kinematic,
					})
				}
			}
			continue
		}
		if rb := ob.RigidBody; rb != nil {
			reports = append(reports, bodyReport{Name: ob.Name, Position: [3]float64(rb.Position), Kinematic: rb.Kinematic})
		}
	}
	return reports
}

// brokenConstraints counts the shard constraints of the wall not holding
// anymore.
func (d *demo) brokenConstraints() int {
	broken := 0
	for _, c := range d.wall.Fracture.Constraints {
		if h := c.Handle(); (h != nil && !h.Enabled()) || !c.Enabled {
			broken++
		}
	}
	return broken
}
