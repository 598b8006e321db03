package dynamics

import (
	"math"
	"sort"
	"testing"

	"github.com/akmonengine/fracture/actor"
	"github.com/go-gl/mathgl/mgl64"
)

func TestWorldToCell(t *testing.T) {
	grid := NewSpatialGrid(1.0, 16)

	tests := []struct {
		name     string
		position mgl64.Vec3
		expected CellKey
	}{
		{"origine", mgl64.Vec3{0, 0, 0}, CellKey{0, 0, 0}},
		{"positif", mgl64.Vec3{1.5, 2.3, 3.7}, CellKey{1, 2, 3}},
		{"negatif", mgl64.Vec3{-1.5, -2.3, -3.7}, CellKey{-2, -3, -4}},
		{"fractionnaire", mgl64.Vec3{0.5, 0.5, 0.5}, CellKey{0, 0, 0}},
		{"grand", mgl64.Vec3{100.7, -200.3, 50.1}, CellKey{100, -201, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := grid.worldToCell(tt.position)
			if result != tt.expected {
				t.Errorf("worldToCell(%v) = %v, want %v", tt.position, result, tt.expected)
			}
		})
	}
}

func TestHashCell(t *testing.T) {
	grid := NewSpatialGrid(1.0, 16) // 16 cellules, mask = 15

	tests := []struct {
		name     string
		key      CellKey
		expected int
	}{
		{"origine", CellKey{0, 0, 0}, 0},
		{"simple", CellKey{1, 2, 3}, 6},
		{"negatif", CellKey{-1, -2, -3}, 10},
		{"grand", CellKey{100, 200, 300}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := grid.hashCell(tt.key)
			if result < 0 || result >= len(grid.cells) {
				t.Fatalf("hashCell(%v) = %d, out of range [0, %d)", tt.key, result, len(grid.cells))
			}
			if result != tt.expected {
				t.Errorf("hashCell(%v) = %d, want %d", tt.key, result, tt.expected)
			}
		})
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-3, 1}, {0, 1}, {1, 1}, {3, 4}, {16, 16}, {17, 32}, {1000, 1024},
	}

	for _, tt := range tests {
		if got := nextPowerOfTwo(tt.in); got != tt.want {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func createTestBox(position mgl64.Vec3, halfExtents mgl64.Vec3, mass float64) *actor.RigidBody {
	transform := actor.NewTransform()
	transform.Position = position
	rb := actor.NewRigidBody(transform, &actor.Box{HalfExtents: halfExtents}, mass)
	rb.Shape.ComputeAABB(rb.Transform)
	return rb
}

// cellsOf counts the cells of the AABB range holding bodyIndex
func cellsOf(grid *SpatialGrid, bodyIndex int, rb *actor.RigidBody) int {
	minCell := grid.worldToCell(rb.Shape.GetAABB().Min)
	maxCell := grid.worldToCell(rb.Shape.GetAABB().Max)

	count := 0
	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				for _, idx := range grid.cells[grid.hashCell(CellKey{x, y, z})].bodyIndices {
					if idx == bodyIndex {
						count++
						break
					}
				}
			}
		}
	}
	return count
}

func TestInsertBodies(t *testing.T) {
	grid := NewSpatialGrid(1.0, 64)
	bodies := []*actor.RigidBody{
		createTestBox(mgl64.Vec3{1.5, 2.5, 3.5}, mgl64.Vec3{0.4, 0.4, 0.4}, 1),
		createTestBox(mgl64.Vec3{2.0, 2.0, 2.0}, mgl64.Vec3{0.4, 0.4, 0.4}, 1),
		createTestBox(mgl64.Vec3{-3.0, 3.0, 3.0}, mgl64.Vec3{0.4, 0.4, 0.4}, 1),
	}

	for i, body := range bodies {
		grid.Insert(i, body)
	}

	for i, body := range bodies {
		if cellsOf(grid, i, body) == 0 {
			t.Errorf("Body %d not found in any cell after insertion", i)
		}
	}
}

func TestInsertSkipsNonFiniteBodies(t *testing.T) {
	grid := NewSpatialGrid(1.0, 16)
	body := createTestBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0.4, 0.4, 0.4}, 1)
	body.Shape.ComputeAABB(actor.Transform{
		Position: mgl64.Vec3{math.NaN(), 0, 0},
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	})

	grid.Insert(0, body)

	for i, cell := range grid.cells {
		if len(cell.bodyIndices) != 0 {
			t.Errorf("cell %d holds %v, want empty", i, cell.bodyIndices)
		}
	}
}

func TestClear(t *testing.T) {
	grid := NewSpatialGrid(1.0, 16)
	bodies := []*actor.RigidBody{
		createTestBox(mgl64.Vec3{1.0, 1.0, 1.0}, mgl64.Vec3{0.4, 0.4, 0.4}, 1),
		createTestBox(mgl64.Vec3{2.0, 2.0, 2.0}, mgl64.Vec3{0.4, 0.4, 0.4}, 1),
	}

	for i, body := range bodies {
		grid.Insert(i, body)
	}
	if cellsOf(grid, 0, bodies[0]) == 0 {
		t.Fatal("Bodies should be present before clear")
	}

	grid.Clear()

	for _, cell := range grid.cells {
		if len(cell.bodyIndices) != 0 {
			t.Error("Cells should be empty after clear")
		}
	}
}

func TestSortCells(t *testing.T) {
	grid := NewSpatialGrid(1.0, 16)

	grid.cells[0].bodyIndices = append(grid.cells[0].bodyIndices, 5, 2, 8, 1, 9, 3)
	grid.SortCells()

	if !sort.IntsAreSorted(grid.cells[0].bodyIndices) {
		t.Error("Cell indices should be sorted")
	}

	expected := []int{1, 2, 3, 5, 8, 9}
	for i, idx := range grid.cells[0].bodyIndices {
		if idx != expected[i] {
			t.Errorf("Expected index %d at position %d, got %d", expected[i], i, idx)
		}
	}
}

func findPairs(bodies []*actor.RigidBody) []Pair {
	grid := NewSpatialGrid(1.0, 64)
	for i, body := range bodies {
		grid.Insert(i, body)
	}
	grid.SortCells()
	return grid.FindPairs(bodies)
}

func TestFindPairs(t *testing.T) {
	half := mgl64.Vec3{0.5, 0.5, 0.5}

	tests := []struct {
		name     string
		bodies   func() []*actor.RigidBody
		expected []Pair
	}{
		{
			name: "distant bodies",
			bodies: func() []*actor.RigidBody {
				return []*actor.RigidBody{
					createTestBox(mgl64.Vec3{0, 0, 0}, half, 1),
					createTestBox(mgl64.Vec3{10, 10, 10}, half, 1),
				}
			},
			expected: nil,
		},
		{
			name: "overlapping bodies",
			bodies: func() []*actor.RigidBody {
				return []*actor.RigidBody{
					createTestBox(mgl64.Vec3{0, 0, 0}, half, 1),
					createTestBox(mgl64.Vec3{0.8, 0, 0}, half, 1),
				}
			},
			expected: []Pair{{A: 0, B: 1}},
		},
		{
			name: "two static bodies never pair",
			bodies: func() []*actor.RigidBody {
				return []*actor.RigidBody{
					createTestBox(mgl64.Vec3{0, 0, 0}, half, 0),
					createTestBox(mgl64.Vec3{0.5, 0, 0}, half, 0),
				}
			},
			expected: nil,
		},
		{
			name: "static and dynamic bodies pair",
			bodies: func() []*actor.RigidBody {
				return []*actor.RigidBody{
					createTestBox(mgl64.Vec3{0, 0, 0}, half, 0),
					createTestBox(mgl64.Vec3{0.5, 0, 0}, half, 1),
				}
			},
			expected: []Pair{{A: 0, B: 1}},
		},
		{
			name: "two sleeping bodies never pair",
			bodies: func() []*actor.RigidBody {
				a := createTestBox(mgl64.Vec3{0, 0, 0}, half, 1)
				b := createTestBox(mgl64.Vec3{0.5, 0, 0}, half, 1)
				a.Sleep()
				b.Sleep()
				return []*actor.RigidBody{a, b}
			},
			expected: nil,
		},
		{
			name: "chain keeps a deterministic order",
			bodies: func() []*actor.RigidBody {
				return []*actor.RigidBody{
					createTestBox(mgl64.Vec3{0, 0, 0}, half, 1),
					createTestBox(mgl64.Vec3{0.9, 0, 0}, half, 1),
					createTestBox(mgl64.Vec3{1.8, 0, 0}, half, 1),
					createTestBox(mgl64.Vec3{0.45, 0, 0}, half, 1),
				}
			},
			expected: []Pair{{0, 1}, {0, 3}, {1, 2}, {1, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs := findPairs(tt.bodies())
			if len(pairs) != len(tt.expected) {
				t.Fatalf("FindPairs() = %v, want %v", pairs, tt.expected)
			}
			for i := range pairs {
				if pairs[i] != tt.expected[i] {
					t.Errorf("pair %d = %v, want %v", i, pairs[i], tt.expected[i])
				}
			}
		})
	}
}

func TestBoundaryCases(t *testing.T) {
	grid := NewSpatialGrid(1.0, 16)

	// Body exactement sur la frontière entre deux cellules
	body := createTestBox(mgl64.Vec3{1.0, 1.0, 1.0}, mgl64.Vec3{0.5, 0.5, 0.5}, 1)
	grid.Insert(0, body)

	minCell, maxCell := grid.cellRange(body.Shape.GetAABB())
	if maxCell.X-minCell.X != 1 || maxCell.Y-minCell.Y != 1 || maxCell.Z-minCell.Z != 1 {
		t.Errorf("Expected body to span 2 cells in each dimension, got %d, %d, %d",
			maxCell.X-minCell.X, maxCell.Y-minCell.Y, maxCell.Z-minCell.Z)
	}
}

func TestHugeBodyLandsInEveryCell(t *testing.T) {
	grid := NewSpatialGrid(1.0, 16)

	// 11 cellules par axe, plus que la grille
	body := createTestBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{5.0, 5.0, 5.0}, 0)
	if !grid.isHuge(body.Shape.GetAABB()) {
		t.Fatal("expected the body to be huge for a 16 cell grid")
	}

	grid.Insert(0, body)
	for i, cell := range grid.cells {
		if len(cell.bodyIndices) != 1 || cell.bodyIndices[0] != 0 {
			t.Errorf("cell %d holds %v, want [0]", i, cell.bodyIndices)
		}
	}

	// a small body far away still pairs with the huge one
	bodies := []*actor.RigidBody{body, createTestBox(mgl64.Vec3{4, 4, 4}, mgl64.Vec3{0.4, 0.4, 0.4}, 1)}
	grid.Clear()
	for i, b := range bodies {
		grid.Insert(i, b)
	}
	pairs := grid.FindPairs(bodies)
	if len(pairs) != 1 || pairs[0] != (Pair{A: 0, B: 1}) {
		t.Errorf("FindPairs() = %v, want [{0 1}]", pairs)
	}
}

func BenchmarkFindPairs(b *testing.B) {
	grid := NewSpatialGrid(1.0, 1024)
	bodies := make([]*actor.RigidBody, 100)

	for i := range bodies {
		pos := mgl64.Vec3{
			float64(i%10) * 2.0,
			float64((i/10)%10) * 2.0,
			float64((i/100)%10) * 2.0,
		}
		bodies[i] = createTestBox(pos, mgl64.Vec3{0.4, 0.4, 0.4}, 1)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		grid.Clear()
		for j, body := range bodies {
			grid.Insert(j, body)
		}
		grid.SortCells()
		grid.FindPairs(bodies)
	}
}
