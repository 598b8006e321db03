package dynamics

import (
	"math"
	"sort"

	"github.com/akmonengine/fracture/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// ============================================================================
// Types
// ============================================================================

// CellKey - Coordonnées d'une cellule dans l'espace 3D
type CellKey struct {
	X, Y, Z int
}

// Cell - Conteneur d'indices de bodies dans une cellule
type Cell struct {
	bodyIndices []int
}

// Pair - Indices de deux bodies dont les AABB se chevauchent, A < B
type Pair struct {
	A, B int
}

// SpatialGrid - Grille spatiale uniforme avec hashing pour broad phase
type SpatialGrid struct {
	cellSize float64
	cells    []Cell
	cellMask int
	// maxSpan bounds the number of cells a single body may cover per axis
	maxSpan int
}

// ============================================================================
// Constructeur
// ============================================================================

// NewSpatialGrid - Crée une nouvelle grille spatiale
func NewSpatialGrid(cellSize float64, numCells int) *SpatialGrid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].bodyIndices = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
		maxSpan:  64,
	}
}

// nextPowerOfTwo - Arrondit à la puissance de 2 supérieure
func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// cellRange returns the cells covered by an AABB. Huge bodies (a ground
// mesh) are clamped so their insertion stays bounded, they still land in
// every hashed bucket once the span exceeds the grid.
func (sg *SpatialGrid) cellRange(aabb actor.AABB) (CellKey, CellKey) {
	minCell := sg.worldToCell(aabb.Min)
	maxCell := sg.worldToCell(aabb.Max)

	if maxCell.X-minCell.X > sg.maxSpan {
		maxCell.X = minCell.X + sg.maxSpan
	}
	if maxCell.Y-minCell.Y > sg.maxSpan {
		maxCell.Y = minCell.Y + sg.maxSpan
	}
	if maxCell.Z-minCell.Z > sg.maxSpan {
		maxCell.Z = minCell.Z + sg.maxSpan
	}
	return minCell, maxCell
}

// Insert - Insère un body dans toutes les cellules qu'il occupe
func (sg *SpatialGrid) Insert(bodyIndex int, body *actor.RigidBody) {
	aabb := body.Shape.GetAABB()
	if !aabb.IsFinite() {
		return
	}
	if sg.isHuge(aabb) {
		for i := range sg.cells {
			sg.cells[i].bodyIndices = append(sg.cells[i].bodyIndices, bodyIndex)
		}
		return
	}

	minCell, maxCell := sg.cellRange(aabb)
	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				cellIdx := sg.hashCell(CellKey{x, y, z})

				sg.cells[cellIdx].bodyIndices = append(
					sg.cells[cellIdx].bodyIndices,
					bodyIndex,
				)
			}
		}
	}
}

// isHuge reports whether the AABB covers more cells than the grid holds
func (sg *SpatialGrid) isHuge(aabb actor.AABB) bool {
	minCell := sg.worldToCell(aabb.Min)
	maxCell := sg.worldToCell(aabb.Max)
	span := (maxCell.X - minCell.X + 1) * (maxCell.Y - minCell.Y + 1) * (maxCell.Z - minCell.Z + 1)
	return span < 0 || span > len(sg.cells) || maxCell.X-minCell.X > sg.maxSpan ||
		maxCell.Y-minCell.Y > sg.maxSpan || maxCell.Z-minCell.Z > sg.maxSpan
}

func (sg *SpatialGrid) Clear() {
	for i := range sg.cells {
		sg.cells[i].bodyIndices = sg.cells[i].bodyIndices[:0]
	}
}

func (sg *SpatialGrid) SortCells() {
	for i := range sg.cells {
		if len(sg.cells[i].bodyIndices) > 1 {
			sort.Ints(sg.cells[i].bodyIndices)
		}
	}
}

// FindPairs - Version séquentielle, ordre déterministe (A croissant puis B)
func (sg *SpatialGrid) FindPairs(bodies []*actor.RigidBody) []Pair {
	pairs := make([]Pair, 0, len(bodies)/2)
	seen := make([]bool, len(bodies))

	// ========== BOUCLE SUR BODIES ==========
	for bodyIdx := 0; bodyIdx < len(bodies); bodyIdx++ {
		bodyA := bodies[bodyIdx]
		aabbA := bodyA.Shape.GetAABB()
		if !aabbA.IsFinite() {
			continue
		}
		clear(seen)
		candidates := make([]int, 0, 8)

		visit := func(cellIdx int) {
			// Tester contre tous les bodies dans cette cellule
			for _, otherIdx := range sg.cells[cellIdx].bodyIndices {
				// Évite doublons (A,B) et (B,A)
				if otherIdx <= bodyIdx || seen[otherIdx] {
					continue
				}
				seen[otherIdx] = true

				bodyB := bodies[otherIdx]
				if bodyA.BodyType == actor.BodyTypeStatic && bodyB.BodyType == actor.BodyTypeStatic {
					continue
				}
				if bodyA.IsSleeping && bodyB.IsSleeping {
					continue
				}
				if aabbA.Overlaps(bodyB.Shape.GetAABB()) {
					candidates = append(candidates, otherIdx)
				}
			}
		}

		if sg.isHuge(aabbA) {
			for cellIdx := range sg.cells {
				visit(cellIdx)
			}
		} else {
			minCell, maxCell := sg.cellRange(aabbA)
			for x := minCell.X; x <= maxCell.X; x++ {
				for y := minCell.Y; y <= maxCell.Y; y++ {
					for z := minCell.Z; z <= maxCell.Z; z++ {
						visit(sg.hashCell(CellKey{x, y, z}))
					}
				}
			}
		}

		// ========== ORDRE DÉTERMINISTE ==========
		sort.Ints(candidates)
		for _, otherIdx := range candidates {
			pairs = append(pairs, Pair{A: bodyIdx, B: otherIdx})
		}
	}

	return pairs
}

// worldToCell - Convertit une position monde en coordonnées de cellule
func (sg *SpatialGrid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / sg.cellSize)),
		Y: int(math.Floor(pos.Y() / sg.cellSize)),
		Z: int(math.Floor(pos.Z() / sg.cellSize)),
	}
}

// hashCell - Hash une cellule vers un index dans l'array
func (sg *SpatialGrid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & sg.cellMask
}
