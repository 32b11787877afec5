package board

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand"
)

// CellState is the visible state of a single cell.
type CellState string

const (
	CellHidden   CellState = "HIDDEN"
	CellRevealed CellState = "REVEALED"
	CellHit      CellState = "HIT"
)

// Result of revealing a cell.
type Result int

const (
	Safe Result = iota
	Hit
)

// Board is an n×n playfield with a fixed set of hazard positions.
// Hazard coordinates are linearized as x*n + y and are never serialized;
// clients only ever see cell states.
type Board struct {
	N       int           `json:"n"`
	Grid    [][]CellState `json:"grid"`
	hazards map[int]struct{}
}

// New creates an all-hidden n×n board with k distinct hazards drawn
// uniformly from [0, n*n). The PRNG is seeded from crypto/rand; boards are
// not required to be reproducible across instances.
func New(n, k int) (*Board, error) {
	if n <= 0 {
		return nil, fmt.Errorf("board: grid size must be positive, got %d", n)
	}
	if k <= 0 || k >= n*n {
		return nil, fmt.Errorf("board: hazard count %d out of range (0, %d)", k, n*n)
	}

	var seed [8]byte
	rand.Read(seed[:])
	rng := mrand.New(mrand.NewSource(int64(binary.BigEndian.Uint64(seed[:]))))

	hazards := make(map[int]struct{}, k)
	for len(hazards) < k {
		hazards[rng.Intn(n*n)] = struct{}{}
	}

	return &Board{
		N:       n,
		Grid:    newGrid(n),
		hazards: hazards,
	}, nil
}

// NewWithHazards creates a board with an explicit hazard set. Used by tests
// and by rematch reconstruction paths that need a known layout.
func NewWithHazards(n int, positions []int) (*Board, error) {
	if n <= 0 {
		return nil, fmt.Errorf("board: grid size must be positive, got %d", n)
	}
	hazards := make(map[int]struct{}, len(positions))
	for _, p := range positions {
		if p < 0 || p >= n*n {
			return nil, fmt.Errorf("board: hazard position %d outside grid", p)
		}
		hazards[p] = struct{}{}
	}
	if len(hazards) == 0 || len(hazards) >= n*n {
		return nil, fmt.Errorf("board: hazard count %d out of range (0, %d)", len(hazards), n*n)
	}
	return &Board{
		N:       n,
		Grid:    newGrid(n),
		hazards: hazards,
	}, nil
}

func newGrid(n int) [][]CellState {
	grid := make([][]CellState, n)
	for i := range grid {
		row := make([]CellState, n)
		for j := range row {
			row[j] = CellHidden
		}
		grid[i] = row
	}
	return grid
}

// Reveal uncovers the cell at (x, y). Revealing an already-uncovered cell
// is a no-op returning Safe, so replaying the same command cannot corrupt
// the grid.
func (b *Board) Reveal(x, y int) (Result, error) {
	if x < 0 || x >= b.N || y < 0 || y >= b.N {
		return Safe, fmt.Errorf("board: cell (%d,%d) outside %dx%d grid", x, y, b.N, b.N)
	}
	if b.Grid[x][y] != CellHidden {
		return Safe, nil
	}
	if _, ok := b.hazards[x*b.N+y]; ok {
		b.Grid[x][y] = CellHit
		return Hit, nil
	}
	b.Grid[x][y] = CellRevealed
	return Safe, nil
}

// HazardCount reports the number of hazards, used when reconstructing an
// identical-shape board for a rematch.
func (b *Board) HazardCount() int {
	return len(b.hazards)
}
