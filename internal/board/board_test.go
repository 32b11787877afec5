package board

import "testing"

func TestRevealSafeAndHit(t *testing.T) {
	b, err := NewWithHazards(5, []int{0}) // hazard at (0,0)
	if err != nil {
		t.Fatalf("NewWithHazards: %v", err)
	}

	res, err := b.Reveal(2, 3)
	if err != nil {
		t.Fatalf("Reveal(2,3): %v", err)
	}
	if res != Safe {
		t.Errorf("expected Safe on empty cell, got %v", res)
	}
	if b.Grid[2][3] != CellRevealed {
		t.Errorf("cell (2,3) = %s, want REVEALED", b.Grid[2][3])
	}

	res, err = b.Reveal(0, 0)
	if err != nil {
		t.Fatalf("Reveal(0,0): %v", err)
	}
	if res != Hit {
		t.Errorf("expected Hit on hazard cell, got %v", res)
	}
	if b.Grid[0][0] != CellHit {
		t.Errorf("cell (0,0) = %s, want HIT", b.Grid[0][0])
	}
}

func TestRevealIdempotent(t *testing.T) {
	b, _ := NewWithHazards(5, []int{7}) // hazard at (1,2)

	if res, _ := b.Reveal(1, 2); res != Hit {
		t.Fatalf("first reveal of hazard: got %v, want Hit", res)
	}
	// Replaying the same command must not flip the cell back or re-hit.
	if res, _ := b.Reveal(1, 2); res != Safe {
		t.Errorf("second reveal of hazard: got %v, want Safe", res)
	}
	if b.Grid[1][2] != CellHit {
		t.Errorf("cell state changed on replay: %s", b.Grid[1][2])
	}

	b.Reveal(4, 4)
	if res, _ := b.Reveal(4, 4); res != Safe {
		t.Errorf("re-reveal of safe cell: got %v, want Safe", res)
	}
}

func TestRevealOutOfBounds(t *testing.T) {
	b, _ := NewWithHazards(3, []int{4})

	for _, c := range [][2]int{{-1, 0}, {0, -1}, {3, 0}, {0, 3}} {
		if _, err := b.Reveal(c[0], c[1]); err == nil {
			t.Errorf("Reveal(%d,%d): expected out-of-bounds error", c[0], c[1])
		}
	}
	// Grid untouched after bad coordinates.
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if b.Grid[i][j] != CellHidden {
				t.Fatalf("cell (%d,%d) mutated by rejected reveal", i, j)
			}
		}
	}
}

func TestNewDrawsDistinctHazards(t *testing.T) {
	b, err := New(5, 5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b.HazardCount() != 5 {
		t.Errorf("hazard count = %d, want 5", b.HazardCount())
	}
	if b.N != 5 || len(b.Grid) != 5 || len(b.Grid[0]) != 5 {
		t.Errorf("unexpected grid shape")
	}
}

func TestNewRejectsBadParams(t *testing.T) {
	if _, err := New(0, 1); err == nil {
		t.Errorf("expected error for zero grid size")
	}
	if _, err := New(3, 0); err == nil {
		t.Errorf("expected error for zero hazards")
	}
	if _, err := New(3, 9); err == nil {
		t.Errorf("expected error for all-hazard board")
	}
}
