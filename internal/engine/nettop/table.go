package nettop

import (
	"errors"
	"iter"
)

// DefaultMaxCells caps the number of cells in one window.
const DefaultMaxCells = 262144

// ErrTableFull is returned by Upsert when a new cell cannot be created.
var ErrTableFull = errors.New("counter table full")

// Cell holds the counters of one key for the current window.
type Cell struct {
	Key     Key
	Packets uint64
	Volume  uint64
}

// Table maps keys to cells. It is not safe for concurrent use; the engine
// guards it with its mutex.
type Table struct {
	cells    map[Key]*Cell
	maxCells int
	dropped  uint64
}

// NewTable returns an empty table holding at most maxCells cells.
func NewTable(maxCells int) *Table {
	if maxCells <= 0 {
		maxCells = DefaultMaxCells
	}
	return &Table{
		cells:    make(map[Key]*Cell, 1024),
		maxCells: maxCells,
	}
}

// Upsert adds one packet of payload bytes to the cell of k, creating the cell
// first if needed. When the table is full the update is dropped and counted.
func (t *Table) Upsert(k Key, payload uint64) error {
	cell, ok := t.cells[k]
	if !ok {
		if len(t.cells) >= t.maxCells {
			t.dropped++
			return ErrTableFull
		}
		cell = &Cell{Key: k}
		t.cells[k] = cell
	}
	cell.Packets++
	cell.Volume += payload
	return nil
}

// Len returns the number of live cells.
func (t *Table) Len() int {
	return len(t.cells)
}

// TakeDropped returns the number of updates dropped since the last call.
func (t *Table) TakeDropped() uint64 {
	d := t.dropped
	t.dropped = 0
	return d
}

// DrainAll empties the table and returns its former cells. The table is
// empty as soon as DrainAll returns, whether or not the sequence is consumed.
func (t *Table) DrainAll() iter.Seq[Cell] {
	cells := t.cells
	t.cells = make(map[Key]*Cell, len(cells))
	return func(yield func(Cell) bool) {
		for _, cell := range cells {
			if !yield(*cell) {
				return
			}
		}
	}
}
