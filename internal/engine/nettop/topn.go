package nettop

import (
	"cmp"
	"iter"
	"slices"
)

// RankFunc gives the value cells are ranked by.
type RankFunc func(Cell) uint64

func ByPackets(c Cell) uint64 { return c.Packets }

func ByVolume(c Cell) uint64 { return c.Volume }

// Select keeps the n highest ranked cells of a single pass over cells and
// returns them in descending rank order. Memory stays bounded by n: once n
// candidates are held, a cell only gets in by replacing the current minimum.
// Equal ranks are ordered by volume, then packets.
func Select(cells iter.Seq[Cell], n int, rank RankFunc) []Cell {
	if n <= 0 {
		return nil
	}
	top := make([]Cell, 0, min(n, 256))
	minIdx := -1
	var minRank uint64
	for cell := range cells {
		if len(top) < n {
			top = append(top, cell)
			if len(top) == n {
				minIdx, minRank = minimum(top, rank)
			}
			continue
		}
		if rank(cell) > minRank {
			top[minIdx] = cell
			minIdx, minRank = minimum(top, rank)
		}
	}

	slices.SortFunc(top, func(a, b Cell) int {
		if c := cmp.Compare(rank(b), rank(a)); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Volume, a.Volume); c != 0 {
			return c
		}
		return cmp.Compare(b.Packets, a.Packets)
	})
	return top
}

func minimum(cells []Cell, rank RankFunc) (int, uint64) {
	idx, low := 0, rank(cells[0])
	for i := 1; i < len(cells); i++ {
		if r := rank(cells[i]); r < low {
			idx, low = i, r
		}
	}
	return idx, low
}
