package result

import (
	"github.com/skiffdb/skiff/common"
)

// distinctIndex maps a row's visible column fingerprint to the canonical row.
// Iteration order is insertion order, which fixes the order of an unsorted
// distinct result instead of leaving it to map iteration.
type distinctIndex struct {
	index map[string]int
	slots []distinctSlot
	live  int
}

type distinctSlot struct {
	row  common.Row
	dead bool
}

func newDistinctIndex() *distinctIndex {
	return &distinctIndex{index: make(map[string]int)}
}

// put inserts row under fingerprint. A row with the same fingerprint keeps its
// original slot, so re-adding a duplicate does not change iteration order.
func (d *distinctIndex) put(fingerprint string, row common.Row) {
	if slot, ok := d.index[fingerprint]; ok {
		d.slots[slot].row = row
		return
	}
	d.index[fingerprint] = len(d.slots)
	d.slots = append(d.slots, distinctSlot{row: row})
	d.live++
}

func (d *distinctIndex) get(fingerprint string) (common.Row, bool) {
	slot, ok := d.index[fingerprint]
	if !ok {
		return common.Row{}, false
	}
	return d.slots[slot].row, true
}

// remove deletes the row under fingerprint if present. The slot is tombstoned
// rather than compacted.
func (d *distinctIndex) remove(fingerprint string) bool {
	slot, ok := d.index[fingerprint]
	if !ok {
		return false
	}
	delete(d.index, fingerprint)
	d.slots[slot].dead = true
	d.live--
	return true
}

func (d *distinctIndex) size() int {
	return d.live
}

// rows returns the live rows in insertion order.
func (d *distinctIndex) rows() []common.Row {
	rows := make([]common.Row, 0, d.live)
	for _, slot := range d.slots {
		if !slot.dead {
			rows = append(rows, slot.row)
		}
	}
	return rows
}

// rowFingerprint is the dedup key for a row: the encoding of its visible
// column prefix. Two rows fingerprint equal iff their visible values compare
// equal pairwise.
func rowFingerprint(row common.Row, colTypes []common.ColumnType, visibleColumnCount int) (string, error) {
	visible := row.TrimColumns(visibleColumnCount)
	buffer, err := common.EncodeRow(visible, colTypes[:visibleColumnCount], nil)
	if err != nil {
		return "", err
	}
	return common.ByteSliceToStringZeroCopy(buffer), nil
}
