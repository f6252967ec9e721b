package grid

import (
	"sort"

	"github.com/imgajeed76/invgrid/internal/record"
)

// HandleRowSelection checks or unchecks one row and notifies
// OnSelectionChange.
func (v *View) HandleRowSelection(id any, checked bool) {
	key := record.NormalizeID(id)
	if key.IsZero() {
		return
	}
	v.setSelected(key, checked)
	v.notifySelection()
}

// SelectAll checks or unchecks every row rendered on the current page.
// Rows on other pages keep their state.
func (v *View) SelectAll(checked bool) {
	for _, row := range v.Page().Rows {
		v.setSelected(row.ID, checked)
	}
	v.render()
	v.notifySelection()
}

// ClearSelection unchecks every row on every page.
func (v *View) ClearSelection() {
	v.selected = make(map[record.ID]uint64)
	v.render()
	v.notifySelection()
}

func (v *View) setSelected(id record.ID, checked bool) {
	if !checked {
		delete(v.selected, id)
		return
	}
	if _, ok := v.selected[id]; ok {
		return
	}
	v.selSeq++
	v.selected[id] = v.selSeq
}

// IsSelected reports whether id is in the selection set.
func (v *View) IsSelected(id any) bool {
	_, ok := v.selected[record.NormalizeID(id)]
	return ok
}

// SelectedIDs returns the selection set in the order rows were checked.
// Ids whose records have since disappeared are included.
func (v *View) SelectedIDs() []record.ID {
	ids := make([]record.ID, 0, len(v.selected))
	for id := range v.selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return v.selected[ids[i]] < v.selected[ids[j]] })
	return ids
}

// SelectedRows resolves the selection against canonical data. Stale ids are
// dropped from the result but stay in the set.
func (v *View) SelectedRows() []record.Record {
	ids := v.SelectedIDs()
	out := make([]record.Record, 0, len(ids))
	for _, id := range ids {
		if r, ok := v.GetRowByID(id); ok {
			out = append(out, r)
		}
	}
	return out
}

func (v *View) notifySelection() {
	if v.opts.OnSelectionChange != nil {
		v.opts.OnSelectionChange(v.SelectedRows())
	}
}
