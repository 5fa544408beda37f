package mesh

import "fmt"

// DerefineReport describes one Derefine call. Each merge record reads in
// reverse: the children were removed and the parent became a leaf again.
type DerefineReport struct {
	Merges []SplitRecord
}

// Occurred reports whether any sibling group was merged.
func (r *DerefineReport) Occurred() bool { return len(r.Merges) > 0 }

// Derefine re-merges the given sibling groups, identified by their parent
// handles. A group is eligible only if every sibling is currently a leaf;
// ineligible groups are silently skipped, reported only through the
// absence of a merge record. Invalid handles are errors.
func (m *Mesh) Derefine(parents []ElemID) (*DerefineReport, error) {
	rep := &DerefineReport{}
	mutated := false

	for _, p := range parents {
		if p < 0 || int(p) >= len(m.elems) {
			return nil, fmt.Errorf("derefine: element handle %d out of range", p)
		}
		e := &m.elems[p]
		if e.dead || len(e.Children) == 0 {
			continue
		}
		eligible := true
		for _, c := range e.Children {
			if !m.elems[c].IsLeaf() {
				eligible = false
				break
			}
		}
		if !eligible {
			continue
		}

		children := e.Children
		for _, c := range children {
			m.elems[c].dead = true
		}
		e.Children = nil
		rep.Merges = append(rep.Merges, SplitRecord{Parent: p, Children: children})
		mutated = true
	}

	if mutated {
		m.bump()
	}
	return rep, nil
}

// DerefineSafe filters candidate sibling groups down to those whose merge
// cannot push any interface past the hanging-node depth limit. The check
// is conservative: a group is kept only if no leaf in the vertex
// neighborhood of its children is more than ncLimit levels below the
// parent. ncLimit <= 0 disables the filter.
func (m *Mesh) DerefineSafe(candidates []ElemID, ncLimit int) []ElemID {
	if ncLimit <= 0 {
		return candidates
	}

	vmax := make(map[VertID]int)
	for _, id := range m.Leaves() {
		lvl := m.elems[id].Level
		for _, v := range m.elems[id].Verts {
			if lvl > vmax[v] {
				vmax[v] = lvl
			}
		}
	}

	var safe []ElemID
	for _, p := range candidates {
		if p < 0 || int(p) >= len(m.elems) {
			continue
		}
		e := &m.elems[p]
		if e.dead || len(e.Children) == 0 {
			continue
		}
		ok := true
		for _, c := range e.Children {
			for _, v := range m.elems[c].Verts {
				if vmax[v]-e.Level > ncLimit {
					ok = false
					break
				}
			}
			if !ok {
				break
			}
		}
		if ok {
			safe = append(safe, p)
		}
	}
	return safe
}
