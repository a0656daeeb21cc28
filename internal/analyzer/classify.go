package analyzer

// TableRelations partitions the references touching one table
type TableRelations struct {
	// To holds references whose foreign key lives on the table
	To []Ref
	// By holds references from other tables pointing at the table
	By []Ref
	// Self holds references from the table to itself
	Self []Ref
}

// TableRefs classifies every reference touching the table with the given
// identity. References are compared after alias resolution.
func (m *Model) TableRefs(key TableKey) TableRelations {
	var rels TableRelations

	for _, r := range m.Refs {
		lhs := m.Indexer.ReferRefAlias(r.LHS)
		rhs := m.Indexer.ReferRefAlias(r.RHS)
		isLHS := lhs.Schema == key.Schema && lhs.Table == key.Name
		isRHS := rhs.Schema == key.Schema && rhs.Table == key.Name

		switch {
		case isLHS && isRHS:
			rels.Self = append(rels.Self, r)
		case isLHS:
			rels.To = append(rels.To, r)
		case isRHS:
			rels.By = append(rels.By, r)
		}
	}

	return rels
}
