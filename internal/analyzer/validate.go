package analyzer

import (
	"github.com/tordrt/dbmlorm/internal/ast"
)

// ValidateRefs checks every reference in declaration order against the
// resolved tables and stops at the first violation.
func ValidateRefs(refs []Ref, tables []Table, ix *Indexer) error {
	byKey := make(map[TableKey]*Table, len(tables))
	for i := range tables {
		byKey[tables[i].Key] = &tables[i]
	}

	owners := make(map[string]int, len(refs))
	for _, r := range refs {
		owners[lhsKey(ix.ReferRefAlias(r.LHS))]++
	}

	for _, r := range refs {
		if err := validateRef(r, byKey, ix); err != nil {
			return err
		}
		lhs := ix.ReferRefAlias(r.LHS)
		if n := owners[lhsKey(lhs)]; n != 1 {
			return &Error{
				Kind:    ErrDuplicateRelation,
				Message: "foreign key columns are owned by more than one reference",
				Schema:  lhs.Schema,
				Table:   lhs.Table,
				Ref:     r.String(),
			}
		}
	}

	return nil
}

func validateRef(r Ref, tables map[TableKey]*Table, ix *Indexer) error {
	if r.Rel != ast.OneToOne && r.Rel != ast.ManyToOne {
		return &Error{
			Kind:    ErrUnsupportedRelationKind,
			Message: r.Rel.String() + " relation is unsupported",
			Ref:     r.String(),
		}
	}

	lhs := ix.ReferRefAlias(r.LHS)
	rhs := ix.ReferRefAlias(r.RHS)

	if err := ix.LookupTableFields(lhs.Schema, lhs.Table, lhs.Compositions); err != nil {
		return withRef(err, r)
	}
	if err := ix.LookupTableFields(rhs.Schema, rhs.Table, rhs.Compositions); err != nil {
		return withRef(err, r)
	}

	if len(lhs.Compositions) != 1 || len(rhs.Compositions) != 1 {
		return &Error{
			Kind:    ErrUnsupportedCompositeReference,
			Message: "only single-column references are supported",
			Ref:     r.String(),
		}
	}

	lhsTable := tables[TableKey{Schema: lhs.Schema, Name: lhs.Table}]
	rhsTable := tables[TableKey{Schema: rhs.Schema, Name: rhs.Table}]
	for i := range lhs.Compositions {
		lc, _ := lhsTable.Column(lhs.Compositions[i])
		rc, _ := rhsTable.Column(rhs.Compositions[i])
		if !lc.Type.SameAs(rc.Type) {
			return &Error{
				Kind:    ErrMismatchedForeignKeyType,
				Message: "column type " + lc.Type.String() + " does not match referenced type " + rc.Type.String(),
				Schema:  lhs.Schema,
				Table:   lhs.Table,
				Column:  lc.Name,
				Ref:     r.String(),
			}
		}
	}

	return nil
}

// lhsKey is the map key form of an alias-normalized endpoint
func lhsKey(r ast.RefIdent) string {
	return r.String()
}

func withRef(err error, r Ref) error {
	if ae, ok := err.(*Error); ok && ae.Ref == "" {
		ae.Ref = r.String()
	}
	return err
}
