package analyzer

import (
	"github.com/tordrt/dbmlorm/internal/ast"
)

// Ref is a normalized reference: both sides populated, settings copied from
// the declaration. LHS is the owning side holding the foreign key column.
type Ref struct {
	Name     string
	Rel      ast.Relation
	LHS      ast.RefIdent
	RHS      ast.RefIdent
	Settings *ast.RelationSettings
}

// FromInline turns the inline references of one column into references owned
// by that column.
func FromInline(refs []ast.RefBlock, owner ast.TableIdent, column string) []Ref {
	out := make([]Ref, 0, len(refs))
	for _, r := range refs {
		out = append(out, normalizeRef(Ref{
			Name: r.Name,
			Rel:  r.Rel,
			LHS: ast.RefIdent{
				Schema:       owner.SchemaOrDefault(),
				Table:        owner.Name,
				Compositions: []string{column},
			},
			RHS:      cloneRefIdent(r.RHS),
			Settings: r.Settings,
		}))
	}
	return out
}

// FromExplicit carries a top-level Ref declaration through. A declaration
// without a left-hand side is malformed.
func FromExplicit(r ast.RefBlock) (Ref, error) {
	if r.LHS == nil {
		return Ref{}, &Error{
			Kind:    ErrMalformedReference,
			Message: "reference declaration has no left-hand side",
			Ref:     r.RHS.String(),
		}
	}
	return normalizeRef(Ref{
		Name:     r.Name,
		Rel:      r.Rel,
		LHS:      cloneRefIdent(*r.LHS),
		RHS:      cloneRefIdent(r.RHS),
		Settings: r.Settings,
	}), nil
}

// normalizeRef is where canonical ordering rules for compositions would go.
// References are currently kept as declared.
func normalizeRef(r Ref) Ref {
	return r
}

// IsSameLHSAs reports whether both references own the same columns once
// aliases are resolved.
func (r Ref) IsSameLHSAs(other Ref, ix *Indexer) bool {
	return ix.ReferRefAlias(r.LHS).Equal(ix.ReferRefAlias(other.LHS))
}

// String renders the reference as a DBML Ref line body
func (r Ref) String() string {
	return r.LHS.String() + " " + r.Rel.Symbol() + " " + r.RHS.String()
}

func cloneRefIdent(r ast.RefIdent) ast.RefIdent {
	out := ast.RefIdent{Schema: r.Schema, Table: r.Table}
	if r.Compositions != nil {
		out.Compositions = append([]string(nil), r.Compositions...)
	}
	return out
}
