package ast

import (
	"fmt"
	"strings"
)

// Relation is the cardinality of a reference
type Relation int

const (
	RelationUndef Relation = iota
	OneToOne
	OneToMany
	ManyToOne
	ManyToMany
)

// ParseRelation maps a DBML relation symbol to a Relation
func ParseRelation(symbol string) (Relation, error) {
	switch symbol {
	case "-":
		return OneToOne, nil
	case "<":
		return OneToMany, nil
	case ">":
		return ManyToOne, nil
	case "<>":
		return ManyToMany, nil
	}
	return RelationUndef, fmt.Errorf("unknown relation symbol %q", symbol)
}

// Symbol returns the DBML symbol for the relation
func (r Relation) Symbol() string {
	switch r {
	case OneToOne:
		return "-"
	case OneToMany:
		return "<"
	case ManyToOne:
		return ">"
	case ManyToMany:
		return "<>"
	}
	return ""
}

func (r Relation) String() string {
	switch r {
	case OneToOne:
		return "one-to-one"
	case OneToMany:
		return "one-to-many"
	case ManyToOne:
		return "many-to-one"
	case ManyToMany:
		return "many-to-many"
	}
	return "undefined"
}

// RelationAction is a referential action for on delete / on update
type RelationAction int

const (
	NoAction RelationAction = iota
	Cascade
	Restrict
	SetNull
	SetDefault
)

// ParseRelationAction accepts DBML and SQL spellings ("no action", "SET NULL", "set_null").
func ParseRelationAction(s string) (RelationAction, error) {
	norm := strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " "))
	switch norm {
	case "no action":
		return NoAction, nil
	case "cascade":
		return Cascade, nil
	case "restrict":
		return Restrict, nil
	case "set null":
		return SetNull, nil
	case "set default":
		return SetDefault, nil
	}
	return NoAction, fmt.Errorf("unknown relation action %q", s)
}

func (a RelationAction) String() string {
	switch a {
	case Cascade:
		return "cascade"
	case Restrict:
		return "restrict"
	case SetNull:
		return "set null"
	case SetDefault:
		return "set default"
	}
	return "no action"
}

// RelationSettings holds the optional referential actions of a reference
type RelationSettings struct {
	OnDelete *RelationAction
	OnUpdate *RelationAction
}

// RefIdent is one side of a reference
type RefIdent struct {
	Schema       string
	Table        string
	Compositions []string
}

// String renders the endpoint as schema.table.(a, b) or schema.table.a
func (r RefIdent) String() string {
	var b strings.Builder
	if r.Schema != "" {
		b.WriteString(r.Schema)
		b.WriteString(".")
	}
	b.WriteString(r.Table)
	b.WriteString(".")
	if len(r.Compositions) == 1 {
		b.WriteString(r.Compositions[0])
	} else {
		b.WriteString("(")
		b.WriteString(strings.Join(r.Compositions, ", "))
		b.WriteString(")")
	}
	return b.String()
}

// Equal compares two endpoints structurally
func (r RefIdent) Equal(other RefIdent) bool {
	if r.Schema != other.Schema || r.Table != other.Table || len(r.Compositions) != len(other.Compositions) {
		return false
	}
	for i := range r.Compositions {
		if r.Compositions[i] != other.Compositions[i] {
			return false
		}
	}
	return true
}

// RefBlock is a reference as declared. LHS is nil for inline column
// references, where the owning column is the left-hand side.
type RefBlock struct {
	Name     string
	Rel      Relation
	LHS      *RefIdent
	RHS      RefIdent
	Settings *RelationSettings
}
