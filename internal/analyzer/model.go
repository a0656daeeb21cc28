package analyzer

import (
	"github.com/tordrt/dbmlorm/internal/ast"
)

// Model is the validated semantic model produced by Analyze. It is read-only
// once returned.
type Model struct {
	Project     ast.Project
	Tables      []Table
	Enums       []Enum
	TableGroups []TableGroup
	Refs        []Ref
	Indexer     *Indexer
}

// Table represents a table whose column types are resolved
type Table struct {
	Ident   ast.TableIdent
	Key     TableKey
	Columns []Column
	Note    string
	Indexes []ast.Index
	Meta    IndexMeta
}

// Column represents a column with its resolved type
type Column struct {
	Name     string
	Type     Type
	Settings ast.ColumnSettings
}

// IndexMeta lists the columns the index block marks, in column order
type IndexMeta struct {
	// PrimaryKeys holds the single pk column or the columns of a composite [pk] index
	PrimaryKeys []string
	Indexed     []string
	Unique      []string
}

// Enum represents an enum keyed by its canonical schema
type Enum struct {
	Schema string
	Name   string
	Values []ast.EnumValue
}

// TableGroup holds the canonical identities of its members
type TableGroup struct {
	Name   string
	Tables []TableKey
}

// Table returns the table with the given identity
func (m *Model) Table(key TableKey) (*Table, bool) {
	for i := range m.Tables {
		if m.Tables[i].Key == key {
			return &m.Tables[i], true
		}
	}
	return nil, false
}

// Enum returns the enum with the given schema and name
func (m *Model) Enum(schema, name string) (*Enum, bool) {
	if schema == "" {
		schema = ast.DefaultSchema
	}
	for i := range m.Enums {
		if m.Enums[i].Schema == schema && m.Enums[i].Name == name {
			return &m.Enums[i], true
		}
	}
	return nil, false
}

// Column returns the named column
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// IsPrimaryKey reports whether the column is part of the table's primary key
func (t *Table) IsPrimaryKey(column string) bool {
	return contains(t.Meta.PrimaryKeys, column)
}

// IsIndexed reports whether a single-column index covers the column
func (t *Table) IsIndexed(column string) bool {
	return contains(t.Meta.Indexed, column)
}

// IsUnique reports whether the column is unique through its settings or a unique index
func (t *Table) IsUnique(column string) bool {
	if c, ok := t.Column(column); ok && c.Settings.IsUnique {
		return true
	}
	return contains(t.Meta.Unique, column)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
