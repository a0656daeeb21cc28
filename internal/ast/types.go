// Package ast holds the raw DBML syntax tree. Nothing in here is validated:
// column types are still raw tokens and references may point anywhere.
package ast

import "strings"

// DefaultSchema is assumed for every table, enum and reference that omits a schema.
const DefaultSchema = "public"

// Schema represents a complete parsed DBML document
type Schema struct {
	Project     *Project
	Tables      []Table
	Enums       []Enum
	Refs        []RefBlock
	TableGroups []TableGroup
}

// Project represents the Project block
type Project struct {
	Name         string
	DatabaseType string
	Note         string
}

// TableIdent identifies a table. Schema and Alias are empty when not declared.
type TableIdent struct {
	Schema string
	Name   string
	Alias  string
}

// SchemaOrDefault returns the declared schema or DefaultSchema
func (t TableIdent) SchemaOrDefault() string {
	return orDefault(t.Schema)
}

// String returns the schema-qualified name
func (t TableIdent) String() string {
	return t.SchemaOrDefault() + "." + t.Name
}

// Table represents a table block
type Table struct {
	Ident   TableIdent
	Columns []Column
	Note    string
	Indexes []Index
}

// Column represents a table column. Type is the unresolved token; the analyzer
// turns it into a concrete kind.
type Column struct {
	Name     string
	Type     RawType
	Settings ColumnSettings
}

// RawType is a column type exactly as written: an optional schema qualifier
// (only meaningful for enum types), the type token and its literal arguments.
type RawType struct {
	Schema string
	Token  string
	Args   []Value
}

// String returns the type as it would be written in DBML
func (r RawType) String() string {
	var b strings.Builder
	if r.Schema != "" {
		b.WriteString(r.Schema)
		b.WriteString(".")
	}
	b.WriteString(r.Token)
	if len(r.Args) > 0 {
		args := make([]string, 0, len(r.Args))
		for _, a := range r.Args {
			args = append(args, a.String())
		}
		b.WriteString("(")
		b.WriteString(strings.Join(args, ", "))
		b.WriteString(")")
	}
	return b.String()
}

// ColumnSettings holds the bracketed column settings
type ColumnSettings struct {
	IsPK          bool
	IsUnique      bool
	IsNullable    bool
	IsIncremental bool
	IsArray       bool
	Default       *Value
	Note          string
	Refs          []RefBlock
}

// Index represents one entry of an indexes block
type Index struct {
	Columns  []IndexColumn
	Settings IndexSettings
}

// IndexColumn is either a column name or a backtick expression
type IndexColumn struct {
	Name   string
	IsExpr bool
}

// IndexSettings holds the bracketed index settings
type IndexSettings struct {
	Name     string
	Type     string
	Note     string
	IsUnique bool
	IsPK     bool
}

// Enum represents an enum block
type Enum struct {
	Ident  EnumIdent
	Values []EnumValue
}

// EnumIdent identifies an enum
type EnumIdent struct {
	Schema string
	Name   string
}

// SchemaOrDefault returns the declared schema or DefaultSchema
func (e EnumIdent) SchemaOrDefault() string {
	return orDefault(e.Schema)
}

// EnumValue is a single enum member
type EnumValue struct {
	Value string
	Note  string
}

// TableGroup represents a TableGroup block
type TableGroup struct {
	Name    string
	Members []TableGroupMember
}

// TableGroupMember names a table either by alias (Schema empty) or by
// schema-qualified name.
type TableGroupMember struct {
	Schema string
	Name   string
}

func orDefault(schema string) string {
	if schema == "" {
		return DefaultSchema
	}
	return schema
}
