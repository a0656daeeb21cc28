package analyzer

import (
	"github.com/tordrt/dbmlorm/internal/ast"
)

// TableKey is the canonical identity of a table: its schema (never empty) and name
type TableKey struct {
	Schema string
	Name   string
}

// KeyOf returns the canonical identity of a declared table
func KeyOf(ident ast.TableIdent) TableKey {
	return TableKey{Schema: ident.SchemaOrDefault(), Name: ident.Name}
}

func (k TableKey) String() string {
	return k.Schema + "." + k.Name
}

type nameSet map[string]struct{}

// Indexer is the symbol table of one analysis run: per schema, the column
// names of every table and the values of every enum, plus the project-wide
// alias map.
type Indexer struct {
	tables  map[string]map[string]nameSet
	enums   map[string]map[string]nameSet
	aliases map[string]TableKey
	groups  nameSet
}

// NewIndexer creates an empty indexer
func NewIndexer() *Indexer {
	return &Indexer{
		tables:  make(map[string]map[string]nameSet),
		enums:   make(map[string]map[string]nameSet),
		aliases: make(map[string]TableKey),
		groups:  make(nameSet),
	}
}

// IndexTables records every table with its column names and alias. The first
// duplicate table identity, column name or alias in declaration order fails.
func (ix *Indexer) IndexTables(tables []ast.Table) error {
	for _, table := range tables {
		key := KeyOf(table.Ident)

		schema, ok := ix.tables[key.Schema]
		if !ok {
			schema = make(map[string]nameSet)
			ix.tables[key.Schema] = schema
		}
		if _, ok := schema[key.Name]; ok {
			return &Error{
				Kind:    ErrDuplicateTableName,
				Message: "table already declared",
				Schema:  key.Schema,
				Table:   key.Name,
			}
		}

		cols := make(nameSet, len(table.Columns))
		for _, col := range table.Columns {
			if _, ok := cols[col.Name]; ok {
				return &Error{
					Kind:    ErrDuplicateColumnName,
					Message: "column already declared",
					Schema:  key.Schema,
					Table:   key.Name,
					Column:  col.Name,
				}
			}
			cols[col.Name] = struct{}{}
		}
		schema[key.Name] = cols

		if alias := table.Ident.Alias; alias != "" {
			if prev, ok := ix.aliases[alias]; ok {
				return &Error{
					Kind:    ErrDuplicateAlias,
					Message: "alias already used by " + prev.String(),
					Schema:  key.Schema,
					Table:   key.Name,
					Value:   alias,
				}
			}
			ix.aliases[alias] = key
		}
	}

	return nil
}

// IndexEnums records every enum with its values
func (ix *Indexer) IndexEnums(enums []ast.Enum) error {
	for _, enum := range enums {
		schemaName := enum.Ident.SchemaOrDefault()

		schema, ok := ix.enums[schemaName]
		if !ok {
			schema = make(map[string]nameSet)
			ix.enums[schemaName] = schema
		}
		if _, ok := schema[enum.Ident.Name]; ok {
			return &Error{
				Kind:    ErrDuplicateEnumName,
				Message: "enum already declared",
				Schema:  schemaName,
				Enum:    enum.Ident.Name,
			}
		}

		values := make(nameSet, len(enum.Values))
		for _, v := range enum.Values {
			if _, ok := values[v.Value]; ok {
				return &Error{
					Kind:    ErrDuplicateEnumValue,
					Message: "enum value already declared",
					Schema:  schemaName,
					Enum:    enum.Ident.Name,
					Value:   v.Value,
				}
			}
			values[v.Value] = struct{}{}
		}
		schema[enum.Ident.Name] = values
	}

	return nil
}

// IndexTableGroups resolves every group member to an indexed table. Tables
// must be indexed first.
func (ix *Indexer) IndexTableGroups(groups []ast.TableGroup) ([]TableGroup, error) {
	out := make([]TableGroup, 0, len(groups))

	for _, group := range groups {
		if _, ok := ix.groups[group.Name]; ok {
			return nil, &Error{
				Kind:    ErrDuplicateTableGroupName,
				Message: "table group already declared",
				Value:   group.Name,
			}
		}
		ix.groups[group.Name] = struct{}{}

		resolved := TableGroup{Name: group.Name}
		for _, member := range group.Members {
			key, err := ix.resolveGroupMember(member)
			if err != nil {
				return nil, err
			}
			resolved.Tables = append(resolved.Tables, key)
		}
		out = append(out, resolved)
	}

	return out, nil
}

func (ix *Indexer) resolveGroupMember(member ast.TableGroupMember) (TableKey, error) {
	if member.Schema == "" {
		if key, ok := ix.ReferAlias(member.Name); ok {
			return key, nil
		}
		key := TableKey{Schema: ast.DefaultSchema, Name: member.Name}
		return key, ix.LookupTableFields(key.Schema, key.Name, nil)
	}

	key := TableKey{Schema: member.Schema, Name: member.Name}
	if ix.hasTable(key) {
		return key, nil
	}
	if _, ok := ix.aliases[member.Name]; ok {
		return TableKey{}, &Error{
			Kind:    ErrAliasFollowedBySchema,
			Message: "table group member uses an alias with a schema qualifier",
			Schema:  member.Schema,
			Table:   member.Name,
		}
	}
	return key, ix.LookupTableFields(key.Schema, key.Name, nil)
}

// ReferAlias returns the table an alias stands for
func (ix *Indexer) ReferAlias(name string) (TableKey, bool) {
	key, ok := ix.aliases[name]
	return key, ok
}

// ReferRefAlias alias-normalizes a reference endpoint: when the table part is
// a registered alias it is replaced by the canonical schema and table,
// otherwise the empty schema becomes the default one. Compositions are kept.
func (ix *Indexer) ReferRefAlias(ref ast.RefIdent) ast.RefIdent {
	out := ast.RefIdent{
		Schema:       ref.Schema,
		Table:        ref.Table,
		Compositions: ref.Compositions,
	}
	if key, ok := ix.ReferAlias(ref.Table); ok {
		out.Schema = key.Schema
		out.Table = key.Name
	}
	if out.Schema == "" {
		out.Schema = ast.DefaultSchema
	}
	return out
}

// LookupTableFields checks that the schema, the table and every listed column exist
func (ix *Indexer) LookupTableFields(schema, table string, columns []string) error {
	if schema == "" {
		schema = ast.DefaultSchema
	}

	tables, ok := ix.tables[schema]
	if !ok {
		return &Error{Kind: ErrSchemaNotFound, Message: "schema not found", Schema: schema, Table: table}
	}
	cols, ok := tables[table]
	if !ok {
		return &Error{Kind: ErrTableNotFound, Message: "table not found", Schema: schema, Table: table}
	}
	for _, col := range columns {
		if _, ok := cols[col]; !ok {
			return &Error{Kind: ErrColumnNotFound, Message: "column not found", Schema: schema, Table: table, Column: col}
		}
	}

	return nil
}

// LookupEnumValues checks that the enum exists and holds every listed value
func (ix *Indexer) LookupEnumValues(schema, enum string, values []string) error {
	if schema == "" {
		schema = ast.DefaultSchema
	}

	enums, ok := ix.enums[schema]
	if !ok {
		return &Error{Kind: ErrSchemaNotFound, Message: "schema not found", Schema: schema, Enum: enum}
	}
	set, ok := enums[enum]
	if !ok {
		return &Error{Kind: ErrEnumNotFound, Message: "enum not found", Schema: schema, Enum: enum}
	}
	for _, v := range values {
		if _, ok := set[v]; !ok {
			return &Error{Kind: ErrEnumValueNotFound, Message: "enum value not found", Schema: schema, Enum: enum, Value: v}
		}
	}

	return nil
}

func (ix *Indexer) hasTable(key TableKey) bool {
	_, ok := ix.tables[key.Schema][key.Name]
	return ok
}
