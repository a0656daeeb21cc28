package analyzer

import (
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tordrt/dbmlorm/internal/ast"
)

// ResolveType turns a raw column type into a scalar kind or an enum reference.
// Tokens that are neither fail with ErrUnresolvedType; arguments that do not fit
// the kind fail with ErrInvalidTypeArguments.
func (ix *Indexer) ResolveType(raw ast.RawType) (Type, error) {
	if raw.Schema == "" {
		if kind, ok := LookupKind(raw.Token); ok {
			args, err := resolveArgs(kind, raw)
			if err != nil {
				return Type{}, err
			}
			return Type{Kind: kind, Args: args}, nil
		}
	}

	schema := raw.Schema
	if schema == "" {
		schema = ast.DefaultSchema
	}
	if err := ix.LookupEnumValues(schema, raw.Token, nil); err != nil {
		return Type{}, &Error{
			Kind:    ErrUnresolvedType,
			Message: "type is neither a known scalar nor a declared enum: " + raw.String(),
			Schema:  schema,
			Enum:    raw.Token,
		}
	}
	if len(raw.Args) > 0 {
		return Type{}, &Error{
			Kind:    ErrInvalidTypeArguments,
			Message: "enum types take no arguments: " + raw.String(),
			Schema:  schema,
			Enum:    raw.Token,
		}
	}

	return Type{Kind: KindEnum, Enum: EnumRef{Schema: schema, Name: raw.Token}}, nil
}

func resolveArgs(kind Kind, raw ast.RawType) ([]int, error) {
	if len(raw.Args) == 0 {
		return nil, nil
	}

	var want int
	switch kind {
	case KindChar, KindVarChar:
		want = 1
	case KindDecimal:
		want = 2
	default:
		return nil, newError(ErrInvalidTypeArguments, "%s takes no arguments: %s", kind, raw)
	}
	if len(raw.Args) != want {
		return nil, newError(ErrInvalidTypeArguments, "%s takes %d integer argument(s), got %d: %s", kind, want, len(raw.Args), raw)
	}

	args := make([]int, 0, want)
	for _, a := range raw.Args {
		if a.Kind != ast.ValueInteger {
			return nil, newError(ErrInvalidTypeArguments, "%s argument %s is not an integer", kind, a)
		}
		n, err := strconv.Atoi(a.Text)
		if err != nil || n < 0 {
			return nil, newError(ErrInvalidTypeArguments, "%s argument %s is not a valid size", kind, a)
		}
		args = append(args, n)
	}
	return args, nil
}

// resolveTable resolves every column type of a table and checks primary key
// shape, index columns and defaults.
func (ix *Indexer) resolveTable(table ast.Table) (Table, error) {
	key := KeyOf(table.Ident)
	out := Table{
		Ident:   table.Ident,
		Key:     key,
		Note:    table.Note,
		Indexes: table.Indexes,
		Columns: make([]Column, 0, len(table.Columns)),
	}

	var pk string
	for _, col := range table.Columns {
		typ, err := ix.ResolveType(col.Type)
		if err != nil {
			return Table{}, withTable(err, key, col.Name)
		}

		if col.Settings.IsPK {
			if pk != "" {
				return Table{}, &Error{
					Kind:    ErrDuplicatePrimaryKey,
					Message: "table already has primary key column " + pk,
					Schema:  key.Schema,
					Table:   key.Name,
					Column:  col.Name,
				}
			}
			pk = col.Name
			if err := checkPrimaryKeyShape(key, col); err != nil {
				return Table{}, err
			}
		}

		if err := ix.checkDefault(typ, col); err != nil {
			return Table{}, withTable(err, key, col.Name)
		}

		out.Columns = append(out.Columns, Column{Name: col.Name, Type: typ, Settings: col.Settings})
	}

	meta, err := ix.indexMeta(key, table, pk)
	if err != nil {
		return Table{}, err
	}
	out.Meta = meta

	return out, nil
}

func checkPrimaryKeyShape(key TableKey, col ast.Column) error {
	if col.Settings.IsNullable {
		return &Error{
			Kind:    ErrNullablePrimaryKey,
			Message: "primary key column is nullable",
			Schema:  key.Schema,
			Table:   key.Name,
			Column:  col.Name,
		}
	}
	if col.Settings.IsArray {
		return &Error{
			Kind:    ErrArrayPrimaryKey,
			Message: "primary key column is an array",
			Schema:  key.Schema,
			Table:   key.Name,
			Column:  col.Name,
		}
	}
	return nil
}

// indexMeta checks the index block against the table columns and collects
// the columns it marks.
func (ix *Indexer) indexMeta(key TableKey, table ast.Table, pk string) (IndexMeta, error) {
	var meta IndexMeta
	if pk != "" {
		meta.PrimaryKeys = []string{pk}
	}

	columns := make(map[string]ast.Column, len(table.Columns))
	for _, c := range table.Columns {
		columns[c.Name] = c
	}

	pkIndex := false
	for _, idx := range table.Indexes {
		var names []string
		for _, c := range idx.Columns {
			if !c.IsExpr {
				names = append(names, c.Name)
			}
		}
		if err := ix.LookupTableFields(key.Schema, key.Name, names); err != nil {
			return IndexMeta{}, err
		}

		switch {
		case idx.Settings.IsPK:
			if pk != "" {
				return IndexMeta{}, &Error{
					Kind:    ErrConflictingPrimaryKey,
					Message: "primary key declared on column " + pk + " and in an index",
					Schema:  key.Schema,
					Table:   key.Name,
				}
			}
			if pkIndex {
				return IndexMeta{}, &Error{
					Kind:    ErrDuplicatePrimaryKey,
					Message: "more than one primary key index",
					Schema:  key.Schema,
					Table:   key.Name,
				}
			}
			pkIndex = true
			for _, name := range names {
				if err := checkPrimaryKeyShape(key, columns[name]); err != nil {
					return IndexMeta{}, err
				}
			}
			meta.PrimaryKeys = names
		case len(idx.Columns) != 1 || len(names) != 1:
			// composite and expression indexes carry no per-column flag
		case idx.Settings.IsUnique:
			meta.Unique = appendUnique(meta.Unique, names[0])
		default:
			meta.Indexed = appendUnique(meta.Indexed, names[0])
		}
	}

	return meta, nil
}

func appendUnique(list []string, s string) []string {
	if contains(list, s) {
		return list
	}
	return append(list, s)
}

// checkDefault validates a column default literal against the resolved type
func (ix *Indexer) checkDefault(typ Type, col ast.Column) error {
	def := col.Settings.Default
	if def == nil || def.Kind == ast.ValueNull || def.Kind == ast.ValueExpr {
		return nil
	}

	invalid := func() error {
		return &Error{
			Kind:    ErrInvalidDefaultValue,
			Message: "default " + def.String() + " does not fit type " + typ.String(),
			Value:   def.Text,
		}
	}

	if col.Settings.IsArray {
		if def.Kind != ast.ValueString {
			return invalid()
		}
		return nil
	}

	switch {
	case typ.Kind.IsInteger():
		if def.Kind != ast.ValueInteger {
			return invalid()
		}
	case typ.Kind.IsNumeric():
		if def.Kind != ast.ValueInteger && def.Kind != ast.ValueDecimal {
			return invalid()
		}
	case typ.Kind == KindBool:
		if def.Kind != ast.ValueBool {
			return invalid()
		}
	case typ.Kind == KindUUID:
		if def.Kind != ast.ValueString {
			return invalid()
		}
		if _, err := uuid.Parse(def.Text); err != nil {
			return invalid()
		}
	case typ.Kind == KindEnum:
		if def.Kind != ast.ValueString {
			return invalid()
		}
		return ix.LookupEnumValues(typ.Enum.Schema, typ.Enum.Name, []string{def.Text})
	default:
		if def.Kind != ast.ValueString {
			return invalid()
		}
		if n, ok := typ.Length(); ok && utf8.RuneCountInString(def.Text) > n {
			return invalid()
		}
	}

	return nil
}

// withTable fills the table identity into an analyzer error raised for a column
func withTable(err error, key TableKey, column string) error {
	if ae, ok := err.(*Error); ok {
		if ae.Table == "" {
			ae.Schema = key.Schema
			ae.Table = key.Name
		}
		if ae.Column == "" {
			ae.Column = column
		}
	}
	return err
}
