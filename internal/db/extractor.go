package db

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tordrt/dbmlorm/internal/ast"
)

// Extractor reads a live database catalog into a DBML syntax tree
type Extractor interface {
	// ExtractSchema extracts the given tables, or every table when tables is empty
	ExtractSchema(ctx context.Context, tables []string) (*ast.Schema, error)
}

// Options configures an extractor
type Options struct {
	// Schema is the catalog schema to read. PostgreSQL defaults to "public",
	// MySQL to the database named in the DSN. SQLite ignores it.
	Schema string
	// Exclude lists tables to skip, also when tables are requested explicitly
	Exclude []string
	Logger  *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// dbmlSchema leaves tables of the default schema unqualified
func dbmlSchema(schema string) string {
	if schema == ast.DefaultSchema {
		return ""
	}
	return schema
}

// foreignKey collects the column pairs of one foreign key constraint
type foreignKey struct {
	name       string
	table      string
	columns    []string
	refSchema  string
	refTable   string
	refColumns []string
	onDelete   string
	onUpdate   string
}

// refBlock turns the constraint into an explicit many-to-one Ref
func (fk *foreignKey) refBlock(schema string) ast.RefBlock {
	return ast.RefBlock{
		Name:     fk.name,
		Rel:      ast.ManyToOne,
		LHS:      &ast.RefIdent{Schema: dbmlSchema(schema), Table: fk.table, Compositions: fk.columns},
		RHS:      ast.RefIdent{Schema: dbmlSchema(fk.refSchema), Table: fk.refTable, Compositions: fk.refColumns},
		Settings: relationSettings(fk.onDelete, fk.onUpdate),
	}
}

// groupForeignKeys merges per-column catalog rows into constraints, keeping first-seen order
func groupForeignKeys(rows []foreignKey) []*foreignKey {
	var out []*foreignKey
	byName := make(map[string]*foreignKey)
	for i := range rows {
		row := rows[i]
		if fk, ok := byName[row.name]; ok && row.name != "" {
			fk.columns = append(fk.columns, row.columns...)
			fk.refColumns = append(fk.refColumns, row.refColumns...)
			continue
		}
		fk := &row
		byName[row.name] = fk
		out = append(out, fk)
	}
	return out
}

// relationSettings maps catalog referential rules; NO ACTION is left implicit
func relationSettings(onDelete, onUpdate string) *ast.RelationSettings {
	var s ast.RelationSettings
	if a, err := ast.ParseRelationAction(onDelete); err == nil && a != ast.NoAction {
		s.OnDelete = &a
	}
	if a, err := ast.ParseRelationAction(onUpdate); err == nil && a != ast.NoAction {
		s.OnUpdate = &a
	}
	if s.OnDelete == nil && s.OnUpdate == nil {
		return nil
	}
	return &s
}

var typeAliases = map[string]string{
	"character varying":           "varchar",
	"character":                   "char",
	"timestamp without time zone": "timestamp",
	"timestamp with time zone":    "timestamptz",
	"time without time zone":      "time",
	"time with time zone":         "time",
	"double precision":            "double",
	"int2":                        "smallint",
	"int4":                        "integer",
	"int8":                        "bigint",
	"int":                         "integer",
	"tinyint":                     "smallint",
	"mediumint":                   "integer",
	"float4":                      "real",
	"float8":                      "double",
	"float":                       "real",
	"bool":                        "boolean",
	"numeric":                     "decimal",
	"datetime":                    "timestamp",
	"longtext":                    "text",
	"mediumtext":                  "text",
	"tinytext":                    "text",
	"clob":                        "text",
	"blob":                        "bytea",
	"longblob":                    "bytea",
	"binary":                      "bytea",
	"varbinary":                   "bytea",
}

// rawType converts a catalog type declaration such as "character varying(40)",
// "numeric(10,2)", "int unsigned" or "_int4" into a DBML type and reports
// whether the column is an array.
func rawType(decl string) (ast.RawType, bool) {
	decl = strings.ToLower(strings.TrimSpace(decl))
	isArray := false
	if strings.HasSuffix(decl, "[]") {
		isArray = true
		decl = strings.TrimSuffix(decl, "[]")
	}
	decl = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(decl, " zerofill"), " unsigned"))

	var args []string
	if open := strings.Index(decl, "("); open >= 0 && strings.HasSuffix(decl, ")") {
		for _, a := range strings.Split(decl[open+1:len(decl)-1], ",") {
			args = append(args, strings.TrimSpace(a))
		}
		decl = strings.TrimSpace(decl[:open])
	}
	if decl == "" {
		decl = "text"
	}

	token := decl
	if alias, ok := typeAliases[decl]; ok {
		token = alias
	}

	t := ast.RawType{Token: token}
	switch token {
	case "varchar", "char":
		if len(args) == 1 {
			if n, err := strconv.Atoi(args[0]); err == nil {
				t.Args = []ast.Value{integerValue(n)}
			}
		}
	case "decimal":
		if len(args) >= 1 {
			precision, err := strconv.Atoi(args[0])
			if err != nil {
				break
			}
			scale := 0
			if len(args) == 2 {
				if scale, err = strconv.Atoi(args[1]); err != nil {
					break
				}
			}
			t.Args = []ast.Value{integerValue(precision), integerValue(scale)}
		}
	}
	return t, isArray
}

func integerValue(n int) ast.Value {
	return ast.Value{Kind: ast.ValueInteger, Text: strconv.Itoa(n)}
}

var (
	castLiteral = regexp.MustCompile(`^'((?:[^']|'')*)'(?:::[\w\s."\[\]]+)?$`)
	nullLiteral = regexp.MustCompile(`(?i)^null(?:::[\w\s."\[\]]+)?$`)
)

// literalDefault parses a default as stored by PostgreSQL and SQLite, where
// strings keep their quotes and anything unquoted is a number, a bool or an
// expression.
func literalDefault(raw string) *ast.Value {
	raw = strings.TrimSpace(raw)
	for len(raw) > 1 && raw[0] == '(' && raw[len(raw)-1] == ')' {
		raw = strings.TrimSpace(raw[1 : len(raw)-1])
	}
	if raw == "" {
		return nil
	}
	if m := castLiteral.FindStringSubmatch(raw); m != nil {
		return &ast.Value{Kind: ast.ValueString, Text: strings.ReplaceAll(m[1], "''", "'")}
	}
	if nullLiteral.MatchString(raw) {
		return &ast.Value{Kind: ast.ValueNull}
	}
	return unquotedDefault(raw)
}

// unquotedDefault classifies a bare literal
func unquotedDefault(raw string) *ast.Value {
	if _, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return &ast.Value{Kind: ast.ValueInteger, Text: raw}
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		return &ast.Value{Kind: ast.ValueDecimal, Text: raw}
	}
	switch strings.ToLower(raw) {
	case "true", "false":
		return &ast.Value{Kind: ast.ValueBool, Text: strings.ToLower(raw)}
	}
	return &ast.Value{Kind: ast.ValueExpr, Text: raw}
}

// applyIndexes marks single-column unique indexes on the column and keeps the rest as table indexes
func applyIndexes(table *ast.Table, indexes []ast.Index) {
	for _, idx := range indexes {
		if idx.Settings.IsUnique && len(idx.Columns) == 1 {
			if col := findColumn(table, idx.Columns[0].Name); col != nil {
				col.Settings.IsUnique = true
				continue
			}
		}
		table.Indexes = append(table.Indexes, idx)
	}
}

// markPrimaryKey sets the pk flag for a single-column key, or adds a pk index for a composite one
func markPrimaryKey(table *ast.Table, pk []string) {
	switch len(pk) {
	case 0:
	case 1:
		if col := findColumn(table, pk[0]); col != nil {
			col.Settings.IsPK = true
			col.Settings.IsNullable = false
		}
	default:
		cols := make([]ast.IndexColumn, 0, len(pk))
		for _, name := range pk {
			cols = append(cols, ast.IndexColumn{Name: name})
		}
		table.Indexes = append(table.Indexes, ast.Index{Columns: cols, Settings: ast.IndexSettings{IsPK: true}})
	}
}

func findColumn(table *ast.Table, name string) *ast.Column {
	for i := range table.Columns {
		if table.Columns[i].Name == name {
			return &table.Columns[i]
		}
	}
	return nil
}

// sortEnums orders enums by name so repeated extractions are stable
func sortEnums(enums []ast.Enum) {
	sort.SliceStable(enums, func(i, j int) bool {
		return enums[i].Ident.Name < enums[j].Ident.Name
	})
}
