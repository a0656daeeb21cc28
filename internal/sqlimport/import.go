// Package sqlimport turns PostgreSQL DDL scripts into a DBML syntax tree.
package sqlimport

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/auxten/postgresql-parser/pkg/sql/parser"
	"github.com/auxten/postgresql-parser/pkg/sql/sem/tree"
	"github.com/auxten/postgresql-parser/pkg/sql/types"
	"github.com/auxten/postgresql-parser/pkg/walk"
	"github.com/lib/pq/oid"

	"github.com/tordrt/dbmlorm/internal/ast"
)

var (
	ErrDuplicateSchema = errors.New("schema already declared")
	ErrDuplicateTable  = errors.New("table already declared")
	ErrSchemaNotFound  = errors.New("schema not found")
	ErrTableNotFound   = errors.New("table not found")
	ErrColumnNotFound  = errors.New("column not found")
)

// Import parses CREATE SCHEMA, CREATE TABLE, CREATE INDEX and ALTER TABLE
// statements. Other statements are ignored. All declaration errors are
// collected and returned together.
func Import(sql string) (*ast.Schema, error) {
	stmts, err := parser.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SQL: %w", err)
	}

	im := newImporter()
	w := &walk.AstWalker{Fn: im.walkFunc}
	if _, err := w.Walk(stmts, nil); err != nil {
		return nil, fmt.Errorf("failed to walk SQL: %w", err)
	}
	im.resolveForeignKeys()

	if len(im.errs) > 0 {
		return nil, errors.Join(im.errs...)
	}
	return im.schema(), nil
}

type schemaState struct {
	name   string
	tables map[string]*ast.Table
}

type pendingRef struct {
	name       string
	schema     string
	table      string
	columns    []string
	refSchema  string
	refTable   string
	refColumns []string
	actions    tree.ReferenceActions
}

type importer struct {
	schemas map[string]*schemaState
	tables  []*ast.Table
	refs    []pendingRef
	out     []ast.RefBlock
	errs    []error
}

func newImporter() *importer {
	return &importer{
		schemas: map[string]*schemaState{
			ast.DefaultSchema: {name: ast.DefaultSchema, tables: map[string]*ast.Table{}},
		},
	}
}

func schemaOrDefault(s string) string {
	if s == "" {
		return ast.DefaultSchema
	}
	return s
}

func (im *importer) fail(err error, format string, args ...interface{}) {
	im.errs = append(im.errs, fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...)))
}

// walkFunc handles top-level statements; nested nodes fall through untouched
func (im *importer) walkFunc(_ interface{}, node interface{}) (stop bool) {
	switch n := node.(type) {
	case *tree.CreateSchema:
		if _, ok := im.schemas[n.Schema]; ok {
			if !n.IfNotExists {
				im.fail(ErrDuplicateSchema, "%s", n.Schema)
			}
			return false
		}
		im.schemas[n.Schema] = &schemaState{name: n.Schema, tables: map[string]*ast.Table{}}
	case *tree.CreateTable:
		im.createTable(n)
	case *tree.CreateIndex:
		table := im.lookupTable(n.Table.Schema(), n.Table.Table())
		if table == nil {
			return false
		}
		idx := ast.Index{Settings: ast.IndexSettings{Name: string(n.Name), IsUnique: n.Unique}}
		if n.Inverted {
			idx.Settings.Type = "gin"
		}
		for _, elem := range n.Columns {
			idx.Columns = append(idx.Columns, ast.IndexColumn{Name: string(elem.Column)})
		}
		im.addIndex(table, idx)
	case *tree.AlterTable:
		tableName := n.Table.ToTableName()
		table := im.lookupTable(tableName.Schema(), tableName.Table())
		if table == nil {
			return false
		}
		for _, cmd := range n.Cmds {
			im.alterTable(table, cmd)
		}
	}
	return false
}

func (im *importer) lookupTable(schema, name string) *ast.Table {
	s, ok := im.schemas[schemaOrDefault(schema)]
	if !ok {
		im.fail(ErrSchemaNotFound, "%s", schemaOrDefault(schema))
		return nil
	}
	table, ok := s.tables[name]
	if !ok {
		im.fail(ErrTableNotFound, "%s.%s", s.name, name)
		return nil
	}
	return table
}

func (im *importer) createTable(n *tree.CreateTable) {
	schemaName := schemaOrDefault(n.Table.Schema())
	s, ok := im.schemas[schemaName]
	if !ok {
		im.fail(ErrSchemaNotFound, "%s", schemaName)
		return
	}
	if _, ok := s.tables[n.Table.Table()]; ok {
		if !n.IfNotExists {
			im.fail(ErrDuplicateTable, "%s.%s", schemaName, n.Table.Table())
		}
		return
	}

	table := &ast.Table{Ident: ast.TableIdent{Schema: n.Table.Schema(), Name: n.Table.Table()}}
	if schemaName == ast.DefaultSchema {
		table.Ident.Schema = ""
	}
	s.tables[table.Ident.Name] = table
	im.tables = append(im.tables, table)

	n.HoistConstraints()

	for _, def := range n.Defs {
		switch d := def.(type) {
		case *tree.ColumnTableDef:
			table.Columns = append(table.Columns, column(d))
		case *tree.UniqueConstraintTableDef:
			im.addUnique(table, d)
		case *tree.IndexTableDef:
			idx := ast.Index{Settings: ast.IndexSettings{Name: string(d.Name)}}
			for _, elem := range d.Columns {
				idx.Columns = append(idx.Columns, ast.IndexColumn{Name: string(elem.Column)})
			}
			im.addIndex(table, idx)
		case *tree.ForeignKeyConstraintTableDef:
			im.addForeignKey(table, d)
		}
	}
}

func (im *importer) alterTable(table *ast.Table, cmd tree.AlterTableCmd) {
	switch c := cmd.(type) {
	case *tree.AlterTableAddConstraint:
		switch d := c.ConstraintDef.(type) {
		case *tree.UniqueConstraintTableDef:
			im.addUnique(table, d)
		case *tree.ForeignKeyConstraintTableDef:
			im.addForeignKey(table, d)
		}
	case *tree.AlterTableAddColumn:
		table.Columns = append(table.Columns, column(c.ColumnDef))
	case *tree.AlterTableSetNotNull:
		if col := im.column(table, string(c.Column)); col != nil {
			col.Settings.IsNullable = false
		}
	case *tree.AlterTableDropNotNull:
		if col := im.column(table, string(c.Column)); col != nil {
			col.Settings.IsNullable = true
		}
	case *tree.AlterTableSetDefault:
		if col := im.column(table, string(c.Column)); col != nil {
			col.Settings.Default = defaultValue(c.Default)
		}
	case *tree.AlterTableAlterPrimaryKey:
		cols := make([]string, 0, len(c.Columns))
		for _, elem := range c.Columns {
			cols = append(cols, string(elem.Column))
		}
		im.setPrimaryKey(table, cols)
	}
}

func (im *importer) column(table *ast.Table, name string) *ast.Column {
	for i := range table.Columns {
		if table.Columns[i].Name == name {
			return &table.Columns[i]
		}
	}
	im.fail(ErrColumnNotFound, "%s.%s", table.Ident.Name, name)
	return nil
}

func column(d *tree.ColumnTableDef) ast.Column {
	typ, isArray := rawType(d.Type)
	col := ast.Column{
		Name: string(d.Name),
		Type: typ,
		Settings: ast.ColumnSettings{
			IsPK:       d.PrimaryKey.IsPrimaryKey,
			IsUnique:   d.Unique && !d.PrimaryKey.IsPrimaryKey,
			IsNullable: d.Nullable.Nullability != tree.NotNull && !d.PrimaryKey.IsPrimaryKey,
			IsArray:    isArray,
		},
	}
	if d.DefaultExpr.Expr != nil {
		col.Settings.Default = defaultValue(d.DefaultExpr.Expr)
	}
	return col
}

func (im *importer) addUnique(table *ast.Table, d *tree.UniqueConstraintTableDef) {
	cols := make([]string, 0, len(d.Columns))
	for _, elem := range d.Columns {
		cols = append(cols, string(elem.Column))
	}
	if d.PrimaryKey {
		im.setPrimaryKey(table, cols)
		return
	}
	if len(cols) == 1 {
		if col := im.column(table, cols[0]); col != nil {
			col.Settings.IsUnique = true
		}
		return
	}
	idx := ast.Index{Settings: ast.IndexSettings{Name: string(d.Name), IsUnique: true}}
	for _, c := range cols {
		idx.Columns = append(idx.Columns, ast.IndexColumn{Name: c})
	}
	im.addIndex(table, idx)
}

// setPrimaryKey replaces any earlier key: a column setting for one column, a pk index otherwise
func (im *importer) setPrimaryKey(table *ast.Table, cols []string) {
	for i := range table.Columns {
		table.Columns[i].Settings.IsPK = false
	}
	kept := table.Indexes[:0]
	for _, idx := range table.Indexes {
		if !idx.Settings.IsPK {
			kept = append(kept, idx)
		}
	}
	table.Indexes = kept

	if len(cols) == 1 {
		if col := im.column(table, cols[0]); col != nil {
			col.Settings.IsPK = true
			col.Settings.IsNullable = false
			col.Settings.IsUnique = false
		}
		return
	}
	idx := ast.Index{Settings: ast.IndexSettings{IsPK: true}}
	for _, c := range cols {
		if col := im.column(table, c); col != nil {
			col.Settings.IsNullable = false
		}
		idx.Columns = append(idx.Columns, ast.IndexColumn{Name: c})
	}
	table.Indexes = append(table.Indexes, idx)
}

func (im *importer) addIndex(table *ast.Table, idx ast.Index) {
	for _, c := range idx.Columns {
		if im.column(table, c.Name) == nil {
			return
		}
	}
	table.Indexes = append(table.Indexes, idx)
}

func (im *importer) addForeignKey(table *ast.Table, d *tree.ForeignKeyConstraintTableDef) {
	// an inline REFERENCES without a column list hoists to a single empty name
	var refColumns []string
	for _, c := range d.ToCols.ToStrings() {
		if c != "" {
			refColumns = append(refColumns, c)
		}
	}
	im.refs = append(im.refs, pendingRef{
		name:       string(d.Name),
		schema:     table.Ident.Schema,
		table:      table.Ident.Name,
		columns:    d.FromCols.ToStrings(),
		refSchema:  d.Table.Schema(),
		refTable:   d.Table.Table(),
		refColumns: refColumns,
		actions:    d.Actions,
	})
}

// resolveForeignKeys checks targets once every table is known, so scripts may
// declare constraints before the referenced table
func (im *importer) resolveForeignKeys() {
	for _, r := range im.refs {
		target := im.lookupTable(r.refSchema, r.refTable)
		if target == nil {
			continue
		}
		refColumns := r.refColumns
		if len(refColumns) == 0 {
			refColumns = primaryKey(target)
		}
		for _, c := range refColumns {
			if im.column(target, c) == nil {
				refColumns = nil
			}
		}
		if len(refColumns) != len(r.columns) {
			im.errs = append(im.errs, fmt.Errorf("foreign key %s on %s: %d columns reference %d columns of %s", r.name, r.table, len(r.columns), len(refColumns), r.refTable))
			continue
		}

		refSchema := r.refSchema
		if refSchema == ast.DefaultSchema {
			refSchema = ""
		}
		im.out = append(im.out, ast.RefBlock{
			Name:     r.name,
			Rel:      ast.ManyToOne,
			LHS:      &ast.RefIdent{Schema: r.schema, Table: r.table, Compositions: r.columns},
			RHS:      ast.RefIdent{Schema: refSchema, Table: r.refTable, Compositions: refColumns},
			Settings: relationSettings(r.actions),
		})
	}
}

func primaryKey(table *ast.Table) []string {
	for _, col := range table.Columns {
		if col.Settings.IsPK {
			return []string{col.Name}
		}
	}
	for _, idx := range table.Indexes {
		if idx.Settings.IsPK {
			cols := make([]string, 0, len(idx.Columns))
			for _, c := range idx.Columns {
				cols = append(cols, c.Name)
			}
			return cols
		}
	}
	return nil
}

func (im *importer) schema() *ast.Schema {
	s := &ast.Schema{Project: &ast.Project{DatabaseType: "PostgreSQL"}, Refs: im.out}
	for _, t := range im.tables {
		s.Tables = append(s.Tables, *t)
	}
	return s
}

func relationAction(a tree.ReferenceAction) *ast.RelationAction {
	var out ast.RelationAction
	switch a {
	case tree.Cascade:
		out = ast.Cascade
	case tree.Restrict:
		out = ast.Restrict
	case tree.SetNull:
		out = ast.SetNull
	case tree.SetDefault:
		out = ast.SetDefault
	default:
		return nil
	}
	return &out
}

func relationSettings(actions tree.ReferenceActions) *ast.RelationSettings {
	s := ast.RelationSettings{
		OnDelete: relationAction(actions.Delete),
		OnUpdate: relationAction(actions.Update),
	}
	if s.OnDelete == nil && s.OnUpdate == nil {
		return nil
	}
	return &s
}

func integerArg(n int32) ast.Value {
	return ast.Value{Kind: ast.ValueInteger, Text: strconv.Itoa(int(n))}
}

// rawType maps a parsed column type to a DBML type and reports whether it is an array
func rawType(t *types.T) (ast.RawType, bool) {
	switch t.Family() {
	case types.ArrayFamily:
		elem, _ := rawType(t.ArrayContents())
		return elem, true
	case types.IntFamily:
		switch t.Width() {
		case 16:
			return ast.RawType{Token: "smallint"}, false
		case 32:
			return ast.RawType{Token: "integer"}, false
		}
		return ast.RawType{Token: "bigint"}, false
	case types.FloatFamily:
		if t.Width() == 32 {
			return ast.RawType{Token: "real"}, false
		}
		return ast.RawType{Token: "double"}, false
	case types.DecimalFamily:
		if t.Precision() > 0 {
			return ast.RawType{Token: "decimal", Args: []ast.Value{integerArg(t.Precision()), integerArg(t.Width())}}, false
		}
		return ast.RawType{Token: "decimal"}, false
	case types.StringFamily, types.CollatedStringFamily:
		var token string
		switch t.Oid() {
		case oid.T_varchar:
			token = "varchar"
		case oid.T_bpchar, oid.T_char:
			token = "char"
		default:
			return ast.RawType{Token: "text"}, false
		}
		if t.Width() > 0 {
			return ast.RawType{Token: token, Args: []ast.Value{integerArg(t.Width())}}, false
		}
		return ast.RawType{Token: token}, false
	case types.BoolFamily:
		return ast.RawType{Token: "boolean"}, false
	case types.BytesFamily:
		return ast.RawType{Token: "bytea"}, false
	case types.DateFamily:
		return ast.RawType{Token: "date"}, false
	case types.TimeFamily, types.TimeTZFamily:
		return ast.RawType{Token: "time"}, false
	case types.TimestampFamily:
		return ast.RawType{Token: "timestamp"}, false
	case types.TimestampTZFamily:
		return ast.RawType{Token: "timestamptz"}, false
	case types.UuidFamily:
		return ast.RawType{Token: "uuid"}, false
	case types.JsonFamily:
		if t.Oid() == oid.T_json {
			return ast.RawType{Token: "json"}, false
		}
		return ast.RawType{Token: "jsonb"}, false
	}
	return ast.RawType{Token: strings.ToLower(t.SQLString())}, false
}

// defaultValue classifies a DEFAULT expression as a DBML literal or expression
func defaultValue(expr tree.Expr) *ast.Value {
	if expr == nil {
		return nil
	}
	if expr == tree.DNull {
		return &ast.Value{Kind: ast.ValueNull}
	}
	if s, ok := expr.(*tree.StrVal); ok {
		return &ast.Value{Kind: ast.ValueString, Text: s.RawString()}
	}

	text := tree.AsString(expr)
	if _, err := strconv.ParseInt(text, 10, 64); err == nil {
		return &ast.Value{Kind: ast.ValueInteger, Text: text}
	}
	if _, err := strconv.ParseFloat(text, 64); err == nil {
		return &ast.Value{Kind: ast.ValueDecimal, Text: text}
	}
	if b, ok := expr.(*tree.DBool); ok {
		return &ast.Value{Kind: ast.ValueBool, Text: strconv.FormatBool(bool(*b))}
	}
	return &ast.Value{Kind: ast.ValueExpr, Text: text}
}
