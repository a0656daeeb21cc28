package db

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/tordrt/dbmlorm/internal/ast"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresExtractor handles schema extraction from PostgreSQL
type PostgresExtractor struct {
	client *PostgresClient
	schema string
	opts   Options
	logger *zap.Logger
}

// NewPostgresExtractor creates a new PostgreSQL schema extractor
func NewPostgresExtractor(client *PostgresClient, opts Options) *PostgresExtractor {
	schemaName := opts.Schema
	if schemaName == "" {
		schemaName = ast.DefaultSchema
	}
	return &PostgresExtractor{
		client: client,
		schema: schemaName,
		opts:   opts,
		logger: opts.logger(),
	}
}

// ExtractSchema extracts the complete schema for specified tables
// If tables is empty, extracts all tables in the schema
func (e *PostgresExtractor) ExtractSchema(ctx context.Context, tables []string) (*ast.Schema, error) {
	project, err := e.project(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read database name: %w", err)
	}
	s := &ast.Schema{Project: project}

	tableNames, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	enumTypes := make(map[string]bool)
	for _, tableName := range tableNames {
		table, udts, err := e.extractTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		s.Tables = append(s.Tables, *table)
		for _, udt := range udts {
			enumTypes[udt] = true
		}

		fks, err := e.extractForeignKeys(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract foreign keys of %s: %w", tableName, err)
		}
		for _, fk := range fks {
			s.Refs = append(s.Refs, fk.refBlock(e.schema))
		}
		e.logger.Debug("extracted table",
			zap.String("schema", e.schema),
			zap.String("table", tableName),
			zap.Int("columns", len(table.Columns)),
			zap.Int("foreign_keys", len(fks)))
	}

	if len(enumTypes) > 0 {
		names := make([]string, 0, len(enumTypes))
		for name := range enumTypes {
			names = append(names, name)
		}
		enums, err := e.extractEnums(ctx, names)
		if err != nil {
			return nil, fmt.Errorf("failed to extract enums: %w", err)
		}
		s.Enums = enums
	}

	e.logger.Info("extracted schema",
		zap.String("database", project.Name),
		zap.Int("tables", len(s.Tables)),
		zap.Int("enums", len(s.Enums)),
		zap.Int("refs", len(s.Refs)))
	return s, nil
}

func (e *PostgresExtractor) project(ctx context.Context) (*ast.Project, error) {
	var name string
	if err := e.client.GetConnection().QueryRow(ctx, "SELECT current_database()").Scan(&name); err != nil {
		return nil, err
	}
	return &ast.Project{Name: name, DatabaseType: "PostgreSQL"}, nil
}

func (e *PostgresExtractor) tablesQuery(requested []string) sq.SelectBuilder {
	q := psql.Select("table_name").
		From("information_schema.tables").
		Where(sq.Eq{"table_schema": e.schema, "table_type": "BASE TABLE"}).
		OrderBy("table_name")
	if len(requested) > 0 {
		q = q.Where(sq.Eq{"table_name": requested})
	}
	if len(e.opts.Exclude) > 0 {
		q = q.Where(sq.NotEq{"table_name": e.opts.Exclude})
	}
	return q
}

// getTableNames returns the list of tables to extract
func (e *PostgresExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	query, args, err := e.tablesQuery(requestedTables).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := e.client.GetConnection().Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}

	return tables, rows.Err()
}

// extractTable reads a table and returns the user-defined type names its columns use
func (e *PostgresExtractor) extractTable(ctx context.Context, tableName string) (*ast.Table, []string, error) {
	table := &ast.Table{Ident: ast.TableIdent{Schema: dbmlSchema(e.schema), Name: tableName}}

	columns, udts, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns

	pk, err := e.extractPrimaryKey(ctx, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract primary key: %w", err)
	}
	markPrimaryKey(table, pk)

	indexes, err := e.extractIndexes(ctx, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	applyIndexes(table, indexes)

	if err := e.extractComment(ctx, table); err != nil {
		return nil, nil, fmt.Errorf("failed to extract comment: %w", err)
	}

	return table, udts, nil
}

// postgresType maps information_schema type names to a DBML type
func postgresType(dataType, udtName string, charMaxLength, precision, scale *int) (ast.RawType, bool) {
	switch dataType {
	case "character varying", "character":
		if charMaxLength != nil {
			return rawType(fmt.Sprintf("%s(%d)", dataType, *charMaxLength))
		}
		return rawType(dataType)
	case "numeric":
		if precision != nil && scale != nil {
			return rawType(fmt.Sprintf("numeric(%d,%d)", *precision, *scale))
		}
		return rawType(dataType)
	case "ARRAY":
		// udt_name has underscore prefix for arrays (e.g., "_text" for text[], "_int4" for integer[])
		if len(udtName) > 0 && udtName[0] == '_' {
			t, _ := rawType(udtName[1:])
			return t, true
		}
		return ast.RawType{Token: "text"}, true
	case "USER-DEFINED":
		return ast.RawType{Token: udtName}, false
	default:
		return rawType(dataType)
	}
}

// extractColumns extracts column information for a table
func (e *PostgresExtractor) extractColumns(ctx context.Context, tableName string) ([]ast.Column, []string, error) {
	query, args, err := psql.Select(
		"c.column_name",
		"c.data_type",
		"c.udt_name",
		"c.is_nullable",
		"c.column_default",
		"c.character_maximum_length",
		"c.numeric_precision",
		"c.numeric_scale",
		"c.is_identity",
		"col_description(format('%I.%I', c.table_schema, c.table_name)::regclass, c.ordinal_position)",
	).
		From("information_schema.columns c").
		Where(sq.Eq{"c.table_schema": e.schema, "c.table_name": tableName}).
		OrderBy("c.ordinal_position").
		ToSql()
	if err != nil {
		return nil, nil, err
	}

	rows, err := e.client.GetConnection().Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var columns []ast.Column
	var udts []string

	for rows.Next() {
		var (
			name, dataType, udtName, nullable, identity string
			defaultVal, comment                         *string
			charMaxLength, precision, scale             *int
		)
		if err := rows.Scan(&name, &dataType, &udtName, &nullable, &defaultVal, &charMaxLength, &precision, &scale, &identity, &comment); err != nil {
			return nil, nil, err
		}

		typ, isArray := postgresType(dataType, udtName, charMaxLength, precision, scale)
		if dataType == "USER-DEFINED" {
			typ.Schema = dbmlSchema(e.schema)
			udts = append(udts, udtName)
		}

		col := ast.Column{
			Name: name,
			Type: typ,
			Settings: ast.ColumnSettings{
				IsNullable:    nullable == "YES",
				IsArray:       isArray,
				IsIncremental: identity == "YES",
			},
		}
		if comment != nil {
			col.Settings.Note = *comment
		}
		if defaultVal != nil {
			if isSerialDefault(*defaultVal) {
				col.Settings.IsIncremental = true
			} else {
				col.Settings.Default = literalDefault(*defaultVal)
			}
		}

		columns = append(columns, col)
	}

	return columns, udts, rows.Err()
}

func isSerialDefault(def string) bool {
	return strings.HasPrefix(def, "nextval(")
}

// extractEnums reads the labels of the given enum types in declaration order
func (e *PostgresExtractor) extractEnums(ctx context.Context, typeNames []string) ([]ast.Enum, error) {
	query, args, err := psql.Select("t.typname", "e.enumlabel").
		From("pg_type t").
		Join("pg_enum e ON t.oid = e.enumtypid").
		Join("pg_namespace n ON t.typnamespace = n.oid").
		Where(sq.Eq{"n.nspname": e.schema, "t.typname": typeNames}).
		OrderBy("t.typname", "e.enumsortorder").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := e.client.GetConnection().Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enums []ast.Enum
	for rows.Next() {
		var typName, label string
		if err := rows.Scan(&typName, &label); err != nil {
			return nil, err
		}
		if n := len(enums); n == 0 || enums[n-1].Ident.Name != typName {
			enums = append(enums, ast.Enum{Ident: ast.EnumIdent{Schema: dbmlSchema(e.schema), Name: typName}})
		}
		last := &enums[len(enums)-1]
		last.Values = append(last.Values, ast.EnumValue{Value: label})
	}

	return enums, rows.Err()
}

// extractPrimaryKey extracts primary key columns
func (e *PostgresExtractor) extractPrimaryKey(ctx context.Context, tableName string) ([]string, error) {
	query, args, err := psql.Select("kcu.column_name").
		From("information_schema.table_constraints tc").
		Join("information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema AND tc.table_name = kcu.table_name").
		Where(sq.Eq{"tc.table_schema": e.schema, "tc.table_name": tableName, "tc.constraint_type": "PRIMARY KEY"}).
		OrderBy("kcu.ordinal_position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := e.client.GetConnection().Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var colName string
		if err := rows.Scan(&colName); err != nil {
			return nil, err
		}
		pk = append(pk, colName)
	}

	return pk, rows.Err()
}

// extractForeignKeys reads the table's foreign keys with their referential actions
func (e *PostgresExtractor) extractForeignKeys(ctx context.Context, tableName string) ([]*foreignKey, error) {
	query, args, err := psql.Select(
		"tc.constraint_name",
		"kcu.column_name",
		"ccu.table_schema",
		"ccu.table_name",
		"ccu.column_name",
		"rc.delete_rule",
		"rc.update_rule",
	).
		From("information_schema.table_constraints tc").
		Join("information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema").
		Join("information_schema.constraint_column_usage ccu ON ccu.constraint_name = tc.constraint_name AND ccu.constraint_schema = tc.table_schema").
		Join("information_schema.referential_constraints rc ON rc.constraint_name = tc.constraint_name AND rc.constraint_schema = tc.table_schema").
		Where(sq.Eq{"tc.constraint_type": "FOREIGN KEY", "tc.table_schema": e.schema, "tc.table_name": tableName}).
		OrderBy("tc.constraint_name", "kcu.ordinal_position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := e.client.GetConnection().Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []foreignKey
	for rows.Next() {
		fk := foreignKey{table: tableName}
		var column, refColumn string
		if err := rows.Scan(&fk.name, &column, &fk.refSchema, &fk.refTable, &refColumn, &fk.onDelete, &fk.onUpdate); err != nil {
			return nil, err
		}
		fk.columns = []string{column}
		fk.refColumns = []string{refColumn}
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return groupForeignKeys(fks), nil
}

// extractIndexes extracts index information
func (e *PostgresExtractor) extractIndexes(ctx context.Context, tableName string) ([]ast.Index, error) {
	query, args, err := psql.Select(
		"i.relname",
		"ix.indisunique",
		"am.amname",
		"array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum))",
	).
		From("pg_class t").
		Join("pg_index ix ON t.oid = ix.indrelid").
		Join("pg_class i ON i.oid = ix.indexrelid").
		Join("pg_am am ON am.oid = i.relam").
		Join("pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)").
		Join("pg_namespace n ON n.oid = t.relnamespace").
		Where("t.relkind = 'r'").
		Where(sq.Eq{"n.nspname": e.schema, "t.relname": tableName, "ix.indisprimary": false}).
		GroupBy("i.relname", "ix.indisunique", "am.amname").
		OrderBy("i.relname").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := e.client.GetConnection().Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []ast.Index
	for rows.Next() {
		var name, method string
		var unique bool
		var columns []string
		if err := rows.Scan(&name, &unique, &method, &columns); err != nil {
			return nil, err
		}
		indexes = append(indexes, newIndex(name, method, unique, columns))
	}

	return indexes, rows.Err()
}

func (e *PostgresExtractor) extractComment(ctx context.Context, table *ast.Table) error {
	query, args, err := psql.Select("obj_description(c.oid, 'pg_class')").
		From("pg_class c").
		Join("pg_namespace n ON n.oid = c.relnamespace").
		Where(sq.Eq{"n.nspname": e.schema, "c.relname": table.Ident.Name}).
		ToSql()
	if err != nil {
		return err
	}

	var comment *string
	if err := e.client.GetConnection().QueryRow(ctx, query, args...).Scan(&comment); err != nil {
		return err
	}
	if comment != nil {
		table.Note = *comment
	}
	return nil
}

// newIndex builds an index; btree is the implicit method and is left out
func newIndex(name, method string, unique bool, columns []string) ast.Index {
	idx := ast.Index{Settings: ast.IndexSettings{Name: name, IsUnique: unique}}
	if method != "" && !strings.EqualFold(method, "btree") {
		idx.Settings.Type = method
	}
	for _, c := range columns {
		idx.Columns = append(idx.Columns, ast.IndexColumn{Name: c})
	}
	return idx
}
