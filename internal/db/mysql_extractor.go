package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/tordrt/dbmlorm/internal/ast"
)

// MySQLExtractor handles schema extraction from MySQL
type MySQLExtractor struct {
	client     *MySQLClient
	schemaName string
	opts       Options
	logger     *zap.Logger
}

// NewMySQLExtractor creates a new MySQL schema extractor
func NewMySQLExtractor(client *MySQLClient, opts Options) *MySQLExtractor {
	return &MySQLExtractor{
		client:     client,
		schemaName: opts.Schema,
		opts:       opts,
		logger:     opts.logger(),
	}
}

// ExtractSchema extracts the complete schema for specified tables
// If tables is empty, extracts all tables in the schema.
// MySQL databases are flat, so every table lands in the default DBML schema.
func (e *MySQLExtractor) ExtractSchema(ctx context.Context, tables []string) (*ast.Schema, error) {
	s := &ast.Schema{Project: &ast.Project{Name: e.schemaName, DatabaseType: "MySQL"}}

	tableNames, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	for _, tableName := range tableNames {
		table, enums, err := e.extractTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		s.Tables = append(s.Tables, *table)
		s.Enums = append(s.Enums, enums...)

		fks, err := e.extractForeignKeys(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract foreign keys of %s: %w", tableName, err)
		}
		for _, fk := range fks {
			s.Refs = append(s.Refs, fk.refBlock(""))
		}
		e.logger.Debug("extracted table",
			zap.String("database", e.schemaName),
			zap.String("table", tableName),
			zap.Int("columns", len(table.Columns)),
			zap.Int("enums", len(enums)))
	}
	sortEnums(s.Enums)

	e.logger.Info("extracted schema",
		zap.String("database", e.schemaName),
		zap.Int("tables", len(s.Tables)),
		zap.Int("refs", len(s.Refs)))
	return s, nil
}

func (e *MySQLExtractor) tablesQuery(requested []string) sq.SelectBuilder {
	q := sq.Select("table_name").
		From("information_schema.tables").
		Where(sq.Eq{"table_schema": e.schemaName, "table_type": "BASE TABLE"}).
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
func (e *MySQLExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	query, args, err := e.tablesQuery(requestedTables).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := e.client.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tableList []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tableList = append(tableList, tableName)
	}

	return tableList, rows.Err()
}

// extractTable extracts a table plus the enums synthesized from its enum columns
func (e *MySQLExtractor) extractTable(ctx context.Context, tableName string) (*ast.Table, []ast.Enum, error) {
	table := &ast.Table{Ident: ast.TableIdent{Name: tableName}}

	columns, enums, err := e.extractColumns(ctx, tableName)
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

	return table, enums, nil
}

// extractColumns extracts column information for a table
func (e *MySQLExtractor) extractColumns(ctx context.Context, tableName string) ([]ast.Column, []ast.Enum, error) {
	query, args, err := sq.Select(
		"column_name",
		"column_type",
		"data_type",
		"is_nullable",
		"column_default",
		"extra",
		"column_comment",
	).
		From("information_schema.columns").
		Where(sq.Eq{"table_schema": e.schemaName, "table_name": tableName}).
		OrderBy("ordinal_position").
		ToSql()
	if err != nil {
		return nil, nil, err
	}

	rows, err := e.client.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var columns []ast.Column
	var enums []ast.Enum

	for rows.Next() {
		var name, columnType, dataType, nullable, extra, comment string
		var defaultVal sql.NullString

		if err := rows.Scan(&name, &columnType, &dataType, &nullable, &defaultVal, &extra, &comment); err != nil {
			return nil, nil, err
		}

		col := ast.Column{
			Name: name,
			Settings: ast.ColumnSettings{
				IsNullable:    nullable == "YES",
				IsIncremental: strings.Contains(strings.ToLower(extra), "auto_increment"),
				Note:          comment,
			},
		}

		if dataType == "enum" {
			values, err := parseEnumValues(columnType)
			if err != nil {
				return nil, nil, err
			}
			enum := ast.Enum{Ident: ast.EnumIdent{Name: tableName + "_" + name}}
			for _, v := range values {
				enum.Values = append(enum.Values, ast.EnumValue{Value: v})
			}
			enums = append(enums, enum)
			col.Type = ast.RawType{Token: enum.Ident.Name}
		} else {
			col.Type, col.Settings.IsArray = rawType(mysqlType(columnType))
		}

		if defaultVal.Valid {
			col.Settings.Default = mysqlDefault(defaultVal.String, extra, col.Type.Token, dataType == "enum")
		}

		columns = append(columns, col)
	}

	return columns, enums, rows.Err()
}

// mysqlType maps the MySQL boolean spelling onto a DBML type declaration
func mysqlType(columnType string) string {
	if strings.EqualFold(columnType, "tinyint(1)") {
		return "boolean"
	}
	return columnType
}

// mysqlDefault interprets information_schema.columns.column_default. MySQL 8
// stores literals without quotes and flags expression defaults in extra.
func mysqlDefault(raw, extra, token string, isEnum bool) *ast.Value {
	if strings.Contains(strings.ToUpper(extra), "DEFAULT_GENERATED") || strings.HasPrefix(strings.ToUpper(raw), "CURRENT_TIMESTAMP") {
		return &ast.Value{Kind: ast.ValueExpr, Text: raw}
	}
	if strings.EqualFold(raw, "NULL") {
		return &ast.Value{Kind: ast.ValueNull}
	}
	if isEnum {
		return &ast.Value{Kind: ast.ValueString, Text: raw}
	}
	switch token {
	case "smallint", "integer", "bigint", "real", "double", "decimal":
		return unquotedDefault(raw)
	case "boolean":
		if raw == "1" {
			return &ast.Value{Kind: ast.ValueBool, Text: "true"}
		}
		return &ast.Value{Kind: ast.ValueBool, Text: "false"}
	}
	if v := literalDefault(raw); v != nil && v.Kind == ast.ValueString {
		return v
	}
	return &ast.Value{Kind: ast.ValueString, Text: raw}
}

// parseEnumValues parses enum values from the column type string
// MySQL stores enum types as "enum('value1','value2','value3')"
func parseEnumValues(columnType string) ([]string, error) {
	start := strings.Index(columnType, "(")
	end := strings.LastIndex(columnType, ")")
	if !strings.HasPrefix(strings.ToLower(columnType), "enum(") || start == -1 || end == -1 || start >= end {
		return nil, fmt.Errorf("invalid enum type format: %s", columnType)
	}

	var values []string
	list := columnType[start+1 : end]
	for i := 0; i < len(list); i++ {
		if list[i] != '\'' {
			continue
		}
		var b strings.Builder
		for i++; i < len(list); i++ {
			if list[i] == '\'' {
				if i+1 < len(list) && list[i+1] == '\'' {
					b.WriteByte('\'')
					i++
					continue
				}
				break
			}
			b.WriteByte(list[i])
		}
		values = append(values, b.String())
	}

	return values, nil
}

// extractPrimaryKey extracts primary key columns
func (e *MySQLExtractor) extractPrimaryKey(ctx context.Context, tableName string) ([]string, error) {
	query, args, err := sq.Select("column_name").
		From("information_schema.key_column_usage").
		Where(sq.Eq{"table_schema": e.schemaName, "table_name": tableName, "constraint_name": "PRIMARY"}).
		OrderBy("ordinal_position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := e.client.GetDB().QueryContext(ctx, query, args...)
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

// extractForeignKeys extracts foreign key constraints with their referential actions
func (e *MySQLExtractor) extractForeignKeys(ctx context.Context, tableName string) ([]*foreignKey, error) {
	query, args, err := sq.Select(
		"kcu.constraint_name",
		"kcu.column_name",
		"kcu.referenced_table_name",
		"kcu.referenced_column_name",
		"rc.delete_rule",
		"rc.update_rule",
	).
		From("information_schema.key_column_usage kcu").
		Join("information_schema.referential_constraints rc ON rc.constraint_schema = kcu.table_schema AND rc.constraint_name = kcu.constraint_name").
		Where(sq.Eq{"kcu.table_schema": e.schemaName, "kcu.table_name": tableName}).
		Where("kcu.referenced_table_name IS NOT NULL").
		OrderBy("kcu.constraint_name", "kcu.ordinal_position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := e.client.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []foreignKey
	for rows.Next() {
		fk := foreignKey{table: tableName}
		var column, refColumn string
		if err := rows.Scan(&fk.name, &column, &fk.refTable, &refColumn, &fk.onDelete, &fk.onUpdate); err != nil {
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
func (e *MySQLExtractor) extractIndexes(ctx context.Context, tableName string) ([]ast.Index, error) {
	query, args, err := sq.Select(
		"index_name",
		"non_unique = 0",
		"index_type",
		"GROUP_CONCAT(column_name ORDER BY seq_in_index)",
	).
		From("information_schema.statistics").
		Where(sq.Eq{"table_schema": e.schemaName, "table_name": tableName}).
		Where(sq.NotEq{"index_name": "PRIMARY"}).
		GroupBy("index_name", "non_unique", "index_type").
		OrderBy("index_name").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := e.client.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []ast.Index
	for rows.Next() {
		var name, method, columnNames string
		var isUnique int

		if err := rows.Scan(&name, &isUnique, &method, &columnNames); err != nil {
			return nil, err
		}

		indexes = append(indexes, newIndex(name, strings.ToLower(method), isUnique == 1, strings.Split(columnNames, ",")))
	}

	return indexes, rows.Err()
}
