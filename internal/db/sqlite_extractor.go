package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/tordrt/dbmlorm/internal/ast"
)

// SQLiteExtractor handles schema extraction from SQLite
type SQLiteExtractor struct {
	client *SQLiteClient
	opts   Options
	logger *zap.Logger
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(client *SQLiteClient, opts Options) *SQLiteExtractor {
	return &SQLiteExtractor{
		client: client,
		opts:   opts,
		logger: opts.logger(),
	}
}

// ExtractSchema extracts the complete schema for specified tables
// If tables is empty, extracts all tables in the database
func (e *SQLiteExtractor) ExtractSchema(ctx context.Context, tables []string) (*ast.Schema, error) {
	name := strings.TrimSuffix(filepath.Base(e.client.Path()), filepath.Ext(e.client.Path()))
	s := &ast.Schema{Project: &ast.Project{Name: name, DatabaseType: "SQLite"}}

	tableNames, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	for _, tableName := range tableNames {
		table, err := e.extractTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		s.Tables = append(s.Tables, *table)

		fks, err := e.extractForeignKeys(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract foreign keys of %s: %w", tableName, err)
		}
		for _, fk := range fks {
			s.Refs = append(s.Refs, fk.refBlock(""))
		}
		e.logger.Debug("extracted table",
			zap.String("table", tableName),
			zap.Int("columns", len(table.Columns)),
			zap.Int("foreign_keys", len(fks)))
	}

	e.logger.Info("extracted schema",
		zap.String("path", e.client.Path()),
		zap.Int("tables", len(s.Tables)),
		zap.Int("refs", len(s.Refs)))
	return s, nil
}

func (e *SQLiteExtractor) tablesQuery(requested []string) sq.SelectBuilder {
	q := sq.Select("name").
		From("sqlite_master").
		Where(sq.Eq{"type": "table"}).
		Where(sq.NotLike{"name": "sqlite_%"}).
		OrderBy("name")
	if len(requested) > 0 {
		q = q.Where(sq.Eq{"name": requested})
	}
	if len(e.opts.Exclude) > 0 {
		q = q.Where(sq.NotEq{"name": e.opts.Exclude})
	}
	return q
}

// getTableNames returns the list of tables to extract
func (e *SQLiteExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
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

// pragma builds a PRAGMA call; pragmas do not accept bound parameters
func pragma(name, arg string) string {
	return fmt.Sprintf("PRAGMA %s(%s)", name, quoteSQLite(arg))
}

func quoteSQLite(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// extractTable extracts all information for a single table
func (e *SQLiteExtractor) extractTable(ctx context.Context, tableName string) (*ast.Table, error) {
	table := &ast.Table{Ident: ast.TableIdent{Name: tableName}}

	columns, pk, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns
	markPrimaryKey(table, pk)

	// An INTEGER PRIMARY KEY column aliases the rowid
	if len(pk) == 1 {
		if col := findColumn(table, pk[0]); col != nil && col.Type.Token == "integer" {
			col.Settings.IsIncremental = true
		}
	}

	indexes, err := e.extractIndexes(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	applyIndexes(table, indexes)

	return table, nil
}

// extractColumns extracts the columns and the primary key in key order
func (e *SQLiteExtractor) extractColumns(ctx context.Context, tableName string) ([]ast.Column, []string, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, pragma("table_info", tableName))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var columns []ast.Column
	pkOrder := make(map[int]string)

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, nil, err
		}

		typ, isArray := rawType(colType)
		col := ast.Column{
			Name: name,
			Type: typ,
			Settings: ast.ColumnSettings{
				IsNullable: notNull == 0 && pk == 0,
				IsArray:    isArray,
			},
		}
		if defaultValue.Valid {
			col.Settings.Default = literalDefault(defaultValue.String)
		}
		if pk > 0 {
			pkOrder[pk] = name
		}

		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	pk := make([]string, 0, len(pkOrder))
	for i := 1; i <= len(pkOrder); i++ {
		if name, ok := pkOrder[i]; ok {
			pk = append(pk, name)
		}
	}

	return columns, pk, nil
}

// extractForeignKeys extracts foreign key constraints
func (e *SQLiteExtractor) extractForeignKeys(ctx context.Context, tableName string) ([]*foreignKey, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, pragma("foreign_key_list", tableName))
	if err != nil {
		return nil, err
	}

	var fks []foreignKey
	implicit := make(map[int]int)
	for rows.Next() {
		var id, seq int
		var targetTable, fromCol, onUpdate, onDelete, match string
		var toCol sql.NullString

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			rows.Close()
			return nil, err
		}

		fk := foreignKey{
			name:     fmt.Sprintf("%s_fk_%d", tableName, id),
			table:    tableName,
			columns:  []string{fromCol},
			refTable: targetTable,
			onDelete: onDelete,
			onUpdate: onUpdate,
		}
		if toCol.Valid {
			fk.refColumns = []string{toCol.String}
		} else {
			implicit[len(fks)] = seq
		}
		fks = append(fks, fk)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// A foreign key without target columns references the target's primary key
	for i := range fks {
		seq, ok := implicit[i]
		if !ok {
			continue
		}
		_, pk, err := e.extractColumns(ctx, fks[i].refTable)
		if err != nil {
			return nil, fmt.Errorf("failed to read primary key of %s: %w", fks[i].refTable, err)
		}
		if seq >= len(pk) {
			return nil, fmt.Errorf("foreign key on %s.%s references %s, which has no matching primary key", tableName, fks[i].columns[0], fks[i].refTable)
		}
		fks[i].refColumns = []string{pk[seq]}
	}

	return groupForeignKeys(fks), nil
}

// extractIndexes extracts index information
func (e *SQLiteExtractor) extractIndexes(ctx context.Context, tableName string) ([]ast.Index, error) {
	type indexEntry struct {
		name   string
		unique bool
		origin string
	}

	rows, err := e.client.GetDB().QueryContext(ctx, pragma("index_list", tableName))
	if err != nil {
		return nil, err
	}

	var entries []indexEntry
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, indexEntry{name: name, unique: unique == 1, origin: origin})
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	var indexes []ast.Index
	for _, entry := range entries {
		// Primary keys are already recorded on the columns
		if entry.origin == "pk" {
			continue
		}

		columns, err := e.indexColumns(ctx, entry.name)
		if err != nil {
			return nil, err
		}
		if len(columns) == 0 {
			continue
		}

		name := entry.name
		if strings.HasPrefix(name, "sqlite_autoindex") {
			name = ""
		}
		indexes = append(indexes, newIndex(name, "", entry.unique, columns))
	}

	// PRAGMA index_list lists the newest index first
	for i, j := 0, len(indexes)-1; i < j; i, j = i+1, j-1 {
		indexes[i], indexes[j] = indexes[j], indexes[i]
	}

	return indexes, nil
}

func (e *SQLiteExtractor) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, pragma("index_info", indexName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString

		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}

		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}

	return columns, rows.Err()
}
