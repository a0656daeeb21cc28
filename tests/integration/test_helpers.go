//go:build integration
// +build integration

package integration

import (
	"testing"

	"github.com/tordrt/dbmlorm/internal/analyzer"
	"github.com/tordrt/dbmlorm/internal/ast"
)

// verifyTablesExist checks that all expected tables are present in the schema
func verifyTablesExist(t *testing.T, s *ast.Schema, expectedTables []string) {
	t.Helper()

	if len(s.Tables) != len(expectedTables) {
		t.Errorf("Expected %d tables, got %d", len(expectedTables), len(s.Tables))
	}

	tableMap := make(map[string]bool)
	for _, table := range s.Tables {
		tableMap[table.Ident.Name] = true
	}

	for _, tableName := range expectedTables {
		if !tableMap[tableName] {
			t.Errorf("Expected table %s not found in schema", tableName)
		}
	}
}

// verifyColumns checks that expected columns exist in a table
func verifyColumns(t *testing.T, table *ast.Table, expectedColumns []string) {
	t.Helper()

	columnMap := make(map[string]bool)
	for _, col := range table.Columns {
		columnMap[col.Name] = true
	}

	for _, colName := range expectedColumns {
		if !columnMap[colName] {
			t.Errorf("Expected column %s not found in %s table", colName, table.Ident.Name)
		}
	}
}

// verifyPrimaryKey checks that a table has the expected primary key,
// either as column settings or as a composite pk index
func verifyPrimaryKey(t *testing.T, table *ast.Table, expectedPK []string) {
	t.Helper()

	var pk []string
	for _, col := range table.Columns {
		if col.Settings.IsPK {
			pk = append(pk, col.Name)
		}
	}
	for _, idx := range table.Indexes {
		if idx.Settings.IsPK {
			for _, c := range idx.Columns {
				pk = append(pk, c.Name)
			}
		}
	}

	if len(pk) != len(expectedPK) {
		t.Errorf("Expected primary key %v, got %v", expectedPK, pk)
		return
	}
	for i := range expectedPK {
		if pk[i] != expectedPK[i] {
			t.Errorf("Expected primary key %v, got %v", expectedPK, pk)
			return
		}
	}
}

// verifyUniqueConstraint checks that a column has a unique constraint
func verifyUniqueConstraint(t *testing.T, s *ast.Schema, tableName, columnName string) {
	t.Helper()

	col := findColumn(t, s, tableName, columnName)
	if !col.Settings.IsUnique {
		t.Errorf("Expected %s column to have unique constraint", columnName)
	}
}

// verifyForeignKey checks that an explicit ref from the column to the target table exists
func verifyForeignKey(t *testing.T, s *ast.Schema, tableName, sourceColumn, targetTable string) {
	t.Helper()

	for _, ref := range s.Refs {
		if ref.LHS == nil || ref.LHS.Table != tableName || ref.RHS.Table != targetTable {
			continue
		}
		for _, c := range ref.LHS.Compositions {
			if c == sourceColumn {
				return
			}
		}
	}

	t.Errorf("Expected foreign key relationship from %s.%s to %s not found", tableName, sourceColumn, targetTable)
}

// verifyIndex checks that an index exists with the expected columns
func verifyIndex(t *testing.T, s *ast.Schema, tableName, indexName string, expectedColumns []string) {
	t.Helper()

	table := findTable(s, tableName)
	if table == nil {
		t.Fatalf("Table %s not found", tableName)
	}

	for _, idx := range table.Indexes {
		if idx.Settings.Name != indexName {
			continue
		}
		if len(idx.Columns) != len(expectedColumns) {
			t.Errorf("Expected index %s on %v, got %v", indexName, expectedColumns, idx.Columns)
			return
		}
		for i, col := range expectedColumns {
			if idx.Columns[i].Name != col {
				t.Errorf("Expected index %s on %v, got %v", indexName, expectedColumns, idx.Columns)
				return
			}
		}
		return
	}

	t.Errorf("Expected index %s on %s table not found", indexName, tableName)
}

// verifyEnumValues checks that a column is typed with an enum holding the expected values
func verifyEnumValues(t *testing.T, s *ast.Schema, tableName, columnName string, expectedValues []string) {
	t.Helper()

	col := findColumn(t, s, tableName, columnName)
	for _, e := range s.Enums {
		if e.Ident.Name != col.Type.Token {
			continue
		}
		if len(e.Values) != len(expectedValues) {
			t.Errorf("Expected %d enum values for %s, got %d", len(expectedValues), columnName, len(e.Values))
			return
		}
		for i, v := range e.Values {
			if v.Value != expectedValues[i] {
				t.Errorf("Expected enum values %v, got %+v", expectedValues, e.Values)
				return
			}
		}
		return
	}

	t.Errorf("Enum %s for %s.%s not found", col.Type.Token, tableName, columnName)
}

// verifyAnalyzes checks that the extracted schema passes semantic analysis
func verifyAnalyzes(t *testing.T, s *ast.Schema) *analyzer.Model {
	t.Helper()

	m, err := analyzer.Analyze(s)
	if err != nil {
		t.Fatalf("Extracted schema failed analysis: %v", err)
	}
	return m
}

func findColumn(t *testing.T, s *ast.Schema, tableName, columnName string) *ast.Column {
	t.Helper()

	table := findTable(s, tableName)
	if table == nil {
		t.Fatalf("Table %s not found", tableName)
	}
	for i := range table.Columns {
		if table.Columns[i].Name == columnName {
			return &table.Columns[i]
		}
	}
	t.Fatalf("Column %s not found in table %s", columnName, tableName)
	return nil
}

// findTable is a helper function to find a table by name in the schema
func findTable(s *ast.Schema, tableName string) *ast.Table {
	for i := range s.Tables {
		if s.Tables[i].Ident.Name == tableName {
			return &s.Tables[i]
		}
	}
	return nil
}

// tableNames lists the extracted table names
func tableNames(s *ast.Schema) map[string]bool {
	names := make(map[string]bool)
	for _, table := range s.Tables {
		names[table.Ident.Name] = true
	}
	return names
}
