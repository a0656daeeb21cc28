//go:build integration
// +build integration

package integration

import (
	"context"
	"os"
	"testing"

	"github.com/tordrt/dbmlorm/internal/db"
)

func mysqlExtractor(t *testing.T) (*db.MySQLExtractor, context.Context) {
	t.Helper()
	ctx := context.Background()

	// Use environment variable if set, otherwise use default test connection string
	connString := os.Getenv("MYSQL_TEST_URL")
	if connString == "" {
		connString = "root:testpassword@tcp(localhost:3306)/testdb"
	}

	client, err := db.NewMySQLClient(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect to MySQL: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	name, err := db.ParseDatabaseName(connString)
	if err != nil {
		t.Fatalf("Failed to read database name: %v", err)
	}
	return db.NewMySQLExtractor(client, db.Options{Schema: name}), ctx
}

func TestMySQLExtraction(t *testing.T) {
	extractor, ctx := mysqlExtractor(t)

	s, err := extractor.ExtractSchema(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to extract schema: %v", err)
	}

	verifyTablesExist(t, s, []string{"users", "products", "orders", "order_items"})

	table := findTable(s, "users")
	if table == nil {
		t.Fatal("Users table not found")
	}
	verifyPrimaryKey(t, table, []string{"id"})
	verifyColumns(t, table, []string{"id", "username", "email", "status", "created_at"})

	// ENUM columns become synthesized enums named <table>_<column>
	verifyEnumValues(t, s, "users", "status", []string{"active", "inactive", "banned"})

	verifyForeignKey(t, s, "orders", "user_id", "users")
	verifyAnalyzes(t, s)
}

func TestMySQLSpecificTables(t *testing.T) {
	extractor, ctx := mysqlExtractor(t)

	s, err := extractor.ExtractSchema(ctx, []string{"users", "products"})
	if err != nil {
		t.Fatalf("Failed to extract schema: %v", err)
	}

	names := tableNames(s)
	if len(s.Tables) != 2 || !names["users"] || !names["products"] {
		t.Errorf("Expected users and products tables, got %v", names)
	}
	if names["orders"] || names["order_items"] {
		t.Error("Should not include orders or order_items tables")
	}
}
