//go:build integration
// +build integration

package dbmlorm

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tordrt/dbmlorm/internal/db"
)

// createSQLiteDB writes a small shop database and returns its URL
func createSQLiteDB(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shop.db")

	client, err := db.NewSQLiteClient(ctx, path)
	if err != nil {
		t.Fatalf("Failed to create SQLite database: %v", err)
	}
	defer func() { _ = client.Close() }()

	_, err = client.GetDB().ExecContext(ctx, `
CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL UNIQUE);
CREATE TABLE products (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE orders (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id),
	product_id INTEGER NOT NULL REFERENCES products(id)
);
CREATE TABLE audit_log (id INTEGER PRIMARY KEY, message TEXT);
`)
	if err != nil {
		t.Fatalf("Failed to create fixture: %v", err)
	}
	return "sqlite://" + path
}

func TestExtractSchema(t *testing.T) {
	ctx := context.Background()
	url := createSQLiteDB(t)

	tests := []struct {
		name       string
		opts       *Options
		wantTables []string
	}{
		{
			name:       "all tables",
			wantTables: []string{"audit_log", "orders", "products", "users"},
		},
		{
			name:       "specific tables",
			opts:       &Options{Tables: []string{"users", "products"}},
			wantTables: []string{"products", "users"},
		},
		{
			name:       "excluded tables",
			opts:       &Options{ExcludeTables: []string{"audit_log"}},
			wantTables: []string{"orders", "products", "users"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ExtractSchema(ctx, url, tt.opts)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if len(s.Tables) != len(tt.wantTables) {
				t.Fatalf("Expected %d tables, got %d", len(tt.wantTables), len(s.Tables))
			}
			for i, table := range s.Tables {
				if table.Ident.Name != tt.wantTables[i] {
					t.Errorf("table[%d] = %s, want %s", i, table.Ident.Name, tt.wantTables[i])
				}
			}
		})
	}
}

func TestExtractAndFormat(t *testing.T) {
	ctx := context.Background()
	url := createSQLiteDB(t)

	var buf bytes.Buffer
	if err := ExtractAndFormat(ctx, url, nil, &OutputOptions{Writer: &buf}); err != nil {
		t.Fatalf("ExtractAndFormat failed: %v", err)
	}

	// The written DBML must pass analysis on its own
	if _, err := Check(buf.String()); err != nil {
		t.Fatalf("Extracted DBML failed analysis: %v\n%s", err, buf.String())
	}
	if !strings.Contains(buf.String(), "Table orders {") {
		t.Errorf("Expected orders table in output:\n%s", buf.String())
	}

	dir := t.TempDir()
	if err := ExtractAndFormat(ctx, url, &Options{ExcludeTables: []string{"audit_log"}}, &OutputOptions{OutputDir: dir}); err != nil {
		t.Fatalf("ExtractAndFormat to directory failed: %v", err)
	}
	for _, name := range []string{"_overview.md", "users.md", "orders.md"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected file %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "audit_log.md")); !os.IsNotExist(err) {
		t.Error("Expected audit_log to be excluded")
	}
}
