package db

import (
	"strings"
	"testing"

	"github.com/tordrt/dbmlorm/internal/ast"
)

func TestRawType(t *testing.T) {
	tests := []struct {
		name      string
		decl      string
		wantToken string
		wantArgs  []string
		wantArray bool
	}{
		{name: "postgres varchar", decl: "character varying(40)", wantToken: "varchar", wantArgs: []string{"40"}},
		{name: "mysql varchar", decl: "VARCHAR(255)", wantToken: "varchar", wantArgs: []string{"255"}},
		{name: "numeric precision and scale", decl: "numeric(10,2)", wantToken: "decimal", wantArgs: []string{"10", "2"}},
		{name: "decimal without scale", decl: "decimal(8)", wantToken: "decimal", wantArgs: []string{"8", "0"}},
		{name: "mysql display width dropped", decl: "int(11) unsigned", wantToken: "integer"},
		{name: "timestamp with time zone", decl: "timestamp with time zone", wantToken: "timestamptz"},
		{name: "double precision", decl: "double precision", wantToken: "double"},
		{name: "array suffix", decl: "int4[]", wantToken: "integer", wantArray: true},
		{name: "sqlite untyped column", decl: "", wantToken: "text"},
		{name: "unknown type kept", decl: "citext", wantToken: "citext"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, isArray := rawType(tt.decl)
			if got.Token != tt.wantToken {
				t.Errorf("rawType(%q) token = %q, want %q", tt.decl, got.Token, tt.wantToken)
			}
			if isArray != tt.wantArray {
				t.Errorf("rawType(%q) array = %v, want %v", tt.decl, isArray, tt.wantArray)
			}
			if len(got.Args) != len(tt.wantArgs) {
				t.Fatalf("rawType(%q) args = %v, want %v", tt.decl, got.Args, tt.wantArgs)
			}
			for i, arg := range got.Args {
				if arg.Kind != ast.ValueInteger || arg.Text != tt.wantArgs[i] {
					t.Errorf("rawType(%q) arg %d = %v, want %s", tt.decl, i, arg, tt.wantArgs[i])
				}
			}
		})
	}
}

func TestPostgresType(t *testing.T) {
	length := 64
	precision, scale := 12, 4

	tests := []struct {
		name      string
		dataType  string
		udtName   string
		want      string
		wantArray bool
	}{
		{name: "varchar with length", dataType: "character varying", udtName: "varchar", want: "varchar(64)"},
		{name: "numeric", dataType: "numeric", udtName: "numeric", want: "decimal(12, 4)"},
		{name: "integer array", dataType: "ARRAY", udtName: "_int4", want: "integer", wantArray: true},
		{name: "user defined", dataType: "USER-DEFINED", udtName: "user_status", want: "user_status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, isArray := postgresType(tt.dataType, tt.udtName, &length, &precision, &scale)
			if got.String() != tt.want {
				t.Errorf("postgresType() = %q, want %q", got.String(), tt.want)
			}
			if isArray != tt.wantArray {
				t.Errorf("postgresType() array = %v, want %v", isArray, tt.wantArray)
			}
		})
	}
}

func TestLiteralDefault(t *testing.T) {
	tests := []struct {
		raw      string
		wantKind ast.ValueKind
		wantText string
	}{
		{raw: "'active'::user_status", wantKind: ast.ValueString, wantText: "active"},
		{raw: "'it''s'::character varying", wantKind: ast.ValueString, wantText: "it's"},
		{raw: "'hello'", wantKind: ast.ValueString, wantText: "hello"},
		{raw: "0", wantKind: ast.ValueInteger, wantText: "0"},
		{raw: "(-1)", wantKind: ast.ValueInteger, wantText: "-1"},
		{raw: "9.99", wantKind: ast.ValueDecimal, wantText: "9.99"},
		{raw: "true", wantKind: ast.ValueBool, wantText: "true"},
		{raw: "NULL::character varying", wantKind: ast.ValueNull},
		{raw: "now()", wantKind: ast.ValueExpr, wantText: "now()"},
		{raw: "CURRENT_TIMESTAMP", wantKind: ast.ValueExpr, wantText: "CURRENT_TIMESTAMP"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := literalDefault(tt.raw)
			if got == nil {
				t.Fatalf("literalDefault(%q) = nil", tt.raw)
			}
			if got.Kind != tt.wantKind || got.Text != tt.wantText {
				t.Errorf("literalDefault(%q) = %v/%q, want %v/%q", tt.raw, got.Kind, got.Text, tt.wantKind, tt.wantText)
			}
		})
	}

	if got := literalDefault("  "); got != nil {
		t.Errorf("literalDefault(blank) = %v, want nil", got)
	}
}

func TestMySQLDefault(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		extra    string
		token    string
		isEnum   bool
		wantKind ast.ValueKind
		wantText string
	}{
		{name: "generated expression", raw: "CURRENT_TIMESTAMP", extra: "DEFAULT_GENERATED", token: "timestamp", wantKind: ast.ValueExpr, wantText: "CURRENT_TIMESTAMP"},
		{name: "enum literal", raw: "active", token: "users_status", isEnum: true, wantKind: ast.ValueString, wantText: "active"},
		{name: "integer literal", raw: "5", token: "integer", wantKind: ast.ValueInteger, wantText: "5"},
		{name: "boolean literal", raw: "1", token: "boolean", wantKind: ast.ValueBool, wantText: "true"},
		{name: "string literal", raw: "n/a", token: "varchar", wantKind: ast.ValueString, wantText: "n/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mysqlDefault(tt.raw, tt.extra, tt.token, tt.isEnum)
			if got.Kind != tt.wantKind || got.Text != tt.wantText {
				t.Errorf("mysqlDefault() = %v/%q, want %v/%q", got.Kind, got.Text, tt.wantKind, tt.wantText)
			}
		})
	}
}

func TestParseEnumValues(t *testing.T) {
	got, err := parseEnumValues("enum('active','in''active','banned, forever')")
	if err != nil {
		t.Fatalf("parseEnumValues() error = %v", err)
	}
	want := []string{"active", "in'active", "banned, forever"}
	if len(got) != len(want) {
		t.Fatalf("parseEnumValues() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("parseEnumValues()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if _, err := parseEnumValues("varchar(10)"); err == nil {
		t.Error("Expected error for non-enum column type")
	}
}

func TestGroupForeignKeys(t *testing.T) {
	rows := []foreignKey{
		{name: "fk_items_order", table: "items", columns: []string{"order_id"}, refTable: "orders", refColumns: []string{"id"}, onDelete: "CASCADE", onUpdate: "NO ACTION"},
		{name: "fk_items_product", table: "items", columns: []string{"product_id"}, refTable: "products", refColumns: []string{"id"}, onDelete: "NO ACTION", onUpdate: "NO ACTION"},
		{name: "fk_items_order", table: "items", columns: []string{"order_rev"}, refTable: "orders", refColumns: []string{"rev"}},
	}

	fks := groupForeignKeys(rows)
	if len(fks) != 2 {
		t.Fatalf("Expected 2 constraints, got %d", len(fks))
	}

	ref := fks[0].refBlock(ast.DefaultSchema)
	if ref.Rel != ast.ManyToOne {
		t.Errorf("Expected many-to-one, got %v", ref.Rel)
	}
	if got := ref.LHS.String(); got != "items.(order_id, order_rev)" {
		t.Errorf("LHS = %q", got)
	}
	if got := ref.RHS.String(); got != "orders.(id, rev)" {
		t.Errorf("RHS = %q", got)
	}
	if ref.Settings == nil || ref.Settings.OnDelete == nil || *ref.Settings.OnDelete != ast.Cascade {
		t.Errorf("Expected on delete cascade, got %+v", ref.Settings)
	}
	if ref.Settings.OnUpdate != nil {
		t.Errorf("Expected no update action, got %v", *ref.Settings.OnUpdate)
	}

	if got := fks[1].refBlock("sales").Settings; got != nil {
		t.Errorf("Expected nil settings for NO ACTION rules, got %+v", got)
	}
	if got := fks[1].refBlock("sales").LHS.Schema; got != "sales" {
		t.Errorf("Expected LHS schema sales, got %q", got)
	}
}

func TestPrimaryKeyAndIndexes(t *testing.T) {
	table := &ast.Table{
		Ident: ast.TableIdent{Name: "memberships"},
		Columns: []ast.Column{
			{Name: "user_id", Type: ast.RawType{Token: "integer"}},
			{Name: "group_id", Type: ast.RawType{Token: "integer"}},
			{Name: "slug", Type: ast.RawType{Token: "text"}, Settings: ast.ColumnSettings{IsNullable: true}},
		},
	}

	markPrimaryKey(table, []string{"user_id", "group_id"})
	applyIndexes(table, []ast.Index{
		newIndex("memberships_slug_key", "btree", true, []string{"slug"}),
		newIndex("memberships_group_idx", "hash", false, []string{"group_id"}),
	})

	if !table.Columns[2].Settings.IsUnique {
		t.Error("Expected slug to be unique")
	}
	if len(table.Indexes) != 2 {
		t.Fatalf("Expected pk index and group index, got %d indexes", len(table.Indexes))
	}
	if !table.Indexes[0].Settings.IsPK || len(table.Indexes[0].Columns) != 2 {
		t.Errorf("Expected composite pk index, got %+v", table.Indexes[0])
	}
	if table.Indexes[1].Settings.Type != "hash" {
		t.Errorf("Expected hash index type, got %q", table.Indexes[1].Settings.Type)
	}

	single := &ast.Table{Columns: []ast.Column{{Name: "id", Settings: ast.ColumnSettings{IsNullable: true}}}}
	markPrimaryKey(single, []string{"id"})
	if !single.Columns[0].Settings.IsPK || single.Columns[0].Settings.IsNullable {
		t.Errorf("Expected non-nullable pk column, got %+v", single.Columns[0].Settings)
	}
}

func TestTablesQuery(t *testing.T) {
	pg := NewPostgresExtractor(nil, Options{Exclude: []string{"schema_migrations"}})
	query, args, err := pg.tablesQuery([]string{"users", "orders"}).ToSql()
	if err != nil {
		t.Fatalf("ToSql() error = %v", err)
	}
	for _, want := range []string{"table_name IN ($", "table_name NOT IN ($", "ORDER BY table_name"} {
		if !strings.Contains(query, want) {
			t.Errorf("Expected query to contain %q, got %s", want, query)
		}
	}
	if len(args) != 5 {
		t.Errorf("Expected 5 args, got %v", args)
	}
	if args[0] != ast.DefaultSchema && args[1] != ast.DefaultSchema {
		t.Errorf("Expected default schema among args, got %v", args)
	}

	lite := NewSQLiteExtractor(nil, Options{})
	query, args, err = lite.tablesQuery(nil).ToSql()
	if err != nil {
		t.Fatalf("ToSql() error = %v", err)
	}
	if !strings.Contains(query, "name NOT LIKE ?") || strings.Contains(query, "$") {
		t.Errorf("Unexpected sqlite query: %s", query)
	}
	if len(args) != 2 {
		t.Errorf("Expected 2 args, got %v", args)
	}
}

func TestParseDatabaseName(t *testing.T) {
	tests := []struct {
		name    string
		dsn     string
		want    string
		wantErr bool
	}{
		{name: "tcp dsn", dsn: "root:secret@tcp(localhost:3306)/shop?parseTime=true", want: "shop"},
		{name: "no database", dsn: "root:secret@tcp(localhost:3306)/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDatabaseName(tt.dsn)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDatabaseName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDatabaseName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPragma(t *testing.T) {
	if got := pragma("table_info", `odd"name`); got != `PRAGMA table_info("odd""name")` {
		t.Errorf("pragma() = %s", got)
	}
}
