package parser

import (
	"errors"
	"testing"

	"github.com/tordrt/dbmlorm/internal/ast"
)

const shopDBML = `
Project shop {
  database_type: 'PostgreSQL'
  Note: 'Online shop'
}

// customers placing orders
Table customers as C {
  id integer [pk, increment]
  name varchar(128) [not null, note: 'display name']
  email varchar [unique]
  status status [default: 'active']
}

Table public.orders {
  id integer [pk]
  customer_id integer [ref: > customers.id]
  total decimal(10, 2) [default: 0]
  tags text[]
  created_at timestamp [default: ` + "`now()`" + `]
  Note: 'Orders placed by customers'

  indexes {
    customer_id
    (customer_id, created_at) [unique, name: 'orders_customer_created']
  }
}

/* enum block */
Enum status {
  active
  archived [note: 'hidden from listings']
}

Ref fk_order_customer: orders.customer_id - C.id [delete: cascade, update: no action]

TableGroup sales {
  C
  public.orders
}
`

func TestParse(t *testing.T) {
	schema, err := Parse("shop.dbml", shopDBML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if schema.Project == nil || schema.Project.Name != "shop" {
		t.Fatalf("Expected project shop, got %+v", schema.Project)
	}
	if schema.Project.DatabaseType != "PostgreSQL" {
		t.Errorf("DatabaseType = %q", schema.Project.DatabaseType)
	}
	if schema.Project.Note != "Online shop" {
		t.Errorf("Project note = %q", schema.Project.Note)
	}

	if len(schema.Tables) != 2 {
		t.Fatalf("Expected 2 tables, got %d", len(schema.Tables))
	}

	customers := schema.Tables[0]
	verifyIdent(t, customers.Ident, ast.TableIdent{Name: "customers", Alias: "C"})
	if len(customers.Columns) != 4 {
		t.Fatalf("Expected 4 customer columns, got %d", len(customers.Columns))
	}
	id := customers.Columns[0]
	if !id.Settings.IsPK || !id.Settings.IsIncremental {
		t.Errorf("id settings = %+v", id.Settings)
	}
	name := customers.Columns[1]
	if name.Type.Token != "varchar" || len(name.Type.Args) != 1 || name.Type.Args[0].Text != "128" {
		t.Errorf("name type = %s", name.Type)
	}
	if name.Settings.IsNullable || name.Settings.Note != "display name" {
		t.Errorf("name settings = %+v", name.Settings)
	}
	if !customers.Columns[2].Settings.IsUnique {
		t.Error("Expected email to be unique")
	}
	if def := customers.Columns[3].Settings.Default; def == nil || def.Kind != ast.ValueString || def.Text != "active" {
		t.Errorf("status default = %+v", def)
	}

	orders := schema.Tables[1]
	verifyIdent(t, orders.Ident, ast.TableIdent{Schema: "public", Name: "orders"})
	if orders.Note != "Orders placed by customers" {
		t.Errorf("orders note = %q", orders.Note)
	}
	refs := orders.Columns[1].Settings.Refs
	if len(refs) != 1 || refs[0].Rel != ast.ManyToOne || refs[0].LHS != nil {
		t.Fatalf("customer_id refs = %+v", refs)
	}
	if want := (ast.RefIdent{Table: "customers", Compositions: []string{"id"}}); !refs[0].RHS.Equal(want) {
		t.Errorf("inline RHS = %s, want %s", refs[0].RHS, want)
	}
	total := orders.Columns[2]
	if len(total.Type.Args) != 2 || total.Settings.Default == nil || total.Settings.Default.Kind != ast.ValueInteger {
		t.Errorf("total = %+v", total)
	}
	if !orders.Columns[3].Settings.IsArray {
		t.Error("Expected tags to be an array")
	}
	if def := orders.Columns[4].Settings.Default; def == nil || def.Kind != ast.ValueExpr || def.Text != "now()" {
		t.Errorf("created_at default = %+v", def)
	}

	if len(orders.Indexes) != 2 {
		t.Fatalf("Expected 2 indexes, got %d", len(orders.Indexes))
	}
	composite := orders.Indexes[1]
	if len(composite.Columns) != 2 || !composite.Settings.IsUnique || composite.Settings.Name != "orders_customer_created" {
		t.Errorf("composite index = %+v", composite)
	}

	if len(schema.Enums) != 1 || len(schema.Enums[0].Values) != 2 {
		t.Fatalf("enums = %+v", schema.Enums)
	}
	if schema.Enums[0].Values[1].Note != "hidden from listings" {
		t.Errorf("enum note = %q", schema.Enums[0].Values[1].Note)
	}

	if len(schema.Refs) != 1 {
		t.Fatalf("Expected 1 explicit ref, got %d", len(schema.Refs))
	}
	ref := schema.Refs[0]
	if ref.Name != "fk_order_customer" || ref.Rel != ast.OneToOne || ref.LHS == nil {
		t.Fatalf("ref = %+v", ref)
	}
	if ref.Settings == nil || ref.Settings.OnDelete == nil || *ref.Settings.OnDelete != ast.Cascade {
		t.Errorf("on delete = %+v", ref.Settings)
	}
	if ref.Settings.OnUpdate == nil || *ref.Settings.OnUpdate != ast.NoAction {
		t.Errorf("on update = %+v", ref.Settings)
	}

	if len(schema.TableGroups) != 1 || len(schema.TableGroups[0].Members) != 2 {
		t.Fatalf("table groups = %+v", schema.TableGroups)
	}
	if m := schema.TableGroups[0].Members[1]; m.Schema != "public" || m.Name != "orders" {
		t.Errorf("second member = %+v", m)
	}
}

func TestParseRefEndpoints(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantLHS ast.RefIdent
		wantRHS ast.RefIdent
		wantRel ast.Relation
	}{
		{
			name:    "short form",
			src:     `Ref: posts.user_id > users.id`,
			wantLHS: ast.RefIdent{Table: "posts", Compositions: []string{"user_id"}},
			wantRHS: ast.RefIdent{Table: "users", Compositions: []string{"id"}},
			wantRel: ast.ManyToOne,
		},
		{
			name:    "schema qualified",
			src:     `Ref: blog.posts.user_id < auth.users.id`,
			wantLHS: ast.RefIdent{Schema: "blog", Table: "posts", Compositions: []string{"user_id"}},
			wantRHS: ast.RefIdent{Schema: "auth", Table: "users", Compositions: []string{"id"}},
			wantRel: ast.OneToMany,
		},
		{
			name:    "long form composite",
			src:     "Ref name {\n  a.(x, y) <> b.(x, y)\n}",
			wantLHS: ast.RefIdent{Table: "a", Compositions: []string{"x", "y"}},
			wantRHS: ast.RefIdent{Table: "b", Compositions: []string{"x", "y"}},
			wantRel: ast.ManyToMany,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := Parse("", tt.src)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(schema.Refs) != 1 {
				t.Fatalf("Expected 1 ref, got %d", len(schema.Refs))
			}
			r := schema.Refs[0]
			if !r.LHS.Equal(tt.wantLHS) {
				t.Errorf("LHS = %s, want %s", r.LHS, tt.wantLHS)
			}
			if !r.RHS.Equal(tt.wantRHS) {
				t.Errorf("RHS = %s, want %s", r.RHS, tt.wantRHS)
			}
			if r.Rel != tt.wantRel {
				t.Errorf("Rel = %s, want %s", r.Rel, tt.wantRel)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		is   error
	}{
		{
			name: "duplicate project",
			src:  "Project a {\n}\nProject b {\n}",
			is:   ErrDuplicateProjectBlock,
		},
		{
			name: "unterminated table",
			src:  "Table users {\n  id int",
		},
		{
			name: "endpoint without column",
			src:  "Ref: users > accounts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.dbml", tt.src)
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("Parse() error = %v, want %v", err, tt.is)
			}
		})
	}
}

func verifyIdent(t *testing.T, got, want ast.TableIdent) {
	t.Helper()
	if got != want {
		t.Errorf("ident = %+v, want %+v", got, want)
	}
}
