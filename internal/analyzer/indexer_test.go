package analyzer

import (
	"errors"
	"testing"

	"github.com/tordrt/dbmlorm/internal/ast"
)

func newTestIndexer(t *testing.T) *Indexer {
	t.Helper()

	users := tbl("users", col("id", "int"), col("email", "text"))
	users.Ident.Alias = "U"
	audit := tbl("events", col("id", "int"))
	audit.Ident.Schema = "audit"

	ix := NewIndexer()
	if err := ix.IndexTables([]ast.Table{users, audit}); err != nil {
		t.Fatalf("IndexTables() error = %v", err)
	}
	if err := ix.IndexEnums([]ast.Enum{{
		Ident:  ast.EnumIdent{Name: "role"},
		Values: []ast.EnumValue{{Value: "admin"}, {Value: "member"}},
	}}); err != nil {
		t.Fatalf("IndexEnums() error = %v", err)
	}
	return ix
}

func TestLookupTableFields(t *testing.T) {
	ix := newTestIndexer(t)

	tests := []struct {
		name    string
		schema  string
		table   string
		columns []string
		want    ErrorKind
	}{
		{name: "default schema", table: "users", columns: []string{"id", "email"}},
		{name: "explicit schema", schema: "audit", table: "events", columns: []string{"id"}},
		{name: "unknown schema", schema: "crm", table: "users", want: ErrSchemaNotFound},
		{name: "unknown table", schema: "audit", table: "users", want: ErrTableNotFound},
		{name: "unknown column", table: "users", columns: []string{"id", "phone"}, want: ErrColumnNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ix.LookupTableFields(tt.schema, tt.table, tt.columns)
			if tt.want == "" {
				if err != nil {
					t.Errorf("LookupTableFields() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("LookupTableFields() error = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestLookupEnumValues(t *testing.T) {
	ix := newTestIndexer(t)

	if err := ix.LookupEnumValues("", "role", []string{"admin"}); err != nil {
		t.Errorf("LookupEnumValues() error = %v", err)
	}
	if err := ix.LookupEnumValues("", "role", []string{"owner"}); !errors.Is(err, ErrEnumValueNotFound) {
		t.Errorf("LookupEnumValues() error = %v, want %s", err, ErrEnumValueNotFound)
	}
	if err := ix.LookupEnumValues("", "kind", nil); !errors.Is(err, ErrEnumNotFound) {
		t.Errorf("LookupEnumValues() error = %v, want %s", err, ErrEnumNotFound)
	}
	if err := ix.LookupEnumValues("audit", "role", nil); !errors.Is(err, ErrSchemaNotFound) {
		t.Errorf("LookupEnumValues() error = %v, want %s", err, ErrSchemaNotFound)
	}
}

func TestReferRefAlias(t *testing.T) {
	ix := newTestIndexer(t)

	tests := []struct {
		name string
		in   ast.RefIdent
		want ast.RefIdent
	}{
		{
			name: "alias replaced",
			in:   ast.RefIdent{Table: "U", Compositions: []string{"id"}},
			want: ast.RefIdent{Schema: "public", Table: "users", Compositions: []string{"id"}},
		},
		{
			name: "default schema filled",
			in:   ast.RefIdent{Table: "users", Compositions: []string{"email"}},
			want: ast.RefIdent{Schema: "public", Table: "users", Compositions: []string{"email"}},
		},
		{
			name: "explicit schema kept",
			in:   ast.RefIdent{Schema: "audit", Table: "events", Compositions: []string{"id"}},
			want: ast.RefIdent{Schema: "audit", Table: "events", Compositions: []string{"id"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ix.ReferRefAlias(tt.in); !got.Equal(tt.want) {
				t.Errorf("ReferRefAlias() = %s, want %s", got, tt.want)
			}
		})
	}

	if _, ok := ix.ReferAlias("users"); ok {
		t.Error("Expected table name not to resolve as an alias")
	}
}

func TestFromInlineFillsOwner(t *testing.T) {
	refs := FromInline([]ast.RefBlock{{
		Rel: ast.OneToOne,
		RHS: ast.RefIdent{Table: "users", Compositions: []string{"id"}},
	}}, ast.TableIdent{Name: "profiles"}, "user_id")

	if len(refs) != 1 {
		t.Fatalf("Expected 1 reference, got %d", len(refs))
	}
	want := ast.RefIdent{Schema: "public", Table: "profiles", Compositions: []string{"user_id"}}
	if !refs[0].LHS.Equal(want) {
		t.Errorf("LHS = %s, want %s", refs[0].LHS, want)
	}
	if refs[0].Rel != ast.OneToOne {
		t.Errorf("Rel = %s, want one-to-one", refs[0].Rel)
	}
}
