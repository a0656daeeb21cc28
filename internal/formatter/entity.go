package formatter

import (
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/tordrt/dbmlorm/internal/analyzer"
	"github.com/tordrt/dbmlorm/internal/ast"
)

const (
	EnumTypeString  = "string"
	EnumTypeInteger = "integer"
)

// EntityOptions controls how entities and active enums are rendered
type EntityOptions struct {
	EnumType   string // "string" or "integer"
	EnumLength *int   // column length of non-native string enums
	NativeEnum bool
	Version    string
	// Source is the DBML input. When set, its blake3 digest is written into the header.
	Source []byte
}

// EntityFormatter renders a semantic model as SeaORM entity modules in a single file
type EntityFormatter struct {
	writer io.Writer
	opts   EntityOptions
}

// NewEntityFormatter creates a new entity formatter
func NewEntityFormatter(w io.Writer, opts EntityOptions) *EntityFormatter {
	return &EntityFormatter{writer: w, opts: opts}
}

// Format writes one `pub mod` per table followed by the active enums
func (f *EntityFormatter) Format(m *analyzer.Model) error {
	root := newBlock(0, "")
	writeHeader(root, f.opts)

	if len(m.Enums) > 0 {
		root.skip().line("use sea_orm::entity::prelude::*;")
	}

	for i := range m.Tables {
		table := &m.Tables[i]
		mod := newBlock(1, "pub mod "+snake(table.Ident.Name))

		var enumImport string
		if names := enumsUsed(table); len(names) > 0 {
			enumImport = "use super::{" + strings.Join(names, ", ") + "};"
		}
		writeEntity(mod, m, table, enumImport)

		root.skip().block(mod)
	}

	for _, e := range m.Enums {
		root.skip()
		writeActiveEnum(root, e, f.opts)
	}

	_, err := io.WriteString(f.writer, root.String())
	return err
}

func writeHeader(b *block, opts EntityOptions) {
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	b.line("//! Generated by dbmlorm " + version)
	if opts.Source != nil {
		sum := blake3.Sum256(opts.Source)
		b.line("//! Source digest: blake3:" + hex.EncodeToString(sum[:]))
	}
}

// enumsUsed lists the Rust names of the active enums a table's columns use
func enumsUsed(table *analyzer.Table) []string {
	seen := make(map[string]bool)
	var names []string
	for _, c := range table.Columns {
		if c.Type.Kind != analyzer.KindEnum {
			continue
		}
		name := pascal(c.Type.Enum.Name)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// writeEntity writes the Model, Relation and behavior items of one table into b
func writeEntity(b *block, m *analyzer.Model, table *analyzer.Table, enumImport string) {
	inner := b.level + 1

	b.line("use sea_orm::entity::prelude::*;")
	b.lineIf(enumImport != "", enumImport)
	b.skip()
	b.line("#[derive(Clone, Debug, PartialEq, DeriveEntityModel)]")
	b.line(fmt.Sprintf(`#[sea_orm(table_name = "%s", schema_name = "%s")]`, table.Ident.Name, table.Key.Schema))

	model := newBlock(inner, "pub struct Model")
	for _, col := range table.Columns {
		attrs := columnAttrs(table, col)
		model.lineIf(len(attrs) > 0, "#[sea_orm("+strings.Join(attrs, ", ")+")]")
		model.line(fmt.Sprintf("pub %s: %s,", snake(col.Name), fieldType(col)))
	}
	b.block(model)

	rel, extra := relationItems(m, table, inner)
	b.skip()
	b.line("#[derive(Copy, Clone, Debug, EnumIter, DeriveRelation)]")
	b.block(rel)
	b.blocks(extra)

	b.skip()
	b.line("impl ActiveModelBehavior for ActiveModel {}")
}

func columnAttrs(table *analyzer.Table, col analyzer.Column) []string {
	var attrs []string

	if name := snake(col.Name); name != col.Name {
		attrs = append(attrs, fmt.Sprintf(`column_name = "%s"`, col.Name))
	}
	if ct, ok := seaColumnType(col.Type); ok && !col.Settings.IsArray {
		attrs = append(attrs, fmt.Sprintf(`column_type = "%s"`, ct))
	}
	if table.IsPrimaryKey(col.Name) {
		attrs = append(attrs, "primary_key")
		if !col.Settings.IsIncremental {
			attrs = append(attrs, "auto_increment = false")
		}
	}
	if col.Settings.IsNullable {
		attrs = append(attrs, "nullable")
	}
	if table.IsIndexed(col.Name) {
		attrs = append(attrs, "indexed")
	}
	if table.IsUnique(col.Name) {
		attrs = append(attrs, "unique")
	}

	if def := col.Settings.Default; def != nil {
		switch def.Kind {
		case ast.ValueExpr:
			attrs = append(attrs, fmt.Sprintf(`default_expr = "%s"`, escapeRust(def.Text)))
		case ast.ValueString:
			attrs = append(attrs, fmt.Sprintf(`default_value = "%s"`, escapeRust(def.Text)))
		case ast.ValueNull:
		default:
			attrs = append(attrs, "default_value = "+def.Text)
		}
	}

	return attrs
}

// relationItems builds the Relation enum of a table plus the Related and
// Linked impls that go with it. Variants pointing at the same entity more
// than once are suffixed with the owning column and get no Related impl.
func relationItems(m *analyzer.Model, table *analyzer.Table, level int) (*block, []*block) {
	rels := m.TableRefs(table.Key)
	rel := newBlock(level, "pub enum Relation")
	var extra []*block

	targets := make(map[string]int)
	for _, r := range rels.To {
		targets[m.Indexer.ReferRefAlias(r.RHS).Table]++
	}
	for _, r := range rels.By {
		targets[m.Indexer.ReferRefAlias(r.LHS).Table]++
	}

	for _, r := range rels.Self {
		variant := "SelfReferencing"
		if len(rels.Self) > 1 {
			variant += pascal(r.LHS.Compositions[0])
		}
		attrs := []string{
			`belongs_to = "Entity"`,
			fmt.Sprintf(`from = "Column::%s"`, pascal(r.LHS.Compositions[0])),
			fmt.Sprintf(`to = "Column::%s"`, pascal(r.RHS.Compositions[0])),
		}
		attrs = append(attrs, actionAttrs(r.Settings)...)
		rel.line("#[sea_orm(" + strings.Join(attrs, ", ") + ")]")
		rel.line(variant + ",")

		link := variant + "Link"
		extra = append(extra, newBlock(level, "pub struct "+link))
		extra = append(extra, newBlock(level, "impl Linked for "+link).
			line("type FromEntity = Entity;").
			line("type ToEntity = Entity;").
			skip().
			block(newBlock(level+1, "fn link(&self) -> Vec<RelationDef>").
				line(fmt.Sprintf("vec![Relation::%s.def()]", variant))))
	}

	for _, r := range rels.To {
		target := m.Indexer.ReferRefAlias(r.RHS).Table
		mod := snake(target)
		variant := pascal(target)
		if targets[target] > 1 {
			variant += pascal(r.LHS.Compositions[0])
		}

		attrs := []string{
			fmt.Sprintf(`belongs_to = "super::%s::Entity"`, mod),
			fmt.Sprintf(`from = "Column::%s"`, pascal(r.LHS.Compositions[0])),
			fmt.Sprintf(`to = "super::%s::Column::%s"`, mod, pascal(r.RHS.Compositions[0])),
		}
		attrs = append(attrs, actionAttrs(r.Settings)...)
		rel.line("#[sea_orm(" + strings.Join(attrs, ", ") + ")]")
		rel.line(variant + ",")

		if targets[target] == 1 {
			extra = append(extra, relatedImpl(level, mod, variant))
		}
	}

	for _, r := range rels.By {
		source := m.Indexer.ReferRefAlias(r.LHS).Table
		mod := snake(source)
		variant := pascal(source)
		if targets[source] > 1 {
			variant += pascal(r.LHS.Compositions[0])
		}

		kind := "has_many"
		if r.Rel == ast.OneToOne {
			kind = "has_one"
		}
		rel.line(fmt.Sprintf(`#[sea_orm(%s = "super::%s::Entity")]`, kind, mod))
		rel.line(variant + ",")

		if targets[source] == 1 {
			extra = append(extra, relatedImpl(level, mod, variant))
		}
	}

	return rel, extra
}

func relatedImpl(level int, mod, variant string) *block {
	return newBlock(level, fmt.Sprintf("impl Related<super::%s::Entity> for Entity", mod)).
		block(newBlock(level+1, "fn to() -> RelationDef").
			line(fmt.Sprintf("Relation::%s.def()", variant)))
}

func actionAttrs(s *ast.RelationSettings) []string {
	if s == nil {
		return nil
	}
	var attrs []string
	if s.OnDelete != nil {
		attrs = append(attrs, fmt.Sprintf(`on_delete = "%s"`, actionName(*s.OnDelete)))
	}
	if s.OnUpdate != nil {
		attrs = append(attrs, fmt.Sprintf(`on_update = "%s"`, actionName(*s.OnUpdate)))
	}
	return attrs
}

// writeActiveEnum writes a DeriveActiveEnum type for one enum
func writeActiveEnum(b *block, e analyzer.Enum, opts EntityOptions) {
	rsType, dbType := "String", "Enum"
	switch {
	case opts.EnumType == EnumTypeInteger:
		rsType, dbType = "i32", "Integer"
	case !opts.NativeEnum && opts.EnumLength != nil:
		dbType = fmt.Sprintf("String(Some(%d))", *opts.EnumLength)
	case !opts.NativeEnum:
		dbType = "String(None)"
	}

	b.line("#[derive(Clone, Debug, PartialEq, Eq, EnumIter, DeriveActiveEnum)]")
	b.line(fmt.Sprintf(`#[sea_orm(rs_type = "%s", db_type = "%s", enum_name = "%s", schema_name = "%s")]`,
		rsType, dbType, e.Name, e.Schema))

	body := newBlock(b.level+1, "pub enum "+pascal(e.Name))
	for i, v := range e.Values {
		if opts.EnumType == EnumTypeInteger {
			body.line(fmt.Sprintf("#[sea_orm(num_value = %d)]", i))
		} else {
			body.line(fmt.Sprintf(`#[sea_orm(string_value = "%s")]`, escapeRust(v.Value)))
		}
		body.line(pascal(v.Value) + ",")
	}
	b.block(body)
}

func escapeRust(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
