// Package parser reads DBML source text into the raw syntax tree of package ast.
// It checks syntax only; names, types and references are validated by the analyzer.
package parser

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tordrt/dbmlorm/internal/ast"
)

// ErrDuplicateProjectBlock is returned when a document declares more than one Project
var ErrDuplicateProjectBlock = errors.New("duplicate project block")

// Parse parses DBML source. name is used in error positions.
func Parse(name, src string) (*ast.Schema, error) {
	file, err := dbmlParser.ParseString(name, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DBML: %w", err)
	}

	return build(file)
}

// ParseFile reads and parses a DBML file
func ParseFile(path string) (*ast.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(path, string(data))
}

func build(file *dbmlFile) (*ast.Schema, error) {
	schema := &ast.Schema{}

	for _, decl := range file.Decls {
		switch {
		case decl.Project != nil:
			if schema.Project != nil {
				return nil, fmt.Errorf("%w: %q and %q", ErrDuplicateProjectBlock, schema.Project.Name, decl.Project.Name)
			}
			schema.Project = buildProject(decl.Project)
		case decl.Table != nil:
			table, err := buildTable(decl.Table)
			if err != nil {
				return nil, err
			}
			schema.Tables = append(schema.Tables, table)
		case decl.Enum != nil:
			enum, err := buildEnum(decl.Enum)
			if err != nil {
				return nil, err
			}
			schema.Enums = append(schema.Enums, enum)
		case decl.Ref != nil:
			ref, err := buildRef(decl.Ref)
			if err != nil {
				return nil, err
			}
			schema.Refs = append(schema.Refs, ref)
		case decl.TableGroup != nil:
			group, err := buildTableGroup(decl.TableGroup)
			if err != nil {
				return nil, err
			}
			schema.TableGroups = append(schema.TableGroups, group)
		}
	}

	return schema, nil
}

func buildProject(node *projectNode) *ast.Project {
	p := &ast.Project{Name: node.Name}
	for _, f := range node.Fields {
		if f.Note != nil {
			p.Note = f.Note.Text
			continue
		}
		if strings.EqualFold(f.Key, "database_type") && f.Value != nil {
			p.DatabaseType = buildValue(f.Value).Text
		}
	}
	return p
}

func buildTable(node *tableNode) (ast.Table, error) {
	schema, name, err := splitQualified(node.Name.Parts, "table")
	if err != nil {
		return ast.Table{}, err
	}

	table := ast.Table{
		Ident: ast.TableIdent{Schema: schema, Name: name, Alias: node.Alias},
	}
	for _, s := range node.Settings {
		if strings.EqualFold(s.Key, "note") && s.Value != nil {
			table.Note = buildValue(s.Value).Text
		}
	}

	for _, item := range node.Items {
		switch {
		case item.Note != nil:
			table.Note = item.Note.Text
		case item.Indexes != nil:
			for _, idx := range item.Indexes.Indexes {
				table.Indexes = append(table.Indexes, buildIndex(idx))
			}
		case item.Column != nil:
			col, err := buildColumn(item.Column)
			if err != nil {
				return ast.Table{}, fmt.Errorf("table %s: %w", table.Ident, err)
			}
			table.Columns = append(table.Columns, col)
		}
	}

	return table, nil
}

func buildColumn(node *columnNode) (ast.Column, error) {
	col := ast.Column{Name: node.Name}

	switch len(node.Type.Parts) {
	case 1:
		col.Type.Token = node.Type.Parts[0]
	case 2:
		col.Type.Schema = node.Type.Parts[0]
		col.Type.Token = node.Type.Parts[1]
	}
	for _, a := range node.Type.Args {
		col.Type.Args = append(col.Type.Args, buildValue(a))
	}
	col.Settings.IsArray = node.Type.Array

	for _, s := range node.Settings {
		switch {
		case s.PK:
			col.Settings.IsPK = true
		case s.NotNull:
			col.Settings.IsNullable = false
		case s.Null:
			col.Settings.IsNullable = true
		case s.Unique:
			col.Settings.IsUnique = true
		case s.Increment:
			col.Settings.IsIncremental = true
		case s.Note != nil:
			col.Settings.Note = *s.Note
		case s.Default != nil:
			v := buildValue(s.Default)
			col.Settings.Default = &v
		case s.Ref != nil:
			rel, err := ast.ParseRelation(s.Ref.Rel)
			if err != nil {
				return ast.Column{}, err
			}
			rhs, err := buildEndpoint(s.Ref.Target)
			if err != nil {
				return ast.Column{}, fmt.Errorf("column %s: %w", node.Name, err)
			}
			col.Settings.Refs = append(col.Settings.Refs, ast.RefBlock{Rel: rel, RHS: rhs})
		}
	}

	return col, nil
}

func buildIndex(node *indexNode) ast.Index {
	var idx ast.Index
	for _, c := range node.Columns {
		if c.Expr != nil {
			idx.Columns = append(idx.Columns, ast.IndexColumn{Name: *c.Expr, IsExpr: true})
		} else if c.Name != nil {
			idx.Columns = append(idx.Columns, ast.IndexColumn{Name: *c.Name})
		}
	}

	for _, s := range node.Settings {
		var value string
		if s.Value != nil {
			value = buildValue(s.Value).Text
		}
		switch strings.ToLower(s.Key) {
		case "pk":
			idx.Settings.IsPK = true
		case "unique":
			idx.Settings.IsUnique = true
		case "name":
			idx.Settings.Name = value
		case "type":
			idx.Settings.Type = value
		case "note":
			idx.Settings.Note = value
		}
	}
	return idx
}

func buildEnum(node *enumNode) (ast.Enum, error) {
	schema, name, err := splitQualified(node.Name.Parts, "enum")
	if err != nil {
		return ast.Enum{}, err
	}

	enum := ast.Enum{Ident: ast.EnumIdent{Schema: schema, Name: name}}
	for _, v := range node.Values {
		value := ast.EnumValue{Value: v.Value}
		if v.Note != nil {
			value.Note = *v.Note
		}
		enum.Values = append(enum.Values, value)
	}
	return enum, nil
}

func buildRef(node *refNode) (ast.RefBlock, error) {
	body := node.Body
	rel, err := ast.ParseRelation(body.Rel)
	if err != nil {
		return ast.RefBlock{}, err
	}
	lhs, err := buildEndpoint(body.LHS)
	if err != nil {
		return ast.RefBlock{}, err
	}
	rhs, err := buildEndpoint(body.RHS)
	if err != nil {
		return ast.RefBlock{}, err
	}

	ref := ast.RefBlock{Name: node.Name, Rel: rel, LHS: &lhs, RHS: rhs}
	for _, s := range body.Settings {
		key := strings.ToLower(s.Key)
		if key != "delete" && key != "update" {
			continue
		}
		action, err := ast.ParseRelationAction(strings.Join(s.Words, " "))
		if err != nil {
			return ast.RefBlock{}, fmt.Errorf("ref %s: %w", lhs, err)
		}
		if ref.Settings == nil {
			ref.Settings = &ast.RelationSettings{}
		}
		if key == "delete" {
			ref.Settings.OnDelete = &action
		} else {
			ref.Settings.OnUpdate = &action
		}
	}

	return ref, nil
}

// buildEndpoint splits endpoint parts into schema, table and columns
func buildEndpoint(node *refEndpoint) (ast.RefIdent, error) {
	parts := node.Parts
	cols := node.Compositions
	if len(cols) == 0 {
		if len(parts) < 2 {
			return ast.RefIdent{}, fmt.Errorf("reference endpoint %q has no column", strings.Join(parts, "."))
		}
		cols = []string{parts[len(parts)-1]}
		parts = parts[:len(parts)-1]
	}

	schema, table, err := splitQualified(parts, "reference endpoint")
	if err != nil {
		return ast.RefIdent{}, err
	}
	return ast.RefIdent{Schema: schema, Table: table, Compositions: cols}, nil
}

func buildTableGroup(node *tableGroupNode) (ast.TableGroup, error) {
	group := ast.TableGroup{Name: node.Name}
	for _, m := range node.Members {
		schema, name, err := splitQualified(m.Parts, "table group member")
		if err != nil {
			return ast.TableGroup{}, err
		}
		group.Members = append(group.Members, ast.TableGroupMember{Schema: schema, Name: name})
	}
	return group, nil
}

func buildValue(node *valueNode) ast.Value {
	switch {
	case node.String != nil:
		return ast.Value{Kind: ast.ValueString, Text: *node.String}
	case node.Expr != nil:
		return ast.Value{Kind: ast.ValueExpr, Text: *node.Expr}
	case node.Number != nil:
		if strings.Contains(*node.Number, ".") {
			return ast.Value{Kind: ast.ValueDecimal, Text: *node.Number}
		}
		return ast.Value{Kind: ast.ValueInteger, Text: *node.Number}
	case node.Bool != nil:
		return ast.Value{Kind: ast.ValueBool, Text: strings.ToLower(*node.Bool)}
	case node.Null:
		return ast.Value{Kind: ast.ValueNull, Text: "null"}
	case node.Color != nil:
		return ast.Value{Kind: ast.ValueString, Text: *node.Color}
	case node.Ident != nil:
		return ast.Value{Kind: ast.ValueString, Text: *node.Ident}
	}
	return ast.Value{Kind: ast.ValueNull, Text: "null"}
}

func splitQualified(parts []string, what string) (string, string, error) {
	switch len(parts) {
	case 1:
		return "", parts[0], nil
	case 2:
		return parts[0], parts[1], nil
	}
	return "", "", fmt.Errorf("invalid %s name %q", what, strings.Join(parts, "."))
}
