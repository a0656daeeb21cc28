// Package analyzer turns a raw DBML syntax tree into a validated semantic
// model: tables and enums are indexed per schema, column types are resolved,
// references are normalized and checked, and the result can be queried for
// the relations of each table.
//
// Analysis is all-or-nothing. The first violation found in declaration order
// is returned as an *Error and no partial model is produced.
package analyzer

import (
	"github.com/tordrt/dbmlorm/internal/ast"
)

// Analyze validates a parsed schema and returns its semantic model
func Analyze(schema *ast.Schema) (*Model, error) {
	if schema == nil || schema.Project == nil {
		return nil, newError(ErrProjectBlockMissing, "no Project block found")
	}

	ix := NewIndexer()
	if err := ix.IndexTables(schema.Tables); err != nil {
		return nil, err
	}
	if err := ix.IndexEnums(schema.Enums); err != nil {
		return nil, err
	}
	groups, err := ix.IndexTableGroups(schema.TableGroups)
	if err != nil {
		return nil, err
	}

	refs, err := collectRefs(schema)
	if err != nil {
		return nil, err
	}

	tables := make([]Table, 0, len(schema.Tables))
	for _, t := range schema.Tables {
		resolved, err := ix.resolveTable(t)
		if err != nil {
			return nil, err
		}
		tables = append(tables, resolved)
	}

	if err := ValidateRefs(refs, tables, ix); err != nil {
		return nil, err
	}

	enums := make([]Enum, 0, len(schema.Enums))
	for _, e := range schema.Enums {
		enums = append(enums, Enum{
			Schema: e.Ident.SchemaOrDefault(),
			Name:   e.Ident.Name,
			Values: e.Values,
		})
	}

	return &Model{
		Project:     *schema.Project,
		Tables:      tables,
		Enums:       enums,
		TableGroups: groups,
		Refs:        refs,
		Indexer:     ix,
	}, nil
}

// collectRefs normalizes explicit Ref declarations followed by inline column
// references in table and column order.
func collectRefs(schema *ast.Schema) ([]Ref, error) {
	refs := make([]Ref, 0, len(schema.Refs))
	for _, block := range schema.Refs {
		r, err := FromExplicit(block)
		if err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}

	for _, table := range schema.Tables {
		for _, col := range table.Columns {
			refs = append(refs, FromInline(col.Settings.Refs, table.Ident, col.Name)...)
		}
	}

	return refs, nil
}
