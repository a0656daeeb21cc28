package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/dbmlorm/internal/analyzer"
)

// TextFormatter documents a semantic model as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the model in compact text format
func (f *TextFormatter) Format(m *analyzer.Model) error {
	for i := range m.Tables {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}
		f.formatTable(m, &m.Tables[i])
	}

	if len(m.Enums) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		for _, e := range m.Enums {
			values := make([]string, 0, len(e.Values))
			for _, v := range e.Values {
				values = append(values, v.Value)
			}
			_, _ = fmt.Fprintf(f.writer, "ENUM %s.%s (%s)\n", e.Schema, e.Name, strings.Join(values, "|"))
		}
	}
	return nil
}

func (f *TextFormatter) formatTable(m *analyzer.Model, table *analyzer.Table) {
	pkStr := ""
	if len(table.Meta.PrimaryKeys) > 0 {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(table.Meta.PrimaryKeys, ", "))
	}
	_, _ = fmt.Fprintf(f.writer, "TABLE %s%s\n", table.Key, pkStr)

	for _, col := range table.Columns {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", f.formatColumn(table, col))
	}

	rels := m.TableRefs(table.Key)
	if len(rels.To)+len(rels.Self) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, r := range append(rels.Self, rels.To...) {
			rhs := m.Indexer.ReferRefAlias(r.RHS)
			_, _ = fmt.Fprintf(f.writer, "    %s → %s (%s)\n", r.LHS.Compositions[0], rhs, r.Rel)
		}
	}
	if len(rels.By) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  REFERENCED BY:")
		for _, r := range rels.By {
			_, _ = fmt.Fprintf(f.writer, "    %s (%s)\n", m.Indexer.ReferRefAlias(r.LHS), r.Rel)
		}
	}

	if len(table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  INDEXES:")
		for _, idx := range table.Indexes {
			_, _ = fmt.Fprintf(f.writer, "    %s\n", formatIndex(idx))
		}
	}
}

func (f *TextFormatter) formatColumn(table *analyzer.Table, col analyzer.Column) string {
	typeStr := col.Type.String()
	if col.Settings.IsArray {
		typeStr += "[]"
	}
	parts := []string{col.Name + ":", typeStr}

	if table.IsUnique(col.Name) {
		parts = append(parts, "UNIQUE")
	}
	if !col.Settings.IsNullable {
		parts = append(parts, "NOT NULL")
	}
	if col.Settings.Default != nil {
		parts = append(parts, fmt.Sprintf("DEFAULT %s", col.Settings.Default))
	}

	return strings.Join(parts, " ")
}
