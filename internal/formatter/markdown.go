package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/dbmlorm/internal/analyzer"
	"github.com/tordrt/dbmlorm/internal/ast"
)

// MarkdownFormatter documents a semantic model as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the model in markdown format
func (f *MarkdownFormatter) Format(m *analyzer.Model) error {
	title := "Database Schema"
	if m.Project.Name != "" {
		title = m.Project.Name
	}
	_, _ = fmt.Fprintf(f.writer, "# %s\n\n", title)
	if m.Project.Note != "" {
		_, _ = fmt.Fprintf(f.writer, "%s\n\n", m.Project.Note)
	}

	for i := range m.Tables {
		f.FormatTable(m, &m.Tables[i])
	}

	if len(m.Enums) > 0 {
		_, _ = fmt.Fprintln(f.writer, "## Enums")
		_, _ = fmt.Fprintln(f.writer)
		for _, e := range m.Enums {
			f.formatEnum(e)
		}
	}

	if len(m.TableGroups) > 0 {
		_, _ = fmt.Fprintln(f.writer, "## Table groups")
		_, _ = fmt.Fprintln(f.writer)
		for _, g := range m.TableGroups {
			members := make([]string, 0, len(g.Tables))
			for _, k := range g.Tables {
				members = append(members, k.String())
			}
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", g.Name, strings.Join(members, ", "))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	return nil
}

// FormatTable writes a single table (also used by the multi-file formatter)
func (f *MarkdownFormatter) FormatTable(m *analyzer.Model, table *analyzer.Table) {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", table.Key)
	if table.Note != "" {
		_, _ = fmt.Fprintf(f.writer, "%s\n\n", table.Note)
	}

	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)
	for _, col := range table.Columns {
		typeStr := f.formatType(m, col)
		constraintStr := formatConstraints(table, col)
		if constraintStr != "" {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", col.Name, typeStr, constraintStr)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", col.Name, typeStr)
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	rels := m.TableRefs(table.Key)
	f.formatRefs("References", rels.To, func(r analyzer.Ref) string {
		return fmt.Sprintf("%s → %s", r.LHS.Compositions[0], m.Indexer.ReferRefAlias(r.RHS))
	})
	f.formatRefs("Referenced by", rels.By, func(r analyzer.Ref) string {
		return fmt.Sprintf("%s → %s", m.Indexer.ReferRefAlias(r.LHS), r.RHS.Compositions[0])
	})
	f.formatRefs("Self references", rels.Self, func(r analyzer.Ref) string {
		return fmt.Sprintf("%s → %s", r.LHS.Compositions[0], r.RHS.Compositions[0])
	})

	if len(table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Indexes")
		_, _ = fmt.Fprintln(f.writer)
		for _, idx := range table.Indexes {
			_, _ = fmt.Fprintf(f.writer, "- %s\n", formatIndex(idx))
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}

func (f *MarkdownFormatter) formatRefs(title string, refs []analyzer.Ref, line func(analyzer.Ref) string) {
	if len(refs) == 0 {
		return
	}
	_, _ = fmt.Fprintf(f.writer, "### %s\n\n", title)
	for _, r := range refs {
		_, _ = fmt.Fprintf(f.writer, "- %s (%s%s)\n", line(r), r.Rel, formatActions(r.Settings))
	}
	_, _ = fmt.Fprintln(f.writer)
}

func (f *MarkdownFormatter) formatType(m *analyzer.Model, col analyzer.Column) string {
	typeStr := col.Type.String()
	if col.Type.Kind == analyzer.KindEnum {
		if e, ok := m.Enum(col.Type.Enum.Schema, col.Type.Enum.Name); ok {
			values := make([]string, 0, len(e.Values))
			for _, v := range e.Values {
				values = append(values, v.Value)
			}
			typeStr = fmt.Sprintf("%s (%s)", typeStr, strings.Join(values, "|"))
		}
	}
	if col.Settings.IsArray {
		typeStr += "[]"
	}
	return typeStr
}

func (f *MarkdownFormatter) formatEnum(e analyzer.Enum) {
	_, _ = fmt.Fprintf(f.writer, "### %s.%s\n\n", e.Schema, e.Name)
	for _, v := range e.Values {
		if v.Note != "" {
			_, _ = fmt.Fprintf(f.writer, "- %s: %s\n", v.Value, v.Note)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- %s\n", v.Value)
		}
	}
	_, _ = fmt.Fprintln(f.writer)
}

func formatConstraints(table *analyzer.Table, col analyzer.Column) string {
	var constraints []string

	if table.IsPrimaryKey(col.Name) {
		constraints = append(constraints, "PK")
	}
	if col.Settings.IsIncremental {
		constraints = append(constraints, "INCREMENT")
	}
	if table.IsUnique(col.Name) {
		constraints = append(constraints, "UNIQUE")
	}
	if !col.Settings.IsNullable {
		constraints = append(constraints, "NOT NULL")
	}
	if col.Settings.Default != nil {
		constraints = append(constraints, fmt.Sprintf("DEFAULT %s", col.Settings.Default))
	}

	return strings.Join(constraints, ", ")
}

func formatIndex(idx ast.Index) string {
	cols := make([]string, 0, len(idx.Columns))
	for _, c := range idx.Columns {
		if c.IsExpr {
			cols = append(cols, "`"+c.Name+"`")
		} else {
			cols = append(cols, c.Name)
		}
	}

	var b strings.Builder
	if idx.Settings.Name != "" {
		b.WriteString(idx.Settings.Name)
		b.WriteString(" on ")
	}
	b.WriteString("(" + strings.Join(cols, ", ") + ")")
	if idx.Settings.IsPK {
		b.WriteString(", pk")
	}
	if idx.Settings.IsUnique {
		b.WriteString(", unique")
	}
	if idx.Settings.Type != "" {
		b.WriteString(", " + idx.Settings.Type)
	}
	return b.String()
}

func formatActions(s *ast.RelationSettings) string {
	if s == nil {
		return ""
	}
	var out string
	if s.OnDelete != nil {
		out += ", on delete " + s.OnDelete.String()
	}
	if s.OnUpdate != nil {
		out += ", on update " + s.OnUpdate.String()
	}
	return out
}
