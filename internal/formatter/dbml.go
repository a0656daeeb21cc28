package formatter

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/tordrt/dbmlorm/internal/ast"
)

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DBMLFormatter writes a raw syntax tree back as DBML source
type DBMLFormatter struct {
	writer io.Writer
}

// NewDBMLFormatter creates a new DBML formatter
func NewDBMLFormatter(w io.Writer) *DBMLFormatter {
	return &DBMLFormatter{writer: w}
}

// Format writes the project, tables, enums, refs and table groups in that order
func (f *DBMLFormatter) Format(s *ast.Schema) error {
	if p := s.Project; p != nil {
		name := ""
		if p.Name != "" {
			name = quoteIdent(p.Name) + " "
		}
		_, _ = fmt.Fprintf(f.writer, "Project %s{\n", name)
		if p.DatabaseType != "" {
			_, _ = fmt.Fprintf(f.writer, "  database_type: %s\n", quoteString(p.DatabaseType))
		}
		if p.Note != "" {
			_, _ = fmt.Fprintf(f.writer, "  Note: %s\n", quoteString(p.Note))
		}
		_, _ = fmt.Fprintln(f.writer, "}")
		_, _ = fmt.Fprintln(f.writer)
	}

	for _, t := range s.Tables {
		f.formatTable(t)
		_, _ = fmt.Fprintln(f.writer)
	}

	for _, e := range s.Enums {
		_, _ = fmt.Fprintf(f.writer, "Enum %s {\n", qualified(e.Ident.Schema, e.Ident.Name))
		for _, v := range e.Values {
			if v.Note != "" {
				_, _ = fmt.Fprintf(f.writer, "  %s [note: %s]\n", quoteIdent(v.Value), quoteString(v.Note))
			} else {
				_, _ = fmt.Fprintf(f.writer, "  %s\n", quoteIdent(v.Value))
			}
		}
		_, _ = fmt.Fprintln(f.writer, "}")
		_, _ = fmt.Fprintln(f.writer)
	}

	for _, r := range s.Refs {
		if r.LHS == nil {
			return fmt.Errorf("reference to %s has no left-hand side", r.RHS)
		}
		name := ""
		if r.Name != "" {
			name = " " + quoteIdent(r.Name)
		}
		_, _ = fmt.Fprintf(f.writer, "Ref%s: %s %s %s%s\n", name, refEndpoint(*r.LHS), r.Rel.Symbol(), refEndpoint(r.RHS), refSettings(r.Settings))
	}
	if len(s.Refs) > 0 {
		_, _ = fmt.Fprintln(f.writer)
	}

	for _, g := range s.TableGroups {
		_, _ = fmt.Fprintf(f.writer, "TableGroup %s {\n", quoteIdent(g.Name))
		for _, m := range g.Members {
			_, _ = fmt.Fprintf(f.writer, "  %s\n", qualified(m.Schema, m.Name))
		}
		_, _ = fmt.Fprintln(f.writer, "}")
		_, _ = fmt.Fprintln(f.writer)
	}

	return nil
}

func (f *DBMLFormatter) formatTable(t ast.Table) {
	alias := ""
	if t.Ident.Alias != "" {
		alias = " as " + quoteIdent(t.Ident.Alias)
	}
	_, _ = fmt.Fprintf(f.writer, "Table %s%s {\n", qualified(t.Ident.Schema, t.Ident.Name), alias)

	for _, c := range t.Columns {
		_, _ = fmt.Fprintf(f.writer, "  %s %s%s\n", quoteIdent(c.Name), columnType(c), columnSettings(c))
	}

	if t.Note != "" {
		_, _ = fmt.Fprintf(f.writer, "  Note: %s\n", quoteString(t.Note))
	}

	if len(t.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  indexes {")
		for _, idx := range t.Indexes {
			_, _ = fmt.Fprintf(f.writer, "    %s%s\n", indexColumns(idx), indexSettings(idx.Settings))
		}
		_, _ = fmt.Fprintln(f.writer, "  }")
	}

	_, _ = fmt.Fprintln(f.writer, "}")
}

func columnType(c ast.Column) string {
	var b strings.Builder
	b.WriteString(qualified(c.Type.Schema, c.Type.Token))
	if len(c.Type.Args) > 0 {
		args := make([]string, 0, len(c.Type.Args))
		for _, a := range c.Type.Args {
			args = append(args, a.String())
		}
		b.WriteString("(" + strings.Join(args, ", ") + ")")
	}
	if c.Settings.IsArray {
		b.WriteString("[]")
	}
	return b.String()
}

func columnSettings(c ast.Column) string {
	var settings []string
	s := c.Settings
	if s.IsPK {
		settings = append(settings, "pk")
	}
	if s.IsIncremental {
		settings = append(settings, "increment")
	}
	if s.IsNullable {
		settings = append(settings, "null")
	} else if !s.IsPK {
		settings = append(settings, "not null")
	}
	if s.IsUnique {
		settings = append(settings, "unique")
	}
	if s.Default != nil {
		settings = append(settings, "default: "+s.Default.String())
	}
	if s.Note != "" {
		settings = append(settings, "note: "+quoteString(s.Note))
	}
	for _, r := range s.Refs {
		settings = append(settings, "ref: "+r.Rel.Symbol()+" "+refEndpoint(r.RHS))
	}

	if len(settings) == 0 {
		return ""
	}
	return " [" + strings.Join(settings, ", ") + "]"
}

func indexColumns(idx ast.Index) string {
	cols := make([]string, 0, len(idx.Columns))
	for _, c := range idx.Columns {
		if c.IsExpr {
			cols = append(cols, "`"+c.Name+"`")
		} else {
			cols = append(cols, quoteIdent(c.Name))
		}
	}
	if len(cols) == 1 {
		return cols[0]
	}
	return "(" + strings.Join(cols, ", ") + ")"
}

func indexSettings(s ast.IndexSettings) string {
	var settings []string
	if s.IsPK {
		settings = append(settings, "pk")
	}
	if s.IsUnique {
		settings = append(settings, "unique")
	}
	if s.Name != "" {
		settings = append(settings, "name: "+quoteString(s.Name))
	}
	if s.Type != "" {
		settings = append(settings, "type: "+s.Type)
	}
	if s.Note != "" {
		settings = append(settings, "note: "+quoteString(s.Note))
	}
	if len(settings) == 0 {
		return ""
	}
	return " [" + strings.Join(settings, ", ") + "]"
}

func refEndpoint(r ast.RefIdent) string {
	var b strings.Builder
	b.WriteString(qualified(r.Schema, r.Table))
	b.WriteString(".")
	if len(r.Compositions) == 1 {
		b.WriteString(quoteIdent(r.Compositions[0]))
		return b.String()
	}
	cols := make([]string, 0, len(r.Compositions))
	for _, c := range r.Compositions {
		cols = append(cols, quoteIdent(c))
	}
	b.WriteString("(" + strings.Join(cols, ", ") + ")")
	return b.String()
}

func refSettings(s *ast.RelationSettings) string {
	if s == nil {
		return ""
	}
	var settings []string
	if s.OnDelete != nil {
		settings = append(settings, "delete: "+s.OnDelete.String())
	}
	if s.OnUpdate != nil {
		settings = append(settings, "update: "+s.OnUpdate.String())
	}
	if len(settings) == 0 {
		return ""
	}
	return " [" + strings.Join(settings, ", ") + "]"
}

func qualified(schema, name string) string {
	if schema == "" {
		return quoteIdent(name)
	}
	return quoteIdent(schema) + "." + quoteIdent(name)
}

func quoteIdent(s string) string {
	if plainIdent.MatchString(s) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func quoteString(s string) string {
	return ast.Value{Kind: ast.ValueString, Text: s}.String()
}
