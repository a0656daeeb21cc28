package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tordrt/dbmlorm/internal/analyzer"
	"github.com/tordrt/dbmlorm/internal/ast"
)

const (
	FormatRust     = "rust"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// MultiFileFormatter writes a model to one file per table in a directory.
// The rust format produces a SeaORM entity module tree; the markdown and
// text formats produce documentation with an overview file.
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "rust", "markdown" or "text"
	Entity       EntityOptions
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string, opts EntityOptions) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
		Entity:       opts,
	}
}

// Format writes the model to multiple files
func (f *MultiFileFormatter) Format(m *analyzer.Model) error {
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if f.OutputFormat == FormatRust {
		return f.formatEntities(m)
	}

	if err := f.writeFile("_overview"+f.getFileExtension(), func(w io.Writer) error {
		return f.writeOverview(w, m)
	}); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for i := range m.Tables {
		table := &m.Tables[i]
		err := f.writeFile(f.tableFileName(table), func(w io.Writer) error {
			if f.OutputFormat == FormatMarkdown {
				NewMarkdownFormatter(w).FormatTable(m, table)
				return nil
			}
			NewTextFormatter(w).formatTable(m, table)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", table.Key, err)
		}
	}

	return nil
}

func (f *MultiFileFormatter) formatEntities(m *analyzer.Model) error {
	modules := make([]string, 0, len(m.Tables))
	for i := range m.Tables {
		table := &m.Tables[i]
		mod := snake(table.Ident.Name)
		modules = append(modules, mod)

		err := f.writeFile(mod+".rs", func(w io.Writer) error {
			root := newBlock(0, "")
			writeHeader(root, f.Entity)
			root.skip()
			enumImport := ""
			if len(enumsUsed(table)) > 0 {
				enumImport = "use super::sea_orm_active_enums::*;"
			}
			writeEntity(root, m, table, enumImport)
			_, err := io.WriteString(w, root.String())
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to write entity file for %s: %w", table.Key, err)
		}
	}

	if len(m.Enums) > 0 {
		err := f.writeFile("sea_orm_active_enums.rs", func(w io.Writer) error {
			root := newBlock(0, "")
			writeHeader(root, f.Entity)
			root.skip().line("use sea_orm::entity::prelude::*;")
			for _, e := range m.Enums {
				root.skip()
				writeActiveEnum(root, e, f.Entity)
			}
			_, err := io.WriteString(w, root.String())
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to write active enums: %w", err)
		}
	}

	if err := f.writeFile("prelude.rs", func(w io.Writer) error {
		root := newBlock(0, "")
		writeHeader(root, f.Entity)
		root.skip()
		for i, mod := range modules {
			root.line(fmt.Sprintf("pub use super::%s::Entity as %s;", mod, pascal(m.Tables[i].Ident.Name)))
		}
		_, err := io.WriteString(w, root.String())
		return err
	}); err != nil {
		return fmt.Errorf("failed to write prelude: %w", err)
	}

	if err := f.writeFile("mod.rs", func(w io.Writer) error {
		root := newBlock(0, "")
		writeHeader(root, f.Entity)
		root.skip().line("pub mod prelude;").skip()
		for _, mod := range modules {
			root.line("pub mod " + mod + ";")
		}
		root.lineIf(len(m.Enums) > 0, "pub mod sea_orm_active_enums;")
		_, err := io.WriteString(w, root.String())
		return err
	}); err != nil {
		return fmt.Errorf("failed to write mod.rs: %w", err)
	}

	return nil
}

// writeOverview lists every table with the tables it references
func (f *MultiFileFormatter) writeOverview(w io.Writer, m *analyzer.Model) error {
	tables := make([]*analyzer.Table, 0, len(m.Tables))
	for i := range m.Tables {
		tables = append(tables, &m.Tables[i])
	}
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].Key.String() < tables[j].Key.String()
	})

	if f.OutputFormat == FormatMarkdown {
		_, _ = fmt.Fprintf(w, "# Schema Overview\n\n")
		_, _ = fmt.Fprintf(w, "Each table has a corresponding file: `<table_name>%s`\n\n", f.getFileExtension())
		_, _ = fmt.Fprintf(w, "## Tables\n\n")
	} else {
		_, _ = fmt.Fprintf(w, "SCHEMA OVERVIEW\n")
		_, _ = fmt.Fprintf(w, "Each table has a file: <table_name>%s\n\n", f.getFileExtension())
	}

	for _, table := range tables {
		if f.OutputFormat == FormatMarkdown {
			_, _ = fmt.Fprintf(w, "- **%s**", table.Key)
		} else {
			_, _ = fmt.Fprintf(w, "%s", table.Key)
		}

		if targets := outgoingTargets(m, table); len(targets) > 0 {
			_, _ = fmt.Fprintf(w, " (references: %s)", strings.Join(targets, ", "))
		}
		_, _ = fmt.Fprintf(w, "\n")
	}

	return nil
}

// outgoingTargets lists the distinct tables a table's foreign keys point at
func outgoingTargets(m *analyzer.Model, table *analyzer.Table) []string {
	var targets []string
	seen := make(map[string]bool)
	for _, r := range m.TableRefs(table.Key).To {
		rhs := m.Indexer.ReferRefAlias(r.RHS)
		name := rhs.Schema + "." + rhs.Table
		if !seen[name] {
			seen[name] = true
			targets = append(targets, name)
		}
	}
	return targets
}

func (f *MultiFileFormatter) writeFile(name string, write func(io.Writer) error) error {
	file, err := os.Create(filepath.Join(f.OutputDir, name))
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	return write(file)
}

// tableFileName prefixes tables outside the default schema with their schema
func (f *MultiFileFormatter) tableFileName(table *analyzer.Table) string {
	name := table.Key.Name
	if table.Key.Schema != ast.DefaultSchema {
		name = table.Key.Schema + "." + name
	}
	return name + f.getFileExtension()
}

func (f *MultiFileFormatter) getFileExtension() string {
	switch f.OutputFormat {
	case FormatMarkdown:
		return ".md"
	case FormatRust:
		return ".rs"
	}
	return ".txt"
}
