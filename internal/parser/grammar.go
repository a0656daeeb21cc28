package parser

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// dbmlFile is the root of the DBML grammar
//
//nolint:govet // participle grammar tags are not standard struct tags
type dbmlFile struct {
	Decls []*declNode `@@*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type declNode struct {
	Project    *projectNode    `  @@`
	TableGroup *tableGroupNode `| @@`
	Table      *tableNode      `| @@`
	Enum       *enumNode       `| @@`
	Ref        *refNode        `| @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type projectNode struct {
	Name   string          `"Project" @(Ident | DQString)? "{"`
	Fields []*projectField `@@* "}"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type projectField struct {
	Note  *noteNode  `  @@`
	Key   string     `| @Ident ":"`
	Value *valueNode `  @@`
}

// noteNode matches both `Note: '...'` and `Note { '...' }`
//
//nolint:govet // participle grammar tags are not standard struct tags
type noteNode struct {
	Text string `"Note" ( ":" @(TripleString | String | DQString) | "{" @(TripleString | String | DQString) "}" )`
}

//nolint:govet // participle grammar tags are not standard struct tags
type qualifiedName struct {
	Parts []string `@(Ident | DQString) ( "." @(Ident | DQString) )*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type tableNode struct {
	Name     *qualifiedName `"Table" @@`
	Alias    string         `( "as" @(Ident | DQString) )?`
	Settings []*kvSetting   `( "[" @@ ( "," @@ )* "]" )?`
	Items    []*tableItem   `"{" @@* "}"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type tableItem struct {
	Note    *noteNode    `  @@`
	Indexes *indexesNode `| @@`
	Column  *columnNode  `| @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type columnNode struct {
	Name     string           `@(Ident | DQString)`
	Type     *columnType      `@@`
	Settings []*columnSetting `( "[" @@ ( "," @@ )* "]" )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type columnType struct {
	Parts []string     `@(Ident | DQString) ( "." @(Ident | DQString) )?`
	Args  []*valueNode `( "(" @@ ( "," @@ )* ")" )?`
	Array bool         `@( "[" "]" )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type columnSetting struct {
	PK        bool       `  @( "pk" | "primary" "key" )`
	NotNull   bool       `| @( "not" "null" )`
	Null      bool       `| @"null"`
	Unique    bool       `| @"unique"`
	Increment bool       `| @"increment"`
	Note      *string    `| "note" ":" @(TripleString | String | DQString)`
	Default   *valueNode `| "default" ":" @@`
	Ref       *inlineRef `| "ref" ":" @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type inlineRef struct {
	Rel    string       `@( "<>" | "<" | ">" | "-" )`
	Target *refEndpoint `@@`
}

// refEndpoint is schema.table.column, table.column or [schema.]table.(a, b)
//
//nolint:govet // participle grammar tags are not standard struct tags
type refEndpoint struct {
	Parts        []string `@(Ident | DQString) ( "." @(Ident | DQString) )*`
	Compositions []string `( "." "(" @(Ident | DQString) ( "," @(Ident | DQString) )* ")" )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type refNode struct {
	Name string   `"Ref" @(Ident | DQString)?`
	Body *refBody `( ":" @@ | "{" @@ "}" )`
}

//nolint:govet // participle grammar tags are not standard struct tags
type refBody struct {
	LHS      *refEndpoint  `@@`
	Rel      string        `@( "<>" | "<" | ">" | "-" )`
	RHS      *refEndpoint  `@@`
	Settings []*refSetting `( "[" @@ ( "," @@ )* "]" )?`
}

// refSetting is `delete: set null`, `update: cascade` or `color: #aabbcc`
//
//nolint:govet // participle grammar tags are not standard struct tags
type refSetting struct {
	Key   string   `@Ident ":"`
	Words []string `@(Ident | Color | String)+`
}

//nolint:govet // participle grammar tags are not standard struct tags
type enumNode struct {
	Name   *qualifiedName   `"Enum" @@ "{"`
	Values []*enumValueNode `@@* "}"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type enumValueNode struct {
	Value string  `@(Ident | DQString)`
	Note  *string `( "[" "note" ":" @(TripleString | String | DQString) "]" )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type tableGroupNode struct {
	Name    string           `"TableGroup" @(Ident | DQString) "{"`
	Members []*qualifiedName `@@* "}"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type indexesNode struct {
	Indexes []*indexNode `"indexes" "{" @@* "}"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type indexNode struct {
	Columns  []*indexColumnNode `( "(" @@ ( "," @@ )* ")" | @@ )`
	Settings []*kvSetting       `( "[" @@ ( "," @@ )* "]" )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type indexColumnNode struct {
	Expr *string `  @Expr`
	Name *string `| @(Ident | DQString)`
}

// kvSetting is a bare flag (`pk`, `unique`) or `key: value`
//
//nolint:govet // participle grammar tags are not standard struct tags
type kvSetting struct {
	Key   string     `@Ident`
	Value *valueNode `( ":" @@ )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type valueNode struct {
	String *string `  @(TripleString | String | DQString)`
	Expr   *string `| @Expr`
	Number *string `| @Number`
	Bool   *string `| @( "true" | "false" )`
	Null   bool    `| @"null"`
	Color  *string `| @Color`
	Ident  *string `| @Ident`
}

// dbmlLexer tokenizes DBML. Order matters: comments and triple-quoted
// strings must be tried before the punctuation and single-quote rules.
var dbmlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "BlockComment", Pattern: `/\*(?s:.*?)\*/`},
	{Name: "TripleString", Pattern: `'''(?s:.*?)'''`},
	{Name: "String", Pattern: `'(?:\\.|[^'\\])*'`},
	{Name: "DQString", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Expr", Pattern: "`[^`]*`"},
	{Name: "Color", Pattern: `#[0-9A-Fa-f]{3,8}`},
	{Name: "Number", Pattern: `[-+]?\d+(?:\.\d+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `<>|[-<>{}\[\](),:.]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var dbmlParser = participle.MustBuild[dbmlFile](
	participle.Lexer(dbmlLexer),
	participle.Elide("Whitespace", "Comment", "BlockComment"),
	participle.CaseInsensitive("Ident"),
	participle.Map(unquote, "TripleString", "String", "DQString", "Expr"),
	participle.UseLookahead(4),
)

// unquote strips the delimiters of string and expression tokens
func unquote(tok lexer.Token) (lexer.Token, error) {
	v := tok.Value
	switch {
	case strings.HasPrefix(v, "'''"):
		tok.Value = strings.TrimSpace(v[3 : len(v)-3])
	case strings.HasPrefix(v, "`"):
		tok.Value = v[1 : len(v)-1]
	default:
		tok.Value = unescape(v[1 : len(v)-1])
	}
	return tok, nil
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
