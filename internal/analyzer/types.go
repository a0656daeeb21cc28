package analyzer

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is a resolved column type
type Kind int

const (
	KindUndef Kind = iota
	KindChar
	KindVarChar
	KindText
	KindSmallInt
	KindInteger
	KindBigInt
	KindReal
	KindDouble
	KindDecimal
	KindBool
	KindBytes
	KindDate
	KindTime
	KindTimestamp
	KindTimestamptz
	KindUUID
	KindJSON
	KindJSONB
	KindEnum
)

var kindNames = map[Kind]string{
	KindChar:        "char",
	KindVarChar:     "varchar",
	KindText:        "text",
	KindSmallInt:    "smallint",
	KindInteger:     "integer",
	KindBigInt:      "bigint",
	KindReal:        "real",
	KindDouble:      "double",
	KindDecimal:     "decimal",
	KindBool:        "bool",
	KindBytes:       "bytea",
	KindDate:        "date",
	KindTime:        "time",
	KindTimestamp:   "timestamp",
	KindTimestamptz: "timestamptz",
	KindUUID:        "uuid",
	KindJSON:        "json",
	KindJSONB:       "jsonb",
	KindEnum:        "enum",
}

// scalarTokens maps every accepted spelling to its kind. Lookups are
// case-insensitive.
var scalarTokens = map[string]Kind{
	"char":              KindChar,
	"character":         KindChar,
	"varchar":           KindVarChar,
	"character varying": KindVarChar,
	"text":              KindText,
	"smallint":          KindSmallInt,
	"int2":              KindSmallInt,
	"integer":           KindInteger,
	"int":               KindInteger,
	"int4":              KindInteger,
	"bigint":            KindBigInt,
	"int8":              KindBigInt,
	"real":              KindReal,
	"float4":            KindReal,
	"float":             KindReal,
	"double":            KindDouble,
	"double precision":  KindDouble,
	"float8":            KindDouble,
	"decimal":           KindDecimal,
	"numeric":           KindDecimal,
	"bool":              KindBool,
	"boolean":           KindBool,
	"bytea":             KindBytes,
	"blob":              KindBytes,
	"date":              KindDate,
	"time":              KindTime,
	"timestamp":         KindTimestamp,
	"timestamptz":       KindTimestamptz,
	"timestampz":        KindTimestamptz,
	"uuid":              KindUUID,
	"json":              KindJSON,
	"jsonb":             KindJSONB,
}

// LookupKind returns the scalar kind for a type token
func LookupKind(token string) (Kind, bool) {
	k, ok := scalarTokens[strings.ToLower(token)]
	return k, ok
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "undef"
}

// IsInteger reports whether the kind is one of the integer widths
func (k Kind) IsInteger() bool {
	return k == KindSmallInt || k == KindInteger || k == KindBigInt
}

// IsNumeric reports whether the kind holds numbers
func (k Kind) IsNumeric() bool {
	return k.IsInteger() || k == KindReal || k == KindDouble || k == KindDecimal
}

// EnumRef names the enum an enum-typed column refers to
type EnumRef struct {
	Schema string
	Name   string
}

// Type is a resolved column type
type Type struct {
	Kind Kind
	// Enum is set when Kind is KindEnum
	Enum EnumRef
	// Args holds the length for char/varchar and precision, scale for decimal
	Args []int
}

// SameAs compares the parts of two types that must agree across a foreign key.
// Length and precision arguments are not compared.
func (t Type) SameAs(other Type) bool {
	return t.Kind == other.Kind && t.Enum == other.Enum
}

// Length returns the declared length of a char/varchar column
func (t Type) Length() (int, bool) {
	if (t.Kind == KindChar || t.Kind == KindVarChar) && len(t.Args) == 1 {
		return t.Args[0], true
	}
	return 0, false
}

// Precision returns the declared precision and scale of a decimal column
func (t Type) Precision() (int, int, bool) {
	if t.Kind == KindDecimal && len(t.Args) == 2 {
		return t.Args[0], t.Args[1], true
	}
	return 0, 0, false
}

func (t Type) String() string {
	name := t.Kind.String()
	if t.Kind == KindEnum {
		name = t.Enum.Schema + "." + t.Enum.Name
	}
	if len(t.Args) == 0 {
		return name
	}
	args := make([]string, 0, len(t.Args))
	for _, a := range t.Args {
		args = append(args, strconv.Itoa(a))
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ","))
}
