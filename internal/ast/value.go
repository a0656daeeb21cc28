package ast

import "strings"

// ValueKind tells how a literal was written
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueInteger
	ValueDecimal
	ValueBool
	ValueNull
	ValueExpr
)

// Value is a literal: a type argument, a default, etc. Text holds the literal
// without quotes or backticks.
type Value struct {
	Kind ValueKind
	Text string
}

// String renders the value as DBML source
func (v Value) String() string {
	switch v.Kind {
	case ValueString:
		return "'" + strings.ReplaceAll(v.Text, "'", `\'`) + "'"
	case ValueExpr:
		return "`" + v.Text + "`"
	case ValueNull:
		return "null"
	}
	return v.Text
}
