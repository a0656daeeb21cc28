package analyzer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies an analysis failure. It implements error so a kind can
// be used as a target for errors.Is.
type ErrorKind string

const (
	ErrSchemaNotFound                ErrorKind = "schema-not-found"
	ErrTableNotFound                 ErrorKind = "table-not-found"
	ErrColumnNotFound                ErrorKind = "column-not-found"
	ErrEnumNotFound                  ErrorKind = "enum-not-found"
	ErrEnumValueNotFound             ErrorKind = "enum-value-not-found"
	ErrDuplicateTableName            ErrorKind = "duplicate-table-name"
	ErrDuplicateColumnName           ErrorKind = "duplicate-column-name"
	ErrDuplicateEnumName             ErrorKind = "duplicate-enum-name"
	ErrDuplicateEnumValue            ErrorKind = "duplicate-enum-value"
	ErrDuplicateAlias                ErrorKind = "duplicate-alias"
	ErrDuplicateTableGroupName       ErrorKind = "duplicate-table-group-name"
	ErrDuplicatePrimaryKey           ErrorKind = "duplicate-primary-key"
	ErrConflictingPrimaryKey         ErrorKind = "conflicting-primary-key"
	ErrNullablePrimaryKey            ErrorKind = "nullable-primary-key"
	ErrArrayPrimaryKey               ErrorKind = "array-primary-key"
	ErrUnsupportedRelationKind       ErrorKind = "unsupported-relation-kind"
	ErrUnsupportedCompositeReference ErrorKind = "unsupported-composite-reference"
	ErrMismatchedForeignKeyType      ErrorKind = "mismatched-foreign-key-type"
	ErrDuplicateRelation             ErrorKind = "duplicate-relation"
	ErrMalformedReference            ErrorKind = "malformed-reference"
	ErrUnresolvedType                ErrorKind = "unresolved-type"
	ErrInvalidTypeArguments          ErrorKind = "invalid-type-arguments"
	ErrInvalidDefaultValue           ErrorKind = "invalid-default-value"
	ErrAliasFollowedBySchema         ErrorKind = "alias-followed-by-schema"
	ErrProjectBlockMissing           ErrorKind = "project-block-missing"
)

func (k ErrorKind) Error() string {
	return string(k)
}

// Error is the failure returned by Analyze and the Indexer lookups. The
// identity fields are filled when they apply to the failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Schema  string
	Table   string
	Column  string
	Enum    string
	Value   string
	Ref     string
}

// Error formats the failure with its kind and offending identities
func (e *Error) Error() string {
	if e == nil {
		return "analyzer error <nil>"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s", e.Kind, e.Message))

	var ctx []string
	if e.Schema != "" {
		ctx = append(ctx, "schema="+e.Schema)
	}
	if e.Table != "" {
		ctx = append(ctx, "table="+e.Table)
	}
	if e.Column != "" {
		ctx = append(ctx, "column="+e.Column)
	}
	if e.Enum != "" {
		ctx = append(ctx, "enum="+e.Enum)
	}
	if e.Value != "" {
		ctx = append(ctx, "value="+e.Value)
	}
	if e.Ref != "" {
		ctx = append(ctx, "ref="+e.Ref)
	}
	if len(ctx) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(ctx, ", "))
		b.WriteString(")")
	}
	return b.String()
}

// Is reports whether target is this error's kind
func (e *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

// KindOf returns the ErrorKind carried by err, or "" when err is not an
// analyzer error.
func KindOf(err error) ErrorKind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	var k ErrorKind
	if errors.As(err, &k) {
		return k
	}
	return ""
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
