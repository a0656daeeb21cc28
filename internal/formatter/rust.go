package formatter

import (
	"fmt"

	"github.com/iancoleman/strcase"

	"github.com/tordrt/dbmlorm/internal/analyzer"
	"github.com/tordrt/dbmlorm/internal/ast"
)

// seaColumnType returns the sea_orm column_type attribute for a resolved
// type. Enum columns take their type from the active enum and have none.
func seaColumnType(t analyzer.Type) (string, bool) {
	switch t.Kind {
	case analyzer.KindChar:
		if n, ok := t.Length(); ok {
			return fmt.Sprintf("Char(Some(%d))", n), true
		}
		return "Char(None)", true
	case analyzer.KindVarChar:
		if n, ok := t.Length(); ok {
			return fmt.Sprintf("String(Some(%d))", n), true
		}
		return "String(None)", true
	case analyzer.KindText:
		return "Text", true
	case analyzer.KindSmallInt:
		return "SmallInteger", true
	case analyzer.KindInteger:
		return "Integer", true
	case analyzer.KindBigInt:
		return "BigInteger", true
	case analyzer.KindReal:
		return "Float", true
	case analyzer.KindDouble:
		return "Double", true
	case analyzer.KindDecimal:
		if p, s, ok := t.Precision(); ok {
			return fmt.Sprintf("Decimal(Some((%d, %d)))", p, s), true
		}
		return "Decimal(None)", true
	case analyzer.KindBool:
		return "Boolean", true
	case analyzer.KindBytes:
		return "Binary(BlobSize::Blob(None))", true
	case analyzer.KindDate:
		return "Date", true
	case analyzer.KindTime:
		return "Time", true
	case analyzer.KindTimestamp:
		return "DateTime", true
	case analyzer.KindTimestamptz:
		return "TimestampWithTimeZone", true
	case analyzer.KindUUID:
		return "Uuid", true
	case analyzer.KindJSON:
		return "Json", true
	case analyzer.KindJSONB:
		return "JsonBinary", true
	}
	return "", false
}

// rustType returns the Rust field type for a resolved type
func rustType(t analyzer.Type) string {
	switch t.Kind {
	case analyzer.KindChar, analyzer.KindVarChar, analyzer.KindText:
		return "String"
	case analyzer.KindSmallInt:
		return "i16"
	case analyzer.KindInteger:
		return "i32"
	case analyzer.KindBigInt:
		return "i64"
	case analyzer.KindReal:
		return "f32"
	case analyzer.KindDouble:
		return "f64"
	case analyzer.KindDecimal:
		return "Decimal"
	case analyzer.KindBool:
		return "bool"
	case analyzer.KindBytes:
		return "Vec<u8>"
	case analyzer.KindDate:
		return "Date"
	case analyzer.KindTime:
		return "Time"
	case analyzer.KindTimestamp:
		return "DateTime"
	case analyzer.KindTimestamptz:
		return "DateTimeWithTimeZone"
	case analyzer.KindUUID:
		return "Uuid"
	case analyzer.KindJSON, analyzer.KindJSONB:
		return "Json"
	case analyzer.KindEnum:
		return pascal(t.Enum.Name)
	}
	return "String"
}

// fieldType wraps the Rust type for array and nullable columns
func fieldType(col analyzer.Column) string {
	typ := rustType(col.Type)
	if col.Settings.IsArray {
		typ = "Vec<" + typ + ">"
	}
	if col.Settings.IsNullable {
		typ = "Option<" + typ + ">"
	}
	return typ
}

// actionName renders a referential action as a sea_orm ForeignKeyAction variant
func actionName(a ast.RelationAction) string {
	return pascal(a.String())
}

func pascal(s string) string {
	return strcase.ToCamel(s)
}

func snake(s string) string {
	return strcase.ToSnake(s)
}
