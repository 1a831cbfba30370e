// Package filter translates AIP-160 filter expressions over owner watchlist
// listings into SQL conditions.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Condition is a SQL WHERE fragment using `?` placeholders.
type Condition struct {
	Clause string
	Params []any
}

// Empty reports whether the condition filters nothing.
func (c Condition) Empty() bool {
	return strings.TrimSpace(c.Clause) == ""
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindBool
	kindInt
	kindTimestamp
	kindPresence
)

type field struct {
	column string
	kind   fieldKind
}

var fields = map[string]field{
	"visibility": {column: "visibility", kind: kindString},
	"is_default": {column: "is_default", kind: kindBool},
	"fork_count": {column: "fork_count", kind: kindInt},
	"forked":     {column: "forked_from_id", kind: kindPresence},
	"created_at": {column: "created_at", kind: kindTimestamp},
	"updated_at": {column: "updated_at", kind: kindTimestamp},
}

// Declarations returns the identifiers accepted in owner listing filters.
func Declarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("true", filtering.TypeBool),
		filtering.DeclareIdent("false", filtering.TypeBool),
		filtering.DeclareIdent("visibility", filtering.TypeString),
		filtering.DeclareIdent("is_default", filtering.TypeBool),
		filtering.DeclareIdent("fork_count", filtering.TypeInt),
		filtering.DeclareIdent("forked", filtering.TypeBool),
		filtering.DeclareIdent("created_at", filtering.TypeTimestamp),
		filtering.DeclareIdent("updated_at", filtering.TypeTimestamp),
	)
}

// Parse parses filterStr and returns the matching SQL condition. An empty
// filter yields an empty condition.
func Parse(filterStr string) (Condition, error) {
	if strings.TrimSpace(filterStr) == "" {
		return Condition{}, nil
	}

	decls, err := Declarations()
	if err != nil {
		return Condition{}, fmt.Errorf("create declarations: %w", err)
	}
	parsed, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return Condition{}, fmt.Errorf("parse filter: %w", err)
	}
	return translateExpr(parsed.CheckedExpr.GetExpr())
}

func translateExpr(e *expr.Expr) (Condition, error) {
	if e == nil {
		return Condition{}, nil
	}
	switch kind := e.GetExprKind().(type) {
	case *expr.Expr_CallExpr:
		return translateCall(kind.CallExpr)
	case *expr.Expr_IdentExpr:
		// A bare boolean identifier means "is true".
		return translateBoolIdent(kind.IdentExpr.GetName(), true)
	default:
		return Condition{}, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

func translateCall(call *expr.Expr_Call) (Condition, error) {
	switch call.GetFunction() {
	case "_&&_", filtering.FunctionAnd:
		return translateJunction(call.GetArgs(), "AND")
	case "_||_", filtering.FunctionOr:
		return translateJunction(call.GetArgs(), "OR")
	case "!_", filtering.FunctionNot:
		return translateNot(call.GetArgs())
	case "_==_", filtering.FunctionEquals:
		return translateComparison(call.GetArgs(), "=")
	case "_!=_", filtering.FunctionNotEquals:
		return translateComparison(call.GetArgs(), "!=")
	case "_<_", filtering.FunctionLessThan:
		return translateComparison(call.GetArgs(), "<")
	case "_<=_", filtering.FunctionLessEquals:
		return translateComparison(call.GetArgs(), "<=")
	case "_>_", filtering.FunctionGreaterThan:
		return translateComparison(call.GetArgs(), ">")
	case "_>=_", filtering.FunctionGreaterEquals:
		return translateComparison(call.GetArgs(), ">=")
	default:
		return Condition{}, fmt.Errorf("unsupported function: %s", call.GetFunction())
	}
}

func translateJunction(args []*expr.Expr, op string) (Condition, error) {
	if len(args) != 2 {
		return Condition{}, fmt.Errorf("%s requires 2 arguments", op)
	}
	left, err := translateExpr(args[0])
	if err != nil {
		return Condition{}, err
	}
	right, err := translateExpr(args[1])
	if err != nil {
		return Condition{}, err
	}
	params := make([]any, 0, len(left.Params)+len(right.Params))
	params = append(params, left.Params...)
	params = append(params, right.Params...)
	return Condition{
		Clause: fmt.Sprintf("(%s %s %s)", left.Clause, op, right.Clause),
		Params: params,
	}, nil
}

func translateNot(args []*expr.Expr) (Condition, error) {
	if len(args) != 1 {
		return Condition{}, fmt.Errorf("NOT requires 1 argument")
	}
	inner, err := translateExpr(args[0])
	if err != nil {
		return Condition{}, err
	}
	return Condition{Clause: "(NOT " + inner.Clause + ")", Params: inner.Params}, nil
}

func translateBoolIdent(name string, want bool) (Condition, error) {
	f, ok := fields[name]
	if !ok {
		return Condition{}, fmt.Errorf("unknown field: %s", name)
	}
	switch f.kind {
	case kindPresence:
		if want {
			return Condition{Clause: f.column + " IS NOT NULL"}, nil
		}
		return Condition{Clause: f.column + " IS NULL"}, nil
	case kindBool:
		return Condition{Clause: f.column + " = ?", Params: []any{want}}, nil
	default:
		return Condition{}, fmt.Errorf("field %s is not boolean", name)
	}
}

func translateComparison(args []*expr.Expr, op string) (Condition, error) {
	if len(args) != 2 {
		return Condition{}, fmt.Errorf("comparison requires 2 arguments")
	}
	name, err := extractFieldName(args[0])
	if err != nil {
		return Condition{}, err
	}
	f, ok := fields[name]
	if !ok {
		return Condition{}, fmt.Errorf("unknown field: %s", name)
	}
	value, err := extractValue(args[1])
	if err != nil {
		return Condition{}, err
	}

	switch f.kind {
	case kindBool, kindPresence:
		want, ok := value.(bool)
		if !ok {
			return Condition{}, fmt.Errorf("field %s needs a boolean value", name)
		}
		switch op {
		case "=":
			return translateBoolIdent(name, want)
		case "!=":
			return translateBoolIdent(name, !want)
		default:
			return Condition{}, fmt.Errorf("operator %s is not supported for %s", op, name)
		}
	case kindString:
		text, ok := value.(string)
		if !ok {
			return Condition{}, fmt.Errorf("field %s needs a string value", name)
		}
		if op != "=" && op != "!=" {
			return Condition{}, fmt.Errorf("operator %s is not supported for %s", op, name)
		}
		visibility, err := domain.ParseVisibility(text)
		if err != nil || strings.TrimSpace(text) == "" {
			return Condition{}, fmt.Errorf("invalid visibility: %q", text)
		}
		return Condition{Clause: fmt.Sprintf("%s %s ?", f.column, op), Params: []any{string(visibility)}}, nil
	case kindInt:
		number, ok := value.(int64)
		if !ok {
			return Condition{}, fmt.Errorf("field %s needs an integer value", name)
		}
		return Condition{Clause: fmt.Sprintf("%s %s ?", f.column, op), Params: []any{number}}, nil
	case kindTimestamp:
		ts, ok := value.(time.Time)
		if !ok {
			return Condition{}, fmt.Errorf("field %s needs a timestamp value", name)
		}
		return Condition{Clause: fmt.Sprintf("%s %s ?", f.column, op), Params: []any{ts.UTC().UnixMilli()}}, nil
	default:
		return Condition{}, fmt.Errorf("unsupported field: %s", name)
	}
}

func extractFieldName(e *expr.Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil expression")
	}
	ident, ok := e.GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return "", fmt.Errorf("expected identifier, got %T", e.GetExprKind())
	}
	return ident.IdentExpr.GetName(), nil
}

func extractValue(e *expr.Expr) (any, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expression")
	}
	switch kind := e.GetExprKind().(type) {
	case *expr.Expr_ConstExpr:
		return extractConstValue(kind.ConstExpr)
	case *expr.Expr_IdentExpr:
		// true and false parse as identifiers.
		switch kind.IdentExpr.GetName() {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("unexpected identifier in value position: %s", kind.IdentExpr.GetName())
	case *expr.Expr_CallExpr:
		if kind.CallExpr.GetFunction() == filtering.FunctionTimestamp && len(kind.CallExpr.GetArgs()) == 1 {
			return extractTimestampValue(kind.CallExpr.GetArgs()[0])
		}
		return nil, fmt.Errorf("unsupported function in value position: %s", kind.CallExpr.GetFunction())
	default:
		return nil, fmt.Errorf("expected constant or timestamp, got %T", kind)
	}
}

func extractConstValue(c *expr.Constant) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("nil constant")
	}
	switch kind := c.GetConstantKind().(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_BoolValue:
		return kind.BoolValue, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}

func extractTimestampValue(e *expr.Expr) (time.Time, error) {
	constant, ok := e.GetExprKind().(*expr.Expr_ConstExpr)
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp argument must be a constant string")
	}
	text, ok := constant.ConstExpr.GetConstantKind().(*expr.Constant_StringValue)
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp argument must be a string")
	}
	ts, err := time.Parse(time.RFC3339Nano, text.StringValue)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp format: %s", text.StringValue)
	}
	return ts, nil
}
