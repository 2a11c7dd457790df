// Package filter translates AIP-160 filters over the run journal into SQL.
package filter

import (
	"fmt"
	"strings"
	"time"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Condition is a SQL WHERE fragment with positional parameters.
type Condition struct {
	Clause string
	Params []any
}

// Empty reports whether the condition matches everything.
func (c Condition) Empty() bool {
	return c.Clause == ""
}

// column maps a filter identifier to its SQL column.
var column = map[string]string{
	"model":      "model",
	"epoch":      "epoch",
	"trials":     "trials",
	"created_at": "created_at",
}

var operators = map[string]string{
	"=":    "=",
	"_==_": "=",
	"!=":   "!=",
	"_!=_": "!=",
	"<":    "<",
	"_<_":  "<",
	"<=":   "<=",
	"_<=_": "<=",
	">":    ">",
	"_>_":  ">",
	">=":   ">=",
	"_>=_": ">=",
}

// Declarations returns the identifiers a run filter may reference.
func Declarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("model", filtering.TypeString),
		filtering.DeclareIdent("epoch", filtering.TypeInt),
		filtering.DeclareIdent("trials", filtering.TypeInt),
		filtering.DeclareIdent("created_at", filtering.TypeTimestamp),
	)
}

// Parse parses filter and returns its SQL condition. An empty filter yields an
// empty condition.
func Parse(filter string) (Condition, error) {
	if strings.TrimSpace(filter) == "" {
		return Condition{}, nil
	}
	decls, err := Declarations()
	if err != nil {
		return Condition{}, fmt.Errorf("create declarations: %w", err)
	}
	parsed, err := filtering.ParseFilterString(filter, decls)
	if err != nil {
		return Condition{}, fmt.Errorf("parse filter: %w", err)
	}
	return translate(parsed.CheckedExpr.GetExpr())
}

func translate(e *expr.Expr) (Condition, error) {
	call := e.GetCallExpr()
	if call == nil {
		return Condition{}, fmt.Errorf("unsupported expression: %v", e)
	}
	switch call.GetFunction() {
	case "_&&_", "AND":
		return join(call.GetArgs(), "AND")
	case "_||_", "OR":
		return join(call.GetArgs(), "OR")
	case "NOT", "!_":
		if len(call.GetArgs()) != 1 {
			return Condition{}, fmt.Errorf("NOT requires 1 argument")
		}
		inner, err := translate(call.GetArgs()[0])
		if err != nil {
			return Condition{}, err
		}
		return Condition{Clause: "NOT " + inner.Clause, Params: inner.Params}, nil
	}
	op, ok := operators[call.GetFunction()]
	if !ok {
		return Condition{}, fmt.Errorf("unsupported function: %s", call.GetFunction())
	}
	return compare(call.GetArgs(), op)
}

func join(args []*expr.Expr, op string) (Condition, error) {
	if len(args) < 2 {
		return Condition{}, fmt.Errorf("%s requires 2 arguments", op)
	}
	out, err := translate(args[0])
	if err != nil {
		return Condition{}, err
	}
	for _, arg := range args[1:] {
		next, err := translate(arg)
		if err != nil {
			return Condition{}, err
		}
		out = Condition{
			Clause: fmt.Sprintf("(%s %s %s)", out.Clause, op, next.Clause),
			Params: append(out.Params, next.Params...),
		}
	}
	return out, nil
}

func compare(args []*expr.Expr, op string) (Condition, error) {
	if len(args) != 2 {
		return Condition{}, fmt.Errorf("comparison requires 2 arguments")
	}
	ident := args[0].GetIdentExpr()
	if ident == nil {
		return Condition{}, fmt.Errorf("expected identifier on the left of %s", op)
	}
	col, ok := column[ident.GetName()]
	if !ok {
		return Condition{}, fmt.Errorf("unknown field: %s", ident.GetName())
	}
	value, err := literal(args[1])
	if err != nil {
		return Condition{}, err
	}
	return Condition{
		Clause: fmt.Sprintf("%s %s ?", col, op),
		Params: []any{value},
	}, nil
}

// literal extracts a constant. Timestamps become Unix milliseconds to match
// the created_at column.
func literal(e *expr.Expr) (any, error) {
	if call := e.GetCallExpr(); call != nil {
		if call.GetFunction() != "timestamp" || len(call.GetArgs()) != 1 {
			return nil, fmt.Errorf("unsupported function in value position: %s", call.GetFunction())
		}
		raw := call.GetArgs()[0].GetConstExpr().GetStringValue()
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", raw, err)
		}
		return ts.UTC().UnixMilli(), nil
	}
	c := e.GetConstExpr()
	if c == nil {
		return nil, fmt.Errorf("expected constant, got %v", e)
	}
	switch kind := c.GetConstantKind().(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return kind.Uint64Value, nil
	case *expr.Constant_DoubleValue:
		return kind.DoubleValue, nil
	case *expr.Constant_BoolValue:
		return kind.BoolValue, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}
