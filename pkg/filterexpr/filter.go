// Package filterexpr parses CEL-flavoured list filters and order_by clauses
// into typed predicates that repositories bind to SQL. Only conjunctions of
// whitelisted field comparisons are accepted, so arbitrary expressions can
// never reach the database.
package filterexpr

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Kind describes the literal type a filter field accepts.
type Kind string

const (
	KindString    Kind = "string"
	KindInt       Kind = "int"
	KindTimestamp Kind = "timestamp"
)

// Op is a supported comparison operation.
type Op string

const (
	OpEQ  Op = "=="
	OpGTE Op = ">="
	OpLTE Op = "<="
	OpIN  Op = "in"
)

// Field declares one filterable field and the operations allowed on it.
type Field struct {
	Kind Kind
	Ops  []Op
}

// Predicate is one parsed comparison. Value holds a string, int64,
// time.Time, []string or []int64 depending on the field kind and operator.
type Predicate struct {
	Name  string
	Op    Op
	Value any
}

// ParseFilter parses filter into a flat predicate list. An empty filter
// yields no predicates. Only AND-chains of atomic comparisons are allowed.
func ParseFilter(filter string, fields map[string]Field) ([]Predicate, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil, nil
	}
	if len(fields) == 0 {
		return nil, errors.New("filter schema has no fields defined")
	}

	env, err := buildEnv(fields)
	if err != nil {
		return nil, err
	}

	ast, issues := env.Parse(filter)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid filter: %w", issues.Err())
	}
	parsed, err := cel.AstToParsedExpr(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to convert AST: %w", err)
	}

	exprs, err := flattenAnd(parsed.GetExpr())
	if err != nil {
		return nil, err
	}

	preds := make([]Predicate, 0, len(exprs))
	for _, e := range exprs {
		pred, err := parsePredicate(e)
		if err != nil {
			return nil, err
		}
		rule, ok := fields[pred.Name]
		if !ok {
			return nil, fmt.Errorf("field %q is not allowed", pred.Name)
		}
		if !opAllowed(rule.Ops, pred.Op) {
			return nil, fmt.Errorf("operator %q is not allowed for field %q", string(pred.Op), pred.Name)
		}
		coerced, err := coerceValue(rule.Kind, pred.Op, pred.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", pred.Name, err)
		}
		pred.Value = coerced
		preds = append(preds, pred)
	}
	return preds, nil
}

func buildEnv(fields map[string]Field) (*cel.Env, error) {
	opts := make([]cel.EnvOption, 0, len(fields)+1)
	for name, rule := range fields {
		var celType *cel.Type
		switch rule.Kind {
		case KindString:
			celType = cel.StringType
		case KindInt:
			celType = cel.IntType
		case KindTimestamp:
			celType = cel.TimestampType
		default:
			return nil, fmt.Errorf("field %q: unsupported kind %s", name, rule.Kind)
		}
		opts = append(opts, cel.Variable(name, celType))
	}
	opts = append(opts, cel.CrossTypeNumericComparisons(true))
	return cel.NewEnv(opts...)
}

func opAllowed(ops []Op, op Op) bool {
	for _, candidate := range ops {
		if candidate == op {
			return true
		}
	}
	return false
}

// flattenAnd turns a nested _&&_ chain into its leaf expressions. Any other
// logical operator is rejected.
func flattenAnd(expr *exprpb.Expr) ([]*exprpb.Expr, error) {
	if expr == nil {
		return nil, errors.New("empty expression")
	}
	call := expr.GetCallExpr()
	if call == nil {
		return []*exprpb.Expr{expr}, nil
	}
	switch call.Function {
	case "_&&_":
		if len(call.Args) < 2 || call.Target != nil {
			return nil, errors.New("logical AND must have at least two operands")
		}
		var out []*exprpb.Expr
		for _, arg := range call.Args {
			leaves, err := flattenAnd(arg)
			if err != nil {
				return nil, err
			}
			out = append(out, leaves...)
		}
		return out, nil
	case "_||_", "_?_:_", "!_":
		return nil, fmt.Errorf("logical operator %q is not supported; only AND is allowed", call.Function)
	default:
		return []*exprpb.Expr{expr}, nil
	}
}

func parsePredicate(expr *exprpb.Expr) (Predicate, error) {
	call := expr.GetCallExpr()
	if call == nil {
		return Predicate{}, errors.New("unsupported expression; expected a comparison")
	}

	switch call.Function {
	case "_==_":
		return parseBinary(call, OpEQ)
	case "_>=_":
		return parseBinary(call, OpGTE)
	case "_<=_":
		return parseBinary(call, OpLTE)
	case "_in_", "@in":
		return parseIn(call)
	default:
		return Predicate{}, fmt.Errorf("function %q is not supported", call.Function)
	}
}

func parseBinary(call *exprpb.Expr_Call, op Op) (Predicate, error) {
	if call.Target != nil || len(call.Args) != 2 {
		return Predicate{}, fmt.Errorf("operator %q expects two operands", string(op))
	}
	name, err := fieldIdent(call.Args[0])
	if err != nil {
		return Predicate{}, err
	}
	value, err := literal(call.Args[1])
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{Name: name, Op: op, Value: value}, nil
}

func parseIn(call *exprpb.Expr_Call) (Predicate, error) {
	if call.Target != nil || len(call.Args) != 2 {
		return Predicate{}, errors.New("in operator expects two operands")
	}
	name, err := fieldIdent(call.Args[0])
	if err != nil {
		return Predicate{}, err
	}
	value, err := literal(call.Args[1])
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{Name: name, Op: OpIN, Value: value}, nil
}

func fieldIdent(expr *exprpb.Expr) (string, error) {
	ident := expr.GetIdentExpr()
	if ident == nil {
		return "", errors.New("left-hand side must be a field identifier")
	}
	return ident.GetName(), nil
}

func literal(expr *exprpb.Expr) (any, error) {
	if constant := expr.GetConstExpr(); constant != nil {
		switch constant.ConstantKind.(type) {
		case *exprpb.Constant_StringValue:
			return constant.GetStringValue(), nil
		case *exprpb.Constant_Int64Value:
			return constant.GetInt64Value(), nil
		case *exprpb.Constant_Uint64Value:
			return int64(constant.GetUint64Value()), nil
		default:
			return nil, fmt.Errorf("literal type %T is not supported", constant.ConstantKind)
		}
	}

	if list := expr.GetListExpr(); list != nil {
		elements := list.GetElements()
		if len(elements) == 0 {
			return nil, errors.New("list literal must not be empty")
		}
		values := make([]any, len(elements))
		for i, elem := range elements {
			val, err := literal(elem)
			if err != nil {
				return nil, fmt.Errorf("list literal element %d: %w", i, err)
			}
			values[i] = val
		}
		return values, nil
	}

	if call := expr.GetCallExpr(); call != nil && call.Function == "timestamp" {
		if call.Target != nil || len(call.Args) != 1 {
			return nil, errors.New("timestamp() expects a single string argument")
		}
		arg := call.Args[0].GetConstExpr()
		if arg == nil {
			return nil, errors.New("timestamp() argument must be a string literal")
		}
		str := arg.GetStringValue()
		if t, err := time.Parse(time.RFC3339Nano, str); err == nil {
			return t, nil
		}
		if t, err := time.Parse(time.RFC3339, str); err == nil {
			return t, nil
		}
		return nil, fmt.Errorf("timestamp literal %q is not RFC3339", str)
	}

	return nil, errors.New("right-hand side must be a literal, list literal, or timestamp() call")
}

// coerceValue validates the parsed literal against the field kind and
// normalises list values to homogeneous typed slices.
func coerceValue(kind Kind, op Op, value any) (any, error) {
	if op == OpIN {
		items, ok := value.([]any)
		if !ok {
			return nil, errors.New("in operator requires a list literal")
		}
		switch kind {
		case KindString:
			out := make([]string, len(items))
			for i, item := range items {
				s, ok := item.(string)
				if !ok || s == "" {
					return nil, errors.New("list literal must contain non-empty strings")
				}
				out[i] = s
			}
			return out, nil
		case KindInt:
			out := make([]int64, len(items))
			for i, item := range items {
				n, ok := item.(int64)
				if !ok {
					return nil, errors.New("list literal must contain integers")
				}
				out[i] = n
			}
			return out, nil
		default:
			return nil, fmt.Errorf("in operator is not supported for %s fields", kind)
		}
	}

	switch kind {
	case KindString:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case KindInt:
		if n, ok := value.(int64); ok {
			return n, nil
		}
	case KindTimestamp:
		if t, ok := value.(time.Time); ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("expected %s literal", kind)
}
