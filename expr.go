package hmistyle

import (
	"fmt"
	"math"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
)

// ExpressionEvaluator evaluates free-form condition expressions against a
// tag-value mapping.
type ExpressionEvaluator interface {
	Evaluate(expression string, vars map[string]any) (any, error)
	IsConditionTrue(expression string, vars map[string]any) (bool, error)
}

// safeEvaluator implements ExpressionEvaluator using expr-lang/expr with a
// restricted grammar: arithmetic, comparisons and boolean connectives over
// named variables and literals. Calls, attribute access and subscripting are
// rejected before compilation, so untrusted expressions cannot reach anything
// outside the supplied mapping.
type safeEvaluator struct {
	cache sync.Map // expression string → *compiledExpr
}

type compiledExpr struct {
	program     *vm.Program
	identifiers []string
}

// NewSafeEvaluator creates an evaluator for restricted condition expressions.
func NewSafeEvaluator() ExpressionEvaluator {
	return &safeEvaluator{}
}

var defaultEvaluator = NewSafeEvaluator()

// SafeEval evaluates a restricted boolean/arithmetic expression against the
// supplied variable mapping. On failure the returned error carries a
// human-readable message; evaluation never panics on malformed input.
func SafeEval(expression string, vars map[string]any) (any, error) {
	return defaultEvaluator.Evaluate(expression, vars)
}

func (e *safeEvaluator) Evaluate(expression string, vars map[string]any) (any, error) {
	if expression == "" {
		return nil, nil
	}
	ce, err := e.compile(expression)
	if err != nil {
		return nil, err
	}
	for _, name := range ce.identifiers {
		if _, ok := vars[name]; !ok {
			return nil, fmt.Errorf("Unknown variable '%s'", name)
		}
	}
	if vars == nil {
		vars = map[string]any{}
	}
	result, err := expr.Run(ce.program, vars)
	if err != nil {
		return nil, fmt.Errorf("Evaluation error: %v", err)
	}
	if f, ok := result.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
		return nil, fmt.Errorf("Evaluation error: division by zero")
	}
	return result, nil
}

func (e *safeEvaluator) IsConditionTrue(expression string, vars map[string]any) (bool, error) {
	result, err := e.Evaluate(expression, vars)
	if err != nil {
		return false, err
	}
	return truthy(result), nil
}

func (e *safeEvaluator) compile(expression string) (*compiledExpr, error) {
	if cached, ok := e.cache.Load(expression); ok {
		return cached.(*compiledExpr), nil
	}

	tree, err := parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("Invalid expression syntax: %v", err)
	}

	v := &whitelistVisitor{seen: map[string]bool{}}
	ast.Walk(&tree.Node, v)
	if v.err != nil {
		return nil, v.err
	}

	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("Invalid expression syntax: %v", err)
	}

	ce := &compiledExpr{program: program, identifiers: v.identifiers}
	e.cache.Store(expression, ce)
	return ce, nil
}

// whitelistVisitor rejects any AST node outside the condition grammar and
// collects the identifiers the expression references.
type whitelistVisitor struct {
	identifiers []string
	seen        map[string]bool
	err         error
}

var allowedBinaryOps = map[string]bool{
	"and": true, "&&": true,
	"or": true, "||": true,
	"==": true, "!=": true,
	"<": true, "<=": true, ">": true, ">=": true,
	"+": true, "-": true, "*": true, "/": true, "%": true,
}

var allowedUnaryOps = map[string]bool{
	"not": true, "!": true, "-": true, "+": true,
}

func (v *whitelistVisitor) Visit(node *ast.Node) {
	if v.err != nil {
		return
	}
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		if !v.seen[n.Value] {
			v.seen[n.Value] = true
			v.identifiers = append(v.identifiers, n.Value)
		}
	case *ast.IntegerNode, *ast.FloatNode, *ast.BoolNode, *ast.StringNode, *ast.NilNode, *ast.ConstantNode:
		// literals
	case *ast.UnaryNode:
		if !allowedUnaryOps[n.Operator] {
			v.err = fmt.Errorf("Unsupported unary operator %q", n.Operator)
		}
	case *ast.BinaryNode:
		if !allowedBinaryOps[n.Operator] {
			v.err = fmt.Errorf("Unsupported binary operator %q", n.Operator)
		}
	case *ast.CallNode, *ast.BuiltinNode:
		v.err = fmt.Errorf("Function calls are not allowed")
	case *ast.MemberNode:
		// dotted access parses to a string property; a[i] does not
		if _, ok := n.Property.(*ast.StringNode); ok {
			v.err = fmt.Errorf("Attribute access is not allowed")
		} else {
			v.err = fmt.Errorf("Subscripting is not allowed")
		}
	case *ast.ChainNode:
		v.err = fmt.Errorf("Attribute access is not allowed")
	case *ast.SliceNode:
		v.err = fmt.Errorf("Subscripting is not allowed")
	default:
		v.err = fmt.Errorf("Unsupported expression: %T", n)
	}
}

// truthy reports whether a resolved value counts as true in a condition.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int32:
		return val != 0
	case int64:
		return val != 0
	case uint:
		return val != 0
	case float32:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}
