package filter

import (
	"fmt"
	"regexp"
)

// Operator is a condition comparison operator.
type Operator int

const (
	OpMatches Operator = iota
	OpNotMatches
	OpEquals
	OpNotEquals
	OpLess
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
)

func (op Operator) Literal() string {
	switch op {
	case OpMatches:
		return "=~"
	case OpNotMatches:
		return "!~"
	case OpEquals:
		return "=="
	case OpNotEquals:
		return "!="
	case OpLess:
		return "<"
	case OpLessOrEqual:
		return "<="
	case OpGreater:
		return ">"
	default:
		return ">="
	}
}

// CombineOperator joins two expressions.
type CombineOperator int

const (
	CombineAnd CombineOperator = iota
	CombineOr
)

// ValueKind tags the comparand type.
type ValueKind int

const (
	ValueInteger ValueKind = iota
	ValueFloat
	ValueString
)

// Value is a typed comparand from the query text.
type Value struct {
	kind     ValueKind
	intVal   int64
	floatVal float64
	strVal   string
}

func IntValue(v int64) Value      { return Value{kind: ValueInteger, intVal: v} }
func FloatValue(v float64) Value  { return Value{kind: ValueFloat, floatVal: v} }
func StringValue(v string) Value  { return Value{kind: ValueString, strVal: v} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) String() string {
	switch v.kind {
	case ValueInteger:
		return fmt.Sprintf("int(%d)", v.intVal)
	case ValueFloat:
		return fmt.Sprintf("float(%v)", v.floatVal)
	default:
		return fmt.Sprintf("string(%s)", v.strVal)
	}
}

// Cond is the binder-facing part of a condition: identifier, operator
// and comparand. Its Eval helpers implement the typed comparison
// rules; cross-type comparisons are false.
type Cond struct {
	Ident string
	Op    Operator
	Value Value
}

func (c *Cond) String() string {
	return fmt.Sprintf("Condition<(%s %s %s)>", c.Ident, c.Op.Literal(), c.Value)
}

// EvalInt compares an integer field value against the comparand.
func (c *Cond) EvalInt(v int64) bool {
	switch c.Value.kind {
	case ValueInteger:
		return compareOrdered(c.Op, v, c.Value.intVal)
	case ValueFloat:
		return compareOrdered(c.Op, float64(v), c.Value.floatVal)
	default:
		return false
	}
}

// EvalFloat compares a float field value against the comparand.
func (c *Cond) EvalFloat(v float64) bool {
	switch c.Value.kind {
	case ValueInteger:
		return compareOrdered(c.Op, v, float64(c.Value.intVal))
	case ValueFloat:
		return compareOrdered(c.Op, v, c.Value.floatVal)
	default:
		return false
	}
}

// EvalString compares a string field value against the comparand.
// Regex matching follows the engine's default unanchored semantics; a
// pattern that fails to compile is false for =~ and true for !~.
func (c *Cond) EvalString(v string) bool {
	if c.Value.kind != ValueString {
		return false
	}
	pattern := c.Value.strVal
	switch c.Op {
	case OpMatches:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(v)
	case OpNotMatches:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return true
		}
		return !re.MatchString(v)
	case OpEquals:
		return v == pattern
	case OpNotEquals:
		return v != pattern
	default:
		return false
	}
}

func compareOrdered[N int64 | float64](op Operator, a, b N) bool {
	switch op {
	case OpEquals:
		return a == b
	case OpNotEquals:
		return a != b
	case OpLess:
		return a < b
	case OpLessOrEqual:
		return a <= b
	case OpGreater:
		return a > b
	case OpGreaterOrEqual:
		return a >= b
	default:
		return false
	}
}

// EvaluateFunc is a bound condition evaluator, stateless after
// compilation and safe for concurrent use.
type EvaluateFunc[T any] func(T) bool

// CompileFunc binds one condition to a field of T. Unknown
// identifiers return a *CompileError.
type CompileFunc[T any] func(Cond) (EvaluateFunc[T], error)

// Condition is a leaf of the expression tree.
type Condition[T any] struct {
	Cond
	eval EvaluateFunc[T]
}

func (c *Condition[T]) compile(cb CompileFunc[T]) error {
	eval, err := cb(c.Cond)
	if err != nil {
		return err
	}
	c.eval = eval
	return nil
}

func (c *Condition[T]) evaluate(model T) bool {
	if c.eval == nil {
		return false
	}
	return c.eval(model)
}

// Expression is a node of the tree: the left side is either a
// condition or a nested expression, optionally combined with a right
// expression. Combination is left-associative with no precedence
// between && and ||.
type Expression[T any] struct {
	LeftCond *Condition[T]
	LeftExpr *Expression[T]
	Op       CombineOperator
	Right    *Expression[T]
}

// Compile walks the tree binding every condition via cb.
func (e *Expression[T]) Compile(cb CompileFunc[T]) error {
	if e.LeftCond != nil {
		if err := e.LeftCond.compile(cb); err != nil {
			return err
		}
	} else if e.LeftExpr != nil {
		if err := e.LeftExpr.Compile(cb); err != nil {
			return err
		}
	}
	if e.Right != nil {
		return e.Right.Compile(cb)
	}
	return nil
}

// Evaluate applies the compiled expression; && and || short-circuit.
func (e *Expression[T]) Evaluate(model T) bool {
	var left bool
	if e.LeftCond != nil {
		left = e.LeftCond.evaluate(model)
	} else if e.LeftExpr != nil {
		left = e.LeftExpr.Evaluate(model)
	}

	if e.Right == nil {
		return left
	}
	if e.Op == CombineAnd {
		return left && e.Right.Evaluate(model)
	}
	return left || e.Right.Evaluate(model)
}
