/*
Copyright (C) 2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package executor evaluates ir.QueryPlan trees: per-shard operations
// (Scan, Project, Filter, Aggregate, WindowAggregate, Sort, Limit,
// VectorSearch, TextSearch) against a shard's memtable and segments, and
// whole-cluster operations (DML, DDL, Command) that route through a
// shard.Coordinator instead. Grounded on memcp's scm evaluator
// (scm/main.go's Eval over a Scmer expression tree), generalized from a
// dynamically-typed Lisp evaluator to the gateway's fixed Expr/Operation
// shapes.
package executor

import (
	"math"

	"github.com/launix-de/lumadb/internal/ir"
	"github.com/launix-de/lumadb/internal/lumaerr"
)

// row is a name-addressed view of one batch row, used while evaluating
// expressions and predicates.
type row map[string]ir.Value

// evalExpr evaluates e against r. Unknown columns evaluate to Null,
// matching the rule that a missing column is null, not an error.
func evalExpr(e ir.Expr, r row) (ir.Value, error) {
	switch e.Kind {
	case ir.ExprColumn:
		if v, ok := r[e.Col]; ok {
			return v, nil
		}
		return ir.Null(), nil
	case ir.ExprLiteral:
		return e.Lit, nil
	case ir.ExprCall:
		return evalCall(e.Fn, e.Args, r)
	}
	return ir.Null(), lumaerr.Internal("executor: unknown expression kind")
}

func evalCall(fn string, args []ir.Expr, r row) (ir.Value, error) {
	switch fn {
	case "and":
		for _, a := range args {
			v, err := evalExpr(a, r)
			if err != nil {
				return ir.Value{}, err
			}
			if v.IsNull() || !v.Bool() {
				return ir.NewBool(false), nil
			}
		}
		return ir.NewBool(true), nil
	case "or":
		for _, a := range args {
			v, err := evalExpr(a, r)
			if err != nil {
				return ir.Value{}, err
			}
			if !v.IsNull() && v.Bool() {
				return ir.NewBool(true), nil
			}
		}
		return ir.NewBool(false), nil
	case "not":
		v, err := evalExpr(args[0], r)
		if err != nil {
			return ir.Value{}, err
		}
		if v.IsNull() {
			return ir.Null(), nil
		}
		return ir.NewBool(!v.Bool()), nil
	}

	if len(args) != 2 {
		return ir.Value{}, lumaerr.Internal("executor: operator " + fn + " needs exactly two arguments")
	}
	a, err := evalExpr(args[0], r)
	if err != nil {
		return ir.Value{}, err
	}
	b, err := evalExpr(args[1], r)
	if err != nil {
		return ir.Value{}, err
	}
	if a.IsNull() || b.IsNull() {
		// SQL-style three-valued logic: any comparison against null is
		// unknown, represented here as null.
		switch fn {
		case "=", "<>", "<", "<=", ">", ">=":
			return ir.Null(), nil
		}
	}

	switch fn {
	case "=":
		return ir.NewBool(valuesEqual(a, b)), nil
	case "<>":
		return ir.NewBool(!valuesEqual(a, b)), nil
	case "<":
		return ir.NewBool(compareValues(a, b) < 0), nil
	case "<=":
		return ir.NewBool(compareValues(a, b) <= 0), nil
	case ">":
		return ir.NewBool(compareValues(a, b) > 0), nil
	case ">=":
		return ir.NewBool(compareValues(a, b) >= 0), nil
	case "+":
		return arith(a, b, func(x, y float64) float64 { return x + y }, func(x, y int64) int64 { return x + y })
	case "-":
		return arith(a, b, func(x, y float64) float64 { return x - y }, func(x, y int64) int64 { return x - y })
	case "*":
		return arith(a, b, func(x, y float64) float64 { return x * y }, func(x, y int64) int64 { return x * y })
	case "/":
		return ir.NewFloat(asFloat(a) / asFloat(b)), nil
	}
	return ir.Value{}, lumaerr.Internal("executor: unknown operator " + fn)
}

func valuesEqual(a, b ir.Value) bool {
	if a.Kind() == ir.KindInt && b.Kind() == ir.KindFloat {
		return float64(a.Int()) == b.Float()
	}
	if a.Kind() == ir.KindFloat && b.Kind() == ir.KindInt {
		return a.Float() == float64(b.Int())
	}
	return a.Equal(b)
}

// compareValues orders a/b for comparison operators, promoting mixed
// int/float pairs to float64 before comparing.
func compareValues(a, b ir.Value) int {
	if isNumeric(a) && isNumeric(b) {
		af, bf := asFloat(a), asFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	if a.TotalOrderLess(b) {
		return -1
	}
	if b.TotalOrderLess(a) {
		return 1
	}
	return 0
}

func isNumeric(v ir.Value) bool {
	return v.Kind() == ir.KindInt || v.Kind() == ir.KindFloat
}

func asFloat(v ir.Value) float64 {
	switch v.Kind() {
	case ir.KindInt:
		return float64(v.Int())
	case ir.KindFloat:
		return v.Float()
	default:
		return math.NaN()
	}
}

func arith(a, b ir.Value, ffn func(x, y float64) float64, ifn func(x, y int64) int64) (ir.Value, error) {
	if a.Kind() == ir.KindInt && b.Kind() == ir.KindInt {
		return ir.NewInt(ifn(a.Int(), b.Int())), nil
	}
	return ir.NewFloat(ffn(asFloat(a), asFloat(b))), nil
}

// evalPredicate evaluates a filter expression to a plain bool; null and
// false both exclude the row, matching SQL WHERE semantics.
func evalPredicate(e *ir.Expr, r row) (bool, error) {
	if e == nil {
		return true, nil
	}
	v, err := evalExpr(*e, r)
	if err != nil {
		return false, err
	}
	return !v.IsNull() && v.Bool(), nil
}
