package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

const maxExpressionLength = 512

var calculatorConstants = map[string]any{
	"pi": math.Pi,
	"e":  math.E,
}

// calculatorFunctions supplement expr's builtins (abs, ceil, floor, round,
// max, min) with the usual math functions.
var calculatorFunctions = []expr.Option{
	unaryMath("sqrt", math.Sqrt),
	unaryMath("log", math.Log),
	unaryMath("log10", math.Log10),
	unaryMath("exp", math.Exp),
	unaryMath("sin", math.Sin),
	unaryMath("cos", math.Cos),
	unaryMath("tan", math.Tan),
	expr.Function("pow", func(params ...any) (any, error) {
		if len(params) != 2 {
			return nil, fmt.Errorf("pow expects 2 arguments, got %d", len(params))
		}
		x, okX := asFloat(params[0])
		y, okY := asFloat(params[1])
		if !okX || !okY {
			return nil, errors.New("pow expects numbers")
		}
		return math.Pow(x, y), nil
	}),
}

func unaryMath(name string, fn func(float64) float64) expr.Option {
	return expr.Function(name, func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("%s expects 1 argument, got %d", name, len(params))
		}
		x, ok := asFloat(params[0])
		if !ok {
			return nil, fmt.Errorf("%s expects a number", name)
		}
		return fn(x), nil
	})
}

// Evaluate computes a numeric expression such as "sqrt(144) + 50".
func Evaluate(expression string) (float64, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return 0, errors.New("expression is empty")
	}
	if len(expression) > maxExpressionLength {
		return 0, fmt.Errorf("expression longer than %d characters", maxExpressionLength)
	}
	expression = strings.NewReplacer("×", "*", "÷", "/").Replace(expression)

	opts := append([]expr.Option{expr.Env(calculatorConstants), expr.AsFloat64()}, calculatorFunctions...)
	program, err := expr.Compile(expression, opts...)
	if err != nil {
		return 0, fmt.Errorf("invalid expression: %w", err)
	}
	out, err := expr.Run(program, calculatorConstants)
	if err != nil {
		return 0, fmt.Errorf("evaluate expression: %w", err)
	}
	v, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("expression did not produce a number")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("result is not a finite number")
	}
	return v, nil
}

// FormatNumber renders v in its shortest decimal form: 62, 2.5.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CalculatorSpec evaluates arithmetic expressions.
func CalculatorSpec() Spec {
	return Spec{
		Name:        "calculator",
		Description: "Evaluate a mathematical expression. Supports + - * / % ^, parentheses, sqrt, pow, abs, floor, ceil, round, log, exp, sin, cos, tan, pi and e.",
		Parameters: []Parameter{
			{Name: "expression", Type: TypeString, Required: true, Description: "Expression to evaluate, e.g. sqrt(144) + 50."},
		},
		Handler: func(_ context.Context, args Args) (string, error) {
			v, err := Evaluate(args.String("expression"))
			if err != nil {
				return "", err
			}
			return FormatNumber(v), nil
		},
	}
}
