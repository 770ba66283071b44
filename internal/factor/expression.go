package factor

import (
	"fmt"
	"math"
	"regexp"

	"factorlab/internal/domain"

	"github.com/maja42/goval"
)

var (
	identifierPattern = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*(\()?`)
	reservedWords     = map[string]bool{"true": true, "false": true, "nil": true}
)

func expressionFunctions() map[string]goval.ExpressionFunction {
	unary := func(name string, f func(float64) float64) goval.ExpressionFunction {
		return func(args ...interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("%s expects 1 argument, got %d", name, len(args))
			}
			x, err := toFloat(args[0])
			if err != nil {
				return nil, err
			}
			return f(x), nil
		}
	}
	binary := func(name string, f func(float64, float64) float64) goval.ExpressionFunction {
		return func(args ...interface{}) (interface{}, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("%s expects 2 arguments, got %d", name, len(args))
			}
			x, err := toFloat(args[0])
			if err != nil {
				return nil, err
			}
			y, err := toFloat(args[1])
			if err != nil {
				return nil, err
			}
			return f(x, y), nil
		}
	}
	return map[string]goval.ExpressionFunction{
		"abs":  unary("abs", math.Abs),
		"log":  unary("log", math.Log),
		"sqrt": unary("sqrt", math.Sqrt),
		"min":  binary("min", math.Min),
		"max":  binary("max", math.Max),
	}
}

func toFloat(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

// expressionVariables lists the identifiers an expression reads, leaving
// out function names and literals
func expressionVariables(expression string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, m := range identifierPattern.FindAllStringSubmatch(expression, -1) {
		name, isCall := m[1], m[2] != ""
		if isCall || reservedWords[name] || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// NewExpressionDefinition builds a user-defined factor evaluated over
// snapshot fields plus price and marketCap. the expression is checked
// up front so a typo fails at config time, not mid-run
func NewExpressionDefinition(name, expression string, orientation domain.Orientation) (Definition, error) {
	variables := expressionVariables(expression)
	evaluator := goval.NewEvaluator()
	functions := expressionFunctions()

	dryRun := map[string]interface{}{}
	for _, v := range variables {
		dryRun[v] = 1.0
	}
	res, err := evaluator.Evaluate(expression, dryRun, functions)
	if err != nil {
		return Definition{}, fmt.Errorf("failed to evaluate expression for %s: %w", name, err)
	}
	if _, err := toFloat(res); err != nil {
		return Definition{}, fmt.Errorf("expression for %s does not produce a number: %w", name, err)
	}

	formula := func(obs Observation) (float64, error) {
		vars := map[string]interface{}{}
		if obs.Snapshot != nil {
			for k, v := range obs.Snapshot.Fields {
				vars[k] = v
			}
		}
		if obs.Price != nil {
			vars["price"] = *obs.Price
			if obs.Snapshot != nil {
				if shares, ok := obs.Snapshot.Get(FieldSharesOutstanding); ok {
					vars["marketCap"] = *obs.Price * shares
				}
			}
		}
		for _, v := range variables {
			if _, ok := vars[v]; !ok {
				return 0, missingDataError{What: v}
			}
		}

		res, err := goval.NewEvaluator().Evaluate(expression, vars, functions)
		if err != nil {
			return 0, missingDataError{What: "evaluable expression: " + err.Error()}
		}
		value, err := toFloat(res)
		if err != nil {
			return 0, missingDataError{What: "numeric result"}
		}
		return value, nil
	}

	return Definition{
		Name:        name,
		Orientation: orientation,
		Strict:      formula,
	}, nil
}
