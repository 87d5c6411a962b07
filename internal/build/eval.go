package build

import (
	"fmt"
	"math"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// evalFuncs are the functions available inside deterministic, potential and
// parameter expressions.
var evalFuncs = map[string]function.Function{
	"abs":    stdlib.AbsoluteFunc,
	"ceil":   stdlib.CeilFunc,
	"floor":  stdlib.FloorFunc,
	"log":    stdlib.LogFunc,
	"pow":    stdlib.PowFunc,
	"signum": stdlib.SignumFunc,
	"max":    stdlib.MaxFunc,
	"min":    stdlib.MinFunc,
}

// exprRefs returns the sorted, deduplicated root names of every variable an
// expression traverses.
func exprRefs(expr hcl.Expression) []string {
	if expr == nil {
		return nil
	}
	seen := make(map[string]bool)
	var refs []string
	for _, traversal := range expr.Variables() {
		name := traversal.RootName()
		if !seen[name] {
			seen[name] = true
			refs = append(refs, name)
		}
	}
	sort.Strings(refs)
	return refs
}

// evalConstant evaluates an expression with no variable references to a
// scalar.
func evalConstant(expr hcl.Expression) (float64, error) {
	val, diags := expr.Value(&hcl.EvalContext{Functions: evalFuncs})
	if diags.HasErrors() {
		return 0, fmt.Errorf("evaluating constant: %w", diags)
	}
	return ctyFloat(val)
}

// exprEval closes over an expression as a scalar function of its parents.
// Evaluation failures surface as NaN, which the node layer treats as an
// impossible state rather than a crash.
func exprEval(expr hcl.Expression) func(parents map[string]float64) float64 {
	return func(parents map[string]float64) float64 {
		vars := make(map[string]cty.Value, len(parents))
		for name, v := range parents {
			vars[name] = cty.NumberFloatVal(v)
		}
		val, diags := expr.Value(&hcl.EvalContext{Variables: vars, Functions: evalFuncs})
		if diags.HasErrors() {
			return math.NaN()
		}
		f, err := ctyFloat(val)
		if err != nil {
			return math.NaN()
		}
		return f
	}
}

func ctyFloat(val cty.Value) (float64, error) {
	if val.IsNull() || !val.Type().Equals(cty.Number) {
		return 0, fmt.Errorf("expected a number, got %s", val.Type().FriendlyName())
	}
	f, _ := val.AsBigFloat().Float64()
	return f, nil
}
