package articulation

import (
	"fmt"
	"go/token"
	"go/types"
	"reflect"
	"regexp"
	"strings"

	"github.com/traefik/yaegi/interp"
)

// conditionVars are the only identifiers a condition may use, in the order
// of the compiled function's parameters.
var conditionVars = []string{
	"avg_note_length", "avg_velocity", "interval_size", "note_count",
	"very_short", "short", "medium", "long",
}

type predicate func(avgNoteLength, avgVelocity, intervalSize, noteCount, veryShort, short, medium, long float64) bool

var (
	wordAnd   = regexp.MustCompile(`\band\b`)
	wordOr    = regexp.MustCompile(`\bor\b`)
	wordNot   = regexp.MustCompile(`\bnot\b`)
	identRe   = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	forbidden = "{};`\"'\n\r"
)

// normalizeCondition accepts the word operators and/or/not and checks that
// the expression only refers to known statistics and thresholds.
func normalizeCondition(cond string) (string, error) {
	expr := strings.TrimSpace(cond)
	if expr == "" {
		return "", fmt.Errorf("empty condition")
	}
	if strings.ContainsAny(expr, forbidden) {
		return "", fmt.Errorf("condition %q contains forbidden characters", cond)
	}
	expr = wordAnd.ReplaceAllString(expr, "&&")
	expr = wordOr.ReplaceAllString(expr, "||")
	expr = wordNot.ReplaceAllString(expr, "!")

	allowed := map[string]bool{"true": true, "false": true}
	for _, v := range conditionVars {
		allowed[v] = true
	}
	for _, id := range identRe.FindAllString(expr, -1) {
		if !allowed[id] {
			return "", fmt.Errorf("condition %q: unknown identifier %q", cond, id)
		}
	}
	return expr, nil
}

// checkBoolean type-checks expr with every statistic declared as float64 and
// rejects expressions whose result is not a boolean.
func checkBoolean(expr string) error {
	pkg := types.NewPackage("condition", "condition")
	for _, v := range conditionVars {
		pkg.Scope().Insert(types.NewVar(token.NoPos, pkg, v, types.Typ[types.Float64]))
	}
	tv, err := types.Eval(token.NewFileSet(), pkg, token.NoPos, expr)
	if err != nil {
		return err
	}
	if b, ok := tv.Type.Underlying().(*types.Basic); !ok || b.Info()&types.IsBoolean == 0 {
		return fmt.Errorf("expression has type %s, want bool", tv.Type)
	}
	return nil
}

// compileCondition turns a boolean expression into a native predicate using
// the yaegi interpreter. Each condition gets its own interpreter.
func compileCondition(cond string) (predicate, error) {
	expr, err := normalizeCondition(cond)
	if err != nil {
		return nil, err
	}
	if err := checkBoolean(expr); err != nil {
		return nil, fmt.Errorf("condition %q: %w", cond, err)
	}
	src := fmt.Sprintf("package main\n\nfunc Cond(%s float64) bool {\n\treturn %s\n}\n",
		strings.Join(conditionVars, ", "), expr)

	i := interp.New(interp.Options{})
	if _, err := i.Eval(src); err != nil {
		return nil, fmt.Errorf("condition %q: %w", cond, err)
	}
	v, err := i.Eval("main.Cond")
	if err != nil {
		return nil, fmt.Errorf("condition %q: %w", cond, err)
	}
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("condition %q did not compile to a function", cond)
	}
	fn, ok := v.Interface().(func(float64, float64, float64, float64, float64, float64, float64, float64) bool)
	if !ok {
		return nil, fmt.Errorf("condition %q is not a boolean expression", cond)
	}
	return predicate(fn), nil
}
