package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// templateRegex matches {{expression}} segments with optional whitespace.
var templateRegex = regexp.MustCompile(`\{\{\s*([^}]+?)\s*\}\}`)

// Renderer evaluates expr expressions against a rendering context, caching
// compiled programs across iterations.
type Renderer struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

func New() *Renderer {
	return &Renderer{programs: make(map[string]*vm.Program)}
}

// Native evaluates one expression and returns its structured value.
func (r *Renderer) Native(expression string, ctx *Context) (any, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, nil
	}
	program, err := r.compile(expression)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}
	result, err := expr.Run(program, ctx.Env())
	if err != nil {
		return nil, fmt.Errorf("eval %q: %w", expression, err)
	}
	return result, nil
}

// String renders a template, replacing every {{expression}} segment with its
// evaluated value. A template without segments is returned verbatim.
func (r *Renderer) String(template string, ctx *Context) (string, error) {
	var evalErr error
	result := templateRegex.ReplaceAllStringFunc(template, func(match string) string {
		inner := templateRegex.FindStringSubmatch(match)
		if len(inner) < 2 {
			return match
		}
		value, err := r.Native(inner[1], ctx)
		if err != nil {
			if evalErr == nil {
				evalErr = err
			}
			return match
		}
		return Stringify(value)
	})
	if evalErr != nil {
		return "", evalErr
	}
	return result, nil
}

func (r *Renderer) compile(expression string) (*vm.Program, error) {
	r.mu.RLock()
	if program, ok := r.programs[expression]; ok {
		r.mu.RUnlock()
		return program, nil
	}
	r.mu.RUnlock()

	// Undefined variables resolve to nil so templates may reference keys the
	// configuration guarantees are set only on later iterations.
	program, err := expr.Compile(expression, expr.Env(map[string]any{}), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if existing, ok := r.programs[expression]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	r.programs[expression] = program
	r.mu.Unlock()

	return program, nil
}

// Stringify converts an evaluated value to its template text form. Whole
// floats render without a trailing ".0" so numeric cursors stay usable in
// URLs and query parameters.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Truthy reports whether a rendered value counts as true for the pagination
// break_early/add_if controls: nil, false, zero numbers, empty strings and
// empty collections are all false.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}
