// Package skills hot-loads tools written as Go source files.
//
// A skill is a single `package main` file interpreted by yaegi:
//
//	package main
//
//	import "strings"
//
//	var Name = "shout"
//	var Description = "Upper-case some text"
//	var Params = map[string]string{"text": "Text to shout"}
//	var Defaults = map[string]interface{}{}
//
//	func Run(args map[string]interface{}) (string, error) {
//		return strings.ToUpper(args["text"].(string)), nil
//	}
//
// Loading happens in two phases. Load interprets the file and extracts its
// capability, returning a tagged LoadResult; only a Loaded result reaches
// the tool registry.
package skills

import (
	"context"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"enton/internal/tools"
)

// Status tags the outcome of phase 1.
type Status int

const (
	// Loaded means the file defines a runnable skill.
	Loaded Status = iota
	// ParseError means the file could not be read, parsed or interpreted,
	// or imports a forbidden package.
	ParseError
	// NoCapability means the file interpreted fine but defines no Run.
	NoCapability
)

func (s Status) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case ParseError:
		return "parse_error"
	case NoCapability:
		return "no_capability"
	default:
		return "unknown"
	}
}

// RunFunc is the signature every skill's Run must have.
type RunFunc func(args map[string]interface{}) (string, error)

// LoadResult is the outcome of interpreting one skill file.
type LoadResult struct {
	Status Status
	Path   string
	Name   string
	Tool   *tools.Tool // set only when Loaded
	Err    error
}

// Loader interprets skill files with a restricted import set.
type Loader struct {
	allowed map[string]bool
}

var safePackages = []string{
	"bytes", "encoding/base64", "encoding/json", "errors", "fmt", "math",
	"math/rand", "path", "regexp", "sort", "strconv", "strings", "time",
	"unicode", "unicode/utf8",
}

// NewLoader returns a loader. allowNetwork additionally permits net/http,
// net/url and io.
func NewLoader(allowNetwork bool) *Loader {
	l := &Loader{allowed: make(map[string]bool)}
	for _, p := range safePackages {
		l.allowed[p] = true
	}
	if allowNetwork {
		for _, p := range []string{"net/http", "net/url", "io"} {
			l.allowed[p] = true
		}
	}
	return l
}

// IsSkillFile reports whether path names a loadable skill: a .go file not
// starting with "_" and not a test.
func IsSkillFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, ".go") &&
		!strings.HasPrefix(base, "_") &&
		!strings.HasSuffix(base, "_test.go")
}

// Load runs phase 1 on the file at path.
func (l *Loader) Load(path string) LoadResult {
	res := LoadResult{Path: path, Name: strings.TrimSuffix(filepath.Base(path), ".go")}

	src, err := os.ReadFile(path)
	if err != nil {
		res.Status, res.Err = ParseError, err
		return res
	}
	return l.LoadSource(path, string(src))
}

// LoadSource runs phase 1 on src. path is used for naming and messages.
func (l *Loader) LoadSource(path, src string) (res LoadResult) {
	res = LoadResult{Path: path, Name: strings.TrimSuffix(filepath.Base(path), ".go")}
	defer func() {
		if p := recover(); p != nil {
			res.Status, res.Tool, res.Err = ParseError, nil, fmt.Errorf("interpreter panic: %v", p)
		}
	}()

	if err := l.checkSource(path, src); err != nil {
		res.Status, res.Err = ParseError, err
		return res
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		res.Status, res.Err = ParseError, fmt.Errorf("failed to load stdlib: %w", err)
		return res
	}
	if _, err := i.Eval(src); err != nil {
		res.Status, res.Err = ParseError, fmt.Errorf("evaluation failed: %w", err)
		return res
	}

	run, err := lookup[func(map[string]interface{}) (string, error)](i, "Run")
	if err != nil {
		res.Status, res.Err = NoCapability, err
		return res
	}
	if name, err := lookup[string](i, "Name"); err == nil && strings.TrimSpace(name) != "" {
		res.Name = strings.TrimSpace(name)
	}
	description, _ := lookup[string](i, "Description")
	params, _ := lookup[map[string]string](i, "Params")
	defaults, _ := lookup[map[string]interface{}](i, "Defaults")

	res.Status = Loaded
	res.Tool = buildTool(res.Name, description, path, params, defaults, run)
	return res
}

// checkSource parses the file header and rejects forbidden imports.
func (l *Loader) checkSource(path, src string) error {
	f, err := parser.ParseFile(token.NewFileSet(), path, src, parser.ImportsOnly)
	if err != nil {
		return err
	}
	if f.Name.Name != "main" {
		return fmt.Errorf("skill must be package main, got %s", f.Name.Name)
	}
	var forbidden []string
	for _, imp := range f.Imports {
		p, _ := strconv.Unquote(imp.Path.Value)
		if !l.allowed[p] {
			forbidden = append(forbidden, p)
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports: %s", strings.Join(forbidden, ", "))
	}
	return nil
}

var errWrongType = errors.New("wrong type")

func lookup[T any](i *interp.Interpreter, symbol string) (T, error) {
	var zero T
	v, err := i.Eval("main." + symbol)
	if err != nil {
		return zero, fmt.Errorf("%s not defined: %w", symbol, err)
	}
	if !v.IsValid() || !v.CanInterface() {
		return zero, fmt.Errorf("%s: %w", symbol, errWrongType)
	}
	out, ok := v.Interface().(T)
	if !ok {
		return zero, fmt.Errorf("%s has type %s: %w", symbol, v.Type(), errWrongType)
	}
	return out, nil
}

// buildTool wraps run as a registry tool. Parameters without a default are
// required.
func buildTool(name, description, path string, params map[string]string, defaults map[string]interface{}, run RunFunc) *tools.Tool {
	schema := tools.ToolSchema{Properties: make(map[string]tools.Property, len(params))}
	for p, desc := range params {
		prop := tools.Property{Type: "string", Description: desc}
		if def, ok := defaults[p]; ok {
			prop.Default = def
			prop.Type = jsonType(def)
		} else {
			schema.Required = append(schema.Required, p)
		}
		schema.Properties[p] = prop
	}
	sort.Strings(schema.Required)

	if description == "" {
		description = "Skill " + name
	}
	return &tools.Tool{
		Name:        name,
		Description: description,
		Category:    tools.CategorySkill,
		Source:      path,
		Schema:      schema,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			merged := make(map[string]interface{}, len(args)+len(defaults))
			for p, def := range defaults {
				merged[p] = def
			}
			for k, v := range args {
				merged[k] = v
			}
			return callWithContext(ctx, run, merged)
		},
	}
}

// callWithContext runs an interpreted function, giving up when ctx ends.
// The interpreted goroutine cannot be stopped and finishes on its own.
func callWithContext(ctx context.Context, run RunFunc, args map[string]interface{}) (string, error) {
	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("skill panicked: %v", p)}
			}
		}()
		out, err := run(args)
		done <- result{out, err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("skill execution timed out: %w", ctx.Err())
	}
}

func jsonType(v interface{}) string {
	switch v.(type) {
	case bool:
		return "boolean"
	case int, int32, int64:
		return "integer"
	case float32, float64:
		return "number"
	case []interface{}, []string:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return "string"
	}
}
