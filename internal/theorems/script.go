// Package theorems loads and runs user-supplied theorem scripts: small Go
// programs, interpreted at runtime, that receive a serialized description of
// a geometric entity and return algebraic relations to assert.
//
// Scripts run in a sandboxed interpreter rather than being compiled in: only
// a whitelist of side-effect-free stdlib packages may be imported, and no
// filesystem, network or exec access is reachable from them.
package theorems

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"

	"geonerd/internal/symbol"
)

// Input is the serialized entity description handed to a script. Measure
// values are expression strings: a plain number once the measure is known, an
// unknown's name otherwise.
type Input struct {
	Kind   string            `json:"kind"`
	Key    string            `json:"key"`
	Sides  map[string]string `json:"sides,omitempty"`
	Angles map[string]string `json:"angles,omitempty"`
	Area   string            `json:"area,omitempty"`
}

// Script is a loaded theorem script. The underlying code defines
//
//	func Relations(input string) (string, error)
//
// which receives the Input as JSON and returns one relation per output line,
// each a polynomial (in the measure names from the input) equated to zero.
// Blank lines and lines starting with # are ignored.
type Script struct {
	name string
	fn   func(string) (string, error)
}

// Name returns the name the script was loaded under.
func (s *Script) Name() string { return s.name }

// Loader validates and interprets theorem scripts.
type Loader struct {
	allowed map[string]bool
	log     *zap.Logger
}

// NewLoader returns a Loader. A nil logger defaults to a no-op logger.
func NewLoader(log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		log: log,
		allowed: map[string]bool{
			"strings":       true,
			"strconv":       true,
			"fmt":           true,
			"math":          true,
			"sort":          true,
			"encoding/json": true,

			// Blocked: os, os/exec, net, net/http, syscall, unsafe,
			// io/ioutil and anything else that can reach outside the
			// interpreter.
		},
	}
}

// Load validates the script's imports, evaluates it and resolves its
// Relations function.
func (l *Loader) Load(name, code string) (*Script, error) {
	if err := l.validateImports(code); err != nil {
		return nil, fmt.Errorf("script %q: %w", name, err)
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("script %q: failed to load stdlib: %w", name, err)
	}
	if _, err := i.Eval(wrapCode(code)); err != nil {
		return nil, fmt.Errorf("script %q: evaluation failed: %w", name, err)
	}
	v, err := i.Eval("main.Relations")
	if err != nil {
		return nil, fmt.Errorf("script %q: Relations function not found: %w", name, err)
	}
	fn, ok := v.Interface().(func(string) (string, error))
	if !ok {
		return nil, fmt.Errorf("script %q: Relations has incorrect signature (expected: func(string) (string, error))", name)
	}
	l.log.Debug("theorem script loaded", zap.String("script", name))
	return &Script{name: name, fn: fn}, nil
}

// Relations runs the script against one entity description and parses the
// relations it returns. The context bounds the script's execution time.
func (s *Script) Relations(ctx context.Context, in Input) ([]*symbol.Expr, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("script %q: failed to encode input: %w", s.name, err)
	}

	outChan := make(chan string, 1)
	errChan := make(chan error, 1)
	go func() {
		out, err := s.fn(string(payload))
		if err != nil {
			errChan <- err
			return
		}
		outChan <- out
	}()

	var out string
	select {
	case out = <-outChan:
	case err := <-errChan:
		return nil, fmt.Errorf("script %q: %w", s.name, err)
	case <-ctx.Done():
		return nil, fmt.Errorf("script %q: execution timed out: %w", s.name, ctx.Err())
	}

	var exprs []*symbol.Expr
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, err := symbol.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("script %q: bad relation %q: %w", s.name, line, err)
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

// validateImports rejects any import outside the whitelist.
func (l *Loader) validateImports(code string) error {
	var imports []string
	inBlock := false
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "import (") {
			inBlock = true
			continue
		}
		if inBlock && strings.HasPrefix(trimmed, ")") {
			inBlock = false
			continue
		}
		if inBlock {
			imports = append(imports, strings.Trim(trimmed, `"`))
		} else if strings.HasPrefix(trimmed, "import ") {
			imports = append(imports, strings.Trim(strings.TrimPrefix(trimmed, "import "), `"`))
		}
	}
	var forbidden []string
	for _, pkg := range imports {
		if pkg == "" {
			continue
		}
		if !l.allowed[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports: %v", forbidden)
	}
	return nil
}

// wrapCode wraps the script in a main package unless it already declares one.
func wrapCode(code string) string {
	if strings.Contains(code, "package main") {
		return code
	}
	return "package main\n\n" + code
}
