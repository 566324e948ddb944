package xpath

import (
	"fmt"
	"slices"
	"strings"

	"github.com/midbel/axis/cache"
	"github.com/midbel/axis/environ"
	"github.com/midbel/axis/xml"
)

const (
	DefaultParseCache   = 100
	DefaultCompileCache = 1000
)

// Query is a compiled expression ready to run any number of times
// against any tree. Running a query mutates nothing on the query, so
// a compiled query can be shared between goroutines.
type Query struct {
	eval evalFunc
	ast  *Node
}

func (q *Query) Eval(node xml.Node) (Value, error) {
	return q.EvalContext(DefaultContext(node))
}

func (q *Query) EvalContext(ctx Context) (Value, error) {
	return q.eval(ctx)
}

// Find runs the query and expects a node set back.
func (q *Query) Find(node xml.Node) (NodeSet, error) {
	return q.FindContext(DefaultContext(node))
}

func (q *Query) FindContext(ctx Context) (NodeSet, error) {
	value, err := q.eval(ctx)
	if err != nil {
		return nil, err
	}
	set, ok := value.(NodeSet)
	if !ok {
		return nil, fmt.Errorf("%w: expression gives %T, not a node set", ErrType, value)
	}
	return set, nil
}

// String gives the canonical rendering of the compiled tree.
func (q *Query) String() string {
	return Debug(q.ast)
}

// Engine ties the stages together: an expression parses once through
// the parse cache, lowers once per namespace binding through the
// compile cache, and the resulting callable runs against whatever node
// is handed to Evaluate. Both caches guard themselves, so one engine
// can serve several goroutines.
type Engine struct {
	parsed   *cache.Cache[*Node]
	compiled *cache.Cache[*Query]

	namespaces map[string]string
	environ    environ.Environ[Value]
	tracer     Tracer
}

type EngineOption func(*Engine)

// WithNamespace binds a prefix to a namespace URI. Prefixed name tests
// compile against these bindings.
func WithNamespace(prefix, uri string) EngineOption {
	return func(e *Engine) {
		e.namespaces[prefix] = uri
	}
}

// WithVariable defines a variable visible to every expression the
// engine evaluates.
func WithVariable(ident string, value Value) EngineOption {
	return func(e *Engine) {
		e.environ.Define(ident, value)
	}
}

func WithParseCache(capacity int) EngineOption {
	return func(e *Engine) {
		e.parsed = cache.New[*Node](capacity)
	}
}

func WithCompileCache(capacity int) EngineOption {
	return func(e *Engine) {
		e.compiled = cache.New[*Query](capacity)
	}
}

func WithTracer(tracer Tracer) EngineOption {
	return func(e *Engine) {
		if tracer == nil {
			tracer = discardTracer{}
		}
		e.tracer = tracer
	}
}

func New(options ...EngineOption) *Engine {
	e := Engine{
		parsed:     cache.New[*Node](DefaultParseCache),
		compiled:   cache.New[*Query](DefaultCompileCache),
		namespaces: make(map[string]string),
		environ:    environ.Empty[Value](),
		tracer:     discardTracer{},
	}
	for _, o := range options {
		o(&e)
	}
	return &e
}

// Parse gives the syntax tree of expr, reusing the cached tree when
// the same text was parsed before. Two calls with the same text give
// back the same pointer.
func (e *Engine) Parse(expr string) (*Node, error) {
	return e.parsed.GetOrSet(expr, func() (*Node, error) {
		p := NewParser(expr)
		p.Tracer = e.tracer
		return p.Parse()
	})
}

// Compile gives the callable form of expr under the engine namespace
// bindings. Engines with different bindings never share an entry even
// for the same text.
func (e *Engine) Compile(expr string) (*Query, error) {
	ast, err := e.Parse(expr)
	if err != nil {
		e.tracer.Error("parse", err)
		return nil, err
	}
	key := queryKey(ast, e.namespaces)
	q, err := e.compiled.GetOrSet(key, func() (*Query, error) {
		comp := NewCompiler(e.namespaces)
		return comp.Compile(ast)
	})
	if err != nil {
		e.tracer.Error("compile", err)
		return nil, err
	}
	return q, nil
}

// Evaluate compiles expr and runs it against node. Variables defined
// on the engine are visible to the expression.
func (e *Engine) Evaluate(expr string, node xml.Node) (Value, error) {
	q, err := e.Compile(expr)
	if err != nil {
		return nil, err
	}
	ctx := DefaultContext(node)
	ctx.Environ = environ.Enclosed(e.environ)
	value, err := q.EvalContext(ctx)
	if err != nil {
		e.tracer.Error("evaluate", err)
	}
	return value, err
}

// Find evaluates expr against node and expects a node set back.
func (e *Engine) Find(expr string, node xml.Node) (NodeSet, error) {
	value, err := e.Evaluate(expr, node)
	if err != nil {
		return nil, err
	}
	set, ok := value.(NodeSet)
	if !ok {
		return nil, fmt.Errorf("%w: expression gives %T, not a node set", ErrType, value)
	}
	return set, nil
}

// Purge drops every cached tree and callable.
func (e *Engine) Purge() {
	e.parsed.Clear()
	e.compiled.Clear()
}

// queryKey identifies a compiled query: the canonical rendering of the
// tree plus the bindings it was lowered with, prefixes in stable order.
func queryKey(ast *Node, namespaces map[string]string) string {
	var str strings.Builder
	str.WriteString(Debug(ast))
	if len(namespaces) == 0 {
		return str.String()
	}
	prefixes := make([]string, 0, len(namespaces))
	for p := range namespaces {
		prefixes = append(prefixes, p)
	}
	slices.Sort(prefixes)
	for _, p := range prefixes {
		str.WriteString(";")
		str.WriteString(p)
		str.WriteString("=")
		str.WriteString(namespaces[p])
	}
	return str.String()
}

var std = New()

// Evaluate runs expr against node with the default engine.
func Evaluate(expr string, node xml.Node) (Value, error) {
	return std.Evaluate(expr, node)
}

// Find runs expr against node with the default engine and expects a
// node set back.
func Find(expr string, node xml.Node) (NodeSet, error) {
	return std.Find(expr, node)
}

// Compile compiles expr with the default engine.
func Compile(expr string) (*Query, error) {
	return std.Compile(expr)
}

// MustCompile is Compile for expressions known to be valid; it panics
// on error.
func MustCompile(expr string) *Query {
	q, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return q
}

// Purge drops everything the default engine has cached.
func Purge() {
	std.Purge()
}
