package xpath

import (
	"github.com/midbel/axis/environ"
	"github.com/midbel/axis/xml"
)

// Context carries the node an expression evaluates against, the
// position of that node in the set being filtered, and the variable
// scope. Callers own the context; the engine keeps no global state.
type Context struct {
	Node  xml.Node
	Index int
	Size  int

	environ.Environ[Value]
}

// DefaultContext places node alone in a singleton context with an
// empty variable scope.
func DefaultContext(node xml.Node) Context {
	return createContext(node, 1, 1)
}

func createContext(node xml.Node, pos, size int) Context {
	return Context{
		Node:    node,
		Index:   pos,
		Size:    size,
		Environ: environ.Empty[Value](),
	}
}

// Sub points the context at another node, keeping the variable scope.
func (c Context) Sub(node xml.Node, pos, size int) Context {
	return Context{
		Node:    node,
		Index:   pos,
		Size:    size,
		Environ: c.Environ,
	}
}

// Root rewinds the context to the root of the document its node
// belongs to.
func (c Context) Root() Context {
	if c.Node == nil {
		return c
	}
	curr := c.Node
	for {
		parent := curr.Parent()
		if parent == nil {
			break
		}
		curr = parent
	}
	return c.Sub(curr, 1, 1)
}
