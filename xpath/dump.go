package xpath

import (
	"io"
	"strconv"
	"strings"
)

// Debug renders the canonical form of a syntax tree. The rendering is
// stable: two trees render identically if and only if they are structurally
// equal, which lets the engine derive cache keys from it.
func Debug(expr *Node) string {
	var str strings.Builder
	debugNode(&str, expr)
	return str.String()
}

func debugNode(w io.Writer, n *Node) {
	if n == nil {
		io.WriteString(w, "nil")
		return
	}
	switch n.Type {
	case TypeTest:
		io.WriteString(w, "name")
		io.WriteString(w, "(")
		if n.Space != "" {
			io.WriteString(w, n.Space)
			io.WriteString(w, ":")
		}
		io.WriteString(w, n.Value)
		io.WriteString(w, ")")
	case TypeWildcard:
		io.WriteString(w, "wildcard")
		io.WriteString(w, "(")
		io.WriteString(w, n.Space)
		io.WriteString(w, ")")
	case TypeNodeType:
		io.WriteString(w, "kind")
		io.WriteString(w, "(")
		io.WriteString(w, n.Value)
		debugList(w, n.Children, true)
		io.WriteString(w, ")")
	case TypeAxis:
		io.WriteString(w, "axis")
		io.WriteString(w, "(")
		io.WriteString(w, n.Value)
		debugList(w, n.Children, true)
		io.WriteString(w, ")")
	case TypeString:
		io.WriteString(w, "literal")
		io.WriteString(w, "(")
		io.WriteString(w, strconv.Quote(n.Value))
		io.WriteString(w, ")")
	case TypeNumber:
		io.WriteString(w, "number")
		io.WriteString(w, "(")
		io.WriteString(w, strconv.FormatFloat(n.Number, 'f', -1, 64))
		io.WriteString(w, ")")
	case TypeVariable:
		io.WriteString(w, "variable")
		io.WriteString(w, "(")
		io.WriteString(w, n.Value)
		io.WriteString(w, ")")
	case TypeFunction:
		io.WriteString(w, "call")
		io.WriteString(w, "(")
		io.WriteString(w, n.Value)
		debugList(w, n.Children, true)
		io.WriteString(w, ")")
	default:
		io.WriteString(w, n.Type.String())
		io.WriteString(w, "(")
		debugList(w, n.Children, false)
		io.WriteString(w, ")")
	}
}

func debugList(w io.Writer, list []*Node, lead bool) {
	for i := range list {
		if i > 0 || lead {
			io.WriteString(w, ", ")
		}
		debugNode(w, list[i])
	}
}
