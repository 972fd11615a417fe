package borrow

import "github.com/vex-lang/vex/internal/ast"

// rootIdent walks down a place expression (`x`, `x.f`, `x.f[i]`, `*x`) to
// the IdentExpr naming its root binding. ok is false for places that don't
// bottom out at a local name (e.g. a call result), which the borrow
// checker simply does not track.
func rootIdent(n *ast.Node) (string, bool) {
	for n != nil {
		switch n.Typ {
		case ast.IdentExpr:
			name, ok := n.Data.(string)
			return name, ok
		case ast.FieldAccessExpr, ast.IndexExpr, ast.DerefExpr:
			n = n.Child(0)
		default:
			return "", false
		}
	}
	return "", false
}

// fieldPath returns the dotted field chain from the root binding to n,
// e.g. ["a", "b"] for `x.a.b`, used by Phase 2's partial-move tracking.
// Indexing and deref reset the chain (spec.md only tracks partial moves of
// struct *fields*, not array elements or pointees).
func fieldPath(n *ast.Node) []string {
	var path []string
	for n != nil && n.Typ == ast.FieldAccessExpr {
		name, _ := n.Data.(string)
		path = append([]string{name}, path...)
		n = n.Child(0)
	}
	return path
}

// placeString renders a place expression for diagnostics, e.g. "x.f[0]".
func placeString(n *ast.Node) string {
	switch {
	case n == nil:
		return "<expr>"
	case n.Typ == ast.IdentExpr:
		name, _ := n.Data.(string)
		return name
	case n.Typ == ast.FieldAccessExpr:
		field, _ := n.Data.(string)
		return placeString(n.Child(0)) + "." + field
	case n.Typ == ast.IndexExpr:
		return placeString(n.Child(0)) + "[...]"
	case n.Typ == ast.DerefExpr:
		return "*" + placeString(n.Child(0))
	default:
		return "<expr>"
	}
}
