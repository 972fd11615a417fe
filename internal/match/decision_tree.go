// Package match compiles a `match` expression's arms into a decision tree,
// the structure the code generator walks to emit a branch cascade and the
// type environment walks to decide exhaustiveness (spec.md §4.4, E3201).
//
// Grounded directly on sunholo-data-ailang's internal/dtree package
// (decision_tree.go): the same Leaf/Fail/Switch shape and the same
// matrix-specialization algorithm (group rows by the column-0
// constructor/literal, recurse on the specialized sub-matrix), adapted from
// AILANG's core.CorePattern to Vex's ast.Node pattern nodes and from a
// single scrutinee type to Vex's richer pattern grammar (struct, tuple, or,
// range patterns).
package match

import (
	"fmt"

	"github.com/vex-lang/vex/internal/ast"
)

// Tree is the decision-tree sum type, mirroring dtree.DecisionTree.
type Tree interface {
	isTree()
	String() string
}

// Leaf names the matched arm.
type Leaf struct {
	ArmIndex int
	Guard    *ast.Node
	Body     *ast.Node
}

func (*Leaf) isTree()        {}
func (l *Leaf) String() string { return fmt.Sprintf("Leaf(arm=%d)", l.ArmIndex) }

// Fail marks an input the arms do not cover — a non-exhaustive match.
type Fail struct{}

func (*Fail) isTree()        {}
func (*Fail) String() string { return "Fail" }

// Switch dispatches on the discriminator (a literal value or enum-variant
// name) found at Path within the scrutinee.
type Switch struct {
	Path    []int
	Cases   map[interface{}]Tree
	Default Tree
}

func (*Switch) isTree() {}
func (s *Switch) String() string {
	return fmt.Sprintf("Switch(path=%v, cases=%d, default=%v)", s.Path, len(s.Cases), s.Default != nil)
}

// Compiler builds a Tree from a MatchArmList's arms.
type Compiler struct {
	arms []*ast.Node // ast.MatchArm nodes: Child(0)=pattern, Child(1)=guard, Child(2)=body
}

func NewCompiler(arms []*ast.Node) *Compiler { return &Compiler{arms: arms} }

// Compile returns the decision tree. If it contains a Fail reachable
// without being shadowed by a wildcard, Exhaustive reports false.
func (c *Compiler) Compile() Tree {
	matrix := make([]row, len(c.arms))
	for i, arm := range c.arms {
		matrix[i] = row{pats: []*ast.Node{arm.Child(0)}, armIndex: i, guard: arm.Child(1), body: arm.Child(2)}
	}
	return c.compileMatrix(matrix, nil)
}

// Exhaustive reports whether t contains no reachable Fail node.
func Exhaustive(t Tree) bool {
	switch n := t.(type) {
	case *Fail:
		return false
	case *Leaf:
		return true
	case *Switch:
		if !Exhaustive(n.Default) {
			return false
		}
		for _, sub := range n.Cases {
			if !Exhaustive(sub) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

type row struct {
	pats     []*ast.Node
	armIndex int
	guard    *ast.Node
	body     *ast.Node
}

func (c *Compiler) compileMatrix(matrix []row, path []int) Tree {
	if len(matrix) == 0 {
		return &Fail{}
	}
	if isDefaultRow(matrix[0]) {
		return &Leaf{ArmIndex: matrix[0].armIndex, Guard: matrix[0].guard, Body: matrix[0].body}
	}
	if len(matrix[0].pats) == 0 {
		return &Leaf{ArmIndex: matrix[0].armIndex, Guard: matrix[0].guard, Body: matrix[0].body}
	}
	return c.buildSwitch(matrix, path, 0)
}

func isDefaultRow(r row) bool {
	for _, p := range r.pats {
		switch p.Typ {
		case ast.WildcardPattern, ast.BindingPattern:
			continue
		default:
			return false
		}
	}
	return true
}

// discriminator returns the value a pattern tests for, so identical
// literals/variants across arms group into the same Switch case.
func discriminator(p *ast.Node) (interface{}, bool) {
	switch p.Typ {
	case ast.LiteralPattern:
		lit, _ := p.Data.(ast.Lit)
		return lit.String(), true
	case ast.EnumVariantPattern:
		return fmt.Sprint(p.Data), true
	case ast.StructPattern:
		return fmt.Sprint(p.Data), true
	default:
		return nil, false
	}
}

func (c *Compiler) buildSwitch(matrix []row, path []int, col int) Tree {
	cases := make(map[interface{}][]row)
	var defaults []row

	for _, r := range matrix {
		if col >= len(r.pats) {
			defaults = append(defaults, r)
			continue
		}
		p := r.pats[col]
		if p.Typ == ast.OrPattern {
			for _, alt := range p.Children {
				expanded := row{pats: replaceAt(r.pats, col, alt), armIndex: r.armIndex, guard: r.guard, body: r.body}
				if key, ok := discriminator(alt); ok {
					cases[key] = append(cases[key], expanded)
				} else {
					defaults = append(defaults, expanded)
				}
			}
			continue
		}
		if key, ok := discriminator(p); ok {
			cases[key] = append(cases[key], r)
		} else {
			defaults = append(defaults, r)
		}
	}

	if len(cases) == 0 {
		if len(defaults) > 0 {
			return c.compileMatrix(specialize(defaults, col), append(path, col))
		}
		return &Fail{}
	}

	sw := &Switch{Path: append(append([]int(nil), path...), col), Cases: make(map[interface{}]Tree)}
	for key, rows := range cases {
		sw.Cases[key] = c.compileMatrix(specialize(rows, col), append(path, col))
	}
	if len(defaults) > 0 {
		sw.Default = c.compileMatrix(specialize(defaults, col), append(path, col))
	} else {
		sw.Default = &Fail{}
	}
	return sw
}

func replaceAt(pats []*ast.Node, i int, v *ast.Node) []*ast.Node {
	out := append([]*ast.Node(nil), pats...)
	out[i] = v
	return out
}

// specialize drops column col, expanding enum-variant/struct/tuple patterns
// into their sub-pattern columns (pattern specialization), mirroring
// dtree.specializeRows.
func specialize(rows []row, col int) []row {
	out := make([]row, 0, len(rows))
	for _, r := range rows {
		var next []*ast.Node
		for i, p := range r.pats {
			if i != col {
				next = append(next, p)
				continue
			}
			switch p.Typ {
			case ast.EnumVariantPattern, ast.TuplePattern, ast.StructPattern:
				next = append(next, subPatterns(p)...)
			}
		}
		out = append(out, row{pats: next, armIndex: r.armIndex, guard: r.guard, body: r.body})
	}
	return out
}

func subPatterns(p *ast.Node) []*ast.Node {
	if p.Typ != ast.StructPattern {
		return p.Children
	}
	subs := make([]*ast.Node, len(p.Children))
	for i, f := range p.Children {
		subs[i] = f.Child(0)
	}
	return subs
}
