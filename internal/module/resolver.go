// Package module resolves the import graph between parsed source files,
// mints stable DefinitionIds for every top-level item, and checks for
// import cycles (E2001), unresolved module paths (E2000), re-exports of
// names a module never defined (E2002), and duplicate top-level
// declarations within one module (E2003).
//
// The teacher has no equivalent pass — vslc compiles a single translation
// unit per invocation — so this package is grounded on the teacher's
// general approach to tree-walking (src/ir/symtab.go's scope-stack
// population of ir.Symbol entries from top-level declarations) and its
// util.Stack (src/util/stack.go), generalized here into pathStack for
// cycle detection during the import-graph DFS.
package module

import (
	"fmt"
	"strings"

	"github.com/vex-lang/vex/internal/ast"
	"github.com/vex-lang/vex/internal/diag"
	"github.com/vex-lang/vex/internal/source"
)

// Module is one parsed, registered source file.
type Module struct {
	Path    string // the string literal used in `from "..."`
	File    source.FileID
	Tree    *ast.Node // Program node
	Imports []Import
	Exports map[string]ast.DefID
}

// Import is one `import { a, b } from "path";` declaration.
type Import struct {
	Path  string
	Names []string
	Span  source.Span
}

// Resolver builds the module graph incrementally as files are registered,
// then checks it as a whole in Resolve.
type Resolver struct {
	bus     *diag.Bus
	modules map[string]*Module
	order   []string
	nextDef ast.DefID
}

func NewResolver(bus *diag.Bus) *Resolver {
	return &Resolver{bus: bus, modules: make(map[string]*Module)}
}

// mintDefID hands out the next stable DefinitionId, starting at 1 so 0
// stays the ast.DefID zero value meaning "unresolved".
func (r *Resolver) mintDefID() ast.DefID {
	r.nextDef++
	return r.nextDef
}

// AddModule registers a parsed file under path, minting a DefID for every
// top-level item and recording its import/export declarations. Call once
// per file before Resolve.
func (r *Resolver) AddModule(path string, file source.FileID, tree *ast.Node) *Module {
	m := &Module{Path: path, File: file, Tree: tree, Exports: make(map[string]ast.DefID)}
	seen := make(map[string]source.Span)

	for _, item := range tree.Children {
		switch item.Typ {
		case ast.ImportDecl:
			names := make([]string, len(item.Children))
			for i, n := range item.Children {
				names[i] = fmt.Sprint(n.Data)
			}
			importPath, _ := item.Data.(string)
			m.Imports = append(m.Imports, Import{Path: importPath, Names: names, Span: item.Span})
			continue
		case ast.ExportDecl:
			r.registerExport(m, item, seen)
			continue
		}
		if name, ok := declName(item); ok {
			r.checkDuplicate(m, name, item.Span, seen)
			item.DefID = r.mintDefID()
		}
	}

	r.modules[path] = m
	r.order = append(r.order, path)
	return m
}

func (r *Resolver) registerExport(m *Module, exp *ast.Node, seen map[string]source.Span) {
	if path, ok := exp.Data.(string); ok && path != "" {
		// `export { a, b } from "path"` re-exports names defined elsewhere;
		// those names are resolved against the target module in Resolve.
		for _, n := range exp.Children {
			m.Exports[fmt.Sprint(n.Data)] = 0
		}
		m.Imports = append(m.Imports, Import{Path: path})
		return
	}
	if len(exp.Children) == 1 && isItem(exp.Children[0].Typ) {
		item := exp.Children[0]
		if name, ok := declName(item); ok {
			r.checkDuplicate(m, name, item.Span, seen)
			item.DefID = r.mintDefID()
			m.Exports[name] = item.DefID
		}
		return
	}
	for _, n := range exp.Children {
		name := fmt.Sprint(n.Data)
		m.Exports[name] = 0 // resolved against an already-minted local DefID in Resolve
	}
}

func (r *Resolver) checkDuplicate(m *Module, name string, sp source.Span, seen map[string]source.Span) {
	if _, ok := seen[name]; ok {
		r.bus.Report(diag.New(diag.EModuleDuplicate, diag.SeverityError, diag.PhaseModule, sp,
			fmt.Sprintf("%q is declared more than once in this module", name)))
		return
	}
	seen[name] = sp
}

func isItem(t ast.NodeType) bool {
	switch t {
	case ast.FunctionDecl, ast.StructDecl, ast.EnumDecl, ast.TraitDecl, ast.ImplDecl, ast.ConstDecl:
		return true
	}
	return false
}

func declName(item *ast.Node) (string, bool) {
	switch item.Typ {
	case ast.FunctionDecl, ast.StructDecl, ast.EnumDecl, ast.TraitDecl, ast.ConstDecl:
		name, ok := item.Data.(string)
		return name, ok
	default:
		return "", false
	}
}

// Resolve checks every registered module's imports against the rest of the
// graph (E2000 missing module, E2002 missing export), fills in local-export
// DefIDs, and runs a cycle check (E2001) over the whole import graph.
func (r *Resolver) Resolve() {
	// Fill in plain-name re-export DefIDs now that all modules have minted
	// their own top-level DefIDs.
	for _, path := range r.order {
		m := r.modules[path]
		for name, id := range m.Exports {
			if id == 0 {
				if localID, ok := r.localDefID(m, name); ok {
					m.Exports[name] = localID
				}
			}
		}
	}

	for _, path := range r.order {
		m := r.modules[path]
		for _, imp := range m.Imports {
			target, ok := r.modules[imp.Path]
			if !ok {
				r.bus.Report(diag.New(diag.EModuleNotFound, diag.SeverityError, diag.PhaseModule, imp.Span,
					fmt.Sprintf("no module resolves to %q", imp.Path)))
				continue
			}
			for _, name := range imp.Names {
				if _, ok := target.Exports[name]; !ok {
					r.bus.Report(diag.New(diag.EModuleMissingExport, diag.SeverityError, diag.PhaseModule, imp.Span,
						fmt.Sprintf("module %q does not export %q", imp.Path, name)))
				}
			}
		}
	}

	r.checkCycles()
}

func (r *Resolver) localDefID(m *Module, name string) (ast.DefID, bool) {
	for _, item := range m.Tree.Children {
		if n, ok := declName(item); ok && n == name && item.DefID != 0 {
			return item.DefID, true
		}
	}
	return 0, false
}

// checkCycles runs a DFS per unvisited module using pathStack as the
// recursion-path tracker; revisiting a path already on the stack reports
// E2001 exactly once per discovered cycle.
func (r *Resolver) checkCycles() {
	visited := make(map[string]bool)
	var stack pathStack

	var visit func(path string)
	visit = func(path string) {
		if visited[path] {
			return
		}
		if stack.contains(path) {
			cyc := stack.cycleFrom(path)
			r.bus.Report(diag.New(diag.EModuleCycle, diag.SeverityError, diag.PhaseModule, source.Span{},
				fmt.Sprintf("import cycle: %s", strings.Join(cyc, " -> "))))
			return
		}
		m, ok := r.modules[path]
		if !ok {
			return
		}
		stack.push(path)
		for _, imp := range m.Imports {
			visit(imp.Path)
		}
		stack.pop()
		visited[path] = true
	}

	for _, path := range r.order {
		visit(path)
	}
}

// Module looks up a registered module by its import path.
func (r *Resolver) Module(path string) (*Module, bool) {
	m, ok := r.modules[path]
	return m, ok
}

// Modules returns every registered module in registration order.
func (r *Resolver) Modules() []*Module {
	out := make([]*Module, len(r.order))
	for i, p := range r.order {
		out[i] = r.modules[p]
	}
	return out
}
