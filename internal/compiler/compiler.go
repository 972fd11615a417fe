// Package compiler exposes the three driver entry points spec.md §6 names —
// Parse, Check, Compile — wiring together every phase in internal/lexer,
// internal/parser, internal/module, internal/types, internal/borrow and
// internal/codegen into one synchronous-per-unit pipeline (spec.md §5: "The
// compiler core is single-threaded and synchronous within one compilation
// unit").
//
// Multi-unit parallelism (spec.md §5's "parallelism across units is
// permitted at the orchestrator level provided each unit owns its own
// resolver/checker/codegen state") is implemented by CompileUnits, grounded
// on the teacher's worker-pool-with-residual-split pattern repeated in
// ir/validate.go's ValidateTree and ir/llvm/transform.go's GenLLVM: split
// len(units) across opt.Threads workers with n, res := l/t, l%t and hand the
// first res workers one extra item.
package compiler

import (
	"sync"

	"github.com/vex-lang/vex/internal/ast"
	"github.com/vex-lang/vex/internal/borrow"
	"github.com/vex-lang/vex/internal/codegen"
	"github.com/vex-lang/vex/internal/config"
	"github.com/vex-lang/vex/internal/diag"
	"github.com/vex-lang/vex/internal/module"
	"github.com/vex-lang/vex/internal/parser"
	"github.com/vex-lang/vex/internal/source"
	"github.com/vex-lang/vex/internal/types"
)

// ParseResult is parse(source_map)'s wire shape from spec.md §6.
type ParseResult struct {
	AST         *ast.Node
	Diagnostics []*diag.Diagnostic
}

// CheckResult is check(ast)'s wire shape from spec.md §6. It also exposes
// the def/struct-field tables internal/borrow and internal/codegen need, so
// Compile can thread them through without re-deriving them.
type CheckResult struct {
	TypedAST     *ast.Node
	Defs         map[string]*ast.Type
	StructFields map[string]map[string]*ast.Type
	Diagnostics  []*diag.Diagnostic
}

// Result is compile(source_map, options)'s wire shape from spec.md §6.
type Result struct {
	ModuleIR    string
	Diagnostics []*diag.Diagnostic
}

// Parse resolves every file registered in sm into one merged module DAG and
// returns a single combined Program node (spec.md §4.3's module resolution
// folded into the parse entry point, since a CheckResult/Generator needs one
// tree to walk). Files are parsed in source.Map registration order so
// diagnostics and merged-child order stay deterministic across runs
// (spec.md §8).
func Parse(sm *source.Map) ParseResult {
	bus := diag.NewBus(diag.PhaseParse, sm)
	prog := parseAndResolve(sm, bus)
	return ParseResult{AST: prog, Diagnostics: bus.All()}
}

func parseAndResolve(sm *source.Map, bus *diag.Bus) *ast.Node {
	res := module.NewResolver(bus)
	for _, f := range sm.Files() {
		tree := parser.Parse(f.ID, f.Text, bus)
		res.AddModule(f.Path, f.ID, tree)
	}
	res.Resolve()
	return mergeModules(res.Modules())
}

// mergeModules flattens every resolved module's top-level items into one
// Program node. Module identity only matters to the resolver's import/export
// bookkeeping (spec.md §4.3); once DefinitionIds are minted and cross-module
// references are checked, the typed AST, borrow checker and codegen all walk
// a single flat item list the same way the teacher walks one translation
// unit's Root.Children[0].
func mergeModules(mods []*module.Module) *ast.Node {
	prog := ast.NewNode(ast.Program, source.Span{}, nil)
	for _, m := range mods {
		for _, item := range m.Tree.Children {
			if item.Typ == ast.ImportDecl {
				continue
			}
			prog.Children = append(prog.Children, item)
		}
	}
	return prog
}

// Check runs the type environment and the four borrow-checker phases over
// prog, the way spec.md §6's check(ast) entry point requires.
func Check(prog *ast.Node, sm *source.Map) CheckResult {
	bus := diag.NewBus(diag.PhaseTypes, sm)

	tc := types.NewChecker(bus)
	tc.Check(prog)

	bc := borrow.NewChecker(bus, tc.Defs(), tc.StructFields())
	bc.Check(prog)

	return CheckResult{
		TypedAST:     prog,
		Defs:         tc.Defs(),
		StructFields: tc.StructFields(),
		Diagnostics:  bus.All(),
	}
}

// Compile runs the full pipeline — parse, resolve, check, borrow-check,
// generate — over sm and returns the emitted LLVM module's textual IR plus
// every diagnostic collected along the way.
//
// Per spec.md §7's propagation policy, codegen only runs when no
// severity=error diagnostic was reported, unless opt.EmitLLVM forces
// best-effort IR emission past a post-parse failure (spec.md §6: "by
// default, no IR is produced unless --emit-llvm was requested and the
// failure is post-parse").
func Compile(sm *source.Map, opt config.Options) Result {
	bus := diag.NewBus(diag.PhaseInternal, sm)

	prog := parseAndResolve(sm, bus)
	if bus.HasErrors() {
		return Result{Diagnostics: bus.All()}
	}

	tc := types.NewChecker(bus)
	tc.Check(prog)

	bc := borrow.NewChecker(bus, tc.Defs(), tc.StructFields())
	bc.Check(prog)

	if bus.HasErrors() && !opt.EmitLLVM {
		return Result{Diagnostics: bus.All()}
	}

	gen := codegen.NewGenerator(opt, bus)
	ir, err := gen.Generate(prog, tc.Defs(), tc.StructFields())
	if err != nil {
		bus.Report(diag.New(diag.EInternal, diag.SeverityError, diag.PhaseCodegen, source.Span{}, err.Error()))
		return Result{Diagnostics: bus.All()}
	}
	return Result{ModuleIR: ir, Diagnostics: bus.All()}
}

// CompileUnits compiles every source map in units independently and in
// parallel across opt.Threads workers, honoring spec.md §5's requirement
// that each unit own its own resolver/checker/codegen state (one Bus, one
// Generator, one LLVM context per unit; no shared mutable globals). Results
// are returned in the same order as units regardless of which worker
// finished first.
func CompileUnits(units []*source.Map, opt config.Options) []Result {
	l := len(units)
	if l == 0 {
		return nil
	}
	t := opt.Threads
	if t < 1 {
		t = 1
	}
	if t > l {
		t = l
	}

	results := make([]Result, l)
	if t == 1 {
		for i, sm := range units {
			results[i] = Compile(sm, opt)
		}
		return results
	}

	n := l / t   // jobs per worker
	res := l % t // first res workers take one extra job
	var wg sync.WaitGroup

	idx := 0
	for w := 0; w < t; w++ {
		m := n
		if w < res {
			m++
		}
		start, count := idx, m
		idx += count
		wg.Add(1)
		go func(start, count int) {
			defer wg.Done()
			for i := start; i < start+count; i++ {
				results[i] = Compile(units[i], opt)
			}
		}(start, count)
	}
	wg.Wait()
	return results
}
