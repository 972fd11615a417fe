package codegen

import (
	llvm "tinygo.org/x/go-llvm"

	"github.com/vex-lang/vex/internal/ast"
	"github.com/vex-lang/vex/internal/match"
)

// genMatch lowers a match used in statement position (spec.md §3 Statement
// Match), returning true if every arm plus the exhaustive-default trap
// already ends in a terminator — the same bool contract genIf gives genStmt.
func (g *Generator) genMatch(fc *fnCtx, n *ast.Node) bool {
	_, terminated := g.genMatchCommon(fc, n, false)
	return terminated
}

// genMatchExpr lowers a match used in expression position: every arm's
// value merges through a φ node at a shared join block, the expression-
// position counterpart genIfExpr gives `if`.
func (g *Generator) genMatchExpr(fc *fnCtx, n *ast.Node) llvm.Value {
	v, _ := g.genMatchCommon(fc, n, true)
	return v
}

// genMatchCommon lowers `match subject { pattern [if guard] => body, ... }`
// as a cascade of per-arm discriminant tests (spec.md §4.6: "match lowers to
// a decision tree over tagged constructors ... with a trap at the default
// block when the match is exhaustive"). internal/match.Compiler builds the
// same decision tree internal/types.Checker.checkMatch walks for its E3201
// exhaustiveness diagnostic; codegen walks it here too, via
// match.Exhaustive, to decide what the cascade's fallthrough should do once
// every arm has been tried: an exhaustive match's fallthrough is provably
// dead (the checker already rejected anything else), so it traps with
// unreachable rather than a runtime panic call.
//
// compileMatrix never reorders rows, so testing arms one at a time in
// source order reproduces exactly the first-match-wins semantics the
// compiled tree encodes, while keeping guard re-evaluation (a false guard
// falls through to the next arm, exactly like an unmatched pattern) and
// payload binding correct no matter how deeply a pattern nests — something
// the tree's own Switch.Path, a bare column index rather than a field-access
// chain, cannot drive directly once a pattern nests past its first level.
func (g *Generator) genMatchCommon(fc *fnCtx, n *ast.Node, wantValue bool) (llvm.Value, bool) {
	subject := g.genExpr(fc, n.Child(0))
	arms := n.Child(1).Children
	exhaustive := match.Exhaustive(match.NewCompiler(arms).Compile())

	mergeBB := llvm.AddBasicBlock(fc.fn, "")
	var incomingVals []llvm.Value
	var incomingBlocks []llvm.BasicBlock
	fallsThrough := false

	finishArm := func(body *ast.Node) {
		if wantValue {
			v := g.genExpr(fc, body)
			g.builder.CreateBr(mergeBB)
			incomingVals = append(incomingVals, v)
			incomingBlocks = append(incomingBlocks, g.builder.GetInsertBlock())
			fallsThrough = true
			return
		}
		if body.Typ == ast.BlockStmt {
			if !g.genStmt(fc, body) {
				g.builder.CreateBr(mergeBB)
				fallsThrough = true
			}
			return
		}
		g.genExpr(fc, body)
		g.builder.CreateBr(mergeBB)
		fallsThrough = true
	}

	// runArm binds armIdx's pattern against subject and checks its guard,
	// branching to nextBB (the next arm's test, or the final trap) if the
	// guard evaluates false.
	runArm := func(armIdx int, nextBB llvm.BasicBlock) {
		arm := arms[armIdx]
		fc.push()
		g.bindPattern(fc, arm.Child(0), subject)
		if guard := arm.Child(1); guard != nil {
			gv := g.genExpr(fc, guard)
			passBB := llvm.AddBasicBlock(fc.fn, "")
			g.builder.CreateCondBr(gv, passBB, nextBB)
			g.builder.SetInsertPointAtEnd(passBB)
			finishArm(arm.Child(2))
			fc.pop()
			return
		}
		finishArm(arm.Child(2))
		fc.pop()
	}

	var cascadeFrom func(i int)
	cascadeFrom = func(i int) {
		if i >= len(arms) {
			if exhaustive {
				g.builder.CreateUnreachable()
			} else {
				g.builder.CreateCall(g.fns["vex_panic"], nil, "")
				g.builder.CreateUnreachable()
			}
			return
		}
		nextBB := llvm.AddBasicBlock(fc.fn, "")
		ok := g.testPattern(arms[i].Child(0), subject)
		matchBB := llvm.AddBasicBlock(fc.fn, "")
		g.builder.CreateCondBr(ok, matchBB, nextBB)
		g.builder.SetInsertPointAtEnd(matchBB)
		runArm(i, nextBB)
		g.builder.SetInsertPointAtEnd(nextBB)
		cascadeFrom(i + 1)
	}
	cascadeFrom(0)

	g.builder.SetInsertPointAtEnd(mergeBB)
	if !fallsThrough {
		g.builder.CreateUnreachable()
		return llvm.Value{}, true
	}
	if !wantValue || len(incomingVals) == 0 {
		return llvm.Value{}, false
	}
	phi := g.builder.CreatePHI(incomingVals[0].Type(), "")
	phi.AddIncoming(incomingVals, incomingBlocks)
	return phi, false
}

// bindStructLike binds every name a struct or enum-variant pattern
// introduces against val, generalizing bindPattern's TuplePattern case
// (CreateExtractValue per element) to field lookup by name (StructPattern)
// and tagged-union payload extraction (EnumVariantPattern). It is the
// bindPattern default case's fallback for a `let`, and genMatchCommon's
// runArm reaches the same patterns through bindPattern too, so a match arm
// and a `let` destructure identically.
func (g *Generator) bindStructLike(fc *fnCtx, pat *ast.Node, val llvm.Value) {
	if pat == nil {
		return
	}
	switch pat.Typ {
	case ast.StructPattern:
		name, _ := pat.Data.(string)
		layout, ok := g.structs[name]
		if !ok {
			return
		}
		for _, f := range pat.Children {
			fname, _ := f.Data.(string)
			idx := fieldIndexInLayout(layout, fname)
			if idx < 0 {
				continue
			}
			elem := g.builder.CreateExtractValue(val, idx, "")
			g.bindPattern(fc, f.Child(0), elem)
		}
	case ast.EnumVariantPattern:
		vname, _ := pat.Data.(string)
		_, layout, variantIdx := g.enumLayoutForVariant(vname)
		if layout == nil || len(pat.Children) == 0 {
			return
		}
		for i, fv := range g.payloadFields(val, layout, variantIdx) {
			g.bindPattern(fc, pat.Children[i], fv)
		}
	case ast.OrPattern:
		if len(pat.Children) > 0 {
			g.bindPattern(fc, pat.Children[0], val)
		}
	case ast.LiteralPattern, ast.RangePattern:
		// refutable patterns bind nothing; genMatchCommon's testPattern
		// already gated this value on matching before binding ran.
	}
}

// testPattern evaluates whether val structurally matches pat, returning an
// i1. It walks the same pattern shapes bindPattern/bindStructLike do, so a
// match arm's guard (and its body) only ever runs once its full pattern —
// literals, ranges, and nested struct/enum/tuple fields alike — has already
// been confirmed to match.
func (g *Generator) testPattern(pat *ast.Node, val llvm.Value) llvm.Value {
	trueVal := llvm.ConstInt(g.ctx.Int1Type(), 1, false)
	if pat == nil {
		return trueVal
	}
	switch pat.Typ {
	case ast.WildcardPattern, ast.BindingPattern:
		return trueVal
	case ast.LiteralPattern:
		lit, _ := pat.Data.(ast.Lit)
		return g.testLiteral(lit, val)
	case ast.RangePattern:
		lo, _ := pat.Child(0).Data.(ast.Lit)
		hi, _ := pat.Child(1).Data.(ast.Lit)
		ge := g.compareLit(lo, val, false)
		le := g.compareLit(hi, val, true)
		return g.builder.CreateAnd(ge, le, "")
	case ast.OrPattern:
		acc := llvm.Value{}
		for i, alt := range pat.Children {
			t := g.testPattern(alt, val)
			if i == 0 {
				acc = t
				continue
			}
			acc = g.builder.CreateOr(acc, t, "")
		}
		if acc.IsNil() {
			return trueVal
		}
		return acc
	case ast.TuplePattern:
		acc := trueVal
		for i, sub := range pat.Children {
			elem := g.builder.CreateExtractValue(val, i, "")
			acc = g.builder.CreateAnd(acc, g.testPattern(sub, elem), "")
		}
		return acc
	case ast.StructPattern:
		name, _ := pat.Data.(string)
		layout, ok := g.structs[name]
		if !ok {
			return trueVal
		}
		acc := trueVal
		for _, f := range pat.Children {
			fname, _ := f.Data.(string)
			idx := fieldIndexInLayout(layout, fname)
			if idx < 0 {
				continue
			}
			elem := g.builder.CreateExtractValue(val, idx, "")
			acc = g.builder.CreateAnd(acc, g.testPattern(f.Child(0), elem), "")
		}
		return acc
	case ast.EnumVariantPattern:
		vname, _ := pat.Data.(string)
		_, layout, variantIdx := g.enumLayoutForVariant(vname)
		if layout == nil {
			return trueVal
		}
		addr := g.materialize(val)
		tagPtr := g.builder.CreateGEP(addr, []llvm.Value{
			llvm.ConstInt(g.ctx.Int32Type(), 0, false),
			llvm.ConstInt(g.ctx.Int32Type(), 0, false),
		}, "")
		tag := g.builder.CreateLoad(tagPtr, "")
		acc := g.builder.CreateICmp(llvm.IntEQ, tag, llvm.ConstInt(g.ctx.Int32Type(), uint64(variantIdx), false), "")
		if len(pat.Children) > 0 {
			for i, fv := range g.payloadFields(val, layout, variantIdx) {
				acc = g.builder.CreateAnd(acc, g.testPattern(pat.Children[i], fv), "")
			}
		}
		return acc
	default:
		return trueVal
	}
}

// testLiteral builds an equality test between a parsed pattern literal and
// a runtime value, covering every LitKind a LiteralPattern can carry
// (spec.md §3 Pattern: Literal).
func (g *Generator) testLiteral(lit ast.Lit, val llvm.Value) llvm.Value {
	switch lit.Kind {
	case ast.LitInt, ast.LitChar:
		return g.builder.CreateICmp(llvm.IntEQ, val, llvm.ConstInt(val.Type(), uint64(lit.IVal), true), "")
	case ast.LitBool:
		return g.builder.CreateICmp(llvm.IntEQ, val, llvm.ConstInt(val.Type(), uint64(lit.IVal), false), "")
	case ast.LitFloat:
		return g.builder.CreateFCmp(llvm.FloatOEQ, val, llvm.ConstFloat(val.Type(), lit.FVal), "")
	case ast.LitString:
		return g.testStringEq(lit.Text, val)
	default:
		return llvm.ConstInt(g.ctx.Int1Type(), 1, false)
	}
}

// compareLit implements one side (lower or upper bound) of a RangePattern
// test; upper selects <= instead of >=.
func (g *Generator) compareLit(lit ast.Lit, val llvm.Value, upper bool) llvm.Value {
	if lit.Kind == ast.LitFloat {
		c := llvm.ConstFloat(val.Type(), lit.FVal)
		if upper {
			return g.builder.CreateFCmp(llvm.FloatOLE, val, c, "")
		}
		return g.builder.CreateFCmp(llvm.FloatOGE, val, c, "")
	}
	c := llvm.ConstInt(val.Type(), uint64(lit.IVal), true)
	if upper {
		return g.builder.CreateICmp(llvm.IntSLE, val, c, "")
	}
	return g.builder.CreateICmp(llvm.IntSGE, val, c, "")
}

// testStringEq compares a {ptr, len} string value against a literal's bytes
// via the runtime's vex_utf8_eq, the same external-collaborator pattern
// declareRuntime already uses for panic hooks and goroutine spawn/await.
func (g *Generator) testStringEq(text string, val llvm.Value) llvm.Value {
	litPtr := g.builder.CreateGlobalStringPtr(text, "")
	aPtr := g.builder.CreateExtractValue(val, 0, "")
	aLen := g.builder.CreateExtractValue(val, 1, "")
	bLen := llvm.ConstInt(g.intWidth, uint64(len(text)), false)
	return g.builder.CreateCall(g.fns["vex_utf8_eq"], []llvm.Value{aPtr, aLen, litPtr, bLen}, "")
}

// materialize stores val into a fresh stack slot and returns its address,
// used whenever a temporary value needs a pointer for GEP/bitcast — here,
// reinterpreting an enum's raw payload bytes as one variant's concrete
// field types.
func (g *Generator) materialize(val llvm.Value) llvm.Value {
	alloc := g.builder.CreateAlloca(val.Type(), "")
	g.builder.CreateStore(val, alloc)
	return alloc
}

// payloadFields extracts variantIdx's declared payload fields out of val (an
// enum value) as loaded values in declaration order, bitcasting the enum's
// [N x i8] payload array to a struct of the variant's concrete field types —
// the one place codegen needs this trick, since only enums carry a raw
// tagged-union payload rather than a typed field list.
func (g *Generator) payloadFields(val llvm.Value, layout *enumLayout, variantIdx int) []llvm.Value {
	types := layout.payload[variantIdx]
	if len(types) == 0 {
		return nil
	}
	fieldTypes := make([]llvm.Type, len(types))
	for i, t := range types {
		fieldTypes[i] = g.lowerType(t)
	}
	payloadStructT := g.ctx.StructType(fieldTypes, false)

	addr := g.materialize(val)
	payloadPtr := g.builder.CreateGEP(addr, []llvm.Value{
		llvm.ConstInt(g.ctx.Int32Type(), 0, false),
		llvm.ConstInt(g.ctx.Int32Type(), 1, false),
	}, "")
	typedPtr := g.builder.CreateBitCast(payloadPtr, llvm.PointerType(payloadStructT, 0), "")

	out := make([]llvm.Value, len(types))
	for i := range types {
		fieldPtr := g.builder.CreateGEP(typedPtr, []llvm.Value{
			llvm.ConstInt(g.ctx.Int32Type(), 0, false),
			llvm.ConstInt(g.ctx.Int32Type(), uint64(i), false),
		}, "")
		out[i] = g.builder.CreateLoad(fieldPtr, "")
	}
	return out
}

// enumLayoutForVariant finds the enum that declares vname, the way a bare
// EnumVariantPattern (e.g. `Some(x)`) names only the variant, never its
// owning enum type.
func (g *Generator) enumLayoutForVariant(vname string) (string, *enumLayout, int) {
	for name, layout := range g.enums {
		for i, v := range layout.variants {
			if v == vname {
				return name, layout, i
			}
		}
	}
	return "", nil, -1
}

func fieldIndexInLayout(layout *structLayout, name string) int {
	for i, f := range layout.fields {
		if f == name {
			return i
		}
	}
	return -1
}
