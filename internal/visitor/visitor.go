// Package visitor scans tokenized JavaScript source for the syntactic
// patterns that must be intercepted before the source can run in a
// sandboxed realm, and emits rewrite.Rewrite records against the
// original byte spans. Grounded on the original visitor.rs pass order
// and on internal/lang/javascript/provider.go's node-kind-switch style
// for the tree-sitter-backed reserved passes in ast.go.
package visitor

import (
	"github.com/oxhq/webrascal/internal/cfg"
	"github.com/oxhq/webrascal/internal/change"
	"github.com/oxhq/webrascal/internal/rewrite"
)

// unsafeIdents is the GLOSSARY's "unsafe identifier" set: references
// that can reach outside the sandboxed realm if left unwrapped.
var unsafeIdents = map[string]bool{
	"parent":   true,
	"top":      true,
	"location": true,
	"eval":     true,
}

// declKeywords precede a binding occurrence of an identifier, never a
// reference to it — `function location() {}` declares, it does not
// read, the sandboxed global.
var declKeywords = map[string]bool{
	"function": true,
	"var":      true,
	"let":      true,
	"const":    true,
	"catch":    true,
	"class":    true,
}

// Visitor runs the fixed pass sequence of §4.5 over one source buffer
// and accumulates the Rewrites it finds. It is single-use: construct
// one per rewrite call with New, then call Run once.
type Visitor struct {
	src    []byte
	cfg    cfg.Config
	flags  cfg.Flags
	toks   []token
	result []rewrite.Rewrite
}

// New prepares a Visitor over source. It does not tokenize until Run
// is called.
func New(src []byte, c cfg.Config, f cfg.Flags) *Visitor {
	return &Visitor{src: src, cfg: c, flags: f}
}

// Run executes passes 1 through 6 in order and returns every emitted
// Rewrite. The reserved AST passes (assignments to unsafe globals,
// destructuring declarations and assignments, shorthand object
// properties, eval arguments, static module specifiers) live in
// RunAST and are invoked separately by the façade.
func (v *Visitor) Run() []rewrite.Rewrite {
	v.toks = tokenize(v.src)
	v.result = nil

	v.passIdentifierReferences()
	v.passMemberExpressions()
	v.passDynamicImport()
	v.passImportMeta()
	v.passDebugger()
	v.passSourceTag()

	return v.result
}

func (v *Visitor) emit(span change.Span, variant rewrite.Variant) {
	v.result = append(v.result, rewrite.Rewrite{Span: span, Type: variant})
}

// passIdentifierReferences is §4.5 pass 1.
func (v *Visitor) passIdentifierReferences() {
	for i, t := range v.toks {
		if t.kind != tokIdent || !unsafeIdents[t.text] {
			continue
		}

		if i > 0 && v.toks[i-1].kind == tokPunct && v.toks[i-1].text == "." {
			continue // pass 2 territory: member expression
		}
		if i+1 < len(v.toks) && v.toks[i+1].kind == tokPunct && v.toks[i+1].text == ":" {
			continue // object key or label
		}
		if i > 0 && v.toks[i-1].kind == tokIdent && declKeywords[v.toks[i-1].text] {
			continue // binding, not reference
		}

		v.emit(change.Span{Start: t.start, End: t.end}, rewrite.WrapFn{Enclose: false})
	}
}

// passMemberExpressions is §4.5 pass 2: property access on an unsafe
// identifier, postMessage interception, and computed member wrapping.
func (v *Visitor) passMemberExpressions() {
	for i, t := range v.toks {
		if t.kind == tokIdent && i > 0 && v.toks[i-1].kind == tokPunct && v.toks[i-1].text == "." {
			switch {
			case unsafeIdents[t.text]:
				v.emit(change.Span{Start: t.start, End: t.end}, rewrite.RewriteProperty{Ident: t.text})
			case t.text == "postMessage":
				v.emit(change.Span{Start: t.start, End: t.end}, rewrite.SetRealmFn{})
			}
		}
	}

	v.passComputedMembers()
}

// passComputedMembers wraps the contents of every non-empty, balanced
// `[ … ]` region. Brackets are matched with a simple depth counter
// over the significant-token stream, so a `]` inside a string or
// comment (already consumed by the tokenizer) can never confuse it.
func (v *Visitor) passComputedMembers() {
	type open struct {
		idx uint32 // byte offset just past the `[`
	}
	var stack []open

	for _, t := range v.toks {
		if t.kind != tokPunct {
			continue
		}
		switch t.text {
		case "[":
			stack = append(stack, open{idx: t.end})
		case "]":
			if len(stack) == 0 {
				continue
			}
			o := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			innerStart, innerEnd := o.idx, t.start
			if innerEnd > innerStart {
				v.emit(change.Span{Start: innerStart, End: innerEnd}, rewrite.WrapProperty{})
			}
		}
	}
}

// passDynamicImport is §4.5 pass 3. The emitted span runs through the
// opening paren, matching the ImportFn lowering's replacement text of
// `importfn("prefix",` (which already supplies the call's own `(`).
func (v *Visitor) passDynamicImport() {
	for i, t := range v.toks {
		if t.kind != tokIdent || t.text != "import" {
			continue
		}
		if i+1 >= len(v.toks) || v.toks[i+1].kind != tokPunct || v.toks[i+1].text != "(" {
			continue
		}
		v.emit(change.Span{Start: t.start, End: v.toks[i+1].end}, rewrite.ImportFn{})
	}
}

// passImportMeta is §4.5 pass 4: every literal, whitespace-free
// occurrence of `import.meta`.
func (v *Visitor) passImportMeta() {
	for i, t := range v.toks {
		if t.kind != tokIdent || t.text != "import" {
			continue
		}
		if i+2 >= len(v.toks) {
			continue
		}
		dot := v.toks[i+1]
		meta := v.toks[i+2]
		if dot.kind != tokPunct || dot.text != "." || dot.start != t.end {
			continue
		}
		if meta.kind != tokIdent || meta.text != "meta" || meta.start != dot.end {
			continue
		}
		v.emit(change.Span{Start: t.start, End: meta.end}, rewrite.MetaFn{})
	}
}

// passDebugger is §4.5 pass 5: deletes `debugger`, and when a `;`
// follows it (after optional whitespace), that whitespace and the `;`
// too. Without a `;`, only the keyword itself is deleted.
func (v *Visitor) passDebugger() {
	for _, t := range v.toks {
		if t.kind != tokIdent || t.text != "debugger" {
			continue
		}

		end := t.end
		for end < uint32(len(v.src)) && isWhitespace(v.src[end]) {
			end++
		}
		if end < uint32(len(v.src)) && v.src[end] == ';' {
			end++
		} else {
			end = t.end
		}

		v.emit(change.Span{Start: t.start, End: end}, rewrite.Delete{})
	}
}

// passSourceTag is §4.5 pass 6. The tag goes to the front of the
// result: same-position InsertLeft changes keep their emission order
// through the Transformer's stable sort, so this keeps the tag at
// output offset 0, ahead of e.g. a WrapFn opened at byte 0.
func (v *Visitor) passSourceTag() {
	if !v.flags.DoSourceMaps {
		return
	}
	tag := rewrite.Rewrite{Span: change.Span{Start: 0, End: 0}, Type: rewrite.SourceTag{}}
	v.result = append([]rewrite.Rewrite{tag}, v.result...)
}
