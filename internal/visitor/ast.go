package visitor

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/oxhq/webrascal/internal/cfg"
	"github.com/oxhq/webrascal/internal/change"
	"github.com/oxhq/webrascal/internal/rewrite"
	"github.com/oxhq/webrascal/internal/urlcodec"
)

// RunAST executes the §4.5 "reserved" passes: the ones that need
// scope/position information a token stream cannot give, so they walk
// a tree-sitter parse tree instead. Grounded on the provider's
// node-kind switch in internal/lang/javascript/provider.go, generalized
// from "classify this node for the universal catalog" to "does this
// node's shape alias an unsafe global".
//
// codec rewrites static import/export module specifiers, the one
// place a URL literal must be resolved before any JS runs rather than
// routed through the dynamic-import shim at call time. A nil codec
// skips that rewriting (useful for tests that only care about the
// unsafe-global passes).
//
// A parse failure here is not fatal to the rewrite: it degrades to the
// token-stream passes only, and is itself surfaced as a ParseDiagnostic
// (§7) rather than silently dropped.
//
// RunAST returns both the Rewrites it found and any diagnostics
// collected along the way (a failed parse, or a codec.Rewrite failure
// on a module specifier — §7's ParseDiagnostic and CodecFailed/
// UrlResolveFailed kinds) so the façade can fold them into Result.Errors.
func (v *Visitor) RunAST(codec urlcodec.Rewriter) ([]rewrite.Rewrite, []string) {
	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, v.src)
	if err != nil || tree == nil {
		diag := "parse diagnostic: "
		if err != nil {
			diag += err.Error()
		} else {
			diag += "tree-sitter returned no tree"
		}
		return nil, []string{diag}
	}

	var out []rewrite.Rewrite
	var diagnostics []string
	emit := func(span change.Span, variant rewrite.Variant) {
		out = append(out, rewrite.Rewrite{Span: span, Type: variant})
	}
	diagnose := func(msg string) {
		diagnostics = append(diagnostics, msg)
	}

	walk(tree.RootNode(), func(n *sitter.Node) {
		switch n.Type() {
		case "call_expression":
			visitEvalCall(n, v.src, emit)
		case "assignment_expression":
			visitAssignment(n, v.src, emit)
		case "object":
			visitObjectLiteral(n, v.src, emit)
		case "object_pattern":
			visitObjectPattern(n, v.src, emit)
		case "import_statement", "export_statement":
			if codec != nil {
				visitModuleSpecifier(n, v.src, v.cfg, v.flags, codec, emit, diagnose)
			}
		}
	})

	return out, diagnostics
}

// walk calls fn on every node in the tree in a pre-order traversal.
func walk(n *sitter.Node, fn func(*sitter.Node)) {
	if n == nil {
		return
	}
	fn(n)
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), fn)
	}
}

func nodeSpan(n *sitter.Node) change.Span {
	return change.Span{Start: n.StartByte(), End: n.EndByte()}
}

func nodeText(n *sitter.Node, src []byte) string {
	return string(src[n.StartByte():n.EndByte()])
}

// visitEvalCall recurses a call's argument expression through the
// rewriter at runtime whenever the callee is the bare `eval`
// identifier. Pass 1 already wraps the `eval` reference itself with
// WrapFn; this additionally rewrites what gets handed to it.
func visitEvalCall(n *sitter.Node, src []byte, emit func(change.Span, rewrite.Variant)) {
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" || nodeText(fn, src) != "eval" {
		return
	}
	args := n.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return
	}
	first := args.NamedChild(0)
	span := nodeSpan(first)
	emit(span, rewrite.Eval{Inner: span})
}

// visitAssignment guards a bare assignment to an unsafe identifier
// (`location = x`, not `a.location = x`, which pass 2 already handles
// via property rewriting) behind TrySetFn.
func visitAssignment(n *sitter.Node, src []byte, emit func(change.Span, rewrite.Variant)) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left == nil || right == nil || left.Type() != "identifier" {
		return
	}
	name := nodeText(left, src)
	if !unsafeIdents[name] {
		return
	}
	emit(nodeSpan(n), rewrite.Assignment{
		Name: name,
		RHS:  nodeSpan(right),
		Op:   rewrite.OpAssign,
	})
}

// visitObjectLiteral expands `{location}` shorthand into an explicit
// `location: $wrap(location)` pair so the captured value, not the live
// binding, ends up on the object.
func visitObjectLiteral(n *sitter.Node, src []byte, emit func(change.Span, rewrite.Variant)) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		prop := n.NamedChild(i)
		if prop.Type() != "shorthand_property_identifier" {
			continue
		}
		name := nodeText(prop, src)
		if unsafeIdents[name] {
			emit(nodeSpan(prop), rewrite.ShorthandObj{Name: name})
		}
	}
}

// visitObjectPattern finds destructuring targets (`const {location,
// ...rest} = x`) that capture an unsafe global or spread arbitrary
// identifiers out of one, and marks the pattern for clean-up: the
// bound names must run through CleanRestFn/TrySetFn rather than alias
// the sandboxed global directly.
func visitObjectPattern(n *sitter.Node, src []byte, emit func(change.Span, rewrite.Variant)) {
	var restIDs []string
	locationAssigned := false

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "shorthand_property_identifier_pattern", "shorthand_property_identifier":
			if nodeText(child, src) == "location" {
				locationAssigned = true
			}
		case "rest_pattern":
			if id := child.NamedChild(0); id != nil && id.Type() == "identifier" {
				restIDs = append(restIDs, nodeText(id, src))
			}
		}
	}

	if !locationAssigned && len(restIDs) == 0 {
		return
	}

	parent := n.Parent()
	if parent == nil {
		return
	}

	switch parent.Type() {
	case "variable_declarator":
		emit(nodeSpan(parent), rewrite.CleanVariableDeclaration{
			RestIDs:          restIDs,
			LocationAssigned: locationAssigned,
		})
	case "assignment_expression":
		if rhs := parent.ChildByFieldName("right"); rhs != nil {
			emit(nodeSpan(parent), rewrite.WrapObjectAssignment{
				RestIDs:          restIDs,
				LocationAssigned: locationAssigned,
				RHS:              nodeSpan(rhs),
			})
		}
	}
}

// visitModuleSpecifier resolves a static `import … from "url"` or
// `export … from "url"` specifier against flags.Base through codec,
// and splices the result in place of the original string literal
// (quotes included, since the codec only sees the bare URL text). A
// codec failure (UrlResolveFailed/CodecFailed, §7) leaves the literal
// untouched and reports through diagnose instead of failing silently.
func visitModuleSpecifier(n *sitter.Node, src []byte, c cfg.Config, f cfg.Flags, codec urlcodec.Rewriter, emit func(change.Span, rewrite.Variant), diagnose func(string)) {
	source := n.ChildByFieldName("source")
	if source == nil || source.Type() != "string" {
		return
	}

	raw := nodeText(source, src)
	if len(raw) < 2 {
		return
	}
	quote := raw[0]
	url := raw[1 : len(raw)-1]

	var b strings.Builder
	if err := codec.Rewrite(c, f, url, &b, true); err != nil {
		diagnose(err.Error())
		return
	}

	emit(nodeSpan(source), rewrite.Replace{Text: string(quote) + b.String() + string(quote)})
}
