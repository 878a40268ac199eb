package visitor

import (
	"testing"

	"github.com/oxhq/webrascal/internal/cfg"
	"github.com/oxhq/webrascal/internal/rewrite"
	"github.com/oxhq/webrascal/internal/urlcodec"
)

func runAST(src string, codec urlcodec.Rewriter) ([]rewrite.Rewrite, []string) {
	v := New([]byte(src), cfg.Default(), cfg.DefaultFlags())
	return v.RunAST(codec)
}

func TestRunASTWrapsEvalArgument(t *testing.T) {
	rewrites, diags := runAST("eval(code)", nil)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	var found *rewrite.Eval
	for _, r := range rewrites {
		if ev, ok := r.Type.(rewrite.Eval); ok {
			found = &ev
		}
	}
	if found == nil {
		t.Fatalf("expected an Eval rewrite, got %+v", rewrites)
	}
	if found.Inner.Start != 5 || found.Inner.End != 9 {
		t.Errorf("Eval.Inner = %+v, want [5,9) (the \"code\" argument)", found.Inner)
	}
}

func TestRunASTSkipsEvalWithNoArguments(t *testing.T) {
	rewrites, _ := runAST("eval()", nil)
	for _, r := range rewrites {
		if _, ok := r.Type.(rewrite.Eval); ok {
			t.Errorf("eval() with no arguments should not produce an Eval rewrite, got %+v", r)
		}
	}
}

func TestRunASTExpandsObjectLiteralShorthand(t *testing.T) {
	rewrites, _ := runAST("({location});", nil)
	found := false
	for _, r := range rewrites {
		if so, ok := r.Type.(rewrite.ShorthandObj); ok {
			found = true
			if so.Name != "location" {
				t.Errorf("ShorthandObj.Name = %q, want location", so.Name)
			}
		}
	}
	if !found {
		t.Errorf("expected a ShorthandObj rewrite, got %+v", rewrites)
	}
}

func TestRunASTIgnoresSafeShorthandProperty(t *testing.T) {
	rewrites, _ := runAST("({count});", nil)
	for _, r := range rewrites {
		if _, ok := r.Type.(rewrite.ShorthandObj); ok {
			t.Errorf("a shorthand property naming a safe identifier should not be rewritten, got %+v", r)
		}
	}
}

func TestRunASTCleansVariableDeclarationDestructure(t *testing.T) {
	rewrites, _ := runAST("const {location, ...rest} = x;", nil)
	found := false
	for _, r := range rewrites {
		if cv, ok := r.Type.(rewrite.CleanVariableDeclaration); ok {
			found = true
			if !cv.LocationAssigned {
				t.Error("LocationAssigned = false, want true")
			}
			if len(cv.RestIDs) != 1 || cv.RestIDs[0] != "rest" {
				t.Errorf("RestIDs = %v, want [rest]", cv.RestIDs)
			}
		}
	}
	if !found {
		t.Errorf("expected a CleanVariableDeclaration rewrite, got %+v", rewrites)
	}
}

func TestRunASTWrapsDestructuringAssignmentRHS(t *testing.T) {
	rewrites, _ := runAST("({location, ...rest} = x);", nil)
	found := false
	for _, r := range rewrites {
		if wa, ok := r.Type.(rewrite.WrapObjectAssignment); ok {
			found = true
			if !wa.LocationAssigned {
				t.Error("LocationAssigned = false, want true")
			}
			if len(wa.RestIDs) != 1 || wa.RestIDs[0] != "rest" {
				t.Errorf("RestIDs = %v, want [rest]", wa.RestIDs)
			}
			// Span must cover the whole assignment (pattern and RHS) so
			// the bare `location` binding inside the pattern is seen as
			// nested by dedupeNested and isn't separately WrapFn-wrapped;
			// RHS must be the narrower `x` sub-span lowering anchors on.
			if r.Span.Start >= wa.RHS.Start || r.Span.End < wa.RHS.End {
				t.Errorf("Span %+v does not contain RHS %+v", r.Span, wa.RHS)
			}
		}
	}
	if !found {
		t.Errorf("expected a WrapObjectAssignment rewrite, got %+v", rewrites)
	}
}

func TestRunASTRewritesStaticImportSpecifierThroughCodec(t *testing.T) {
	rewrites, diags := runAST(`import x from "./a.js";`, urlcodec.Prefix{})
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	found := false
	for _, r := range rewrites {
		if rep, ok := r.Type.(rewrite.Replace); ok {
			found = true
			if rep.Text != `"/webrascal/./a.js"` {
				t.Errorf("Replace.Text = %q, want %q", rep.Text, `"/webrascal/./a.js"`)
			}
		}
	}
	if !found {
		t.Errorf("expected a Replace rewrite for the module specifier, got %+v", rewrites)
	}
}

func TestRunASTSkipsModuleSpecifiersWithNilCodec(t *testing.T) {
	rewrites, _ := runAST(`import x from "./a.js";`, nil)
	for _, r := range rewrites {
		if _, ok := r.Type.(rewrite.Replace); ok {
			t.Errorf("a nil codec should skip module specifier rewriting, got %+v", r)
		}
	}
}

func TestRunASTCollectsCodecFailureAsDiagnostic(t *testing.T) {
	codec := urlcodec.Callback{} // Encode is nil, always fails
	rewrites, diags := runAST(`import x from "./a.js";`, codec)
	for _, r := range rewrites {
		if _, ok := r.Type.(rewrite.Replace); ok {
			t.Errorf("a failing codec should not emit a Replace rewrite, got %+v", r)
		}
	}
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %v", diags)
	}
}
