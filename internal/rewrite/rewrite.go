// Package rewrite defines the high-level semantic edits the Visitor
// emits, and the pure lowering function that turns each into one or
// more change.Change records. Grounded on the original rewrite.rs
// closed enum and lowered the way internal/core/manipulator.go in the
// teacher turns a semantic Operation into concrete byte edits.
package rewrite

import (
	"fmt"
	"strings"

	"github.com/oxhq/webrascal/internal/cfg"
	"github.com/oxhq/webrascal/internal/change"
)

// AssignmentOp is reserved for future differentiation of +=, -=, etc.
// Current lowering treats every op identically to plain assignment.
type AssignmentOp uint8

const (
	OpAssign AssignmentOp = iota
	OpAddAssign
	OpSubAssign
	OpMulAssign
	OpDivAssign
)

// Variant is the closed set of semantic edits a Visitor pass can emit.
type Variant interface {
	isVariant()
}

// WrapFn wraps a bare reference to an unsafe global in cfg.WrapFn(...).
// Enclose additionally parenthesizes the call, for contexts where the
// wrapped expression must bind tighter than its surroundings.
type WrapFn struct{ Enclose bool }

// SetRealmFn intercepts `<expr>.postMessage` by replacing the property
// access with a call through cfg.SetRealmFn.
type SetRealmFn struct{}

// ImportFn intercepts dynamic `import(` by replacing the callee.
type ImportFn struct{}

// MetaFn intercepts a literal `import.meta` occurrence.
type MetaFn struct{}

// RewriteProperty intercepts `.ident` member access on an unsafe global.
type RewriteProperty struct{ Ident string }

// RebindProperty rewrites an object-literal property key that aliases an
// unsafe global, optionally substituting a temp variable for the value.
type RebindProperty struct {
	Ident   string
	TempVar bool
}

// TempVar substitutes the synthetic location temp for a bare reference.
type TempVar struct{}

// WrapObjectAssignment wraps the right-hand side of a destructuring
// assignment so captured identifiers run through CleanRestFn and an
// aliased `location` goes through a guarded TrySetFn assignment. Span
// covers the whole assignment expression (pattern and RHS both) so
// that pass 1's bare WrapFn on a shorthand `location` binding in the
// pattern is recognized as nested and dropped; RHS, strictly inside
// Span, is where the lowered wrapper call actually attaches — the
// same Span-vs-inner-anchor split Eval uses for its argument.
type WrapObjectAssignment struct {
	RestIDs          []string
	LocationAssigned bool
	RHS              change.Span
}

// WrapProperty wraps a computed member expression's key expression.
type WrapProperty struct{}

// RascalErr emits an error-reporting call ahead of the spanned statement.
type RascalErr struct{ Ident string }

// Rascalitize wraps the spanned expression in $rascalitize(...).
type Rascalitize struct{}

// Eval wraps the argument expression of an eval(...) call (Inner) so it
// is recursively rewritten at runtime via cfg.RewriteFn.
type Eval struct{ Inner change.Span }

// Assignment rewrites `name = rhs` into a guarded TrySetFn attempt.
type Assignment struct {
	Name string
	RHS  change.Span
	Op   AssignmentOp
}

// ShorthandObj expands an object-literal shorthand property that aliases
// an unsafe global into an explicit `name: wrapfn(name)` pair.
type ShorthandObj struct{ Name string }

// SourceTag inserts the /*rascaltag ...*/ comment at output offset 0.
type SourceTag struct{}

// CleanFunction injects clean-up statements (scrubbing captured rest
// identifiers, guarding a `location` assignment) into a function body.
type CleanFunction struct {
	RestIDs          []string
	Expression       bool
	LocationAssigned bool
	Wrap             bool
}

// CleanVariableDeclaration appends a synthetic comma-expression to a
// variable declaration that runs the same clean-up as CleanFunction.
type CleanVariableDeclaration struct {
	RestIDs          []string
	LocationAssigned bool
}

// Replace substitutes the spanned bytes with Text outright (used by the
// URL rewriter integration to splice a re-encoded URL literal in place).
type Replace struct{ Text string }

// Delete removes the spanned bytes entirely (used for `debugger;`).
type Delete struct{}

func (WrapFn) isVariant() {}
func (SetRealmFn) isVariant() {}
func (ImportFn) isVariant() {}
func (MetaFn) isVariant() {}
func (RewriteProperty) isVariant() {}
func (RebindProperty) isVariant() {}
func (TempVar) isVariant() {}
func (WrapObjectAssignment) isVariant() {}
func (WrapProperty) isVariant() {}
func (RascalErr) isVariant() {}
func (Rascalitize) isVariant() {}
func (Eval) isVariant() {}
func (Assignment) isVariant() {}
func (ShorthandObj) isVariant() {}
func (SourceTag) isVariant() {}
func (CleanFunction) isVariant() {}
func (CleanVariableDeclaration) isVariant() {}
func (Replace) isVariant() {}
func (Delete) isVariant() {}

// Rewrite is one semantic edit: a span in original-source coordinates
// plus the variant describing what it does there.
type Rewrite struct {
	Span change.Span
	Type Variant
}

// Lower turns a Rewrite into one or more primitive Changes, per the
// table in spec.md §4.4. It is a pure function of (Rewrite, Config).
func (r Rewrite) Lower(c cfg.Config) []change.Change {
	switch v := r.Type.(type) {
	case WrapFn:
		left := c.WrapFn + "("
		right := ")"
		if v.Enclose {
			left = "(" + c.WrapFn + "("
			right = "))"
		}
		return []change.Change{
			change.InsertLeft(r.Span, left),
			change.WrapFnRight(r.Span, right),
		}

	case SetRealmFn:
		return []change.Change{
			change.Replace(r.Span, fmt.Sprintf("%s({}).postMessage", c.SetRealmFn)),
		}

	case ImportFn:
		return []change.Change{
			change.Replace(r.Span, fmt.Sprintf("%s(%q,", c.ImportFn, c.Prefix)),
		}

	case MetaFn:
		return []change.Change{
			change.Replace(r.Span, fmt.Sprintf("%s(import.meta, %q)", c.MetaFn, c.Prefix)),
		}

	case RewriteProperty:
		return []change.Change{
			change.Replace(r.Span, c.WrapPropertyBase+v.Ident),
		}

	case RebindProperty:
		target := v.Ident
		if v.TempVar {
			target = c.TempLocID
		}
		return []change.Change{
			change.Replace(r.Span, fmt.Sprintf("%s%s: %s", c.WrapPropertyBase, v.Ident, target)),
		}

	case TempVar:
		return []change.Change{change.Replace(r.Span, c.TempLocID)}

	case WrapObjectAssignment:
		rest := make([]string, 0, len(v.RestIDs))
		for _, id := range v.RestIDs {
			rest = append(rest, fmt.Sprintf("%s(%s)", c.CleanRestFn, id))
		}
		loc := ""
		if v.LocationAssigned {
			loc = fmt.Sprintf(", %s(location, \"=\", t)||(location=t)", c.TrySetFn)
		}
		prefix := fmt.Sprintf("((t)=>(%s%s))(", strings.Join(rest, ", "), loc)
		return []change.Change{
			change.InsertLeft(v.RHS, prefix),
			change.InsertRight(v.RHS, ")"),
		}

	case WrapProperty:
		return []change.Change{
			change.InsertLeft(r.Span, c.WrapPropertyFn+"("),
			change.InsertRight(r.Span, ")"),
		}

	case RascalErr:
		return []change.Change{
			change.ErrorMarker(r.Span, fmt.Sprintf("$rascalerr(%s);", v.Ident)),
		}

	case Rascalitize:
		return []change.Change{
			change.InsertLeft(r.Span, "$rascalitize("),
			change.InsertRight(r.Span, ")"),
		}

	case Eval:
		return []change.Change{
			change.InsertLeft(v.Inner, c.RewriteFn+"("),
			change.InsertRight(v.Inner, ")"),
		}

	case Assignment:
		// Replace `name = ` with the guard call's head and close it after
		// the RHS, so the RHS source bytes become the call's argument.
		return []change.Change{
			change.Replace(change.Span{Start: r.Span.Start, End: v.RHS.Start}, fmt.Sprintf(
				"((t)=>%s(%s,\"=\",t)||(%s=t))(",
				c.TrySetFn, v.Name, v.Name,
			)),
			change.InsertRight(v.RHS, ")"),
		}

	case ShorthandObj:
		return []change.Change{
			change.Replace(r.Span, fmt.Sprintf("%s: %s(%s)", v.Name, c.WrapFn, v.Name)),
		}

	case SourceTag:
		return []change.Change{
			change.InsertLeft(r.Span, fmt.Sprintf("/*rascaltag %d %s*/", r.Span.Start, c.Prefix)),
		}

	case CleanFunction:
		var body strings.Builder
		for _, id := range v.RestIDs {
			fmt.Fprintf(&body, "%s(%s);", c.CleanRestFn, id)
		}
		if v.LocationAssigned {
			fmt.Fprintf(&body, "%s(location,\"=\",%s)||(location=%s);", c.TrySetFn, c.TempLocID, c.TempLocID)
		}
		switch {
		case v.Expression:
			return []change.Change{
				change.InsertLeft(r.Span, fmt.Sprintf("(%s,", body.String())),
				change.InsertRight(r.Span, ")"),
			}
		case v.Wrap:
			return []change.Change{
				change.InsertLeft(r.Span, "{"+body.String()),
				change.InsertRight(r.Span, "}"),
			}
		default:
			return []change.Change{
				change.InsertLeft(r.Span, ";"+body.String()),
			}
		}

	case CleanVariableDeclaration:
		var suffix strings.Builder
		for _, id := range v.RestIDs {
			fmt.Fprintf(&suffix, "%s(%s),", c.CleanRestFn, id)
		}
		if v.LocationAssigned {
			fmt.Fprintf(&suffix, "%s(location,\"=\",%s)||(location=%s),", c.TrySetFn, c.TempLocID, c.TempLocID)
		}
		return []change.Change{
			change.InsertRight(r.Span, fmt.Sprintf(", %s = (%s, 0)", c.TempUnusedID, suffix.String())),
		}

	case Replace:
		return []change.Change{change.Replace(r.Span, v.Text)}

	case Delete:
		return []change.Change{change.Replace(r.Span, "")}

	default:
		return nil
	}
}
