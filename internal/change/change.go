// Package change defines the primitive edit records the Transformer
// applies to source bytes, and the strict total order they sort under.
package change

// Span is a half-open byte range [Start, End) into the original source.
type Span struct {
	Start uint32
	End   uint32
}

// Kind distinguishes the five primitive edit shapes. Insert-kind changes
// always carry a zero-width span; Replace spans the bytes it consumes.
type Kind uint8

const (
	// KindInsertLeft inserts at span.Start, at normal priority (after any
	// ErrorMarker or WrapFnRight edit anchored at the same position).
	KindInsertLeft Kind = iota
	// KindInsertRight inserts at span.End, at normal priority.
	KindInsertRight
	// KindWrapFnRight inserts at span.End ahead of ordinary InsertRight edits,
	// so a wrap-call's closing parens land before other right-side text.
	KindWrapFnRight
	// KindErrorMarker inserts at span.Start ahead of everything, including
	// other InsertLeft edits sharing the same position.
	KindErrorMarker
	// KindReplace substitutes [span.Start, span.End) with Text.
	KindReplace
)

// priority orders same-span changes: ErrorMarker first, then WrapFnRight,
// then everything else. Encoding it as a sort key keeps the comparator
// closed instead of depending on stable-sort semantics.
func (k Kind) priority() int {
	switch k {
	case KindErrorMarker:
		return 0
	case KindWrapFnRight:
		return 1
	default:
		return 2
	}
}

// IsInsert reports whether this kind is a zero-width positional insert.
func (k Kind) IsInsert() bool {
	return k != KindReplace
}

// Change is one primitive edit: a span, a kind, and the bytes to render
// at that position. Text may borrow from the original source or from an
// owned string built during lowering.
type Change struct {
	Span Span
	Kind Kind
	Text string
}

// InsertLeft builds a zero-width insertion at span.Start.
func InsertLeft(span Span, text string) Change {
	return Change{Span: Span{Start: span.Start, End: span.Start}, Kind: KindInsertLeft, Text: text}
}

// InsertRight builds a zero-width insertion at span.End, normal priority.
func InsertRight(span Span, text string) Change {
	return Change{Span: Span{Start: span.End, End: span.End}, Kind: KindInsertRight, Text: text}
}

// WrapFnRight builds a zero-width insertion at span.End that sorts ahead
// of ordinary InsertRight edits sharing the same position.
func WrapFnRight(span Span, text string) Change {
	return Change{Span: Span{Start: span.End, End: span.End}, Kind: KindWrapFnRight, Text: text}
}

// ErrorMarker builds a zero-width insertion at span.Start that sorts
// ahead of everything else anchored there.
func ErrorMarker(span Span, text string) Change {
	return Change{Span: Span{Start: span.Start, End: span.Start}, Kind: KindErrorMarker, Text: text}
}

// Replace substitutes the bytes in span with text.
func Replace(span Span, text string) Change {
	return Change{Span: span, Kind: KindReplace, Text: text}
}

// Less implements the §3 total order: ascending span.Start, then
// ascending span.End, then ascending priority.
func Less(a, b Change) bool {
	if a.Span.Start != b.Span.Start {
		return a.Span.Start < b.Span.Start
	}
	if a.Span.End != b.Span.End {
		return a.Span.End < b.Span.End
	}
	return a.Kind.priority() < b.Kind.priority()
}
