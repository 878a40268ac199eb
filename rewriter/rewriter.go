// Package rewriter is the embedding-facing façade (C8): it owns a
// Config and a urlcodec.Rewriter, and turns a single call to Rewrite
// into parsed source → Visitor → lowered Changes → Transformer output.
// Grounded on internal/core/pipeline.go's parse-then-execute shape in
// the teacher, narrowed from a generic query pipeline to this one
// fixed dataflow.
package rewriter

import (
	"fmt"
	"unicode/utf8"

	"github.com/oxhq/webrascal/internal/cfg"
	"github.com/oxhq/webrascal/internal/change"
	"github.com/oxhq/webrascal/internal/rewrite"
	"github.com/oxhq/webrascal/internal/transform"
	"github.com/oxhq/webrascal/internal/urlcodec"
	"github.com/oxhq/webrascal/internal/visitor"
)

// ErrNotUTF8 is returned by Rewrite and RewriteBytes when the input is
// not valid UTF-8. It is the one fatal error kind in §7; everything
// else accumulates into Result.Errors instead.
var ErrNotUTF8 = fmt.Errorf("webrascal: input is not valid UTF-8")

// Result is what a single rewrite call produces.
type Result struct {
	JS        []byte
	SourceMap []byte
	Errors    []string
	Flags     cfg.Flags
}

// Rewriter is a reusable, immutable-after-construction instance: the
// Config and urlcodec.Rewriter it was built with never change, so
// concurrent calls to Rewrite are safe as long as the URL rewriter is
// (see §5).
type Rewriter struct {
	cfg   cfg.Config
	codec urlcodec.Rewriter
}

// New constructs a Rewriter bound to c and the given URL codec.
func New(c cfg.Config, codec urlcodec.Rewriter) *Rewriter {
	return &Rewriter{cfg: c, codec: codec}
}

// Rewrite parses source under flags and returns the rewritten result.
// A parse failure in the AST pass degrades to the token-stream passes
// only; it never aborts the call (§4.7).
func (r *Rewriter) Rewrite(source string, flags cfg.Flags) (Result, error) {
	return r.RewriteBytes([]byte(source), flags)
}

// RewriteBytes is Rewrite's byte-oriented twin, used by callers that
// already have the source off disk and would rather not pay for a
// string conversion they don't need.
func (r *Rewriter) RewriteBytes(source []byte, flags cfg.Flags) (Result, error) {
	if !utf8.Valid(source) {
		return Result{}, ErrNotUTF8
	}
	flags = flags.Normalize()

	v := visitor.New(source, r.cfg, flags)
	rewrites := v.Run()
	astRewrites, diagnostics := v.RunAST(r.codec)
	rewrites = append(rewrites, astRewrites...)

	if flags.Rascalitize {
		rewrites = append(rewrites, rewrite.Rewrite{
			Span: change.Span{Start: 0, End: uint32(len(source))},
			Type: rewrite.Rascalitize{},
		})
	}

	rewrites = dedupeNested(rewrites)

	changes := make([]change.Change, 0, len(rewrites)*2)
	for _, rw := range rewrites {
		changes = append(changes, rw.Lower(r.cfg)...)
	}

	out := transform.New().Apply(source, changes)

	result := Result{
		JS:        out.Bytes,
		SourceMap: nil,
		Errors:    diagnostics,
		Flags:     flags,
	}
	if flags.DoSourceMaps {
		result.SourceMap = out.SourceMap
	}
	return result, nil
}

// dedupeNested drops a WrapFn rewrite whenever some other rewrite's
// span contains or equals it — the case where a token-stream pass and
// an AST pass both fire on the same identifier. A shorthand object
// property (`{location}`) gets a WrapFn from pass 1 and a ShorthandObj
// from the AST pass on the exact same span; an assignment target
// (`location = x`) gets a WrapFn nested strictly inside a wider
// Assignment span. Either way the other rewrite already accounts for
// the identifier, so the WrapFn is redundant and must not also run.
func dedupeNested(rewrites []rewrite.Rewrite) []rewrite.Rewrite {
	drop := make([]bool, len(rewrites))
	for i, r := range rewrites {
		if _, ok := r.Type.(rewrite.WrapFn); !ok {
			continue
		}
		for j, o := range rewrites {
			if i == j {
				continue
			}
			if o.Span.Start <= r.Span.Start && r.Span.End <= o.Span.End {
				drop[i] = true
				break
			}
		}
	}

	out := make([]rewrite.Rewrite, 0, len(rewrites))
	for i, r := range rewrites {
		if !drop[i] {
			out = append(out, r)
		}
	}
	return out
}
