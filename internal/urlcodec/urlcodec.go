// Package urlcodec implements the §4.2 URL rewriter capability: given
// a URL literal found in source, produce the text that should replace
// it so that any request the rewritten script makes stays inside the
// proxy. The interface exists so the core rewriter never imports a
// host runtime directly — grounded on the provider.LanguageProvider
// capability-interface pattern in internal/provider/provider.go, here
// narrowed to one operation instead of a whole language backend.
package urlcodec

import (
	"fmt"
	"strings"

	"github.com/oxhq/webrascal/internal/cfg"
)

// Rewriter is the capability a Rewriter instance is constructed with.
// Implementations must be safe to call concurrently: Rewrite may run
// from multiple goroutines rewriting different sources against the
// same instance.
type Rewriter interface {
	// Rewrite appends the rewritten form of url to builder as bare
	// text, without surrounding quotes (the caller supplies those);
	// an implementation may resolve url against f.Base first. module
	// distinguishes an import
	// specifier from an ordinary string literal, since the two may
	// need different encodings on a real host codec.
	Rewrite(c cfg.Config, f cfg.Flags, url string, builder *strings.Builder, module bool) error
}

// Error reports why a URL could not be rewritten. The caller surfaces
// it as a diagnostic and drops the corresponding Rewrite rather than
// letting it reach the Transformer.
type Error struct {
	URL    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("url rewrite failed for %q: %s", e.URL, e.Reason)
}

// Prefix is the trivial implementation: it prepends cfg.Prefix to the
// URL verbatim, with no resolution against flags.Base. It never fails.
// This is what the native CLI and the test harness use; a real
// embedding wires in Callback instead.
type Prefix struct{}

func (Prefix) Rewrite(c cfg.Config, _ cfg.Flags, url string, builder *strings.Builder, _ bool) error {
	builder.WriteString(c.Prefix)
	builder.WriteString(url)
	return nil
}

// Callback dispatches to a host-supplied encoder function, the shape a
// WASM/JS embedding's shim provides. Encode must be safe to call from
// any goroutine; if the embedding's actual codec is bound to a single
// JS runtime thread, the embedding is responsible for serializing
// calls itself (see §5).
type Callback struct {
	Encode func(base, url string, module bool) (string, error)
}

func (c Callback) Rewrite(_ cfg.Config, f cfg.Flags, url string, builder *strings.Builder, module bool) error {
	if c.Encode == nil {
		return &Error{URL: url, Reason: "no codec bound"}
	}
	encoded, err := c.Encode(f.Base, url, module)
	if err != nil {
		return &Error{URL: url, Reason: err.Error()}
	}
	builder.WriteString(encoded)
	return nil
}
