// Package cfg holds the two read-only value types threaded through a
// single rewrite: Config, the shim ABI naming table, and Flags, the
// per-invocation options. Both are immutable once constructed.
package cfg

// Config is the naming table for every identifier the rewriter injects
// into its output. These names are the ABI between the rewriter and the
// embedding's runtime shim: the rewriter emits them verbatim, so a host
// that renames its shim functions must pass matching overrides.
type Config struct {
	Prefix            string // URL path segment prepended by the trivial URL rewriter
	WrapFn            string // wraps a bare reference to an unsafe global
	WrapPropertyBase  string // prefix for rewritten unsafe property names
	WrapPropertyFn    string // wraps a computed member expression
	CleanRestFn       string // scrubs a captured identifier inside a cleaned closure
	ImportFn          string // intercepts dynamic import(...)
	RewriteFn         string // recursively rewrites a string passed to eval
	SetRealmFn        string // intercepts cross-realm postMessage
	MetaFn            string // intercepts import.meta
	PushSourceMapFn   string // (reserved) pushes a sourcemap fragment into the runtime
	TrySetFn          string // attempts a guarded assignment to an unsafe global
	TempLocID         string // synthetic local standing in for `location`
	TempUnusedID      string // synthetic local absorbing clean-up side effects
}

// Default returns the canonical $webrascal$* ABI.
func Default() Config {
	return Config{
		Prefix:           "/webrascal/",
		WrapFn:           "$webrascal$wrap",
		WrapPropertyBase: "$webrascal__",
		WrapPropertyFn:   "$webrascal$prop",
		CleanRestFn:      "$webrascal$clean",
		ImportFn:         "$webrascal$import",
		RewriteFn:        "$webrascal$rewrite",
		SetRealmFn:       "$webrascal$setrealm",
		MetaFn:           "$webrascal$meta",
		PushSourceMapFn:  "$webrascal$pushsourcemap",
		TrySetFn:         "$webrascal$tryset",
		TempLocID:        "$webrascal$temploc",
		TempUnusedID:     "$webrascal$tempunused",
	}
}

// Override returns a copy of cfg with every non-empty field in overrides
// replacing the matching field. Unknown keys are ignored. This lets an
// embedding's shim win over the canonical ABI names without the rewriter
// knowing anything about where the overrides came from (env, .env file,
// flags, or an embedding object).
func (c Config) Override(overrides map[string]string) Config {
	out := c
	apply := func(key string, dst *string) {
		if v, ok := overrides[key]; ok && v != "" {
			*dst = v
		}
	}
	apply("prefix", &out.Prefix)
	apply("wrapfn", &out.WrapFn)
	apply("wrappropertybase", &out.WrapPropertyBase)
	apply("wrappropertyfn", &out.WrapPropertyFn)
	apply("cleanrestfn", &out.CleanRestFn)
	apply("importfn", &out.ImportFn)
	apply("rewritefn", &out.RewriteFn)
	apply("setrealmfn", &out.SetRealmFn)
	apply("metafn", &out.MetaFn)
	apply("pushsourcemapfn", &out.PushSourceMapFn)
	apply("trysetfn", &out.TrySetFn)
	apply("templocid", &out.TempLocID)
	apply("tempunusedid", &out.TempUnusedID)
	return out
}

// Flags are the per-invocation options for a single rewrite call. They
// are consumed by value and echoed back on Result.
type Flags struct {
	Base                 string // URL literals resolve against this; defaults to "about:blank"
	SourceTag            string // opaque tag echoed back on Result; the sourcetag comment carries the byte offset and Config.Prefix, not this value
	IsModule             bool   // echoed back on Result; the parser handles script and module source alike, so this does not change the rewrite
	CaptureErrors        bool   // (reserved) wrap top-level statements to capture thrown errors
	Rascalitize          bool   // wrap the whole program in $rascalitize(...)
	DoSourceMaps         bool   // emit the binary sourcemap and the leading sourcetag comment
	StrictRewrites       bool   // (reserved) fail the rewrite on an unresolvable construct instead of degrading
	DestructureRewrites  bool   // (reserved) rewrite destructuring targets that alias an unsafe global
}

// DefaultFlags returns the zero-value-safe defaults used when a caller
// does not set a field explicitly.
func DefaultFlags() Flags {
	return Flags{
		Base:                "about:blank",
		SourceTag:           "default",
		IsModule:            false,
		CaptureErrors:       false,
		Rascalitize:         false,
		DoSourceMaps:        true,
		StrictRewrites:      true,
		DestructureRewrites: true,
	}
}

// Normalize fills in any zero-value fields that must never be empty at
// rewrite time (currently just Base).
func (f Flags) Normalize() Flags {
	if f.Base == "" {
		f.Base = "about:blank"
	}
	return f
}
