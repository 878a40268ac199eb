// Package harness embeds a minimal sandboxed-realm stub and executes
// rewritten scripts against it with an embedded JS engine, the way the
// original test runner prepends HARNESS to rewritten source and
// evaluates the combined script in boa_engine. Here the engine is
// goja, named per the out-of-pack rule (no embeddable JS VM exists in
// the example pack).
package harness

import (
	"fmt"

	"github.com/dop251/goja"
)

// Shim defines the sandboxed-realm stand-in the rewritten output calls
// into: globalThis aliased to window/top/parent, a settable `location`
// string, and no-op or pass-through implementations of the
// $webrascal$* functions from cfg.Default() that the rewriter emits
// ($webrascal$pushsourcemap is not defined). It exists purely to let a rewritten
// file run to completion so a test can tell whether the rewrite itself
// is syntactically and semantically sound, not to emulate a browser.
const Shim = `
(() => {
  globalThis.window = globalThis;
  globalThis.top = globalThis;
  globalThis.parent = globalThis;
  globalThis.eval = eval;
  let __location = "location";
  Object.defineProperty(globalThis, "location", {
    configurable: true,
    get() { return __location; },
    set(v) { __location = v; }
  });

  globalThis.$webrascal$wrap = function(v) {
    if (v === globalThis || v === globalThis.top || v === globalThis.parent || v === "location") return "";
    return v;
  };

  globalThis.$webrascal$prop = function(prop) {
    if (["location", "top", "parent", "eval"].includes(prop)) return "$webrascal__" + prop;
    return prop;
  };

  globalThis.$webrascal$tryset = function(target, _op, _value) {
    return target === "location";
  };

  globalThis.$webrascal$setrealm = function(obj) { return obj; };
  globalThis.$webrascal$rewrite = function(js) { return js; };
  globalThis.$webrascal$meta = function(v) { return v; };
  globalThis.$webrascal$import = function() { return Promise.resolve({}); };
  globalThis.$webrascal$clean = function() {};

  Object.defineProperty(Object.prototype, "$webrascal__location", {
    configurable: true,
    get() { return ""; },
    set(_) { }
  });
  Object.defineProperty(Object.prototype, "$webrascal__top", {
    configurable: true,
    get() { return ""; },
    set(_) { }
  });
  Object.defineProperty(Object.prototype, "$webrascal__parent", {
    configurable: true,
    get() { return ""; },
    set(_) { }
  });
  Object.defineProperty(Object.prototype, "$webrascal__eval", {
    configurable: true,
    get() { return eval; },
    set(_) { }
  });

  globalThis.check = function(val) {
    if (val === globalThis || val === globalThis.top || val === "location") {
      throw new Error("unsafe value leaked");
    }
    return true;
  };
})();
`

// Outcome is one file's run result.
type Outcome struct {
	Path   string
	Passed bool
	Err    error
}

// Run evaluates Shim followed by rewritten in a fresh goja VM, the way
// the original harness prepends HARNESS and evaluates the combined
// source as one program. Each call gets its own VM so one file's
// globals can never leak into the next.
func Run(path string, rewritten []byte) Outcome {
	vm := goja.New()
	combined := Shim + "\n" + string(rewritten)

	_, err := vm.RunString(combined)
	if err != nil {
		return Outcome{Path: path, Passed: false, Err: err}
	}
	return Outcome{Path: path, Passed: true}
}

// File pairs a path with the already-rewritten source to evaluate.
type File struct {
	Path      string
	Rewritten []byte
}

// Tally runs every file in order and returns the pass/fail counts
// alongside the individual outcomes, in the same order they were
// given (map iteration order would make CLI output nondeterministic).
func Tally(files []File) (passed, failed int, outcomes []Outcome) {
	for _, f := range files {
		o := Run(f.Path, f.Rewritten)
		outcomes = append(outcomes, o)
		if o.Passed {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed, outcomes
}

// Summary renders a one-line PASS/FAIL report matching the original
// runner's console output shape.
func (o Outcome) Summary() string {
	if o.Passed {
		return fmt.Sprintf("PASS %s", o.Path)
	}
	return fmt.Sprintf("FAIL %s => %v", o.Path, o.Err)
}
