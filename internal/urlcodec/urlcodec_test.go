package urlcodec

import (
	"errors"
	"strings"
	"testing"

	"github.com/oxhq/webrascal/internal/cfg"
)

func TestPrefixRewrite(t *testing.T) {
	var b strings.Builder
	if err := (Prefix{}).Rewrite(cfg.Default(), cfg.DefaultFlags(), "./x.js", &b, true); err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if got, want := b.String(), "/webrascal/./x.js"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCallbackRewriteSuccess(t *testing.T) {
	cb := Callback{Encode: func(base, url string, module bool) (string, error) {
		return base + "#" + url, nil
	}}

	var b strings.Builder
	flags := cfg.DefaultFlags()
	flags.Base = "https://example.com/"
	if err := cb.Rewrite(cfg.Default(), flags, "./x.js", &b, true); err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if got, want := b.String(), "https://example.com/#./x.js"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCallbackRewriteFailurePropagatesAsDiagnostic(t *testing.T) {
	cb := Callback{Encode: func(base, url string, module bool) (string, error) {
		return "", errors.New("boom")
	}}

	var b strings.Builder
	err := cb.Rewrite(cfg.Default(), cfg.DefaultFlags(), "./x.js", &b, false)
	if err == nil {
		t.Fatal("expected an error")
	}
	var codecErr *Error
	if !errors.As(err, &codecErr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
}

func TestCallbackRewriteWithNoEncoderFails(t *testing.T) {
	var b strings.Builder
	if err := (Callback{}).Rewrite(cfg.Default(), cfg.DefaultFlags(), "./x.js", &b, false); err == nil {
		t.Fatal("expected an error when no Encode func is bound")
	}
}
