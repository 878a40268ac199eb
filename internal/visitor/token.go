package visitor

import "unicode/utf8"

// tokKind distinguishes the two significant token shapes the passes
// need: identifiers (for unsafe-name matching) and everything else
// (single runes, compared by their literal text for adjacency checks
// like "next significant token is ':'").
type tokKind uint8

const (
	tokIdent tokKind = iota
	tokPunct
)

// token is one significant lexeme: whitespace and comments are
// consumed by the tokenizer but never appear in the token stream, so
// "previous/next significant token" is just array adjacency.
type token struct {
	kind  tokKind
	text  string
	start uint32
	end   uint32
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// tokenize scans source into a significant-token stream, consuming
// string/template literals and comments without emitting tokens for
// their interiors. It never fails: unterminated strings/comments run
// to end of input, mirroring a best-effort lexer over possibly
// unparseable source.
func tokenize(src []byte) []token {
	toks := make([]token, 0, len(src)/3+8)
	i := 0
	n := len(src)

	for i < n {
		b := src[i]

		if isWhitespace(b) {
			i++
			continue
		}

		// line comment
		if b == '/' && i+1 < n && src[i+1] == '/' {
			i += 2
			for i < n && src[i] != '\n' {
				i++
			}
			continue
		}

		// block comment
		if b == '/' && i+1 < n && src[i+1] == '*' {
			i += 2
			for i+1 < n && !(src[i] == '*' && src[i+1] == '/') {
				i++
			}
			if i+1 < n {
				i += 2
			} else {
				i = n
			}
			continue
		}

		// string / template literal
		if b == '"' || b == '\'' || b == '`' {
			quote := b
			i++
			for i < n {
				if src[i] == '\\' && i+1 < n {
					i += 2
					continue
				}
				if src[i] == quote {
					i++
					break
				}
				i++
			}
			continue
		}

		r, size := utf8.DecodeRune(src[i:])

		if isIdentStart(r) {
			start := i
			i += size
			for i < n {
				r2, size2 := utf8.DecodeRune(src[i:])
				if !isIdentPart(r2) {
					break
				}
				i += size2
			}
			toks = append(toks, token{kind: tokIdent, text: string(src[start:i]), start: uint32(start), end: uint32(i)})
			continue
		}

		toks = append(toks, token{kind: tokPunct, text: string(r), start: uint32(i), end: uint32(i + size)})
		i += size
	}

	return toks
}
