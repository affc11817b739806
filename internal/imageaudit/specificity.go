// internal/imageaudit/specificity.go
package imageaudit

import "strings"

// Specificity is the (id, class, type) weight triple of a CSS selector.
type Specificity struct {
	A int // ID selectors
	B int // class, attribute, and pseudo-class selectors
	C int // type and pseudo-element selectors
}

// Compare orders two specificities: negative when s is less specific than
// other, zero when equal, positive when more specific.
func (s Specificity) Compare(other Specificity) int {
	if s.A != other.A {
		return s.A - other.A
	}
	if s.B != other.B {
		return s.B - other.B
	}
	return s.C - other.C
}

// ComputeSpecificity calculates the specificity of a single complex selector
// from its raw text, as the CSS domain delivers it. Combinators carry no
// weight; `*` and `:where(...)` count as zero; `:not(...)`, `:is(...)`, and
// `:has(...)` weigh as their most specific argument.
func ComputeSpecificity(selector string) Specificity {
	var spec Specificity
	s := strings.TrimSpace(selector)

	for i := 0; i < len(s); {
		ch := s[i]
		switch {
		case ch == '#':
			spec.A++
			i = skipIdent(s, i+1)
		case ch == '.':
			spec.B++
			i = skipIdent(s, i+1)
		case ch == '[':
			spec.B++
			if end := strings.IndexByte(s[i:], ']'); end >= 0 {
				i += end + 1
			} else {
				i = len(s)
			}
		case ch == ':':
			if i+1 < len(s) && s[i+1] == ':' {
				spec.C++
				i = skipIdent(s, i+2)
				break
			}
			name, next := readIdent(s, i+1)
			lower := strings.ToLower(name)
			switch lower {
			case "not", "is", "has":
				// Wrapper contributes nothing of its own; the group weighs
				// as the most specific selector in its argument list.
				args, after := readParenArgs(s, next)
				best := maxArgumentSpecificity(args)
				spec.A += best.A
				spec.B += best.B
				spec.C += best.C
				next = after
			case "where":
				// Zero-specificity wrapper, arguments included.
				next = skipBalancedParens(s, next)
			default:
				spec.B++
			}
			i = next
		case ch == '*' || ch == '>' || ch == '+' || ch == '~' || ch == ',' ||
			ch == '(' || ch == ')' || ch == ' ' || ch == '\t':
			i++
		default:
			spec.C++
			i = skipIdent(s, i)
		}
	}
	return spec
}

func isIdentByte(ch byte) bool {
	return ch == '-' || ch == '_' || ch == '\\' ||
		(ch >= '0' && ch <= '9') ||
		(ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		ch >= 0x80
}

func skipIdent(s string, i int) int {
	for i < len(s) && isIdentByte(s[i]) {
		i++
	}
	return i
}

func readIdent(s string, i int) (string, int) {
	start := i
	i = skipIdent(s, i)
	return s[start:i], i
}

// readParenArgs returns the contents of the balanced parenthesized group
// starting at i, and the index just past its closing paren. Without an
// opening paren at i it consumes nothing.
func readParenArgs(s string, i int) (string, int) {
	if i >= len(s) || s[i] != '(' {
		return "", i
	}
	end := skipBalancedParens(s, i)
	if end > i+1 && s[end-1] == ')' {
		return s[i+1 : end-1], end
	}
	return s[i+1 : end], end
}

// maxArgumentSpecificity resolves a top-level comma-separated selector list
// to the specificity of its most specific member.
func maxArgumentSpecificity(args string) Specificity {
	var best Specificity
	depth, start := 0, 0
	consider := func(end int) {
		part := strings.TrimSpace(args[start:end])
		if part == "" {
			return
		}
		if spec := ComputeSpecificity(part); spec.Compare(best) > 0 {
			best = spec
		}
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				consider(i)
				start = i + 1
			}
		}
	}
	consider(len(args))
	return best
}

func skipBalancedParens(s string, i int) int {
	if i >= len(s) || s[i] != '(' {
		return i
	}
	depth := 0
	for ; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return i
}
