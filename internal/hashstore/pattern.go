package hashstore

// MatchPattern reports whether s matches a glob pattern.
//
// Supported syntax: '*' matches any run of bytes, '?' matches one byte,
// '[abc]', '[a-z]' and '[^a-z]' match classes, and '\' escapes the next
// byte. An empty pattern or "*" matches everything. A malformed class is
// treated as literal text, so matching never fails.
func MatchPattern(pattern, s string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	return match(pattern, s)
}

// match backtracks only to the most recent '*'. Every other token consumes
// exactly one byte, which keeps matching O(len(p)*len(s)).
func match(p, s string) bool {
	var (
		pi, si = 0, 0
		starP  = -1
		starS  = 0
	)
	for si < len(s) {
		if pi < len(p) && p[pi] == '*' {
			for pi < len(p) && p[pi] == '*' {
				pi++
			}
			if pi == len(p) {
				return true
			}
			starP, starS = pi, si
			continue
		}
		if pi < len(p) {
			if width, ok := matchToken(p[pi:], s[si]); ok {
				pi += width
				si++
				continue
			}
		}
		if starP < 0 {
			return false
		}
		starS++
		pi, si = starP, starS
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}

// matchToken matches c against the single-byte token at the start of p and
// returns the token's width in p.
func matchToken(p string, c byte) (width int, ok bool) {
	switch p[0] {
	case '?':
		return 1, true
	case '[':
		matched, rest, valid := matchClass(p[1:], c)
		if !valid {
			return 1, c == '['
		}
		return len(p) - len(rest), matched
	case '\\':
		if len(p) >= 2 {
			return 2, c == p[1]
		}
	}
	return 1, c == p[0]
}

// matchClass matches c against the class body starting after '['. It
// returns the pattern remaining after ']' and whether the class was closed.
func matchClass(p string, c byte) (matched bool, rest string, valid bool) {
	negate := false
	if len(p) > 0 && p[0] == '^' {
		negate = true
		p = p[1:]
	}
	first := true
	for len(p) > 0 {
		if p[0] == ']' && !first {
			return matched != negate, p[1:], true
		}
		first = false
		lo := p[0]
		if lo == '\\' && len(p) >= 2 {
			p = p[1:]
			lo = p[0]
		}
		p = p[1:]
		hi := lo
		if len(p) >= 2 && p[0] == '-' && p[1] != ']' {
			hi = p[1]
			if hi == '\\' && len(p) >= 3 {
				hi = p[2]
				p = p[1:]
			}
			p = p[2:]
		}
		if lo > hi {
			lo, hi = hi, lo
		}
		if c >= lo && c <= hi {
			matched = true
		}
	}
	return false, "", false
}
