package format

// MatchGlob reports whether the shell-style pattern matches the name.
// Supported syntax: '*' matches any run of bytes, '?' any single byte,
// '[set]' a byte class with ranges and '!' or '^' negation, '\' escapes
// the next pattern byte. Bytes have no further interpretation; '/' is not
// special. An unterminated class matches '[' literally
func MatchGlob(pattern, name []byte) bool {
	px, nx := 0, 0
	backPx, backNx := -1, -1
	for nx < len(name) {
		if px < len(pattern) {
			switch c := pattern[px]; c {
			case '*':
				backPx, backNx = px, nx
				px++
				continue
			case '?':
				px++
				nx++
				continue
			case '[':
				if m, setLen, ok := matchSet(pattern[px:], name[nx]); ok {
					if m {
						px += setLen
						nx++
						continue
					}
				} else if name[nx] == '[' {
					px++
					nx++
					continue
				}
			case '\\':
				if px+1 < len(pattern) {
					if pattern[px+1] == name[nx] {
						px += 2
						nx++
						continue
					}
				} else if name[nx] == '\\' {
					px++
					nx++
					continue
				}
			default:
				if c == name[nx] {
					px++
					nx++
					continue
				}
			}
		}
		// mismatch: restart after the last '*', consuming one more byte
		if backPx >= 0 {
			backNx++
			px, nx = backPx+1, backNx
			continue
		}
		return false
	}
	for px < len(pattern) && pattern[px] == '*' {
		px++
	}
	return px == len(pattern)
}

// matchSet matches one byte against the class starting at p[0] == '['.
// Returns the match result, the length of the class in the pattern and
// whether the class is well-formed
func matchSet(p []byte, c byte) (matched bool, setLen int, ok bool) {
	i := 1
	neg := false
	if i < len(p) && (p[i] == '!' || p[i] == '^') {
		neg = true
		i++
	}
	start := i
	for i < len(p) && (p[i] != ']' || i == start) {
		i++
	}
	if i >= len(p) {
		return false, 0, false
	}
	m := false
	for j := start; j < i; {
		lo := p[j]
		if j+2 < i && p[j+1] == '-' {
			if lo <= c && c <= p[j+2] {
				m = true
			}
			j += 3
		} else {
			if c == lo {
				m = true
			}
			j++
		}
	}
	return m != neg, i + 1, true
}
