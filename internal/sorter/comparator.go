package sorter

import "strconv"

// lexCompare implements the Lexicographic discipline (SPEC_FULL.md §4.3):
// values are compared as numbers when both sides parse as a float64
// ("integer columns promoted to floating point to be permissive"),
// otherwise as raw strings.
func lexCompare(a, b string) int {
	af, aerr := strconv.ParseFloat(a, 64)
	bf, berr := strconv.ParseFloat(b, 64)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// naturalCompare implements the Natural discipline: maximal digit runs
// compare as unsigned integers, whitespace is skipped at the start of
// each comparison step, equal digit prefixes fall through to the next
// character, and a digit sorts before a non-digit at the same position.
// Ported from original_source/src/sort.rs's natural_cmp/parse_number.
func naturalCompare(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		for i < len(a) && isSpace(a[i]) {
			i++
		}
		for j < len(b) && isSpace(b[j]) {
			j++
		}
		if i >= len(a) || j >= len(b) {
			break
		}

		ad, bd := isDigit(a[i]), isDigit(b[j])
		switch {
		case ad && bd:
			an, ni := parseNumber(a, i)
			bn, nj := parseNumber(b, j)
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}
			i, j = ni, nj
		case ad && !bd:
			return -1
		case !ad && bd:
			return 1
		default:
			if a[i] != b[j] {
				if a[i] < b[j] {
					return -1
				}
				return 1
			}
			i++
			j++
		}
	}
	switch {
	case len(a)-i < len(b)-j:
		return -1
	case len(a)-i > len(b)-j:
		return 1
	default:
		return 0
	}
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// parseNumber reads the maximal run of digits starting at i, returning the
// value as an unsigned integer (not overflow-checked: a run longer than
// uint64 can hold wraps around — acceptable for column values of realistic length)
// and the index just past the run.
func parseNumber(s string, i int) (uint64, int) {
	var n uint64
	for i < len(s) && isDigit(s[i]) {
		n = n*10 + uint64(s[i]-'0')
		i++
	}
	return n, i
}
