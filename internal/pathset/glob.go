package pathset

import "strings"

// Match reports whether relPath (posix-style, no leading "/") matches
// pattern. Patterns use "*" (matches within one path segment, no "/"), "**"
// (matches any number of segments, including zero), and "?" (matches a
// single non-"/" character) — per spec.md §3.
func Match(pattern, relPath string) bool {
	patSegs := splitSegments(pattern)
	pathSegs := splitSegments(relPath)
	return matchSegments(patSegs, pathSegs)
}

func splitSegments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func matchSegments(pat, in []string) bool {
	if len(pat) == 0 {
		return len(in) == 0
	}
	head := pat[0]
	if head == "**" {
		// "**" may consume zero or more path segments.
		for consumed := 0; consumed <= len(in); consumed++ {
			if matchSegments(pat[1:], in[consumed:]) {
				return true
			}
		}
		return false
	}
	if len(in) == 0 {
		return false
	}
	if !matchSegment(head, in[0]) {
		return false
	}
	return matchSegments(pat[1:], in[1:])
}

// matchSegment matches a single path segment against a single pattern
// segment containing "*" and "?" wildcards (never "/").
func matchSegment(pattern, seg string) bool {
	return matchSegmentRunes([]rune(pattern), []rune(seg))
}

func matchSegmentRunes(pattern, seg []rune) bool {
	if len(pattern) == 0 {
		return len(seg) == 0
	}
	switch pattern[0] {
	case '*':
		for consumed := 0; consumed <= len(seg); consumed++ {
			if matchSegmentRunes(pattern[1:], seg[consumed:]) {
				return true
			}
		}
		return false
	case '?':
		if len(seg) == 0 {
			return false
		}
		return matchSegmentRunes(pattern[1:], seg[1:])
	default:
		if len(seg) == 0 || pattern[0] != seg[0] {
			return false
		}
		return matchSegmentRunes(pattern[1:], seg[1:])
	}
}

// patternCouldDescend reports whether pattern could still match some path
// having relPath as a proper prefix directory — the conservative
// over-approximation used by IsAncestorOfPotentiallySelected.
func patternCouldDescend(pattern, relPath string) bool {
	patSegs := splitSegments(pattern)
	dirSegs := splitSegments(relPath)
	return couldDescend(patSegs, dirSegs)
}

func couldDescend(pat, dir []string) bool {
	if len(dir) == 0 {
		return true
	}
	if len(pat) == 0 {
		return false
	}
	head := pat[0]
	if head == "**" {
		// "**" can absorb the directory prefix at any consumption point.
		if couldDescend(pat, dir[1:]) {
			return true
		}
		return couldDescend(pat[1:], dir)
	}
	if !matchSegment(head, dir[0]) {
		return false
	}
	return couldDescend(pat[1:], dir[1:])
}
