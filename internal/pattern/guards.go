// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pattern

import "strings"

// Command-boundary guards inserted around templates that name LaTeX
// commands. Three rewrites are applied before placeholder expansion:
//
//  1. A template that starts with a command gets negative lookbehinds so it
//     cannot match right after a \\ newline command, nor match the command
//     being declared in a \newcommand{...} or \def{...} definition.
//  2. An alphabetic command name that ends the template gets a (?![a-zA-Z])
//     boundary so \abc does not match the start of \abcd, plus a sub-pattern
//     absorbing trailing white space (including one newline when the next
//     line is not blank).
//  3. An alphabetic command name followed (possibly through optional
//     square/round arguments) by a %C placeholder, or ending in such
//     optional arguments, gets the same boundary: both can match the empty
//     string or an arbitrary character right after the name and would
//     otherwise swallow the start of a longer name.
//
// Only %C needs the explicit boundary in case 3: %c, %r and %s require a
// literal opening bracket, which already prevents partial-name matches.
const commandLookbehind = `(?<!(?<!\\)\\)(?<!\\newcommand\{)(?<!\\def\{)`

var noArgSuffix = `(?![a-zA-Z])(?:` + lineWS + `(?!\n)|` + horizontalWS + `)`

const nameBoundary = `(?![a-zA-Z])`

// insertCommandGuards applies the three rewrites above. The scan never
// revisits inserted text.
func insertCommandGuards(template string) (string, error) {
	src := template
	var out strings.Builder

	if strings.HasPrefix(src, `\\`) && len(src) > 2 {
		out.WriteString(commandLookbehind)
	}

	for i := 0; i < len(src); {
		if src[i] != '\\' || i+1 >= len(src) || src[i+1] != '\\' {
			out.WriteByte(src[i])
			i++
			continue
		}
		runEnd, ok := scanNameRun(src, i+2)
		if !ok {
			// Escaped backslash or non-alphabetic command; copy the pair.
			out.WriteString(src[i : i+2])
			i += 2
			continue
		}
		astEnd := scanAsterisk(src, runEnd)
		out.WriteString(src[i:astEnd])
		i = astEnd
		switch {
		case astEnd == len(src):
			out.WriteString(noArgSuffix)
		case implicitArgFollows(src[astEnd:]):
			out.WriteString(nameBoundary)
		}
	}
	return out.String(), nil
}

// scanNameRun parses a command-name run starting at i: one or more elements,
// each a letter sequence, a bracketed letter set like [ab], or an
// alternation like (?:abc|def), optionally quantified with ? or ?+. Returns
// the index past the run and whether a run was found.
func scanNameRun(s string, i int) (int, bool) {
	start := i
	for {
		j, ok := scanNameElement(s, i)
		if !ok {
			break
		}
		i = j
	}
	return i, i > start
}

func scanNameElement(s string, i int) (int, bool) {
	j := i
	switch {
	case j < len(s) && isLetter(s[j]):
		for j < len(s) && isLetter(s[j]) {
			j++
		}
	case j < len(s) && s[j] == '[':
		j++
		k := j
		for j < len(s) && isLetter(s[j]) {
			j++
		}
		if j == k || j >= len(s) || s[j] != ']' {
			return i, false
		}
		j++
	case j < len(s) && s[j] == '(':
		j++
		if strings.HasPrefix(s[j:], "?:") {
			j += 2
		}
		k := j
		for j < len(s) && (isLetter(s[j]) || s[j] == '|') {
			j++
		}
		if j == k || j >= len(s) || s[j] != ')' {
			return i, false
		}
		j++
	default:
		return i, false
	}
	// Optional greedy or possessive quantifier on the element.
	if j < len(s) && s[j] == '?' {
		j++
		if j < len(s) && s[j] == '+' {
			j++
		}
	}
	return j, true
}

// scanAsterisk consumes an optional \*? element (a starred command variant).
func scanAsterisk(s string, i int) int {
	if strings.HasPrefix(s[i:], `\*?`) {
		i += 3
		if i < len(s) && s[i] == '+' {
			i++
		}
	}
	return i
}

// implicitArgFollows reports whether the text ahead is a %C placeholder,
// possibly preceded by optional square or round bracket arguments, or
// consists solely of such optional arguments. Both cases can match the empty
// string right after the name, so the name needs an explicit boundary.
func implicitArgFollows(s string) bool {
	seen := false
	for {
		if strings.HasPrefix(s, "%C") {
			return true
		}
		if len(s) >= 3 && s[0] == '%' && (s[1] == 'r' || s[1] == 's') && s[2] == '?' {
			s = s[3:]
			seen = true
			continue
		}
		return seen && s == ""
	}
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
